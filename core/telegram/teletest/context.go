// Package teletest provides an in-memory tele.Context for handler tests.
package teletest

import (
	"strings"
	"sync"

	tele "gopkg.in/telebot.v4"
)

// Context is a tele.Context backed by a synthetic update. Methods not
// overridden here panic through the nil embedded interface.
type Context struct {
	tele.Context

	Upd tele.Update

	mu        sync.Mutex
	store     map[string]interface{}
	Responses []*tele.CallbackResponse
	Sent      []interface{}
}

var nextUpdate = 1000

func newContext(u tele.Update) *Context {
	nextUpdate++
	if u.ID == 0 {
		u.ID = nextUpdate
	}
	return &Context{Upd: u, store: make(map[string]interface{})}
}

// Text builds a text message update from userID in chatID.
func Text(chatID, userID int64, text string) *Context {
	msg := &tele.Message{
		ID:     nextUpdate + 1,
		Sender: &tele.User{ID: userID, FirstName: "User"},
		Chat:   &tele.Chat{ID: chatID, Type: tele.ChatPrivate},
		Text:   text,
	}
	if strings.HasPrefix(text, "/") {
		_, payload, _ := strings.Cut(text, " ")
		msg.Payload = strings.TrimSpace(payload)
	}
	return newContext(tele.Update{Message: msg})
}

// Photo builds a photo message update from userID in chatID.
func Photo(chatID, userID int64, caption string) *Context {
	msg := &tele.Message{
		ID:      nextUpdate + 1,
		Sender:  &tele.User{ID: userID, FirstName: "User"},
		Chat:    &tele.Chat{ID: chatID, Type: tele.ChatPrivate},
		Photo:   &tele.Photo{File: tele.File{FileID: "photo-file"}},
		Caption: caption,
	}
	return newContext(tele.Update{Message: msg})
}

// Callback builds a button press with raw data from userID in chatID.
func Callback(chatID, userID int64, data string) *Context {
	msg := &tele.Message{
		ID:   nextUpdate + 1,
		Chat: &tele.Chat{ID: chatID, Type: tele.ChatPrivate},
	}
	cb := &tele.Callback{
		ID:      "cb",
		Sender:  &tele.User{ID: userID, FirstName: "User"},
		Message: msg,
		Data:    data,
	}
	return newContext(tele.Update{Callback: cb})
}

func (c *Context) Update() tele.Update { return c.Upd }

func (c *Context) Message() *tele.Message {
	switch {
	case c.Upd.Message != nil:
		return c.Upd.Message
	case c.Upd.Callback != nil:
		return c.Upd.Callback.Message
	}
	return nil
}

func (c *Context) Callback() *tele.Callback { return c.Upd.Callback }

func (c *Context) Sender() *tele.User {
	switch {
	case c.Upd.Callback != nil:
		return c.Upd.Callback.Sender
	case c.Upd.Message != nil:
		return c.Upd.Message.Sender
	}
	return nil
}

func (c *Context) Chat() *tele.Chat {
	if m := c.Message(); m != nil {
		return m.Chat
	}
	return nil
}

func (c *Context) Text() string {
	if m := c.Message(); m != nil {
		return m.Text
	}
	return ""
}

func (c *Context) Data() string {
	if c.Upd.Callback != nil {
		return c.Upd.Callback.Data
	}
	if m := c.Message(); m != nil {
		return m.Payload
	}
	return ""
}

func (c *Context) Args() []string {
	return strings.Fields(c.Data())
}

func (c *Context) Get(key string) interface{} {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.store[key]
}

func (c *Context) Set(key string, v interface{}) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.store[key] = v
}

func (c *Context) Respond(resp ...*tele.CallbackResponse) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(resp) > 0 {
		c.Responses = append(c.Responses, resp[0])
	} else {
		c.Responses = append(c.Responses, &tele.CallbackResponse{})
	}
	return nil
}

func (c *Context) Send(what interface{}, _ ...interface{}) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Sent = append(c.Sent, what)
	return nil
}
