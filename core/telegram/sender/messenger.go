package sender

import (
	"context"
	"errors"
	"log/slog"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/m3rciful/menacebot/core/logger"

	tele "gopkg.in/telebot.v4"
)

// ErrNoRecipient is returned when an outbound call has no destination chat.
var ErrNoRecipient = errors.New("telegram sender: no recipient")

// Message is an outbound text or photo. Text is used as the photo caption when Photo is set.
type Message struct {
	Text      string
	Photo     *tele.Photo
	Markup    *tele.ReplyMarkup
	HTML      bool
	NoPreview bool
	Protect   bool
	// ReplyTo quotes the given message id in the destination chat.
	ReplyTo int
}

// Ref addresses a message already delivered to a chat.
type Ref struct {
	ChatID    int64
	MessageID int
}

// IsZero reports whether r points nowhere.
func (r Ref) IsZero() bool { return r.ChatID == 0 || r.MessageID == 0 }

// MessageSig implements tele.Editable.
func (r Ref) MessageSig() (string, int64) {
	return strconv.Itoa(r.MessageID), r.ChatID
}

// Messenger is the outbound port used by the bot services. Every call reports
// its own failure; callers decide whether to log, ignore or surface it.
type Messenger interface {
	Send(ctx context.Context, chatID int64, m Message) (Ref, error)
	Edit(ctx context.Context, ref Ref, m Message) error
	Copy(ctx context.Context, chatID int64, src Ref, protect bool) (Ref, error)
}

// API is the subset of *tele.Bot used by Bot.
type API interface {
	Send(to tele.Recipient, what interface{}, opts ...interface{}) (*tele.Message, error)
	Edit(msg tele.Editable, what interface{}, opts ...interface{}) (*tele.Message, error)
	Copy(to tele.Recipient, msg tele.Editable, opts ...interface{}) (*tele.Message, error)
}

// Bot implements Messenger over the Telegram Bot API.
type Bot struct {
	api API
}

// NewBot wraps api.
func NewBot(api API) *Bot {
	return &Bot{api: api}
}

// Send delivers m to chatID.
func (b *Bot) Send(ctx context.Context, chatID int64, m Message) (Ref, error) {
	if chatID == 0 {
		return Ref{}, ErrNoRecipient
	}
	var what interface{} = m.Text
	action, endpoint := "send.text", "sendMessage"
	if m.Photo != nil {
		photo := *m.Photo
		photo.Caption = m.Text
		what = &photo
		action, endpoint = "send.photo", "sendPhoto"
	}

	start := time.Now()
	msg, err := b.api.Send(tele.ChatID(chatID), what, sendOptions(m))
	b.observe(ctx, action, endpoint, chatID, m.Markup != nil, start, err)
	if err != nil {
		return Ref{}, err
	}
	return refOf(msg, chatID), nil
}

// Edit replaces the text and keyboard of ref.
func (b *Bot) Edit(ctx context.Context, ref Ref, m Message) error {
	if ref.IsZero() {
		return ErrNoRecipient
	}
	start := time.Now()
	_, err := b.api.Edit(ref, m.Text, sendOptions(m))
	b.observe(ctx, "edit.text", "editMessageText", ref.ChatID, m.Markup != nil, start, err)
	return err
}

// Copy duplicates src into chatID keeping media and caption.
func (b *Bot) Copy(ctx context.Context, chatID int64, src Ref, protect bool) (Ref, error) {
	if chatID == 0 || src.IsZero() {
		return Ref{}, ErrNoRecipient
	}
	start := time.Now()
	msg, err := b.api.Copy(tele.ChatID(chatID), src, &tele.SendOptions{Protected: protect})
	b.observe(ctx, "copy", "copyMessage", chatID, false, start, err)
	if err != nil {
		return Ref{}, err
	}
	return refOf(msg, chatID), nil
}

func (b *Bot) observe(ctx context.Context, action, endpoint string, chatID int64, kb bool, start time.Time, err error) {
	attrs := []slog.Attr{
		slog.String("action", action),
		slog.String("endpoint", endpoint),
		slog.Int64("target_id", chatID),
		slog.Int("elapsed_ms", durationToMS(time.Since(start))),
	}
	if err != nil {
		attrs = append(attrs,
			slog.String("error", Sanitize(err)),
			slog.String("error_kind", Classify(err)),
		)
		logger.Warn(ctx, logger.CompSender, "send.fail", attrs...)
		return
	}
	if t := TallyFrom(ctx); t != nil {
		t.Add(kb)
	}
	logger.Debug(ctx, logger.CompSender, "send.success", attrs...)
}

func sendOptions(m Message) *tele.SendOptions {
	opts := &tele.SendOptions{
		ReplyMarkup:           m.Markup,
		DisableWebPagePreview: m.NoPreview,
		Protected:             m.Protect,
	}
	if m.HTML {
		opts.ParseMode = tele.ModeHTML
	}
	if m.ReplyTo != 0 {
		opts.ReplyTo = &tele.Message{ID: m.ReplyTo}
	}
	return opts
}

func refOf(msg *tele.Message, chatID int64) Ref {
	if msg == nil {
		return Ref{ChatID: chatID}
	}
	ref := Ref{ChatID: chatID, MessageID: msg.ID}
	if msg.Chat != nil && msg.Chat.ID != 0 {
		ref.ChatID = msg.Chat.ID
	}
	return ref
}

// Tally counts messages delivered while handling one update.
type Tally struct {
	messages atomic.Int32
	kb       atomic.Bool
}

// Add records one delivered message.
func (t *Tally) Add(withKeyboard bool) {
	t.messages.Add(1)
	if withKeyboard {
		t.kb.Store(true)
	}
}

// Counts returns the number of delivered messages and whether any carried a keyboard.
func (t *Tally) Counts() (int, bool) {
	if t == nil {
		return 0, false
	}
	return int(t.messages.Load()), t.kb.Load()
}

type tallyKey struct{}

// WithTally attaches t to ctx.
func WithTally(ctx context.Context, t *Tally) context.Context {
	return context.WithValue(ctx, tallyKey{}, t)
}

// TallyFrom returns the tally attached to ctx, if any.
func TallyFrom(ctx context.Context) *Tally {
	if ctx == nil {
		return nil
	}
	t, _ := ctx.Value(tallyKey{}).(*Tally)
	return t
}
