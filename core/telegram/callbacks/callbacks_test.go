package callbacks

import (
	"testing"

	tele "gopkg.in/telebot.v4"
)

type cbContext struct {
	tele.Context
	cb        *tele.Callback
	store     map[string]interface{}
	responses []*tele.CallbackResponse
}

func newCB(data string) *cbContext {
	return &cbContext{cb: &tele.Callback{ID: "1", Data: data}, store: map[string]interface{}{}}
}

func (c *cbContext) Callback() *tele.Callback      { return c.cb }
func (c *cbContext) Get(key string) interface{}    { return c.store[key] }
func (c *cbContext) Set(key string, v interface{}) { c.store[key] = v }
func (c *cbContext) Respond(resp ...*tele.CallbackResponse) error {
	if len(resp) > 0 {
		c.responses = append(c.responses, resp[0])
	} else {
		c.responses = append(c.responses, nil)
	}
	return nil
}

func TestParseCallbackData(t *testing.T) {
	cases := []struct {
		data, key, payload string
	}{
		{"\freply_to|555", "reply_to", "555"},
		{"\fstart_flow", "start_flow", ""},
		{"end_reply", "end_reply", ""},
		{"reply_to|12|extra", "reply_to", "12|extra"},
		{"", "", ""},
	}
	for _, tc := range cases {
		k, p := ParseCallbackData(&tele.Callback{Data: tc.data})
		if k != tc.key || p != tc.payload {
			t.Errorf("ParseCallbackData(%q) = %q, %q", tc.data, k, p)
		}
	}
	if k, _ := ParseCallbackData(nil); k != "" {
		t.Fatal("nil callback must parse empty")
	}
}

func TestDataRoundTrip(t *testing.T) {
	c := newCB(Data("reply_to", "555"))
	if CallbackKey(c) != "reply_to" {
		t.Fatalf("key = %q", CallbackKey(c))
	}
	id, err := PayloadInt64(c)
	if err != nil || id != 555 {
		t.Fatalf("payload = %d, %v", id, err)
	}
	bad := newCB(Data("reply_to", "abc"))
	if _, err := PayloadInt64(bad); err == nil {
		t.Fatal("non-numeric payload must fail")
	}
}

func TestUniqueTakesPrecedence(t *testing.T) {
	c := newCB("555")
	c.cb.Unique = "reply_to"
	if CallbackKey(c) != "reply_to" || CallbackPayload(c) != "555" {
		t.Fatalf("key/payload = %q/%q", CallbackKey(c), CallbackPayload(c))
	}
}

func TestAnswerOnce(t *testing.T) {
	c := newCB("\fend_reply")
	if err := Alert(c, "Action réservée à l’admin."); err != nil {
		t.Fatal(err)
	}
	_ = Answer(c, nil)
	if len(c.responses) != 1 {
		t.Fatalf("responses = %d", len(c.responses))
	}
	if !c.responses[0].ShowAlert || !Answered(c) {
		t.Fatalf("alert not recorded: %+v", c.responses[0])
	}
}
