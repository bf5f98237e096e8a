package relay

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/m3rciful/menacebot/core/telegram/callbacks"
	"github.com/m3rciful/menacebot/core/telegram/sender"
	"github.com/m3rciful/menacebot/core/telegram/sender/sendertest"
	"github.com/m3rciful/menacebot/internal/notify"
	"github.com/m3rciful/menacebot/internal/session"
)

const admin = 999

var ctx = context.Background()

func newRouter(t *testing.T) (*Router, *sendertest.Recorder, *session.MemoryStore) {
	t.Helper()
	store := session.NewMemoryStore()
	out := &sendertest.Recorder{}
	return NewRouter(out, NewRoute(admin, store), Options{AdminChatID: admin}), out, store
}

func target(t *testing.T, r *Router) int64 {
	t.Helper()
	id, err := r.Target(ctx)
	if err != nil {
		t.Fatal(err)
	}
	return id
}

func TestMirrorCopiesAndSetsTarget(t *testing.T) {
	r, out, store := newRouter(t)
	from := notify.Sender{UserID: 555, ChatID: 555, FirstName: "Sam"}
	if err := r.Mirror(ctx, from, sender.Ref{ChatID: 555, MessageID: 3}); err != nil {
		t.Fatal(err)
	}

	calls := out.To(admin)
	if len(calls) != 2 || calls[0].Op != "copy" || !calls[0].Protect || calls[0].Ref.MessageID != 3 {
		t.Fatalf("calls = %+v", calls)
	}
	btn := calls[1].Msg.Markup.InlineKeyboard[0][0]
	if btn.Data != callbacks.Data(KeyReplyTo, "555") {
		t.Fatalf("reply button data = %q", btn.Data)
	}
	if target(t, r) != 555 {
		t.Fatal("target not set")
	}
	if stored, _ := store.ReplyTarget(ctx, admin); stored != 555 {
		t.Fatalf("stored target = %d", stored)
	}
}

func TestMirrorSkipsAdminAndFailures(t *testing.T) {
	r, out, _ := newRouter(t)
	_ = r.Mirror(ctx, notify.Sender{UserID: 1, ChatID: admin}, sender.Ref{ChatID: admin, MessageID: 1})
	if len(out.Calls()) != 0 {
		t.Fatal("admin message mirrored to itself")
	}

	out.Fail = func(c sendertest.Call) error {
		if c.Op == "copy" {
			return errors.New("telegram: Bad Request: message to copy not found (400)")
		}
		return nil
	}
	if err := r.Mirror(ctx, notify.Sender{UserID: 7, ChatID: 7}, sender.Ref{ChatID: 7, MessageID: 1}); err != nil {
		t.Fatal(err)
	}
	if target(t, r) != 0 {
		t.Fatal("target set although the copy failed")
	}

	disabled := NewRouter(out, NewRoute(0, nil), Options{})
	if err := disabled.Mirror(ctx, notify.Sender{UserID: 7, ChatID: 7}, sender.Ref{ChatID: 7, MessageID: 1}); !errors.Is(err, ErrDisabled) {
		t.Fatalf("disabled mirror = %v", err)
	}
}

func TestLastWriteWins(t *testing.T) {
	r, _, _ := newRouter(t)
	card := sender.Ref{ChatID: admin, MessageID: 50}

	_ = r.Mirror(ctx, notify.Sender{UserID: 1, ChatID: 1}, sender.Ref{ChatID: 1, MessageID: 1})
	_ = r.SelectTarget(ctx, card, 2)
	if target(t, r) != 2 {
		t.Fatal("explicit reply must override automatic target")
	}
	_ = r.Mirror(ctx, notify.Sender{UserID: 3, ChatID: 3}, sender.Ref{ChatID: 3, MessageID: 1})
	if target(t, r) != 3 {
		t.Fatal("later inbound message must win")
	}
	_ = r.SelectTarget(ctx, card, 4)
	_ = r.SelectTarget(ctx, card, 5)
	if target(t, r) != 5 {
		t.Fatal("latest click must win")
	}
}

func TestSelectTargetInvalidPayload(t *testing.T) {
	r, out, _ := newRouter(t)
	_ = r.SelectTarget(ctx, sender.Ref{ChatID: admin, MessageID: 1}, 42)
	card := sender.Ref{ChatID: admin, MessageID: 9}
	if err := r.SelectTarget(ctx, card, 0); !errors.Is(err, ErrInvalidUserID) {
		t.Fatalf("err = %v", err)
	}
	if last := out.Last(); last.Op != "edit" || last.Ref != card || last.Msg.Text != invalidTargetText {
		t.Fatalf("last = %+v", last)
	}
	if target(t, r) != 42 {
		t.Fatal("invalid payload changed the target")
	}
}

func TestScenarioReplyPhotoDone(t *testing.T) {
	r, out, _ := newRouter(t)
	card := sender.Ref{ChatID: admin, MessageID: 20}

	if err := r.SelectTarget(ctx, card, 555); err != nil {
		t.Fatal(err)
	}
	if target(t, r) != 555 {
		t.Fatal("target not 555")
	}
	active := out.To(admin)[0]
	if !strings.Contains(active.Msg.Text, "Réponse active à <code>555</code>") {
		t.Fatalf("active card = %q", active.Msg.Text)
	}

	photo := sender.Ref{ChatID: admin, MessageID: 21}
	if err := r.Forward(ctx, photo); err != nil {
		t.Fatal(err)
	}
	toUser := out.To(555)
	if len(toUser) != 1 || toUser[0].Op != "copy" || toUser[0].Ref != photo || !toUser[0].Protect {
		t.Fatalf("user calls = %+v", toUser)
	}
	if ack := out.Last().Msg; ack.Text != "✅ Message transmis à <code>555</code>." || ack.ReplyTo != 21 {
		t.Fatalf("ack = %+v", ack)
	}

	if err := r.EndThread(ctx, 22); err != nil {
		t.Fatal(err)
	}
	if out.Last().Msg.Text != threadEndedText || target(t, r) != 0 {
		t.Fatalf("end thread: %+v", out.Last())
	}

	before := len(out.Calls())
	if err := r.Forward(ctx, sender.Ref{ChatID: admin, MessageID: 23}); !errors.Is(err, ErrNoTarget) {
		t.Fatalf("forward without target = %v", err)
	}
	if len(out.Calls()) != before {
		t.Fatal("message forwarded without a target")
	}

	_ = r.EndThread(ctx, 24)
	if out.Last().Msg.Text != noThreadText {
		t.Fatalf("no-op end = %q", out.Last().Msg.Text)
	}
}

func TestForwardFailureReported(t *testing.T) {
	r, out, _ := newRouter(t)
	_ = r.SelectTarget(ctx, sender.Ref{}, 555)
	out.Fail = func(c sendertest.Call) error {
		if c.Op == "copy" {
			return errors.New("telegram: Forbidden: bot was blocked by the user (403)")
		}
		return nil
	}
	_ = r.Forward(ctx, sender.Ref{ChatID: admin, MessageID: 1})
	if got := out.Last().Msg.Text; !strings.HasPrefix(got, "❌ Échec de la transmission: ") || !strings.Contains(got, "blocked") {
		t.Fatalf("ack = %q", got)
	}
}

func TestDirectSend(t *testing.T) {
	r, out, _ := newRouter(t)
	_ = r.SelectTarget(ctx, sender.Ref{}, 42)

	cases := []struct {
		args string
		err  error
		ack  string
	}{
		{"", ErrUsage, usageText},
		{"123", ErrUsage, usageText},
		{"abc hello", ErrInvalidUserID, invalidUserText},
		{"555  hello there ", nil, "✅ Message envoyé à 555."},
	}
	for _, tc := range cases {
		out.Reset()
		if err := r.DirectSend(ctx, tc.args, 8); !errors.Is(err, tc.err) {
			t.Errorf("DirectSend(%q) = %v, want %v", tc.args, err, tc.err)
		}
		if got := out.Last().Msg; got.Text != tc.ack || got.ReplyTo != 8 {
			t.Errorf("DirectSend(%q) ack = %+v", tc.args, got)
		}
		if target(t, r) != 42 {
			t.Errorf("DirectSend(%q) changed the target", tc.args)
		}
	}

	out.Reset()
	_ = r.DirectSend(ctx, "555 hello there", 0)
	sent := out.To(555)
	if len(sent) != 1 || sent[0].Msg.Text != "hello there" || !sent[0].Msg.Protect {
		t.Fatalf("sent = %+v", sent)
	}

	out.Fail = func(c sendertest.Call) error {
		if c.ChatID == 404 {
			return errors.New("telegram: Bad Request: chat not found (400)")
		}
		return nil
	}
	_ = r.DirectSend(ctx, "404 hi", 0)
	if got := out.Last().Msg.Text; got != "❌ Échec de l’envoi: telegram: Bad Request: chat not found (400)" {
		t.Fatalf("failure ack = %q", got)
	}
}

func TestEndThreadButton(t *testing.T) {
	r, out, _ := newRouter(t)
	_ = r.SelectTarget(ctx, sender.Ref{}, 1)
	card := sender.Ref{ChatID: admin, MessageID: 5}
	_ = r.EndThreadButton(ctx, card)
	if target(t, r) != 0 {
		t.Fatal("target kept")
	}
	if last := out.Last(); last.Op != "edit" || last.Msg.Text != threadEndedShort {
		t.Fatalf("last = %+v", last)
	}
}

func TestNotifySubmission(t *testing.T) {
	sub := notify.Submission{UserID: 555, ChatID: 555, Offer: session.OfferBeginner, Pseudo: "CoolGamer99"}

	r, out, _ := newRouter(t)
	if err := r.NotifySubmission(ctx, sub); err != nil {
		t.Fatal(err)
	}
	calls := out.To(admin)
	if len(calls) != 2 || !strings.Contains(calls[0].Msg.Text, "CoolGamer99") || calls[1].Msg.Text != notify.ReplyPrompt {
		t.Fatalf("calls = %+v", calls)
	}

	d := sender.NewDispatcher(sender.Options{QueueSize: 4})
	queued := &sendertest.Recorder{}
	async := NewRouter(queued, NewRoute(admin, nil), Options{AdminChatID: admin, Dispatcher: d})
	if err := async.NotifySubmission(ctx, sub); err != nil {
		t.Fatal(err)
	}
	d.Close()
	if calls := queued.To(admin); len(calls) != 2 || calls[1].Msg.Text != notify.ReplyPrompt {
		t.Fatalf("queued calls = %+v", calls)
	}

	none := NewRouter(out, NewRoute(0, nil), Options{})
	out.Reset()
	_ = none.NotifySubmission(ctx, sub)
	if len(out.Calls()) != 0 {
		t.Fatal("notified without admin")
	}
}

func TestNotifySubmissionStopsAtFirstFailure(t *testing.T) {
	sub := notify.Submission{UserID: 555, ChatID: 555, Offer: session.OfferBeginner, Pseudo: "CoolGamer99"}
	rejectSummary := func(c sendertest.Call) error {
		if strings.Contains(c.Msg.Text, "CoolGamer99") {
			return errors.New("telegram: Bad Request: chat not found (400)")
		}
		return nil
	}
	onlySummary := func(t *testing.T, calls []sendertest.Call) {
		t.Helper()
		if len(calls) != 1 || !strings.Contains(calls[0].Msg.Text, "CoolGamer99") {
			t.Fatalf("calls = %+v", calls)
		}
	}

	inline := &sendertest.Recorder{Fail: rejectSummary}
	r := NewRouter(inline, NewRoute(admin, nil), Options{AdminChatID: admin})
	if err := r.NotifySubmission(ctx, sub); err == nil {
		t.Fatal("expected error")
	}
	onlySummary(t, inline.Calls())

	d := sender.NewDispatcher(sender.Options{QueueSize: 4})
	queued := &sendertest.Recorder{Fail: rejectSummary}
	async := NewRouter(queued, NewRoute(admin, nil), Options{AdminChatID: admin, Dispatcher: d})
	if err := async.NotifySubmission(ctx, sub); err != nil {
		t.Fatal(err)
	}
	d.Close()
	onlySummary(t, queued.Calls())
	if d.ErrorCount() != 1 {
		t.Fatalf("failed jobs = %d", d.ErrorCount())
	}
}

type failingStore struct{ *session.MemoryStore }

func (failingStore) SetReplyTarget(context.Context, int64, int64) error {
	return errors.New("disk full")
}

func TestRouteKeepsValueOnStoreFailure(t *testing.T) {
	mem := session.NewMemoryStore()
	_ = mem.SetReplyTarget(ctx, admin, 7)
	route := NewRoute(admin, mem)
	if got, _ := route.Target(ctx); got != 7 {
		t.Fatalf("loaded target = %d", got)
	}

	broken := NewRoute(admin, failingStore{MemoryStore: session.NewMemoryStore()})
	if err := broken.Set(ctx, 9); err == nil {
		t.Fatal("expected error")
	}
	if got, _ := broken.Target(ctx); got != 0 {
		t.Fatalf("target after failed write = %d", got)
	}
}
