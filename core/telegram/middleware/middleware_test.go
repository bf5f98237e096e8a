package middleware

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/m3rciful/menacebot/core/telegram/helpers"
	"github.com/m3rciful/menacebot/core/telegram/sender"
	"github.com/m3rciful/menacebot/core/telegram/teletest"

	tele "gopkg.in/telebot.v4"
)

func counting(n *int) tele.HandlerFunc {
	return func(tele.Context) error {
		*n++
		return nil
	}
}

func TestRateLimitPerUser(t *testing.T) {
	limited := 0
	mw := RateLimitMiddleware(RateLimitOptions{
		Interval:  time.Hour,
		Burst:     1,
		OnLimited: counting(&limited),
	})
	calls := 0
	h := mw(counting(&calls))

	_ = h(teletest.Text(1, 1, "a"))
	_ = h(teletest.Text(1, 1, "b"))
	_ = h(teletest.Text(2, 2, "c"))

	if calls != 2 || limited != 1 {
		t.Fatalf("calls=%d limited=%d", calls, limited)
	}
}

func TestRateLimitExclusions(t *testing.T) {
	mw := RateLimitMiddleware(RateLimitOptions{
		Interval: time.Hour,
		Exclude:  map[string]struct{}{"callback": {}},
	})
	calls := 0
	h := mw(counting(&calls))
	for i := 0; i < 3; i++ {
		_ = h(teletest.Callback(1, 1, "\fstart_flow"))
	}
	if calls != 3 {
		t.Fatalf("excluded callbacks limited: %d", calls)
	}
}

func TestRequireAdmin(t *testing.T) {
	rejected, ran := 0, 0
	h := RequireAdmin(AdminOptions{AdminChatID: 999, OnReject: counting(&rejected)}, counting(&ran))

	_ = h(teletest.Text(999, 1, "/pm 1 hi"))
	_ = h(teletest.Text(5, 5, "/pm 1 hi"))
	if ran != 1 || rejected != 1 {
		t.Fatalf("ran=%d rejected=%d", ran, rejected)
	}

	none := RequireAdmin(AdminOptions{}, counting(&ran))
	_ = none(teletest.Text(999, 1, "/pm"))
	if ran != 1 {
		t.Fatal("no admin configured must reject everyone")
	}
}

type fixedStates map[int64]string

func (f fixedStates) StateName(_ context.Context, userID int64) string { return f[userID] }

func TestStateGate(t *testing.T) {
	mgr := fixedStates{1: "choosing_offer", 2: "idle"}
	calls := 0
	h := State(mgr, "choosing_offer", "asking_has_account")(counting(&calls))

	_ = h(teletest.Callback(1, 1, "\foffer_pro"))
	_ = h(teletest.Callback(2, 2, "\foffer_pro"))
	if calls != 1 {
		t.Fatalf("calls = %d", calls)
	}
}

func TestRecoverMiddleware(t *testing.T) {
	h := RecoverMiddleware(func(tele.Context) error { panic("boom") })
	if err := h(teletest.Text(1, 1, "x")); err != nil {
		t.Fatalf("recovered panic must not surface: %v", err)
	}
	plain := errors.New("plain")
	h = RecoverMiddleware(func(tele.Context) error { return plain })
	if err := h(teletest.Text(1, 1, "x")); !errors.Is(err, plain) {
		t.Fatalf("err = %v", err)
	}
}

func TestMetricsTally(t *testing.T) {
	c := teletest.Text(1, 1, "hi")
	h := LoggerMiddleware(MessageMetricsMiddleware(func(c tele.Context) error {
		tally := sender.TallyFrom(helpers.BuildContext(c))
		if tally == nil {
			t.Fatal("tally missing from context")
		}
		tally.Add(false)
		tally.Add(true)
		return nil
	}))
	if err := h(c); err != nil {
		t.Fatal(err)
	}
	if n, kb := GetCounters(c); n != 2 || !kb {
		t.Fatalf("counters = %d, %v", n, kb)
	}
}
