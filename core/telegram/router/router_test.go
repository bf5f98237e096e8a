package router

import (
	"context"
	"testing"

	tg "github.com/m3rciful/menacebot/core/telegram"
	"github.com/m3rciful/menacebot/core/telegram/callbacks"
	"github.com/m3rciful/menacebot/core/telegram/commands"
	"github.com/m3rciful/menacebot/core/telegram/teletest"

	tele "gopkg.in/telebot.v4"
)

const adminChat = 999

func routeFor(routes []tg.Route, endpoint string) tele.HandlerFunc {
	for _, r := range routes {
		if r.Endpoint == endpoint {
			return r.Handler
		}
	}
	return nil
}

func TestCommandAliasesKeepAdminCheck(t *testing.T) {
	reg := tg.NewRegistry()
	ran := 0
	reg.RegisterCommand("/done", commands.Command{
		Handler:     func(tele.Context) error { ran++; return nil },
		Description: "end thread",
		AdminOnly:   true,
		Aliases:     []string{"/fin"},
	})
	routes := CommandRoutes(reg, CommandRouteOptions{AdminChatID: adminChat})

	fin := routeFor(routes, "/fin")
	if fin == nil {
		t.Fatal("alias route missing")
	}
	_ = fin(teletest.Text(42, 42, "/fin"))
	if ran != 0 {
		t.Fatal("alias bypassed admin check")
	}
	_ = fin(teletest.Text(adminChat, 1, "/fin"))
	_ = routeFor(routes, "/done")(teletest.Text(adminChat, 1, "/done"))
	if ran != 2 {
		t.Fatalf("ran = %d", ran)
	}
}

func TestCallbackAnsweredOnce(t *testing.T) {
	reg := tg.NewRegistry()
	_ = reg.RegisterCallback("end_reply", func(c tele.Context) error {
		return callbacks.Alert(c, "Action réservée à l’admin.")
	})
	_ = reg.RegisterCallback("start_flow", func(tele.Context) error { return nil })
	h := CallbackRoute(reg, CallbackOptions{}).Handler

	alerted := teletest.Callback(1, 1, "\fend_reply")
	_ = h(alerted)
	if len(alerted.Responses) != 1 || !alerted.Responses[0].ShowAlert {
		t.Fatalf("alert responses = %+v", alerted.Responses)
	}

	plain := teletest.Callback(1, 1, "\fstart_flow")
	_ = h(plain)
	if len(plain.Responses) != 1 || plain.Responses[0].ShowAlert {
		t.Fatalf("plain responses = %+v", plain.Responses)
	}

	unknown := teletest.Callback(1, 1, "\fnope")
	_ = h(unknown)
	if len(unknown.Responses) != 1 {
		t.Fatalf("unknown responses = %+v", unknown.Responses)
	}
}

func TestCallbackPayloadReachesHandler(t *testing.T) {
	reg := tg.NewRegistry()
	var got int64
	_ = reg.RegisterCallback("reply_to", func(c tele.Context) error {
		got, _ = callbacks.PayloadInt64(c)
		return nil
	})
	_ = CallbackRoute(reg, CallbackOptions{}).Handler(teletest.Callback(adminChat, 1, "\freply_to|555"))
	if got != 555 {
		t.Fatalf("payload = %d", got)
	}
}

type fakeFSM struct {
	active map[int64]bool
	runs   int
}

func (f *fakeFSM) InProgress(_ context.Context, userID int64) bool { return f.active[userID] }

func (f *fakeFSM) ManagerHandler(tele.Context) error {
	f.runs++
	return nil
}

func TestMessageRoutes(t *testing.T) {
	fsm := &fakeFSM{active: map[int64]bool{7: true}}
	inbound := 0
	routes := MessageRoutes(fsm, MessageOptions{Inbound: func(tele.Context) error { inbound++; return nil }})
	text := routeFor(routes, tele.OnText)
	media := routeFor(routes, tele.OnMedia)

	_ = text(teletest.Text(7, 7, "/unknown"))
	if fsm.runs != 0 || inbound != 0 {
		t.Fatal("unknown command must be dropped")
	}

	_ = text(teletest.Text(7, 7, "CoolGamer99"))
	if fsm.runs != 1 || inbound != 1 {
		t.Fatalf("fsm=%d inbound=%d", fsm.runs, inbound)
	}

	_ = text(teletest.Text(8, 8, "hello"))
	if fsm.runs != 1 || inbound != 2 {
		t.Fatalf("idle user: fsm=%d inbound=%d", fsm.runs, inbound)
	}

	_ = media(teletest.Photo(8, 8, "look"))
	if inbound != 3 {
		t.Fatalf("media inbound = %d", inbound)
	}
}
