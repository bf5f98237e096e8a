package telegram

import (
	"errors"
	"testing"

	coreconfig "github.com/m3rciful/menacebot/core/config"
	"github.com/m3rciful/menacebot/core/telegram/commands"

	tele "gopkg.in/telebot.v4"
)

func noop(tele.Context) error { return nil }

func TestRegistryCommands(t *testing.T) {
	reg := NewRegistry()
	reg.RegisterCommand("/start", commands.Command{Handler: noop, Description: "Menu principal"})
	reg.RegisterCommand("/done", commands.Command{Handler: noop, Description: "Terminer le fil", AdminOnly: true, Aliases: []string{"/fin"}})
	reg.RegisterCommand("info", commands.Command{Handler: noop, Description: "no slash"})
	reg.RegisterCommand("/fin", commands.Command{Handler: noop, Description: "dup alias"})

	if len(reg.Commands()) != 2 {
		t.Fatalf("commands = %v", reg.Commands())
	}
	key, cmd, ok := reg.LookupCommand("/fin@MenaceBot")
	if !ok || key != "/done" || !cmd.AdminOnly {
		t.Fatalf("lookup alias = %q %+v %v", key, cmd, ok)
	}
	visible := reg.ListCommands(true)
	if len(visible) != 1 || visible[0].Text != "/start" {
		t.Fatalf("visible = %+v", visible)
	}
}

func TestRegistryCallbacks(t *testing.T) {
	reg := NewRegistry()
	if err := reg.RegisterCallback("start_flow", noop); err != nil {
		t.Fatal(err)
	}
	if err := reg.RegisterCallback("start_flow", noop); err == nil {
		t.Fatal("duplicate callback accepted")
	}
	if _, ok := reg.GetCallback("start_flow"); !ok {
		t.Fatal("callback missing")
	}
	if got := reg.ListCallbacks(); len(got) != 1 {
		t.Fatalf("callbacks = %v", got)
	}
}

type fakeSetter struct {
	got []tele.Command
	err error
}

func (f *fakeSetter) SetCommands(opts ...interface{}) error {
	if len(opts) > 0 {
		f.got, _ = opts[0].([]tele.Command)
	}
	return f.err
}

func TestInitBotCommands(t *testing.T) {
	reg := NewRegistry()
	reg.RegisterCommand("/menu", commands.Command{Handler: noop, Description: "Menu"})
	reg.RegisterCommand("/pm", commands.Command{Handler: noop, Description: "DM", AdminOnly: true})
	s := &fakeSetter{}
	InitBotCommands(s, reg)
	if len(s.got) != 1 || s.got[0].Text != "/menu" {
		t.Fatalf("published = %+v", s.got)
	}
	InitBotCommands(&fakeSetter{err: errors.New("boom")}, reg)
}

func TestBuildPoller(t *testing.T) {
	p := BuildPoller(PollerOptions{RunMode: "webhook", Webhook: WebhookOptions{Listen: "0.0.0.0", Port: 8443, URL: "https://bot.example/hook"}})
	wh, ok := p.(*tele.Webhook)
	if !ok || wh.Listen != "0.0.0.0:8443" || wh.Endpoint.PublicURL != "https://bot.example/hook" {
		t.Fatalf("webhook poller = %+v", p)
	}
	lp, ok := BuildPoller(PollerOptions{}).(*tele.LongPoller)
	if !ok || lp.Timeout.Seconds() != 10 {
		t.Fatalf("long poller = %+v", lp)
	}
}

func TestDefaultMiddlewares(t *testing.T) {
	names := func(mws []Middleware) []string {
		var out []string
		for _, m := range mws {
			out = append(out, m.Name)
		}
		return out
	}
	base := names(DefaultMiddlewares(&coreconfig.Config{}, nil))
	if len(base) != 3 || base[0] != "recover" {
		t.Fatalf("base chain = %v", base)
	}
	limited := names(DefaultMiddlewares(&coreconfig.Config{RateLimit: coreconfig.RateLimitConfig{IntervalMS: 500}}, nil))
	if len(limited) != 4 || limited[1] != "rate_limit" {
		t.Fatalf("limited chain = %v", limited)
	}
}
