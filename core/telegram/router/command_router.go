package router

import (
	"log/slog"
	"time"

	"github.com/m3rciful/menacebot/core/logger"
	tg "github.com/m3rciful/menacebot/core/telegram"
	"github.com/m3rciful/menacebot/core/telegram/commands"
	"github.com/m3rciful/menacebot/core/telegram/middleware"

	tele "gopkg.in/telebot.v4"
)

// CommandRouteOptions configures how commands are wrapped and exposed.
type CommandRouteOptions struct {
	AdminChatID   int64
	OnAdminReject tele.HandlerFunc
}

// CommandRoutes prepares one route per command name and alias. Aliases go through
// the same admin check as the canonical name.
func CommandRoutes(reg *tg.Registry, opts CommandRouteOptions) []tg.Route {
	if reg == nil {
		return nil
	}

	adminOpts := middleware.AdminOptions{
		AdminChatID: opts.AdminChatID,
		OnReject:    opts.OnAdminReject,
	}

	var routes []tg.Route
	for name, def := range reg.Commands() {
		h := wrapCommand(name, def, adminOpts)
		routes = append(routes, tg.Route{Endpoint: name, Handler: h})
		for _, alias := range def.Aliases {
			if alias == "" {
				continue
			}
			if alias[0] != '/' {
				alias = "/" + alias
			}
			routes = append(routes, tg.Route{Endpoint: alias, Handler: h})
		}
	}

	logger.TWire.Info("tg.wire",
		slog.String("event", "complete"),
		slog.Int("commands", len(reg.Commands())),
		slog.Int("routes", len(routes)),
		slog.Int("callbacks", len(reg.ListCallbacks())),
	)

	return routes
}

func wrapCommand(name string, def commands.Command, adminOpts middleware.AdminOptions) tele.HandlerFunc {
	h := def.Handler
	if def.AdminOnly {
		h = middleware.RequireAdmin(adminOpts, h)
	}
	handlerName := "cmd." + normalizeHandlerName(name)
	return func(c tele.Context) error {
		return handleWithSummary(c, handlerName, time.Now(), "", "", func() error {
			return h(c)
		})
	}
}
