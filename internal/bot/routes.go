package bot

import (
	"fmt"

	tg "github.com/m3rciful/menacebot/core/telegram"
	"github.com/m3rciful/menacebot/core/telegram/commands"
	"github.com/m3rciful/menacebot/core/telegram/middleware"
	"github.com/m3rciful/menacebot/core/telegram/router"
	"github.com/m3rciful/menacebot/core/telegram/state"
	"github.com/m3rciful/menacebot/internal/funnel"
	"github.com/m3rciful/menacebot/internal/relay"
	"github.com/m3rciful/menacebot/internal/session"

	tele "gopkg.in/telebot.v4"
)

// Routes registers commands and callbacks in reg, binds the pseudo capture to
// mgr and returns the telebot routes.
func Routes(h *Handlers, reg *tg.Registry, mgr *state.Manager, adminChatID int64) []tg.Route {
	reg.RegisterCommand("/start", commands.Command{Handler: h.Menu, Description: "Afficher le menu principal"})
	reg.RegisterCommand("/menu", commands.Command{Handler: h.Menu, Description: "Revenir au menu"})
	reg.RegisterCommand("/info", commands.Command{Handler: h.Info, Description: "Voir mes informations"})
	reg.RegisterCommand("/cancel", commands.Command{Handler: h.Menu, Description: "Annuler et revenir au menu"})
	reg.RegisterCommand("/pm", commands.Command{Handler: h.DirectSend, Description: "Écrire à un utilisateur", AdminOnly: true})
	reg.RegisterCommand("/done", commands.Command{Handler: h.Done, Description: "Terminer le fil actif", AdminOnly: true, Aliases: []string{"/fin"}})
	reg.RegisterCommand("/resolve", commands.Command{Handler: h.Resolve, Description: "Clore une demande", AdminOnly: true})

	choosing := middleware.State(mgr, string(session.StateChoosingOffer))
	asking := middleware.State(mgr, string(session.StateAskingHasAccount))
	adminOnly := middleware.AdminOnlyMiddleware(middleware.AdminOptions{
		AdminChatID: adminChatID,
		OnReject:    h.RejectButton,
	})

	cbs := map[string]tele.HandlerFunc{
		funnel.KeyStartFlow:     h.StartFlow,
		funnel.KeyOfferBeginner: choosing(h.offer(session.OfferBeginner)),
		funnel.KeyOfferPro:      choosing(h.offer(session.OfferPro)),
		funnel.KeyHasAccountYes: asking(h.hasAccount(true)),
		funnel.KeyHasAccountNo:  asking(h.hasAccount(false)),
		funnel.KeyResumeFlow:    asking(h.Resume),
		funnel.KeyBackToMenu:    h.Menu,
		funnel.KeyOpenMenu:      h.Menu,
		funnel.KeyEditInfo:      h.EditInfo,
		relay.KeyReplyTo:        adminOnly(h.ReplyTo),
		relay.KeyEndReply:       adminOnly(h.EndReply),
	}
	for key, fn := range cbs {
		if err := reg.RegisterCallback(key, fn); err != nil {
			panic(fmt.Sprintf("bot: register callback %q: %v", key, err))
		}
	}

	mgr.Handle(state.State(session.StateAskingPseudo), h.CapturePseudo)

	routes := router.CommandRoutes(reg, router.CommandRouteOptions{AdminChatID: adminChatID})
	routes = append(routes, router.CallbackRoute(reg, router.CallbackOptions{}))
	routes = append(routes, router.MessageRoutes(mgr, router.MessageOptions{Inbound: h.Inbound})...)
	return routes
}
