package bot

import (
	"errors"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/m3rciful/menacebot/core/logger"
	"github.com/m3rciful/menacebot/core/telegram/callbacks"
	"github.com/m3rciful/menacebot/core/telegram/commands"
	"github.com/m3rciful/menacebot/core/telegram/format"
	tghelpers "github.com/m3rciful/menacebot/core/telegram/helpers"
	"github.com/m3rciful/menacebot/core/telegram/sender"
	"github.com/m3rciful/menacebot/core/telegram/state"
	"github.com/m3rciful/menacebot/internal/funnel"
	"github.com/m3rciful/menacebot/internal/notify"
	"github.com/m3rciful/menacebot/internal/relay"
	"github.com/m3rciful/menacebot/internal/session"

	tele "gopkg.in/telebot.v4"
)

// Handlers adapts telebot updates to the funnel and the relay.
type Handlers struct {
	funnel *funnel.Machine
	relay  *relay.Router
	out    sender.Messenger
}

// NewHandlers builds Handlers.
func NewHandlers(m *funnel.Machine, r *relay.Router, out sender.Messenger) *Handlers {
	return &Handlers{funnel: m, relay: r, out: out}
}

func userOf(c tele.Context) funnel.User {
	var u funnel.User
	if s := c.Sender(); s != nil {
		u.ID, u.FirstName, u.Username = s.ID, s.FirstName, s.Username
	}
	if ch := c.Chat(); ch != nil {
		u.ChatID = ch.ID
	}
	if u.ChatID == 0 {
		u.ChatID = u.ID
	}
	return u
}

// promptOf addresses the message carrying the pressed button.
func promptOf(c tele.Context) sender.Ref {
	cb := c.Callback()
	if cb == nil || cb.Message == nil || cb.Message.Chat == nil {
		return sender.Ref{}
	}
	return sender.Ref{ChatID: cb.Message.Chat.ID, MessageID: cb.Message.ID}
}

func sourceOf(c tele.Context) sender.Ref {
	m := c.Message()
	if m == nil || m.Chat == nil {
		return sender.Ref{}
	}
	return sender.Ref{ChatID: m.Chat.ID, MessageID: m.ID}
}

func messageID(c tele.Context) int {
	if m := c.Message(); m != nil {
		return m.ID
	}
	return 0
}

// Menu shows the main menu. It also serves /start and /cancel.
func (h *Handlers) Menu(c tele.Context) error {
	return h.funnel.ShowMenu(tghelpers.BuildContext(c), userOf(c))
}

// Info answers /info with the stored offer and pseudo.
func (h *Handlers) Info(c tele.Context) error {
	return h.funnel.Info(tghelpers.BuildContext(c), userOf(c))
}

// StartFlow sends the welcome message and the offer choice.
func (h *Handlers) StartFlow(c tele.Context) error {
	return h.funnel.EnterFlow(tghelpers.BuildContext(c), userOf(c))
}

func (h *Handlers) offer(o session.Offer) tele.HandlerFunc {
	return func(c tele.Context) error {
		return h.funnel.ChooseOffer(tghelpers.BuildContext(c), userOf(c), promptOf(c), o)
	}
}

func (h *Handlers) hasAccount(yes bool) tele.HandlerFunc {
	return func(c tele.Context) error {
		return h.funnel.AnswerHasAccount(tghelpers.BuildContext(c), userOf(c), promptOf(c), yes)
	}
}

// Resume asks again whether the user already has an account.
func (h *Handlers) Resume(c tele.Context) error {
	return h.funnel.Resume(tghelpers.BuildContext(c), userOf(c), promptOf(c))
}

// EditInfo lets a user with a submitted request change their pseudo.
func (h *Handlers) EditInfo(c tele.Context) error {
	return h.funnel.EditInfo(tghelpers.BuildContext(c), userOf(c), promptOf(c))
}

// CapturePseudo runs for text while the pseudo is expected.
func (h *Handlers) CapturePseudo(c tele.Context) error {
	return h.funnel.CapturePseudo(tghelpers.BuildContext(c), userOf(c), messageID(c), c.Text())
}

// Inbound relays any non-command message: user messages go to the admin, admin
// messages go to the active target unless the conversation consumed them.
func (h *Handlers) Inbound(c tele.Context) error {
	ctx := tghelpers.BuildContext(c)
	src := sourceOf(c)
	if src.IsZero() {
		return nil
	}

	if h.relay.IsAdmin(src.ChatID) {
		if state.Handled(c) {
			return nil
		}
		err := h.relay.Forward(ctx, src)
		if errors.Is(err, relay.ErrNoTarget) {
			logger.Debug(ctx, logger.CompRelay, "relay.forward",
				slog.String("status", "skip"),
				slog.String("outcome", "no_target"),
			)
			return nil
		}
		return err
	}

	u := userOf(c)
	err := h.relay.Mirror(ctx, notify.Sender{
		UserID:    u.ID,
		ChatID:    u.ChatID,
		FirstName: u.FirstName,
		Username:  u.Username,
	}, src)
	if errors.Is(err, relay.ErrDisabled) {
		return nil
	}
	return err
}

// ReplyTo makes the user named in the button payload the active target.
func (h *Handlers) ReplyTo(c tele.Context) error {
	target, err := callbacks.PayloadInt64(c)
	if err != nil {
		target = 0
	}
	err = h.relay.SelectTarget(tghelpers.BuildContext(c), promptOf(c), target)
	if errors.Is(err, relay.ErrInvalidUserID) {
		return nil
	}
	return err
}

// EndReply closes the active thread from the card button.
func (h *Handlers) EndReply(c tele.Context) error {
	return h.relay.EndThreadButton(tghelpers.BuildContext(c), promptOf(c))
}

// RejectButton answers non-admins pressing admin buttons.
func (h *Handlers) RejectButton(c tele.Context) error {
	if c.Callback() == nil {
		return nil
	}
	return callbacks.Alert(c, relay.RejectText)
}

// DirectSend handles /pm <user_id> <text>. Usage errors are answered by the
// relay and not reported again.
func (h *Handlers) DirectSend(c tele.Context) error {
	_, args := commands.Parse(c.Text())
	err := h.relay.DirectSend(tghelpers.BuildContext(c), args, messageID(c))
	if errors.Is(err, relay.ErrUsage) || errors.Is(err, relay.ErrInvalidUserID) {
		return nil
	}
	return err
}

// Done handles /done and /fin.
func (h *Handlers) Done(c tele.Context) error {
	return h.relay.EndThread(tghelpers.BuildContext(c), messageID(c))
}

const resolveUsage = "Usage: /resolve <user_id>"

// Resolve closes the pending request of a user so they can submit again.
func (h *Handlers) Resolve(c tele.Context) error {
	ctx := tghelpers.BuildContext(c)
	_, args := commands.Parse(c.Text())
	reply := sender.Message{ReplyTo: messageID(c)}

	uid, err := strconv.ParseInt(args, 10, 64)
	switch {
	case args == "":
		reply.Text = resolveUsage
	case err != nil:
		reply.Text = "User ID invalide."
	default:
		_, err := h.funnel.Resolve(ctx, uid)
		switch {
		case errors.Is(err, funnel.ErrNotPending):
			reply.Text = "Aucune demande en cours pour " + format.CodeInt(uid) + "."
		case err != nil:
			return fmt.Errorf("resolve %d: %w", uid, err)
		default:
			reply.Text = "✅ Demande de " + format.CodeInt(uid) + " marquée comme traitée."
		}
		reply.HTML = true
	}

	if _, err := h.out.Send(ctx, c.Chat().ID, reply); err != nil {
		logger.Warn(ctx, logger.CompRelay, "relay.resolve",
			slog.String("status", "fail"),
			slog.String("error_kind", sender.Classify(err)),
		)
	}
	return nil
}
