// Package relay bridges users and the single admin: user messages are mirrored
// to the admin and admin messages are copied to the active reply target.
package relay

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"unicode"

	"github.com/m3rciful/menacebot/core/logger"
	"github.com/m3rciful/menacebot/core/telegram/format"
	"github.com/m3rciful/menacebot/core/telegram/keyboard"
	"github.com/m3rciful/menacebot/core/telegram/sender"
	"github.com/m3rciful/menacebot/internal/notify"

	tele "gopkg.in/telebot.v4"
)

// Callback keys of the admin control cards.
const (
	KeyReplyTo  = "reply_to"
	KeyEndReply = "end_reply"
)

var (
	// ErrNoTarget means an admin message was dropped because no target is active.
	ErrNoTarget = errors.New("relay: no active target")
	// ErrUsage reports a direct send without id or text.
	ErrUsage = errors.New("relay: usage")
	// ErrInvalidUserID reports a non-numeric user id.
	ErrInvalidUserID = errors.New("relay: invalid user id")
	// ErrDisabled means no admin chat is configured.
	ErrDisabled = errors.New("relay: admin chat not configured")
)

const (
	usageText         = "Usage: /pm <user_id> <message>"
	invalidUserText   = "User ID invalide."
	invalidTargetText = "ID utilisateur invalide."
	threadEndedText   = "⛔ Fil terminé. Cliquez de nouveau sur 🗨️ Répondre pour choisir une cible, ou utilisez /pm."
	noThreadText      = "Aucun fil actif. Cliquez sur 🗨️ Répondre sous un message utilisateur, ou utilisez /pm."
	threadEndedShort  = "⛔ Fil terminé."
	// RejectText answers non-admins pressing admin buttons.
	RejectText = "Action réservée à l’admin."
)

// Options configures a Router.
type Options struct {
	AdminChatID int64
	// Dispatcher sends submission cards off the update path when set.
	Dispatcher *sender.Dispatcher
}

// Router implements the relay. Handlers call it one update at a time.
type Router struct {
	admin      int64
	route      *Route
	out        sender.Messenger
	dispatcher *sender.Dispatcher
}

// NewRouter builds a Router over route.
func NewRouter(out sender.Messenger, route *Route, opts Options) *Router {
	return &Router{
		admin:      opts.AdminChatID,
		route:      route,
		out:        out,
		dispatcher: opts.Dispatcher,
	}
}

// Enabled reports whether an admin chat is configured.
func (r *Router) Enabled() bool { return r.admin != 0 }

// IsAdmin reports whether chatID is the admin chat.
func (r *Router) IsAdmin(chatID int64) bool { return r.admin != 0 && chatID == r.admin }

// Target returns the active reply target or 0.
func (r *Router) Target(ctx context.Context) (int64, error) { return r.route.Target(ctx) }

func replyMarkup(userID int64) *tele.ReplyMarkup {
	return keyboard.InlineButtons(keyboard.Callback("🗨️ Répondre", KeyReplyTo, strconv.FormatInt(userID, 10)))
}

// Mirror copies a user message to the admin, adds a reply card and makes the
// author the active target. Messages from the admin chat are never mirrored.
func (r *Router) Mirror(ctx context.Context, from notify.Sender, src sender.Ref) error {
	if !r.Enabled() {
		return ErrDisabled
	}
	if r.IsAdmin(src.ChatID) {
		return nil
	}
	if _, err := r.out.Copy(ctx, r.admin, src, true); err != nil {
		r.logFailure(ctx, "relay.mirror", err)
		return nil
	}
	r.send(ctx, "relay.mirror.card", r.admin, sender.Message{
		Text:      notify.InboundText(from),
		HTML:      true,
		NoPreview: true,
		Markup:    replyMarkup(from.UserID),
	})
	if err := r.route.Set(ctx, from.UserID); err != nil {
		return fmt.Errorf("relay: mirror: %w", err)
	}
	logger.Info(ctx, logger.CompRelay, "relay.target",
		slog.String("status", "ok"),
		slog.String("outcome", "auto"),
		slog.Int64("target_id", from.UserID),
	)
	return nil
}

// SelectTarget handles the "Répondre" button on card. A target that is not a
// positive user id is rejected on the card.
func (r *Router) SelectTarget(ctx context.Context, card sender.Ref, target int64) error {
	if target <= 0 {
		r.edit(ctx, "relay.select", card, sender.Message{Text: invalidTargetText})
		return ErrInvalidUserID
	}
	if err := r.route.Set(ctx, target); err != nil {
		return fmt.Errorf("relay: select: %w", err)
	}
	logger.Info(ctx, logger.CompRelay, "relay.target",
		slog.String("status", "ok"),
		slog.String("outcome", "explicit"),
		slog.Int64("target_id", target),
	)

	r.send(ctx, "relay.select.active", r.admin, sender.Message{
		Text:   "🧵 Réponse active à " + format.CodeInt(target) + ". Envoyez vos messages. Tapez /done pour terminer.",
		HTML:   true,
		Markup: keyboard.InlineButtons(keyboard.Callback("⛔ Terminer", KeyEndReply)),
	})
	r.edit(ctx, "relay.select", card, sender.Message{
		Text: "🗨️ Répondre à " + format.CodeInt(target) + " : envoie maintenant ton message (texte, photo, doc…).",
		HTML: true,
	})
	return nil
}

// Forward copies an admin message to the active target and acknowledges it.
func (r *Router) Forward(ctx context.Context, src sender.Ref) error {
	target, err := r.route.Target(ctx)
	if err != nil {
		return fmt.Errorf("relay: forward: %w", err)
	}
	if target == 0 {
		return ErrNoTarget
	}

	ack := sender.Message{ReplyTo: src.MessageID}
	if _, err := r.out.Copy(ctx, target, src, true); err != nil {
		r.logFailure(ctx, "relay.forward", err)
		ack.Text = "❌ Échec de la transmission: " + sender.Sanitize(err)
	} else {
		ack.Text = "✅ Message transmis à " + format.CodeInt(target) + "."
		ack.HTML = true
	}
	r.send(ctx, "relay.forward.ack", r.admin, ack)
	return nil
}

// DirectSend implements "/pm <user_id> <message>". It never touches the target.
func (r *Router) DirectSend(ctx context.Context, args string, replyTo int) error {
	idText, text := splitFirst(args)
	if idText == "" || text == "" {
		r.send(ctx, "relay.pm.usage", r.admin, sender.Message{Text: usageText, ReplyTo: replyTo})
		return ErrUsage
	}
	uid, err := strconv.ParseInt(idText, 10, 64)
	if err != nil {
		r.send(ctx, "relay.pm.invalid", r.admin, sender.Message{Text: invalidUserText, ReplyTo: replyTo})
		return ErrInvalidUserID
	}

	ack := sender.Message{ReplyTo: replyTo}
	if _, err := r.out.Send(ctx, uid, sender.Message{Text: text, Protect: true}); err != nil {
		r.logFailure(ctx, "relay.pm", err)
		ack.Text = "❌ Échec de l’envoi: " + sender.Sanitize(err)
	} else {
		ack.Text = fmt.Sprintf("✅ Message envoyé à %d.", uid)
	}
	r.send(ctx, "relay.pm.ack", r.admin, ack)
	return nil
}

// EndThread implements /done and /fin.
func (r *Router) EndThread(ctx context.Context, replyTo int) error {
	prev, err := r.route.Clear(ctx)
	if err != nil {
		return fmt.Errorf("relay: end thread: %w", err)
	}
	text := threadEndedText
	if prev == 0 {
		text = noThreadText
	}
	r.send(ctx, "relay.done", r.admin, sender.Message{Text: text, ReplyTo: replyTo})
	return nil
}

// EndThreadButton implements the "Terminer" button on card.
func (r *Router) EndThreadButton(ctx context.Context, card sender.Ref) error {
	if _, err := r.route.Clear(ctx); err != nil {
		return fmt.Errorf("relay: end thread: %w", err)
	}
	r.edit(ctx, "relay.done", card, sender.Message{Text: threadEndedShort})
	return nil
}

// NotifySubmission sends the submission summary and its reply card to the admin.
func (r *Router) NotifySubmission(ctx context.Context, s notify.Submission) error {
	if !r.Enabled() {
		return nil
	}
	msgs := []sender.Message{
		{Text: notify.SubmissionText(s), HTML: true, NoPreview: true},
		{Text: notify.ReplyPrompt, Markup: replyMarkup(s.UserID)},
	}
	if r.dispatcher == nil {
		_, err := r.sendAll(ctx, msgs)
		return err
	}

	// One job keeps the summary and its card together; a retry resumes at
	// the first message not yet delivered.
	jobCtx := context.WithoutCancel(ctx)
	return r.dispatcher.Enqueue(jobCtx, "relay.submission", "sendMessage", func() error {
		var err error
		msgs, err = r.sendAll(jobCtx, msgs)
		return err
	})
}

// sendAll delivers msgs in order and stops at the first failure. It returns
// the messages left unsent.
func (r *Router) sendAll(ctx context.Context, msgs []sender.Message) ([]sender.Message, error) {
	for len(msgs) > 0 {
		if _, err := r.out.Send(ctx, r.admin, msgs[0]); err != nil {
			return msgs, err
		}
		msgs = msgs[1:]
	}
	return nil, nil
}

func (r *Router) send(ctx context.Context, step string, chatID int64, m sender.Message) {
	if _, err := r.out.Send(ctx, chatID, m); err != nil {
		r.logFailure(ctx, step, err)
	}
}

func (r *Router) edit(ctx context.Context, step string, ref sender.Ref, m sender.Message) {
	if ref.IsZero() {
		r.send(ctx, step, r.admin, m)
		return
	}
	if err := r.out.Edit(ctx, ref, m); err != nil {
		r.logFailure(ctx, step, err)
	}
}

func (r *Router) logFailure(ctx context.Context, step string, err error) {
	logger.Warn(ctx, logger.CompRelay, step,
		slog.String("status", "fail"),
		slog.String("error_kind", sender.Classify(err)),
	)
}

// splitFirst splits s into its first word and the trimmed rest.
func splitFirst(s string) (string, string) {
	s = strings.TrimSpace(s)
	i := strings.IndexFunc(s, unicode.IsSpace)
	if i < 0 {
		return s, ""
	}
	return s[:i], strings.TrimSpace(s[i:])
}
