// Package funnel drives a user through offer selection, the account check and
// pseudo capture. The conversation position is persisted with the session.
package funnel

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/m3rciful/menacebot/core/logger"
	"github.com/m3rciful/menacebot/core/telegram/format"
	"github.com/m3rciful/menacebot/core/telegram/sender"
	"github.com/m3rciful/menacebot/core/telegram/state"
	"github.com/m3rciful/menacebot/internal/notify"
	"github.com/m3rciful/menacebot/internal/session"

	tele "gopkg.in/telebot.v4"
)

// DefaultCooldown suppresses repeated entries into the flow.
const DefaultCooldown = 8 * time.Second

// ErrNotPending is returned by Resolve when the user has no open request.
var ErrNotPending = errors.New("funnel: no pending request")

// Notifier receives completed submissions.
type Notifier interface {
	NotifySubmission(ctx context.Context, s notify.Submission) error
}

// User identifies who triggered an update and where to answer.
type User struct {
	ID        int64
	ChatID    int64
	FirstName string
	Username  string
}

// Options configures links, the banner and timing.
type Options struct {
	AffiliateURL  string
	MiniAppURL    string
	AdvantagesURL string
	// BannerPath wins over BannerURL when the file exists.
	BannerPath string
	BannerURL  string

	Cooldown time.Duration
	Now      func() time.Time
	NewRef   func() string
}

// Machine implements the conversation transitions. Each operation persists the
// new position before sending; a failed send does not undo it.
type Machine struct {
	store    session.Store
	out      sender.Messenger
	notifier Notifier
	opts     Options
}

// New builds a Machine. notifier may be nil when no admin is configured.
func New(store session.Store, out sender.Messenger, notifier Notifier, opts Options) *Machine {
	if opts.Cooldown <= 0 {
		opts.Cooldown = DefaultCooldown
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.NewRef == nil {
		opts.NewRef = func() string { return uuid.NewString() }
	}
	return &Machine{store: store, out: out, notifier: notifier, opts: opts}
}

// Position implements state.Positions.
func (m *Machine) Position(ctx context.Context, userID int64) (state.State, error) {
	s, err := m.store.Load(ctx, userID)
	if err != nil {
		return state.StateIdle, err
	}
	return state.State(s.State), nil
}

// ShowMenu moves the user to Idle and sends the main menu.
func (m *Machine) ShowMenu(ctx context.Context, u User) error {
	if _, err := m.update(ctx, u, func(s *session.Session) error {
		s.State = session.StateIdle
		return nil
	}); err != nil {
		return err
	}

	kb := m.menuKeyboard()
	if photo := m.banner(); photo != nil {
		if _, err := m.out.Send(ctx, u.ChatID, sender.Message{Photo: photo, Markup: kb}); err == nil {
			return nil
		}
	}
	m.send(ctx, "menu", u.ChatID, sender.Message{Text: menuText, HTML: true, Markup: kb})
	return nil
}

// EnterFlow shows the offer choice. A repeat within the cooldown only moves the
// position and sends nothing.
func (m *Machine) EnterFlow(ctx context.Context, u User) error {
	now := m.opts.Now()
	suppressed := false
	if _, err := m.update(ctx, u, func(s *session.Session) error {
		s.State = session.StateChoosingOffer
		if s.LastWelcomeAt != nil && now.Sub(*s.LastWelcomeAt) < m.opts.Cooldown {
			suppressed = true
			return nil
		}
		// Rounded up to the millisecond the store keeps, so a reload never
		// shortens the window.
		t := now.UTC().Truncate(time.Millisecond)
		if t.Before(now) {
			t = t.Add(time.Millisecond)
		}
		s.LastWelcomeAt = &t
		return nil
	}); err != nil {
		return err
	}
	if suppressed {
		logger.Debug(ctx, logger.CompFunnel, "funnel.enter",
			slog.String("status", "skip"),
			slog.String("outcome", "cooldown"),
		)
		return nil
	}

	name := u.FirstName
	if strings.TrimSpace(name) == "" {
		name = defaultName
	}
	m.send(ctx, "welcome", u.ChatID, sender.Message{
		Text:      fmt.Sprintf(welcomeText, format.EscapeHTML(name)),
		HTML:      true,
		NoPreview: true,
		Markup:    offersKeyboard(),
	})
	return nil
}

// ChooseOffer records the offer and forgets earlier progress.
func (m *Machine) ChooseOffer(ctx context.Context, u User, prompt sender.Ref, offer session.Offer) error {
	if offer != session.OfferBeginner && offer != session.OfferPro {
		return fmt.Errorf("funnel: invalid offer %q", offer)
	}
	if _, err := m.update(ctx, u, func(s *session.Session) error {
		s.ResetProgress()
		s.Offer = offer
		if offer == session.OfferBeginner {
			s.State = session.StateAskingPseudo
		} else {
			s.State = session.StateAskingHasAccount
		}
		return nil
	}); err != nil {
		return err
	}

	if offer == session.OfferBeginner {
		m.replace(ctx, "offer.beginner", u, prompt, sender.Message{Text: beginnerText, HTML: true, NoPreview: true})
		return nil
	}
	m.replace(ctx, "offer.pro", u, prompt, sender.Message{
		Text:      proAskAccountText,
		HTML:      true,
		NoPreview: true,
		Markup:    hasAccountKeyboard(),
	})
	return nil
}

// AnswerHasAccount asks for the pseudo on yes, and shows the signup link on no.
func (m *Machine) AnswerHasAccount(ctx context.Context, u User, prompt sender.Ref, yes bool) error {
	next := session.StateAskingHasAccount
	if yes {
		next = session.StateAskingPseudo
	}
	if _, err := m.update(ctx, u, func(s *session.Session) error {
		s.State = next
		return nil
	}); err != nil {
		return err
	}

	if yes {
		m.replace(ctx, "account.yes", u, prompt, sender.Message{Text: askPseudoText, HTML: true})
		return nil
	}
	m.replace(ctx, "account.no", u, prompt, sender.Message{
		Text:   fmt.Sprintf(affiliateText, format.Link(m.opts.AffiliateURL, affiliateLabel)),
		HTML:   true,
		Markup: m.noAccountKeyboard(),
	})
	return nil
}

// Resume shows the account question again.
func (m *Machine) Resume(ctx context.Context, u User, prompt sender.Ref) error {
	if _, err := m.update(ctx, u, func(s *session.Session) error {
		s.State = session.StateAskingHasAccount
		return nil
	}); err != nil {
		return err
	}
	m.replace(ctx, "resume", u, prompt, sender.Message{Text: proAskAccountText, HTML: true, Markup: hasAccountKeyboard()})
	return nil
}

// EditInfo enters edit mode and asks for a new pseudo. The offer is kept.
func (m *Machine) EditInfo(ctx context.Context, u User, prompt sender.Ref) error {
	if _, err := m.update(ctx, u, func(s *session.Session) error {
		s.EditMode = true
		s.State = session.StateAskingPseudo
		return nil
	}); err != nil {
		return err
	}
	m.replace(ctx, "edit", u, prompt, sender.Message{Text: editReminderText, HTML: true})
	return nil
}

// CapturePseudo handles free text while the pseudo is expected.
func (m *Machine) CapturePseudo(ctx context.Context, u User, messageID int, text string) error {
	pseudo := strings.TrimSpace(text)
	var (
		reply  sender.Message
		sub    *notify.Submission
		result string
	)

	_, err := m.update(ctx, u, func(s *session.Session) error {
		switch {
		case s.Pending && !s.EditMode:
			s.State = session.StateIdle
			reply = sender.Message{Text: alreadyPendingText, Markup: afterPseudoKeyboard()}
			result = "already_pending"
		case pseudo == "":
			reply = sender.Message{Text: emptyPseudoText, HTML: true}
			result = "empty"
		case s.Offer == session.OfferNone:
			s.EditMode = false
			s.State = session.StateChoosingOffer
			reply = sender.Message{Text: chooseOfferFirstText, Markup: offersKeyboard()}
			result = "no_offer"
		default:
			updated := s.EditMode
			if err := s.Submit(pseudo, m.opts.Now(), m.opts.NewRef()); err != nil {
				return err
			}
			s.State = session.StateIdle
			sub = &notify.Submission{
				UserID:      u.ID,
				ChatID:      u.ChatID,
				FirstName:   u.FirstName,
				Offer:       s.Offer,
				Pseudo:      pseudo,
				SubmittedAt: s.SubmittedText(),
				Ref:         s.SubmissionRef,
				Updated:     updated,
			}
			if updated {
				reply = sender.Message{Text: fmt.Sprintf(confirmUpdatedText,
					format.EscapeHTML(s.Offer.Label()), format.EscapeHTML(pseudo), s.SubmittedText())}
				result = "updated"
			} else {
				reply = sender.Message{Text: fmt.Sprintf(confirmText, format.EscapeHTML(s.Offer.Label()))}
				result = "submitted"
			}
			reply.HTML = true
			reply.Markup = afterPseudoKeyboard()
		}
		return nil
	})
	if err != nil {
		return err
	}

	attrs := []slog.Attr{slog.String("status", "ok"), slog.String("outcome", result)}
	if sub != nil {
		attrs = append(attrs, slog.String("offer", string(sub.Offer)), slog.String("pseudo", sub.Pseudo))
	}
	logger.Info(ctx, logger.CompFunnel, "funnel.pseudo", attrs...)

	if sub != nil && m.notifier != nil {
		if err := m.notifier.NotifySubmission(ctx, *sub); err != nil {
			logger.Warn(ctx, logger.CompFunnel, "funnel.notify",
				slog.String("status", "fail"),
				slog.String("err", sender.Sanitize(err)),
			)
		}
	}

	reply.ReplyTo = messageID
	m.send(ctx, "pseudo."+result, u.ChatID, reply)
	return nil
}

// Info sends the stored summary.
func (m *Machine) Info(ctx context.Context, u User) error {
	s, err := m.store.Load(ctx, u.ID)
	if err != nil {
		return err
	}
	m.send(ctx, "info", u.ChatID, sender.Message{Text: notify.InfoText(s), HTML: true, NoPreview: true})
	return nil
}

// Resolve closes the pending request of userID.
func (m *Machine) Resolve(ctx context.Context, userID int64) (*session.Session, error) {
	return session.Update(ctx, m.store, userID, func(s *session.Session) error {
		if !s.Pending {
			return ErrNotPending
		}
		s.Pending = false
		return nil
	})
}

func (m *Machine) update(ctx context.Context, u User, fn func(*session.Session) error) (*session.Session, error) {
	s, err := session.Update(ctx, m.store, u.ID, func(s *session.Session) error {
		if u.ChatID != 0 {
			s.ChatID = u.ChatID
		}
		return fn(s)
	})
	if err != nil {
		logger.Error(ctx, logger.CompStore, "session.update",
			slog.String("status", "fail"),
			slog.Int64("user_id", u.ID),
			slog.String("err", err.Error()),
		)
		return nil, fmt.Errorf("funnel: %w", err)
	}
	return s, nil
}

func (m *Machine) banner() *tele.Photo {
	if p := m.opts.BannerPath; p != "" {
		if st, err := os.Stat(p); err == nil && st.Mode().IsRegular() {
			return &tele.Photo{File: tele.FromDisk(p)}
		}
	}
	if m.opts.BannerURL != "" {
		return &tele.Photo{File: tele.FromURL(m.opts.BannerURL)}
	}
	return nil
}

func (m *Machine) send(ctx context.Context, step string, chatID int64, msg sender.Message) {
	if _, err := m.out.Send(ctx, chatID, msg); err != nil {
		logDeliveryFailure(ctx, step, err)
	}
}

// replace edits the message carrying the pressed button, or sends a new one
// when there is none or it can no longer be edited.
func (m *Machine) replace(ctx context.Context, step string, u User, prompt sender.Ref, msg sender.Message) {
	if !prompt.IsZero() {
		err := m.out.Edit(ctx, prompt, msg)
		if err == nil || strings.Contains(err.Error(), "message is not modified") {
			return
		}
		logDeliveryFailure(ctx, step+".edit", err)
	}
	m.send(ctx, step, u.ChatID, msg)
}

func logDeliveryFailure(ctx context.Context, step string, err error) {
	logger.Warn(ctx, logger.CompFunnel, "funnel.deliver",
		slog.String("status", "fail"),
		slog.String("step", step),
		slog.String("error_kind", sender.Classify(err)),
	)
}
