// Package session holds the per-user conversation record and the admin reply route.
package session

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/AlekSi/pointer"
)

// Offer is the bonus a user picked.
type Offer string

const (
	OfferNone     Offer = ""
	OfferBeginner Offer = "beginner"
	OfferPro      Offer = "pro"
)

// Label returns the French name shown to users and to the admin.
func (o Offer) Label() string {
	if o == OfferBeginner {
		return "Débutant : 30€ offerts"
	}
	return "Aguerri : Dépôt triplé"
}

// Valid reports whether o is a known value.
func (o Offer) Valid() bool {
	switch o {
	case OfferNone, OfferBeginner, OfferPro:
		return true
	}
	return false
}

// State is the position of a user in the bonus conversation.
type State string

const (
	StateIdle             State = "idle"
	StateChoosingOffer    State = "choosing_offer"
	StateAskingHasAccount State = "asking_has_account"
	StateAskingPseudo     State = "asking_pseudo"
)

// Valid reports whether s is a known value.
func (s State) Valid() bool {
	switch s {
	case StateIdle, StateChoosingOffer, StateAskingHasAccount, StateAskingPseudo:
		return true
	}
	return false
}

// SubmittedLayout formats submission dates the way users and the admin see them.
const SubmittedLayout = "2006-01-02 15:04:05 UTC"

var (
	// ErrPendingWithoutPseudo reports a pending request that has no pseudo.
	ErrPendingWithoutPseudo = errors.New("session: pending request without pseudo")
	// ErrPendingWithoutOffer reports a pending request that has no offer.
	ErrPendingWithoutOffer = errors.New("session: pending request without offer")
)

// Session is the persisted record of one user. It is created lazily and never deleted.
type Session struct {
	UserID int64 `db:"user_id"`
	ChatID int64 `db:"chat_id"`

	State       State      `db:"state"`
	Offer       Offer      `db:"offer"`
	Pseudo      *string    `db:"pseudo"`
	SubmittedAt *time.Time `db:"-"`
	Pending     bool       `db:"pending"`
	EditMode    bool       `db:"edit_mode"`
	// LastWelcomeAt backs the entry cooldown.
	LastWelcomeAt *time.Time `db:"-"`
	// SubmissionRef identifies the latest submission in admin notifications.
	SubmissionRef string    `db:"submission_ref"`
	UpdatedAt     time.Time `db:"-"`
}

// New returns the idle record of a user who never interacted.
func New(userID int64) *Session {
	return &Session{UserID: userID, State: StateIdle}
}

// PseudoValue returns the pseudo or "".
func (s *Session) PseudoValue() string {
	return pointer.Get(s.Pseudo)
}

// SubmittedText returns the submission date as shown to people, or "".
func (s *Session) SubmittedText() string {
	if s.SubmittedAt == nil {
		return ""
	}
	return s.SubmittedAt.UTC().Format(SubmittedLayout)
}

// ResetProgress forgets pseudo, submission date and edit mode. A pending request
// stays pending until the admin resolves it.
func (s *Session) ResetProgress() {
	s.Pseudo = nil
	s.SubmittedAt = nil
	s.EditMode = false
}

// Submit records pseudo as a new pending request at now. A request needs a
// pseudo and a chosen offer.
func (s *Session) Submit(pseudo string, now time.Time, ref string) error {
	if strings.TrimSpace(pseudo) == "" {
		return ErrPendingWithoutPseudo
	}
	if s.Offer == OfferNone {
		return ErrPendingWithoutOffer
	}
	s.Pseudo = pointer.To(pseudo)
	s.SubmittedAt = pointer.To(now.UTC().Truncate(time.Second))
	s.Pending = true
	s.EditMode = false
	s.SubmissionRef = ref
	return nil
}

// Empty reports whether nothing was ever captured for the user.
func (s *Session) Empty() bool {
	return s.Offer == OfferNone && strings.TrimSpace(s.PseudoValue()) == ""
}

// Validate checks the enumerated fields. Pending is checked by Submit only: a
// reselected offer clears the pseudo of a request that is still pending.
func (s *Session) Validate() error {
	if !s.State.Valid() {
		return fmt.Errorf("session: unknown state %q", s.State)
	}
	if !s.Offer.Valid() {
		return fmt.Errorf("session: unknown offer %q", s.Offer)
	}
	return nil
}

// Clone returns a deep copy of s.
func (s *Session) Clone() *Session {
	if s == nil {
		return nil
	}
	c := *s
	if s.Pseudo != nil {
		c.Pseudo = pointer.To(*s.Pseudo)
	}
	if s.SubmittedAt != nil {
		c.SubmittedAt = pointer.To(*s.SubmittedAt)
	}
	if s.LastWelcomeAt != nil {
		c.LastWelcomeAt = pointer.To(*s.LastWelcomeAt)
	}
	return &c
}
