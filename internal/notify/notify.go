// Package notify renders the HTML cards sent to the admin and the /info summary.
// Every user-provided value is escaped.
package notify

import (
	"strings"

	"github.com/m3rciful/menacebot/core/telegram/format"
	"github.com/m3rciful/menacebot/internal/session"
)

// Submission describes a captured pseudo for the admin.
type Submission struct {
	UserID    int64
	ChatID    int64
	FirstName string
	Offer     session.Offer
	Pseudo    string
	// SubmittedAt is already formatted with session.SubmittedLayout.
	SubmittedAt string
	Ref         string
	Updated     bool
}

// Sender identifies the author of a mirrored message.
type Sender struct {
	UserID    int64
	ChatID    int64
	FirstName string
	Username  string
}

const fallbackName = "Utilisateur"

// SubmissionText is the admin notification for a new or updated submission.
func SubmissionText(s Submission) string {
	title := "Nouvelle soumission"
	if s.Updated {
		title = "Soumission mise à jour"
	}
	pseudo := s.Pseudo
	if strings.TrimSpace(pseudo) == "" {
		pseudo = "-"
	}
	lines := []string{
		format.Bold(title),
		"• Utilisateur : " + format.UserLink(s.UserID, s.FirstName, fallbackName) + " (ID: " + format.CodeInt(s.UserID) + ")",
		"• Chat ID : " + format.CodeInt(s.ChatID),
		"• Offre : " + format.Bold(s.Offer.Label()),
		"• Pseudo Stake : " + format.Bold(pseudo),
		"• Date : " + format.Bold(s.SubmittedAt),
	}
	if s.Ref != "" {
		lines = append(lines, "• Référence : "+format.Code(s.Ref))
	}
	return strings.Join(lines, "\n")
}

// ReplyPrompt is the control card placed under a submission.
const ReplyPrompt = "👉 Appuie sur “Répondre” pour écrire à cet utilisateur."

// InboundText is the control card placed under a mirrored user message.
func InboundText(s Sender) string {
	from := "• De : " + format.UserLink(s.UserID, s.FirstName, fallbackName) + " "
	if s.Username != "" {
		from += "(@" + format.EscapeHTML(s.Username) + ")"
	}
	return strings.Join([]string{
		"📥 <b>Message reçu</b>",
		from,
		"• User ID : " + format.CodeInt(s.UserID),
		"• Chat ID : " + format.CodeInt(s.ChatID),
	}, "\n")
}

// InfoText summarizes what is stored for the user.
func InfoText(s *session.Session) string {
	if s == nil || s.Empty() {
		return "<b>Informations enregistrées</b>\n" +
			"Aucune information enregistrée pour le moment.\n" +
			"Utilise <b>/start</b> pour commencer."
	}

	lines := []string{"<b>Informations enregistrées</b>"}
	if s.Offer != session.OfferNone {
		lines = append(lines, "• Offre choisie : "+format.Bold(s.Offer.Label()))
	}
	if p := s.PseudoValue(); p != "" {
		lines = append(lines, "• Pseudo Stake : "+format.Bold(p))
	}
	if d := s.SubmittedText(); d != "" {
		lines = append(lines, "• Date d’envoi : "+format.Bold(d))
	}
	if s.Pending {
		lines = append(lines, "• Statut : "+format.Italic("Demande en cours de traitement"))
	}
	return strings.Join(lines, "\n")
}
