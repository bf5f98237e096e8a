package funnel

import (
	"github.com/m3rciful/menacebot/core/telegram/keyboard"

	tele "gopkg.in/telebot.v4"
)

// Callback keys of the conversation buttons.
const (
	KeyStartFlow     = "start_flow"
	KeyOfferBeginner = "offer_beginner"
	KeyOfferPro      = "offer_pro"
	KeyHasAccountYes = "has_account_yes"
	KeyHasAccountNo  = "has_account_no"
	KeyResumeFlow    = "resume_flow"
	KeyBackToMenu    = "back_to_menu"
	KeyOpenMenu      = "open_menu"
	KeyEditInfo      = "edit_info"
)

var backButton = keyboard.Callback("⬅️ Retour", KeyBackToMenu)

func (m *Machine) menuKeyboard() *tele.ReplyMarkup {
	return keyboard.InlineButtons(
		keyboard.Callback("🎁 Accéder aux bonus", KeyStartFlow),
		keyboard.WebApp("❓ J’ai besoin d’aide", m.opts.MiniAppURL),
		keyboard.WebApp("⭐ Découvrir les avantages de Stake", m.opts.AdvantagesURL),
	)
}

func offersKeyboard() *tele.ReplyMarkup {
	return keyboard.InlineButtons(
		keyboard.Callback("Débutant : 30€ offerts 🎁", KeyOfferBeginner),
		keyboard.Callback("Aguerri : Dépôt triplé 💎", KeyOfferPro),
		backButton,
	)
}

func hasAccountKeyboard() *tele.ReplyMarkup {
	return keyboard.InlineButtons(
		keyboard.Callback("✅ Oui", KeyHasAccountYes),
		keyboard.Callback("❌ Non", KeyHasAccountNo),
		backButton,
	)
}

func (m *Machine) noAccountKeyboard() *tele.ReplyMarkup {
	return keyboard.InlineButtons(
		keyboard.WebApp("🧭 Tutoriel VPN", m.opts.MiniAppURL),
		keyboard.Callback("🔁 Reprendre la procédure", KeyResumeFlow),
		backButton,
	)
}

func afterPseudoKeyboard() *tele.ReplyMarkup {
	return keyboard.InlineButtons(
		keyboard.Callback("📝 Modifier mes informations", KeyEditInfo),
		backButton,
	)
}
