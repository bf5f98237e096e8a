package funnel

const (
	menuText = "🏠 <b>Menu principal</b>"

	welcomeText = "<b>Bienvenue sur le bot telegram de La Menace ! 🎰</b>\n\n" +
		"Salut <b>%s</b> !\n\n" +
		"Prêt à tenter ta chance et à vivre l’expérience ultime du casino en ligne ? 💰🔥\n\n" +
		"Avant de commencer, dis-moi quel type de joueur de casino tu es :\n\n" +
		"<i>Tu auras néanmoins la possibilité d’avoir accès aux 2 bonus.</i>"

	beginnerText = "Tu as choisi l’offre <b>Débutant : 30€ offerts</b> 🎁\n\n" +
		"Quel est ton pseudo Stake ? 😎"

	proAskAccountText = "Tu as sélectionné l’offre : <b>Aguerri : Dépôt triplé</b> 💎\n\n" +
		"As-tu déjà créé ton compte Stake ? 🎉"

	askPseudoText = "Parfait ! Quel est ton <b>pseudo Stake</b> ? 😎"

	alreadyPendingText = "Tu as déjà une demande en cours, attends que celle-ci soit traitée avant de faire une nouvelle demande ! 😎"

	affiliateText = "Crée ton compte grâce au lien ci-dessous, puis clique sur le bouton pour reprendre la procédure ! 😎\n\n" +
		"👉 %s\n\n" +
		"⚠️ Si le site ne fonctionne pas, il te suffit d’utiliser un VPN (Canada, Norvège). N’hésite pas à utiliser le tutoriel grâce au bouton ci-dessous. 👇"

	confirmText = "Tu as sélectionné l’offre : <b>%s</b>.\n" +
		"Merci ! ✅\n\n" +
		"Nous avons bien enregistré toutes tes réponses. Nous te recontacterons dans un court délai pour de plus amples vérifications ou pour valider l’option précédemment choisie.\n\n" +
		"<b>Cordialement,</b>\n" +
		"L’équipe La Menace"

	confirmUpdatedText = "Tes informations ont bien été mises à jour. ✅\n\n" +
		"<b>Offre :</b> %s\n" +
		"<b>Nouveau pseudo Stake :</b> %s\n" +
		"<b>Date :</b> %s"

	editReminderText = "📝 <b>Modifier mes informations</b>\n\nQuel est ton <b>pseudo Stake</b> ?"

	emptyPseudoText = "Ton pseudo ne peut pas être vide. Quel est ton <b>pseudo Stake</b> ? 😎"

	chooseOfferFirstText = "Choisis d’abord ton offre 👇"

	affiliateLabel = "Crée ton compte ! 👈"

	defaultName = "là"
)
