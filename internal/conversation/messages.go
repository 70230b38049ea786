package conversation

import (
	"fmt"

	"github.com/Major117-gkd/WaterAlert-Group10/internal/classifier"
	"github.com/Major117-gkd/WaterAlert-Group10/internal/models"
)

// Reply keyboard buttons understood by the command router.
const (
	ButtonReport    = "🚨 Signaler une fuite"
	ButtonMyReports = "📋 Mes signalements"
	ButtonCancel    = "❌ Annuler"
	ButtonLocation  = "📍 Envoyer ma position"
)

// Placeholder addresses stored when reverse geocoding gives nothing.
const (
	AddressUnknown      = "Adresse inconnue"
	AddressGeocodeError = "Erreur de géocodage"
)

// MainMenu is the keyboard shown outside a conversation.
var MainMenu = [][]string{{ButtonReport}, {ButtonMyReports}}

var severityButtons = map[models.Severity]string{
	models.SeveritySmall:  "💧 Petite",
	models.SeverityMedium: "🌊 Moyenne",
	models.SeverityHigh:   "🔥 Élevée",
}

func markdown(text string) models.OutgoingMessage {
	return models.OutgoingMessage{Text: text, Markdown: true}
}

func msgAskPhoto() models.OutgoingMessage {
	m := markdown("Bienvenue chez WaterAlert ! 🚰\nPour signaler une fuite d'eau, veuillez envoyer une *photo* de la fuite.")
	m.Keyboard = [][]string{{ButtonCancel}}
	return m
}

func msgPhotoExpected() models.OutgoingMessage {
	return markdown("📷 J'attends une *photo* de la fuite. Envoyez-la, ou tapez /annuler pour abandonner.")
}

func msgAnalyzing() models.OutgoingMessage {
	return markdown("🔍 _Analyse de l'image par l'IA en cours..._")
}

func msgPhotoUnavailable() models.OutgoingMessage {
	return markdown("⚠️ Impossible de traiter cette photo. Merci d'essayer avec une *autre photo*.")
}

func msgNoLeak() models.OutgoingMessage {
	return markdown("⚠️ L'IA n'a pas détecté de fuite évidente sur cette photo.\nMerci d'envoyer une *autre photo* de la fuite.")
}

func analysisText(a *classifier.Analysis) string {
	if a.Source == classifier.SourceSimulated {
		return fmt.Sprintf("ℹ️ Mode Simulation : fuite détectée (Sévérité : %s)", a.Severity)
	}
	return fmt.Sprintf("✅ Analyse terminée : %s (Sévérité estimée : %s)", models.EscapeMarkdown(a.Description), a.Severity)
}

// severityKeyboard marks the classifier estimate so the reporter can confirm it in one tap.
func severityKeyboard(estimate models.Severity) [][]string {
	row := make([]string, 0, len(models.Severities))
	for _, sev := range models.Severities {
		label := severityButtons[sev]
		if sev == estimate {
			label += " (IA)"
		}
		row = append(row, label)
	}
	return [][]string{row, {ButtonCancel}}
}

func msgAskSeverity(a *classifier.Analysis) models.OutgoingMessage {
	m := markdown(analysisText(a) + "\n\nConfirmez-vous la *gravité* de la fuite ? Choisissez une option ci-dessous.")
	m.Keyboard = severityKeyboard(a.Severity)
	return m
}

func msgSeverityNotUnderstood(estimate models.Severity) models.OutgoingMessage {
	m := markdown("Je n'ai pas compris. Choisissez la gravité : *Petite*, *Moyenne* ou *Élevée*.")
	m.Keyboard = severityKeyboard(estimate)
	return m
}

func msgAskLocation(sev models.Severity) models.OutgoingMessage {
	m := markdown(fmt.Sprintf("Sévérité enregistrée : *%s*.\nMaintenant, veuillez envoyer votre *localisation* (GPS) pour confirmer le signalement.", sev))
	m.LocationButton = ButtonLocation
	m.Keyboard = [][]string{{ButtonCancel}}
	return m
}

func msgLocationExpected() models.OutgoingMessage {
	m := markdown("📍 J'attends votre *localisation*. Utilisez le bouton ci-dessous pour l'envoyer.")
	m.LocationButton = ButtonLocation
	m.Keyboard = [][]string{{ButtonCancel}}
	return m
}

func msgSaveFailed() models.OutgoingMessage {
	m := markdown("❌ Votre signalement n'a pas pu être enregistré. Vos informations sont conservées : merci de *renvoyer votre localisation* pour réessayer.")
	m.LocationButton = ButtonLocation
	m.Keyboard = [][]string{{ButtonCancel}}
	return m
}

func msgSaved(id int64, address string) models.OutgoingMessage {
	m := markdown(fmt.Sprintf("Merci ! Votre signalement #%d à l'adresse suivante a été enregistré :\n📍 *%s*\n\nNos équipes interviendront dès que possible. 🚀",
		id, models.EscapeMarkdown(address)))
	m.RemoveKeyboard = true
	return m
}

func msgCancelled() models.OutgoingMessage {
	return models.OutgoingMessage{Text: "Signalement annulé.", Keyboard: MainMenu}
}

func msgNothingToCancel() models.OutgoingMessage {
	return models.OutgoingMessage{Text: "Aucun signalement en cours. Tapez /start pour signaler une fuite !", Keyboard: MainMenu}
}

func msgIdleHint() models.OutgoingMessage {
	return models.OutgoingMessage{Text: "Tapez /start pour signaler une fuite, ou /aide pour voir les commandes.", Keyboard: MainMenu}
}

func msgExpired() models.OutgoingMessage {
	return models.OutgoingMessage{Text: "⌛ Votre signalement en cours a expiré faute de réponse. Tapez /start pour recommencer.", Keyboard: MainMenu}
}
