package gemini

// AnalysisPrompt asks the model for a strict JSON verdict on a citizen photo.
const AnalysisPrompt = `Regarde cette photo envoyée par un citoyen.
1. S'agit-il d'une fuite d'eau, d'une canalisation cassée ou d'une inondation liée à l'eau ? (is_leak: bool)
2. Si oui, évalue la gravité sur une échelle de 1 à 3 :
   - Petite (Goutte à goutte, petit filet)
   - Moyenne (Flux constant, trou visible)
   - Élevée (Geyser, inondation majeure, route coupée)

Réponds uniquement sous format JSON strict comme ceci :
{"is_leak": true, "severity": "Moyenne", "description": "Brève description en 10 mots"}`
