package command_router

const helpText = `*WaterAlert* 🚰 vous permet de signaler une fuite d'eau en trois étapes :
1. une *photo* de la fuite,
2. la *gravité* (Petite, Moyenne ou Élevée),
3. votre *position* GPS.

Commandes :
/start ou /signaler : signaler une fuite
/status ou /mes\_signalements : suivre vos signalements
/annuler : abandonner le signalement en cours
/apropos, /confidentialite, /contact`

const aboutText = `*À propos de WaterAlert*
WaterAlert aide les services des eaux à repérer plus vite les fuites sur le réseau public. Chaque signalement est analysé, géolocalisé puis transmis aux équipes d'intervention. Vous êtes prévenu dès que la fuite est prise en charge puis réparée.`

const privacyText = `*Confidentialité*
Nous conservons uniquement ce qui est nécessaire au traitement de votre signalement : votre identifiant Telegram et votre nom affiché, la photo envoyée, la position et l'adresse correspondante. Ces données ne sont utilisées que pour organiser les interventions et vous informer de leur avancement.`

const contactText = `*Contact*
Pour toute question sur un signalement, répondez avec son numéro (par exemple #12) au service des eaux de votre commune, ou écrivez à support@wateralert.example.`

const unknownCommandText = "Commande inconnue. Tapez /aide pour voir les commandes disponibles."

const noReportsText = "Vous n'avez aucun signalement en cours. Tapez /start pour signaler une fuite !"

const statusErrorText = "⚠️ Impossible de récupérer vos signalements pour le moment. Réessayez dans quelques instants."
