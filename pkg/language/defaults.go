package language

import "github.com/aretw0/parley/pkg/domain"

// supportInstructions is the shared persona for the support line. Each locale
// appends a directive to answer in its language.
const supportInstructions = `You are a friendly, knowledgeable customer support agent for GoToMeeting.
Your name is Alex. You help customers troubleshoot issues, answer questions, and guide them
through solutions over the phone.

You have deep expertise in:
- Joining and hosting meetings (audio, video, screen sharing)
- Account management (passwords, billing, plans, cancellations)
- Technical troubleshooting (audio issues, camera not working, can't connect, app crashes)
- Mobile app support (iOS and Android)
- Integrations (Outlook, Google Calendar, Slack)
- Recording, transcription, webinars and large meetings
- Network and firewall requirements
- Plans: Basic (free, 3 participants), Pro ($12/mo, 150 participants), Business ($16/mo, 250 participants)

Phone conversation rules:
- Keep responses SHORT (2-4 sentences max). This is a voice call, not chat.
- Speak naturally, conversationally, warmly.
- Ask ONE clarifying question at a time.
- Use simple language, no jargon, no lists or markdown.
- Guide users step by step through troubleshooting.
- For billing or account issues you can't resolve, offer to transfer to a billing specialist.
- Never say "As an AI". You are Alex, a support agent.

Common troubleshooting scripts:
- Audio issues: check mute status, test mic in settings, rejoin audio, try phone dial-in.
- Can't join: check meeting ID, check internet, try the web browser instead of the app, clear app cache.
- Video not working: check camera permissions, close other apps using the camera, restart the app.
- Screen share issues: check screen recording permissions (Mac), restart the share, use a different method.

Always end troubleshooting steps with "Did that resolve your issue?" or "How did that go?"`

func instructionsIn(language string) string {
	return supportInstructions + "\n\nThe caller selected " + language + ". Always respond in " + language + " only."
}

// English is the default locale.
var English = Entry{
	Key:         domain.LocaleEnglish,
	Digit:       "1",
	DisplayName: "English",
	Locale:      "en-US",
	Voice:       "Polly.Joanna",
	MenuPrompt:  "For English, press 1 or say English.",
	Greeting: "Thank you for calling GoToMeeting customer support. " +
		"I'm Alex, and I'm here to help you today. What can I help you with?",
	NoInput: "I'm sorry, I didn't catch that. Could you please repeat your question?",
	Farewell: "You're welcome! Thank you for calling GoToMeeting support. " +
		"Have a great day, and happy meeting!",
	ErrorPrompt: "I apologize, I'm having a brief technical difficulty. Could you please repeat your question?",
	TerminationPhrases: []string{
		"goodbye", "bye", "thank you bye", "that's all", "no more help", "hang up",
	},
	Aliases:      []string{"english", "inglés", "ingles", "anglais", "inglês"},
	Instructions: instructionsIn("English"),
}

// Spanish locale.
var Spanish = Entry{
	Key:         domain.LocaleSpanish,
	Digit:       "2",
	DisplayName: "Español",
	Locale:      "es-US",
	Voice:       "Polly.Lupe",
	MenuPrompt:  "Para español, oprima 2 o diga español.",
	Greeting: "Gracias por llamar al soporte de GoToMeeting. " +
		"Soy Alex y estoy aquí para ayudarle. ¿En qué puedo ayudarle hoy?",
	NoInput:  "Lo siento, no le entendí. ¿Podría repetir su pregunta, por favor?",
	Farewell: "¡De nada! Gracias por llamar al soporte de GoToMeeting. ¡Que tenga un excelente día!",
	ErrorPrompt: "Disculpe, estoy teniendo una breve dificultad técnica. " +
		"¿Podría repetir su pregunta, por favor?",
	TerminationPhrases: []string{
		"adiós", "adios", "hasta luego", "eso es todo", "chao", "chau", "colgar", "ya no necesito ayuda",
	},
	Aliases:      []string{"spanish", "español", "espanol", "espagnol", "espanhol"},
	Instructions: instructionsIn("Spanish"),
}

// French locale.
var French = Entry{
	Key:         domain.LocaleFrench,
	Digit:       "3",
	DisplayName: "Français",
	Locale:      "fr-FR",
	Voice:       "Polly.Lea",
	MenuPrompt:  "Pour le français, appuyez sur 3 ou dites français.",
	Greeting: "Merci d'avoir appelé le support GoToMeeting. " +
		"Je suis Alex et je suis là pour vous aider. Que puis-je faire pour vous ?",
	NoInput:  "Désolé, je n'ai pas bien compris. Pourriez-vous répéter votre question ?",
	Farewell: "Je vous en prie ! Merci d'avoir appelé le support GoToMeeting. Bonne journée !",
	ErrorPrompt: "Toutes mes excuses, je rencontre une petite difficulté technique. " +
		"Pourriez-vous répéter votre question ?",
	TerminationPhrases: []string{
		"au revoir", "c'est tout", "raccrocher", "plus besoin d'aide", "bonne journée",
	},
	Aliases:      []string{"french", "français", "francais", "francés", "francês"},
	Instructions: instructionsIn("French"),
}

// Portuguese locale.
var Portuguese = Entry{
	Key:         domain.LocalePortuguese,
	Digit:       "4",
	DisplayName: "Português",
	Locale:      "pt-BR",
	Voice:       "Polly.Camila",
	MenuPrompt:  "Para português, pressione 4 ou diga português.",
	Greeting: "Obrigado por ligar para o suporte do GoToMeeting. " +
		"Eu sou Alex e estou aqui para ajudar. Como posso ajudar você hoje?",
	NoInput:  "Desculpe, não entendi. Você poderia repetir sua pergunta?",
	Farewell: "De nada! Obrigado por ligar para o suporte do GoToMeeting. Tenha um ótimo dia!",
	ErrorPrompt: "Peço desculpas, estou com uma pequena dificuldade técnica. " +
		"Você poderia repetir sua pergunta?",
	TerminationPhrases: []string{
		"tchau", "adeus", "até logo", "é só isso", "desligar", "não preciso de mais ajuda",
	},
	Aliases:      []string{"portuguese", "português", "portugues", "portugais"},
	Instructions: instructionsIn("Portuguese"),
}

// Default returns the built-in catalog with English as the default locale.
func Default() *Catalog {
	return MustCatalog(domain.LocaleEnglish, English, Spanish, French, Portuguese)
}
