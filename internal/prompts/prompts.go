// Package prompts centralizes every user-facing text of the campaign bot:
// the generative persona, the consent flow and the scripted fallbacks.
// All texts are Brazilian Portuguese.
package prompts

// ConsentToken is the literal affirmative a sender must say (case
// insensitively) to opt in before receiving generated content.
const ConsentToken = "SIM"

// SystemPrompt is the persona fed to the completion model ahead of the
// conversation history.
const SystemPrompt = `Você é um profissional de saúde empático para campanha Outubro Rosa. Responda dúvidas sobre câncer de mama (prevenção, sintomas, autoexame) de forma natural, humana e curta (80-120 palavras max). Use listas curtas para orientações. Tom: Acolhedor, use 😊 ou 💕 ocasionalmente. Idioma: Português BR. Varie respostas – evite repetições ou perguntas que soem como consentimento (ex.: não pergunte "Quer continuar?" se já consentido). Disclaimer médico só no fim de respostas completas ou transições. Se user agradece, responda leve ("De nada! Fico feliz em ajudar. 😊") sem forçar mais info.`

// ImageAnalysisPrompt constrains vision answers to an ethical,
// non-diagnostic description.
const ImageAnalysisPrompt = `Descreva esta imagem no contexto de saúde mamária, sem fazer diagnóstico médico. Seja breve e ético.`

// MedicalDisclaimer is appended to every image answer.
const MedicalDisclaimer = "\n\nConsulte um médico para diagnóstico."

// Consent flow
const (
	ConsentRequest = `Oi! 👋 Sou a assistente da campanha Outubro Rosa. Posso te ajudar com dúvidas sobre saúde mamária? Digite "SIM" para continuar ou "SAIR" para parar.`
	ConsentGranted = `Perfeito! 💕 Agora podemos conversar sobre prevenção, exames e cuidados. O que você gostaria de saber?`
)

// Scripted fallbacks. Collaborator failures never surface raw errors to the
// sender; they degrade to one of these.
const (
	RateLimitExceeded    = `Ops, você atingiu o limite de mensagens por hora. Vamos conversar mais tarde? 😊`
	InvalidMessage       = `Hmm, não entendi bem. Pode tentar com uma mensagem mais simples?`
	ProcessingError      = `Desculpe, deu um probleminha técnico. Pode tentar novamente?`
	AudioDownloadError   = `Não consegui baixar o áudio. Pode tentar enviar novamente?`
	AudioTooLong         = `Áudio inválido ou muito longo. Tente um áudio mais curto.`
	AudioProcessingError = `Tive dificuldade para entender o áudio. Pode repetir por texto?`
	ImageDownloadError   = `Não foi possível baixar a imagem. Tenta enviar de novo?`
	ImageAnalysisError   = `Desculpe, não consegui analisar bem a imagem. 😔`
)
