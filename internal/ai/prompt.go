package ai

import (
	"strings"

	"github.com/CarlosSb/chat-ia-outubro-rosa/internal/model"
	"github.com/CarlosSb/chat-ia-outubro-rosa/internal/prompts"
)

// BuildPrompt assembles the completion prompt: persona, then the prior turns
// oldest-first as a Usuário/Bot transcript, then the new question.
func BuildPrompt(history []model.Turn, body string) string {
	var b strings.Builder
	b.WriteString(prompts.SystemPrompt)
	b.WriteString("\n\nHistórico da conversa:\n")

	for _, turn := range history {
		b.WriteString("Usuário: ")
		b.WriteString(turn.Content)
		b.WriteString("\n")
		if turn.Response != nil {
			b.WriteString("Bot: ")
			b.WriteString(*turn.Response)
			b.WriteString("\n")
		}
	}

	b.WriteString("Usuário: ")
	b.WriteString(body)
	b.WriteString("\nBot:")
	return b.String()
}
