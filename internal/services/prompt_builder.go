package services

import (
	"fmt"

	"aven-support/internal/models"
)

// systemPromptTemplate frames every completion. The knowledge block is
// substituted in at build time.
const systemPromptTemplate = `You are Aven's helpful customer support assistant. Use the provided knowledge to answer questions accurately and helpfully.

IMPORTANT RULES:
- Only answer questions about Aven using the provided knowledge
- If you don't know something, say "I don't have that information"
- Be friendly and helpful
- Keep responses concise but complete
- If asked about competitors or other companies, redirect to Aven

AVEN KNOWLEDGE:
%s`

// PromptBuilder assembles the message list sent to the completion provider
type PromptBuilder struct {
	maxHistoryMessages int
}

// NewPromptBuilder creates a new prompt builder
func NewPromptBuilder(maxHistoryMessages int) *PromptBuilder {
	return &PromptBuilder{maxHistoryMessages: maxHistoryMessages}
}

// Build produces the completion messages: exactly one system message at
// index 0, then the most recent history, then the user's message. System
// messages supplied by the caller are dropped so the support persona cannot
// be overridden.
func (b *PromptBuilder) Build(knowledge string, history []models.ChatMessage, userMessage string) []models.ChatMessage {
	if knowledge == "" {
		knowledge = NoKnowledgeSentinel
	}

	messages := make([]models.ChatMessage, 0, len(history)+2)
	messages = append(messages, models.ChatMessage{
		Role:    models.RoleSystem,
		Content: fmt.Sprintf(systemPromptTemplate, knowledge),
	})

	kept := make([]models.ChatMessage, 0, len(history))
	for _, msg := range history {
		if msg.Role == models.RoleSystem {
			continue
		}
		kept = append(kept, msg)
	}

	// Truncate oldest-first so the recent turns survive
	if b.maxHistoryMessages > 0 && len(kept) > b.maxHistoryMessages {
		kept = kept[len(kept)-b.maxHistoryMessages:]
	}
	messages = append(messages, kept...)

	messages = append(messages, models.ChatMessage{
		Role:    models.RoleUser,
		Content: userMessage,
	})

	return messages
}
