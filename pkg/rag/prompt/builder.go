package prompt

import (
	"strings"

	"whatsapp-orderbot-be/pkg/store"
)

const (
	// NoContextPlaceholder stands in for the context when retrieval finds nothing.
	NoContextPlaceholder = "No relevant context found."

	SystemMessage = "You are a helpful AI assistant. Answer clearly and concisely based ONLY on the provided context."

	passageSeparator = "\n\n---\n\n"
)

// ContextBuilder renders the single user turn sent to the completion model.
type ContextBuilder struct {
	passages []store.Document
	query    string
}

func NewContextBuilder(passages []store.Document, query string) *ContextBuilder {
	return &ContextBuilder{
		passages: passages,
		query:    query,
	}
}

// Context returns the passage text, or the placeholder when there is none.
// Multiple passages are joined in rank order.
func (b *ContextBuilder) Context() string {
	parts := make([]string, 0, len(b.passages))
	for _, p := range b.passages {
		content := strings.TrimSpace(p.Content)
		if content == "" {
			continue
		}
		parts = append(parts, content)
	}
	if len(parts) == 0 {
		return NoContextPlaceholder
	}
	return strings.Join(parts, passageSeparator)
}

func (b *ContextBuilder) HasContext() bool {
	return b.Context() != NoContextPlaceholder
}

func (b *ContextBuilder) Build() string {
	var prompt strings.Builder

	prompt.WriteString("Context: ")
	prompt.WriteString(b.Context())
	prompt.WriteString("\n\n")

	prompt.WriteString("Question: ")
	prompt.WriteString(b.query)
	prompt.WriteString("\n\n")

	prompt.WriteString("Answer clearly using ONLY the context.")

	return prompt.String()
}
