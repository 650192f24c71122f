package services

import (
	"strings"

	"aven-support/internal/models"
)

// NoKnowledgeSentinel stands in for the knowledge block when retrieval
// produced nothing usable
const NoKnowledgeSentinel = "No relevant knowledge found."

// ContextAssembler turns retrieval matches into the knowledge block fed to
// the prompt builder
type ContextAssembler struct {
	minScore float32
}

// NewContextAssembler creates a new context assembler
func NewContextAssembler(minScore float32) *ContextAssembler {
	return &ContextAssembler{minScore: minScore}
}

// Assemble filters matches below the score threshold, drops empty passages,
// and joins the rest in store order
func (a *ContextAssembler) Assemble(matches []*models.RetrievalMatch) *models.AssembledContext {
	passages := make([]string, 0, len(matches))
	for _, match := range matches {
		if match.Score <= a.minScore {
			continue
		}
		if match.Text == "" {
			continue
		}
		passages = append(passages, match.Text)
	}

	return &models.AssembledContext{
		Passages:   passages,
		JoinedText: strings.Join(passages, "\n\n"),
	}
}
