package services

import (
	"testing"

	"aven-support/internal/models"

	"github.com/stretchr/testify/assert"
)

func TestAssemble_FiltersAndJoins(t *testing.T) {
	assembler := NewContextAssembler(0.5)

	ctx := assembler.Assemble([]*models.RetrievalMatch{
		{ChunkID: "a", Score: 0.9, Text: "First passage."},
		{ChunkID: "b", Score: 0.51, Text: "Second passage."},
		{ChunkID: "c", Score: 0.5, Text: "Exactly at threshold."},
		{ChunkID: "d", Score: 0.2, Text: "Below threshold."},
	})

	assert.Equal(t, []string{"First passage.", "Second passage."}, ctx.Passages)
	assert.Equal(t, "First passage.\n\nSecond passage.", ctx.JoinedText)
}

func TestAssemble_DropsEmptyPassages(t *testing.T) {
	assembler := NewContextAssembler(0.5)

	ctx := assembler.Assemble([]*models.RetrievalMatch{
		{ChunkID: "a", Score: 0.9, Text: ""},
		{ChunkID: "b", Score: 0.8, Text: "Kept."},
	})

	assert.Equal(t, []string{"Kept."}, ctx.Passages)
	assert.Equal(t, "Kept.", ctx.JoinedText)
}

func TestAssemble_NoMatches(t *testing.T) {
	assembler := NewContextAssembler(0.5)

	ctx := assembler.Assemble(nil)

	assert.Empty(t, ctx.Passages)
	assert.Empty(t, ctx.JoinedText)
}
