package services

import (
	"fmt"
	"strings"

	"github.com/jdkato/prose/v2"
)

const (
	DefaultChunkSize    = 1200 // characters per chunk
	DefaultChunkOverlap = 1    // trailing sentences carried into the next chunk
)

// Chunker splits document text into sentence-aligned chunks sized for
// embedding
type Chunker struct {
	chunkSize int
	overlap   int
}

// NewChunker creates a chunker with the default sizing
func NewChunker() *Chunker {
	return &Chunker{
		chunkSize: DefaultChunkSize,
		overlap:   DefaultChunkOverlap,
	}
}

// Split breaks text into chunks. Sentences are never split; a chunk closes
// when adding the next sentence would exceed the size limit, and the last
// sentences of each chunk are repeated at the start of the next for
// continuity. A single oversized sentence becomes its own chunk.
func (c *Chunker) Split(text string) ([]string, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return []string{}, nil
	}

	doc, err := prose.NewDocument(text, prose.WithExtraction(false), prose.WithTagging(false))
	if err != nil {
		return nil, fmt.Errorf("failed to segment text: %w", err)
	}

	sentences := make([]string, 0, len(doc.Sentences()))
	for _, sent := range doc.Sentences() {
		s := strings.TrimSpace(sent.Text)
		if s != "" {
			sentences = append(sentences, s)
		}
	}
	if len(sentences) == 0 {
		return []string{}, nil
	}

	var chunks []string
	var current []string
	currentLen := 0

	flush := func() {
		if len(current) == 0 {
			return
		}
		chunks = append(chunks, strings.Join(current, " "))

		// Seed the next chunk with the tail of this one
		tail := c.overlap
		if tail > len(current) {
			tail = len(current)
		}
		current = append([]string{}, current[len(current)-tail:]...)
		currentLen = joinedLength(current)
	}

	for _, sentence := range sentences {
		if currentLen > 0 && currentLen+1+len(sentence) > c.chunkSize {
			flush()
			// Overlap alone may already exceed the limit
			if currentLen+1+len(sentence) > c.chunkSize {
				current = nil
				currentLen = 0
			}
		}
		current = append(current, sentence)
		if currentLen == 0 {
			currentLen = len(sentence)
		} else {
			currentLen += 1 + len(sentence)
		}
	}

	if len(current) > 0 {
		chunk := strings.Join(current, " ")
		// Skip a final chunk that is pure overlap of the previous one
		if len(chunks) == 0 || !strings.HasSuffix(chunks[len(chunks)-1], chunk) {
			chunks = append(chunks, chunk)
		}
	}

	return chunks, nil
}

// ChunkID names a chunk within its document
func ChunkID(docID string, index int) string {
	return fmt.Sprintf("%s_chunk_%d", docID, index)
}

func joinedLength(sentences []string) int {
	if len(sentences) == 0 {
		return 0
	}
	length := len(sentences) - 1
	for _, s := range sentences {
		length += len(s)
	}
	return length
}
