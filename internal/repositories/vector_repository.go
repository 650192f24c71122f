package repositories

import (
	"context"

	"aven-support/internal/models"
)

// UpsertBatchSize bounds the number of chunks sent to the vector store
// in one call. The store rejects oversized payloads; callers never need
// to pre-batch, Upsert splits internally.
const UpsertBatchSize = 100

// VectorRepository defines the interface for vector index operations.
// It abstracts the ChromaDB wiring so the RAG pipeline can be tested
// against mocks and the store swapped without touching services.
type VectorRepository interface {
	// EnsureCollection creates the support collection if absent.
	// Idempotent; called at startup and by the admin endpoint.
	EnsureCollection(ctx context.Context) error

	// Upsert stores knowledge chunks, replacing any existing entries
	// with the same id. Batched internally (UpsertBatchSize).
	Upsert(ctx context.Context, chunks []*models.KnowledgeChunk) error

	// Query returns at most topK matches ordered by descending score.
	// An empty result is a normal outcome, not an error.
	Query(ctx context.Context, vector []float32, topK int, includeMetadata bool) ([]*models.RetrievalMatch, error)

	// Stats reports the collection name and stored chunk count
	Stats(ctx context.Context) (*models.KnowledgeStats, error)

	// Ping checks store reachability
	Ping(ctx context.Context) error

	Close() error
}

// StoreError represents a failure of the vector store dependency.
// Callers map it to a 5xx outcome; it is never retried here.
type StoreError struct {
	Operation string
	Err       error
	Message   string
}

func (e *StoreError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	if e.Err != nil {
		return e.Operation + ": " + e.Err.Error()
	}
	return e.Operation + ": unknown error"
}

func (e *StoreError) Unwrap() error {
	return e.Err
}

// NewStoreError creates a new vector store error
func NewStoreError(operation string, err error, message string) *StoreError {
	return &StoreError{
		Operation: operation,
		Err:       err,
		Message:   message,
	}
}
