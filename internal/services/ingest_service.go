package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"

	"aven-support/internal/models"
	"aven-support/internal/repositories"
)

// EmbedBatchSize caps how many chunk texts go to the embedding provider in
// one request
const EmbedBatchSize = 64

// IngestService accepts knowledge documents, tracks their ingestion jobs,
// and runs the chunk-embed-upsert pipeline
type IngestService struct {
	chunker    *Chunker
	embedder   Embedder
	vectorRepo repositories.VectorRepository
	jobRepo    repositories.JobRepository
	logger     *log.Logger
}

// NewIngestService creates a new ingest service. jobRepo may be nil when
// Redis is unavailable; submission then fails but the pipeline methods still
// work for synchronous callers.
func NewIngestService(
	chunker *Chunker,
	embedder Embedder,
	vectorRepo repositories.VectorRepository,
	jobRepo repositories.JobRepository,
	logger *log.Logger,
) *IngestService {
	return &IngestService{
		chunker:    chunker,
		embedder:   embedder,
		vectorRepo: vectorRepo,
		jobRepo:    jobRepo,
		logger:     logger,
	}
}

// SubmitIngest validates the documents, records a pending job, and queues it
// for the ingest worker
func (s *IngestService) SubmitIngest(ctx context.Context, request *models.IngestRequest) (*models.IngestAccepted, error) {
	if len(request.Documents) == 0 {
		return nil, &ValidationError{Field: "documents", Message: "at least one document is required"}
	}
	for i := range request.Documents {
		doc := &request.Documents[i]
		if strings.TrimSpace(doc.Content) == "" {
			return nil, &ValidationError{Field: "documents", Message: fmt.Sprintf("document %d has no content", i)}
		}
		if doc.ID == "" {
			doc.ID = uuid.New().String()
		}
	}

	if s.jobRepo == nil {
		return nil, fmt.Errorf("ingestion unavailable: job store is not connected")
	}

	job := &repositories.Job{
		ID:     uuid.New().String(),
		Type:   repositories.JobTypeKnowledgeIngest,
		Status: repositories.JobStatusPending,
		Payload: map[string]interface{}{
			"documents": request.Documents,
		},
		MaxRetries: 3,
		CreatedAt:  time.Now(),
	}

	if err := s.jobRepo.CreateJob(ctx, job); err != nil {
		return nil, fmt.Errorf("failed to create ingest job: %w", err)
	}
	if err := s.jobRepo.EnqueueJob(ctx, job); err != nil {
		return nil, fmt.Errorf("failed to enqueue ingest job: %w", err)
	}

	s.logger.Printf("Ingest job %s queued (%d documents)", job.ID, len(request.Documents))

	return &models.IngestAccepted{
		JobID:         job.ID,
		DocumentCount: len(request.Documents),
	}, nil
}

// GetJob returns a job by id
func (s *IngestService) GetJob(ctx context.Context, jobID string) (*repositories.Job, error) {
	if s.jobRepo == nil {
		return nil, fmt.Errorf("job store is not connected")
	}
	return s.jobRepo.GetJob(ctx, jobID)
}

// ProcessDocuments runs the full ingestion pipeline for a batch of
// documents and returns the number of chunks stored
func (s *IngestService) ProcessDocuments(ctx context.Context, documents []models.IngestDocument) (int, error) {
	if err := s.vectorRepo.EnsureCollection(ctx); err != nil {
		return 0, fmt.Errorf("failed to ensure collection: %w", err)
	}

	totalChunks := 0
	for _, doc := range documents {
		stored, err := s.processDocument(ctx, doc)
		if err != nil {
			return totalChunks, fmt.Errorf("document %s: %w", doc.ID, err)
		}
		totalChunks += stored
	}

	s.logger.Printf("Ingested %d documents into %d chunks", len(documents), totalChunks)
	return totalChunks, nil
}

// Stats reports the size of the knowledge collection
func (s *IngestService) Stats(ctx context.Context) (*models.KnowledgeStats, error) {
	return s.vectorRepo.Stats(ctx)
}

// EnsureCollection creates the knowledge collection if it does not exist
func (s *IngestService) EnsureCollection(ctx context.Context) error {
	return s.vectorRepo.EnsureCollection(ctx)
}

func (s *IngestService) processDocument(ctx context.Context, doc models.IngestDocument) (int, error) {
	startTime := time.Now()

	texts, err := s.chunker.Split(doc.Content)
	if err != nil {
		return 0, fmt.Errorf("chunking failed: %w", err)
	}
	if len(texts) == 0 {
		s.logger.Printf("Document %s produced no chunks, skipping", doc.ID)
		return 0, nil
	}

	chunks := make([]*models.KnowledgeChunk, 0, len(texts))
	for i, text := range texts {
		chunks = append(chunks, &models.KnowledgeChunk{
			ID:   ChunkID(doc.ID, i),
			Text: text,
			Metadata: models.SourceMetadata{
				Title:       doc.Title,
				URL:         doc.URL,
				SourceType:  doc.SourceType,
				ChunkIndex:  i,
				TotalChunks: len(texts),
			},
		})
	}

	// Embed in bounded batches
	for start := 0; start < len(chunks); start += EmbedBatchSize {
		end := start + EmbedBatchSize
		if end > len(chunks) {
			end = len(chunks)
		}

		batch := make([]string, 0, end-start)
		for _, chunk := range chunks[start:end] {
			batch = append(batch, chunk.Text)
		}

		vectors, err := s.embedder.EmbedDocuments(ctx, batch)
		if err != nil {
			return 0, fmt.Errorf("embedding failed: %w", err)
		}
		for i, vector := range vectors {
			chunks[start+i].Vector = vector
		}
	}

	if err := s.vectorRepo.Upsert(ctx, chunks); err != nil {
		return 0, fmt.Errorf("upsert failed: %w", err)
	}

	s.logger.Printf("Document %s: %d chunks stored in %.2fms",
		doc.ID, len(chunks), time.Since(startTime).Seconds()*1000)

	return len(chunks), nil
}

// DecodeIngestPayload recovers the documents from a job payload. Payloads
// round-trip through JSON in the job store, so the slice arrives as
// []interface{}.
func DecodeIngestPayload(payload map[string]interface{}) ([]models.IngestDocument, error) {
	raw, ok := payload["documents"]
	if !ok {
		return nil, fmt.Errorf("job payload has no documents")
	}

	encoded, err := json.Marshal(raw)
	if err != nil {
		return nil, fmt.Errorf("failed to re-encode payload: %w", err)
	}

	var documents []models.IngestDocument
	if err := json.Unmarshal(encoded, &documents); err != nil {
		return nil, fmt.Errorf("failed to decode documents: %w", err)
	}
	return documents, nil
}
