package services

import (
	"context"
	"errors"
	"testing"

	"aven-support/internal/models"
	"aven-support/internal/repositories"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// ============================================================================
// Test Setup
// ============================================================================

func setupTestIngestService(t *testing.T) (*IngestService, *MockEmbedder, *MockVectorRepository, *MockJobRepository) {
	mockEmbedder := new(MockEmbedder)
	mockVectorRepo := new(MockVectorRepository)
	mockJobRepo := new(MockJobRepository)

	service := NewIngestService(NewChunker(), mockEmbedder, mockVectorRepo, mockJobRepo, testLogger())
	return service, mockEmbedder, mockVectorRepo, mockJobRepo
}

func testIngestRequest() *models.IngestRequest {
	return &models.IngestRequest{
		Documents: []models.IngestDocument{
			{
				ID:         "aven-faq",
				Title:      "Aven FAQ",
				URL:        "https://www.aven.com/support",
				SourceType: "faq",
				Content:    "Aven offers a credit card backed by home equity. The card earns 2% cashback on all purchases.",
			},
		},
	}
}

// ============================================================================
// SubmitIngest
// ============================================================================

func TestSubmitIngest_CreatesAndQueuesJob(t *testing.T) {
	service, _, _, mockJobRepo := setupTestIngestService(t)

	var created *repositories.Job
	mockJobRepo.On("CreateJob", mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) {
			created = args.Get(1).(*repositories.Job)
		}).
		Return(nil)
	mockJobRepo.On("EnqueueJob", mock.Anything, mock.Anything).Return(nil)

	accepted, err := service.SubmitIngest(context.Background(), testIngestRequest())
	require.NoError(t, err)

	assert.NotEmpty(t, accepted.JobID)
	assert.Equal(t, 1, accepted.DocumentCount)

	require.NotNil(t, created)
	assert.Equal(t, repositories.JobTypeKnowledgeIngest, created.Type)
	assert.Equal(t, repositories.JobStatusPending, created.Status)
	assert.Contains(t, created.Payload, "documents")

	mockJobRepo.AssertExpectations(t)
}

func TestSubmitIngest_AssignsMissingDocumentIDs(t *testing.T) {
	service, _, _, mockJobRepo := setupTestIngestService(t)

	mockJobRepo.On("CreateJob", mock.Anything, mock.Anything).Return(nil)
	mockJobRepo.On("EnqueueJob", mock.Anything, mock.Anything).Return(nil)

	request := &models.IngestRequest{
		Documents: []models.IngestDocument{
			{Title: "Untitled", Content: "Some support content."},
		},
	}

	_, err := service.SubmitIngest(context.Background(), request)
	require.NoError(t, err)
	assert.NotEmpty(t, request.Documents[0].ID)
}

func TestSubmitIngest_NoDocuments(t *testing.T) {
	service, _, _, _ := setupTestIngestService(t)

	_, err := service.SubmitIngest(context.Background(), &models.IngestRequest{})
	require.Error(t, err)

	var validationErr *ValidationError
	assert.ErrorAs(t, err, &validationErr)
}

func TestSubmitIngest_EmptyContent(t *testing.T) {
	service, _, _, _ := setupTestIngestService(t)

	_, err := service.SubmitIngest(context.Background(), &models.IngestRequest{
		Documents: []models.IngestDocument{{ID: "d1", Content: "   "}},
	})
	require.Error(t, err)

	var validationErr *ValidationError
	assert.ErrorAs(t, err, &validationErr)
}

func TestSubmitIngest_NoJobStore(t *testing.T) {
	mockEmbedder := new(MockEmbedder)
	mockVectorRepo := new(MockVectorRepository)
	service := NewIngestService(NewChunker(), mockEmbedder, mockVectorRepo, nil, testLogger())

	_, err := service.SubmitIngest(context.Background(), testIngestRequest())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ingestion unavailable")
}

// ============================================================================
// ProcessDocuments
// ============================================================================

func TestProcessDocuments_ChunksEmbedsAndUpserts(t *testing.T) {
	service, mockEmbedder, mockVectorRepo, _ := setupTestIngestService(t)

	mockVectorRepo.On("EnsureCollection", mock.Anything).Return(nil)
	// The document fits in a single chunk, so one vector comes back
	mockEmbedder.On("EmbedDocuments", mock.Anything, mock.Anything).
		Return([][]float32{make([]float32, models.EmbeddingDimension)}, nil)

	var stored []*models.KnowledgeChunk
	mockVectorRepo.On("Upsert", mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) {
			stored = append(stored, args.Get(1).([]*models.KnowledgeChunk)...)
		}).
		Return(nil)

	count, err := service.ProcessDocuments(context.Background(), testIngestRequest().Documents)
	require.NoError(t, err)

	assert.Equal(t, len(stored), count)
	require.NotEmpty(t, stored)
	assert.Equal(t, "aven-faq_chunk_0", stored[0].ID)
	assert.Equal(t, "Aven FAQ", stored[0].Metadata.Title)
	assert.Equal(t, len(stored), stored[0].Metadata.TotalChunks)
	assert.Len(t, stored[0].Vector, models.EmbeddingDimension)
}

func TestProcessDocuments_EnsureCollectionFailure(t *testing.T) {
	service, _, mockVectorRepo, _ := setupTestIngestService(t)

	mockVectorRepo.On("EnsureCollection", mock.Anything).Return(errors.New("chroma down"))

	_, err := service.ProcessDocuments(context.Background(), testIngestRequest().Documents)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to ensure collection")
}

func TestProcessDocuments_EmbedFailureNamesDocument(t *testing.T) {
	service, mockEmbedder, mockVectorRepo, _ := setupTestIngestService(t)

	mockVectorRepo.On("EnsureCollection", mock.Anything).Return(nil)
	mockEmbedder.On("EmbedDocuments", mock.Anything, mock.Anything).
		Return(nil, errors.New("rate limited"))

	_, err := service.ProcessDocuments(context.Background(), testIngestRequest().Documents)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "document aven-faq")
}

// ============================================================================
// Payload Decoding
// ============================================================================

func TestDecodeIngestPayload_RoundTrip(t *testing.T) {
	// Payloads arrive as generic JSON after the job store round-trip
	payload := map[string]interface{}{
		"documents": []interface{}{
			map[string]interface{}{
				"id":      "d1",
				"title":   "Doc",
				"content": "text",
			},
		},
	}

	documents, err := DecodeIngestPayload(payload)
	require.NoError(t, err)
	require.Len(t, documents, 1)
	assert.Equal(t, "d1", documents[0].ID)
	assert.Equal(t, "text", documents[0].Content)
}

func TestDecodeIngestPayload_MissingDocuments(t *testing.T) {
	_, err := DecodeIngestPayload(map[string]interface{}{})
	require.Error(t, err)
}
