package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"aven-support/internal/models"
	"aven-support/internal/repositories"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// ============================================================================
// Mocks
// ============================================================================

type MockVectorStore struct {
	mock.Mock
}

func (m *MockVectorStore) EnsureCollection(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

func (m *MockVectorStore) Upsert(ctx context.Context, chunks []*models.KnowledgeChunk) error {
	return m.Called(ctx, chunks).Error(0)
}

func (m *MockVectorStore) Query(ctx context.Context, vector []float32, topK int, includeMetadata bool) ([]*models.RetrievalMatch, error) {
	args := m.Called(ctx, vector, topK, includeMetadata)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.RetrievalMatch), args.Error(1)
}

func (m *MockVectorStore) Stats(ctx context.Context) (*models.KnowledgeStats, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.KnowledgeStats), args.Error(1)
}

func (m *MockVectorStore) Ping(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

func (m *MockVectorStore) Close() error {
	return m.Called().Error(0)
}

type MockJobStore struct {
	mock.Mock
}

func (m *MockJobStore) CreateJob(ctx context.Context, job *repositories.Job) error {
	return m.Called(ctx, job).Error(0)
}

func (m *MockJobStore) GetJob(ctx context.Context, jobID string) (*repositories.Job, error) {
	args := m.Called(ctx, jobID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*repositories.Job), args.Error(1)
}

func (m *MockJobStore) UpdateJob(ctx context.Context, job *repositories.Job) error {
	return m.Called(ctx, job).Error(0)
}

func (m *MockJobStore) UpdateJobStatus(ctx context.Context, jobID string, status repositories.JobStatus, progress int, message string) error {
	return m.Called(ctx, jobID, status, progress, message).Error(0)
}

func (m *MockJobStore) UpdateJobResult(ctx context.Context, jobID string, result map[string]interface{}) error {
	return m.Called(ctx, jobID, result).Error(0)
}

func (m *MockJobStore) EnqueueJob(ctx context.Context, job *repositories.Job) error {
	return m.Called(ctx, job).Error(0)
}

func (m *MockJobStore) DequeueJob(ctx context.Context, jobType repositories.JobType) (*repositories.Job, error) {
	args := m.Called(ctx, jobType)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*repositories.Job), args.Error(1)
}

func (m *MockJobStore) ListJobsByStatus(ctx context.Context, status repositories.JobStatus) ([]*repositories.Job, error) {
	args := m.Called(ctx, status)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*repositories.Job), args.Error(1)
}

func (m *MockJobStore) Ping(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

func (m *MockJobStore) Close() error {
	return m.Called().Error(0)
}

type MockProvider struct {
	mock.Mock
}

func (m *MockProvider) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	args := m.Called(ctx, text)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]float32), args.Error(1)
}

func (m *MockProvider) EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error) {
	args := m.Called(ctx, texts)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([][]float32), args.Error(1)
}

func (m *MockProvider) Complete(ctx context.Context, request *models.CompletionRequest) (*models.CompletionResponse, error) {
	args := m.Called(ctx, request)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.CompletionResponse), args.Error(1)
}

func (m *MockProvider) StreamComplete(ctx context.Context, request *models.CompletionRequest) (<-chan models.StreamEvent, error) {
	args := m.Called(ctx, request)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(<-chan models.StreamEvent), args.Error(1)
}

func (m *MockProvider) HealthCheck(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

// ============================================================================
// Tests
// ============================================================================

func TestHealth(t *testing.T) {
	handler := NewHealthHandler(new(MockVectorStore), nil, new(MockProvider), new(MockProvider), testHandlerLogger())

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	recorder := httptest.NewRecorder()
	handler.Health(recorder, req)

	assert.Equal(t, http.StatusOK, recorder.Code)

	var response models.BasicResponse
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &response))
	assert.Equal(t, "Server is healthy", response.Message)
	assert.Equal(t, "success", response.Status)
}

func TestProviders_AllUp(t *testing.T) {
	vectorStore := new(MockVectorStore)
	jobStore := new(MockJobStore)
	embedder := new(MockProvider)
	completer := new(MockProvider)

	vectorStore.On("Ping", mock.Anything).Return(nil)
	jobStore.On("Ping", mock.Anything).Return(nil)
	embedder.On("HealthCheck", mock.Anything).Return(nil)
	completer.On("HealthCheck", mock.Anything).Return(nil)

	handler := NewHealthHandler(vectorStore, jobStore, embedder, completer, testHandlerLogger())

	req := httptest.NewRequest(http.MethodGet, "/health/providers", nil)
	recorder := httptest.NewRecorder()
	handler.Providers(recorder, req)

	assert.Equal(t, http.StatusOK, recorder.Code)

	var response ProvidersResponse
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &response))
	assert.Equal(t, "success", response.Status)
	require.Len(t, response.Providers, 4)
	for _, provider := range response.Providers {
		assert.Equal(t, "up", provider.Status, provider.Name)
	}
}

func TestProviders_VectorStoreDown(t *testing.T) {
	vectorStore := new(MockVectorStore)
	jobStore := new(MockJobStore)
	embedder := new(MockProvider)
	completer := new(MockProvider)

	vectorStore.On("Ping", mock.Anything).Return(errors.New("connection refused"))
	jobStore.On("Ping", mock.Anything).Return(nil)
	embedder.On("HealthCheck", mock.Anything).Return(nil)
	completer.On("HealthCheck", mock.Anything).Return(nil)

	handler := NewHealthHandler(vectorStore, jobStore, embedder, completer, testHandlerLogger())

	req := httptest.NewRequest(http.MethodGet, "/health/providers", nil)
	recorder := httptest.NewRecorder()
	handler.Providers(recorder, req)

	assert.Equal(t, http.StatusServiceUnavailable, recorder.Code)

	var response ProvidersResponse
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &response))
	assert.Equal(t, "degraded", response.Status)

	var chroma ProviderHealth
	for _, provider := range response.Providers {
		if provider.Name == "chromadb" {
			chroma = provider
		}
	}
	assert.Equal(t, "down", chroma.Status)
	assert.Contains(t, chroma.Error, "connection refused")
}

func TestProviders_RedisNotConfigured(t *testing.T) {
	vectorStore := new(MockVectorStore)
	embedder := new(MockProvider)
	completer := new(MockProvider)

	vectorStore.On("Ping", mock.Anything).Return(nil)
	embedder.On("HealthCheck", mock.Anything).Return(nil)
	completer.On("HealthCheck", mock.Anything).Return(nil)

	handler := NewHealthHandler(vectorStore, nil, embedder, completer, testHandlerLogger())

	req := httptest.NewRequest(http.MethodGet, "/health/providers", nil)
	recorder := httptest.NewRecorder()
	handler.Providers(recorder, req)

	assert.Equal(t, http.StatusServiceUnavailable, recorder.Code)

	var response ProvidersResponse
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &response))
	assert.Equal(t, "degraded", response.Status)

	var redisHealth ProviderHealth
	for _, provider := range response.Providers {
		if provider.Name == "redis" {
			redisHealth = provider
		}
	}
	assert.Equal(t, "down", redisHealth.Status)
	assert.Equal(t, "not configured", redisHealth.Error)
}
