package services

import (
	"context"
	"encoding/json"
	"log"
	"math"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"aven-support/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ============================================================================
// Test Setup
// ============================================================================

func testLogger() *log.Logger {
	return log.New(os.Stdout, "[TEST] ", log.LstdFlags)
}

// newEmbeddingsServer fakes the OpenAI embeddings endpoint, echoing one
// fixed-dimension vector per input
func newEmbeddingsServer(t *testing.T, makeVector func(index int) []float32) *httptest.Server {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/embeddings", r.URL.Path)
		require.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))

		var req embeddingRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))

		resp := embeddingResponse{Model: req.Model}
		resp.Data = make([]struct {
			Index     int       `json:"index"`
			Embedding []float32 `json:"embedding"`
		}, len(req.Input))
		for i := range req.Input {
			resp.Data[i].Index = i
			resp.Data[i].Embedding = makeVector(i)
		}
		json.NewEncoder(w).Encode(resp)
	}))
	t.Cleanup(server.Close)
	return server
}

func unitVector(index int) []float32 {
	v := make([]float32, models.EmbeddingDimension)
	v[index%models.EmbeddingDimension] = 2.0 // non-unit on purpose
	return v
}

// ============================================================================
// Tests
// ============================================================================

func TestEmbedQuery_ReturnsNormalizedVector(t *testing.T) {
	server := newEmbeddingsServer(t, unitVector)
	service := NewEmbeddingService(server.URL, "test-key", "", 5*time.Second, testLogger())

	vector, err := service.EmbedQuery(context.Background(), "What is Aven?")
	require.NoError(t, err)
	require.Len(t, vector, models.EmbeddingDimension)

	var sum float64
	for _, v := range vector {
		sum += float64(v) * float64(v)
	}
	assert.InDelta(t, 1.0, math.Sqrt(sum), 1e-5)
}

func TestEmbedQuery_EmptyText(t *testing.T) {
	service := NewEmbeddingService("http://unused", "test-key", "", time.Second, testLogger())

	_, err := service.EmbedQuery(context.Background(), "")
	require.Error(t, err)

	var embedErr *EmbeddingError
	assert.ErrorAs(t, err, &embedErr)
}

func TestEmbedDocuments_PreservesOrder(t *testing.T) {
	server := newEmbeddingsServer(t, unitVector)
	service := NewEmbeddingService(server.URL, "test-key", "", 5*time.Second, testLogger())

	vectors, err := service.EmbedDocuments(context.Background(), []string{"first", "second", "third"})
	require.NoError(t, err)
	require.Len(t, vectors, 3)

	for i, vector := range vectors {
		assert.NotZero(t, vector[i], "vector %d should carry its index marker", i)
	}
}

func TestEmbedDocuments_Empty(t *testing.T) {
	service := NewEmbeddingService("http://unused", "test-key", "", time.Second, testLogger())

	vectors, err := service.EmbedDocuments(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, vectors)
}

func TestEmbed_ProviderError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		w.Write([]byte(`{"error":{"message":"rate limited"}}`))
	}))
	t.Cleanup(server.Close)

	service := NewEmbeddingService(server.URL, "test-key", "", time.Second, testLogger())

	_, err := service.EmbedQuery(context.Background(), "question")
	require.Error(t, err)

	var embedErr *EmbeddingError
	require.ErrorAs(t, err, &embedErr)
	assert.Equal(t, http.StatusTooManyRequests, embedErr.StatusCode)
}

func TestEmbed_WrongDimensionRejected(t *testing.T) {
	server := newEmbeddingsServer(t, func(index int) []float32 {
		return []float32{0.1, 0.2, 0.3}
	})
	service := NewEmbeddingService(server.URL, "test-key", "", time.Second, testLogger())

	_, err := service.EmbedQuery(context.Background(), "question")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "dimension")
}

func TestNormalize_ZeroVectorPassesThrough(t *testing.T) {
	zero := make([]float32, 4)
	assert.Equal(t, zero, normalize(zero))
}
