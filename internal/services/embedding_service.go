package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"math"
	"net/http"
	"time"

	"aven-support/internal/models"
)

const (
	OpenAIBaseURL         = "https://api.openai.com/v1"
	DefaultEmbeddingModel = "text-embedding-3-small"
)

// EmbeddingError represents an error from the embedding provider
type EmbeddingError struct {
	StatusCode int
	Message    string
	Err        error
}

func (e *EmbeddingError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("embedding provider returned status %d: %s", e.StatusCode, e.Message)
	}
	return fmt.Sprintf("embedding request failed: %s", e.Message)
}

func (e *EmbeddingError) Unwrap() error {
	return e.Err
}

// embeddingRequest is the OpenAI embeddings API request body
type embeddingRequest struct {
	Model string   `json:"model"`
	Input []string `json:"input"`
}

// embeddingResponse is the OpenAI embeddings API response body
type embeddingResponse struct {
	Data []struct {
		Index     int       `json:"index"`
		Embedding []float32 `json:"embedding"`
	} `json:"data"`
	Model string `json:"model"`
	Usage struct {
		PromptTokens int `json:"prompt_tokens"`
		TotalTokens  int `json:"total_tokens"`
	} `json:"usage"`
}

// EmbeddingService converts text into vectors via the OpenAI embeddings API
type EmbeddingService struct {
	baseURL    string
	apiKey     string
	model      string
	httpClient *http.Client
	logger     *log.Logger
}

// NewEmbeddingService creates a new embedding service
func NewEmbeddingService(baseURL, apiKey, model string, timeout time.Duration, logger *log.Logger) *EmbeddingService {
	if baseURL == "" {
		baseURL = OpenAIBaseURL
	}
	if model == "" {
		model = DefaultEmbeddingModel
	}
	return &EmbeddingService{
		baseURL: baseURL,
		apiKey:  apiKey,
		model:   model,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		logger: logger,
	}
}

// EmbedQuery embeds a single query string and returns a unit-length vector
func (s *EmbeddingService) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	if text == "" {
		return nil, &EmbeddingError{Message: "text is required"}
	}

	vectors, err := s.embed(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

// EmbedDocuments embeds a batch of texts, preserving input order
func (s *EmbeddingService) EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return [][]float32{}, nil
	}
	for i, text := range texts {
		if text == "" {
			return nil, &EmbeddingError{Message: fmt.Sprintf("text at index %d is empty", i)}
		}
	}
	return s.embed(ctx, texts)
}

// HealthCheck verifies the embedding provider is reachable
func (s *EmbeddingService) HealthCheck(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, "GET", s.baseURL+"/models", nil)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+s.apiKey)

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("embedding provider not reachable: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("embedding provider returned status %d", resp.StatusCode)
	}
	return nil
}

func (s *EmbeddingService) embed(ctx context.Context, input []string) ([][]float32, error) {
	startTime := time.Now()

	jsonBody, err := json.Marshal(embeddingRequest{
		Model: s.model,
		Input: input,
	})
	if err != nil {
		return nil, &EmbeddingError{Message: "failed to marshal request", Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, "POST", s.baseURL+"/embeddings", bytes.NewBuffer(jsonBody))
	if err != nil {
		return nil, &EmbeddingError{Message: "failed to create request", Err: err}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+s.apiKey)

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, &EmbeddingError{Message: "request failed", Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &EmbeddingError{Message: "failed to read response", Err: err}
	}

	if resp.StatusCode != http.StatusOK {
		return nil, &EmbeddingError{StatusCode: resp.StatusCode, Message: string(body)}
	}

	var embedResp embeddingResponse
	if err := json.Unmarshal(body, &embedResp); err != nil {
		return nil, &EmbeddingError{Message: "failed to parse response", Err: err}
	}

	if len(embedResp.Data) != len(input) {
		return nil, &EmbeddingError{
			Message: fmt.Sprintf("expected %d embeddings, got %d", len(input), len(embedResp.Data)),
		}
	}

	// The API documents order-by-index; re-place rather than assume
	vectors := make([][]float32, len(input))
	for _, item := range embedResp.Data {
		if item.Index < 0 || item.Index >= len(vectors) {
			return nil, &EmbeddingError{Message: fmt.Sprintf("embedding index %d out of range", item.Index)}
		}
		if len(item.Embedding) != models.EmbeddingDimension {
			return nil, &EmbeddingError{
				Message: fmt.Sprintf("embedding dimension %d, expected %d", len(item.Embedding), models.EmbeddingDimension),
			}
		}
		vectors[item.Index] = normalize(item.Embedding)
	}

	if s.logger != nil {
		s.logger.Printf("Embedded %d texts in %.2fms (%d tokens)",
			len(input), time.Since(startTime).Seconds()*1000, embedResp.Usage.TotalTokens)
	}

	return vectors, nil
}

// normalize scales a vector to unit L2 length. Zero vectors pass through
// unchanged.
func normalize(vector []float32) []float32 {
	var sum float64
	for _, v := range vector {
		sum += float64(v) * float64(v)
	}
	if sum == 0 {
		return vector
	}

	norm := float32(math.Sqrt(sum))
	result := make([]float32, len(vector))
	for i, v := range vector {
		result[i] = v / norm
	}
	return result
}
