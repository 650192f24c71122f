package services

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	"aven-support/internal/models"
)

const DefaultChatModel = "gpt-3.5-turbo"

// streamDoneMarker terminates an SSE completion stream
const streamDoneMarker = "[DONE]"

// CompletionError represents an error from the completion provider
type CompletionError struct {
	StatusCode int
	Message    string
	Err        error
}

func (e *CompletionError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("completion provider returned status %d: %s", e.StatusCode, e.Message)
	}
	return fmt.Sprintf("completion request failed: %s", e.Message)
}

func (e *CompletionError) Unwrap() error {
	return e.Err
}

// CompletionService handles chat completions against the OpenAI API
type CompletionService struct {
	baseURL    string
	apiKey     string
	model      string
	httpClient *http.Client
	logger     *log.Logger
}

// NewCompletionService creates a new completion service
func NewCompletionService(baseURL, apiKey, model string, timeout time.Duration, logger *log.Logger) *CompletionService {
	if baseURL == "" {
		baseURL = OpenAIBaseURL
	}
	if model == "" {
		model = DefaultChatModel
	}
	return &CompletionService{
		baseURL: baseURL,
		apiKey:  apiKey,
		model:   model,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		logger: logger,
	}
}

// Complete sends a blocking chat completion request
func (s *CompletionService) Complete(ctx context.Context, request *models.CompletionRequest) (*models.CompletionResponse, error) {
	req := *request
	req.Stream = false
	if req.Model == "" {
		req.Model = s.model
	}

	resp, err := s.send(ctx, &req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &CompletionError{Message: "failed to read response", Err: err}
	}

	var completion models.CompletionResponse
	if err := json.Unmarshal(body, &completion); err != nil {
		return nil, &CompletionError{Message: "failed to parse response", Err: err}
	}

	if len(completion.Choices) == 0 {
		return nil, &CompletionError{Message: "no choices in response"}
	}

	if s.logger != nil {
		s.logger.Printf("Completion finished (%d prompt tokens, %d completion tokens)",
			completion.Usage.PromptTokens, completion.Usage.CompletionTokens)
	}

	return &completion, nil
}

// StreamComplete sends a streaming chat completion request and returns a
// channel of events. The channel is closed when the stream ends, errors, or
// the context is cancelled. Cancelling the context closes the upstream body.
func (s *CompletionService) StreamComplete(ctx context.Context, request *models.CompletionRequest) (<-chan models.StreamEvent, error) {
	req := *request
	req.Stream = true
	if req.Model == "" {
		req.Model = s.model
	}

	resp, err := s.send(ctx, &req)
	if err != nil {
		return nil, err
	}

	events := make(chan models.StreamEvent)
	go s.readStream(ctx, resp.Body, events)
	return events, nil
}

// HealthCheck verifies the completion provider is reachable
func (s *CompletionService) HealthCheck(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, "GET", s.baseURL+"/models", nil)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+s.apiKey)

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("completion provider not reachable: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("completion provider returned status %d", resp.StatusCode)
	}
	return nil
}

// send posts the request and returns the raw response with a 2xx status.
// The caller owns the body.
func (s *CompletionService) send(ctx context.Context, request *models.CompletionRequest) (*http.Response, error) {
	jsonBody, err := json.Marshal(request)
	if err != nil {
		return nil, &CompletionError{Message: "failed to marshal request", Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, "POST", s.baseURL+"/chat/completions", bytes.NewBuffer(jsonBody))
	if err != nil {
		return nil, &CompletionError{Message: "failed to create request", Err: err}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+s.apiKey)
	if request.Stream {
		req.Header.Set("Accept", "text/event-stream")
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, &CompletionError{Message: "request failed", Err: err}
	}

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		resp.Body.Close()
		return nil, &CompletionError{StatusCode: resp.StatusCode, Message: string(body)}
	}

	return resp, nil
}

// readStream parses SSE frames off the body and forwards decoded chunks
func (s *CompletionService) readStream(ctx context.Context, body io.ReadCloser, events chan<- models.StreamEvent) {
	defer close(events)
	defer body.Close()

	// Close the body when the context ends so the scanner unblocks
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			body.Close()
		case <-done:
		}
	}()

	scanner := bufio.NewScanner(body)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || !strings.HasPrefix(line, "data:") {
			continue
		}

		data := strings.TrimSpace(strings.TrimPrefix(line, "data:"))
		if data == streamDoneMarker {
			return
		}

		var chunk models.CompletionChunk
		if err := json.Unmarshal([]byte(data), &chunk); err != nil {
			s.emit(ctx, events, models.StreamEvent{
				Err: &CompletionError{Message: "failed to parse stream chunk", Err: err},
			})
			return
		}

		if !s.emit(ctx, events, models.StreamEvent{Chunk: &chunk}) {
			return
		}
	}

	if err := scanner.Err(); err != nil && ctx.Err() == nil {
		s.emit(ctx, events, models.StreamEvent{
			Err: &CompletionError{Message: "stream read failed", Err: err},
		})
	}
}

// emit sends an event unless the context has ended. Reports whether the
// receiver is still listening.
func (s *CompletionService) emit(ctx context.Context, events chan<- models.StreamEvent, event models.StreamEvent) bool {
	select {
	case events <- event:
		return true
	case <-ctx.Done():
		return false
	}
}
