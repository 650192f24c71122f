package services

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"aven-support/internal/config"
	"aven-support/internal/models"
	"aven-support/internal/repositories"
)

// ValidationError represents a rejected request
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Message)
}

// Embedder converts text into vectors
type Embedder interface {
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
	EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error)
	HealthCheck(ctx context.Context) error
}

// Completer produces chat completions
type Completer interface {
	Complete(ctx context.Context, request *models.CompletionRequest) (*models.CompletionResponse, error)
	StreamComplete(ctx context.Context, request *models.CompletionRequest) (<-chan models.StreamEvent, error)
	HealthCheck(ctx context.Context) error
}

// RAGService orchestrates the retrieval-augmented answer pipeline:
// embed the question, search the knowledge base, assemble context, and
// complete against the provider.
type RAGService struct {
	embedder   Embedder
	completer  Completer
	vectorRepo repositories.VectorRepository
	assembler  *ContextAssembler
	builder    *PromptBuilder
	cfg        *config.Config
	logger     *log.Logger
}

// NewRAGService creates a new RAG orchestrator
func NewRAGService(
	embedder Embedder,
	completer Completer,
	vectorRepo repositories.VectorRepository,
	cfg *config.Config,
	logger *log.Logger,
) *RAGService {
	return &RAGService{
		embedder:   embedder,
		completer:  completer,
		vectorRepo: vectorRepo,
		assembler:  NewContextAssembler(cfg.RetrievalMinScore),
		builder:    NewPromptBuilder(cfg.MaxHistoryMessages),
		cfg:        cfg,
		logger:     logger,
	}
}

// retrieval holds the outcome of the embed-and-search stages
type retrieval struct {
	matches []*models.RetrievalMatch
	context *models.AssembledContext
}

// Answer runs the full pipeline for a single question
func (s *RAGService) Answer(ctx context.Context, request *models.ChatRequest) (*models.ChatResult, error) {
	if strings.TrimSpace(request.Message) == "" {
		return nil, &ValidationError{Field: "message", Message: "message is required"}
	}

	startTime := time.Now()
	s.logger.Printf("User question: %s", request.Message)

	ret, err := s.retrieve(ctx, request.Message)
	if err != nil {
		return nil, err
	}

	messages := s.builder.Build(ret.context.JoinedText, request.History, request.Message)

	completion, err := s.complete(ctx, &models.CompletionRequest{
		Messages:    messages,
		MaxTokens:   s.cfg.MaxTokens,
		Temperature: &s.cfg.Temperature,
	})
	if err != nil {
		return nil, err
	}

	answer := completion.Text()
	if answer == "" {
		answer = "I apologize, but I couldn't generate a response."
	}

	s.logger.Printf("Answer generated in %.2fms (sources: %d, knowledge used: %t)",
		time.Since(startTime).Seconds()*1000, len(ret.matches), ret.context.JoinedText != "")

	return &models.ChatResult{
		Response:      answer,
		KnowledgeUsed: ret.context.JoinedText != "",
		SourceCount:   len(ret.matches),
	}, nil
}

// Complete augments an OpenAI-style completion request with retrieved
// knowledge and forwards it blocking
func (s *RAGService) Complete(ctx context.Context, request *models.CompletionRequest) (*models.CompletionResponse, error) {
	question, history, err := splitCompletionMessages(request.Messages)
	if err != nil {
		return nil, err
	}

	ret, err := s.retrieve(ctx, question)
	if err != nil {
		return nil, err
	}

	augmented := s.augment(request, ret, history, question)
	augmented.Stream = false
	return s.complete(ctx, augmented)
}

// StreamComplete is Complete with a streamed response. The retrieval stages
// run before the first event is produced.
func (s *RAGService) StreamComplete(ctx context.Context, request *models.CompletionRequest) (<-chan models.StreamEvent, error) {
	question, history, err := splitCompletionMessages(request.Messages)
	if err != nil {
		return nil, err
	}

	ret, err := s.retrieve(ctx, question)
	if err != nil {
		return nil, err
	}

	augmented := s.augment(request, ret, history, question)
	augmented.Stream = true
	return s.completer.StreamComplete(ctx, augmented)
}

// retrieve runs the embed and search stages under their own deadlines
func (s *RAGService) retrieve(ctx context.Context, question string) (*retrieval, error) {
	s.logger.Printf("Searching knowledge base...")

	embedStart := time.Now()
	embedCtx, cancel := context.WithTimeout(ctx, s.cfg.EmbedTimeout)
	vector, err := s.embedder.EmbedQuery(embedCtx, question)
	cancel()
	if err != nil {
		s.logger.Printf("Failed to embed question: %v", err)
		return nil, fmt.Errorf("failed to embed question: %w", err)
	}
	embedTime := time.Since(embedStart).Seconds() * 1000

	queryStart := time.Now()
	queryCtx, cancel := context.WithTimeout(ctx, s.cfg.QueryTimeout)
	matches, err := s.vectorRepo.Query(queryCtx, vector, s.cfg.RetrievalTopK, true)
	cancel()
	if err != nil {
		s.logger.Printf("Vector search failed: %v", err)
		return nil, fmt.Errorf("search failed: %w", err)
	}

	assembled := s.assembler.Assemble(matches)
	s.logger.Printf("Found %d knowledge pieces, %d above threshold (embed: %.2fms, search: %.2fms)",
		len(matches), len(assembled.Passages), embedTime, time.Since(queryStart).Seconds()*1000)

	return &retrieval{matches: matches, context: assembled}, nil
}

// complete forwards a blocking completion under its own deadline
func (s *RAGService) complete(ctx context.Context, request *models.CompletionRequest) (*models.CompletionResponse, error) {
	completeCtx, cancel := context.WithTimeout(ctx, s.cfg.CompleteTimeout)
	defer cancel()

	completion, err := s.completer.Complete(completeCtx, request)
	if err != nil {
		s.logger.Printf("Completion failed: %v", err)
		return nil, fmt.Errorf("completion failed: %w", err)
	}
	return completion, nil
}

// augment rebuilds the caller's messages around the retrieved knowledge,
// keeping the caller's sampling parameters where set
func (s *RAGService) augment(request *models.CompletionRequest, ret *retrieval, history []models.ChatMessage, question string) *models.CompletionRequest {
	augmented := *request
	augmented.Messages = s.builder.Build(ret.context.JoinedText, history, question)
	if augmented.MaxTokens == 0 {
		augmented.MaxTokens = s.cfg.MaxTokens
	}
	if augmented.Temperature == nil {
		augmented.Temperature = &s.cfg.Temperature
	}
	return &augmented
}

// splitCompletionMessages peels the question off a completion request. The
// final message must be from the user.
func splitCompletionMessages(messages []models.ChatMessage) (string, []models.ChatMessage, error) {
	if len(messages) == 0 {
		return "", nil, &ValidationError{Field: "messages", Message: "at least one message is required"}
	}

	last := messages[len(messages)-1]
	if last.Role != models.RoleUser {
		return "", nil, &ValidationError{Field: "messages", Message: "last message must have role \"user\""}
	}
	if strings.TrimSpace(last.Content) == "" {
		return "", nil, &ValidationError{Field: "messages", Message: "last message content is required"}
	}

	return last.Content, messages[:len(messages)-1], nil
}
