package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"aven-support/internal/models"
	"aven-support/internal/services"
)

// apologyMessage is the user-facing text returned when the pipeline fails
const apologyMessage = "I apologize, but I encountered an error. Please try again."

// RAGOrchestrator runs the retrieval-augmented answer pipeline
type RAGOrchestrator interface {
	Answer(ctx context.Context, request *models.ChatRequest) (*models.ChatResult, error)
	Complete(ctx context.Context, request *models.CompletionRequest) (*models.CompletionResponse, error)
	StreamComplete(ctx context.Context, request *models.CompletionRequest) (<-chan models.StreamEvent, error)
}

// ChatHandler handles HTTP requests for the support chat endpoint
type ChatHandler struct {
	rag    RAGOrchestrator
	logger *log.Logger
}

// NewChatHandler creates a new chat handler
func NewChatHandler(rag RAGOrchestrator, logger *log.Logger) *ChatHandler {
	return &ChatHandler{
		rag:    rag,
		logger: logger,
	}
}

// Chat answers a support question
// @Summary Ask the support assistant
// @Description Answer a customer question using retrieved Aven knowledge
// @Tags chat
// @Accept json
// @Produce json
// @Param request body models.ChatRequest true "Chat request with message and optional history"
// @Success 200 {object} models.ChatResponse
// @Failure 400 {object} models.ErrorResponse
// @Failure 500 {object} models.ChatResponse
// @Router /chat [post]
func (h *ChatHandler) Chat(w http.ResponseWriter, r *http.Request) {
	var request models.ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		h.logger.Printf("Failed to decode chat request: %v", err)
		sendJSON(w, h.logger, http.StatusBadRequest, models.ErrorResponse{Error: "Invalid request body"})
		return
	}

	result, err := h.rag.Answer(r.Context(), &request)
	if err != nil {
		var validationErr *services.ValidationError
		if errors.As(err, &validationErr) {
			sendJSON(w, h.logger, http.StatusBadRequest, models.ErrorResponse{Error: "Message is required"})
			return
		}

		h.logger.Printf("Chat pipeline failed: %v", err)
		sendJSON(w, h.logger, http.StatusInternalServerError, models.ChatResponse{
			Response: apologyMessage,
			Error:    err.Error(),
		})
		return
	}

	sendJSON(w, h.logger, http.StatusOK, models.ChatResponse{
		Response:      result.Response,
		KnowledgeUsed: result.KnowledgeUsed,
		SourceCount:   result.SourceCount,
	})
}

// sendJSON writes a JSON response body with the given status
func sendJSON(w http.ResponseWriter, logger *log.Logger, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		logger.Printf("Failed to encode JSON: %v", err)
	}
}
