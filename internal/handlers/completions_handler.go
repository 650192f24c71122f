package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"

	"aven-support/internal/models"
	"aven-support/internal/services"
)

// CompletionsHandler serves the OpenAI-compatible completion surface the
// voice-assistant platform calls
type CompletionsHandler struct {
	rag    RAGOrchestrator
	logger *log.Logger
}

// NewCompletionsHandler creates a new completions handler
func NewCompletionsHandler(rag RAGOrchestrator, logger *log.Logger) *CompletionsHandler {
	return &CompletionsHandler{
		rag:    rag,
		logger: logger,
	}
}

// Completions answers an OpenAI-style chat completion request, augmented
// with retrieved knowledge. With "stream": true the response is SSE.
// @Summary OpenAI-compatible completions
// @Description Chat completions augmented with retrieved Aven knowledge; supports SSE streaming
// @Tags chat
// @Accept json
// @Produce json
// @Param request body models.CompletionRequest true "OpenAI-style completion request"
// @Success 200 {object} models.CompletionResponse
// @Failure 400 {object} models.ErrorResponse
// @Failure 500 {object} models.ErrorResponse
// @Router /chat/completions [post]
func (h *CompletionsHandler) Completions(w http.ResponseWriter, r *http.Request) {
	var request models.CompletionRequest
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		h.logger.Printf("Failed to decode completion request: %v", err)
		sendJSON(w, h.logger, http.StatusBadRequest, models.ErrorResponse{Error: "Invalid request body"})
		return
	}

	if request.Stream {
		h.streamCompletion(w, r, &request)
		return
	}

	response, err := h.rag.Complete(r.Context(), &request)
	if err != nil {
		h.sendPipelineError(w, err)
		return
	}

	sendJSON(w, h.logger, http.StatusOK, response)
}

// streamCompletion relays provider chunks to the client as SSE frames
func (h *CompletionsHandler) streamCompletion(w http.ResponseWriter, r *http.Request, request *models.CompletionRequest) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		h.logger.Printf("Streaming unsupported by response writer")
		sendJSON(w, h.logger, http.StatusInternalServerError, models.ErrorResponse{Error: "Streaming not supported"})
		return
	}

	// Retrieval runs before any byte is written, so failures still get a
	// proper status code
	events, err := h.rag.StreamComplete(r.Context(), request)
	if err != nil {
		h.sendPipelineError(w, err)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	for event := range events {
		if event.Err != nil {
			h.logger.Printf("Completion stream failed mid-flight: %v", event.Err)
			// Headers are gone; terminate the stream
			break
		}

		data, err := json.Marshal(event.Chunk)
		if err != nil {
			h.logger.Printf("Failed to encode stream chunk: %v", err)
			break
		}

		fmt.Fprintf(w, "data: %s\n\n", data)
		flusher.Flush()
	}

	fmt.Fprint(w, "data: [DONE]\n\n")
	flusher.Flush()
}

func (h *CompletionsHandler) sendPipelineError(w http.ResponseWriter, err error) {
	var validationErr *services.ValidationError
	if errors.As(err, &validationErr) {
		sendJSON(w, h.logger, http.StatusBadRequest, models.ErrorResponse{Error: validationErr.Error()})
		return
	}

	h.logger.Printf("Completion pipeline failed: %v", err)
	sendJSON(w, h.logger, http.StatusInternalServerError, models.ErrorResponse{Error: err.Error()})
}
