package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/gorilla/mux"

	"aven-support/internal/models"
	"aven-support/internal/repositories"
	"aven-support/internal/services"
)

// IngestManager accepts knowledge documents and tracks their jobs
type IngestManager interface {
	SubmitIngest(ctx context.Context, request *models.IngestRequest) (*models.IngestAccepted, error)
	GetJob(ctx context.Context, jobID string) (*repositories.Job, error)
	Stats(ctx context.Context) (*models.KnowledgeStats, error)
	EnsureCollection(ctx context.Context) error
}

// IngestHandler handles HTTP requests for knowledge base administration
type IngestHandler struct {
	ingest IngestManager
	logger *log.Logger
}

// NewIngestHandler creates a new ingest handler
func NewIngestHandler(ingest IngestManager, logger *log.Logger) *IngestHandler {
	return &IngestHandler{
		ingest: ingest,
		logger: logger,
	}
}

// Ingest accepts documents for background ingestion
// @Summary Submit knowledge documents
// @Description Queue a batch of documents for chunking, embedding, and storage
// @Tags knowledge
// @Accept json
// @Produce json
// @Param request body models.IngestRequest true "Documents to ingest"
// @Success 202 {object} models.IngestAccepted
// @Failure 400 {object} models.ErrorResponse
// @Failure 503 {object} models.ErrorResponse
// @Router /ingest [post]
func (h *IngestHandler) Ingest(w http.ResponseWriter, r *http.Request) {
	var request models.IngestRequest
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		h.logger.Printf("Failed to decode ingest request: %v", err)
		sendJSON(w, h.logger, http.StatusBadRequest, models.ErrorResponse{Error: "Invalid request body"})
		return
	}

	accepted, err := h.ingest.SubmitIngest(r.Context(), &request)
	if err != nil {
		var validationErr *services.ValidationError
		if errors.As(err, &validationErr) {
			sendJSON(w, h.logger, http.StatusBadRequest, models.ErrorResponse{Error: validationErr.Error()})
			return
		}

		h.logger.Printf("Ingest submission failed: %v", err)
		sendJSON(w, h.logger, http.StatusServiceUnavailable, models.ErrorResponse{Error: err.Error()})
		return
	}

	sendJSON(w, h.logger, http.StatusAccepted, accepted)
}

// GetJob returns the state of an ingestion job
// @Summary Ingest job status
// @Description Return the status, progress, and result of an ingestion job
// @Tags knowledge
// @Produce json
// @Param id path string true "Job ID"
// @Success 200 {object} repositories.JobDTO
// @Failure 404 {object} models.ErrorResponse
// @Failure 500 {object} models.ErrorResponse
// @Router /ingest/jobs/{id} [get]
func (h *IngestHandler) GetJob(w http.ResponseWriter, r *http.Request) {
	jobID := mux.Vars(r)["id"]

	job, err := h.ingest.GetJob(r.Context(), jobID)
	if err != nil {
		if errors.Is(err, repositories.ErrJobNotFound) {
			sendJSON(w, h.logger, http.StatusNotFound, models.ErrorResponse{Error: "Job not found"})
			return
		}

		h.logger.Printf("Failed to get job %s: %v", jobID, err)
		sendJSON(w, h.logger, http.StatusInternalServerError, models.ErrorResponse{Error: err.Error()})
		return
	}

	sendJSON(w, h.logger, http.StatusOK, job.ToDTO())
}

// Stats reports the knowledge collection size
// @Summary Knowledge base statistics
// @Description Report the collection name and stored chunk count
// @Tags knowledge
// @Produce json
// @Success 200 {object} models.KnowledgeStats
// @Failure 500 {object} models.ErrorResponse
// @Router /knowledge/stats [get]
func (h *IngestHandler) Stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.ingest.Stats(r.Context())
	if err != nil {
		h.logger.Printf("Failed to get knowledge stats: %v", err)
		sendJSON(w, h.logger, http.StatusInternalServerError, models.ErrorResponse{Error: err.Error()})
		return
	}

	sendJSON(w, h.logger, http.StatusOK, stats)
}

// CreateCollection ensures the knowledge collection exists
// @Summary Create knowledge collection
// @Description Create the vector collection if it does not already exist
// @Tags knowledge
// @Produce json
// @Success 200 {object} models.BasicResponse
// @Failure 500 {object} models.ErrorResponse
// @Router /knowledge/collection [post]
func (h *IngestHandler) CreateCollection(w http.ResponseWriter, r *http.Request) {
	if err := h.ingest.EnsureCollection(r.Context()); err != nil {
		h.logger.Printf("Failed to create collection: %v", err)
		sendJSON(w, h.logger, http.StatusInternalServerError, models.ErrorResponse{Error: err.Error()})
		return
	}

	sendJSON(w, h.logger, http.StatusOK, models.BasicResponse{
		Message: "Collection ready",
		Status:  "success",
	})
}
