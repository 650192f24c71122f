package handlers

import (
	"context"
	"log"
	"net/http"
	"time"

	"aven-support/internal/models"
	"aven-support/internal/repositories"
	"aven-support/internal/services"
)

const providerCheckTimeout = 5 * time.Second

// ProviderHealth reports the reachability of one upstream dependency
type ProviderHealth struct {
	Name   string `json:"name"`
	Status string `json:"status"` // "up" or "down"
	Error  string `json:"error,omitempty"`
}

// ProvidersResponse is the body of GET /health/providers
type ProvidersResponse struct {
	Status    string           `json:"status"` // "success" when every provider is up
	Providers []ProviderHealth `json:"providers"`
}

// HealthHandler serves liveness and dependency health checks
type HealthHandler struct {
	vectorRepo repositories.VectorRepository
	jobRepo    repositories.JobRepository
	embedder   services.Embedder
	completer  services.Completer
	logger     *log.Logger
}

// NewHealthHandler creates a new health handler. jobRepo may be nil when
// Redis is not configured.
func NewHealthHandler(
	vectorRepo repositories.VectorRepository,
	jobRepo repositories.JobRepository,
	embedder services.Embedder,
	completer services.Completer,
	logger *log.Logger,
) *HealthHandler {
	return &HealthHandler{
		vectorRepo: vectorRepo,
		jobRepo:    jobRepo,
		embedder:   embedder,
		completer:  completer,
		logger:     logger,
	}
}

// Health reports process liveness
// @Summary Health check
// @Description Report that the server process is up
// @Tags health
// @Produce json
// @Success 200 {object} models.BasicResponse
// @Router /health [get]
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	sendJSON(w, h.logger, http.StatusOK, models.BasicResponse{
		Message: "Server is healthy",
		Status:  "success",
	})
}

// Providers probes each upstream dependency
// @Summary Provider health
// @Description Probe the vector store, job store, and AI providers
// @Tags health
// @Produce json
// @Success 200 {object} ProvidersResponse
// @Failure 503 {object} ProvidersResponse
// @Router /health/providers [get]
func (h *HealthHandler) Providers(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), providerCheckTimeout)
	defer cancel()

	providers := []ProviderHealth{
		h.probe("chromadb", func() error { return h.vectorRepo.Ping(ctx) }),
		h.probe("openai-embeddings", func() error { return h.embedder.HealthCheck(ctx) }),
		h.probe("openai-completions", func() error { return h.completer.HealthCheck(ctx) }),
	}

	if h.jobRepo != nil {
		providers = append(providers, h.probe("redis", func() error { return h.jobRepo.Ping(ctx) }))
	} else {
		providers = append(providers, ProviderHealth{
			Name:   "redis",
			Status: "down",
			Error:  "not configured",
		})
	}

	status := "success"
	httpStatus := http.StatusOK
	for _, provider := range providers {
		if provider.Status != "up" {
			status = "degraded"
			httpStatus = http.StatusServiceUnavailable
			break
		}
	}

	sendJSON(w, h.logger, httpStatus, ProvidersResponse{
		Status:    status,
		Providers: providers,
	})
}

func (h *HealthHandler) probe(name string, check func() error) ProviderHealth {
	if err := check(); err != nil {
		h.logger.Printf("Provider %s unhealthy: %v", name, err)
		return ProviderHealth{Name: name, Status: "down", Error: err.Error()}
	}
	return ProviderHealth{Name: name, Status: "up"}
}
