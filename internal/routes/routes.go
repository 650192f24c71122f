package routes

import (
	"net/http"

	"github.com/gorilla/mux"

	"aven-support/internal/handlers"
)

// Handlers bundles the application's HTTP handlers for route registration
type Handlers struct {
	Chat        *handlers.ChatHandler
	Completions *handlers.CompletionsHandler
	Config      *handlers.ConfigHandler
	Health      *handlers.HealthHandler
	Ingest      *handlers.IngestHandler
}

// RegisterRoutes sets up all application routes
func RegisterRoutes(router *mux.Router, h *Handlers) {
	// Health endpoints
	router.HandleFunc("/health", h.Health.Health).Methods(http.MethodGet)
	router.HandleFunc("/health/providers", h.Health.Providers).Methods(http.MethodGet)

	// Chat endpoints
	router.HandleFunc("/chat", h.Chat.Chat).Methods(http.MethodPost)
	router.HandleFunc("/chat/completions", h.Completions.Completions).Methods(http.MethodPost)

	// Voice widget configuration
	router.HandleFunc("/config", h.Config.GetConfig).Methods(http.MethodGet)

	// Knowledge base administration
	router.HandleFunc("/ingest", h.Ingest.Ingest).Methods(http.MethodPost)
	router.HandleFunc("/ingest/jobs/{id}", h.Ingest.GetJob).Methods(http.MethodGet)
	router.HandleFunc("/knowledge/stats", h.Ingest.Stats).Methods(http.MethodGet)
	router.HandleFunc("/knowledge/collection", h.Ingest.CreateCollection).Methods(http.MethodPost)
}
