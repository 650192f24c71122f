package handlers

import (
	"log"
	"net/http"

	"aven-support/internal/config"
	"aven-support/internal/models"
)

// ConfigHandler exposes the client-safe configuration the voice widget
// bootstraps from
type ConfigHandler struct {
	cfg    *config.Config
	logger *log.Logger
}

// NewConfigHandler creates a new config handler
func NewConfigHandler(cfg *config.Config, logger *log.Logger) *ConfigHandler {
	return &ConfigHandler{
		cfg:    cfg,
		logger: logger,
	}
}

// GetConfig returns the voice widget configuration
// @Summary Voice widget configuration
// @Description Return the client-safe assistant credentials for allowed origins
// @Tags config
// @Produce json
// @Success 200 {object} config.ClientSafeConfig
// @Failure 403 {object} models.ErrorResponse
// @Router /config [get]
func (h *ConfigHandler) GetConfig(w http.ResponseWriter, r *http.Request) {
	origin := r.Header.Get("Origin")
	if origin == "" {
		origin = r.Header.Get("Referer")
	}

	if !h.cfg.OriginAllowed(origin) {
		h.logger.Printf("Config request rejected for origin %q", origin)
		sendJSON(w, h.logger, http.StatusForbidden, models.ErrorResponse{Error: "Origin not allowed"})
		return
	}

	sendJSON(w, h.logger, http.StatusOK, h.cfg.ClientSafe())
}
