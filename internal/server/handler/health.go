package handler

import (
	"log/slog"
	"net/http"
	"time"
)

// HealthHandler serves the health-check endpoint.
type HealthHandler struct {
	account string
	chainID int64
	logger  *slog.Logger
}

// NewHealthHandler creates a HealthHandler reporting the connected account
// and chain.
func NewHealthHandler(account string, chainID int64, logger *slog.Logger) *HealthHandler {
	return &HealthHandler{account: account, chainID: chainID, logger: logger}
}

// HealthCheck responds with a simple JSON status indicating the daemon is
// alive and which account and chain it is serving.
// GET /api/health
func (h *HealthHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "ok",
		"account":   h.account,
		"chain_id":  h.chainID,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}
