package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/termfi/vaultd/internal/domain"
)

// PositionSource defines the methods the position handler requires.
type PositionSource interface {
	ListByAccount(ctx context.Context, account string) ([]domain.Position, error)
}

// PositionHandler serves position-related HTTP endpoints.
type PositionHandler struct {
	positions PositionSource
	account   string // default when the query parameter is absent
	logger    *slog.Logger
}

// NewPositionHandler creates a PositionHandler. account is the connected
// signing account, used when no account query parameter is given.
func NewPositionHandler(positions PositionSource, account string, logger *slog.Logger) *PositionHandler {
	return &PositionHandler{
		positions: positions,
		account:   account,
		logger:    logger,
	}
}

// listPositionsResponse wraps the list positions response.
type listPositionsResponse struct {
	Account   string            `json:"account"`
	Positions []domain.Position `json:"positions"`
}

// ListPositions returns the per-series positions for an account, defaulting
// to the connected account.
// GET /api/positions?account=0x...
func (h *PositionHandler) ListPositions(w http.ResponseWriter, r *http.Request) {
	account := r.URL.Query().Get("account")
	if account == "" {
		account = h.account
	}

	positions, err := h.positions.ListByAccount(r.Context(), account)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "handler: list positions failed",
			slog.String("account", account),
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to list positions")
		return
	}

	if positions == nil {
		positions = []domain.Position{}
	}
	writeJSON(w, http.StatusOK, listPositionsResponse{Account: account, Positions: positions})
}
