package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/termfi/vaultd/internal/domain"
	"github.com/termfi/vaultd/internal/vault"
)

// ActionService defines the methods the action handler requires. Implemented
// by vault.Service.
type ActionService interface {
	Execute(ctx context.Context, req vault.ActionRequest) (domain.TxRecord, error)
	IsActive(kind domain.TxKind) bool
}

// ActionHandler serves the seven vault operations over HTTP.
type ActionHandler struct {
	actions ActionService
	logger  *slog.Logger
}

// NewActionHandler creates an ActionHandler with the given service and
// logger.
func NewActionHandler(actions ActionService, logger *slog.Logger) *ActionHandler {
	return &ActionHandler{actions: actions, logger: logger}
}

// actionRequest is the JSON body for POST /api/actions/{kind}.
type actionRequest struct {
	Collateral string `json:"collateral,omitempty"`
	SeriesID   string `json:"series_id,omitempty"`
	Amount     string `json:"amount"`
}

// Invoke runs one operation end to end and returns the finished record.
// The call blocks until the transaction confirms, reverts, or times out;
// intermediate state is visible through /api/notifications and the
// WebSocket feed while it runs.
// POST /api/actions/{kind}
func (h *ActionHandler) Invoke(w http.ResponseWriter, r *http.Request) {
	kind, err := domain.ParseTxKind(strings.ToUpper(r.PathValue("kind")))
	if err != nil {
		writeError(w, http.StatusBadRequest, "unknown action kind")
		return
	}

	var body actionRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	rec, err := h.actions.Execute(r.Context(), vault.ActionRequest{
		Kind:       kind,
		Collateral: domain.CollateralType(body.Collateral),
		SeriesID:   body.SeriesID,
		Amount:     body.Amount,
	})
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrInvalidAmount):
			writeError(w, http.StatusBadRequest, "invalid amount")
		case errors.Is(err, domain.ErrOperationActive):
			writeError(w, http.StatusConflict, "an operation of this kind is already in flight")
		case errors.Is(err, domain.ErrUnknownSeries):
			writeError(w, http.StatusNotFound, "unknown series")
		case errors.Is(err, domain.ErrDuplicateTx):
			writeError(w, http.StatusConflict, "transaction is already being tracked")
		default:
			h.logger.ErrorContext(r.Context(), "handler: action failed",
				slog.String("kind", string(kind)),
				slog.String("error", err.Error()),
			)
			writeError(w, http.StatusBadGateway, "action submission failed")
		}
		return
	}

	writeJSON(w, http.StatusOK, rec)
}

// activeResponse reports the in-flight flag per kind.
type activeResponse struct {
	Active map[string]bool `json:"active"`
}

// ListActive reports which operation kinds are currently in flight, which
// the front end uses to disable the matching buttons.
// GET /api/actions/active
func (h *ActionHandler) ListActive(w http.ResponseWriter, r *http.Request) {
	out := make(map[string]bool, len(domain.ValidTxKinds))
	for _, k := range domain.ValidTxKinds {
		out[string(k)] = h.actions.IsActive(k)
	}
	writeJSON(w, http.StatusOK, activeResponse{Active: out})
}
