package handler

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/termfi/vaultd/internal/risk"
)

// RiskHandler serves the collateral-ratio band preview the borrow form uses
// to gate the action button before submission.
type RiskHandler struct {
	logger *slog.Logger
}

// NewRiskHandler creates a RiskHandler.
func NewRiskHandler(logger *slog.Logger) *RiskHandler {
	return &RiskHandler{logger: logger}
}

// riskResponse is the JSON shape of a band preview.
type riskResponse struct {
	Ratio   float64   `json:"ratio"`
	HasDebt bool      `json:"has_debt"`
	Band    risk.Band `json:"band"`
	Message string    `json:"message,omitempty"`
}

// Preview classifies a post-action collateral ratio.
// GET /api/risk?ratio=1.8&has_debt=true
func (h *RiskHandler) Preview(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	ratio, err := strconv.ParseFloat(q.Get("ratio"), 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "ratio query parameter required")
		return
	}

	hasDebt := true
	if v := q.Get("has_debt"); v != "" {
		parsed, err := strconv.ParseBool(v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "has_debt must be a boolean")
			return
		}
		hasDebt = parsed
	}

	ind := risk.Classify(ratio, hasDebt)
	writeJSON(w, http.StatusOK, riskResponse{
		Ratio:   ratio,
		HasDebt: hasDebt,
		Band:    ind.Band,
		Message: ind.Message,
	})
}
