package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/termfi/vaultd/internal/domain"
)

// SeriesSource defines the methods the series handler requires.
type SeriesSource interface {
	GetAll(ctx context.Context) ([]domain.Series, error)
	Get(ctx context.Context, id string) (domain.Series, error)
}

// SeriesHandler serves series-related HTTP endpoints.
type SeriesHandler struct {
	series SeriesSource
	logger *slog.Logger
}

// NewSeriesHandler creates a SeriesHandler with the given source and logger.
func NewSeriesHandler(series SeriesSource, logger *slog.Logger) *SeriesHandler {
	return &SeriesHandler{series: series, logger: logger}
}

// listSeriesResponse wraps the list series response.
type listSeriesResponse struct {
	Series []domain.Series `json:"series"`
}

// ListSeries returns the full series set.
// GET /api/series
func (h *SeriesHandler) ListSeries(w http.ResponseWriter, r *http.Request) {
	series, err := h.series.GetAll(r.Context())
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			writeJSON(w, http.StatusOK, listSeriesResponse{Series: []domain.Series{}})
			return
		}
		h.logger.ErrorContext(r.Context(), "handler: list series failed",
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to list series")
		return
	}

	if series == nil {
		series = []domain.Series{}
	}
	writeJSON(w, http.StatusOK, listSeriesResponse{Series: series})
}

// GetSeries returns one series by ID.
// GET /api/series/{id}
func (h *SeriesHandler) GetSeries(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	s, err := h.series.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) || errors.Is(err, domain.ErrUnknownSeries) {
			writeError(w, http.StatusNotFound, "series not found")
			return
		}
		h.logger.ErrorContext(r.Context(), "handler: get series failed",
			slog.String("series", id),
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to get series")
		return
	}

	writeJSON(w, http.StatusOK, s)
}
