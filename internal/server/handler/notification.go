package handler

import (
	"log/slog"
	"net/http"

	"github.com/termfi/vaultd/internal/tracker"
)

// NotificationHandler exposes the tracker state over HTTP: the current
// banner, the pending set, and the completed slot.
type NotificationHandler struct {
	store  *tracker.Store
	logger *slog.Logger
}

// NewNotificationHandler creates a NotificationHandler over the given
// tracker store.
func NewNotificationHandler(store *tracker.Store, logger *slog.Logger) *NotificationHandler {
	return &NotificationHandler{store: store, logger: logger}
}

// GetState returns the full tracker snapshot.
// GET /api/notifications
func (h *NotificationHandler) GetState(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.store.Snapshot())
}

// CloseBanner dismisses the current banner notification. Closing an already
// hidden banner is a no-op, so this always succeeds.
// POST /api/notifications/close
func (h *NotificationHandler) CloseBanner(w http.ResponseWriter, r *http.Request) {
	if err := h.store.Dispatch(tracker.CloseEvent{}); err != nil {
		h.logger.ErrorContext(r.Context(), "handler: close banner failed",
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to close notification")
		return
	}
	writeJSON(w, http.StatusOK, h.store.Snapshot())
}
