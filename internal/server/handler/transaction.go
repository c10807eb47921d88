package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/termfi/vaultd/internal/domain"
)

// TransactionHandler serves transaction-history HTTP endpoints.
type TransactionHandler struct {
	history domain.TxHistoryStore
	account string
	logger  *slog.Logger
}

// NewTransactionHandler creates a TransactionHandler. account is the default
// when the query parameter is absent.
func NewTransactionHandler(history domain.TxHistoryStore, account string, logger *slog.Logger) *TransactionHandler {
	return &TransactionHandler{
		history: history,
		account: account,
		logger:  logger,
	}
}

// listTransactionsResponse wraps the transaction list response.
type listTransactionsResponse struct {
	Account      string            `json:"account"`
	Transactions []domain.TxRecord `json:"transactions"`
}

// ListTransactions returns finished transactions for an account, most
// recent first.
// GET /api/transactions?account=0x...&limit=50&offset=0&since=...&until=...
func (h *TransactionHandler) ListTransactions(w http.ResponseWriter, r *http.Request) {
	if h.history == nil {
		writeError(w, http.StatusNotImplemented, "transaction history is disabled")
		return
	}

	account := r.URL.Query().Get("account")
	if account == "" {
		account = h.account
	}

	recs, err := h.history.ListByAccount(r.Context(), account, parseListOpts(r))
	if err != nil {
		h.logger.ErrorContext(r.Context(), "handler: list transactions failed",
			slog.String("account", account),
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to list transactions")
		return
	}

	if recs == nil {
		recs = []domain.TxRecord{}
	}
	writeJSON(w, http.StatusOK, listTransactionsResponse{Account: account, Transactions: recs})
}

// GetTransaction returns the record for one transaction hash.
// GET /api/transactions/{handle}
func (h *TransactionHandler) GetTransaction(w http.ResponseWriter, r *http.Request) {
	if h.history == nil {
		writeError(w, http.StatusNotImplemented, "transaction history is disabled")
		return
	}

	handle := r.PathValue("handle")

	rec, err := h.history.GetByHandle(r.Context(), handle)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			writeError(w, http.StatusNotFound, "transaction not found")
			return
		}
		h.logger.ErrorContext(r.Context(), "handler: get transaction failed",
			slog.String("handle", handle),
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to get transaction")
		return
	}

	writeJSON(w, http.StatusOK, rec)
}
