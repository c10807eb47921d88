// Package vault implements the tracked user operations against the
// lending protocol: deposit, withdraw, borrow, repay, sell, buy, redeem.
// Each operation follows the same lifecycle: validate input, mark the
// kind active, submit, track the pending transaction, classify the mined
// outcome, notify, and finally trigger a dependent-state refresh.
package vault

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/termfi/vaultd/internal/amount"
	"github.com/termfi/vaultd/internal/domain"
	"github.com/termfi/vaultd/internal/tracker"
)

// Protocol is the chain surface the service drives. Implemented by
// chain.Protocol; faked in tests.
type Protocol interface {
	Account() string
	Deposit(ctx context.Context, collateral domain.CollateralType, amt *big.Int) (domain.SubmittedTx, error)
	Withdraw(ctx context.Context, collateral domain.CollateralType, amt *big.Int) (domain.SubmittedTx, error)
	Borrow(ctx context.Context, collateral domain.CollateralType, seriesID string, amt *big.Int) (domain.SubmittedTx, error)
	Repay(ctx context.Context, collateral domain.CollateralType, seriesID string, amt *big.Int) (domain.SubmittedTx, error)
	Sell(ctx context.Context, seriesID string, amt *big.Int) (domain.SubmittedTx, error)
	Buy(ctx context.Context, seriesID string, amt *big.Int) (domain.SubmittedTx, error)
	Redeem(ctx context.Context, seriesID string, amt *big.Int) (domain.SubmittedTx, error)
}

// Refresher re-fetches dependent state (series, positions) after a
// state-changing action. Refresh failures are logged and never mask the
// transaction outcome.
type Refresher interface {
	RefreshAccount(ctx context.Context, account string) error
}

// ActionRequest carries one user-entered operation.
type ActionRequest struct {
	Kind       domain.TxKind
	Collateral domain.CollateralType // deposit, withdraw, borrow, repay
	SeriesID   string                // borrow, repay, sell, buy, redeem
	Amount     string                // human decimal, converted strictly
}

// noticeDuration is the auto-hide duration for informational banners.
// Error banners are sticky (duration 0) so the user cannot miss them.
const noticeDuration = 4 * time.Second

// Service executes action requests end to end. At most one operation per
// kind may be in flight; re-invocation while active is rejected rather
// than queued.
type Service struct {
	proto     Protocol
	tracker   *tracker.Store
	refresher Refresher
	history   domain.TxHistoryStore // optional
	audit     domain.AuditStore     // optional

	// confirmTimeout bounds the wait for a mined receipt. Zero disables
	// the bound, which leaves a stalled chain holding the kind active.
	confirmTimeout time.Duration

	mu     sync.Mutex
	active map[domain.TxKind]bool

	logger *slog.Logger
}

// NewService creates a Service. history and audit may be nil when
// persistence is disabled.
func NewService(
	proto Protocol,
	trk *tracker.Store,
	refresher Refresher,
	history domain.TxHistoryStore,
	audit domain.AuditStore,
	confirmTimeout time.Duration,
	logger *slog.Logger,
) *Service {
	return &Service{
		proto:          proto,
		tracker:        trk,
		refresher:      refresher,
		history:        history,
		audit:          audit,
		confirmTimeout: confirmTimeout,
		active:         make(map[domain.TxKind]bool),
		logger:         logger.With(slog.String("component", "vault")),
	}
}

// IsActive reports whether an operation of the given kind is in flight.
func (s *Service) IsActive(kind domain.TxKind) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.active[kind]
}

// Execute runs one operation through the full lifecycle and returns the
// finished record. Validation failures and submission failures surface
// both as an error notification and as the returned error; in those cases
// no pending transaction is ever registered.
func (s *Service) Execute(ctx context.Context, req ActionRequest) (domain.TxRecord, error) {
	log := s.logger.With(
		slog.String("kind", string(req.Kind)),
		slog.String("series", req.SeriesID),
	)

	if _, err := domain.ParseTxKind(string(req.Kind)); err != nil {
		return domain.TxRecord{}, err
	}

	if err := s.acquire(req.Kind); err != nil {
		return domain.TxRecord{}, err
	}
	defer s.release(req.Kind)

	amt, err := amount.ToBaseUnits(req.Amount, amount.TokenDecimals)
	if err != nil {
		s.notifyError(fmt.Sprintf("%s failed: invalid amount %q", verb(req.Kind), req.Amount))
		return domain.TxRecord{}, err
	}

	human := amount.FromBaseUnits(amt, amount.TokenDecimals)
	submittedAt := time.Now().UTC()

	submitted, err := s.submit(ctx, req, amt)
	if err != nil {
		log.Error("submission failed", slog.String("error", err.Error()))
		s.notifyError(fmt.Sprintf("%s of %s failed: %v", verb(req.Kind), human, err))
		return domain.TxRecord{}, err
	}

	handle := submitted.Handle()
	pendingMsg := fmt.Sprintf("%s %s pending", verb(req.Kind), human)
	if err := s.tracker.Dispatch(tracker.TxPendingEvent{
		Handle:  handle,
		Kind:    req.Kind,
		Message: pendingMsg,
	}); err != nil {
		// Duplicate handle: the chain re-used a hash we are already
		// tracking, which means a double submission slipped through.
		log.Error("pending registration rejected", slog.String("handle", handle), slog.String("error", err.Error()))
		return domain.TxRecord{}, err
	}
	s.notify(pendingMsg, domain.SeverityInfo, noticeDuration)

	outcome, waitErr := submitted.Wait(ctx, s.confirmTimeout)
	if outcome == "" {
		// Wait failed before the transaction could be classified (for
		// example the RPC connection dropped). Treat it as timed out so
		// the pending entry does not linger forever.
		outcome = domain.TxOutcomeTimedOut
	}
	s.complete(handle, outcome)

	rec := domain.TxRecord{
		ID:          uuid.New().String(),
		Handle:      handle,
		Kind:        req.Kind,
		Account:     s.proto.Account(),
		SeriesID:    req.SeriesID,
		Amount:      amt.String(),
		Outcome:     outcome,
		Message:     pendingMsg,
		SubmittedAt: submittedAt,
		CompletedAt: time.Now().UTC(),
	}
	s.record(ctx, rec, log)

	switch outcome {
	case domain.TxOutcomeConfirmed:
		log.Info("transaction confirmed", slog.String("handle", handle))
		s.notify(fmt.Sprintf("%s of %s confirmed", verb(req.Kind), human), domain.SeveritySuccess, noticeDuration)
	case domain.TxOutcomeReverted:
		log.Warn("transaction reverted", slog.String("handle", handle))
		s.notifyError(fmt.Sprintf("%s of %s reverted on chain", verb(req.Kind), human))
	case domain.TxOutcomeTimedOut:
		log.Warn("confirmation timed out", slog.String("handle", handle))
		s.notifyError(fmt.Sprintf("%s of %s timed out waiting for confirmation", verb(req.Kind), human))
	}

	// Refresh dependent state last, decoupled from the notification path:
	// a refresh failure must never mask the transaction outcome.
	if s.refresher != nil {
		if refreshErr := s.refresher.RefreshAccount(ctx, rec.Account); refreshErr != nil {
			log.Warn("post-action refresh failed", slog.String("error", refreshErr.Error()))
		}
	}

	if waitErr != nil && !errors.Is(waitErr, domain.ErrTxReverted) && !errors.Is(waitErr, domain.ErrTxTimeout) {
		return rec, waitErr
	}
	return rec, nil
}

// submit routes the request to the protocol entry point for its kind.
func (s *Service) submit(ctx context.Context, req ActionRequest, amt *big.Int) (domain.SubmittedTx, error) {
	switch req.Kind {
	case domain.TxDeposit:
		return s.proto.Deposit(ctx, req.Collateral, amt)
	case domain.TxWithdraw:
		return s.proto.Withdraw(ctx, req.Collateral, amt)
	case domain.TxBorrow:
		return s.proto.Borrow(ctx, req.Collateral, req.SeriesID, amt)
	case domain.TxRepay:
		return s.proto.Repay(ctx, req.Collateral, req.SeriesID, amt)
	case domain.TxSell:
		return s.proto.Sell(ctx, req.SeriesID, amt)
	case domain.TxBuy:
		return s.proto.Buy(ctx, req.SeriesID, amt)
	case domain.TxRedeem:
		return s.proto.Redeem(ctx, req.SeriesID, amt)
	default:
		return nil, domain.ErrUnknownKind
	}
}

func (s *Service) acquire(kind domain.TxKind) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.active[kind] {
		return fmt.Errorf("vault: %s: %w", kind, domain.ErrOperationActive)
	}
	s.active[kind] = true
	return nil
}

func (s *Service) release(kind domain.TxKind) {
	s.mu.Lock()
	delete(s.active, kind)
	s.mu.Unlock()
}

func (s *Service) complete(handle string, outcome domain.TxOutcome) {
	if err := s.tracker.Dispatch(tracker.TxCompleteEvent{Handle: handle, Outcome: outcome}); err != nil {
		s.logger.Warn("complete dispatch failed", slog.String("handle", handle), slog.String("error", err.Error()))
	}
}

func (s *Service) notify(msg string, sev domain.Severity, dur time.Duration) {
	if err := s.tracker.Dispatch(tracker.NotifyEvent{Message: msg, Severity: sev, Duration: dur}); err != nil {
		s.logger.Warn("notify dispatch failed", slog.String("error", err.Error()))
	}
}

func (s *Service) notifyError(msg string) {
	s.notify(msg, domain.SeverityError, 0)
}

// record persists the history row and audit entry, best effort.
func (s *Service) record(ctx context.Context, rec domain.TxRecord, log *slog.Logger) {
	if s.history != nil {
		if err := s.history.Insert(ctx, rec); err != nil {
			log.Warn("history insert failed", slog.String("handle", rec.Handle), slog.String("error", err.Error()))
		}
	}
	if s.audit != nil {
		if err := s.audit.Log(ctx, "tx_"+string(rec.Outcome), map[string]any{
			"handle": rec.Handle,
			"kind":   string(rec.Kind),
			"series": rec.SeriesID,
			"amount": rec.Amount,
		}); err != nil {
			log.Warn("audit log failed", slog.String("handle", rec.Handle), slog.String("error", err.Error()))
		}
	}
}

// verb maps a kind to the verb used in user-facing messages.
func verb(kind domain.TxKind) string {
	switch kind {
	case domain.TxDeposit:
		return "Deposit"
	case domain.TxWithdraw:
		return "Withdrawal"
	case domain.TxBorrow:
		return "Borrow"
	case domain.TxRepay:
		return "Repayment"
	case domain.TxSell:
		return "Sale"
	case domain.TxBuy:
		return "Purchase"
	case domain.TxRedeem:
		return "Redemption"
	default:
		return string(kind)
	}
}
