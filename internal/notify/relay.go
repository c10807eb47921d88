package notify

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/termfi/vaultd/internal/domain"
	"github.com/termfi/vaultd/internal/tracker"
)

// OutcomeRelay watches tracker snapshots and forwards each newly completed
// transaction to the Notifier as a "tx.<outcome>" event. Completions are
// deduplicated on handle plus completion time, since the completed slot is
// re-published with every snapshot until the next transaction overwrites it.
type OutcomeRelay struct {
	store    *tracker.Store
	notifier *Notifier
	logger   *slog.Logger
}

// NewOutcomeRelay creates an OutcomeRelay over the given tracker store.
func NewOutcomeRelay(store *tracker.Store, notifier *Notifier, logger *slog.Logger) *OutcomeRelay {
	return &OutcomeRelay{
		store:    store,
		notifier: notifier,
		logger:   logger.With(slog.String("component", "outcome_relay")),
	}
}

// Run subscribes to the tracker and relays completions until the context is
// cancelled. Delivery failures are logged; the relay never stops on them.
func (r *OutcomeRelay) Run(ctx context.Context) error {
	snaps, cancel := r.store.Subscribe()
	defer cancel()

	var lastHandle string
	var lastCompleted int64

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case snap, ok := <-snaps:
			if !ok {
				return nil
			}
			done := snap.Completed
			if done == nil {
				continue
			}
			at := done.CompletedAt.UnixNano()
			if done.Handle == lastHandle && at == lastCompleted {
				continue
			}
			lastHandle, lastCompleted = done.Handle, at

			event := "tx." + string(done.Outcome)
			title := fmt.Sprintf("%s %s", done.Kind, outcomeLabel(done.Outcome))
			if err := r.notifier.Notify(ctx, event, title, done.Message); err != nil {
				r.logger.Warn("relay delivery failed",
					slog.String("handle", done.Handle),
					slog.String("error", err.Error()),
				)
			}
		}
	}
}

func outcomeLabel(o domain.TxOutcome) string {
	switch o {
	case domain.TxOutcomeConfirmed:
		return "confirmed"
	case domain.TxOutcomeReverted:
		return "reverted"
	case domain.TxOutcomeTimedOut:
		return "timed out"
	default:
		return string(o)
	}
}
