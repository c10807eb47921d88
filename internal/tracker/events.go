package tracker

import (
	"time"

	"github.com/termfi/vaultd/internal/domain"
)

// Event is the tagged union of everything the store can be asked to do.
// Each reducer case is a concrete event type; Dispatch is exhaustive over
// them and rejects anything else.
type Event interface {
	isEvent()
}

// NotifyEvent shows a banner. Duration 0 keeps it visible until a
// CloseEvent arrives; otherwise the banner auto-hides after Duration.
type NotifyEvent struct {
	Message  string
	Severity domain.Severity
	Duration time.Duration
}

// CloseEvent hides the banner immediately. Closing an already-hidden
// banner is a no-op.
type CloseEvent struct{}

// TxPendingEvent appends a transaction to the pending set.
type TxPendingEvent struct {
	Handle  string
	Kind    domain.TxKind
	Message string
}

// TxCompleteEvent removes the pending entry matching Handle and promotes it
// to the completed slot. An unmatched handle is a no-op.
type TxCompleteEvent struct {
	Handle  string
	Outcome domain.TxOutcome
}

func (NotifyEvent) isEvent()     {}
func (CloseEvent) isEvent()      {}
func (TxPendingEvent) isEvent()  {}
func (TxCompleteEvent) isEvent() {}
