package domain

import (
	"context"
	"time"
)

// TxKind enumerates the user-facing vault operations.
type TxKind string

const (
	TxDeposit  TxKind = "DEPOSIT"
	TxWithdraw TxKind = "WITHDRAW"
	TxBorrow   TxKind = "BORROW"
	TxRepay    TxKind = "REPAY"
	TxSell     TxKind = "SELL"
	TxBuy      TxKind = "BUY"
	TxRedeem   TxKind = "REDEEM"
)

// ValidTxKinds lists every accepted TxKind, in display order.
var ValidTxKinds = []TxKind{
	TxDeposit, TxWithdraw, TxBorrow, TxRepay, TxSell, TxBuy, TxRedeem,
}

// ParseTxKind converts a string into a TxKind, returning ErrUnknownKind for
// anything outside the fixed set.
func ParseTxKind(s string) (TxKind, error) {
	for _, k := range ValidTxKinds {
		if string(k) == s {
			return k, nil
		}
	}
	return "", ErrUnknownKind
}

// PendingTx is the client-side bookkeeping record for an in-flight on-chain
// transaction. Handle is the chain-assigned transaction hash and is the
// identity key: the pending set holds at most one entry per handle.
type PendingTx struct {
	Handle      string
	Kind        TxKind
	Message     string
	SubmittedAt time.Time
}

// TxOutcome classifies how a tracked transaction finished.
type TxOutcome string

const (
	TxOutcomeConfirmed TxOutcome = "confirmed"
	TxOutcomeReverted  TxOutcome = "reverted"
	TxOutcomeTimedOut  TxOutcome = "timed_out"
)

// CompletedTx is the single-slot "last result": the most recent PendingTx
// that finished, plus its outcome. Overwritten by the next completion.
type CompletedTx struct {
	PendingTx
	Outcome     TxOutcome
	CompletedAt time.Time
}

// SubmittedTx is a transaction accepted by the chain but not yet mined.
// Handle is the chain-assigned hash; Wait blocks until the outcome is
// known, bounded by timeout when positive.
type SubmittedTx interface {
	Handle() string
	Wait(ctx context.Context, timeout time.Duration) (TxOutcome, error)
}

// TxRecord is the persisted history row for a finished transaction.
type TxRecord struct {
	ID          string
	Handle      string
	Kind        TxKind
	Account     string
	SeriesID    string
	Amount      string // base-unit integer as decimal string
	Outcome     TxOutcome
	Message     string
	SubmittedAt time.Time
	CompletedAt time.Time
}
