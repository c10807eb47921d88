package domain

import "errors"

var (
	ErrNotFound        = errors.New("not found")
	ErrInvalidAddress  = errors.New("invalid address")
	ErrInvalidAmount   = errors.New("invalid amount")
	ErrUnknownKind     = errors.New("unknown transaction kind")
	ErrUnknownSeries   = errors.New("unknown series")
	ErrDuplicateTx     = errors.New("duplicate pending transaction")
	ErrOperationActive = errors.New("operation already active")
	ErrTxReverted      = errors.New("transaction reverted")
	ErrTxTimeout       = errors.New("transaction confirmation timed out")
	ErrBorrowBlocked   = errors.New("collateral ratio too low")
)
