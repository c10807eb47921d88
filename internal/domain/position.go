package domain

import (
	"math/big"
	"time"
)

// CollateralSlice is the per-collateral-type part of a position snapshot.
type CollateralSlice struct {
	Posted *big.Int // collateral posted, 18-decimal base units
	Debt   *big.Int // debt outstanding, 18-decimal base units
}

// Position is a per-account, per-series snapshot of posted collateral and
// outstanding debt. Positions are recomputed wholesale after every
// state-changing action, never incrementally updated.
type Position struct {
	Account    string
	SeriesID   string
	Collateral map[CollateralType]CollateralSlice
	FetchedAt  time.Time
}

// TotalDebt sums debt across all collateral types.
func (p Position) TotalDebt() *big.Int {
	total := new(big.Int)
	for _, c := range p.Collateral {
		if c.Debt != nil {
			total.Add(total, c.Debt)
		}
	}
	return total
}

// HasDebt reports whether any collateral type carries outstanding debt.
func (p Position) HasDebt() bool {
	return p.TotalDebt().Sign() > 0
}
