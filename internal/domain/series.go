package domain

import (
	"math/big"
	"time"
)

// CollateralType identifies a supported collateral asset.
type CollateralType string

const (
	CollateralETH  CollateralType = "ETH-A"
	CollateralDai  CollateralType = "DAI"
	CollateralChai CollateralType = "CHAI"
)

// Series describes one fixed-maturity lending instrument. A series is
// immutable once loaded from the chain; the client only ever re-fetches the
// whole set, it never mutates individual fields.
type Series struct {
	ID       string
	Name     string
	Maturity time.Time
	// APR is the current annualized rate implied by the pool price, in percent.
	APR float64
	// CurrentValue is the pool's current price of one maturity token in the
	// underlying stablecoin, as an 18-decimal base-unit amount.
	CurrentValue *big.Int
	// TokenAddress is the maturity-bound token contract for this series.
	TokenAddress string
	// PoolAddress is the AMM pool trading the maturity token against the
	// underlying stablecoin.
	PoolAddress string
	// TotalDebt is the series-wide outstanding debt per collateral type,
	// in 18-decimal base units.
	TotalDebt map[CollateralType]*big.Int
}

// Matured reports whether the series maturity has passed at the given time.
func (s Series) Matured(now time.Time) bool {
	return !now.Before(s.Maturity)
}
