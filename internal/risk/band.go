// Package risk maps estimated collateral ratios to the three-band indicator
// consumed by the borrow UI.
package risk

// Band is the risk classification of a post-action collateral ratio.
type Band string

const (
	BandBlocked Band = "blocked"
	BandCaution Band = "caution"
	BandSafe    Band = "safe"
)

const (
	// blockedCeiling is the ratio at or below which borrowing is disabled.
	blockedCeiling = 1.5
	// safeFloor is the ratio at or above which no warning is shown.
	safeFloor = 2.0
)

// Indicator pairs a band with its display text. Safe carries no message.
type Indicator struct {
	Band    Band
	Message string
}

// Classify maps a collateral ratio (collateral value / debt value) to a
// band. hasDebt false means the ratio is undefined, which is safe. The
// boundaries are exact: 1.5 is blocked, 2.0 is safe, strictly between is
// caution.
func Classify(ratio float64, hasDebt bool) Indicator {
	if !hasDebt {
		return Indicator{Band: BandSafe}
	}
	switch {
	case ratio <= blockedCeiling:
		return Indicator{
			Band:    BandBlocked,
			Message: "Collateral ratio too low: this action would put the vault at liquidation risk.",
		}
	case ratio < safeFloor:
		return Indicator{
			Band:    BandCaution,
			Message: "Collateral ratio is getting low: consider posting more collateral.",
		}
	default:
		return Indicator{Band: BandSafe}
	}
}
