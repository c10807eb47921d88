// Package amount converts between human decimal strings and base-unit
// integer token amounts. Conversions are strict: malformed or negative
// inputs fail instead of silently producing zero.
package amount

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/termfi/vaultd/internal/domain"
)

// TokenDecimals is the fixed-point scale of every token handled by the
// vault (wei-equivalent, 18 decimals).
const TokenDecimals = 18

// ToBaseUnits parses a human decimal string ("12.5") into a base-unit
// integer at the given number of decimals. Fractional digits beyond the
// base unit's precision are truncated; the integer part never is. Empty,
// negative, or non-numeric input returns domain.ErrInvalidAmount.
func ToBaseUnits(s string, decimals int) (*big.Int, error) {
	if decimals < 0 {
		return nil, fmt.Errorf("amount: decimals must be >= 0, got %d", decimals)
	}

	s = strings.TrimSpace(s)
	if s == "" {
		return nil, fmt.Errorf("amount: empty input: %w", domain.ErrInvalidAmount)
	}
	if strings.HasPrefix(s, "-") || strings.HasPrefix(s, "+") {
		return nil, fmt.Errorf("amount: signed input %q: %w", s, domain.ErrInvalidAmount)
	}

	intPart, fracPart, err := splitDecimal(s)
	if err != nil {
		return nil, err
	}

	// Truncate fractional digits beyond the base unit's precision.
	if len(fracPart) > decimals {
		fracPart = fracPart[:decimals]
	}
	fracPart += strings.Repeat("0", decimals-len(fracPart))

	combined := intPart + fracPart
	out, ok := new(big.Int).SetString(combined, 10)
	if !ok {
		return nil, fmt.Errorf("amount: parse %q: %w", s, domain.ErrInvalidAmount)
	}
	return out, nil
}

// FromBaseUnits renders a base-unit integer as a human decimal string with
// trailing zeros trimmed. Used only for display messages, never for math.
func FromBaseUnits(v *big.Int, decimals int) string {
	if v == nil {
		return "0"
	}

	neg := v.Sign() < 0
	abs := new(big.Int).Abs(v)

	scale := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(decimals)), nil)
	intPart, fracPart := new(big.Int).QuoRem(abs, scale, new(big.Int))

	out := intPart.String()
	if fracPart.Sign() > 0 {
		frac := fmt.Sprintf("%0*s", decimals, fracPart.String())
		frac = strings.TrimRight(frac, "0")
		out += "." + frac
	}
	if neg {
		out = "-" + out
	}
	return out
}

// splitDecimal separates "12.5" into ("12", "5"), validating that both
// parts are plain digits and at least one digit is present.
func splitDecimal(s string) (string, string, error) {
	intPart := s
	fracPart := ""
	if i := strings.IndexByte(s, '.'); i >= 0 {
		intPart = s[:i]
		fracPart = s[i+1:]
		if strings.IndexByte(fracPart, '.') >= 0 {
			return "", "", fmt.Errorf("amount: multiple decimal points in %q: %w", s, domain.ErrInvalidAmount)
		}
	}
	if intPart == "" && fracPart == "" {
		return "", "", fmt.Errorf("amount: no digits in %q: %w", s, domain.ErrInvalidAmount)
	}
	for _, part := range []string{intPart, fracPart} {
		for _, r := range part {
			if r < '0' || r > '9' {
				return "", "", fmt.Errorf("amount: non-numeric input %q: %w", s, domain.ErrInvalidAmount)
			}
		}
	}
	if intPart == "" {
		intPart = "0"
	}
	return intPart, fracPart, nil
}
