package amount

import (
	"errors"
	"math/big"
	"testing"

	"github.com/termfi/vaultd/internal/domain"
)

func TestToBaseUnits(t *testing.T) {
	cases := []struct {
		in       string
		decimals int
		want     string
	}{
		{"12.5", 18, "12500000000000000000"},
		{"1", 18, "1000000000000000000"},
		{"0", 18, "0"},
		{"0.000000000000000001", 18, "1"},
		{".5", 18, "500000000000000000"},
		{"100", 6, "100000000"},
		// Digits beyond the base unit's precision are truncated, not rounded.
		{"0.0000000000000000019", 18, "1"},
		{"1.9", 0, "1"},
	}

	for _, tc := range cases {
		got, err := ToBaseUnits(tc.in, tc.decimals)
		if err != nil {
			t.Fatalf("ToBaseUnits(%q, %d) failed: %v", tc.in, tc.decimals, err)
		}
		want, _ := new(big.Int).SetString(tc.want, 10)
		if got.Cmp(want) != 0 {
			t.Errorf("ToBaseUnits(%q, %d) = %s, want %s", tc.in, tc.decimals, got, tc.want)
		}
	}
}

func TestToBaseUnitsRejectsMalformed(t *testing.T) {
	for _, in := range []string{"", "-1", "+1", "abc", "1.2.3", "1e18", ".", "12,5", " - 1"} {
		_, err := ToBaseUnits(in, 18)
		if err == nil {
			t.Errorf("ToBaseUnits(%q) should fail", in)
			continue
		}
		if !errors.Is(err, domain.ErrInvalidAmount) {
			t.Errorf("ToBaseUnits(%q) error = %v, want ErrInvalidAmount", in, err)
		}
	}
}

func TestFromBaseUnits(t *testing.T) {
	cases := []struct {
		in       string
		decimals int
		want     string
	}{
		{"12500000000000000000", 18, "12.5"},
		{"1000000000000000000", 18, "1"},
		{"1", 18, "0.000000000000000001"},
		{"0", 18, "0"},
		{"100000000", 6, "100"},
	}

	for _, tc := range cases {
		v, _ := new(big.Int).SetString(tc.in, 10)
		if got := FromBaseUnits(v, tc.decimals); got != tc.want {
			t.Errorf("FromBaseUnits(%s, %d) = %q, want %q", tc.in, tc.decimals, got, tc.want)
		}
	}
}

func TestRoundTrip(t *testing.T) {
	for _, s := range []string{"12.5", "0.25", "42", "0.000001"} {
		v, err := ToBaseUnits(s, 18)
		if err != nil {
			t.Fatalf("ToBaseUnits(%q) failed: %v", s, err)
		}
		if got := FromBaseUnits(v, 18); got != s {
			t.Errorf("round trip %q -> %q", s, got)
		}
	}
}
