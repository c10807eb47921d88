package chain

import (
	"math"
	"math/big"
	"testing"
	"time"
)

func TestSeriesName(t *testing.T) {
	var raw [32]byte
	copy(raw[:], "fyDAI-2609")
	if got := seriesName(raw); got != "fyDAI-2609" {
		t.Errorf("seriesName = %q, want fyDAI-2609", got)
	}

	var binary [32]byte
	binary[0] = 0x01
	if got := seriesName(binary); got != seriesID(binary) {
		t.Errorf("non-printable id should fall back to hex, got %q", got)
	}

	var empty [32]byte
	if got := seriesName(empty); got != seriesID(empty) {
		t.Errorf("empty id should fall back to hex, got %q", got)
	}
}

func TestImpliedAPR(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	oneYear := now.AddDate(1, 0, 0)

	// 0.95 stablecoin per token, one year out: APR just above 5.26%.
	value, _ := new(big.Int).SetString("950000000000000000", 10)
	got := impliedAPR(value, oneYear, now)
	want := (1/0.95 - 1) * 100
	if math.Abs(got-want) > 0.05 {
		t.Errorf("impliedAPR = %f, want about %f", got, want)
	}

	// Matured series quotes zero.
	if got := impliedAPR(value, now.AddDate(0, 0, -1), now); got != 0 {
		t.Errorf("matured series APR = %f, want 0", got)
	}

	// Nil or zero value quotes zero.
	if got := impliedAPR(nil, oneYear, now); got != 0 {
		t.Errorf("nil value APR = %f, want 0", got)
	}
}

func TestCollateralBytes32RoundTrip(t *testing.T) {
	b := collateralBytes32("ETH-A")
	if string(b[:5]) != "ETH-A" {
		t.Errorf("collateralBytes32 prefix = %q", b[:5])
	}
	for _, rest := range b[5:] {
		if rest != 0 {
			t.Fatal("collateralBytes32 should zero-pad")
		}
	}
}
