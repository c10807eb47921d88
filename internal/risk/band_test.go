package risk

import "testing"

func TestClassifyBoundaries(t *testing.T) {
	cases := []struct {
		name    string
		ratio   float64
		hasDebt bool
		want    Band
	}{
		{"well below", 1.0, true, BandBlocked},
		{"exactly 1.5 is blocked", 1.5, true, BandBlocked},
		{"just above 1.5", 1.5000001, true, BandCaution},
		{"mid band", 1.75, true, BandCaution},
		{"just below 2.0", 1.9999999, true, BandCaution},
		{"exactly 2.0 is safe", 2.0, true, BandSafe},
		{"well above", 10.0, true, BandSafe},
		{"no debt is safe regardless of ratio", 0.0, false, BandSafe},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := Classify(tc.ratio, tc.hasDebt)
			if got.Band != tc.want {
				t.Errorf("Classify(%v, %v) = %s, want %s", tc.ratio, tc.hasDebt, got.Band, tc.want)
			}
		})
	}
}

func TestClassifyMessages(t *testing.T) {
	if msg := Classify(1.2, true).Message; msg == "" {
		t.Error("blocked band should carry a message")
	}
	if msg := Classify(1.8, true).Message; msg == "" {
		t.Error("caution band should carry a message")
	}
	if msg := Classify(3.0, true).Message; msg != "" {
		t.Errorf("safe band should carry no message, got %q", msg)
	}
}
