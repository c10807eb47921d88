package handler

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestRiskPreviewBands(t *testing.T) {
	h := NewRiskHandler(discardLogger())

	tests := []struct {
		query string
		want  string
	}{
		{"ratio=1.2", "blocked"},
		{"ratio=1.5", "blocked"},
		{"ratio=1.8", "caution"},
		{"ratio=2.0", "safe"},
		{"ratio=3.5", "safe"},
		{"ratio=0.1&has_debt=false", "safe"},
	}

	for _, tt := range tests {
		req := httptest.NewRequest(http.MethodGet, "/api/risk?"+tt.query, nil)
		rr := httptest.NewRecorder()
		h.Preview(rr, req)

		if rr.Code != http.StatusOK {
			t.Errorf("Preview(%s) status = %d, want 200", tt.query, rr.Code)
			continue
		}

		var resp riskResponse
		if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
			t.Fatalf("Preview(%s) bad JSON: %v", tt.query, err)
		}
		if string(resp.Band) != tt.want {
			t.Errorf("Preview(%s) band = %s, want %s", tt.query, resp.Band, tt.want)
		}
	}
}

func TestRiskPreviewRequiresRatio(t *testing.T) {
	h := NewRiskHandler(discardLogger())

	req := httptest.NewRequest(http.MethodGet, "/api/risk", nil)
	rr := httptest.NewRecorder()
	h.Preview(rr, req)

	if rr.Code != http.StatusBadRequest {
		t.Errorf("Preview without ratio status = %d, want 400", rr.Code)
	}
}
