package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/termfi/vaultd/internal/domain"
	"github.com/termfi/vaultd/internal/vault"
)

type fakeActionService struct {
	rec    domain.TxRecord
	err    error
	active map[domain.TxKind]bool
	got    vault.ActionRequest
}

func (f *fakeActionService) Execute(ctx context.Context, req vault.ActionRequest) (domain.TxRecord, error) {
	f.got = req
	return f.rec, f.err
}

func (f *fakeActionService) IsActive(kind domain.TxKind) bool {
	return f.active[kind]
}

func invoke(t *testing.T, svc ActionService, kind, body string) *httptest.ResponseRecorder {
	t.Helper()
	h := NewActionHandler(svc, discardLogger())

	req := httptest.NewRequest(http.MethodPost, "/api/actions/"+kind, strings.NewReader(body))
	req.SetPathValue("kind", kind)
	rr := httptest.NewRecorder()
	h.Invoke(rr, req)
	return rr
}

func TestInvokeSuccess(t *testing.T) {
	svc := &fakeActionService{rec: domain.TxRecord{
		Handle:  "0xabc",
		Kind:    domain.TxBorrow,
		Outcome: domain.TxOutcomeConfirmed,
	}}

	rr := invoke(t, svc, "borrow", `{"collateral":"ETH-A","series_id":"0x01","amount":"25"}`)

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", rr.Code, rr.Body.String())
	}
	if svc.got.Kind != domain.TxBorrow {
		t.Errorf("kind = %s, want BORROW (lowercase path is accepted)", svc.got.Kind)
	}
	if svc.got.Amount != "25" {
		t.Errorf("amount = %q, want \"25\"", svc.got.Amount)
	}

	var rec domain.TxRecord
	if err := json.Unmarshal(rr.Body.Bytes(), &rec); err != nil {
		t.Fatalf("bad JSON: %v", err)
	}
	if rec.Outcome != domain.TxOutcomeConfirmed {
		t.Errorf("outcome = %s, want confirmed", rec.Outcome)
	}
}

func TestInvokeUnknownKind(t *testing.T) {
	svc := &fakeActionService{}
	rr := invoke(t, svc, "stake", `{"amount":"1"}`)
	if rr.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rr.Code)
	}
}

func TestInvokeErrorMapping(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{domain.ErrInvalidAmount, http.StatusBadRequest},
		{domain.ErrOperationActive, http.StatusConflict},
		{domain.ErrUnknownSeries, http.StatusNotFound},
		{domain.ErrDuplicateTx, http.StatusConflict},
	}

	for _, tt := range tests {
		svc := &fakeActionService{err: tt.err}
		rr := invoke(t, svc, "DEPOSIT", `{"collateral":"ETH-A","amount":"1"}`)
		if rr.Code != tt.want {
			t.Errorf("Invoke with %v status = %d, want %d", tt.err, rr.Code, tt.want)
		}
	}
}

func TestListActive(t *testing.T) {
	svc := &fakeActionService{active: map[domain.TxKind]bool{domain.TxSell: true}}
	h := NewActionHandler(svc, discardLogger())

	req := httptest.NewRequest(http.MethodGet, "/api/actions/active", nil)
	rr := httptest.NewRecorder()
	h.ListActive(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rr.Code)
	}

	var resp activeResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("bad JSON: %v", err)
	}
	if !resp.Active["SELL"] {
		t.Error("SELL should be active")
	}
	if resp.Active["DEPOSIT"] {
		t.Error("DEPOSIT should be idle")
	}
	if len(resp.Active) != len(domain.ValidTxKinds) {
		t.Errorf("active map has %d kinds, want %d", len(resp.Active), len(domain.ValidTxKinds))
	}
}
