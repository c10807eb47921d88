package vault

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"math/big"
	"sync"
	"testing"
	"time"

	"github.com/termfi/vaultd/internal/domain"
	"github.com/termfi/vaultd/internal/tracker"
)

type fakeTx struct {
	handle  string
	outcome domain.TxOutcome
	err     error
	block   chan struct{} // when non-nil, Wait blocks until closed
}

func (f *fakeTx) Handle() string { return f.handle }

func (f *fakeTx) Wait(ctx context.Context, timeout time.Duration) (domain.TxOutcome, error) {
	if f.block != nil {
		select {
		case <-f.block:
		case <-ctx.Done():
			return domain.TxOutcomeTimedOut, domain.ErrTxTimeout
		}
	}
	return f.outcome, f.err
}

type fakeProto struct {
	mu        sync.Mutex
	submits   int
	tx        *fakeTx
	submitErr error
}

func (f *fakeProto) Account() string { return "0x00000000000000000000000000000000DeaDBeef" }

func (f *fakeProto) submit() (domain.SubmittedTx, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.submits++
	if f.submitErr != nil {
		return nil, f.submitErr
	}
	return f.tx, nil
}

func (f *fakeProto) Deposit(ctx context.Context, c domain.CollateralType, a *big.Int) (domain.SubmittedTx, error) {
	return f.submit()
}
func (f *fakeProto) Withdraw(ctx context.Context, c domain.CollateralType, a *big.Int) (domain.SubmittedTx, error) {
	return f.submit()
}
func (f *fakeProto) Borrow(ctx context.Context, c domain.CollateralType, id string, a *big.Int) (domain.SubmittedTx, error) {
	return f.submit()
}
func (f *fakeProto) Repay(ctx context.Context, c domain.CollateralType, id string, a *big.Int) (domain.SubmittedTx, error) {
	return f.submit()
}
func (f *fakeProto) Sell(ctx context.Context, id string, a *big.Int) (domain.SubmittedTx, error) {
	return f.submit()
}
func (f *fakeProto) Buy(ctx context.Context, id string, a *big.Int) (domain.SubmittedTx, error) {
	return f.submit()
}
func (f *fakeProto) Redeem(ctx context.Context, id string, a *big.Int) (domain.SubmittedTx, error) {
	return f.submit()
}

type fakeRefresher struct {
	mu    sync.Mutex
	calls int
	err   error
}

func (f *fakeRefresher) RefreshAccount(ctx context.Context, account string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	return f.err
}

func (f *fakeRefresher) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newService(proto *fakeProto, ref *fakeRefresher) (*Service, *tracker.Store) {
	trk := tracker.New(testLogger())
	svc := NewService(proto, trk, ref, nil, nil, time.Second, testLogger())
	return svc, trk
}

func TestExecuteConfirmed(t *testing.T) {
	proto := &fakeProto{tx: &fakeTx{handle: "0xabc", outcome: domain.TxOutcomeConfirmed}}
	ref := &fakeRefresher{}
	svc, trk := newService(proto, ref)

	rec, err := svc.Execute(context.Background(), ActionRequest{
		Kind:       domain.TxBorrow,
		Collateral: domain.CollateralETH,
		SeriesID:   "0x01",
		Amount:     "100",
	})
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}

	if rec.Outcome != domain.TxOutcomeConfirmed {
		t.Errorf("outcome = %s, want confirmed", rec.Outcome)
	}
	if rec.Amount != "100000000000000000000" {
		t.Errorf("amount = %s, want 100e18", rec.Amount)
	}
	if got := len(trk.Pending()); got != 0 {
		t.Errorf("pending size = %d, want 0", got)
	}
	done := trk.Completed()
	if done == nil || done.Handle != "0xabc" {
		t.Fatalf("completed = %+v, want handle 0xabc", done)
	}
	if b := trk.Banner(); b.Severity != domain.SeveritySuccess || !b.Visible {
		t.Errorf("banner = %+v, want visible success", b)
	}
	if ref.count() != 1 {
		t.Errorf("refresher calls = %d, want 1", ref.count())
	}
	if svc.IsActive(domain.TxBorrow) {
		t.Error("active flag should be cleared")
	}
}

func TestExecuteInvalidAmountFailsFast(t *testing.T) {
	proto := &fakeProto{tx: &fakeTx{handle: "0x1", outcome: domain.TxOutcomeConfirmed}}
	svc, trk := newService(proto, &fakeRefresher{})

	for _, amt := range []string{"abc", "-1", ""} {
		_, err := svc.Execute(context.Background(), ActionRequest{
			Kind:       domain.TxDeposit,
			Collateral: domain.CollateralETH,
			Amount:     amt,
		})
		if !errors.Is(err, domain.ErrInvalidAmount) {
			t.Errorf("Execute(%q) error = %v, want ErrInvalidAmount", amt, err)
		}
	}

	if proto.submits != 0 {
		t.Errorf("submits = %d, want 0 (validation must precede chain calls)", proto.submits)
	}
	if b := trk.Banner(); b.Severity != domain.SeverityError || b.Duration != 0 {
		t.Errorf("banner = %+v, want sticky error", b)
	}
}

func TestExecuteSubmissionFailure(t *testing.T) {
	proto := &fakeProto{submitErr: errors.New("signature declined")}
	ref := &fakeRefresher{}
	svc, trk := newService(proto, ref)

	_, err := svc.Execute(context.Background(), ActionRequest{
		Kind:       domain.TxSell,
		SeriesID:   "0x01",
		Amount:     "5",
	})
	if err == nil {
		t.Fatal("Execute should fail on submission error")
	}

	// No pending transaction is ever created on submission failure.
	if got := len(trk.Pending()); got != 0 {
		t.Errorf("pending size = %d, want 0", got)
	}
	if trk.Completed() != nil {
		t.Error("completed slot should stay empty")
	}
	if b := trk.Banner(); b.Severity != domain.SeverityError {
		t.Errorf("banner severity = %s, want error", b.Severity)
	}
	if svc.IsActive(domain.TxSell) {
		t.Error("active flag should be cleared after failure")
	}
}

func TestExecuteRevertedIsNotSuccess(t *testing.T) {
	proto := &fakeProto{tx: &fakeTx{handle: "0xdead", outcome: domain.TxOutcomeReverted, err: domain.ErrTxReverted}}
	svc, trk := newService(proto, &fakeRefresher{})

	rec, err := svc.Execute(context.Background(), ActionRequest{
		Kind:     domain.TxRepay,
		SeriesID: "0x01",
		Amount:   "1",
	})
	if err != nil {
		t.Fatalf("Execute returned %v; revert is reported through the record", err)
	}
	if rec.Outcome != domain.TxOutcomeReverted {
		t.Errorf("outcome = %s, want reverted", rec.Outcome)
	}
	if b := trk.Banner(); b.Severity != domain.SeverityError {
		t.Errorf("banner severity = %s, want error (revert must not read as success)", b.Severity)
	}
	done := trk.Completed()
	if done == nil || done.Outcome != domain.TxOutcomeReverted {
		t.Errorf("completed = %+v, want reverted entry", done)
	}
}

func TestExecuteTimeout(t *testing.T) {
	block := make(chan struct{}) // never closed: confirmation stalls
	proto := &fakeProto{tx: &fakeTx{handle: "0xslow", block: block}}
	trk := tracker.New(testLogger())
	svc := NewService(proto, trk, &fakeRefresher{}, nil, nil, 20*time.Millisecond, testLogger())

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	rec, err := svc.Execute(ctx, ActionRequest{
		Kind:     domain.TxBuy,
		SeriesID: "0x01",
		Amount:   "2",
	})
	if err != nil {
		t.Fatalf("Execute returned %v; timeout is reported through the record", err)
	}
	if rec.Outcome != domain.TxOutcomeTimedOut {
		t.Errorf("outcome = %s, want timed_out", rec.Outcome)
	}
	if svc.IsActive(domain.TxBuy) {
		t.Error("active flag must clear on timeout, not hang forever")
	}
	if got := len(trk.Pending()); got != 0 {
		t.Errorf("pending size = %d, want 0 after timeout promotion", got)
	}
}

func TestExecuteRejectsConcurrentSameKind(t *testing.T) {
	block := make(chan struct{})
	proto := &fakeProto{tx: &fakeTx{handle: "0x1", outcome: domain.TxOutcomeConfirmed, block: block}}
	svc, _ := newService(proto, &fakeRefresher{})

	done := make(chan struct{})
	go func() {
		defer close(done)
		_, _ = svc.Execute(context.Background(), ActionRequest{
			Kind: domain.TxDeposit, Collateral: domain.CollateralETH, Amount: "1",
		})
	}()

	// Wait for the first invocation to hold the flag.
	deadline := time.Now().Add(time.Second)
	for !svc.IsActive(domain.TxDeposit) {
		if time.Now().After(deadline) {
			t.Fatal("first invocation never became active")
		}
		time.Sleep(time.Millisecond)
	}

	_, err := svc.Execute(context.Background(), ActionRequest{
		Kind: domain.TxDeposit, Collateral: domain.CollateralETH, Amount: "1",
	})
	if !errors.Is(err, domain.ErrOperationActive) {
		t.Errorf("second invocation error = %v, want ErrOperationActive", err)
	}

	close(block)
	<-done
}

func TestRefreshFailureDoesNotMaskSuccess(t *testing.T) {
	proto := &fakeProto{tx: &fakeTx{handle: "0x2", outcome: domain.TxOutcomeConfirmed}}
	ref := &fakeRefresher{err: errors.New("rpc flake")}
	svc, trk := newService(proto, ref)

	rec, err := svc.Execute(context.Background(), ActionRequest{
		Kind:     domain.TxRedeem,
		SeriesID: "0x01",
		Amount:   "3",
	})
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	if rec.Outcome != domain.TxOutcomeConfirmed {
		t.Errorf("outcome = %s, want confirmed", rec.Outcome)
	}
	if b := trk.Banner(); b.Severity != domain.SeveritySuccess {
		t.Errorf("banner severity = %s, want success despite refresh failure", b.Severity)
	}
}
