package tracker

import (
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/termfi/vaultd/internal/domain"
)

func newTestStore() *Store {
	return New(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestNotifyShowsBanner(t *testing.T) {
	s := newTestStore()

	err := s.Dispatch(NotifyEvent{
		Message:  "Deposit pending",
		Severity: domain.SeverityInfo,
		Duration: 4 * time.Second,
	})
	if err != nil {
		t.Fatalf("Dispatch failed: %v", err)
	}

	b := s.Banner()
	if !b.Visible {
		t.Error("banner should be visible after notify")
	}
	if b.Message != "Deposit pending" {
		t.Errorf("message = %q, want %q", b.Message, "Deposit pending")
	}
	if b.Severity != domain.SeverityInfo {
		t.Errorf("severity = %q, want info", b.Severity)
	}
}

func TestNotifyAutoHidesAfterDuration(t *testing.T) {
	s := newTestStore()

	if err := s.Dispatch(NotifyEvent{Message: "x", Severity: domain.SeverityInfo, Duration: 30 * time.Millisecond}); err != nil {
		t.Fatalf("Dispatch failed: %v", err)
	}

	// Not yet hidden right after notify.
	if !s.Banner().Visible {
		t.Fatal("banner hidden before duration elapsed")
	}

	waitHidden(t, s, time.Second)
}

func TestStickyBannerStaysUntilClose(t *testing.T) {
	s := newTestStore()

	if err := s.Dispatch(NotifyEvent{Message: "sticky", Severity: domain.SeverityError, Duration: 0}); err != nil {
		t.Fatalf("Dispatch failed: %v", err)
	}

	time.Sleep(50 * time.Millisecond)
	if !s.Banner().Visible {
		t.Fatal("sticky banner should remain visible")
	}

	if err := s.Dispatch(CloseEvent{}); err != nil {
		t.Fatalf("Dispatch close failed: %v", err)
	}
	if s.Banner().Visible {
		t.Error("banner should be hidden after close")
	}
}

func TestCloseOnHiddenIsNoOp(t *testing.T) {
	s := newTestStore()

	if err := s.Dispatch(CloseEvent{}); err != nil {
		t.Fatalf("close on empty store should succeed, got %v", err)
	}
	if s.Banner().Visible {
		t.Error("banner should stay hidden")
	}
}

func TestRenotifyReplacesAndRestartsTimer(t *testing.T) {
	s := newTestStore()
	ch, cancel := s.Subscribe()
	defer cancel()

	if err := s.Dispatch(NotifyEvent{Message: "first", Severity: domain.SeverityInfo, Duration: 40 * time.Millisecond}); err != nil {
		t.Fatalf("Dispatch failed: %v", err)
	}
	if err := s.Dispatch(NotifyEvent{Message: "second", Severity: domain.SeverityWarn, Duration: 40 * time.Millisecond}); err != nil {
		t.Fatalf("Dispatch failed: %v", err)
	}

	if got := s.Banner().Message; got != "second" {
		t.Fatalf("banner message = %q, want %q", got, "second")
	}

	// Drain snapshots until the banner hides; only the second message may
	// ever appear, and exactly one hide transition must occur.
	hides := 0
	deadline := time.After(time.Second)
	for hides == 0 {
		select {
		case snap := <-ch:
			if snap.Notification.Message == "first" && snap.Notification.Visible {
				// The first notify snapshot is legitimate; what must never
				// happen is "first" re-appearing after "second" was shown.
				if s.Banner().Message == "second" {
					t.Fatal("stale banner content re-displayed after overwrite")
				}
			}
			if !snap.Notification.Visible {
				hides++
			}
		case <-deadline:
			t.Fatal("banner never hid")
		}
	}

	// No second hide transition from the leaked first timer.
	select {
	case snap := <-ch:
		if !snap.Notification.Visible {
			t.Fatal("second hide transition observed: ghost timer fired")
		}
	case <-time.After(120 * time.Millisecond):
	}
}

func TestManualCloseCancelsTimer(t *testing.T) {
	s := newTestStore()

	if err := s.Dispatch(NotifyEvent{Message: "a", Severity: domain.SeverityInfo, Duration: 30 * time.Millisecond}); err != nil {
		t.Fatalf("Dispatch failed: %v", err)
	}
	if err := s.Dispatch(CloseEvent{}); err != nil {
		t.Fatalf("Dispatch failed: %v", err)
	}
	// A sticky banner raised after the manual close must not be hidden by
	// the cancelled timer.
	if err := s.Dispatch(NotifyEvent{Message: "b", Severity: domain.SeverityInfo, Duration: 0}); err != nil {
		t.Fatalf("Dispatch failed: %v", err)
	}

	time.Sleep(80 * time.Millisecond)
	b := s.Banner()
	if !b.Visible || b.Message != "b" {
		t.Errorf("banner = %+v, want sticky %q still visible", b, "b")
	}
}

func TestTxPendingThenComplete(t *testing.T) {
	s := newTestStore()

	if err := s.Dispatch(TxPendingEvent{Handle: "0xabc", Kind: domain.TxBorrow, Message: "Borrowing 100 pending"}); err != nil {
		t.Fatalf("Dispatch failed: %v", err)
	}
	if got := len(s.Pending()); got != 1 {
		t.Fatalf("pending size = %d, want 1", got)
	}
	if !s.AnyPending(domain.TxBorrow) {
		t.Error("AnyPending(BORROW) should be true")
	}
	if s.AnyPending(domain.TxDeposit) {
		t.Error("AnyPending(DEPOSIT) should be false")
	}

	if err := s.Dispatch(TxCompleteEvent{Handle: "0xabc", Outcome: domain.TxOutcomeConfirmed}); err != nil {
		t.Fatalf("Dispatch failed: %v", err)
	}
	if got := len(s.Pending()); got != 0 {
		t.Errorf("pending size = %d, want 0", got)
	}
	done := s.Completed()
	if done == nil {
		t.Fatal("completed slot should be filled")
	}
	if done.Handle != "0xabc" || done.Outcome != domain.TxOutcomeConfirmed {
		t.Errorf("completed = %+v, want handle 0xabc confirmed", done)
	}
}

func TestTxCompleteUnmatchedHandleIsNoOp(t *testing.T) {
	s := newTestStore()

	if err := s.Dispatch(TxPendingEvent{Handle: "0x1", Kind: domain.TxSell, Message: "m"}); err != nil {
		t.Fatalf("Dispatch failed: %v", err)
	}
	if err := s.Dispatch(TxCompleteEvent{Handle: "0xmissing", Outcome: domain.TxOutcomeConfirmed}); err != nil {
		t.Fatalf("unmatched complete should succeed, got %v", err)
	}
	if got := len(s.Pending()); got != 1 {
		t.Errorf("pending size = %d, want 1 (unchanged)", got)
	}
	if s.Completed() != nil {
		t.Error("completed slot should remain empty")
	}
}

func TestDuplicatePendingRejected(t *testing.T) {
	s := newTestStore()

	if err := s.Dispatch(TxPendingEvent{Handle: "0x1", Kind: domain.TxRepay, Message: "m"}); err != nil {
		t.Fatalf("Dispatch failed: %v", err)
	}
	err := s.Dispatch(TxPendingEvent{Handle: "0x1", Kind: domain.TxRepay, Message: "again"})
	if !errors.Is(err, domain.ErrDuplicateTx) {
		t.Fatalf("duplicate pending error = %v, want ErrDuplicateTx", err)
	}
	if got := len(s.Pending()); got != 1 {
		t.Errorf("pending size = %d, want 1", got)
	}
}

func TestCompletedSlotOverwritten(t *testing.T) {
	s := newTestStore()

	for _, h := range []string{"0x1", "0x2"} {
		if err := s.Dispatch(TxPendingEvent{Handle: h, Kind: domain.TxDeposit, Message: "m"}); err != nil {
			t.Fatalf("Dispatch failed: %v", err)
		}
	}
	if err := s.Dispatch(TxCompleteEvent{Handle: "0x1", Outcome: domain.TxOutcomeConfirmed}); err != nil {
		t.Fatalf("Dispatch failed: %v", err)
	}
	if err := s.Dispatch(TxCompleteEvent{Handle: "0x2", Outcome: domain.TxOutcomeReverted}); err != nil {
		t.Fatalf("Dispatch failed: %v", err)
	}

	done := s.Completed()
	if done == nil || done.Handle != "0x2" || done.Outcome != domain.TxOutcomeReverted {
		t.Errorf("completed = %+v, want latest entry 0x2 reverted", done)
	}
}

func TestSubscribersReceiveSnapshots(t *testing.T) {
	s := newTestStore()
	ch, cancel := s.Subscribe()
	defer cancel()

	if err := s.Dispatch(TxPendingEvent{Handle: "0x9", Kind: domain.TxBuy, Message: "m"}); err != nil {
		t.Fatalf("Dispatch failed: %v", err)
	}

	select {
	case snap := <-ch:
		if len(snap.Pending) != 1 || snap.Pending[0].Handle != "0x9" {
			t.Errorf("snapshot pending = %+v, want one entry 0x9", snap.Pending)
		}
	case <-time.After(time.Second):
		t.Fatal("no snapshot delivered")
	}
}

func waitHidden(t *testing.T, s *Store, timeout time.Duration) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if !s.Banner().Visible {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("banner never hid")
}
