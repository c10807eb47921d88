// Package tracker is the single source of truth for transient UI feedback:
// the current banner notification, the set of in-flight transactions, and
// the most recently completed one. All mutation goes through Dispatch; the
// store fans out a full state snapshot to subscribers after every change.
//
// The store is in-memory only and resets to empty on restart.
package tracker

import (
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/termfi/vaultd/internal/domain"
)

// Snapshot is the full externally-visible state of the store at one point
// in time. Pending is ordered by submission time.
type Snapshot struct {
	Notification domain.Notification `json:"notification"`
	Pending      []domain.PendingTx  `json:"pending"`
	Completed    *domain.CompletedTx `json:"completed,omitempty"`
}

// Store implements the notification and transaction-tracking state
// machines. It is safe for concurrent use.
type Store struct {
	mu sync.Mutex

	banner domain.Notification
	// timerGen invalidates a scheduled auto-close whenever the banner
	// transitions out of Visible for any other reason. The armed timer
	// captures the generation it was created under and fires only if it
	// still matches; this is what prevents a stale timer from hiding a
	// banner that replaced the one it was armed for.
	timerGen uint64
	timer    *time.Timer

	pending   map[string]domain.PendingTx
	completed *domain.CompletedTx

	subs   map[int]chan Snapshot
	nextID int

	logger *slog.Logger
	now    func() time.Time
}

// New creates an empty Store.
func New(logger *slog.Logger) *Store {
	return &Store{
		pending: make(map[string]domain.PendingTx),
		subs:    make(map[int]chan Snapshot),
		logger:  logger.With(slog.String("component", "tracker")),
		now:     time.Now,
	}
}

// Dispatch applies a single event to the store. It returns an error only
// for events the state machine rejects (currently a duplicate pending
// handle); no-op events such as closing a hidden banner succeed silently.
func (s *Store) Dispatch(ev Event) error {
	s.mu.Lock()

	var err error
	switch e := ev.(type) {
	case NotifyEvent:
		s.applyNotify(e)
	case CloseEvent:
		s.applyClose()
	case TxPendingEvent:
		err = s.applyTxPending(e)
	case TxCompleteEvent:
		s.applyTxComplete(e)
	default:
		err = fmt.Errorf("tracker: unhandled event type %T", ev)
	}

	var snap Snapshot
	if err == nil {
		snap = s.snapshotLocked()
	}
	s.mu.Unlock()

	if err == nil {
		s.publish(snap)
	}
	return err
}

// applyNotify transitions the banner to Visible, replacing any banner
// already showing. Last writer wins: the previous timer is cancelled and,
// for a non-zero duration, a fresh one is armed.
func (s *Store) applyNotify(e NotifyEvent) {
	s.cancelTimerLocked()

	s.banner = domain.Notification{
		Message:  e.Message,
		Severity: e.Severity,
		Duration: e.Duration,
		Visible:  true,
		RaisedAt: s.now(),
	}

	if e.Duration > 0 {
		gen := s.timerGen
		s.timer = time.AfterFunc(e.Duration, func() {
			s.autoClose(gen)
		})
	}
}

// applyClose hides the banner. Already-hidden is a no-op.
func (s *Store) applyClose() {
	if !s.banner.Visible {
		return
	}
	s.cancelTimerLocked()
	s.banner.Visible = false
}

// applyTxPending appends to the pending set, rejecting duplicate handles.
func (s *Store) applyTxPending(e TxPendingEvent) error {
	if _, exists := s.pending[e.Handle]; exists {
		s.logger.Warn("duplicate pending transaction rejected",
			slog.String("handle", e.Handle),
			slog.String("kind", string(e.Kind)),
		)
		return fmt.Errorf("tracker: handle %s: %w", e.Handle, domain.ErrDuplicateTx)
	}
	s.pending[e.Handle] = domain.PendingTx{
		Handle:      e.Handle,
		Kind:        e.Kind,
		Message:     e.Message,
		SubmittedAt: s.now(),
	}
	return nil
}

// applyTxComplete removes the matching entry and promotes it to the
// completed slot. An unmatched handle leaves the store unchanged.
func (s *Store) applyTxComplete(e TxCompleteEvent) {
	entry, ok := s.pending[e.Handle]
	if !ok {
		return
	}
	delete(s.pending, e.Handle)
	s.completed = &domain.CompletedTx{
		PendingTx:   entry,
		Outcome:     e.Outcome,
		CompletedAt: s.now(),
	}
}

// autoClose is the timer callback. It hides the banner only when the
// generation it was armed under is still current.
func (s *Store) autoClose(gen uint64) {
	s.mu.Lock()
	if gen != s.timerGen || !s.banner.Visible {
		s.mu.Unlock()
		return
	}
	s.timerGen++
	s.timer = nil
	s.banner.Visible = false
	snap := s.snapshotLocked()
	s.mu.Unlock()

	s.publish(snap)
}

// cancelTimerLocked invalidates any armed auto-close timer. Callers must
// hold s.mu.
func (s *Store) cancelTimerLocked() {
	s.timerGen++
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
}

// Banner returns the current notification state.
func (s *Store) Banner() domain.Notification {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.banner
}

// Pending returns the in-flight transactions ordered by submission time.
func (s *Store) Pending() []domain.PendingTx {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pendingLocked()
}

// AnyPending reports whether any transaction of the given kind is in
// flight. Action components use this to gate spinner vs input form.
func (s *Store) AnyPending(kind domain.TxKind) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range s.pending {
		if p.Kind == kind {
			return true
		}
	}
	return false
}

// Completed returns the most recently finished transaction, or nil when
// nothing has completed since startup.
func (s *Store) Completed() *domain.CompletedTx {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.completed == nil {
		return nil
	}
	c := *s.completed
	return &c
}

// Snapshot returns the full current state.
func (s *Store) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

// Subscribe registers a listener that receives a state snapshot after every
// change. The returned cancel function removes the subscription and closes
// the channel. Slow subscribers have intermediate snapshots dropped rather
// than blocking the store.
func (s *Store) Subscribe() (<-chan Snapshot, func()) {
	s.mu.Lock()
	id := s.nextID
	s.nextID++
	ch := make(chan Snapshot, 16)
	s.subs[id] = ch
	s.mu.Unlock()

	cancel := func() {
		s.mu.Lock()
		if sub, ok := s.subs[id]; ok {
			delete(s.subs, id)
			close(sub)
		}
		s.mu.Unlock()
	}
	return ch, cancel
}

func (s *Store) publish(snap Snapshot) {
	s.mu.Lock()
	subs := make([]chan Snapshot, 0, len(s.subs))
	for _, ch := range s.subs {
		subs = append(subs, ch)
	}
	s.mu.Unlock()

	for _, ch := range subs {
		select {
		case ch <- snap:
		default:
		}
	}
}

func (s *Store) pendingLocked() []domain.PendingTx {
	out := make([]domain.PendingTx, 0, len(s.pending))
	for _, p := range s.pending {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].SubmittedAt.Equal(out[j].SubmittedAt) {
			return out[i].Handle < out[j].Handle
		}
		return out[i].SubmittedAt.Before(out[j].SubmittedAt)
	})
	return out
}

func (s *Store) snapshotLocked() Snapshot {
	snap := Snapshot{
		Notification: s.banner,
		Pending:      s.pendingLocked(),
	}
	if s.completed != nil {
		c := *s.completed
		snap.Completed = &c
	}
	return snap
}
