package glossa

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// epoch is an opaque run token compared by equality. Every translation
// captures the engine's epoch when issued; a result whose token no longer
// matches the current epoch is discarded at commit time.
type epoch uuid.UUID

func newEpoch() epoch {
	return epoch(uuid.New())
}

// String returns the token in canonical UUID form.
func (ep epoch) String() string {
	return uuid.UUID(ep).String()
}

// outcome is the terminal state of one issued translation.
type outcome int

const (
	outcomeCommitted outcome = iota
	outcomeRejected
	outcomeDiscarded
)

// String returns a human-readable name for the outcome.
func (o outcome) String() string {
	switch o {
	case outcomeCommitted:
		return "committed"
	case outcomeRejected:
		return "rejected"
	case outcomeDiscarded:
		return "discarded"
	default:
		return "unknown"
	}
}

// DefaultStatusInterval is the minimum spacing between status publishes
// when SessionOptions.StatusInterval is zero.
const DefaultStatusInterval = 100 * time.Millisecond

// Stats aggregates translation progress for one session run.
type Stats struct {
	// Pending counts issued translations not yet in a terminal state.
	Pending int

	// Resolved counts translations that committed.
	Resolved int

	// Rejected counts translations whose translate call failed.
	Rejected int

	// Discarded counts translations whose result no longer applied:
	// the content changed while in flight, the unit was removed, or the
	// run stopped.
	Discarded int
}

// StatusHandler receives throttled progress snapshots. Handlers run on
// their own goroutine and may call back into the session or engine.
type StatusHandler func(Stats)

// SessionOptions configures a Session.
type SessionOptions struct {
	// Status, if non-nil, receives counter snapshots: the first change
	// after a quiet period publishes promptly, and further changes
	// within the interval coalesce into one trailing publish carrying
	// the latest values.
	Status StatusHandler

	// StatusInterval overrides DefaultStatusInterval when positive.
	StatusInterval time.Duration
}

// Session binds an engine to one translation run. Starting a session
// mints a fresh epoch, observes the run's roots and begins aggregating
// progress counters. Stopping rotates the epoch, so results still in
// flight from the old run can no longer change content or counters, and
// reverts the observed subtrees.
type Session struct {
	e *Engine

	mu      sync.Mutex
	running bool
	epoch   epoch
	roots   []Element
	stats   Stats
	change  chan struct{}

	pub *publisher
}

// NewSession creates a session over e and takes over the engine's
// progress hooks. Create the session before observing anything.
func NewSession(e *Engine, opts SessionOptions) *Session {
	s := &Session{
		e:      e,
		change: make(chan struct{}),
		pub:    newPublisher(opts.Status, opts.StatusInterval),
	}
	e.bind(s)
	return s
}

// bind wires the session's counter hooks into the engine.
func (e *Engine) bind(s *Session) {
	e.mu.Lock()
	e.onIssued = s.noteIssued
	e.onDone = s.noteDone
	e.mu.Unlock()
}

// setEpoch installs the current epoch token. Translations issued under
// earlier tokens are discarded at commit time.
func (e *Engine) setEpoch(ep epoch) {
	e.mu.Lock()
	e.epoch = ep
	e.mu.Unlock()
	e.log.Debug("epoch rotated", "epoch", ep.String())
}

// Start begins a translation run over the given roots: counters reset, a
// fresh epoch is minted, and each root is observed. On any observation
// failure the roots observed so far are released and the error returned.
func (s *Session) Start(roots ...Element) error {
	ep := newEpoch()
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return ErrAlreadyStarted
	}
	s.running = true
	s.epoch = ep
	s.stats = Stats{}
	s.roots = append([]Element(nil), roots...)
	s.mu.Unlock()

	s.e.setEpoch(ep)
	for i, root := range roots {
		if err := s.e.Observe(root); err != nil {
			for _, done := range roots[:i] {
				_ = s.e.Unobserve(done)
			}
			s.mu.Lock()
			s.running = false
			s.roots = nil
			s.mu.Unlock()
			return err
		}
	}
	return nil
}

// Stop ends the run: the epoch rotates so in-flight results become
// no-ops, every observed root is released and reverted, and the final
// counter values are published immediately.
func (s *Session) Stop() error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return ErrNotStarted
	}
	s.running = false
	roots := s.roots
	s.roots = nil
	final := s.stats
	s.mu.Unlock()

	s.e.setEpoch(newEpoch())
	for _, root := range roots {
		// Roots the caller already released by hand are fine.
		_ = s.e.Unobserve(root)
	}
	s.pub.flush(final)
	return nil
}

// Stats returns the current counter values.
func (s *Session) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stats
}

// WaitIdle blocks until no translations are pending or the timeout
// elapses, in which case it returns ErrTimeout.
func (s *Session) WaitIdle(timeout time.Duration) error {
	deadline := time.NewTimer(timeout)
	defer deadline.Stop()
	for {
		s.mu.Lock()
		idle := s.stats.Pending == 0
		ch := s.change
		s.mu.Unlock()
		if idle {
			return nil
		}
		select {
		case <-ch:
		case <-deadline.C:
			return ErrTimeout
		}
	}
}

// noteIssued and noteDone run inside engine dispatch. Notifications
// carrying a token other than the current run's are ignored entirely.
func (s *Session) noteIssued(ep epoch) {
	s.mu.Lock()
	if !s.running || ep != s.epoch {
		s.mu.Unlock()
		return
	}
	s.stats.Pending++
	snap := s.stats
	s.broadcastLocked()
	s.mu.Unlock()
	s.pub.offer(snap)
}

func (s *Session) noteDone(ep epoch, o outcome) {
	s.mu.Lock()
	if !s.running || ep != s.epoch {
		s.mu.Unlock()
		return
	}
	s.stats.Pending--
	switch o {
	case outcomeCommitted:
		s.stats.Resolved++
	case outcomeRejected:
		s.stats.Rejected++
	case outcomeDiscarded:
		s.stats.Discarded++
	}
	snap := s.stats
	s.broadcastLocked()
	s.mu.Unlock()
	s.pub.offer(snap)
}

// broadcastLocked wakes WaitIdle callers.
func (s *Session) broadcastLocked() {
	close(s.change)
	s.change = make(chan struct{})
}
