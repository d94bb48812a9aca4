package glossa

import (
	"testing"
	"time"
)

func TestSessionCountsResolved(t *testing.T) {
	d := NewMemDoc()
	div := d.NewElement("div")
	for _, s := range []string{"uno", "dos", "tres"} {
		div.Append(d.NewText(s))
	}
	d.Body().Append(div)

	e, err := New(d, upperTranslator(), eagerConfig())
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	defer e.Close()

	s := NewSession(e, SessionOptions{})
	if err := s.Start(d.Body()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	if err := s.WaitIdle(2 * time.Second); err != nil {
		t.Fatalf("WaitIdle failed: %v", err)
	}

	got := s.Stats()
	want := Stats{Pending: 0, Resolved: 3, Rejected: 0, Discarded: 0}
	if got != want {
		t.Errorf("Expected stats %+v, got %+v", want, got)
	}
	if err := s.Stop(); err != nil {
		t.Fatalf("Stop failed: %v", err)
	}
}

func TestSessionCountsRejected(t *testing.T) {
	d := NewMemDoc()
	div := d.NewElement("div")
	div.Append(d.NewText("uno"), d.NewText("dos"))
	d.Body().Append(div)

	e, err := New(d, failingTranslator(), eagerConfig())
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	defer e.Close()

	s := NewSession(e, SessionOptions{})
	if err := s.Start(d.Body()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	if err := s.WaitIdle(2 * time.Second); err != nil {
		t.Fatalf("WaitIdle failed: %v", err)
	}

	got := s.Stats()
	want := Stats{Pending: 0, Resolved: 0, Rejected: 2, Discarded: 0}
	if got != want {
		t.Errorf("Expected stats %+v, got %+v", want, got)
	}
}

func TestSessionCountsDiscarded(t *testing.T) {
	d := NewMemDoc()
	txt := d.NewText("Hola")
	div := d.NewElement("div")
	div.Append(txt)
	d.Body().Append(div)

	tr := newBlockingTranslator()
	e, err := New(d, tr, eagerConfig())
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	defer e.Close()

	s := NewSession(e, SessionOptions{})
	if err := s.Start(d.Body()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	waitFor(t, "first request", func() bool { return tr.calls.Load() == 1 })

	txt.SetText("Adios")
	waitFor(t, "second request", func() bool { return tr.calls.Load() == 2 })
	close(tr.release)

	if err := s.WaitIdle(2 * time.Second); err != nil {
		t.Fatalf("WaitIdle failed: %v", err)
	}
	got := s.Stats()
	want := Stats{Pending: 0, Resolved: 1, Rejected: 0, Discarded: 1}
	if got != want {
		t.Errorf("Expected stats %+v, got %+v", want, got)
	}
}

func TestStopFreezesEpoch(t *testing.T) {
	// A result landing after Stop must change neither content nor
	// counters: its epoch token no longer matches.
	d := NewMemDoc()
	txt := d.NewText("Hola")
	div := d.NewElement("div")
	div.Append(txt)
	d.Body().Append(div)

	tr := newBlockingTranslator()
	e, err := New(d, tr, eagerConfig())
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	defer e.Close()

	s := NewSession(e, SessionOptions{})
	if err := s.Start(d.Body()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	waitFor(t, "request issued", func() bool { return tr.calls.Load() == 1 })

	if err := s.Stop(); err != nil {
		t.Fatalf("Stop failed: %v", err)
	}
	frozen := s.Stats()
	if frozen.Pending != 1 {
		t.Errorf("Expected the run to end with 1 pending, got %+v", frozen)
	}

	// Let the stale translation land.
	close(tr.release)
	time.Sleep(30 * time.Millisecond)

	if got := txt.Text(); got != "Hola" {
		t.Errorf("Expected content untouched after stop, got %q", got)
	}
	if got := s.Stats(); got != frozen {
		t.Errorf("Expected counters frozen at %+v, got %+v", frozen, got)
	}
}

func TestSessionRestartRediscovers(t *testing.T) {
	d := NewMemDoc()
	txt := d.NewText("Hola")
	div := d.NewElement("div")
	div.Append(txt)
	d.Body().Append(div)

	e, err := New(d, upperTranslator(), eagerConfig())
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	defer e.Close()

	s := NewSession(e, SessionOptions{})
	if err := s.Start(d.Body()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	if err := s.WaitIdle(2 * time.Second); err != nil {
		t.Fatalf("WaitIdle failed: %v", err)
	}
	if err := s.Stop(); err != nil {
		t.Fatalf("Stop failed: %v", err)
	}
	if got := txt.Text(); got != "Hola" {
		t.Fatalf("Expected revert on stop, got %q", got)
	}

	// A second run starts from scratch.
	if err := s.Start(d.Body()); err != nil {
		t.Fatalf("Second Start failed: %v", err)
	}
	if err := s.WaitIdle(2 * time.Second); err != nil {
		t.Fatalf("WaitIdle failed: %v", err)
	}
	if got := txt.Text(); got != "HOLA" {
		t.Errorf("Expected retranslation on restart, got %q", got)
	}
	got := s.Stats()
	if got.Resolved != 1 || got.Pending != 0 {
		t.Errorf("Expected fresh counters with 1 resolved, got %+v", got)
	}
}

func TestSessionStartStopErrors(t *testing.T) {
	d := NewMemDoc()
	e, err := New(d, upperTranslator(), eagerConfig())
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	defer e.Close()

	s := NewSession(e, SessionOptions{})
	if err := s.Stop(); err != ErrNotStarted {
		t.Errorf("Expected ErrNotStarted, got %v", err)
	}
	if err := s.Start(d.Body()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	if err := s.Start(d.Body()); err != ErrAlreadyStarted {
		t.Errorf("Expected ErrAlreadyStarted, got %v", err)
	}
	if err := s.Stop(); err != nil {
		t.Fatalf("Stop failed: %v", err)
	}
}

func TestSessionStartUnwindsOnFailure(t *testing.T) {
	d := NewMemDoc()
	e, err := New(d, upperTranslator(), eagerConfig())
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	defer e.Close()

	// Observing the same root twice fails; the session must release the
	// first observation and return to a startable state.
	if err := NewSession(e, SessionOptions{}).Start(d.Body(), d.Body()); err != ErrAlreadyObserved {
		t.Fatalf("Expected ErrAlreadyObserved, got %v", err)
	}
	if err := e.Observe(d.Body()); err != nil {
		t.Errorf("Expected root released after failed start, got %v", err)
	}
}

func TestWaitIdleTimeout(t *testing.T) {
	d := NewMemDoc()
	txt := d.NewText("Hola")
	div := d.NewElement("div")
	div.Append(txt)
	d.Body().Append(div)

	tr := newBlockingTranslator()
	e, err := New(d, tr, eagerConfig())
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	defer e.Close()

	s := NewSession(e, SessionOptions{})
	if err := s.Start(d.Body()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	if err := s.WaitIdle(50 * time.Millisecond); err != ErrTimeout {
		t.Errorf("Expected ErrTimeout, got %v", err)
	}
	close(tr.release)
	if err := s.WaitIdle(2 * time.Second); err != nil {
		t.Errorf("Expected idle after release, got %v", err)
	}
}
