package glossa

import (
	"sync"
	"testing"
	"time"
)

// statusRecorder collects published snapshots in arrival order.
type statusRecorder struct {
	mu    sync.Mutex
	snaps []Stats
}

func (r *statusRecorder) handle(s Stats) {
	r.mu.Lock()
	r.snaps = append(r.snaps, s)
	r.mu.Unlock()
}

func (r *statusRecorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.snaps)
}

func (r *statusRecorder) at(i int) Stats {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.snaps[i]
}

func TestPublisherLeadingEdge(t *testing.T) {
	rec := &statusRecorder{}
	p := newPublisher(rec.handle, 100*time.Millisecond)

	p.offer(Stats{Pending: 1})
	waitFor(t, "leading publish", func() bool { return rec.count() == 1 })
	if got := rec.at(0); got != (Stats{Pending: 1}) {
		t.Errorf("Expected leading snapshot {Pending:1}, got %+v", got)
	}
}

func TestPublisherTrailingCoalesces(t *testing.T) {
	rec := &statusRecorder{}
	p := newPublisher(rec.handle, 80*time.Millisecond)

	p.offer(Stats{Pending: 1})
	p.offer(Stats{Pending: 2})
	p.offer(Stats{Pending: 3})
	p.offer(Stats{Pending: 4})

	// One leading publish, then a single trailing publish with the
	// newest values; the intermediate offers collapse.
	time.Sleep(200 * time.Millisecond)
	if got := rec.count(); got != 2 {
		t.Fatalf("Expected 2 publishes, got %d", got)
	}
	if got := rec.at(0); got != (Stats{Pending: 1}) {
		t.Errorf("Expected first snapshot {Pending:1}, got %+v", got)
	}
	if got := rec.at(1); got != (Stats{Pending: 4}) {
		t.Errorf("Expected trailing snapshot {Pending:4}, got %+v", got)
	}
}

func TestPublisherQuietPeriodLeadsAgain(t *testing.T) {
	rec := &statusRecorder{}
	p := newPublisher(rec.handle, 60*time.Millisecond)

	p.offer(Stats{Pending: 1})
	waitFor(t, "first publish", func() bool { return rec.count() == 1 })

	// After a full quiet interval the next offer publishes promptly
	// instead of waiting out another window.
	time.Sleep(120 * time.Millisecond)
	start := time.Now()
	p.offer(Stats{Pending: 2})
	waitFor(t, "second publish", func() bool { return rec.count() == 2 })
	if elapsed := time.Since(start); elapsed > 50*time.Millisecond {
		t.Errorf("Expected prompt publish after quiet period, took %v", elapsed)
	}
	if got := rec.at(1); got != (Stats{Pending: 2}) {
		t.Errorf("Expected snapshot {Pending:2}, got %+v", got)
	}
}

func TestPublisherFlushCancelsTrailing(t *testing.T) {
	rec := &statusRecorder{}
	p := newPublisher(rec.handle, 100*time.Millisecond)

	p.offer(Stats{Pending: 1})
	p.offer(Stats{Pending: 2})
	p.flush(Stats{Resolved: 2})

	time.Sleep(250 * time.Millisecond)
	if got := rec.count(); got != 2 {
		t.Fatalf("Expected flush to replace the trailing publish, got %d publishes", got)
	}
	if got := rec.at(1); got != (Stats{Resolved: 2}) {
		t.Errorf("Expected flushed snapshot {Resolved:2}, got %+v", got)
	}
}

func TestPublisherNilHandler(t *testing.T) {
	p := newPublisher(nil, 0)
	p.offer(Stats{Pending: 1})
	p.flush(Stats{})
}

func TestSessionPublishesStatus(t *testing.T) {
	d := NewMemDoc()
	div := d.NewElement("div")
	for _, s := range []string{"a1", "b2", "c3", "d4", "e5"} {
		div.Append(d.NewText(s))
	}
	d.Body().Append(div)

	e, err := New(d, upperTranslator(), eagerConfig())
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	defer e.Close()

	rec := &statusRecorder{}
	s := NewSession(e, SessionOptions{Status: rec.handle})
	if err := s.Start(d.Body()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	if err := s.WaitIdle(2 * time.Second); err != nil {
		t.Fatalf("WaitIdle failed: %v", err)
	}
	if err := s.Stop(); err != nil {
		t.Fatalf("Stop failed: %v", err)
	}

	// Stop publishes the final counters immediately.
	want := Stats{Pending: 0, Resolved: 5}
	waitFor(t, "final publish", func() bool {
		n := rec.count()
		return n > 0 && rec.at(n-1) == want
	})
	if got := rec.at(0); got != (Stats{Pending: 1}) {
		t.Errorf("Expected first snapshot {Pending:1}, got %+v", got)
	}
	if got := rec.count(); got < 2 {
		t.Errorf("Expected at least a leading and a final publish, got %d", got)
	}
}
