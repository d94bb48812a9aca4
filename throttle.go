package glossa

import (
	"sync"
	"time"
)

// publisher delivers status snapshots with leading plus trailing
// throttling: the first offer after a quiet period is published promptly,
// and offers arriving within the interval collapse into a single trailing
// publish carrying the newest snapshot. Handlers always run on their own
// goroutine.
type publisher struct {
	fn       StatusHandler
	interval time.Duration

	mu     sync.Mutex
	last   time.Time
	timer  *time.Timer
	latest Stats
}

func newPublisher(fn StatusHandler, interval time.Duration) *publisher {
	if interval <= 0 {
		interval = DefaultStatusInterval
	}
	return &publisher{fn: fn, interval: interval}
}

// offer records a new snapshot and schedules its delivery.
func (p *publisher) offer(s Stats) {
	if p.fn == nil {
		return
	}
	p.mu.Lock()
	p.latest = s
	if p.timer != nil {
		// A trailing publish is already scheduled; it picks up latest.
		p.mu.Unlock()
		return
	}
	now := time.Now()
	since := now.Sub(p.last)
	if since >= p.interval {
		p.last = now
		p.mu.Unlock()
		go p.fn(s)
		return
	}
	p.timer = time.AfterFunc(p.interval-since, p.trailing)
	p.mu.Unlock()
}

// trailing fires the coalesced publish at the end of the window.
func (p *publisher) trailing() {
	p.mu.Lock()
	p.timer = nil
	p.last = time.Now()
	s := p.latest
	p.mu.Unlock()
	p.fn(s)
}

// flush cancels any pending trailing publish and delivers s immediately.
func (p *publisher) flush(s Stats) {
	if p.fn == nil {
		return
	}
	p.mu.Lock()
	if p.timer != nil {
		p.timer.Stop()
		p.timer = nil
	}
	p.latest = s
	p.last = time.Now()
	p.mu.Unlock()
	go p.fn(s)
}
