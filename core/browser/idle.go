package browser

import (
	"sync"
	"time"
)

// idleTracker reports network idle: no request in flight for a whole
// window. Request ids are whatever the browser protocol uses.
type idleTracker struct {
	window time.Duration

	mu       sync.Mutex
	inflight map[string]struct{}
	timer    *time.Timer
	gen      int
	armed    bool
	idle     chan struct{}
	fired    bool
}

func newIdleTracker(window time.Duration) *idleTracker {
	return &idleTracker{
		window:   window,
		inflight: make(map[string]struct{}),
		idle:     make(chan struct{}),
	}
}

// Idle is closed once the page has been quiet for the window.
func (t *idleTracker) Idle() <-chan struct{} { return t.idle }

// Arm starts watching. Requests seen before Arm still count as in flight.
func (t *idleTracker) Arm() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.armed = true
	t.reset()
}

func (t *idleTracker) Started(id string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.inflight[id] = struct{}{}
	t.reset()
}

// Finished marks id done, whether it loaded or failed.
func (t *idleTracker) Finished(id string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, ok := t.inflight[id]; !ok {
		return
	}
	delete(t.inflight, id)
	t.reset()
}

// InFlight returns the number of open requests.
func (t *idleTracker) InFlight() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.inflight)
}

// reset cancels any pending quiet timer and starts a new one when nothing
// is in flight. Callers hold t.mu.
func (t *idleTracker) reset() {
	if t.fired || !t.armed {
		return
	}
	t.gen++
	if t.timer != nil {
		t.timer.Stop()
		t.timer = nil
	}
	if len(t.inflight) > 0 {
		return
	}
	gen := t.gen
	t.timer = time.AfterFunc(t.window, func() {
		t.mu.Lock()
		defer t.mu.Unlock()
		if gen != t.gen || t.fired || len(t.inflight) > 0 {
			return
		}
		t.fired = true
		close(t.idle)
	})
}

// Stop releases the timer.
func (t *idleTracker) Stop() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.gen++
	if t.timer != nil {
		t.timer.Stop()
	}
}
