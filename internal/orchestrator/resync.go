package orchestrator

import (
	"sync"
	"time"
)

// Resync is a cancellable one-shot task. Scheduling replaces any pending
// run; Stop cancels the pending run and rejects later schedules.
type Resync struct {
	mu      sync.Mutex
	timer   *time.Timer
	stopped bool
	wg      sync.WaitGroup
}

// Schedule runs fn once after delay, replacing a pending run. It reports
// false when the task is stopped.
func (r *Resync) Schedule(delay time.Duration, fn func()) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.stopped {
		return false
	}
	if r.timer != nil && r.timer.Stop() {
		r.wg.Done()
	}

	r.wg.Add(1)
	var t *time.Timer
	t = time.AfterFunc(delay, func() {
		defer r.wg.Done()
		r.mu.Lock()
		current := r.timer == t && !r.stopped
		if current {
			r.timer = nil
		}
		r.mu.Unlock()
		if current {
			fn()
		}
	})
	r.timer = t
	return true
}

// Pending reports whether a run is scheduled.
func (r *Resync) Pending() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.timer != nil
}

// Stop cancels the pending run and waits for a run in progress to finish.
func (r *Resync) Stop() {
	r.mu.Lock()
	r.stopped = true
	if r.timer != nil && r.timer.Stop() {
		r.wg.Done()
	}
	r.timer = nil
	r.mu.Unlock()
	r.wg.Wait()
}
