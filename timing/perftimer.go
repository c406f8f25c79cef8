package timing

import "time"

// A PerfTimer measures accumulated wall-clock time across pause and resume
// cycles. It is not safe for concurrent use.
type PerfTimer struct {
	running bool
	start   time.Time
	lapsed  time.Duration

	now func() time.Time
}

// NewPerfTimer creates a paused timer with nothing accumulated.
func NewPerfTimer() *PerfTimer {
	return &PerfTimer{now: time.Now}
}

// StartPerfTimer creates a timer that is already running.
func StartPerfTimer() *PerfTimer {
	t := NewPerfTimer()
	t.Resume()

	return t
}

// Pause stops accumulating time. Pausing a paused timer has no effect.
func (t *PerfTimer) Pause() {
	if !t.running {
		return
	}

	t.lapsed += t.now().Sub(t.start)
	t.running = false
}

// Resume continues accumulating time. Resuming a running timer has no effect.
func (t *PerfTimer) Resume() {
	if t.running {
		return
	}

	t.start = t.now()
	t.running = true
}

// IsRunning tells if the timer is currently accumulating time.
func (t *PerfTimer) IsRunning() bool {
	return t.running
}

// Lapsed returns the accumulated time so far.
func (t *PerfTimer) Lapsed() time.Duration {
	if t.running {
		return t.lapsed + t.now().Sub(t.start)
	}

	return t.lapsed
}

// Stop pauses the timer and returns the accumulated time.
func (t *PerfTimer) Stop() time.Duration {
	t.Pause()
	return t.lapsed
}

// Reset clears the accumulated time. The timer restarts unless startPaused
// is set.
func (t *PerfTimer) Reset(startPaused bool) {
	t.running = false
	t.lapsed = 0

	if !startPaused {
		t.Resume()
	}
}
