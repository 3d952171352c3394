package app

import (
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
)

// tickInterval is the UI refresh cadence. Correctness never depends on it:
// remaining time is always re-derived from the absolute start timestamp.
const tickInterval = 100 * time.Millisecond

// TimerSnapshot is a point-in-time view of the countdown.
type TimerSnapshot struct {
	RemainingSeconds int
	Expired          bool
	// Progress is the fraction of the window still remaining, in [0,1].
	Progress float64
}

// CountdownTimer derives remaining time from a shared absolute start timestamp
// rather than a locally-started countdown, so every client converges on the
// same deadline regardless of when it joined. The time-up callback fires
// exactly once per distinct start timestamp; restarting the timer resets the
// latch and tears down the previous polling loop.
type CountdownTimer struct {
	clock    clockwork.Clock
	onTimeUp func()

	mu        sync.Mutex
	startedAt time.Time
	limit     time.Duration
	fired     bool
	gen       int
	stop      chan struct{}
}

// NewCountdownTimer builds an idle timer. onTimeUp may be nil.
func NewCountdownTimer(clock clockwork.Clock, onTimeUp func()) *CountdownTimer {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &CountdownTimer{clock: clock, onTimeUp: onTimeUp}
}

// Start rebases the countdown on a new absolute start timestamp. Any previous
// polling loop is cancelled and the expiry latch is reset.
func (t *CountdownTimer) Start(startedAt time.Time, limitSeconds int) {
	t.mu.Lock()
	t.cancelLocked()
	t.startedAt = startedAt
	t.limit = time.Duration(limitSeconds) * time.Second
	t.fired = false
	t.gen++
	gen := t.gen
	stop := make(chan struct{})
	t.stop = stop
	t.mu.Unlock()

	go t.poll(gen, stop)
}

// Clear disables the countdown; Snapshot reports the full window and no expiry fires.
func (t *CountdownTimer) Clear(limitSeconds int) {
	t.mu.Lock()
	t.cancelLocked()
	t.startedAt = time.Time{}
	t.limit = time.Duration(limitSeconds) * time.Second
	t.fired = false
	t.gen++
	t.mu.Unlock()
}

// Stop tears the timer down. Safe to call multiple times.
func (t *CountdownTimer) Stop() {
	t.mu.Lock()
	t.cancelLocked()
	t.gen++
	t.mu.Unlock()
}

func (t *CountdownTimer) cancelLocked() {
	if t.stop != nil {
		close(t.stop)
		t.stop = nil
	}
}

// Snapshot recomputes the countdown purely from (now - startedAt).
func (t *CountdownTimer) Snapshot() TimerSnapshot {
	t.mu.Lock()
	startedAt, limit := t.startedAt, t.limit
	t.mu.Unlock()
	return snapshotAt(t.clock.Now(), startedAt, limit)
}

func snapshotAt(now, startedAt time.Time, limit time.Duration) TimerSnapshot {
	limitSec := int(limit / time.Second)
	if startedAt.IsZero() {
		return TimerSnapshot{RemainingSeconds: limitSec, Progress: 1}
	}
	remaining := limit - now.Sub(startedAt)
	if remaining <= 0 {
		return TimerSnapshot{Expired: true}
	}
	// Ceil so the display shows e.g. "10" for the first instant of a 10s window.
	secs := int((remaining + time.Second - 1) / time.Second)
	progress := 0.0
	if limit > 0 {
		progress = float64(remaining) / float64(limit)
	}
	return TimerSnapshot{RemainingSeconds: secs, Progress: progress}
}

func (t *CountdownTimer) poll(gen int, stop chan struct{}) {
	ticker := t.clock.NewTicker(tickInterval)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.Chan():
			if t.fireIfExpired(gen) {
				return
			}
		}
	}
}

// fireIfExpired invokes the callback at most once per start timestamp and
// reports whether the polling loop can stop.
func (t *CountdownTimer) fireIfExpired(gen int) bool {
	t.mu.Lock()
	if gen != t.gen {
		t.mu.Unlock()
		return true
	}
	if t.startedAt.IsZero() {
		t.mu.Unlock()
		return false
	}
	snap := snapshotAt(t.clock.Now(), t.startedAt, t.limit)
	if !snap.Expired || t.fired {
		t.mu.Unlock()
		return snap.Expired
	}
	t.fired = true
	cb := t.onTimeUp
	t.mu.Unlock()

	if cb != nil {
		cb()
	}
	return true
}
