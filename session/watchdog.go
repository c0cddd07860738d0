package session

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/jonboulle/clockwork"
)

// watchdog fires when no frame arrives within the keepalive window.
type watchdog struct {
	clock clockwork.Clock

	mu      sync.Mutex
	timer   clockwork.Timer
	timeout time.Duration

	// armed is signaled when the timer is created so the supervisor starts selecting on it.
	armed   chan struct{}
	expired atomic.Bool
}

func newWatchdog(clock clockwork.Clock) *watchdog {
	return &watchdog{
		clock: clock,
		armed: make(chan struct{}, 1),
	}
}

// arm sets the window and restarts the timer. d <= 0 disarms it.
func (w *watchdog) arm(d time.Duration) {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.timeout = d

	if d <= 0 {
		if w.timer != nil {
			w.timer.Stop()
		}

		return
	}

	if w.timer == nil {
		w.timer = w.clock.NewTimer(d)

		select {
		case w.armed <- struct{}{}:
		default:
		}

		return
	}

	w.timer.Reset(d)
}

// feed restarts the timer with the current window.
func (w *watchdog) feed() {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.timer != nil && w.timeout > 0 {
		w.timer.Reset(w.timeout)
	}
}

func (w *watchdog) stop() {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.timer != nil {
		w.timer.Stop()
	}
}

func (w *watchdog) expiry() <-chan time.Time {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.timer == nil {
		return nil
	}

	return w.timer.Chan()
}
