// Package presence implements the two halves of typing presence: the
// local Idle/Typing state machine that debounces keystrokes into
// presence publishes, and the aggregation of remote presence snapshots
// into the set of users currently typing.
package presence

import (
	"sync"
	"time"

	"go.uber.org/zap"
)

// TrackState is the local typing state.
type TrackState string

const (
	Idle   TrackState = "IDLE"
	Typing TrackState = "TYPING"
)

// DefaultDebounce is how long after the last qualifying keystroke the
// tracker reports typing stopped.
const DefaultDebounce = 300 * time.Millisecond

// Tracker is the per-conversation local typing state machine. Each
// state transition publishes exactly once; staying in a state never
// re-publishes. Start arms (or re-arms) the debounce timer; its expiry,
// a send, an input blur and teardown all drive Typing back to Idle.
type Tracker struct {
	debounce time.Duration
	publish  func(typing bool) error
	logger   *zap.Logger

	mu     sync.Mutex
	state  TrackState
	timer  *time.Timer
	gen    uint64
	closed bool
}

// NewTracker creates a tracker publishing through the given function.
// debounce <= 0 selects DefaultDebounce.
func NewTracker(debounce time.Duration, publish func(typing bool) error, logger *zap.Logger) *Tracker {
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Tracker{
		debounce: debounce,
		publish:  publish,
		logger:   logger,
		state:    Idle,
	}
}

// Start records a qualifying input event: enters Typing (publishing
// once on the edge) and re-arms the debounce timer.
func (t *Tracker) Start() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return
	}

	if t.state == Idle {
		t.state = Typing
		if err := t.publish(true); err != nil {
			t.logger.Warn("publish typing start failed", zap.Error(err))
		}
	}

	// timer.Stop can lose the race against a callback already blocked
	// on t.mu, so the generation check below is what actually keeps an
	// expired window from stopping a freshly re-armed one.
	if t.timer != nil {
		t.timer.Stop()
	}
	t.gen++
	gen := t.gen
	t.timer = time.AfterFunc(t.debounce, func() { t.expire(gen) })
}

// expire is the debounce callback. A stale generation means Start or
// Stop moved on while this callback waited for the lock.
func (t *Tracker) expire(gen uint64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if gen != t.gen {
		return
	}
	t.stopLocked()
}

// Stop forces the Idle state, publishing once if a transition happens.
// Safe to call in any state.
func (t *Tracker) Stop() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.stopLocked()
}

func (t *Tracker) stopLocked() {
	t.gen++
	if t.timer != nil {
		t.timer.Stop()
		t.timer = nil
	}
	if t.state == Typing {
		t.state = Idle
		if err := t.publish(false); err != nil {
			t.logger.Warn("publish typing stop failed", zap.Error(err))
		}
	}
}

// Close forces Idle and disables the tracker permanently.
func (t *Tracker) Close() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return
	}
	t.stopLocked()
	t.closed = true
}

// State returns the current local typing state.
func (t *Tracker) State() TrackState {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state
}
