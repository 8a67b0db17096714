package auth

import (
	"sync"
	"time"
)

// GuardState enumerates the timeout guard's states.
type GuardState int

const (
	// GuardIdle: no wait in progress.
	GuardIdle GuardState = iota
	// GuardWaiting: a bounded wait is in progress.
	GuardWaiting
	// GuardResolved: the awaited condition arrived before the bound.
	GuardResolved
	// GuardTimedOut: the bound elapsed first. Terminal for the wait.
	GuardTimedOut
)

func (s GuardState) String() string {
	switch s {
	case GuardIdle:
		return "idle"
	case GuardWaiting:
		return "waiting"
	case GuardResolved:
		return "resolved"
	case GuardTimedOut:
		return "timed out"
	default:
		return "unknown"
	}
}

// Guard bounds how long a consumer waits for initialization, independent of
// the initializer's own progress. Exactly one of Resolve/timeout takes
// effect per wait: resolving cancels the pending timer, and a timer that
// fires after a newer wait started, or after the wait was resolved, is a
// no-op. At most one timer is live per guard.
//
// A Guard is per-consumer state, not shared; each gated surface owns one.
type Guard struct {
	mu    sync.Mutex
	state GuardState
	wait  uint64
	timer *time.Timer
}

// NewGuard returns a guard in the idle state.
func NewGuard() *Guard {
	return &Guard{}
}

// StartWaiting begins a bounded wait of duration d, cancelling any prior
// wait and its timer.
func (g *Guard) StartWaiting(d time.Duration) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.wait++
	w := g.wait
	g.stopTimerLocked()
	g.state = GuardWaiting
	g.timer = time.AfterFunc(d, func() { g.expire(w) })
}

func (g *Guard) expire(wait uint64) {
	g.mu.Lock()
	defer g.mu.Unlock()
	// Stale timer: a newer wait started, or the wait already resolved.
	if g.wait != wait || g.state != GuardWaiting {
		return
	}
	g.state = GuardTimedOut
	g.timer = nil
}

// Resolve records that the awaited condition arrived. It cancels the
// pending timer. Calling Resolve when not waiting is a no-op, so consumers
// may call it unconditionally whenever they observe the condition.
func (g *Guard) Resolve() {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.state != GuardWaiting {
		return
	}
	g.wait++
	g.stopTimerLocked()
	g.state = GuardResolved
}

// Cancel abandons the wait and returns the guard to idle.
func (g *Guard) Cancel() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.wait++
	g.stopTimerLocked()
	g.state = GuardIdle
}

func (g *Guard) stopTimerLocked() {
	if g.timer != nil {
		g.timer.Stop()
		g.timer = nil
	}
}

// State returns the current state.
func (g *Guard) State() GuardState {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.state
}

// Waiting reports whether a bounded wait is in progress.
func (g *Guard) Waiting() bool { return g.State() == GuardWaiting }

// TimedOut reports whether the last wait gave up.
func (g *Guard) TimedOut() bool { return g.State() == GuardTimedOut }
