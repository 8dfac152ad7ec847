// Package throttle implements a trailing-edge throttle for an async
// unary function: the first call in a window fires immediately, later
// calls within the window collapse into a single pending call that fires
// once the window elapses.
package throttle

import (
	"errors"
	"sync"
	"time"
)

// ErrSuperseded is returned to a pending call's caller when a later call
// arrives before the pending one has fired.
var ErrSuperseded = errors.New("throttle: call superseded by a later call")

// Func is the async unary function being throttled.
type Func[A, R any] func(A) (R, error)

// result carries a call's outcome to whichever goroutine is waiting on it.
type result[R any] struct {
	val R
	err error
}

// Throttle wraps fn with a minimum firing interval of T.
type Throttle[A, R any] struct {
	fn Func[A, R]
	t  time.Duration

	mu          sync.Mutex
	lastFire    time.Time
	hasFired    bool
	pendingArgs A
	hasPending  bool
	pendingCh   chan result[R]
	timer       *time.Timer
}

// New returns a throttle around fn with minimum interval t.
func New[A, R any](t time.Duration, fn Func[A, R]) *Throttle[A, R] {
	return &Throttle[A, R]{fn: fn, t: t}
}

// Call requests fn(arg) to run, subject to the throttle window. It blocks
// until its own firing (immediate or pending) resolves.
func (th *Throttle[A, R]) Call(arg A) (R, error) {
	th.mu.Lock()

	if !th.hasFired || time.Since(th.lastFire) >= th.t {
		th.hasFired = true
		th.lastFire = time.Now()
		th.mu.Unlock()
		return th.fn(arg)
	}

	// Within the window: supersede any existing pending call and become
	// the new pending call.
	if th.hasPending {
		th.pendingCh <- result[R]{err: ErrSuperseded}
	}
	ch := make(chan result[R], 1)
	th.pendingArgs = arg
	th.hasPending = true
	th.pendingCh = ch

	remaining := th.t - time.Since(th.lastFire)
	if th.timer == nil {
		th.timer = time.AfterFunc(remaining, th.fire)
	} else {
		th.timer.Reset(remaining)
	}
	th.mu.Unlock()

	r := <-ch
	return r.val, r.err
}

func (th *Throttle[A, R]) fire() {
	th.mu.Lock()
	if !th.hasPending {
		th.mu.Unlock()
		return
	}
	arg := th.pendingArgs
	ch := th.pendingCh
	th.hasPending = false
	th.lastFire = time.Now()
	th.mu.Unlock()

	val, err := th.fn(arg)
	ch <- result[R]{val: val, err: err}
}
