// Package bridge marshals calls from the command-reading goroutine onto the
// single goroutine that owns the GUI event loop. Producers enqueue deferred
// closures; the loop drains them in FIFO order. Two splash operations need
// blocking semantics, which SubmitWait provides via a completion handoff.
package bridge

import (
	"errors"
	"fmt"
	"runtime"
	"sync"
	"sync/atomic"
)

// ErrLoopClosed is returned when a call is submitted to, or is still pending
// on, a loop that has shut down. Waiters are never left blocked on a dead
// loop.
var ErrLoopClosed = errors.New("bridge: loop closed")

// PanicError wraps a panic recovered from a submitted closure.
type PanicError struct {
	Value any
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("bridge: call panicked: %v", e.Value)
}

type call struct {
	fn   func()
	done chan error // nil for fire-and-forget submissions
}

// Loop is the pending-call queue plus the wake signal for the goroutine
// draining it. One goroutine calls Run; any number of goroutines call
// Submit and SubmitWait.
type Loop struct {
	mu      sync.Mutex
	pending []call
	closed  bool

	wake chan struct{} // capacity 1: a wake is never lost, never stacked
	done chan struct{}

	ready   atomic.Bool
	loopGID atomic.Uint64

	// onPanic receives panics recovered from submitted closures. Optional.
	onPanic func(any)
}

// New creates an idle loop. Run must be called for submissions to execute.
func New() *Loop {
	return &Loop{
		wake: make(chan struct{}, 1),
		done: make(chan struct{}),
	}
}

// SetPanicHandler installs a hook for panics recovered from submitted
// closures. Must be set before Run.
func (l *Loop) SetPanicHandler(fn func(recovered any)) {
	l.onPanic = fn
}

// SetReady marks the GUI as initialized. Set once, never reset.
func (l *Loop) SetReady() {
	l.ready.Store(true)
}

// Ready reports whether the GUI has finished initializing.
func (l *Loop) Ready() bool {
	return l.ready.Load()
}

// Done is closed when the loop has shut down.
func (l *Loop) Done() <-chan struct{} {
	return l.done
}

// Submit enqueues fn for execution on the loop goroutine. Calls made from
// the loop goroutine itself run immediately, bypassing the queue.
func (l *Loop) Submit(fn func()) error {
	if l.onLoop() {
		l.invoke(fn)
		return nil
	}
	return l.enqueue(call{fn: fn})
}

// SubmitWait enqueues fn and blocks until the loop has executed it. If the
// loop dies first, the waiter is released with ErrLoopClosed; if fn panics,
// the panic is reported through the handler and returned as a *PanicError.
func (l *Loop) SubmitWait(fn func()) error {
	if l.onLoop() {
		return l.invoke(fn)
	}

	done := make(chan error, 1)
	if err := l.enqueue(call{fn: fn, done: done}); err != nil {
		return err
	}
	select {
	case err := <-done:
		return err
	case <-l.done:
		// The loop may have completed fn in the same instant it shut down;
		// prefer the real result if one was reported.
		select {
		case err := <-done:
			return err
		default:
			return ErrLoopClosed
		}
	}
}

func (l *Loop) enqueue(c call) error {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return ErrLoopClosed
	}
	l.pending = append(l.pending, c)
	l.mu.Unlock()

	select {
	case l.wake <- struct{}{}:
	default:
	}
	return nil
}

// Run executes pending calls in FIFO order until Close. It must be invoked
// on the goroutine that owns the GUI; the OS thread is locked for the
// toolkits that require it. On exit every still-pending waiter is released
// with ErrLoopClosed.
func (l *Loop) Run() {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	l.loopGID.Store(goroutineID())
	defer l.release()

	for {
		l.mu.Lock()
		batch := l.pending
		l.pending = nil
		closed := l.closed
		l.mu.Unlock()

		for _, c := range batch {
			err := l.invoke(c.fn)
			if c.done != nil {
				c.done <- err
			}
		}
		if closed {
			return
		}
		<-l.wake
	}
}

// invoke runs fn, converting a panic into an error for the waiter and the
// panic handler.
func (l *Loop) invoke(fn func()) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &PanicError{Value: r}
			if l.onPanic != nil {
				l.onPanic(r)
			}
		}
	}()
	fn()
	return nil
}

// Close stops the loop after the already-queued calls have drained.
// Idempotent and safe from any goroutine.
func (l *Loop) Close() {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return
	}
	l.closed = true
	l.mu.Unlock()

	select {
	case l.wake <- struct{}{}:
	default:
	}
}

// release drops any calls that never ran and unblocks their waiters.
func (l *Loop) release() {
	l.mu.Lock()
	l.closed = true
	remaining := l.pending
	l.pending = nil
	l.mu.Unlock()

	for _, c := range remaining {
		if c.done != nil {
			c.done <- ErrLoopClosed
		}
	}
	close(l.done)
}

func (l *Loop) onLoop() bool {
	gid := l.loopGID.Load()
	return gid != 0 && gid == goroutineID()
}

// goroutineID parses the current goroutine's id from its stack header
// ("goroutine N [running]: ..."). Used only to let loop-originated calls
// bypass the queue.
func goroutineID() uint64 {
	var buf [32]byte
	n := runtime.Stack(buf[:], false)
	header := string(buf[:n])
	var id uint64
	fmt.Sscanf(header, "goroutine %d", &id)
	return id
}
