// Package waiter implements the one-shot, thread-affine Awakable used to
// back synchronous Wait/WaitMany calls.
package waiter

import (
	"sync"
	"time"

	"github.com/GriffinCanCode/AgentOS/backend/internal/awakable"
	"github.com/GriffinCanCode/AgentOS/backend/internal/ipcresult"
	"github.com/GriffinCanCode/AgentOS/backend/internal/ipcsignals"
)

// Indefinite, passed as the deadline to Wait, means never time out.
const Indefinite time.Duration = -1

// NoContext is the sentinel context value written on timeout, matching the
// original's UINT64_MAX sentinel.
const NoContext uint64 = ^uint64(0)

type state int

const (
	uninitialized state = iota
	waiting
	completed
)

// Waiter is a single-use, thread-safe Awakable. After Init, exactly one of
// Awake or a Wait timeout completes the wait; every Awake call after the
// first is discarded, giving first-Awake-wins semantics under concurrent
// wakers.
type Waiter struct {
	mu    sync.Mutex
	state state
	done  chan struct{}

	reason  awakable.Reason
	context uint64
	sig     ipcsignals.State
}

// New returns a Waiter ready for Init.
func New() *Waiter {
	return &Waiter{state: uninitialized}
}

// Init (re)arms the waiter for a new wait cycle. Must be called before each
// use; the zero value is not ready to wait.
func (w *Waiter) Init() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.state = waiting
	w.done = make(chan struct{})
}

// Awake implements awakable.Awakable. The first call wins; later calls are
// silently dropped. Must never block and must never call back into Core.
func (w *Waiter) Awake(context uint64, reason awakable.Reason, sig ipcsignals.State) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.state != waiting {
		return true
	}
	w.reason = reason
	w.context = context
	w.sig = sig
	w.state = completed
	close(w.done)
	return true
}

// Wait blocks until Awake fires or deadline elapses (Indefinite never times
// out). On timeout it returns DEADLINE_EXCEEDED and writes NoContext to
// *context if non-nil; otherwise it returns the Result translated from the
// winning Awake's reason, and writes that call's context/state into the
// optional out-parameters.
func (w *Waiter) Wait(deadline time.Duration, context *uint64, sig *ipcsignals.State) ipcresult.Result {
	w.mu.Lock()
	done := w.done
	w.mu.Unlock()

	if deadline == Indefinite {
		<-done
	} else {
		timer := time.NewTimer(deadline)
		defer timer.Stop()
		select {
		case <-done:
		case <-timer.C:
			if context != nil {
				*context = NoContext
			}
			return ipcresult.DEADLINE_EXCEEDED
		}
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	if context != nil {
		*context = w.context
	}
	if sig != nil {
		*sig = w.sig
	}
	return awakable.ResultForReason(w.reason)
}
