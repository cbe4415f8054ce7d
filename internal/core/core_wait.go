package core

import (
	"time"

	"github.com/GriffinCanCode/AgentOS/backend/internal/dispatcher"
	"github.com/GriffinCanCode/AgentOS/backend/internal/handle"
	"github.com/GriffinCanCode/AgentOS/backend/internal/ipcresult"
	"github.com/GriffinCanCode/AgentOS/backend/internal/ipcsignals"
	"github.com/GriffinCanCode/AgentOS/backend/internal/waiter"
)

// Wait blocks until hv's dispatcher satisfies any bit of signals, the wait
// becomes permanently unsatisfiable, hv is closed, or deadline elapses.
// outState, if non-nil, receives the final signal state on every exit path
// except when hv cannot be resolved (INVALID_ARGUMENT, or BUSY while hv is
// in transit).
func (c *Core) Wait(hv handle.Value, signals ipcsignals.Signals, deadline time.Duration, outState *ipcsignals.State) (res ipcresult.Result) {
	start := time.Now()
	defer func() { c.record("Wait", res, start) }()

	d, res := c.getDispatcherAndCheckRights(hv, 0, dispatcher.EntrypointNone)
	if res != ipcresult.OK {
		return res
	}

	w := waiter.New()
	w.Init()
	initialState, addRes := d.AddAwakable(w, 0, signals)
	if addRes == ipcresult.ALREADY {
		if outState != nil {
			*outState = initialState
		}
		return ipcresult.OK
	}
	if addRes == ipcresult.FAILED_PRECONDITION {
		if outState != nil {
			*outState = initialState
		}
		return ipcresult.FAILED_PRECONDITION
	}

	var finalState ipcsignals.State
	waitRes := w.Wait(deadline, nil, &finalState)
	removedState := d.RemoveAwakable(w)
	if waitRes == ipcresult.DEADLINE_EXCEEDED {
		finalState = removedState
	}
	if outState != nil {
		*outState = finalState
	}
	return waitRes
}

// waitManyEntry bundles one WaitMany input's resolved dispatcher with its
// requested signals, so cleanup can walk the exact set that was
// successfully registered.
type waitManyEntry struct {
	d       dispatcher.Dispatcher
	signals ipcsignals.Signals
}

// WaitMany waits on several handles at once, returning as soon as any one
// of them is ready. resultIndex receives the index of the handle that
// resolved the wait (or, on the first resolution failure, the index of the
// offending handle). states, if non-nil, must have the same length as
// handles and signals; it receives each handle's final state except when a
// handle cannot be resolved (INVALID_ARGUMENT, or BUSY while in transit).
func (c *Core) WaitMany(handles []handle.Value, signals []ipcsignals.Signals, deadline time.Duration, resultIndex *int, states []ipcsignals.State) (res ipcresult.Result) {
	start := time.Now()
	defer func() { c.record("WaitMany", res, start) }()

	entries := make([]waitManyEntry, len(handles))
	for i, hv := range handles {
		d, res := c.getDispatcherAndCheckRights(hv, 0, dispatcher.EntrypointNone)
		if res != ipcresult.OK {
			if resultIndex != nil {
				*resultIndex = i
			}
			return res
		}
		entries[i] = waitManyEntry{d: d, signals: signals[i]}
	}

	w := waiter.New()
	w.Init()

	registered := make([]bool, len(entries))
	var immediate *int
	var immediateResult ipcresult.Result
	firstUnsatisfiable := -1

	for i, e := range entries {
		state, res := e.d.AddAwakable(w, uint64(i), e.signals)
		switch res {
		case ipcresult.ALREADY:
			if immediate == nil {
				idx := i
				immediate = &idx
				immediateResult = ipcresult.OK
				_ = state
			}
		case ipcresult.FAILED_PRECONDITION:
			if firstUnsatisfiable < 0 {
				firstUnsatisfiable = i
			}
		case ipcresult.OK:
			registered[i] = true
		}
	}

	cleanup := func(winner int, finalStates map[int]ipcsignals.State) {
		for i, e := range entries {
			if !registered[i] {
				if states != nil {
					states[i] = e.d.GetHandleSignalsState()
				}
				continue
			}
			s := e.d.RemoveAwakable(w)
			if states != nil {
				if fs, ok := finalStates[i]; ok {
					states[i] = fs
				} else {
					states[i] = s
				}
			}
		}
	}

	if immediate != nil {
		cleanup(*immediate, nil)
		if resultIndex != nil {
			*resultIndex = *immediate
		}
		return immediateResult
	}
	if firstUnsatisfiable >= 0 && countRegistered(registered) == 0 {
		cleanup(firstUnsatisfiable, nil)
		if resultIndex != nil {
			*resultIndex = firstUnsatisfiable
		}
		return ipcresult.FAILED_PRECONDITION
	}

	var context uint64
	var finalState ipcsignals.State
	waitRes := w.Wait(deadline, &context, &finalState)

	winner := int(context)
	finalStates := map[int]ipcsignals.State{}
	if waitRes != ipcresult.DEADLINE_EXCEEDED {
		finalStates[winner] = finalState
	}
	cleanup(winner, finalStates)

	if resultIndex != nil {
		if waitRes == ipcresult.DEADLINE_EXCEEDED {
			*resultIndex = -1
		} else {
			*resultIndex = winner
		}
	}
	return waitRes
}

func countRegistered(registered []bool) int {
	n := 0
	for _, r := range registered {
		if r {
			n++
		}
	}
	return n
}
