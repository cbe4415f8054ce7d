package dispatcher

import (
	"sync"

	"github.com/GriffinCanCode/AgentOS/backend/internal/awakable"
	"github.com/GriffinCanCode/AgentOS/backend/internal/ipcresult"
	"github.com/GriffinCanCode/AgentOS/backend/internal/ipcsignals"
)

// entry is one registered awakable, matched against a dispatcher's current
// state each time OnStateChange runs.
type entry struct {
	a       awakable.Awakable
	context uint64
	signals ipcsignals.Signals
}

// AwakableList is the shared bookkeeping every concrete dispatcher composes
// to implement AddAwakable/RemoveAwakable/CancelAllState: a list of
// one-shot-only registered awakables, each woken and dropped the moment the
// dispatcher's state satisfies or permanently fails to satisfy the signals
// it was registered for.
//
// Callers are responsible for their own locking around the dispatcher's
// state; AwakableList's own mutex only protects the entry list itself, so it
// is safe to call OnStateChange while already holding the dispatcher's lock
// (Awake implementations must not block or call back into Core).
type AwakableList struct {
	mu      sync.Mutex
	entries []entry
}

// Add registers a for notification on signals given the dispatcher's current
// state. If current already satisfies or can never satisfy signals, Add
// notifies immediately instead of storing the entry, mirroring
// AddAwakableImplNoLock's immediate-completion branches.
func (l *AwakableList) Add(a awakable.Awakable, context uint64, signals ipcsignals.Signals, current ipcsignals.State) ipcresult.Result {
	switch {
	case current.Satisfies(signals):
		a.Awake(context, awakable.Satisfied, current)
		return ipcresult.ALREADY
	case !current.CanSatisfy(signals):
		a.Awake(context, awakable.Unsatisfiable, current)
		return ipcresult.FAILED_PRECONDITION
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = append(l.entries, entry{a: a, context: context, signals: signals})
	return ipcresult.OK
}

// Remove drops every entry registered for a, returning how many were
// removed. It does not notify a; the caller (typically Core, after it has
// already decided the wait is being cancelled) is responsible for any
// notification semantics beyond removal.
func (l *AwakableList) Remove(a awakable.Awakable) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	kept := l.entries[:0]
	removed := 0
	for _, e := range l.entries {
		if e.a == a {
			removed++
			continue
		}
		kept = append(kept, e)
	}
	l.entries = kept
	return removed
}

// OnStateChange notifies and drops every entry whose signals are now
// satisfied (Satisfied reason) or can never be satisfied again
// (Unsatisfiable reason), keeping everything else registered. Call after
// every dispatcher state transition that could affect HandleSignalsState.
func (l *AwakableList) OnStateChange(newState ipcsignals.State) {
	l.mu.Lock()
	var remaining []entry
	var toWake []entry
	var reasons []awakable.Reason
	for _, e := range l.entries {
		switch {
		case newState.Satisfies(e.signals):
			toWake = append(toWake, e)
			reasons = append(reasons, awakable.Satisfied)
		case !newState.CanSatisfy(e.signals):
			toWake = append(toWake, e)
			reasons = append(reasons, awakable.Unsatisfiable)
		default:
			remaining = append(remaining, e)
		}
	}
	l.entries = remaining
	l.mu.Unlock()

	for i, e := range toWake {
		e.a.Awake(e.context, reasons[i], newState)
	}
}

// CancelAndRemoveAll notifies every remaining entry with the Cancelled
// reason and clears the list. Call from CancelAllState, typically on Close.
func (l *AwakableList) CancelAndRemoveAll(finalState ipcsignals.State) {
	l.mu.Lock()
	entries := l.entries
	l.entries = nil
	l.mu.Unlock()

	for _, e := range entries {
		e.a.Awake(e.context, awakable.Cancelled, finalState)
	}
}

// Len reports how many awakables are currently registered; used by tests.
func (l *AwakableList) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}
