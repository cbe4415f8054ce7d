// Package awakable defines the one-shot notification interface that
// dispatchers use to report signal changes to parked waiters, wait sets, and
// async-wait trampolines.
package awakable

import (
	"github.com/GriffinCanCode/AgentOS/backend/internal/ipcresult"
	"github.com/GriffinCanCode/AgentOS/backend/internal/ipcsignals"
)

// Reason describes why Awake was invoked.
type Reason int

const (
	Satisfied Reason = iota
	Unsatisfiable
	Cancelled
)

// ResultForReason translates a dispatcher's wake reason into the Result a
// blocked caller should observe.
func ResultForReason(r Reason) ipcresult.Result {
	switch r {
	case Satisfied:
		return ipcresult.OK
	case Unsatisfiable:
		return ipcresult.FAILED_PRECONDITION
	case Cancelled:
		return ipcresult.CANCELLED
	default:
		return ipcresult.UNKNOWN
	}
}

// Awakable receives a single notification when the signals it was registered
// for change. Implementations must be non-blocking, safe to call from any
// goroutine (typically while the dispatcher holds its own internal lock),
// and must never call back into Core's public API.
//
// All awakables in this kernel are one-shot and return true.
// dispatcher.AwakableList removes each entry it wakes and does not read the
// return value.
type Awakable interface {
	Awake(context uint64, reason Reason, state ipcsignals.State) bool
}
