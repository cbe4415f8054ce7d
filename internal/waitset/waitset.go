// Package waitset implements the wait-set dispatcher: a collection of member
// dispatchers, each watched for a caller-chosen signal mask under a
// caller-chosen cookie, with a single blocking call that reports every
// member that has become ready.
//
// Each member is watched via one one-shot registration on the member's own
// AwakableList. Once a member fires (because its signals became satisfied,
// became permanently unsatisfiable, or it was closed), the corresponding
// entry is moved into the triggered set and stays there — reporting the
// same outcome on every subsequent WaitSetWait — until the caller removes it
// with WaitSetRemove. This is a deliberate simplification of the original's
// fully persistent, re-triggering awakable: this kernel's wait sets are
// edge-triggered rather than level-triggered once an entry fires.
package waitset

import (
	"sync"
	"time"

	"github.com/GriffinCanCode/AgentOS/backend/internal/awakable"
	"github.com/GriffinCanCode/AgentOS/backend/internal/dispatcher"
	"github.com/GriffinCanCode/AgentOS/backend/internal/ipcresult"
	"github.com/GriffinCanCode/AgentOS/backend/internal/ipcsignals"
	"github.com/GriffinCanCode/AgentOS/backend/internal/waiter"
)

type entry struct {
	member    dispatcher.Dispatcher
	signals   ipcsignals.Signals
	cookie    uint64
	triggered bool
	reason    awakable.Reason
	state     ipcsignals.State

	// adapter is the exact Awakable instance registered with member via
	// AddAwakable in WaitSetAdd. RemoveAwakable must be called with this
	// same pointer — AwakableList.Remove matches by interface identity, so
	// a freshly allocated *memberAdapter would never match and the
	// registration would leak for the member's lifetime.
	adapter *memberAdapter
}

// memberAdapter bridges a member dispatcher's one-shot Awakable protocol to
// this entry's slot in WaitSet.
type memberAdapter struct {
	ws *WaitSet
	e  *entry
}

func (m *memberAdapter) Awake(context uint64, reason awakable.Reason, state ipcsignals.State) bool {
	m.ws.mu.Lock()
	if !m.e.triggered {
		m.e.triggered = true
		m.e.reason = reason
		m.e.state = state
		m.ws.cond.Broadcast()
	}
	m.ws.mu.Unlock()
	return true
}

// WaitSet is the dispatcher created by CreateWaitSet.
type WaitSet struct {
	dispatcher.Base
	mu      sync.Mutex
	cond    *sync.Cond
	entries map[uint64]*entry
	closed  bool
}

var _ dispatcher.Dispatcher = (*WaitSet)(nil)

// New returns an empty wait set.
func New() *WaitSet {
	ws := &WaitSet{entries: make(map[uint64]*entry)}
	ws.cond = sync.NewCond(&ws.mu)
	return ws
}

func (ws *WaitSet) Kind() dispatcher.Kind { return dispatcher.KindWaitSet }

func (ws *WaitSet) SupportsEntrypointClass(c dispatcher.EntrypointClass) bool {
	return c == dispatcher.EntrypointNone || c == dispatcher.EntrypointWaitSet
}

func (ws *WaitSet) Close() ipcresult.Result {
	ws.mu.Lock()
	entries := ws.entries
	ws.entries = nil
	ws.closed = true
	ws.cond.Broadcast()
	ws.mu.Unlock()

	for _, e := range entries {
		e.member.RemoveAwakable(e.adapter)
	}
	return ipcresult.OK
}

func (ws *WaitSet) CancelAllState() { ws.Close() }

// A wait set exposes no observable readiness signals of its own; AddAwakable
// mirrors sharedbuffer's treatment of signal-less dispatchers.
func (ws *WaitSet) AddAwakable(a awakable.Awakable, context uint64, signals ipcsignals.Signals) (ipcsignals.State, ipcresult.Result) {
	state := ipcsignals.State{}
	if signals == ipcsignals.None {
		return state, ipcresult.OK
	}
	a.Awake(context, awakable.Unsatisfiable, state)
	return state, ipcresult.FAILED_PRECONDITION
}

func (ws *WaitSet) RemoveAwakable(awakable.Awakable) ipcsignals.State { return ipcsignals.State{} }

func (ws *WaitSet) GetHandleSignalsState() ipcsignals.State { return ipcsignals.State{} }

func (ws *WaitSet) WaitSetAdd(member dispatcher.Dispatcher, signals ipcsignals.Signals, cookie uint64) ipcresult.Result {
	ws.mu.Lock()
	if ws.closed {
		ws.mu.Unlock()
		return ipcresult.INVALID_ARGUMENT
	}
	if _, exists := ws.entries[cookie]; exists {
		ws.mu.Unlock()
		return ipcresult.ALREADY
	}
	e := &entry{member: member, signals: signals, cookie: cookie}
	adapter := &memberAdapter{ws: ws, e: e}
	e.adapter = adapter
	ws.entries[cookie] = e
	ws.mu.Unlock()

	_, res := member.AddAwakable(adapter, cookie, signals)

	ws.mu.Lock()
	defer ws.mu.Unlock()
	if ws.closed {
		return ipcresult.INVALID_ARGUMENT
	}
	if res != ipcresult.OK && res != ipcresult.ALREADY && res != ipcresult.FAILED_PRECONDITION {
		delete(ws.entries, cookie)
		return res
	}
	return ipcresult.OK
}

func (ws *WaitSet) WaitSetRemove(cookie uint64) ipcresult.Result {
	ws.mu.Lock()
	if ws.closed {
		ws.mu.Unlock()
		return ipcresult.INVALID_ARGUMENT
	}
	e, ok := ws.entries[cookie]
	if !ok {
		ws.mu.Unlock()
		return ipcresult.OUT_OF_RANGE
	}
	delete(ws.entries, cookie)
	ws.mu.Unlock()

	if !e.triggered {
		e.member.RemoveAwakable(e.adapter)
	}
	return ipcresult.OK
}

func (ws *WaitSet) WaitSetWait(deadline time.Duration, maxResults int) ([]dispatcher.WaitSetResult, ipcresult.Result) {
	ws.mu.Lock()
	defer ws.mu.Unlock()

	if ws.closed {
		return nil, ipcresult.INVALID_ARGUMENT
	}

	deadlineAt := time.Now().Add(deadline)
	for !ws.closed && ws.triggeredCountLocked() == 0 {
		if deadline == waiter.Indefinite {
			ws.cond.Wait()
			continue
		}
		remaining := time.Until(deadlineAt)
		if remaining <= 0 {
			return nil, ipcresult.DEADLINE_EXCEEDED
		}
		woke := make(chan struct{})
		timer := time.AfterFunc(remaining, func() {
			ws.mu.Lock()
			ws.cond.Broadcast()
			ws.mu.Unlock()
			close(woke)
		})
		ws.cond.Wait()
		timer.Stop()
		select {
		case <-woke:
		default:
		}
		if time.Now().After(deadlineAt) && ws.triggeredCountLocked() == 0 {
			return nil, ipcresult.DEADLINE_EXCEEDED
		}
	}
	if ws.closed {
		return nil, ipcresult.CANCELLED
	}

	var out []dispatcher.WaitSetResult
	for _, e := range ws.entries {
		if !e.triggered {
			continue
		}
		out = append(out, dispatcher.WaitSetResult{Cookie: e.cookie, Reason: e.reason, State: e.state})
		if maxResults > 0 && len(out) >= maxResults {
			break
		}
	}
	return out, ipcresult.OK
}

func (ws *WaitSet) triggeredCountLocked() int {
	n := 0
	for _, e := range ws.entries {
		if e.triggered {
			n++
		}
	}
	return n
}
