// Package messagepipe implements a local, in-process message pipe: a pair of
// dispatchers that exchange discrete byte+handle messages FIFO in each
// direction.
//
// Both endpoints are modeled as thin views (port 0 and port 1) over a single
// shared pipeState, the way the original's two MessagePipeDispatchers both
// reference one MessagePipe object. Routing the peer link through that
// shared object — rather than each endpoint holding a direct pointer to its
// peer — is what avoids a strong reference cycle: closing one endpoint marks
// its port closed in the shared pipeState, which is enough for the other port
// to observe PeerClosed without either side ever holding the other alive.
package messagepipe

import (
	"sync"

	"github.com/GriffinCanCode/AgentOS/backend/internal/awakable"
	"github.com/GriffinCanCode/AgentOS/backend/internal/dispatcher"
	"github.com/GriffinCanCode/AgentOS/backend/internal/ipcresult"
	"github.com/GriffinCanCode/AgentOS/backend/internal/ipcsignals"
)

const port0, port1 = 0, 1

// pipeState is the arena both endpoints share: one FIFO queue per direction
// and one closed flag per port.
type pipeState struct {
	mu       sync.Mutex
	inbox    [2][]dispatcher.Message
	closed   [2]bool
	awakable [2]dispatcher.AwakableList
}

func newPipeState() *pipeState {
	return &pipeState{}
}

func (p *pipeState) signalStateLocked(port int) ipcsignals.State {
	peer := 1 - port
	var sig ipcsignals.Signals
	satisfiable := ipcsignals.Writable
	if len(p.inbox[port]) > 0 {
		sig |= ipcsignals.Readable
	}
	if !p.closed[peer] {
		sig |= ipcsignals.Writable
		satisfiable |= ipcsignals.Readable
	} else {
		sig |= ipcsignals.PeerClosed
		if len(p.inbox[port]) > 0 {
			satisfiable |= ipcsignals.Readable
		}
	}
	satisfiable |= ipcsignals.PeerClosed
	return ipcsignals.State{Satisfied: sig, Satisfiable: satisfiable}
}

// CreatePipe returns the two connected endpoints of a fresh pipe.
func CreatePipe() (*Endpoint, *Endpoint) {
	p := newPipeState()
	return &Endpoint{state: p, port: port0}, &Endpoint{state: p, port: port1}
}

// Endpoint is one side of a message pipe.
type Endpoint struct {
	dispatcher.Base
	state *pipeState
	port  int

	inTransit bool
}

var _ dispatcher.Dispatcher = (*Endpoint)(nil)

func (e *Endpoint) Kind() dispatcher.Kind { return dispatcher.KindMessagePipe }

func (e *Endpoint) SupportsEntrypointClass(c dispatcher.EntrypointClass) bool {
	return c == dispatcher.EntrypointNone || c == dispatcher.EntrypointMessagePipe
}

func (e *Endpoint) Close() ipcresult.Result {
	e.state.mu.Lock()
	e.state.closed[e.port] = true
	peerState := e.state.signalStateLocked(1 - e.port)
	ownAwakables := &e.state.awakable[e.port]
	e.state.mu.Unlock()

	ownAwakables.CancelAndRemoveAll(ipcsignals.State{})
	e.state.awakable[1-e.port].OnStateChange(peerState)
	return ipcresult.OK
}

func (e *Endpoint) CancelAllState() {
	e.state.mu.Lock()
	awakables := &e.state.awakable[e.port]
	e.state.mu.Unlock()
	awakables.CancelAndRemoveAll(ipcsignals.State{})
}

// DuplicateDispatcher is unsupported: message pipe endpoints are unique,
// matching the original (there is no meaningful "duplicate" of one port of a
// two-party pipe).
func (e *Endpoint) DuplicateDispatcher() (dispatcher.Dispatcher, ipcresult.Result) {
	return nil, ipcresult.UNIMPLEMENTED
}

func (e *Endpoint) WriteMessage(bytes []byte, handles []dispatcher.TransferredHandle, flags uint32) ipcresult.Result {
	e.state.mu.Lock()
	if e.state.closed[e.port] {
		e.state.mu.Unlock()
		return ipcresult.INVALID_ARGUMENT
	}
	peer := 1 - e.port
	msg := dispatcher.Message{Bytes: append([]byte(nil), bytes...), Handles: handles}
	if e.state.closed[peer] {
		// Peer gone: the write is accepted (matching FIFO-ordering semantics
		// on the sender side) but can never be observed.
		e.state.mu.Unlock()
		return ipcresult.OK
	}
	e.state.inbox[peer] = append(e.state.inbox[peer], msg)
	newState := e.state.signalStateLocked(peer)
	awakables := &e.state.awakable[peer]
	e.state.mu.Unlock()

	awakables.OnStateChange(newState)
	return ipcresult.OK
}

func (e *Endpoint) ReadMessage(maxBytes, maxHandles int, flags uint32) (dispatcher.Message, dispatcher.ReadRequirement, ipcresult.Result) {
	e.state.mu.Lock()
	defer e.state.mu.Unlock()

	if e.state.closed[e.port] {
		return dispatcher.Message{}, dispatcher.ReadRequirement{}, ipcresult.INVALID_ARGUMENT
	}
	q := e.state.inbox[e.port]
	if len(q) == 0 {
		if e.state.closed[1-e.port] {
			return dispatcher.Message{}, dispatcher.ReadRequirement{}, ipcresult.FAILED_PRECONDITION
		}
		return dispatcher.Message{}, dispatcher.ReadRequirement{}, ipcresult.SHOULD_WAIT
	}

	msg := q[0]
	if len(msg.Handles) > maxHandles {
		return dispatcher.Message{}, dispatcher.ReadRequirement{RequiredHandles: len(msg.Handles)}, ipcresult.RESOURCE_EXHAUSTED
	}
	if maxBytes >= 0 && len(msg.Bytes) > maxBytes {
		const mayDiscard = 1
		if flags&mayDiscard != 0 {
			e.state.inbox[e.port] = q[1:]
		}
		return dispatcher.Message{}, dispatcher.ReadRequirement{RequiredBytes: len(msg.Bytes)}, ipcresult.RESOURCE_EXHAUSTED
	}

	e.state.inbox[e.port] = q[1:]
	return msg, dispatcher.ReadRequirement{RequiredBytes: len(msg.Bytes), RequiredHandles: len(msg.Handles)}, ipcresult.OK
}

func (e *Endpoint) AddAwakable(a awakable.Awakable, context uint64, signals ipcsignals.Signals) (ipcsignals.State, ipcresult.Result) {
	e.state.mu.Lock()
	current := e.state.signalStateLocked(e.port)
	list := &e.state.awakable[e.port]
	e.state.mu.Unlock()

	res := list.Add(a, context, signals, current)
	return current, res
}

func (e *Endpoint) RemoveAwakable(a awakable.Awakable) ipcsignals.State {
	e.state.mu.Lock()
	list := &e.state.awakable[e.port]
	current := e.state.signalStateLocked(e.port)
	e.state.mu.Unlock()
	list.Remove(a)
	return current
}

func (e *Endpoint) GetHandleSignalsState() ipcsignals.State {
	e.state.mu.Lock()
	defer e.state.mu.Unlock()
	return e.state.signalStateLocked(e.port)
}

func (e *Endpoint) BeginTransit() bool {
	e.state.mu.Lock()
	defer e.state.mu.Unlock()
	if e.inTransit {
		return false
	}
	e.inTransit = true
	return true
}

func (e *Endpoint) EndTransit() {
	e.state.mu.Lock()
	e.inTransit = false
	awakables := &e.state.awakable[e.port]
	e.state.mu.Unlock()
	awakables.CancelAndRemoveAll(ipcsignals.State{})
}

func (e *Endpoint) CancelTransit() {
	e.state.mu.Lock()
	e.inTransit = false
	e.state.mu.Unlock()
}
