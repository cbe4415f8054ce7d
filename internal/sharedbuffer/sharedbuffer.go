// Package sharedbuffer implements the shared-memory-region dispatcher: a
// byte slice shared by reference across every handle duplicated from the
// same CreateSharedBuffer call.
package sharedbuffer

import (
	"sync"

	"github.com/GriffinCanCode/AgentOS/backend/internal/awakable"
	"github.com/GriffinCanCode/AgentOS/backend/internal/dispatcher"
	"github.com/GriffinCanCode/AgentOS/backend/internal/ipcresult"
	"github.com/GriffinCanCode/AgentOS/backend/internal/ipcsignals"
)

// region is the arena shared by a buffer dispatcher and every dispatcher
// produced by duplicating it.
type region struct {
	mu   sync.Mutex
	data []byte
}

// Buffer is a handle-facing view over a shared region.
type Buffer struct {
	dispatcher.Base
	region *region
}

var _ dispatcher.Dispatcher = (*Buffer)(nil)

// Create allocates a fresh, zeroed region of numBytes and returns the
// dispatcher owning the first handle to it.
func Create(numBytes uint64) *Buffer {
	return &Buffer{region: &region{data: make([]byte, numBytes)}}
}

func (b *Buffer) Kind() dispatcher.Kind { return dispatcher.KindSharedBuffer }

func (b *Buffer) SupportsEntrypointClass(c dispatcher.EntrypointClass) bool {
	return c == dispatcher.EntrypointNone || c == dispatcher.EntrypointBuffer
}

// DuplicateDispatcher returns a new Buffer dispatcher sharing this one's
// backing region; callers (Core) are responsible for computing the
// duplicate's rights.
func (b *Buffer) DuplicateDispatcher() (dispatcher.Dispatcher, ipcresult.Result) {
	return &Buffer{region: b.region}, ipcresult.OK
}

func (b *Buffer) GetBufferInformation() (dispatcher.BufferInformation, ipcresult.Result) {
	b.region.mu.Lock()
	defer b.region.mu.Unlock()
	return dispatcher.BufferInformation{NumBytes: uint64(len(b.region.data))}, ipcresult.OK
}

// MapBuffer returns a slice view of [offset, offset+numBytes) into the
// shared region. The returned slice aliases the region's backing array, so
// writes through it (when writable rights were granted) are visible to
// every other mapping of the same region.
func (b *Buffer) MapBuffer(offset, numBytes uint64, writable bool) ([]byte, ipcresult.Result) {
	b.region.mu.Lock()
	defer b.region.mu.Unlock()
	total := uint64(len(b.region.data))
	if numBytes == 0 || offset > total || numBytes > total-offset {
		return nil, ipcresult.INVALID_ARGUMENT
	}
	return b.region.data[offset : offset+numBytes], ipcresult.OK
}

// Shared buffers have no observable readiness signals; AddAwakable always
// reports the signals requested as unsatisfiable unless the caller asked for
// nothing.
func (b *Buffer) AddAwakable(a awakable.Awakable, context uint64, signals ipcsignals.Signals) (ipcsignals.State, ipcresult.Result) {
	state := ipcsignals.State{}
	if signals == ipcsignals.None {
		return state, ipcresult.OK
	}
	a.Awake(context, awakable.Unsatisfiable, state)
	return state, ipcresult.FAILED_PRECONDITION
}

func (b *Buffer) RemoveAwakable(awakable.Awakable) ipcsignals.State { return ipcsignals.State{} }

func (b *Buffer) GetHandleSignalsState() ipcsignals.State { return ipcsignals.State{} }

func (b *Buffer) CancelAllState() {}
