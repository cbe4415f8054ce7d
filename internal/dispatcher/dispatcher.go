// Package dispatcher defines the abstract per-object-kind behavior that Core
// dispatches every handle operation to, plus a reusable base implementation
// shared by every concrete dispatcher.
package dispatcher

import (
	"time"

	"github.com/GriffinCanCode/AgentOS/backend/internal/awakable"
	"github.com/GriffinCanCode/AgentOS/backend/internal/ipcresult"
	"github.com/GriffinCanCode/AgentOS/backend/internal/ipcrights"
	"github.com/GriffinCanCode/AgentOS/backend/internal/ipcsignals"
)

// Kind identifies which concrete dispatcher implementation an instance is.
type Kind int

const (
	KindUnknown Kind = iota
	KindMessagePipe
	KindDataPipeProducer
	KindDataPipeConsumer
	KindSharedBuffer
	KindWaitSet
)

func (k Kind) String() string {
	switch k {
	case KindMessagePipe:
		return "MESSAGE_PIPE"
	case KindDataPipeProducer:
		return "DATA_PIPE_PRODUCER"
	case KindDataPipeConsumer:
		return "DATA_PIPE_CONSUMER"
	case KindSharedBuffer:
		return "SHARED_BUFFER"
	case KindWaitSet:
		return "WAIT_SET"
	default:
		return "UNKNOWN"
	}
}

// EntrypointClass groups the capability methods a dispatcher may support.
// Core consults it only after a rights check has already failed, to decide
// between INVALID_ARGUMENT (operation not supported by this kind at all) and
// PERMISSION_DENIED (operation supported, but rights are insufficient).
type EntrypointClass int

const (
	EntrypointNone EntrypointClass = iota
	EntrypointMessagePipe
	EntrypointDataPipeProducer
	EntrypointDataPipeConsumer
	EntrypointBuffer
	EntrypointWaitSet
)

// BufferInformation reports shared-buffer metadata for GetBufferInformation.
type BufferInformation struct {
	NumBytes uint64
	Flags    uint32
}

// WaitSetResult is one member's outcome from WaitSetWait.
type WaitSetResult struct {
	Cookie  uint64
	Reason  awakable.Reason
	State   ipcsignals.State
}

// TransferredHandle pairs a dispatcher with the rights it carries across a
// WriteMessage/ReadMessage transfer.
type TransferredHandle struct {
	Dispatcher Dispatcher
	Rights     ipcrights.Rights
}

// Message is a single message-pipe payload: bytes plus any transferred
// handles.
type Message struct {
	Bytes   []byte
	Handles []TransferredHandle
}

// ReadRequirement reports the buffer capacity ReadMessage actually needed,
// populated on RESOURCE_EXHAUSTED so the caller can retry with capacity
// that fits. The two counts are independent — spec.md §4.3 gives ReadMessage
// separate in/out num_bytes and num_handles, and a message can overflow
// either without overflowing the other.
type ReadRequirement struct {
	RequiredBytes   int
	RequiredHandles int
}

// Dispatcher is the abstract per-object-kind behavior Core mediates every
// handle operation through. Operations outside a dispatcher's supported
// capability set return UNIMPLEMENTED; Base supplies that default for every
// capability method so concrete types need only override what they support.
// Kind and the signal/awakable methods have no default in Base.
type Dispatcher interface {
	Kind() Kind
	SupportsEntrypointClass(EntrypointClass) bool

	// Lifecycle.
	Close() ipcresult.Result
	DuplicateDispatcher() (Dispatcher, ipcresult.Result)

	// Message pipe.
	WriteMessage(bytes []byte, handles []TransferredHandle, flags uint32) ipcresult.Result
	ReadMessage(maxBytes, maxHandles int, flags uint32) (Message, ReadRequirement, ipcresult.Result)

	// Data pipe producer.
	SetProducerOptions(elementBytes uint32) ipcresult.Result
	GetProducerOptions() (elementBytes, capacityBytes uint32, result ipcresult.Result)
	WriteData(data []byte, flags uint32) (int, ipcresult.Result)
	BeginWriteData(flags uint32) ([]byte, ipcresult.Result)
	EndWriteData(numBytesWritten uint32) ipcresult.Result

	// Data pipe consumer.
	SetConsumerOptions(elementBytes uint32) ipcresult.Result
	GetConsumerOptions() (elementBytes, capacityBytes uint32, result ipcresult.Result)
	ReadData(maxBytes int, flags uint32) ([]byte, ipcresult.Result)
	BeginReadData(flags uint32) ([]byte, ipcresult.Result)
	EndReadData(numBytesRead uint32) ipcresult.Result

	// Shared buffer.
	GetBufferInformation() (BufferInformation, ipcresult.Result)
	MapBuffer(offset, numBytes uint64, writable bool) ([]byte, ipcresult.Result)

	// Wait set.
	WaitSetAdd(member Dispatcher, signals ipcsignals.Signals, cookie uint64) ipcresult.Result
	WaitSetRemove(cookie uint64) ipcresult.Result
	WaitSetWait(deadline time.Duration, maxResults int) ([]WaitSetResult, ipcresult.Result)

	// Waiting.
	AddAwakable(a awakable.Awakable, context uint64, signals ipcsignals.Signals) (ipcsignals.State, ipcresult.Result)
	RemoveAwakable(a awakable.Awakable) ipcsignals.State
	GetHandleSignalsState() ipcsignals.State

	// Transit, used exclusively by Core.WriteMessage's two-phase commit.
	BeginTransit() bool
	EndTransit()
	CancelTransit()

	// CancelAllState delivers AwakeReason Cancelled to every registered
	// awakable, e.g. on Close.
	CancelAllState()
}
