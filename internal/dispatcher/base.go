package dispatcher

import (
	"time"

	"github.com/GriffinCanCode/AgentOS/backend/internal/ipcresult"
	"github.com/GriffinCanCode/AgentOS/backend/internal/ipcsignals"
)

// Base embeds into every concrete dispatcher and answers every capability
// method with UNIMPLEMENTED. Concrete types override the handful of methods
// their kind actually supports; everything else falls through to here, which
// is how Core distinguishes "this kind never supports this call"
// (UNIMPLEMENTED) from "this handle lacks the rights" (PERMISSION_DENIED) —
// the latter is decided by Core before the call ever reaches the dispatcher.
type Base struct{}

func (Base) SupportsEntrypointClass(EntrypointClass) bool { return false }

func (Base) Close() ipcresult.Result { return ipcresult.OK }

func (Base) DuplicateDispatcher() (Dispatcher, ipcresult.Result) {
	return nil, ipcresult.UNIMPLEMENTED
}

func (Base) WriteMessage([]byte, []TransferredHandle, uint32) ipcresult.Result {
	return ipcresult.UNIMPLEMENTED
}

func (Base) ReadMessage(int, int, uint32) (Message, ReadRequirement, ipcresult.Result) {
	return Message{}, ReadRequirement{}, ipcresult.UNIMPLEMENTED
}

func (Base) SetProducerOptions(uint32) ipcresult.Result { return ipcresult.UNIMPLEMENTED }

func (Base) GetProducerOptions() (uint32, uint32, ipcresult.Result) {
	return 0, 0, ipcresult.UNIMPLEMENTED
}

func (Base) WriteData([]byte, uint32) (int, ipcresult.Result) { return 0, ipcresult.UNIMPLEMENTED }

func (Base) BeginWriteData(uint32) ([]byte, ipcresult.Result) { return nil, ipcresult.UNIMPLEMENTED }

func (Base) EndWriteData(uint32) ipcresult.Result { return ipcresult.UNIMPLEMENTED }

func (Base) SetConsumerOptions(uint32) ipcresult.Result { return ipcresult.UNIMPLEMENTED }

func (Base) GetConsumerOptions() (uint32, uint32, ipcresult.Result) {
	return 0, 0, ipcresult.UNIMPLEMENTED
}

func (Base) ReadData(int, uint32) ([]byte, ipcresult.Result) { return nil, ipcresult.UNIMPLEMENTED }

func (Base) BeginReadData(uint32) ([]byte, ipcresult.Result) { return nil, ipcresult.UNIMPLEMENTED }

func (Base) EndReadData(uint32) ipcresult.Result { return ipcresult.UNIMPLEMENTED }

func (Base) GetBufferInformation() (BufferInformation, ipcresult.Result) {
	return BufferInformation{}, ipcresult.UNIMPLEMENTED
}

func (Base) MapBuffer(uint64, uint64, bool) ([]byte, ipcresult.Result) {
	return nil, ipcresult.UNIMPLEMENTED
}

func (Base) WaitSetAdd(Dispatcher, ipcsignals.Signals, uint64) ipcresult.Result {
	return ipcresult.UNIMPLEMENTED
}

func (Base) WaitSetRemove(uint64) ipcresult.Result { return ipcresult.UNIMPLEMENTED }

func (Base) WaitSetWait(time.Duration, int) ([]WaitSetResult, ipcresult.Result) {
	return nil, ipcresult.UNIMPLEMENTED
}

func (Base) BeginTransit() bool { return true }

func (Base) EndTransit() {}

func (Base) CancelTransit() {}

// AddAwakable, RemoveAwakable, GetHandleSignalsState, and CancelAllState have
// no sensible UNIMPLEMENTED default — every dispatcher kind supports waiting
// — so Base does not provide them; concrete types compose AwakableList
// instead (see awakablelist.go).
