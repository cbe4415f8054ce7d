package core

import (
	"time"

	"github.com/GriffinCanCode/AgentOS/backend/internal/dispatcher"
	"github.com/GriffinCanCode/AgentOS/backend/internal/handle"
	"github.com/GriffinCanCode/AgentOS/backend/internal/ipcresult"
	"github.com/GriffinCanCode/AgentOS/backend/internal/ipcrights"
	"github.com/GriffinCanCode/AgentOS/backend/internal/messagepipe"
)

const defaultMessagePipeRights = ipcrights.Transfer | ipcrights.Read | ipcrights.Write | ipcrights.GetOptions | ipcrights.SetOptions

// maxMessageNumHandles bounds num_xfer in WriteMessage; larger but
// still-representable counts are RESOURCE_EXHAUSTED rather than
// INVALID_ARGUMENT.
const maxMessageNumHandles = 1024

// CreateMessagePipe creates a connected pair of message-pipe endpoint
// handles.
func (c *Core) CreateMessagePipe(opts CreateMessagePipeOptions) (v0, v1 handle.Value, res ipcresult.Result) {
	start := time.Now()
	defer func() { c.record("CreateMessagePipe", res, start) }()

	if res = c.checkCreateRateLimit(); res != ipcresult.OK {
		return handle.Invalid, handle.Invalid, res
	}
	if res = opts.validate(); res != ipcresult.OK {
		return handle.Invalid, handle.Invalid, res
	}
	e0, e1 := messagepipe.CreatePipe()

	c.tableMu.Lock()
	v0, v1 = c.table.AddHandlePair(
		handle.New(e0, defaultMessagePipeRights),
		handle.New(e1, defaultMessagePipeRights),
	)
	c.tableMu.Unlock()
	if v0 == handle.Invalid {
		return handle.Invalid, handle.Invalid, ipcresult.RESOURCE_EXHAUSTED
	}
	if c.metrics != nil {
		c.metrics.HandlesCreated.Add(2)
	}
	return v0, v1, ipcresult.OK
}

// WriteMessage sends bytes, and transfers xfer (each of which must carry
// TRANSFER), from msgHV's peer's perspective. It implements a two-phase
// commit: mark busy under the table lock, BeginTransit
// each transferred dispatcher outside the lock, attempt the write, then
// either EndTransit+remove (success) or CancelTransit+restore (failure).
func (c *Core) WriteMessage(msgHV handle.Value, bytes []byte, xfer []handle.Value, flags uint32) (res ipcresult.Result) {
	start := time.Now()
	defer func() { c.record("WriteMessage", res, start) }()

	d, res := c.getDispatcherAndCheckRights(msgHV, ipcrights.Write, dispatcher.EntrypointMessagePipe)
	if res != ipcresult.OK {
		return res
	}

	if len(xfer) > maxMessageNumHandles {
		return ipcresult.RESOURCE_EXHAUSTED
	}
	seen := make(map[handle.Value]bool, len(xfer))
	for _, v := range xfer {
		if v == msgHV {
			return ipcresult.BUSY
		}
	}
	for _, v := range xfer {
		if v == handle.Invalid {
			return ipcresult.INVALID_ARGUMENT
		}
		if seen[v] {
			return ipcresult.INVALID_ARGUMENT
		}
		seen[v] = true
	}

	c.tableMu.Lock()
	resolved, res := c.table.MarkBusyAndStartTransport(msgHV, xfer)
	c.tableMu.Unlock()
	if res != ipcresult.OK {
		return res
	}

	dispatchers := make([]dispatcher.Dispatcher, len(resolved))
	rights := make([]ipcrights.Rights, len(resolved))
	for i, h := range resolved {
		dispatchers[i] = h.Dispatcher
		rights[i] = h.Rights
	}

	began := 0
	for i, d := range dispatchers {
		if !d.BeginTransit() {
			for j := 0; j < began; j++ {
				dispatchers[j].CancelTransit()
			}
			c.tableMu.Lock()
			c.table.RestoreBusyHandles(xfer)
			c.tableMu.Unlock()
			_ = i
			return ipcresult.BUSY
		}
		began++
	}

	transferred := make([]dispatcher.TransferredHandle, len(dispatchers))
	for i, d := range dispatchers {
		transferred[i] = dispatcher.TransferredHandle{Dispatcher: d, Rights: rights[i]}
	}

	writeRes := d.WriteMessage(bytes, transferred, flags)
	if writeRes != ipcresult.OK {
		for _, d := range dispatchers {
			d.CancelTransit()
		}
		c.tableMu.Lock()
		c.table.RestoreBusyHandles(xfer)
		c.tableMu.Unlock()
		return writeRes
	}

	for _, d := range dispatchers {
		d.EndTransit()
	}
	c.tableMu.Lock()
	c.table.RemoveBusyHandles(xfer)
	c.tableMu.Unlock()
	return ipcresult.OK
}

// ReadResult is the decoded payload of a successful ReadMessage. On a
// RESOURCE_EXHAUSTED failure, RequiredBytes/RequiredHandles instead report
// the capacity the caller needs to retry with — independently, since
// spec.md §4.3 gives ReadMessage separate in/out num_bytes and num_handles
// and a message can overflow either without overflowing the other.
type ReadResult struct {
	Bytes           []byte
	Handles         []handle.Value
	RequiredBytes   int
	RequiredHandles int
}

// ReadMessage reads the next queued message on msgHV, installing any
// transferred handles into the table with the rights they carried across
// the wire.
func (c *Core) ReadMessage(msgHV handle.Value, maxBytes, maxHandles int, flags uint32) (rr ReadResult, res ipcresult.Result) {
	start := time.Now()
	defer func() { c.record("ReadMessage", res, start) }()

	d, res := c.getDispatcherAndCheckRights(msgHV, ipcrights.Read, dispatcher.EntrypointMessagePipe)
	if res != ipcresult.OK {
		return ReadResult{}, res
	}

	msg, requirement, res := d.ReadMessage(maxBytes, maxHandles, flags)
	if res != ipcresult.OK {
		if res == ipcresult.RESOURCE_EXHAUSTED {
			return ReadResult{RequiredBytes: requirement.RequiredBytes, RequiredHandles: requirement.RequiredHandles}, res
		}
		return ReadResult{}, res
	}

	c.tableMu.Lock()
	defer c.tableMu.Unlock()
	values := make([]handle.Value, len(msg.Handles))
	for i, th := range msg.Handles {
		v := c.table.AddHandle(handle.New(th.Dispatcher, th.Rights))
		if v == handle.Invalid {
			for j := 0; j < i; j++ {
				c.table.GetAndRemoveHandle(values[j])
			}
			return ReadResult{}, ipcresult.RESOURCE_EXHAUSTED
		}
		values[i] = v
	}
	return ReadResult{Bytes: msg.Bytes, Handles: values}, ipcresult.OK
}
