package core

import (
	"time"

	"github.com/GriffinCanCode/AgentOS/backend/internal/dispatcher"
	"github.com/GriffinCanCode/AgentOS/backend/internal/handle"
	"github.com/GriffinCanCode/AgentOS/backend/internal/ipcresult"
	"github.com/GriffinCanCode/AgentOS/backend/internal/ipcrights"
	"github.com/GriffinCanCode/AgentOS/backend/internal/mappingtable"
	"github.com/GriffinCanCode/AgentOS/backend/internal/sharedbuffer"
)

const defaultSharedBufferRights = ipcrights.Transfer | ipcrights.Duplicate | ipcrights.GetOptions |
	ipcrights.Read | ipcrights.Write | ipcrights.MapReadable | ipcrights.MapWritable | ipcrights.MapExecutable

// CreateSharedBuffer allocates a new shared-memory region and returns a
// handle to it.
func (c *Core) CreateSharedBuffer(opts CreateSharedBufferOptions, numBytes uint64) (v handle.Value, res ipcresult.Result) {
	start := time.Now()
	defer func() { c.record("CreateSharedBuffer", res, start) }()

	if res = c.checkCreateRateLimit(); res != ipcresult.OK {
		return handle.Invalid, res
	}
	if res = opts.validate(); res != ipcresult.OK {
		return handle.Invalid, res
	}
	if numBytes == 0 {
		return handle.Invalid, ipcresult.INVALID_ARGUMENT
	}
	buf := sharedbuffer.Create(numBytes)
	v = c.addHandle(handle.New(buf, defaultSharedBufferRights))
	if v == handle.Invalid {
		return handle.Invalid, ipcresult.RESOURCE_EXHAUSTED
	}
	if c.metrics != nil {
		c.metrics.HandlesCreated.Inc()
	}
	return v, ipcresult.OK
}

// DuplicateBufferHandle requires DUPLICATE on hv and installs a new handle
// to the same underlying region with opts.RightsToRemove cleared.
func (c *Core) DuplicateBufferHandle(hv handle.Value, opts DuplicateBufferHandleOptions) (handle.Value, ipcresult.Result) {
	if res := opts.validate(); res != ipcresult.OK {
		return handle.Invalid, res
	}
	d, res := c.getDispatcherAndCheckRights(hv, ipcrights.Duplicate, dispatcher.EntrypointBuffer)
	if res != ipcresult.OK {
		return handle.Invalid, res
	}

	dup, res := d.DuplicateDispatcher()
	if res != ipcresult.OK {
		return handle.Invalid, res
	}

	c.tableMu.Lock()
	h, _ := c.table.GetHandle(hv)
	newRights := h.Rights.Remove(ipcrights.Rights(opts.RightsToRemove))
	v := c.table.AddHandle(handle.New(dup, newRights))
	c.tableMu.Unlock()
	if v == handle.Invalid {
		dup.Close()
		return handle.Invalid, ipcresult.RESOURCE_EXHAUSTED
	}
	return v, ipcresult.OK
}

func (c *Core) GetBufferInformation(hv handle.Value) (dispatcher.BufferInformation, ipcresult.Result) {
	d, res := c.getDispatcherAndCheckRights(hv, ipcrights.GetOptions, dispatcher.EntrypointBuffer)
	if res != ipcresult.OK {
		return dispatcher.BufferInformation{}, res
	}
	return d.GetBufferInformation()
}

// MapBuffer requires MAP_READABLE, plus MAP_WRITABLE when writable is true,
// maps [offset, offset+numBytes), and returns a token identifying the
// mapping for a later UnmapBuffer along with the mapped bytes.
func (c *Core) MapBuffer(hv handle.Value, offset, numBytes uint64, writable bool) (mappingtable.Token, []byte, ipcresult.Result) {
	required := ipcrights.MapReadable
	if writable {
		required |= ipcrights.MapWritable
	}
	d, res := c.getDispatcherAndCheckRights(hv, required, dispatcher.EntrypointBuffer)
	if res != ipcresult.OK {
		return 0, nil, res
	}
	bytes, res := d.MapBuffer(offset, numBytes, writable)
	if res != ipcresult.OK {
		return 0, nil, res
	}

	c.mappingMu.Lock()
	defer c.mappingMu.Unlock()
	tok := c.mappings.AddMapping(bytes)
	return tok, bytes, ipcresult.OK
}

// UnmapBuffer tears down a mapping previously returned by MapBuffer.
func (c *Core) UnmapBuffer(tok mappingtable.Token) ipcresult.Result {
	c.mappingMu.Lock()
	defer c.mappingMu.Unlock()
	return c.mappings.RemoveMapping(tok)
}
