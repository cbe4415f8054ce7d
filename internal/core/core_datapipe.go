package core

import (
	"time"

	"github.com/GriffinCanCode/AgentOS/backend/internal/datapipe"
	"github.com/GriffinCanCode/AgentOS/backend/internal/dispatcher"
	"github.com/GriffinCanCode/AgentOS/backend/internal/handle"
	"github.com/GriffinCanCode/AgentOS/backend/internal/ipcresult"
	"github.com/GriffinCanCode/AgentOS/backend/internal/ipcrights"
)

const defaultDataPipeProducerRights = ipcrights.Transfer | ipcrights.Write | ipcrights.GetOptions | ipcrights.SetOptions
const defaultDataPipeConsumerRights = ipcrights.Transfer | ipcrights.Read | ipcrights.GetOptions | ipcrights.SetOptions

// CreateDataPipe creates a connected producer/consumer pair.
func (c *Core) CreateDataPipe(opts CreateDataPipeOptions) (vp, vc handle.Value, res ipcresult.Result) {
	start := time.Now()
	defer func() { c.record("CreateDataPipe", res, start) }()

	if res = c.checkCreateRateLimit(); res != ipcresult.OK {
		return handle.Invalid, handle.Invalid, res
	}
	resolved, res := opts.resolve()
	if res != ipcresult.OK {
		return handle.Invalid, handle.Invalid, res
	}
	p, cons := datapipe.CreatePipe(resolved.ElementNumBytes, resolved.CapacityNumBytes, resolved.ReadThresholdNumBytes, resolved.WriteThresholdNumBytes)

	c.tableMu.Lock()
	vp, vc = c.table.AddHandlePair(
		handle.New(p, defaultDataPipeProducerRights),
		handle.New(cons, defaultDataPipeConsumerRights),
	)
	c.tableMu.Unlock()
	if vp == handle.Invalid {
		return handle.Invalid, handle.Invalid, ipcresult.RESOURCE_EXHAUSTED
	}
	if c.metrics != nil {
		c.metrics.HandlesCreated.Add(2)
	}
	return vp, vc, ipcresult.OK
}

func (c *Core) producerDispatcher(hv handle.Value, required ipcrights.Rights) (dispatcher.Dispatcher, ipcresult.Result) {
	return c.getDispatcherAndCheckRights(hv, required, dispatcher.EntrypointDataPipeProducer)
}

func (c *Core) consumerDispatcher(hv handle.Value, required ipcrights.Rights) (dispatcher.Dispatcher, ipcresult.Result) {
	return c.getDispatcherAndCheckRights(hv, required, dispatcher.EntrypointDataPipeConsumer)
}

func (c *Core) SetDataPipeProducerOptions(hv handle.Value, elementBytes uint32) ipcresult.Result {
	d, res := c.producerDispatcher(hv, ipcrights.SetOptions)
	if res != ipcresult.OK {
		return res
	}
	return d.SetProducerOptions(elementBytes)
}

func (c *Core) GetDataPipeProducerOptions(hv handle.Value) (uint32, uint32, ipcresult.Result) {
	d, res := c.producerDispatcher(hv, ipcrights.GetOptions)
	if res != ipcresult.OK {
		return 0, 0, res
	}
	return d.GetProducerOptions()
}

func (c *Core) SetDataPipeConsumerOptions(hv handle.Value, elementBytes uint32) ipcresult.Result {
	d, res := c.consumerDispatcher(hv, ipcrights.SetOptions)
	if res != ipcresult.OK {
		return res
	}
	return d.SetConsumerOptions(elementBytes)
}

func (c *Core) GetDataPipeConsumerOptions(hv handle.Value) (uint32, uint32, ipcresult.Result) {
	d, res := c.consumerDispatcher(hv, ipcrights.GetOptions)
	if res != ipcresult.OK {
		return 0, 0, res
	}
	return d.GetConsumerOptions()
}

func (c *Core) WriteData(hv handle.Value, data []byte, flags uint32) (int, ipcresult.Result) {
	d, res := c.producerDispatcher(hv, ipcrights.Write)
	if res != ipcresult.OK {
		return 0, res
	}
	return d.WriteData(data, flags)
}

func (c *Core) BeginWriteData(hv handle.Value, flags uint32) ([]byte, ipcresult.Result) {
	d, res := c.producerDispatcher(hv, ipcrights.Write)
	if res != ipcresult.OK {
		return nil, res
	}
	return d.BeginWriteData(flags)
}

func (c *Core) EndWriteData(hv handle.Value, numBytesWritten uint32) ipcresult.Result {
	d, res := c.producerDispatcher(hv, ipcrights.Write)
	if res != ipcresult.OK {
		return c.resolveEndDataResult(hv, res)
	}
	return d.EndWriteData(numBytesWritten)
}

func (c *Core) ReadData(hv handle.Value, maxBytes int, flags uint32) ([]byte, ipcresult.Result) {
	d, res := c.consumerDispatcher(hv, ipcrights.Read)
	if res != ipcresult.OK {
		return nil, res
	}
	return d.ReadData(maxBytes, flags)
}

func (c *Core) BeginReadData(hv handle.Value, flags uint32) ([]byte, ipcresult.Result) {
	d, res := c.consumerDispatcher(hv, ipcrights.Read)
	if res != ipcresult.OK {
		return nil, res
	}
	return d.BeginReadData(flags)
}

func (c *Core) EndReadData(hv handle.Value, numBytesRead uint32) ipcresult.Result {
	d, res := c.consumerDispatcher(hv, ipcrights.Read)
	if res != ipcresult.OK {
		return c.resolveEndDataResult(hv, res)
	}
	return d.EndReadData(numBytesRead)
}

// resolveEndDataResult refines an EndWriteData/EndReadData resolution
// failure: per spec.md §4.3, a handle value invalidated by a *completed
// transit* (rather than never having existed, or having been closed) must
// report FAILED_PRECONDITION from End* specifically, distinct from the
// ordinary INVALID_ARGUMENT every other operation gets on an unknown handle
// value (see the handle-transfer scenario's Close(b1) == INVALID_ARGUMENT).
func (c *Core) resolveEndDataResult(hv handle.Value, res ipcresult.Result) ipcresult.Result {
	if res != ipcresult.INVALID_ARGUMENT {
		return res
	}
	c.tableMu.Lock()
	tombstoned := c.table.IsTombstoned(hv)
	c.tableMu.Unlock()
	if tombstoned {
		return ipcresult.FAILED_PRECONDITION
	}
	return res
}
