package core

import (
	"time"

	"github.com/GriffinCanCode/AgentOS/backend/internal/awakable"
	"github.com/GriffinCanCode/AgentOS/backend/internal/dispatcher"
	"github.com/GriffinCanCode/AgentOS/backend/internal/handle"
	"github.com/GriffinCanCode/AgentOS/backend/internal/ipcresult"
	"github.com/GriffinCanCode/AgentOS/backend/internal/ipcrights"
	"github.com/GriffinCanCode/AgentOS/backend/internal/ipcsignals"
	"github.com/GriffinCanCode/AgentOS/backend/internal/waitset"
)

const defaultWaitSetRights = ipcrights.Transfer

// CreateWaitSet creates a fresh, empty wait set.
func (c *Core) CreateWaitSet(opts CreateWaitSetOptions) (v handle.Value, res ipcresult.Result) {
	start := time.Now()
	defer func() { c.record("CreateWaitSet", res, start) }()

	if res = c.checkCreateRateLimit(); res != ipcresult.OK {
		return handle.Invalid, res
	}
	if res = opts.validate(); res != ipcresult.OK {
		return handle.Invalid, res
	}
	ws := waitset.New()
	v = c.addHandle(handle.New(ws, defaultWaitSetRights))
	if v == handle.Invalid {
		return handle.Invalid, ipcresult.RESOURCE_EXHAUSTED
	}
	if c.metrics != nil {
		c.metrics.HandlesCreated.Inc()
	}
	return v, ipcresult.OK
}

// WaitSetAdd resolves both wsHV and memberHV, then asks the wait-set
// dispatcher to track memberHV's dispatcher under cookie.
func (c *Core) WaitSetAdd(wsHV, memberHV handle.Value, signals ipcsignals.Signals, cookie uint64) ipcresult.Result {
	ws, res := c.getDispatcherAndCheckRights(wsHV, 0, dispatcher.EntrypointWaitSet)
	if res != ipcresult.OK {
		return res
	}
	member, res := c.getDispatcherAndCheckRights(memberHV, 0, dispatcher.EntrypointNone)
	if res != ipcresult.OK {
		return res
	}
	return ws.WaitSetAdd(member, signals, cookie)
}

func (c *Core) WaitSetRemove(wsHV handle.Value, cookie uint64) ipcresult.Result {
	ws, res := c.getDispatcherAndCheckRights(wsHV, 0, dispatcher.EntrypointWaitSet)
	if res != ipcresult.OK {
		return res
	}
	return ws.WaitSetRemove(cookie)
}

func (c *Core) WaitSetWait(wsHV handle.Value, deadline time.Duration, maxResults int) ([]dispatcher.WaitSetResult, ipcresult.Result) {
	ws, res := c.getDispatcherAndCheckRights(wsHV, 0, dispatcher.EntrypointWaitSet)
	if res != ipcresult.OK {
		return nil, res
	}
	return ws.WaitSetWait(deadline, maxResults)
}

// asyncCallback is the trampoline awakable AsyncWait registers. AddAwakable
// may complete it inline (the ALREADY/FAILED_PRECONDITION immediate-result
// branches in dispatcher.AwakableList.Add); while inline is true that first
// Awake is captured instead of invoking fn, so AsyncWait reports AddAwakable's
// own result synchronously and fn is not called. Once AddAwakable has returned,
// inline is cleared and any later Awake (a genuinely asynchronous one) calls
// fn directly.
type asyncCallback struct {
	fn     func(ipcresult.Result)
	inline bool
	caught bool
	reason awakable.Reason
}

func (a *asyncCallback) Awake(context uint64, reason awakable.Reason, state ipcsignals.State) bool {
	if a.inline {
		a.caught = true
		a.reason = reason
		return true
	}
	a.fn(awakable.ResultForReason(reason))
	return true
}

// AsyncWait registers callback to fire once when hv's dispatcher satisfies
// signals, becomes permanently unable to, or is cancelled (e.g. by Close).
// On ALREADY or FAILED_PRECONDITION the result is returned synchronously
// instead and callback is never invoked.
func (c *Core) AsyncWait(hv handle.Value, signals ipcsignals.Signals, callback func(ipcresult.Result)) ipcresult.Result {
	d, res := c.getDispatcherAndCheckRights(hv, 0, dispatcher.EntrypointNone)
	if res != ipcresult.OK {
		return res
	}
	trampoline := &asyncCallback{fn: callback, inline: true}
	_, res = d.AddAwakable(trampoline, 0, signals)
	trampoline.inline = false
	return res
}
