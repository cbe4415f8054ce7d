// Package core implements the capability-kernel orchestrator: the single
// entry point every handle operation flows through, mediating rights checks,
// handle-table and mapping-table mutation, and the transactional handle
// transfer protocol on top of the concrete dispatchers.
package core

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/GriffinCanCode/AgentOS/backend/internal/clock"
	"github.com/GriffinCanCode/AgentOS/backend/internal/dispatcher"
	"github.com/GriffinCanCode/AgentOS/backend/internal/handle"
	"github.com/GriffinCanCode/AgentOS/backend/internal/handletable"
	"github.com/GriffinCanCode/AgentOS/backend/internal/ipcresult"
	"github.com/GriffinCanCode/AgentOS/backend/internal/ipcrights"
	"github.com/GriffinCanCode/AgentOS/backend/internal/mappingtable"
	"github.com/GriffinCanCode/AgentOS/backend/internal/telemetry"
)

// DefaultMaxHandleTableSize bounds how many live handles a Core will hold at
// once before AddHandle starts failing.
const DefaultMaxHandleTableSize = 32 * 1024

// Core is the process-wide IPC primitive kernel. The zero value is not
// usable; construct with New. All exported methods are safe for concurrent
// use: each acquires the handle-table mutex (and, for buffer operations, the
// mapping-table mutex) for the minimum span needed, then calls into
// dispatchers outside the lock, matching the lock hierarchy handle-table →
// mapping-table → dispatcher-internal → waiter.
type Core struct {
	tableMu sync.Mutex
	table   *handletable.HandleTable

	mappingMu sync.Mutex
	mappings  *mappingtable.MappingTable

	clock   clock.Source
	log     *zap.Logger
	id      uuid.UUID
	limiter *rate.Limiter
	metrics *telemetry.Metrics
}

// New constructs a Core ready to serve operations. log may be nil, in which
// case a no-op logger is used. Create* operations are unthrottled and the
// handle table is sized to DefaultMaxHandleTableSize.
func New(log *zap.Logger) *Core {
	return NewWithCapacity(log, DefaultMaxHandleTableSize)
}

// NewWithCapacity is New with an explicit handle-table capacity, for
// deployments that size the table from configuration rather than accepting
// the default.
func NewWithCapacity(log *zap.Logger, maxHandleTableSize int) *Core {
	if log == nil {
		log = zap.NewNop()
	}
	return &Core{
		table:    handletable.New(maxHandleTableSize),
		mappings: mappingtable.New(),
		clock:    clock.NewSystem(),
		log:      log,
		id:       uuid.New(),
	}
}

// NewRateLimited is NewWithCapacity plus a token-bucket limiter applied to
// every Create* operation: handle-creation storms are a real
// resource-exhaustion vector against a handle table of fixed capacity, the
// same concern the rate limiter guards against at an HTTP-request
// granularity elsewhere.
func NewRateLimited(log *zap.Logger, maxHandleTableSize int, requestsPerSecond float64, burst int) *Core {
	c := NewWithCapacity(log, maxHandleTableSize)
	c.limiter = rate.NewLimiter(rate.Limit(requestsPerSecond), burst)
	return c
}

// ID uniquely identifies this Core instance, for log fields and
// multi-kernel debug output.
func (c *Core) ID() string {
	return c.id.String()
}

// SetMetrics attaches m so subsequent operations record Prometheus
// counters/histograms through it. Passing nil disables recording again.
// Operations already in flight are unaffected.
func (c *Core) SetMetrics(m *telemetry.Metrics) {
	c.metrics = m
}

// record reports one operation's outcome and latency to c.metrics, if set.
func (c *Core) record(op string, res ipcresult.Result, start time.Time) {
	if c.metrics == nil {
		return
	}
	c.metrics.OperationsTotal.WithLabelValues(op, res.String()).Inc()
	c.metrics.OperationDuration.WithLabelValues(op).Observe(time.Since(start).Seconds())
	if res != ipcresult.OK {
		c.metrics.OperationErrors.WithLabelValues(op, res.String()).Inc()
	}
}

// checkCreateRateLimit is called at the top of every Create* operation.
func (c *Core) checkCreateRateLimit() ipcresult.Result {
	if c.limiter == nil {
		return ipcresult.OK
	}
	if !c.limiter.Allow() {
		return ipcresult.RESOURCE_EXHAUSTED
	}
	return ipcresult.OK
}

// Shutdown closes every handle still live in the table, in parallel, and
// returns the first error encountered (if any dispatcher's Close somehow
// fails); partial failures don't stop the rest from being closed.
func (c *Core) Shutdown() error {
	c.tableMu.Lock()
	handles := c.table.DrainAll()
	c.tableMu.Unlock()

	var g errgroup.Group
	for _, h := range handles {
		d := h.Dispatcher
		g.Go(func() error {
			if res := d.Close(); res != ipcresult.OK {
				return fmt.Errorf("close dispatcher: %s", res)
			}
			return nil
		})
	}
	return g.Wait()
}

// GetTimeTicksNow returns a monotonic, strictly non-decreasing microsecond
// timestamp, stable for the lifetime of this Core.
func (c *Core) GetTimeTicksNow() int64 {
	return c.clock.NowMicros()
}

// Stats is a point-in-time snapshot of Core occupancy, for debug/metrics
// introspection. It is not a consistent view across both tables (each count
// is taken under its own lock, released before the next is acquired).
type Stats struct {
	HandlesActive  int
	MappingsActive int
}

// Stats returns a snapshot of current handle and mapping counts.
func (c *Core) Stats() Stats {
	c.tableMu.Lock()
	handles := c.table.Len()
	c.tableMu.Unlock()

	c.mappingMu.Lock()
	mappings := c.mappings.Len()
	c.mappingMu.Unlock()

	return Stats{HandlesActive: handles, MappingsActive: mappings}
}

// addHandle installs h and returns its value, or Invalid if the table is
// full.
func (c *Core) addHandle(h handle.Handle) handle.Value {
	c.tableMu.Lock()
	defer c.tableMu.Unlock()
	return c.table.AddHandle(h)
}

// getDispatcherAndCheckRights resolves hv, requiring every bit of
// requiredRights. If the rights check fails, it consults the dispatcher's
// supported entrypoint classes to choose between PERMISSION_DENIED (the
// operation is one this kind of object supports, just not with these rights)
// and INVALID_ARGUMENT (this kind of object never supports the operation at
// all) — the same disambiguation the underlying dispatcher's Base/UNIMPLEMENTED
// convention provides for calls that do reach it.
func (c *Core) getDispatcherAndCheckRights(hv handle.Value, requiredRights ipcrights.Rights, entrypoint dispatcher.EntrypointClass) (dispatcher.Dispatcher, ipcresult.Result) {
	c.tableMu.Lock()
	h, res := c.table.GetHandle(hv)
	c.tableMu.Unlock()
	if res != ipcresult.OK {
		return nil, res
	}
	if !h.HasRights(requiredRights) {
		if h.Dispatcher.SupportsEntrypointClass(entrypoint) {
			return nil, ipcresult.PERMISSION_DENIED
		}
		return nil, ipcresult.INVALID_ARGUMENT
	}
	return h.Dispatcher, ipcresult.OK
}

// Close removes hv from the handle table and closes its dispatcher,
// delivering CANCELLED to every awakable still attached.
func (c *Core) Close(hv handle.Value) ipcresult.Result {
	start := time.Now()
	c.tableMu.Lock()
	h, res := c.table.GetAndRemoveHandle(hv)
	c.tableMu.Unlock()
	if res != ipcresult.OK {
		c.record("Close", res, start)
		return res
	}
	res = h.Dispatcher.Close()
	c.record("Close", res, start)
	return res
}

// GetRights returns the rights carried by hv.
func (c *Core) GetRights(hv handle.Value) (ipcrights.Rights, ipcresult.Result) {
	c.tableMu.Lock()
	defer c.tableMu.Unlock()
	h, res := c.table.GetHandle(hv)
	if res != ipcresult.OK {
		return ipcrights.None, res
	}
	return h.Rights, ipcresult.OK
}

// ReplaceHandleWithReducedRights installs a fresh handle value for the same
// dispatcher as hv with rightsToRemove cleared, and invalidates hv.
func (c *Core) ReplaceHandleWithReducedRights(hv handle.Value, rightsToRemove ipcrights.Rights) (handle.Value, ipcresult.Result) {
	c.tableMu.Lock()
	defer c.tableMu.Unlock()
	return c.table.ReplaceHandleWithReducedRights(hv, rightsToRemove)
}

// DuplicateHandleWithReducedRights requires DUPLICATE on hv, then installs a
// new handle value sharing hv's dispatcher with rightsToRemove cleared.
func (c *Core) DuplicateHandleWithReducedRights(hv handle.Value, rightsToRemove ipcrights.Rights) (handle.Value, ipcresult.Result) {
	c.tableMu.Lock()
	h, res := c.table.GetHandle(hv)
	if res != ipcresult.OK {
		c.tableMu.Unlock()
		return handle.Invalid, res
	}
	if !h.HasRights(ipcrights.Duplicate) {
		c.tableMu.Unlock()
		return handle.Invalid, ipcresult.PERMISSION_DENIED
	}
	c.tableMu.Unlock()

	dup, res := h.Dispatcher.DuplicateDispatcher()
	if res != ipcresult.OK {
		return handle.Invalid, res
	}

	c.tableMu.Lock()
	defer c.tableMu.Unlock()
	newRights := h.Rights.Remove(rightsToRemove)
	v := c.table.AddHandle(handle.New(dup, newRights))
	if v == handle.Invalid {
		dup.Close()
		return handle.Invalid, ipcresult.RESOURCE_EXHAUSTED
	}
	return v, ipcresult.OK
}

// DuplicateHandle is DuplicateHandleWithReducedRights with no rights
// removed.
func (c *Core) DuplicateHandle(hv handle.Value) (handle.Value, ipcresult.Result) {
	return c.DuplicateHandleWithReducedRights(hv, ipcrights.None)
}
