// Package handletable implements the map from opaque handle values to
// (dispatcher, rights) pairs that Core owns and serializes access to.
//
// HandleTable itself is NOT thread-safe — Core holds the lock, since a
// single operation often needs to touch several entries "atomically" (e.g.
// marking a batch of handles busy before a transfer) and per-call locking
// here would just add overhead for no benefit.
package handletable

import (
	"github.com/GriffinCanCode/AgentOS/backend/internal/handle"
	"github.com/GriffinCanCode/AgentOS/backend/internal/ipcresult"
	"github.com/GriffinCanCode/AgentOS/backend/internal/ipcrights"
)

type entry struct {
	handle handle.Handle
	busy   bool
}

// HandleTable maps handle values to entries, enforcing a capacity and a
// monotonically-increasing (wraparound-skipping-Invalid) value counter.
type HandleTable struct {
	maxSize    int
	entries    map[handle.Value]*entry
	tombstones map[handle.Value]struct{}
	nextValD   handle.Value
}

// New returns an empty table that refuses to grow past maxSize live handles.
func New(maxSize int) *HandleTable {
	return &HandleTable{
		maxSize:    maxSize,
		entries:    make(map[handle.Value]*entry),
		tombstones: make(map[handle.Value]struct{}),
		nextValD:   handle.Invalid + 1,
	}
}

// Len reports the number of live handle values currently in the table.
func (t *HandleTable) Len() int { return len(t.entries) }

// GetHandle returns the handle for value. Fails with INVALID_ARGUMENT if
// absent, BUSY if marked busy by an in-flight transfer.
func (t *HandleTable) GetHandle(value handle.Value) (handle.Handle, ipcresult.Result) {
	e, ok := t.entries[value]
	if !ok {
		return handle.Handle{}, ipcresult.INVALID_ARGUMENT
	}
	if e.busy {
		return handle.Handle{}, ipcresult.BUSY
	}
	return e.handle, ipcresult.OK
}

// GetAndRemoveHandle is GetHandle plus removal from the table on success.
func (t *HandleTable) GetAndRemoveHandle(value handle.Value) (handle.Handle, ipcresult.Result) {
	e, ok := t.entries[value]
	if !ok {
		return handle.Handle{}, ipcresult.INVALID_ARGUMENT
	}
	if e.busy {
		return handle.Handle{}, ipcresult.BUSY
	}
	delete(t.entries, value)
	return e.handle, ipcresult.OK
}

// AddHandle inserts h and returns its new value, or Invalid if the table is
// at capacity.
func (t *HandleTable) AddHandle(h handle.Handle) handle.Value {
	if len(t.entries) >= t.maxSize {
		return handle.Invalid
	}
	return t.addNoSizeCheck(h)
}

// AddHandlePair inserts both h0 and h1 atomically: either both are added (and
// both values returned) or, if the table lacks room for both, neither is
// added and both returned values are Invalid.
func (t *HandleTable) AddHandlePair(h0, h1 handle.Handle) (handle.Value, handle.Value) {
	if len(t.entries)+1 >= t.maxSize {
		return handle.Invalid, handle.Invalid
	}
	return t.addNoSizeCheck(h0), t.addNoSizeCheck(h1)
}

// ReplaceHandleWithReducedRights installs a new handle value referencing the
// same dispatcher as value, with rightsToRemove cleared, and removes value.
// Fails with INVALID_ARGUMENT if absent, BUSY if an in-flight transfer holds
// it.
func (t *HandleTable) ReplaceHandleWithReducedRights(value handle.Value, rightsToRemove ipcrights.Rights) (handle.Value, ipcresult.Result) {
	e, ok := t.entries[value]
	if !ok {
		return handle.Invalid, ipcresult.INVALID_ARGUMENT
	}
	if e.busy {
		return handle.Invalid, ipcresult.BUSY
	}
	replacement := e.handle.WithReducedRights(rightsToRemove)
	delete(t.entries, value)
	return t.addNoSizeCheck(replacement), ipcresult.OK
}

// MarkBusyAndStartTransport validates and marks every handle in values busy
// in preparation for a message-pipe transfer, failing the whole batch (and
// leaving the table untouched) if any entry is missing, already busy, lacks
// the Transfer right, or equals disallowed (a handle may not carry itself).
// On success it returns the resolved handles in order; the caller must later
// call either RemoveBusyHandles (transfer committed) or RestoreBusyHandles
// (transfer aborted).
func (t *HandleTable) MarkBusyAndStartTransport(disallowed handle.Value, values []handle.Value) ([]handle.Handle, ipcresult.Result) {
	entries := make([]*entry, len(values))
	for i, v := range values {
		if v == disallowed {
			t.unmarkPrefix(entries, i)
			return nil, ipcresult.BUSY
		}
		e, ok := t.entries[v]
		if !ok {
			t.unmarkPrefix(entries, i)
			return nil, ipcresult.INVALID_ARGUMENT
		}
		if e.busy {
			t.unmarkPrefix(entries, i)
			return nil, ipcresult.BUSY
		}
		if !e.handle.HasRights(ipcrights.Transfer) {
			t.unmarkPrefix(entries, i)
			return nil, ipcresult.PERMISSION_DENIED
		}
		e.busy = true
		entries[i] = e
	}

	out := make([]handle.Handle, len(values))
	for i, e := range entries {
		out[i] = e.handle
	}
	return out, ipcresult.OK
}

func (t *HandleTable) unmarkPrefix(entries []*entry, upTo int) {
	for j := 0; j < upTo; j++ {
		entries[j].busy = false
	}
}

// RemoveBusyHandles deletes every value from the table; each must have been
// marked busy by a prior MarkBusyAndStartTransport call whose transfer just
// committed. Each removed value is tombstoned so that IsTombstoned can later
// distinguish "never existed/closed" (INVALID_ARGUMENT) from "removed by a
// completed transit" for the handful of operations — the two-phase data-pipe
// End* calls — that must report FAILED_PRECONDITION instead.
func (t *HandleTable) RemoveBusyHandles(values []handle.Value) {
	for _, v := range values {
		delete(t.entries, v)
		t.tombstones[v] = struct{}{}
	}
}

// IsTombstoned reports whether value was removed from the table by a
// successfully committed handle transit (as opposed to never having existed,
// or having been removed by Close/GetAndRemoveHandle).
func (t *HandleTable) IsTombstoned(value handle.Value) bool {
	_, ok := t.tombstones[value]
	return ok
}

// RestoreBusyHandles clears the busy flag on every value; each must have
// been marked busy by a prior MarkBusyAndStartTransport call whose transfer
// was aborted.
func (t *HandleTable) RestoreBusyHandles(values []handle.Value) {
	for _, v := range values {
		if e, ok := t.entries[v]; ok {
			e.busy = false
		}
	}
}

// DrainAll removes and returns every handle currently in the table,
// including busy ones (their in-flight transfer is abandoned). Intended for
// process shutdown, where every live dispatcher needs closing regardless of
// transfer state.
func (t *HandleTable) DrainAll() []handle.Handle {
	out := make([]handle.Handle, 0, len(t.entries))
	for _, e := range t.entries {
		out = append(out, e.handle)
	}
	t.entries = make(map[handle.Value]*entry)
	return out
}

func (t *HandleTable) addNoSizeCheck(h handle.Handle) handle.Value {
	for {
		if _, taken := t.entries[t.nextValD]; !taken {
			break
		}
		t.advance()
	}
	v := t.nextValD
	delete(t.tombstones, v)
	t.entries[v] = &entry{handle: h}
	t.advance()
	return v
}

func (t *HandleTable) advance() {
	t.nextValD++
	if t.nextValD == handle.Invalid {
		t.nextValD++
	}
}
