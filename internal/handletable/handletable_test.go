package handletable

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GriffinCanCode/AgentOS/backend/internal/handle"
	"github.com/GriffinCanCode/AgentOS/backend/internal/ipcresult"
	"github.com/GriffinCanCode/AgentOS/backend/internal/ipcrights"
)

func TestAddAndGetHandle(t *testing.T) {
	tbl := New(8)
	h := handle.New(nil, ipcrights.Read|ipcrights.Write)

	v := tbl.AddHandle(h)
	require.NotEqual(t, handle.Invalid, v)

	got, res := tbl.GetHandle(v)
	require.Equal(t, ipcresult.OK, res)
	assert.Equal(t, h.Rights, got.Rights)
}

func TestGetHandleMissing(t *testing.T) {
	tbl := New(8)
	_, res := tbl.GetHandle(handle.Value(42))
	assert.Equal(t, ipcresult.INVALID_ARGUMENT, res)
}

func TestCapacityEnforced(t *testing.T) {
	tbl := New(1)
	h := handle.New(nil, ipcrights.None)

	v1 := tbl.AddHandle(h)
	require.NotEqual(t, handle.Invalid, v1)

	v2 := tbl.AddHandle(h)
	assert.Equal(t, handle.Invalid, v2)
}

func TestAddHandlePairAllOrNothing(t *testing.T) {
	tbl := New(2)
	h := handle.New(nil, ipcrights.None)

	v0, v1 := tbl.AddHandlePair(h, h)
	assert.NotEqual(t, handle.Invalid, v0)
	assert.NotEqual(t, handle.Invalid, v1)
	assert.Equal(t, 2, tbl.Len())
}

func TestAddHandlePairFailsLeavesTableUntouched(t *testing.T) {
	tbl := New(1)
	h := handle.New(nil, ipcrights.None)

	v0, v1 := tbl.AddHandlePair(h, h)
	assert.Equal(t, handle.Invalid, v0)
	assert.Equal(t, handle.Invalid, v1)
	assert.Equal(t, 0, tbl.Len())
}

func TestBusyBlocksGetAndClose(t *testing.T) {
	tbl := New(8)
	h := handle.New(nil, ipcrights.Transfer)
	v := tbl.AddHandle(h)

	_, res := tbl.MarkBusyAndStartTransport(handle.Value(999), []handle.Value{v})
	require.Equal(t, ipcresult.OK, res)

	_, res = tbl.GetHandle(v)
	assert.Equal(t, ipcresult.BUSY, res)

	tbl.RestoreBusyHandles([]handle.Value{v})
	_, res = tbl.GetHandle(v)
	assert.Equal(t, ipcresult.OK, res)
}

func TestMarkBusyRequiresTransferRight(t *testing.T) {
	tbl := New(8)
	h := handle.New(nil, ipcrights.Read)
	v := tbl.AddHandle(h)

	_, res := tbl.MarkBusyAndStartTransport(handle.Value(999), []handle.Value{v})
	assert.Equal(t, ipcresult.PERMISSION_DENIED, res)

	_, res = tbl.GetHandle(v)
	assert.Equal(t, ipcresult.OK, res, "failed batch must leave entries non-busy")
}

func TestMarkBusyRejectsSelfReference(t *testing.T) {
	tbl := New(8)
	h := handle.New(nil, ipcrights.Transfer)
	v := tbl.AddHandle(h)

	_, res := tbl.MarkBusyAndStartTransport(v, []handle.Value{v})
	assert.Equal(t, ipcresult.BUSY, res)
}

func TestRemoveBusyHandlesCommitsTransfer(t *testing.T) {
	tbl := New(8)
	h := handle.New(nil, ipcrights.Transfer)
	v := tbl.AddHandle(h)

	_, res := tbl.MarkBusyAndStartTransport(handle.Value(999), []handle.Value{v})
	require.Equal(t, ipcresult.OK, res)
	tbl.RemoveBusyHandles([]handle.Value{v})

	_, res = tbl.GetHandle(v)
	assert.Equal(t, ipcresult.INVALID_ARGUMENT, res)
}

func TestReplaceHandleWithReducedRights(t *testing.T) {
	tbl := New(8)
	h := handle.New(nil, ipcrights.Read|ipcrights.Write|ipcrights.Duplicate)
	v := tbl.AddHandle(h)

	v2, res := tbl.ReplaceHandleWithReducedRights(v, ipcrights.Write)
	require.Equal(t, ipcresult.OK, res)
	assert.NotEqual(t, v, v2)

	_, res = tbl.GetHandle(v)
	assert.Equal(t, ipcresult.INVALID_ARGUMENT, res, "old value must be gone")

	got, res := tbl.GetHandle(v2)
	require.Equal(t, ipcresult.OK, res)
	assert.True(t, got.HasRights(ipcrights.Read))
	assert.True(t, got.HasRights(ipcrights.Duplicate))
	assert.False(t, got.HasRights(ipcrights.Write))
}

func TestHandleValueNeverInvalidAfterWraparound(t *testing.T) {
	tbl := New(4)
	tbl.nextValD = ^handle.Value(0)

	v1 := tbl.AddHandle(handle.New(nil, ipcrights.None))
	assert.NotEqual(t, handle.Invalid, v1)
	v2 := tbl.AddHandle(handle.New(nil, ipcrights.None))
	assert.NotEqual(t, handle.Invalid, v2)
	assert.NotEqual(t, v1, v2)
}
