package messagepipe

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GriffinCanCode/AgentOS/backend/internal/dispatcher"
	"github.com/GriffinCanCode/AgentOS/backend/internal/ipcresult"
	"github.com/GriffinCanCode/AgentOS/backend/internal/ipcrights"
	"github.com/GriffinCanCode/AgentOS/backend/internal/ipcsignals"
)

func TestRoundTrip(t *testing.T) {
	h0, h1 := CreatePipe()

	before := h1.GetHandleSignalsState()
	assert.False(t, before.Satisfies(ipcsignals.Readable))

	res := h0.WriteMessage([]byte("abcd"), nil, 0)
	require.Equal(t, ipcresult.OK, res)

	after := h1.GetHandleSignalsState()
	assert.True(t, after.Satisfies(ipcsignals.Readable))
	assert.True(t, after.Satisfies(ipcsignals.Writable))

	msg, requirement, res := h1.ReadMessage(64, 8, 0)
	require.Equal(t, ipcresult.OK, res)
	assert.Equal(t, 0, requirement.RequiredHandles)
	assert.Equal(t, "abcd", string(msg.Bytes))

	final := h1.GetHandleSignalsState()
	assert.False(t, final.Satisfies(ipcsignals.Readable))
}

func TestPeerClosedSignal(t *testing.T) {
	h0, h1 := CreatePipe()
	require.Equal(t, ipcresult.OK, h0.Close())

	state := h1.GetHandleSignalsState()
	assert.True(t, state.Satisfies(ipcsignals.PeerClosed))
	assert.False(t, state.Satisfies(ipcsignals.Writable))
}

func TestReadOnEmptyClosedPeerIsFailedPrecondition(t *testing.T) {
	h0, h1 := CreatePipe()
	require.Equal(t, ipcresult.OK, h0.Close())

	_, _, res := h1.ReadMessage(64, 8, 0)
	assert.Equal(t, ipcresult.FAILED_PRECONDITION, res)
}

func TestReadOnEmptyOpenPeerShouldWait(t *testing.T) {
	_, h1 := CreatePipe()
	_, _, res := h1.ReadMessage(64, 8, 0)
	assert.Equal(t, ipcresult.SHOULD_WAIT, res)
}

func TestInsufficientHandleCapacityReportsRequiredCount(t *testing.T) {
	h0, h1 := CreatePipe()
	peerA, _ := CreatePipe()

	handles := []dispatcher.TransferredHandle{{Dispatcher: peerA, Rights: ipcrights.Transfer}}
	require.Equal(t, ipcresult.OK, h0.WriteMessage([]byte("x"), handles, 0))

	_, requirement, res := h1.ReadMessage(64, 0, 0)
	assert.Equal(t, ipcresult.RESOURCE_EXHAUSTED, res)
	assert.Equal(t, 1, requirement.RequiredHandles)
	assert.Equal(t, 0, requirement.RequiredBytes, "a handle-capacity overflow must not also report a spurious byte requirement")
}

func TestInsufficientByteCapacityReportsRequiredCount(t *testing.T) {
	h0, h1 := CreatePipe()

	require.Equal(t, ipcresult.OK, h0.WriteMessage([]byte("hello world"), nil, 0))

	_, requirement, res := h1.ReadMessage(4, 8, 0)
	assert.Equal(t, ipcresult.RESOURCE_EXHAUSTED, res)
	assert.Equal(t, 11, requirement.RequiredBytes)
	assert.Equal(t, 0, requirement.RequiredHandles, "a byte-capacity overflow must not also report a spurious handle requirement")

	// the message is still queued: MAY_DISCARD was not set, so a retry with
	// enough capacity reads it successfully.
	msg, requirement, res := h1.ReadMessage(64, 8, 0)
	require.Equal(t, ipcresult.OK, res)
	assert.Equal(t, "hello world", string(msg.Bytes))
	assert.Equal(t, 11, requirement.RequiredBytes)
}
