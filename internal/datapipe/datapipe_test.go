package datapipe

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GriffinCanCode/AgentOS/backend/internal/ipcresult"
)

func TestWriteThenRead(t *testing.T) {
	p, c := CreatePipe(1, 64, 0, 0)

	n, res := p.WriteData([]byte("hello"), FlagNone)
	require.Equal(t, ipcresult.OK, res)
	assert.Equal(t, 5, n)

	out, res := c.ReadData(5, FlagNone)
	require.Equal(t, ipcresult.OK, res)
	assert.Equal(t, "hello", string(out))
}

func TestTwoPhaseWriteThenCommit(t *testing.T) {
	p, c := CreatePipe(1, 8, 0, 0)

	buf, res := p.BeginWriteData(FlagNone)
	require.Equal(t, ipcresult.OK, res)
	require.Len(t, buf, 8)
	copy(buf, []byte("ab"))

	res = p.EndWriteData(2)
	require.Equal(t, ipcresult.OK, res)

	out, res := c.ReadData(2, FlagNone)
	require.Equal(t, ipcresult.OK, res)
	assert.Equal(t, "ab", string(out))
}

func TestSingleShotBusyDuringTwoPhase(t *testing.T) {
	p, _ := CreatePipe(1, 8, 0, 0)
	_, res := p.BeginWriteData(FlagNone)
	require.Equal(t, ipcresult.OK, res)

	_, res = p.WriteData([]byte("x"), FlagNone)
	assert.Equal(t, ipcresult.BUSY, res)
}

func TestCancelByTransferResetsState(t *testing.T) {
	p, _ := CreatePipe(1, 8, 0, 0)
	_, res := p.BeginWriteData(FlagNone)
	require.Equal(t, ipcresult.OK, res)

	ok := p.BeginTransit()
	require.True(t, ok)
	p.EndTransit()

	res = p.EndWriteData(1)
	assert.Equal(t, ipcresult.FAILED_PRECONDITION, res)

	_, res = p.BeginWriteData(FlagNone)
	assert.Equal(t, ipcresult.OK, res, "transferred handle must be usable from a clean state")
}

func TestReadOnEmptyClosedProducerIsFailedPrecondition(t *testing.T) {
	p, c := CreatePipe(1, 8, 0, 0)
	require.Equal(t, ipcresult.OK, p.Close())

	_, res := c.ReadData(1, FlagNone)
	assert.Equal(t, ipcresult.FAILED_PRECONDITION, res)
}
