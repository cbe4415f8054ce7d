package waitset

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GriffinCanCode/AgentOS/backend/internal/awakable"
	"github.com/GriffinCanCode/AgentOS/backend/internal/dispatcher"
	"github.com/GriffinCanCode/AgentOS/backend/internal/ipcresult"
	"github.com/GriffinCanCode/AgentOS/backend/internal/ipcsignals"
)

// fakeMember is a minimal dispatcher whose AwakableList is reachable from the
// test, so registration counts can be asserted directly rather than inferred
// from wake behavior.
type fakeMember struct {
	dispatcher.Base
	list  dispatcher.AwakableList
	state ipcsignals.State
}

var _ dispatcher.Dispatcher = (*fakeMember)(nil)

func (f *fakeMember) Kind() dispatcher.Kind { return dispatcher.KindUnknown }

func (f *fakeMember) SupportsEntrypointClass(dispatcher.EntrypointClass) bool { return true }

func (f *fakeMember) AddAwakable(a awakable.Awakable, context uint64, signals ipcsignals.Signals) (ipcsignals.State, ipcresult.Result) {
	return f.state, f.list.Add(a, context, signals, f.state)
}

func (f *fakeMember) RemoveAwakable(a awakable.Awakable) ipcsignals.State {
	f.list.Remove(a)
	return f.state
}

func (f *fakeMember) GetHandleSignalsState() ipcsignals.State { return f.state }

func (f *fakeMember) CancelAllState() { f.list.CancelAndRemoveAll(ipcsignals.State{}) }

func TestWaitSetRemoveReleasesMemberRegistration(t *testing.T) {
	member := &fakeMember{state: ipcsignals.State{Satisfiable: ipcsignals.Readable}}
	ws := New()

	require.Equal(t, ipcresult.OK, ws.WaitSetAdd(member, ipcsignals.Readable, 1))
	assert.Equal(t, 1, member.list.Len())

	require.Equal(t, ipcresult.OK, ws.WaitSetRemove(1))
	assert.Equal(t, 0, member.list.Len(), "WaitSetRemove must remove the exact adapter registered by WaitSetAdd")
}

func TestWaitSetCloseReleasesMemberRegistrations(t *testing.T) {
	member := &fakeMember{state: ipcsignals.State{Satisfiable: ipcsignals.Readable}}
	ws := New()

	require.Equal(t, ipcresult.OK, ws.WaitSetAdd(member, ipcsignals.Readable, 1))
	assert.Equal(t, 1, member.list.Len())

	require.Equal(t, ipcresult.OK, ws.Close())
	assert.Equal(t, 0, member.list.Len(), "Close must remove the exact adapter registered by WaitSetAdd")
}
