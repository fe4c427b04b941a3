package registrar_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/attestia/trustengine/pkg/registrar"
)

func rootState(id string) registrar.State {
	return registrar.State{
		ID:        id,
		Structure: map[string]interface{}{"isRoot": true},
		Data:      map[string]interface{}{"v": 1},
	}
}

func TestRegister_RootAccepted(t *testing.T) {
	r := registrar.New(nil)
	accepted, err := r.Register(registrar.Transition{From: nil, To: rootState("root-1")})
	require.NoError(t, err)
	assert.Equal(t, int64(0), accepted.OrderIndex)
}

func TestRegister_DuplicateRootRejectedAsHalt(t *testing.T) {
	r := registrar.New(nil)
	_, err := r.Register(registrar.Transition{From: nil, To: rootState("root-1")})
	require.NoError(t, err)

	_, err = r.Register(registrar.Transition{From: nil, To: rootState("root-1")})
	require.Error(t, err)
	rejected, ok := err.(*registrar.RejectedError)
	require.True(t, ok)
	assert.Equal(t, "HALT", rejected.Violations[0].Classification)
}

func TestRegister_SelfTransitionAccepted(t *testing.T) {
	r := registrar.New(nil)
	_, err := r.Register(registrar.Transition{From: nil, To: rootState("root-1")})
	require.NoError(t, err)

	id := "root-1"
	updated := registrar.State{ID: id, Structure: map[string]interface{}{"isRoot": true}, Data: map[string]interface{}{"v": 2}}
	accepted, err := r.Register(registrar.Transition{From: &id, To: updated})
	require.NoError(t, err)
	assert.Equal(t, int64(1), accepted.OrderIndex)

	state, ok := r.Get(id)
	require.True(t, ok)
	assert.Equal(t, map[string]interface{}{"v": 2}, state.Data)
}

func TestRegister_NonRootWithoutParentRejected(t *testing.T) {
	r := registrar.New(nil)
	_, err := r.Register(registrar.Transition{From: nil, To: registrar.State{ID: "child"}})
	require.Error(t, err)
	rejected := err.(*registrar.RejectedError)
	assert.Equal(t, "EXPLICIT_LINEAGE", rejected.Violations[0].Classification)
}

func TestRegister_UnknownParentRejected(t *testing.T) {
	r := registrar.New(nil)
	parent := "ghost"
	_, err := r.Register(registrar.Transition{From: &parent, To: registrar.State{ID: "child"}})
	require.Error(t, err)
	rejected := err.(*registrar.RejectedError)
	assert.Equal(t, "UNKNOWN_PARENT", rejected.Violations[0].Classification)
}

func TestRegister_EmptyIDRejected(t *testing.T) {
	r := registrar.New(nil)
	_, err := r.Register(registrar.Transition{From: nil, To: registrar.State{ID: ""}})
	require.Error(t, err)
	rejected := err.(*registrar.RejectedError)
	assert.Equal(t, "EMPTY_ID", rejected.Violations[0].Classification)
}

func TestRegister_RejectionDoesNotMutateOrderIndex(t *testing.T) {
	r := registrar.New(nil)
	_, err := r.Register(registrar.Transition{From: nil, To: rootState("root-1")})
	require.NoError(t, err)
	assert.Equal(t, int64(1), r.RegisteredCount())

	_, err = r.Register(registrar.Transition{From: nil, To: rootState("root-1")})
	require.Error(t, err)
	assert.Equal(t, int64(1), r.RegisteredCount())
}

func TestSnapshotAndRestore_OrderIndexContinues(t *testing.T) {
	r := registrar.New(nil)
	for i := 0; i < 5; i++ {
		_, err := r.Register(registrar.Transition{From: nil, To: rootState(rootID(i))})
		require.NoError(t, err)
	}
	assert.Equal(t, int64(5), r.RegisteredCount())

	snap, err := r.Snapshot()
	require.NoError(t, err)
	assert.Equal(t, int64(5), snap.Ordering.MaxIndex)

	restored := registrar.FromSnapshot(snap, nil)
	accepted, err := restored.Register(registrar.Transition{From: nil, To: rootState("root-5")})
	require.NoError(t, err)
	assert.Equal(t, int64(5), accepted.OrderIndex)
}

func TestSnapshot_DeterministicHash(t *testing.T) {
	r := registrar.New(nil)
	_, err := r.Register(registrar.Transition{From: nil, To: rootState("root-1")})
	require.NoError(t, err)

	s1, err := r.Snapshot()
	require.NoError(t, err)
	s2, err := r.Snapshot()
	require.NoError(t, err)
	assert.Equal(t, s1.RegistryHash, s2.RegistryHash)
}

func TestGetLineage_TracksSelfTransitions(t *testing.T) {
	r := registrar.New(nil)
	_, err := r.Register(registrar.Transition{From: nil, To: rootState("root-1")})
	require.NoError(t, err)
	id := "root-1"
	_, err = r.Register(registrar.Transition{From: &id, To: rootState("root-1")})
	require.NoError(t, err)

	assert.Len(t, r.GetLineage("root-1"), 2)
}

func rootID(i int) string {
	return "root-" + string(rune('0'+i))
}
