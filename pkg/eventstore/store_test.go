package eventstore_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/attestia/trustengine/pkg/eventstore"
	"github.com/attestia/trustengine/pkg/trust"
)

func memoryStore(t *testing.T) (*eventstore.Store, *eventstore.JSONLBackend) {
	t.Helper()
	dir := t.TempDir()
	backend, err := eventstore.NewJSONLBackend(filepath.Join(dir, "events.jsonl"))
	require.NoError(t, err)
	return eventstore.New(backend, nil, nil), backend
}

func ev(typ string) eventstore.Event {
	return eventstore.Event{
		Type:     typ,
		Metadata: map[string]interface{}{"actor": "test"},
		Payload:  map[string]interface{}{},
	}
}

func TestAppend_AssignsVersionsAndPositionsThenVerifies(t *testing.T) {
	store, _ := memoryStore(t)

	result, err := store.Append("s", []eventstore.Event{ev("a"), ev("b"), ev("c")}, eventstore.AppendOptions{})
	require.NoError(t, err)
	assert.Equal(t, int64(1), result.FromVersion)
	assert.Equal(t, int64(3), result.ToVersion)
	assert.Equal(t, 3, result.Count)

	integrity := store.VerifyIntegrity()
	assert.True(t, integrity.Valid)
	assert.Equal(t, int64(3), integrity.LastVerifiedPosition)
	assert.Equal(t, int64(3), store.GlobalPosition())
}

func TestAppend_EmptyStreamIDRejected(t *testing.T) {
	store, _ := memoryStore(t)
	_, err := store.Append("", []eventstore.Event{ev("a")}, eventstore.AppendOptions{})
	require.Error(t, err)
	code, ok := trust.CodeOf(err)
	require.True(t, ok)
	assert.Equal(t, trust.CodeInvalidStreamID, code)
}

func TestAppend_EmptyEventListRejected(t *testing.T) {
	store, _ := memoryStore(t)
	_, err := store.Append("s", nil, eventstore.AppendOptions{})
	require.Error(t, err)
	code, _ := trust.CodeOf(err)
	assert.Equal(t, trust.CodeEmptyAppend, code)
}

func TestAppend_ConcurrencyGuard(t *testing.T) {
	store, _ := memoryStore(t)

	_, err := store.Append("s", []eventstore.Event{ev("a")}, eventstore.AppendOptions{
		ExpectedVersion: eventstore.NoStream(),
	})
	require.NoError(t, err)

	_, err = store.Append("s", []eventstore.Event{ev("a")}, eventstore.AppendOptions{
		ExpectedVersion: eventstore.NoStream(),
	})
	require.Error(t, err)
	code, _ := trust.CodeOf(err)
	assert.Equal(t, trust.CodeConcurrencyConflict, code)

	_, err = store.Append("s", []eventstore.Event{ev("b")}, eventstore.AppendOptions{
		ExpectedVersion: eventstore.AtVersion(1),
	})
	require.NoError(t, err)
}

func TestVerifyIntegrity_DetectsTamperedPayload(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "events.jsonl")
	backend, err := eventstore.NewJSONLBackend(path)
	require.NoError(t, err)
	store := eventstore.New(backend, nil, nil)

	_, err = store.Append("s", []eventstore.Event{ev("a"), ev("b"), ev("c")}, eventstore.AppendOptions{})
	require.NoError(t, err)

	integrity := store.VerifyIntegrity()
	require.True(t, integrity.Valid)

	recovered, err := backend.Recover()
	require.NoError(t, err)
	recovered[1].Event.Payload["tampered"] = true

	tamperedStore := eventstore.New(backend, recovered, nil)
	result := tamperedStore.VerifyIntegrity()
	assert.False(t, result.Valid)
	assert.NotEmpty(t, result.Errors)
}

func TestVerifyIntegrity_IdempotentOnUnchangedLog(t *testing.T) {
	store, _ := memoryStore(t)
	_, err := store.Append("s", []eventstore.Event{ev("a")}, eventstore.AppendOptions{})
	require.NoError(t, err)

	first := store.VerifyIntegrity()
	second := store.VerifyIntegrity()
	assert.Equal(t, first, second)
}

func TestAppend_DisjointStreamsPreserveGlobalChainValidity(t *testing.T) {
	store, _ := memoryStore(t)
	_, err := store.Append("s1", []eventstore.Event{ev("a")}, eventstore.AppendOptions{})
	require.NoError(t, err)
	_, err = store.Append("s2", []eventstore.Event{ev("a")}, eventstore.AppendOptions{})
	require.NoError(t, err)
	_, err = store.Append("s1", []eventstore.Event{ev("b")}, eventstore.AppendOptions{})
	require.NoError(t, err)

	assert.True(t, store.VerifyIntegrity().Valid)
	assert.Equal(t, int64(2), store.StreamVersion("s1"))
	assert.Equal(t, int64(1), store.StreamVersion("s2"))
}

func TestSubscribe_InvokedInAppendOrderAfterPersistence(t *testing.T) {
	store, _ := memoryStore(t)
	var seen []string
	sub := store.Subscribe("s", func(e eventstore.StoredEvent) {
		seen = append(seen, e.Event.Type)
	})
	defer sub.Unsubscribe()

	_, err := store.Append("s", []eventstore.Event{ev("a"), ev("b")}, eventstore.AppendOptions{})
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, seen)
}

func TestSubscribe_UnsubscribeIsIdempotent(t *testing.T) {
	store, _ := memoryStore(t)
	sub := store.Subscribe("s", func(eventstore.StoredEvent) {})
	sub.Unsubscribe()
	assert.NotPanics(t, sub.Unsubscribe)
}

func TestSubscribe_HandlerPanicDoesNotRollBackAppend(t *testing.T) {
	store, _ := memoryStore(t)
	store.Subscribe("s", func(eventstore.StoredEvent) {
		panic("boom")
	})

	result, err := store.Append("s", []eventstore.Event{ev("a")}, eventstore.AppendOptions{})
	require.NoError(t, err)
	assert.Equal(t, 1, result.Count)
	assert.Equal(t, int64(1), store.StreamVersion("s"))
}

func TestRead_ForwardAndBackward(t *testing.T) {
	store, _ := memoryStore(t)
	_, err := store.Append("s", []eventstore.Event{ev("a"), ev("b"), ev("c")}, eventstore.AppendOptions{})
	require.NoError(t, err)

	fwd, err := store.Read("s", eventstore.ReadOptions{FromVersion: 2})
	require.NoError(t, err)
	require.Len(t, fwd, 2)
	assert.Equal(t, int64(2), fwd[0].Version)

	back, err := store.Read("s", eventstore.ReadOptions{FromVersion: 2, Direction: eventstore.Backward})
	require.NoError(t, err)
	require.Len(t, back, 2)
	assert.Equal(t, int64(2), back[0].Version)
	assert.Equal(t, int64(1), back[1].Version)
}

func TestRead_InvalidVersionRejected(t *testing.T) {
	store, _ := memoryStore(t)
	_, err := store.Read("s", eventstore.ReadOptions{FromVersion: 0, Direction: eventstore.Forward})
	require.NoError(t, err) // FromVersion 0 normalizes to 1
	_, err = store.Read("s", eventstore.ReadOptions{FromVersion: -1})
	require.Error(t, err)
	code, _ := trust.CodeOf(err)
	assert.Equal(t, trust.CodeInvalidVersion, code)
}

func TestJSONLBackend_RecoversAcrossRestart(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "events.jsonl")

	backend, err := eventstore.NewJSONLBackend(path)
	require.NoError(t, err)
	store := eventstore.New(backend, nil, nil)
	_, err = store.Append("s", []eventstore.Event{ev("a"), ev("b")}, eventstore.AppendOptions{})
	require.NoError(t, err)

	backend2, err := eventstore.NewJSONLBackend(path)
	require.NoError(t, err)
	recovered, err := backend2.Recover()
	require.NoError(t, err)
	require.Len(t, recovered, 2)

	restored := eventstore.New(backend2, recovered, nil)
	assert.Equal(t, int64(2), restored.GlobalPosition())
	assert.True(t, restored.VerifyIntegrity().Valid)
}

func TestJSONLBackend_RecoverSkipsCorruptTrailingLine(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "events.jsonl")

	backend, err := eventstore.NewJSONLBackend(path)
	require.NoError(t, err)
	store := eventstore.New(backend, nil, nil)
	_, err = store.Append("s", []eventstore.Event{ev("a")}, eventstore.AppendOptions{})
	require.NoError(t, err)

	f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0o600)
	require.NoError(t, err)
	_, err = f.WriteString(`{"streamId":"s","version":2,` /* torn line, no closing */)
	require.NoError(t, err)
	require.NoError(t, f.Close())

	recovered, err := backend.Recover()
	require.NoError(t, err)
	assert.Len(t, recovered, 1)
}

func TestSnapshotStore_SaveLoadAndVerify(t *testing.T) {
	store := eventstore.NewMemorySnapshotStore()
	snap, err := store.Save("s", 3, map[string]interface{}{"count": 3})
	require.NoError(t, err)

	loaded, err := store.Load("s")
	require.NoError(t, err)
	require.NotNil(t, loaded)
	assert.Equal(t, snap.StateHash, loaded.StateHash)
	assert.True(t, eventstore.VerifyIntegrity(*loaded))

	loaded.StateHash = "tampered"
	assert.False(t, eventstore.VerifyIntegrity(*loaded))
}

func TestSnapshotStore_LoadMissingReturnsNil(t *testing.T) {
	store := eventstore.NewMemorySnapshotStore()
	loaded, err := store.Load("missing")
	require.NoError(t, err)
	assert.Nil(t, loaded)
}
