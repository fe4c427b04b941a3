package governance

import (
	"crypto/ed25519"
	"crypto/rand"
	"encoding/hex"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/attestia/trustengine/pkg/trust"
)

func TestQuorumScenario(t *testing.T) {
	s := New()
	require.NoError(t, s.AddSigner("rA", "alpha", 1))
	require.NoError(t, s.AddSigner("rB", "beta", 1))
	require.NoError(t, s.AddSigner("rC", "gamma", 1))
	require.NoError(t, s.ChangeQuorum(2))

	met, total := s.CheckQuorum([]string{"rA"})
	assert.False(t, met)
	assert.Equal(t, 1, total)

	met, total = s.CheckQuorum([]string{"rA", "rB"})
	assert.True(t, met)
	assert.Equal(t, 2, total)

	require.NoError(t, s.RemoveSigner("rA"))

	err := s.RemoveSigner("rB")
	require.Error(t, err)
	code, ok := trust.CodeOf(err)
	require.True(t, ok)
	assert.Equal(t, trust.CodeQuorumNotMet, code)
}

func TestAddSignerRejectsDuplicateAndBadWeight(t *testing.T) {
	s := New()
	require.NoError(t, s.AddSigner("rA", "alpha", 1))
	assert.Error(t, s.AddSigner("rA", "dup", 1))
	assert.Error(t, s.AddSigner("rB", "bad-weight", 0))
}

func TestChangeQuorumBounds(t *testing.T) {
	s := New()
	require.NoError(t, s.AddSigner("rA", "alpha", 2))
	assert.Error(t, s.ChangeQuorum(0))
	assert.Error(t, s.ChangeQuorum(3))
	assert.NoError(t, s.ChangeQuorum(2))
}

func TestGetCurrentPolicyDeterministicID(t *testing.T) {
	s := New()
	require.NoError(t, s.AddSigner("rA", "alpha", 1))
	require.NoError(t, s.ChangeQuorum(1))

	p1, err := s.GetCurrentPolicy()
	require.NoError(t, err)

	replay := New()
	require.NoError(t, replay.ReplayFrom(s.GetEventHistory()))
	p2, err := replay.GetCurrentPolicy()
	require.NoError(t, err)

	assert.Equal(t, p1.ID, p2.ID)
	assert.Equal(t, p1.Version, p2.Version)
}

func TestReplayFromIsDeterministic(t *testing.T) {
	s := New()
	require.NoError(t, s.AddSigner("rA", "alpha", 1))
	require.NoError(t, s.AddSigner("rB", "beta", 1))
	require.NoError(t, s.ChangeQuorum(2))
	require.NoError(t, s.SetSlaPolicy("sla-1", "gold", 1, 100))

	history := s.GetEventHistory()

	replay := New()
	require.NoError(t, replay.ReplayFrom(history))

	p1, err := s.GetCurrentPolicy()
	require.NoError(t, err)
	p2, err := replay.GetCurrentPolicy()
	require.NoError(t, err)
	assert.Equal(t, p1, p2)
}

func TestSLAEvaluator(t *testing.T) {
	eval, err := NewSLAEvaluator()
	require.NoError(t, err)

	ok, err := eval.EvaluateSLA("summary.matched >= 3", map[string]interface{}{"matched": int64(5)})
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = eval.EvaluateSLA("summary.matched >= 3", map[string]interface{}{"matched": int64(1)})
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = eval.EvaluateSLA("", map[string]interface{}{"matched": int64(5)})
	require.NoError(t, err)
	assert.False(t, ok, "absent expression signals a violation")
}

func TestVerifySignerSignature(t *testing.T) {
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)

	msg := []byte("attest-me")
	sig := ed25519.Sign(priv, msg)

	ok, err := VerifySignerSignature(hex.EncodeToString(pub), hex.EncodeToString(sig), msg)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = VerifySignerSignature(hex.EncodeToString(pub), hex.EncodeToString(sig), []byte("tampered"))
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRotatePolicyRecordsDerivedKeyHashNotRawKey(t *testing.T) {
	s := New()
	master := []byte("super-secret-master-key-material")

	require.NoError(t, s.RotatePolicy(master, "policy-1"))

	history := s.GetEventHistory()
	require.Len(t, history, 1)
	assert.Equal(t, PolicyRotated, history[0].Type)

	hash, ok := history[0].Payload["derivedKeyHash"].(string)
	require.True(t, ok)
	assert.Len(t, hash, 64)
	assert.NotContains(t, history[0].Payload, "derivedKey")
}
