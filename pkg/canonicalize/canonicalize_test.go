package canonicalize_test

import (
	"math"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/attestia/trustengine/pkg/canonicalize"
	"github.com/attestia/trustengine/pkg/trust"
)

func TestCanonical_SortsKeys(t *testing.T) {
	out, err := canonicalize.CanonicalString(map[string]interface{}{
		"b": 1,
		"a": 2,
	})
	require.NoError(t, err)
	assert.Equal(t, `{"a":2,"b":1}`, out)
}

func TestCanonical_NoInsignificantWhitespace(t *testing.T) {
	out, err := canonicalize.CanonicalString([]interface{}{1, 2, 3})
	require.NoError(t, err)
	assert.Equal(t, `[1,2,3]`, out)
}

func TestCanonical_RejectsNonFiniteNumbers(t *testing.T) {
	type bad struct {
		V float64
	}
	_, err := canonicalize.Canonical(bad{V: math.NaN()})
	require.Error(t, err)
	terr, ok := err.(*trust.Error)
	require.True(t, ok)
	assert.Equal(t, trust.CodeValidationFailed, terr.Code)
}

func TestDigest_StableAcrossEquivalentOrdering(t *testing.T) {
	d1, err := canonicalize.Digest(map[string]interface{}{"a": 1, "b": 2})
	require.NoError(t, err)
	d2, err := canonicalize.Digest(map[string]interface{}{"b": 2, "a": 1})
	require.NoError(t, err)
	assert.Equal(t, d1, d2)
	assert.Len(t, d1, 64)
}

func TestIdempotent_ReparsePreservesCanonicalForm(t *testing.T) {
	first, second, err := canonicalize.Idempotent(map[string]interface{}{
		"z": []interface{}{3, 2, 1},
		"a": "hello",
	})
	require.NoError(t, err)
	assert.Equal(t, string(first), string(second))
}

func TestCanonicalizeIdempotencyProperty(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	properties := gopter.NewProperties(parameters)

	properties.Property("canonicalize(parse(canonicalize(x))) == canonicalize(x)", prop.ForAll(
		func(keys []string, values []string) bool {
			obj := make(map[string]interface{})
			for i := 0; i < len(keys) && i < len(values); i++ {
				if keys[i] != "" {
					obj[keys[i]] = values[i]
				}
			}
			first, second, err := canonicalize.Idempotent(obj)
			if err != nil {
				return true
			}
			return string(first) == string(second)
		},
		gen.SliceOf(gen.AlphaString()),
		gen.SliceOf(gen.AlphaString()),
	))

	properties.TestingRun(t)
}
