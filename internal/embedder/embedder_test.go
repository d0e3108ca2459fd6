package embedder

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDeterministicEncode_UnitNorm(t *testing.T) {
	e := NewDeterministic(384)
	v, err := e.Encode(context.Background(), "the quick brown fox jumps over the lazy dog")
	require.NoError(t, err)
	require.Len(t, v, 384)

	var sumSq float64
	for _, x := range v {
		sumSq += float64(x) * float64(x)
	}
	assert.InDelta(t, 1.0, math.Sqrt(sumSq), 1e-5)
}

func TestDeterministicEncode_Deterministic(t *testing.T) {
	e := NewDeterministic(384)
	a, err := e.Encode(context.Background(), "stable input")
	require.NoError(t, err)
	b, err := e.Encode(context.Background(), "stable input")
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestDeterministicEncode_DifferentInputsDiffer(t *testing.T) {
	e := NewDeterministic(384)
	a, err := e.Encode(context.Background(), "alpha block")
	require.NoError(t, err)
	b, err := e.Encode(context.Background(), "beta block")
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
}

func TestDeterministicEncode_EmptyText(t *testing.T) {
	e := NewDeterministic(16)
	v, err := e.Encode(context.Background(), "")
	require.NoError(t, err)
	assert.Len(t, v, 16)
	for _, x := range v {
		assert.Zero(t, x)
	}
}

func TestDeterministicEncode_DefaultDim(t *testing.T) {
	e := NewDeterministic(0)
	assert.Equal(t, 384, e.Dim())
}

func TestDeterministicEncode_ShortText(t *testing.T) {
	e := NewDeterministic(32)
	v, err := e.Encode(context.Background(), "ab")
	require.NoError(t, err)
	assert.Len(t, v, 32)
}
