package mock

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDeterministicVector(t *testing.T) {
	a := DeterministicVector("hello", 16)
	b := DeterministicVector("hello", 16)
	c := DeterministicVector("world", 16)

	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)

	var sum float64
	for _, v := range a {
		sum += float64(v) * float64(v)
	}
	assert.InDelta(t, 1.0, math.Sqrt(sum), 1e-5)
}

func TestMockEmbedder_RecordsBatches(t *testing.T) {
	m := NewMockEmbedder()
	ctx := context.Background()

	vectors, err := m.EmbedTexts(ctx, []string{"a", "b"})
	require.NoError(t, err)
	assert.Len(t, vectors, 2)

	_, err = m.EmbedText(ctx, "c")
	require.NoError(t, err)

	assert.Equal(t, 2, m.CallCount())
	assert.Equal(t, [][]string{{"a", "b"}}, m.Batches())

	m.Reset()
	assert.Zero(t, m.CallCount())
	assert.Empty(t, m.Batches())
}
