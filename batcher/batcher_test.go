package batcher

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/poiesic/gleaner/ai"
	"github.com/poiesic/gleaner/ai/mock"
	"github.com/poiesic/gleaner/core"
	"github.com/poiesic/gleaner/retry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fastPolicy() retry.Policy {
	return retry.Policy{
		MaxAttempts:    3,
		BaseDelay:      time.Millisecond,
		MaxDelay:       5 * time.Millisecond,
		RateLimitDelay: time.Millisecond,
	}
}

func makeChunks(n int) []core.Chunk {
	chunks := make([]core.Chunk, n)
	for i := range chunks {
		url := "https://example.com/a"
		chunks[i] = core.Chunk{
			ID:        core.ChunkID(url, i),
			SourceURL: url,
			Seq:       i,
			Text:      fmt.Sprintf("chunk text %d", i),
		}
	}
	return chunks
}

func TestNew_Validation(t *testing.T) {
	_, err := New(nil)
	assert.ErrorIs(t, err, ErrEmbedderRequired)

	_, err = New(mock.NewMockEmbedder(), WithBatchSize(0))
	assert.ErrorIs(t, err, ErrInvalidBatchSize)

	_, err = New(mock.NewMockEmbedder(), WithPolicy(retry.Policy{}))
	assert.ErrorIs(t, err, retry.ErrInvalidMaxAttempts)
}

func TestEmbed_BatchesInOrder(t *testing.T) {
	embedder := mock.NewMockEmbedder()
	b, err := New(embedder, WithBatchSize(4), WithPolicy(fastPolicy()))
	require.NoError(t, err)

	chunks := makeChunks(10)
	out, err := b.Embed(context.Background(), chunks)
	require.NoError(t, err)
	require.Len(t, out, 10)

	batches := embedder.Batches()
	require.Len(t, batches, 3)
	assert.Len(t, batches[0], 4)
	assert.Len(t, batches[1], 4)
	assert.Len(t, batches[2], 2)

	for i, ec := range out {
		assert.Equal(t, chunks[i], ec.Chunk)
		assert.InDeltaSlice(t, mock.DeterministicVector(chunks[i].Text, mock.DefaultDimension), ec.Vector, 1e-6)
	}
}

func TestEmbed_Empty(t *testing.T) {
	embedder := mock.NewMockEmbedder()
	b, err := New(embedder)
	require.NoError(t, err)

	out, err := b.Embed(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, out)
	assert.Equal(t, 0, embedder.CallCount())
}

func TestEmbed_NormalizesVectors(t *testing.T) {
	embedder := mock.NewMockEmbedder()
	embedder.EmbedTextsFunc = func(_ context.Context, texts []string) ([][]float32, error) {
		out := make([][]float32, len(texts))
		for i := range texts {
			out[i] = []float32{3, 4}
		}
		return out, nil
	}
	b, err := New(embedder, WithPolicy(fastPolicy()))
	require.NoError(t, err)

	out, err := b.Embed(context.Background(), makeChunks(2))
	require.NoError(t, err)
	assert.InDeltaSlice(t, []float32{0.6, 0.8}, out[0].Vector, 1e-6)
}

func TestEmbed_RetriesRateLimited(t *testing.T) {
	var calls atomic.Int32
	embedder := mock.NewMockEmbedder()
	embedder.EmbedTextsFunc = func(_ context.Context, texts []string) ([][]float32, error) {
		if calls.Add(1) == 1 {
			return nil, fmt.Errorf("%w: 429", ai.ErrRateLimited)
		}
		out := make([][]float32, len(texts))
		for i, text := range texts {
			out[i] = mock.DeterministicVector(text, 8)
		}
		return out, nil
	}

	var retries []retry.Kind
	policy := fastPolicy()
	policy.OnRetry = func(_ int, kind retry.Kind, _ time.Duration, _ error) {
		retries = append(retries, kind)
	}
	b, err := New(embedder, WithPolicy(policy))
	require.NoError(t, err)

	out, err := b.Embed(context.Background(), makeChunks(3))
	require.NoError(t, err)
	assert.Len(t, out, 3)
	assert.Equal(t, int32(2), calls.Load())
	assert.Equal(t, []retry.Kind{retry.RateLimited}, retries)
}

func TestEmbed_TransientExhaustsRetries(t *testing.T) {
	embedder := mock.NewMockEmbedder()
	embedder.EmbedTextsFunc = func(context.Context, []string) ([][]float32, error) {
		return nil, fmt.Errorf("%w: 503", ai.ErrTransient)
	}
	b, err := New(embedder, WithBatchSize(2), WithPolicy(fastPolicy()))
	require.NoError(t, err)

	out, err := b.Embed(context.Background(), makeChunks(3))
	assert.Nil(t, out)

	var batchErr *BatchError
	require.ErrorAs(t, err, &batchErr)
	assert.Equal(t, 0, batchErr.Index)
	assert.Equal(t, retry.Transient, batchErr.Kind)
	assert.Equal(t, 3, batchErr.Attempts)
	assert.ErrorIs(t, err, ai.ErrTransient)
	assert.Equal(t, 3, embedder.CallCount())
}

func TestEmbed_FatalNotRetried(t *testing.T) {
	embedder := mock.NewMockEmbedder()
	embedder.EmbedTextsFunc = func(context.Context, []string) ([][]float32, error) {
		return nil, fmt.Errorf("%w: invalid api key", ai.ErrFatal)
	}
	b, err := New(embedder, WithPolicy(fastPolicy()))
	require.NoError(t, err)

	_, err = b.Embed(context.Background(), makeChunks(1))
	var batchErr *BatchError
	require.ErrorAs(t, err, &batchErr)
	assert.Equal(t, retry.Fatal, batchErr.Kind)
	assert.Equal(t, 1, embedder.CallCount())
}

func TestEmbed_CountMismatchIsFatal(t *testing.T) {
	embedder := mock.NewMockEmbedder()
	embedder.EmbedTextsFunc = func(_ context.Context, texts []string) ([][]float32, error) {
		return [][]float32{{1}}, nil
	}
	b, err := New(embedder, WithPolicy(fastPolicy()))
	require.NoError(t, err)

	_, err = b.Embed(context.Background(), makeChunks(2))
	assert.ErrorIs(t, err, ai.ErrCountMismatch)
	assert.Equal(t, 1, embedder.CallCount())
}

func TestEmbed_LaterBatchFailureDiscardsAll(t *testing.T) {
	embedder := mock.NewMockEmbedder()
	embedder.EmbedTextsFunc = func(_ context.Context, texts []string) ([][]float32, error) {
		if texts[0] == "chunk text 2" {
			return nil, errors.New("boom")
		}
		out := make([][]float32, len(texts))
		for i := range texts {
			out[i] = []float32{1, 0}
		}
		return out, nil
	}
	b, err := New(embedder, WithBatchSize(2), WithPolicy(fastPolicy()))
	require.NoError(t, err)

	out, err := b.Embed(context.Background(), makeChunks(4))
	assert.Nil(t, out)
	var batchErr *BatchError
	require.ErrorAs(t, err, &batchErr)
	assert.Equal(t, 1, batchErr.Index)
}

func TestEmbed_TruncatesLongInputs(t *testing.T) {
	embedder := mock.NewMockEmbedder()
	b, err := New(embedder, WithMaxInputChars(5), WithPolicy(fastPolicy()))
	require.NoError(t, err)

	chunks := []core.Chunk{{Text: "héllo world"}}
	out, err := b.Embed(context.Background(), chunks)
	require.NoError(t, err)
	assert.Equal(t, "héllo world", out[0].Text)
	assert.Equal(t, [][]string{{"héllo"}}, embedder.Batches())
}

func TestEmbed_CanceledContext(t *testing.T) {
	embedder := mock.NewMockEmbedder()
	b, err := New(embedder, WithPolicy(fastPolicy()))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = b.Embed(ctx, makeChunks(1))
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 0, embedder.CallCount())
}

func TestNormalizeVector(t *testing.T) {
	assert.Empty(t, NormalizeVector(nil))
	assert.Equal(t, []float32{0, 0}, NormalizeVector([]float32{0, 0}))

	in := []float32{3, 4}
	out := NormalizeVector(in)
	assert.InDeltaSlice(t, []float32{0.6, 0.8}, out, 1e-6)
	assert.Equal(t, []float32{3, 4}, in)
}
