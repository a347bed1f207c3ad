package storage

import (
	"testing"
	"time"

	"github.com/poiesic/gleaner/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMarshalUnmarshalChunk(t *testing.T) {
	url := "https://example.com/article/one"

	tests := []struct {
		name  string
		chunk *core.EmbeddedChunk
	}{
		{
			name: "minimal chunk",
			chunk: &core.EmbeddedChunk{
				Chunk: core.Chunk{
					ID:        core.ChunkID(url, 0),
					SourceURL: url,
					Text:      "hello",
					End:       5,
				},
			},
		},
		{
			name: "chunk with metadata and vector",
			chunk: &core.EmbeddedChunk{
				Chunk: core.Chunk{
					ID:        core.ChunkID(url, 7),
					SourceURL: url,
					Seq:       7,
					Start:     2800,
					End:       3300,
					Text:      "Ünïcödé text with a long body",
					Title:     "A Title",
					Author:    "Someone",
					Section:   "Essays",
					Published: "2024-03-01",
				},
				Vector: []float32{0.1, -0.5, 0.25, 1},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data := MarshalChunk(tt.chunk)
			require.NotEmpty(t, data)

			decoded, err := UnmarshalChunk(data)
			require.NoError(t, err)
			assert.Equal(t, tt.chunk, decoded)
		})
	}
}

func TestUnmarshalChunk_Truncated(t *testing.T) {
	chunk := &core.EmbeddedChunk{
		Chunk:  core.Chunk{ID: "x_0", SourceURL: "u", Text: "t"},
		Vector: []float32{1, 2, 3},
	}
	data := MarshalChunk(chunk)

	_, err := UnmarshalChunk(data[:len(data)-2])
	assert.Error(t, err)

	_, err = UnmarshalChunk([]byte{})
	assert.Error(t, err)
}

func TestMarshalUnmarshalLedgerEntry(t *testing.T) {
	now := time.Now().UTC().Truncate(time.Microsecond)
	entry := &core.LedgerEntry{
		URL:         "https://example.com/article/one",
		ContentHash: core.ContentHash("body"),
		Chunks:      3,
		RunID:       "run-1",
		IndexedAt:   now,
	}

	data := MarshalLedgerEntry(entry)
	decoded, err := UnmarshalLedgerEntry(data)
	require.NoError(t, err)
	assert.Equal(t, entry, decoded)
}

func TestUnmarshalLedgerEntry_Invalid(t *testing.T) {
	_, err := UnmarshalLedgerEntry([]byte{})
	assert.Error(t, err)
}

func TestUnmarshalChunk_TruncatedIsReported(t *testing.T) {
	chunk := &core.EmbeddedChunk{
		Chunk: core.Chunk{ID: "x_0", SourceURL: "u", Text: "some text"},
	}
	data := MarshalChunk(chunk)

	_, err := UnmarshalChunk(data[:3])
	assert.ErrorIs(t, err, ErrTruncatedData)
}

func TestMarshalChunk_MatchesGeneratedSerializer(t *testing.T) {
	chunk := core.EmbeddedChunk{
		Chunk:  core.Chunk{ID: "x_1", SourceURL: "u", Seq: 1, Text: "t"},
		Vector: []float32{0.5, -0.5},
	}
	data := MarshalChunk(&chunk)
	assert.Len(t, data, core.EmbeddedChunkMUS.Size(chunk))

	n, err := core.EmbeddedChunkMUS.Skip(data)
	require.NoError(t, err)
	assert.Equal(t, len(data), n)
}
