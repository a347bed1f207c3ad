package chunker

import (
	"strings"
	"testing"

	"github.com/poiesic/gleaner/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newArticle(body string) *core.Article {
	return &core.Article{
		URL:          "https://example.com/article/a",
		CanonicalURL: "https://example.com/article/a",
		Title:        "A",
		Author:       "Someone",
		Section:      "Essays",
		Published:    "2024-01-02",
		Body:         body,
	}
}

// body returns n distinct-looking runes so offsets are easy to check.
func body(n int) string {
	var b strings.Builder
	for i := 0; i < n; i++ {
		b.WriteByte(byte('a' + i%26))
	}
	return b.String()
}

func TestNew_Validation(t *testing.T) {
	_, err := New(0, 0)
	assert.ErrorIs(t, err, ErrInvalidSize)

	_, err = New(100, 100)
	assert.ErrorIs(t, err, ErrInvalidOverlap)

	_, err = New(100, -1)
	assert.ErrorIs(t, err, ErrInvalidOverlap)

	c, err := New(DefaultSize, DefaultOverlap)
	require.NoError(t, err)
	assert.Equal(t, 2400, c.Size())
	assert.Equal(t, 400, c.Overlap())
}

func TestChunk_Windows(t *testing.T) {
	c, err := New(500, 100)
	require.NoError(t, err)

	text := body(1100)
	chunks := c.Chunk(newArticle(text))
	require.Len(t, chunks, 3)

	want := [][2]int{{0, 500}, {400, 900}, {800, 1100}}
	for i, ch := range chunks {
		assert.Equal(t, i, ch.Seq)
		assert.Equal(t, want[i][0], ch.Start)
		assert.Equal(t, want[i][1], ch.End)
		assert.Equal(t, text[want[i][0]:want[i][1]], ch.Text)
		assert.Equal(t, core.ChunkID("https://example.com/article/a", i), ch.ID)
		assert.Equal(t, "https://example.com/article/a", ch.SourceURL)
		assert.Equal(t, "Someone", ch.Author)
		assert.NoError(t, core.ValidateChunk(&ch))
	}
}

func TestChunk_ShortAndEmptyBody(t *testing.T) {
	c, err := New(500, 100)
	require.NoError(t, err)

	chunks := c.Chunk(newArticle("short body"))
	require.Len(t, chunks, 1)
	assert.Equal(t, "short body", chunks[0].Text)

	exact := body(500)
	chunks = c.Chunk(newArticle(exact))
	require.Len(t, chunks, 1)
	assert.Equal(t, exact, chunks[0].Text)

	assert.Empty(t, c.Chunk(newArticle("")))
	assert.Nil(t, c.Chunk(nil))
}

func TestChunk_CountsRunes(t *testing.T) {
	c, err := New(4, 1)
	require.NoError(t, err)

	chunks := c.Chunk(newArticle("héllo wörld"))
	require.NotEmpty(t, chunks)
	for _, ch := range chunks[:len(chunks)-1] {
		assert.Len(t, []rune(ch.Text), 4)
	}
	assert.Equal(t, "héllo wörld", Reconstruct(chunks, 1))
}

func TestChunk_Deterministic(t *testing.T) {
	c, err := New(300, 50)
	require.NoError(t, err)

	text := body(2000)
	first := c.Chunk(newArticle(text))
	second := c.Chunk(newArticle(text))
	assert.Equal(t, first, second)
}

func TestReconstruct_Lossless(t *testing.T) {
	lengths := []int{1, 7, 99, 100, 101, 499, 500, 501, 1100, 2401, 5000}
	params := [][2]int{{1, 0}, {10, 3}, {100, 0}, {100, 99}, {500, 100}, {2400, 400}}

	for _, p := range params {
		c, err := New(p[0], p[1])
		require.NoError(t, err)
		for _, n := range lengths {
			text := body(n)
			chunks := c.Chunk(newArticle(text))
			require.Equal(t, text, Reconstruct(chunks, p[1]), "size=%d overlap=%d n=%d", p[0], p[1], n)

			for i := 1; i < len(chunks); i++ {
				prev := []rune(chunks[i-1].Text)
				cur := []rune(chunks[i].Text)
				assert.Equal(t, string(prev[len(prev)-p[1]:]), string(cur[:p[1]]))
			}
		}
	}
}
