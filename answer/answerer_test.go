package answer

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/poiesic/gleaner/ai/mock"
	"github.com/poiesic/gleaner/core"
	"github.com/poiesic/gleaner/storage"
	"github.com/poiesic/gleaner/storage/badger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupIndex(t *testing.T) storage.VectorIndex {
	t.Helper()
	index, ledger, backend, err := badger.NewMemoryRepositories()
	require.NoError(t, err)
	t.Cleanup(func() {
		ledger.Close()
		index.Close()
		backend.Close()
	})
	return index
}

func storeChunk(t *testing.T, index storage.VectorIndex, url, title, author, section, text string) {
	t.Helper()
	ch := core.EmbeddedChunk{
		Chunk: core.Chunk{
			ID:        core.ChunkID(url, 0),
			SourceURL: url,
			Text:      text,
			Title:     title,
			Author:    author,
			Section:   section,
		},
		Vector: mock.DeterministicVector(text, mock.DefaultDimension),
	}
	require.NoError(t, index.Upsert(context.Background(), ch))
}

type recordingMonitor struct {
	stages []string
	hits   int
	prompt string
}

func (m *recordingMonitor) Start(string) { m.stages = append(m.stages, "start") }
func (m *recordingMonitor) AfterRetrieval(hits []core.SearchHit) {
	m.stages = append(m.stages, "retrieval")
	m.hits = len(hits)
}
func (m *recordingMonitor) BeforeCompletion(prompt string) {
	m.stages = append(m.stages, "completion")
	m.prompt = prompt
}
func (m *recordingMonitor) Finish(*Answer) { m.stages = append(m.stages, "finish") }

func TestNewAnswerer_Validation(t *testing.T) {
	_, err := NewAnswerer(nil, mock.NewMockProvider())
	assert.ErrorIs(t, err, ErrIndexRequired)

	_, err = NewAnswerer(setupIndex(t), nil)
	assert.ErrorIs(t, err, ErrAIProviderRequired)
}

func TestAsk_BuildsPromptFromExcerpts(t *testing.T) {
	index := setupIndex(t)
	storeChunk(t, index, "https://example.com/a", "On Grace", "Ann Writer", "Essays", "Grace is unearned favor.")
	storeChunk(t, index, "https://example.com/b", "On Work", "Bob Author", "Faith & Work", "Work is a calling.")

	chat := mock.NewMockChatModel()
	chat.Reply = "Grace is favor [1]."
	provider := mock.NewMockProviderWithServices(mock.NewMockEmbedder(), chat)
	a, err := NewAnswerer(index, provider, WithPublication("Example Review articles"))
	require.NoError(t, err)

	monitor := &recordingMonitor{}
	result, err := a.AskWithMonitor(context.Background(), "  Grace is unearned favor.  ", 2, nil, monitor)
	require.NoError(t, err)

	assert.Equal(t, "Grace is favor [1].", result.Text)
	require.Len(t, result.Sources, 2)
	assert.Equal(t, "On Grace", result.Sources[0].Title)
	assert.Equal(t, "https://example.com/a", result.Sources[0].SourceURL)
	assert.Equal(t, "Grace is unearned favor.", result.Sources[0].Snippet)

	prompt := chat.LastPrompt()
	assert.True(t, strings.HasPrefix(prompt, "Use the following excerpts from Example Review articles"))
	assert.Contains(t, prompt, "[1] From \"On Grace\" by Ann Writer:\nGrace is unearned favor.")
	assert.Contains(t, prompt, "[2] From \"On Work\" by Bob Author:")
	assert.True(t, strings.HasSuffix(prompt, "Question: Grace is unearned favor."))

	assert.Equal(t, []string{"start", "retrieval", "completion", "finish"}, monitor.stages)
	assert.Equal(t, 2, monitor.hits)
	assert.Equal(t, prompt, monitor.prompt)
}

func TestAsk_FilterRestrictsSources(t *testing.T) {
	index := setupIndex(t)
	storeChunk(t, index, "https://example.com/a", "On Grace", "Ann Writer", "Essays", "Grace is unearned favor.")
	storeChunk(t, index, "https://example.com/b", "On Work", "Bob Author", "Faith & Work", "Work is a calling.")

	a, err := NewAnswerer(index, mock.NewMockProvider())
	require.NoError(t, err)

	result, err := a.Ask(context.Background(), "grace", 5, map[string]string{"section": "Faith & Work"})
	require.NoError(t, err)
	require.Len(t, result.Sources, 1)
	assert.Equal(t, "On Work", result.Sources[0].Title)
}

func TestAsk_NoArticles(t *testing.T) {
	chat := mock.NewMockChatModel()
	a, err := NewAnswerer(setupIndex(t), mock.NewMockProviderWithServices(mock.NewMockEmbedder(), chat))
	require.NoError(t, err)

	result, err := a.Ask(context.Background(), "anything", 5, nil)
	require.NoError(t, err)
	assert.Equal(t, NoArticlesAnswer, result.Text)
	assert.Empty(t, result.Sources)
	assert.Equal(t, 0, chat.CallCount())
}

func TestAsk_EmptyQuery(t *testing.T) {
	a, err := NewAnswerer(setupIndex(t), mock.NewMockProvider())
	require.NoError(t, err)

	_, err = a.Ask(context.Background(), "   ", 5, nil)
	assert.ErrorIs(t, err, ErrEmptyQuery)
}

func TestAsk_ChatError(t *testing.T) {
	index := setupIndex(t)
	storeChunk(t, index, "https://example.com/a", "T", "A", "S", "Some text.")

	chat := mock.NewMockChatModel()
	chat.CompleteFunc = func(context.Context, string, string) (string, error) {
		return "", errors.New("model unavailable")
	}
	a, err := NewAnswerer(index, mock.NewMockProviderWithServices(mock.NewMockEmbedder(), chat))
	require.NoError(t, err)

	_, err = a.Ask(context.Background(), "question", 5, nil)
	assert.EqualError(t, err, "model unavailable")
}

func TestRetrieve_ClampsCount(t *testing.T) {
	index := setupIndex(t)
	for i := 0; i < 25; i++ {
		url := "https://example.com/" + strings.Repeat("x", i+1)
		storeChunk(t, index, url, "T", "A", "S", "text "+url)
	}
	r := NewRetriever(index, mock.NewMockEmbedder(), nil)

	hits, err := r.Retrieve(context.Background(), "text", 100, nil)
	require.NoError(t, err)
	assert.Len(t, hits, MaxChunks)

	hits, err = r.Retrieve(context.Background(), "text", 0, nil)
	require.NoError(t, err)
	assert.Len(t, hits, MinChunks)
}

func TestSnippet(t *testing.T) {
	assert.Equal(t, "short", snippet("short"))

	long := strings.Repeat("é", 301)
	got := snippet(long)
	assert.Equal(t, strings.Repeat("é", 300)+"...", got)
}

func TestClampChunks(t *testing.T) {
	assert.Equal(t, MinChunks, ClampChunks(-3))
	assert.Equal(t, 7, ClampChunks(7))
	assert.Equal(t, MaxChunks, ClampChunks(MaxChunks+1))
}
