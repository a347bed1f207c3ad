package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/poiesic/gleaner/ai"
	"github.com/poiesic/gleaner/ai/mock"
	"github.com/poiesic/gleaner/answer"
	"github.com/poiesic/gleaner/core"
	"github.com/poiesic/gleaner/storage"
	"github.com/poiesic/gleaner/storage/badger"
)

type fixture struct {
	server *httptest.Server
	index  storage.VectorIndex
	chat   *mock.MockChatModel
}

func setup(t *testing.T, articles int) *fixture {
	t.Helper()
	index, ledger, backend, err := badger.NewMemoryRepositories()
	require.NoError(t, err)
	t.Cleanup(func() {
		ledger.Close()
		index.Close()
		backend.Close()
	})

	for i := range articles {
		url := fmt.Sprintf("https://example.com/article-%d", i)
		text := fmt.Sprintf("grace and faith in chapter %d", i)
		require.NoError(t, index.Upsert(context.Background(), core.EmbeddedChunk{
			Chunk: core.Chunk{
				ID:        core.ChunkID(url, 0),
				SourceURL: url,
				Text:      text,
				Title:     fmt.Sprintf("Title %d", i),
				Author:    "Author",
				Section:   "Essays",
			},
			Vector: mock.DeterministicVector(text, mock.DefaultDimension),
		}))
	}

	chat := mock.NewMockChatModel()
	provider := mock.NewMockProviderWithServices(mock.NewMockEmbedder(), chat)
	answerer, err := answer.NewAnswerer(index, provider)
	require.NoError(t, err)

	s, err := NewServer(answerer, index)
	require.NoError(t, err)
	ts := httptest.NewServer(s)
	t.Cleanup(ts.Close)
	return &fixture{server: ts, index: index, chat: chat}
}

func (f *fixture) ask(t *testing.T, body string) (*http.Response, map[string]any) {
	t.Helper()
	resp, err := http.Post(f.server.URL+"/ask", "application/json", bytes.NewBufferString(body))
	require.NoError(t, err)
	defer resp.Body.Close()
	var out map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return resp, out
}

func TestNewServer_Validation(t *testing.T) {
	_, err := NewServer(nil, nil)
	assert.ErrorIs(t, err, ErrAnswererRequired)
}

func TestAsk_ReturnsAnswerAndSources(t *testing.T) {
	f := setup(t, 3)

	resp, out := f.ask(t, `{"query": "What is grace?", "n_chunks": 2}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))
	assert.Equal(t, "mock answer", out["answer"])

	sources := out["sources"].([]any)
	assert.Len(t, sources, 2)
	first := sources[0].(map[string]any)
	assert.Contains(t, first["source_url"], "https://example.com/article-")
	assert.Equal(t, "Author", first["author"])
	assert.NotEmpty(t, first["snippet"])
}

func TestAsk_ClampsChunkCount(t *testing.T) {
	f := setup(t, 25)

	_, out := f.ask(t, `{"query": "grace", "n_chunks": 999}`)
	assert.Len(t, out["sources"], answer.MaxChunks)

	_, out = f.ask(t, `{"query": "grace", "n_chunks": 0}`)
	assert.Len(t, out["sources"], answer.MinChunks)

	_, out = f.ask(t, `{"query": "grace"}`)
	assert.Len(t, out["sources"], answer.DefaultChunks)
}

func TestAsk_FiltersByMetadata(t *testing.T) {
	f := setup(t, 3)

	_, out := f.ask(t, `{"query": "grace", "where": {"source_url": "https://example.com/article-1"}}`)
	sources := out["sources"].([]any)
	require.Len(t, sources, 1)
	assert.Equal(t, "Title 1", sources[0].(map[string]any)["title"])
}

func TestAsk_RejectsBlankQuery(t *testing.T) {
	f := setup(t, 1)

	resp, out := f.ask(t, `{"query": "   ", "n_chunks": 5}`)
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
	assert.Contains(t, out["detail"], "empty")

	resp, _ = f.ask(t, `not json`)
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
	assert.Equal(t, 0, f.chat.CallCount())
}

func TestAsk_MapsModelErrors(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"auth", fmt.Errorf("%w: %w: bad key", ai.ErrFatal, ai.ErrAuthentication), http.StatusUnauthorized},
		{"rate limited", fmt.Errorf("%w: slow down", ai.ErrRateLimited), http.StatusTooManyRequests},
		{"transient", fmt.Errorf("%w: upstream 503", ai.ErrTransient), http.StatusBadGateway},
		{"fatal", fmt.Errorf("%w: bad request", ai.ErrFatal), http.StatusBadGateway},
		{"unclassified", errors.New("boom"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := setup(t, 1)
			f.chat.CompleteFunc = func(context.Context, string, string) (string, error) {
				return "", tt.err
			}

			resp, out := f.ask(t, `{"query": "grace"}`)
			assert.Equal(t, tt.want, resp.StatusCode)
			assert.NotEmpty(t, out["detail"])
		})
	}
}

func TestAsk_EmptyIndexAnswersWithoutModel(t *testing.T) {
	f := setup(t, 0)

	resp, out := f.ask(t, `{"query": "grace"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, answer.NoArticlesAnswer, out["answer"])
	assert.Empty(t, out["sources"])
	assert.Equal(t, 0, f.chat.CallCount())
}

func TestHealth(t *testing.T) {
	f := setup(t, 2)

	resp, err := http.Get(f.server.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()

	var out map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "ok", out["status"])
	assert.EqualValues(t, 2, out["chunks"])
}

func TestHealth_Unhealthy(t *testing.T) {
	f := setup(t, 0)

	s, err := NewServer(&answer.Answerer{}, closedIndex{f.index})
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), "unhealthy")
}

func TestRoutes(t *testing.T) {
	f := setup(t, 0)

	resp, err := http.Get(f.server.URL + "/api")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, err = http.Get(f.server.URL + "/ask")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
}

func TestListenAndServe_StopsOnCancel(t *testing.T) {
	f := setup(t, 0)
	s, err := NewServer(&answer.Answerer{}, f.index)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.ListenAndServe(ctx, "127.0.0.1:0") }()
	cancel()
	assert.NoError(t, <-done)
}

// closedIndex fails every Count.
type closedIndex struct {
	storage.VectorIndex
}

func (closedIndex) Count(context.Context) (int, error) {
	return 0, storage.ErrStorageClosed
}
