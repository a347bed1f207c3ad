// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package answer

import (
	"context"
	"log/slog"
	"strings"

	"github.com/poiesic/gleaner/ai"
	"github.com/poiesic/gleaner/storage"
)

// NoArticlesAnswer is returned, without calling the model, when nothing relevant is indexed.
const NoArticlesAnswer = "I don't have any relevant articles to answer that. Try rephrasing or run the ingest to add more content."

// DefaultPublication names the corpus in prompts when no publication is configured.
const DefaultPublication = "the indexed articles"

// Answer is the model's reply and the chunks it was given.
type Answer struct {
	Text    string
	Sources []Source
}

// Source describes one retrieved chunk.
type Source struct {
	Title     string
	Author    string
	SourceURL string
	Snippet   string
	Score     float32
}

// Answerer answers questions from the vector index.
type Answerer struct {
	retriever   *Retriever
	chat        ai.ChatModel
	publication string
	logger      *slog.Logger
}

// Option configures an Answerer.
type Option func(*Answerer) error

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(a *Answerer) error {
		if logger == nil {
			logger = slog.Default()
		}
		a.logger = logger
		return nil
	}
}

// WithPublication names the corpus in the prompts, e.g. "The Example Review articles".
func WithPublication(name string) Option {
	return func(a *Answerer) error {
		if strings.TrimSpace(name) != "" {
			a.publication = name
		}
		return nil
	}
}

// NewAnswerer creates a new answerer.
func NewAnswerer(index storage.VectorIndex, provider ai.AIProvider, opts ...Option) (*Answerer, error) {
	if index == nil {
		return nil, ErrIndexRequired
	}
	if provider == nil {
		return nil, ErrAIProviderRequired
	}

	a := &Answerer{
		chat:        provider.ChatModel(),
		publication: DefaultPublication,
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		if err := opt(a); err != nil {
			return nil, err
		}
	}
	a.logger = a.logger.With("component", "answer")
	a.retriever = NewRetriever(index, provider.Embedder(), a.logger)
	return a, nil
}

// Retriever returns the retriever used by a.
func (a *Answerer) Retriever() *Retriever {
	return a.retriever
}

// Ask answers query from up to n retrieved chunks.
func (a *Answerer) Ask(ctx context.Context, query string, n int, filter map[string]string) (*Answer, error) {
	return a.AskWithMonitor(ctx, query, n, filter, nil)
}

// AskWithMonitor is Ask with a monitor notified at each stage.
func (a *Answerer) AskWithMonitor(ctx context.Context, query string, n int, filter map[string]string, monitor Monitor) (*Answer, error) {
	if monitor == nil {
		monitor = &noopMonitor{}
	}
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, ErrEmptyQuery
	}
	monitor.Start(query)

	hits, err := a.retriever.Retrieve(ctx, query, n, filter)
	if err != nil {
		return nil, err
	}
	monitor.AfterRetrieval(hits)

	result := &Answer{Sources: make([]Source, 0, len(hits))}
	for _, hit := range hits {
		result.Sources = append(result.Sources, Source{
			Title:     hit.Chunk.Title,
			Author:    hit.Chunk.Author,
			SourceURL: hit.Chunk.SourceURL,
			Snippet:   snippet(hit.Chunk.Text),
			Score:     hit.Score,
		})
	}

	if len(hits) == 0 {
		result.Text = NoArticlesAnswer
		monitor.Finish(result)
		return result, nil
	}

	prompt := buildPrompt(a.publication, query, hits)
	monitor.BeforeCompletion(prompt)
	text, err := a.chat.Complete(ctx, systemPrompt(a.publication), prompt)
	if err != nil {
		a.logger.Error("error completing answer", "chunks", len(hits), "err", err)
		return nil, err
	}
	result.Text = text
	monitor.Finish(result)
	return result, nil
}
