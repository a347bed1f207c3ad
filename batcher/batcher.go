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

// Package batcher turns chunks into embedded chunks by calling an embedder in
// fixed-size batches, retrying rate-limited and transient failures.
package batcher

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/poiesic/gleaner/ai"
	"github.com/poiesic/gleaner/core"
	"github.com/poiesic/gleaner/retry"
)

// Defaults applied by New.
const (
	DefaultBatchSize     = 100
	DefaultMaxInputChars = 8000
)

// Batcher embeds chunks through an ai.Embedder. It holds no per-call state and
// may be shared between goroutines.
type Batcher struct {
	embedder      ai.Embedder
	batchSize     int
	maxInputChars int
	policy        retry.Policy
	logger        *slog.Logger
}

// Option configures a Batcher.
type Option func(*Batcher)

// WithBatchSize sets the maximum number of chunks sent in one embedding call.
func WithBatchSize(n int) Option {
	return func(b *Batcher) {
		b.batchSize = n
	}
}

// WithPolicy replaces the retry policy used for each batch.
func WithPolicy(p retry.Policy) Option {
	return func(b *Batcher) {
		b.policy = p
	}
}

// WithMaxInputChars truncates every input to at most n runes. Zero disables truncation.
func WithMaxInputChars(n int) Option {
	return func(b *Batcher) {
		b.maxInputChars = n
	}
}

// WithLogger sets the logger. The default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(b *Batcher) {
		b.logger = logger
	}
}

// New returns a Batcher over embedder. Embedder must be non-nil and the options valid.
func New(embedder ai.Embedder, opts ...Option) (*Batcher, error) {
	if embedder == nil {
		return nil, ErrEmbedderRequired
	}
	b := &Batcher{
		embedder:      embedder,
		batchSize:     DefaultBatchSize,
		maxInputChars: DefaultMaxInputChars,
		policy:        retry.DefaultPolicy(),
		logger:        slog.Default(),
	}
	for _, opt := range opts {
		opt(b)
	}
	if b.batchSize <= 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidBatchSize, b.batchSize)
	}
	if err := b.policy.Validate(); err != nil {
		return nil, err
	}
	b.logger = b.logger.With("component", "batcher")
	return b, nil
}

// Embed embeds chunks in batches of at most the configured size. The result has one
// entry per input chunk, in input order. If any batch fails the whole call fails with a
// *BatchError and no partial result is returned.
func (b *Batcher) Embed(ctx context.Context, chunks []core.Chunk) ([]core.EmbeddedChunk, error) {
	out := make([]core.EmbeddedChunk, 0, len(chunks))
	for index, start := 0, 0; start < len(chunks); index, start = index+1, start+b.batchSize {
		end := min(start+b.batchSize, len(chunks))
		vectors, err := b.embedBatch(ctx, index, chunks[start:end])
		if err != nil {
			return nil, err
		}
		for i, v := range vectors {
			out = append(out, core.EmbeddedChunk{Chunk: chunks[start+i], Vector: NormalizeVector(v)})
		}
	}
	return out, nil
}

func (b *Batcher) embedBatch(ctx context.Context, index int, batch []core.Chunk) ([][]float32, error) {
	texts := make([]string, len(batch))
	for i := range batch {
		texts[i] = b.truncate(batch[i].Text)
	}

	policy := b.policy
	policy.OnRetry = func(attempt int, kind retry.Kind, delay time.Duration, err error) {
		b.logger.Warn("embedding batch failed, retrying",
			"batch", index, "attempt", attempt, "kind", kind, "delay", delay, "error", err)
		if b.policy.OnRetry != nil {
			b.policy.OnRetry(attempt, kind, delay, err)
		}
	}

	var vectors [][]float32
	attempts, err := retry.Do(ctx, policy, ai.KindOf, func(ctx context.Context) error {
		v, err := b.embedder.EmbedTexts(ctx, texts)
		if err != nil {
			return err
		}
		if len(v) != len(texts) {
			return fmt.Errorf("%w: %w: sent %d texts, got %d vectors", ai.ErrFatal, ai.ErrCountMismatch, len(texts), len(v))
		}
		vectors = v
		return nil
	})
	if err != nil {
		return nil, &BatchError{Index: index, Kind: ai.KindOf(err), Attempts: attempts, Err: err}
	}
	return vectors, nil
}

func (b *Batcher) truncate(text string) string {
	if b.maxInputChars <= 0 || len(text) <= b.maxInputChars {
		return text
	}
	runes := []rune(text)
	if len(runes) <= b.maxInputChars {
		return text
	}
	return string(runes[:b.maxInputChars])
}
