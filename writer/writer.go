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

// Package writer commits embedded articles to the vector index and the ledger.
//
// A group is written in three steps: upsert every chunk, delete chunks left over from an
// older, longer version of the same article, then append the ledger entry. The ledger is
// only appended once every upsert has succeeded, so a URL present in the ledger always has
// its full chunk set in the index.
package writer

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/poiesic/gleaner/core"
	"github.com/poiesic/gleaner/storage"
)

// Group is one article and all of its embedded chunks, in sequence order.
type Group struct {
	Article *core.Article
	Chunks  []core.EmbeddedChunk
}

// Writer commits embedded chunk groups to the vector index and records each
// committed article in the ledger. It is safe for concurrent use.
type Writer struct {
	index  storage.VectorIndex
	ledger storage.Ledger
	runID  string
	now    func() time.Time
	logger *slog.Logger

	mu     sync.Mutex
	closed bool
	groups int
	chunks int
}

// Option configures a Writer.
type Option func(*Writer)

// WithRunID stamps every ledger entry with id.
func WithRunID(id string) Option {
	return func(w *Writer) {
		w.runID = id
	}
}

// WithLogger sets the logger. The default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(w *Writer) {
		w.logger = logger
	}
}

func withClock(now func() time.Time) Option {
	return func(w *Writer) {
		w.now = now
	}
}

// New returns a Writer over index and ledger.
func New(index storage.VectorIndex, ledger storage.Ledger, opts ...Option) *Writer {
	w := &Writer{
		index:  index,
		ledger: ledger,
		now:    time.Now,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(w)
	}
	w.logger = w.logger.With("component", "writer")
	return w
}

// Write commits group. Cancellation of ctx does not interrupt a group once Write has
// started; only values are taken from ctx.
func (w *Writer) Write(ctx context.Context, group Group) error {
	if err := validateGroup(group); err != nil {
		return err
	}
	ctx = context.WithoutCancel(ctx)

	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return ErrWriterClosed
	}

	url := group.Article.CanonicalURL
	previous, err := w.index.ChunkIDs(ctx, url)
	if err != nil {
		return fmt.Errorf("%w: listing chunks of %s: %w", ErrIndexWrite, url, err)
	}

	if err := w.index.Upsert(ctx, group.Chunks...); err != nil {
		w.rollback(ctx, url, previous, group.Chunks)
		return fmt.Errorf("%w: %s: %w", ErrIndexWrite, url, err)
	}

	if stale := staleIDs(previous, group.Chunks); len(stale) > 0 {
		if err := w.index.Delete(ctx, stale...); err != nil {
			return fmt.Errorf("%w: removing %d stale chunks of %s: %w", ErrIndexWrite, len(stale), url, err)
		}
		w.logger.Debug("removed stale chunks", "url", url, "count", len(stale))
	}

	entry := core.LedgerEntry{
		URL:         url,
		ContentHash: group.Article.ContentHash,
		Chunks:      len(group.Chunks),
		RunID:       w.runID,
		IndexedAt:   w.now().UTC(),
	}
	if err := w.ledger.Record(ctx, entry); err != nil {
		return fmt.Errorf("%w: %s: %w", ErrLedgerWrite, url, err)
	}

	w.groups++
	w.chunks += len(group.Chunks)
	return nil
}

// Close stops accepting groups and flushes the ledger. It waits for an in-flight Write.
// Calling Close more than once only flushes again.
func (w *Writer) Close(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.closed = true

	if err := w.ledger.Flush(); err != nil {
		return fmt.Errorf("%w: flush: %w", ErrLedgerWrite, err)
	}
	w.logger.DebugContext(ctx, "writer closed", "groups", w.groups, "chunks", w.chunks)
	return nil
}

// Stats returns the number of groups and chunks committed so far.
func (w *Writer) Stats() (groups, chunks int) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.groups, w.chunks
}

// rollback removes chunks of a failed group that did not exist before the write.
// Chunks that existed before are left in place since their old content is gone either way.
func (w *Writer) rollback(ctx context.Context, url string, previous []string, chunks []core.EmbeddedChunk) {
	existed := make(map[string]bool, len(previous))
	for _, id := range previous {
		existed[id] = true
	}
	var fresh []string
	for i := range chunks {
		if !existed[chunks[i].ID] {
			fresh = append(fresh, chunks[i].ID)
		}
	}
	if len(fresh) == 0 {
		return
	}
	if err := w.index.Delete(ctx, fresh...); err != nil {
		w.logger.Warn("rollback failed", "url", url, "chunks", len(fresh), "error", err)
	}
}

func staleIDs(previous []string, chunks []core.EmbeddedChunk) []string {
	current := make(map[string]bool, len(chunks))
	for i := range chunks {
		current[chunks[i].ID] = true
	}
	var stale []string
	for _, id := range previous {
		if !current[id] {
			stale = append(stale, id)
		}
	}
	return stale
}

func validateGroup(group Group) error {
	if group.Article == nil {
		return fmt.Errorf("%w: missing article", ErrInvalidGroup)
	}
	if len(group.Chunks) == 0 {
		return fmt.Errorf("%w: %s has no chunks", ErrInvalidGroup, group.Article.CanonicalURL)
	}
	for i := range group.Chunks {
		if group.Chunks[i].SourceURL != group.Article.CanonicalURL {
			return fmt.Errorf("%w: chunk %s belongs to %s", ErrInvalidGroup, group.Chunks[i].ID, group.Chunks[i].SourceURL)
		}
	}
	return nil
}
