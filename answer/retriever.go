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
	"github.com/poiesic/gleaner/core"
	"github.com/poiesic/gleaner/storage"
)

const (
	DefaultChunks = 5
	MinChunks     = 1
	MaxChunks     = 20
)

// Retriever finds the chunks most similar to a question.
type Retriever struct {
	index    storage.VectorIndex
	embedder ai.Embedder
	logger   *slog.Logger
}

func NewRetriever(index storage.VectorIndex, embedder ai.Embedder, logger *slog.Logger) *Retriever {
	if logger == nil {
		logger = slog.Default()
	}
	return &Retriever{index: index, embedder: embedder, logger: logger}
}

// Retrieve returns up to n chunks for query, best first. n is clamped to [1, 20].
// Only chunks whose metadata matches every key of filter are returned.
func (r *Retriever) Retrieve(ctx context.Context, query string, n int, filter map[string]string) ([]core.SearchHit, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, ErrEmptyQuery
	}
	n = ClampChunks(n)

	count, err := r.index.Count(ctx)
	if err != nil {
		return nil, err
	}
	if count == 0 {
		return nil, nil
	}

	vector, err := r.embedder.EmbedText(ctx, query)
	if err != nil {
		r.logger.Error("error generating embedding for query", "err", err)
		return nil, err
	}
	hits, err := r.index.Query(ctx, vector, min(n, count), filter)
	if err != nil {
		r.logger.Error("error querying index", "err", err)
		return nil, err
	}
	return hits, nil
}

// ClampChunks bounds a requested chunk count to [MinChunks, MaxChunks].
func ClampChunks(n int) int {
	return max(MinChunks, min(MaxChunks, n))
}
