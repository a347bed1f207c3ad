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

package badger

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/dgraph-io/badger/v4"
	"github.com/poiesic/gleaner/core"
	"github.com/poiesic/gleaner/storage"
)

// IndexRepository implements storage.VectorIndex for BadgerDB.
// Similarity is the dot product of unit vectors, computed by a full scan.
type IndexRepository struct {
	backend *Backend
}

var _ storage.VectorIndex = (*IndexRepository)(nil)

// NewIndexRepository creates a new IndexRepository.
func NewIndexRepository(backend *Backend) *IndexRepository {
	return &IndexRepository{
		backend: backend,
	}
}

// Close is a no-op; the backend is owned by the caller.
func (r *IndexRepository) Close() error {
	return nil
}

// Upsert stores chunks keyed by chunk ID in a single transaction.
func (r *IndexRepository) Upsert(ctx context.Context, chunks ...core.EmbeddedChunk) error {
	if len(chunks) == 0 {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if r.backend.IsClosed() {
		return storage.ErrStorageClosed
	}

	return r.backend.WithTx(func(tx *badger.Txn) error {
		for i := range chunks {
			chunk := &chunks[i]
			if err := core.ValidateChunk(&chunk.Chunk); err != nil {
				return err
			}
			if err := tx.Set(makeChunkKey(chunk.ID), storage.MarshalChunk(chunk)); err != nil {
				return err
			}
			sourceKey := makeChunkSourceKey(chunk.SourceURL, chunk.Seq)
			if err := tx.Set(sourceKey, []byte(chunk.ID)); err != nil {
				return err
			}
		}
		return tx.Commit()
	}, true)
}

// Delete removes chunks and their source index entries. Missing IDs are ignored.
func (r *IndexRepository) Delete(ctx context.Context, ids ...string) error {
	if len(ids) == 0 {
		return nil
	}
	if r.backend.IsClosed() {
		return storage.ErrStorageClosed
	}

	return r.backend.WithTx(func(tx *badger.Txn) error {
		for _, id := range ids {
			key := makeChunkKey(id)
			chunk, err := readChunk(tx, key)
			if err != nil {
				return err
			}
			if chunk == nil {
				continue
			}
			if err := tx.Delete(key); err != nil {
				return err
			}
			if err := tx.Delete(makeChunkSourceKey(chunk.SourceURL, chunk.Seq)); err != nil {
				return err
			}
		}
		return tx.Commit()
	}, true)
}

// ChunkIDs returns the IDs of every stored chunk of sourceURL, in sequence order.
func (r *IndexRepository) ChunkIDs(ctx context.Context, sourceURL string) ([]string, error) {
	var ids []string
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = makePartialChunkSourceKey(sourceURL)
		iter := tx.NewIterator(opts)
		defer iter.Close()

		for iter.Rewind(); iter.Valid(); iter.Next() {
			err := iter.Item().Value(func(val []byte) error {
				ids = append(ids, string(val))
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	}, false)
	return ids, err
}

// Count returns the number of stored chunks.
func (r *IndexRepository) Count(ctx context.Context) (int, error) {
	count := 0
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(chunkPrefix)
		opts.PrefetchValues = false
		iter := tx.NewIterator(opts)
		defer iter.Close()

		for iter.Rewind(); iter.Valid(); iter.Next() {
			count++
		}
		return nil
	}, false)
	return count, err
}

// Sample returns up to n stored chunks in key order.
func (r *IndexRepository) Sample(ctx context.Context, n int) ([]core.Chunk, error) {
	if n <= 0 {
		return nil, nil
	}
	var chunks []core.Chunk
	err := r.scan(ctx, func(chunk *core.EmbeddedChunk) bool {
		chunks = append(chunks, chunk.Chunk)
		return len(chunks) < n
	})
	return chunks, err
}

// Query returns up to k chunks most similar to vector whose metadata matches filter.
func (r *IndexRepository) Query(ctx context.Context, vector []float32, k int, filter map[string]string) ([]core.SearchHit, error) {
	if k <= 0 || len(vector) == 0 {
		return nil, storage.ErrInvalidQuery
	}

	var (
		hits        []core.SearchHit
		mismatchErr error
	)
	err := r.scan(ctx, func(chunk *core.EmbeddedChunk) bool {
		if len(chunk.Vector) == 0 || !matchesFilter(&chunk.Chunk, filter) {
			return true
		}
		if len(chunk.Vector) != len(vector) {
			mismatchErr = fmt.Errorf("%w: query has %d dimensions, chunk %s has %d",
				storage.ErrDimensionMismatch, len(vector), chunk.ID, len(chunk.Vector))
			return false
		}
		hits = append(hits, core.SearchHit{
			Chunk: chunk.Chunk,
			Score: dotProduct(vector, chunk.Vector),
		})
		return true
	})
	if err != nil {
		return nil, err
	}
	if mismatchErr != nil {
		return nil, mismatchErr
	}

	// Sort by similarity descending
	slices.SortStableFunc(hits, func(a, b core.SearchHit) int {
		if a.Score > b.Score {
			return -1
		}
		if a.Score < b.Score {
			return 1
		}
		return 0
	})

	if len(hits) > k {
		hits = hits[:k]
	}
	return hits, nil
}

// scan visits stored chunks in key order until fn returns false.
func (r *IndexRepository) scan(ctx context.Context, fn func(*core.EmbeddedChunk) bool) error {
	if r.backend.IsClosed() {
		return storage.ErrStorageClosed
	}
	return r.backend.WithTx(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(chunkPrefix)
		iter := tx.NewIterator(opts)
		defer iter.Close()

		for iter.Rewind(); iter.Valid(); iter.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}
			var chunk *core.EmbeddedChunk
			err := iter.Item().Value(func(val []byte) error {
				var err error
				chunk, err = storage.UnmarshalChunk(val)
				return err
			})
			if err != nil {
				return err
			}
			if !fn(chunk) {
				return nil
			}
		}
		return nil
	}, false)
}

func readChunk(tx *badger.Txn, key []byte) (*core.EmbeddedChunk, error) {
	item, err := tx.Get(key)
	if err != nil {
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil, nil
		}
		return nil, err
	}
	var chunk *core.EmbeddedChunk
	err = item.Value(func(val []byte) error {
		var err error
		chunk, err = storage.UnmarshalChunk(val)
		return err
	})
	return chunk, err
}

// matchesFilter reports whether every filter key equals the chunk's metadata value.
// Unknown keys never match.
func matchesFilter(chunk *core.Chunk, filter map[string]string) bool {
	if len(filter) == 0 {
		return true
	}
	meta := chunk.Metadata()
	for k, want := range filter {
		got, ok := meta[k]
		if !ok || got != want {
			return false
		}
	}
	return true
}
