package storage

import (
	"context"

	"github.com/poiesic/gleaner/core"
)

// VectorIndex stores embedded chunks and answers similarity queries.
// Implementations must be thread-safe and support concurrent access.
type VectorIndex interface {
	// Upsert inserts or replaces chunks keyed by chunk ID.
	// Upserting the same chunk twice leaves a single copy.
	Upsert(ctx context.Context, chunks ...core.EmbeddedChunk) error

	// Query returns up to k chunks most similar to vector, ordered by score (highest first).
	// Only chunks whose metadata matches every key in filter are considered.
	Query(ctx context.Context, vector []float32, k int, filter map[string]string) ([]core.SearchHit, error)

	// Delete removes chunks by ID. Missing IDs are ignored.
	Delete(ctx context.Context, ids ...string) error

	// ChunkIDs returns the IDs of every stored chunk of a source document, in sequence order.
	ChunkIDs(ctx context.Context, sourceURL string) ([]string, error)

	// Count returns the number of stored chunks.
	Count(ctx context.Context) (int, error)

	// Sample returns up to n stored chunks.
	Sample(ctx context.Context, n int) ([]core.Chunk, error)

	// Close releases resources held by the index.
	Close() error
}

// Ledger is the append-only record of articles whose chunks were all durably indexed.
// Implementations must be thread-safe.
type Ledger interface {
	// Has reports whether url has a ledger entry.
	Has(url string) bool

	// Get returns the latest entry for url.
	// Returns ErrNotFound if url was never recorded.
	Get(url string) (core.LedgerEntry, error)

	// Record appends an entry. Appending an entry whose URL and content hash
	// match the latest entry for that URL is a no-op.
	Record(ctx context.Context, entry core.LedgerEntry) error

	// Entries returns the latest entry of every recorded URL, in first-recorded order.
	Entries() []core.LedgerEntry

	// Len returns the number of distinct recorded URLs.
	Len() int

	// Flush makes every recorded entry durable.
	Flush() error

	// Close flushes and releases resources.
	Close() error
}
