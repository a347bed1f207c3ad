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

package core

//go:generate go run ../cmd/musgen

import (
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/go-crypt/x/blake2b"
)

// ID is a unique identifier derived from content hashing.
type ID uint64

// IDFromContent generates a deterministic ID from text content using BLAKE2b hashing.
// This ensures that identical content produces identical IDs.
func IDFromContent(text string) ID {
	h, _ := blake2b.New(8, nil) // 8 bytes = 64 bits
	h.Write([]byte(text))
	sum := h.Sum(nil)
	return ID(binary.LittleEndian.Uint64(sum))
}

// ChunkID derives the stable identifier of the seq-th chunk of a source document.
// It is a pure function of its arguments so re-ingesting an article overwrites
// its previous chunks instead of duplicating them.
func ChunkID(sourceURL string, seq int) string {
	return fmt.Sprintf("%016x_%d", uint64(IDFromContent(sourceURL)), seq)
}

// ContentHash returns the hex BLAKE2b-64 digest of an article body.
func ContentHash(body string) string {
	h, _ := blake2b.New(8, nil)
	h.Write([]byte(body))
	return hex.EncodeToString(h.Sum(nil))
}

// SourceURL is a document location discovered from a sitemap.
type SourceURL struct {
	URL   string
	Order int // Position in discovery order
}

// FetchClass classifies the outcome of fetching a SourceURL.
type FetchClass int

const (
	// FetchOK means the content was retrieved with a 2xx status.
	FetchOK FetchClass = iota + 1
	// FetchPermanent covers 4xx responses and malformed URLs. Never retried.
	FetchPermanent
	// FetchTransient covers 5xx, 429, timeouts and connection errors that exhausted their retries.
	FetchTransient
	// FetchCanceled means the fetch was abandoned because the run was interrupted.
	FetchCanceled
)

func (c FetchClass) String() string {
	switch c {
	case FetchOK:
		return "ok"
	case FetchPermanent:
		return "permanent"
	case FetchTransient:
		return "transient"
	case FetchCanceled:
		return "canceled"
	default:
		return "unknown"
	}
}

// FetchResult is the outcome of fetching one SourceURL. It is never persisted.
type FetchResult struct {
	Source   SourceURL
	Content  []byte // nil unless Class is FetchOK
	Status   int    // HTTP status, 0 when no response was received
	Class    FetchClass
	Err      error
	Attempts int
}

// OK reports whether the fetch produced usable content.
func (r *FetchResult) OK() bool {
	return r.Class == FetchOK && r.Content != nil
}

// Article is a parsed document. Only its chunks are persisted.
type Article struct {
	URL          string // URL the article was fetched from
	CanonicalURL string // Unique key of the article
	Title        string
	Author       string
	Section      string
	Published    string // YYYY-MM-DD when known
	Body         string
	ContentHash  string
}

// Chunk is a contiguous slice of an article body.
type Chunk struct {
	ID        string
	SourceURL string // Canonical URL of the owning article
	Seq       int
	Start     int // Rune offset of the first character in the body
	End       int // Rune offset one past the last character
	Text      string
	Title     string
	Author    string
	Section   string
	Published string
}

// Metadata returns the filterable metadata inherited from the owning article.
func (c *Chunk) Metadata() map[string]string {
	return map[string]string{
		"title":      c.Title,
		"author":     c.Author,
		"section":    c.Section,
		"published":  c.Published,
		"source_url": c.SourceURL,
	}
}

// EmbeddedChunk pairs a chunk with its embedding vector.
type EmbeddedChunk struct {
	Chunk
	Vector []float32
}

// SearchHit is a chunk returned by a similarity query.
type SearchHit struct {
	Chunk Chunk
	Score float32
}

// LedgerEntry records that every chunk of an article was durably indexed.
type LedgerEntry struct {
	URL         string
	ContentHash string
	Chunks      int
	RunID       string
	IndexedAt   time.Time
}
