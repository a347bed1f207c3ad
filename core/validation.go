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

import (
	"fmt"
	"strings"
)

// ValidateArticle validates an Article according to domain rules.
//
// Validation rules:
//   - Body must not be empty or whitespace
//   - CanonicalURL must be present
func ValidateArticle(article *Article) error {
	if article == nil {
		return fmt.Errorf("%w: article is nil", ErrInvalidArticle)
	}

	if strings.TrimSpace(article.Body) == "" {
		return fmt.Errorf("%w: %w", ErrInvalidArticle, ErrEmptyBody)
	}

	if article.CanonicalURL == "" {
		return fmt.Errorf("%w: %w", ErrInvalidArticle, ErrMissingCanonicalURL)
	}

	return nil
}

// ValidateChunk checks that a chunk carries text and that its id is derived
// from its source URL and sequence index.
func ValidateChunk(chunk *Chunk) error {
	if chunk == nil {
		return fmt.Errorf("%w: chunk is nil", ErrInvalidChunk)
	}

	if chunk.Text == "" {
		return fmt.Errorf("%w: %w", ErrInvalidChunk, ErrEmptyBody)
	}

	if chunk.ID != ChunkID(chunk.SourceURL, chunk.Seq) {
		return fmt.Errorf("%w: %w: %s", ErrInvalidChunk, ErrChunkIDMismatch, chunk.ID)
	}

	return nil
}

// ValidateLedgerEntry validates a LedgerEntry before it is appended.
func ValidateLedgerEntry(entry *LedgerEntry) error {
	if entry == nil {
		return fmt.Errorf("%w: entry is nil", ErrInvalidLedgerEntry)
	}
	if entry.URL == "" {
		return fmt.Errorf("%w: %w", ErrInvalidLedgerEntry, ErrMissingCanonicalURL)
	}
	if entry.Chunks < 1 {
		return fmt.Errorf("%w: chunk count %d", ErrInvalidLedgerEntry, entry.Chunks)
	}
	return nil
}
