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

import "errors"

// Domain validation errors
var (
	// ErrInvalidArticle indicates an Article failed validation.
	ErrInvalidArticle = errors.New("invalid article")

	// ErrInvalidChunk indicates a Chunk failed validation.
	ErrInvalidChunk = errors.New("invalid chunk")

	// ErrEmptyBody indicates the article body is empty.
	ErrEmptyBody = errors.New("body cannot be empty")

	// ErrMissingCanonicalURL indicates the article has no canonical URL.
	ErrMissingCanonicalURL = errors.New("canonical URL is required")

	// ErrChunkIDMismatch indicates a chunk id does not derive from its source URL and sequence.
	ErrChunkIDMismatch = errors.New("chunk id does not match source URL and sequence")

	// ErrInvalidLedgerEntry indicates a LedgerEntry failed validation.
	ErrInvalidLedgerEntry = errors.New("invalid ledger entry")
)
