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

package batcher

import (
	"errors"
	"fmt"

	"github.com/poiesic/gleaner/retry"
)

var (
	// ErrEmbedderRequired is returned by New when no embedder is supplied.
	ErrEmbedderRequired = errors.New("embedder is required")

	// ErrInvalidBatchSize is returned when the batch size is not positive.
	ErrInvalidBatchSize = errors.New("batch size must be positive")
)

// BatchError reports a batch that could not be embedded after all retries.
type BatchError struct {
	Index    int // Zero-based batch number within the Embed call
	Kind     retry.Kind
	Attempts int
	Err      error
}

func (e *BatchError) Error() string {
	return fmt.Sprintf("embedding batch %d failed (%s, %d attempts): %v", e.Index, e.Kind, e.Attempts, e.Err)
}

func (e *BatchError) Unwrap() error {
	return e.Err
}
