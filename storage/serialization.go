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

package storage

import (
	"errors"
	"fmt"

	"github.com/mus-format/mus-go"
	"github.com/poiesic/gleaner/core"
)

// MarshalChunk serializes an embedded chunk to bytes.
func MarshalChunk(chunk *core.EmbeddedChunk) []byte {
	buf := make([]byte, core.EmbeddedChunkMUS.Size(*chunk))
	core.EmbeddedChunkMUS.Marshal(*chunk, buf)
	return buf
}

// UnmarshalChunk deserializes an embedded chunk from bytes.
func UnmarshalChunk(data []byte) (*core.EmbeddedChunk, error) {
	chunk, _, err := core.EmbeddedChunkMUS.Unmarshal(data)
	if err != nil {
		return nil, decodeError("chunk", err)
	}
	if len(chunk.Vector) == 0 {
		chunk.Vector = nil
	}
	return &chunk, nil
}

// MarshalLedgerEntry serializes a LedgerEntry to bytes.
// IndexedAt is stored with microsecond precision and decoded as UTC.
func MarshalLedgerEntry(entry *core.LedgerEntry) []byte {
	buf := make([]byte, core.LedgerEntryMUS.Size(*entry))
	core.LedgerEntryMUS.Marshal(*entry, buf)
	return buf
}

// UnmarshalLedgerEntry deserializes a LedgerEntry from bytes.
func UnmarshalLedgerEntry(data []byte) (*core.LedgerEntry, error) {
	entry, _, err := core.LedgerEntryMUS.Unmarshal(data)
	if err != nil {
		return nil, decodeError("ledger entry", err)
	}
	return &entry, nil
}

func decodeError(record string, err error) error {
	if errors.Is(err, mus.ErrTooSmallByteSlice) {
		return fmt.Errorf("%w: %s: %w", ErrTruncatedData, record, err)
	}
	return fmt.Errorf("%w: %s: %w", ErrSerializationFailed, record, err)
}
