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
	"fmt"
	"log/slog"
	"sync"

	"github.com/dgraph-io/badger/v4"
	"github.com/poiesic/gleaner/core"
	"github.com/poiesic/gleaner/storage"
)

// LedgerRepository implements storage.Ledger as an append-only log in BadgerDB.
//
// Every Record writes a new key under ledgerPrefix ordered by a badger
// sequence. On open the log is replayed into memory; when a URL appears
// more than once the latest append wins.
type LedgerRepository struct {
	backend *Backend
	seq     *badger.Sequence
	logger  *slog.Logger

	mu      sync.RWMutex
	entries map[string]core.LedgerEntry
	order   []string
}

var _ storage.Ledger = (*LedgerRepository)(nil)

// NewLedgerRepository opens the ledger and replays its log.
func NewLedgerRepository(backend *Backend) (*LedgerRepository, error) {
	seq, err := backend.GetSequence(ledgerSeq)
	if err != nil {
		return nil, err
	}

	r := &LedgerRepository{
		backend: backend,
		seq:     seq,
		logger:  backend.logger.With("component", "ledger"),
		entries: make(map[string]core.LedgerEntry),
	}
	if err := r.replay(); err != nil {
		seq.Release()
		return nil, err
	}
	return r, nil
}

func (r *LedgerRepository) replay() error {
	appends := 0
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(ledgerPrefix)
		iter := tx.NewIterator(opts)
		defer iter.Close()

		for iter.Rewind(); iter.Valid(); iter.Next() {
			var entry *core.LedgerEntry
			err := iter.Item().Value(func(val []byte) error {
				var err error
				entry, err = storage.UnmarshalLedgerEntry(val)
				return err
			})
			if err != nil {
				return fmt.Errorf("ledger key %x: %w", iter.Item().Key(), err)
			}
			r.apply(*entry)
			appends++
		}
		return nil
	}, false)
	if err != nil {
		return err
	}
	r.logger.Debug("ledger replayed", "appends", appends, "urls", len(r.entries))
	return nil
}

// apply must be called with mu held or before the repository is shared.
func (r *LedgerRepository) apply(entry core.LedgerEntry) {
	if _, ok := r.entries[entry.URL]; !ok {
		r.order = append(r.order, entry.URL)
	}
	r.entries[entry.URL] = entry
}

// Has reports whether url has a ledger entry.
func (r *LedgerRepository) Has(url string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.entries[url]
	return ok
}

// Get returns the latest entry for url.
func (r *LedgerRepository) Get(url string) (core.LedgerEntry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	entry, ok := r.entries[url]
	if !ok {
		return core.LedgerEntry{}, storage.ErrNotFound
	}
	return entry, nil
}

// Record appends entry to the log.
// An entry matching the latest (URL, content hash) pair is not appended again.
func (r *LedgerRepository) Record(ctx context.Context, entry core.LedgerEntry) error {
	if err := core.ValidateLedgerEntry(&entry); err != nil {
		return err
	}
	if r.backend.IsClosed() {
		return storage.ErrStorageClosed
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if prev, ok := r.entries[entry.URL]; ok && prev.ContentHash == entry.ContentHash {
		return nil
	}

	next, err := r.seq.Next()
	if err != nil {
		return err
	}
	err = r.backend.WithTx(func(tx *badger.Txn) error {
		if err := tx.Set(makeLedgerKey(next), storage.MarshalLedgerEntry(&entry)); err != nil {
			return err
		}
		return tx.Commit()
	}, true)
	if err != nil {
		return err
	}

	r.apply(entry)
	return nil
}

// Entries returns the latest entry of every URL in first-recorded order.
func (r *LedgerRepository) Entries() []core.LedgerEntry {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]core.LedgerEntry, 0, len(r.order))
	for _, url := range r.order {
		out = append(out, r.entries[url])
	}
	return out
}

// Len returns the number of distinct recorded URLs.
func (r *LedgerRepository) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries)
}

// Flush syncs the log to disk.
func (r *LedgerRepository) Flush() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.backend.IsClosed() {
		return storage.ErrStorageClosed
	}
	return r.backend.Sync()
}

// Close flushes the log and releases the sequence.
func (r *LedgerRepository) Close() error {
	if err := r.Flush(); err != nil {
		return err
	}
	return r.seq.Release()
}
