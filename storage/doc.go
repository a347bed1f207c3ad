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

// Package storage provides the storage abstraction layer for gleaner.
//
// Two repositories back an ingest run:
//
//   - VectorIndex: embedded chunks keyed by deterministic chunk ID, queried
//     by cosine similarity with optional exact-match metadata filters
//   - Ledger: append-only log of articles whose chunks were all indexed,
//     consulted at startup so a rerun skips finished work
//
// Constructors in implementation packages return these interfaces:
//
//	index, ledger, err := badger.NewRepositories(backend)
//
// Use in tests with in-memory storage:
//
//	backend, index, ledger, err := badger.NewMemoryRepositories()
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer backend.Close()
//
// # Thread Safety
//
// All repository implementations must be thread-safe and support
// concurrent access from multiple goroutines.
package storage
