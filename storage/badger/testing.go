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

import "github.com/poiesic/gleaner/storage"

// NewRepositories creates the vector index and ledger on top of backend.
// Caller must close the ledger before the backend.
func NewRepositories(backend *Backend) (storage.VectorIndex, storage.Ledger, error) {
	ledger, err := NewLedgerRepository(backend)
	if err != nil {
		return nil, nil, err
	}
	return NewIndexRepository(backend), ledger, nil
}

// NewMemoryRepositories creates in-memory index and ledger repositories for testing.
// Returns index, ledger, backend, and error.
// Caller must close both repos and backend when done.
func NewMemoryRepositories() (storage.VectorIndex, storage.Ledger, *Backend, error) {
	backend, err := OpenBackend("", true)
	if err != nil {
		return nil, nil, nil, err
	}

	index, ledger, err := NewRepositories(backend)
	if err != nil {
		backend.Close()
		return nil, nil, nil, err
	}

	return index, ledger, backend, nil
}
