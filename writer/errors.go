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

package writer

import "errors"

var (
	// ErrIndexWrite wraps a failure to upsert a group's chunks. The ledger is not touched.
	ErrIndexWrite = errors.New("index write failed")

	// ErrLedgerWrite wraps a failure to append to or flush the ledger.
	ErrLedgerWrite = errors.New("ledger write failed")

	// ErrWriterClosed is returned by Write after Close.
	ErrWriterClosed = errors.New("writer is closed")

	// ErrInvalidGroup is returned for a group without an article or chunks,
	// or whose chunks belong to another source.
	ErrInvalidGroup = errors.New("invalid chunk group")
)
