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

// Stage is the position of an article in the ingest state machine:
// discovered -> fetched -> parsed -> chunked -> embedded -> indexed.
// Failed, Skipped, Unchanged and NotAttempted are terminal alternatives.
// The intermediate stages are reported in debug logs and never reach a Summary.
type Stage string

const (
	StageDiscovered   Stage = "discovered"
	StageFetched      Stage = "fetched"
	StageParsed       Stage = "parsed"
	StageChunked      Stage = "chunked"
	StageEmbedded     Stage = "embedded"
	StageIndexed      Stage = "indexed"
	StageFailed       Stage = "failed"
	StageSkipped      Stage = "skipped"       // not an article
	StageUnchanged    Stage = "unchanged"     // already in the ledger
	StageNotAttempted Stage = "not_attempted" // run interrupted first
	StageValidated    Stage = "validated"     // dry run stopped after chunking
)

// Terminal reports whether no further transition is possible from s.
func (s Stage) Terminal() bool {
	switch s {
	case StageIndexed, StageFailed, StageSkipped, StageUnchanged, StageNotAttempted, StageValidated:
		return true
	}
	return false
}

// FailureReason explains why an article ended in StageFailed.
type FailureReason string

const (
	ReasonFetchPermanent   FailureReason = "fetch_permanent"
	ReasonFetchTransient   FailureReason = "fetch_transient"
	ReasonEmbedRateLimited FailureReason = "embed_rate_limited"
	ReasonEmbedFatal       FailureReason = "embed_fatal"
	ReasonIndexWrite       FailureReason = "index_write"
	ReasonInterrupted      FailureReason = "interrupted"
	ReasonInvalid          FailureReason = "invalid"
)
