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

package ingestion

import (
	"fmt"
	"maps"
	"slices"
	"strings"
	"time"

	"github.com/poiesic/gleaner/core"
)

// Summary is the outcome of a run.
type Summary struct {
	RunID        string
	Discovered   int
	Indexed      int
	Skipped      int
	Failed       int
	Unchanged    int
	NotAttempted int
	Validated    int // dry run only
	Chunks       int // chunks indexed, or validated in a dry run
	Failures     map[core.FailureReason]int
	FailedURLs   map[string]core.FailureReason
	Interrupted  bool
	Duration     time.Duration
}

func newSummary(runID string) *Summary {
	return &Summary{
		RunID:      runID,
		Failures:   make(map[core.FailureReason]int),
		FailedURLs: make(map[string]core.FailureReason),
	}
}

// record counts url as having reached the terminal stage.
func (s *Summary) record(url string, stage core.Stage, reason core.FailureReason) {
	switch stage {
	case core.StageIndexed:
		s.Indexed++
	case core.StageSkipped:
		s.Skipped++
	case core.StageUnchanged:
		s.Unchanged++
	case core.StageNotAttempted:
		s.NotAttempted++
	case core.StageValidated:
		s.Validated++
	case core.StageFailed:
		s.Failed++
		s.Failures[reason]++
		s.FailedURLs[url] = reason
	}
}

// Processed returns the number of URLs that reached a terminal stage.
func (s *Summary) Processed() int {
	return s.Indexed + s.Skipped + s.Failed + s.Unchanged + s.NotAttempted + s.Validated
}

func (s *Summary) String() string {
	var b strings.Builder
	status := "completed"
	if s.Interrupted {
		status = "interrupted"
	}
	fmt.Fprintf(&b, "Run %s %s in %s\n", s.RunID, status, s.Duration.Round(time.Millisecond))
	fmt.Fprintf(&b, "  discovered:    %d\n", s.Discovered)
	if s.Validated > 0 {
		fmt.Fprintf(&b, "  validated:     %d (%d chunks)\n", s.Validated, s.Chunks)
	} else {
		fmt.Fprintf(&b, "  indexed:       %d (%d chunks)\n", s.Indexed, s.Chunks)
	}
	fmt.Fprintf(&b, "  unchanged:     %d\n", s.Unchanged)
	fmt.Fprintf(&b, "  skipped:       %d\n", s.Skipped)
	fmt.Fprintf(&b, "  failed:        %d\n", s.Failed)
	for _, reason := range slices.Sorted(maps.Keys(s.Failures)) {
		fmt.Fprintf(&b, "    %-18s %d\n", string(reason)+":", s.Failures[reason])
	}
	fmt.Fprintf(&b, "  not attempted: %d\n", s.NotAttempted)
	return b.String()
}
