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
	"io"
	"sync"
	"time"

	"github.com/poiesic/gleaner/core"
)

// ProgressTracker prints a one-line running tally of processed URLs.
// A tracker with a nil writer is silent.
type ProgressTracker struct {
	writer       io.Writer
	total        int
	every        int
	processed    int
	lastReported int
	counts       map[core.Stage]int
	startTime    time.Time
	started      bool
	mu           sync.Mutex
}

// NewProgressTracker creates a tracker for total URLs that reports after every
// "every" processed URLs.
func NewProgressTracker(writer io.Writer, total, every int) *ProgressTracker {
	if every < 1 {
		every = 1
	}
	return &ProgressTracker{
		writer: writer,
		total:  total,
		every:  every,
		counts: make(map[core.Stage]int),
	}
}

func (p *ProgressTracker) Start() {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.startTime = time.Now()
	p.started = true
	p.processed = 0
	p.lastReported = 0
	clear(p.counts)
}

// Advance records one URL reaching stage.
func (p *ProgressTracker) Advance(stage core.Stage) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.started {
		return
	}
	p.processed = min(p.processed+1, p.total)
	p.counts[stage]++

	if p.processed-p.lastReported >= p.every {
		p.report()
		p.lastReported = p.processed
	}
}

// Finish prints the final tally.
func (p *ProgressTracker) Finish() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.started || p.writer == nil {
		return
	}
	p.report()
	fmt.Fprintln(p.writer)
}

// Counts returns how many URLs reached each stage so far.
func (p *ProgressTracker) Counts() map[core.Stage]int {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make(map[core.Stage]int, len(p.counts))
	for k, v := range p.counts {
		out[k] = v
	}
	return out
}

func (p *ProgressTracker) report() {
	if p.writer == nil {
		return
	}
	elapsed := time.Since(p.startTime)
	rate := float64(p.processed) / elapsed.Seconds()

	percentage := 0.0
	if p.total > 0 {
		percentage = float64(p.processed) / float64(p.total) * 100.0
	}

	fmt.Fprintf(p.writer, "\r[%d/%d] %.1f%% indexed=%d failed=%d skipped=%d (%.1f urls/s)",
		p.processed, p.total, percentage,
		p.counts[core.StageIndexed]+p.counts[core.StageValidated],
		p.counts[core.StageFailed], p.counts[core.StageSkipped], rate)
}
