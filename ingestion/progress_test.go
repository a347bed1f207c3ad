package ingestion

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/poiesic/gleaner/core"
)

func TestProgressTracker_Reports(t *testing.T) {
	var buf bytes.Buffer
	tracker := NewProgressTracker(&buf, 3, 2)
	tracker.Start()

	tracker.Advance(core.StageIndexed)
	assert.Empty(t, buf.String(), "first report only after two URLs")

	tracker.Advance(core.StageFailed)
	assert.Contains(t, buf.String(), "[2/3]")
	assert.Contains(t, buf.String(), "indexed=1 failed=1 skipped=0")

	tracker.Advance(core.StageSkipped)
	tracker.Finish()
	assert.Contains(t, buf.String(), "[3/3] 100.0%")
	assert.Contains(t, buf.String(), "skipped=1")

	counts := tracker.Counts()
	assert.Equal(t, 1, counts[core.StageIndexed])
	assert.Equal(t, 1, counts[core.StageFailed])
	assert.Equal(t, 1, counts[core.StageSkipped])
}

func TestProgressTracker_NotStarted(t *testing.T) {
	var buf bytes.Buffer
	tracker := NewProgressTracker(&buf, 2, 1)

	tracker.Advance(core.StageIndexed)
	tracker.Finish()

	assert.Empty(t, buf.String())
	assert.Empty(t, tracker.Counts())
}

func TestProgressTracker_NilWriter(t *testing.T) {
	tracker := NewProgressTracker(nil, 2, 0)
	tracker.Start()
	tracker.Advance(core.StageValidated)
	tracker.Advance(core.StageValidated)
	tracker.Finish()

	assert.Equal(t, 2, tracker.Counts()[core.StageValidated])
}

func TestProgressTracker_ClampsToTotal(t *testing.T) {
	var buf bytes.Buffer
	tracker := NewProgressTracker(&buf, 1, 1)
	tracker.Start()
	tracker.Advance(core.StageIndexed)
	tracker.Advance(core.StageIndexed)
	tracker.Finish()

	assert.NotContains(t, buf.String(), "[2/1]")
}
