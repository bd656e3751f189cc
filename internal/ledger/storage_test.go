package ledger

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/nf-osi/synapse-jobs/internal/domain"
)

func TestNewRunRow(t *testing.T) {
	started := time.Date(2026, 10, 16, 9, 0, 0, 0, time.UTC)
	run := &domain.RunResult{
		RunID:      "3f1c2a9e-8d5b-4c1e-9a55-0f1e2d3c4b5a",
		Job:        domain.JobSnapshotter,
		StartedAt:  started,
		FinishedAt: started.Add(time.Minute),
	}

	ok := newRunRow(run, domain.Outcome{Job: domain.JobSnapshotter, Target: "syn100", Success: true, Version: 5})
	assert.Equal(t, run.RunID, ok.RunID)
	assert.True(t, ok.Success)
	assert.True(t, ok.Version.Valid)
	assert.Equal(t, int64(5), ok.Version.Int64)
	assert.False(t, ok.ErrorMessage.Valid)
	assert.Equal(t, started.Add(time.Minute), ok.FinishedAt)

	failed := newRunRow(run, domain.Outcome{Job: domain.JobSnapshotter, Target: "syn200", Err: errors.New("locked")})
	assert.False(t, failed.Success)
	assert.False(t, failed.Version.Valid)
	assert.True(t, failed.ErrorMessage.Valid)
	assert.Equal(t, "locked", failed.ErrorMessage.String)
}
