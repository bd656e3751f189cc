package notify

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nf-osi/synapse-jobs/internal/domain"
)

func TestOutcomeText(t *testing.T) {
	tests := []struct {
		name    string
		outcome domain.Outcome
		want    string
	}{
		{
			name:    "snapshot success",
			outcome: domain.Outcome{Job: domain.JobSnapshotter, Target: "syn100", Success: true, Version: 4},
			want:    ":white_check_mark: Weekly - Portal snapshot succeeded, updated to *syn100.4* just now.",
		},
		{
			name:    "snapshot failure",
			outcome: domain.Outcome{Job: domain.JobSnapshotter, Target: "syn200", Err: errors.New("boom")},
			want:    ":x: Weekly - Portal snapshot failed just now for *syn200* :worried:",
		},
		{
			name:    "snapshot dry run",
			outcome: domain.Outcome{Job: domain.JobSnapshotter, Target: "syn100", Success: true, DryRun: true},
			want:    ":white_check_mark: Weekly - Portal snapshot succeeded (dry run) for *syn100* just now.",
		},
		{
			name:    "promoter success",
			outcome: domain.Outcome{Job: domain.JobStatusPromoter, Target: "syn52677631", Success: true, Updated: 0},
			want:    ":white_check_mark: Weekly - Portal snapshot succeeded, 0 project(s) updated just now.",
		},
		{
			name:    "promoter dry run",
			outcome: domain.Outcome{Job: domain.JobStatusPromoter, Target: "syn52677631", Success: true, DryRun: true, Candidates: 3},
			want:    ":white_check_mark: Weekly - Portal snapshot succeeded (dry run), 3 candidate project(s) found, none updated just now.",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, OutcomeText("Weekly", "Portal snapshot", tt.outcome))
		})
	}
}

func TestSummaryText(t *testing.T) {
	ok := &domain.RunResult{Outcomes: []domain.Outcome{
		{Target: "syn100", Success: true, Version: 4},
		{Target: "syn300", Success: true, Version: 2},
	}}
	assert.Equal(t, ":white_check_mark: Daily - Views succeeded, updated *syn100.4*, *syn300.2* just now.", SummaryText("Daily", "Views", ok))

	failed := &domain.RunResult{Outcomes: []domain.Outcome{
		{Target: "syn100", Success: true, Version: 4},
		{Target: "syn200"},
	}}
	assert.Equal(t, ":x: Daily - Views failed just now for *syn200* :worried: (1 of 2 succeeded)", SummaryText("Daily", "Views", failed))

	promoted := &domain.RunResult{Job: domain.JobStatusPromoter, Outcomes: []domain.Outcome{
		{Job: domain.JobStatusPromoter, Target: "syn52677631", Success: true, Updated: 3, Candidates: 3},
	}}
	assert.Equal(t, ":white_check_mark: Weekly - Status succeeded, 3 project(s) updated just now.", SummaryText("Weekly", "Status", promoted))

	aborted := &domain.RunResult{Job: domain.JobStatusPromoter, Outcomes: []domain.Outcome{
		{Job: domain.JobStatusPromoter, Target: "syn52677631", Updated: 1, Err: errors.New("etag conflict")},
	}}
	assert.Equal(t, ":x: Weekly - Status failed just now for *syn52677631* :worried:", SummaryText("Weekly", "Status", aborted))
}

func TestSlack_Notify(t *testing.T) {
	var received payload
	var contentType string

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		contentType = r.Header.Get("Content-Type")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&received))
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	slack := NewSlack(server.URL, time.Second, slog.New(slog.NewTextHandler(io.Discard, nil)))

	require.NoError(t, slack.Notify(context.Background(), ":x: failed"))
	assert.Equal(t, "application/json", contentType)
	assert.Equal(t, ":x: failed", received.Text)
}

func TestSlack_NotifyErrors(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "invalid_token", http.StatusForbidden)
	}))
	defer server.Close()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	err := NewSlack(server.URL, time.Second, logger).Notify(context.Background(), "hi")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 403")

	err = NewSlack("http://127.0.0.1:1", 100*time.Millisecond, logger).Notify(context.Background(), "hi")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "post webhook")
}
