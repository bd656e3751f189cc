// Package report delivers job results to the chat webhook and the optional run
// recorders. Delivery is best-effort: failures are logged, never returned.
package report

import (
	"context"
	"log/slog"

	"github.com/nf-osi/synapse-jobs/internal/domain"
	"github.com/nf-osi/synapse-jobs/internal/notify"
)

// Notification modes, also accepted as the report.mode config value
const (
	// ModePerTarget sends one notification per outcome
	ModePerTarget = "per-target"
	// ModeSummary sends one notification per run
	ModeSummary = "summary"
)

// Notifier sends a chat message
type Notifier interface {
	Notify(ctx context.Context, text string) error
}

// Recorder persists or publishes one outcome of a run
type Recorder interface {
	Record(ctx context.Context, run *domain.RunResult, outcome domain.Outcome) error
}

// Config holds reporter configuration
type Config struct {
	Logger    *slog.Logger
	Notifier  Notifier // nil disables notifications
	Recorders []Recorder
	Schedule  string
	JobLabel  string
	Mode      string
}

// Reporter fans a run result out to its notifier and recorders
type Reporter struct {
	logger    *slog.Logger
	notifier  Notifier
	recorders []Recorder
	schedule  string
	jobLabel  string
	mode      string
}

// New creates a Reporter
func New(cfg *Config) *Reporter {
	mode := cfg.Mode
	if mode == "" {
		mode = ModePerTarget
	}
	return &Reporter{
		logger:    cfg.Logger,
		notifier:  cfg.Notifier,
		recorders: cfg.Recorders,
		schedule:  cfg.Schedule,
		jobLabel:  cfg.JobLabel,
		mode:      mode,
	}
}

// Report records every outcome and sends the notifications for the run
func (r *Reporter) Report(ctx context.Context, result *domain.RunResult) {
	logger := r.logger.With(slog.String("run_id", result.RunID), slog.String("job", result.Job))

	for _, outcome := range result.Outcomes {
		for _, rec := range r.recorders {
			if err := rec.Record(ctx, result, outcome); err != nil {
				logger.Warn("Failed to record outcome",
					slog.String("target", outcome.Target),
					slog.Any("error", err),
				)
			}
		}
	}

	if r.notifier == nil {
		logger.Debug("No webhook configured, skipping notifications")
		return
	}

	if r.mode == ModeSummary {
		r.send(ctx, logger, "", notify.SummaryText(r.schedule, r.jobLabel, result))
		return
	}

	for _, outcome := range result.Outcomes {
		r.send(ctx, logger, outcome.Target, notify.OutcomeText(r.schedule, r.jobLabel, outcome))
	}
}

func (r *Reporter) send(ctx context.Context, logger *slog.Logger, target, text string) {
	if err := r.notifier.Notify(ctx, text); err != nil {
		logger.Warn("Failed to deliver notification",
			slog.String("target", target),
			slog.Any("error", err),
		)
	}
}
