// Package snapshot creates labeled snapshot versions of tables and views.
package snapshot

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/nf-osi/synapse-jobs/internal/domain"
)

// LabelLayout formats the default snapshot label
const LabelLayout = "2006-01-02 15:04:05.000000"

// Creator creates a snapshot version of a table or view
type Creator interface {
	CreateSnapshot(ctx context.Context, id, comment, label string) (int64, error)
}

// Config holds snapshotter configuration
type Config struct {
	Logger  *slog.Logger
	Creator Creator
	Targets []string
	Comment string
	Label   string // defaults to the run start time
	DryRun  bool
	Now     func() time.Time
}

// Snapshotter snapshots every configured target in order
type Snapshotter struct {
	logger  *slog.Logger
	creator Creator
	targets []string
	comment string
	label   string
	dryRun  bool
	now     func() time.Time
}

// New creates a Snapshotter
func New(cfg *Config) *Snapshotter {
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	return &Snapshotter{
		logger:  cfg.Logger,
		creator: cfg.Creator,
		targets: cfg.Targets,
		comment: cfg.Comment,
		label:   cfg.Label,
		dryRun:  cfg.DryRun,
		now:     now,
	}
}

// Run requests one snapshot per target. A failing target is recorded and the
// remaining targets are still attempted.
func (s *Snapshotter) Run(ctx context.Context) *domain.RunResult {
	result := &domain.RunResult{
		RunID:     uuid.NewString(),
		Job:       domain.JobSnapshotter,
		StartedAt: s.now(),
	}
	logger := s.logger.With(slog.String("run_id", result.RunID), slog.Bool("dry_run", s.dryRun))

	label := s.label
	if label == "" {
		label = result.StartedAt.Format(LabelLayout)
	}

	logger.Info("Snapshotting targets",
		slog.Any("targets", s.targets),
		slog.String("label", label),
		slog.String("comment", s.comment),
	)

	for _, target := range s.targets {
		outcome := domain.Outcome{
			Job:    domain.JobSnapshotter,
			Target: target,
			DryRun: s.dryRun,
		}

		if s.dryRun {
			logger.Info("Snapshot not requested", slog.String("target", target))
			outcome.Success = true
			result.Outcomes = append(result.Outcomes, outcome)
			continue
		}

		version, err := s.creator.CreateSnapshot(ctx, target, s.comment, label)
		if err != nil {
			logger.Error("Snapshot failed",
				slog.String("target", target),
				slog.Any("error", err),
			)
			outcome.Err = err
			result.Outcomes = append(result.Outcomes, outcome)
			continue
		}

		logger.Info("Snapshot succeeded",
			slog.String("target", target),
			slog.Int64("version", version),
		)
		outcome.Success = true
		outcome.Version = version
		result.Outcomes = append(result.Outcomes, outcome)
	}

	result.FinishedAt = s.now()
	return result
}
