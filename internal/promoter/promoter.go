// Package promoter moves projects from "Data Pending" to "Under Embargo" once they
// have received their first qualifying file.
package promoter

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/nf-osi/synapse-jobs/internal/domain"
	"github.com/nf-osi/synapse-jobs/internal/synapse"
)

// Platform is the subset of the Synapse client the promoter needs
type Platform interface {
	Query(ctx context.Context, tableID, sql string) (*synapse.RowSet, error)
	GetProject(ctx context.Context, id string) (*domain.Project, error)
	UpdateProject(ctx context.Context, project *domain.Project) error
}

// Config holds promoter configuration
type Config struct {
	Logger           *slog.Logger
	Platform         Platform
	ProjectView      string
	FileView         string
	StatusField      string
	ExcludedCreators []string
	DryRun           bool
	// OverridePath, when set, replaces the live queries with a CSV of candidates
	OverridePath string
}

// Promoter runs the status transition procedure
type Promoter struct {
	logger           *slog.Logger
	platform         Platform
	projectView      string
	fileView         string
	statusField      string
	excludedCreators []string
	dryRun           bool
	overridePath     string
}

// New creates a Promoter
func New(cfg *Config) *Promoter {
	return &Promoter{
		logger:           cfg.Logger,
		platform:         cfg.Platform,
		projectView:      cfg.ProjectView,
		fileView:         cfg.FileView,
		statusField:      cfg.StatusField,
		excludedCreators: cfg.ExcludedCreators,
		dryRun:           cfg.DryRun,
		overridePath:     cfg.OverridePath,
	}
}

// Run selects candidates and promotes each of them. A fault aborts the remaining
// promotions; the returned result carries the cause and the number already stored.
func (p *Promoter) Run(ctx context.Context) *domain.RunResult {
	result := &domain.RunResult{
		RunID:     uuid.NewString(),
		Job:       domain.JobStatusPromoter,
		StartedAt: time.Now(),
	}
	logger := p.logger.With(slog.String("run_id", result.RunID), slog.Bool("dry_run", p.dryRun))

	outcome := domain.Outcome{
		Job:    domain.JobStatusPromoter,
		Target: p.projectView,
		DryRun: p.dryRun,
	}

	candidates, err := p.candidates(ctx, logger)
	if err != nil {
		logger.Error("Failed to select candidates", slog.Any("error", err))
		outcome.Err = err
		return finish(result, outcome)
	}
	outcome.Candidates = len(candidates)

	logger.Info("Found projects qualifying for transition", slog.Int("count", len(candidates)))
	for _, c := range candidates {
		logger.Info("Candidate",
			slog.String("project_id", c.ProjectID),
			slog.Int("files", c.Count),
		)
	}

	updated, err := p.promote(ctx, logger, candidates)
	outcome.Updated = updated
	if err != nil {
		logger.Error("Promotion aborted",
			slog.Int("updated", updated),
			slog.Int("remaining", len(candidates)-updated),
			slog.Any("error", err),
		)
		outcome.Err = err
		return finish(result, outcome)
	}

	outcome.Success = true
	logger.Info("Promotion completed",
		slog.Int("candidates", len(candidates)),
		slog.Int("updated", updated),
	)
	return finish(result, outcome)
}

func finish(result *domain.RunResult, outcome domain.Outcome) *domain.RunResult {
	result.Outcomes = append(result.Outcomes, outcome)
	result.FinishedAt = time.Now()
	return result
}

// Candidates returns the projects to promote: the override dataset verbatim when one
// is configured, otherwise the pending projects with at least one qualifying file.
func (p *Promoter) Candidates(ctx context.Context) ([]domain.Candidate, error) {
	return p.candidates(ctx, p.logger)
}

func (p *Promoter) candidates(ctx context.Context, logger *slog.Logger) ([]domain.Candidate, error) {
	if p.overridePath != "" {
		logger.Info("Using manually specified dataset", slog.String("path", p.overridePath))
		return LoadCandidates(p.overridePath)
	}

	ids, err := p.pendingProjects(ctx)
	if err != nil {
		return nil, err
	}

	logger.Info("Checking file view for pending projects",
		slog.Int("pending", len(ids)),
		slog.String("status", domain.StatusDataPending),
	)

	if len(ids) == 0 {
		return nil, nil
	}

	return p.qualifyingCounts(ctx, ids)
}

// pendingProjects returns the distinct ids of projects in "Data Pending"
func (p *Promoter) pendingProjects(ctx context.Context) ([]string, error) {
	rows, err := p.platform.Query(ctx, p.projectView, pendingProjectsSQL(p.projectView, p.statusField, domain.StatusDataPending))
	if err != nil {
		return nil, fmt.Errorf("failed to query pending projects: %w", err)
	}

	seen := make(map[string]struct{}, len(rows.Rows))
	ids := make([]string, 0, len(rows.Rows))
	for i := range rows.Rows {
		id, ok := rows.Value(i, "id")
		if !ok {
			return nil, fmt.Errorf("pending projects query returned no id column")
		}
		if _, dup := seen[id]; dup || id == "" {
			continue
		}
		seen[id] = struct{}{}
		ids = append(ids, id)
	}
	return ids, nil
}

// qualifyingCounts counts non-excluded files per pending project
func (p *Promoter) qualifyingCounts(ctx context.Context, ids []string) ([]domain.Candidate, error) {
	sql := qualifyingCountsSQL(p.fileView, ids, p.excludedCreators)

	rows, err := p.platform.Query(ctx, p.fileView, sql)
	if err != nil {
		return nil, fmt.Errorf("failed to query file counts: %w", err)
	}

	candidates := make([]domain.Candidate, 0, len(rows.Rows))
	for i := range rows.Rows {
		id, ok := rows.Value(i, columnProjectID)
		if !ok {
			return nil, fmt.Errorf("file count query returned no %s column", columnProjectID)
		}
		raw, ok := rows.Value(i, columnCount)
		if !ok {
			return nil, fmt.Errorf("file count query returned no %s column", columnCount)
		}
		count, err := strconv.Atoi(raw)
		if err != nil {
			return nil, fmt.Errorf("invalid file count %q for %s: %w", raw, id, err)
		}
		if count < 1 {
			continue
		}
		candidates = append(candidates, domain.Candidate{ProjectID: id, Count: count})
	}
	return candidates, nil
}

// promote sets each candidate to "Under Embargo", storing it unless dry-run.
// It returns the number of projects actually stored.
func (p *Promoter) promote(ctx context.Context, logger *slog.Logger, candidates []domain.Candidate) (int, error) {
	updated := 0
	for _, c := range candidates {
		project, err := p.platform.GetProject(ctx, c.ProjectID)
		if err != nil {
			return updated, fmt.Errorf("failed to get project %s: %w", c.ProjectID, err)
		}

		logger.Info("Project has seen its first contribution",
			slog.String("project_id", project.ID),
			slog.String("name", project.Name),
			slog.Int("files", c.Count),
			slog.String("previous_status", project.Status),
		)

		project.Status = domain.StatusUnderEmbargo

		if p.dryRun {
			logger.Info("Modified project metadata (not stored)",
				slog.String("project_id", project.ID),
				slog.String("name", project.Name),
				slog.String(p.statusField, project.Status),
				slog.Int("annotations", len(project.Annotations)),
			)
			continue
		}

		if err := p.platform.UpdateProject(ctx, project); err != nil {
			return updated, fmt.Errorf("failed to update project %s: %w", c.ProjectID, err)
		}
		updated++

		logger.Info("Project status changed",
			slog.String("project_id", project.ID),
			slog.String("name", project.Name),
			slog.String("status", domain.StatusUnderEmbargo),
		)
	}
	return updated, nil
}
