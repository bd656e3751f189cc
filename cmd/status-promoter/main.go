package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/nf-osi/synapse-jobs/internal/app"
	"github.com/nf-osi/synapse-jobs/internal/config"
	"github.com/nf-osi/synapse-jobs/internal/promoter"
)

type options struct {
	dryRun     bool
	updateDF   string
	envFile    string
	configPath string
}

func main() {
	if err := newRootCmd().ExecuteContext(context.Background()); err != nil {
		log.Fatal(err)
	}
}

func newRootCmd() *cobra.Command {
	opts := &options{}

	cmd := &cobra.Command{
		Use:           "status-promoter",
		Short:         "Move Data Pending projects with their first contributed files to Under Embargo",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd.Context(), opts)
		},
	}

	flags := cmd.Flags()
	flags.BoolVar(&opts.dryRun, "dry", false, "Print projects with modified metadata but do not store them")
	flags.StringVar(&opts.updateDF, "update_df", "", "Path to a CSV of projects to update (columns projectId, N)")
	flags.StringVar(&opts.envFile, "envfile", "", "Path to a KEY=VALUE file loaded into the environment")
	flags.StringVar(&opts.configPath, "config", os.Getenv("SYNAPSE_JOBS_CONFIG"), "Path to an optional YAML configuration file")

	return cmd
}

func run(ctx context.Context, opts *options) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(opts.configPath, opts.envFile)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	if err := cfg.ValidatePromoterConfig(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	rt, err := app.New(ctx, cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize: %w", err)
	}
	defer rt.Close()

	rt.Logger.Info("Starting status promoter",
		slog.String("project_view", cfg.Promoter.ProjectView),
		slog.String("file_view", cfg.Promoter.FileView),
		slog.Bool("dry_run", opts.dryRun),
	)

	p := promoter.New(&promoter.Config{
		Logger:           rt.Logger.Logger,
		Platform:         rt.Synapse,
		ProjectView:      cfg.Promoter.ProjectView,
		FileView:         cfg.Promoter.FileView,
		StatusField:      cfg.Promoter.StatusField,
		ExcludedCreators: cfg.Promoter.ExcludedCreators,
		DryRun:           opts.dryRun,
		OverridePath:     opts.updateDF,
	})

	result := p.Run(ctx)
	rt.Report(ctx, result)

	if result.Failed() {
		return fmt.Errorf("status promotion failed: %w", result.Err())
	}
	return nil
}
