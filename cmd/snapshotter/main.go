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
	"github.com/nf-osi/synapse-jobs/internal/snapshot"
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
		Use:           "snapshotter",
		Short:         "Create labeled snapshot versions of the configured tables and views",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd.Context(), opts)
		},
	}

	flags := cmd.Flags()
	flags.BoolVar(&opts.dryRun, "dry", false, "Log the snapshots that would be created without creating them")
	flags.StringVar(&opts.updateDF, "update_df", "", "Accepted for parity with status-promoter; unused")
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

	if err := cfg.ValidateSnapshotConfig(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	rt, err := app.New(ctx, cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize: %w", err)
	}
	defer rt.Close()

	if opts.updateDF != "" {
		rt.Logger.Warn("--update_df has no effect on the snapshotter", slog.String("path", opts.updateDF))
	}

	s := snapshot.New(&snapshot.Config{
		Logger:  rt.Logger.Logger,
		Creator: rt.Synapse,
		Targets: cfg.Snapshot.Targets,
		Comment: cfg.Snapshot.Comment,
		Label:   cfg.Snapshot.Label,
		DryRun:  opts.dryRun,
	})

	result := s.Run(ctx)
	rt.Report(ctx, result)

	rt.Logger.Info("Snapshotter finished",
		slog.Int("succeeded", result.Succeeded()),
		slog.Int("targets", len(result.Outcomes)),
	)

	if result.Failed() {
		return fmt.Errorf("snapshot failed for %d of %d targets: %w",
			len(result.Outcomes)-result.Succeeded(), len(result.Outcomes), result.Err())
	}
	return nil
}
