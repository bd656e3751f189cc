// Package app wires configuration into the clients and reporter shared by both jobs.
package app

import (
	"context"
	"log/slog"
	"time"

	"github.com/nf-osi/synapse-jobs/internal/config"
	"github.com/nf-osi/synapse-jobs/internal/domain"
	"github.com/nf-osi/synapse-jobs/internal/events"
	"github.com/nf-osi/synapse-jobs/internal/ledger"
	"github.com/nf-osi/synapse-jobs/internal/notify"
	"github.com/nf-osi/synapse-jobs/internal/report"
	"github.com/nf-osi/synapse-jobs/internal/synapse"
	"github.com/nf-osi/synapse-jobs/shared/logger"
	"github.com/nf-osi/synapse-jobs/shared/postgresql"
	"github.com/nf-osi/synapse-jobs/shared/rabbitmq"
)

// ReportTimeout bounds the delivery of notifications and records after a run
const ReportTimeout = 30 * time.Second

// Runtime holds the initialized dependencies of a job process
type Runtime struct {
	Logger   *logger.Logger
	Synapse  *synapse.Client
	Reporter *report.Reporter

	closers []func() error
}

// New initializes logging, the platform client and the reporter. The run ledger and
// the event broker are optional: when configured but unreachable they are skipped
// with a warning so that a broken sink never blocks the job.
func New(ctx context.Context, cfg *config.Config) (*Runtime, error) {
	appLogger, err := initLogger(&cfg.Logging)
	if err != nil {
		return nil, err
	}

	rt := &Runtime{Logger: appLogger}
	rt.closers = append(rt.closers, appLogger.Close)

	log := appLogger.With(
		slog.String("app", cfg.App.Name),
		slog.String("environment", cfg.App.Environment),
	).Logger

	rt.Synapse = synapse.NewClient(&synapse.Config{
		BaseURL:         cfg.Synapse.BaseURL,
		AuthToken:       cfg.Synapse.AuthToken,
		StatusField:     cfg.Promoter.StatusField,
		Timeout:         cfg.Synapse.Timeout,
		RateLimit:       cfg.Synapse.RateLimit,
		RateBurst:       cfg.Synapse.RateBurst,
		PollInterval:    cfg.Synapse.PollInterval,
		MaxPollInterval: cfg.Synapse.MaxPollInterval,
	}, log)

	var recorders []report.Recorder

	if cfg.Ledger.Enabled() {
		if storage := rt.initLedger(ctx, &cfg.Ledger, log); storage != nil {
			recorders = append(recorders, storage)
		}
	}

	if cfg.RabbitMQ.Enabled() {
		if publisher := rt.initEvents(&cfg.RabbitMQ, log); publisher != nil {
			recorders = append(recorders, publisher)
		}
	}

	var notifier report.Notifier
	if cfg.Report.WebhookURL != "" {
		notifier = notify.NewSlack(cfg.Report.WebhookURL, cfg.Report.Timeout, log)
	} else {
		log.Info("No webhook configured, notifications disabled")
	}

	rt.Reporter = report.New(&report.Config{
		Logger:    log,
		Notifier:  notifier,
		Recorders: recorders,
		Schedule:  cfg.Report.Schedule,
		JobLabel:  cfg.Report.JobLabel,
		Mode:      cfg.Report.Mode,
	})

	return rt, nil
}

// Report delivers a run result on a context detached from ctx's cancellation, so an
// interrupted run still reports what it did
func (rt *Runtime) Report(ctx context.Context, result *domain.RunResult) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), ReportTimeout)
	defer cancel()

	rt.Reporter.Report(ctx, result)
}

// Close releases every resource in reverse order of acquisition
func (rt *Runtime) Close() {
	for i := len(rt.closers) - 1; i >= 0; i-- {
		_ = rt.closers[i]()
	}
}

// initLogger initializes and configures the application logger
func initLogger(cfg *config.LoggingConfig) (*logger.Logger, error) {
	return logger.New(&logger.Config{
		Level:        cfg.Level,
		Format:       cfg.Format,
		Output:       cfg.Output,
		EnableSource: cfg.EnableCaller,
		TimeFormat:   time.RFC3339,
	})
}

// initLedger connects the run ledger, returning nil when it is unavailable
func (rt *Runtime) initLedger(ctx context.Context, cfg *config.LedgerConfig, log *slog.Logger) *ledger.Storage {
	client, err := postgresql.NewClient(ctx, &postgresql.Config{
		DSN:             cfg.DSN,
		Host:            cfg.Host,
		Port:            cfg.Port,
		User:            cfg.User,
		Password:        cfg.Password,
		Database:        cfg.Database,
		SSLMode:         cfg.SSLMode,
		MaxOpenConns:    cfg.MaxOpenConns,
		MaxIdleConns:    cfg.MaxIdleConns,
		ConnMaxLifetime: cfg.ConnMaxLifetime,
	}, log)
	if err != nil {
		log.Warn("Run ledger unavailable, continuing without it", slog.Any("error", err))
		return nil
	}

	storage := ledger.NewStorage(client.GetDB(), log)
	if err := storage.EnsureSchema(ctx); err != nil {
		log.Warn("Run ledger schema unavailable, continuing without it", slog.Any("error", err))
		client.Close()
		return nil
	}

	rt.closers = append(rt.closers, client.Close)
	return storage
}

// initEvents connects the event broker, returning nil when it is unavailable
func (rt *Runtime) initEvents(cfg *config.RabbitMQConfig, log *slog.Logger) *events.Publisher {
	client, err := rabbitmq.NewClient(&rabbitmq.Config{
		URL:             cfg.URL,
		ExchangeName:    cfg.Exchange,
		ExchangeType:    cfg.ExchangeType,
		ExchangeDurable: cfg.Durable,
		RetryAttempts:   cfg.RetryAttempts,
		RetryInterval:   cfg.RetryInterval,
		Heartbeat:       cfg.Heartbeat,
	}, log)
	if err != nil {
		log.Warn("Event broker unavailable, continuing without it", slog.Any("error", err))
		return nil
	}

	rt.closers = append(rt.closers, client.Close)
	return events.NewPublisher(client)
}
