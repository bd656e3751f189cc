package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/nf-osi/synapse-jobs/internal/domain"
	"github.com/nf-osi/synapse-jobs/internal/report"
)

const (
	// MinPort is the minimum valid port number
	MinPort = 1
	// MaxPort is the maximum valid port number
	MaxPort = 65535

	// DefaultSynapseBaseURL is the production repository endpoint
	DefaultSynapseBaseURL = "https://repo-prod.prod.sagebase.org/repo/v1"
	// DefaultProjectView is the portal project view
	DefaultProjectView = "syn52677631"
	// DefaultFileView is the portal file view
	DefaultFileView = "syn16858331"
	// DefaultStatusField is the project annotation holding the data status
	DefaultStatusField = "dataStatus"
)

// Environment variables read by Load
const (
	EnvSecrets        = "SCHEDULED_JOB_SECRETS"
	EnvAuthToken      = "SYNAPSE_AUTH_TOKEN"
	EnvBaseURL        = "SYNAPSE_BASE_URL"
	EnvProjectView    = "PROJECT_VIEW"
	EnvFileView       = "FILE_VIEW"
	EnvWebhook        = "SLACK"
	EnvSchedule       = "SCHEDULE"
	EnvJobLabel       = "LABEL"
	EnvTargets        = "TARGETS"
	EnvTarget         = "TARGET"
	EnvComment        = "COMMENT"
	EnvSnapshotLabel  = "SNAPSHOT_LABEL"
	EnvLedgerDSN      = "LEDGER_DSN"
	EnvAMQPURL        = "AMQP_URL"
	EnvAMQPExchange   = "AMQP_EXCHANGE"
	EnvLogLevel       = "LOG_LEVEL"
	EnvLogFormat      = "LOG_FORMAT"
	secretsAuthTokenK = "SYNAPSE_AUTH_TOKEN"
)

// Config represents the complete job configuration
type Config struct {
	App      AppConfig      `yaml:"app"`
	Logging  LoggingConfig  `yaml:"logging"`
	Synapse  SynapseConfig  `yaml:"synapse"`
	Promoter PromoterConfig `yaml:"promoter"`
	Snapshot SnapshotConfig `yaml:"snapshot"`
	Report   ReportConfig   `yaml:"report"`
	Ledger   LedgerConfig   `yaml:"ledger"`
	RabbitMQ RabbitMQConfig `yaml:"rabbitmq"`
}

// AppConfig holds application metadata
type AppConfig struct {
	Name        string `yaml:"name"`
	Environment string `yaml:"environment"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level        string `yaml:"level"`
	Format       string `yaml:"format"`
	Output       string `yaml:"output"`
	EnableCaller bool   `yaml:"enable_caller"`
}

// SynapseConfig holds the platform client configuration
type SynapseConfig struct {
	BaseURL         string        `yaml:"base_url"`
	AuthToken       string        `yaml:"-"`
	Timeout         time.Duration `yaml:"timeout"`
	RateLimit       float64       `yaml:"rate_limit"`
	RateBurst       int           `yaml:"rate_burst"`
	PollInterval    time.Duration `yaml:"poll_interval"`
	MaxPollInterval time.Duration `yaml:"max_poll_interval"`
}

// PromoterConfig holds status promoter settings
type PromoterConfig struct {
	ProjectView      string   `yaml:"project_view"`
	FileView         string   `yaml:"file_view"`
	StatusField      string   `yaml:"status_field"`
	ExcludedCreators []string `yaml:"excluded_creators"`
}

// SnapshotConfig holds snapshotter settings
type SnapshotConfig struct {
	Targets []string `yaml:"targets"`
	Comment string   `yaml:"comment"`
	Label   string   `yaml:"label"`
}

// ReportConfig holds notification settings
type ReportConfig struct {
	WebhookURL string        `yaml:"webhook_url"`
	Schedule   string        `yaml:"schedule"`
	JobLabel   string        `yaml:"job_label"`
	Mode       string        `yaml:"mode"`
	Timeout    time.Duration `yaml:"timeout"`
}

// LedgerConfig holds the optional PostgreSQL run ledger configuration.
// DSN takes precedence over the discrete connection fields.
type LedgerConfig struct {
	DSN             string        `yaml:"dsn"`
	Host            string        `yaml:"host"`
	Port            int           `yaml:"port"`
	User            string        `yaml:"user"`
	Password        string        `yaml:"password"`
	Database        string        `yaml:"database"`
	SSLMode         string        `yaml:"sslmode"`
	MaxOpenConns    int           `yaml:"max_open_conns"`
	MaxIdleConns    int           `yaml:"max_idle_conns"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime"`
}

// Enabled reports whether a ledger database is configured
func (l LedgerConfig) Enabled() bool {
	return l.DSN != "" || l.Host != ""
}

// RabbitMQConfig holds the optional outcome event publisher configuration
type RabbitMQConfig struct {
	URL           string        `yaml:"url"`
	Exchange      string        `yaml:"exchange"`
	ExchangeType  string        `yaml:"exchange_type"`
	Durable       bool          `yaml:"durable"`
	RetryAttempts int           `yaml:"retry_attempts"`
	RetryInterval time.Duration `yaml:"retry_interval"`
	Heartbeat     time.Duration `yaml:"heartbeat"`
}

// Enabled reports whether an event broker is configured
func (r RabbitMQConfig) Enabled() bool {
	return r.URL != ""
}

// Default returns the configuration used when no file or environment overrides it
func Default() *Config {
	return &Config{
		App: AppConfig{
			Name:        "synapse-jobs",
			Environment: "production",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
			Output: "stdout",
		},
		Synapse: SynapseConfig{
			BaseURL:         DefaultSynapseBaseURL,
			Timeout:         60 * time.Second,
			RateLimit:       5,
			RateBurst:       2,
			PollInterval:    500 * time.Millisecond,
			MaxPollInterval: 10 * time.Second,
		},
		Promoter: PromoterConfig{
			ProjectView:      DefaultProjectView,
			FileView:         DefaultFileView,
			StatusField:      DefaultStatusField,
			ExcludedCreators: append([]string(nil), domain.DefaultExcludedCreators...),
		},
		Report: ReportConfig{
			Mode:    report.ModePerTarget,
			Timeout: 10 * time.Second,
		},
		Ledger: LedgerConfig{
			Port:            5432,
			SSLMode:         "require",
			MaxOpenConns:    2,
			MaxIdleConns:    1,
			ConnMaxLifetime: 5 * time.Minute,
		},
		RabbitMQ: RabbitMQConfig{
			Exchange:      "synapse_jobs",
			ExchangeType:  "topic",
			Durable:       true,
			RetryAttempts: 3,
			RetryInterval: 2 * time.Second,
			Heartbeat:     10 * time.Second,
		},
	}
}

// Load builds the configuration from defaults, an optional YAML file and the environment.
// When envFile is set its KEY=VALUE lines are loaded first; variables already present
// in the process environment are not overridden.
func Load(configPath, envFile string) (*Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil {
			return nil, fmt.Errorf("failed to load env file: %w", err)
		}
	}

	config := Default()

	if configPath != "" {
		data, err := os.ReadFile(configPath)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}

		if err := yaml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	if err := config.applyEnv(); err != nil {
		return nil, err
	}

	return config, nil
}

// applyEnv overlays environment variables onto the configuration
func (c *Config) applyEnv() error {
	if raw, ok := os.LookupEnv(EnvSecrets); ok && strings.TrimSpace(raw) != "" {
		var secrets map[string]json.RawMessage
		if err := json.Unmarshal([]byte(raw), &secrets); err != nil {
			return fmt.Errorf("failed to parse %s: %w", EnvSecrets, errors.Join(domain.ErrMissingSecrets, err))
		}
		if token, ok := secrets[secretsAuthTokenK]; ok {
			if err := json.Unmarshal(token, &c.Synapse.AuthToken); err != nil {
				return fmt.Errorf("failed to parse %s: %s must be a string: %w", EnvSecrets, secretsAuthTokenK, domain.ErrMissingSecrets)
			}
		}
	}
	if c.Synapse.AuthToken == "" {
		c.Synapse.AuthToken = os.Getenv(EnvAuthToken)
	}

	setString(&c.Synapse.BaseURL, EnvBaseURL)
	setString(&c.Promoter.ProjectView, EnvProjectView)
	setString(&c.Promoter.FileView, EnvFileView)
	setString(&c.Report.WebhookURL, EnvWebhook)
	setString(&c.Report.Schedule, EnvSchedule)
	setString(&c.Report.JobLabel, EnvJobLabel)
	setString(&c.Snapshot.Comment, EnvComment)
	setString(&c.Snapshot.Label, EnvSnapshotLabel)
	setString(&c.Ledger.DSN, EnvLedgerDSN)
	setString(&c.RabbitMQ.URL, EnvAMQPURL)
	setString(&c.RabbitMQ.Exchange, EnvAMQPExchange)
	setString(&c.Logging.Level, EnvLogLevel)
	setString(&c.Logging.Format, EnvLogFormat)

	if targets := ParseTargets(os.Getenv(EnvTargets)); len(targets) > 0 {
		c.Snapshot.Targets = targets
	} else if target := strings.TrimSpace(os.Getenv(EnvTarget)); target != "" {
		c.Snapshot.Targets = []string{target}
	}

	return nil
}

// ParseTargets splits a space-delimited target list, dropping empty fields
func ParseTargets(raw string) []string {
	return strings.Fields(raw)
}

func setString(dst *string, key string) {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		*dst = v
	}
}

// validateCommon checks settings shared by both jobs
func (c *Config) validateCommon() error {
	if c.Synapse.AuthToken == "" {
		return fmt.Errorf("%w: %s must contain %s", domain.ErrMissingSecrets, EnvSecrets, secretsAuthTokenK)
	}

	if c.Synapse.BaseURL == "" {
		return fmt.Errorf("synapse base_url is required")
	}

	if c.Synapse.Timeout <= 0 {
		return fmt.Errorf("synapse timeout must be greater than 0")
	}

	if c.Report.Mode != report.ModePerTarget && c.Report.Mode != report.ModeSummary {
		return fmt.Errorf("invalid report mode: %q (must be %q or %q)", c.Report.Mode, report.ModePerTarget, report.ModeSummary)
	}

	if c.Ledger.DSN == "" && c.Ledger.Host != "" {
		if c.Ledger.Port < MinPort || c.Ledger.Port > MaxPort {
			return fmt.Errorf("invalid ledger port: %d (must be between %d and %d)", c.Ledger.Port, MinPort, MaxPort)
		}
		if c.Ledger.Database == "" {
			return fmt.Errorf("ledger database name is required")
		}
	}

	if c.RabbitMQ.Enabled() && c.RabbitMQ.Exchange == "" {
		return fmt.Errorf("rabbitmq exchange name is required")
	}

	return nil
}

// ValidatePromoterConfig checks the configuration needed by the status promoter
func (c *Config) ValidatePromoterConfig() error {
	if err := c.validateCommon(); err != nil {
		return err
	}

	if c.Promoter.ProjectView == "" {
		return fmt.Errorf("promoter project_view is required")
	}

	if c.Promoter.FileView == "" {
		return fmt.Errorf("promoter file_view is required")
	}

	if c.Promoter.StatusField == "" {
		return fmt.Errorf("promoter status_field is required")
	}

	return nil
}

// ValidateSnapshotConfig checks the configuration needed by the snapshotter
func (c *Config) ValidateSnapshotConfig() error {
	if err := c.validateCommon(); err != nil {
		return err
	}

	if len(c.Snapshot.Targets) == 0 {
		return fmt.Errorf("%w: set %s or %s", domain.ErrNoTargets, EnvTargets, EnvTarget)
	}

	return nil
}
