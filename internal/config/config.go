// Package config loads and validates the quality ledger configuration using Viper.
//
// Configuration is layered: built-in defaults < YAML config file < environment
// variables. Environment variables use the QL_ prefix (e.g., QL_DATABASE_HOST
// overrides database.host in the YAML). This layering allows the same binary to
// run with a config.yaml in local development and with pure environment variables
// in containerized deployments — no recompilation or different binaries needed.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/quality-ledger/quality-ledger/internal/db/models"
	"github.com/quality-ledger/quality-ledger/pkg/checksum"
)

// Config holds all application configuration
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Redis     RedisConfig     `mapstructure:"redis"`
	Security  SecurityConfig  `mapstructure:"security"`
	Logging   LoggingConfig   `mapstructure:"logging"`
	Telemetry TelemetryConfig `mapstructure:"telemetry"`
	Ledger    LedgerConfig    `mapstructure:"ledger"`
	Workflow  WorkflowConfig  `mapstructure:"workflow"`
	Scheduler SchedulerConfig `mapstructure:"scheduler"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host         string        `mapstructure:"host"`
	Port         int           `mapstructure:"port"`
	BaseURL      string        `mapstructure:"base_url"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

// DatabaseConfig holds database connection configuration
type DatabaseConfig struct {
	Host               string `mapstructure:"host"`
	Port               int    `mapstructure:"port"`
	Name               string `mapstructure:"name"`
	User               string `mapstructure:"user"`
	Password           string `mapstructure:"password"`
	SSLMode            string `mapstructure:"ssl_mode"`
	MaxConnections     int    `mapstructure:"max_connections"`
	MinIdleConnections int    `mapstructure:"min_idle_connections"`
}

// RedisConfig holds the optional Redis connection used by the distributed rate
// limiter. When Addr is empty the in-memory limiter is used instead.
type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// SecurityConfig holds request-protection settings
type SecurityConfig struct {
	RateLimiting RateLimitingConfig `mapstructure:"rate_limiting"`
	Auth         AuthConfig         `mapstructure:"auth"`
}

// RateLimitingConfig holds rate limiter settings
type RateLimitingConfig struct {
	Enabled           bool `mapstructure:"enabled"`
	RequestsPerMinute int  `mapstructure:"requests_per_minute"`
	Burst             int  `mapstructure:"burst"`
}

// AuthConfig holds bearer-token authentication settings. Token issuance is out of
// scope; the middleware validates locally signed JWTs only.
type AuthConfig struct {
	Enabled bool `mapstructure:"enabled"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// TelemetryConfig holds metrics configuration. Prometheus metrics are served on a
// dedicated side-channel port separate from the API listener.
type TelemetryConfig struct {
	Enabled        bool   `mapstructure:"enabled"`
	ServiceName    string `mapstructure:"service_name"`
	PrometheusPort int    `mapstructure:"prometheus_port"`
}

// LedgerConfig holds tamper-evidence ledger settings
type LedgerConfig struct {
	// DigestAlgorithm selects the content hash: "sha256" (default) or "sha3-256".
	// Changing it on an existing deployment invalidates chain verification, so it
	// is validated at startup rather than per request.
	DigestAlgorithm string `mapstructure:"digest_algorithm"`
	// MaxAnchorRetries bounds retry attempts against the external store before a
	// mutation is rejected with a ledger-unavailable error.
	MaxAnchorRetries int           `mapstructure:"max_anchor_retries"`
	RetryBackoff     time.Duration `mapstructure:"retry_backoff"`
	Webhook          LedgerWebhookConfig `mapstructure:"webhook"`
	File             LedgerFileConfig    `mapstructure:"file"`
}

// LedgerWebhookConfig holds the external immutable-store gateway settings
type LedgerWebhookConfig struct {
	Enabled bool              `mapstructure:"enabled"`
	URL     string            `mapstructure:"url"`
	Headers map[string]string `mapstructure:"headers"`
	Timeout time.Duration     `mapstructure:"timeout"`
}

// LedgerFileConfig holds the append-only file destination settings
type LedgerFileConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path"`
}

// WorkflowConfig holds audit lifecycle policy knobs
type WorkflowConfig struct {
	// DefaultQuorum is the approvals required for audit types not listed in
	// MultiPartyTypes.
	DefaultQuorum int `mapstructure:"default_quorum"`
	// MultiPartyQuorum is the approvals required for the types below.
	MultiPartyQuorum int `mapstructure:"multi_party_quorum"`
	// MultiPartyTypes lists audit types that require multi-party sign-off.
	MultiPartyTypes []string `mapstructure:"multi_party_types"`
	// CompliantThreshold and WarningThreshold split completed audits into
	// compliant / warning / non-compliant bands by score.
	CompliantThreshold float64 `mapstructure:"compliant_threshold"`
	WarningThreshold   float64 `mapstructure:"warning_threshold"`
}

// SchedulerConfig holds the scheduled-audit runner settings
type SchedulerConfig struct {
	Enabled         bool `mapstructure:"enabled"`
	IntervalMinutes int  `mapstructure:"interval_minutes"`
}

// QuorumFor returns the approvals required for the given audit type.
func (w *WorkflowConfig) QuorumFor(auditType string) int {
	for _, t := range w.MultiPartyTypes {
		if t == auditType {
			return w.MultiPartyQuorum
		}
	}
	return w.DefaultQuorum
}

// bindEnvVars explicitly binds environment variables to config keys.
// This is necessary because AutomaticEnv() doesn't work well with nested structs
// during Unmarshal. viper.BindEnv only errors when called with zero keys; since
// every key here is a non-empty hardcoded string, any error indicates a
// programming bug and is surfaced to the caller.
func bindEnvVars(v *viper.Viper) error {
	keys := []string{
		// Database
		"database.host",
		"database.port",
		"database.name",
		"database.user",
		"database.password",
		"database.ssl_mode",
		"database.max_connections",
		"database.min_idle_connections",

		// Server
		"server.host",
		"server.port",
		"server.base_url",
		"server.read_timeout",
		"server.write_timeout",

		// Redis
		"redis.addr",
		"redis.password",
		"redis.db",

		// Security
		"security.rate_limiting.enabled",
		"security.rate_limiting.requests_per_minute",
		"security.rate_limiting.burst",
		"security.auth.enabled",

		// Logging
		"logging.level",
		"logging.format",

		// Telemetry
		"telemetry.enabled",
		"telemetry.service_name",
		"telemetry.prometheus_port",

		// Ledger
		"ledger.digest_algorithm",
		"ledger.max_anchor_retries",
		"ledger.retry_backoff",
		"ledger.webhook.enabled",
		"ledger.webhook.url",
		"ledger.webhook.timeout",
		"ledger.file.enabled",
		"ledger.file.path",

		// Workflow
		"workflow.default_quorum",
		"workflow.multi_party_quorum",
		"workflow.multi_party_types",
		"workflow.compliant_threshold",
		"workflow.warning_threshold",

		// Scheduler
		"scheduler.enabled",
		"scheduler.interval_minutes",
	}
	for _, key := range keys {
		if err := v.BindEnv(key); err != nil {
			return fmt.Errorf("failed to bind env var %q: %w", key, err)
		}
	}
	return nil
}

// Load loads configuration from file and environment variables
func Load(configPath string) (*Config, error) {
	v := viper.New()

	setDefaults(v)

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		// Look for config.yaml in common locations
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
		v.AddConfigPath("/etc/quality-ledger")
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		// Config file not found; use defaults and environment variables
	}

	v.SetEnvPrefix("QL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := bindEnvVars(v); err != nil {
		return nil, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	// Expand ${VAR} references in sensitive fields so secrets can be injected
	// by infrastructure tooling without appearing in the YAML.
	cfg.Database.Password = os.ExpandEnv(cfg.Database.Password)
	cfg.Redis.Password = os.ExpandEnv(cfg.Redis.Password)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// setDefaults sets default configuration values
func setDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.base_url", "http://localhost:8080")
	v.SetDefault("server.read_timeout", "30s")
	v.SetDefault("server.write_timeout", "30s")

	// Database defaults
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.name", "quality_ledger")
	v.SetDefault("database.user", "ledger")
	v.SetDefault("database.ssl_mode", "require")
	v.SetDefault("database.max_connections", 25)
	v.SetDefault("database.min_idle_connections", 5)

	// Security defaults
	v.SetDefault("security.rate_limiting.enabled", true)
	v.SetDefault("security.rate_limiting.requests_per_minute", 120)
	v.SetDefault("security.rate_limiting.burst", 20)
	v.SetDefault("security.auth.enabled", false)

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")

	// Telemetry defaults
	v.SetDefault("telemetry.enabled", true)
	v.SetDefault("telemetry.service_name", "quality-ledger")
	v.SetDefault("telemetry.prometheus_port", 9090)

	// Ledger defaults
	v.SetDefault("ledger.digest_algorithm", checksum.AlgorithmSHA256)
	v.SetDefault("ledger.max_anchor_retries", 3)
	v.SetDefault("ledger.retry_backoff", "500ms")
	v.SetDefault("ledger.webhook.enabled", false)
	v.SetDefault("ledger.webhook.timeout", "10s")
	v.SetDefault("ledger.file.enabled", false)

	// Workflow defaults
	v.SetDefault("workflow.default_quorum", 1)
	v.SetDefault("workflow.multi_party_quorum", 2)
	v.SetDefault("workflow.multi_party_types", []string{
		models.AuditTypeExternal,
		models.AuditTypeCompliance,
		models.AuditTypeSecurity,
		models.AuditTypeFinancial,
	})
	v.SetDefault("workflow.compliant_threshold", 85.0)
	v.SetDefault("workflow.warning_threshold", 60.0)

	// Scheduler defaults
	v.SetDefault("scheduler.enabled", true)
	v.SetDefault("scheduler.interval_minutes", 5)
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}
	if c.Server.BaseURL == "" {
		return fmt.Errorf("server.base_url is required")
	}

	if c.Database.Host == "" {
		return fmt.Errorf("database.host is required")
	}
	if c.Database.Name == "" {
		return fmt.Errorf("database.name is required")
	}
	if c.Database.User == "" {
		return fmt.Errorf("database.user is required")
	}

	if _, err := checksum.New(c.Ledger.DigestAlgorithm); err != nil {
		return fmt.Errorf("ledger.digest_algorithm: %w", err)
	}
	if c.Ledger.MaxAnchorRetries < 0 {
		return fmt.Errorf("ledger.max_anchor_retries must not be negative")
	}
	if c.Ledger.Webhook.Enabled && c.Ledger.Webhook.URL == "" {
		return fmt.Errorf("ledger.webhook.url is required when the webhook destination is enabled")
	}
	if c.Ledger.File.Enabled && c.Ledger.File.Path == "" {
		return fmt.Errorf("ledger.file.path is required when the file destination is enabled")
	}

	if c.Workflow.DefaultQuorum < 1 {
		return fmt.Errorf("workflow.default_quorum must be at least 1")
	}
	if c.Workflow.MultiPartyQuorum < c.Workflow.DefaultQuorum {
		return fmt.Errorf("workflow.multi_party_quorum must not be below workflow.default_quorum")
	}
	if c.Workflow.WarningThreshold > c.Workflow.CompliantThreshold {
		return fmt.Errorf("workflow.warning_threshold must not exceed workflow.compliant_threshold")
	}

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[c.Logging.Level] {
		return fmt.Errorf("invalid logging level: %s (must be debug, info, warn, or error)", c.Logging.Level)
	}

	return nil
}

// GetDSN returns the PostgreSQL connection string
func (c *DatabaseConfig) GetDSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Name, c.SSLMode,
	)
}

// GetAddress returns the server address in host:port format
func (c *ServerConfig) GetAddress() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}
