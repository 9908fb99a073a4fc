package config

import (
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/systmms/keyproxy/internal/audit"
	"github.com/systmms/keyproxy/internal/database"
	kperrors "github.com/systmms/keyproxy/internal/errors"
	"github.com/systmms/keyproxy/internal/logging"
	"github.com/systmms/keyproxy/internal/metrics"
)

// DefaultPath is the configuration file used when --config is not given.
const DefaultPath = "keyproxy.yaml"

// Environment overrides applied after the file is parsed.
const (
	EnvDatabaseDSN = "KEYPROXY_DATABASE_DSN"
	EnvAuditDir    = "KEYPROXY_AUDIT_DIR"
)

// Audit sinks
const (
	SinkSQL  = "sql"
	SinkFile = "file"
)

const defaultDriverTimeoutMs = 30000

// Config holds the runtime configuration
type Config struct {
	Path       string
	Logger     *logging.Logger
	Definition *Definition
}

// Definition represents the keyproxy.yaml structure
type Definition struct {
	Version  int            `yaml:"version"`
	Database DatabaseConfig `yaml:"database"`
	Audit    AuditConfig    `yaml:"audit"`
	Drivers  DriversConfig  `yaml:"drivers"`
	Metrics  MetricsConfig  `yaml:"metrics"`
}

// DatabaseConfig holds the user store (and SQL journal) connection settings
type DatabaseConfig struct {
	Driver       string `yaml:"driver"`
	DSN          string `yaml:"dsn"`
	MaxOpenConns int    `yaml:"max_open_conns,omitempty"`
}

// AuditConfig selects the audit journal
type AuditConfig struct {
	Sink string `yaml:"sink"`
	Dir  string `yaml:"dir,omitempty"` // file sink only
}

// DriversConfig holds per-vendor driver defaults
type DriversConfig struct {
	TimeoutMs int       `yaml:"timeout_ms,omitempty"`
	AWS       AWSConfig `yaml:"aws"`
}

// AWSConfig holds AWS driver defaults. Credential bundles may override both.
type AWSConfig struct {
	Region   string `yaml:"region,omitempty"`
	Endpoint string `yaml:"endpoint,omitempty"`
}

// MetricsConfig controls the Prometheus collectors
type MetricsConfig struct {
	Namespace string `yaml:"namespace,omitempty"`
	Textfile  string `yaml:"textfile,omitempty"`
}

// Default returns a definition with every optional setting filled in.
func Default() *Definition {
	return &Definition{
		Version: 0,
		Database: DatabaseConfig{
			Driver:       string(database.DialectPostgres),
			MaxOpenConns: 10,
		},
		Audit: AuditConfig{
			Sink: SinkSQL,
		},
		Drivers: DriversConfig{
			TimeoutMs: defaultDriverTimeoutMs,
			AWS:       AWSConfig{Region: "us-east-1"},
		},
		Metrics: MetricsConfig{
			Namespace: metrics.DefaultNamespace,
		},
	}
}

// Load reads and parses the keyproxy.yaml file
func (c *Config) Load() error {
	data, err := os.ReadFile(c.Path)
	if err != nil {
		if os.IsNotExist(err) {
			return kperrors.ConfigError{
				Field:      "path",
				Value:      c.Path,
				Message:    "configuration file not found",
				Suggestion: "Create keyproxy.yaml in the working directory or pass --config",
			}
		}
		return kperrors.UserError{
			Message:    "Failed to read configuration file",
			Details:    err.Error(),
			Suggestion: "Check file permissions and path",
			Err:        err,
		}
	}

	def, err := Parse(data)
	if err != nil {
		return err
	}

	if c.Logger != nil {
		c.Logger.Debug("Loaded configuration from %s (database: %s, audit sink: %s)",
			c.Path, def.Database.Driver, def.Audit.Sink)
	}
	c.Definition = def
	return nil
}

// Parse decodes a keyproxy.yaml document over Default, applies environment
// overrides and validates the result.
func Parse(data []byte) (*Definition, error) {
	def := Default()
	if err := yaml.Unmarshal(data, def); err != nil {
		return nil, kperrors.ConfigError{
			Message:    "invalid YAML syntax in configuration file",
			Suggestion: "Check for indentation errors, missing quotes, or invalid characters. Use a YAML validator",
		}
	}

	def.applyEnv()

	if err := def.Validate(); err != nil {
		return nil, err
	}
	return def, nil
}

func (d *Definition) applyEnv() {
	if dsn := os.Getenv(EnvDatabaseDSN); dsn != "" {
		d.Database.DSN = dsn
	}
	if dir := os.Getenv(EnvAuditDir); dir != "" {
		d.Audit.Dir = dir
	}
}

// Validate checks the definition for unsupported values.
func (d *Definition) Validate() error {
	if d.Version != 0 {
		return kperrors.ConfigError{
			Field:      "version",
			Value:      d.Version,
			Message:    "unsupported configuration version",
			Suggestion: "Set 'version: 0' at the top of your keyproxy.yaml file",
		}
	}

	if _, err := database.ParseDialect(d.Database.Driver); err != nil {
		return kperrors.ConfigError{
			Field:      "database.driver",
			Value:      d.Database.Driver,
			Message:    "unsupported database driver",
			Suggestion: "Use 'postgres' or 'mysql'",
		}
	}
	if strings.TrimSpace(d.Database.DSN) == "" {
		return kperrors.ConfigError{
			Field:      "database.dsn",
			Message:    "database connection string is required",
			Suggestion: "Set database.dsn in keyproxy.yaml or export " + EnvDatabaseDSN,
		}
	}
	if d.Database.MaxOpenConns < 0 {
		return kperrors.ConfigError{
			Field:      "database.max_open_conns",
			Value:      d.Database.MaxOpenConns,
			Message:    "must not be negative",
			Suggestion: "Use 0 for no limit",
		}
	}

	switch d.Audit.Sink {
	case SinkSQL, SinkFile:
	default:
		return kperrors.ConfigError{
			Field:      "audit.sink",
			Value:      d.Audit.Sink,
			Message:    "unsupported audit sink",
			Suggestion: "Use 'sql' to journal into the database or 'file' for a local directory",
		}
	}

	if d.Drivers.TimeoutMs < 0 {
		return kperrors.ConfigError{
			Field:      "drivers.timeout_ms",
			Value:      d.Drivers.TimeoutMs,
			Message:    "must not be negative",
			Suggestion: "Remove the setting to use the 30 second default",
		}
	}
	return nil
}

// AuditDir returns the file journal directory, falling back to the per-user
// data directory.
func (a AuditConfig) AuditDir() string {
	if a.Dir != "" {
		return a.Dir
	}
	return audit.DefaultDir()
}

// Timeout returns the per-call driver timeout
func (d DriversConfig) Timeout() time.Duration {
	if d.TimeoutMs <= 0 {
		return defaultDriverTimeoutMs * time.Millisecond
	}
	return time.Duration(d.TimeoutMs) * time.Millisecond
}

// DatabaseOptions converts the database section for database.Open.
func (d *Definition) DatabaseOptions() database.Options {
	return database.Options{
		Driver:       d.Database.Driver,
		DSN:          d.Database.DSN,
		MaxOpenConns: d.Database.MaxOpenConns,
	}
}
