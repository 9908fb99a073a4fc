// Package app builds the long-lived handles keyproxy needs from a loaded
// configuration and owns their lifecycle.
package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/systmms/keyproxy/internal/audit"
	"github.com/systmms/keyproxy/internal/config"
	"github.com/systmms/keyproxy/internal/database"
	"github.com/systmms/keyproxy/internal/dispatch"
	"github.com/systmms/keyproxy/internal/logging"
	"github.com/systmms/keyproxy/internal/metrics"
	"github.com/systmms/keyproxy/internal/permissions"
	"github.com/systmms/keyproxy/internal/providers"
	"github.com/systmms/keyproxy/internal/userstore"
)

// App holds every handle a keyproxy command may use.
type App struct {
	Definition *config.Definition
	Logger     *logging.Logger

	// DB is nil when the app was assembled around caller-provided stores.
	DB         *database.DB
	Users      userstore.Store
	Journal    audit.Journal
	Registry   *providers.Registry
	Gate       *permissions.Checker
	Dispatcher *dispatch.Dispatcher

	Metrics         *metrics.DispatchMetrics
	MetricsRegistry *prometheus.Registry
}

// Option customizes Assemble.
type Option func(*options)

type options struct {
	drivers providers.DriverOptions
}

// WithDriverOptions appends driver options after the ones derived from the
// configuration. Tests use it to inject fake vendor clients.
func WithDriverOptions(o providers.DriverOptions) Option {
	return func(opts *options) {
		opts.drivers.GCP = append(opts.drivers.GCP, o.GCP...)
		opts.drivers.AWS = append(opts.drivers.AWS, o.AWS...)
		opts.drivers.Azure = append(opts.drivers.Azure, o.Azure...)
	}
}

// Open connects to the configured database and assembles the app on it.
// The caller must Close the returned App.
func Open(ctx context.Context, def *config.Definition, logger *logging.Logger, opts ...Option) (*App, error) {
	if logger == nil {
		logger = logging.Discard()
	}

	db, err := database.Open(ctx, def.DatabaseOptions())
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	logger.Debug("Connected to %s database", db.Dialect)

	var journal audit.Journal
	switch def.Audit.Sink {
	case config.SinkFile:
		dir := def.Audit.AuditDir()
		logger.Debug("Journaling audit events to %s", dir)
		journal = audit.NewFileJournal(dir)
	default:
		journal = audit.NewSQLJournal(db)
	}

	a := Assemble(def, logger, userstore.NewSQLStore(db), journal, opts...)
	a.DB = db
	return a, nil
}

// Assemble wires the registry, gate, metrics and dispatcher around the given
// stores.
func Assemble(def *config.Definition, logger *logging.Logger, users userstore.Store, journal audit.Journal, opts ...Option) *App {
	if def == nil {
		def = config.Default()
	}
	if logger == nil {
		logger = logging.Discard()
	}

	o := &options{
		drivers: providers.DriverOptions{
			AWS: []providers.AWSDriverOption{
				providers.WithAWSRegion(def.Drivers.AWS.Region),
				providers.WithAWSEndpoint(def.Drivers.AWS.Endpoint),
			},
		},
	}
	for _, opt := range opts {
		opt(o)
	}

	reg := prometheus.NewRegistry()
	m := metrics.New(reg, def.Metrics.Namespace)
	registry := providers.NewDefaultRegistry(logger, o.drivers)

	return &App{
		Definition: def,
		Logger:     logger,
		Users:      users,
		Journal:    journal,
		Registry:   registry,
		Gate:       permissions.NewChecker(users, logger),
		Dispatcher: dispatch.New(users, registry, journal,
			dispatch.WithMetrics(m),
			dispatch.WithLogger(logger),
		),
		Metrics:         m,
		MetricsRegistry: reg,
	}
}

// DriverTimeout bounds a single dispatch.
func (a *App) DriverTimeout() time.Duration {
	return a.Definition.Drivers.Timeout()
}

// Migrate applies pending schema migrations.
func (a *App) Migrate() (int, error) {
	if a.DB == nil {
		return 0, errors.New("no database connection")
	}
	return database.Migrate(a.DB)
}

// Close flushes metrics to the configured textfile and closes the database.
func (a *App) Close() error {
	var errs []error
	if path := a.Definition.Metrics.Textfile; path != "" {
		if err := metrics.WriteTextfile(path, a.MetricsRegistry); err != nil {
			errs = append(errs, fmt.Errorf("failed to write metrics textfile: %w", err))
		} else {
			a.Logger.Debug("Wrote metrics to %s", path)
		}
	}
	if a.DB != nil {
		if err := a.DB.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close database: %w", err))
		}
	}
	return errors.Join(errs...)
}
