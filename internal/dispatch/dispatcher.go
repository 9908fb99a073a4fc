// Package dispatch routes secret-store requests to the backend driver an
// identity has configured and journals the outcome.
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/systmms/keyproxy/internal/audit"
	"github.com/systmms/keyproxy/internal/codec"
	"github.com/systmms/keyproxy/internal/logging"
	"github.com/systmms/keyproxy/internal/metrics"
	"github.com/systmms/keyproxy/internal/userstore"
	"github.com/systmms/keyproxy/pkg/provider"
)

// SecretRequest is a secret to store on an identity's behalf.
type SecretRequest struct {
	Name  string
	Value string
}

// DriverLookup finds the driver for a provider kind.
type DriverLookup interface {
	Driver(kind provider.Kind) (provider.Driver, bool)
}

// Dispatcher holds no per-call state and is safe for concurrent use.
type Dispatcher struct {
	configs  userstore.ConfigReader
	drivers  DriverLookup
	recorder audit.Recorder
	metrics  *metrics.DispatchMetrics
	logger   *logging.Logger
}

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithMetrics records dispatch outcomes in m.
func WithMetrics(m *metrics.DispatchMetrics) Option {
	return func(d *Dispatcher) {
		d.metrics = m
	}
}

// WithLogger sets the logger. The default discards output.
func WithLogger(l *logging.Logger) Option {
	return func(d *Dispatcher) {
		if l != nil {
			d.logger = l
		}
	}
}

// New creates a dispatcher. All three collaborators are required.
func New(configs userstore.ConfigReader, drivers DriverLookup, recorder audit.Recorder, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		configs:  configs,
		drivers:  drivers,
		recorder: recorder,
		logger:   logging.Discard(),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// StoreSecret stores req in identity's configured backend and returns the
// backend's reference.
//
// An unconfigured identity or an empty name or value fails without touching a
// driver or the journal. Every other call writes exactly one audit event,
// success or failure, before returning. If that write fails the call fails
// with audit.AuditWriteError, even when the backend accepted the secret.
func (d *Dispatcher) StoreSecret(ctx context.Context, identity string, req SecretRequest) (provider.Reference, error) {
	cfg, err := d.loadConfig(ctx, identity)
	if err != nil {
		return "", err
	}

	if req.Name == "" {
		return "", InvalidRequestError{Field: "secret_name", Reason: "is required"}
	}
	if req.Value == "" {
		return "", InvalidRequestError{Field: "secret_value", Reason: "is required"}
	}

	d.logger.Debug("Dispatching secret %s for %s to %s", req.Name, identity, cfg.Kind)

	ref, creds, err := d.store(ctx, cfg, req)
	outcome := ""
	if err != nil {
		// Vendor messages can echo credential material back.
		outcome = logging.RedactMap(err.Error(), creds)
		d.logger.Warn("Failed to store secret %s for %s: %s", req.Name, identity, outcome)
	}

	if auditErr := d.journal(ctx, identity, cfg.Kind, req.Name, outcome, err); auditErr != nil {
		if err == nil {
			d.logger.Error("Secret %s for %s was stored in %s but could not be journaled", req.Name, identity, cfg.Kind)
		}
		return "", auditErr
	}
	if err != nil {
		return "", err
	}
	return ref, nil
}

// GetKmsConfig returns identity's provider configuration exactly as stored,
// credentials still encoded.
func (d *Dispatcher) GetKmsConfig(ctx context.Context, identity string) (provider.Configuration, error) {
	return d.loadConfig(ctx, identity)
}

func (d *Dispatcher) loadConfig(ctx context.Context, identity string) (provider.Configuration, error) {
	cfg, err := d.configs.GetProviderConfig(ctx, identity)
	if errors.Is(err, userstore.ErrNotFound) {
		return provider.Configuration{}, NotConfiguredError{Identity: identity}
	}
	if err != nil {
		return provider.Configuration{}, fmt.Errorf("failed to load provider config for %s: %w", identity, err)
	}
	return cfg, nil
}

// store decodes the credentials, selects the driver, checks the driver's
// required fields and calls it. The decoded credentials are returned for
// redaction.
func (d *Dispatcher) store(ctx context.Context, cfg provider.Configuration, req SecretRequest) (provider.Reference, map[string]string, error) {
	creds, err := codec.Decode(cfg.Credentials)
	if err != nil {
		return "", nil, err
	}

	driver, ok := d.drivers.Driver(cfg.Kind)
	if !cfg.Kind.Valid() || !ok {
		return "", creds, UnsupportedProviderError{Kind: string(cfg.Kind)}
	}
	if err := provider.RequireFields(driver, provider.Credentials(creds)); err != nil {
		return "", creds, err
	}

	start := time.Now()
	ref, err := driver.Store(ctx, req.Name, req.Value, provider.Credentials(creds))
	d.metrics.ObserveDispatch(cfg.Kind, err, time.Since(start))
	return ref, creds, err
}

// journal writes the single audit event for a dispatch. The write ignores
// cancellation of ctx so that an abandoned call is still journaled.
func (d *Dispatcher) journal(ctx context.Context, identity string, kind provider.Kind, name, message string, outcome error) error {
	status := audit.StatusSuccess
	if outcome != nil {
		status = audit.StatusFailure
	}

	event := audit.NewEvent(identity, audit.ActionCreateSecret, name, status)
	event.Provider = kind
	event.Error = message

	if err := d.recorder.Record(context.WithoutCancel(ctx), event); err != nil {
		d.metrics.AuditWriteFailed()
		d.logger.Error("Failed to record audit event for %s: %v", identity, err)
		return audit.AuditWriteError{Event: event, Err: err, Outcome: outcome}
	}
	return nil
}
