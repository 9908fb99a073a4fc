package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/systmms/keyproxy/internal/app"
	"github.com/systmms/keyproxy/internal/config"
	kperrors "github.com/systmms/keyproxy/internal/errors"
	"github.com/systmms/keyproxy/internal/logging"
)

// Runtime is shared by every command.
type Runtime struct {
	Config *config.Config
	// OpenApp builds the application handles. It defaults to loading
	// Config and connecting to the configured database.
	OpenApp func(ctx context.Context) (*app.App, error)
}

// NewRuntime creates a runtime around cfg.
func NewRuntime(cfg *config.Config) *Runtime {
	r := &Runtime{Config: cfg}
	r.OpenApp = r.openFromConfig
	return r
}

func (r *Runtime) openFromConfig(ctx context.Context) (*app.App, error) {
	if err := r.Config.Load(); err != nil {
		return nil, err
	}
	return app.Open(ctx, r.Config.Definition, r.logger())
}

func (r *Runtime) logger() *logging.Logger {
	if r.Config == nil || r.Config.Logger == nil {
		return logging.Discard()
	}
	return r.Config.Logger
}

// withApp opens the app for the duration of fn.
func (r *Runtime) withApp(ctx context.Context, fn func(a *app.App) error) (err error) {
	a, err := r.OpenApp(ctx)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := a.Close(); closeErr != nil {
			if err == nil {
				err = closeErr
			} else {
				r.logger().Warn("%v", closeErr)
			}
		}
	}()
	return fn(a)
}

func requireFlag(value, flag, suggestion string) error {
	if strings.TrimSpace(value) != "" {
		return nil
	}
	return kperrors.UserError{
		Message:    fmt.Sprintf("--%s is required", flag),
		Suggestion: suggestion,
	}
}

// writeStructured writes v as json or yaml.
func writeStructured(w io.Writer, format string, v interface{}) error {
	switch format {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	case "yaml":
		enc := yaml.NewEncoder(w)
		defer func() { _ = enc.Close() }()
		return enc.Encode(v)
	}
	return kperrors.UserError{
		Message:    fmt.Sprintf("unsupported output format: %s", format),
		Suggestion: "Use --format table, json or yaml",
	}
}
