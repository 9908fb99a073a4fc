// Package audit journals every secret-affecting action keyproxy performs.
//
// Events are append-only. The dispatcher writes exactly one event per dispatch
// attempt that reaches credential decoding, and treats a failed write as a
// failed dispatch (see AuditWriteError).
package audit

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/systmms/keyproxy/pkg/provider"
)

// ActionCreateSecret is the action recorded for a store-secret dispatch.
const ActionCreateSecret = "Create Secret"

// DefaultListLimit caps List when the caller passes a non-positive limit.
const DefaultListLimit = 100

// Status is the outcome of an audited action.
type Status string

const (
	StatusSuccess Status = "Success"
	StatusFailure Status = "Failure"
)

// Event is one journal entry.
type Event struct {
	ID         string        `json:"id" yaml:"id"`
	Identity   string        `json:"customer_email" yaml:"customer_email"`
	Action     string        `json:"action" yaml:"action"`
	SecretName string        `json:"secret_name,omitempty" yaml:"secret_name,omitempty"`
	Status     Status        `json:"status" yaml:"status"`
	Provider   provider.Kind `json:"provider,omitempty" yaml:"provider,omitempty"`
	Error      string        `json:"error,omitempty" yaml:"error,omitempty"`
	Timestamp  time.Time     `json:"timestamp" yaml:"timestamp"`
}

// NewEvent creates an event with a fresh ID, stamped with the current UTC time.
func NewEvent(identity, action, secretName string, status Status) Event {
	return Event{
		ID:         uuid.NewString(),
		Identity:   identity,
		Action:     action,
		SecretName: secretName,
		Status:     status,
		Timestamp:  time.Now().UTC(),
	}
}

// Recorder appends events to the journal. Record must not return until the
// event is durably written or the write has failed.
type Recorder interface {
	Record(ctx context.Context, event Event) error
}

// Lister reads an identity's events, newest first. A non-positive limit means
// DefaultListLimit.
type Lister interface {
	List(ctx context.Context, identity string, limit int) ([]Event, error)
}

// Journal is a Recorder that can also be listed.
type Journal interface {
	Recorder
	Lister
}

// AuditWriteError reports that the journal rejected an event. Outcome is the
// error the audited action itself ended with (nil if it succeeded); both it and
// Err are reachable through errors.As and errors.Is.
type AuditWriteError struct {
	Event   Event
	Err     error
	Outcome error
}

func (e AuditWriteError) Error() string {
	msg := fmt.Sprintf("failed to record audit event %q for %s: %v", e.Event.Action, e.Event.Identity, e.Err)
	if e.Outcome != nil {
		msg += fmt.Sprintf(" (action failed: %v)", e.Outcome)
	}
	return msg
}

func (e AuditWriteError) Unwrap() []error {
	errs := make([]error, 0, 2)
	if e.Err != nil {
		errs = append(errs, e.Err)
	}
	if e.Outcome != nil {
		errs = append(errs, e.Outcome)
	}
	return errs
}

// Validate checks the fields every journal requires.
func (e Event) Validate() error {
	var errs []error
	if e.ID == "" {
		errs = append(errs, errors.New("event id is required"))
	}
	if e.Identity == "" {
		errs = append(errs, errors.New("identity is required"))
	}
	if e.Action == "" {
		errs = append(errs, errors.New("action is required"))
	}
	if e.Status != StatusSuccess && e.Status != StatusFailure {
		errs = append(errs, fmt.Errorf("invalid status %q", e.Status))
	}
	if e.Timestamp.IsZero() {
		errs = append(errs, errors.New("timestamp is required"))
	}
	return errors.Join(errs...)
}

func normalizeLimit(limit int) int {
	if limit <= 0 {
		return DefaultListLimit
	}
	return limit
}
