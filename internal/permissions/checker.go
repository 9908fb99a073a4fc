// Package permissions gates operations on an identity's stored role.
package permissions

import (
	"context"
	"errors"
	"fmt"

	"github.com/systmms/keyproxy/internal/logging"
	"github.com/systmms/keyproxy/internal/userstore"
)

// RoleAdmin may read other identities' audit journals.
const RoleAdmin = "admin"

// PermissionResult represents the result of a permission check
type PermissionResult struct {
	Allowed bool   `json:"allowed"`
	Reason  string `json:"reason"`
	Role    string `json:"role,omitempty"`
}

// DeniedError is returned by Require when the identity lacks the role.
type DeniedError struct {
	Identity     string
	RequiredRole string
	Reason       string
}

func (e DeniedError) Error() string {
	return fmt.Sprintf("access denied for %s: %s", e.Identity, e.Reason)
}

// Evaluate decides whether role satisfies requiredRole. Roles match only when
// they are equal; there is no hierarchy.
func Evaluate(role, requiredRole string) *PermissionResult {
	switch {
	case requiredRole == "":
		return &PermissionResult{Allowed: false, Reason: "No required role specified", Role: role}
	case role == "":
		return &PermissionResult{Allowed: false, Reason: "Identity has no role"}
	case role != requiredRole:
		return &PermissionResult{
			Allowed: false,
			Reason:  fmt.Sprintf("Role %q does not match required role %q", role, requiredRole),
			Role:    role,
		}
	}
	return &PermissionResult{Allowed: true, Reason: "Role matches", Role: role}
}

// Checker looks up roles and evaluates them
type Checker struct {
	roles  userstore.RoleReader
	logger *logging.Logger
}

// NewChecker creates a new permission checker
func NewChecker(roles userstore.RoleReader, logger *logging.Logger) *Checker {
	if logger == nil {
		logger = logging.Discard()
	}
	return &Checker{roles: roles, logger: logger}
}

// Authorize checks identity's stored role against requiredRole. An unknown
// identity is denied; the error is non-nil only when the role lookup failed.
func (c *Checker) Authorize(ctx context.Context, identity, requiredRole string) (*PermissionResult, error) {
	role, err := c.roles.GetRole(ctx, identity)
	if errors.Is(err, userstore.ErrNotFound) {
		c.logger.Warn("Unknown identity %s requested role %s", identity, requiredRole)
		return &PermissionResult{
			Allowed: false,
			Reason:  fmt.Sprintf("Unknown identity: %s", identity),
		}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load role for %s: %w", identity, err)
	}

	result := Evaluate(role, requiredRole)
	if !result.Allowed {
		c.logger.Debug("Denied %s: %s", identity, result.Reason)
	}
	return result, nil
}

// Require is Authorize returning a DeniedError on denial.
func (c *Checker) Require(ctx context.Context, identity, requiredRole string) error {
	result, err := c.Authorize(ctx, identity, requiredRole)
	if err != nil {
		return err
	}
	if !result.Allowed {
		return DeniedError{Identity: identity, RequiredRole: requiredRole, Reason: result.Reason}
	}
	return nil
}
