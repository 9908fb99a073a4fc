package userstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/systmms/keyproxy/internal/codec"
	"github.com/systmms/keyproxy/internal/database"
	"github.com/systmms/keyproxy/pkg/provider"
)

// SQLStore implements Store on the users table.
type SQLStore struct {
	db *database.DB
}

// NewSQLStore creates a store on db. The schema must already be migrated.
func NewSQLStore(db *database.DB) *SQLStore {
	return &SQLStore{db: db}
}

// GetProviderConfig returns ErrNotFound if the identity does not exist or has
// not configured a provider.
func (s *SQLStore) GetProviderConfig(ctx context.Context, identity string) (provider.Configuration, error) {
	var kind, creds sql.NullString
	err := s.db.QueryRowContext(ctx, s.db.Rebind(
		`SELECT kms_provider, kms_credentials FROM users WHERE email = ?`), identity).
		Scan(&kind, &creds)
	if errors.Is(err, sql.ErrNoRows) {
		return provider.Configuration{}, ErrNotFound
	}
	if err != nil {
		return provider.Configuration{}, fmt.Errorf("failed to load provider config: %w", err)
	}
	if !kind.Valid || kind.String == "" {
		return provider.Configuration{}, ErrNotFound
	}

	cfg := provider.Configuration{
		Kind:        provider.Kind(kind.String),
		Credentials: map[string]string{},
	}
	if creds.Valid && creds.String != "" {
		if err := json.Unmarshal([]byte(creds.String), &cfg.Credentials); err != nil {
			return provider.Configuration{}, codec.CodecError{
				Field: "kms_credentials",
				Err:   fmt.Errorf("stored credentials for %s are corrupt: %w", identity, err),
			}
		}
	}
	return cfg, nil
}

// PutProviderConfig upserts the identity's provider and encoded credentials.
func (s *SQLStore) PutProviderConfig(ctx context.Context, identity string, cfg provider.Configuration) error {
	doc, err := json.Marshal(cfg.Credentials)
	if err != nil {
		return fmt.Errorf("failed to marshal credentials: %w", err)
	}

	var query string
	switch s.db.Dialect {
	case database.DialectMySQL:
		query = `INSERT INTO users (email, role, kms_provider, kms_credentials) VALUES (?, ?, ?, ?)
			ON DUPLICATE KEY UPDATE kms_provider = VALUES(kms_provider), kms_credentials = VALUES(kms_credentials)`
	default:
		query = `INSERT INTO users (email, role, kms_provider, kms_credentials) VALUES (?, ?, ?, ?)
			ON CONFLICT (email) DO UPDATE SET kms_provider = EXCLUDED.kms_provider,
			kms_credentials = EXCLUDED.kms_credentials, updated_at = NOW()`
	}

	if _, err := s.db.ExecContext(ctx, s.db.Rebind(query), identity, RoleUser, string(cfg.Kind), string(doc)); err != nil {
		return fmt.Errorf("failed to save provider config: %w", err)
	}
	return nil
}

// GetRole returns ErrNotFound if the identity does not exist.
func (s *SQLStore) GetRole(ctx context.Context, identity string) (string, error) {
	var role string
	err := s.db.QueryRowContext(ctx, s.db.Rebind(`SELECT role FROM users WHERE email = ?`), identity).Scan(&role)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("failed to load role: %w", err)
	}
	return role, nil
}

// SetRole upserts the identity's role.
func (s *SQLStore) SetRole(ctx context.Context, identity, role string) error {
	if role == "" {
		return errors.New("role is required")
	}

	var query string
	switch s.db.Dialect {
	case database.DialectMySQL:
		query = `INSERT INTO users (email, role) VALUES (?, ?) ON DUPLICATE KEY UPDATE role = VALUES(role)`
	default:
		query = `INSERT INTO users (email, role) VALUES (?, ?)
			ON CONFLICT (email) DO UPDATE SET role = EXCLUDED.role, updated_at = NOW()`
	}

	if _, err := s.db.ExecContext(ctx, s.db.Rebind(query), identity, role); err != nil {
		return fmt.Errorf("failed to save role: %w", err)
	}
	return nil
}
