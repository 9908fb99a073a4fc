package database

import (
	"embed"
	"fmt"

	migrate "github.com/rubenv/sql-migrate"
)

//go:embed migrations/postgres/*.sql migrations/mysql/*.sql
var migrationsFS embed.FS

// migrationTable keeps keyproxy's bookkeeping apart from other tools sharing
// the database.
const migrationTable = "keyproxy_migrations"

// MigrationSource returns the embedded migrations for dialect.
func MigrationSource(dialect Dialect) migrate.MigrationSource {
	return &migrate.EmbedFileSystemMigrationSource{
		FileSystem: migrationsFS,
		Root:       "migrations/" + string(dialect),
	}
}

// Migrate applies all pending up migrations and returns how many ran.
func Migrate(db *DB) (int, error) {
	ms := migrate.MigrationSet{TableName: migrationTable}
	n, err := ms.Exec(db.DB, string(db.Dialect), MigrationSource(db.Dialect), migrate.Up)
	if err != nil {
		return n, fmt.Errorf("failed to run %s migrations: %w", db.Dialect, err)
	}
	return n, nil
}

// PendingMigrations returns the IDs of migrations not yet applied.
func PendingMigrations(db *DB) ([]string, error) {
	ms := migrate.MigrationSet{TableName: migrationTable}
	planned, _, err := ms.PlanMigration(db.DB, string(db.Dialect), MigrationSource(db.Dialect), migrate.Up, 0)
	if err != nil {
		return nil, fmt.Errorf("failed to plan migrations: %w", err)
	}
	ids := make([]string, 0, len(planned))
	for _, m := range planned {
		ids = append(ids, m.Id)
	}
	return ids, nil
}
