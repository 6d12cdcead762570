package shared

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"io"
	"io/fs"
	"slices"
	"strconv"
	"strings"

	"github.com/charmbracelet/log"
)

//go:embed sql/*.sql
var migrationFiles embed.FS

// Migration is one schema version: a pair of NNNN_name_up.sql and NNNN_name_down.sql scripts.
type Migration struct {
	Version int
	Up      string
	Down    string
}

// loadMigrations returns the embedded migrations in version order.
func loadMigrations() ([]Migration, error) {
	names, err := fs.Glob(migrationFiles, "sql/*.sql")
	if err != nil {
		return nil, fmt.Errorf("failed to list migrations: %w", err)
	}

	byVersion := make(map[int]*Migration)
	for _, name := range names {
		base := strings.TrimPrefix(name, "sql/")
		prefix, _, ok := strings.Cut(base, "_")
		if !ok {
			continue
		}
		version, err := strconv.Atoi(prefix)
		if err != nil {
			continue
		}

		content, err := migrationFiles.ReadFile(name)
		if err != nil {
			return nil, fmt.Errorf("failed to read migration %s: %w", base, err)
		}

		m := byVersion[version]
		if m == nil {
			m = &Migration{Version: version}
			byVersion[version] = m
		}
		switch {
		case strings.HasSuffix(base, "_up.sql"):
			m.Up = string(content)
		case strings.HasSuffix(base, "_down.sql"):
			m.Down = string(content)
		}
	}

	migrations := make([]Migration, 0, len(byVersion))
	for _, m := range byVersion {
		if m.Up == "" || m.Down == "" {
			return nil, fmt.Errorf("incomplete migration for version %d", m.Version)
		}
		migrations = append(migrations, *m)
	}
	slices.SortFunc(migrations, func(a, b Migration) int { return a.Version - b.Version })
	return migrations, nil
}

func migrationLogger(logger *log.Logger) *log.Logger {
	if logger == nil {
		return log.New(io.Discard)
	}
	return logger
}

// RunMigrations applies every migration not yet recorded in schema_migrations.
//
// Each version runs in its own transaction together with its bookkeeping row. A nil logger is silent.
func RunMigrations(ctx context.Context, db *sql.DB, logger *log.Logger) error {
	logger = migrationLogger(logger)

	migrations, err := loadMigrations()
	if err != nil {
		return err
	}

	if _, err := db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS schema_migrations (
		version INTEGER PRIMARY KEY,
		applied_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	)`); err != nil {
		return fmt.Errorf("failed to create schema_migrations: %w", err)
	}

	for _, m := range migrations {
		var applied bool
		err := db.QueryRowContext(ctx,
			"SELECT EXISTS(SELECT 1 FROM schema_migrations WHERE version = ?)", m.Version,
		).Scan(&applied)
		if err != nil {
			return fmt.Errorf("failed to check migration %d: %w", m.Version, err)
		}
		if applied {
			continue
		}

		if err := migrate(ctx, db, m.Up, "INSERT INTO schema_migrations (version) VALUES (?)", m.Version); err != nil {
			return fmt.Errorf("failed to apply migration %d: %w", m.Version, err)
		}
		logger.Info("applied migration", "version", m.Version)
	}
	return nil
}

// RollbackMigration reverts the highest applied version and returns it.
//
// An empty schema_migrations table is [ErrNoMigrations].
func RollbackMigration(ctx context.Context, db *sql.DB, logger *log.Logger) (int, error) {
	logger = migrationLogger(logger)

	migrations, err := loadMigrations()
	if err != nil {
		return 0, err
	}

	var current sql.NullInt64
	if err := db.QueryRowContext(ctx, "SELECT MAX(version) FROM schema_migrations").Scan(&current); err != nil {
		return 0, fmt.Errorf("failed to read current version: %w", err)
	}
	if !current.Valid {
		return 0, ErrNoMigrations
	}

	version := int(current.Int64)
	idx := slices.IndexFunc(migrations, func(m Migration) bool { return m.Version == version })
	if idx < 0 {
		return 0, fmt.Errorf("migration version %d not found", version)
	}

	if err := migrate(ctx, db, migrations[idx].Down, "DELETE FROM schema_migrations WHERE version = ?", version); err != nil {
		return 0, fmt.Errorf("failed to roll back migration %d: %w", version, err)
	}
	logger.Info("rolled back migration", "version", version)
	return version, nil
}

// migrate runs script and the schema_migrations bookkeeping statement in one transaction.
// The driver executes every statement in a multi-statement script.
func migrate(ctx context.Context, db *sql.DB, script, record string, version int) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, script); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, record, version); err != nil {
		return err
	}
	return tx.Commit()
}
