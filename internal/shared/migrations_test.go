package shared

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
)

func TestMigrationRunner(t *testing.T) {
	t.Run("loadMigrations", func(t *testing.T) {
		migrations, err := loadMigrations()
		if err != nil {
			t.Fatalf("failed to load migrations: %v", err)
		}

		if len(migrations) == 0 {
			t.Fatal("expected at least one migration")
		}

		for i := 1; i < len(migrations); i++ {
			if migrations[i].Version <= migrations[i-1].Version {
				t.Errorf("migrations not sorted: version %d comes after %d", migrations[i].Version, migrations[i-1].Version)
			}
		}

		for _, m := range migrations {
			if m.Up == "" {
				t.Errorf("migration version %d missing up SQL", m.Version)
			}
			if m.Down == "" {
				t.Errorf("migration version %d missing down SQL", m.Version)
			}
		}
	})

	t.Run("RunMigrations And Rollback", func(t *testing.T) {
		db, err := NewDatabase(":memory:")
		if err != nil {
			t.Fatalf("failed to create database: %v", err)
		}
		defer db.Close()

		if err := RunMigrations(context.Background(), db, nil); err != nil {
			t.Fatalf("failed to run migrations: %v", err)
		}

		var count int
		err = db.QueryRow("SELECT COUNT(*) FROM schema_migrations").Scan(&count)
		if err != nil {
			t.Fatalf("failed to query schema_migrations: %v", err)
		}
		if count == 0 {
			t.Error("expected at least one migration to be applied")
		}

		_, err = db.Exec("SELECT 1 FROM downloads LIMIT 1")
		if err != nil {
			t.Errorf("downloads table should exist after migrations: %v", err)
		}

		version, err := RollbackMigration(context.Background(), db, nil)
		if err != nil {
			t.Fatalf("failed to rollback migration: %v", err)
		}
		if version != 0 {
			t.Errorf("expected to roll back version 0, got %d", version)
		}

		if _, err := db.Exec("SELECT 1 FROM downloads LIMIT 1"); err == nil {
			t.Error("downloads table should be dropped after rollback")
		}

		var newCount int
		err = db.QueryRow("SELECT COUNT(*) FROM schema_migrations").Scan(&newCount)
		if err != nil {
			t.Fatalf("failed to query schema_migrations after rollback: %v", err)
		}
		if newCount >= count {
			t.Errorf("expected migration count to decrease after rollback, got %d (was %d)", newCount, count)
		}
	})

	t.Run("Idempotent Migrations", func(t *testing.T) {
		db, err := NewDatabase(":memory:")
		if err != nil {
			t.Fatalf("failed to create database: %v", err)
		}
		defer db.Close()

		if err := RunMigrations(context.Background(), db, nil); err != nil {
			t.Fatalf("failed to run migrations first time: %v", err)
		}

		if err := RunMigrations(context.Background(), db, nil); err != nil {
			t.Fatalf("failed to run migrations second time: %v", err)
		}

		var count int
		err = db.QueryRow("SELECT COUNT(*) FROM schema_migrations").Scan(&count)
		if err != nil {
			t.Fatalf("failed to query schema_migrations: %v", err)
		}

		migrations, _ := loadMigrations()
		if count != len(migrations) {
			t.Errorf("expected %d migrations to be applied, got %d", len(migrations), count)
		}
	})

	t.Run("Rollback Without Migrations", func(t *testing.T) {
		db, err := NewDatabase(":memory:")
		if err != nil {
			t.Fatalf("failed to create database: %v", err)
		}
		defer db.Close()

		if err := RunMigrations(context.Background(), db, nil); err != nil {
			t.Fatalf("failed to run migrations: %v", err)
		}
		if _, err := RollbackMigration(context.Background(), db, nil); err != nil {
			t.Fatalf("first rollback failed: %v", err)
		}

		_, err = RollbackMigration(context.Background(), db, nil)
		if !errors.Is(err, ErrNoMigrations) {
			t.Errorf("expected ErrNoMigrations, got %v", err)
		}
	})

	t.Run("Logs Versions", func(t *testing.T) {
		db, err := NewDatabase(":memory:")
		if err != nil {
			t.Fatalf("failed to create database: %v", err)
		}
		defer db.Close()

		var buf bytes.Buffer
		logger := NewLogger(&buf)
		if err := RunMigrations(context.Background(), db, logger); err != nil {
			t.Fatalf("failed to run migrations: %v", err)
		}
		if !strings.Contains(buf.String(), "applied migration") {
			t.Errorf("expected applied migration log, got %q", buf.String())
		}

		buf.Reset()
		if _, err := RollbackMigration(context.Background(), db, logger); err != nil {
			t.Fatalf("failed to rollback migration: %v", err)
		}
		if !strings.Contains(buf.String(), "rolled back migration") {
			t.Errorf("expected rollback log, got %q", buf.String())
		}
	})

	t.Run("Cancelled Context", func(t *testing.T) {
		db, err := NewDatabase(":memory:")
		if err != nil {
			t.Fatalf("failed to create database: %v", err)
		}
		defer db.Close()

		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		if err := RunMigrations(ctx, db, nil); err == nil {
			t.Error("expected error for cancelled context")
		}
	})
}
