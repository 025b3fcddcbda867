package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"

	"github.com/udisondev/wayfinder/internal/db/migrations"
)

// JournalSchemaVersion is the newest embedded journal migration.
const JournalSchemaVersion int64 = 1

// ErrJournalSchemaAhead is returned when the database was migrated by a newer build.
var ErrJournalSchemaAhead = errors.New("journal schema is newer than this build")

// RunMigrations brings the journal tables (runs, transitions) up to date and
// returns the resulting schema version.
func RunMigrations(ctx context.Context, dsn string) (int64, error) {
	sqlDB, err := sql.Open("pgx", dsn)
	if err != nil {
		return 0, fmt.Errorf("opening sql connection for migrations: %w", err)
	}
	defer sqlDB.Close()

	goose.SetBaseFS(migrations.FS)
	if err := goose.SetDialect("postgres"); err != nil {
		return 0, fmt.Errorf("setting goose dialect: %w", err)
	}

	before, err := goose.GetDBVersionContext(ctx, sqlDB)
	if err != nil {
		return 0, fmt.Errorf("reading journal schema version: %w", err)
	}
	if before > JournalSchemaVersion {
		return before, fmt.Errorf("%w: database at %d, build knows %d",
			ErrJournalSchemaAhead, before, JournalSchemaVersion)
	}

	if err := goose.UpContext(ctx, sqlDB, "."); err != nil {
		return before, fmt.Errorf("running migrations: %w", err)
	}

	after, err := goose.GetDBVersionContext(ctx, sqlDB)
	if err != nil {
		return 0, fmt.Errorf("reading journal schema version: %w", err)
	}
	if after != before {
		slog.Info("journal schema migrated", "from", before, "to", after)
	}
	return after, nil
}
