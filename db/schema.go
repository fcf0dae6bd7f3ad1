/*
 * Copyright 2025 Humaid Alqasimi
 * SPDX-License-Identifier: Apache-2.0
 */
package db

import (
	"context"
	"database/sql"
	"embed"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/pressly/goose/v3"

	// Register pgx with database/sql for goose migrations.
	_ "github.com/jackc/pgx/v5/stdlib"
)

//go:embed migrations/*.sql
var embedMigrations embed.FS

const (
	migrationsDir = "migrations"

	// baseSchemaVersion is the migration that creates qso_log. Managed
	// columns are ensured between it and the later migrations that index them.
	baseSchemaVersion int64 = 1

	qsoTable = "qso_log"
)

// columnDefinition is a column EnsureQSOColumns may add.
type columnDefinition struct {
	Name       string
	Definition string
}

// qsoColumns are added to qso_log when absent, in order.
var qsoColumns = []columnDefinition{
	{Name: "dxcc", Definition: "TEXT"},
	{Name: "grid", Definition: "TEXT"},
	{Name: "province", Definition: "TEXT"},
	{Name: "band", Definition: "TEXT"},
	{Name: "qslcard", Definition: "SMALLINT NOT NULL DEFAULT 0"},
	{Name: "confirmed", Definition: "BOOLEAN NOT NULL DEFAULT FALSE"},
	{Name: "sync_status", Definition: "SMALLINT NOT NULL DEFAULT 0"},
	{Name: "last_sync_time", Definition: "TIMESTAMPTZ"},
	{Name: "lotw_qsl_rcvd", Definition: "VARCHAR(1)"},
	{Name: "lotw_qsl_sent", Definition: "VARCHAR(1)"},
}

// managedColumns is the allow-list ColumnExists accepts.
var managedColumns = map[string]map[string]struct{}{
	qsoTable: columnSet(
		[]string{"id", "callsign", "frequency", "mode", "equipment", "antenna", "power", "qso_date", "time_on", "notes"},
		qsoColumns,
	),
}

func columnSet(base []string, extra []columnDefinition) map[string]struct{} {
	set := make(map[string]struct{}, len(base)+len(extra))
	for _, name := range base {
		set[name] = struct{}{}
	}

	for _, column := range extra {
		set[column.Name] = struct{}{}
	}

	return set
}

// GetEmbeddedMigrations returns the embedded migrations filesystem for use by CLI commands
func GetEmbeddedMigrations() embed.FS {
	return embedMigrations
}

// SyncSchema runs database migrations using goose and adds any missing
// qso_log columns.
func SyncSchema(ctx context.Context) error {
	if pool == nil {
		return ErrDatabaseConnectionNotInitialized
	}

	if databaseURL == "" {
		return ErrDatabaseURLNotSet
	}

	return migrate(ctx, databaseURL)
}

func migrate(ctx context.Context, url string) error {
	sqlDB, err := sql.Open("pgx", url)
	if err != nil {
		return fmt.Errorf("failed to open database for migrations: %w", err)
	}

	defer func() {
		if err := sqlDB.Close(); err != nil {
			logger.Warn("Failed to close migration connection", "error", err)
		}
	}()

	goose.SetBaseFS(embedMigrations)

	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("failed to set dialect: %w", err)
	}

	if err := goose.UpTo(sqlDB, migrationsDir, baseSchemaVersion); err != nil {
		return fmt.Errorf("failed to run base migration: %w", err)
	}

	if err := EnsureQSOColumns(ctx); err != nil {
		return err
	}

	if err := goose.Up(sqlDB, migrationsDir); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	return nil
}

// EnsureQSOColumns adds every managed qso_log column that does not exist
// yet. Existing columns are never altered.
func EnsureQSOColumns(ctx context.Context) error {
	if pool == nil {
		return ErrDatabaseConnectionNotInitialized
	}

	for _, column := range qsoColumns {
		exists, err := ColumnExists(ctx, qsoTable, column.Name)
		if err != nil {
			return err
		}

		if exists {
			continue
		}

		statement := fmt.Sprintf("ALTER TABLE %s ADD COLUMN IF NOT EXISTS %s %s",
			pgx.Identifier{qsoTable}.Sanitize(),
			pgx.Identifier{column.Name}.Sanitize(),
			column.Definition,
		)

		if _, err := pool.Exec(ctx, statement); err != nil {
			return fmt.Errorf("failed to add column %s: %w", column.Name, err)
		}

		logger.Info("Added column", "table", qsoTable, "column", column.Name)
	}

	return nil
}

// ColumnExists reports whether a managed column is present in the current
// schema. Names outside the allow-list are rejected without a query.
func ColumnExists(ctx context.Context, table, column string) (bool, error) {
	columns, ok := managedColumns[table]
	if !ok {
		return false, fmt.Errorf("%w: %s", ErrUnknownColumn, table)
	}

	if _, ok := columns[column]; !ok {
		return false, fmt.Errorf("%w: %s.%s", ErrUnknownColumn, table, column)
	}

	if pool == nil {
		return false, ErrDatabaseConnectionNotInitialized
	}

	var exists bool

	err := pool.QueryRow(ctx, `
		SELECT EXISTS(
			SELECT 1 FROM information_schema.columns
			WHERE table_schema = current_schema()
				AND table_name = $1
				AND column_name = $2
		)
	`, table, column).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check column %s.%s: %w", table, column, err)
	}

	return exists, nil
}
