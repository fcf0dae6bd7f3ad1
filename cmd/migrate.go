/*
 * Copyright 2025 Humaid Alqasimi
 * SPDX-License-Identifier: Apache-2.0
 */
package cmd

import (
	"context"
	"database/sql"
	"fmt"
	"os"

	"github.com/pressly/goose/v3"
	"github.com/urfave/cli/v3"

	"github.com/humaidq/qsolog/config"
	"github.com/humaidq/qsolog/db"

	_ "github.com/jackc/pgx/v5/stdlib"
)

const migrationsDir = "migrations"

var CmdMigrate = &cli.Command{
	Name:  "migrate",
	Usage: "Database migration commands",
	Flags: config.Flags(),
	Commands: []*cli.Command{
		{
			Name:   "up",
			Usage:  "Run all pending migrations",
			Action: migrateUp,
		},
		{
			Name:   "down",
			Usage:  "Roll back the last migration",
			Action: migrateDown,
		},
		{
			Name:   "status",
			Usage:  "Show migration status",
			Action: migrateStatus,
		},
		{
			Name:      "create",
			Usage:     "Create a new SQL migration file",
			ArgsUsage: "<name>",
			Action:    migrateCreate,
		},
		{
			Name:   "version",
			Usage:  "Print the current version of the database",
			Action: migrateVersion,
		},
	},
}

// openMigrationDB opens a database/sql handle for goose against the
// embedded migrations.
func openMigrationDB(ctx context.Context, cmd *cli.Command) (*sql.DB, error) {
	cfg, err := config.FromCommand(cmd)
	if err != nil {
		return nil, err
	}

	sqlDB, err := sql.Open("pgx", cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := sqlDB.PingContext(ctx); err != nil {
		closeMigrationDB(sqlDB)
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	goose.SetBaseFS(db.GetEmbeddedMigrations())
	goose.SetLogger(gooseLogger{})

	if err := goose.SetDialect("postgres"); err != nil {
		closeMigrationDB(sqlDB)
		return nil, fmt.Errorf("failed to set dialect: %w", err)
	}

	return sqlDB, nil
}

func closeMigrationDB(sqlDB *sql.DB) {
	if err := sqlDB.Close(); err != nil {
		appLogger.Warn("Failed to close migration connection", "error", err)
	}
}

func migrateUp(ctx context.Context, cmd *cli.Command) error {
	sqlDB, err := openMigrationDB(ctx, cmd)
	if err != nil {
		return err
	}
	defer closeMigrationDB(sqlDB)

	if err := goose.UpContext(ctx, sqlDB, migrationsDir); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	appLogger.Info("Migrations completed")

	return nil
}

func migrateDown(ctx context.Context, cmd *cli.Command) error {
	sqlDB, err := openMigrationDB(ctx, cmd)
	if err != nil {
		return err
	}
	defer closeMigrationDB(sqlDB)

	if err := goose.DownContext(ctx, sqlDB, migrationsDir); err != nil {
		return fmt.Errorf("failed to roll back migration: %w", err)
	}

	appLogger.Info("Migration rolled back")

	return nil
}

func migrateStatus(ctx context.Context, cmd *cli.Command) error {
	sqlDB, err := openMigrationDB(ctx, cmd)
	if err != nil {
		return err
	}
	defer closeMigrationDB(sqlDB)

	if err := goose.StatusContext(ctx, sqlDB, migrationsDir); err != nil {
		return fmt.Errorf("failed to get migration status: %w", err)
	}

	return nil
}

func migrateVersion(ctx context.Context, cmd *cli.Command) error {
	sqlDB, err := openMigrationDB(ctx, cmd)
	if err != nil {
		return err
	}
	defer closeMigrationDB(sqlDB)

	version, err := goose.GetDBVersionContext(ctx, sqlDB)
	if err != nil {
		return fmt.Errorf("failed to get database version: %w", err)
	}

	fmt.Printf("Database version: %d\n", version)

	return nil
}

// migrateCreate writes a new migration into the source tree, so it only
// works from a checkout.
func migrateCreate(_ context.Context, cmd *cli.Command) error {
	name := cmd.Args().First()
	if name == "" {
		return errMigrationNameRequired
	}

	dir := "db/migrations"
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create migrations directory: %w", err)
	}

	if err := goose.Create(nil, dir, name, "sql"); err != nil {
		return fmt.Errorf("failed to create migration: %w", err)
	}

	return nil
}

// gooseLogger routes goose output through the application logger.
type gooseLogger struct{}

func (gooseLogger) Printf(format string, v ...interface{}) {
	appLogger.Infof(format, v...)
}

func (gooseLogger) Fatalf(format string, v ...interface{}) {
	appLogger.Fatalf(format, v...)
}
