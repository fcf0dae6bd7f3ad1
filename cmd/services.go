/*
 * Copyright 2025 Humaid Alqasimi
 * SPDX-License-Identifier: Apache-2.0
 */
package cmd

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/urfave/cli/v3"

	"github.com/humaidq/qsolog/config"
	"github.com/humaidq/qsolog/db"
	"github.com/humaidq/qsolog/lotw"
	"github.com/humaidq/qsolog/routes"
)

// openDatabase connects the pool and brings the schema up to date.
func openDatabase(ctx context.Context, cfg *config.Config) error {
	appLogger.Info("Connecting to database")

	if err := db.Init(ctx, cfg.DatabaseURL); err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}

	appLogger.Info("Syncing database schema")

	if err := db.SyncSchema(ctx); err != nil {
		db.Close()
		return fmt.Errorf("failed to sync schema: %w", err)
	}

	return nil
}

// lotwComponents are the LOTW pieces wired to the store. Client and
// Uploader are nil when no credentials are configured.
type lotwComponents struct {
	Reconciler *lotw.Reconciler
	Client     *lotw.Client
	Uploader   *lotw.Uploader
}

func newLOTWComponents(cfg *config.Config, pool *pgxpool.Pool) (*lotwComponents, error) {
	store, err := db.NewLOTWStore(pool)
	if err != nil {
		return nil, err
	}

	components := &lotwComponents{Reconciler: lotw.NewReconciler(store)}

	if !cfg.HasLOTWCredentials() {
		return components, nil
	}

	client, err := lotw.NewClient(cfg.LOTWConfig(), components.Reconciler)
	if err != nil {
		return nil, fmt.Errorf("failed to create LOTW client: %w", err)
	}

	components.Client = client
	components.Uploader = lotw.NewUploader(client, store)

	return components, nil
}

// service adapts the components for the web layer, leaving the interface
// fields nil rather than holding typed nil pointers.
func (c *lotwComponents) service() *routes.LOTWService {
	svc := &routes.LOTWService{Reconciler: c.Reconciler}
	if c.Client != nil {
		svc.Client = c.Client
		svc.Uploader = c.Uploader
	}

	return svc
}

// dateFlag parses an optional YYYY-MM-DD flag value.
func dateFlag(cmd *cli.Command, name string) (*time.Time, error) {
	raw := strings.TrimSpace(cmd.String(name))
	if raw == "" {
		return nil, nil
	}

	parsed, err := time.Parse("2006-01-02", raw)
	if err != nil {
		return nil, fmt.Errorf("invalid --%s %q, use YYYY-MM-DD: %w", name, raw, err)
	}

	return &parsed, nil
}
