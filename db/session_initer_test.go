// SPDX-FileCopyrightText: 2025 Humaid Alqasimi
// SPDX-License-Identifier: Apache-2.0

package db

import (
	"errors"
	"testing"
	"time"
)

func TestPostgresSessionIniterDefaults(t *testing.T) {
	t.Parallel()

	store, err := PostgresSessionIniter()(testContext())
	if err != nil {
		t.Fatalf("PostgresSessionIniter failed: %v", err)
	}

	pgStore, ok := store.(*PostgresSessionStore)
	if !ok {
		t.Fatalf("expected PostgresSessionStore")
	}

	if pgStore.config.TableName != "flamego_sessions" || pgStore.table != `"flamego_sessions"` {
		t.Fatalf("expected default table name, got %q (%q)", pgStore.config.TableName, pgStore.table)
	}

	if pgStore.config.Lifetime != 7*24*time.Hour {
		t.Fatalf("expected default lifetime, got %v", pgStore.config.Lifetime)
	}

	if pgStore.config.Encoder == nil || pgStore.config.Decoder == nil {
		t.Fatalf("expected encoder and decoder to be set")
	}
}

func TestPostgresSessionIniterQuotesTableName(t *testing.T) {
	t.Parallel()

	store, err := PostgresSessionIniter()(testContext(), PostgresSessionConfig{TableName: `s"x`})
	if err != nil {
		t.Fatalf("PostgresSessionIniter failed: %v", err)
	}

	if got := store.(*PostgresSessionStore).table; got != `"s""x"` {
		t.Fatalf("expected quoted identifier, got %q", got)
	}
}

func TestPostgresSessionStoreRequiresPool(t *testing.T) {
	if pool != nil {
		t.Skip("pool is initialized")
	}

	store, err := PostgresSessionIniter()(testContext())
	if err != nil {
		t.Fatalf("PostgresSessionIniter failed: %v", err)
	}

	if store.Exist(testContext(), "sid") {
		t.Fatal("expected Exist to be false without a pool")
	}

	if _, err := store.Read(testContext(), "sid"); !errors.Is(err, ErrDatabaseConnectionNotInitialized) {
		t.Fatalf("expected ErrDatabaseConnectionNotInitialized from Read, got %v", err)
	}

	if err := store.GC(testContext()); !errors.Is(err, ErrDatabaseConnectionNotInitialized) {
		t.Fatalf("expected ErrDatabaseConnectionNotInitialized from GC, got %v", err)
	}
}

func TestPostgresSessionIniterInvalidConfig(t *testing.T) {
	t.Parallel()

	if _, err := PostgresSessionIniter()(testContext(), "invalid"); !errors.Is(err, ErrInvalidSessionConfig) {
		t.Fatalf("expected ErrInvalidSessionConfig, got %v", err)
	}
}
