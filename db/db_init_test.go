// SPDX-FileCopyrightText: 2025 Humaid Alqasimi
// SPDX-License-Identifier: Apache-2.0

package db

import (
	"errors"
	"os"
	"testing"
)

func TestInitRequiresDatabaseURL(t *testing.T) {
	if err := Init(testContext(), "  "); !errors.Is(err, ErrDatabaseURLNotSet) {
		t.Fatalf("expected ErrDatabaseURLNotSet, got %v", err)
	}
}

func TestInitRequiresDatabaseName(t *testing.T) {
	err := Init(testContext(), "postgres://localhost:1")
	if !errors.Is(err, ErrDatabaseNameNotSpecified) {
		t.Fatalf("expected ErrDatabaseNameNotSpecified, got %v", err)
	}
}

func TestGetPoolAndClose(t *testing.T) {
	requireDatabase(t)

	if GetPool() == nil {
		t.Fatalf("expected pool to be initialized")
	}

	Close()

	if GetPool() != nil {
		t.Fatalf("expected pool to be cleared after Close")
	}

	if err := initTestPool(testContext(), os.Getenv("DATABASE_URL"), testSchemaName); err != nil {
		t.Fatalf("failed to re-init pool: %v", err)
	}
}

func TestSyncSchemaIsRepeatable(t *testing.T) {
	requireDatabase(t)

	for i := 0; i < 2; i++ {
		if err := SyncSchema(testContext()); err != nil {
			t.Fatalf("SyncSchema run %d failed: %v", i+1, err)
		}
	}
}

func TestSyncSchemaRequiresPool(t *testing.T) {
	if pool != nil {
		t.Skip("pool is initialized")
	}

	if err := SyncSchema(testContext()); !errors.Is(err, ErrDatabaseConnectionNotInitialized) {
		t.Fatalf("expected ErrDatabaseConnectionNotInitialized, got %v", err)
	}
}

func TestInitSuccess(t *testing.T) {
	requireDatabase(t)

	baseURL := os.Getenv("DATABASE_URL")

	Close()

	if err := Init(testContext(), baseURL); err != nil {
		t.Fatalf("Init failed: %v", err)
	}

	if GetPool() == nil {
		t.Fatalf("expected pool to be initialized")
	}

	Close()

	// Init points databaseURL at the base URL; restore the test schema.
	searchPathURL, err := withSearchPath(baseURL, testSchemaName)
	if err != nil {
		t.Fatalf("withSearchPath failed: %v", err)
	}

	databaseURL = searchPathURL

	if err := initTestPool(testContext(), baseURL, testSchemaName); err != nil {
		t.Fatalf("failed to re-init pool: %v", err)
	}
}
