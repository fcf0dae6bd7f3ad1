/*
 * Copyright 2025 Humaid Alqasimi
 * SPDX-License-Identifier: Apache-2.0
 */
package db

import "errors"

var (
	ErrDatabaseURLNotSet                = errors.New("database URL is not set (use --database-url or DATABASE_URL)")
	ErrDatabaseNameNotSpecified         = errors.New("database name not specified in connection URL")
	ErrDatabaseConnectionNotInitialized = errors.New("database connection not initialized")
	ErrQSONotFound                      = errors.New("QSO not found")
	ErrUnknownColumn                    = errors.New("column is not managed by the schema")
	ErrInvalidSessionConfig             = errors.New("invalid PostgresSessionConfig")
)
