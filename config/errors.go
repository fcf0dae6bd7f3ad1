/*
 * Copyright 2025 Humaid Alqasimi
 * SPDX-License-Identifier: Apache-2.0
 */
package config

import "errors"

var (
	ErrDatabaseURLRequired = errors.New("database-url is required (set via --database-url, DATABASE_URL or [DB_CONFIG] in config.ini)")
	ErrIncompleteDBConfig  = errors.New("[DB_CONFIG] needs at least host, user and database")
)
