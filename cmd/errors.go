/*
 * Copyright 2025 Humaid Alqasimi
 * SPDX-License-Identifier: Apache-2.0
 */
package cmd

import "errors"

var (
	errMigrationNameRequired = errors.New("migration name is required")
	errCSRFSecretRequired    = errors.New("csrf-secret is required (set via --csrf-secret or CSRF_SECRET env var)")
	errLOTWNotConfigured     = errors.New("LOTW credentials are required (set --lotw-username/--lotw-password, LOTW_USERNAME/LOTW_PASSWORD or [LOTW] in config.ini)")
	errADIFileRequired       = errors.New("path to an ADI file is required")
	errSyncFailed            = errors.New("LOTW operation failed")
)
