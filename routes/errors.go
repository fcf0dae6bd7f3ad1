/*
 * Copyright 2025 Humaid Alqasimi
 * SPDX-License-Identifier: Apache-2.0
 */
package routes

import "errors"

var (
	errMissingDate       = errors.New("missing date")
	errInvalidDate       = errors.New("invalid date")
	errMissingTime       = errors.New("missing time")
	errInvalidTime       = errors.New("invalid time")
	errHourOutOfRange    = errors.New("hour out of range")
	errMinuteOutOfRange  = errors.New("minute out of range")
	errSecondOutOfRange  = errors.New("second out of range")
	errInvalidQSOID      = errors.New("invalid QSO ID")
	errLOTWNotConfigured = errors.New("LOTW credentials are not configured")
)
