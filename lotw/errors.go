/*
 * Copyright 2025 Humaid Alqasimi
 * SPDX-License-Identifier: Apache-2.0
 */
package lotw

import "errors"

var (
	ErrCredentialsNotConfigured = errors.New("LOTW username and password must be configured")
	ErrReconcilerNotConfigured  = errors.New("LOTW client has no reconciler configured")
	ErrZeroDate                 = errors.New("date must be set")
	ErrDateOutOfRange           = errors.New("date must not be before 1900-01-01")
	ErrDateRangeInverted        = errors.New("start date must not be after end date")
	ErrUnexpectedStatus         = errors.New("LOTW returned unexpected HTTP status")
	ErrInvalidContentType       = errors.New("LOTW returned invalid ADIF data, authentication may have failed or the service is unavailable")
)
