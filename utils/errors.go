/*
 * Copyright 2025 Humaid Alqasimi
 * SPDX-License-Identifier: Apache-2.0
 */
package utils

import "errors"

var errInvalidGridSquare = errors.New("invalid grid square")
