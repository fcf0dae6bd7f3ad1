// SPDX-FileCopyrightText: 2025 Humaid Alqasimi
// SPDX-License-Identifier: Apache-2.0

package db

import (
	"context"
	"testing"
)

func testContext() context.Context {
	return context.Background()
}

func requireDatabase(t *testing.T) {
	t.Helper()

	if pool == nil {
		t.Skip("DATABASE_URL not set")
	}
}

func stringPtr(value string) *string {
	return &value
}

func floatPtr(value float64) *float64 {
	return &value
}

func sampleQSOInput(callsign string) QSOInput {
	return QSOInput{
		Callsign:  callsign,
		QSODate:   "20230101",
		TimeOn:    "1200",
		Band:      "20m",
		Mode:      "SSB",
		Frequency: floatPtr(14.2),
		Equipment: stringPtr("IC-7300"),
		Power:     floatPtr(100),
		Grid:      stringPtr("FN31"),
	}
}

func mustCreateQSO(t *testing.T, input QSOInput) int64 {
	t.Helper()

	id, err := CreateQSO(testContext(), input)
	if err != nil {
		t.Fatalf("failed to create QSO: %v", err)
	}

	return id
}
