// SPDX-FileCopyrightText: 2025 Humaid Alqasimi
// SPDX-License-Identifier: Apache-2.0

package db

import (
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/humaidq/qsolog/lotw"
)

func TestNewSyncRun(t *testing.T) {
	t.Parallel()

	started := time.Now().Add(-time.Second)

	run := NewSyncRun(SyncRunDownloadAll, started, lotw.Outcome{
		Success:    true,
		Message:    "done",
		Path:       "download/lotw_qso_20240101_000000.adi",
		Reconciled: true,
		Added:      2,
		Updated:    1,
	})

	if run.Kind != SyncRunDownloadAll || !run.Success || run.Added != 2 || run.Updated != 1 {
		t.Fatalf("unexpected run %+v", run)
	}

	if run.FilePath == nil || *run.FilePath != "download/lotw_qso_20240101_000000.adi" {
		t.Fatalf("expected file path, got %v", run.FilePath)
	}

	if run.Duration() <= 0 {
		t.Fatalf("expected positive duration, got %v", run.Duration())
	}

	failed := NewSyncRun(SyncRunUpload, started, lotw.Outcome{Kind: lotw.FailureRejected, Message: "no"})
	if failed.Success || failed.FailureKind != lotw.FailureRejected || failed.FilePath != nil {
		t.Fatalf("unexpected failed run %+v", failed)
	}
}

func TestSyncRunHistory(t *testing.T) {
	resetDatabase(t)
	ctx := testContext()

	base := time.Date(2024, time.May, 1, 10, 0, 0, 0, time.UTC)

	first := NewSyncRun(SyncRunDownloadQSL, base, lotw.Outcome{Success: true, Path: "a.adi"})
	second := NewSyncRun(SyncRunUpload, base.Add(time.Hour), lotw.Outcome{Kind: lotw.FailureNetwork, Message: "offline"})

	firstID, err := RecordSyncRun(ctx, first)
	if err != nil {
		t.Fatalf("RecordSyncRun failed: %v", err)
	}

	if firstID == uuid.Nil {
		t.Fatalf("expected generated id")
	}

	if _, err := RecordSyncRun(ctx, second); err != nil {
		t.Fatalf("RecordSyncRun failed: %v", err)
	}

	runs, err := ListSyncRuns(ctx, 10)
	if err != nil {
		t.Fatalf("ListSyncRuns failed: %v", err)
	}

	if len(runs) != 2 {
		t.Fatalf("expected 2 runs, got %d", len(runs))
	}

	if runs[0].Kind != SyncRunUpload || runs[0].FailureKind != lotw.FailureNetwork || runs[0].Message != "offline" {
		t.Fatalf("expected newest run first, got %+v", runs[0])
	}

	if runs[1].ID != firstID || runs[1].FilePath == nil || *runs[1].FilePath != "a.adi" {
		t.Fatalf("unexpected first run %+v", runs[1])
	}
}
