/*
 * Copyright 2025 Humaid Alqasimi
 * SPDX-License-Identifier: Apache-2.0
 */
package db

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/humaidq/qsolog/lotw"
)

// SyncRunKind names the LOTW operation a run performed.
type SyncRunKind string

const (
	SyncRunUpload      SyncRunKind = "upload"
	SyncRunDownloadQSL SyncRunKind = "download_qsl"
	SyncRunDownloadAll SyncRunKind = "download_all"
	SyncRunProcess     SyncRunKind = "process"
)

// SyncRun is a recorded LOTW operation.
type SyncRun struct {
	ID          uuid.UUID        `json:"id"`
	Kind        SyncRunKind      `json:"kind"`
	StartedAt   time.Time        `json:"started_at"`
	FinishedAt  time.Time        `json:"finished_at"`
	Success     bool             `json:"success"`
	FailureKind lotw.FailureKind `json:"failure_kind"`
	Message     string           `json:"message"`
	Added       int              `json:"added"`
	Updated     int              `json:"updated"`
	FilePath    *string          `json:"file_path"`
}

// Duration returns how long the run took.
func (r *SyncRun) Duration() time.Duration {
	return r.FinishedAt.Sub(r.StartedAt)
}

// NewSyncRun builds a run record from an operation outcome.
func NewSyncRun(kind SyncRunKind, startedAt time.Time, outcome lotw.Outcome) SyncRun {
	run := SyncRun{
		Kind:        kind,
		StartedAt:   startedAt,
		FinishedAt:  time.Now(),
		Success:     outcome.Success,
		FailureKind: outcome.Kind,
		Message:     outcome.Message,
		Added:       outcome.Added,
		Updated:     outcome.Updated,
	}

	if outcome.Path != "" {
		path := outcome.Path
		run.FilePath = &path
	}

	return run
}

// RecordSyncRun stores run and returns its ID.
func RecordSyncRun(ctx context.Context, run SyncRun) (uuid.UUID, error) {
	if pool == nil {
		return uuid.Nil, ErrDatabaseConnectionNotInitialized
	}

	if run.ID == uuid.Nil {
		run.ID = uuid.New()
	}

	_, err := pool.Exec(ctx, `
		INSERT INTO lotw_sync_runs (
			id, kind, started_at, finished_at, success,
			failure_kind, message, added, updated, file_path
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`,
		run.ID, string(run.Kind), run.StartedAt, run.FinishedAt, run.Success,
		string(run.FailureKind), run.Message, run.Added, run.Updated, run.FilePath,
	)
	if err != nil {
		return uuid.Nil, fmt.Errorf("failed to record sync run: %w", err)
	}

	return run.ID, nil
}

// ListSyncRuns returns the most recent runs first.
func ListSyncRuns(ctx context.Context, limit int) ([]SyncRun, error) {
	if pool == nil {
		return nil, ErrDatabaseConnectionNotInitialized
	}

	rows, err := pool.Query(ctx, `
		SELECT id, kind, started_at, finished_at, success,
			failure_kind, message, added, updated, file_path
		FROM lotw_sync_runs
		ORDER BY started_at DESC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query sync runs: %w", err)
	}
	defer rows.Close()

	var runs []SyncRun

	for rows.Next() {
		var (
			run         SyncRun
			kind        string
			failureKind string
		)

		err := rows.Scan(
			&run.ID,
			&kind,
			&run.StartedAt,
			&run.FinishedAt,
			&run.Success,
			&failureKind,
			&run.Message,
			&run.Added,
			&run.Updated,
			&run.FilePath,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan sync run: %w", err)
		}

		run.Kind = SyncRunKind(kind)
		run.FailureKind = lotw.FailureKind(failureKind)
		runs = append(runs, run)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating sync runs: %w", err)
	}

	return runs, nil
}
