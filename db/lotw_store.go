/*
 * Copyright 2025 Humaid Alqasimi
 * SPDX-License-Identifier: Apache-2.0
 */
package db

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/humaidq/qsolog/lotw"
)

// LOTWStore is the qso_log persistence used by LOTW reconciliation and
// uploads. Each write runs in its own transaction.
type LOTWStore struct {
	pool *pgxpool.Pool
}

var (
	_ lotw.Store              = (*LOTWStore)(nil)
	_ lotw.PendingUploadStore = (*LOTWStore)(nil)
)

// NewLOTWStore returns a store backed by p.
func NewLOTWStore(p *pgxpool.Pool) (*LOTWStore, error) {
	if p == nil {
		return nil, ErrDatabaseConnectionNotInitialized
	}

	return &LOTWStore{pool: p}, nil
}

// FindByKey returns the lowest-id QSO matching key, or nil.
func (s *LOTWStore) FindByKey(ctx context.Context, key lotw.Key) (*lotw.StoredQSO, error) {
	var found lotw.StoredQSO

	err := s.pool.QueryRow(ctx, `
		SELECT id, confirmed
		FROM qso_log
		WHERE callsign = $1
			AND qso_date = $2
			AND time_on = $3
			AND band = $4
			AND mode = $5
		ORDER BY id
		LIMIT 1
	`, key.Callsign, key.QSODate, key.TimeOn, key.Band, key.Mode).Scan(&found.ID, &found.Confirmed)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}

		return nil, fmt.Errorf("failed to find QSO by key: %w", err)
	}

	return &found, nil
}

// Insert adds a QSO reported by LOTW. LOTW already holds it, so it is stored
// as sent and never offered for upload.
func (s *LOTWStore) Insert(ctx context.Context, qso lotw.NewQSO) (int64, error) {
	var id int64

	err := pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		return tx.QueryRow(ctx, `
			INSERT INTO qso_log (
				callsign, qso_date, time_on, band, mode,
				confirmed, lotw_qsl_rcvd, lotw_qsl_sent, dxcc, grid, province
			) VALUES ($1, $2, $3, $4, $5, $6, $7, 'Y', $8, $9, $10)
			RETURNING id
		`,
			qso.Callsign, qso.QSODate, qso.TimeOn, qso.Band, qso.Mode,
			qso.Confirmed, qso.LOTWQSLRcvd,
			nullableValue(qso.DXCC), nullableValue(qso.Grid), nullableValue(qso.Province),
		).Scan(&id)
	})
	if err != nil {
		return 0, fmt.Errorf("failed to insert LOTW QSO: %w", err)
	}

	return id, nil
}

// MarkConfirmed records a LOTW confirmation on an existing QSO.
func (s *LOTWStore) MarkConfirmed(ctx context.Context, id int64, syncedAt time.Time) error {
	err := pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, `
			UPDATE qso_log
			SET confirmed = TRUE,
				lotw_qsl_rcvd = 'Y',
				last_sync_time = $1
			WHERE id = $2
		`, syncedAt, id)
		if err != nil {
			return err
		}

		if tag.RowsAffected() == 0 {
			return ErrQSONotFound
		}

		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to confirm QSO %d: %w", id, err)
	}

	return nil
}

// ListPendingUploads returns QSOs not yet sent to LOTW, oldest first.
func (s *LOTWStore) ListPendingUploads(ctx context.Context) ([]lotw.PendingQSO, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, callsign, qso_date, time_on, COALESCE(band, ''), mode,
			frequency, power, dxcc, grid, province
		FROM qso_log
		WHERE lotw_qsl_sent IS DISTINCT FROM 'Y'
		ORDER BY qso_date, time_on, id
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query pending uploads: %w", err)
	}
	defer rows.Close()

	var pending []lotw.PendingQSO

	for rows.Next() {
		var qso lotw.PendingQSO

		err := rows.Scan(
			&qso.ID,
			&qso.Key.Callsign,
			&qso.Key.QSODate,
			&qso.Key.TimeOn,
			&qso.Key.Band,
			&qso.Key.Mode,
			&qso.Frequency,
			&qso.Power,
			&qso.DXCC,
			&qso.Grid,
			&qso.Province,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan pending upload: %w", err)
		}

		pending = append(pending, qso)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating pending uploads: %w", err)
	}

	return pending, nil
}

// SetUploadStatus updates the sync state of ids. When sent is true the QSOs
// are also marked as sent. last_sync_time is left to reconciliation.
func (s *LOTWStore) SetUploadStatus(ctx context.Context, ids []int64, status lotw.SyncStatus, sent bool) error {
	if len(ids) == 0 {
		return nil
	}

	err := pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		if sent {
			_, err := tx.Exec(ctx, `
				UPDATE qso_log
				SET sync_status = $1,
					lotw_qsl_sent = 'Y'
				WHERE id = ANY($2)
			`, int16(status), ids)

			return err
		}

		_, err := tx.Exec(ctx, `UPDATE qso_log SET sync_status = $1 WHERE id = ANY($2)`, int16(status), ids)

		return err
	})
	if err != nil {
		return fmt.Errorf("failed to set upload status: %w", err)
	}

	return nil
}
