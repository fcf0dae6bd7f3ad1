/*
 * Copyright 2025 Humaid Alqasimi
 * SPDX-License-Identifier: Apache-2.0
 */
package lotw

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/humaidq/qsolog/utils"
)

// Key identifies a contact for de-duplication.
type Key struct {
	Callsign string
	QSODate  string
	TimeOn   string
	Band     string
	Mode     string
}

// StoredQSO is the part of an existing log entry reconciliation reads.
type StoredQSO struct {
	ID        int64
	Confirmed bool
}

// NewQSO is a log entry created from a LOTW record.
type NewQSO struct {
	Key
	Confirmed   bool
	LOTWQSLRcvd string
	DXCC        *string
	Grid        *string
	Province    *string
}

// Store is the persistence reconciliation runs against.
type Store interface {
	// FindByKey returns the first entry matching key exactly, or nil.
	FindByKey(ctx context.Context, key Key) (*StoredQSO, error)
	Insert(ctx context.Context, qso NewQSO) (int64, error)
	// MarkConfirmed sets confirmed, lotw_qsl_rcvd='Y' and the sync time.
	MarkConfirmed(ctx context.Context, id int64, syncedAt time.Time) error
}

// Result counts what a reconciliation pass changed.
type Result struct {
	Added   int
	Updated int
	Skipped int
}

// Reconciler merges LOTW records into the log.
type Reconciler struct {
	store Store
	now   func() time.Time
}

// NewReconciler returns a reconciler backed by store.
func NewReconciler(store Store) *Reconciler {
	return &Reconciler{store: store, now: time.Now}
}

var requiredADIFTags = []string{"CALL", "QSO_DATE", "TIME_ON", "BAND", "MODE"}

// Reconcile applies records in order. A record missing a key field is
// skipped. A new key is inserted; an existing unconfirmed entry is confirmed
// when LOTW reports a QSL; anything else is left alone, so re-running the
// same export changes nothing. The first store error stops the pass and is
// returned with the counts reached so far.
func (r *Reconciler) Reconcile(ctx context.Context, records []*utils.ADIRecord) (Result, error) {
	var result Result

	for _, record := range records {
		key, ok := keyFromRecord(record)
		if !ok {
			result.Skipped++
			continue
		}

		existing, err := r.store.FindByKey(ctx, key)
		if err != nil {
			return result, fmt.Errorf("failed to look up QSO %s: %w", key.Callsign, err)
		}

		confirmed := strings.EqualFold(strings.TrimSpace(record.Value("LOTW_QSL_RCVD")), "Y")

		switch {
		case existing == nil:
			qso := NewQSO{
				Key:         key,
				Confirmed:   confirmed,
				LOTWQSLRcvd: "N",
				DXCC:        optionalTag(record, "DXCC"),
				Grid:        optionalTag(record, "GRIDSQUARE"),
				Province:    optionalTag(record, "STATE"),
			}
			if confirmed {
				qso.LOTWQSLRcvd = "Y"
			}

			if _, err := r.store.Insert(ctx, qso); err != nil {
				return result, fmt.Errorf("failed to insert QSO %s: %w", key.Callsign, err)
			}

			result.Added++
		case !existing.Confirmed && confirmed:
			if err := r.store.MarkConfirmed(ctx, existing.ID, r.now()); err != nil {
				return result, fmt.Errorf("failed to confirm QSO %d: %w", existing.ID, err)
			}

			result.Updated++
		}
	}

	logger.Info("Reconciled LOTW records", "records", len(records), "added", result.Added, "updated", result.Updated, "skipped", result.Skipped)

	return result, nil
}

// ReconcileADI parses text and reconciles the records in it.
func (r *Reconciler) ReconcileADI(ctx context.Context, text string) (Result, error) {
	return r.Reconcile(ctx, utils.ParseADI(text))
}

// ProcessFile reconciles a saved LOTW download.
func (r *Reconciler) ProcessFile(ctx context.Context, path string) (Result, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return Result{}, fmt.Errorf("failed to read ADIF file: %w", err)
	}

	return r.ReconcileADI(ctx, string(content))
}

// keyFromRecord reports false when a key tag is missing or blank. A present
// but empty tag such as <BAND:0> cannot identify a QSO.
func keyFromRecord(record *utils.ADIRecord) (Key, bool) {
	values := make([]string, len(requiredADIFTags))

	for i, tag := range requiredADIFTags {
		value := strings.TrimSpace(record.Value(tag))
		if value == "" {
			return Key{}, false
		}

		values[i] = value
	}

	return Key{
		Callsign: values[0],
		QSODate:  values[1],
		TimeOn:   values[2],
		Band:     values[3],
		Mode:     values[4],
	}, true
}

func optionalTag(record *utils.ADIRecord, tag string) *string {
	value := strings.TrimSpace(record.Value(tag))
	if value == "" {
		return nil
	}

	return &value
}
