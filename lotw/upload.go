/*
 * Copyright 2025 Humaid Alqasimi
 * SPDX-License-Identifier: Apache-2.0
 */
package lotw

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/humaidq/qsolog/utils"
)

// SyncStatus tracks a log entry's progress towards LOTW.
type SyncStatus int

const (
	SyncStatusUnsynced SyncStatus = iota
	SyncStatusSyncing
	SyncStatusSynced
	SyncStatusFailed
)

// String returns the label shown in the UI.
func (s SyncStatus) String() string {
	switch s {
	case SyncStatusUnsynced:
		return "unsynced"
	case SyncStatusSyncing:
		return "syncing"
	case SyncStatusSynced:
		return "synced"
	case SyncStatusFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// PendingQSO is a log entry that has not been sent to LOTW yet.
type PendingQSO struct {
	ID        int64
	Key       Key
	Frequency *float64
	Power     *float64
	DXCC      *string
	Grid      *string
	Province  *string
}

// ADIRecord converts the entry to the fields LOTW accepts.
func (p PendingQSO) ADIRecord() *utils.ADIRecord {
	record := utils.NewADIRecordFromFields(
		utils.ADIField{Tag: "CALL", Value: p.Key.Callsign},
		utils.ADIField{Tag: "QSO_DATE", Value: p.Key.QSODate},
		utils.ADIField{Tag: "TIME_ON", Value: p.Key.TimeOn},
		utils.ADIField{Tag: "BAND", Value: p.Key.Band},
		utils.ADIField{Tag: "MODE", Value: p.Key.Mode},
	)

	if p.Frequency != nil {
		record.Set("FREQ", strconv.FormatFloat(*p.Frequency, 'f', -1, 64))
	}

	if p.Power != nil {
		record.Set("TX_PWR", strconv.FormatFloat(*p.Power, 'f', -1, 64))
	}

	if p.DXCC != nil {
		record.Set("DXCC", *p.DXCC)
	}

	if p.Grid != nil {
		record.Set("GRIDSQUARE", *p.Grid)
	}

	if p.Province != nil {
		record.Set("STATE", *p.Province)
	}

	return record
}

// PendingUploadStore is the persistence the upload pipeline needs.
type PendingUploadStore interface {
	ListPendingUploads(ctx context.Context) ([]PendingQSO, error)
	// SetUploadStatus updates sync_status for ids, and sets lotw_qsl_sent
	// to 'Y' when sent is true.
	SetUploadStatus(ctx context.Context, ids []int64, status SyncStatus, sent bool) error
}

// Submitter sends an ADI document to LOTW.
type Submitter interface {
	SubmitLog(ctx context.Context, adi string, qsoDate *time.Time) Outcome
}

// Uploader sends unsent log entries to LOTW.
type Uploader struct {
	submitter Submitter
	store     PendingUploadStore
}

// NewUploader returns an uploader.
func NewUploader(submitter Submitter, store PendingUploadStore) *Uploader {
	return &Uploader{submitter: submitter, store: store}
}

// UploadPending submits every unsent entry in one ADI document and records
// the result on each entry. Store errors are returned; LOTW failures are
// reported in the outcome.
func (u *Uploader) UploadPending(ctx context.Context, qsoDate *time.Time) (Outcome, error) {
	pending, err := u.store.ListPendingUploads(ctx)
	if err != nil {
		return Outcome{}, fmt.Errorf("failed to list pending uploads: %w", err)
	}

	if len(pending) == 0 {
		return Outcome{Success: true, Message: "Nothing to upload"}, nil
	}

	ids := make([]int64, 0, len(pending))
	records := make([]*utils.ADIRecord, 0, len(pending))

	for _, qso := range pending {
		ids = append(ids, qso.ID)
		records = append(records, qso.ADIRecord())
	}

	if err := u.store.SetUploadStatus(ctx, ids, SyncStatusSyncing, false); err != nil {
		return Outcome{}, fmt.Errorf("failed to mark QSOs as syncing: %w", err)
	}

	outcome := u.submitter.SubmitLog(ctx, utils.SerializeADI(records), qsoDate)

	status := SyncStatusFailed
	if outcome.Success {
		status = SyncStatusSynced
	}

	if err := u.store.SetUploadStatus(ctx, ids, status, outcome.Success); err != nil {
		return outcome, fmt.Errorf("failed to record upload status: %w", err)
	}

	if outcome.Success {
		outcome.Message = fmt.Sprintf("Uploaded %d QSOs to LOTW", len(ids))
	}

	logger.Info("LOTW upload finished", "qsos", len(ids), "success", outcome.Success)

	return outcome, nil
}
