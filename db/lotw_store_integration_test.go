// SPDX-FileCopyrightText: 2025 Humaid Alqasimi
// SPDX-License-Identifier: Apache-2.0

package db

import (
	"testing"

	"github.com/humaidq/qsolog/lotw"
)

const w1awConfirmedADI = "<CALL:4>W1AW<QSO_DATE:8>20230101<TIME_ON:4>1200<BAND:3>20m<MODE:3>SSB<LOTW_QSL_RCVD:1>Y<EOR>"

func newTestLOTWStore(t *testing.T) *LOTWStore {
	t.Helper()

	store, err := NewLOTWStore(pool)
	if err != nil {
		t.Fatalf("NewLOTWStore failed: %v", err)
	}

	return store
}

func TestNewLOTWStoreRequiresPool(t *testing.T) {
	t.Parallel()

	if _, err := NewLOTWStore(nil); err != ErrDatabaseConnectionNotInitialized {
		t.Fatalf("expected ErrDatabaseConnectionNotInitialized, got %v", err)
	}
}

func TestLOTWStoreReconcileInsertsOnce(t *testing.T) {
	resetDatabase(t)
	ctx := testContext()

	reconciler := lotw.NewReconciler(newTestLOTWStore(t))

	result, err := reconciler.ReconcileADI(ctx, w1awConfirmedADI)
	if err != nil {
		t.Fatalf("ReconcileADI failed: %v", err)
	}

	if result.Added != 1 || result.Updated != 0 {
		t.Fatalf("expected 1 added, got %+v", result)
	}

	qsos, err := ListQSOs(ctx)
	if err != nil {
		t.Fatalf("ListQSOs failed: %v", err)
	}

	if len(qsos) != 1 || !qsos[0].Confirmed || *qsos[0].LOTWQSLRcvd != "Y" {
		t.Fatalf("unexpected QSOs %+v", qsos)
	}

	if qsos[0].DXCC != nil || qsos[0].Grid != nil || qsos[0].Province != nil {
		t.Fatalf("expected optional fields to be NULL, got %+v", qsos[0])
	}

	result, err = reconciler.ReconcileADI(ctx, w1awConfirmedADI)
	if err != nil {
		t.Fatalf("second ReconcileADI failed: %v", err)
	}

	if result.Added != 0 || result.Updated != 0 {
		t.Fatalf("expected no-op, got %+v", result)
	}

	count, err := CountQSOs(ctx)
	if err != nil || count != 1 {
		t.Fatalf("expected 1 QSO, got %d (%v)", count, err)
	}
}

func TestLOTWStoreConfirmsExistingQSO(t *testing.T) {
	resetDatabase(t)
	ctx := testContext()

	id := mustCreateQSO(t, sampleQSOInput("W1AW"))

	result, err := lotw.NewReconciler(newTestLOTWStore(t)).ReconcileADI(ctx, w1awConfirmedADI)
	if err != nil {
		t.Fatalf("ReconcileADI failed: %v", err)
	}

	if result.Added != 0 || result.Updated != 1 {
		t.Fatalf("expected 1 updated, got %+v", result)
	}

	qso, err := GetQSO(ctx, id)
	if err != nil {
		t.Fatalf("GetQSO failed: %v", err)
	}

	if !qso.Confirmed || *qso.LOTWQSLRcvd != "Y" || qso.LastSyncTime == nil {
		t.Fatalf("expected confirmed QSO, got %+v", qso)
	}

	if qso.Equipment == nil || *qso.Equipment != "IC-7300" || *qso.Power != 100 {
		t.Fatalf("expected manual fields to be untouched, got %+v", qso)
	}
}

func TestLOTWStorePendingUploads(t *testing.T) {
	resetDatabase(t)
	ctx := testContext()
	store := newTestLOTWStore(t)

	first := mustCreateQSO(t, sampleQSOInput("W1AW"))
	second := mustCreateQSO(t, sampleQSOInput("K1ZZ"))

	pending, err := store.ListPendingUploads(ctx)
	if err != nil {
		t.Fatalf("ListPendingUploads failed: %v", err)
	}

	if len(pending) != 2 {
		t.Fatalf("expected 2 pending, got %d", len(pending))
	}

	if pending[0].Frequency == nil || *pending[0].Frequency != 14.2 {
		t.Fatalf("expected frequency to be loaded, got %+v", pending[0])
	}

	if err := store.SetUploadStatus(ctx, []int64{first}, lotw.SyncStatusSynced, true); err != nil {
		t.Fatalf("SetUploadStatus failed: %v", err)
	}

	if err := store.SetUploadStatus(ctx, []int64{second}, lotw.SyncStatusFailed, false); err != nil {
		t.Fatalf("SetUploadStatus failed: %v", err)
	}

	pending, err = store.ListPendingUploads(ctx)
	if err != nil {
		t.Fatalf("ListPendingUploads failed: %v", err)
	}

	if len(pending) != 1 || pending[0].ID != second {
		t.Fatalf("expected only the failed QSO to remain pending, got %+v", pending)
	}

	sent, err := GetQSO(ctx, first)
	if err != nil {
		t.Fatalf("GetQSO failed: %v", err)
	}

	if sent.SyncStatus != lotw.SyncStatusSynced || *sent.LOTWQSLSent != "Y" {
		t.Fatalf("expected synced QSO, got %+v", sent)
	}

	if sent.LastSyncTime != nil {
		t.Fatalf("expected upload to leave last_sync_time unset, got %v", sent.LastSyncTime)
	}

	failed, err := GetQSO(ctx, second)
	if err != nil {
		t.Fatalf("GetQSO failed: %v", err)
	}

	if failed.SyncStatus != lotw.SyncStatusFailed || *failed.LOTWQSLSent != "N" {
		t.Fatalf("expected failed QSO, got %+v", failed)
	}

	if err := store.SetUploadStatus(ctx, nil, lotw.SyncStatusSynced, true); err != nil {
		t.Fatalf("expected empty id list to be a no-op, got %v", err)
	}
}

func TestLOTWStoreReconciledQSOsAreNotPending(t *testing.T) {
	resetDatabase(t)
	ctx := testContext()
	store := newTestLOTWStore(t)

	local := mustCreateQSO(t, sampleQSOInput("K1ZZ"))

	if _, err := lotw.NewReconciler(store).ReconcileADI(ctx, w1awConfirmedADI); err != nil {
		t.Fatalf("ReconcileADI failed: %v", err)
	}

	pending, err := store.ListPendingUploads(ctx)
	if err != nil {
		t.Fatalf("ListPendingUploads failed: %v", err)
	}

	if len(pending) != 1 || pending[0].ID != local {
		t.Fatalf("expected only the local QSO to be pending, got %+v", pending)
	}

	qsos, err := ListQSOs(ctx)
	if err != nil {
		t.Fatalf("ListQSOs failed: %v", err)
	}

	for _, qso := range qsos {
		if qso.Callsign == "W1AW" && (qso.LOTWQSLSent == nil || *qso.LOTWQSLSent != "Y") {
			t.Fatalf("expected LOTW QSO to be stored as sent, got %+v", qso)
		}
	}
}
