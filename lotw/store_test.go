// SPDX-FileCopyrightText: 2025 Humaid Alqasimi
// SPDX-License-Identifier: Apache-2.0

package lotw

import (
	"context"
	"errors"
	"time"
)

var errTestStoreDown = errors.New("store down")

type memQSO struct {
	ID          int64
	Key         Key
	Confirmed   bool
	LOTWQSLRcvd string
	DXCC        *string
	Grid        *string
	Province    *string
	Equipment   string
	LastSync    *time.Time
	SyncStatus  SyncStatus
	Sent        bool
}

// memStore is an in-memory Store and PendingUploadStore.
type memStore struct {
	rows    []*memQSO
	nextID  int64
	writes  int
	failOn  string
	failErr error
}

func newMemStore() *memStore {
	return &memStore{nextID: 1}
}

func (m *memStore) seed(row memQSO) *memQSO {
	row.ID = m.nextID
	m.nextID++
	m.rows = append(m.rows, &row)

	return &row
}

func (m *memStore) fail(op string) error {
	if m.failOn == op {
		if m.failErr != nil {
			return m.failErr
		}

		return errTestStoreDown
	}

	return nil
}

func (m *memStore) FindByKey(_ context.Context, key Key) (*StoredQSO, error) {
	if err := m.fail("find"); err != nil {
		return nil, err
	}

	for _, row := range m.rows {
		if row.Key == key {
			return &StoredQSO{ID: row.ID, Confirmed: row.Confirmed}, nil
		}
	}

	return nil, nil
}

func (m *memStore) Insert(_ context.Context, qso NewQSO) (int64, error) {
	if err := m.fail("insert"); err != nil {
		return 0, err
	}

	m.writes++

	row := m.seed(memQSO{
		Key:         qso.Key,
		Confirmed:   qso.Confirmed,
		LOTWQSLRcvd: qso.LOTWQSLRcvd,
		DXCC:        qso.DXCC,
		Grid:        qso.Grid,
		Province:    qso.Province,
	})

	return row.ID, nil
}

func (m *memStore) MarkConfirmed(_ context.Context, id int64, syncedAt time.Time) error {
	if err := m.fail("confirm"); err != nil {
		return err
	}

	m.writes++

	for _, row := range m.rows {
		if row.ID == id {
			row.Confirmed = true
			row.LOTWQSLRcvd = "Y"
			row.LastSync = &syncedAt
		}
	}

	return nil
}

func (m *memStore) ListPendingUploads(context.Context) ([]PendingQSO, error) {
	if err := m.fail("pending"); err != nil {
		return nil, err
	}

	var pending []PendingQSO

	for _, row := range m.rows {
		if row.Sent {
			continue
		}

		pending = append(pending, PendingQSO{
			ID:       row.ID,
			Key:      row.Key,
			DXCC:     row.DXCC,
			Grid:     row.Grid,
			Province: row.Province,
		})
	}

	return pending, nil
}

func (m *memStore) SetUploadStatus(_ context.Context, ids []int64, status SyncStatus, sent bool) error {
	if err := m.fail("status"); err != nil {
		return err
	}

	for _, id := range ids {
		for _, row := range m.rows {
			if row.ID != id {
				continue
			}

			row.SyncStatus = status
			if sent {
				row.Sent = true
			}
		}
	}

	return nil
}

func (m *memStore) byKey(key Key) *memQSO {
	for _, row := range m.rows {
		if row.Key == key {
			return row
		}
	}

	return nil
}
