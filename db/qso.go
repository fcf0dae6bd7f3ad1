/*
 * Copyright 2025 Humaid Alqasimi
 * SPDX-License-Identifier: Apache-2.0
 */
package db

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/humaidq/qsolog/lotw"
	"github.com/humaidq/qsolog/utils"
)

// QSLCardStatus records whether a paper card was exchanged.
type QSLCardStatus int

const (
	QSLCardNone QSLCardStatus = iota
	QSLCardEyeball
	QSLCardExchanged
)

// Label returns the name shown in forms and lists.
func (s QSLCardStatus) Label() string {
	switch s {
	case QSLCardNone:
		return "Not exchanged"
	case QSLCardEyeball:
		return "Eyeball"
	case QSLCardExchanged:
		return "Exchanged"
	default:
		return strconv.Itoa(int(s))
	}
}

// Valid reports whether s is a known status.
func (s QSLCardStatus) Valid() bool {
	return s >= QSLCardNone && s <= QSLCardExchanged
}

// QSO is a row of qso_log.
type QSO struct {
	ID        int64    `json:"id"`
	Callsign  string   `json:"callsign"`
	QSODate   string   `json:"qso_date"`
	TimeOn    string   `json:"time_on"`
	Band      string   `json:"band"`
	Mode      string   `json:"mode"`
	Frequency *float64 `json:"frequency"`
	Equipment *string  `json:"equipment"`
	Antenna   *string  `json:"antenna"`
	Power     *float64 `json:"power"`
	Notes     *string  `json:"notes"`
	DXCC      *string  `json:"dxcc"`
	Grid      *string  `json:"grid"`
	Province  *string  `json:"province"`

	QSLCard QSLCardStatus `json:"qslcard"`

	Confirmed    bool            `json:"confirmed"`
	LOTWQSLRcvd  *string         `json:"lotw_qsl_rcvd"`
	LOTWQSLSent  *string         `json:"lotw_qsl_sent"`
	LastSyncTime *time.Time      `json:"last_sync_time"`
	SyncStatus   lotw.SyncStatus `json:"sync_status"`
}

// QSOInput holds the user-editable fields of a QSO.
type QSOInput struct {
	Callsign  string        `json:"callsign"`
	QSODate   string        `json:"qso_date"`
	TimeOn    string        `json:"time_on"`
	Band      string        `json:"band"`
	Mode      string        `json:"mode"`
	Frequency *float64      `json:"frequency"`
	Equipment *string       `json:"equipment"`
	Antenna   *string       `json:"antenna"`
	Power     *float64      `json:"power"`
	Notes     *string       `json:"notes"`
	DXCC      *string       `json:"dxcc"`
	Grid      *string       `json:"grid"`
	Province  *string       `json:"province"`
	QSLCard   QSLCardStatus `json:"qslcard"`
}

// QSOPage is one page of the log, newest first.
type QSOPage struct {
	QSOs  []QSO `json:"data"`
	Total int   `json:"total"`
	Page  int   `json:"current_page"`
	Size  int   `json:"size"`
	Pages int   `json:"pages"`
}

// BandCount is the number of QSOs logged on a band.
type BandCount struct {
	Band  string
	Count int
}

// FormatDate formats the ADI date as YYYY-MM-DD. Unparseable dates are
// returned as stored.
func (q *QSO) FormatDate() string {
	parsed, err := time.Parse("20060102", q.QSODate)
	if err != nil {
		return q.QSODate
	}

	return parsed.Format("2006-01-02")
}

// FormatTime formats the ADI time as HH:MM.
func (q *QSO) FormatTime() string {
	if len(q.TimeOn) < 4 {
		return q.TimeOn
	}

	return q.TimeOn[:2] + ":" + q.TimeOn[2:4]
}

// Key returns the reconciliation key of the QSO.
func (q *QSO) Key() lotw.Key {
	return lotw.Key{Callsign: q.Callsign, QSODate: q.QSODate, TimeOn: q.TimeOn, Band: q.Band, Mode: q.Mode}
}

// ADIRecord converts the QSO for export.
func (q *QSO) ADIRecord() *utils.ADIRecord {
	record := utils.NewADIRecordFromFields(
		utils.ADIField{Tag: "CALL", Value: q.Callsign},
		utils.ADIField{Tag: "QSO_DATE", Value: q.QSODate},
		utils.ADIField{Tag: "TIME_ON", Value: q.TimeOn},
		utils.ADIField{Tag: "BAND", Value: q.Band},
		utils.ADIField{Tag: "MODE", Value: q.Mode},
	)

	if q.Frequency != nil {
		record.Set("FREQ", strconv.FormatFloat(*q.Frequency, 'f', -1, 64))
	}

	if q.Power != nil {
		record.Set("TX_PWR", strconv.FormatFloat(*q.Power, 'f', -1, 64))
	}

	optional := []struct {
		tag   string
		value *string
	}{
		{"DXCC", q.DXCC},
		{"GRIDSQUARE", q.Grid},
		{"STATE", q.Province},
		{"MY_RIG", q.Equipment},
		{"MY_ANTENNA", q.Antenna},
		{"COMMENT", q.Notes},
		{"LOTW_QSL_RCVD", q.LOTWQSLRcvd},
		{"LOTW_QSL_SENT", q.LOTWQSLSent},
	}

	for _, field := range optional {
		if field.value != nil {
			record.Set(field.tag, *field.value)
		}
	}

	return record
}

const qsoSelectColumns = `
	id,
	callsign,
	qso_date,
	time_on,
	COALESCE(band, ''),
	mode,
	frequency,
	equipment,
	antenna,
	power,
	notes,
	dxcc,
	grid,
	province,
	qslcard,
	confirmed,
	lotw_qsl_rcvd,
	lotw_qsl_sent,
	last_sync_time,
	sync_status
`

const qsoOrder = `ORDER BY qso_date DESC, time_on DESC, id DESC`

func scanQSO(row pgx.Row) (QSO, error) {
	var (
		qso        QSO
		qslCard    int16
		syncStatus int16
	)

	err := row.Scan(
		&qso.ID,
		&qso.Callsign,
		&qso.QSODate,
		&qso.TimeOn,
		&qso.Band,
		&qso.Mode,
		&qso.Frequency,
		&qso.Equipment,
		&qso.Antenna,
		&qso.Power,
		&qso.Notes,
		&qso.DXCC,
		&qso.Grid,
		&qso.Province,
		&qslCard,
		&qso.Confirmed,
		&qso.LOTWQSLRcvd,
		&qso.LOTWQSLSent,
		&qso.LastSyncTime,
		&syncStatus,
	)
	if err != nil {
		return QSO{}, err
	}

	qso.QSLCard = QSLCardStatus(qslCard)
	qso.SyncStatus = lotw.SyncStatus(syncStatus)

	return qso, nil
}

func collectQSOs(rows pgx.Rows) ([]QSO, error) {
	defer rows.Close()

	var qsos []QSO

	for rows.Next() {
		qso, err := scanQSO(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan QSO: %w", err)
		}

		qsos = append(qsos, qso)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating QSOs: %w", err)
	}

	return qsos, nil
}

// ListQSOs returns all QSOs sorted by date/time (most recent first)
func ListQSOs(ctx context.Context) ([]QSO, error) {
	if pool == nil {
		return nil, ErrDatabaseConnectionNotInitialized
	}

	rows, err := pool.Query(ctx, `SELECT `+qsoSelectColumns+` FROM qso_log `+qsoOrder)
	if err != nil {
		return nil, fmt.Errorf("failed to query QSOs: %w", err)
	}

	return collectQSOs(rows)
}

// ListQSOsPage returns a page of QSOs. page starts at 1.
func ListQSOsPage(ctx context.Context, page, size int) (*QSOPage, error) {
	if pool == nil {
		return nil, ErrDatabaseConnectionNotInitialized
	}

	if page < 1 {
		page = 1
	}

	if size < 1 {
		size = DefaultPageSize
	}

	total, err := CountQSOs(ctx)
	if err != nil {
		return nil, err
	}

	rows, err := pool.Query(ctx,
		`SELECT `+qsoSelectColumns+` FROM qso_log `+qsoOrder+` LIMIT $1 OFFSET $2`,
		size, (page-1)*size,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query QSO page: %w", err)
	}

	qsos, err := collectQSOs(rows)
	if err != nil {
		return nil, err
	}

	return &QSOPage{
		QSOs:  qsos,
		Total: total,
		Page:  page,
		Size:  size,
		Pages: (total + size - 1) / size,
	}, nil
}

// DefaultPageSize is used when a page size is not given.
const DefaultPageSize = 25

// CountQSOs returns the number of logged QSOs.
func CountQSOs(ctx context.Context) (int, error) {
	if pool == nil {
		return 0, ErrDatabaseConnectionNotInitialized
	}

	var count int
	if err := pool.QueryRow(ctx, `SELECT COUNT(*) FROM qso_log`).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count QSOs: %w", err)
	}

	return count, nil
}

// ListQSOsByCallsign returns the most recent QSOs with a station.
func ListQSOsByCallsign(ctx context.Context, callsign string, limit int) ([]QSO, error) {
	if pool == nil {
		return nil, ErrDatabaseConnectionNotInitialized
	}

	rows, err := pool.Query(ctx,
		`SELECT `+qsoSelectColumns+` FROM qso_log WHERE callsign = $1 `+qsoOrder+` LIMIT $2`,
		strings.TrimSpace(callsign), limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query QSOs for %s: %w", callsign, err)
	}

	return collectQSOs(rows)
}

// GetQSO returns a single QSO by ID
func GetQSO(ctx context.Context, id int64) (*QSO, error) {
	if pool == nil {
		return nil, ErrDatabaseConnectionNotInitialized
	}

	qso, err := scanQSO(pool.QueryRow(ctx, `SELECT `+qsoSelectColumns+` FROM qso_log WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrQSONotFound
		}

		return nil, fmt.Errorf("failed to get QSO %d: %w", id, err)
	}

	return &qso, nil
}

// CreateQSO inserts a QSO and returns its ID.
func CreateQSO(ctx context.Context, input QSOInput) (int64, error) {
	if pool == nil {
		return 0, ErrDatabaseConnectionNotInitialized
	}

	var id int64

	err := pool.QueryRow(ctx, `
		INSERT INTO qso_log (
			callsign, qso_date, time_on, band, mode,
			frequency, equipment, antenna, power, notes,
			dxcc, grid, province, qslcard, lotw_qsl_sent
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, 'N')
		RETURNING id
	`, qsoInputArgs(input)...).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("failed to create QSO: %w", err)
	}

	logger.Info("Created QSO", "id", id, "callsign", input.Callsign)

	return id, nil
}

// UpdateQSO replaces the user-editable fields of a QSO. Confirmation and
// upload state are kept.
func UpdateQSO(ctx context.Context, id int64, input QSOInput) error {
	if pool == nil {
		return ErrDatabaseConnectionNotInitialized
	}

	args := append(qsoInputArgs(input), id)

	tag, err := pool.Exec(ctx, `
		UPDATE qso_log SET
			callsign = $1,
			qso_date = $2,
			time_on = $3,
			band = $4,
			mode = $5,
			frequency = $6,
			equipment = $7,
			antenna = $8,
			power = $9,
			notes = $10,
			dxcc = $11,
			grid = $12,
			province = $13,
			qslcard = $14
		WHERE id = $15
	`, args...)
	if err != nil {
		return fmt.Errorf("failed to update QSO %d: %w", id, err)
	}

	if tag.RowsAffected() == 0 {
		return ErrQSONotFound
	}

	logger.Info("Updated QSO", "id", id)

	return nil
}

// DeleteQSO removes a QSO by ID.
func DeleteQSO(ctx context.Context, id int64) error {
	if pool == nil {
		return ErrDatabaseConnectionNotInitialized
	}

	tag, err := pool.Exec(ctx, `DELETE FROM qso_log WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete QSO %d: %w", id, err)
	}

	if tag.RowsAffected() == 0 {
		return ErrQSONotFound
	}

	logger.Info("Deleted QSO", "id", id)

	return nil
}

// CountQSOsByBand returns QSO counts per band, most used first.
func CountQSOsByBand(ctx context.Context) ([]BandCount, error) {
	if pool == nil {
		return nil, ErrDatabaseConnectionNotInitialized
	}

	rows, err := pool.Query(ctx, `
		SELECT COALESCE(NULLIF(band, ''), 'unknown') AS b, COUNT(*)
		FROM qso_log
		GROUP BY b
		ORDER BY COUNT(*) DESC, b
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to count QSOs by band: %w", err)
	}
	defer rows.Close()

	var counts []BandCount

	for rows.Next() {
		var count BandCount
		if err := rows.Scan(&count.Band, &count.Count); err != nil {
			return nil, fmt.Errorf("failed to scan band count: %w", err)
		}

		counts = append(counts, count)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating band counts: %w", err)
	}

	return counts, nil
}

func qsoInputArgs(input QSOInput) []any {
	return []any{
		strings.TrimSpace(input.Callsign),
		strings.TrimSpace(input.QSODate),
		strings.TrimSpace(input.TimeOn),
		strings.TrimSpace(input.Band),
		strings.TrimSpace(input.Mode),
		nullableValue(input.Frequency),
		nullableString(input.Equipment),
		nullableString(input.Antenna),
		nullableValue(input.Power),
		nullableString(input.Notes),
		nullableString(input.DXCC),
		nullableString(input.Grid),
		nullableString(input.Province),
		int16(input.QSLCard),
	}
}

func nullableValue[T any](value *T) any {
	if value == nil {
		return nil
	}

	return *value
}

func nullableString(value *string) any {
	if value == nil {
		return nil
	}

	trimmed := strings.TrimSpace(*value)
	if trimmed == "" {
		return nil
	}

	return trimmed
}
