/*
 * Copyright 2025 Humaid Alqasimi
 * SPDX-License-Identifier: Apache-2.0
 */
package routes

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/flamego/flamego"

	"github.com/humaidq/qsolog/db"
	"github.com/humaidq/qsolog/lotw"
)

const maxJSONBodyBytes = 1 << 20

type apiListResponse struct {
	QSOs  []db.QSO `json:"data"`
	Total int      `json:"total"`
}

type apiIDResponse struct {
	ID int64 `json:"id"`
}

type apiValidationError struct {
	Error  string      `json:"error"`
	Fields fieldErrors `json:"fields"`
}

type apiOutcome struct {
	Success    bool             `json:"success"`
	Message    string           `json:"message"`
	Kind       lotw.FailureKind `json:"kind,omitempty"`
	Path       string           `json:"path,omitempty"`
	Reconciled bool             `json:"reconciled"`
	Added      int              `json:"added"`
	Updated    int              `json:"updated"`
}

func newAPIOutcome(outcome lotw.Outcome) apiOutcome {
	return apiOutcome{
		Success:    outcome.Success,
		Message:    outcome.Message,
		Kind:       outcome.Kind,
		Path:       outcome.Path,
		Reconciled: outcome.Reconciled,
		Added:      outcome.Added,
		Updated:    outcome.Updated,
	}
}

func writeJSON(c flamego.Context, payload any) {
	writeJSONStatus(c, http.StatusOK, payload)
}

func writeJSONStatus(c flamego.Context, status int, payload any) {
	c.ResponseWriter().Header().Set("Content-Type", "application/json")
	c.ResponseWriter().WriteHeader(status)

	if err := json.NewEncoder(c.ResponseWriter()).Encode(payload); err != nil {
		logger.Error("Error encoding JSON response", "error", err)
	}
}

func writeJSONError(c flamego.Context, status int, message string) {
	writeJSONStatus(c, status, map[string]string{"error": message})
}

// decodeQSOInput reads and validates a JSON QSO body. It writes the error
// response itself and reports whether the handler should continue.
func decodeQSOInput(c flamego.Context) (db.QSOInput, bool) {
	var input db.QSOInput

	body := http.MaxBytesReader(c.ResponseWriter(), c.Request().Request.Body, maxJSONBodyBytes)
	if err := json.NewDecoder(body).Decode(&input); err != nil {
		writeJSONError(c, http.StatusBadRequest, "Invalid JSON body")
		return input, false
	}

	if errs := validateQSOInput(&input); len(errs) > 0 {
		writeJSONStatus(c, http.StatusUnprocessableEntity, apiValidationError{
			Error:  "Validation failed",
			Fields: errs,
		})

		return input, false
	}

	return input, true
}

// APIListQSOs returns the log, paged unless all=true.
func APIListQSOs(c flamego.Context) {
	ctx := c.Request().Context()

	if strings.EqualFold(c.Query("all"), "true") {
		qsos, err := listQSOsFn(ctx)
		if err != nil {
			logger.Error("Error listing QSOs", "error", err)
			writeJSONError(c, http.StatusInternalServerError, "Failed to load QSOs")

			return
		}

		if qsos == nil {
			qsos = []db.QSO{}
		}

		writeJSON(c, apiListResponse{QSOs: qsos, Total: len(qsos)})

		return
	}

	page := 1
	if raw := c.Query("page"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			writeJSONError(c, http.StatusBadRequest, "Invalid page")
			return
		}

		page = parsed
	}

	size := db.DefaultPageSize
	if raw := c.Query("size"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 || parsed > 500 {
			writeJSONError(c, http.StatusBadRequest, "Invalid page size")
			return
		}

		size = parsed
	}

	result, err := listQSOsPageFn(ctx, page, size)
	if err != nil {
		logger.Error("Error listing QSO page", "page", page, "error", err)
		writeJSONError(c, http.StatusInternalServerError, "Failed to load QSOs")

		return
	}

	if result.QSOs == nil {
		result.QSOs = []db.QSO{}
	}

	writeJSON(c, result)
}

// APICountQSOs returns the number of logged QSOs.
func APICountQSOs(c flamego.Context) {
	count, err := countQSOsFn(c.Request().Context())
	if err != nil {
		logger.Error("Error counting QSOs", "error", err)
		writeJSONError(c, http.StatusInternalServerError, "Failed to count QSOs")

		return
	}

	writeJSON(c, map[string]int{"count": count})
}

// APIGetQSO returns one QSO.
func APIGetQSO(c flamego.Context) {
	id, err := parseQSOID(c)
	if err != nil {
		writeJSONError(c, http.StatusBadRequest, errInvalidQSOID.Error())
		return
	}

	qso, err := getQSOFn(c.Request().Context(), id)
	if err != nil {
		if errors.Is(err, db.ErrQSONotFound) {
			writeJSONError(c, http.StatusNotFound, "QSO not found")
			return
		}

		logger.Error("Error fetching QSO", "qso_id", id, "error", err)
		writeJSONError(c, http.StatusInternalServerError, "Failed to load QSO")

		return
	}

	writeJSON(c, qso)
}

// APICreateQSO stores a QSO from a JSON body.
func APICreateQSO(c flamego.Context) {
	input, ok := decodeQSOInput(c)
	if !ok {
		return
	}

	id, err := createQSOFn(c.Request().Context(), input)
	if err != nil {
		logger.Error("Error creating QSO", "callsign", input.Callsign, "error", err)
		writeJSONError(c, http.StatusInternalServerError, "Failed to save QSO")

		return
	}

	writeJSONStatus(c, http.StatusCreated, apiIDResponse{ID: id})
}

// APIUpdateQSO replaces the editable fields of a QSO.
func APIUpdateQSO(c flamego.Context) {
	id, err := parseQSOID(c)
	if err != nil {
		writeJSONError(c, http.StatusBadRequest, errInvalidQSOID.Error())
		return
	}

	input, ok := decodeQSOInput(c)
	if !ok {
		return
	}

	if err := updateQSOFn(c.Request().Context(), id, input); err != nil {
		if errors.Is(err, db.ErrQSONotFound) {
			writeJSONError(c, http.StatusNotFound, "QSO not found")
			return
		}

		logger.Error("Error updating QSO", "qso_id", id, "error", err)
		writeJSONError(c, http.StatusInternalServerError, "Failed to update QSO")

		return
	}

	writeJSON(c, apiIDResponse{ID: id})
}

// APIDeleteQSO removes a QSO.
func APIDeleteQSO(c flamego.Context) {
	id, err := parseQSOID(c)
	if err != nil {
		writeJSONError(c, http.StatusBadRequest, errInvalidQSOID.Error())
		return
	}

	if err := deleteQSOFn(c.Request().Context(), id); err != nil {
		if errors.Is(err, db.ErrQSONotFound) {
			writeJSONError(c, http.StatusNotFound, "QSO not found")
			return
		}

		logger.Error("Error deleting QSO", "qso_id", id, "error", err)
		writeJSONError(c, http.StatusInternalServerError, "Failed to delete QSO")

		return
	}

	c.ResponseWriter().WriteHeader(http.StatusNoContent)
}

// APIQSOHistory returns the latest QSOs with a callsign.
func APIQSOHistory(c flamego.Context) {
	callsign := strings.ToUpper(strings.TrimSpace(c.Param("callsign")))
	if callsign == "" {
		writeJSONError(c, http.StatusBadRequest, "Callsign is required")
		return
	}

	qsos, err := listQSOsByCallsignFn(c.Request().Context(), callsign, historyLimit)
	if err != nil {
		logger.Error("Error fetching QSO history", "callsign", callsign, "error", err)
		writeJSONError(c, http.StatusInternalServerError, "Failed to load history")

		return
	}

	if qsos == nil {
		qsos = []db.QSO{}
	}

	writeJSON(c, apiListResponse{QSOs: qsos, Total: len(qsos)})
}

type apiDownloadAllRequest struct {
	StartDate   string `json:"start_date"`
	EndDate     string `json:"end_date"`
	AutoProcess bool   `json:"auto_process"`
}

// APIDownloadAll downloads every LOTW QSO and reports the outcome. LOTW
// failures are returned with status 200 and success=false; a store failure
// during reconciliation is a 500.
func APIDownloadAll(c flamego.Context, svc *LOTWService) {
	if !svc.configured() {
		writeJSONError(c, http.StatusServiceUnavailable, errLOTWNotConfigured.Error())
		return
	}

	var req apiDownloadAllRequest

	if c.Request().ContentLength != 0 {
		body := http.MaxBytesReader(c.ResponseWriter(), c.Request().Request.Body, maxJSONBodyBytes)
		if err := json.NewDecoder(body).Decode(&req); err != nil {
			writeJSONError(c, http.StatusBadRequest, "Invalid JSON body")
			return
		}
	}

	start, err := parseOptionalDate(req.StartDate)
	if err != nil {
		writeJSONError(c, http.StatusBadRequest, "Invalid start_date, use YYYY-MM-DD")
		return
	}

	end, err := parseOptionalDate(req.EndDate)
	if err != nil {
		writeJSONError(c, http.StatusBadRequest, "Invalid end_date, use YYYY-MM-DD")
		return
	}

	ctx := c.Request().Context()
	startedAt := nowFn()

	outcome, err := svc.Client.DownloadAllQSOs(ctx, start, end, req.AutoProcess)
	if err != nil {
		logger.Error("Error reconciling LOTW download", "error", err)

		outcome.Success = false
		outcome.Kind = lotw.FailureUnexpected
		outcome.Message = "Downloaded, but failed to update the log"
		recordSyncRun(ctx, db.SyncRunDownloadAll, startedAt, outcome)
		writeJSONError(c, http.StatusInternalServerError, outcome.Message)

		return
	}

	recordSyncRun(ctx, db.SyncRunDownloadAll, startedAt, outcome)
	writeJSON(c, newAPIOutcome(outcome))
}

// APIUpload submits every unsent QSO to LOTW.
func APIUpload(c flamego.Context, svc *LOTWService) {
	if !svc.configured() {
		writeJSONError(c, http.StatusServiceUnavailable, errLOTWNotConfigured.Error())
		return
	}

	qsoDate, err := parseOptionalDate(c.Query("qso_date"))
	if err != nil {
		writeJSONError(c, http.StatusBadRequest, "Invalid qso_date, use YYYY-MM-DD")
		return
	}

	ctx := c.Request().Context()
	startedAt := nowFn()

	outcome, err := svc.Uploader.UploadPending(ctx, qsoDate)
	if err != nil {
		logger.Error("Error uploading to LOTW", "error", err)

		outcome.Success = false
		outcome.Kind = lotw.FailureUnexpected
		outcome.Message = "Failed to upload QSOs to LOTW"
		recordSyncRun(ctx, db.SyncRunUpload, startedAt, outcome)
		writeJSONError(c, http.StatusInternalServerError, outcome.Message)

		return
	}

	recordSyncRun(ctx, db.SyncRunUpload, startedAt, outcome)
	writeJSON(c, newAPIOutcome(outcome))
}
