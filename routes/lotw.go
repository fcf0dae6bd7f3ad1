/*
 * Copyright 2025 Humaid Alqasimi
 * SPDX-License-Identifier: Apache-2.0
 */
package routes

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/flamego/flamego"
	"github.com/flamego/session"
	"github.com/flamego/template"

	"github.com/humaidq/qsolog/db"
	"github.com/humaidq/qsolog/lotw"
)

const (
	maxADIUploadBytes = 10 << 20
	syncHistoryLimit  = 20
)

var (
	recordSyncRunFn = db.RecordSyncRun
	listSyncRunsFn  = db.ListSyncRuns
)

// LOTWClient is the part of lotw.Client used by the web layer.
type LOTWClient interface {
	Username() string
	DownloadLog(ctx context.Context, start, end *time.Time) lotw.Outcome
	DownloadAllQSOs(ctx context.Context, start, end *time.Time, autoProcess bool) (lotw.Outcome, error)
}

// PendingUploader sends unsent QSOs to LOTW.
type PendingUploader interface {
	UploadPending(ctx context.Context, qsoDate *time.Time) (lotw.Outcome, error)
}

// ADIReconciler merges ADI text into the log.
type ADIReconciler interface {
	ReconcileADI(ctx context.Context, text string) (lotw.Result, error)
}

var (
	_ LOTWClient      = (*lotw.Client)(nil)
	_ PendingUploader = (*lotw.Uploader)(nil)
	_ ADIReconciler   = (*lotw.Reconciler)(nil)
)

// LOTWService bundles the LOTW components. Client and Uploader are nil when
// no credentials are configured; local imports still work then.
type LOTWService struct {
	Client     LOTWClient
	Uploader   PendingUploader
	Reconciler ADIReconciler
}

func (svc *LOTWService) configured() bool {
	return svc != nil && svc.Client != nil && svc.Uploader != nil
}

// parseOptionalDate parses a YYYY-MM-DD form value; blank means unset.
func parseOptionalDate(raw string) (*time.Time, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return nil, nil
	}

	parsed, err := time.Parse("2006-01-02", trimmed)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", errInvalidDate, trimmed)
	}

	return &parsed, nil
}

func parseDateRange(c flamego.Context) (*time.Time, *time.Time, error) {
	start, err := parseOptionalDate(c.Request().Form.Get("start_date"))
	if err != nil {
		return nil, nil, err
	}

	end, err := parseOptionalDate(c.Request().Form.Get("end_date"))
	if err != nil {
		return nil, nil, err
	}

	return start, end, nil
}

func recordSyncRun(ctx context.Context, kind db.SyncRunKind, startedAt time.Time, outcome lotw.Outcome) {
	run := db.NewSyncRun(kind, startedAt, outcome)
	if _, err := recordSyncRunFn(ctx, run); err != nil {
		logger.Error("Failed to record LOTW sync run", "kind", kind, "error", err)
	}
}

// LOTWPage renders the LOTW actions and recent sync history.
func LOTWPage(c flamego.Context, t template.Template, data template.Data, svc *LOTWService) {
	runs, err := listSyncRunsFn(c.Request().Context(), syncHistoryLimit)
	if err != nil {
		logger.Error("Error fetching LOTW sync history", "error", err)

		data["Error"] = "Failed to load sync history"
	} else {
		data["SyncRuns"] = runs
	}

	data["LOTWConfigured"] = svc.configured()
	if svc.configured() {
		data["LOTWUsername"] = svc.Client.Username()
	}

	data["IsLOTW"] = true
	data["Breadcrumbs"] = []BreadcrumbItem{{Name: "LOTW", URL: "/lotw", IsCurrent: true}}

	t.HTML(http.StatusOK, "lotw")
}

// LOTWDownload fetches QSL confirmations and saves the file.
func LOTWDownload(c flamego.Context, s session.Session, svc *LOTWService) {
	if !svc.configured() {
		SetErrorFlash(s, errLOTWNotConfigured.Error())
		c.Redirect("/lotw", http.StatusSeeOther)

		return
	}

	if err := c.Request().ParseForm(); err != nil {
		SetErrorFlash(s, "Failed to parse form")
		c.Redirect("/lotw", http.StatusSeeOther)

		return
	}

	start, end, err := parseDateRange(c)
	if err != nil {
		SetErrorFlash(s, "Invalid date, use YYYY-MM-DD")
		c.Redirect("/lotw", http.StatusSeeOther)

		return
	}

	ctx := c.Request().Context()
	startedAt := nowFn()
	outcome := svc.Client.DownloadLog(ctx, start, end)

	recordSyncRun(ctx, db.SyncRunDownloadQSL, startedAt, outcome)
	flashOutcome(s, outcome)
	c.Redirect("/lotw", http.StatusSeeOther)
}

// LOTWDownloadAll fetches every QSO, optionally reconciling the download.
func LOTWDownloadAll(c flamego.Context, s session.Session, svc *LOTWService) {
	if !svc.configured() {
		SetErrorFlash(s, errLOTWNotConfigured.Error())
		c.Redirect("/lotw", http.StatusSeeOther)

		return
	}

	if err := c.Request().ParseForm(); err != nil {
		SetErrorFlash(s, "Failed to parse form")
		c.Redirect("/lotw", http.StatusSeeOther)

		return
	}

	start, end, err := parseDateRange(c)
	if err != nil {
		SetErrorFlash(s, "Invalid date, use YYYY-MM-DD")
		c.Redirect("/lotw", http.StatusSeeOther)

		return
	}

	autoProcess := c.Request().Form.Get("auto_process") != ""

	ctx := c.Request().Context()
	startedAt := nowFn()

	outcome, err := svc.Client.DownloadAllQSOs(ctx, start, end, autoProcess)
	if err != nil {
		logger.Error("Error reconciling LOTW download", "error", err)

		outcome.Success = false
		outcome.Kind = lotw.FailureUnexpected
		outcome.Message = "Downloaded, but failed to update the log"
	}

	recordSyncRun(ctx, db.SyncRunDownloadAll, startedAt, outcome)
	flashOutcome(s, outcome)
	c.Redirect("/lotw", http.StatusSeeOther)
}

// LOTWUpload submits every unsent QSO.
func LOTWUpload(c flamego.Context, s session.Session, svc *LOTWService) {
	if !svc.configured() {
		SetErrorFlash(s, errLOTWNotConfigured.Error())
		c.Redirect("/lotw", http.StatusSeeOther)

		return
	}

	if err := c.Request().ParseForm(); err != nil {
		SetErrorFlash(s, "Failed to parse form")
		c.Redirect("/lotw", http.StatusSeeOther)

		return
	}

	qsoDate, err := parseOptionalDate(c.Request().Form.Get("qso_date"))
	if err != nil {
		SetErrorFlash(s, "Invalid date, use YYYY-MM-DD")
		c.Redirect("/lotw", http.StatusSeeOther)

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
	}

	recordSyncRun(ctx, db.SyncRunUpload, startedAt, outcome)
	flashOutcome(s, outcome)
	c.Redirect("/lotw", http.StatusSeeOther)
}

// LOTWImport reconciles an uploaded LOTW ADI export.
func LOTWImport(c flamego.Context, s session.Session, svc *LOTWService) {
	if svc == nil || svc.Reconciler == nil {
		SetErrorFlash(s, "ADI import is not available")
		c.Redirect("/lotw", http.StatusSeeOther)

		return
	}

	if err := c.Request().ParseMultipartForm(maxADIUploadBytes); err != nil {
		logger.Error("Error parsing ADI upload form", "error", err)
		SetErrorFlash(s, "Failed to parse upload form")
		c.Redirect("/lotw", http.StatusSeeOther)

		return
	}

	file, header, err := c.Request().FormFile("adif")
	if err != nil {
		SetErrorFlash(s, "No file uploaded or invalid file")
		c.Redirect("/lotw", http.StatusSeeOther)

		return
	}

	defer func() {
		if err := file.Close(); err != nil {
			logger.Error("Error closing ADI upload file", "error", err)
		}
	}()

	content, err := io.ReadAll(io.LimitReader(file, maxADIUploadBytes+1))
	if err != nil {
		logger.Error("Error reading ADI upload", "error", err)
		SetErrorFlash(s, "Failed to read uploaded file")
		c.Redirect("/lotw", http.StatusSeeOther)

		return
	}

	if len(content) > maxADIUploadBytes {
		logger.Warn("Rejected oversized ADI upload", "filename", header.Filename, "bytes", header.Size)
		SetErrorFlash(s, "Uploaded file is larger than 10 MiB")
		c.Redirect("/lotw", http.StatusSeeOther)

		return
	}

	logger.Info("Processing uploaded ADI file", "filename", header.Filename, "bytes", header.Size)

	ctx := c.Request().Context()
	startedAt := nowFn()
	outcome := lotw.Outcome{Success: true, Reconciled: true}

	result, err := svc.Reconciler.ReconcileADI(ctx, string(content))
	outcome.Added = result.Added
	outcome.Updated = result.Updated

	if err != nil {
		logger.Error("Error reconciling ADI upload", "error", err)

		outcome.Success = false
		outcome.Kind = lotw.FailureUnexpected
		outcome.Message = "Failed to update the log from " + header.Filename
	} else {
		outcome.Message = "Processed " + header.Filename
	}

	recordSyncRun(ctx, db.SyncRunProcess, startedAt, outcome)
	flashOutcome(s, outcome)
	c.Redirect("/lotw", http.StatusSeeOther)
}
