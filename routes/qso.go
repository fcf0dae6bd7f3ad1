/*
 * Copyright 2025 Humaid Alqasimi
 * SPDX-License-Identifier: Apache-2.0
 */
package routes

import (
	"errors"
	"fmt"
	htmltemplate "html/template"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/flamego/flamego"
	"github.com/flamego/session"
	"github.com/flamego/template"

	"github.com/humaidq/qsolog/db"
	"github.com/humaidq/qsolog/utils"
)

var (
	listQSOsFn           = db.ListQSOs
	listQSOsPageFn       = db.ListQSOsPage
	countQSOsFn          = db.CountQSOs
	countQSOsByBandFn    = db.CountQSOsByBand
	listQSOsByCallsignFn = db.ListQSOsByCallsign
	getQSOFn             = db.GetQSO
	createQSOFn          = db.CreateQSO
	updateQSOFn          = db.UpdateQSO
	deleteQSOFn          = db.DeleteQSO
	createGridMapFn      = utils.CreateGridMap
	gridDistanceFn       = utils.GridDistanceKm
	nowFn                = time.Now
)

const historyLimit = 10

// Settings holds station settings used when rendering pages.
type Settings struct {
	StationGrid string
	MapDir      string
}

// BreadcrumbItem is one link in the page header trail.
type BreadcrumbItem struct {
	Name      string
	URL       string
	IsCurrent bool
}

func qsoBreadcrumbs(extra ...BreadcrumbItem) []BreadcrumbItem {
	crumbs := []BreadcrumbItem{{Name: "QSOs", URL: "/qsos", IsCurrent: len(extra) == 0}}
	return append(crumbs, extra...)
}

func parseQSOID(c flamego.Context) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(c.Param("id")), 10, 64)
	if err != nil || id <= 0 {
		return 0, errInvalidQSOID
	}

	return id, nil
}

// Home redirects to the log.
func Home(c flamego.Context) {
	c.Redirect("/qsos", http.StatusSeeOther)
}

// QSOList renders a page of the log with the per-band chart.
func QSOList(c flamego.Context, t template.Template, data template.Data) {
	ctx := c.Request().Context()

	page, err := strconv.Atoi(c.Query("page"))
	if err != nil || page < 1 {
		page = 1
	}

	qsos, err := listQSOsPageFn(ctx, page, db.DefaultPageSize)
	if err != nil {
		logger.Error("Error fetching QSOs", "error", err)

		data["Error"] = "Failed to load QSOs"
	} else {
		data["Page"] = qsos
		if qsos.Page > 1 {
			data["PrevPage"] = qsos.Page - 1
		}

		if qsos.Page < qsos.Pages {
			data["NextPage"] = qsos.Page + 1
		}
	}

	counts, err := countQSOsByBandFn(ctx)
	if err != nil {
		logger.Error("Error counting QSOs by band", "error", err)
	} else if chart, err := renderBandChart(counts); err != nil {
		logger.Error("Error rendering band chart", "error", err)
	} else if chart != "" {
		data["BandChart"] = htmltemplate.HTML(chart)
	}

	data["IsQSOs"] = true
	data["Breadcrumbs"] = qsoBreadcrumbs()

	t.HTML(http.StatusOK, "qso_list")
}

func populateQSOFormData(data template.Data, values map[string]string, errs fieldErrors, action string) {
	data["Form"] = values
	data["FormErrors"] = errs
	data["FormAction"] = action
	data["Modes"] = qsoModes
	data["QSLCardOptions"] = []db.QSLCardStatus{db.QSLCardNone, db.QSLCardEyeball, db.QSLCardExchanged}
}

// formValuesFrom flattens posted values for re-rendering the form.
func formValuesFrom(c flamego.Context) map[string]string {
	values := make(map[string]string, len(c.Request().Form))
	for key := range c.Request().Form {
		values[key] = c.Request().Form.Get(key)
	}

	return values
}

// NewQSOForm renders the blank QSO form.
func NewQSOForm(t template.Template, data template.Data) {
	populateQSOFormData(data, newQSOFormValues(nowFn()), nil, "/qsos/new")
	data["Breadcrumbs"] = qsoBreadcrumbs(BreadcrumbItem{Name: "New QSO", IsCurrent: true})

	t.HTML(http.StatusOK, "qso_form")
}

// CreateQSO validates and stores a QSO from the form.
func CreateQSO(c flamego.Context, s session.Session, t template.Template, data template.Data) {
	if err := c.Request().ParseForm(); err != nil {
		SetErrorFlash(s, "Failed to parse form")
		c.Redirect("/qsos/new", http.StatusSeeOther)

		return
	}

	input, errs := parseQSOForm(c.Request().Form)
	if len(errs) > 0 {
		populateQSOFormData(data, formValuesFrom(c), errs, "/qsos/new")
		data["Breadcrumbs"] = qsoBreadcrumbs(BreadcrumbItem{Name: "New QSO", IsCurrent: true})
		t.HTML(http.StatusUnprocessableEntity, "qso_form")

		return
	}

	id, err := createQSOFn(c.Request().Context(), input)
	if err != nil {
		logger.Error("Error creating QSO", "callsign", input.Callsign, "error", err)
		SetErrorFlash(s, "Failed to save QSO")
		c.Redirect("/qsos/new", http.StatusSeeOther)

		return
	}

	SetSuccessFlash(s, "Logged QSO with "+input.Callsign)
	c.Redirect(fmt.Sprintf("/qsos/%d", id), http.StatusSeeOther)
}

// ViewQSO renders a QSO with its history and grid map.
func ViewQSO(c flamego.Context, s session.Session, t template.Template, data template.Data, settings Settings) {
	id, err := parseQSOID(c)
	if err != nil {
		SetErrorFlash(s, "Invalid QSO")
		c.Redirect("/qsos", http.StatusSeeOther)

		return
	}

	ctx := c.Request().Context()

	qso, err := getQSOFn(ctx, id)
	if err != nil {
		if !errors.Is(err, db.ErrQSONotFound) {
			logger.Error("Error fetching QSO", "qso_id", id, "error", err)
		}

		SetErrorFlash(s, "QSO not found")
		c.Redirect("/qsos", http.StatusSeeOther)

		return
	}

	history, err := listQSOsByCallsignFn(ctx, qso.Callsign, historyLimit)
	if err != nil {
		logger.Error("Error fetching QSO history", "callsign", qso.Callsign, "error", err)
	} else {
		data["History"] = history
	}

	if qso.Grid != nil && *qso.Grid != "" {
		if mapURL, ok := ensureGridMap(settings, qso); ok {
			data["MapURL"] = mapURL
		}

		if settings.StationGrid != "" {
			if distance, err := gridDistanceFn(settings.StationGrid, *qso.Grid); err == nil {
				data["DistanceKm"] = fmt.Sprintf("%.0f", distance)
			}
		}
	}

	data["QSO"] = qso
	data["Breadcrumbs"] = qsoBreadcrumbs(BreadcrumbItem{Name: qso.Callsign, IsCurrent: true})

	t.HTML(http.StatusOK, "qso_view")
}

// ensureGridMap renders the map for qso unless it already exists. The file
// name carries both grids so edits render a fresh map.
func ensureGridMap(settings Settings, qso *db.QSO) (string, bool) {
	if settings.MapDir == "" {
		return "", false
	}

	// Imported grids are unvalidated; only well-formed locators reach the
	// file name.
	grid, err := utils.NormalizeGridSquare(*qso.Grid)
	if err != nil || grid == "" {
		return "", false
	}

	name := fmt.Sprintf("qso-%d-%s", qso.ID, grid)
	if settings.StationGrid != "" {
		name += "-" + settings.StationGrid
	}

	name += ".png"
	mapPath := filepath.Join(settings.MapDir, name)

	if _, err := os.Stat(mapPath); err == nil {
		return "/maps/" + name, true
	}

	if err := os.MkdirAll(settings.MapDir, 0o755); err != nil {
		logger.Error("Failed to create map directory", "dir", settings.MapDir, "error", err)
		return "", false
	}

	config := utils.DefaultMapConfig()
	config.OutputPath = mapPath

	if _, err := createGridMapFn(settings.StationGrid, grid, config); err != nil {
		logger.Error("Failed to generate map", "file", name, "error", err)
		return "", false
	}

	return "/maps/" + name, true
}

// EditQSOForm renders the form for an existing QSO.
func EditQSOForm(c flamego.Context, s session.Session, t template.Template, data template.Data) {
	id, err := parseQSOID(c)
	if err != nil {
		SetErrorFlash(s, "Invalid QSO")
		c.Redirect("/qsos", http.StatusSeeOther)

		return
	}

	qso, err := getQSOFn(c.Request().Context(), id)
	if err != nil {
		if !errors.Is(err, db.ErrQSONotFound) {
			logger.Error("Error fetching QSO", "qso_id", id, "error", err)
		}

		SetErrorFlash(s, "QSO not found")
		c.Redirect("/qsos", http.StatusSeeOther)

		return
	}

	populateQSOFormData(data, qsoFormValues(qso), nil, fmt.Sprintf("/qsos/%d/edit", id))
	data["IsEdit"] = true
	data["QSO"] = qso
	data["Breadcrumbs"] = qsoBreadcrumbs(
		BreadcrumbItem{Name: qso.Callsign, URL: fmt.Sprintf("/qsos/%d", id)},
		BreadcrumbItem{Name: "Edit", IsCurrent: true},
	)

	t.HTML(http.StatusOK, "qso_form")
}

// UpdateQSO validates and saves an edited QSO.
func UpdateQSO(c flamego.Context, s session.Session, t template.Template, data template.Data) {
	id, err := parseQSOID(c)
	if err != nil {
		SetErrorFlash(s, "Invalid QSO")
		c.Redirect("/qsos", http.StatusSeeOther)

		return
	}

	editPath := fmt.Sprintf("/qsos/%d/edit", id)

	if err := c.Request().ParseForm(); err != nil {
		SetErrorFlash(s, "Failed to parse form")
		c.Redirect(editPath, http.StatusSeeOther)

		return
	}

	input, errs := parseQSOForm(c.Request().Form)
	if len(errs) > 0 {
		populateQSOFormData(data, formValuesFrom(c), errs, editPath)
		data["IsEdit"] = true
		data["Breadcrumbs"] = qsoBreadcrumbs(BreadcrumbItem{Name: "Edit", IsCurrent: true})
		t.HTML(http.StatusUnprocessableEntity, "qso_form")

		return
	}

	if err := updateQSOFn(c.Request().Context(), id, input); err != nil {
		if errors.Is(err, db.ErrQSONotFound) {
			SetErrorFlash(s, "QSO not found")
			c.Redirect("/qsos", http.StatusSeeOther)

			return
		}

		logger.Error("Error updating QSO", "qso_id", id, "error", err)
		SetErrorFlash(s, "Failed to update QSO")
		c.Redirect(editPath, http.StatusSeeOther)

		return
	}

	SetSuccessFlash(s, "QSO updated")
	c.Redirect(fmt.Sprintf("/qsos/%d", id), http.StatusSeeOther)
}

// DeleteQSO removes a QSO.
func DeleteQSO(c flamego.Context, s session.Session) {
	id, err := parseQSOID(c)
	if err != nil {
		SetErrorFlash(s, "Invalid QSO")
		c.Redirect("/qsos", http.StatusSeeOther)

		return
	}

	if err := deleteQSOFn(c.Request().Context(), id); err != nil {
		if errors.Is(err, db.ErrQSONotFound) {
			SetErrorFlash(s, "QSO not found")
		} else {
			logger.Error("Error deleting QSO", "qso_id", id, "error", err)
			SetErrorFlash(s, "Failed to delete QSO")
		}

		c.Redirect("/qsos", http.StatusSeeOther)

		return
	}

	SetSuccessFlash(s, "QSO deleted")
	c.Redirect("/qsos", http.StatusSeeOther)
}

func parseADIFExportDate(raw string) (*time.Time, error) {
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

func buildADIFFilename(fromDate, toDate *time.Time, now time.Time) string {
	if fromDate == nil && toDate == nil {
		return "qsos-" + now.UTC().Format("20060102-150405") + ".adi"
	}

	fromPart := "all"
	if fromDate != nil {
		fromPart = fromDate.Format("20060102")
	}

	toPart := "all"
	if toDate != nil {
		toPart = toDate.Format("20060102")
	}

	return fmt.Sprintf("qsos-%s-%s.adi", fromPart, toPart)
}

// exportADI serializes the QSOs dated within [from, to]; nil bounds are open.
func exportADI(qsos []db.QSO, fromDate, toDate *time.Time) string {
	records := make([]*utils.ADIRecord, 0, len(qsos))

	for i := range qsos {
		date := qsos[i].QSODate
		if fromDate != nil && date < fromDate.Format("20060102") {
			continue
		}

		if toDate != nil && date > toDate.Format("20060102") {
			continue
		}

		records = append(records, qsos[i].ADIRecord())
	}

	return utils.SerializeADI(records)
}

// ExportADI downloads the log, optionally limited by from/to dates.
func ExportADI(c flamego.Context, s session.Session) {
	fromDate, err := parseADIFExportDate(c.Query("from"))
	if err != nil {
		SetErrorFlash(s, "Invalid export date, use YYYY-MM-DD")
		c.Redirect("/qsos", http.StatusSeeOther)

		return
	}

	toDate, err := parseADIFExportDate(c.Query("to"))
	if err != nil {
		SetErrorFlash(s, "Invalid export date, use YYYY-MM-DD")
		c.Redirect("/qsos", http.StatusSeeOther)

		return
	}

	if fromDate != nil && toDate != nil && fromDate.After(*toDate) {
		SetErrorFlash(s, "Export date range is invalid")
		c.Redirect("/qsos", http.StatusSeeOther)

		return
	}

	qsos, err := listQSOsFn(c.Request().Context())
	if err != nil {
		logger.Error("Error exporting ADIF", "error", err)
		SetErrorFlash(s, "Failed to export ADIF")
		c.Redirect("/qsos", http.StatusSeeOther)

		return
	}

	adi := exportADI(qsos, fromDate, toDate)
	filename := buildADIFFilename(fromDate, toDate, nowFn())

	c.ResponseWriter().Header().Set("Content-Type", "text/plain; charset=utf-8")
	c.ResponseWriter().Header().Set("Content-Disposition", "attachment; filename=\""+filename+"\"")
	c.ResponseWriter().Header().Set("Content-Length", strconv.Itoa(len(adi)))
	c.ResponseWriter().WriteHeader(http.StatusOK)

	if _, err := c.ResponseWriter().Write([]byte(adi)); err != nil {
		logger.Error("Error writing ADIF export response", "error", err)
	}
}
