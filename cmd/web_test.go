// SPDX-FileCopyrightText: 2025 Humaid Alqasimi
// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"context"
	"errors"
	htmltemplate "html/template"
	"io/fs"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/flamego/flamego"
	"github.com/urfave/cli/v3"

	"github.com/humaidq/qsolog/db"
	"github.com/humaidq/qsolog/lotw"
	"github.com/humaidq/qsolog/routes"
	"github.com/humaidq/qsolog/templates"
)

func TestConfigureEmptyNotFoundHandlerReturnsStatusOnly(t *testing.T) {
	t.Parallel()

	f := flamego.New()
	configureEmptyNotFoundHandler(f)

	req := httptest.NewRequest(http.MethodGet, "/does-not-exist", nil)
	rec := httptest.NewRecorder()
	f.ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected status %d, got %d", http.StatusNotFound, rec.Code)
	}

	if rec.Body.Len() != 0 {
		t.Fatalf("expected empty 404 body, got %q", rec.Body.String())
	}
}

func TestRegisterRoutesRedirectsRootToLog(t *testing.T) {
	t.Parallel()

	f := flamego.New()
	registerRoutes(f)
	configureEmptyNotFoundHandler(f)

	rec := httptest.NewRecorder()
	f.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	if rec.Code != http.StatusSeeOther {
		t.Fatalf("expected status %d, got %d", http.StatusSeeOther, rec.Code)
	}

	if got := rec.Header().Get("Location"); got != "/qsos" {
		t.Fatalf("expected redirect to /qsos, got %q", got)
	}

	rec = httptest.NewRecorder()
	f.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/contacts", nil))

	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected unknown route to 404, got %d", rec.Code)
	}
}

// parseTemplates mirrors how the templater names files: by base name
// without the extension.
func parseTemplates(t *testing.T) *htmltemplate.Template {
	t.Helper()

	names, err := fs.Glob(templates.Templates, "*.html")
	if err != nil {
		t.Fatalf("failed to list templates: %v", err)
	}

	if len(names) == 0 {
		t.Fatal("expected embedded templates")
	}

	root := htmltemplate.New("").Funcs(templateFuncs())

	for _, name := range names {
		content, err := fs.ReadFile(templates.Templates, name)
		if err != nil {
			t.Fatalf("failed to read %s: %v", name, err)
		}

		if _, err := root.New(strings.TrimSuffix(name, ".html")).Parse(string(content)); err != nil {
			t.Fatalf("failed to parse %s: %v", name, err)
		}
	}

	return root
}

func renderTemplate(t *testing.T, tpl *htmltemplate.Template, name string, data map[string]interface{}) string {
	t.Helper()

	var out strings.Builder
	if err := tpl.ExecuteTemplate(&out, name, data); err != nil {
		t.Fatalf("failed to render %s: %v", name, err)
	}

	return out.String()
}

func TestTemplatesRender(t *testing.T) {
	t.Parallel()

	tpl := parseTemplates(t)

	grid := "FN31pr"
	freq := 14.074
	synced := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	qso := db.QSO{
		ID:           7,
		Callsign:     "W1AW",
		QSODate:      "20250301",
		TimeOn:       "1205",
		Band:         "20m",
		Mode:         "FT8",
		Frequency:    &freq,
		Grid:         &grid,
		Confirmed:    true,
		LastSyncTime: &synced,
	}

	base := func() map[string]interface{} {
		return map[string]interface{}{
			"PageTitle":  "QSO Log",
			"csrf_token": "token-123",
			"Flash":      routes.FlashMessage{Type: routes.FlashSuccess, Message: "Saved"},
		}
	}

	t.Run("list", func(t *testing.T) {
		t.Parallel()

		data := base()
		data["Page"] = &db.QSOPage{QSOs: []db.QSO{qso}, Total: 1, Page: 1, Size: 25, Pages: 1}
		data["IsQSOs"] = true

		out := renderTemplate(t, tpl, "qso_list", data)
		for _, want := range []string{"W1AW", "2025-03-01", "12:05", "Saved", `href="/qsos/7"`} {
			if !strings.Contains(out, want) {
				t.Fatalf("expected list to contain %q", want)
			}
		}
	})

	t.Run("view", func(t *testing.T) {
		t.Parallel()

		data := base()
		data["QSO"] = &qso
		data["History"] = []db.QSO{qso}
		data["MapURL"] = "/maps/qso-7-FN31PR.png"
		data["DistanceKm"] = "42"

		out := renderTemplate(t, tpl, "qso_view", data)
		for _, want := range []string{"14.074", "FN31pr", "42 km", "/maps/qso-7-FN31PR.png", "token-123", "2025-03-01 12:00 UTC"} {
			if !strings.Contains(out, want) {
				t.Fatalf("expected view to contain %q", want)
			}
		}
	})

	t.Run("form", func(t *testing.T) {
		t.Parallel()

		data := base()
		data["Form"] = map[string]string{"callsign": "K1ABC", "mode": "CW", "qslcard": "1"}
		data["FormErrors"] = map[string]string{"grid": "Grid square is invalid"}
		data["FormAction"] = "/qsos/new"
		data["Modes"] = []string{"FM", "CW"}
		data["QSLCardOptions"] = []db.QSLCardStatus{db.QSLCardNone, db.QSLCardEyeball}

		out := renderTemplate(t, tpl, "qso_form", data)
		for _, want := range []string{`value="K1ABC"`, `value="CW" selected`, `value="1" selected`, "Grid square is invalid"} {
			if !strings.Contains(out, want) {
				t.Fatalf("expected form to contain %q", want)
			}
		}
	})

	t.Run("lotw", func(t *testing.T) {
		t.Parallel()

		data := base()
		data["LOTWConfigured"] = true
		data["LOTWUsername"] = "W1AW"
		data["SyncRuns"] = []db.SyncRun{{
			Kind:        db.SyncRunDownloadQSL,
			StartedAt:   synced,
			FinishedAt:  synced.Add(time.Second),
			Success:     false,
			FailureKind: lotw.FailureNetwork,
			Message:     "Failed to reach LOTW",
		}}

		out := renderTemplate(t, tpl, "lotw", data)
		for _, want := range []string{"Signed in as W1AW", "download_qsl", "network", "Failed to reach LOTW"} {
			if !strings.Contains(out, want) {
				t.Fatalf("expected lotw page to contain %q", want)
			}
		}
	})
}

func TestTemplateFormatters(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		got  string
		want string
	}{
		{name: "date", got: formatQSODate("20250301"), want: "2025-03-01"},
		{name: "short date untouched", got: formatQSODate("2025"), want: "2025"},
		{name: "hhmm", got: formatTimeOn("0930"), want: "09:30"},
		{name: "hhmmss", got: formatTimeOn("093015"), want: "09:30:15"},
		{name: "odd time untouched", got: formatTimeOn("93"), want: "93"},
		{name: "nil time", got: formatTime((*time.Time)(nil)), want: ""},
		{name: "zero time", got: formatTime(time.Time{}), want: ""},
		{name: "unsupported", got: formatTime("2025"), want: ""},
		{
			name: "time in utc",
			got:  formatTime(time.Date(2025, 3, 1, 16, 30, 0, 0, time.FixedZone("GST", 4*3600))),
			want: "2025-03-01 12:30 UTC",
		},
		{name: "nil string", got: deref(nil), want: ""},
		{name: "nil float", got: derefFloat(nil), want: ""},
	}

	for _, tt := range tests {
		if tt.got != tt.want {
			t.Fatalf("%s: expected %q, got %q", tt.name, tt.want, tt.got)
		}
	}
}

func TestLOTWComponentsServiceWithoutClient(t *testing.T) {
	t.Parallel()

	components := &lotwComponents{Reconciler: lotw.NewReconciler(nil)}
	svc := components.service()

	if svc.Client != nil || svc.Uploader != nil {
		t.Fatalf("expected nil client and uploader, got %#v", svc)
	}

	if svc.Reconciler == nil {
		t.Fatal("expected reconciler to be set")
	}
}

func TestNewLOTWComponentsRequiresPool(t *testing.T) {
	t.Parallel()

	if _, err := newLOTWComponents(nil, nil); !errors.Is(err, db.ErrDatabaseConnectionNotInitialized) {
		t.Fatalf("expected ErrDatabaseConnectionNotInitialized, got %v", err)
	}
}

func TestDateFlag(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		args    []string
		want    string
		wantErr bool
	}{
		{name: "unset", args: nil},
		{name: "valid", args: []string{"--start-date", "2025-03-01"}, want: "2025-03-01"},
		{name: "invalid", args: []string{"--start-date", "03/01/2025"}, wantErr: true},
	}

	for _, tt := range tests {
		var (
			got    *time.Time
			gotErr error
		)

		cmd := &cli.Command{
			Name:  "test",
			Flags: dateRangeFlags(),
			Action: func(_ context.Context, cmd *cli.Command) error {
				got, gotErr = dateFlag(cmd, "start-date")
				return nil
			},
		}

		if err := cmd.Run(context.Background(), append([]string{"test"}, tt.args...)); err != nil {
			t.Fatalf("%s: run failed: %v", tt.name, err)
		}

		if tt.wantErr {
			if gotErr == nil {
				t.Fatalf("%s: expected error", tt.name)
			}

			continue
		}

		if gotErr != nil {
			t.Fatalf("%s: unexpected error: %v", tt.name, gotErr)
		}

		if tt.want == "" {
			if got != nil {
				t.Fatalf("%s: expected nil date, got %v", tt.name, got)
			}

			continue
		}

		if got == nil || got.Format("2006-01-02") != tt.want {
			t.Fatalf("%s: expected %s, got %v", tt.name, tt.want, got)
		}
	}
}

func TestReportOutcome(t *testing.T) {
	t.Parallel()

	if err := reportOutcome(lotw.Outcome{Success: true, Message: "ok", Reconciled: true, Added: 1}); err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}

	err := reportOutcome(lotw.Outcome{Kind: lotw.FailureRejected, Message: "Upload rejected"})
	if !errors.Is(err, errSyncFailed) {
		t.Fatalf("expected errSyncFailed, got %v", err)
	}

	if !strings.Contains(err.Error(), "Upload rejected") {
		t.Fatalf("expected message in error, got %v", err)
	}
}

func TestLOTWDownloadUsage(t *testing.T) {
	t.Parallel()

	for _, sub := range CmdLOTW.Commands {
		if sub.Name != "download" {
			continue
		}

		if sub.Usage != "Download confirmed QSLs to the download directory" {
			t.Fatalf("unexpected usage %q", sub.Usage)
		}

		return
	}

	t.Fatal("expected a download subcommand")
}
