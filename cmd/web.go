/*
 * Copyright 2025 Humaid Alqasimi
 * SPDX-License-Identifier: Apache-2.0
 */
package cmd

import (
	"context"
	"errors"
	"fmt"
	htmltemplate "html/template"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/flamego/csrf"
	"github.com/flamego/flamego"
	"github.com/flamego/session"
	"github.com/flamego/template"
	"github.com/urfave/cli/v3"

	"github.com/humaidq/qsolog/config"
	"github.com/humaidq/qsolog/db"
	"github.com/humaidq/qsolog/routes"
	"github.com/humaidq/qsolog/static"
	"github.com/humaidq/qsolog/templates"
)

const shutdownTimeout = 10 * time.Second

var CmdStart = &cli.Command{
	Name:    "start",
	Aliases: []string{"run"},
	Usage:   "Start the web server",
	Flags: append(config.Flags(),
		&cli.StringFlag{
			Name:  "port",
			Value: "8080",
			Usage: "the web server port",
		},
		&cli.StringFlag{
			Name:    "csrf-secret",
			Sources: cli.EnvVars("CSRF_SECRET"),
			Usage:   "secret used to sign CSRF tokens",
		},
		&cli.BoolFlag{
			Name:  "dev",
			Value: false,
			Usage: "enables development mode (for templates)",
		},
	),
	Action: start,
}

func start(ctx context.Context, cmd *cli.Command) error {
	cfg, err := config.FromCommand(cmd)
	if err != nil {
		return err
	}

	csrfSecret := strings.TrimSpace(cmd.String("csrf-secret"))
	if csrfSecret == "" {
		return errCSRFSecretRequired
	}

	if err := openDatabase(ctx, cfg); err != nil {
		return err
	}
	defer db.Close()

	components, err := newLOTWComponents(cfg, db.GetPool())
	if err != nil {
		return err
	}

	if components.Client == nil {
		appLogger.Warn("LOTW credentials not configured, sync actions are disabled")
	} else {
		appLogger.Info("LOTW client configured", "username", components.Client.Username())
	}

	if err := os.MkdirAll(cfg.MapDir, 0o755); err != nil {
		return fmt.Errorf("failed to create maps directory: %w", err)
	}

	if cmd.Bool("dev") {
		flamego.SetEnv(flamego.EnvTypeDev)
	} else {
		flamego.SetEnv(flamego.EnvTypeProd)
	}

	f, err := newWebApp(cfg, csrfSecret, components.service())
	if err != nil {
		return err
	}

	port := cmd.String("port")

	srv := &http.Server{
		Addr:              net.JoinHostPort("0.0.0.0", port),
		Handler:           f,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       30 * time.Second,
		// LOTW downloads can take minutes.
		WriteTimeout: 10 * time.Minute,
		ErrorLog:     requestStdLogger,
	}

	return serve(ctx, srv)
}

// serve runs srv until it fails or the process is interrupted.
func serve(ctx context.Context, srv *http.Server) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)

	go func() {
		appLogger.Info("Starting web server", "addr", srv.Addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}

		return fmt.Errorf("web server failed: %w", err)
	case <-ctx.Done():
	}

	appLogger.Info("Shutting down web server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shut down web server: %w", err)
	}

	return nil
}

// newWebApp builds the flamego instance with middleware and routes.
func newWebApp(cfg *config.Config, csrfSecret string, svc *routes.LOTWService) (*flamego.Flame, error) {
	fs, err := template.EmbedFS(templates.Templates, ".", []string{".html"})
	if err != nil {
		return nil, fmt.Errorf("failed to load templates: %w", err)
	}

	f := flamego.New()
	f.Use(routes.RequestLogger)
	f.Use(flamego.Recovery())
	f.Use(routes.NoCacheHeaders())
	f.Use(flamego.Static(flamego.StaticOptions{
		FileSystem: http.FS(static.Static),
		Prefix:     "static",
	}))
	f.Use(flamego.Static(flamego.StaticOptions{
		Directory: cfg.MapDir,
		Prefix:    "maps",
	}))
	f.Use(session.Sessioner(session.Options{
		Initer: db.PostgresSessionIniter(),
		Config: db.PostgresSessionConfig{},
	}))
	f.Use(csrf.Csrfer(csrf.Options{
		Secret: csrfSecret,
	}))
	f.Use(template.Templater(template.Options{
		FileSystem: fs,
		FuncMaps:   []htmltemplate.FuncMap{templateFuncs()},
	}))
	f.Use(routes.CSRFInjector())
	f.Use(routes.FlashInjector())
	f.Use(routes.SiteTitle(svc))

	f.Map(svc)
	f.Map(routes.Settings{
		StationGrid: cfg.StationGrid,
		MapDir:      cfg.MapDir,
	})

	registerRoutes(f)
	configureEmptyNotFoundHandler(f)

	return f, nil
}

// registerRoutes mounts the web UI and JSON API.
func registerRoutes(f *flamego.Flame) {
	f.Get("/", routes.Home)

	f.Get("/qsos", routes.QSOList)
	f.Get("/qsos/new", routes.NewQSOForm)
	f.Post("/qsos/new", csrf.Validate, routes.CreateQSO)
	f.Get("/qsos/export", routes.ExportADI)
	f.Get("/qsos/{id}", routes.ViewQSO)
	f.Get("/qsos/{id}/edit", routes.EditQSOForm)
	f.Post("/qsos/{id}/edit", csrf.Validate, routes.UpdateQSO)
	f.Post("/qsos/{id}/delete", csrf.Validate, routes.DeleteQSO)

	f.Get("/lotw", routes.LOTWPage)
	f.Post("/lotw/download", csrf.Validate, routes.LOTWDownload)
	f.Post("/lotw/download-all", csrf.Validate, routes.LOTWDownloadAll)
	f.Post("/lotw/upload", csrf.Validate, routes.LOTWUpload)
	f.Post("/lotw/import", csrf.Validate, routes.LOTWImport)

	f.Group("/api", func() {
		f.Get("/qsos", routes.APIListQSOs)
		f.Post("/qsos", routes.APICreateQSO)
		f.Get("/qsos/count", routes.APICountQSOs)
		f.Get("/qsos/{id}", routes.APIGetQSO)
		f.Put("/qsos/{id}", routes.APIUpdateQSO)
		f.Delete("/qsos/{id}", routes.APIDeleteQSO)
		f.Get("/history/{callsign}", routes.APIQSOHistory)
		f.Post("/lotw/download-all", routes.APIDownloadAll)
		f.Post("/lotw/upload", routes.APIUpload)
	})
}

func configureEmptyNotFoundHandler(f *flamego.Flame) {
	f.NotFound(func(c flamego.Context) {
		c.ResponseWriter().WriteHeader(http.StatusNotFound)
	})
}

func templateFuncs() htmltemplate.FuncMap {
	return htmltemplate.FuncMap{
		"formatQSODate": formatQSODate,
		"formatTimeOn":  formatTimeOn,
		"formatTime":    formatTime,
		"deref":         deref,
		"derefFloat":    derefFloat,
	}
}

// formatQSODate renders YYYYMMDD as YYYY-MM-DD.
func formatQSODate(date string) string {
	if len(date) != 8 {
		return date
	}

	return date[:4] + "-" + date[4:6] + "-" + date[6:]
}

// formatTimeOn renders HHMM[SS] as HH:MM[:SS].
func formatTimeOn(timeOn string) string {
	switch len(timeOn) {
	case 4:
		return timeOn[:2] + ":" + timeOn[2:]
	case 6:
		return timeOn[:2] + ":" + timeOn[2:4] + ":" + timeOn[4:]
	default:
		return timeOn
	}
}

// formatTime renders a time.Time or *time.Time in UTC.
func formatTime(v any) string {
	var t time.Time

	switch value := v.(type) {
	case time.Time:
		t = value
	case *time.Time:
		if value == nil {
			return ""
		}

		t = *value
	default:
		return ""
	}

	if t.IsZero() {
		return ""
	}

	return t.UTC().Format("2006-01-02 15:04 UTC")
}

func deref(s *string) string {
	if s == nil {
		return ""
	}

	return *s
}

func derefFloat(f *float64) string {
	if f == nil {
		return ""
	}

	return fmt.Sprintf("%g", *f)
}
