/*
 * Copyright 2025 Humaid Alqasimi
 * SPDX-License-Identifier: Apache-2.0
 */
package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/urfave/cli/v3"

	"github.com/humaidq/qsolog/config"
	"github.com/humaidq/qsolog/db"
	"github.com/humaidq/qsolog/lotw"
)

func dateRangeFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:  "start-date",
			Usage: "first QSO or QSL date to include (YYYY-MM-DD)",
		},
		&cli.StringFlag{
			Name:  "end-date",
			Usage: "last QSO or QSL date to include (YYYY-MM-DD)",
		},
	}
}

var CmdLOTW = &cli.Command{
	Name:  "lotw",
	Usage: "Synchronize the log with Logbook of the World",
	Flags: config.Flags(),
	Commands: []*cli.Command{
		{
			Name:   "download",
			Usage:  "Download confirmed QSLs to the download directory",
			Flags:  dateRangeFlags(),
			Action: lotwDownload,
		},
		{
			Name:  "download-all",
			Usage: "Download every QSO LOTW holds for the account",
			Flags: append([]cli.Flag{
				&cli.BoolFlag{
					Name:  "process",
					Usage: "merge the downloaded QSOs into the log",
				},
			}, dateRangeFlags()...),
			Action: lotwDownloadAll,
		},
		{
			Name:  "upload",
			Usage: "Upload QSOs not yet sent to LOTW",
			Flags: []cli.Flag{
				&cli.StringFlag{
					Name:  "qso-date",
					Usage: "QSO date sent with the submission (YYYY-MM-DD)",
				},
			},
			Action: lotwUpload,
		},
		{
			Name:      "process",
			Usage:     "Merge a downloaded ADI file into the log",
			ArgsUsage: "<file>",
			Action:    lotwProcess,
		},
	},
}

// withLOTW opens the database, wires the LOTW components and runs fn. The
// outcome is recorded as a sync run and logged.
func withLOTW(
	ctx context.Context,
	cmd *cli.Command,
	kind db.SyncRunKind,
	needsClient bool,
	fn func(ctx context.Context, components *lotwComponents) (lotw.Outcome, error),
) error {
	cfg, err := config.FromCommand(cmd)
	if err != nil {
		return err
	}

	if needsClient && !cfg.HasLOTWCredentials() {
		return errLOTWNotConfigured
	}

	if err := openDatabase(ctx, cfg); err != nil {
		return err
	}
	defer db.Close()

	components, err := newLOTWComponents(cfg, db.GetPool())
	if err != nil {
		return err
	}

	startedAt := time.Now()

	outcome, err := fn(ctx, components)
	if err != nil {
		outcome = lotw.Outcome{
			Kind:       lotw.FailureUnexpected,
			Message:    err.Error(),
			Reconciled: outcome.Reconciled,
			Added:      outcome.Added,
			Updated:    outcome.Updated,
		}
	}

	if _, recordErr := db.RecordSyncRun(ctx, db.NewSyncRun(kind, startedAt, outcome)); recordErr != nil {
		appLogger.Warn("Failed to record sync run", "kind", kind, "error", recordErr)
	}

	return reportOutcome(outcome)
}

func reportOutcome(outcome lotw.Outcome) error {
	fields := []interface{}{"message", outcome.Message}
	if outcome.Path != "" {
		fields = append(fields, "path", outcome.Path)
	}

	if outcome.Reconciled {
		fields = append(fields, "added", outcome.Added, "updated", outcome.Updated)
	}

	if !outcome.Success {
		appLogger.Error("LOTW operation failed", append(fields, "kind", outcome.Kind)...)
		return fmt.Errorf("%w: %s", errSyncFailed, outcome.Message)
	}

	appLogger.Info("LOTW operation completed", fields...)

	return nil
}

func lotwDownload(ctx context.Context, cmd *cli.Command) error {
	start, err := dateFlag(cmd, "start-date")
	if err != nil {
		return err
	}

	end, err := dateFlag(cmd, "end-date")
	if err != nil {
		return err
	}

	return withLOTW(ctx, cmd, db.SyncRunDownloadQSL, true,
		func(ctx context.Context, components *lotwComponents) (lotw.Outcome, error) {
			return components.Client.DownloadLog(ctx, start, end), nil
		})
}

func lotwDownloadAll(ctx context.Context, cmd *cli.Command) error {
	start, err := dateFlag(cmd, "start-date")
	if err != nil {
		return err
	}

	end, err := dateFlag(cmd, "end-date")
	if err != nil {
		return err
	}

	process := cmd.Bool("process")

	return withLOTW(ctx, cmd, db.SyncRunDownloadAll, true,
		func(ctx context.Context, components *lotwComponents) (lotw.Outcome, error) {
			return components.Client.DownloadAllQSOs(ctx, start, end, process)
		})
}

func lotwUpload(ctx context.Context, cmd *cli.Command) error {
	qsoDate, err := dateFlag(cmd, "qso-date")
	if err != nil {
		return err
	}

	return withLOTW(ctx, cmd, db.SyncRunUpload, true,
		func(ctx context.Context, components *lotwComponents) (lotw.Outcome, error) {
			return components.Uploader.UploadPending(ctx, qsoDate)
		})
}

func lotwProcess(ctx context.Context, cmd *cli.Command) error {
	path := cmd.Args().First()
	if path == "" {
		return errADIFileRequired
	}

	return withLOTW(ctx, cmd, db.SyncRunProcess, false,
		func(ctx context.Context, components *lotwComponents) (lotw.Outcome, error) {
			return processFile(ctx, components.Reconciler, path)
		})
}

// processFile reconciles a local ADI file and reports it like a download.
func processFile(ctx context.Context, reconciler *lotw.Reconciler, path string) (lotw.Outcome, error) {
	result, err := reconciler.ProcessFile(ctx, path)
	outcome := lotw.Outcome{
		Reconciled: true,
		Added:      result.Added,
		Updated:    result.Updated,
		Path:       path,
	}

	if err != nil {
		return outcome, fmt.Errorf("failed to process %s: %w", path, err)
	}

	outcome.Success = true
	outcome.Message = fmt.Sprintf("Processed %s (%d skipped)", path, result.Skipped)

	return outcome, nil
}
