/*
 * Copyright 2025 Humaid Alqasimi
 * SPDX-License-Identifier: Apache-2.0
 */
package main

import (
	"context"
	"os"

	"github.com/urfave/cli/v3"

	"github.com/humaidq/qsolog/cmd"
	"github.com/humaidq/qsolog/config"
	"github.com/humaidq/qsolog/logging"
)

func main() {
	logging.Init()
	logger := logging.Logger(logging.SourceApp)

	if err := config.LoadDotEnv(".env"); err != nil {
		logger.Fatal("Failed to load .env", "error", err)
	}

	app := &cli.Command{
		Name:  "qsolog",
		Usage: "Amateur radio QSO log with LOTW sync",
		Commands: []*cli.Command{
			cmd.CmdStart,
			cmd.CmdMigrate,
			cmd.CmdLOTW,
		},
	}

	if err := app.Run(context.Background(), os.Args); err != nil {
		logger.Fatal("Command failed", "error", err)
	}
}
