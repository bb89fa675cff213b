// Radiostore - Transmitter Settings Persistence and Backup
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/radiostore

// Package main is the radiostore command.
//
// radiostore keeps the settings and model records of a transmitter on a
// storage medium and packs them into backup containers. The serve command
// runs the daemon: the pulse generator, the watchdog, the background
// flusher and the HTTP control API under one supervisor tree. The other
// commands work on an offline medium.
//
// # Configuration
//
// Configuration is loaded via Koanf v2 with layered sources (highest
// priority wins):
//   - Environment variables (RADIOSTORE_*, LOG_LEVEL, LOG_FORMAT)
//   - Config file (--config, $RADIOSTORE_CONFIG or radiostore.yaml)
//   - Built-in defaults
//
// # Signal Handling
//
// serve shuts down on SIGINT and SIGTERM. Pending changes are flushed
// immediately before the process exits.
//
// # Example Usage
//
//	radiostore serve --config /etc/radiostore/config.yaml
//	radiostore backup
//	radiostore list-backups --format json
//	radiostore restore BACKUPS/backup-2026-10-17-101500.otx
//	radiostore inspect MODELS/model1.bin
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/urfave/cli/v3"
)

// Set via -ldflags at build time.
var (
	version   = "dev"
	commit    = ""
	buildTime = ""
)

var configFile string

func main() {
	app := &cli.Command{
		Name:  "radiostore",
		Usage: "Transmitter settings persistence and backup",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "config",
				Aliases:     []string{"c"},
				Usage:       "path to config file (default: $RADIOSTORE_CONFIG or radiostore.yaml)",
				Destination: &configFile,
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			return cli.ShowAppHelp(cmd)
		},
		Commands: []*cli.Command{
			serveCmd(),
			backupCmd(),
			restoreCmd(),
			listBackupsCmd(),
			inspectCmd(),
			formatCmd(),
			listModelsCmd(),
			versionCmd(),
		},
	}

	if err := app.Run(context.Background(), os.Args); err != nil {
		_, _ = fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
