// Radiostore - Transmitter Settings Persistence and Backup
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/radiostore

package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/urfave/cli/v3"

	"github.com/tomtom215/radiostore/internal/backup"
	"github.com/tomtom215/radiostore/internal/persist"
	"github.com/tomtom215/radiostore/internal/storage"
)

// offlineBackups opens the medium and returns a backup service working
// directly on it. With load set the settings and active model are read
// first; restore skips that, since it replaces both records and an
// unreadable settings record is the usual reason to restore.
func offlineBackups(ctx context.Context, load bool) (*medium, *backup.Service, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, nil, err
	}
	m, err := openMedium(cfg, persist.Options{})
	if err != nil {
		return nil, nil, err
	}
	if load {
		if err := m.load(ctx); err != nil {
			_ = m.shutdown()
			return nil, nil, err
		}
	}

	svc := backup.NewService(backup.Deps{
		Volume:  m.vol,
		Mounter: m.vol,
		Store:   m.store,
	}, backupConfig(cfg.Backup))
	svc.SetProgress(func(label string, current, total int) {
		_, _ = fmt.Fprintf(os.Stderr, "\r%s %d/%d", label, current, total)
		if current == total {
			_, _ = fmt.Fprintln(os.Stderr)
		}
	})
	return m, svc, nil
}

func backupCmd() *cli.Command {
	return &cli.Command{
		Name:  "backup",
		Usage: "Write a backup container of the medium to BACKUPS/",
		Flags: []cli.Flag{formatFlag()},
		Action: func(ctx context.Context, cmd *cli.Command) (err error) {
			m, svc, err := offlineBackups(ctx, true)
			if err != nil {
				return err
			}
			defer func() {
				if closeErr := m.shutdown(); err == nil && closeErr != nil {
					err = closeErr
				}
			}()

			res, backupErr := svc.CreateBackup(ctx)
			if res != nil {
				if err := render(stdout(), res, func(w io.Writer) error {
					return printBackupResult(w, res)
				}); err != nil {
					return err
				}
			}
			if backupErr != nil {
				return cli.Exit(fmt.Sprintf("error: backup failed: %v", backupErr), 1)
			}
			return nil
		},
	}
}

func restoreCmd() *cli.Command {
	return &cli.Command{
		Name:      "restore",
		Usage:     "Replace the medium contents with a backup container",
		ArgsUsage: "<path>",
		Flags:     []cli.Flag{formatFlag()},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			if cmd.Args().Len() != 1 {
				return cli.Exit("error: restore takes exactly one container path", 1)
			}
			res, restoreErr := restoreBackup(ctx, cmd.Args().First())
			if res != nil {
				if err := render(stdout(), res, func(w io.Writer) error {
					return printRestoreResult(w, res)
				}); err != nil {
					return err
				}
			}
			if restoreErr != nil {
				return cli.Exit(fmt.Sprintf("error: restore incomplete: %v", restoreErr), 1)
			}
			return nil
		},
	}
}

// restoreBackup restores the container name onto the medium without
// loading the current settings. A bare filename is looked up in BACKUPS/.
func restoreBackup(ctx context.Context, name string) (res *backup.RestoreResult, err error) {
	name = strings.TrimSpace(name)
	if !strings.Contains(name, "/") {
		name = storage.BackupsDir + "/" + name
	}

	m, svc, err := offlineBackups(ctx, false)
	if err != nil {
		return nil, err
	}
	defer func() {
		if closeErr := m.shutdown(); err == nil && closeErr != nil {
			err = closeErr
		}
	}()

	return svc.Restore(ctx, name)
}

func listBackupsCmd() *cli.Command {
	return &cli.Command{
		Name:    "list-backups",
		Aliases: []string{"backups"},
		Usage:   "List backup containers, newest first",
		Flags:   []cli.Flag{formatFlag()},
		Action: func(ctx context.Context, cmd *cli.Command) (err error) {
			m, svc, err := offlineBackups(ctx, false)
			if err != nil {
				return err
			}
			defer func() {
				if closeErr := m.shutdown(); err == nil && closeErr != nil {
					err = closeErr
				}
			}()

			list, err := svc.ListBackups()
			if err != nil {
				return err
			}
			return render(stdout(), list, func(w io.Writer) error {
				if len(list) == 0 {
					_, err := fmt.Fprintln(w, "no backups")
					return err
				}
				for _, b := range list {
					if _, err := fmt.Fprintf(w, "%-48s %10s  %s\n", b.Path, humanize.IBytes(uint64(b.Size)), humanize.Time(b.ModTime)); err != nil {
						return err
					}
				}
				return nil
			})
		},
	}
}

func printBackupResult(w io.Writer, res *backup.BackupResult) error {
	if !res.Success {
		_, err := fmt.Fprintf(w, "backup failed at %s: %s\n", res.FailedStep, res.Error)
		return err
	}
	if _, err := fmt.Fprintf(w, "wrote %s (%d entries, %s) in %s\n",
		res.Path, res.Entries, humanize.IBytes(uint64(res.Bytes)), res.Duration); err != nil {
		return err
	}
	return printWarnings(w, res.Warnings)
}

func printRestoreResult(w io.Writer, res *backup.RestoreResult) error {
	if _, err := fmt.Fprintf(w, "restored %d of %d entries from %s\n", res.Restored, res.Total, res.Path); err != nil {
		return err
	}
	for _, e := range res.Entries {
		if e.Error == "" {
			continue
		}
		if _, err := fmt.Fprintf(w, "  failed %s: %s\n", e.Path, e.Error); err != nil {
			return err
		}
	}
	if !res.Success && res.FailedStep != "" {
		if _, err := fmt.Fprintf(w, "failed at %s: %s\n", res.FailedStep, res.Error); err != nil {
			return err
		}
	}
	return printWarnings(w, res.Warnings)
}

func printWarnings(w io.Writer, warnings []string) error {
	for _, warn := range warnings {
		if _, err := fmt.Fprintf(w, "warning: %s\n", warn); err != nil {
			return err
		}
	}
	return nil
}
