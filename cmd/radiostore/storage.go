// Radiostore - Transmitter Settings Persistence and Backup
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/radiostore

package main

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/urfave/cli/v3"

	"github.com/tomtom215/radiostore/internal/backup"
	"github.com/tomtom215/radiostore/internal/modelindex"
	"github.com/tomtom215/radiostore/internal/persist"
	"github.com/tomtom215/radiostore/internal/record"
	"github.com/tomtom215/radiostore/internal/storage"
)

func formatCmd() *cli.Command {
	var yes bool
	return &cli.Command{
		Name:  "format",
		Usage: "Erase the medium and write factory defaults",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:        "yes",
				Aliases:     []string{"y"},
				Usage:       "confirm erasing all settings and models",
				Destination: &yes,
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) (err error) {
			if !yes {
				return cli.Exit("error: format erases every model; pass --yes to confirm", 1)
			}
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			m, err := openMedium(cfg, persist.Options{})
			if err != nil {
				return err
			}
			defer func() {
				if closeErr := m.shutdown(); err == nil && closeErr != nil {
					err = closeErr
				}
			}()

			if err := m.store.EraseAll(false); err != nil {
				return cli.Exit(fmt.Sprintf("error: format incomplete: %v", err), 1)
			}
			fmt.Println("storage formatted")
			return nil
		},
	}
}

// recordInfo is the inspect output for a single record file.
type recordInfo struct {
	Path     string `json:"path" yaml:"path"`
	FileSize int64  `json:"file_size" yaml:"file_size"`
	Magic    string `json:"magic" yaml:"magic"`
	Version  uint8  `json:"version" yaml:"version"`
	Kind     string `json:"kind" yaml:"kind"`
	Size     uint16 `json:"size" yaml:"size"`
	Legacy   bool   `json:"legacy" yaml:"legacy"`
	Valid    bool   `json:"valid" yaml:"valid"`
	Problem  string `json:"problem,omitempty" yaml:"problem,omitempty"`
}

func inspectCmd() *cli.Command {
	return &cli.Command{
		Name:      "inspect",
		Usage:     "Show the header of a record file or the directory of a backup container",
		ArgsUsage: "<path>",
		Flags:     []cli.Flag{formatFlag()},
		Action: func(ctx context.Context, cmd *cli.Command) (err error) {
			if cmd.Args().Len() != 1 {
				return cli.Exit("error: inspect takes exactly one volume path", 1)
			}
			name := strings.TrimSpace(cmd.Args().First())

			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			m, err := openMedium(cfg, persist.Options{})
			if err != nil {
				return err
			}
			defer func() {
				if closeErr := m.shutdown(); err == nil && closeErr != nil {
					err = closeErr
				}
			}()

			if strings.HasSuffix(name, storage.BackupExt) {
				svc := backup.NewService(backup.Deps{Volume: m.vol, Mounter: m.vol, Store: m.store}, backupConfig(cfg.Backup))
				info, err := svc.Inspect(name)
				if err != nil {
					return cli.Exit(fmt.Sprintf("error: %v", err), 1)
				}
				return render(stdout(), info, func(w io.Writer) error {
					return printContainer(w, info)
				})
			}

			info, err := inspectRecord(m.vol, name)
			if err != nil {
				return cli.Exit(fmt.Sprintf("error: %v", err), 1)
			}
			return render(stdout(), info, func(w io.Writer) error {
				_, err := fmt.Fprintf(w, "path:     %s\nmagic:    %s\nversion:  %d\nkind:     %s\nsize:     %d of %d bytes\nvalid:    %t\n",
					info.Path, info.Magic, info.Version, info.Kind, info.Size, info.FileSize, info.Valid)
				if err == nil && info.Problem != "" {
					_, err = fmt.Fprintf(w, "problem:  %s\n", info.Problem)
				}
				return err
			})
		},
	}
}

func inspectRecord(vol storage.Volume, name string) (*recordInfo, error) {
	h, size, err := record.ReadHeader(vol, name)
	if err != nil {
		return nil, err
	}
	info := &recordInfo{
		Path:     name,
		FileSize: size,
		Magic:    string(h.Magic[:]),
		Version:  h.Version,
		Kind:     string(rune(h.Kind)),
		Size:     h.Size,
		Legacy:   h.Legacy(),
		Valid:    true,
	}
	if err := h.Check(record.KindModel); err != nil {
		info.Valid = false
		info.Problem = err.Error()
	}
	return info, nil
}

func printContainer(w io.Writer, info *backup.ContainerInfo) error {
	if _, err := fmt.Fprintf(w, "%s: container v%d.%d, %s, %d entries\n",
		info.Path, info.Major, info.Minor, humanize.IBytes(uint64(info.Size)), len(info.Entries)); err != nil {
		return err
	}
	for _, e := range info.Entries {
		if _, err := fmt.Fprintf(w, "  %-32s %8d  crc32=%08x\n", e.Path, e.Size, e.CRC32); err != nil {
			return err
		}
	}
	return nil
}

// modelInfo is one list-models row.
type modelInfo struct {
	Category string `json:"category" yaml:"category"`
	Filename string `json:"filename" yaml:"filename"`
	Name     string `json:"name,omitempty" yaml:"name,omitempty"`
	Active   bool   `json:"active" yaml:"active"`
	Error    string `json:"error,omitempty" yaml:"error,omitempty"`
}

func listModelsCmd() *cli.Command {
	return &cli.Command{
		Name:    "list-models",
		Aliases: []string{"ls", "models"},
		Usage:   "List the models of the manifest",
		Flags:   []cli.Flag{formatFlag()},
		Action: func(ctx context.Context, cmd *cli.Command) (err error) {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			m, err := openMedium(cfg, persist.Options{})
			if err != nil {
				return err
			}
			defer func() {
				if closeErr := m.shutdown(); err == nil && closeErr != nil {
					err = closeErr
				}
			}()
			if err := m.load(ctx); err != nil {
				return err
			}

			idx, err := modelindex.Load(m.vol)
			if err != nil {
				return cli.Exit(fmt.Sprintf("error: read manifest: %v", err), 1)
			}

			current := m.store.CurrentModelFilename()
			var rows []modelInfo
			for cat, ref := range idx.Models() {
				row := modelInfo{
					Category: cat.Name,
					Filename: ref.Filename,
					Active:   ref.Filename == current,
				}
				md, err := m.store.ReadModel(ref.Filename)
				if err != nil {
					row.Error = err.Error()
				} else {
					row.Name = md.Name()
				}
				rows = append(rows, row)
			}

			return render(stdout(), rows, func(w io.Writer) error {
				if len(rows) == 0 {
					_, err := fmt.Fprintln(w, "no models")
					return err
				}
				for _, r := range rows {
					marker := " "
					if r.Active {
						marker = "*"
					}
					label := r.Name
					if r.Error != "" {
						label = "(" + r.Error + ")"
					}
					if _, err := fmt.Fprintf(w, "%s %-16s %-20s %s\n", marker, r.Category, r.Filename, label); err != nil {
						return err
					}
				}
				return nil
			})
		},
	}
}
