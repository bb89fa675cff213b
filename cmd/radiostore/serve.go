// Radiostore - Transmitter Settings Persistence and Backup
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/radiostore

package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/urfave/cli/v3"

	"github.com/tomtom215/radiostore/internal/api"
	"github.com/tomtom215/radiostore/internal/backup"
	"github.com/tomtom215/radiostore/internal/device"
	"github.com/tomtom215/radiostore/internal/logging"
	"github.com/tomtom215/radiostore/internal/modelindex"
	"github.com/tomtom215/radiostore/internal/persist"
	"github.com/tomtom215/radiostore/internal/pulses"
	"github.com/tomtom215/radiostore/internal/supervisor"
	"github.com/tomtom215/radiostore/internal/supervisor/services"
	"github.com/tomtom215/radiostore/internal/watchdog"
	ws "github.com/tomtom215/radiostore/internal/websocket"
)

func serveCmd() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Run the daemon with the HTTP control API",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			return serve(ctx)
		},
	}
}

//nolint:gocyclo // sequential setup steps
func serve(parent context.Context) (err error) {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	logging.Info().
		Str("driver", cfg.Storage.Driver).
		Str("root", cfg.Storage.Root).
		Str("addr", cfg.Server.Addr()).
		Msg("Starting radiostore with supervisor tree")

	hub := ws.NewHub()

	// The generator reads the live model from the store, so the model load
	// hooks reach it through this variable once it exists.
	var gen *pulses.Generator
	m, err := openMedium(cfg, persist.Options{
		OnWarn: func(reason string) {
			logging.Warn().Str("reason", reason).Msg("Storage warning")
		},
		PreModelLoad: func() {
			if gen != nil {
				gen.Pause()
			}
		},
		PostModelLoad: func(bool) {
			if gen != nil {
				gen.Resume()
			}
		},
	})
	if err != nil {
		return cli.Exit(fmt.Sprintf("error: %v", err), 1)
	}
	defer func() {
		if closeErr := m.shutdown(); closeErr != nil {
			logging.Error().Err(closeErr).Msg("Storage shutdown incomplete")
			if err == nil {
				err = closeErr
			}
		} else {
			logging.Info().Msg("Pending changes flushed")
		}
	}()

	if err := m.load(parent); err != nil {
		logging.Error().Err(err).Msg("Failed to load storage")
		return cli.Exit(fmt.Sprintf("error: %v", err), 1)
	}

	// === DATA LAYER ===

	dog := watchdog.New(cfg.Watchdog.Timeout)
	dog.OnExpire(func(stale time.Duration) {
		logging.Warn().Dur("stale", stale).Msg("Watchdog expired")
	})

	gen = pulses.New(m.store, cfg.Pulses.FramePeriod)
	gen.SetKicker(dog)

	rt := device.NewRuntime(m.store, m.vol)

	flusher := device.NewAutoFlusher(m.store, rt, device.AutoFlushConfig{
		Interval:        cfg.AutoFlush.Interval,
		BreakerFailures: cfg.AutoFlush.BreakerFailures,
		BreakerTimeout:  cfg.AutoFlush.BreakerTimeout,
	})
	flusher.SetOnFlush(func(flushed persist.Kind) {
		hub.BroadcastStorageFlushed(flushed.String())
	})

	backups := backup.NewService(backup.Deps{
		Volume:   m.vol,
		Mounter:  m.vol,
		Store:    m.store,
		Pulses:   gen,
		Device:   rt,
		Watchdog: dog,
	}, backupConfig(cfg.Backup))
	backups.SetProgress(hub.BroadcastProgress)
	backups.SetOnRestoreStart(hub.BroadcastRestoreStarted)
	backups.SetOnBackupComplete(func(res *backup.BackupResult) {
		hub.BroadcastJSON(ws.MessageTypeBackupCompleted, res)
	})
	backups.SetOnRestoreComplete(func(res *backup.RestoreResult) {
		hub.BroadcastJSON(ws.MessageTypeRestoreCompleted, res)
	})

	// === API LAYER ===

	handler := api.NewHandler(api.Deps{
		Store:   m.store,
		Backups: backups,
		Manifest: func() (*modelindex.Index, error) {
			return modelindex.Load(m.vol)
		},
		Mount:   m.vol,
		Hub:     hub,
		Version: version,
	})
	router := api.NewRouter(handler, api.NewMiddleware(api.MiddlewareConfigFrom(cfg.Server)))

	server := &http.Server{
		Addr:              cfg.Server.Addr(),
		Handler:           router.Setup(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	if cfg.HasWildcardCORS() {
		logging.Warn().Msg("CORS allows any origin")
	}

	// === SUPERVISOR TREE ===

	tree, err := supervisor.NewSupervisorTree(logging.NewSlogLogger(), supervisor.TreeConfigFrom(cfg.Supervisor))
	if err != nil {
		return fmt.Errorf("create supervisor tree: %w", err)
	}

	tree.AddDataService(gen)
	tree.AddDataService(dog)
	tree.AddDataService(flusher)
	tree.AddMessagingService(services.NewWebSocketHubService(hub))
	tree.AddAPIService(services.NewHTTPServerService(server, cfg.Server.ShutdownTimeout))
	logging.Info().Str("addr", server.Addr).Msg("Services added to supervisor tree")

	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logging.Info().Msg("Starting supervisor tree...")
	errCh := tree.ServeBackground(ctx)

	var treeErr error
	select {
	case <-ctx.Done():
		logging.Info().Msg("Shutdown requested, waiting for supervisor to finish...")
		treeErr = <-errCh
	case treeErr = <-errCh:
	}
	stop()

	if treeErr != nil && !errors.Is(treeErr, context.Canceled) {
		logging.Error().Err(treeErr).Msg("Supervisor tree error")
	}

	unstopped, _ := tree.UnstoppedServiceReport()
	for _, svc := range unstopped {
		logging.Warn().Str("service", svc.Name).Msg("Service failed to stop")
	}

	logging.Info().Msg("Radiostore stopped")
	return nil
}
