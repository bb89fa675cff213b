// Radiostore - Transmitter Settings Persistence and Backup
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/radiostore

/*
Package supervisor runs the long-lived parts of radiostore under suture v4.

# Tree

	RootSupervisor ("radiostore")
	├── DataSupervisor ("data-layer")
	│   ├── pulse-generator
	│   ├── watchdog
	│   └── autoflush
	├── MessagingSupervisor ("messaging-layer")
	│   └── websocket-hub
	└── APISupervisor ("api-layer")
	    └── http-server

Each layer counts failures on its own. A panicking HTTP handler restarts
the API layer; the pulse generator and the watchdog keep running.

# Usage

	tree, err := supervisor.NewSupervisorTree(logging.NewSlogLogger(),
	    supervisor.TreeConfigFrom(cfg.Supervisor))
	if err != nil {
	    return err
	}
	tree.AddDataService(gen)
	tree.AddDataService(dog)
	tree.AddDataService(flusher)
	tree.AddMessagingService(services.NewWebSocketHubService(hub))
	tree.AddAPIService(services.NewHTTPServerService(server, cfg.Server.ShutdownTimeout))

	if err := tree.Serve(ctx); err != nil && !errors.Is(err, context.Canceled) {
	    return err
	}

Services return nil to stop for good, an error to be restarted, and
ctx.Err() on shutdown.

# Events

Supervisor events (restarts, backoff, timeouts) go through sutureslog into
the slog adapter of internal/logging, so they land in the same zerolog
stream as everything else.

# Shutdown

UnstoppedServiceReport lists services that ignored cancellation for longer
than ShutdownTimeout.
*/
package supervisor
