// Radiostore - Transmitter Settings Persistence and Backup
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/radiostore

// Package services adapts components whose lifecycle is not already a
// suture.Service.
//
// The pulse generator, the watchdog and the auto-flusher implement Serve
// themselves and are added to the tree directly. What remains here:
//
//   - HTTPServerService turns ListenAndServe/Shutdown into Serve, draining
//     connections for up to the configured shutdown timeout.
//   - WebSocketHubService runs websocket.Hub.RunWithContext.
//
// Every wrapper returns ctx.Err() on shutdown and a wrapped error when the
// component fails, so suture restarts it.
package services
