// Radiostore - Transmitter Settings Persistence and Backup
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/radiostore

/*
Package websocket streams backup, restore and storage events to companion
UIs.

A Hub owns the set of connected clients and fans every message out to all of
them. Each Client runs a read pump (pings, close detection) and a write pump
(messages, keepalive pings):

	┌──────────┐
	│   Hub    │ ← backup/restore callbacks, autoflush
	└────┬─────┘
	     │
	┌────┴─────┬─────────┐
	│ Client1  │ Client2 │ ...
	└──────────┴─────────┘

Message Types:

  - backup_progress, restore_progress: (label, current, total) per entry
  - backup_completed: the backup result
  - restore_started, restore_completed: restore lifecycle
  - storage_flushed: entities written by a background flush
  - ping / pong: client keepalive

Usage:

	hub := websocket.NewHub()
	tree.AddAPIService(services.NewWebSocketHubService(hub))

	svc.SetProgress(hub.BroadcastProgress)
	svc.SetOnBackupComplete(func(r *backup.BackupResult) {
	    hub.BroadcastJSON(websocket.MessageTypeBackupCompleted, r)
	})

Broadcasts never block: when the hub's queue is full the message is dropped
and logged. A client whose send buffer is full is disconnected.
*/
package websocket
