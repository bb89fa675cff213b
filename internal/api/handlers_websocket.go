// Radiostore - Transmitter Settings Persistence and Backup
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/radiostore

package api

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/tomtom215/radiostore/internal/logging"
	ws "github.com/tomtom215/radiostore/internal/websocket"
)

// OriginChecker decides whether a websocket origin is allowed.
type OriginChecker func(origin string) bool

func newUpgrader(allow OriginChecker) websocket.Upgrader {
	return websocket.Upgrader{
		ReadBufferSize:   1024,
		WriteBufferSize:  1024,
		HandshakeTimeout: 10 * time.Second,
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			// Non-browser clients (the CLI, scripts) send no Origin.
			if origin == "" {
				return true
			}
			if allow != nil && allow(origin) {
				return true
			}
			logging.Warn().Str("origin", sanitizeLogValue(origin)).Msg("WebSocket connection rejected from unauthorized origin")
			return false
		},
	}
}

// WebSocket upgrades the connection and registers it with the hub.
func (h *Handler) WebSocket(allow OriginChecker) http.HandlerFunc {
	upgrader := newUpgrader(allow)
	return func(w http.ResponseWriter, r *http.Request) {
		if h.deps.Hub == nil {
			NewResponseWriter(w, r).Error(http.StatusServiceUnavailable, ErrCodeUnavailable,
				"Progress stream unavailable")
			return
		}

		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			logging.Error().Err(err).Msg("WebSocket upgrade error")
			return
		}

		client := ws.NewClient(h.deps.Hub, conn)
		if !h.deps.Hub.RegisterClient(client) {
			_ = conn.Close()
			return
		}
		client.Start()
	}
}
