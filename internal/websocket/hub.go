// Radiostore - Transmitter Settings Persistence and Backup
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/radiostore

package websocket

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/goccy/go-json"

	"github.com/tomtom215/radiostore/internal/logging"
)

// ShutdownReason identifies why the hub stopped.
type ShutdownReason string

const (
	ShutdownReasonContextCanceled ShutdownReason = "context_canceled"
	ShutdownReasonContextDeadline ShutdownReason = "context_deadline"
)

// Message types.
const (
	MessageTypePing             = "ping"
	MessageTypePong             = "pong"
	MessageTypeBackupProgress   = "backup_progress"
	MessageTypeBackupCompleted  = "backup_completed"
	MessageTypeRestoreStarted   = "restore_started"
	MessageTypeRestoreProgress  = "restore_progress"
	MessageTypeRestoreCompleted = "restore_completed"
	MessageTypeStorageFlushed   = "storage_flushed"
)

// Message is the envelope of every websocket frame.
type Message struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

// ProgressData is sent with backup_progress and restore_progress.
type ProgressData struct {
	Label   string `json:"label"`
	Current int    `json:"current"`
	Total   int    `json:"total"`
	Percent int    `json:"percent"`
}

// RestoreStartedData is sent with restore_started.
type RestoreStartedData struct {
	Path      string `json:"path"`
	Timestamp string `json:"timestamp"`
}

// StorageFlushedData is sent with storage_flushed.
type StorageFlushedData struct {
	Entities  string `json:"entities"`
	Timestamp string `json:"timestamp"`
}

// Hub maintains the active clients and broadcasts to them.
type Hub struct {
	clients    map[*Client]bool
	broadcast  chan Message
	Register   chan *Client
	Unregister chan *Client
	mu         sync.RWMutex

	// done is closed when RunWithContext returns.
	done     chan struct{}
	doneOnce sync.Once
}

// NewHub returns a Hub. Call RunWithContext to start it.
func NewHub() *Hub {
	return &Hub{
		broadcast:  make(chan Message, 256),
		Register:   make(chan *Client),
		Unregister: make(chan *Client),
		clients:    make(map[*Client]bool),
		done:       make(chan struct{}),
	}
}

// RunWithContext processes registrations and broadcasts until ctx is
// canceled, then closes every client. Shutdown is checked first and client
// lifecycle events are handled before broadcasts, so a broadcast never
// reaches a client that has already been unregistered.
func (h *Hub) RunWithContext(ctx context.Context) error {
	defer h.doneOnce.Do(func() { close(h.done) })

	for {
		select {
		case <-ctx.Done():
			h.shutdown(ctx)
			return ctx.Err()
		default:
		}

		select {
		case client := <-h.Register:
			h.register(client)
			continue
		case client := <-h.Unregister:
			h.unregister(client)
			continue
		default:
		}

		select {
		case <-ctx.Done():
			h.shutdown(ctx)
			return ctx.Err()
		case client := <-h.Register:
			h.register(client)
		case client := <-h.Unregister:
			h.unregister(client)
		case message := <-h.broadcast:
			h.broadcastToClients(message)
		}
	}
}

// Done is closed once the hub has stopped.
func (h *Hub) Done() <-chan struct{} {
	return h.done
}

// RegisterClient hands client to the hub. It returns false without
// blocking further once the hub has stopped.
func (h *Hub) RegisterClient(client *Client) bool {
	select {
	case h.Register <- client:
		return true
	case <-h.done:
		return false
	}
}

func (h *Hub) register(client *Client) {
	h.mu.Lock()
	h.clients[client] = true
	n := len(h.clients)
	h.mu.Unlock()
	logging.Info().Int("total_clients", n).Msg("websocket client connected")
}

func (h *Hub) unregister(client *Client) {
	h.mu.Lock()
	if _, ok := h.clients[client]; ok {
		delete(h.clients, client)
		close(client.send)
	}
	n := len(h.clients)
	h.mu.Unlock()
	logging.Info().Int("total_clients", n).Msg("websocket client disconnected")
}

func (h *Hub) shutdown(ctx context.Context) {
	n := h.GetClientCount()
	h.closeAllClients()
	logging.Info().
		Str("component", "websocket-hub").
		Str("reason", string(getShutdownReason(ctx))).
		Int("clients_closed", n).
		Msg("websocket hub stopped")
}

func getShutdownReason(ctx context.Context) ShutdownReason {
	if ctx.Err() == context.DeadlineExceeded {
		return ShutdownReasonContextDeadline
	}
	return ShutdownReasonContextCanceled
}

// sortedClients returns the clients in ID order. Caller holds h.mu.
func (h *Hub) sortedClients() []*Client {
	clients := make([]*Client, 0, len(h.clients))
	for client := range h.clients {
		clients = append(clients, client)
	}
	sort.Slice(clients, func(i, j int) bool {
		return clients[i].id < clients[j].id
	})
	return clients
}

// broadcastToClients delivers message to every client in ID order and
// drops clients whose buffer is full.
func (h *Hub) broadcastToClients(message Message) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for _, client := range h.sortedClients() {
		select {
		case client.send <- message:
		default:
			close(client.send)
			delete(h.clients, client)
			logging.Warn().Uint64("client", client.id).Msg("websocket client too slow, disconnected")
		}
	}
}

func (h *Hub) closeAllClients() {
	h.mu.Lock()
	defer h.mu.Unlock()

	for _, client := range h.sortedClients() {
		close(client.send)
		delete(h.clients, client)
	}
}

// GetClientCount returns the number of connected clients.
func (h *Hub) GetClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// BroadcastJSON queues a message of messageType for all clients.
func (h *Hub) BroadcastJSON(messageType string, data any) {
	select {
	case h.broadcast <- Message{Type: messageType, Data: data}:
	default:
		logging.Warn().Str("message_type", messageType).Msg("broadcast channel full, dropping message")
	}
}

// BroadcastProgress has the signature of backup.ProgressFunc. The label
// selects backup_progress or restore_progress.
func (h *Hub) BroadcastProgress(label string, current, total int) {
	msgType := MessageTypeBackupProgress
	if strings.EqualFold(label, "restore") {
		msgType = MessageTypeRestoreProgress
	}
	percent := 0
	if total > 0 {
		percent = current * 100 / total
	}
	h.BroadcastJSON(msgType, ProgressData{
		Label:   label,
		Current: current,
		Total:   total,
		Percent: percent,
	})
}

// BroadcastRestoreStarted announces a restore of path.
func (h *Hub) BroadcastRestoreStarted(path string) {
	h.BroadcastJSON(MessageTypeRestoreStarted, RestoreStartedData{
		Path:      path,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})
}

// BroadcastStorageFlushed announces a background flush of entities.
func (h *Hub) BroadcastStorageFlushed(entities string) {
	h.BroadcastJSON(MessageTypeStorageFlushed, StorageFlushedData{
		Entities:  entities,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})
}

// MarshalMessage encodes msg as JSON.
func MarshalMessage(msg Message) ([]byte, error) {
	return json.Marshal(msg)
}
