// Radiostore - Transmitter Settings Persistence and Backup
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/radiostore

package api

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/gorilla/websocket"

	"github.com/tomtom215/radiostore/internal/config"
	ws "github.com/tomtom215/radiostore/internal/websocket"
)

func newTestRouter(t *testing.T, mc *MiddlewareConfig) (http.Handler, *mockStore) {
	t.Helper()
	h, store, _ := newTestHandler()
	return NewRouter(h, NewMiddleware(mc)).Setup(), store
}

func TestRouterRoutes(t *testing.T) {
	router, _ := newTestRouter(t, nil)

	tests := []struct {
		method     string
		path       string
		wantStatus int
	}{
		{http.MethodGet, "/api/v1/health", http.StatusOK},
		{http.MethodGet, "/api/v1/storage/status", http.StatusOK},
		{http.MethodGet, "/api/v1/models", http.StatusOK},
		{http.MethodGet, "/api/v1/backups", http.StatusOK},
		{http.MethodPost, "/api/v1/storage/flush", http.StatusOK},
		{http.MethodPost, "/api/v1/models", http.StatusCreated},
		{http.MethodPost, "/api/v1/backups", http.StatusCreated},
		{http.MethodGet, "/metrics", http.StatusOK},
		{http.MethodGet, "/api/v1/nope", http.StatusNotFound},
		{http.MethodDelete, "/api/v1/backups", http.StatusMethodNotAllowed},
	}

	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, tt.path, nil)
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, req)

			if rec.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d: %s", rec.Code, tt.wantStatus, rec.Body.String())
			}
		})
	}
}

func TestRouterSetsHeaders(t *testing.T) {
	router, _ := newTestRouter(t, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/health", nil)
	req.Header.Set("X-Request-ID", "req-123")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if got := rec.Header().Get("X-Request-ID"); got != "req-123" {
		t.Errorf("X-Request-ID = %q, want req-123", got)
	}
	if got := rec.Header().Get("X-Content-Type-Options"); got != "nosniff" {
		t.Errorf("X-Content-Type-Options = %q", got)
	}

	var env envelope
	if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if env.Meta == nil || env.Meta.RequestID != "req-123" {
		t.Errorf("meta = %+v, want request id", env.Meta)
	}
}

func TestRouterRateLimitsMutatingRoutes(t *testing.T) {
	mc := DefaultMiddlewareConfig()
	mc.RateLimitRequests = 2
	mc.RateLimitWindow = time.Minute
	router, _ := newTestRouter(t, mc)

	post := func() int {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/storage/flush", nil)
		req.RemoteAddr = "192.0.2.10:4000"
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		return rec.Code
	}

	for i := 0; i < 2; i++ {
		if code := post(); code != http.StatusOK {
			t.Fatalf("request %d: status = %d, want 200", i+1, code)
		}
	}
	if code := post(); code != http.StatusTooManyRequests {
		t.Errorf("third request: status = %d, want 429", code)
	}

	// Reads are not limited.
	req := httptest.NewRequest(http.MethodGet, "/api/v1/storage/status", nil)
	req.RemoteAddr = "192.0.2.10:4000"
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Errorf("read after limit: status = %d, want 200", rec.Code)
	}
}

func TestRouterCORS(t *testing.T) {
	tests := []struct {
		name      string
		origins   []string
		origin    string
		wantAllow string
	}{
		{"listed origin", []string{"http://ui.local"}, "http://ui.local", "http://ui.local"},
		{"unlisted origin", []string{"http://ui.local"}, "http://evil.example", ""},
		{"no origins configured", nil, "http://ui.local", ""},
		{"wildcard", []string{"*"}, "http://any.local", "*"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mc := DefaultMiddlewareConfig()
			mc.CORSAllowedOrigins = tt.origins
			router, _ := newTestRouter(t, mc)

			req := httptest.NewRequest(http.MethodOptions, "/api/v1/backups", nil)
			req.Header.Set("Origin", tt.origin)
			req.Header.Set("Access-Control-Request-Method", http.MethodPost)
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, req)

			if got := rec.Header().Get("Access-Control-Allow-Origin"); got != tt.wantAllow {
				t.Errorf("Access-Control-Allow-Origin = %q, want %q", got, tt.wantAllow)
			}
		})
	}
}

func TestMiddlewareConfigFrom(t *testing.T) {
	mc := MiddlewareConfigFrom(config.ServerConfig{
		CORSOrigins:       []string{"http://ui.local"},
		RateLimitRequests: 5,
		RateLimitWindow:   30 * time.Second,
	})
	if mc.RateLimitRequests != 5 || mc.RateLimitWindow != 30*time.Second || mc.RateLimitDisabled {
		t.Errorf("rate limit = %d/%v disabled=%v", mc.RateLimitRequests, mc.RateLimitWindow, mc.RateLimitDisabled)
	}

	m := NewMiddleware(mc)
	if !m.AllowsOrigin("http://ui.local") || m.AllowsOrigin("http://other.local") {
		t.Error("AllowsOrigin does not follow the configured origins")
	}

	if !MiddlewareConfigFrom(config.ServerConfig{}).RateLimitDisabled {
		t.Error("zero requests should disable rate limiting")
	}
}

func TestRouterWebSocketReceivesFlushEvent(t *testing.T) {
	hub := ws.NewHub()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = hub.RunWithContext(ctx) }()

	h, store, _ := newTestHandler()
	h.deps.Hub = hub
	srv := httptest.NewServer(NewRouter(h, nil).Setup())
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/v1/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("Dial() error = %v", err)
	}
	defer conn.Close()

	deadline := time.Now().Add(2 * time.Second)
	for hub.GetClientCount() == 0 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}

	store.dirty = 1
	resp, err := http.Post(srv.URL+"/api/v1/storage/flush", "application/json", nil)
	if err != nil {
		t.Fatalf("POST flush: %v", err)
	}
	resp.Body.Close()

	if err := conn.SetReadDeadline(time.Now().Add(2 * time.Second)); err != nil {
		t.Fatalf("SetReadDeadline: %v", err)
	}
	_, data, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("ReadMessage() error = %v", err)
	}

	var msg ws.Message
	if err := json.Unmarshal(data, &msg); err != nil {
		t.Fatalf("decode message: %v", err)
	}
	if msg.Type != ws.MessageTypeStorageFlushed {
		t.Errorf("message type = %q, want %q", msg.Type, ws.MessageTypeStorageFlushed)
	}
}

func TestRouterWebSocketRejectsForeignOrigin(t *testing.T) {
	hub := ws.NewHub()
	h, _, _ := newTestHandler()
	h.deps.Hub = hub

	mc := DefaultMiddlewareConfig()
	mc.CORSAllowedOrigins = []string{"http://ui.local"}
	srv := httptest.NewServer(NewRouter(h, NewMiddleware(mc)).Setup())
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/v1/ws"
	header := http.Header{"Origin": []string{"http://evil.example"}}
	conn, resp, err := websocket.DefaultDialer.Dial(url, header)
	if err == nil {
		conn.Close()
		t.Fatal("Dial() succeeded from a foreign origin")
	}
	if resp == nil || resp.StatusCode != http.StatusForbidden {
		t.Errorf("response = %v, want 403", resp)
	}
}
