package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"parley/internal/engine"
	"parley/internal/history"
	"parley/internal/hub"
	"parley/internal/registry"
	"parley/pkg/interfaces"
)

func newTestServer(t *testing.T, start bool) (*Server, *hub.Hub) {
	t.Helper()
	clock := interfaces.SystemClock{}
	reg := registry.NewRegistry()
	buf := history.NewBuffer(100)
	eng := engine.NewEngine(reg, buf, clock, engine.Options{
		MaxMessageLength: 500,
		HistoryBatchSize: 20,
		TypingStaleAfter: 3 * time.Second,
		WelcomeText:      "Welcome to the chat!",
	})
	h := hub.NewHub(eng, reg, clock, time.Hour)
	if start {
		if err := h.Start(context.Background()); err != nil {
			t.Fatalf("Hub start failed: %v", err)
		}
		t.Cleanup(func() { h.Stop() })
	}
	return NewServer(h), h
}

func TestHealthEndpoint(t *testing.T) {
	server, _ := newTestServer(t, true)

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	server.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Expected JSON content type, got %s", ct)
	}

	var body map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if body["status"] != "ok" {
		t.Errorf("Expected status ok, got %s", body["status"])
	}
}

func TestStatsEndpoint(t *testing.T) {
	server, _ := newTestServer(t, true)

	req := httptest.NewRequest(http.MethodGet, "/stats", nil)
	rec := httptest.NewRecorder()
	server.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rec.Code)
	}

	var body struct {
		Connections int    `json:"connections"`
		History     int    `json:"history"`
		Uptime      string `json:"uptime"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if body.Connections != 0 {
		t.Errorf("Expected 0 connections, got %d", body.Connections)
	}
	if body.History != 0 {
		t.Errorf("Expected 0 history, got %d", body.History)
	}
	if body.Uptime == "" {
		t.Error("Expected a populated uptime")
	}
}

func TestStatsUnavailableWhenHubStopped(t *testing.T) {
	server, _ := newTestServer(t, false)

	req := httptest.NewRequest(http.MethodGet, "/stats", nil)
	rec := httptest.NewRecorder()
	server.ServeHTTP(rec, req)

	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("Expected 503, got %d", rec.Code)
	}
}

func TestUnknownRoute(t *testing.T) {
	server, _ := newTestServer(t, true)

	req := httptest.NewRequest(http.MethodGet, "/nope", nil)
	rec := httptest.NewRecorder()
	server.ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("Expected 404, got %d", rec.Code)
	}
}
