package api

import (
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"parley/internal/hub"
)

// Server is the HTTP status surface next to the WebSocket endpoint. No
// business logic lives here — it reads snapshots through the hub and
// serializes them.
type Server struct {
	hub     *hub.Hub
	started time.Time
	router  chi.Router
}

// NewServer creates the status API over the given hub.
func NewServer(h *hub.Hub) *Server {
	s := &Server{
		hub:     h,
		started: time.Now(),
		router:  chi.NewRouter(),
	}

	s.router.Get("/healthz", s.handleHealth)
	s.router.Get("/stats", s.handleStats)
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

type healthResponse struct {
	Status string `json:"status"`
}

type statsResponse struct {
	Connections int    `json:"connections"`
	History     int    `json:"history"`
	Uptime      string `json:"uptime"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, healthResponse{Status: "ok"})
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.hub.Snapshot()
	if err != nil {
		http.Error(w, "hub unavailable", http.StatusServiceUnavailable)
		return
	}

	s.writeJSON(w, http.StatusOK, statsResponse{
		Connections: stats.Connections,
		History:     stats.History,
		Uptime:      time.Since(s.started).Round(time.Second).String(),
	})
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("Failed to encode response: %v", err)
	}
}
