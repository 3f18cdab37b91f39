// Package control implements the Control Surface (C10): a thin HTTP adapter
// exposing the engine's status, lifecycle, and configuration over the
// routes spec.md §4.10 names. It holds no trading logic of its own.
package control

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/ethereum/go-ethereum/log"

	"github.com/sentientforest/gswap-interesting-trader-bot/internal/config"
	"github.com/sentientforest/gswap-interesting-trader-bot/internal/engine"
)

// Engine is the subset of *engine.Engine the control surface drives.
type Engine interface {
	Start(ctx context.Context)
	Stop()
	Status() engine.Status
}

// Server wires the five spec.md §4.10 routes onto an *http.ServeMux.
type Server struct {
	eng     Engine
	cfg     config.Config
	baseCtx context.Context
	mux     *http.ServeMux
}

// New builds a Server. baseCtx is the long-lived context the engine's loops
// run under (typically the process's signal context) — it must outlive any
// single HTTP request, since /api/start hands it to Engine.Start. Call
// Handler to obtain the http.Handler to serve.
func New(eng Engine, cfg config.Config, baseCtx context.Context) *Server {
	s := &Server{eng: eng, cfg: cfg, baseCtx: baseCtx, mux: http.NewServeMux()}
	s.mux.HandleFunc("/api/status", s.handleStatus)
	s.mux.HandleFunc("/api/start", s.handleStart)
	s.mux.HandleFunc("/api/stop", s.handleStop)
	s.mux.HandleFunc("/api/config", s.handleConfig)
	s.mux.HandleFunc("/", s.handleIndex)
	return s
}

// Handler returns the server's http.Handler.
func (s *Server) Handler() http.Handler { return s.mux }

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	writeJSON(w, s.eng.Status())
}

// handleStart is idempotent: starting an already-running engine is a no-op,
// matching Engine.Start's own idempotency. It starts the engine against the
// server's long-lived base context, never the request context — r.Context()
// is canceled the instant this handler returns, which would cancel the
// engine's loops along with it.
func (s *Server) handleStart(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	s.eng.Start(s.baseCtx)
	writeJSON(w, map[string]bool{"running": true})
}

// handleStop is idempotent: stopping an already-stopped engine is a no-op.
func (s *Server) handleStop(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	s.eng.Stop()
	writeJSON(w, map[string]bool{"running": false})
}

func (s *Server) handleConfig(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	writeJSON(w, s.cfg.Redact())
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	status := s.eng.Status()
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := statusPage.Execute(w, status); err != nil {
		log.Warn("control: status page render failed", "err", err)
	}
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Warn("control: response encode failed", "err", err)
	}
}
