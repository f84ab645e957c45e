// Package server provides the HTTP API polled by the simulation dashboard.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"github.com/invisible-tech/warsim/internal/config"
	"github.com/invisible-tech/warsim/internal/engine"
	"github.com/invisible-tech/warsim/internal/eventlog"
	"github.com/invisible-tech/warsim/internal/probe"
	"github.com/invisible-tech/warsim/internal/runner"
	"github.com/invisible-tech/warsim/internal/scripts"
	"github.com/invisible-tech/warsim/internal/types"
	"github.com/invisible-tech/warsim/internal/version"
)

// Defaults for GET /scan query parameters.
const (
	defaultScanTarget = "127.0.0.1"
	defaultScanStart  = 80
	defaultScanEnd    = 5180
)

// Server is the HTTP server for the simulation API.
type Server struct {
	cfg        config.ServerConfig
	session    *engine.Session
	scripts    *scripts.Store
	prober     *probe.Prober
	runner     *runner.Runner
	events     *eventlog.Log
	log        *logrus.Logger
	httpServer *http.Server
}

// New creates the HTTP server and wires all routes.
func New(cfg config.ServerConfig, session *engine.Session, store *scripts.Store, prober *probe.Prober, run *runner.Runner, events *eventlog.Log, log *logrus.Logger) *Server {
	s := &Server{
		cfg:     cfg,
		session: session,
		scripts: store,
		prober:  prober,
		runner:  run,
		events:  events,
		log:     log,
	}

	r := mux.NewRouter()
	r.Use(s.recoverMiddleware)
	r.HandleFunc("/state", s.handleState).Methods(http.MethodGet)
	r.HandleFunc("/action", s.handleAction).Methods(http.MethodPost)
	r.HandleFunc("/log", s.handleLog).Methods(http.MethodPost)
	r.HandleFunc("/ai", s.handleAI).Methods(http.MethodPost)
	r.HandleFunc("/reset", s.handleReset).Methods(http.MethodPost)
	r.HandleFunc("/scripts", s.handleScriptsList).Methods(http.MethodGet)
	r.HandleFunc("/scripts", s.handleScriptsSave).Methods(http.MethodPost)
	r.HandleFunc("/scan", s.handleScan).Methods(http.MethodGet)
	r.HandleFunc("/run", s.handleRun).Methods(http.MethodPost)
	r.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)
	r.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)

	s.httpServer = &http.Server{
		Addr:         cfg.HTTPAddr,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	return s
}

// ListenAndServe starts the HTTP server. It blocks until the server is
// closed.
func (s *Server) ListenAndServe() error {
	s.log.WithField("addr", s.cfg.HTTPAddr).Info("Simulation server listening")
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// Handler exposes the router for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

func (s *Server) recoverMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				s.log.WithFields(logrus.Fields{"panic": rec, "path": r.URL.Path}).Error("Handler panicked")
				s.writeError(w, http.StatusInternalServerError, "internal server error")
			}
		}()
		next.ServeHTTP(w, r)
	})
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.log.WithError(err).Error("Failed to encode response")
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, msg string) {
	s.writeJSON(w, status, map[string]string{"error": msg})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{
		"status":  "healthy",
		"version": version.Version,
	})
}

func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, s.session.Snapshot())
}

func (s *Server) handleAction(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "unreadable body")
		return
	}
	if err := validate(actionSchema, body); err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	var req struct {
		AssetID string        `json:"assetId"`
		Action  string        `json:"action"`
		Faction types.Faction `json:"faction"`
	}
	if err := json.Unmarshal(body, &req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	asset, err := s.session.ApplyAction(req.AssetID, req.Action, req.Faction)
	if errors.Is(err, engine.ErrAssetNotFound) {
		s.writeError(w, http.StatusNotFound, "asset not found")
		return
	}
	if err != nil {
		s.log.WithError(err).Error("Action failed")
		s.writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"asset":   asset,
	})
}

func (s *Server) handleLog(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Message string          `json:"message"`
		Source  string          `json:"source"`
		Kind    types.EventKind `json:"type"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	s.session.AppendLog(req.Source, req.Message, req.Kind)
	s.writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

func (s *Server) handleAI(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Enabled bool          `json:"enabled"`
		Role    types.Faction `json:"role"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	state := s.session.SetOpponent(req.Enabled, req.Role)
	s.writeJSON(w, http.StatusOK, state)
}

func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	s.session.Reset()
	s.writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

func (s *Server) handleScriptsList(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, s.scripts.List())
}

func (s *Server) handleScriptsSave(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "unreadable body")
		return
	}
	if err := validate(scriptSchema, body); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid script data")
		return
	}
	var req struct {
		Name     string   `json:"name"`
		Commands []string `json:"commands"`
	}
	if err := json.Unmarshal(body, &req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if err := s.scripts.Save(req.Name, req.Commands); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid script data")
		return
	}
	s.events.Append("system", fmt.Sprintf("Script '%s' saved to storage.", req.Name), types.EventInfo)
	s.writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

func (s *Server) handleScan(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	target := q.Get("target")
	if target == "" {
		target = defaultScanTarget
	}
	start := queryInt(q.Get("start"), defaultScanStart)
	end := queryInt(q.Get("end"), defaultScanEnd)

	results := s.prober.Scan(target, start, end)
	open := make([]types.ScanResult, 0)
	for _, res := range results {
		if res.State == types.PortOpen {
			open = append(open, res)
		}
	}

	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"target":    target,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"results":   open,
	})
}

func (s *Server) handleRun(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Script  string        `json:"script"`
		Faction types.Faction `json:"faction"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if _, ok := s.scripts.Get(req.Script); !ok {
		s.writeError(w, http.StatusNotFound, "script not found")
		return
	}
	faction := req.Faction
	if !faction.Valid() {
		faction = types.FactionRed
	}
	// Scripts pace themselves with inter-command delays, so replay runs
	// detached from the request.
	go func() {
		if err := s.runner.Run(context.Background(), req.Script, faction); err != nil {
			s.log.WithError(err).WithField("script", req.Script).Warn("Script replay aborted")
		}
	}()
	s.writeJSON(w, http.StatusAccepted, map[string]bool{"success": true})
}

func queryInt(s string, fallback int) int {
	if s == "" {
		return fallback
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return fallback
	}
	return n
}
