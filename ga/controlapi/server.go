// Package controlapi exposes a workflow's lifecycle over HTTP, grounded on
// the teacher's cmd/server REST surface: JSON endpoints behind bearer-JWT
// auth for start/pause/resume/stop/state, plus a websocket stream of
// scope-entry events encoded with msgpack for low-overhead consumption by
// non-HTTP clients.
package controlapi

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"gaflow/internal/workflow"
)

// Server is the HTTP control surface for a single workflow.
type Server struct {
	wf        *workflow.Workflow
	log       zerolog.Logger
	jwtSecret []byte
	upgrader  websocket.Upgrader
	hub       *hub
	stop      chan struct{}
}

// Event is one scope-entry update broadcast to websocket subscribers.
type Event struct {
	Level string `msgpack:"level"`
	ID    int    `msgpack:"id"`
	Value any    `msgpack:"value"`
}

// Config configures a Server.
type Config struct {
	JWTSecret []byte
	Logger    zerolog.Logger
}

// NewServer creates a control API server for wf and starts its event hub.
// Call Close when the server is no longer needed to stop the hub goroutine.
func NewServer(wf *workflow.Workflow, cfg Config) *Server {
	s := &Server{
		wf:        wf,
		log:       cfg.Logger,
		jwtSecret: cfg.JWTSecret,
		upgrader:  websocket.Upgrader{ReadBufferSize: 1024, WriteBufferSize: 1024},
		hub:       newHub(cfg.Logger),
		stop:      make(chan struct{}),
	}
	go s.hub.run(s.stop)
	return s
}

// Broadcast queues ev for delivery to every connected websocket client.
// Non-blocking: if a client's buffer is full that client's event is
// dropped rather than stalling workflow execution.
func (s *Server) Broadcast(ev Event) {
	s.hub.Broadcast(ev)
}

// Close stops the event hub. Connected clients are not forcibly closed;
// they drain naturally once their peer disconnects.
func (s *Server) Close() {
	close(s.stop)
}

// Handler returns the HTTP handler for the control API, mountable at any
// prefix.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", s.handleHealth)
	mux.Handle("/control/state", s.authenticated(s.handleState))
	mux.Handle("/control/start", s.authenticated(s.handleStart))
	mux.Handle("/control/pause", s.authenticated(s.handlePause))
	mux.Handle("/control/resume", s.authenticated(s.handleResume))
	mux.Handle("/control/stop", s.authenticated(s.handleStop))
	mux.Handle("/control/events", s.authenticated(s.handleEvents))
	return s.recovery(s.logged(mux))
}

func (s *Server) authenticated(next http.HandlerFunc) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok {
			http.Error(w, "missing bearer token", http.StatusUnauthorized)
			return
		}
		if _, err := jwt.Parse(token, func(t *jwt.Token) (any, error) {
			return s.jwtSecret, nil
		}, jwt.WithValidMethods([]string{"HS256"})); err != nil {
			http.Error(w, "invalid token", http.StatusUnauthorized)
			return
		}
		next(w, r)
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
}

type stateResponse struct {
	State string `json:"state"`
}

func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, stateResponse{State: s.wf.State().String()})
}

func (s *Server) handleStart(w http.ResponseWriter, r *http.Request) {
	if err := s.wf.Start(r.Context()); err != nil {
		http.Error(w, err.Error(), http.StatusConflict)
		return
	}
	writeJSON(w, stateResponse{State: s.wf.State().String()})
}

func (s *Server) handlePause(w http.ResponseWriter, r *http.Request) {
	if err := s.wf.Pause(); err != nil {
		http.Error(w, err.Error(), http.StatusConflict)
		return
	}
	writeJSON(w, stateResponse{State: s.wf.State().String()})
}

func (s *Server) handleResume(w http.ResponseWriter, r *http.Request) {
	if err := s.wf.Resume(); err != nil {
		http.Error(w, err.Error(), http.StatusConflict)
		return
	}
	writeJSON(w, stateResponse{State: s.wf.State().String()})
}

func (s *Server) handleStop(w http.ResponseWriter, r *http.Request) {
	if err := s.wf.Stop(); err != nil {
		http.Error(w, err.Error(), http.StatusConflict)
		return
	}
	writeJSON(w, stateResponse{State: s.wf.State().String()})
}

// handleEvents upgrades to a websocket, registers a client with the hub and
// streams msgpack-encoded Events until the client disconnects.
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Error().Err(err).Msg("control api: websocket upgrade failed")
		return
	}

	client := newWSClient(s.hub, conn)
	s.hub.register <- client

	go client.writePump()
	client.readPump()
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}
