// Package api declares HTTP contracts and route registration helpers for the
// tracker control surface.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/okian/kartpos/internal/adapters/mq/queue"
	"github.com/okian/kartpos/internal/domain/recording"
)

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to the tracker.
type Dependencies interface {
	StatsProvider

	// Toggle asks the pipeline to start or stop recording.
	Toggle(ctx context.Context, source string) error

	// Quit asks the pipeline to stop.
	Quit(ctx context.Context, source string) error

	// Status reports the recorder state.
	Status() recording.Status
}

// Source is the control event source recorded for HTTP requests.
const Source = "http"

// Server wires HTTP routes for the control API.
type Server struct {
	monitorHandler *MonitorHandler
	sessionHandler *SessionHandler
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies) *Server {
	return &Server{
		monitorHandler: NewMonitorHandler(deps),
		sessionHandler: NewSessionHandler(deps),
	}
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(_ context.Context, mux *http.ServeMux) {
	mux.HandleFunc("/healthz", Instrument("healthz", s.monitorHandler.HandleHealth))
	mux.HandleFunc("/stats", Instrument("stats", s.monitorHandler.HandleStats))
	mux.HandleFunc("/session/toggle", Instrument("session_toggle", s.sessionHandler.HandleToggle))
	mux.HandleFunc("/session", Instrument("session", s.sessionHandler.HandleStatus))
	mux.HandleFunc("/quit", Instrument("quit", s.sessionHandler.HandleQuit))
}

type ackResponse struct {
	Status string `json:"status"`
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}

// isUnavailable reports whether a publish failed because the control queue
// cannot take more events right now.
func isUnavailable(err error) bool {
	return errors.Is(err, queue.ErrFull) || errors.Is(err, queue.ErrClosed)
}

func unavailable(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, ErrUnavailable, err)
}
