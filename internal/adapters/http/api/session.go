package api

import "net/http"

// SessionHandler exposes the recorder state and the start/stop and quit
// controls.
type SessionHandler struct {
	deps Dependencies
}

// NewSessionHandler creates a new session handler.
func NewSessionHandler(deps Dependencies) *SessionHandler {
	return &SessionHandler{deps: deps}
}

// HandleStatus handles GET /session requests.
func (h *SessionHandler) HandleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	writeJSON(w, http.StatusOK, h.deps.Status())
}

// HandleToggle handles POST /session/toggle requests. The toggle is applied
// by the pipeline between frames, so the response only acknowledges it.
func (h *SessionHandler) HandleToggle(w http.ResponseWriter, r *http.Request) {
	const op = "api.toggle"
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}
	if err := h.deps.Toggle(r.Context(), Source); err != nil {
		h.fail(w, op, err)
		return
	}
	writeJSON(w, http.StatusAccepted, ackResponse{Status: "accepted"})
}

// HandleQuit handles POST /quit requests.
func (h *SessionHandler) HandleQuit(w http.ResponseWriter, r *http.Request) {
	const op = "api.quit"
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}
	if err := h.deps.Quit(r.Context(), Source); err != nil {
		h.fail(w, op, err)
		return
	}
	writeJSON(w, http.StatusAccepted, ackResponse{Status: "accepted"})
}

func (h *SessionHandler) fail(w http.ResponseWriter, op string, err error) {
	if isUnavailable(err) {
		writeError(w, http.StatusServiceUnavailable, "unavailable", unavailable(op, err))
		return
	}
	writeError(w, http.StatusInternalServerError, "internal", err)
}
