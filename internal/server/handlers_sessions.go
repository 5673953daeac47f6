package server

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/claude/spinecare/internal/models"
	"github.com/claude/spinecare/internal/session"
	"github.com/claude/spinecare/internal/timer"
)

// stateResponse is the timer snapshot plus its MM:SS rendering.
type stateResponse struct {
	timer.Snapshot
	Display string `json:"display"`
}

func newStateResponse(snap timer.Snapshot) stateResponse {
	return stateResponse{Snapshot: snap, Display: snap.Display()}
}

type sessionResponse struct {
	ID       string           `json:"id"`
	State    stateResponse    `json:"state"`
	Exercise *models.Exercise `json:"exercise,omitempty"`
}

func newSessionResponse(id string, sess *session.ExerciseSession) sessionResponse {
	resp := sessionResponse{ID: id, State: newStateResponse(sess.State())}
	if e, ok := sess.Exercise(); ok {
		resp.Exercise = &e
	}
	return resp
}

type bindRequest struct {
	ExerciseID string `json:"exercise_id"`
}

func decodeBind(r *http.Request) (string, error) {
	var req bindRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return "", fmt.Errorf("invalid JSON: %w", err)
	}
	if req.ExerciseID == "" {
		return "", fmt.Errorf("exercise_id is required")
	}
	return req.ExerciseID, nil
}

func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	exerciseID, err := decodeBind(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	id, sess, err := s.sessions.Create(r.Context(), exerciseID)
	switch {
	case isNotFound(err):
		writeJSON(w, http.StatusNotFound, map[string]any{
			"error": err.Error(),
			"state": newStateResponse(sess.State()),
		})
		return
	case err != nil:
		s.log.Error("create session", "exercise_id", exerciseID, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusCreated, newSessionResponse(id, sess))
}

// lookup resolves the {id} URL parameter, writing a 404 when it is unknown.
func (s *Server) lookup(w http.ResponseWriter, r *http.Request) (string, *session.ExerciseSession, bool) {
	id := chi.URLParam(r, "id")
	sess, ok := s.sessions.Get(id)
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "session not found"})
		return "", nil, false
	}
	return id, sess, true
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	id, sess, ok := s.lookup(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, newSessionResponse(id, sess))
}

func (s *Server) handleDeleteSession(w http.ResponseWriter, r *http.Request) {
	if !s.sessions.Delete(chi.URLParam(r, "id")) {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "session not found"})
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleBindSession(w http.ResponseWriter, r *http.Request) {
	id, sess, ok := s.lookup(w, r)
	if !ok {
		return
	}
	exerciseID, err := decodeBind(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	err = sess.Load(r.Context(), exerciseID)
	switch {
	case isNotFound(err):
		writeJSON(w, http.StatusNotFound, map[string]any{
			"error": err.Error(),
			"state": newStateResponse(sess.State()),
		})
		return
	case err != nil:
		s.log.Error("bind session", "session_id", id, "exercise_id", exerciseID, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, newSessionResponse(id, sess))
}

// handleSessionAction applies a timer command. Commands that are invalid in
// the current state are accepted and leave the state unchanged.
func (s *Server) handleSessionAction(w http.ResponseWriter, r *http.Request) {
	id, sess, ok := s.lookup(w, r)
	if !ok {
		return
	}

	switch action := chi.URLParam(r, "action"); action {
	case "start":
		sess.Start()
	case "pause":
		sess.Pause()
	case "resume":
		sess.Resume()
	case "reset":
		sess.Reset()
	default:
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "unknown action " + action})
		return
	}
	writeJSON(w, http.StatusOK, newSessionResponse(id, sess))
}

// handleSessionEvents streams timer state as server-sent events until the
// client goes away or the session is deleted.
func (s *Server) handleSessionEvents(w http.ResponseWriter, r *http.Request) {
	_, sess, ok := s.lookup(w, r)
	if !ok {
		return
	}

	flusher, ok := startEventStream(w)
	if !ok {
		return
	}

	ch, cancel := sess.Subscribe()
	defer cancel()

	for {
		select {
		case <-r.Context().Done():
			return
		case snap, ok := <-ch:
			if !ok {
				fmt.Fprint(w, "event: closed\ndata: {}\n\n")
				flusher.Flush()
				return
			}
			data, err := json.Marshal(newStateResponse(snap))
			if err != nil {
				s.log.Error("encode state event", "error", err)
				return
			}
			fmt.Fprintf(w, "event: state\ndata: %s\n\n", data)
			flusher.Flush()
		}
	}
}

// startEventStream writes the server-sent events preamble. It answers 500
// and reports false when the writer cannot flush.
func startEventStream(w http.ResponseWriter) (http.Flusher, bool) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "streaming not supported"})
		return nil, false
	}
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()
	return flusher, true
}
