package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/claude/spinecare/internal/session"
)

type progressEvent struct {
	SetID     string  `json:"set_id"`
	Progress  float64 `json:"progress"`
	Completed int     `json:"completed"`
	Total     int     `json:"total"`
}

func newProgressEvent(view *session.SetView, p float64) progressEvent {
	ev := progressEvent{SetID: view.SetID(), Progress: p}
	for _, e := range view.Exercises() {
		ev.Total++
		if e.IsCompleted {
			ev.Completed++
		}
	}
	return ev
}

// handleSetEvents streams a set's completion percentage as server-sent
// events. A new value is sent whenever a session finishes or resets one of
// the set's exercises, and after bulk resets and imports.
func (s *Server) handleSetEvents(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	_, found, err := s.db.GetExerciseSet(r.Context(), id)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	if !found {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "exercise set not found"})
		return
	}

	view, release, err := s.sessions.WatchSet(r.Context(), id)
	switch {
	case errors.Is(err, session.ErrRegistryClosed):
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": err.Error()})
		return
	case err != nil:
		s.log.Error("watch set", "set_id", id, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	defer release()

	flusher, ok := startEventStream(w)
	if !ok {
		return
	}

	ch, cancel := view.Subscribe()
	defer cancel()

	for {
		select {
		case <-r.Context().Done():
			return
		case p, ok := <-ch:
			if !ok {
				fmt.Fprint(w, "event: closed\ndata: {}\n\n")
				flusher.Flush()
				return
			}
			data, err := json.Marshal(newProgressEvent(view, p))
			if err != nil {
				s.log.Error("encode progress event", "error", err)
				return
			}
			fmt.Fprintf(w, "event: progress\ndata: %s\n\n", data)
			flusher.Flush()
		}
	}
}
