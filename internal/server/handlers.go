package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/claude/spinecare/internal/content"
	"github.com/claude/spinecare/internal/models"
	"github.com/claude/spinecare/internal/session"
)

// maxContentBytes bounds an uploaded catalog document.
const maxContentBytes = 1 << 20

func (s *Server) handleListSets(w http.ResponseWriter, r *http.Request) {
	sets, err := s.db.ListExerciseSets(r.Context())
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}

	out := make([]models.SetSummary, 0, len(sets))
	view := session.NewSetView(s.db, s.log)
	for _, set := range sets {
		if _, err := view.Load(r.Context(), set.ID); err != nil {
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
			return
		}
		out = append(out, models.SetSummary{ExerciseSet: set, Progress: view.Progress()})
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleGetSet(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	set, found, err := s.db.GetExerciseSet(r.Context(), id)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	if !found {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "exercise set not found"})
		return
	}

	view := session.NewSetView(s.db, s.log)
	exercises, err := view.Load(r.Context(), id)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	if exercises == nil {
		exercises = []models.Exercise{}
	}
	writeJSON(w, http.StatusOK, models.SetDetail{Set: set, Exercises: exercises, Progress: view.Progress()})
}

func (s *Server) handleListExercises(w http.ResponseWriter, r *http.Request) {
	exercises, err := s.db.ListExercises(r.Context())
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	if exercises == nil {
		exercises = []models.Exercise{}
	}
	writeJSON(w, http.StatusOK, exercises)
}

func (s *Server) handleGetExercise(w http.ResponseWriter, r *http.Request) {
	e, found, err := s.db.GetExercise(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	if !found {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "exercise not found"})
		return
	}
	writeJSON(w, http.StatusOK, e)
}

func (s *Server) handleResetCompletions(w http.ResponseWriter, r *http.Request) {
	n, err := s.db.ResetAllCompletions(r.Context())
	if err != nil {
		s.log.Error("reset completions", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	s.log.Info("completion flags reset", "count", n)
	if err := s.sessions.RefreshSets(r.Context()); err != nil {
		s.log.Warn("refresh watched sets", "error", err)
	}
	writeJSON(w, http.StatusOK, map[string]int64{"reset": n})
}

func (s *Server) handleImportContent(w http.ResponseWriter, r *http.Request) {
	catalog, err := content.Parse(http.MaxBytesReader(w, r.Body, maxContentBytes))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	result, err := content.NewImporter(s.db, s.log, false).Import(r.Context(), catalog)
	if err != nil {
		s.log.Error("content import error", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	if err := s.sessions.RefreshSets(r.Context()); err != nil {
		s.log.Warn("refresh watched sets", "error", err)
	}
	writeJSON(w, http.StatusOK, result)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// isNotFound reports whether err means the requested exercise is missing.
func isNotFound(err error) bool {
	return errors.Is(err, session.ErrExerciseNotFound)
}
