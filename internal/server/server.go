package server

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/claude/spinecare/internal/session"
	"github.com/claude/spinecare/internal/storage"
)

// Server holds dependencies for HTTP handlers.
type Server struct {
	db       *storage.DB
	sessions *session.Registry
	log      *slog.Logger
	apiKey   string
	router   chi.Router
}

// New creates a new Server with all routes configured.
func New(db *storage.DB, sessions *session.Registry, apiKey string, log *slog.Logger) *Server {
	s := &Server{
		db:       db,
		sessions: sessions,
		log:      log,
		apiKey:   apiKey,
		router:   chi.NewRouter(),
	}
	s.routes()
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) routes() {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.Recoverer)
	s.router.Use(RequestLogging(s.log))
	s.router.Use(CORS)

	// Content import (API key required)
	s.router.Route("/api/v1/content", func(r chi.Router) {
		r.Use(APIKeyAuth(s.apiKey, s.log))
		r.Post("/", s.handleImportContent)
	})

	// Catalog
	s.router.Get("/api/v1/sets", s.handleListSets)
	s.router.Get("/api/v1/sets/{id}", s.handleGetSet)
	s.router.Get("/api/v1/sets/{id}/events", s.handleSetEvents)
	s.router.Get("/api/v1/exercises", s.handleListExercises)
	s.router.Get("/api/v1/exercises/{id}", s.handleGetExercise)
	s.router.Post("/api/v1/completions/reset", s.handleResetCompletions)

	// Timer sessions
	s.router.Route("/api/v1/sessions", func(r chi.Router) {
		r.Post("/", s.handleCreateSession)
		r.Get("/{id}", s.handleGetSession)
		r.Delete("/{id}", s.handleDeleteSession)
		r.Put("/{id}/exercise", s.handleBindSession)
		r.Get("/{id}/events", s.handleSessionEvents)
		r.Post("/{id}/{action}", s.handleSessionAction)
	})
}

// Handle mounts an extra handler, such as /metrics or /mcp, on the router.
func (s *Server) Handle(pattern string, h http.Handler) {
	s.router.Handle(pattern, h)
}
