// Package ui exposes the session state over HTTP: a single page that hosts
// the live plot plus a small JSON API the page drives. Everything stateful
// lives in the session manager; the server is plumbing.
package ui

import (
	"embed"
	"html/template"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"sweepwatch/app/view"
)

//go:embed templates/*.html
var embeddedFiles embed.FS

// Server is the web front end.
type Server struct {
	router    *chi.Mux
	sessions  *view.Manager
	templates *template.Template
	defaultDB string
	log       *zap.SugaredLogger
}

// NewServer creates the web server around a session manager.
func NewServer(sessions *view.Manager, defaultDB string, log *zap.SugaredLogger) (*Server, error) {
	templates, err := template.ParseFS(embeddedFiles, "templates/*.html")
	if err != nil {
		return nil, err
	}

	s := &Server{
		router:    chi.NewRouter(),
		sessions:  sessions,
		templates: templates,
		defaultDB: defaultDB,
		log:       log,
	}
	s.setupMiddleware()
	s.setupRoutes()
	return s, nil
}

// Handler returns the root HTTP handler.
func (s *Server) Handler() http.Handler { return s.router }

func (s *Server) setupMiddleware() {
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.Compress(5))
	s.router.Use(s.requestLogger)
}

func (s *Server) setupRoutes() {
	s.router.Get("/", s.handleIndex)

	s.router.Route("/api/sessions", func(r chi.Router) {
		r.Post("/", s.handleCreateSession)
		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", s.handleSessionState)
			r.Delete("/", s.handleDeleteSession)
			r.Post("/inputs", s.handleSetInputs)
			r.Post("/refresh", s.handleRefresh)
			r.Get("/figure", s.handleFigure)
			r.Get("/summary", s.handleSummary)
			r.Get("/snapshot.svg", s.handleSnapshotSVG)
			r.Get("/table.xlsx", s.handleTableXLSX)
		})
	})
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		s.log.Debugw("http",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"duration", time.Since(start),
		)
	})
}
