package api

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/oyvindstegard/ox-tagfilter/internal/config"
	"github.com/oyvindstegard/ox-tagfilter/internal/selstore"
)

// Server is the HTTP API of the tagfilter service.
type Server struct {
	router chi.Router
	reg    *Registry
	store  selstore.Store
	log    *slog.Logger
	cfg    config.Config
}

// NewServer creates and configures the HTTP server.
func NewServer(reg *Registry, store selstore.Store, log *slog.Logger, cfg config.Config) *Server {
	s := &Server{
		reg:   reg,
		store: store,
		log:   log,
		cfg:   cfg,
	}
	s.setupRoutes()
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) setupRoutes() {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(RequestLogger(s.log))

	r.Get("/health", s.handleHealth)

	r.Group(func(r chi.Router) {
		if s.cfg.APIKey != "" {
			r.Use(AuthMiddleware(s.cfg.APIKey, s.log))
		}

		r.Post("/api/documents", s.handleUpload)
		r.Get("/api/documents", s.handleListDocuments)
		r.Get("/api/documents/{docID}", s.handleGetDocument)
		r.Delete("/api/documents/{docID}", s.handleDeleteDocument)

		r.Post("/api/documents/{docID}/filter", s.handleFilter)
		r.Get("/api/documents/{docID}/render", s.handleRender)
		r.Get("/api/documents/{docID}/selection", s.handleGetSelection)
		r.Put("/api/documents/{docID}/selection", s.handlePutSelection)
	})

	s.router = r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(`{"status":"ok"}`))
}

// StartCleanup runs periodic registry eviction until ctx is canceled.
func (s *Server) StartCleanup(ctx context.Context) {
	go func() {
		ticker := time.NewTicker(10 * time.Minute)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.reg.Cleanup()
			}
		}
	}()
}
