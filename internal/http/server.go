package httpserver

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/Clark-Hu/movie-importer/internal/config"
	"github.com/Clark-Hu/movie-importer/internal/domain"
	"github.com/Clark-Hu/movie-importer/internal/metrics"
	"github.com/Clark-Hu/movie-importer/internal/repository"
	"github.com/Clark-Hu/movie-importer/internal/search"
	"github.com/Clark-Hu/movie-importer/internal/store"
)

// Searcher runs provider searches for the admin surface.
type Searcher interface {
	SearchWithFallback(ctx context.Context, query string, page int, langs search.Languages) (domain.SearchPage, error)
	TestConnection(ctx context.Context, query string, langs search.Languages) ([]domain.SearchResult, error)
	Defaults() search.Languages
}

// Importer imports one provider record by external id.
type Importer interface {
	Import(ctx context.Context, externalID int64, langs search.Languages) (int64, error)
}

// Server wires HTTP routing, middleware, and handlers.
type Server struct {
	cfg      config.Config
	store    *store.Store
	repo     *repository.Repository
	search   Searcher
	importer Importer
	logger   zerolog.Logger
	router   chi.Router
	httpSrv  *http.Server
}

// New constructs the HTTP server with base middleware and routes.
func New(cfg config.Config, st *store.Store, repo *repository.Repository, searcher Searcher, imp Importer, logger zerolog.Logger) *Server {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	s := &Server{
		cfg:      cfg,
		store:    st,
		repo:     repo,
		search:   searcher,
		importer: imp,
		logger:   logger,
		router:   r,
	}
	s.registerRoutes()
	return s
}

// Handler exposes the router, mainly for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) registerRoutes() {
	s.router.Get("/healthz", s.handleHealthz)
	s.router.Handle("/metrics", promhttp.HandlerFor(metrics.Registry, promhttp.HandlerOpts{}))
	s.router.Route("/admin", func(r chi.Router) {
		r.Use(s.requireBearer)
		r.Get("/search", s.handleSearch)
		r.Get("/api-test", s.handleAPITest)
		r.Post("/import", s.handleImport)
	})
	s.router.Route("/entities", func(r chi.Router) {
		r.Get("/", s.handleListEntities)
		r.Get("/{id}", s.handleGetEntity)
	})
}

// Start boots the HTTP server and blocks until ctx ends or serving fails.
func (s *Server) Start(ctx context.Context) error {
	s.httpSrv = &http.Server{
		Addr:         ":" + s.cfg.Port,
		Handler:      s.router,
		ReadTimeout:  time.Duration(s.cfg.ReadTimeoutSecs) * time.Second,
		WriteTimeout: time.Duration(s.cfg.WriteTimeoutSecs) * time.Second,
		IdleTimeout:  time.Duration(s.cfg.IdleTimeoutSecs) * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info().Str("addr", s.httpSrv.Addr).Msg("http: listening")
		if err := s.httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
			return
		}
		errCh <- nil
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.httpSrv.Shutdown(shutdownCtx)
		return ctx.Err()
	case err := <-errCh:
		return err
	}
}

// Shutdown gracefully stops the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpSrv == nil {
		return nil
	}
	return s.httpSrv.Shutdown(ctx)
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if err := s.store.HealthCheck(ctx); err != nil {
		s.logger.Warn().Err(err).Msg("http: health check failed")
		s.respondError(w, http.StatusServiceUnavailable, "UNAVAILABLE", "database unreachable")
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) requireBearer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !s.verifyBearer(r.Header.Get("Authorization")) {
			s.respondError(w, http.StatusUnauthorized, "UNAUTHORIZED", "Missing or invalid authentication information")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) verifyBearer(header string) bool {
	if header == "" || s.cfg.AuthToken == "" {
		return false
	}
	const prefix = "Bearer "
	if !strings.HasPrefix(header, prefix) {
		return false
	}
	token := strings.TrimSpace(strings.TrimPrefix(header, prefix))
	return token == s.cfg.AuthToken
}
