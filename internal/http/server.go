package httpserver

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/httprate"
	"github.com/rs/zerolog"

	"github.com/Clark-Hu/movie-catalog/internal/auth"
	"github.com/Clark-Hu/movie-catalog/internal/catalog"
	"github.com/Clark-Hu/movie-catalog/internal/config"
	"github.com/Clark-Hu/movie-catalog/internal/logging"
	"github.com/Clark-Hu/movie-catalog/internal/metrics"
)

// HealthChecker reports whether the backing database is reachable.
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// Server wires HTTP routing, middleware, and handlers.
type Server struct {
	cfg     config.Config
	health  HealthChecker
	catalog *catalog.Service
	tokens  auth.Verifier
	logger  zerolog.Logger
	router  chi.Router
	httpSrv *http.Server
}

// New constructs the HTTP server with base middleware and routes.
func New(cfg config.Config, health HealthChecker, svc *catalog.Service, tokens auth.Verifier, logger zerolog.Logger) *Server {
	logger = logging.Component(logger, "http")

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(accessLog(logger))
	r.Use(middleware.Recoverer)
	r.Use(metrics.Middleware)

	s := &Server{
		cfg:     cfg,
		health:  health,
		catalog: svc,
		tokens:  tokens,
		logger:  logger,
		router:  r,
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
	s.router.Method(http.MethodGet, "/metrics", metrics.Handler())

	s.router.Group(func(r chi.Router) {
		r.Use(auth.Authenticate(s.tokens))

		r.Get("/recent-releases", s.handleRecentReleases)
		r.Get("/recently-added", s.handleRecentlyAdded)

		r.Route("/movies", func(r chi.Router) {
			r.Get("/", s.handleListMovies)
			if s.cfg.AuthToken != "" {
				r.Post("/", s.handleCreateMovie)
			}
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", s.handleMovieDetail)
				r.With(s.ratingGuards()...).Post("/rating", s.handleSubmitRating)
			})
		})

		r.Route("/genres", func(r chi.Router) {
			r.Get("/", s.handleListGenres)
			if s.cfg.AuthToken != "" {
				r.Post("/", s.handleCreateGenre)
			}
			r.Get("/{genre}", s.handleMoviesByGenre)
		})
	})
}

// ratingGuards redirects anonymous callers to the login page and, when configured,
// limits rating submissions per client IP.
func (s *Server) ratingGuards() []func(http.Handler) http.Handler {
	guards := []func(http.Handler) http.Handler{auth.RequireUser(s.cfg.LoginURL)}
	if s.cfg.RatingRateLimit > 0 {
		guards = append(guards, httprate.Limit(
			s.cfg.RatingRateLimit,
			time.Minute,
			httprate.WithKeyFuncs(httprate.KeyByIP),
			httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
				s.respondError(w, http.StatusTooManyRequests, "RATE_LIMITED", "Too many rating submissions")
			}),
		))
	}
	return guards
}

// Start boots the HTTP server and blocks until ctx is cancelled or the listener fails.
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
		s.logger.Info().Str("addr", s.httpSrv.Addr).Msg("listening")
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

	if s.health == nil {
		s.respondError(w, http.StatusServiceUnavailable, "UNAVAILABLE", http.StatusText(http.StatusServiceUnavailable))
		return
	}
	if err := s.health.HealthCheck(ctx); err != nil {
		s.logger.Warn().Err(err).Msg("health check failed")
		s.respondError(w, http.StatusServiceUnavailable, "UNAVAILABLE", http.StatusText(http.StatusServiceUnavailable))
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
