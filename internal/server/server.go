// Package server wires the snippets admin together and runs the HTTP server.
//
// COMPOSITION ROOT:
// New is the only place that knows about concrete types. It opens the
// database, builds the content type registry, creates the services and
// hands each handler exactly what it needs:
//
//	config.Config → sqlite.DB ─┬→ SnippetService → SnippetHandler, ChooserHandler
//	                           └→ AuthService ───→ AuthHandler, RequireAdmin
//	              → redis.Client → RedisRevoker ──↗
//
// Tests build a Server the same way and drive Handler() with httptest, so
// the routing and middleware they exercise are the production ones.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/sakif/snippets-admin/internal/auth"
	"github.com/sakif/snippets-admin/internal/config"
	"github.com/sakif/snippets-admin/internal/handler"
	"github.com/sakif/snippets-admin/internal/metrics"
	"github.com/sakif/snippets-admin/internal/middleware"
	"github.com/sakif/snippets-admin/internal/registry"
	sqliteRepo "github.com/sakif/snippets-admin/internal/repository/sqlite"
	"github.com/sakif/snippets-admin/internal/service"
	"github.com/sakif/snippets-admin/internal/urls"
)

// Server owns the router and the resources that must be released on
// shutdown: the database and, when configured, the Redis client.
type Server struct {
	router *chi.Mux
	config config.Config
	logger *slog.Logger
	db     *sqliteRepo.DB
	redis  *redis.Client // nil without REDIS_ADDR
}

// New builds a ready-to-serve Server. On error every resource opened so
// far is closed again.
func New(cfg config.Config, logger *slog.Logger) (*Server, error) {
	db, err := sqliteRepo.New(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &Server{
		router: chi.NewRouter(),
		config: cfg,
		logger: logger,
		db:     db,
	}

	if err := s.setup(); err != nil {
		s.Close()
		return nil, err
	}
	return s, nil
}

func (s *Server) setup() error {
	// === CONTENT TYPES ===
	types := registry.Default()
	if s.config.SnippetTypesFile != "" {
		extra, err := registry.LoadFile(s.config.SnippetTypesFile)
		if err != nil {
			return fmt.Errorf("loading snippet types: %w", err)
		}
		if err := types.RegisterAll(extra); err != nil {
			return fmt.Errorf("registering snippet types: %w", err)
		}
	}

	// === AUTH ===
	tokens, err := auth.NewTokenService(s.config.JWTSecret, s.config.TokenTTL)
	if err != nil {
		return fmt.Errorf("creating token service: %w", err)
	}

	var revoker auth.Revoker
	if s.config.RedisAddr != "" {
		s.redis = redis.NewClient(&redis.Options{
			Addr:     s.config.RedisAddr,
			Password: s.config.RedisPassword,
			DB:       s.config.RedisDB,
		})
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.redis.Ping(ctx).Err(); err != nil {
			return fmt.Errorf("connecting to redis at %s: %w", s.config.RedisAddr, err)
		}
		revoker = auth.NewRedisRevoker(s.redis)
	} else {
		s.logger.Warn("REDIS_ADDR not set: logout won't revoke issued tokens")
	}

	authService := service.NewAuthService(
		s.db, tokens, auth.NewPasswordService(s.config.BcryptCost),
		revoker, s.config.GitHubAllowedLogins, s.logger,
	)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := authService.EnsureAdmin(ctx, s.config.AdminUsername, s.config.AdminPassword); err != nil {
		return fmt.Errorf("creating bootstrap admin: %w", err)
	}

	// Left as a nil interface, not a typed nil pointer, when disabled.
	var github handler.OAuthProvider
	if s.config.GitHubEnabled() {
		github = auth.NewGitHubProvider(s.config.GitHubClientID, s.config.GitHubClientSecret, s.config.GitHubCallbackURL)
	}

	// === HANDLERS ===
	render, err := handler.NewRenderer(s.logger)
	if err != nil {
		return fmt.Errorf("parsing templates: %w", err)
	}

	snippetService := service.NewSnippetService(s.db, types, s.config.PageSize, s.logger)

	s.routes(routeDeps{
		authService: authService,
		snippets:    handler.NewSnippetHandler(snippetService, types, render, s.logger),
		chooser:     handler.NewChooserHandler(snippetService, render, s.logger),
		auth:        handler.NewAuthHandler(authService, github, tokens.TTL(), render, s.logger),
		health:      handler.NewHealthHandler(s.db, s.logger),
	})
	return nil
}

type routeDeps struct {
	authService *service.AuthService
	snippets    *handler.SnippetHandler
	chooser     *handler.ChooserHandler
	auth        *handler.AuthHandler
	health      *handler.HealthHandler
}

// routes registers middleware and endpoints.
//
// ROUTE STRUCTURE:
// GET        /healthz                      → DB ping (JSON)
// GET        /metrics                      → Prometheus exposition
// GET        /static/*                     → chooser JS, admin CSS
// GET|POST   /admin/login/                 → sign-in (POST is rate limited)
// POST       /admin/logout/                → sign-out
// GET        /auth/github/{login,callback} → GitHub OAuth
// *          /admin/snippets/...           → snippet admin (RequireAdmin)
//
// MIDDLEWARE ORDER:
// RequestID must run before Logger so the log line carries the id, and
// Recoverer sits inside Logger so a recovered panic is logged as a 500.
func (s *Server) routes(d routeDeps) {
	s.router.Use(chimiddleware.RequestID)
	s.router.Use(chimiddleware.RealIP)
	s.router.Use(middleware.Logger(s.logger))
	s.router.Use(chimiddleware.Recoverer)

	// === Operational ===
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	metrics.RegisterCollectors(reg)

	s.router.Get("/healthz", d.health.HandleHealth)
	s.router.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))

	fileServer := http.FileServer(http.Dir(s.config.StaticDir))
	s.router.Handle(urls.Static+"*", http.StripPrefix(urls.Static, fileServer))

	s.router.Get("/", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, urls.Index(), http.StatusFound)
	})

	// === Sign-in ===
	loginLimiter := middleware.NewRateLimiter("login", s.config.LoginRateLimit, s.config.LoginBurst)

	s.router.Get(urls.Login, d.auth.HandleLoginForm)
	s.router.With(loginLimiter.Middleware).Post(urls.Login, d.auth.HandleLogin)
	s.router.Post(urls.Logout, d.auth.HandleLogout)

	s.router.Route("/auth/github", func(r chi.Router) {
		r.Get("/login", d.auth.HandleGitHubLogin)
		r.With(loginLimiter.Middleware).Get("/callback", d.auth.HandleGitHubCallback)
	})

	// === Admin ===
	// The chooser takes the static segment ahead of {app}/{model}; the
	// registry refuses that segment as an app label.
	s.router.Route("/admin/snippets", func(r chi.Router) {
		r.Use(auth.RequireAdmin(d.authService))
		r.Route("/"+registry.ReservedAppLabel, d.chooser.Routes)
		d.snippets.Routes(r)
	})
}

// Handler exposes the router, mainly for httptest.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Close releases the database and Redis connections.
func (s *Server) Close() error {
	var errs []error
	if s.redis != nil {
		errs = append(errs, s.redis.Close())
	}
	errs = append(errs, s.db.Close())
	return errors.Join(errs...)
}

// Start serves until SIGINT/SIGTERM, then drains in-flight requests for up
// to 30 seconds and closes the connections.
func (s *Server) Start() error {
	defer s.Close()

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", s.config.Port),
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	serverErrors := make(chan error, 1)

	go func() {
		s.logger.Info("server starting",
			slog.Int("port", s.config.Port),
			slog.String("url", fmt.Sprintf("http://localhost:%d%s", s.config.Port, urls.Index())),
			slog.String("database", s.config.DBPath),
			slog.Bool("github", s.config.GitHubEnabled()),
			slog.Bool("revocation", s.redis != nil),
		)
		serverErrors <- srv.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}

	case sig := <-quit:
		s.logger.Info("shutdown signal received", slog.String("signal", sig.String()))

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
		s.logger.Info("server stopped gracefully")
	}

	return nil
}
