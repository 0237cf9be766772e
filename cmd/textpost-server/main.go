package main

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"
	"github.com/wusb-radio/textpost/internal/reconcile"
	"github.com/wusb-radio/textpost/pkg/textpost"
	"github.com/wusb-radio/textpost/pkg/textpost/admin"
	"github.com/wusb-radio/textpost/pkg/textpost/api"
	"github.com/wusb-radio/textpost/pkg/textpost/config"
)

// maxRequestBytes leaves room for a 10 MiB image plus multipart framing.
const maxRequestBytes = 11 << 20

func main() {
	serverConfig, err := config.Load(config.WithDotEnv(), config.WithEnv())
	if err != nil {
		slog.Error("Failed to load server configuration", "error", err)
		os.Exit(1)
	}

	logger := serverConfig.NewLogger(os.Stdout)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	comps, err := serverConfig.BuildService(ctx, logger)
	if err != nil {
		logger.Error("Failed to build service", "error", err)
		os.Exit(1)
	}
	defer func() {
		if err := comps.Close(); err != nil {
			logger.Error("Failed to close service", "error", err)
		}
	}()

	var reconciler *reconcile.Scheduler
	if serverConfig.ReconcileSchedule != "" {
		reconciler = reconcile.New(comps.Service, serverConfig.ReconcileSchedule, logger)
		if err := reconciler.Start(); err != nil {
			logger.Error("Failed to start reconciler", "error", err)
			os.Exit(1)
		}
	}

	server := NewHTTPServer(comps.Service, comps.Repository, serverConfig, logger)
	httpServer := &http.Server{
		Addr:              net.JoinHostPort("", serverConfig.Port),
		Handler:           server.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("Text post server starting",
			"port", serverConfig.Port,
			"env", serverConfig.Environment,
			"database", serverConfig.DatabaseType,
			"storage", serverConfig.Storage.Type,
			"audit_sink", serverConfig.AuditSink,
		)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("Server error", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server forced to shutdown", "error", err)
	}
	if reconciler != nil {
		reconciler.Stop()
	}

	logger.Info("Server exiting")
}

// HTTPServer wraps the text post service for HTTP access
type HTTPServer struct {
	service    textpost.Service
	repository textpost.Repository
	config     *config.ServerConfig
	logger     *slog.Logger
}

// NewHTTPServer creates a new HTTP server wrapper
func NewHTTPServer(service textpost.Service, repository textpost.Repository, serverConfig *config.ServerConfig, logger *slog.Logger) *HTTPServer {
	return &HTTPServer{
		service:    service,
		repository: repository,
		config:     serverConfig,
		logger:     logger,
	}
}

// Routes sets up the HTTP routes
func (s *HTTPServer) Routes() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(api.RequestIDHeaderMiddleware)
	r.Use(middleware.RealIP)
	r.Use(api.LoggingMiddleware(s.logger))
	r.Use(api.RecoveryMiddleware(s.logger))
	r.Use(middleware.Timeout(60 * time.Second))
	r.Use(api.RequestSizeLimitMiddleware(maxRequestBytes))

	// CORS for development
	if s.config.IsDevelopment() {
		r.Use(func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Access-Control-Allow-Origin", "*")
				w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, OPTIONS")
				w.Header().Set("Access-Control-Allow-Headers", "Content-Type, "+api.PrivilegedHeader)

				if r.Method == http.MethodOptions {
					w.WriteHeader(http.StatusOK)
					return
				}

				next.ServeHTTP(w, r)
			})
		})
	}

	r.Get("/health", s.handleHealth)

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(api.PrivilegedMiddleware)
		r.Mount("/posts", api.NewPostHandler(s.service, s.logger).Routes())
		r.Mount("/admin", api.NewAdminHandler(admin.New(s.repository), s.service, s.logger).Routes())
	})

	return r
}

// Health check endpoint
func (s *HTTPServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, map[string]string{
		"status":      "healthy",
		"environment": s.config.Environment,
		"database":    s.config.DatabaseType,
		"storage":     s.config.Storage.Type,
	})
}
