package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"time"

	"connectrpc.com/connect"
	connectcors "connectrpc.com/cors"
	"github.com/rs/cors"

	categoryhandler "github.com/FACorreiaa/expense-tracker/internal/domain/category/handler"
	importhandler "github.com/FACorreiaa/expense-tracker/internal/domain/import/handler"
	insightshandler "github.com/FACorreiaa/expense-tracker/internal/domain/insights/handler"
	"github.com/FACorreiaa/expense-tracker/pkg/interceptors"
)

const shutdownTimeout = 15 * time.Second

// Server runs the RPC listener, the optional metrics listener and the
// retention scheduler.
type Server struct {
	deps    *Dependencies
	api     *http.Server
	metrics *http.Server
}

// NewServer builds the HTTP servers from initialized dependencies.
func NewServer(deps *Dependencies) *Server {
	cfg := deps.Config
	s := &Server{
		deps: deps,
		api: &http.Server{
			Addr:              net.JoinHostPort(cfg.Server.Host, strconv.Itoa(cfg.Server.Port)),
			Handler:           Handler(deps),
			ReadHeaderTimeout: 10 * time.Second,
		},
	}

	if deps.ImportMetrics != nil {
		mux := http.NewServeMux()
		mux.Handle("/metrics", deps.ImportMetrics.Handler())
		s.metrics = &http.Server{
			Addr:              net.JoinHostPort(cfg.Server.Host, strconv.Itoa(cfg.Observability.MetricsPort)),
			Handler:           mux,
			ReadHeaderTimeout: 5 * time.Second,
		}
	}
	return s
}

// Handler mounts every RPC service behind the interceptor chain and CORS.
func Handler(deps *Dependencies) http.Handler {
	cfg := deps.Config
	opts := []connect.HandlerOption{
		connect.WithCodec(interceptors.JSONCodec{}),
		connect.WithInterceptors(
			interceptors.NewLoggingInterceptor(deps.Logger),
			interceptors.NewRateLimitInterceptor(cfg.Server.RateLimitPerSecond, cfg.Server.RateLimitBurst),
			interceptors.NewAuthInterceptor([]byte(cfg.Auth.JWTSecret)),
		),
	}

	mux := http.NewServeMux()
	mux.Handle(importhandler.NewImportServiceHandler(deps.ImportHandler, opts...))
	mux.Handle(insightshandler.NewInsightsServiceHandler(deps.InsightsHandler, opts...))
	mux.Handle(categoryhandler.NewCategoryServiceHandler(deps.CategoryHandler, opts...))
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	return withCORS(mux, cfg.Server.AllowedOrigins)
}

func withCORS(h http.Handler, origins []string) http.Handler {
	middleware := cors.New(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   connectcors.AllowedMethods(),
		AllowedHeaders:   append(connectcors.AllowedHeaders(), "Authorization"),
		ExposedHeaders:   connectcors.ExposedHeaders(),
		AllowCredentials: true,
		MaxAge:           7200,
	})
	return middleware.Handler(h)
}

// Run serves until ctx is cancelled, then shuts everything down.
func (s *Server) Run(ctx context.Context) error {
	logger := s.deps.Logger
	errCh := make(chan error, 2)

	if s.deps.Scheduler != nil {
		if err := s.deps.Scheduler.Start(); err != nil {
			return fmt.Errorf("failed to start scheduler: %w", err)
		}
	}

	go func() {
		logger.Info("api server listening", slog.String("addr", s.api.Addr))
		if err := s.api.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("api server: %w", err)
		}
	}()

	if s.metrics != nil {
		go func() {
			logger.Info("metrics server listening", slog.String("addr", s.metrics.Addr))
			if err := s.metrics.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errCh <- fmt.Errorf("metrics server: %w", err)
			}
		}()
	}

	var runErr error
	select {
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	case runErr = <-errCh:
		logger.Error("server failed", slog.Any("error", runErr))
	}

	s.shutdown()
	return runErr
}

func (s *Server) shutdown() {
	logger := s.deps.Logger
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := s.api.Shutdown(ctx); err != nil {
		logger.Error("api server shutdown failed", slog.Any("error", err))
	}
	if s.metrics != nil {
		if err := s.metrics.Shutdown(ctx); err != nil {
			logger.Error("metrics server shutdown failed", slog.Any("error", err))
		}
	}
	if s.deps.Scheduler != nil {
		select {
		case <-s.deps.Scheduler.Stop().Done():
		case <-ctx.Done():
			logger.Warn("retention sweep still running at shutdown")
		}
	}
}
