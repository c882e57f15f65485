package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	logger_lib "github.com/s21platform/logger-lib"

	"github.com/turfbook/chat-service/internal/config"
	"github.com/turfbook/chat-service/internal/hub"
	"github.com/turfbook/chat-service/internal/infra"
	"github.com/turfbook/chat-service/internal/metrics"
	"github.com/turfbook/chat-service/internal/pkg/jwt"
	"github.com/turfbook/chat-service/internal/pkg/validator"
	db "github.com/turfbook/chat-service/internal/repository/postgres"
	"github.com/turfbook/chat-service/internal/rest"
)

const shutdownTimeout = 5 * time.Second

func main() {
	cfg := config.MustLoad()
	logger := logger_lib.New(cfg.Logger.Host, cfg.Logger.Port, cfg.Service.Name, cfg.Platform.Env)

	if cfg.Socket.JWTSecret == "" {
		logger.Error("SOCKET_JWT_SECRET is not set")
		os.Exit(1)
	}

	dbRepo := db.New(cfg)
	defer dbRepo.Close()

	if err := dbRepo.EnsureSchema(context.Background()); err != nil {
		logger.Error(fmt.Sprintf("failed to prepare database: %v", err))
		return
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	serverMetrics := metrics.NewServer(registry)

	socketHub := hub.New(logger, serverMetrics)
	vldtr := validator.New()
	tokens := jwt.New(cfg.Socket.JWTSecret, cfg.Socket.TokenTTL)

	handler := rest.New(dbRepo, socketHub, socketHub, vldtr, serverMetrics)
	router := chi.NewRouter()

	router.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	router.Group(func(r chi.Router) {
		r.Use(func(next http.Handler) http.Handler {
			return infra.LoggerHTTP(next, logger)
		})
		r.Use(func(next http.Handler) http.Handler {
			return infra.AuthInterceptorHTTP(next, tokens)
		})

		rest.HandlerFromMux(handler, r)
	})

	httpServer := &http.Server{
		Addr:              fmt.Sprintf(":%s", cfg.Service.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info(fmt.Sprintf("chat server listening on :%s", cfg.Service.Port))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("HTTP server error: %v", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gCtx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("failed to shut down HTTP server: %v", err)
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		logger.Error(fmt.Sprintf("server error: %v", err))
	}
}
