// Command router is the session admission router: it validates
// start/stop requests, assigns and remembers which backend hosts each
// client session, proxies to that backend, and reclaims stale
// mappings in the background (spec.md §1).
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"sessionrouter/internal/config"
	"sessionrouter/internal/httpapi"
	"sessionrouter/internal/logger"
	"sessionrouter/internal/metrics"
	"sessionrouter/internal/reclaim"
	"sessionrouter/internal/routing"
	"sessionrouter/internal/store"
)

const shutdownGrace = 5 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		logger.Init(logger.Config{Level: "error"})
		logger.Fatal("failed to load config", "error", err)
	}

	logger.Init(logger.Config{Level: cfg.LogLevel, Format: "json", Output: "stdout"})

	logger.Log.Info("starting session router",
		"backends", cfg.BackendIPs,
		"max_per_backend", cfg.MaxPerBackend,
		"mapping_ttl", cfg.MappingTTL,
		"allow_origin", cfg.AllowOrigin,
		"port", cfg.Port,
	)

	s, err := store.NewRedis(cfg.RedisURL)
	if err != nil {
		logger.Fatal("failed to construct coordination store client", "error", err)
	}
	defer s.Close()

	pingCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.Ping(pingCtx); err != nil {
		logger.Fatal("coordination store unreachable", "error", err)
	}

	m := metrics.New(cfg.MetricsNamespace)

	manager := routing.New(s, cfg.BackendIPs, cfg.MaxPerBackend, cfg.MappingTTL, m)

	ctx, cancelWorkers := context.WithCancel(context.Background())
	defer cancelWorkers()

	workers := reclaim.New(s, cfg.BackendIPs, cfg.MappingTTL, m)
	workers.Run(ctx)

	httpServer := httpapi.NewServer(cfg, manager, m)

	mux := http.NewServeMux()
	mux.Handle("/", httpServer.Router())
	mux.Handle("/metrics", metrics.Handler())

	server := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Port),
		Handler: mux,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Log.Info("router listening", "port", cfg.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		logger.Fatal("server failed", "error", err)
	case sig := <-quit:
		logger.Log.Info("received shutdown signal", "signal", sig)
	}

	cancelWorkers()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownGrace)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Log.Error("graceful shutdown exceeded deadline, forcing close", "error", err)
		_ = server.Close()
		os.Exit(1)
	}

	logger.Log.Info("router stopped")
}
