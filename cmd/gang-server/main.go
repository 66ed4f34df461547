// Package main is the entry point for the gang simulation server.
// It only handles dependency injection and server initialization.
// NO business logic belongs here.
package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/MRamiBalles/CarcelGangs/server/internal/engine"
	"github.com/MRamiBalles/CarcelGangs/server/internal/infra/cache"
	"github.com/MRamiBalles/CarcelGangs/server/internal/infra/storage"
	"github.com/MRamiBalles/CarcelGangs/server/internal/network"
	"github.com/MRamiBalles/CarcelGangs/server/internal/platform/config"
	"github.com/MRamiBalles/CarcelGangs/server/internal/platform/logger"
	"github.com/MRamiBalles/CarcelGangs/server/internal/platform/metrics"
	"github.com/MRamiBalles/CarcelGangs/server/internal/platform/random"
	"github.com/MRamiBalles/CarcelGangs/server/internal/simulation"
)

func main() {
	log.Println("[GANG-SERVER] Initializing gang simulation server...")

	appLogger := logger.NewLogger()

	cfg, err := config.Load()
	if err != nil {
		appLogger.Error("Invalid configuration", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	appLogger.Info("Opening store", "dialect", cfg.Server.DBDialect)
	store, err := storage.Open(ctx, cfg.Server)
	if err != nil {
		appLogger.Error("Failed to open store", "error", err)
		os.Exit(1)
	}
	defer store.Close()

	contexts, err := cache.NewContextCache(cfg.Server.ContextCacheLen)
	if err != nil {
		appLogger.Error("Failed to create context cache", "error", err)
		os.Exit(1)
	}

	appLogger.Info("Bootstrapping engine", "seed", cfg.Server.Seed)
	gameEngine := engine.NewEngine(cfg.Simulation, random.NewSeeded(cfg.Server.Seed), appLogger)

	rt := simulation.New(simulation.Options{
		Engine:         gameEngine,
		Logger:         appLogger,
		Metrics:        metrics.Get(),
		Store:          store,
		Cache:          contexts,
		GameID:         cfg.Server.GameID,
		EventRetention: cfg.Server.EventRetention,
		DrugRetention:  cfg.Server.DrugRetention,
	})
	if err := rt.Restore(ctx); err != nil {
		appLogger.Error("Failed to restore snapshot", "error", err)
		os.Exit(1)
	}
	appLogger.Info("Simulation ready", "state", rt.Snapshot().Summary())

	go rt.Start(ctx, cfg.Simulation.TickInterval)

	appLogger.Info("Bootstrapping WebSocket Hub...")
	hub := network.NewHub(rt, appLogger, cfg.Server.ClientSendBuffer)
	go hub.Run(ctx)
	go hub.Forward(ctx, rt.Events())

	mux := http.NewServeMux()
	mux.HandleFunc("/ws", hub.ServeWS(ctx))
	network.NewAPI(rt, appLogger).RegisterRoutes(mux)
	network.NewReplayHandler(rt.Events(), rt.DrugLedger(), appLogger).RegisterRoutes(mux)
	mux.HandleFunc("GET /metrics", metrics.Handler())
	mux.HandleFunc("GET /metrics/prometheus", metrics.PrometheusHandler())

	srv := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		appLogger.Info("HTTP API & WS Server listening", "addr", cfg.Server.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			appLogger.Error("Server failed", "error", err)
			stop()
		}
	}()

	log.Println("[GANG-SERVER] Server running. Press Ctrl+C to exit.")
	<-ctx.Done()

	log.Println("[GANG-SERVER] Shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		appLogger.Warn("Graceful shutdown failed", "error", err)
	}
	for _, note := range metrics.Advice(metrics.Get().Snapshot()) {
		appLogger.Info("Tuning advice", "note", note, "profile", cfg.Server.Profile)
	}
}
