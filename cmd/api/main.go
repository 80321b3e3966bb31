package main

import (
	"context"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/ljarka/immich-timeline/internal/config"
	"github.com/ljarka/immich-timeline/internal/local"
	"github.com/ljarka/immich-timeline/internal/logger"
	"github.com/ljarka/immich-timeline/internal/remote"
	"github.com/ljarka/immich-timeline/internal/server"
	"github.com/ljarka/immich-timeline/internal/store"
	"github.com/ljarka/immich-timeline/internal/thumb"
	"github.com/ljarka/immich-timeline/internal/timeline"
)

func main() {
	_ = godotenv.Load()

	logg, err := logger.Init()
	if err != nil {
		panic("init logger: " + err.Error())
	}
	defer logg.Sync()

	cfg, err := config.Load()
	if err != nil {
		logg.Fatal("load config", zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := store.Open(ctx, cfg.Store.Driver, cfg.StoreDSN())
	if err != nil {
		logg.Fatal("open store", zap.Error(err))
	}
	defer db.Close()

	remoteSource := remote.NewClient(cfg.Immich.ServerURL, cfg.Immich.AccessToken)
	localSource := local.NewMediaSource(cfg.Media.Dir)
	locator := thumb.NewProvider(cfg.Immich.ServerURL, cfg.Media.Dir)

	engine := timeline.NewService(db, remoteSource, localSource, locator, timeline.Config{
		JobCap:       cfg.Engine.FetchJobCap,
		FetchWorkers: cfg.Engine.FetchWorkers,
	}, logg)
	defer engine.Close()

	if err := engine.RefreshDirectory(ctx); err != nil {
		// Persisted buckets from the last successful run keep serving.
		logg.Warn("refresh bucket directory", zap.Error(err))
	}

	router := server.NewRouter(server.Dependencies{
		Config:   cfg,
		Logger:   logg,
		Store:    db,
		Timeline: engine,
	})

	httpServer := &http.Server{
		Addr:         cfg.Server.Address(),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		logg.Info("timeline API listening", zap.String("address", cfg.Server.Address()))
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logg.Fatal("http server", zap.Error(err))
		}
	}()

	<-ctx.Done()
	stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	logg.Info("shutting down gracefully")
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logg.Error("shutdown error", zap.Error(err))
	}
}
