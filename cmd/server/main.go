package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/meDataEngLearner/rock-paper-scissors-multiplayer/internal/config"
	"github.com/meDataEngLearner/rock-paper-scissors-multiplayer/internal/history"
	"github.com/meDataEngLearner/rock-paper-scissors-multiplayer/internal/httpapi"
	"github.com/meDataEngLearner/rock-paper-scissors-multiplayer/internal/hub"
	"github.com/meDataEngLearner/rock-paper-scissors-multiplayer/internal/session"
)

func main() {
	cfg := config.Load()
	log := newLogger(cfg.LogLevel)
	defer func() { _ = log.Sync() }()

	var rec history.Recorder
	if cfg.DatabaseURL != "" {
		store, err := history.Open(cfg.DatabaseURL, log)
		if err != nil {
			log.Warn("round history disabled", zap.Error(err))
		} else {
			rec = store
		}
	}

	timings := session.Timings{
		Join:  cfg.JoinTimeout,
		Move:  cfg.MoveTimeout,
		Start: cfg.StartDelay,
	}
	h := hub.New(log, timings, rec)

	srv := &http.Server{
		Addr:    cfg.Addr,
		Handler: httpapi.SetupRoutes(h, log),
	}

	go func() {
		log.Info("listening", zap.String("addr", cfg.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("listen failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Error("forced shutdown", zap.Error(err))
	}
	h.Shutdown()
	log.Info("server exited")
}

func newLogger(level string) *zap.Logger {
	var cfg zap.Config
	if level == "debug" {
		cfg = zap.NewDevelopmentConfig()
	} else {
		cfg = zap.NewProductionConfig()
	}
	if lvl, err := zap.ParseAtomicLevel(level); err == nil {
		cfg.Level = lvl
	}
	log, err := cfg.Build()
	if err != nil {
		panic(err)
	}
	return log
}
