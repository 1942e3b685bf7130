package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"sweepwatch/adapters/sqlite"
	"sweepwatch/app/view"
	"sweepwatch/internal/config"
	"sweepwatch/internal/render"
	"sweepwatch/ports"
	"sweepwatch/ui"
)

func main() {
	// Load .env file if present (optional for local development)
	_ = godotenv.Load()
	cfg := config.Load()

	logger, err := buildLogger(cfg.LogLevel)
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer logger.Sync()
	sugar := logger.Sugar()

	opener := ports.SourceOpener(func(path string) (ports.Source, error) {
		return sqlite.Open(path, cfg.Database.QueryTimeout)
	})
	sessions := view.NewManager(opener, render.NewVegaSink(), cfg.Refresh.Interval, sugar)

	server, err := ui.NewServer(sessions, cfg.Database.Path, sugar)
	if err != nil {
		sugar.Fatalw("server setup", "error", err)
	}

	httpServer := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           server.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		sugar.Infow("listening", "addr", httpServer.Addr, "default_db", cfg.Database.Path)
		if err := httpServer.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		sessions.Close()
		return httpServer.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		sugar.Fatalw("server exited", "error", err)
	}
}

func buildLogger(level string) (*zap.Logger, error) {
	lvl, err := zap.ParseAtomicLevel(level)
	if err != nil {
		return nil, err
	}
	zcfg := zap.NewProductionConfig()
	zcfg.Level = lvl
	return zcfg.Build()
}
