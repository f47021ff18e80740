package main

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/rmbolger/vbscore/internal/config"
	"github.com/rmbolger/vbscore/internal/database"
	"github.com/rmbolger/vbscore/internal/ratelimit"
	"github.com/rmbolger/vbscore/internal/scoreboard"
	"github.com/rmbolger/vbscore/internal/server"
)

const (
	expiryInterval = 10 * time.Minute
	sweepInterval  = 10 * time.Minute
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, stdout io.Writer) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	logger := slog.New(slog.NewJSONHandler(stdout, &slog.HandlerOptions{
		Level: cfg.LogLevel,
	}))

	// --- SQLite ---
	// Persistence trouble never stops the scoreboard: matches live in
	// memory, the database only carries them across restarts and keeps
	// the match log.
	var db *sql.DB
	var persister scoreboard.Persister
	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		logger.Warn("creating data dir, persistence disabled", "dir", cfg.DataDir, "error", err)
	} else if db, err = database.Open(ctx, filepath.Join(cfg.DataDir, "matches.db")); err != nil {
		logger.Warn("opening sqlite, persistence disabled", "error", err)
		db = nil
	} else {
		defer db.Close()
		if persister, err = scoreboard.NewSQLiteStore(ctx, db); err != nil {
			logger.Warn("initializing sqlite store, persistence disabled", "error", err)
			persister = nil
		} else {
			logger.Info("connected to sqlite", "dir", cfg.DataDir)
		}
	}

	// --- Match engine ---
	store := scoreboard.NewStore(logger, persister)
	store.Restore(ctx)

	limiter := ratelimit.New(cfg.CreateLimit, cfg.CreateWindow)

	// --- HTTP server ---
	srv := server.New(cfg.HTTPAddr, logger, store, limiter, db, cfg.StaticDir, cfg.BaseURL)

	// --- Run ---
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("starting http server", "addr", cfg.HTTPAddr)
		return srv.Run(gctx)
	})

	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down http server")
		return srv.Shutdown(context.Background())
	})

	g.Go(func() error {
		return store.RunExpiry(gctx, expiryInterval)
	})

	g.Go(func() error {
		return limiter.RunSweep(gctx, sweepInterval)
	})

	err = g.Wait()

	store.Persist(context.Background())
	return err
}
