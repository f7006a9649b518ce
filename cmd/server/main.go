package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	mongo "notesync/internal/clients/mongo"
	"notesync/internal/config"
	"notesync/internal/logger"

	_ "go.uber.org/automaxprocs"
	"golang.org/x/sync/errgroup"
)

const shutdownGrace = 25 * time.Second

func main() {
	ctx, stop := signal.NotifyContext(context.Background(),
		syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Structured logging is not available until config parses, so early
	// failures go through a plain stderr logger.
	boot := log.New(os.Stderr, "bootstrap: ", log.LstdFlags)

	cfg, err := config.Load()
	if err != nil {
		boot.Printf("config load failed: %v", err)
		os.Exit(1)
	}

	logg, err := logger.Init(cfg)
	if err != nil {
		boot.Printf("logger init failed: %v", err)
		os.Exit(1)
	}

	if _, _, err := mongo.Init(ctx, cfg, logg); err != nil {
		logg.Error("mongo init", "err", err)
		os.Exit(1)
	}

	app := setupRouter(ctx, cfg)

	logg.Info("starting notesync", "port", cfg.AppPort)

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		err := app.Listen(fmt.Sprintf(":%d", cfg.AppPort))
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	})

	g.Go(func() error {
		<-ctx.Done()

		// Fresh context: the signal context is already done by now.
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
		defer cancel()

		if err := app.Shutdown(); err != nil {
			return err
		}
		return mongo.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logg.Error("fatal", "err", err)
		os.Exit(1)
	}
	logg.Info("graceful shutdown complete")
}
