package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/dukerupert/pocketcal/internal/completion"
	"github.com/dukerupert/pocketcal/internal/config"
	"github.com/dukerupert/pocketcal/internal/database"
	"github.com/dukerupert/pocketcal/internal/logging"
	"github.com/dukerupert/pocketcal/internal/scheduler"
	"github.com/dukerupert/pocketcal/internal/server"
)

const shutdownTimeout = 10 * time.Second

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "pocketcal: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	logger := logging.Setup(cfg.LogLevel, cfg.LogFormat)

	loc, err := cfg.Location()
	if err != nil {
		return err
	}

	db, err := database.Open(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	backend, err := completion.New(completion.Config{
		Provider: cfg.CompletionProvider,
		URL:      cfg.CompletionURL,
		Model:    cfg.CompletionModel,
		APIKey:   cfg.CompletionAPIKey,
		Timeout:  cfg.CompletionTimeout,
	})
	if err != nil {
		return fmt.Errorf("completion backend: %w", err)
	}

	srv := server.New(db, backend, server.Options{
		Location:       loc,
		SessionTTL:     cfg.SessionTTL,
		SecureCookies:  cfg.SecureCookies,
		AllowedOrigins: cfg.AllowedOrigins,
	}, logger)

	sched, err := scheduler.New(scheduler.Config{
		DailyFactSpec: cfg.DailyFactCron,
		Location:      loc,
		Facts:         srv.Assistant(),
		Sessions:      srv.SessionStore(),
		Limiter:       srv.RateLimiter(),
		Logger:        logger,
	})
	if err != nil {
		return err
	}

	httpServer := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           srv.Router(),
		ReadHeaderTimeout: 5 * time.Second,
		// Chat requests wait on the completion backend.
		WriteTimeout: cfg.CompletionTimeout + 10*time.Second,
		IdleTimeout:  120 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("pocketcal listening",
			"addr", httpServer.Addr,
			"provider", cfg.CompletionProvider,
			"model", cfg.CompletionModel,
			"timezone", loc.String(),
		)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		sched.Start(gctx)
		<-gctx.Done()
		sched.Stop()
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown: %w", err)
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		logger.Error("exit", slog.Any("error", err))
		return err
	}
	return nil
}
