// Package main runs a local Firefly III API emulator for development and
// testing of firefly-sync.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"syscall"
	"time"

	"github.com/pigeonworks-llc/firefly-sync/pkg/emulator/api"
	"github.com/pigeonworks-llc/firefly-sync/pkg/emulator/store"
)

const (
	defaultPort   = "8080"
	defaultDBPath = "./data/firefly-emulator.db"
	defaultToken  = "emulator-token"
)

func main() {
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	})))

	if err := run(); err != nil {
		slog.Error("emulator stopped with error", "error", err)
		os.Exit(1)
	}
	slog.Info("server stopped")
}

// run serves the emulator until SIGINT or SIGTERM.
func run() error {
	dbPath := getEnvOrDefault("DB_PATH", defaultDBPath)
	perPage, err := strconv.Atoi(getEnvOrDefault("PER_PAGE", strconv.Itoa(api.DefaultPerPage)))
	if err != nil {
		return fmt.Errorf("invalid PER_PAGE: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return fmt.Errorf("failed to create data directory: %w", err)
	}
	st, err := store.New(dbPath)
	if err != nil {
		return fmt.Errorf("failed to initialize store: %w", err)
	}
	defer st.Close()

	if err := st.AddToken(getEnvOrDefault("EMULATOR_TOKEN", defaultToken)); err != nil {
		return fmt.Errorf("failed to register token: %w", err)
	}
	slog.Info("database initialized", "db_path", dbPath)

	server := &http.Server{
		Addr:         ":" + getEnvOrDefault("PORT", defaultPort),
		Handler:      api.NewRouter(st, api.RouterOptions{PerPage: perPage}),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	serveErr := make(chan error, 1)
	go func() {
		slog.Info("starting Firefly III API emulator", "addr", server.Addr, "per_page", perPage)
		serveErr <- server.ListenAndServe()
	}()

	select {
	case err := <-serveErr:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	slog.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
