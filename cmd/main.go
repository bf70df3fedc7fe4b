package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Netflix/go-env"
	"github.com/joho/godotenv"

	"driftroom/moderation"
	"driftroom/ratelimit"
	"driftroom/repositories"
	"driftroom/runtime"
	"driftroom/ws"
)

const (
	schedulerBuffer = 64
	shutdownGrace   = 5 * time.Second
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Fatal error: %v\n", err)
		os.Exit(1)
	}
}

// run wires everything together and owns the lifecycle, so every defer
// fires before the process exits.
func run() error {
	// A missing .env file is fine; the environment wins anyway.
	_ = godotenv.Load()

	var config Config
	if _, err := env.UnmarshalFromEnviron(&config); err != nil {
		return fmt.Errorf("config error: %w", err)
	}

	log := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel(config.LogLevel),
	}))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := repositories.Open(ctx, config.DurabilityURL, repositories.DefaultCaps(), log)
	if err != nil {
		return fmt.Errorf("durability backend: %w", err)
	}
	defer func() {
		log.Info("closing durability backend")
		_ = store.Close()
	}()

	moderator, err := moderation.Default()
	if err != nil {
		return fmt.Errorf("moderation setup: %w", err)
	}

	registry := runtime.NewRegistry(log, config.DefaultRoomTitle)
	limiter := ratelimit.New(ratelimit.DefaultRules(), ratelimit.DefaultTotal())
	scheduler := runtime.NewScheduler(schedulerBuffer)
	coordinator := runtime.NewCoordinator(log, registry, limiter, moderator, scheduler, store)

	supervisor := runtime.NewSupervisor(log).Add(coordinator)
	supervisorDone := make(chan struct{})
	go func() {
		defer close(supervisorDone)
		supervisor.Run(ctx)
	}()

	mux := http.NewServeMux()
	mux.Handle("/ws", ws.NewHandler(log, coordinator, config.Origins()))
	mux.HandleFunc("/healthz", ws.HealthHandler(log, coordinator, store))

	address := fmt.Sprintf("%s:%d", config.Host, config.Port)
	server := &http.Server{
		Addr:              address,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errChan := make(chan error, 1)
	go func() {
		log.Info("server listening", "address", address)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errChan <- fmt.Errorf("http server: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		log.Info("shutting down gracefully")
	case err := <-errChan:
		return err
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Warn("http shutdown incomplete", "error", err)
	}

	supervisor.Stop()
	select {
	case <-supervisorDone:
	case <-time.After(shutdownGrace):
		log.Warn("supervisor did not drain in time")
	}

	log.Info("program stopped cleanly")
	return nil
}
