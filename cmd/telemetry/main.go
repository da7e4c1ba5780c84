// Package main is the entry point for the FleetTrack telemetry sink.
// It accepts vehicle samples over unary HTTP and a websocket stream and
// appends them to the MongoDB telemetry log.
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"

	"github.com/fleettrack/fleettrack/internal/config"
	"github.com/fleettrack/fleettrack/internal/middleware"
	"github.com/fleettrack/fleettrack/internal/mongodb"
	"github.com/fleettrack/fleettrack/internal/telemetry"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.LoadSink()
	if err != nil {
		slog.Error("configuration error", "error", err)
		os.Exit(1)
	}

	var logLevel slog.Level
	if err := logLevel.UnmarshalText([]byte(cfg.LogLevel)); err != nil {
		logLevel = slog.LevelInfo
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel,
	}))
	slog.SetDefault(logger)

	mongoClient, err := mongodb.Connect(context.Background(), cfg.MongoURI)
	if err != nil {
		slog.Error("failed to connect to mongodb", "error", err)
		os.Exit(1)
	}
	defer mongoClient.Disconnect(context.Background())
	slog.Info("telemetry log connection established")

	store := telemetry.NewSampleStore(mongoClient.Database(cfg.MongoDatabase))
	sink := telemetry.NewSinkServer(store, logger)

	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.NewSlogLogger(logger))
	r.Use(chimiddleware.Recoverer)
	sink.Routes(r)

	// No WriteTimeout: the websocket stream endpoint holds its connection
	// open for the lifetime of the producer.
	srv := &http.Server{
		Addr:        ":" + cfg.Port,
		Handler:     r,
		ReadTimeout: 0,
		IdleTimeout: 60 * time.Second,
	}

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		slog.Info("telemetry sink starting", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	<-stop
	slog.Info("shutting down telemetry sink")

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		slog.Error("shutdown error", "error", err)
		os.Exit(1)
	}
	slog.Info("telemetry sink stopped")
}
