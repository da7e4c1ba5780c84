// Package main is the entry point for the FleetTrack trip API server.
// Its sole responsibility is wiring dependencies together and starting the
// server. No business logic belongs here.
package main

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/jackc/pgx/v5/stdlib" // registers "pgx" driver for database/sql
	"github.com/joho/godotenv"
	"github.com/pressly/goose/v3"

	"github.com/fleettrack/fleettrack/internal/config"
	"github.com/fleettrack/fleettrack/internal/handler"
	"github.com/fleettrack/fleettrack/internal/idempotency"
	"github.com/fleettrack/fleettrack/internal/middleware"
	"github.com/fleettrack/fleettrack/internal/mongodb"
	"github.com/fleettrack/fleettrack/internal/readstore"
	"github.com/fleettrack/fleettrack/internal/repo"
	"github.com/fleettrack/fleettrack/internal/service"
	"github.com/fleettrack/fleettrack/internal/telemetry"
	"github.com/fleettrack/fleettrack/migrations"
)

// maxBodyBytes caps request bodies; the largest legitimate payload is a
// create-trip request with full-length notes, well under this.
const maxBodyBytes = 1 << 20

func main() {
	// --- Config -----------------------------------------------------------
	// .env is optional: real deployments set variables in the environment.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("configuration error", "error", err)
		os.Exit(1)
	}

	// --- Logger -----------------------------------------------------------
	var logLevel slog.Level
	if err := logLevel.UnmarshalText([]byte(cfg.LogLevel)); err != nil {
		logLevel = slog.LevelInfo
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel,
	}))
	slog.SetDefault(logger)

	// --- Write store ------------------------------------------------------
	// pgxpool manages a pool of Postgres connections.
	// New() does not open connections immediately — the first query does.
	pool, err := pgxpool.New(context.Background(), cfg.DatabaseURL)
	if err != nil {
		slog.Error("failed to create database pool", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	if err := pool.Ping(context.Background()); err != nil {
		slog.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	slog.Info("database connection established")

	if err := migrate(cfg.DatabaseURL); err != nil {
		slog.Error("failed to run migrations", "error", err)
		os.Exit(1)
	}

	// --- Read store -------------------------------------------------------
	mongoClient, err := mongodb.Connect(context.Background(), cfg.MongoURI)
	if err != nil {
		slog.Error("failed to connect to mongodb", "error", err)
		os.Exit(1)
	}
	defer mongoClient.Disconnect(context.Background())
	slog.Info("read store connection established")

	views := readstore.NewTripViews(mongoClient.Database(cfg.MongoDatabase))

	// --- Service ----------------------------------------------------------
	registry := idempotency.NewRegistry(time.Minute)
	defer registry.Close()

	notifier := telemetry.NewClient(cfg.TelemetryURL)

	trips := service.NewTripService(
		repo.NewTripRepo(pool),
		views,
		registry,
		notifier,
		logger,
		cfg.IdempotencyTTL,
		cfg.TelemetryTimeout,
	)

	// --- Router -----------------------------------------------------------
	// Middleware order: RequestID → RealIP → SlogLogger → Recoverer → CORS →
	// body cap. Auth wraps only the trip routes so /healthz stays open.
	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.NewSlogLogger(logger))
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.NewCORSHandler(cfg.CORSOrigins))
	r.Use(middleware.NewMaxBodySizeHandler(maxBodyBytes))

	// Drivers may read trips; mutations are reserved for dispatchers and
	// admins.
	srvHandlers := handler.NewServer(trips, logger)
	r.Get("/healthz", srvHandlers.GetHealth)
	r.Group(func(r chi.Router) {
		r.Use(middleware.NewAuthenticator(cfg.JWTSecret))
		r.Use(middleware.RequireRole("driver", "dispatcher", "admin"))
		srvHandlers.Routes(r, middleware.RequireRole("dispatcher", "admin"))
	})

	// --- HTTP Server ------------------------------------------------------
	// Explicit timeouts prevent slowloris and resource exhaustion attacks.
	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown: wait for OS signal, then give in-flight requests
	// up to 15 seconds to complete before forcefully closing.
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		slog.Info("server starting", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	<-stop
	slog.Info("shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		slog.Error("shutdown error", "error", err)
		os.Exit(1)
	}
	slog.Info("server stopped")
}

// migrate applies all pending write-store migrations at startup, using a
// plain *sql.DB because goose needs database/sql rather than a pgx pool.
func migrate(dsn string) error {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return err
	}
	defer db.Close()

	provider, err := goose.NewProvider(goose.DialectPostgres, db, migrations.FS)
	if err != nil {
		return err
	}
	results, err := provider.Up(context.Background())
	if err != nil {
		return err
	}
	if len(results) > 0 {
		slog.Info("migrations applied", "count", len(results))
	}
	return nil
}
