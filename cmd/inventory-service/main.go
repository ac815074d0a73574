package main

import (
	"context"
	"net/http"
	"os"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/dmehra2102/storefront/internal/inventory/application"
	invhttp "github.com/dmehra2102/storefront/internal/inventory/infrastructure/http"
	inventoryDB "github.com/dmehra2102/storefront/internal/inventory/infrastructure/postgres"
	"github.com/dmehra2102/storefront/pkg/auth"
	"github.com/dmehra2102/storefront/pkg/config"
	"github.com/dmehra2102/storefront/pkg/httpx"
	"github.com/dmehra2102/storefront/pkg/logging"
	"github.com/dmehra2102/storefront/pkg/outbox"
	"github.com/dmehra2102/storefront/pkg/shutdown"
	"github.com/dmehra2102/storefront/pkg/tracing"
)

const service = "inventory-service"

func main() {
	cfg, err := config.Load(env("CONFIG_DIR", "configs"), service)
	if err == nil {
		err = cfg.Validate()
	}
	if err != nil {
		logging.New(logging.Options{Service: service}).Error("config invalid", "err", err)
		os.Exit(1)
	}

	log := logging.New(logging.Options{Service: service, Level: cfg.App.LogLevel, File: cfg.App.LogFile})
	ctx, cancel := shutdown.WithSignals(context.Background())
	defer cancel()

	tp, err := tracing.Init(ctx, service, cfg.Tracing.Endpoint, log)
	if err != nil {
		log.Error("otel init failed", "err", err)
		os.Exit(1)
	}
	defer func() { _ = tp.Shutdown(context.Background()) }()

	verifier, err := auth.NewVerifier(cfg.Auth.JWTSecret)
	if err != nil {
		log.Error("auth init failed", "err", err)
		os.Exit(1)
	}

	pool, err := pgxpool.New(ctx, cfg.Postgres.URL)
	if err != nil {
		log.Error("pg connect failed", "err", err)
		os.Exit(1)
	}
	defer pool.Close()
	if err := inventoryDB.EnsureSchema(ctx, pool); err != nil {
		log.Error("pg schema failed", "err", err)
		os.Exit(1)
	}

	writer := outbox.NewKafkaWriter(cfg.Kafka.Brokers)
	defer writer.Close()

	repo := inventoryDB.NewRepository(log, pool)
	dispatch := outbox.NewDispatcher(log, writer, cfg.Kafka.Topic)
	relay := outbox.NewRelay(log, outbox.NewPGStore(pool), dispatch, service+"-"+uuid.NewString()[:8], cfg.Outbox)

	svc := application.NewService(log, repo)
	handler := invhttp.NewHandler(log, svc, verifier)

	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.Recoverer, httpx.Observe(log, service))
	r.Handle("/metrics", promhttp.Handler())
	r.Mount("/api", handler.Routes())
	srv := &http.Server{
		Addr:         cfg.App.HTTPAddr,
		Handler:      r,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	go func() {
		if err := relay.Run(ctx); err != nil {
			log.Error("relay stopped with error", "err", err)
		}
	}()

	shutdown.Serve(ctx, cancel, log, srv, 10*time.Second)
	log.Info("inventory-service shutdown complete")
}

func env(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}
