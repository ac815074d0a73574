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
	goredis "github.com/redis/go-redis/v9"

	"github.com/dmehra2102/storefront/internal/order/application"
	orderhttp "github.com/dmehra2102/storefront/internal/order/infrastructure/http"
	orderpg "github.com/dmehra2102/storefront/internal/order/infrastructure/postgres"
	orderredis "github.com/dmehra2102/storefront/internal/order/infrastructure/redis"
	"github.com/dmehra2102/storefront/internal/order/infrastructure/remote"
	"github.com/dmehra2102/storefront/pkg/auth"
	"github.com/dmehra2102/storefront/pkg/config"
	"github.com/dmehra2102/storefront/pkg/httpx"
	"github.com/dmehra2102/storefront/pkg/logging"
	"github.com/dmehra2102/storefront/pkg/outbox"
	"github.com/dmehra2102/storefront/pkg/resilience"
	"github.com/dmehra2102/storefront/pkg/shutdown"
	"github.com/dmehra2102/storefront/pkg/tracing"
)

const service = "order-service"

func main() {
	cfg, err := config.Load(env("CONFIG_DIR", "configs"), service)
	if err == nil {
		err = cfg.Validate()
	}
	if err == nil {
		err = cfg.ValidateRemotes()
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

	// Postgres
	pool, err := pgxpool.New(ctx, cfg.Postgres.URL)
	if err != nil {
		log.Error("pg connect failed", "err", err)
		os.Exit(1)
	}
	defer pool.Close()
	if err := orderpg.EnsureSchema(ctx, pool); err != nil {
		log.Error("pg schema failed", "err", err)
		os.Exit(1)
	}

	// Redis
	rdb := goredis.NewClient(&goredis.Options{Addr: cfg.Redis.Addr, Password: cfg.Redis.Password})
	defer rdb.Close()

	// Kafka producer
	writer := outbox.NewKafkaWriter(cfg.Kafka.Brokers)
	defer writer.Close()

	// Repository, cache & outbox relay
	repo := orderpg.NewRepository(log, pool)
	cache := orderredis.NewOrderCache(log, rdb, repo, "order", cfg.Redis.OrderTTL)
	dispatch := outbox.NewDispatcher(log, writer, cfg.Kafka.Topic)
	relay := outbox.NewRelay(log, outbox.NewPGStore(pool), dispatch, service+"-"+uuid.NewString()[:8], cfg.Outbox)

	// Remote accessors, one policy per remote
	hc := &http.Client{Transport: http.DefaultTransport}
	cartPolicy := resilience.NewPolicy(log, cfg.Remotes.Cart.Settings("cart-service"))
	invPolicy := resilience.NewPolicy(log, cfg.Remotes.Inventory.Settings("inventory-service"))
	carts := remote.NewCartClient(log, hc, cfg.Remotes.Cart.BaseURL, cartPolicy)
	inv := remote.NewInventoryClient(log, hc, cfg.Remotes.Inventory.BaseURL, invPolicy)

	svc := application.NewService(log, repo, cache, carts, inv)
	handler := orderhttp.NewHandler(log, svc, verifier)

	// HTTP server
	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.Recoverer, httpx.Observe(log, service))
	r.Handle("/metrics", promhttp.Handler())
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		if err := pool.Ping(r.Context()); err != nil {
			httpx.WriteError(w, http.StatusServiceUnavailable, "unhealthy", "database unreachable")
			return
		}
		httpx.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Mount("/api", handler.Routes())
	srv := &http.Server{
		Addr:         cfg.App.HTTPAddr,
		Handler:      r,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 60 * time.Second,
	}

	// Run relay
	go func() {
		if err := relay.Run(ctx); err != nil {
			log.Error("relay stopped with error", "err", err)
		}
	}()

	shutdown.Serve(ctx, cancel, log, srv, 10*time.Second)
	log.Info("order-service shutdown complete")
}

func env(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}
