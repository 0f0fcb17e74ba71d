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

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/ayofalola240/Okra-assessment/internal/cache"
	"github.com/ayofalola240/Okra-assessment/internal/config"
	"github.com/ayofalola240/Okra-assessment/internal/db"
	httpx "github.com/ayofalola240/Okra-assessment/internal/http"
	"github.com/ayofalola240/Okra-assessment/internal/http/handlers"
	"github.com/ayofalola240/Okra-assessment/internal/http/middlewares"
	"github.com/ayofalola240/Okra-assessment/internal/observability"
	"github.com/ayofalola240/Okra-assessment/internal/redisclient"
	"github.com/ayofalola240/Okra-assessment/internal/report"
	"github.com/ayofalola240/Okra-assessment/internal/repo/memory"
	"github.com/ayofalola240/Okra-assessment/internal/repo/mongodb"
	"github.com/ayofalola240/Okra-assessment/internal/repo/postgres"
	"github.com/ayofalola240/Okra-assessment/internal/service"
)

// userStore is what every adapter offers.
type userStore interface {
	service.UserStore
	report.CityAggregator
	Ping(ctx context.Context) error
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	log := observability.NewLogger(cfg.Env)
	slog.SetDefault(log)

	bootCtx, cancelBoot := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancelBoot()

	shutdownTracer, err := observability.InitTracer(bootCtx, observability.TracerConfig{
		Enabled:     cfg.OTelEnabled,
		ServiceName: cfg.OTelServiceName,
		Environment: cfg.Env,
		Endpoint:    cfg.OTelEndpoint,
		SampleRatio: cfg.OTelSampleRatio,
	})
	if err != nil {
		log.Error("tracer init failed", "err", err)
		os.Exit(1)
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	prom := observability.NewProm(reg)

	store, closeStore, err := openStore(bootCtx, cfg, prom)
	if err != nil {
		log.Error("store init failed", "driver", cfg.StoreDriver, "err", err)
		os.Exit(1)
	}

	checks := map[string]handlers.Pinger{
		"store": store.Ping,
	}

	var limiterStore middlewares.LimiterStore = middlewares.NewMemoryLimiterStore(cfg.RateLimitWindow)

	var rc *redisclient.Client
	if cfg.RedisAddr != "" {
		rc = redisclient.New(redisclient.Config{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})

		if err := rc.Ping(bootCtx); err != nil {
			// the limiter fails open, so a cold redis only costs us limits
			log.Warn("redis ping failed", "addr", cfg.RedisAddr, "err", err)
		}

		limiterStore = middlewares.NewRedisLimiterStore(rc, cfg.RateLimitWindow)
		checks["redis"] = rc.Ping
	}

	users := service.NewUsers(store, nil)
	reports := report.NewEngine(store)

	router := httpx.NewRouter(httpx.RouterDeps{
		Log:            log,
		Env:            cfg.Env,
		ServiceName:    cfg.OTelServiceName,
		Users:          users,
		Reports:        reports,
		Checks:         checks,
		Prom:           prom,
		Gatherer:       reg,
		Limiter:        middlewares.NewRateLimiter(limiterStore, cfg.RateLimit, cfg.RateLimitWindow, log),
		ListCache:      cache.New[[]byte](cfg.ListCacheTTL, 0),
		AllowedOrigins: cfg.CORSAllowedOrigins,
		MaxBodyBytes:   cfg.MaxBodyBytes,
		StoreTimeout:   cfg.StoreTimeout,
		HSTS:           cfg.IsProduction(),
	})

	srv := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		log.Info("server starting", "port", cfg.Port, "env", cfg.Env, "store", cfg.StoreDriver)
		err := srv.ListenAndServe()

		if err != nil && err != http.ErrServerClosed {
			log.Error("server failed", "err", err)
			os.Exit(1)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop
	log.Info("server shutting down")

	shutdownCh := make(chan struct{})

	go func() {
		defer close(shutdownCh)

		ctx, cancel := config.WithTimeout(cfg.ShutdownTimeout)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			log.Error("graceful shutdown failed", "err", err)
		}

		if err := shutdownTracer(ctx); err != nil {
			log.Error("tracer shutdown failed", "err", err)
		}

		if rc != nil {
			_ = rc.Close()
		}

		closeStore()
	}()

	select {
	case <-shutdownCh:
		log.Info("shutdown complete")

	case <-time.After(cfg.ShutdownTimeout + 2*time.Second):
		log.Error("shutdown timed out")
	}
}

func openStore(ctx context.Context, cfg config.Config, prom *observability.Prom) (userStore, func(), error) {
	switch cfg.StoreDriver {
	case config.DriverMemory:
		return memory.NewUsersRepo(), func() {}, nil

	case config.DriverMongo:
		client, err := mongodb.Connect(ctx, cfg.MongoURI)
		if err != nil {
			return nil, nil, fmt.Errorf("mongo connect: %w", err)
		}

		repo := mongodb.NewUsersRepo(client, cfg.MongoDatabase, prom)
		if err := repo.EnsureIndexes(ctx); err != nil {
			_ = client.Disconnect(context.Background())
			return nil, nil, err
		}

		return repo, func() { _ = client.Disconnect(context.Background()) }, nil

	default:
		pool, err := db.NewPool(ctx, cfg.PostgresURL(), cfg.DBMaxConns)
		if err != nil {
			return nil, nil, fmt.Errorf("postgres connect: %w", err)
		}

		if err := db.EnsureSchema(ctx, pool); err != nil {
			pool.Close()
			return nil, nil, err
		}

		return postgres.NewUsersRepo(pool, prom), pool.Close, nil
	}
}
