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

	"github.com/geocoder89/agencysite/internal/auth"
	"github.com/geocoder89/agencysite/internal/config"
	"github.com/geocoder89/agencysite/internal/db"
	httpx "github.com/geocoder89/agencysite/internal/http"
	"github.com/geocoder89/agencysite/internal/observability"
	"github.com/geocoder89/agencysite/internal/realtime"
	"github.com/geocoder89/agencysite/internal/redisclient"
	"github.com/geocoder89/agencysite/internal/repo/postgres"
	"github.com/geocoder89/agencysite/internal/storage/objectstore"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func main() {
	os.Exit(run())
}

func run() int {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("invalid configuration", "err", err)
		return 1
	}

	log := observability.NewLogger(cfg.Env)
	slog.SetDefault(log)

	ctx := context.Background()

	shutdownTracer, err := observability.InitTracer(ctx, cfg.ServiceName, cfg.Env, cfg.OTelEndpoint)
	if err != nil {
		log.Error("tracer init failed", "err", err)
		return 1
	}
	defer func() {
		tctx, cancel := config.WithTimeout(5 * time.Second)
		defer cancel()
		_ = shutdownTracer(tctx)
	}()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	prom := observability.NewProm(reg)

	// database
	gw, err := db.New(db.Options{
		URL:                 cfg.DBURL,
		MaxPoolSize:         cfg.DB.MaxPoolSize,
		ServerSelectTimeout: cfg.DB.ServerSelectTimeout,
		SocketTimeout:       cfg.DB.SocketTimeout,
		MaxRetries:          cfg.DB.MaxRetries,
		RetryInterval:       cfg.DB.RetryInterval,
		HealthCheckInterval: cfg.DB.HealthCheckInterval,
	}, log, db.WithHooks(prom))
	if err != nil {
		log.Error("database config invalid", "err", err)
		return 1
	}

	if err := gw.Connect(ctx); err != nil {
		log.Error("database connect failed", "err", err)
		return 1
	}

	if err := db.EnsureSchema(ctx, gw); err != nil {
		log.Error("schema setup failed", "err", err)
		shutdownGateway(log, gw)
		return 1
	}

	seeded, err := db.EnsureAdminUser(ctx, postgres.NewUsersRepo(gw, prom), cfg)
	if err != nil {
		log.Error("admin seed failed", "err", err)
	} else if seeded {
		log.Info("admin user created", "email", cfg.AdminEmail)
	}

	tokens, err := auth.NewManager(cfg.JWTSecret, auth.DefaultTokenTTL)
	if err != nil {
		log.Error("token manager init failed", "err", err)
		shutdownGateway(log, gw)
		return 1
	}

	deps := httpx.Deps{
		Config:  cfg,
		Log:     log,
		Prom:    prom,
		Metrics: promhttp.HandlerFor(reg, promhttp.HandlerOpts{}),
		Gateway: gw,
		Hub:     realtime.NewHub(log, prom),
		Tokens:  tokens,
	}

	// optional rate limit store
	if cfg.RedisAddr != "" {
		rc, err := redisclient.Connect(ctx, redisclient.Config{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		}, 3*time.Second)
		if err != nil {
			log.Warn("redis unavailable, rate limiting in memory", "err", err)
		} else {
			defer rc.Close()
			deps.Redis = rc.Raw()
		}
	}

	// optional image storage
	if cfg.ObjectStore.Enabled() {
		octx, cancel := config.WithTimeout(10 * time.Second)
		store, err := objectstore.New(octx, cfg.ObjectStore)
		cancel()
		if err != nil {
			log.Warn("object storage unavailable, image uploads disabled", "err", err)
		} else {
			deps.Images = store
		}
	}

	router := httpx.NewRouter(deps)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	serveErr := make(chan error, 1)

	go func() {
		log.Info("Server starting", "port", cfg.Port, "env", cfg.Env)
		err := srv.ListenAndServe()

		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
	}()

	// Graceful shutdown

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	code := 0
	select {
	case sig := <-stop:
		log.Info("server shutting down", "signal", sig.String())
	case err := <-serveErr:
		log.Error("server failed", "err", err)
		code = 1
	}

	sctx, cancel := config.WithTimeout(10 * time.Second)
	defer cancel()

	if err := srv.Shutdown(sctx); err != nil {
		log.Error("graceful shutdown failed", "err", err)
		code = 1
	}

	if !shutdownGateway(log, gw) {
		code = 1
	}

	if code == 0 {
		log.Info("shutdown complete")
	}
	return code
}

func shutdownGateway(log *slog.Logger, gw *db.Gateway) bool {
	ctx, cancel := config.WithTimeout(10 * time.Second)
	defer cancel()

	if err := gw.Shutdown(ctx); err != nil {
		log.Error("database shutdown failed", "err", err)
		return false
	}
	log.Info("database connection closed")
	return true
}
