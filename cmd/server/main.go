package main

import (
	"context"
	"errors"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/light-merlin-dark/aia/cmd"
	"github.com/light-merlin-dark/aia/internal/app"
	"github.com/light-merlin-dark/aia/internal/attach"
	"github.com/light-merlin-dark/aia/internal/config"
	"github.com/light-merlin-dark/aia/internal/consult"
	"github.com/light-merlin-dark/aia/internal/core/ports"
	"github.com/light-merlin-dark/aia/internal/platform/logger"
	"github.com/light-merlin-dark/aia/internal/platform/otel"
	"github.com/light-merlin-dark/aia/internal/resolver"
	"github.com/light-merlin-dark/aia/internal/server"
	"github.com/light-merlin-dark/aia/internal/store/cache"
	"go.uber.org/zap"
)

func main() {
	logger.Initialize(logger.DefaultConfig())
	log := logger.Get()
	defer logger.Sync()

	go cmd.CheckForUpdates()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal("failed to load configuration", zap.Error(err))
	}

	// Trace output is noisy; keep it opt-in.
	var traceSink io.Writer = io.Discard
	if os.Getenv("OTEL_TRACE_STDOUT") == "true" {
		traceSink = os.Stdout
	}
	shutdownTracer, err := otel.InitTracer("aia", log, traceSink)
	if err != nil {
		log.Fatal("failed to initialize tracing", zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	attachments := attach.NewResolver(log)

	registry, err := app.BuildRegistry(ctx, &cfg.Engine, log, attachments)
	if err != nil {
		log.Fatal("failed to build plugin registry", zap.Error(err))
	}

	var cacheSvc ports.CacheService = cache.NewMemoryCache()
	if cfg.Redis.Enabled {
		client, err := cache.Connect(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			log.Warn("redis unavailable, falling back to in-memory cache", zap.Error(err))
		} else {
			cacheSvc = cache.NewRedisCache(client)
			log.Info("using redis cache", zap.String("addr", cfg.Redis.Addr))
		}
	}

	engine := consult.NewEngine(registry, &cfg.Engine, log,
		consult.WithAttachmentResolver(attachments))
	res := resolver.New(&cfg.Engine, log)

	srv := server.New(cfg, log, engine, registry, res, cacheSvc)

	httpSrv := &http.Server{
		Addr:    ":" + cfg.Server.Port,
		Handler: srv.Handler(),
	}

	go func() {
		log.Info("starting server", zap.String("port", cfg.Server.Port))
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("server failed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		log.Error("server shutdown failed", zap.Error(err))
	}
	if err := shutdownTracer(shutdownCtx); err != nil {
		log.Error("tracer shutdown failed", zap.Error(err))
	}
}
