// Command camera-ingest runs the camera ingestion service: it loads
// configuration, wires the registry/event bus/motion/metrics stack, and
// serves the HTTP control plane until SIGINT or SIGTERM.
package main

import (
	"context"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	_ "github.com/joho/godotenv/autoload"

	"github.com/MaximushkaBed/camera-ingest-module/internal/config"
	"github.com/MaximushkaBed/camera-ingest-module/internal/eventbus"
	"github.com/MaximushkaBed/camera-ingest-module/internal/httpapi"
	"github.com/MaximushkaBed/camera-ingest-module/internal/logging"
	"github.com/MaximushkaBed/camera-ingest-module/internal/metrics"
	"github.com/MaximushkaBed/camera-ingest-module/internal/motion"
	"github.com/MaximushkaBed/camera-ingest-module/internal/pushsink"
	"github.com/MaximushkaBed/camera-ingest-module/internal/registry"
	"github.com/MaximushkaBed/camera-ingest-module/internal/rtsp"
)

// shutdownDrain is the bounded wait given to in-flight HTTP requests to
// finish once shutdown begins. Camera workers are then cancelled through
// reg.Close, which does not wait for them to exit.
const shutdownDrain = 2 * time.Second

func main() {
	cfg, err := config.New()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	logger, err := logging.New(cfg.Log.Level)
	if err != nil {
		log.Fatalf("build logger: %v", err)
	}
	defer logger.Sync()

	m := metrics.New()

	redisOpts, err := redis.ParseURL(cfg.Redis.URL)
	if err != nil {
		logger.Fatal("parse REDIS_URL", zap.Error(err))
	}
	redisClient := redis.NewClient(redisOpts)
	bus := eventbus.New(eventbus.NewRedisTransport(redisClient), cfg.Publish.QueueSize, m, logger)

	motionStage := motion.New(motion.Config{
		Threshold:    cfg.Motion.Threshold,
		AreaMinRatio: cfg.Motion.AreaMinRatio,
		Cooldown:     time.Duration(cfg.Motion.CooldownSeconds * float64(time.Second)),
	}, bus, m, logger)

	factory := rtsp.GortsplibFactory{}
	reg := registry.New(cfg.Ingest.DefaultBufferSize, factory, bus, motionStage, m, logger)
	sink := pushsink.New(reg, m)

	handler := httpapi.NewHandler(reg, sink, logger)
	router := httpapi.NewRouter(handler, m.Registry)

	server := &http.Server{
		Addr:         cfg.HTTP.BindAddr,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	serveErr := make(chan error, 1)
	go func() {
		logger.Info("http server listening", zap.String("addr", cfg.HTTP.BindAddr))
		serveErr <- server.ListenAndServe()
	}()

	select {
	case err := <-serveErr:
		if err != nil && err != http.ErrServerClosed {
			logger.Fatal("http server failed", zap.Error(err))
		}
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownDrain)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Warn("http server shutdown did not complete cleanly", zap.Error(err))
	}

	reg.Close()
	if err := redisClient.Close(); err != nil {
		logger.Warn("redis client close failed", zap.Error(err))
	}

	logger.Info("shutdown complete")
}
