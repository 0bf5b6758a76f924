package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/sramanpati48-hue/TripMate-Modified-sub001/logger"
	"github.com/sramanpati48-hue/TripMate-Modified-sub001/store"
)

const serviceName = "tripmate-api"

func main() {
	configPath := flag.String("config", "", "YAML config file (default ./tripmate.yaml if present)")
	flag.Parse()

	if err := run(*configPath); err != nil {
		fmt.Fprintln(os.Stderr, "tripmate:", err)
		os.Exit(1)
	}
}

func run(configPath string) error {
	cfg, err := loadConfig(configPath)
	if err != nil {
		return err
	}

	log, err := logger.New(serviceName, cfg.Log.JSON, cfg.Log.Debug)
	if err != nil {
		return fmt.Errorf("building logger: %w", err)
	}
	defer func() { _ = log.Sync() }()

	if cfg.JWT.Secret == devJWTSecret {
		log.Warn("jwt.secret not set, using the development secret")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := store.Open(ctx, cfg.Database.URL, cfg.Database.MaxOpenConns, cfg.Database.MaxIdleConns)
	if err != nil {
		return err
	}
	defer db.Close()
	log.Info("database connection established")

	if err := store.EnsureSchema(ctx, db); err != nil {
		return err
	}
	pg := store.New(db)

	var limiter rateLimiter
	if cfg.Redis.Addr != "" {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       0,
		})
		defer rdb.Close()
		if err := rdb.Ping(ctx).Err(); err != nil {
			log.Warn("redis unreachable, rate limiting fails open", zap.String("addr", cfg.Redis.Addr), zap.Error(err))
		}
		limiter = newRedisLimiter(rdb, "tripmate:matches", cfg.RateLimit.MatchesPerMinute, time.Minute)
	} else {
		log.Info("redis.addr not set, rate limiting disabled")
	}

	srv := newServer(serverDeps{
		Log:        log,
		Tokens:     newTokenIssuer(cfg.JWT.Secret, cfg.JWT.TTL),
		Users:      pg,
		Profiles:   pg,
		Companions: pg,
		Limiter:    limiter,
		Ping:       db.PingContext,
	})

	httpServer := &http.Server{
		Addr:              cfg.HTTP.Addr,
		Handler:           srv.routes(cfg.CORS.AllowedOrigins),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("starting TripMate companion API", zap.String("addr", cfg.HTTP.Addr), zap.String("env", cfg.Env))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	log.Info("shutdown signal received")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown: %w", err)
	}
	log.Info("shutdown complete")
	return nil
}
