package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/Sternrassler/shop-api/internal/config"
	"github.com/Sternrassler/shop-api/internal/server"
	"github.com/Sternrassler/shop-api/internal/shop"
	"github.com/Sternrassler/shop-api/pkg/cache"
	"github.com/Sternrassler/shop-api/pkg/logging"
)

const shutdownTimeout = 10 * time.Second

func main() {
	if err := run(context.Background()); err != nil {
		log.Fatal().Err(err).Msg("shop-api stopped")
	}
}

func run(ctx context.Context) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	logger := logging.Setup(cfg.LoggingConfig())

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	repo, err := shop.Open(ctx, cfg.DatabasePath)
	if err != nil {
		return err
	}
	defer repo.Close()
	logger.Info().Str("path", cfg.DatabasePath).Msg("Database ready")

	store, closeStore, err := newStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeStore()
	logger.Info().Str("backend", cfg.Cache.Backend).Msg("Cache store ready")

	hasher, err := cache.NewHasher(cfg.Cache.Hash)
	if err != nil {
		return err
	}
	mw, err := cache.NewMiddleware(cache.Config{
		Store:          store,
		Hasher:         hasher,
		Logger:         &logger,
		VaryHeaders:    cache.DefaultVaryHeaders,
		MaxContentSize: cfg.Cache.MaxContentBytes,
		UnsafeMethods:  cfg.UnsafeMethods(),
	})
	if err != nil {
		return err
	}

	router, err := server.NewRouter(server.Options{Repo: repo, Cache: mw, Logger: logger})
	if err != nil {
		return err
	}
	srv := server.New(":"+cfg.Port, router)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info().Str("addr", srv.Addr).Msg("Starting shop API")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("serve: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info().Msg("Shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

// newStore creates the configured cache store and a func releasing its resources.
func newStore(ctx context.Context, cfg *config.Config) (cache.Store, func(), error) {
	switch cfg.Cache.Backend {
	case config.BackendRedis:
		client := redis.NewClient(&redis.Options{
			Addr: cfg.Cache.RedisAddr,
		})

		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		if err := client.Ping(pingCtx).Err(); err != nil {
			client.Close()
			return nil, nil, fmt.Errorf("connect to redis at %s: %w", cfg.Cache.RedisAddr, err)
		}
		return cache.NewRedisStore(client), func() { client.Close() }, nil
	default:
		return cache.NewMemoryStore(), func() {}, nil
	}
}
