package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/boqai/boq-server/config"
	"github.com/boqai/boq-server/extractor"
	"github.com/boqai/boq-server/queue"
	"github.com/boqai/boq-server/server"
	"github.com/boqai/boq-server/storage"
	"github.com/boqai/boq-server/store"
	"github.com/boqai/boq-server/worker"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fallback := zerolog.New(os.Stderr)
		fallback.Fatal().Err(err).Msg("failed to load configuration")
	}

	log := newLogger(cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	jobStore, cleanup, err := newStore(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize job store")
	}
	defer cleanup()

	workQueue, err := newQueue(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize work queue")
	}

	files, err := storage.NewFileStore(cfg.UploadsDir)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize upload storage")
	}

	dwg := extractor.NewDWGExtractor()
	dwg.Delay = cfg.MockExtractDelay
	dispatch := extractor.NewDispatcher()
	dispatch.Register(".dwg", dwg)
	dispatch.Register(".pdf", extractor.NewPDFExtractor())

	srv := server.New(jobStore, workQueue, files, log)

	pool := worker.NewPool(cfg.Workers, workQueue, jobStore, dispatch, log)
	pool.SetNotifier(srv.NotifyJobUpdate)
	pool.SetTimeout(cfg.ExtractTimeout)
	pool.Start(ctx)

	if cfg.JobRetention > 0 {
		if purger, ok := jobStore.(store.Purger); ok {
			go store.NewReaper(purger, cfg.JobRetention, cfg.ReapInterval, log).Run(ctx)
		}
	}

	httpServer := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           srv.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Info().Str("addr", cfg.HTTPAddr).Int("workers", cfg.Workers).Msg("BoQ backend listening")
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("http server failed")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("shutting down gracefully")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("failed to shut down http server")
	}
	log.Info().Msg("server stopped")
}

func newLogger(level string) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		lvl = zerolog.InfoLevel
	}
	return zerolog.New(os.Stderr).Level(lvl).With().Timestamp().Logger()
}

func newStore(ctx context.Context, cfg *config.Config, log zerolog.Logger) (store.Store, func(), error) {
	switch cfg.StoreBackend {
	case "postgres":
		pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, nil, err
		}
		pg := store.NewPostgresStore(pool, log)
		if err := pg.EnsureSchema(ctx); err != nil {
			pool.Close()
			return nil, nil, err
		}
		return pg, pool.Close, nil
	default:
		return store.NewMemoryStore(log), func() {}, nil
	}
}

func newQueue(ctx context.Context, cfg *config.Config, log zerolog.Logger) (queue.Queue, error) {
	switch cfg.QueueBackend {
	case "redis":
		client := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr, DB: cfg.RedisDB})
		if err := client.Ping(ctx).Err(); err != nil {
			return nil, err
		}
		log.Info().Str("addr", cfg.RedisAddr).Str("key", cfg.QueueKey).Msg("using redis work queue")
		return queue.NewRedisQueue(client, cfg.QueueKey, int64(cfg.QueueMaxDepth)), nil
	default:
		return queue.NewMemoryQueue(cfg.QueueMaxDepth), nil
	}
}
