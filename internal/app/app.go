// Package app wires the configured store, the use cases and the HTTP server
// together and runs them until the context is cancelled.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"

	"github.com/go-chi/httplog/v2"
	"github.com/vadimbarashkov/shortlink/internal/adapter/repository/memory"
	"github.com/vadimbarashkov/shortlink/internal/adapter/repository/postgres"
	"github.com/vadimbarashkov/shortlink/internal/adapter/repository/redis"
	"github.com/vadimbarashkov/shortlink/internal/config"
	"github.com/vadimbarashkov/shortlink/internal/entity"
	"github.com/vadimbarashkov/shortlink/internal/usecase"
	"github.com/vadimbarashkov/shortlink/migrations"
	"golang.org/x/sync/errgroup"

	delivery "github.com/vadimbarashkov/shortlink/internal/adapter/delivery/http"
	pgpkg "github.com/vadimbarashkov/shortlink/pkg/postgres"
	redispkg "github.com/vadimbarashkov/shortlink/pkg/redis"
)

type urlRepository interface {
	Create(ctx context.Context, shortCode, originalURL string) (*entity.ShortLink, error)
	FindByCode(ctx context.Context, shortCode string) (*entity.ShortLink, error)
	ListAll(ctx context.Context) ([]entity.ShortLink, error)
	UpdateURL(ctx context.Context, shortCode, originalURL string) (*entity.ShortLink, error)
	IncrementAccess(ctx context.Context, shortCode string) (*entity.ShortLink, error)
	Delete(ctx context.Context, shortCode string) error
}

type closerFunc func() error

func (f closerFunc) Close() error {
	return f()
}

func NewLogger(env string) *httplog.Logger {
	opts := httplog.Options{
		LogLevel:       slog.LevelInfo,
		JSON:           true,
		Concise:        false,
		RequestHeaders: false,
	}

	if env == config.EnvDev {
		opts.LogLevel = slog.LevelDebug
		opts.JSON = false
		opts.Concise = true
	}

	return httplog.NewLogger("shortlink", opts)
}

// openStore builds the store selected by cfg.Storage.Driver. The returned
// closer releases its connections and must be called once the server stops.
func openStore(ctx context.Context, cfg *config.Config) (urlRepository, io.Closer, error) {
	const op = "app.openStore"

	switch cfg.Storage.Driver {
	case config.DriverMemory:
		return memory.NewURLRepository(), closerFunc(func() error { return nil }), nil

	case config.DriverRedis:
		client, err := redispkg.New(
			ctx,
			cfg.Redis.Addr(),
			redispkg.WithPassword(cfg.Redis.Password),
			redispkg.WithDB(cfg.Redis.DB),
			redispkg.WithDialTimeout(cfg.Redis.DialTimeout),
			redispkg.WithPoolSize(cfg.Redis.PoolSize),
		)
		if err != nil {
			return nil, nil, fmt.Errorf("%s: failed to connect to redis: %w", op, err)
		}

		return redis.NewURLRepository(client), client, nil

	case config.DriverPostgres:
		dsn := cfg.Postgres.DSN()

		db, err := pgpkg.New(
			ctx,
			dsn,
			pgpkg.WithConnMaxIdleTime(cfg.Postgres.ConnMaxIdleTime),
			pgpkg.WithConnMaxLifetime(cfg.Postgres.ConnMaxLifetime),
			pgpkg.WithMaxIdleConns(cfg.Postgres.MaxIdleConns),
			pgpkg.WithMaxOpenConns(cfg.Postgres.MaxOpenConns),
		)
		if err != nil {
			return nil, nil, fmt.Errorf("%s: failed to connect to database: %w", op, err)
		}

		if err := pgpkg.RunMigrations(migrations.FS, dsn); err != nil {
			db.Close()
			return nil, nil, fmt.Errorf("%s: failed to run migrations: %w", op, err)
		}

		return postgres.NewURLRepository(db), db, nil
	}

	return nil, nil, fmt.Errorf("%s: unknown storage driver %q", op, cfg.Storage.Driver)
}

func newHandler(cfg *config.Config, logger *httplog.Logger, urlRepo urlRepository) http.Handler {
	allocator := usecase.NewAllocator(
		urlRepo,
		usecase.WithCodeLength(cfg.ShortCode.Length),
		usecase.WithMaxRetries(cfg.ShortCode.MaxRetries),
	)

	return delivery.NewRouter(logger, usecase.New(allocator, urlRepo))
}

// Run opens the store, serves the API and blocks until ctx is cancelled or
// the server fails.
func Run(ctx context.Context, cfg *config.Config, logger *httplog.Logger) error {
	const op = "app.Run"

	urlRepo, closer, err := openStore(ctx, cfg)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	defer func() {
		if err := closer.Close(); err != nil {
			logger.Error("failed to close store", slog.String("op", op), slog.Any("err", err))
		}
	}()

	logger.Info("store opened", slog.String("driver", cfg.Storage.Driver))

	server := &http.Server{
		Addr:           cfg.HTTPServer.Addr(),
		Handler:        newHandler(cfg, logger, urlRepo),
		ReadTimeout:    cfg.HTTPServer.ReadTimeout,
		WriteTimeout:   cfg.HTTPServer.WriteTimeout,
		IdleTimeout:    cfg.HTTPServer.IdleTimeout,
		MaxHeaderBytes: cfg.HTTPServer.MaxHeaderBytes,
		BaseContext: func(_ net.Listener) context.Context {
			return ctx
		},
	}

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("starting http server", slog.String("addr", server.Addr), slog.String("env", cfg.Env))

		var err error

		switch cfg.Env {
		case config.EnvProd:
			err = server.ListenAndServeTLS(cfg.HTTPServer.CertFile, cfg.HTTPServer.KeyFile)
		default:
			err = server.ListenAndServe()
		}

		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("%s: server error occurred: %w", op, err)
		}

		return nil
	})

	g.Go(func() error {
		<-ctx.Done()

		logger.Info("shutting down http server")

		if err := server.Shutdown(context.Background()); err != nil {
			return fmt.Errorf("%s: failed to shutdown server: %w", op, err)
		}

		return nil
	})

	return g.Wait()
}
