//go:build integration

package postgres_test

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
	"github.com/vadimbarashkov/shortlink/internal/adapter/repository/postgres"
	"github.com/vadimbarashkov/shortlink/internal/config"
	"github.com/vadimbarashkov/shortlink/internal/entity"
	"github.com/vadimbarashkov/shortlink/internal/usecase"
	"github.com/vadimbarashkov/shortlink/migrations"
	"golang.org/x/sync/errgroup"

	pgpkg "github.com/vadimbarashkov/shortlink/pkg/postgres"
)

func setupPostgres(t testing.TB) config.Postgres {
	t.Helper()

	ctx := context.Background()

	cfg := config.Postgres{
		User:     "test",
		Password: "test",
		DB:       "shortlink",
		SSLMode:  "disable",
	}

	pgCont, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image: "postgres:16-alpine",
			Env: map[string]string{
				"POSTGRES_USER":     cfg.User,
				"POSTGRES_PASSWORD": cfg.Password,
				"POSTGRES_DB":       cfg.DB,
			},
			ExposedPorts: []string{"5432/tcp"},
			WaitingFor: wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(time.Minute),
		},
		Started: true,
	})
	if err != nil {
		t.Fatalf("Failed to start postgres container: %v", err)
	}
	t.Cleanup(func() {
		if err := pgCont.Terminate(ctx); err != nil {
			t.Errorf("Failed to terminate postgres container: %v", err)
		}
	})

	cfg.Host, err = pgCont.Host(ctx)
	if err != nil {
		t.Fatalf("Failed to get container host: %v", err)
	}
	port, err := pgCont.MappedPort(ctx, "5432")
	if err != nil {
		t.Fatalf("Failed to get container port: %v", err)
	}
	cfg.Port = port.Int()

	return cfg
}

func setupURLRepository(t testing.TB) (*postgres.URLRepository, *sqlx.DB) {
	t.Helper()

	cfg := setupPostgres(t)

	if err := pgpkg.RunMigrations(migrations.FS, cfg.DSN()); err != nil {
		t.Fatalf("Failed to run migrations: %v", err)
	}

	db, err := pgpkg.New(context.Background(), cfg.DSN())
	if err != nil {
		t.Fatalf("Failed to connect to database: %v", err)
	}
	t.Cleanup(func() {
		db.Close()
	})

	return postgres.NewURLRepository(db), db
}

func TestURLRepository_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	repo, db := setupURLRepository(t)
	ctx := context.Background()

	truncate := func(t *testing.T) {
		t.Helper()
		_, err := db.ExecContext(ctx, `TRUNCATE urls RESTART IDENTITY`)
		require.NoError(t, err)
	}

	t.Run("create rejects duplicate short code", func(t *testing.T) {
		truncate(t)

		_, err := repo.Create(ctx, "abc123", "https://example.com")
		require.NoError(t, err)

		_, err = repo.Create(ctx, "abc123", "https://other.com")
		assert.ErrorIs(t, err, entity.ErrShortCodeExists)
	})

	t.Run("concurrent creates of one code", func(t *testing.T) {
		truncate(t)

		var won atomic.Int64
		var g errgroup.Group

		for i := 0; i < 20; i++ {
			i := i
			g.Go(func() error {
				_, err := repo.Create(ctx, "race01", fmt.Sprintf("https://example%d.com", i))
				switch {
				case err == nil:
					won.Add(1)
				case !errors.Is(err, entity.ErrShortCodeExists):
					return err
				}
				return nil
			})
		}

		require.NoError(t, g.Wait())
		assert.Equal(t, int64(1), won.Load())
	})

	t.Run("concurrent increments", func(t *testing.T) {
		truncate(t)

		created, err := repo.Create(ctx, "abc123", "https://example.com")
		require.NoError(t, err)

		var g errgroup.Group
		for i := 0; i < 100; i++ {
			g.Go(func() error {
				_, err := repo.IncrementAccess(ctx, "abc123")
				return err
			})
		}
		require.NoError(t, g.Wait())

		link, err := repo.FindByCode(ctx, "abc123")
		require.NoError(t, err)
		assert.Equal(t, int64(100), link.AccessCount)
		assert.True(t, created.UpdatedAt.Equal(link.UpdatedAt))
	})

	t.Run("update preserves identity", func(t *testing.T) {
		truncate(t)

		created, err := repo.Create(ctx, "abc123", "https://example.com")
		require.NoError(t, err)
		_, err = repo.IncrementAccess(ctx, "abc123")
		require.NoError(t, err)

		link, err := repo.UpdateURL(ctx, "abc123", "https://new-example.com")
		require.NoError(t, err)

		assert.Equal(t, created.ID, link.ID)
		assert.Equal(t, "abc123", link.ShortCode)
		assert.Equal(t, "https://new-example.com", link.OriginalURL)
		assert.Equal(t, int64(1), link.AccessCount)
		assert.False(t, link.UpdatedAt.Before(created.UpdatedAt))
	})

	t.Run("list newest first", func(t *testing.T) {
		truncate(t)

		for _, code := range []string{"first1", "second", "third3"} {
			_, err := repo.Create(ctx, code, "https://example.com")
			require.NoError(t, err)
		}

		links, err := repo.ListAll(ctx)
		require.NoError(t, err)
		require.Len(t, links, 3)
		assert.Equal(t, "third3", links[0].ShortCode)
		assert.Equal(t, "first1", links[2].ShortCode)
	})

	t.Run("delete then resolve", func(t *testing.T) {
		truncate(t)

		_, err := repo.Create(ctx, "abc123", "https://example.com")
		require.NoError(t, err)

		require.NoError(t, repo.Delete(ctx, "abc123"))

		_, err = repo.FindByCode(ctx, "abc123")
		assert.ErrorIs(t, err, entity.ErrURLNotFound)
		_, err = repo.IncrementAccess(ctx, "abc123")
		assert.ErrorIs(t, err, entity.ErrURLNotFound)
		assert.ErrorIs(t, repo.Delete(ctx, "abc123"), entity.ErrURLNotFound)
	})

	t.Run("concurrent allocations", func(t *testing.T) {
		truncate(t)

		a := usecase.NewAllocator(repo)
		codes := make([]string, 100)

		var g errgroup.Group
		for i := range codes {
			i := i
			g.Go(func() error {
				link, err := a.Allocate(ctx, "https://example.com")
				if err != nil {
					return err
				}
				codes[i] = link.ShortCode
				return nil
			})
		}
		require.NoError(t, g.Wait())

		seen := make(map[string]struct{}, len(codes))
		for _, code := range codes {
			seen[code] = struct{}{}
		}
		assert.Len(t, seen, len(codes))
	})
}
