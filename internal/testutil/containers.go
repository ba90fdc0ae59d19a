// Package testutil starts the containers shared by integration tests.
package testutil

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	testRedis "github.com/testcontainers/testcontainers-go/modules/redis"
	pgxuuid "github.com/vgarvardt/pgx-google-uuid/v5"

	"github.com/Alturino/storefront/internal/config"
)

const (
	postgresUser     = "postgres"
	postgresPassword = "postgres"
	postgresDatabase = "storefront"
)

// MigrationsDir resolves the repository migrations directory independent of the test package.
func MigrationsDir(t *testing.T) string {
	t.Helper()
	_, file, _, ok := runtime.Caller(0)
	if !ok {
		t.Fatal("failed resolving testutil source path")
	}
	return filepath.Join(filepath.Dir(file), "..", "..", "migrations")
}

func upMigrations(t *testing.T) []string {
	t.Helper()
	dir := MigrationsDir(t)
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("failed reading migrations dir with error: %s", err)
	}
	scripts := []string{}
	for _, entry := range entries {
		if strings.HasSuffix(entry.Name(), ".up.sql") {
			scripts = append(scripts, filepath.Join(dir, entry.Name()))
		}
	}
	sort.Strings(scripts)
	return scripts
}

// Context returns a background context carrying a console logger.
func Context() context.Context {
	return zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339Nano}).
		Level(zerolog.InfoLevel).
		WithContext(context.Background())
}

func runPostgres(t *testing.T, c context.Context, initScripts ...string) *postgres.PostgresContainer {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	pgContainer, err := postgres.Run(
		c,
		"postgres:16.6-alpine3.21",
		postgres.WithUsername(postgresUser),
		postgres.WithPassword(postgresPassword),
		postgres.WithDatabase(postgresDatabase),
		postgres.BasicWaitStrategies(),
		postgres.WithInitScripts(initScripts...),
	)
	if err != nil {
		t.Fatalf("failed running postgres container with error: %s", err)
	}
	t.Cleanup(func() {
		if err := testcontainers.TerminateContainer(pgContainer); err != nil {
			t.Errorf("failed terminating postgres container with error: %s", err)
		}
	})
	return pgContainer
}

// StartEmptyPostgres runs a postgres container without any schema and returns its settings,
// with MigrationPath pointing at the repository migrations. Skipped with -short.
func StartEmptyPostgres(t *testing.T, c context.Context) config.Database {
	t.Helper()
	pgContainer := runPostgres(t, c)

	host, err := pgContainer.Host(c)
	if err != nil {
		t.Fatalf("failed getting postgres host with error: %s", err)
	}
	port, err := pgContainer.MappedPort(c, "5432/tcp")
	if err != nil {
		t.Fatalf("failed getting postgres port with error: %s", err)
	}
	return config.Database{
		Name:           postgresDatabase,
		Host:           host,
		Port:           uint16(port.Int()),
		Username:       postgresUser,
		Password:       postgresPassword,
		MigrationPath:  "file://" + MigrationsDir(t),
		MaxConnections: 4,
		MinConnections: 1,
	}
}

// StartPostgres runs a migrated postgres container and returns a pool connected to it.
// Containers are terminated through t.Cleanup. Skipped with -short.
func StartPostgres(t *testing.T, c context.Context, seedPaths ...string) *pgxpool.Pool {
	t.Helper()
	pgContainer := runPostgres(t, c, append(upMigrations(t), seedPaths...)...)

	pgConnStr, err := pgContainer.ConnectionString(c, "sslmode=disable")
	if err != nil {
		t.Fatalf("failed getting postgres connection string with error: %s", err)
	}

	pgConfig, err := pgxpool.ParseConfig(pgConnStr)
	if err != nil {
		t.Fatalf("failed parsing pgx config with error: %s", err)
	}
	pgConfig.AfterConnect = func(c context.Context, conn *pgx.Conn) error {
		pgxuuid.Register(conn.TypeMap())
		return nil
	}

	pool, err := pgxpool.NewWithConfig(c, pgConfig)
	if err != nil {
		t.Fatalf("failed creating postgres pool with error: %s", err)
	}
	t.Cleanup(pool.Close)

	if err = pool.Ping(c); err != nil {
		t.Fatalf("failed ping postgres pool with error: %s", err)
	}
	return pool
}

// StartRedis runs a redis container. Skipped with -short.
func StartRedis(t *testing.T, c context.Context) *redis.Client {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	redisContainer, err := testRedis.Run(c, "redis:7.4.2-alpine3.21")
	if err != nil {
		t.Fatalf("failed running redis container with error: %s", err)
	}
	t.Cleanup(func() {
		if err := testcontainers.TerminateContainer(redisContainer); err != nil {
			t.Errorf("failed terminating redis container with error: %s", err)
		}
	})

	redisConnStr, err := redisContainer.ConnectionString(c)
	if err != nil {
		t.Fatalf("failed getting redis connection string with error: %s", err)
	}
	redisOpt, err := redis.ParseURL(redisConnStr)
	if err != nil {
		t.Fatalf("failed parsing redis url with error: %s", err)
	}

	client := redis.NewClient(redisOpt)
	t.Cleanup(func() { _ = client.Close() })
	if err = client.Ping(c).Err(); err != nil {
		t.Fatalf("failed ping redis client with error: %s", err)
	}
	return client
}
