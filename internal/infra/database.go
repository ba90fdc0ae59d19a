package infra

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/exaring/otelpgx"
	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/lib/pq"
	"github.com/rs/zerolog"
	pgxuuid "github.com/vgarvardt/pgx-google-uuid/v5"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"

	"github.com/Alturino/storefront/internal/config"
	"github.com/Alturino/storefront/internal/log"
)

type MigrationDirection string

const (
	MigrationUp   MigrationDirection = "up"
	MigrationDown MigrationDirection = "down"
)

func postgresURL(cfg config.Database) string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=disable",
		cfg.Username,
		cfg.Password,
		cfg.Host,
		int(cfg.Port),
		cfg.Name,
	)
}

func NewDatabaseClient(c context.Context, cfg config.Database) (*pgxpool.Pool, error) {
	logger := zerolog.Ctx(c).
		With().
		Str(log.KeyTag, "infra NewDatabaseClient").
		Logger()

	logger = logger.With().Str(log.KeyProcess, "initializing pgx config").Logger()
	logger.Info().Msg("initializing pgx config")
	pgxConfig, err := pgxpool.ParseConfig(postgresURL(cfg))
	if err != nil {
		err = fmt.Errorf("failed parsing pgx config with error=%w", err)
		logger.Error().Err(err).Msg(err.Error())
		return nil, err
	}
	pgxConfig.MaxConns = cfg.MaxConnections
	pgxConfig.MinConns = cfg.MinConnections
	pgxConfig.MaxConnLifetime = 15 * time.Minute
	pgxConfig.MaxConnIdleTime = 5 * time.Minute
	pgxConfig.ConnConfig.Tracer = otelpgx.NewTracer(
		otelpgx.WithAttributes(semconv.DBSystemPostgreSQL),
	)
	pgxConfig.AfterConnect = func(c context.Context, conn *pgx.Conn) error {
		pgxuuid.Register(conn.TypeMap())
		return nil
	}
	logger.Info().Msg("initialized pgx config")

	logger = logger.With().Str(log.KeyProcess, "creating connection pool").Logger()
	logger.Info().Msg("creating connection pool")
	pool, err := pgxpool.NewWithConfig(c, pgxConfig)
	if err != nil {
		err = fmt.Errorf("failed creating connection pool with error=%w", err)
		logger.Error().Err(err).Msg(err.Error())
		return nil, err
	}
	logger.Info().Msg("created connection pool")

	logger = logger.With().Str(log.KeyProcess, "pinging database").Logger()
	logger.Info().Msg("pinging database")
	if err = pool.Ping(c); err != nil {
		pool.Close()
		err = fmt.Errorf("failed pinging database with error=%w", err)
		logger.Error().Err(err).Msg(err.Error())
		return nil, err
	}
	logger.Info().Msg("pinged database")

	return pool, nil
}

// Migrate applies the migration files found at cfg.MigrationPath in the given direction. It
// opens its own lib/pq connection, separate from the application pool.
func Migrate(c context.Context, cfg config.Database, direction MigrationDirection) error {
	logger := zerolog.Ctx(c).
		With().
		Str(log.KeyTag, "infra Migrate").
		Str(log.KeyMigrationDirection, string(direction)).
		Logger()

	logger = logger.With().Str(log.KeyProcess, "initializing migration driver").Logger()
	logger.Info().Msg("initializing migration driver")
	db, err := sql.Open("postgres", postgresURL(cfg))
	if err != nil {
		err = fmt.Errorf("failed opening migration connection with error=%w", err)
		logger.Error().Err(err).Msg(err.Error())
		return err
	}
	defer db.Close()
	if err = db.PingContext(c); err != nil {
		err = fmt.Errorf("failed pinging migration connection with error=%w", err)
		logger.Error().Err(err).Msg(err.Error())
		return err
	}
	driver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		err = fmt.Errorf("failed initializing migration driver with error=%w", err)
		logger.Error().Err(err).Msg(err.Error())
		return err
	}
	migration, err := migrate.NewWithDatabaseInstance(cfg.MigrationPath, cfg.Name, driver)
	if err != nil {
		err = fmt.Errorf("failed initializing migration with error=%w", err)
		logger.Error().Err(err).Msg(err.Error())
		return err
	}
	logger.Info().Msg("initialized migration driver")

	logger = logger.With().Str(log.KeyProcess, "running migration").Logger()
	logger.Info().Msg("running migration")
	switch direction {
	case MigrationUp:
		err = migration.Up()
	case MigrationDown:
		err = migration.Down()
	default:
		err = fmt.Errorf("unknown migration direction=%s", direction)
	}
	if err != nil && !errors.Is(err, migrate.ErrNoChange) {
		err = fmt.Errorf("failed running migration with error=%w", err)
		logger.Error().Err(err).Msg(err.Error())
		return err
	}
	logger.Info().Msg("ran migration")

	return nil
}
