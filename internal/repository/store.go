package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	"github.com/Alturino/storefront/internal/log"
	"github.com/Alturino/storefront/internal/otel"
)

// Store owns the pool and runs units of work that must commit or roll back together.
type Store struct {
	*Queries
	pool *pgxpool.Pool
}

func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{Queries: New(pool), pool: pool}
}

func (s *Store) Pool() *pgxpool.Pool { return s.pool }

// ExecTx runs fn inside one transaction. Any error returned by fn, or a panic, rolls back every
// statement fn issued.
func (s *Store) ExecTx(c context.Context, fn func(*Queries) error) (err error) {
	c, span := otel.Tracer.Start(c, "Store ExecTx")
	defer span.End()

	logger := zerolog.Ctx(c).With().Str(log.KeyTag, "Store ExecTx").Logger()

	logger = logger.With().Str(log.KeyProcess, "beginning transaction").Logger()
	logger.Trace().Msg("beginning transaction")
	tx, err := s.pool.BeginTx(c, pgx.TxOptions{})
	if err != nil {
		err = fmt.Errorf("failed beginning transaction with error=%w", err)
		otel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return err
	}
	logger.Trace().Msg("began transaction")

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback(c)
			panic(p)
		}
		l := logger.With().Str(log.KeyProcess, "rolling back transaction").Logger()
		rollbackErr := tx.Rollback(c)
		if rollbackErr == nil {
			l.Info().Msg("rolled back transaction")
			return
		}
		if errors.Is(rollbackErr, pgx.ErrTxClosed) {
			return
		}
		rollbackErr = fmt.Errorf("failed rolling back transaction with error=%w", rollbackErr)
		otel.RecordError(rollbackErr, span)
		l.Error().Err(rollbackErr).Msg(rollbackErr.Error())
	}()

	if err = fn(s.Queries.WithTx(tx)); err != nil {
		otel.RecordError(err, span)
		return err
	}

	logger = logger.With().Str(log.KeyProcess, "committing transaction").Logger()
	logger.Trace().Msg("committing transaction")
	if err = tx.Commit(c); err != nil {
		err = fmt.Errorf("failed committing transaction with error=%w", err)
		otel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return err
	}
	logger.Trace().Msg("committed transaction")

	return nil
}
