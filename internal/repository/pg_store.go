package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const pgUniqueViolation = "23505"

// DBTX es satisfecho tanto por *pgxpool.Pool como por pgx.Tx.
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type pgRepos struct {
	db DBTX
}

func (r pgRepos) Users() UserRepository       { return NewPgUserRepository(r.db) }
func (r pgRepos) Accounts() AccountRepository { return NewPgAccountRepository(r.db) }
func (r pgRepos) Codes() CodeRepository       { return NewPgCodeRepository(r.db) }
func (r pgRepos) Sessions() SessionRepository { return NewPgSessionRepository(r.db) }

// txBeginner agrega BeginTx a DBTX; lo cumplen *pgxpool.Pool y los mocks de pool.
type txBeginner interface {
	DBTX
	BeginTx(ctx context.Context, txOptions pgx.TxOptions) (pgx.Tx, error)
}

// PgStore implementa Store sobre un pool de pgx.
type PgStore struct {
	pgRepos
	db txBeginner
}

func NewPgStore(pool *pgxpool.Pool) *PgStore {
	return newPgStore(pool)
}

func newPgStore(db txBeginner) *PgStore {
	return &PgStore{pgRepos: pgRepos{db: db}, db: db}
}

// WithTx ejecuta fn en una transaccion READ COMMITTED. Las lecturas que deciden
// seguridad usan FOR UPDATE, asi que una segunda transaccion concurrente
// re-evalua la fila ya confirmada.
func (s *PgStore) WithTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) (err error) {
	tx, err := s.db.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback(ctx)
			panic(p)
		}
		if err != nil {
			_ = tx.Rollback(ctx)
			return
		}
		if err = tx.Commit(ctx); err != nil {
			err = fmt.Errorf("commit tx: %w", err)
		}
	}()

	return fn(ctx, pgRepos{db: tx})
}

func mapPgError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
		return ErrDuplicate
	}
	return err
}
