package postgres

import (
	"context"
	"encoding/json"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/langowen/azn-rates/internal/entities"
	"github.com/pkg/errors"
)

// DB is the subset of pgxpool.Pool the storage needs.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

const schema = `
CREATE TABLE IF NOT EXISTS rate_snapshots (
    id         BIGSERIAL PRIMARY KEY,
    base       TEXT        NOT NULL,
    rates      JSONB       NOT NULL,
    created_at TIMESTAMPTZ NOT NULL DEFAULT now()
)`

// Storage appends every saved table as a snapshot row and loads the newest one.
type Storage struct {
	db   DB
	pool *pgxpool.Pool
}

func NewStorage(db DB) *Storage {
	return &Storage{
		db: db,
	}
}

func InitStorage(ctx context.Context, dsn string, timeout time.Duration) (*Storage, error) {
	const op = "storage.postgres.InitStorage"

	poolConfig, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, errors.Wrap(err, op)
	}
	poolConfig.MaxConns = 5
	poolConfig.MinConns = 1
	poolConfig.MaxConnLifetime = 10 * time.Minute
	poolConfig.MaxConnIdleTime = 5 * time.Minute

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, errors.Wrap(err, op)
	}

	if err = pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, errors.Wrap(err, op)
	}

	storage := NewStorage(pool)
	storage.pool = pool

	if err := storage.Migrate(ctx); err != nil {
		pool.Close()
		return nil, errors.Wrap(err, op)
	}

	return storage, nil
}

func (s *Storage) Migrate(ctx context.Context) error {
	const op = "storage.postgres.Migrate"

	if _, err := s.db.Exec(ctx, schema); err != nil {
		return errors.Wrap(err, op)
	}

	return nil
}

func (s *Storage) Load(ctx context.Context) (entities.RateTable, error) {
	const op = "storage.postgres.Load"

	var raw []byte
	err := s.db.QueryRow(ctx, `
        SELECT rates
        FROM rate_snapshots
        WHERE base = $1
        ORDER BY id DESC
        LIMIT 1
    `, entities.BaseCurrency).Scan(&raw)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, errors.Wrap(entities.ErrNotFound, op)
	}
	if err != nil {
		return nil, errors.Wrap(err, op)
	}

	var rates entities.RateTable
	if err := json.Unmarshal(raw, &rates); err != nil {
		return nil, errors.Wrap(err, op)
	}

	return rates, nil
}

func (s *Storage) Save(ctx context.Context, rates entities.RateTable) error {
	const op = "storage.postgres.Save"

	data, err := json.Marshal(rates)
	if err != nil {
		return errors.Wrap(err, op)
	}

	_, err = s.db.Exec(ctx, `
        INSERT INTO rate_snapshots (base, rates)
        VALUES ($1, $2)
    `, entities.BaseCurrency, data)
	if err != nil {
		return errors.Wrap(err, op)
	}

	return nil
}

func (s *Storage) Close() error {
	if s.pool != nil {
		s.pool.Close()
	}
	return nil
}
