package store

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pkg/errors"
)

// Postgres stores settlements in a Postgres table via pgx.
type Postgres struct {
	pool *pgxpool.Pool
}

// NewPostgres creates a Postgres-backed store from a connection string,
// configuring the pool the way the rest of our services do.
func NewPostgres(ctx context.Context, databaseURL string) (*Postgres, error) {
	poolConfig, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, errors.Wrap(err, "unable to parse database connection string")
	}

	poolConfig.MaxConns = 20
	poolConfig.MinConns = 5
	poolConfig.MaxConnLifetime = time.Hour
	poolConfig.MaxConnIdleTime = time.Minute * 30

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, errors.Wrap(err, "unable to create connection pool")
	}
	return &Postgres{pool: pool}, nil
}

// Migrate creates the settlements table when it does not exist.
func (p *Postgres) Migrate(ctx context.Context) error {
	_, err := p.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS settlements (
			id UUID PRIMARY KEY,
			maker_order_hash TEXT NOT NULL,
			taker_order_hash TEXT NOT NULL,
			filled_amount TEXT NOT NULL,
			tx_ref TEXT NOT NULL DEFAULT '',
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`)
	return errors.Wrap(err, "failed to migrate settlements table")
}

// InsertSettlement persists one settlement row.
func (p *Postgres) InsertSettlement(ctx context.Context, s Settlement) error {
	_, err := p.pool.Exec(ctx,
		`INSERT INTO settlements (id, maker_order_hash, taker_order_hash, filled_amount, tx_ref, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		s.ID, s.MakerOrderHash, s.TakerOrderHash, s.FilledAmount, s.TxRef, s.CreatedAt,
	)
	return errors.Wrap(err, "failed to insert settlement")
}

// ListSettlements returns up to limit settlements, newest first.
func (p *Postgres) ListSettlements(ctx context.Context, limit int) ([]Settlement, error) {
	rows, err := p.pool.Query(ctx,
		`SELECT id, maker_order_hash, taker_order_hash, filled_amount, tx_ref, created_at
		 FROM settlements ORDER BY created_at DESC LIMIT $1`, limit)
	if err != nil {
		return nil, errors.Wrap(err, "failed to query settlements")
	}
	defer rows.Close()

	var out []Settlement
	for rows.Next() {
		var s Settlement
		if err := rows.Scan(&s.ID, &s.MakerOrderHash, &s.TakerOrderHash, &s.FilledAmount, &s.TxRef, &s.CreatedAt); err != nil {
			return nil, errors.Wrap(err, "failed to scan settlement")
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// Close releases the connection pool.
func (p *Postgres) Close() {
	p.pool.Close()
}
