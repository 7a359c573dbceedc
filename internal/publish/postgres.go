// Package publish pushes simulated days to the app's backing services: the
// day's SQL script into Postgres and run events onto Kafka.
package publish

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Postgres applies generated SQL scripts to the app database.
type Postgres struct {
	pool *pgxpool.Pool
}

// NewPostgres connects to url and verifies the connection.
func NewPostgres(ctx context.Context, url string) (*Postgres, error) {
	pool, err := pgxpool.New(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return &Postgres{pool: pool}, nil
}

// NewPostgresFromPool wraps an existing pool. The caller keeps ownership.
func NewPostgresFromPool(pool *pgxpool.Pool) *Postgres {
	return &Postgres{pool: pool}
}

// Apply runs script inside a single transaction.
func (p *Postgres) Apply(ctx context.Context, script string) (err error) {
	tx, err := p.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() {
		if err != nil {
			tx.Rollback(ctx)
		}
	}()

	// Without arguments pgx uses the simple protocol, so a multi-statement
	// script runs as one batch.
	if _, err = tx.Exec(ctx, script); err != nil {
		return fmt.Errorf("exec script: %w", err)
	}
	if err = tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	slog.Info("script applied to postgres", "bytes", len(script))
	return nil
}

// Close releases the pool.
func (p *Postgres) Close() {
	p.pool.Close()
}
