package journal

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const schema = `
CREATE TABLE IF NOT EXISTS storyreel_runs (
	id          TEXT PRIMARY KEY,
	source      TEXT NOT NULL DEFAULT '',
	title       TEXT NOT NULL DEFAULT '',
	status      TEXT NOT NULL,
	url         TEXT NOT NULL DEFAULT '',
	error       TEXT NOT NULL DEFAULT '',
	started_at  TIMESTAMPTZ NOT NULL,
	finished_at TIMESTAMPTZ
)`

// Postgres is a journal stored in PostgreSQL. A pool is used because the
// HTTP server records concurrent runs.
type Postgres struct {
	pool *pgxpool.Pool
}

// OpenPostgres connects to dsn and creates the runs table if needed.
func OpenPostgres(ctx context.Context, dsn string) (*Postgres, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("connect to postgres: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	if _, err := pool.Exec(ctx, schema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("create runs table: %w", err)
	}
	return &Postgres{pool: pool}, nil
}

// Start implements Journal.
func (p *Postgres) Start(ctx context.Context, run Run) error {
	if run.Started.IsZero() {
		run.Started = time.Now()
	}
	_, err := p.pool.Exec(ctx,
		`INSERT INTO storyreel_runs (id, source, title, status, started_at) VALUES ($1, $2, $3, $4, $5)`,
		run.ID, run.Source, run.Title, StatusRunning, run.Started)
	if err != nil {
		return fmt.Errorf("record run start: %w", err)
	}
	return nil
}

// Finish implements Journal.
func (p *Postgres) Finish(ctx context.Context, id, url string, runErr error) error {
	status, msg := StatusSucceeded, ""
	if runErr != nil {
		status, msg = StatusFailed, runErr.Error()
	}
	tag, err := p.pool.Exec(ctx,
		`UPDATE storyreel_runs SET status = $2, url = $3, error = $4, finished_at = $5 WHERE id = $1`,
		id, status, url, msg, time.Now())
	if err != nil {
		return fmt.Errorf("record run finish: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("record run finish: unknown run %s", id)
	}
	return nil
}

// Recent implements Journal.
func (p *Postgres) Recent(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := p.pool.Query(ctx,
		`SELECT id, source, title, status, url, error, started_at, finished_at
		   FROM storyreel_runs ORDER BY started_at DESC LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}

	runs, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (Run, error) {
		var (
			r        Run
			finished *time.Time
		)
		err := row.Scan(&r.ID, &r.Source, &r.Title, &r.Status, &r.URL, &r.Error, &r.Started, &finished)
		if finished != nil {
			r.Finished = *finished
		}
		return r, err
	})
	if err != nil {
		return nil, fmt.Errorf("scan runs: %w", err)
	}
	return runs, nil
}

// Close implements Journal.
func (p *Postgres) Close() { p.pool.Close() }
