// Package journal records pipeline runs. Without a database the journal is
// a no-op.
package journal

import (
	"context"
	"time"
)

// Run statuses.
const (
	StatusRunning   = "running"
	StatusSucceeded = "succeeded"
	StatusFailed    = "failed"
)

// Run is one journal entry.
type Run struct {
	ID       string
	Source   string // cli, http or ws
	Title    string
	Status   string
	URL      string
	Error    string
	Started  time.Time
	Finished time.Time
}

// Journal stores run history.
type Journal interface {
	Start(ctx context.Context, run Run) error
	Finish(ctx context.Context, id, url string, runErr error) error
	Recent(ctx context.Context, limit int) ([]Run, error)
	Close()
}

// Open returns a Postgres journal for dsn, or a no-op journal when dsn is
// empty.
func Open(ctx context.Context, dsn string) (Journal, error) {
	if dsn == "" {
		return Nop{}, nil
	}
	return OpenPostgres(ctx, dsn)
}

// Nop discards everything.
type Nop struct{}

func (Nop) Start(context.Context, Run) error {
	return nil
}

func (Nop) Finish(context.Context, string, string, error) error {
	return nil
}

func (Nop) Recent(context.Context, int) ([]Run, error) {
	return nil, nil
}

func (Nop) Close() {}
