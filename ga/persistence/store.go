// Package persistence replaces the teacher's JSON-file metrics/trace
// snapshots with an optional Postgres-backed run history, using
// uptrace/bun over pgdriver so the engine can be deployed without any
// database at all via NopStore.
package persistence

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
)

// Run is one recorded workflow execution, the run-history counterpart to
// the teacher's MetricsSnapshot/TraceSnapshot pair.
type Run struct {
	bun.BaseModel `bun:"table:gaflow_runs,alias:r"`

	ID         string    `bun:"id,pk"`
	WorkflowID string    `bun:"workflow_id,notnull"`
	StartedAt  time.Time `bun:"started_at,notnull"`
	EndedAt    time.Time `bun:"ended_at,nullzero"`
	FinalState string    `bun:"final_state,notnull"`
	ErrorCount int       `bun:"error_count,notnull"`
}

// NewRun creates a Run for workflowID with a fresh random ID and a
// started-at timestamp of now, ready to pass to Store.RecordRun.
func NewRun(workflowID string) *Run {
	return &Run{
		ID:         uuid.NewString(),
		WorkflowID: workflowID,
		StartedAt:  time.Now(),
	}
}

// Store records and retrieves workflow runs.
type Store interface {
	RecordRun(ctx context.Context, run *Run) error
	GetRun(ctx context.Context, id string) (*Run, error)
	Close() error
}

// Config configures a Postgres-backed Store.
type Config struct {
	DSN string
}

// bunStore is the Postgres-backed Store implementation, grounded on
// uptrace/bun's pgdriver connector.
type bunStore struct {
	db *bun.DB
}

// Open connects to Postgres per cfg and ensures the run-history table
// exists.
func Open(ctx context.Context, cfg Config) (Store, error) {
	connector := pgdriver.NewConnector(pgdriver.WithDSN(cfg.DSN))
	db := bun.NewDB(sql.OpenDB(connector), pgdialect.New())

	if _, err := db.NewCreateTable().Model((*Run)(nil)).IfNotExists().Exec(ctx); err != nil {
		return nil, err
	}
	return &bunStore{db: db}, nil
}

func (s *bunStore) RecordRun(ctx context.Context, run *Run) error {
	_, err := s.db.NewInsert().Model(run).
		On("CONFLICT (id) DO UPDATE").
		Set("ended_at = EXCLUDED.ended_at").
		Set("final_state = EXCLUDED.final_state").
		Set("error_count = EXCLUDED.error_count").
		Exec(ctx)
	return err
}

func (s *bunStore) GetRun(ctx context.Context, id string) (*Run, error) {
	run := new(Run)
	err := s.db.NewSelect().Model(run).Where("id = ?", id).Scan(ctx)
	if err != nil {
		return nil, err
	}
	return run, nil
}

func (s *bunStore) Close() error {
	return s.db.Close()
}

// NopStore is the zero-dependency fallback used when no database is
// configured: every call succeeds trivially, GetRun always misses.
type NopStore struct{}

func (NopStore) RecordRun(ctx context.Context, run *Run) error { return nil }
func (NopStore) GetRun(ctx context.Context, id string) (*Run, error) { return nil, nil }
func (NopStore) Close() error { return nil }
