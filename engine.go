// Package gaflow is the engine's process-wide entry point: Initialize
// wires the event pool, thread pool, logger, tracer and run-history store
// together the way the teacher's mbflow.go root package wired its executor
// and monitoring stack, and Finalize tears them down in reverse order.
package gaflow

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"gaflow/ga/config"
	"gaflow/ga/controlapi"
	"gaflow/ga/observability/logging"
	"gaflow/ga/observability/tracing"
	"gaflow/ga/persistence"
	"gaflow/internal/event"
	"gaflow/internal/threading"
	"gaflow/internal/workflow"
)

// Engine owns every process-wide resource a workflow runtime needs:
// its worker pool, event pool, logger, tracer and run-history store. Build
// one per process with Initialize and release it with Finalize.
type Engine struct {
	cfg config.Config

	pool      *threading.ThreadPool
	events    *event.Pool
	logger    zerolog.Logger
	tracer    *tracing.Tracer
	store     persistence.Store
	controlAPI *controlapi.Server
}

// Initialize builds an Engine from cfg: the logger first (the thread
// pool's fallback error sink writes to it), then the thread pool, event
// pool, tracer and optional database-backed run-history store.
func Initialize(cfg config.Config) (*Engine, error) {
	e := &Engine{cfg: cfg}

	e.logger = logging.New(logging.Config{
		Component: "gaflow",
		Verbose:   cfg.LogVerbose,
	})
	if !cfg.LogVerbose && cfg.LogLevel != "" {
		if lvl, err := zerolog.ParseLevel(cfg.LogLevel); err == nil {
			e.logger = e.logger.Level(lvl)
		}
	}

	e.pool = threading.NewThreadPool(cfg.ThreadPoolSize, func(err error) {
		e.logger.Error().Err(err).Msg("unhandled error from a workflow branch")
	})
	e.events = event.NewPool(cfg.EventPoolCapacity)
	e.tracer = tracing.New(nil)

	if cfg.DatabaseDSN != "" {
		store, err := persistence.Open(context.Background(), persistence.Config{DSN: cfg.DatabaseDSN})
		if err != nil {
			e.pool.Close()
			return nil, fmt.Errorf("gaflow: opening run-history store: %w", err)
		}
		e.store = store
	} else {
		e.store = persistence.NopStore{}
	}

	return e, nil
}

// Finalize releases every resource Initialize acquired, in reverse order:
// the run-history store first (it has in-flight writes to flush), then the
// thread pool (lets in-flight work drain before stopping workers).
func (e *Engine) Finalize() error {
	if e.controlAPI != nil {
		e.controlAPI.Close()
	}
	if err := e.store.Close(); err != nil {
		return fmt.Errorf("gaflow: closing run-history store: %w", err)
	}
	e.pool.Close()
	return nil
}

// Pool returns the engine's worker thread pool.
func (e *Engine) Pool() *threading.ThreadPool { return e.pool }

// Events returns the engine's event pool.
func (e *Engine) Events() *event.Pool { return e.events }

// Logger returns the engine's structured logger.
func (e *Engine) Logger() zerolog.Logger { return e.logger }

// Tracer returns the engine's OpenTelemetry tracer wrapper.
func (e *Engine) Tracer() *tracing.Tracer { return e.tracer }

// Store returns the engine's run-history store (NopStore if no database
// was configured).
func (e *Engine) Store() persistence.Store { return e.store }

// ControlAPI creates the engine's HTTP control surface bound to wf,
// authenticated with the engine's configured JWT secret.
func (e *Engine) ControlAPI(wf *workflow.Workflow) *controlapi.Server {
	e.controlAPI = controlapi.NewServer(wf, controlapi.Config{
		JWTSecret: []byte(e.cfg.JWTSecret),
		Logger:    e.logger,
	})
	return e.controlAPI
}
