// Package scheduler implements the two-phase daemon loop that drives
// campaigns forward: Phase 1 turns actionable graph nodes into queued tasks,
// Phase 2 turns claimed tasks into state-machine transitions.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/pipecraft/campd/pkg/eventbus"
	"github.com/pipecraft/campd/pkg/persistence"
	"github.com/pipecraft/campd/pkg/protocol"
	"github.com/pipecraft/campd/pkg/registry"
	"github.com/robfig/cron/v3"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

// Features toggles optional scheduler behavior. An explicit struct passed at
// construction keeps the daemon unit-testable; there is no ambient global
// feature state.
type Features struct {
	// EnablePhase1 activates campaign consideration (task production).
	EnablePhase1 bool

	// EnablePhase2 activates task consumption (transition firing).
	EnablePhase2 bool

	// PersistMachines serializes each node's state machine after every
	// transition.
	PersistMachines bool

	// AllowTaskReset switches task enqueueing from insert-or-ignore to
	// insert-or-reset, reopening finished tasks. Test-only replay mode.
	AllowTaskReset bool
}

// DefaultFeatures runs both phases with machine persistence on.
func DefaultFeatures() Features {
	return Features{
		EnablePhase1:    true,
		EnablePhase2:    true,
		PersistMachines: true,
	}
}

// Config carries the daemon's construction parameters.
type Config struct {
	// ID identifies this daemon instance in logs and events.
	ID string

	// Interval between loop iterations. Ignored when CronSpec is set.
	Interval time.Duration

	// CronSpec, when non-empty, gates loop iterations on a cron schedule
	// instead of a fixed interval.
	CronSpec string

	// TaskBatchSize caps how many tasks one Phase 2 pass claims.
	TaskBatchSize int

	// MaxConcurrentTransitions caps Phase 2 fan-out width.
	MaxConcurrentTransitions int

	Features Features
}

// Daemon is the scheduler process: it repeatedly runs Phase 1 and Phase 2
// over shared storage. Multiple daemons may run concurrently against the
// same database; skip-locked row acquisition is the only mutual exclusion
// between them.
type Daemon struct {
	id       string
	config   Config
	store    persistence.Persistence
	registry *registry.Registry
	deps     protocol.Dependencies
	bus      eventbus.EventPublisher
	tracer   trace.Tracer
	logger   *slog.Logger
}

// NewDaemon wires a daemon. deps is handed to every machine the daemon
// builds; its Store must be the same persistence handle.
func NewDaemon(config Config, store persistence.Persistence, reg *registry.Registry, deps protocol.Dependencies, bus eventbus.EventPublisher, tracer trace.Tracer, logger *slog.Logger) *Daemon {
	if config.ID == "" {
		config.ID = uuid.New().String()
	}

	if config.Interval <= 0 {
		config.Interval = 30 * time.Second
	}

	if config.TaskBatchSize <= 0 {
		config.TaskBatchSize = 50
	}

	if config.MaxConcurrentTransitions <= 0 {
		config.MaxConcurrentTransitions = 10
	}

	if tracer == nil {
		tracer = noop.NewTracerProvider().Tracer("campd-daemon")
	}

	return &Daemon{
		id:       config.ID,
		config:   config,
		store:    store,
		registry: reg,
		deps:     deps,
		bus:      bus,
		tracer:   tracer,
		logger:   logger.With("module", "scheduler", "daemon_id", config.ID),
	}
}

// Run executes the daemon loop until the context is cancelled. With a cron
// spec configured, passes run on the schedule; otherwise on a fixed interval.
func (d *Daemon) Run(ctx context.Context) error {
	d.logger.InfoContext(ctx, "daemon starting",
		"interval", d.config.Interval,
		"cron", d.config.CronSpec,
		"phase1", d.config.Features.EnablePhase1,
		"phase2", d.config.Features.EnablePhase2)

	if d.config.CronSpec != "" {
		return d.runCron(ctx)
	}

	ticker := time.NewTicker(d.config.Interval)
	defer ticker.Stop()

	for {
		d.runOnce(ctx)

		select {
		case <-ctx.Done():
			d.logger.InfoContext(ctx, "daemon stopping")

			return ctx.Err()
		case <-ticker.C:
		}
	}
}

func (d *Daemon) runCron(ctx context.Context) error {
	runner := cron.New()

	_, err := runner.AddFunc(d.config.CronSpec, func() {
		d.runOnce(ctx)
	})
	if err != nil {
		return fmt.Errorf("invalid cron spec %q: %w", d.config.CronSpec, err)
	}

	runner.Start()

	<-ctx.Done()

	stopCtx := runner.Stop()
	<-stopCtx.Done()

	d.logger.InfoContext(ctx, "daemon stopping")

	return ctx.Err()
}

// runOnce executes one full pass. Phase errors are logged, never fatal: the
// next pass retries.
func (d *Daemon) runOnce(ctx context.Context) {
	if d.config.Features.EnablePhase1 {
		enqueued, err := d.RunPhase1(ctx)
		if err != nil {
			d.logger.ErrorContext(ctx, "phase 1 failed", "error", err)
		} else if enqueued > 0 {
			d.logger.InfoContext(ctx, "phase 1 complete", "tasks_enqueued", enqueued)
		}
	}

	if d.config.Features.EnablePhase2 {
		fired, err := d.RunPhase2(ctx)
		if err != nil {
			d.logger.ErrorContext(ctx, "phase 2 failed", "error", err)
		} else if fired > 0 {
			d.logger.InfoContext(ctx, "phase 2 complete", "transitions_fired", fired)
		}
	}
}
