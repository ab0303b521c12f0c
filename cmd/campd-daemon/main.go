package main

import (
	"context"
	"log/slog"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/pipecraft/campd/pkg/chain"
	"github.com/pipecraft/campd/pkg/cmd"
	"github.com/pipecraft/campd/pkg/eventbus"
	"github.com/pipecraft/campd/pkg/events"
	"github.com/pipecraft/campd/pkg/launchers/redis"
	"github.com/pipecraft/campd/pkg/log"
	"github.com/pipecraft/campd/pkg/otelhelper"
	"github.com/pipecraft/campd/pkg/protocol"
	"github.com/pipecraft/campd/pkg/render"
	"github.com/pipecraft/campd/pkg/scheduler"
	cli "github.com/urfave/cli/v3"
	"go.opentelemetry.io/otel/trace"
)

func main() {
	command := &cli.Command{
		Name:                  "campd-daemon",
		EnableShellCompletion: true,
		Usage:                 "Start the campaign scheduler daemon",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "daemon-id",
				Aliases: []string{"id"},
				Usage:   "Custom daemon ID (auto-generated if not provided)",
				Value:   "",
				Sources: cli.EnvVars("DAEMON_ID"),
			},
			&cli.StringFlag{
				Name:     "database-url",
				Usage:    "Database connection URL for persistence",
				Required: true,
				Sources:  cli.EnvVars("DATABASE_URL"),
			},
			&cli.StringFlag{
				Name:    "event-bus",
				Usage:   "Event bus type (kafka, gochannel)",
				Value:   "kafka",
				Sources: cli.EnvVars("EVENT_BUS_TYPE"),
			},
			&cli.StringFlag{
				Name:     "redis-url",
				Usage:    "Redis address for the launch queue (host:port)",
				Required: true,
				Sources:  cli.EnvVars("REDIS_URL"),
			},
			&cli.StringFlag{
				Name:    "redis-password",
				Usage:   "Redis password",
				Value:   "",
				Sources: cli.EnvVars("REDIS_PASSWORD"),
			},
			&cli.StringFlag{
				Name:    "artifact-root",
				Usage:   "Base directory for campaign artifact trees",
				Value:   "./artifacts",
				Sources: cli.EnvVars("ARTIFACT_ROOT"),
			},
			&cli.DurationFlag{
				Name:    "interval",
				Usage:   "Delay between scheduler passes",
				Value:   30 * time.Second,
				Sources: cli.EnvVars("SCHEDULER_INTERVAL"),
			},
			&cli.StringFlag{
				Name:    "activity-cron",
				Usage:   "Cron expression gating scheduler passes (overrides interval)",
				Value:   "",
				Sources: cli.EnvVars("ACTIVITY_CRON"),
			},
			&cli.IntFlag{
				Name:    "task-batch-size",
				Usage:   "Maximum tasks claimed per pass",
				Value:   50,
				Sources: cli.EnvVars("TASK_BATCH_SIZE"),
			},
			&cli.IntFlag{
				Name:    "max-concurrent-transitions",
				Usage:   "Fan-out width for concurrent transitions",
				Value:   10,
				Sources: cli.EnvVars("MAX_CONCURRENT_TRANSITIONS"),
			},
			&cli.BoolFlag{
				Name:    "disable-phase1",
				Usage:   "Skip campaign consideration (task production)",
				Sources: cli.EnvVars("DISABLE_PHASE1"),
			},
			&cli.BoolFlag{
				Name:    "disable-phase2",
				Usage:   "Skip task consumption (transition firing)",
				Sources: cli.EnvVars("DISABLE_PHASE2"),
			},
			&cli.BoolFlag{
				Name:    "disable-machine-persistence",
				Usage:   "Do not serialize state machines after transitions",
				Sources: cli.EnvVars("DISABLE_MACHINE_PERSISTENCE"),
			},
			&cli.BoolFlag{
				Name:    "enable-tracing",
				Usage:   "Export OTLP traces",
				Sources: cli.EnvVars("ENABLE_TRACING"),
			},
			&cli.StringFlag{
				Name:    "log-level",
				Usage:   "Log level (debug, info, warn, error)",
				Value:   "info",
				Sources: cli.EnvVars("LOG_LEVEL"),
			},
		},
		Action: func(ctx context.Context, command *cli.Command) error {
			log.Setup(command.String("log-level"))

			daemonID := command.String("daemon-id")
			if daemonID == "" {
				daemonID = "daemon-" + uuid.New().String()[:8]
			}

			logger := log.WithModule("campd-daemon").With("daemon_id", daemonID)

			logger.InfoContext(ctx, "Initializing campaign scheduler daemon")

			var tracer trace.Tracer

			if command.Bool("enable-tracing") {
				t, err := otelhelper.NewTracer(ctx, "campd-daemon")
				if err != nil {
					return err
				}

				tracer = t
			}

			eventBus := cmd.NewEventBus(command.String("event-bus"), logger)
			defer func() {
				err := eventBus.Close()
				if err != nil {
					logger.ErrorContext(ctx, "Failed to close event bus", "error", err)
				}
			}()

			store := cmd.NewPersistence(ctx, logger, command.String("database-url"))
			defer func() {
				err := store.Close(ctx)
				if err != nil {
					logger.ErrorContext(ctx, "Failed to close persistence", "error", err)
				}
			}()

			launcher, err := redis.NewLauncher(ctx, logger,
				command.String("redis-url"), command.String("redis-password"), 0)
			if err != nil {
				return err
			}

			deps := protocol.Dependencies{
				Logger:       logger,
				Store:        store,
				Resolver:     chain.NewResolver(store.Manifests()),
				Launcher:     launcher,
				Workspace:    render.NewWorkspace(),
				ArtifactRoot: command.String("artifact-root"),
			}

			daemon := scheduler.NewDaemon(
				scheduler.Config{
					ID:                       daemonID,
					Interval:                 command.Duration("interval"),
					CronSpec:                 command.String("activity-cron"),
					TaskBatchSize:            command.Int("task-batch-size"),
					MaxConcurrentTransitions: command.Int("max-concurrent-transitions"),
					Features: scheduler.Features{
						EnablePhase1:    !command.Bool("disable-phase1"),
						EnablePhase2:    !command.Bool("disable-phase2"),
						PersistMachines: !command.Bool("disable-machine-persistence"),
					},
				},
				store,
				cmd.NewRegistry(logger),
				deps,
				eventBus,
				tracer,
				logger,
			)

			if err := watchEvents(ctx, eventBus, logger); err != nil {
				return err
			}

			return daemon.Run(ctx)
		},
	}

	err := command.Run(context.Background(), os.Args)
	if err != nil {
		panic(err)
	}
}

// watchEvents surfaces cluster-wide transition activity in this daemon's log:
// with several daemons sharing one bus, each sees what the others commit.
func watchEvents(ctx context.Context, bus eventbus.EventBus, logger *slog.Logger) error {
	err := bus.Handle(events.NodeTransitionFailedEvent, func(ctx context.Context, event any) error {
		failed, ok := event.(*events.NodeTransitionFailed)
		if !ok {
			return nil
		}

		logger.WarnContext(ctx, "Node transition failed",
			"namespace", failed.Namespace,
			"node_id", failed.NodeID,
			"trigger", failed.Trigger,
			"error", failed.Error)

		return nil
	})
	if err != nil {
		return err
	}

	err = bus.Handle(events.CampaignCompletedEvent, func(ctx context.Context, event any) error {
		completed, ok := event.(*events.CampaignCompleted)
		if !ok {
			return nil
		}

		logger.InfoContext(ctx, "Campaign completed", "campaign_id", completed.CampaignID)

		return nil
	})
	if err != nil {
		return err
	}

	return bus.Subscribe(ctx)
}
