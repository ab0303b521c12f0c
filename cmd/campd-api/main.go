package main

import (
	"context"
	"os"

	"github.com/pipecraft/campd/pkg/chain"
	"github.com/pipecraft/campd/pkg/cmd"
	"github.com/pipecraft/campd/pkg/launchers/redis"
	"github.com/pipecraft/campd/pkg/log"
	"github.com/pipecraft/campd/pkg/protocol"
	"github.com/pipecraft/campd/pkg/render"
	"github.com/pipecraft/campd/pkg/scheduler"
	cli "github.com/urfave/cli/v3"
)

const defaultPort = 9091

func main() {
	logger := log.WithModule("api")

	command := &cli.Command{
		Name:                  "campd-api",
		Usage:                 "Create and manage campaigns",
		EnableShellCompletion: true,
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:    "port",
				Aliases: []string{"p"},
				Usage:   "Port to run the API server on",
				Value:   defaultPort,
				Sources: cli.EnvVars("PORT"),
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
			&cli.StringFlag{
				Name:    "log-level",
				Usage:   "Log level (debug, info, warn, error)",
				Value:   "info",
				Sources: cli.EnvVars("LOG_LEVEL"),
			},
		},
		Action: func(ctx context.Context, command *cli.Command) error {
			log.Setup(command.String("log-level"))

			logger.InfoContext(ctx, "Initializing campd API")

			registry := cmd.NewRegistry(logger)

			store := cmd.NewPersistence(ctx, logger, command.String("database-url"))
			defer func() {
				err := store.Close(ctx)
				if err != nil {
					logger.ErrorContext(ctx, "Failed to close persistence", "error", err)
				}
			}()

			eventBus := cmd.NewEventBus(command.String("event-bus"), logger)
			defer func() {
				if err := eventBus.Close(); err != nil {
					logger.ErrorContext(ctx, "Failed to close event bus", "error", err)
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

			// The API embeds a loop-less daemon: Process and the operator
			// trigger endpoint reuse its single-step machinery while the
			// background loop stays with campd-daemon.
			daemon := scheduler.NewDaemon(
				scheduler.Config{
					ID:       "api",
					Features: scheduler.Features{PersistMachines: true},
				},
				store,
				registry,
				deps,
				eventBus,
				nil,
				logger,
			)

			api := NewAPI(logger, store, registry, daemon)

			err = api.Start(command.Int("port"))
			if err != nil {
				logger.ErrorContext(ctx, "Failed to start API server", "error", err)
			}

			return nil
		},
	}

	err := command.Run(context.Background(), os.Args)
	if err != nil {
		panic(err)
	}
}
