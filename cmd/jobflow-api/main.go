package main

import (
	"context"
	"os"
	"time"

	cli "github.com/urfave/cli/v3"

	"github.com/sfgfab/jobflow/pkg/cmd"
	"github.com/sfgfab/jobflow/pkg/log"
	"github.com/sfgfab/jobflow/pkg/notify"
)

const defaultPort = 9091

func main() {
	logger := log.WithModule("api")

	command := &cli.Command{
		Name:                  "jobflow-api",
		Usage:                 "Navigate jobs through the fabrication pipeline and manage approvals",
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
				Usage:    "Database connection URL (postgres://... or a file store directory)",
				Required: true,
				Sources:  cli.EnvVars("DATABASE_URL"),
			},
			&cli.StringFlag{
				Name:    "event-bus",
				Usage:   "Event bus provider (kafka, gochannel)",
				Value:   "gochannel",
				Sources: cli.EnvVars("EVENT_BUS"),
			},
			&cli.StringSliceFlag{
				Name:    "kafka-brokers",
				Usage:   "Kafka broker addresses",
				Sources: cli.EnvVars("KAFKA_BROKERS"),
			},
			&cli.StringFlag{
				Name:    "quote-rules-path",
				Usage:   "Path to a quote-type rule file (built-in rules when empty)",
				Sources: cli.EnvVars("QUOTE_RULES_PATH"),
			},
			&cli.StringFlag{
				Name:    "approvers-path",
				Usage:   "Path to the approver directory JSON file",
				Sources: cli.EnvVars("APPROVERS_PATH"),
			},
			&cli.StringFlag{
				Name:    "redis-addr",
				Usage:   "Redis address for the notification stream (event bus when empty)",
				Sources: cli.EnvVars("REDIS_ADDR"),
			},
			&cli.StringFlag{
				Name:    "redis-password",
				Usage:   "Redis password",
				Sources: cli.EnvVars("REDIS_PASSWORD"),
			},
			&cli.IntFlag{
				Name:    "redis-db",
				Usage:   "Redis database number",
				Sources: cli.EnvVars("REDIS_DB"),
			},
			&cli.StringFlag{
				Name:    "escalation-schedule",
				Usage:   "Cron schedule for the approval escalation sweep",
				Sources: cli.EnvVars("ESCALATION_SCHEDULE"),
			},
			&cli.DurationFlag{
				Name:    "escalation-window",
				Usage:   "How long an approval may sit undecided before escalation",
				Value:   24 * time.Hour,
				Sources: cli.EnvVars("ESCALATION_WINDOW"),
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

			logger.InfoContext(ctx, "Initializing Jobflow API")

			persistence, err := cmd.NewPersistence(ctx, logger, command.String("database-url"))
			if err != nil {
				return err
			}

			defer func() {
				err := persistence.Close(ctx)
				if err != nil {
					logger.ErrorContext(ctx, "Failed to close persistence", "error", err)
				}
			}()

			eventBus, err := cmd.NewEventBus(command.String("event-bus"), command.StringSlice("kafka-brokers"), "api", logger)
			if err != nil {
				return err
			}

			defer func() {
				if err := eventBus.Close(); err != nil {
					logger.ErrorContext(ctx, "Failed to close event bus", "error", err)
				}
			}()

			terminal, err := cmd.NewTerminalSink(
				ctx,
				logger,
				command.String("redis-addr"),
				command.String("redis-password"),
				command.Int("redis-db"),
				"",
			)
			if err != nil {
				return err
			}

			defer func() {
				if err := terminal.Close(); err != nil {
					logger.ErrorContext(ctx, "Failed to close notification sink", "error", err)
				}
			}()

			// Services publish notifications onto the bus; the dispatcher
			// consumes them and delivers through the terminal sink.
			dispatcher := notify.NewDispatcher(eventBus, terminal, logger)
			if err := dispatcher.Start(ctx); err != nil {
				return err
			}

			sink := notify.NewEventBusSink(eventBus)

			api, err := NewAPI(logger, persistence, eventBus, sink, Config{
				QuoteRulesPath:     command.String("quote-rules-path"),
				ApproversPath:      command.String("approvers-path"),
				EscalationSchedule: command.String("escalation-schedule"),
				EscalationWindow:   command.Duration("escalation-window"),
			})
			if err != nil {
				return err
			}

			if err := api.StartEscalator(ctx); err != nil {
				return err
			}
			defer api.StopEscalator()

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
