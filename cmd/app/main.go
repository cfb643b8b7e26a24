// Package main provides the entry point for the guard CLI commands.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/urfave/cli/v3"

	"github.com/mcpdeck/guard/cmd/app/commands"
	"github.com/mcpdeck/guard/internal/app"
	"github.com/mcpdeck/guard/internal/config"
)

func main() {
	cmd := &cli.Command{
		Name:    "guard",
		Usage:   "URL validation and field-level encryption toolkit",
		Version: "1.0.0",
		Commands: []*cli.Command{
			{
				Name:  "migrate",
				Usage: "Run database migrations",
				Action: func(ctx context.Context, cmd *cli.Command) error {
					cfg := config.Load()
					container := app.NewContainer(cfg)
					return commands.RunMigrations(
						container.Logger(),
						cfg.DBDriver,
						cfg.DBConnectionString,
					)
				},
			},
			{
				Name:  "migrate-envelopes",
				Usage: "Re-encrypt legacy envelopes with the random-salt scheme",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:    "dry-run",
						Aliases: []string{"n"},
						Value:   false,
						Usage:   "Report what would be migrated without persisting changes",
					},
					&cli.BoolFlag{
						Name:    "verbose",
						Aliases: []string{"v"},
						Value:   false,
						Usage:   "Log every migrated record",
					},
				},
				Action: func(ctx context.Context, cmd *cli.Command) error {
					return runMigrateEnvelopes(ctx, cmd.Bool("dry-run"), cmd.Bool("verbose"))
				},
			},
			{
				Name:      "check-url",
				Usage:     "Validate a URL against a trust profile",
				ArgsUsage: "URL",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "profile",
						Aliases: []string{"p"},
						Value:   "external",
						Usage:   "Trust profile to check against: 'external' or 'internal'",
					},
				},
				Action: func(ctx context.Context, cmd *cli.Command) error {
					cfg := config.Load()
					container := app.NewContainer(cfg)
					validator, err := container.URLValidator()
					if err != nil {
						return fmt.Errorf("failed to initialize url validator: %w", err)
					}
					return commands.RunCheckURL(
						validator,
						container.Logger(),
						cmd.Args().First(),
						cmd.String("profile"),
					)
				},
			},
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		slog.Error("application error", slog.Any("error", err))
		os.Exit(1)
	}
}

// runMigrateEnvelopes assembles the container, exposes the metrics endpoint
// for the duration of the run, and executes the migration command.
func runMigrateEnvelopes(ctx context.Context, dryRun, verbose bool) error {
	cfg := config.Load()

	container := app.NewContainer(cfg)
	logger := container.Logger()
	defer commands.CloseContainer(container, logger)

	stopMetrics, err := commands.ServeMetrics(container, logger)
	if err != nil {
		return fmt.Errorf("failed to start metrics endpoint: %w", err)
	}
	defer stopMetrics()

	migrator, err := container.EnvelopeMigrator()
	if err != nil {
		return fmt.Errorf("failed to initialize envelope migrator: %w", err)
	}

	return commands.RunMigrateEnvelopes(ctx, migrator, logger, dryRun, verbose)
}
