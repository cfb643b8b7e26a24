package commands

import (
	"context"
	"fmt"
	"log/slog"

	envelopeUseCase "github.com/mcpdeck/guard/internal/envelope/usecase"
)

// RunMigrateEnvelopes walks every server secret record and re-encrypts
// envelopes produced by the retired key-derivation schemes. Per-record
// failures are counted in the final report and do not abort the run; the
// command only fails when the migration itself cannot run.
func RunMigrateEnvelopes(
	ctx context.Context,
	migrator envelopeUseCase.EnvelopeMigrator,
	logger *slog.Logger,
	dryRun, verbose bool,
) error {
	logger.Info("starting envelope migration",
		slog.Bool("dry_run", dryRun),
	)

	report, err := migrator.Migrate(ctx, envelopeUseCase.MigrateOptions{
		DryRun:  dryRun,
		Verbose: verbose,
	})
	if err != nil {
		return fmt.Errorf("failed to run envelope migration: %w", err)
	}

	logger.Info("envelope migration completed",
		slog.Int("candidates", report.Candidates),
		slog.Int("migrated", report.Migrated),
		slog.Int("errors", report.Errors),
		slog.Bool("dry_run", dryRun),
	)

	if report.Errors > 0 {
		logger.Warn("some envelopes could not be migrated",
			slog.Int("errors", report.Errors),
		)
	}

	return nil
}
