// Package usecase implements the envelope migration runner: a one-shot batch
// tool that re-encrypts legacy envelopes under the secure format.
package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"golang.org/x/sync/errgroup"

	envelopeDomain "github.com/mcpdeck/guard/internal/envelope/domain"
	envelopeService "github.com/mcpdeck/guard/internal/envelope/service"
)

// migrateUseCase implements EnvelopeMigrator.
type migrateUseCase struct {
	repo        ServerSecretRepository
	engine      *envelopeService.Engine
	logger      *slog.Logger
	batchSize   int
	concurrency int
}

// NewMigrateUseCase creates the migration runner. batchSize bounds how many
// records are fetched per repository call; concurrency bounds how many
// records are processed in parallel (a throughput control, not a
// correctness requirement — each record's migration is independent and
// idempotent).
func NewMigrateUseCase(
	repo ServerSecretRepository,
	engine *envelopeService.Engine,
	logger *slog.Logger,
	batchSize int,
	concurrency int,
) EnvelopeMigrator {
	if batchSize <= 0 {
		batchSize = 100
	}
	if concurrency <= 0 {
		concurrency = 4
	}
	return &migrateUseCase{
		repo:        repo,
		engine:      engine,
		logger:      logger,
		batchSize:   batchSize,
		concurrency: concurrency,
	}
}

// Migrate walks every record, re-encrypts legacy envelopes, and returns the
// final counts. A field that fails to decrypt is counted and skipped; the
// run never aborts on a per-record problem. Records whose envelopes are all
// already secure are skipped, so a second run migrates nothing.
func (m *migrateUseCase) Migrate(
	ctx context.Context,
	opts MigrateOptions,
) (MigrateReport, error) {
	var (
		mu     sync.Mutex
		report MigrateReport
	)

	offset := 0
	for {
		batch, err := m.repo.ListBatch(ctx, m.batchSize, offset)
		if err != nil {
			return report, fmt.Errorf("failed to list server secrets: %w", err)
		}
		if len(batch) == 0 {
			break
		}
		offset += len(batch)

		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(m.concurrency)

		for _, record := range batch {
			g.Go(func() error {
				outcome := m.migrateRecord(gctx, record, opts)

				mu.Lock()
				report.Candidates += outcome.candidates
				report.Migrated += outcome.migrated
				report.Errors += outcome.errors
				mu.Unlock()

				return nil
			})
		}

		if err := g.Wait(); err != nil {
			return report, err
		}
	}

	m.logger.Info("envelope migration completed",
		slog.Int("candidates", report.Candidates),
		slog.Int("migrated", report.Migrated),
		slog.Int("errors", report.Errors),
		slog.Bool("dry_run", opts.DryRun),
	)

	return report, nil
}

// recordOutcome carries one record's contribution to the report.
type recordOutcome struct {
	candidates int
	migrated   int
	errors     int
}

// envelopeField pairs a field name with its envelope slot so the four
// sensitive fields can be processed uniformly.
type envelopeField struct {
	name     string
	envelope **string
}

// migrateRecord decrypts each envelope on the record and re-encrypts the
// ones produced under a retired format.
func (m *migrateUseCase) migrateRecord(
	ctx context.Context,
	record *envelopeDomain.ServerSecretRecord,
	opts MigrateOptions,
) recordOutcome {
	fields := []envelopeField{
		{"command", &record.CommandEncrypted},
		{"args", &record.ArgsEncrypted},
		{"env", &record.EnvEncrypted},
		{"url", &record.URLEncrypted},
	}

	var outcome recordOutcome
	changed := false
	hasEnvelope := false
	legacyID := record.LegacyIdentifier()

	for _, field := range fields {
		if *field.envelope == nil {
			continue
		}
		hasEnvelope = true

		value, format, err := m.engine.DecryptWithFormat(**field.envelope, legacyID)
		if err != nil {
			outcome.errors++
			if opts.Verbose {
				m.logger.Warn("failed to decrypt envelope field",
					slog.String("record_id", record.ID.String()),
					slog.String("field", field.name),
					slog.Any("error", err),
				)
			}
			continue
		}

		if !format.IsLegacy() {
			continue
		}

		reencrypted, err := m.engine.Encrypt(value)
		if err != nil {
			outcome.errors++
			if opts.Verbose {
				m.logger.Warn("failed to re-encrypt envelope field",
					slog.String("record_id", record.ID.String()),
					slog.String("field", field.name),
					slog.Any("error", err),
				)
			}
			continue
		}

		*field.envelope = &reencrypted
		changed = true
	}

	if hasEnvelope {
		outcome.candidates++
	}

	if !changed {
		return outcome
	}

	record.EncryptionVersion = envelopeDomain.EncryptionVersionSecure

	if opts.DryRun {
		outcome.migrated++
		if opts.Verbose {
			m.logger.Info("would migrate record",
				slog.String("record_id", record.ID.String()),
			)
		}
		return outcome
	}

	if err := m.repo.Update(ctx, record); err != nil {
		outcome.errors++
		m.logger.Error("failed to persist migrated record",
			slog.String("record_id", record.ID.String()),
			slog.Any("error", err),
		)
		return outcome
	}

	outcome.migrated++
	if opts.Verbose {
		m.logger.Info("migrated record",
			slog.String("record_id", record.ID.String()),
		)
	}

	return outcome
}
