package usecase

import (
	"context"
	"time"

	"github.com/mcpdeck/guard/internal/metrics"
)

// migratorWithMetrics decorates EnvelopeMigrator with metrics instrumentation.
type migratorWithMetrics struct {
	next    EnvelopeMigrator
	metrics metrics.BusinessMetrics
}

// NewMigratorWithMetrics wraps an EnvelopeMigrator with metrics recording.
func NewMigratorWithMetrics(migrator EnvelopeMigrator, m metrics.BusinessMetrics) EnvelopeMigrator {
	return &migratorWithMetrics{
		next:    migrator,
		metrics: m,
	}
}

// Migrate records metrics for migration runs.
func (d *migratorWithMetrics) Migrate(
	ctx context.Context,
	opts MigrateOptions,
) (MigrateReport, error) {
	start := time.Now()
	report, err := d.next.Migrate(ctx, opts)

	status := "success"
	if err != nil {
		status = "error"
	}

	d.metrics.RecordOperation(ctx, "envelope", "migrate", status)
	d.metrics.RecordDuration(ctx, "envelope", "migrate", time.Since(start), status)

	return report, err
}
