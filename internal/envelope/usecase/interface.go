package usecase

import (
	"context"

	envelopeDomain "github.com/mcpdeck/guard/internal/envelope/domain"
)

// ServerSecretRepository is the storage collaborator the migration runner
// walks. The runner itself never touches storage directly.
type ServerSecretRepository interface {
	// ListBatch returns up to limit records starting at offset, ordered by
	// creation time so repeated calls walk the full set.
	ListBatch(ctx context.Context, limit, offset int) ([]*envelopeDomain.ServerSecretRecord, error)

	// Update persists the record's envelope fields and version stamp.
	Update(ctx context.Context, record *envelopeDomain.ServerSecretRecord) error
}

// MigrateOptions controls a migration run.
type MigrateOptions struct {
	// DryRun reports what would be migrated without persisting anything.
	DryRun bool
	// Verbose emits a log line per migrated or failed record.
	Verbose bool
}

// MigrateReport summarizes a completed run. Per-field errors are data
// quality signals, not process failures; a run with errors still completes.
type MigrateReport struct {
	// Candidates is the number of records holding at least one envelope.
	Candidates int
	// Migrated is the number of records re-encrypted (or, in dry-run mode,
	// that would have been).
	Migrated int
	// Errors is the number of fields that could not be decrypted plus
	// records that failed to persist.
	Errors int
}

// EnvelopeMigrator converts every legacy envelope reachable through the
// repository to the secure format.
type EnvelopeMigrator interface {
	Migrate(ctx context.Context, opts MigrateOptions) (MigrateReport, error)
}
