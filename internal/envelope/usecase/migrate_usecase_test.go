package usecase

import (
	"context"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"golang.org/x/crypto/scrypt"

	envelopeDomain "github.com/mcpdeck/guard/internal/envelope/domain"
	envelopeService "github.com/mcpdeck/guard/internal/envelope/service"
)

const testBaseSecret = "unit-test-key-material-0a1b2c3d4e5f60718"

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// fakeServerSecretRepository is an in-memory ServerSecretRepository that
// hands out copies, the way a database-backed repository would.
type fakeServerSecretRepository struct {
	mu         sync.Mutex
	records    []*envelopeDomain.ServerSecretRecord
	updates    int
	failUpdate bool
}

func (f *fakeServerSecretRepository) ListBatch(
	_ context.Context,
	limit, offset int,
) ([]*envelopeDomain.ServerSecretRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if offset >= len(f.records) {
		return nil, nil
	}
	end := min(offset+limit, len(f.records))

	out := make([]*envelopeDomain.ServerSecretRecord, 0, end-offset)
	for _, record := range f.records[offset:end] {
		clone := *record
		out = append(out, &clone)
	}
	return out, nil
}

func (f *fakeServerSecretRepository) Update(
	_ context.Context,
	record *envelopeDomain.ServerSecretRecord,
) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.failUpdate {
		return errors.New("storage unavailable")
	}

	for i, existing := range f.records {
		if existing.ID == record.ID {
			clone := *record
			f.records[i] = &clone
			f.updates++
			return nil
		}
	}
	return errors.New("record not found")
}

func (f *fakeServerSecretRepository) get(id uuid.UUID) *envelopeDomain.ServerSecretRecord {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, record := range f.records {
		if record.ID == id {
			return record
		}
	}
	return nil
}

func newTestMigrator(
	t *testing.T,
	repo ServerSecretRepository,
	batchSize, concurrency int,
) (EnvelopeMigrator, *envelopeService.Engine) {
	t.Helper()

	engine, err := envelopeService.NewEngine(testBaseSecret)
	require.NoError(t, err)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewMigrateUseCase(repo, engine, logger, batchSize, concurrency), engine
}

func stringPtr(s string) *string { return &s }

// buildLegacyEnvelope reimplements the retired scrypt scheme independently
// of the engine: key from scrypt over a hash of the legacy identifier,
// envelope iv(16) ‖ tag(16) ‖ ciphertext.
func buildLegacyEnvelope(t *testing.T, legacyID, plaintext string) string {
	t.Helper()

	salt := sha256.Sum256([]byte(legacyID))
	key, err := scrypt.Key(
		[]byte(testBaseSecret),
		salt[:],
		envelopeDomain.ScryptN,
		envelopeDomain.ScryptR,
		envelopeDomain.ScryptP,
		envelopeDomain.KeySize,
	)
	require.NoError(t, err)

	block, err := aes.NewCipher(key)
	require.NoError(t, err)
	aead, err := cipher.NewGCMWithNonceSize(block, envelopeDomain.IVSize)
	require.NoError(t, err)

	iv := make([]byte, envelopeDomain.IVSize)
	_, err = rand.Read(iv)
	require.NoError(t, err)

	sealed := aead.Seal(nil, iv, []byte(plaintext), nil)
	split := len(sealed) - envelopeDomain.TagSize

	envelope := make([]byte, 0, len(iv)+len(sealed))
	envelope = append(envelope, iv...)
	envelope = append(envelope, sealed[split:]...)
	envelope = append(envelope, sealed[:split]...)

	return base64.StdEncoding.EncodeToString(envelope)
}

func newLegacyRecord(t *testing.T, tenantID, command string) *envelopeDomain.ServerSecretRecord {
	t.Helper()
	return &envelopeDomain.ServerSecretRecord{
		ID:                uuid.Must(uuid.NewV7()),
		TenantID:          tenantID,
		ConnectionType:    envelopeDomain.ConnectionStdio,
		CommandEncrypted:  stringPtr(buildLegacyEnvelope(t, tenantID, command)),
		EncryptionVersion: 1,
	}
}

func TestMigrateUseCase_Migrate(t *testing.T) {
	ctx := context.Background()

	t.Run("migrates legacy records and persists them", func(t *testing.T) {
		legacy := newLegacyRecord(t, "tenant-1", "/usr/bin/node")
		repo := &fakeServerSecretRepository{
			records: []*envelopeDomain.ServerSecretRecord{legacy},
		}
		migrator, engine := newTestMigrator(t, repo, 10, 2)

		report, err := migrator.Migrate(ctx, MigrateOptions{})
		require.NoError(t, err)

		assert.Equal(t, MigrateReport{Candidates: 1, Migrated: 1, Errors: 0}, report)
		assert.Equal(t, 1, repo.updates)

		// The persisted envelope now decrypts under the secure format.
		stored := repo.get(legacy.ID)
		require.NotNil(t, stored)
		require.NotNil(t, stored.CommandEncrypted)
		assert.Equal(t, envelopeDomain.EncryptionVersionSecure, stored.EncryptionVersion)

		value, format, err := engine.DecryptWithFormat(*stored.CommandEncrypted, "tenant-1")
		require.NoError(t, err)
		assert.Equal(t, envelopeDomain.FormatSecure, format)
		assert.Equal(t, "/usr/bin/node", value)
	})

	t.Run("skips records that are already secure", func(t *testing.T) {
		engine, err := envelopeService.NewEngine(testBaseSecret)
		require.NoError(t, err)

		secureEnvelope, err := engine.Encrypt("/usr/bin/python3")
		require.NoError(t, err)

		repo := &fakeServerSecretRepository{
			records: []*envelopeDomain.ServerSecretRecord{{
				ID:                uuid.Must(uuid.NewV7()),
				TenantID:          "tenant-2",
				CommandEncrypted:  &secureEnvelope,
				EncryptionVersion: envelopeDomain.EncryptionVersionSecure,
			}},
		}
		migrator, _ := newTestMigrator(t, repo, 10, 2)

		report, err := migrator.Migrate(ctx, MigrateOptions{})
		require.NoError(t, err)

		assert.Equal(t, MigrateReport{Candidates: 1, Migrated: 0, Errors: 0}, report)
		assert.Zero(t, repo.updates)
	})

	t.Run("isolates per-field errors", func(t *testing.T) {
		record := newLegacyRecord(t, "tenant-3", "/usr/bin/node")
		record.ArgsEncrypted = stringPtr("corrupted envelope")

		repo := &fakeServerSecretRepository{
			records: []*envelopeDomain.ServerSecretRecord{record},
		}
		migrator, _ := newTestMigrator(t, repo, 10, 2)

		report, err := migrator.Migrate(ctx, MigrateOptions{Verbose: true})
		require.NoError(t, err)

		// The corrupt field is counted; the legacy field still migrates.
		assert.Equal(t, MigrateReport{Candidates: 1, Migrated: 1, Errors: 1}, report)
	})

	t.Run("dry run persists nothing", func(t *testing.T) {
		legacy := newLegacyRecord(t, "tenant-4", "/usr/bin/node")
		repo := &fakeServerSecretRepository{
			records: []*envelopeDomain.ServerSecretRecord{legacy},
		}
		migrator, _ := newTestMigrator(t, repo, 10, 2)

		report, err := migrator.Migrate(ctx, MigrateOptions{DryRun: true})
		require.NoError(t, err)

		assert.Equal(t, MigrateReport{Candidates: 1, Migrated: 1, Errors: 0}, report)
		assert.Zero(t, repo.updates)

		stored := repo.get(legacy.ID)
		assert.Equal(t, 1, stored.EncryptionVersion)
	})

	t.Run("update failure is counted, not fatal", func(t *testing.T) {
		repo := &fakeServerSecretRepository{
			records:    []*envelopeDomain.ServerSecretRecord{newLegacyRecord(t, "tenant-5", "cmd")},
			failUpdate: true,
		}
		migrator, _ := newTestMigrator(t, repo, 10, 2)

		report, err := migrator.Migrate(ctx, MigrateOptions{})
		require.NoError(t, err)

		assert.Equal(t, MigrateReport{Candidates: 1, Migrated: 0, Errors: 1}, report)
	})

	t.Run("records without envelopes are not candidates", func(t *testing.T) {
		repo := &fakeServerSecretRepository{
			records: []*envelopeDomain.ServerSecretRecord{{
				ID:       uuid.Must(uuid.NewV7()),
				TenantID: "tenant-6",
			}},
		}
		migrator, _ := newTestMigrator(t, repo, 10, 2)

		report, err := migrator.Migrate(ctx, MigrateOptions{})
		require.NoError(t, err)

		assert.Equal(t, MigrateReport{}, report)
	})
}

func TestMigrateUseCase_Migrate_Idempotent(t *testing.T) {
	ctx := context.Background()

	repo := &fakeServerSecretRepository{
		records: []*envelopeDomain.ServerSecretRecord{
			newLegacyRecord(t, "tenant-a", "/usr/bin/node"),
			newLegacyRecord(t, "tenant-b", "/usr/bin/deno"),
		},
	}
	migrator, _ := newTestMigrator(t, repo, 10, 2)

	first, err := migrator.Migrate(ctx, MigrateOptions{})
	require.NoError(t, err)
	assert.Equal(t, 2, first.Migrated)

	// A second run finds every envelope already secure.
	second, err := migrator.Migrate(ctx, MigrateOptions{})
	require.NoError(t, err)
	assert.Equal(t, MigrateReport{Candidates: 2, Migrated: 0, Errors: 0}, second)
	assert.Equal(t, 2, repo.updates)
}

func TestMigrateUseCase_Migrate_Batching(t *testing.T) {
	ctx := context.Background()

	records := make([]*envelopeDomain.ServerSecretRecord, 0, 5)
	for _, tenant := range []string{"t1", "t2", "t3", "t4", "t5"} {
		records = append(records, newLegacyRecord(t, tenant, "/usr/bin/node"))
	}
	repo := &fakeServerSecretRepository{records: records}

	// Batch size smaller than the dataset forces multiple ListBatch calls.
	migrator, _ := newTestMigrator(t, repo, 2, 3)

	report, err := migrator.Migrate(ctx, MigrateOptions{})
	require.NoError(t, err)

	assert.Equal(t, MigrateReport{Candidates: 5, Migrated: 5, Errors: 0}, report)
	assert.Equal(t, 5, repo.updates)
}
