package repository

import (
	"context"
	"database/sql"

	"github.com/google/uuid"

	"github.com/mcpdeck/guard/internal/database"
	envelopeDomain "github.com/mcpdeck/guard/internal/envelope/domain"
	apperrors "github.com/mcpdeck/guard/internal/errors"
)

// MySQLServerSecretRepository implements server secret persistence for
// MySQL databases.
type MySQLServerSecretRepository struct {
	db *sql.DB
}

// NewMySQLServerSecretRepository creates a repository backed by the given
// MySQL connection.
func NewMySQLServerSecretRepository(db *sql.DB) *MySQLServerSecretRepository {
	return &MySQLServerSecretRepository{db: db}
}

// Create inserts a new server secret record.
func (m *MySQLServerSecretRepository) Create(
	ctx context.Context,
	record *envelopeDomain.ServerSecretRecord,
) error {
	querier := database.GetTx(ctx, m.db)

	query := `INSERT INTO server_secrets
			  (id, tenant_id, name, connection_type, command_encrypted, args_encrypted,
			   env_encrypted, url_encrypted, encryption_version, created_at, updated_at)
			  VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	_, err := querier.ExecContext(
		ctx,
		query,
		record.ID.String(),
		record.TenantID,
		record.Name,
		record.ConnectionType,
		record.CommandEncrypted,
		record.ArgsEncrypted,
		record.EnvEncrypted,
		record.URLEncrypted,
		record.EncryptionVersion,
		record.CreatedAt,
		record.UpdatedAt,
	)
	if err != nil {
		return apperrors.Wrap(err, "failed to create server secret")
	}
	return nil
}

// GetByID retrieves a server secret record by its ID.
func (m *MySQLServerSecretRepository) GetByID(
	ctx context.Context,
	id uuid.UUID,
) (*envelopeDomain.ServerSecretRecord, error) {
	querier := database.GetTx(ctx, m.db)

	query := `SELECT id, tenant_id, name, connection_type, command_encrypted, args_encrypted,
			  env_encrypted, url_encrypted, encryption_version, created_at, updated_at
			  FROM server_secrets
			  WHERE id = ?`

	var record envelopeDomain.ServerSecretRecord
	var rawID string
	err := querier.QueryRowContext(ctx, query, id.String()).Scan(
		&rawID,
		&record.TenantID,
		&record.Name,
		&record.ConnectionType,
		&record.CommandEncrypted,
		&record.ArgsEncrypted,
		&record.EnvEncrypted,
		&record.URLEncrypted,
		&record.EncryptionVersion,
		&record.CreatedAt,
		&record.UpdatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apperrors.ErrNotFound
		}
		return nil, apperrors.Wrap(err, "failed to get server secret")
	}

	record.ID, err = uuid.Parse(rawID)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to parse server secret id")
	}

	return &record, nil
}

// ListBatch returns up to limit records starting at offset, ordered by
// creation time so repeated calls walk the full set.
func (m *MySQLServerSecretRepository) ListBatch(
	ctx context.Context,
	limit, offset int,
) ([]*envelopeDomain.ServerSecretRecord, error) {
	querier := database.GetTx(ctx, m.db)

	query := `SELECT id, tenant_id, name, connection_type, command_encrypted, args_encrypted,
			  env_encrypted, url_encrypted, encryption_version, created_at, updated_at
			  FROM server_secrets
			  ORDER BY created_at, id
			  LIMIT ? OFFSET ?`

	rows, err := querier.QueryContext(ctx, query, limit, offset)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to list server secrets")
	}
	defer func() { _ = rows.Close() }()

	var records []*envelopeDomain.ServerSecretRecord
	for rows.Next() {
		var record envelopeDomain.ServerSecretRecord
		var rawID string
		if err := rows.Scan(
			&rawID,
			&record.TenantID,
			&record.Name,
			&record.ConnectionType,
			&record.CommandEncrypted,
			&record.ArgsEncrypted,
			&record.EnvEncrypted,
			&record.URLEncrypted,
			&record.EncryptionVersion,
			&record.CreatedAt,
			&record.UpdatedAt,
		); err != nil {
			return nil, apperrors.Wrap(err, "failed to scan server secret")
		}
		record.ID, err = uuid.Parse(rawID)
		if err != nil {
			return nil, apperrors.Wrap(err, "failed to parse server secret id")
		}
		records = append(records, &record)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.Wrap(err, "failed to iterate server secrets")
	}

	return records, nil
}

// Update persists the record's envelope fields and version stamp.
func (m *MySQLServerSecretRepository) Update(
	ctx context.Context,
	record *envelopeDomain.ServerSecretRecord,
) error {
	querier := database.GetTx(ctx, m.db)

	query := `UPDATE server_secrets
			  SET command_encrypted = ?, args_encrypted = ?, env_encrypted = ?,
			      url_encrypted = ?, encryption_version = ?, updated_at = NOW()
			  WHERE id = ?`

	result, err := querier.ExecContext(
		ctx,
		query,
		record.CommandEncrypted,
		record.ArgsEncrypted,
		record.EnvEncrypted,
		record.URLEncrypted,
		record.EncryptionVersion,
		record.ID.String(),
	)
	if err != nil {
		return apperrors.Wrap(err, "failed to update server secret")
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return apperrors.Wrap(err, "failed to check update result")
	}
	if affected == 0 {
		return apperrors.ErrNotFound
	}

	return nil
}

// Delete removes a server secret record.
func (m *MySQLServerSecretRepository) Delete(ctx context.Context, id uuid.UUID) error {
	querier := database.GetTx(ctx, m.db)

	result, err := querier.ExecContext(ctx, `DELETE FROM server_secrets WHERE id = ?`, id.String())
	if err != nil {
		return apperrors.Wrap(err, "failed to delete server secret")
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return apperrors.Wrap(err, "failed to check delete result")
	}
	if affected == 0 {
		return apperrors.ErrNotFound
	}

	return nil
}
