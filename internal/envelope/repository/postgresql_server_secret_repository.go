// Package repository implements server secret persistence for PostgreSQL
// and MySQL. Only envelope strings and metadata are stored; plaintext
// sensitive fields never reach the database.
package repository

import (
	"context"
	"database/sql"

	"github.com/google/uuid"

	"github.com/mcpdeck/guard/internal/database"
	envelopeDomain "github.com/mcpdeck/guard/internal/envelope/domain"
	apperrors "github.com/mcpdeck/guard/internal/errors"
)

// PostgreSQLServerSecretRepository implements server secret persistence for
// PostgreSQL databases.
type PostgreSQLServerSecretRepository struct {
	db *sql.DB
}

// NewPostgreSQLServerSecretRepository creates a repository backed by the
// given PostgreSQL connection.
func NewPostgreSQLServerSecretRepository(db *sql.DB) *PostgreSQLServerSecretRepository {
	return &PostgreSQLServerSecretRepository{db: db}
}

// Create inserts a new server secret record.
func (p *PostgreSQLServerSecretRepository) Create(
	ctx context.Context,
	record *envelopeDomain.ServerSecretRecord,
) error {
	querier := database.GetTx(ctx, p.db)

	query := `INSERT INTO server_secrets
			  (id, tenant_id, name, connection_type, command_encrypted, args_encrypted,
			   env_encrypted, url_encrypted, encryption_version, created_at, updated_at)
			  VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`

	_, err := querier.ExecContext(
		ctx,
		query,
		record.ID,
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
func (p *PostgreSQLServerSecretRepository) GetByID(
	ctx context.Context,
	id uuid.UUID,
) (*envelopeDomain.ServerSecretRecord, error) {
	querier := database.GetTx(ctx, p.db)

	query := `SELECT id, tenant_id, name, connection_type, command_encrypted, args_encrypted,
			  env_encrypted, url_encrypted, encryption_version, created_at, updated_at
			  FROM server_secrets
			  WHERE id = $1`

	var record envelopeDomain.ServerSecretRecord
	err := querier.QueryRowContext(ctx, query, id).Scan(
		&record.ID,
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

	return &record, nil
}

// ListBatch returns up to limit records starting at offset, ordered by
// creation time so repeated calls walk the full set.
func (p *PostgreSQLServerSecretRepository) ListBatch(
	ctx context.Context,
	limit, offset int,
) ([]*envelopeDomain.ServerSecretRecord, error) {
	querier := database.GetTx(ctx, p.db)

	query := `SELECT id, tenant_id, name, connection_type, command_encrypted, args_encrypted,
			  env_encrypted, url_encrypted, encryption_version, created_at, updated_at
			  FROM server_secrets
			  ORDER BY created_at, id
			  LIMIT $1 OFFSET $2`

	rows, err := querier.QueryContext(ctx, query, limit, offset)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to list server secrets")
	}
	defer func() { _ = rows.Close() }()

	var records []*envelopeDomain.ServerSecretRecord
	for rows.Next() {
		var record envelopeDomain.ServerSecretRecord
		if err := rows.Scan(
			&record.ID,
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
		records = append(records, &record)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.Wrap(err, "failed to iterate server secrets")
	}

	return records, nil
}

// Update persists the record's envelope fields and version stamp.
func (p *PostgreSQLServerSecretRepository) Update(
	ctx context.Context,
	record *envelopeDomain.ServerSecretRecord,
) error {
	querier := database.GetTx(ctx, p.db)

	query := `UPDATE server_secrets
			  SET command_encrypted = $1, args_encrypted = $2, env_encrypted = $3,
			      url_encrypted = $4, encryption_version = $5, updated_at = NOW()
			  WHERE id = $6`

	result, err := querier.ExecContext(
		ctx,
		query,
		record.CommandEncrypted,
		record.ArgsEncrypted,
		record.EnvEncrypted,
		record.URLEncrypted,
		record.EncryptionVersion,
		record.ID,
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
func (p *PostgreSQLServerSecretRepository) Delete(ctx context.Context, id uuid.UUID) error {
	querier := database.GetTx(ctx, p.db)

	result, err := querier.ExecContext(ctx, `DELETE FROM server_secrets WHERE id = $1`, id)
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
