package repository

import (
	"context"
	"database/sql"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/mcpdeck/guard/internal/errors"
)

func TestMySQLServerSecretRepository_Create(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	record := newTestRecord(t)
	mock.ExpectExec("INSERT INTO server_secrets").
		WithArgs(
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
		).
		WillReturnResult(sqlmock.NewResult(0, 1))

	repo := NewMySQLServerSecretRepository(db)
	err = repo.Create(context.Background(), record)
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMySQLServerSecretRepository_GetByID(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	record := newTestRecord(t)
	rows := sqlmock.NewRows(serverSecretColumns).AddRow(
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
	mock.ExpectQuery("SELECT (.+) FROM server_secrets").
		WithArgs(record.ID.String()).
		WillReturnRows(rows)

	repo := NewMySQLServerSecretRepository(db)
	got, err := repo.GetByID(context.Background(), record.ID)
	require.NoError(t, err)
	assert.Equal(t, record.ID, got.ID)
	assert.Equal(t, record.CommandEncrypted, got.CommandEncrypted)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMySQLServerSecretRepository_GetByID_NotFound(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	id := uuid.Must(uuid.NewV7())
	mock.ExpectQuery("SELECT (.+) FROM server_secrets").
		WithArgs(id.String()).
		WillReturnError(sql.ErrNoRows)

	repo := NewMySQLServerSecretRepository(db)
	got, err := repo.GetByID(context.Background(), id)
	assert.Nil(t, got)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMySQLServerSecretRepository_ListBatch(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	record := newTestRecord(t)
	rows := sqlmock.NewRows(serverSecretColumns).AddRow(
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
	mock.ExpectQuery("SELECT (.+) FROM server_secrets").
		WithArgs(5, 0).
		WillReturnRows(rows)

	repo := NewMySQLServerSecretRepository(db)
	records, err := repo.ListBatch(context.Background(), 5, 0)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, record.ID, records[0].ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMySQLServerSecretRepository_Update(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	record := newTestRecord(t)
	mock.ExpectExec("UPDATE server_secrets").
		WithArgs(
			record.CommandEncrypted,
			record.ArgsEncrypted,
			record.EnvEncrypted,
			record.URLEncrypted,
			record.EncryptionVersion,
			record.ID.String(),
		).
		WillReturnResult(sqlmock.NewResult(0, 1))

	repo := NewMySQLServerSecretRepository(db)
	err = repo.Update(context.Background(), record)
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMySQLServerSecretRepository_Delete_NotFound(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	id := uuid.Must(uuid.NewV7())
	mock.ExpectExec("DELETE FROM server_secrets").
		WithArgs(id.String()).
		WillReturnResult(sqlmock.NewResult(0, 0))

	repo := NewMySQLServerSecretRepository(db)
	err = repo.Delete(context.Background(), id)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}
