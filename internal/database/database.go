// Package database provides database connection management and
// transaction utilities shared by the repositories.
package database

import (
	"database/sql"
	"time"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/lib/pq"

	apperrors "github.com/mcpdeck/guard/internal/errors"
)

// Supported driver names.
const (
	DriverPostgreSQL = "postgres"
	DriverMySQL      = "mysql"
)

// Config holds database connection settings.
type Config struct {
	Driver             string
	ConnectionString   string
	MaxOpenConnections int
	MaxIdleConnections int
	ConnMaxLifetime    time.Duration
}

// Connect opens a connection pool for the configured driver and verifies it
// with a ping.
func Connect(cfg Config) (*sql.DB, error) {
	if cfg.Driver != DriverPostgreSQL && cfg.Driver != DriverMySQL {
		return nil, apperrors.Wrapf(apperrors.ErrInvalidInput, "unsupported database driver %q", cfg.Driver)
	}

	db, err := sql.Open(cfg.Driver, cfg.ConnectionString)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to open database")
	}

	db.SetMaxOpenConns(cfg.MaxOpenConnections)
	db.SetMaxIdleConns(cfg.MaxIdleConnections)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	if err := db.Ping(); err != nil {
		return nil, apperrors.Wrap(err, "failed to ping database")
	}

	return db, nil
}
