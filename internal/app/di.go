// Package app provides the dependency injection container assembling the
// guard components.
package app

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"sync"

	"github.com/mcpdeck/guard/internal/config"
	"github.com/mcpdeck/guard/internal/database"
	envelopeRepository "github.com/mcpdeck/guard/internal/envelope/repository"
	envelopeService "github.com/mcpdeck/guard/internal/envelope/service"
	envelopeUseCase "github.com/mcpdeck/guard/internal/envelope/usecase"
	"github.com/mcpdeck/guard/internal/metrics"
	urlguardDomain "github.com/mcpdeck/guard/internal/urlguard/domain"
	urlguardService "github.com/mcpdeck/guard/internal/urlguard/service"
)

// Container holds all application dependencies and provides methods to
// access them. Components are created lazily on first access.
type Container struct {
	// Configuration
	config *config.Config

	// Infrastructure
	logger          *slog.Logger
	db              *sql.DB
	metricsProvider *metrics.Provider
	businessMetrics metrics.BusinessMetrics

	// Managers
	txManager database.TxManager

	// Security components
	engine       *envelopeService.Engine
	recordCipher *envelopeService.RecordCipher
	urlValidator urlguardService.URLValidator

	// Repositories and use cases
	serverSecretRepo envelopeUseCase.ServerSecretRepository
	envelopeMigrator envelopeUseCase.EnvelopeMigrator

	// Initialization flags and mutex for thread-safety
	mu                   sync.Mutex
	loggerInit           sync.Once
	dbInit               sync.Once
	metricsProviderInit  sync.Once
	businessMetricsInit  sync.Once
	txManagerInit        sync.Once
	engineInit           sync.Once
	recordCipherInit     sync.Once
	urlValidatorInit     sync.Once
	serverSecretRepoInit sync.Once
	envelopeMigratorInit sync.Once
	initErrors           map[string]error
}

// NewContainer creates a new dependency injection container with the
// provided configuration.
func NewContainer(cfg *config.Config) *Container {
	return &Container{
		config:     cfg,
		initErrors: make(map[string]error),
	}
}

// Config returns the application configuration.
func (c *Container) Config() *config.Config {
	return c.config
}

// Logger returns the configured logger instance.
func (c *Container) Logger() *slog.Logger {
	c.loggerInit.Do(func() {
		c.logger = c.initLogger()
	})
	return c.logger
}

// DB returns the database connection, creating it on first access.
func (c *Container) DB() (*sql.DB, error) {
	c.dbInit.Do(func() {
		db, err := c.initDB()
		if err != nil {
			c.initErrors["db"] = err
			return
		}
		c.db = db
	})
	if storedErr, exists := c.initErrors["db"]; exists {
		return nil, storedErr
	}
	return c.db, nil
}

// MetricsProvider returns the metrics provider, creating it on first access.
func (c *Container) MetricsProvider() (*metrics.Provider, error) {
	c.metricsProviderInit.Do(func() {
		provider, err := metrics.NewProvider(c.config.MetricsNamespace)
		if err != nil {
			c.initErrors["metricsProvider"] = err
			return
		}
		c.metricsProvider = provider
	})
	if storedErr, exists := c.initErrors["metricsProvider"]; exists {
		return nil, storedErr
	}
	return c.metricsProvider, nil
}

// BusinessMetrics returns the operation metrics recorder. A no-op recorder
// is returned when metrics are disabled in configuration.
func (c *Container) BusinessMetrics() (metrics.BusinessMetrics, error) {
	c.businessMetricsInit.Do(func() {
		bm, err := c.initBusinessMetrics()
		if err != nil {
			c.initErrors["businessMetrics"] = err
			return
		}
		c.businessMetrics = bm
	})
	if storedErr, exists := c.initErrors["businessMetrics"]; exists {
		return nil, storedErr
	}
	return c.businessMetrics, nil
}

// TxManager returns the transaction manager.
func (c *Container) TxManager() (database.TxManager, error) {
	c.txManagerInit.Do(func() {
		db, err := c.DB()
		if err != nil {
			c.initErrors["txManager"] = fmt.Errorf("failed to get database for tx manager: %w", err)
			return
		}
		c.txManager = database.NewTxManager(db)
	})
	if storedErr, exists := c.initErrors["txManager"]; exists {
		return nil, storedErr
	}
	return c.txManager, nil
}

// Engine returns the envelope encryption engine. Construction fails when the
// base secret is missing or too weak.
func (c *Container) Engine() (*envelopeService.Engine, error) {
	c.engineInit.Do(func() {
		engine, err := envelopeService.NewEngine(c.config.EncryptionBaseSecret)
		if err != nil {
			c.initErrors["engine"] = fmt.Errorf("failed to create envelope engine: %w", err)
			return
		}
		c.engine = engine
	})
	if storedErr, exists := c.initErrors["engine"]; exists {
		return nil, storedErr
	}
	return c.engine, nil
}

// RecordCipher returns the record-level encryption helper.
func (c *Container) RecordCipher() (*envelopeService.RecordCipher, error) {
	c.recordCipherInit.Do(func() {
		engine, err := c.Engine()
		if err != nil {
			c.initErrors["recordCipher"] = fmt.Errorf("failed to get engine for record cipher: %w", err)
			return
		}
		c.recordCipher = envelopeService.NewRecordCipher(engine, c.Logger())
	})
	if storedErr, exists := c.initErrors["recordCipher"]; exists {
		return nil, storedErr
	}
	return c.recordCipher, nil
}

// URLValidator returns the URL validator with trust profiles built from
// configuration. Development mode relaxes the localhost restriction.
func (c *Container) URLValidator() (urlguardService.URLValidator, error) {
	c.urlValidatorInit.Do(func() {
		validator, err := c.initURLValidator()
		if err != nil {
			c.initErrors["urlValidator"] = err
			return
		}
		c.urlValidator = validator
	})
	if storedErr, exists := c.initErrors["urlValidator"]; exists {
		return nil, storedErr
	}
	return c.urlValidator, nil
}

// ServerSecretRepository returns the server secret repository for the
// configured database driver.
func (c *Container) ServerSecretRepository() (envelopeUseCase.ServerSecretRepository, error) {
	c.serverSecretRepoInit.Do(func() {
		repo, err := c.initServerSecretRepository()
		if err != nil {
			c.initErrors["serverSecretRepo"] = err
			return
		}
		c.serverSecretRepo = repo
	})
	if storedErr, exists := c.initErrors["serverSecretRepo"]; exists {
		return nil, storedErr
	}
	return c.serverSecretRepo, nil
}

// EnvelopeMigrator returns the legacy envelope migration runner.
func (c *Container) EnvelopeMigrator() (envelopeUseCase.EnvelopeMigrator, error) {
	c.envelopeMigratorInit.Do(func() {
		migrator, err := c.initEnvelopeMigrator()
		if err != nil {
			c.initErrors["envelopeMigrator"] = err
			return
		}
		c.envelopeMigrator = migrator
	})
	if storedErr, exists := c.initErrors["envelopeMigrator"]; exists {
		return nil, storedErr
	}
	return c.envelopeMigrator, nil
}

// Shutdown performs cleanup of all initialized resources.
func (c *Container) Shutdown(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	var shutdownErrors []error

	if c.metricsProvider != nil {
		if err := c.metricsProvider.Shutdown(ctx); err != nil {
			shutdownErrors = append(shutdownErrors, fmt.Errorf("metrics provider shutdown: %w", err))
		}
	}

	if c.db != nil {
		if err := c.db.Close(); err != nil {
			shutdownErrors = append(shutdownErrors, fmt.Errorf("database close: %w", err))
		}
	}

	if len(shutdownErrors) > 0 {
		return fmt.Errorf("shutdown errors: %v", shutdownErrors)
	}

	return nil
}

// initLogger creates a structured logger based on the configured log level.
func (c *Container) initLogger() *slog.Logger {
	var logLevel slog.Level
	switch c.config.LogLevel {
	case "debug":
		logLevel = slog.LevelDebug
	case "info":
		logLevel = slog.LevelInfo
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}

	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel,
	})

	return slog.New(handler)
}

// initDB creates and configures the database connection.
func (c *Container) initDB() (*sql.DB, error) {
	db, err := database.Connect(database.Config{
		Driver:             c.config.DBDriver,
		ConnectionString:   c.config.DBConnectionString,
		MaxOpenConnections: c.config.DBMaxOpenConnections,
		MaxIdleConnections: c.config.DBMaxIdleConnections,
		ConnMaxLifetime:    c.config.DBConnMaxLifetime,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	return db, nil
}

// initBusinessMetrics creates the operation metrics recorder.
func (c *Container) initBusinessMetrics() (metrics.BusinessMetrics, error) {
	if !c.config.MetricsEnabled {
		return metrics.NewNoOpBusinessMetrics(), nil
	}

	provider, err := c.MetricsProvider()
	if err != nil {
		return nil, fmt.Errorf("failed to get metrics provider: %w", err)
	}

	bm, err := metrics.NewBusinessMetrics(provider.MeterProvider(), c.config.MetricsNamespace)
	if err != nil {
		return nil, fmt.Errorf("failed to create business metrics: %w", err)
	}
	return bm, nil
}

// initURLValidator builds the trust profiles once and wraps the validator
// with metrics instrumentation.
func (c *Container) initURLValidator() (urlguardService.URLValidator, error) {
	allowLocalhost := c.config.IsDevelopment()

	validator := urlguardService.NewValidator(
		urlguardDomain.ExternalPolicy(c.config.URLAllowedDomains, allowLocalhost),
		urlguardDomain.InternalPolicy(allowLocalhost),
	)

	bm, err := c.BusinessMetrics()
	if err != nil {
		return nil, fmt.Errorf("failed to get metrics for url validator: %w", err)
	}

	return urlguardService.NewValidatorWithMetrics(validator, bm), nil
}

// initServerSecretRepository selects the repository implementation for the
// configured database driver.
func (c *Container) initServerSecretRepository() (envelopeUseCase.ServerSecretRepository, error) {
	db, err := c.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database for server secret repository: %w", err)
	}

	switch c.config.DBDriver {
	case database.DriverMySQL:
		return envelopeRepository.NewMySQLServerSecretRepository(db), nil
	case database.DriverPostgreSQL:
		return envelopeRepository.NewPostgreSQLServerSecretRepository(db), nil
	default:
		return nil, fmt.Errorf("unsupported database driver: %s", c.config.DBDriver)
	}
}

// initEnvelopeMigrator assembles the migration runner with its repository,
// engine and metrics decorator.
func (c *Container) initEnvelopeMigrator() (envelopeUseCase.EnvelopeMigrator, error) {
	repo, err := c.ServerSecretRepository()
	if err != nil {
		return nil, fmt.Errorf("failed to get repository for envelope migrator: %w", err)
	}

	engine, err := c.Engine()
	if err != nil {
		return nil, fmt.Errorf("failed to get engine for envelope migrator: %w", err)
	}

	bm, err := c.BusinessMetrics()
	if err != nil {
		return nil, fmt.Errorf("failed to get metrics for envelope migrator: %w", err)
	}

	migrator := envelopeUseCase.NewMigrateUseCase(
		repo,
		engine,
		c.Logger(),
		c.config.MigrationBatchSize,
		c.config.MigrationConcurrency,
	)

	return envelopeUseCase.NewMigratorWithMetrics(migrator, bm), nil
}
