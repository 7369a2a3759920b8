package database

import (
	"errors"
	"fmt"

	"github.com/Gobusters/ectologger"
	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/jmoiron/sqlx"
)

type MigrationLogger struct {
	ectologger.Logger
}

func (l MigrationLogger) Verbose() bool {
	return true
}

func (l MigrationLogger) Printf(format string, v ...any) {
	l.Infof(format, v...)
}

type MigrationConfig struct {
	MigrationFolderPath string
	Version             uint
	Force               int
	AutoRollback        bool // Attempt to rollback to the previous version when a migration fails
}

type MigrationService struct {
	config *MigrationConfig
	logger ectologger.Logger
}

func NewMigrationService(logger ectologger.Logger, config *MigrationConfig) *MigrationService {
	return &MigrationService{
		config: config,
		logger: logger,
	}
}

// Run applies migrations from the configured folder. Version 0 means latest;
// a non-zero Force marks the schema at that version before migrating.
func (ms *MigrationService) Run(db *sqlx.DB, databaseName string) error {
	driver, err := postgres.WithInstance(db.DB, &postgres.Config{})
	if err != nil {
		return fmt.Errorf("failed to create migration driver: %w", err)
	}

	m, err := migrate.NewWithDatabaseInstance(
		fmt.Sprintf("file://%s", ms.config.MigrationFolderPath),
		databaseName,
		driver,
	)
	if err != nil {
		return fmt.Errorf("failed to create migrator: %w", err)
	}
	m.Log = MigrationLogger{ms.logger}

	if ms.config.Force > 0 {
		if err := m.Force(ms.config.Force); err != nil {
			return fmt.Errorf("failed to force migration version %d: %w", ms.config.Force, err)
		}
	}

	if ms.config.Version > 0 {
		err = m.Migrate(ms.config.Version)
	} else {
		err = m.Up()
	}

	if err != nil && !errors.Is(err, migrate.ErrNoChange) {
		if ms.config.AutoRollback {
			ms.logger.WithError(err).Warn("Migration failed; attempting rollback")
			if rbErr := m.Steps(-1); rbErr != nil {
				ms.logger.WithError(rbErr).Error("Rollback failed")
			}
		}
		return fmt.Errorf("migration failed: %w", err)
	}

	return nil
}
