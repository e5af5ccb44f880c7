package postgres

import (
	stderrors "errors"
	"path/filepath"
	"strings"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/pgx/v5"
	_ "github.com/golang-migrate/migrate/v4/source/file"

	"github.com/turtacn/BlindDock/internal/config"
	"github.com/turtacn/BlindDock/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/BlindDock/pkg/errors"
)

// DefaultMigrationPath is used when the configuration names none.
const DefaultMigrationPath = "migrations"

// MigrationURL renders cfg for the golang-migrate pgx/v5 driver.
func MigrationURL(cfg config.DatabaseConfig) string {
	return "pgx5" + strings.TrimPrefix(BuildDSN(cfg), "postgres")
}

// SourceURL turns a migrations directory into a file:// source URL.
func SourceURL(path string) string {
	if path == "" {
		path = DefaultMigrationPath
	}
	if strings.Contains(path, "://") {
		return path
	}
	if abs, err := filepath.Abs(path); err == nil {
		path = abs
	}
	return "file://" + filepath.ToSlash(path)
}

// Migrator applies the schema migrations.
type Migrator struct {
	m      *migrate.Migrate
	logger logging.Logger
}

// NewMigrator opens its own connection to the database in cfg.
func NewMigrator(cfg config.DatabaseConfig, log logging.Logger) (*Migrator, error) {
	if log == nil {
		log = logging.NewNopLogger()
	}
	m, err := migrate.New(SourceURL(cfg.MigrationPath), MigrationURL(cfg))
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to create migrate instance")
	}
	return &Migrator{m: m, logger: log.Named("migrator")}, nil
}

// Up applies every pending migration.  No pending migration is not an
// error.
func (mg *Migrator) Up() error {
	if err := mg.m.Up(); err != nil && !stderrors.Is(err, migrate.ErrNoChange) {
		return errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to run migrations")
	}
	version, dirty, _ := mg.Status()
	mg.logger.Info("Database migrations completed", logging.Int64("version", int64(version)), logging.Bool("dirty", dirty))
	return nil
}

// Down rolls back steps migrations.
func (mg *Migrator) Down(steps int) error {
	if steps <= 0 {
		return errors.InvalidParam("steps must be greater than 0")
	}
	if err := mg.m.Steps(-steps); err != nil {
		if stderrors.Is(err, migrate.ErrNoChange) {
			return errors.New(errors.ErrCodeConflict, "no migrations to roll back")
		}
		return errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to roll back migrations").WithDetailf("%d step(s)", steps)
	}
	mg.logger.Info("Rolled back migrations", logging.Int("steps", steps))
	return nil
}

// Status returns the applied version and whether a migration left the
// schema dirty.  A database without migrations reports version 0.
func (mg *Migrator) Status() (version uint, dirty bool, err error) {
	version, dirty, err = mg.m.Version()
	if stderrors.Is(err, migrate.ErrNilVersion) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to read migration version")
	}
	return version, dirty, nil
}

// Close releases the source and database handles.
func (mg *Migrator) Close() error {
	srcErr, dbErr := mg.m.Close()
	if srcErr != nil {
		return srcErr
	}
	return dbErr
}

//Personal.AI order the ending
