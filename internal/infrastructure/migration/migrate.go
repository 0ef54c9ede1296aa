package migration

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"go.uber.org/zap"
)

//go:embed sql/*.sql
var embedded embed.FS

// Migrator applies the PostgreSQL schema of the plot mirror with
// golang-migrate. SQLite stores are created with GORM AutoMigrate instead.
type Migrator struct {
	m   *migrate.Migrate
	log *zap.Logger
}

// Option picks where migrations are read from
type Option func(*options)

type options struct {
	dir string
}

// FromDir reads migrations from a directory instead of the copies compiled
// into the binary
func FromDir(dir string) Option {
	return func(o *options) { o.dir = dir }
}

// New wraps db, which the migrator closes on Close.
func New(db *sql.DB, log *zap.Logger, opts ...Option) (*Migrator, error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	driver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		return nil, fmt.Errorf("postgres migrate driver: %w", err)
	}

	var m *migrate.Migrate
	if o.dir != "" {
		m, err = migrate.NewWithDatabaseInstance("file://"+o.dir, "postgres", driver)
	} else {
		src, serr := iofs.New(embedded, "sql")
		if serr != nil {
			return nil, fmt.Errorf("embedded migrations: %w", serr)
		}
		m, err = migrate.NewWithInstance("iofs", src, "postgres", driver)
	}
	if err != nil {
		return nil, fmt.Errorf("open migrations: %w", err)
	}
	return &Migrator{m: m, log: log}, nil
}

// apply runs one migrate operation. An up-to-date schema is not an error.
func (m *Migrator) apply(op string, fn func() error) (changed bool, err error) {
	m.log.Info("Migrating", zap.String("op", op))
	switch err := fn(); {
	case errors.Is(err, migrate.ErrNoChange):
		m.log.Info("Schema already current", zap.String("op", op))
		return false, nil
	case err != nil:
		return false, fmt.Errorf("migrate %s: %w", op, err)
	}
	return true, nil
}

func (m *Migrator) applyAndReport(op string, fn func() error) error {
	changed, err := m.apply(op, fn)
	if err != nil || !changed {
		return err
	}
	version, dirty, err := m.Version()
	if err != nil {
		return err
	}
	m.log.Info("Migration finished", zap.String("op", op), zap.Uint("version", version), zap.Bool("dirty", dirty))
	return nil
}

// Up applies every pending migration
func (m *Migrator) Up() error {
	return m.applyAndReport("up", m.m.Up)
}

// Down rolls every migration back
func (m *Migrator) Down() error {
	return m.applyAndReport("down", m.m.Down)
}

// Steps applies n migrations; negative n rolls back
func (m *Migrator) Steps(n int) error {
	return m.applyAndReport(fmt.Sprintf("steps %d", n), func() error { return m.m.Steps(n) })
}

// GoTo migrates up or down to version
func (m *Migrator) GoTo(version uint) error {
	return m.applyAndReport(fmt.Sprintf("goto %d", version), func() error { return m.m.Migrate(version) })
}

// Version returns 0 when no migration has been applied
func (m *Migrator) Version() (uint, bool, error) {
	version, dirty, err := m.m.Version()
	if errors.Is(err, migrate.ErrNilVersion) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("migration version: %w", err)
	}
	return version, dirty, nil
}

// Force records version without running anything. It clears a dirty flag
// left by a failed migration.
func (m *Migrator) Force(version int) error {
	m.log.Warn("Forcing migration version", zap.Int("version", version))
	if err := m.m.Force(version); err != nil {
		return fmt.Errorf("force version %d: %w", version, err)
	}
	return nil
}

// Drop removes every object in the database
func (m *Migrator) Drop() error {
	m.log.Warn("Dropping all database objects")
	if err := m.m.Drop(); err != nil {
		return fmt.Errorf("drop: %w", err)
	}
	return nil
}

// Close releases the source and the database
func (m *Migrator) Close() error {
	srcErr, dbErr := m.m.Close()
	return errors.Join(srcErr, dbErr)
}
