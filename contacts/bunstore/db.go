package bunstore

import (
	"database/sql"
	"errors"
	"fmt"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/lib/pq"
	"github.com/mattn/go-sqlite3"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/dialect/sqlitedialect"

	"github.com/goliatone/go-contact-cache/internal/guard"
)

const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// Config selects the database behind the store.
type Config struct {
	Driver string `mapstructure:"driver"`
	DSN    string `mapstructure:"dsn"`

	// MaxOpenConns caps the pool. SQLite is always limited to one connection
	// so that in-memory databases are shared.
	MaxOpenConns int `mapstructure:"max_open_conns"`
}

// DefaultConfig returns an in-memory SQLite configuration.
func DefaultConfig() Config {
	return Config{
		Driver:       DriverSQLite,
		DSN:          "file::memory:?cache=shared",
		MaxOpenConns: 10,
	}
}

// Validate checks the driver and DSN.
func (c Config) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.Driver, validation.Required, validation.In(DriverSQLite, DriverPostgres)),
		validation.Field(&c.DSN, validation.Required),
		validation.Field(&c.MaxOpenConns, validation.Min(0)),
	)
}

// Open connects to the configured database and returns a bun handle with the
// matching dialect.
func Open(cfg Config) (*bun.DB, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%w: database config: %v", guard.ErrInvalidArgument, err)
	}

	switch cfg.Driver {
	case DriverSQLite:
		sqldb, err := sql.Open("sqlite3", cfg.DSN)
		if err != nil {
			return nil, storeError("open sqlite", err)
		}
		sqldb.SetMaxOpenConns(1)
		return bun.NewDB(sqldb, sqlitedialect.New()), nil
	default:
		sqldb, err := sql.Open("postgres", cfg.DSN)
		if err != nil {
			return nil, storeError("open postgres", err)
		}
		if cfg.MaxOpenConns > 0 {
			sqldb.SetMaxOpenConns(cfg.MaxOpenConns)
		}
		return bun.NewDB(sqldb, pgdialect.New()), nil
	}
}

// isUniqueViolation recognises primary key and unique constraint errors from
// both supported drivers.
func isUniqueViolation(err error) bool {
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.Code == sqlite3.ErrConstraint
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "23505"
	}
	return false
}
