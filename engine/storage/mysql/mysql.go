// Package mysql implements a workflow engine storage backend using MySQL.
package mysql

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"time"

	"github.com/assessflow/assessflow/utils/uuid"

	"github.com/go-sql-driver/mysql"
)

// Schema contains the MySQL schema for the workflow engine storage.
//
//go:embed schema.sql
var Schema string

// mySQLErrDupEntry is the MySQL error number for a unique key violation.
const mySQLErrDupEntry = 1062

// MySQLStorage implements a storage.Storage using MySQL.
// The DSN must enable parseTime so DATETIME columns scan into time.Time.
type MySQLStorage struct {
	db   *sql.DB
	ider uuid.IDer
}

type config struct {
	driver string
	dsn    string
	db     *sql.DB
	ider   uuid.IDer
}

// Option allows configuring a MySQLStorage.
type Option func(*config)

// WithDSN sets the storage MySQL data source name.
func WithDSN(dsn string) Option {
	return func(c *config) {
		c.dsn = dsn
	}
}

// WithDriver sets a custom MySQL driver for the storage.
//
// Default driver is "mysql".
// Value is ignored if WithDB is used.
func WithDriver(driver string) Option {
	return func(c *config) {
		c.driver = driver
	}
}

// WithDB sets a custom MySQL *sql.DB to the storage.
//
// If set, driver passed via WithDriver is ignored.
func WithDB(db *sql.DB) Option {
	return func(c *config) {
		c.db = db
	}
}

// WithIDer sets the workflow ID generator. Default is random UUIDs.
func WithIDer(ider uuid.IDer) Option {
	return func(c *config) {
		c.ider = ider
	}
}

// New creates and returns a new MySQLStorage.
func New(opts ...Option) (*MySQLStorage, error) {
	cfg := &config{driver: "mysql", ider: uuid.NewUUID()}
	for _, opt := range opts {
		opt(cfg)
	}
	var err error
	if cfg.db == nil {
		cfg.db, err = sql.Open(cfg.driver, cfg.dsn)
		if err != nil {
			return nil, err
		}
	}
	if err = cfg.db.Ping(); err != nil {
		return nil, err
	}
	return &MySQLStorage{db: cfg.db, ider: cfg.ider}, nil
}

func now() time.Time {
	return time.Now().UTC().Truncate(time.Microsecond)
}

// isDupEntry returns true if err is a MySQL unique key violation.
func isDupEntry(err error) bool {
	var myErr *mysql.MySQLError
	return errors.As(err, &myErr) && myErr.Number == mySQLErrDupEntry
}

// txcb executes SQL within transactions when wrapped in tx().
type txcb func(ctx context.Context, tx *sql.Tx) error

// tx wraps g in transactions using db.
// If g returns an err the transaction will be rolled back; otherwise committed.
func tx(ctx context.Context, db *sql.DB, g txcb) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("tx begin: %w", err)
	}
	if err = g(ctx, tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return fmt.Errorf("tx rollback: %w; while trying to handle error: %v", rbErr, err)
		}
		return fmt.Errorf("tx rolled back: %w", err)
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("tx commit: %w", err)
	}
	return nil
}
