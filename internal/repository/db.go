package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
)

type DBConfig struct {
	Driver          string
	DSN             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// OpenDB connects to postgres or sqlite3 and verifies the connection.
func OpenDB(ctx context.Context, cfg DBConfig) (*sqlx.DB, error) {
	db, err := sqlx.ConnectContext(ctx, cfg.Driver, cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("connect %s: %w", cfg.Driver, err)
	}

	if cfg.Driver == "sqlite3" {
		// sqlite serializes writers; in-memory databases are per connection.
		db.SetMaxOpenConns(1)
		return db, nil
	}
	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		db.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}
	return db, nil
}

// SQLiteSchema creates the subset of application tables this service reads
// and writes. Postgres deployments own their schema elsewhere.
const SQLiteSchema = `
CREATE TABLE IF NOT EXISTS users (
	id INTEGER PRIMARY KEY,
	email TEXT NOT NULL,
	phone TEXT
);
CREATE TABLE IF NOT EXISTS stocks (
	stockid INTEGER PRIMARY KEY,
	symbol TEXT NOT NULL UNIQUE,
	currentprice NUMERIC,
	dayhigh NUMERIC,
	daylow NUMERIC,
	updatedat TIMESTAMP
);
CREATE TABLE IF NOT EXISTS watchlist (
	id INTEGER PRIMARY KEY,
	user_id INTEGER NOT NULL REFERENCES users(id),
	stock_id INTEGER NOT NULL REFERENCES stocks(stockid)
);
CREATE TABLE IF NOT EXISTS alerts (
	id INTEGER PRIMARY KEY,
	user_id INTEGER NOT NULL REFERENCES users(id),
	stock_id INTEGER NOT NULL REFERENCES stocks(stockid),
	target_price NUMERIC NOT NULL,
	direction TEXT NOT NULL,
	triggered BOOLEAN NOT NULL DEFAULT FALSE,
	alert_method TEXT
);
`

// InitSQLiteSchema is used for local runs and tests.
func InitSQLiteSchema(ctx context.Context, db *sqlx.DB) error {
	if _, err := db.ExecContext(ctx, SQLiteSchema); err != nil {
		return fmt.Errorf("init sqlite schema: %w", err)
	}
	return nil
}
