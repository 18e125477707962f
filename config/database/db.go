package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"clariox/config"
	"clariox/pkg/logger"

	_ "github.com/lib/pq"
)

// Connect opens the Postgres pool and pings it, retrying on temporary
// DNS/network failures.
func Connect(cfg config.DatabaseConfig) (*sql.DB, error) {
	db, err := sql.Open("postgres", cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("open database connection: %w", err)
	}

	if err := ping(db, cfg.ConnectRetries, cfg.RetryDelay); err != nil {
		db.Close()
		return nil, err
	}
	logger.Sugar.Info("Successfully connected to the database")
	return db, nil
}

func ping(db *sql.DB, retries int, delay time.Duration) error {
	if retries < 1 {
		retries = 1
	}
	var err error
	for i := 0; i < retries; i++ {
		if err = db.Ping(); err == nil {
			return nil
		}
		if i < retries-1 {
			logger.Sugar.Infof("Database connection failed, retrying in %s... (%v)", delay, err)
			time.Sleep(delay)
		}
	}
	return fmt.Errorf("could not connect to database after %d attempts: %w", retries, err)
}

var schema = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id UUID PRIMARY KEY,
		email TEXT NOT NULL UNIQUE,
		password_hash TEXT NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE TABLE IF NOT EXISTS posts (
		id UUID PRIMARY KEY,
		owner_id UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		title TEXT NOT NULL DEFAULT 'Untitled',
		content JSONB NOT NULL,
		status TEXT NOT NULL DEFAULT 'draft',
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE INDEX IF NOT EXISTS posts_owner_updated_idx ON posts (owner_id, updated_at DESC)`,
}

// Migrate creates the tables the API needs when they do not exist yet.
func Migrate(ctx context.Context, db *sql.DB) error {
	for _, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return nil
}
