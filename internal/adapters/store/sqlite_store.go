package store

import (
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"
)

var sqliteSchema = []string{
	`CREATE TABLE IF NOT EXISTS batches (
		id TEXT PRIMARY KEY,
		completed_at TEXT NOT NULL,
		total_emails INTEGER,
		cancellation_count INTEGER,
		vendor_related INTEGER,
		high_priority INTEGER,
		skipped INTEGER,
		cancellation_rate REAL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_batches_completed_at ON batches(completed_at)`,
	`CREATE TABLE IF NOT EXISTS results (
		batch_id TEXT NOT NULL,
		position INTEGER NOT NULL,
		message_id TEXT,
		subject TEXT,
		sender TEXT,
		received_at TEXT,
		is_cancellation BOOLEAN,
		confidence_score REAL,
		priority TEXT,
		vendor_related BOOLEAN,
		order_numbers TEXT,
		keywords TEXT,
		PRIMARY KEY (batch_id, position)
	)`,
}

// SQLiteStore is a SQLite implementation of the ResultStore interface
type SQLiteStore struct {
	*sqlStore
}

// NewSQLiteStore opens (and if needed creates) the SQLite database at dbPath
func NewSQLiteStore(dbPath string, logger *zap.Logger, retention time.Duration) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open SQLite database: %w", err)
	}
	// a single writer avoids "database is locked"
	db.SetMaxOpenConns(1)

	base, err := newSQLStore(db, logger, retention, "sqlite3", sqliteSchema)
	if err != nil {
		db.Close()
		return nil, err
	}
	return &SQLiteStore{sqlStore: base}, nil
}
