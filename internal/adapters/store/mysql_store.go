package store

import (
	"database/sql"
	"fmt"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"go.uber.org/zap"
)

var mysqlSchema = []string{
	`CREATE TABLE IF NOT EXISTS batches (
		id VARCHAR(36) PRIMARY KEY,
		completed_at VARCHAR(40) NOT NULL,
		total_emails INT,
		cancellation_count INT,
		vendor_related INT,
		high_priority INT,
		skipped INT,
		cancellation_rate DOUBLE,
		INDEX idx_batches_completed_at (completed_at)
	)`,
	`CREATE TABLE IF NOT EXISTS results (
		batch_id VARCHAR(36) NOT NULL,
		position INT NOT NULL,
		message_id VARCHAR(998),
		subject TEXT,
		sender VARCHAR(512),
		received_at VARCHAR(40),
		is_cancellation BOOLEAN,
		confidence_score DOUBLE,
		priority VARCHAR(16),
		vendor_related BOOLEAN,
		order_numbers TEXT,
		keywords TEXT,
		PRIMARY KEY (batch_id, position)
	)`,
}

// MySQLStore is a MySQL implementation of the ResultStore interface
type MySQLStore struct {
	*sqlStore
}

// NewMySQLStore connects to MySQL and creates the tables when missing
func NewMySQLStore(dsn string, logger *zap.Logger, retention time.Duration) (*MySQLStore, error) {
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open MySQL database: %w", err)
	}

	// Test the connection
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to MySQL database: %w", err)
	}

	base, err := newSQLStore(db, logger, retention, "mysql", mysqlSchema)
	if err != nil {
		db.Close()
		return nil, err
	}
	return &MySQLStore{sqlStore: base}, nil
}
