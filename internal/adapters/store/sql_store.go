package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/mikey/cancellation-tracker/internal/core"
	"go.uber.org/zap"
)

// sqlStore holds the queries shared by the SQLite and MySQL stores
type sqlStore struct {
	db        *sql.DB
	logger    *zap.Logger
	retention time.Duration
	now       func() time.Time
	driver    string
}

func newSQLStore(db *sql.DB, logger *zap.Logger, retention time.Duration, driver string, schema []string) (*sqlStore, error) {
	for _, stmt := range schema {
		if _, err := db.Exec(stmt); err != nil {
			return nil, fmt.Errorf("failed to create schema: %w", err)
		}
	}
	return &sqlStore{
		db:        db,
		logger:    logger,
		retention: retention,
		now:       time.Now,
		driver:    driver,
	}, nil
}

// SaveBatch stores a batch and its results in one transaction
func (s *sqlStore) SaveBatch(ctx context.Context, batch *core.BatchRecord) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO batches (id, completed_at, total_emails, cancellation_count, vendor_related,
			high_priority, skipped, cancellation_rate)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, batch.ID, formatTime(batch.CompletedAt), batch.TotalEmails, batch.CancellationCount,
		batch.VendorRelated, batch.HighPriority, batch.Skipped, batch.CancellationRate)
	if err != nil {
		return fmt.Errorf("failed to insert batch: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO results (batch_id, position, message_id, subject, sender, received_at,
			is_cancellation, confidence_score, priority, vendor_related, order_numbers, keywords)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare result insert: %w", err)
	}
	defer stmt.Close()

	for i, r := range batch.Results {
		orderNumbers, err := encodeList(r.OrderNumbers)
		if err != nil {
			return err
		}
		keywords, err := encodeList(r.Keywords)
		if err != nil {
			return err
		}
		_, err = stmt.ExecContext(ctx, batch.ID, i, r.MessageID, r.Subject, r.Sender,
			formatTime(r.ReceivedAt), r.IsCancellation, r.ConfidenceScore, string(r.Priority),
			r.VendorRelated, orderNumbers, keywords)
		if err != nil {
			return fmt.Errorf("failed to insert result %s: %w", r.MessageID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit batch: %w", err)
	}

	s.logger.Debug("Stored batch",
		zap.String("driver", s.driver),
		zap.String("batch_id", batch.ID),
		zap.Int("results", len(batch.Results)))
	return nil
}

// GetBatch retrieves a batch with its results
func (s *sqlStore) GetBatch(ctx context.Context, id string) (*core.BatchRecord, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, completed_at, total_emails, cancellation_count, vendor_related,
			high_priority, skipped, cancellation_rate
		FROM batches
		WHERE id = ?
	`, id)
	batch, err := scanBatch(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to query batch: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT message_id, subject, sender, received_at, is_cancellation, confidence_score,
			priority, vendor_related, order_numbers, keywords
		FROM results
		WHERE batch_id = ?
		ORDER BY position
	`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to query results: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			r                      core.ResultRecord
			receivedAt, priority   string
			orderNumbers, keywords string
		)
		if err := rows.Scan(&r.MessageID, &r.Subject, &r.Sender, &receivedAt, &r.IsCancellation,
			&r.ConfidenceScore, &priority, &r.VendorRelated, &orderNumbers, &keywords); err != nil {
			return nil, fmt.Errorf("failed to scan result: %w", err)
		}
		if r.ReceivedAt, err = parseTime(receivedAt); err != nil {
			return nil, fmt.Errorf("failed to parse received_at: %w", err)
		}
		r.Priority = core.Priority(priority)
		if r.OrderNumbers, err = decodeList(orderNumbers); err != nil {
			return nil, err
		}
		if r.Keywords, err = decodeList(keywords); err != nil {
			return nil, err
		}
		batch.Results = append(batch.Results, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read results: %w", err)
	}
	return batch, nil
}

// ListBatches returns the most recent batches first, without results
func (s *sqlStore) ListBatches(ctx context.Context, limit int) ([]*core.BatchRecord, error) {
	query := `
		SELECT id, completed_at, total_emails, cancellation_count, vendor_related,
			high_priority, skipped, cancellation_rate
		FROM batches
		ORDER BY completed_at DESC, id
	`
	args := []interface{}{}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list batches: %w", err)
	}
	defer rows.Close()

	var batches []*core.BatchRecord
	for rows.Next() {
		batch, err := scanBatch(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan batch: %w", err)
		}
		batches = append(batches, batch)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read batches: %w", err)
	}
	return batches, nil
}

// Cleanup removes batches older than the retention period
func (s *sqlStore) Cleanup(ctx context.Context) error {
	if s.retention <= 0 {
		return nil
	}
	cutoff := formatTime(s.now().Add(-s.retention))

	if _, err := s.db.ExecContext(ctx, `
		DELETE FROM results
		WHERE batch_id IN (SELECT id FROM batches WHERE completed_at < ?)
	`, cutoff); err != nil {
		return fmt.Errorf("failed to clean up old results: %w", err)
	}

	result, err := s.db.ExecContext(ctx, `
		DELETE FROM batches
		WHERE completed_at < ?
	`, cutoff)
	if err != nil {
		return fmt.Errorf("failed to clean up old batches: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		s.logger.Warn("Failed to get rows affected during cleanup", zap.Error(err))
	} else {
		s.logger.Debug("Cleaned up old batches", zap.Int64("removed_count", rowsAffected))
	}

	return nil
}

// Close closes the database connection
func (s *sqlStore) Close() error {
	return s.db.Close()
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanBatch(row scanner) (*core.BatchRecord, error) {
	var (
		b           core.BatchRecord
		completedAt string
	)
	if err := row.Scan(&b.ID, &completedAt, &b.TotalEmails, &b.CancellationCount, &b.VendorRelated,
		&b.HighPriority, &b.Skipped, &b.CancellationRate); err != nil {
		return nil, err
	}
	t, err := parseTime(completedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to parse completed_at: %w", err)
	}
	b.CompletedAt = t
	return &b, nil
}

func encodeList(items []string) (string, error) {
	if items == nil {
		items = []string{}
	}
	data, err := json.Marshal(items)
	if err != nil {
		return "", fmt.Errorf("failed to encode list: %w", err)
	}
	return string(data), nil
}

func decodeList(data string) ([]string, error) {
	var items []string
	if err := json.Unmarshal([]byte(data), &items); err != nil {
		return nil, fmt.Errorf("failed to decode list: %w", err)
	}
	if len(items) == 0 {
		return nil, nil
	}
	return items, nil
}
