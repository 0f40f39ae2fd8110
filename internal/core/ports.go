package core

import (
	"context"
)

// ResultStore persists analyzed batches
type ResultStore interface {
	// SaveBatch stores a batch with its result rows
	SaveBatch(ctx context.Context, batch *BatchRecord) error

	// GetBatch retrieves a batch with its result rows
	GetBatch(ctx context.Context, id string) (*BatchRecord, error)

	// ListBatches returns the most recent batches without result rows
	ListBatches(ctx context.Context, limit int) ([]*BatchRecord, error)

	// Cleanup removes batches older than the retention period
	Cleanup(ctx context.Context) error
}

// BatchObserver is notified about every analyzed or skipped message
type BatchObserver interface {
	ObserveResult(result *AnalysisResult)
	ObserveSkipped(skipped SkippedMessage)
	ObserveBatch(report *BatchReport)
}

// SenderFilter decides whether a message from sender is analyzed at all
type SenderFilter interface {
	// Enabled reports whether the filter restricts anything
	Enabled() bool
	IsAllowed(sender string) bool
}
