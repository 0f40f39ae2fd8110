package ports

import (
	"context"

	"github.com/mikey/cancellation-tracker/internal/core"
)

// SearchCriteria narrows the messages a source returns
type SearchCriteria struct {
	// Days limits the search to messages received in the last N days
	Days int

	// MaxMessages caps the number of returned messages, newest first
	MaxMessages int

	// Sender and Subject are optional substring filters
	Sender  string
	Subject string
}

// MessageSource defines the interface for retrieving messages to analyze
type MessageSource interface {
	// Fetch returns the decoded messages matching the criteria
	Fetch(ctx context.Context, criteria SearchCriteria) ([]core.MessageRecord, error)
}

// MessageCounter is implemented by sources that can count messages without
// fetching them
type MessageCounter interface {
	// Count returns the number of messages received in the last days
	Count(ctx context.Context, days int) (int, error)
}
