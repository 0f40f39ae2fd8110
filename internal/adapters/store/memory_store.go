package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/mikey/cancellation-tracker/internal/core"
	"go.uber.org/zap"
)

// MemoryStore is an in-memory implementation of the ResultStore interface
type MemoryStore struct {
	batches   map[string]*core.BatchRecord
	mu        sync.RWMutex
	logger    *zap.Logger
	retention time.Duration
	now       func() time.Time
}

// NewMemoryStore creates a new in-memory store; a zero retention keeps
// everything
func NewMemoryStore(logger *zap.Logger, retention time.Duration) *MemoryStore {
	return &MemoryStore{
		batches:   make(map[string]*core.BatchRecord),
		logger:    logger,
		retention: retention,
		now:       time.Now,
	}
}

// SaveBatch stores a batch
func (s *MemoryStore) SaveBatch(_ context.Context, batch *core.BatchRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.batches[batch.ID] = copyBatch(batch, true)
	s.logger.Debug("Stored batch", zap.String("batch_id", batch.ID), zap.Int("results", len(batch.Results)))
	return nil
}

// GetBatch retrieves a batch with its results
func (s *MemoryStore) GetBatch(_ context.Context, id string) (*core.BatchRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	batch, ok := s.batches[id]
	if !ok {
		return nil, ErrNotFound
	}
	return copyBatch(batch, true), nil
}

// ListBatches returns the most recent batches first, without results
func (s *MemoryStore) ListBatches(_ context.Context, limit int) ([]*core.BatchRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*core.BatchRecord, 0, len(s.batches))
	for _, b := range s.batches {
		out = append(out, copyBatch(b, false))
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CompletedAt.Equal(out[j].CompletedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CompletedAt.After(out[j].CompletedAt)
	})
	if limit > 0 && limit < len(out) {
		out = out[:limit]
	}
	return out, nil
}

// Cleanup removes batches older than the retention period
func (s *MemoryStore) Cleanup(_ context.Context) error {
	if s.retention <= 0 {
		return nil
	}
	cutoff := s.now().Add(-s.retention)

	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for id, b := range s.batches {
		if b.CompletedAt.Before(cutoff) {
			delete(s.batches, id)
			removed++
		}
	}
	s.logger.Debug("Cleaned up old batches", zap.Int("removed_count", removed))
	return nil
}

func copyBatch(b *core.BatchRecord, withResults bool) *core.BatchRecord {
	c := *b
	c.Results = nil
	if withResults {
		c.Results = make([]core.ResultRecord, len(b.Results))
		for i, r := range b.Results {
			r.OrderNumbers = append([]string(nil), r.OrderNumbers...)
			r.Keywords = append([]string(nil), r.Keywords...)
			c.Results[i] = r
		}
	}
	return &c
}
