package core

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeStore struct {
	mu       sync.Mutex
	batches  []*BatchRecord
	cleanups int
	saveErr  error
}

func (s *fakeStore) SaveBatch(_ context.Context, batch *BatchRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.saveErr != nil {
		return s.saveErr
	}
	s.batches = append(s.batches, batch)
	return nil
}

func (s *fakeStore) GetBatch(_ context.Context, id string) (*BatchRecord, error) {
	for _, b := range s.batches {
		if b.ID == id {
			return b, nil
		}
	}
	return nil, errors.New("not found")
}

func (s *fakeStore) ListBatches(_ context.Context, limit int) ([]*BatchRecord, error) {
	if limit > 0 && limit < len(s.batches) {
		return s.batches[:limit], nil
	}
	return s.batches, nil
}

func (s *fakeStore) Cleanup(context.Context) error {
	s.cleanups++
	return nil
}

type countingObserver struct {
	results int
	skipped int
	batches int
}

func (o *countingObserver) ObserveResult(*AnalysisResult) { o.results++ }
func (o *countingObserver) ObserveSkipped(SkippedMessage) { o.skipped++ }
func (o *countingObserver) ObserveBatch(*BatchReport) { o.batches++ }

type prefixFilter string

func (p prefixFilter) Enabled() bool { return p != "" }

func (p prefixFilter) IsAllowed(sender string) bool { return strings.HasPrefix(sender, string(p)) }

// closedFilter rejects everyone but may be switched off
type closedFilter struct{ enabled bool }

func (f closedFilter) Enabled() bool { return f.enabled }

func (f closedFilter) IsAllowed(string) bool { return false }

func TestAnalyzeBatchKeepsInputOrder(t *testing.T) {
	var records []MessageRecord
	for i := 0; i < 40; i++ {
		records = append(records, MessageRecord{
			ID:        fmt.Sprintf("msg-%02d", i),
			Subject:   "Stornierung",
			Sender:    "a@b.c",
			Body:      strings.Repeat("refund ", i%5),
			Timestamp: oldTimestamp(),
		})
	}

	report := newTestService(t, 8, nil, nil, nil).AnalyzeBatch(records)

	require.Len(t, report.Results, len(records))
	for i, r := range report.Results {
		assert.Equal(t, records[i].ID, r.Message.ID)
		assert.Equal(t, records[i].ID, report.Summaries[i].ID)
	}
	_, err := uuid.Parse(report.ID)
	assert.NoError(t, err)
	assert.Equal(t, testNow, report.CompletedAt)
}

func TestAnalyzeBatchSequentialAndParallelAgree(t *testing.T) {
	records := []MessageRecord{
		{ID: "1", Subject: "Rückgabe", Body: "Bestellnummer: 123-4567890-1234567", Timestamp: oldTimestamp()},
		{ID: "2", Subject: "Hallo", Body: "Wie geht es?", Timestamp: oldTimestamp()},
		{ID: "3", Subject: "URGENT cancel", Sender: "support@amazon.com", Timestamp: testNow},
	}
	seq := newTestService(t, 1, nil, nil, nil).AnalyzeBatch(records)
	par := newTestService(t, 4, nil, nil, nil).AnalyzeBatch(records)

	assert.Equal(t, seq.Results, par.Results)
	assert.Equal(t, seq.Statistics, par.Statistics)
	assert.Equal(t, seq.Cancellations, par.Cancellations)
}

func TestAnalyzeBatchSkipsMalformed(t *testing.T) {
	observer := &countingObserver{}
	report := newTestService(t, 2, nil, observer, nil).AnalyzeBatch([]MessageRecord{
		{ID: "ok", Subject: "Stornierung", Timestamp: oldTimestamp()},
		{ID: "", Subject: "Stornierung"},
		{ID: "  ", Subject: "refund"},
	})

	require.Len(t, report.Results, 1)
	require.Len(t, report.Skipped, 2)
	assert.Equal(t, ErrMissingIdentifier.Error(), report.Skipped[0].Reason)
	assert.Equal(t, 3, report.Statistics.TotalEmails)
	assert.Equal(t, 2, report.Statistics.Skipped)
	assert.Equal(t, 1, report.Statistics.CancellationCount)
	assert.InDelta(t, 100.0/3, report.Statistics.CancellationRate, 1e-9)
	assert.Equal(t, 1, observer.results)
	assert.Equal(t, 2, observer.skipped)
	assert.Equal(t, 1, observer.batches)
}

func TestAnalyzeBatchEmpty(t *testing.T) {
	report := newTestService(t, 4, nil, nil, nil).AnalyzeBatch(nil)
	assert.Empty(t, report.Results)
	assert.Empty(t, report.Cancellations)
	assert.Equal(t, 0, report.Statistics.TotalEmails)
	assert.Equal(t, 0.0, report.Statistics.CancellationRate)
}

func TestAnalyzeBatchScenarioHighPriority(t *testing.T) {
	var records []MessageRecord
	for i := 0; i < 10; i++ {
		rec := MessageRecord{
			ID:        fmt.Sprintf("%d", i),
			Subject:   "Hallo",
			Sender:    "friend@example.com",
			Body:      "Wie geht es?",
			Timestamp: oldTimestamp(),
		}
		if i%3 == 0 && i > 0 {
			rec.Subject = "Dringend: Stornierung"
			rec.Body = "Bitte sofort bearbeiten."
		}
		records = append(records, rec)
	}

	report := newTestService(t, 3, nil, nil, nil).AnalyzeBatch(records)

	assert.Equal(t, 10, report.Statistics.TotalEmails)
	assert.Equal(t, 3, report.Statistics.HighPriority)
	assert.GreaterOrEqual(t, report.Statistics.CancellationCount, 3)
	for _, r := range report.Results {
		if r.Priority == PriorityHigh {
			assert.GreaterOrEqual(t, r.ConfidenceScore, 0.8)
		}
	}
}

func TestAnalyzeBatchSenderAllowlist(t *testing.T) {
	report := newTestService(t, 1, nil, nil, prefixFilter("shop")).AnalyzeBatch([]MessageRecord{
		{ID: "1", Sender: "shop@a.de", Subject: "Storno"},
		{ID: "2", Sender: "other@a.de", Subject: "Storno"},
	})
	require.Len(t, report.Results, 1)
	assert.Equal(t, "1", report.Results[0].Message.ID)
	assert.Equal(t, 1, report.Statistics.TotalEmails)
}

func TestCancellationViews(t *testing.T) {
	body := strings.Repeat("ä", 250)
	report := newTestService(t, 1, nil, nil, nil).AnalyzeBatch([]MessageRecord{
		{
			ID:      "1",
			Subject: "Stornierung Rückgabe refund cancel storno urgent",
			Sender:  "a@b.c",
			Body:    "Order ID: X1Y2Z3W4V5U6 " + body,
			RawDate: "Mon, 10 Jun 2024 09:30:00 +0200",
		},
		{ID: "2", Subject: "Hallo", Sender: "a@b.c", Body: "kurz", RawDate: "Mon, 10 Jun 2024 09:30:00 +0200"},
	})
	require.Len(t, report.Cancellations, 1)

	v := report.Cancellations[0]
	assert.Equal(t, "1", v.ID)
	assert.Equal(t, "Mon, 10 Jun 2024 09:30:00 +0200", v.Date)
	assert.Equal(t, "stornierung, storno, rückgabe, cancel, refund", v.Keywords)
	assert.True(t, strings.HasSuffix(v.BodyPreview, "..."))
	assert.Equal(t, 203, len([]rune(v.BodyPreview)))
	assert.Equal(t, "X1Y2Z3W4V5U6", v.OrderNumbers)
	assert.Equal(t, len(report.Results[0].Matches), v.MatchCount)
	assert.Regexp(t, `^\d\.\d{2}$`, v.Confidence)

	require.Len(t, report.Summaries, 2)
	assert.Equal(t, 4, report.Summaries[1].BodyLength)
}

func TestAnalyzeTrends(t *testing.T) {
	svc := newTestService(t, 1, nil, nil, nil)
	report := svc.AnalyzeBatch([]MessageRecord{
		{ID: "1", Subject: "Stornierung", RawDate: "Mon, 10 Jun 2024 09:30:00 +0000"},
		{ID: "2", Subject: "Stornierung", RawDate: "unknown"},
	})
	summary := svc.AnalyzeTrends(report.Results)
	require.False(t, summary.IsEmpty())
	assert.Equal(t, []CountEntry[string]{{"2024-06-10", 1}}, summary.DailyTrend)
	assert.Equal(t, "Monday", summary.PeakDay.Key)
	assert.Equal(t, 9, summary.PeakHour.Key)
}

func TestSaveAndHistory(t *testing.T) {
	store := &fakeStore{}
	svc := newTestService(t, 1, store, nil, nil)

	report := svc.AnalyzeBatch([]MessageRecord{
		{ID: "1", MessageID: "<m1@shop>", Subject: "Stornierung", Body: "storno", Timestamp: oldTimestamp()},
		{ID: "2", Subject: "Hallo", Timestamp: oldTimestamp()},
	})
	require.NoError(t, svc.Save(context.Background(), report))
	assert.Equal(t, 1, store.cleanups)

	history, err := svc.History(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, history, 1)

	stored := history[0]
	assert.Equal(t, report.ID, stored.ID)
	assert.Equal(t, 2, stored.TotalEmails)
	require.Len(t, stored.Results, 2)
	assert.Equal(t, "<m1@shop>", stored.Results[0].MessageID)
	assert.Equal(t, "2", stored.Results[1].MessageID)
	assert.Equal(t, []string{"stornierung", "storno"}, stored.Results[0].Keywords)

	store.saveErr = errors.New("disk full")
	assert.ErrorContains(t, svc.Save(context.Background(), report), "disk full")
}

func TestSaveWithoutStore(t *testing.T) {
	svc := newTestService(t, 1, nil, nil, nil)
	assert.NoError(t, svc.Save(context.Background(), &BatchReport{}))
	history, err := svc.History(context.Background(), 5)
	assert.NoError(t, err)
	assert.Nil(t, history)
}

func TestAnalyzeBatchDisabledAllowlist(t *testing.T) {
	records := []MessageRecord{
		{ID: "1", Sender: "shop@a.de", Subject: "Storno"},
		{ID: "2", Sender: "other@a.de", Subject: "Storno"},
	}

	report := newTestService(t, 1, nil, nil, closedFilter{enabled: false}).AnalyzeBatch(records)
	assert.Len(t, report.Results, 2)

	report = newTestService(t, 1, nil, nil, closedFilter{enabled: true}).AnalyzeBatch(records)
	assert.Empty(t, report.Results)
	assert.Equal(t, 0, report.Statistics.TotalEmails)
}

func TestBatchWithoutStore(t *testing.T) {
	svc := newTestService(t, 1, nil, nil, nil)
	_, err := svc.Batch(context.Background(), "batch-1")
	assert.ErrorIs(t, err, ErrNoResultStore)
}
