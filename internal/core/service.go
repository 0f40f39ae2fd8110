package core

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/mikey/cancellation-tracker/internal/utils"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// ErrNoResultStore is returned by lookups on a service without a store
var ErrNoResultStore = errors.New("no result store configured")

// ServiceOptions tunes a CancellationService
type ServiceOptions struct {
	Workers int
	Clock   Clock
}

// CancellationService is the core service for analyzing message batches
type CancellationService struct {
	analyzer   *MessageAnalyzer
	aggregator *StatisticsAggregator
	trends     *TrendAnalyzer
	text       *utils.TextProcessor
	store      ResultStore
	observer   BatchObserver
	senders    SenderFilter
	logger     *zap.Logger
	workers    int
	now        Clock
}

// NewCancellationService creates a new cancellation service. store, observer
// and senders may be nil.
func NewCancellationService(
	analyzer *MessageAnalyzer,
	text *utils.TextProcessor,
	store ResultStore,
	observer BatchObserver,
	senders SenderFilter,
	logger *zap.Logger,
	opts ServiceOptions,
) *CancellationService {
	if opts.Workers < 1 {
		opts.Workers = 1
	}
	if opts.Clock == nil {
		opts.Clock = time.Now
	}
	return &CancellationService{
		analyzer:   analyzer,
		aggregator: NewStatisticsAggregator(),
		trends:     NewTrendAnalyzer(),
		text:       text,
		store:      store,
		observer:   observer,
		senders:    senders,
		logger:     logger,
		workers:    opts.Workers,
		now:        opts.Clock,
	}
}

// outcome is the per-record slot written by exactly one worker
type outcome struct {
	result  *AnalysisResult
	skipped *SkippedMessage
}

// AnalyzeBatch analyzes records and aggregates the results. Results keep the
// input order. Failing records are skipped and reported, never returned as an
// error.
func (s *CancellationService) AnalyzeBatch(records []MessageRecord) *BatchReport {
	records = s.allowedRecords(records)
	outcomes := make([]outcome, len(records))

	var g errgroup.Group
	g.SetLimit(s.workers)
	for i := range records {
		g.Go(func() error {
			outcomes[i] = s.analyzeOne(&records[i])
			return nil
		})
	}
	_ = g.Wait()

	report := &BatchReport{
		ID:      uuid.NewString(),
		Results: make([]AnalysisResult, 0, len(records)),
	}
	for _, o := range outcomes {
		if o.skipped != nil {
			report.Skipped = append(report.Skipped, *o.skipped)
			if s.observer != nil {
				s.observer.ObserveSkipped(*o.skipped)
			}
			continue
		}
		report.Results = append(report.Results, *o.result)
		if s.observer != nil {
			s.observer.ObserveResult(o.result)
		}
	}

	report.Statistics = s.aggregator.Aggregate(report.Results, len(report.Skipped))
	for i := range report.Results {
		r := &report.Results[i]
		report.Summaries = append(report.Summaries, summarize(r))
		if r.IsCancellation {
			report.Cancellations = append(report.Cancellations, cancellationView(r, s.text.Preview))
		}
	}
	report.CompletedAt = s.now().UTC()
	if s.observer != nil {
		s.observer.ObserveBatch(report)
	}

	s.logger.Info("Batch analyzed",
		zap.String("batch_id", report.ID),
		zap.Int("total", report.Statistics.TotalEmails),
		zap.Int("cancellations", report.Statistics.CancellationCount),
		zap.Int("skipped", report.Statistics.Skipped),
		zap.Float64("cancellation_rate", report.Statistics.CancellationRate))

	return report
}

func (s *CancellationService) analyzeOne(rec *MessageRecord) outcome {
	result, err := s.analyzer.Analyze(rec)
	if err != nil {
		s.logger.Error("Skipping message",
			zap.String("message_id", rec.ID),
			zap.Error(err))
		return outcome{skipped: &SkippedMessage{ID: rec.ID, Reason: err.Error()}}
	}
	return outcome{result: result}
}

func (s *CancellationService) allowedRecords(records []MessageRecord) []MessageRecord {
	if s.senders == nil || !s.senders.Enabled() {
		return records
	}
	allowed := make([]MessageRecord, 0, len(records))
	for _, rec := range records {
		if s.senders.IsAllowed(rec.Sender) {
			allowed = append(allowed, rec)
		}
	}
	if dropped := len(records) - len(allowed); dropped > 0 {
		s.logger.Info("Ignored messages from senders not on the allowlist", zap.Int("count", dropped))
	}
	return allowed
}

// AnalyzeTrends summarizes when cancellation requests arrived
func (s *CancellationService) AnalyzeTrends(results []AnalysisResult) TrendSummary {
	return s.trends.Analyze(results)
}

// Save persists a batch report and prunes batches past retention
func (s *CancellationService) Save(ctx context.Context, report *BatchReport) error {
	if s.store == nil {
		return nil
	}
	if err := s.store.SaveBatch(ctx, ToBatchRecord(report)); err != nil {
		return fmt.Errorf("failed to save batch %s: %w", report.ID, err)
	}
	if err := s.store.Cleanup(ctx); err != nil {
		s.logger.Error("Failed to clean up old batches", zap.Error(err))
	}
	return nil
}

// History lists the most recent stored batches
func (s *CancellationService) History(ctx context.Context, limit int) ([]*BatchRecord, error) {
	if s.store == nil {
		return nil, nil
	}
	return s.store.ListBatches(ctx, limit)
}

// Batch loads one stored batch with its results
func (s *CancellationService) Batch(ctx context.Context, id string) (*BatchRecord, error) {
	if s.store == nil {
		return nil, ErrNoResultStore
	}
	return s.store.GetBatch(ctx, id)
}
