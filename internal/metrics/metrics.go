package metrics

import (
	"fmt"

	"github.com/mikey/cancellation-tracker/internal/core"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

// Recorder counts analysis outcomes on a private registry. It implements
// core.BatchObserver.
type Recorder struct {
	registry *prometheus.Registry
	logger   *zap.Logger

	MessagesAnalyzed prometheus.Counter
	MessagesSkipped  prometheus.Counter
	Cancellations    *prometheus.CounterVec
	Priorities       *prometheus.CounterVec
	ConfidenceScores prometheus.Histogram
	LastBatchTime    prometheus.Gauge
}

// NewRecorder creates and registers all metrics
func NewRecorder(logger *zap.Logger) *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		logger:   logger,

		MessagesAnalyzed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "cancellation_tracker_messages_analyzed_total",
			Help: "Total number of messages analyzed",
		}),
		MessagesSkipped: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "cancellation_tracker_messages_skipped_total",
			Help: "Total number of messages skipped because they could not be analyzed",
		}),
		Cancellations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "cancellation_tracker_cancellations_total",
				Help: "Total number of cancellation requests detected",
			},
			[]string{"vendor_related"},
		),
		Priorities: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "cancellation_tracker_priority_total",
				Help: "Analyzed messages by assigned priority",
			},
			[]string{"priority"},
		),
		ConfidenceScores: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "cancellation_tracker_confidence_score",
			Help:    "Distribution of message confidence scores",
			Buckets: prometheus.LinearBuckets(0.1, 0.1, 10),
		}),
		LastBatchTime: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "cancellation_tracker_last_batch_timestamp_seconds",
			Help: "Unix time of the last completed batch",
		}),
	}

	r.registry.MustRegister(
		r.MessagesAnalyzed,
		r.MessagesSkipped,
		r.Cancellations,
		r.Priorities,
		r.ConfidenceScores,
		r.LastBatchTime,
	)
	return r
}

// ObserveResult records one analyzed message
func (r *Recorder) ObserveResult(result *core.AnalysisResult) {
	r.MessagesAnalyzed.Inc()
	r.Priorities.WithLabelValues(string(result.Priority)).Inc()
	r.ConfidenceScores.Observe(result.ConfidenceScore)
	if result.IsCancellation {
		r.Cancellations.WithLabelValues(fmt.Sprint(result.VendorRelated)).Inc()
	}
}

// ObserveSkipped records one skipped message
func (r *Recorder) ObserveSkipped(core.SkippedMessage) {
	r.MessagesSkipped.Inc()
}

// ObserveBatch records the completion of a batch
func (r *Recorder) ObserveBatch(report *core.BatchReport) {
	r.LastBatchTime.Set(float64(report.CompletedAt.Unix()))
}

// Registry returns the registry holding the metrics
func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}

// WriteTextfile writes all metrics in the text exposition format, for the
// node exporter textfile collector
func (r *Recorder) WriteTextfile(path string) error {
	if path == "" {
		return nil
	}
	if err := prometheus.WriteToTextfile(path, r.registry); err != nil {
		return fmt.Errorf("failed to write metrics to %s: %w", path, err)
	}
	r.logger.Debug("Wrote metrics textfile", zap.String("path", path))
	return nil
}
