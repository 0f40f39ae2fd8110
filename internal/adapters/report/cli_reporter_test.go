package report

import (
	"bytes"
	"errors"
	"testing"
	"time"

	"github.com/mikey/cancellation-tracker/internal/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var completed = time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC)

func sampleReport() *core.BatchReport {
	keywords := core.NewCounter[string]()
	keywords.Inc("stornierung")
	keywords.Inc("stornierung")
	keywords.Inc("refund")
	senders := core.NewCounter[string]()
	senders.Inc("example.de")

	return &core.BatchReport{
		ID:          "batch-1",
		CompletedAt: completed,
		Cancellations: []core.CancellationView{{
			ID:            "1",
			Sender:        "kunde@example.de",
			Subject:       "Stornierung Bestellung",
			Date:          "Fri, 14 Jun 2024 10:00:00 +0200",
			Keywords:      "stornierung, refund",
			BodyPreview:   "Bitte stornieren...",
			Confidence:    "0.92",
			Priority:      core.PriorityHigh,
			VendorRelated: true,
			OrderNumbers:  "302-1234567-1234567",
			MatchCount:    3,
		}},
		Skipped: []core.SkippedMessage{{ID: "2", Reason: "analysis failed"}},
		Statistics: core.AggregateReport{
			TotalEmails:         4,
			CancellationCount:   1,
			VendorRelated:       1,
			HighPriority:        1,
			Skipped:             1,
			CancellationRate:    25,
			KeywordDistribution: keywords,
			SenderDistribution:  senders,
			DateDistribution:    core.NewCounter[string](),
		},
	}
}

func TestReport(t *testing.T) {
	var buf bytes.Buffer
	r := NewCliReporter(&buf, zap.NewNop(), true)

	require.NoError(t, r.Report(sampleReport(), nil))
	out := buf.String()

	assert.Contains(t, out, "=== Batch batch-1 ===")
	assert.Contains(t, out, "Total emails: 4")
	assert.Contains(t, out, "Cancellation rate: 25.0%")
	assert.Contains(t, out, "Order numbers: 302-1234567-1234567")
	assert.Contains(t, out, "Preview: Bitte stornieren...")
	assert.Contains(t, out, "2: analysis failed")
	assert.NotContains(t, out, "=== Trends ===")
	assert.Less(t, bytes.Index(buf.Bytes(), []byte("stornierung")), bytes.Index(buf.Bytes(), []byte("refund")))
}

func TestReportTrends(t *testing.T) {
	var buf bytes.Buffer
	r := NewCliReporter(&buf, zap.NewNop(), false)

	peakDay := core.CountEntry[string]{Key: "Friday", Count: 2}
	peakHour := core.CountEntry[int]{Key: 9, Count: 2}
	trends := &core.TrendSummary{
		DailyTrend:     []core.CountEntry[string]{{Key: "2024-06-14", Count: 2}, {Key: "2024-06-07", Count: 1}},
		WeekdayPattern: []core.CountEntry[string]{peakDay},
		HourlyPattern:  []core.CountEntry[int]{peakHour, {Key: 14, Count: 1}},
		PeakDay:        &peakDay,
		PeakHour:       &peakHour,
	}

	require.NoError(t, r.Report(sampleReport(), trends))
	out := buf.String()

	assert.Contains(t, out, "Peak weekday: Friday (2)")
	assert.Contains(t, out, "Peak hour: 09:00 (2)")
	assert.Contains(t, out, "  2024-06-14 ##\n")
	assert.Less(t, bytes.Index(buf.Bytes(), []byte("2024-06-07")), bytes.Index(buf.Bytes(), []byte("2024-06-14")))
	assert.NotContains(t, out, "Preview:")

	buf.Reset()
	require.NoError(t, r.Report(sampleReport(), &core.TrendSummary{}))
	assert.Contains(t, buf.String(), "No cancellation requests to analyze.")
}

func TestReportResult(t *testing.T) {
	var buf bytes.Buffer
	r := NewCliReporter(&buf, zap.NewNop(), true)

	result := &core.AnalysisResult{
		Message: &core.MessageRecord{
			ID:      "1",
			Subject: "Storno",
			Sender:  "kunde@example.de",
			Body:    "Bitte Storno",
			RawDate: "Fri, 14 Jun 2024 10:00:00 +0200",
		},
		IsCancellation:  true,
		ConfidenceScore: 0.75,
		Priority:        core.PriorityMedium,
		Matches: []core.KeywordMatch{
			{Keyword: "storno", Context: "bitte storno", Confidence: 0.75, Category: core.CategoryPrimaryDE},
		},
		Variables: map[string]string{"Name": "Max", "Bestellnummer": "A-123"},
	}

	require.NoError(t, r.ReportResult(result))
	out := buf.String()

	assert.Contains(t, out, "Is cancellation: true")
	assert.Contains(t, out, "Confidence: 0.7500")
	assert.Contains(t, out, "Date: Fri, 14 Jun 2024 10:00:00 +0200")
	assert.Contains(t, out, "...bitte storno...")
	assert.Less(t, bytes.Index(buf.Bytes(), []byte("Bestellnummer")), bytes.Index(buf.Bytes(), []byte("Name:")))
}

func TestReportHistory(t *testing.T) {
	var buf bytes.Buffer
	r := NewCliReporter(&buf, zap.NewNop(), false)

	require.NoError(t, r.ReportHistory(nil))
	assert.Contains(t, buf.String(), "No stored batches.")

	buf.Reset()
	require.NoError(t, r.ReportHistory([]*core.BatchRecord{{
		ID: "batch-1", CompletedAt: completed, TotalEmails: 4, CancellationCount: 1, CancellationRate: 25,
	}}))
	assert.Contains(t, buf.String(), "2024-06-15 12:00  batch-1  total=4 cancellations=1 rate=25.0%")
	assert.NotContains(t, buf.String(), "keywords:")

	buf.Reset()
	require.NoError(t, r.ReportHistory([]*core.BatchRecord{{
		ID:          "batch-1",
		CompletedAt: completed,
		Results: []core.ResultRecord{{
			Subject:         "Storno",
			Sender:          "kunde@example.de",
			ReceivedAt:      completed,
			IsCancellation:  true,
			ConfidenceScore: 0.8,
			Priority:        core.PriorityHigh,
			Keywords:        []string{"storno", "dringend"},
		}},
	}}))
	assert.Contains(t, buf.String(), "true  0.80 high   2024-06-15 12:00  kunde@example.de  Storno")
	assert.Contains(t, buf.String(), "keywords: storno, dringend")
}

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) { return 0, errors.New("closed") }

func TestReportWriteError(t *testing.T) {
	r := NewCliReporter(failingWriter{}, zap.NewNop(), false)
	assert.Error(t, r.Report(sampleReport(), nil))
	assert.Error(t, r.ReportHistory(nil))
}
