package report

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/mikey/cancellation-tracker/internal/core"
	"github.com/mikey/cancellation-tracker/internal/ports"
	"go.uber.org/zap"
)

// number of entries shown per distribution
const topEntries = 10

// CliReporter renders analysis results as plain text
type CliReporter struct {
	out     io.Writer
	logger  *zap.Logger
	verbose bool
}

var _ ports.Reporter = (*CliReporter)(nil)

// NewCliReporter creates a new CLI reporter writing to out
func NewCliReporter(out io.Writer, logger *zap.Logger, verbose bool) *CliReporter {
	return &CliReporter{
		out:     out,
		logger:  logger,
		verbose: verbose,
	}
}

// Report prints the statistics, the cancellation requests and, when given,
// the trends of a batch
func (r *CliReporter) Report(report *core.BatchReport, trends *core.TrendSummary) error {
	w := &errWriter{w: r.out}
	stats := report.Statistics

	w.printf("\n=== Batch %s ===\n", report.ID)
	w.printf("Completed: %s\n", report.CompletedAt.Format("2006-01-02 15:04:05 MST"))

	w.printf("\n=== Statistics ===\n")
	w.printf("Total emails: %d\n", stats.TotalEmails)
	w.printf("Cancellation requests: %d\n", stats.CancellationCount)
	w.printf("Cancellation rate: %.1f%%\n", stats.CancellationRate)
	w.printf("Vendor related: %d\n", stats.VendorRelated)
	w.printf("High priority: %d\n", stats.HighPriority)
	w.printf("Skipped: %d\n", stats.Skipped)

	if stats.KeywordDistribution.Len() > 0 {
		w.printf("\nTop keywords:\n")
		for _, e := range stats.KeywordDistribution.MostCommon(topEntries) {
			w.printf("  %-24s %d\n", e.Key, e.Count)
		}
	}
	if stats.SenderDistribution.Len() > 0 {
		w.printf("\nTop sender domains:\n")
		for _, e := range stats.SenderDistribution.MostCommon(topEntries) {
			w.printf("  %-24s %d\n", e.Key, e.Count)
		}
	}

	w.printf("\n=== Cancellation Requests ===\n")
	if len(report.Cancellations) == 0 {
		w.printf("No cancellation requests found.\n")
	}
	for i, c := range report.Cancellations {
		w.printf("\n[%d] %s\n", i+1, c.Subject)
		w.printf("From: %s\n", c.Sender)
		w.printf("Date: %s\n", c.Date)
		w.printf("Priority: %s\n", c.Priority)
		w.printf("Confidence: %s\n", c.Confidence)
		w.printf("Keywords: %s\n", c.Keywords)
		w.printf("Vendor related: %t\n", c.VendorRelated)
		w.printf("Order numbers: %s\n", c.OrderNumbers)
		w.printf("Matches: %d\n", c.MatchCount)
		if r.verbose {
			w.printf("Preview: %s\n", c.BodyPreview)
		}
	}

	if len(report.Skipped) > 0 {
		w.printf("\n=== Skipped ===\n")
		for _, s := range report.Skipped {
			w.printf("%s: %s\n", s.ID, s.Reason)
		}
	}

	if trends != nil {
		r.writeTrends(w, trends)
	}

	if w.err != nil {
		r.logger.Error("Failed to write report", zap.Error(w.err))
	}
	return w.err
}

func (r *CliReporter) writeTrends(w *errWriter, trends *core.TrendSummary) {
	w.printf("\n=== Trends ===\n")
	if trends.IsEmpty() {
		w.printf("No cancellation requests to analyze.\n")
		return
	}
	if trends.PeakDay != nil {
		w.printf("Peak weekday: %s (%d)\n", trends.PeakDay.Key, trends.PeakDay.Count)
	}
	if trends.PeakHour != nil {
		w.printf("Peak hour: %02d:00 (%d)\n", trends.PeakHour.Key, trends.PeakHour.Count)
	}

	w.printf("\nDaily:\n")
	daily := append([]core.CountEntry[string](nil), trends.DailyTrend...)
	sort.Slice(daily, func(i, j int) bool { return daily[i].Key < daily[j].Key })
	for _, e := range daily {
		w.printf("  %s %s\n", e.Key, strings.Repeat("#", e.Count))
	}

	w.printf("\nWeekdays:\n")
	for _, e := range trends.WeekdayPattern {
		w.printf("  %-10s %d\n", e.Key, e.Count)
	}

	w.printf("\nHours:\n")
	for _, e := range trends.HourlyPattern {
		w.printf("  %02d:00 %d\n", e.Key, e.Count)
	}
}

// ReportResult prints the analysis of a single message
func (r *CliReporter) ReportResult(result *core.AnalysisResult) error {
	w := &errWriter{w: r.out}
	msg := result.Message

	w.printf("\n=== Email Summary ===\n")
	w.printf("From: %s\n", msg.Sender)
	w.printf("Subject: %s\n", msg.Subject)
	w.printf("Date: %s\n", result.DisplayDate())
	w.printf("Body length: %d bytes\n", len(msg.Body))

	w.printf("\n=== Results ===\n")
	w.printf("Is cancellation: %t\n", result.IsCancellation)
	w.printf("Confidence: %.4f\n", result.ConfidenceScore)
	w.printf("Priority: %s\n", result.Priority)
	w.printf("Vendor related: %t\n", result.VendorRelated)
	if len(result.OrderNumbers) > 0 {
		w.printf("Order numbers: %s\n", strings.Join(result.OrderNumbers, ", "))
	}
	if len(result.Variables) > 0 {
		names := make([]string, 0, len(result.Variables))
		for name := range result.Variables {
			names = append(names, name)
		}
		sort.Strings(names)
		w.printf("Variables:\n")
		for _, name := range names {
			w.printf("  %s: %s\n", name, result.Variables[name])
		}
	}

	if len(result.Matches) > 0 {
		w.printf("\n=== Matches ===\n")
		for _, m := range result.Matches {
			w.printf("%-24s %.2f  %s\n", m.Keyword, m.Confidence, m.Category)
			if r.verbose {
				w.printf("  ...%s...\n", m.Context)
			}
		}
	}

	return w.err
}

// ReportHistory prints stored batches, newest first. Result rows are listed
// for batches loaded with their results.
func (r *CliReporter) ReportHistory(batches []*core.BatchRecord) error {
	w := &errWriter{w: r.out}

	w.printf("\n=== History ===\n")
	if len(batches) == 0 {
		w.printf("No stored batches.\n")
		return w.err
	}
	for _, b := range batches {
		w.printf("%s  %s  total=%d cancellations=%d rate=%.1f%% high=%d vendor=%d skipped=%d\n",
			b.CompletedAt.Format("2006-01-02 15:04"), b.ID,
			b.TotalEmails, b.CancellationCount, b.CancellationRate,
			b.HighPriority, b.VendorRelated, b.Skipped)
		for _, res := range b.Results {
			w.printf("    %-5t %.2f %-6s %s  %s  %s\n",
				res.IsCancellation, res.ConfidenceScore, res.Priority,
				res.ReceivedAt.Format("2006-01-02 15:04"), res.Sender, res.Subject)
			if len(res.Keywords) > 0 {
				w.printf("          keywords: %s\n", strings.Join(res.Keywords, ", "))
			}
		}
	}
	return w.err
}

// errWriter keeps the first write error and drops later writes
type errWriter struct {
	w   io.Writer
	err error
}

func (e *errWriter) printf(format string, args ...any) {
	if e.err != nil {
		return
	}
	_, e.err = fmt.Fprintf(e.w, format, args...)
}
