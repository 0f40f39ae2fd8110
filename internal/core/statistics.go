package core

import (
	"strings"
)

// DayLayout formats calendar days in distributions and trends
const DayLayout = "2006-01-02"

const unknownDomain = "unknown"

// StatisticsAggregator folds analysis results into an AggregateReport
type StatisticsAggregator struct{}

// NewStatisticsAggregator creates an aggregator
func NewStatisticsAggregator() *StatisticsAggregator {
	return &StatisticsAggregator{}
}

// Aggregate makes one pass over results. skipped messages count towards the
// total but nothing else.
func (a *StatisticsAggregator) Aggregate(results []AnalysisResult, skipped int) AggregateReport {
	report := AggregateReport{
		TotalEmails:         len(results) + skipped,
		Skipped:             skipped,
		KeywordDistribution: NewCounter[string](),
		SenderDistribution:  NewCounter[string](),
		DateDistribution:    NewCounter[string](),
	}

	for i := range results {
		r := &results[i]
		if r.IsCancellation {
			report.CancellationCount++
		}
		if r.VendorRelated {
			report.VendorRelated++
		}
		if r.Priority == PriorityHigh {
			report.HighPriority++
		}
		for _, m := range r.Matches {
			report.KeywordDistribution.Inc(m.Keyword)
		}
		report.SenderDistribution.Inc(SenderDomain(r.Message.Sender))
		report.DateDistribution.Inc(r.NormalizedTime.Format(DayLayout))
	}

	if report.TotalEmails > 0 {
		report.CancellationRate = float64(report.CancellationCount) / float64(report.TotalEmails) * 100
	}
	return report
}

// SenderDomain returns the lowercase text after the last "@" of the sender,
// without a closing angle bracket, or "unknown"
func SenderDomain(sender string) string {
	i := strings.LastIndex(sender, "@")
	if i < 0 {
		return unknownDomain
	}
	domain := strings.ToLower(strings.TrimSpace(strings.TrimRight(sender[i+1:], "> \t")))
	if domain == "" {
		return unknownDomain
	}
	return domain
}
