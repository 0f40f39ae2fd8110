package core

// TrendAnalyzer reports when cancellation requests arrive
type TrendAnalyzer struct{}

// NewTrendAnalyzer creates a trend analyzer
func NewTrendAnalyzer() *TrendAnalyzer {
	return &TrendAnalyzer{}
}

// Analyze counts cancellations with a valid timestamp per day, weekday and
// hour (UTC). The summary is empty when no result qualifies.
func (t *TrendAnalyzer) Analyze(results []AnalysisResult) TrendSummary {
	days := NewCounter[string]()
	weekdays := NewCounter[string]()
	hours := NewCounter[int]()

	for i := range results {
		r := &results[i]
		if !r.IsCancellation || !r.TimestampValid {
			continue
		}
		ts := r.NormalizedTime
		days.Inc(ts.Format(DayLayout))
		weekdays.Inc(ts.Weekday().String())
		hours.Inc(ts.Hour())
	}

	summary := TrendSummary{
		DailyTrend:     days.MostCommon(0),
		WeekdayPattern: weekdays.MostCommon(0),
		HourlyPattern:  hours.MostCommon(0),
	}
	if len(summary.WeekdayPattern) > 0 {
		peak := summary.WeekdayPattern[0]
		summary.PeakDay = &peak
	}
	if len(summary.HourlyPattern) > 0 {
		peak := summary.HourlyPattern[0]
		summary.PeakHour = &peak
	}
	return summary
}
