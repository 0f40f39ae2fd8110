package ports

import (
	"github.com/mikey/cancellation-tracker/internal/core"
)

// Reporter defines the interface for presenting analysis results
type Reporter interface {
	// Report renders a batch; trends may be nil
	Report(report *core.BatchReport, trends *core.TrendSummary) error

	// ReportResult renders the analysis of a single message
	ReportResult(result *core.AnalysisResult) error

	// ReportHistory renders stored batches
	ReportHistory(batches []*core.BatchRecord) error
}
