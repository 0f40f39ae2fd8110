package core

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

const (
	previewLength     = 200
	viewKeywordsLimit = 5
	noIdentifiers     = "none"
	unknownDate       = "unknown"
	displayDateLayout = "2006-01-02 15:04:05 MST"
)

// DisplayDate is the raw date header when present, otherwise the normalized
// timestamp
func (r *AnalysisResult) DisplayDate() string {
	if raw := strings.TrimSpace(r.Message.RawDate); raw != "" {
		return raw
	}
	if r.TimestampValid {
		return r.NormalizedTime.Format(displayDateLayout)
	}
	return unknownDate
}

// Keywords returns the distinct keywords of the first n matches in order;
// n <= 0 means all matches
func (r *AnalysisResult) Keywords(n int) []string {
	matches := r.Matches
	if n > 0 && n < len(matches) {
		matches = matches[:n]
	}
	seen := make(map[string]bool, len(matches))
	var out []string
	for _, m := range matches {
		if !seen[m.Keyword] {
			seen[m.Keyword] = true
			out = append(out, m.Keyword)
		}
	}
	return out
}

func summarize(r *AnalysisResult) MessageSummary {
	return MessageSummary{
		ID:         r.Message.ID,
		Subject:    r.Message.Subject,
		Sender:     r.Message.Sender,
		Date:       r.DisplayDate(),
		BodyLength: utf8.RuneCountInString(r.Message.Body),
	}
}

func cancellationView(r *AnalysisResult, preview func(string, int) string) CancellationView {
	ids := noIdentifiers
	if len(r.OrderNumbers) > 0 {
		ids = strings.Join(r.OrderNumbers, ", ")
	}
	return CancellationView{
		ID:            r.Message.ID,
		Sender:        r.Message.Sender,
		Subject:       r.Message.Subject,
		Date:          r.DisplayDate(),
		Keywords:      strings.Join(r.Keywords(viewKeywordsLimit), ", "),
		BodyPreview:   preview(r.Message.Body, previewLength),
		Confidence:    fmt.Sprintf("%.2f", r.ConfidenceScore),
		Priority:      r.Priority,
		VendorRelated: r.VendorRelated,
		OrderNumbers:  ids,
		MatchCount:    len(r.Matches),
	}
}

// ToBatchRecord converts a report into its persisted form
func ToBatchRecord(report *BatchReport) *BatchRecord {
	stats := report.Statistics
	record := &BatchRecord{
		ID:                report.ID,
		CompletedAt:       report.CompletedAt,
		TotalEmails:       stats.TotalEmails,
		CancellationCount: stats.CancellationCount,
		VendorRelated:     stats.VendorRelated,
		HighPriority:      stats.HighPriority,
		Skipped:           stats.Skipped,
		CancellationRate:  stats.CancellationRate,
		Results:           make([]ResultRecord, 0, len(report.Results)),
	}
	for i := range report.Results {
		r := &report.Results[i]
		messageID := r.Message.MessageID
		if messageID == "" {
			messageID = r.Message.ID
		}
		record.Results = append(record.Results, ResultRecord{
			MessageID:       messageID,
			Subject:         r.Message.Subject,
			Sender:          r.Message.Sender,
			ReceivedAt:      r.NormalizedTime,
			IsCancellation:  r.IsCancellation,
			ConfidenceScore: r.ConfidenceScore,
			Priority:        r.Priority,
			VendorRelated:   r.VendorRelated,
			OrderNumbers:    r.OrderNumbers,
			Keywords:        r.Keywords(0),
		})
	}
	return record
}
