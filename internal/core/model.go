package core

import (
	"time"
)

// MessageRecord represents one decoded message handed to the analyzer
type MessageRecord struct {
	ID        string
	MessageID string
	Subject   string
	Sender    string
	Body      string
	Timestamp time.Time
	RawDate   string
}

// Category names a keyword group of the catalog
type Category string

const (
	CategoryPrimaryDE Category = "primary_de"
	CategoryPrimaryEN Category = "primary_en"
	CategoryVendor    Category = "vendor"
	CategoryPriority  Category = "priority"
)

// Priority is the coarse urgency of a message
type Priority string

const (
	PriorityHigh   Priority = "high"
	PriorityMedium Priority = "medium"
	PriorityLow    Priority = "low"
)

// KeywordMatch is a single keyword occurrence in a message
type KeywordMatch struct {
	Keyword    string
	Context    string
	Position   int
	Confidence float64
	Category   Category
}

// AnalysisResult represents the result of analyzing one message
type AnalysisResult struct {
	Message         *MessageRecord
	IsCancellation  bool
	Matches         []KeywordMatch
	ConfidenceScore float64
	Priority        Priority
	VendorRelated   bool
	OrderNumbers    []string
	Variables       map[string]string
	NormalizedTime  time.Time
	TimestampValid  bool
}

// SkippedMessage records a message excluded from a batch
type SkippedMessage struct {
	ID     string
	Reason string
}

// MessageSummary is the plain projection of a message for tables
type MessageSummary struct {
	ID         string
	Subject    string
	Sender     string
	Date       string
	BodyLength int
}

// CancellationView is the display projection of a cancellation request
type CancellationView struct {
	ID            string
	Sender        string
	Subject       string
	Date          string
	Keywords      string
	BodyPreview   string
	Confidence    string
	Priority      Priority
	VendorRelated bool
	OrderNumbers  string
	MatchCount    int
}

// AggregateReport holds corpus-level statistics of a batch
type AggregateReport struct {
	TotalEmails         int
	CancellationCount   int
	VendorRelated       int
	HighPriority        int
	Skipped             int
	CancellationRate    float64
	KeywordDistribution *Counter[string]
	SenderDistribution  *Counter[string]
	DateDistribution    *Counter[string]
}

// TrendSummary describes when cancellation requests arrive
type TrendSummary struct {
	DailyTrend     []CountEntry[string]
	WeekdayPattern []CountEntry[string]
	HourlyPattern  []CountEntry[int]
	PeakDay        *CountEntry[string]
	PeakHour       *CountEntry[int]
}

// IsEmpty reports whether no qualifying message contributed to the summary
func (t TrendSummary) IsEmpty() bool {
	return len(t.DailyTrend) == 0
}

// BatchReport is everything the reporting side needs for one batch
type BatchReport struct {
	ID            string
	CompletedAt   time.Time
	Results       []AnalysisResult
	Cancellations []CancellationView
	Summaries     []MessageSummary
	Skipped       []SkippedMessage
	Statistics    AggregateReport
}

// BatchRecord is the persisted form of a batch
type BatchRecord struct {
	ID                string
	CompletedAt       time.Time
	TotalEmails       int
	CancellationCount int
	VendorRelated     int
	HighPriority      int
	Skipped           int
	CancellationRate  float64
	Results           []ResultRecord
}

// ResultRecord is the persisted form of one analysis result
type ResultRecord struct {
	MessageID       string
	Subject         string
	Sender          string
	ReceivedAt      time.Time
	IsCancellation  bool
	ConfidenceScore float64
	Priority        Priority
	VendorRelated   bool
	OrderNumbers    []string
	Keywords        []string
}
