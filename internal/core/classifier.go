package core

// Default classification thresholds
const (
	DefaultCancellationThreshold   = 0.30
	DefaultHighPriorityThreshold   = 0.80
	DefaultMediumPriorityThreshold = 0.50
)

// Thresholds configures the classifier
type Thresholds struct {
	Cancellation   float64
	HighPriority   float64
	MediumPriority float64
}

// DefaultThresholds returns the built-in thresholds
func DefaultThresholds() Thresholds {
	return Thresholds{
		Cancellation:   DefaultCancellationThreshold,
		HighPriority:   DefaultHighPriorityThreshold,
		MediumPriority: DefaultMediumPriorityThreshold,
	}
}

// Classifier turns a confidence score into a decision and a priority
type Classifier struct {
	thresholds Thresholds
}

// NewClassifier creates a classifier
func NewClassifier(thresholds Thresholds) *Classifier {
	return &Classifier{thresholds: thresholds}
}

// IsCancellation reports whether the score reaches the cancellation threshold
func (c *Classifier) IsCancellation(score float64) bool {
	return score >= c.thresholds.Cancellation
}

// Priority assigns high to any message with a priority keyword
func (c *Classifier) Priority(score float64, matches []KeywordMatch) Priority {
	for _, m := range matches {
		if m.Category == CategoryPriority {
			return PriorityHigh
		}
	}
	switch {
	case score >= c.thresholds.HighPriority:
		return PriorityHigh
	case score >= c.thresholds.MediumPriority:
		return PriorityMedium
	default:
		return PriorityLow
	}
}
