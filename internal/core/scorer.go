package core

import (
	"strings"
	"time"
)

// Scoring bonuses and limits
const (
	SubjectBonus       = 0.2
	ShortBodyBonus     = 0.1
	SupportSenderBonus = 0.1

	KeywordVarietyBonus = 0.10
	VendorBonus         = 0.15
	IdentifierBonus     = 0.10
	RecencyBonus        = 0.05

	shortBodyLength    = 500
	topMatchesScored   = 5
	keywordVarietyMin  = 2
	recencyWindowDays  = 7
	maxConfidenceScore = 1.0
)

// sender fragments that mark a support or service mailbox
var supportSenderHints = []string{"customer", "service", "support"}

// ScoreSignals are the message-level facts that add to the score
type ScoreSignals struct {
	VendorRelated  bool
	HasIdentifiers bool
	Timestamp      time.Time
}

// ConfidenceScorer computes per-match and per-message confidence
type ConfidenceScorer struct {
	catalog *KeywordCatalog
	clock   *TimeNormalizer
}

// NewConfidenceScorer creates a scorer; the normalizer provides "now" for the
// recency bonus
func NewConfidenceScorer(catalog *KeywordCatalog, clock *TimeNormalizer) *ConfidenceScorer {
	return &ConfidenceScorer{catalog: catalog, clock: clock}
}

// MatchConfidence scores a single keyword hit at the given character offset
func (s *ConfidenceScorer) MatchConfidence(category Category, position int, msg *preparedMessage) float64 {
	score := s.catalog.BaseConfidence(category)
	if position < msg.subjectRunes {
		score += SubjectBonus
	}
	if msg.bodyRunes < shortBodyLength {
		score += ShortBodyBonus
	}
	for _, hint := range supportSenderHints {
		if strings.Contains(msg.senderLower, hint) {
			score += SupportSenderBonus
			break
		}
	}
	return min(score, maxConfidenceScore)
}

// MessageScore combines the matches (sorted by confidence descending) into one
// score. The top matches are averaged with weight 1/rank before bonuses apply.
func (s *ConfidenceScorer) MessageScore(matches []KeywordMatch, signals ScoreSignals) float64 {
	if len(matches) == 0 {
		return 0
	}

	top := matches[:min(len(matches), topMatchesScored)]
	var weighted, weights float64
	for i, m := range top {
		w := 1.0 / float64(i+1)
		weighted += m.Confidence * w
		weights += w
	}
	score := weighted / weights

	distinct := make(map[string]bool, len(matches))
	for _, m := range matches {
		distinct[m.Keyword] = true
	}
	if len(distinct) > keywordVarietyMin {
		score += KeywordVarietyBonus
	}
	if signals.VendorRelated {
		score += VendorBonus
	}
	if signals.HasIdentifiers {
		score += IdentifierBonus
	}
	if s.isRecent(signals.Timestamp) {
		score += RecencyBonus
	}
	return min(score, maxConfidenceScore)
}

// isRecent reports whether at most recencyWindowDays whole days have elapsed.
// Timestamps in the future count as recent.
func (s *ConfidenceScorer) isRecent(t time.Time) bool {
	return s.clock.Now().Sub(t) < (recencyWindowDays+1)*24*time.Hour
}
