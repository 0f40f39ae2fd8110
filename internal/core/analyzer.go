package core

import (
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/mikey/cancellation-tracker/internal/utils"
	"go.uber.org/zap"
)

var (
	// ErrMissingIdentifier is returned for records without an ID
	ErrMissingIdentifier = errors.New("message has no identifier")

	// ErrAnalysisFailed wraps unexpected failures while analyzing a message
	ErrAnalysisFailed = errors.New("message analysis failed")
)

// AnalyzerOptions tunes a MessageAnalyzer
type AnalyzerOptions struct {
	Thresholds  Thresholds
	MaxBodySize int // bytes; 0 disables the cap
	Clock       Clock
}

// MessageAnalyzer runs the whole classification pipeline for one message
type MessageAnalyzer struct {
	catalog     *KeywordCatalog
	matcher     *PatternMatcher
	scorer      *ConfidenceScorer
	classifier  *Classifier
	normalizer  *TimeNormalizer
	templates   *TemplateExtractor
	text        *utils.TextProcessor
	maxBodySize int
	logger      *zap.Logger
}

// NewMessageAnalyzer creates an analyzer. templates may be nil.
func NewMessageAnalyzer(
	catalog *KeywordCatalog,
	templates *TemplateExtractor,
	text *utils.TextProcessor,
	logger *zap.Logger,
	opts AnalyzerOptions,
) *MessageAnalyzer {
	normalizer := NewTimeNormalizer(logger, opts.Clock)
	scorer := NewConfidenceScorer(catalog, normalizer)
	return &MessageAnalyzer{
		catalog:     catalog,
		matcher:     NewPatternMatcher(catalog, scorer),
		scorer:      scorer,
		classifier:  NewClassifier(opts.Thresholds),
		normalizer:  normalizer,
		templates:   templates,
		text:        text,
		maxBodySize: opts.MaxBodySize,
		logger:      logger,
	}
}

// Catalog returns the keyword catalog the analyzer matches against
func (a *MessageAnalyzer) Catalog() *KeywordCatalog {
	return a.catalog
}

// Analyze classifies one message. The record is never modified and is shared
// by the returned result.
func (a *MessageAnalyzer) Analyze(rec *MessageRecord) (result *AnalysisResult, err error) {
	if rec == nil || strings.TrimSpace(rec.ID) == "" {
		return nil, ErrMissingIdentifier
	}

	defer func() {
		if r := recover(); r != nil {
			result = nil
			err = fmt.Errorf("%w: %v", ErrAnalysisFailed, r)
		}
	}()

	msg := a.prepare(rec)
	timestamp, valid := a.normalizer.Normalize(rec)

	matches := a.matcher.FindMatches(msg)
	vendor := a.matcher.IsVendorRelated(&msg.record)
	ids := a.matcher.ExtractIdentifiers(msg.record.Subject + " " + msg.record.Body)

	score := a.scorer.MessageScore(matches, ScoreSignals{
		VendorRelated:  vendor,
		HasIdentifiers: len(ids) > 0,
		Timestamp:      timestamp,
	})

	result = &AnalysisResult{
		Message:         rec,
		IsCancellation:  a.classifier.IsCancellation(score),
		Matches:         matches,
		ConfidenceScore: score,
		Priority:        a.classifier.Priority(score, matches),
		VendorRelated:   vendor,
		OrderNumbers:    ids,
		NormalizedTime:  timestamp,
		TimestampValid:  valid,
	}
	if a.templates.HasTemplates() {
		result.Variables = a.templates.Extract(msg.record.Subject, msg.record.Body)
	}

	a.logger.Debug("Message analyzed",
		zap.String("message_id", rec.ID),
		zap.Int("matches", len(matches)),
		zap.Float64("confidence", score),
		zap.Bool("is_cancellation", result.IsCancellation),
		zap.String("priority", string(result.Priority)))

	return result, nil
}

// prepare builds the sanitized copy and the lowercase combined text
func (a *MessageAnalyzer) prepare(rec *MessageRecord) *preparedMessage {
	clean := *rec
	clean.Subject = a.text.Normalize(rec.Subject)
	clean.Sender = a.text.Normalize(rec.Sender)
	clean.Body = a.text.TruncateText(a.text.Normalize(rec.Body), a.maxBodySize)

	subject := a.text.Lower(clean.Subject)
	return &preparedMessage{
		record:       clean,
		text:         subject + " " + a.text.Lower(clean.Body),
		subjectRunes: utf8.RuneCountInString(subject),
		bodyRunes:    utf8.RuneCountInString(clean.Body),
		senderLower:  a.text.Lower(clean.Sender),
	}
}
