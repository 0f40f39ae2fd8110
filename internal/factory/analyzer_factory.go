package factory

import (
	"fmt"

	"github.com/mikey/cancellation-tracker/internal/config"
	"github.com/mikey/cancellation-tracker/internal/core"
	"github.com/mikey/cancellation-tracker/internal/utils"
	"go.uber.org/zap"
)

// AnalyzerFactory creates the message analyzer from configuration
type AnalyzerFactory struct {
	cfg    *config.Config
	logger *zap.Logger
	text   *utils.TextProcessor
}

// NewAnalyzerFactory creates a new analyzer factory
func NewAnalyzerFactory(cfg *config.Config, logger *zap.Logger, text *utils.TextProcessor) *AnalyzerFactory {
	return &AnalyzerFactory{
		cfg:    cfg,
		logger: logger,
		text:   text,
	}
}

// CreateAnalyzer builds the keyword catalog, the template extractor and the
// analyzer
func (f *AnalyzerFactory) CreateAnalyzer() (*core.MessageAnalyzer, error) {
	thresholds, err := f.cfg.GetClassifier()
	if err != nil {
		return nil, err
	}

	templates, err := f.createTemplates()
	if err != nil {
		return nil, err
	}

	catalog := core.NewKeywordCatalog(f.cfg.GetKeywords())
	analysis := f.cfg.GetAnalysis()

	f.logger.Debug("Creating message analyzer",
		zap.Float64("cancellation_threshold", thresholds.Cancellation),
		zap.Float64("high_priority_threshold", thresholds.HighPriority),
		zap.Float64("medium_priority_threshold", thresholds.MediumPriority),
		zap.Int("max_body_size", analysis.MaxBodySize),
		zap.Bool("templates", templates.HasTemplates()))

	return core.NewMessageAnalyzer(catalog, templates, f.text, f.logger, core.AnalyzerOptions{
		Thresholds:  thresholds,
		MaxBodySize: analysis.MaxBodySize,
	}), nil
}

func (f *AnalyzerFactory) createTemplates() (*core.TemplateExtractor, error) {
	tc := f.cfg.GetTemplates()
	if len(tc.Subject) == 0 && len(tc.Body) == 0 {
		return nil, nil
	}
	templates, err := core.NewTemplateExtractor(tc.Subject, tc.Body)
	if err != nil {
		return nil, fmt.Errorf("invalid templates: %w", err)
	}
	return templates, nil
}
