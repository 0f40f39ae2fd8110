package factory

import (
	"github.com/mikey/cancellation-tracker/internal/adapters/eml"
	"github.com/mikey/cancellation-tracker/internal/adapters/mailbox"
	"github.com/mikey/cancellation-tracker/internal/config"
	"github.com/mikey/cancellation-tracker/internal/ports"
	"go.uber.org/zap"
)

// SourceFactory creates message sources
type SourceFactory struct {
	cfg    *config.Config
	logger *zap.Logger
}

// NewSourceFactory creates a new source factory
func NewSourceFactory(cfg *config.Config, logger *zap.Logger) *SourceFactory {
	return &SourceFactory{
		cfg:    cfg,
		logger: logger,
	}
}

// CreateMessageSource returns an .eml reader over paths, or the IMAP source
// when no paths are given
func (f *SourceFactory) CreateMessageSource(paths []string) ports.MessageSource {
	if len(paths) > 0 {
		f.logger.Debug("Reading messages from files", zap.Strings("paths", paths))
		return eml.NewReader(paths, f.logger)
	}
	return mailbox.NewSource(f.cfg.GetIMAP(), f.logger)
}
