package whitelist

import (
	"strings"

	"go.uber.org/zap"
)

// Checker decides which senders are analyzed. An empty allowlist admits every
// sender.
type Checker struct {
	entries []string
	logger  *zap.Logger
}

// NewChecker creates a new sender allowlist checker
func NewChecker(entries []string, logger *zap.Logger) *Checker {
	// Normalize entries (lowercase), drop blanks
	normalized := make([]string, 0, len(entries))
	for _, entry := range entries {
		entry = strings.ToLower(strings.TrimSpace(entry))
		if entry != "" {
			normalized = append(normalized, entry)
		}
	}

	if len(normalized) > 0 && logger != nil {
		logger.Info("Initialized sender allowlist", zap.Strings("senders", normalized))
	}

	return &Checker{
		entries: normalized,
		logger:  logger,
	}
}

// Enabled reports whether any allowlist entry is configured
func (c *Checker) Enabled() bool {
	return len(c.entries) > 0
}

// IsAllowed reports whether the sender contains one of the allowlist entries
func (c *Checker) IsAllowed(from string) bool {
	if len(c.entries) == 0 {
		return true
	}

	sender := strings.ToLower(from)
	for _, entry := range c.entries {
		if strings.Contains(sender, entry) {
			return true
		}
	}

	if c.logger != nil {
		c.logger.Debug("Sender not on allowlist", zap.String("sender", from))
	}
	return false
}
