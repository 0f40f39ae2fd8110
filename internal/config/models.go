package config

import (
	"fmt"
	"time"

	"github.com/mikey/cancellation-tracker/internal/core"
)

// Limits of the IMAP search window
const (
	DefaultDays        = 30
	MaxDays            = 365
	DefaultMaxMessages = 100
	MaxMessagesLimit   = 500
)

// AnalysisConfig represents the configuration of the analysis pipeline
type AnalysisConfig struct {
	Workers     int
	MaxBodySize int
}

// IMAPConfig represents the configuration for the IMAP message source
type IMAPConfig struct {
	Server        string
	Port          int
	Username      string
	Password      string
	Folder        string
	Days          int
	MaxMessages   int
	SenderFilter  string
	SubjectFilter string
	Timeout       time.Duration
}

// Address returns host:port of the IMAP server
func (c IMAPConfig) Address() string {
	return fmt.Sprintf("%s:%d", c.Server, c.Port)
}

// StoreConfig represents the configuration of the result store
type StoreConfig struct {
	Type       string
	SQLitePath string
	MySQLDSN   string
	Retention  time.Duration
}

// TemplatesConfig holds the subject and body extraction templates
type TemplatesConfig struct {
	Subject []string
	Body    []string
}

// MetricsConfig represents the metrics output configuration
type MetricsConfig struct {
	TextfilePath string
}

// GetKeywords returns the keyword lists
func (c *Config) GetKeywords() core.KeywordLists {
	return core.KeywordLists{
		PrimaryDE: c.GetStringSlice("keywords.primary_de"),
		PrimaryEN: c.GetStringSlice("keywords.primary_en"),
		Vendor:    c.GetStringSlice("keywords.vendor"),
		Priority:  c.GetStringSlice("keywords.priority"),
	}
}

// GetClassifier returns the classification thresholds
func (c *Config) GetClassifier() (core.Thresholds, error) {
	t := core.Thresholds{
		Cancellation:   c.GetFloat64("classifier.cancellation_threshold"),
		HighPriority:   c.GetFloat64("classifier.high_priority_threshold"),
		MediumPriority: c.GetFloat64("classifier.medium_priority_threshold"),
	}
	for name, v := range map[string]float64{
		"cancellation_threshold":    t.Cancellation,
		"high_priority_threshold":   t.HighPriority,
		"medium_priority_threshold": t.MediumPriority,
	} {
		if v < 0 || v > 1 {
			return t, fmt.Errorf("classifier.%s must be between 0 and 1, got %v", name, v)
		}
	}
	if t.MediumPriority > t.HighPriority {
		return t, fmt.Errorf("classifier.medium_priority_threshold (%v) exceeds high_priority_threshold (%v)",
			t.MediumPriority, t.HighPriority)
	}
	return t, nil
}

// GetAnalysis returns the analysis configuration
func (c *Config) GetAnalysis() AnalysisConfig {
	workers := c.GetInt("analysis.workers")
	if workers < 1 {
		workers = 1
	}
	return AnalysisConfig{
		Workers:     workers,
		MaxBodySize: c.GetInt("analysis.max_body_size"),
	}
}

// GetIMAP returns the IMAP configuration with the search window clamped to
// its limits
func (c *Config) GetIMAP() IMAPConfig {
	timeout, err := c.GetDuration("imap.timeout")
	if err != nil || timeout <= 0 {
		timeout = 30 * time.Second
	}
	return IMAPConfig{
		Server:        c.GetString("imap.server"),
		Port:          c.GetInt("imap.port"),
		Username:      c.GetString("imap.username"),
		Password:      c.GetString("imap.password"),
		Folder:        c.GetString("imap.folder"),
		Days:          clamp(c.GetInt("imap.days"), DefaultDays, MaxDays),
		MaxMessages:   clamp(c.GetInt("imap.max_messages"), DefaultMaxMessages, MaxMessagesLimit),
		SenderFilter:  c.GetString("imap.sender_filter"),
		SubjectFilter: c.GetString("imap.subject_filter"),
		Timeout:       timeout,
	}
}

// clamp replaces non-positive values with def and caps at limit
func clamp(v, def, limit int) int {
	if v <= 0 {
		return def
	}
	return min(v, limit)
}

// GetSenderAllowlist returns the sender allowlist entries
func (c *Config) GetSenderAllowlist() []string {
	return c.GetStringSlice("senders.allowlist")
}

// GetTemplates returns the extraction templates
func (c *Config) GetTemplates() TemplatesConfig {
	return TemplatesConfig{
		Subject: c.GetStringSlice("templates.subject"),
		Body:    c.GetStringSlice("templates.body"),
	}
}

// GetStore returns the result store configuration
func (c *Config) GetStore() (StoreConfig, error) {
	retention, err := c.GetDuration("store.retention")
	if err != nil {
		return StoreConfig{}, fmt.Errorf("invalid store.retention: %w", err)
	}
	return StoreConfig{
		Type:       c.GetString("store.type"),
		SQLitePath: c.GetString("store.sqlite_path"),
		MySQLDSN:   c.GetString("store.mysql_dsn"),
		Retention:  retention,
	}, nil
}

// GetMetrics returns the metrics configuration
func (c *Config) GetMetrics() MetricsConfig {
	return MetricsConfig{
		TextfilePath: c.GetString("metrics.textfile_path"),
	}
}
