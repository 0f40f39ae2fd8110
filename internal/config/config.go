package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/mikey/cancellation-tracker/internal/core"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment override, e.g. CANCEL_TRACKER_IMAP_PASSWORD
const EnvPrefix = "CANCEL_TRACKER"

// Config represents the application configuration
type Config struct {
	v *viper.Viper
}

// New creates a new configuration instance. An explicit configFile must exist;
// otherwise config.yaml is looked up in the usual places and is optional.
func New(configFile string) (*Config, error) {
	v := viper.New()
	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("/etc/cancellation-tracker/")
		v.AddConfigPath("$HOME/.cancellation-tracker")
		v.AddConfigPath("./configs")
		v.AddConfigPath(".")
	}

	// Set defaults
	setDefaults(v)

	// Environment variables
	v.AutomaticEnv()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// Read config file
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if configFile != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		// Config file not found, using defaults
	}

	return &Config{v: v}, nil
}

// NewFromViper creates a new configuration instance from an existing Viper instance
func NewFromViper(v *viper.Viper) *Config {
	return &Config{v: v}
}

// NewEmptyViper creates a new Viper instance with defaults
func NewEmptyViper() *viper.Viper {
	v := viper.New()
	setDefaults(v)
	return v
}

// setDefaults sets the default configuration values
func setDefaults(v *viper.Viper) {
	keywords := core.DefaultKeywordLists()
	v.SetDefault("keywords.primary_de", keywords.PrimaryDE)
	v.SetDefault("keywords.primary_en", keywords.PrimaryEN)
	v.SetDefault("keywords.vendor", keywords.Vendor)
	v.SetDefault("keywords.priority", keywords.Priority)

	// Classifier defaults
	v.SetDefault("classifier.cancellation_threshold", core.DefaultCancellationThreshold)
	v.SetDefault("classifier.high_priority_threshold", core.DefaultHighPriorityThreshold)
	v.SetDefault("classifier.medium_priority_threshold", core.DefaultMediumPriorityThreshold)

	// Analysis defaults
	v.SetDefault("analysis.workers", 4)
	v.SetDefault("analysis.max_body_size", 1<<20)

	// IMAP defaults
	v.SetDefault("imap.server", "imap.gmail.com")
	v.SetDefault("imap.port", 993)
	v.SetDefault("imap.username", "")
	v.SetDefault("imap.password", "")
	v.SetDefault("imap.folder", "INBOX")
	v.SetDefault("imap.days", DefaultDays)
	v.SetDefault("imap.max_messages", DefaultMaxMessages)
	v.SetDefault("imap.sender_filter", "")
	v.SetDefault("imap.subject_filter", "")
	v.SetDefault("imap.timeout", "30s")

	// Sender allowlist and templates
	v.SetDefault("senders.allowlist", []string{})
	v.SetDefault("templates.subject", core.DefaultSubjectTemplates)
	v.SetDefault("templates.body", core.DefaultBodyTemplates)

	// Store defaults
	v.SetDefault("store.type", "sqlite")
	v.SetDefault("store.sqlite_path", "cancellation_tracker.db")
	v.SetDefault("store.mysql_dsn", "user:password@tcp(localhost:3306)/cancellation_tracker")
	v.SetDefault("store.retention", "720h")

	// Metrics defaults
	v.SetDefault("metrics.textfile_path", "")

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "console")
}

// GetString gets a string value from the configuration
func (c *Config) GetString(key string) string {
	return c.v.GetString(key)
}

// GetInt gets an integer value from the configuration
func (c *Config) GetInt(key string) int {
	return c.v.GetInt(key)
}

// GetFloat64 gets a float64 value from the configuration
func (c *Config) GetFloat64(key string) float64 {
	return c.v.GetFloat64(key)
}

// GetBool gets a boolean value from the configuration
func (c *Config) GetBool(key string) bool {
	return c.v.GetBool(key)
}

// GetStringSlice gets a string slice value from the configuration
func (c *Config) GetStringSlice(key string) []string {
	return c.v.GetStringSlice(key)
}

// GetDuration gets a duration value from the configuration
func (c *Config) GetDuration(key string) (time.Duration, error) {
	return time.ParseDuration(c.GetString(key))
}

// Set overrides a value, used for command-line flags
func (c *Config) Set(key string, value interface{}) {
	c.v.Set(key, value)
}

// GetViper returns the underlying Viper instance
func (c *Config) GetViper() *viper.Viper {
	return c.v
}
