package factory

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/mikey/cancellation-tracker/internal/adapters/eml"
	"github.com/mikey/cancellation-tracker/internal/adapters/mailbox"
	"github.com/mikey/cancellation-tracker/internal/adapters/store"
	"github.com/mikey/cancellation-tracker/internal/config"
	"github.com/mikey/cancellation-tracker/internal/core"
	"github.com/mikey/cancellation-tracker/internal/utils"
)

func newConfig() *config.Config {
	return config.NewFromViper(config.NewEmptyViper())
}

func TestCreateResultStore(t *testing.T) {
	logger := zap.NewNop()

	t.Run("memory", func(t *testing.T) {
		cfg := newConfig()
		cfg.Set("store.type", "memory")
		s, err := NewStoreFactory(cfg, logger).CreateResultStore()
		require.NoError(t, err)
		assert.IsType(t, &store.MemoryStore{}, s)
	})

	t.Run("sqlite creates the directory", func(t *testing.T) {
		cfg := newConfig()
		cfg.Set("store.sqlite_path", filepath.Join(t.TempDir(), "data", "results.db"))
		s, err := NewStoreFactory(cfg, logger).CreateResultStore()
		require.NoError(t, err)
		require.IsType(t, &store.SQLiteStore{}, s)
		require.NoError(t, s.(*store.SQLiteStore).Close())
	})

	t.Run("unsupported", func(t *testing.T) {
		cfg := newConfig()
		cfg.Set("store.type", "redis")
		_, err := NewStoreFactory(cfg, logger).CreateResultStore()
		assert.EqualError(t, err, "unsupported store type: redis")
	})

	t.Run("invalid retention", func(t *testing.T) {
		cfg := newConfig()
		cfg.Set("store.type", "memory")
		cfg.Set("store.retention", "forever")
		_, err := NewStoreFactory(cfg, logger).CreateResultStore()
		assert.Error(t, err)
	})
}

func TestCreateMessageSource(t *testing.T) {
	f := NewSourceFactory(newConfig(), zap.NewNop())
	assert.IsType(t, &mailbox.Source{}, f.CreateMessageSource(nil))
	assert.IsType(t, &eml.Reader{}, f.CreateMessageSource([]string{"mail.eml"}))
}

func TestCreateAnalyzer(t *testing.T) {
	logger := zap.NewNop()
	text := utils.NewTextProcessor(logger)

	analyzer, err := NewAnalyzerFactory(newConfig(), logger, text).CreateAnalyzer()
	require.NoError(t, err)

	result, err := analyzer.Analyze(&core.MessageRecord{
		ID:      "1",
		Subject: "Kunde möchte Bestellung 302-1234567-1234567 stornieren.",
		Sender:  "kunde@example.de",
	})
	require.NoError(t, err)
	assert.True(t, result.IsCancellation)
	assert.NotEmpty(t, result.OrderNumbers)

	cfg := newConfig()
	cfg.Set("classifier.cancellation_threshold", 1.5)
	_, err = NewAnalyzerFactory(cfg, logger, text).CreateAnalyzer()
	assert.Error(t, err)

	cfg = newConfig()
	cfg.Set("templates.subject", []string{})
	cfg.Set("templates.body", []string{})
	analyzer, err = NewAnalyzerFactory(cfg, logger, text).CreateAnalyzer()
	require.NoError(t, err)
	result, err = analyzer.Analyze(&core.MessageRecord{ID: "2", Subject: "Kunde möchte Bestellung A-123 stornieren."})
	require.NoError(t, err)
	assert.Nil(t, result.Variables)
}
