package di

import (
	"io"

	"github.com/spf13/pflag"
	"go.uber.org/dig"
	"go.uber.org/zap"

	"github.com/mikey/cancellation-tracker/internal/adapters/report"
	"github.com/mikey/cancellation-tracker/internal/config"
	"github.com/mikey/cancellation-tracker/internal/core"
	"github.com/mikey/cancellation-tracker/internal/factory"
	"github.com/mikey/cancellation-tracker/internal/logging"
	"github.com/mikey/cancellation-tracker/internal/metrics"
	"github.com/mikey/cancellation-tracker/internal/ports"
	"github.com/mikey/cancellation-tracker/internal/utils"
	"github.com/mikey/cancellation-tracker/internal/whitelist"
)

// Options carries the command line state into the container
type Options struct {
	ConfigFile string
	Verbose    bool
	JSONLog    bool

	// Paths of .eml files or directories; empty means IMAP
	Paths []string

	// Flags maps config keys to command flags that override them when set
	Flags map[string]*pflag.Flag

	// Out receives the rendered reports
	Out io.Writer
}

// BuildContainer creates and configures a dependency injection container
func BuildContainer(opts Options) (*dig.Container, error) {
	container := dig.New()

	// Register options
	if err := container.Provide(func() Options { return opts }); err != nil {
		return nil, err
	}

	// Register configuration
	if err := container.Provide(newConfig); err != nil {
		return nil, err
	}

	// Register logger
	if err := container.Provide(logging.InitLogger); err != nil {
		return nil, err
	}

	// Register factories
	if err := container.Provide(factory.NewStoreFactory); err != nil {
		return nil, err
	}
	if err := container.Provide(factory.NewSourceFactory); err != nil {
		return nil, err
	}
	if err := container.Provide(factory.NewAnalyzerFactory); err != nil {
		return nil, err
	}

	// Register text processor
	if err := container.Provide(utils.NewTextProcessor); err != nil {
		return nil, err
	}

	// Register analyzer
	if err := container.Provide(func(f *factory.AnalyzerFactory) (*core.MessageAnalyzer, error) {
		return f.CreateAnalyzer()
	}); err != nil {
		return nil, err
	}

	// Register result store
	if err := container.Provide(func(f *factory.StoreFactory) (core.ResultStore, error) {
		return f.CreateResultStore()
	}); err != nil {
		return nil, err
	}

	// Register message source
	if err := container.Provide(func(f *factory.SourceFactory, opts Options) ports.MessageSource {
		return f.CreateMessageSource(opts.Paths)
	}); err != nil {
		return nil, err
	}

	// Register metrics recorder
	if err := container.Provide(metrics.NewRecorder); err != nil {
		return nil, err
	}

	// Register sender allowlist
	if err := container.Provide(func(cfg *config.Config, logger *zap.Logger) *whitelist.Checker {
		return whitelist.NewChecker(cfg.GetSenderAllowlist(), logger)
	}); err != nil {
		return nil, err
	}

	// Register cancellation service
	if err := container.Provide(func(
		analyzer *core.MessageAnalyzer,
		text *utils.TextProcessor,
		store core.ResultStore,
		recorder *metrics.Recorder,
		senders *whitelist.Checker,
		logger *zap.Logger,
		cfg *config.Config,
	) *core.CancellationService {
		return core.NewCancellationService(analyzer, text, store, recorder, senders, logger, core.ServiceOptions{
			Workers: cfg.GetAnalysis().Workers,
		})
	}); err != nil {
		return nil, err
	}

	// Register reporter
	if err := container.Provide(func(opts Options, logger *zap.Logger) ports.Reporter {
		return report.NewCliReporter(opts.Out, logger, opts.Verbose)
	}); err != nil {
		return nil, err
	}

	return container, nil
}

// newConfig loads the configuration and applies command line overrides
func newConfig(opts Options) (*config.Config, error) {
	cfg, err := config.New(opts.ConfigFile)
	if err != nil {
		return nil, err
	}

	for key, flag := range opts.Flags {
		if flag == nil || !flag.Changed {
			continue
		}
		if err := cfg.GetViper().BindPFlag(key, flag); err != nil {
			return nil, err
		}
	}

	if opts.Verbose {
		cfg.Set("logging.level", "debug")
	}
	if opts.JSONLog {
		cfg.Set("logging.format", "json")
	}
	return cfg, nil
}
