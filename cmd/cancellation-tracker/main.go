package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"go.uber.org/dig"
	"go.uber.org/zap"

	"github.com/mikey/cancellation-tracker/internal/adapters/eml"
	"github.com/mikey/cancellation-tracker/internal/config"
	"github.com/mikey/cancellation-tracker/internal/core"
	"github.com/mikey/cancellation-tracker/internal/di"
	"github.com/mikey/cancellation-tracker/internal/metrics"
	"github.com/mikey/cancellation-tracker/internal/ports"
)

var errMissingCounter = errors.New("message source cannot count messages")

var (
	cfgFile string
	verbose bool
	jsonLog bool
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "cancellation-tracker",
		Short: "Detect cancellation and refund requests in a mailbox",
		Long: `cancellation-tracker scans an IMAP mailbox or .eml files for cancellation,
return and refund requests written in German or English, scores and
prioritizes them, and keeps a history of every scan.`,
		SilenceUsage: true,
	}

	// Global flags
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./config.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging and output")
	rootCmd.PersistentFlags().BoolVar(&jsonLog, "json-log", false, "Output logs in JSON format")

	// Add commands
	rootCmd.AddCommand(scanCmd())
	rootCmd.AddCommand(detectCmd())
	rootCmd.AddCommand(historyCmd())
	rootCmd.AddCommand(countCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// buildContainer creates the container for a command. flags maps config keys
// to the command's flag names.
func buildContainer(cmd *cobra.Command, paths []string, flags map[string]string) (*dig.Container, error) {
	bindings := make(map[string]*pflag.Flag, len(flags))
	for key, name := range flags {
		bindings[key] = cmd.Flags().Lookup(name)
	}

	container, err := di.BuildContainer(di.Options{
		ConfigFile: cfgFile,
		Verbose:    verbose,
		JSONLog:    jsonLog,
		Paths:      paths,
		Flags:      bindings,
		Out:        cmd.OutOrStdout(),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to build dependency container: %w", err)
	}
	return container, nil
}

func scanCmd() *cobra.Command {
	var showTrends bool

	cmd := &cobra.Command{
		Use:   "scan [paths...]",
		Short: "Scan a mailbox for cancellation requests",
		Long: `Fetch messages from the configured IMAP mailbox, or from .eml files and
directories when paths are given, analyze them, store the batch and print
the report.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			container, err := buildContainer(cmd, args, map[string]string{
				"imap.days":           "days",
				"imap.max_messages":   "max",
				"imap.sender_filter":  "from",
				"imap.subject_filter": "subject",
			})
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			return container.Invoke(func(
				logger *zap.Logger,
				cfg *config.Config,
				source ports.MessageSource,
				service *core.CancellationService,
				store core.ResultStore,
				recorder *metrics.Recorder,
				reporter ports.Reporter,
			) error {
				defer logger.Sync()
				defer closeStore(logger, store)

				criteria := scanCriteria(cmd, cfg, len(args) > 0)
				return runScan(ctx, logger, cfg, source, service, recorder, reporter, criteria, showTrends)
			})
		},
	}

	cmd.Flags().Int("days", 0, "Only scan messages from the last N days (default from config)")
	cmd.Flags().Int("max", 0, "Maximum number of messages to scan (default from config)")
	cmd.Flags().String("from", "", "Only scan messages whose sender contains this text")
	cmd.Flags().String("subject", "", "Only scan messages whose subject contains this text")
	cmd.Flags().BoolVar(&showTrends, "trends", false, "Print arrival trends of cancellation requests")

	return cmd
}

// scanCriteria uses the IMAP settings for mailbox scans. File scans only
// filter on flags given explicitly.
func scanCriteria(cmd *cobra.Command, cfg *config.Config, files bool) ports.SearchCriteria {
	if !files {
		imapCfg := cfg.GetIMAP()
		return ports.SearchCriteria{
			Days:        imapCfg.Days,
			MaxMessages: imapCfg.MaxMessages,
			Sender:      imapCfg.SenderFilter,
			Subject:     imapCfg.SubjectFilter,
		}
	}
	days, _ := cmd.Flags().GetInt("days")
	maxMessages, _ := cmd.Flags().GetInt("max")
	from, _ := cmd.Flags().GetString("from")
	subject, _ := cmd.Flags().GetString("subject")
	return ports.SearchCriteria{
		Days:        days,
		MaxMessages: maxMessages,
		Sender:      from,
		Subject:     subject,
	}
}

func runScan(
	ctx context.Context,
	logger *zap.Logger,
	cfg *config.Config,
	source ports.MessageSource,
	service *core.CancellationService,
	recorder *metrics.Recorder,
	reporter ports.Reporter,
	criteria ports.SearchCriteria,
	showTrends bool,
) error {
	records, err := source.Fetch(ctx, criteria)
	if err != nil {
		logger.Error("Failed to fetch messages", zap.Error(err))
		return err
	}

	report := service.AnalyzeBatch(records)

	if err := service.Save(ctx, report); err != nil {
		// the report is still worth printing
		logger.Error("Failed to store batch", zap.Error(err))
	}

	if path := cfg.GetMetrics().TextfilePath; path != "" {
		if err := recorder.WriteTextfile(path); err != nil {
			logger.Error("Failed to write metrics", zap.String("path", path), zap.Error(err))
		}
	}

	var trends *core.TrendSummary
	if showTrends {
		summary := service.AnalyzeTrends(report.Results)
		trends = &summary
	}
	return reporter.Report(report, trends)
}

func detectCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "detect [file]",
		Short: "Analyze a single message",
		Long:  "Analyze one .eml message read from a file, or from stdin when no file is given.",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			container, err := buildContainer(cmd, nil, nil)
			if err != nil {
				return err
			}

			return container.Invoke(func(
				logger *zap.Logger,
				analyzer *core.MessageAnalyzer,
				reporter ports.Reporter,
			) error {
				defer logger.Sync()

				var in io.Reader = cmd.InOrStdin()
				id := "stdin"
				if len(args) == 1 {
					file, err := os.Open(args[0])
					if err != nil {
						logger.Error("Failed to open input file", zap.String("file", args[0]), zap.Error(err))
						return err
					}
					defer file.Close()
					in = file
					id = filepath.Base(args[0])
					logger.Info("Reading email from file", zap.String("file", args[0]))
				} else {
					logger.Info("Reading email from stdin")
				}

				rec, err := eml.Read(in, id)
				if err != nil {
					logger.Error("Failed to parse email", zap.Error(err))
					return err
				}

				result, err := analyzer.Analyze(&rec)
				if err != nil {
					return err
				}
				if err := reporter.ReportResult(result); err != nil {
					return err
				}

				if related := analyzer.Catalog().Suggest(rec.Subject + " " + rec.Body); len(related) > 0 {
					fmt.Fprintf(cmd.OutOrStdout(), "\nRelated terms: %s\n", strings.Join(related, ", "))
				}
				return nil
			})
		},
	}
}

func historyCmd() *cobra.Command {
	var (
		limit   int
		batchID string
	)

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List stored scan batches",
		RunE: func(cmd *cobra.Command, args []string) error {
			container, err := buildContainer(cmd, nil, nil)
			if err != nil {
				return err
			}

			return container.Invoke(func(
				logger *zap.Logger,
				service *core.CancellationService,
				store core.ResultStore,
				reporter ports.Reporter,
			) error {
				defer logger.Sync()
				defer closeStore(logger, store)

				ctx := cmd.Context()
				if batchID != "" {
					batch, err := service.Batch(ctx, batchID)
					if err != nil {
						return err
					}
					return reporter.ReportHistory([]*core.BatchRecord{batch})
				}

				batches, err := service.History(ctx, limit)
				if err != nil {
					return err
				}
				return reporter.ReportHistory(batches)
			})
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 20, "Number of batches to list")
	cmd.Flags().StringVar(&batchID, "id", "", "Show one batch with its results")

	return cmd
}

func countCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "count",
		Short: "Count mailbox messages in the search window",
		Long:  "Count the messages of the configured IMAP folder received within --days without fetching them.",
		RunE: func(cmd *cobra.Command, args []string) error {
			container, err := buildContainer(cmd, nil, map[string]string{
				"imap.days": "days",
			})
			if err != nil {
				return err
			}

			return container.Invoke(func(
				logger *zap.Logger,
				cfg *config.Config,
				source ports.MessageSource,
			) error {
				defer logger.Sync()

				counter, ok := source.(ports.MessageCounter)
				if !ok {
					return errMissingCounter
				}

				days := cfg.GetIMAP().Days
				count, err := counter.Count(cmd.Context(), days)
				if err != nil {
					logger.Error("Failed to count messages", zap.Error(err))
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Messages in the last %d days: %d\n", days, count)
				return nil
			})
		},
	}

	cmd.Flags().Int("days", 0, "Count messages from the last N days (default from config)")

	return cmd
}

// closeStore closes stores backed by a database connection
func closeStore(logger *zap.Logger, store core.ResultStore) {
	if closer, ok := store.(io.Closer); ok {
		if err := closer.Close(); err != nil {
			logger.Error("Failed to close result store", zap.Error(err))
		}
	}
}
