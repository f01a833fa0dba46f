// Command reflstats computes yearly reflectivity exceedance statistics from
// archived PPI scan volumes and writes one zthresholds_{year}.nc per year.
//
// Usage:
//
//	reflstats run --year 2015
//	reflstats run --year 1998 --end-year 2017 --workers 32
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	httpadapter "github.com/couchcryptid/radar-refl-stats/internal/adapter/http"
	kafkaadapter "github.com/couchcryptid/radar-refl-stats/internal/adapter/kafka"
	"github.com/couchcryptid/radar-refl-stats/internal/adapter/netcdf"
	"github.com/couchcryptid/radar-refl-stats/internal/config"
	"github.com/couchcryptid/radar-refl-stats/internal/domain"
	"github.com/couchcryptid/radar-refl-stats/internal/observability"
	"github.com/couchcryptid/radar-refl-stats/internal/pipeline"
	"github.com/spf13/cobra"
)

// newMetrics is swapped in tests to avoid duplicate registration.
var newMetrics = observability.NewMetrics

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		stop()
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "reflstats",
		Short: "Radar reflectivity exceedance statistics.",
		Long: "Bins every gate above 40, 50 and 60 dBZ in the three lowest sweeps of a year of\n" +
			"PPI volumes onto a fixed azimuth/range grid, to locate persistent clutter.",
		SilenceUsage: true,
	}
	root.AddCommand(newRunCmd())
	return root
}

type runOptions struct {
	year      int
	endYear   int
	inputDir  string
	outputDir string
	workers   int
}

func newRunCmd() *cobra.Command {
	var opts runOptions

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Compute statistics for one year or a range of years",
		Long: "Compute statistics for --year (through --end-year when set). Years whose\n" +
			"output already exists, or that have no scan files, are skipped. Per-file and\n" +
			"per-year failures are logged and do not change the exit status.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if err := opts.apply(cmd, cfg); err != nil {
				return err
			}
			last := opts.year
			if cmd.Flags().Changed("end-year") {
				last = opts.endYear
			}
			if last < opts.year {
				return fmt.Errorf("--end-year %d precedes --year %d", last, opts.year)
			}
			return run(cmd.Context(), cfg, opts.year, last)
		},
	}

	f := cmd.Flags()
	f.IntVar(&opts.year, "year", 0, "year to process (required)")
	f.IntVar(&opts.endYear, "end-year", 0, "last year to process, inclusive")
	f.StringVar(&opts.inputDir, "input-dir", "", "input root holding {year}/ directories (overrides INPUT_DIR)")
	f.StringVar(&opts.outputDir, "output-dir", "", "directory for zthresholds_{year}.nc (overrides OUTPUT_DIR)")
	f.IntVar(&opts.workers, "workers", 0, "extraction worker count (overrides WORKERS)")
	_ = cmd.MarkFlagRequired("year")

	return cmd
}

// apply lets explicitly set flags override the environment.
func (o runOptions) apply(cmd *cobra.Command, cfg *config.Config) error {
	flags := cmd.Flags()
	if flags.Changed("input-dir") {
		cfg.InputDir = o.inputDir
	}
	if flags.Changed("output-dir") {
		cfg.OutputDir = o.outputDir
	}
	if flags.Changed("workers") {
		cfg.Workers = o.workers
	}
	if o.year <= 0 {
		return fmt.Errorf("invalid --year %d", o.year)
	}
	return cfg.Validate()
}

func run(ctx context.Context, cfg *config.Config, first, last int) error {
	logger := observability.NewLogger(cfg)
	metrics := newMetrics()

	disc, err := pipeline.NewDiscoverer(cfg.InputDir, cfg.ScanPattern)
	if err != nil {
		return err
	}
	extractor := pipeline.NewExtractor(netcdf.NewScanReader(), cfg.ReflectivityField)
	agg := pipeline.NewAggregator(extractor, cfg.Workers, cfg.FileTimeout, logger, metrics)

	var notifier pipeline.Notifier
	if cfg.NotificationsEnabled() {
		pub := kafkaadapter.NewPublisher(cfg, logger)
		defer func() {
			if err := pub.Close(); err != nil {
				logger.Error("kafka publisher close error", "error", err)
			}
		}()
		notifier = pub
		logger.Info("run summaries enabled", "topic", cfg.KafkaTopic)
	}

	ctrl := pipeline.New(disc, agg, netcdf.NewRecordStore(), notifier, cfg.OutputDir, logger, metrics)

	var srv *httpadapter.Server
	if cfg.HTTPAddr != "" {
		srv = httpadapter.NewServer(cfg.HTTPAddr, ctrl, logger)
		go func() {
			if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("http server error", "error", err)
			}
		}()
	}

	logger.Info("reflstats started",
		"first_year", first,
		"last_year", last,
		"input_dir", cfg.InputDir,
		"output_dir", cfg.OutputDir,
		"workers", cfg.Workers,
	)

	summaries := ctrl.RunYears(ctx, first, last)
	logSummaries(logger, summaries)

	if srv != nil {
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), cfg.ShutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("http server shutdown error", "error", err)
		}
	}

	logger.Info("reflstats finished")
	return nil
}

func logSummaries(logger *slog.Logger, summaries []domain.RunSummary) {
	states := map[string]int{}
	for _, s := range summaries {
		states[s.State]++
	}
	logger.Info("batch complete",
		"years", len(summaries),
		"done", states[pipeline.StateDone.String()],
		"skipped", states[pipeline.StateSkipped.String()],
		"failed", states[pipeline.StateFailed.String()],
	)
}
