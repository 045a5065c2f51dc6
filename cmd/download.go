package cmd

import (
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/openpress/newsimg/internal/clock/system"
	"github.com/openpress/newsimg/internal/csvio"
	"github.com/openpress/newsimg/internal/download"
	"github.com/openpress/newsimg/internal/pipeline"
	"github.com/openpress/newsimg/internal/policy/ratelimit"
	"github.com/openpress/newsimg/internal/report"
)

// Columns added by the download stage.
const (
	imageFileNameColumn = "ImageFileName"
	imageFilePathColumn = "ImageFilePath"
)

// newDownloadCmd creates and configures the 'download' subcommand.
func newDownloadCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "download",
		Short: "Download the located images to disk",
		Long: `Reads a CSV produced by the fetch command, downloads every image URL
through a bounded worker pool, and stores the files under the image
directory. File names derive from the row's ID column when present,
otherwise from a digest of the image URL. The rows plus ImageFileName
and ImageFilePath columns are written to the output CSV.`,
		RunE: runDownloadCommand,
	}

	flags := cmd.Flags()
	flags.StringP("input", "i", "", "input CSV with an image URL column")
	flags.StringP("output", "o", "", "output CSV path (default <input>_downloaded.<ext>)")
	flags.StringP("dir", "d", "downloaded_images", "directory to store images in")
	flags.String("column", "ImageURL", "column holding the image URLs")
	flags.String("id-column", "ID", "column naming downloaded files")
	flags.IntP("limit", "n", 0, "maximum rows to process, 0 processes all")
	flags.Int("workers", 8, "concurrent downloads")
	flags.String("error-log", "fetch_errors.log", "failure log path, appended across runs")
	flags.Bool("insecure", false, "skip TLS certificate verification for every request")
	flags.Float64("rate", 5, "per-host request rate in requests per second, 0 disables")
	flags.Int("timeout", 20, "per-download timeout in seconds")

	_ = viper.BindPFlag("download.input", flags.Lookup("input"))
	_ = viper.BindPFlag("download.output", flags.Lookup("output"))
	_ = viper.BindPFlag("download.dir", flags.Lookup("dir"))
	_ = viper.BindPFlag("download.column", flags.Lookup("column"))
	_ = viper.BindPFlag("download.id_column", flags.Lookup("id-column"))
	_ = viper.BindPFlag("download.limit", flags.Lookup("limit"))
	_ = viper.BindPFlag("download.workers", flags.Lookup("workers"))
	_ = viper.BindPFlag("download.error_log", flags.Lookup("error-log"))
	_ = viper.BindPFlag("download.insecure", flags.Lookup("insecure"))
	_ = viper.BindPFlag("download.rate_rps", flags.Lookup("rate"))
	_ = viper.BindPFlag("download.timeout_seconds", flags.Lookup("timeout"))

	return cmd
}

func runDownloadCommand(cmd *cobra.Command, _ []string) error {
	appInstance, err := resolveApp(cmd.Context())
	if err != nil {
		return err
	}
	cfg := appInstance.Config
	logger := appInstance.Logger

	if cfg.Download.Input == "" {
		return errors.New("download.input is required (--input)")
	}
	outPath := cfg.Download.Output
	if outPath == "" {
		outPath = csvio.DeriveOutputPath(cfg.Download.Input, "_downloaded")
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	table, err := csvio.Read(cfg.Download.Input)
	if err != nil {
		return fmt.Errorf("read input: %w", err)
	}
	urlCol, err := table.RequireColumn(cfg.Download.Column)
	if err != nil {
		return err
	}
	// The ID column is optional; without it file names fall back to a
	// URL digest.
	idCol, hasID := table.ColumnIndex(cfg.Download.IDColumn)
	table.Truncate(cfg.Download.Limit)
	nameCol := table.EnsureColumn(imageFileNameColumn)
	pathCol := table.EnsureColumn(imageFilePathColumn)
	tasks := buildDownloadTasks(table, urlCol, idCol, hasID)

	sink, err := download.NewSink(cfg.Download.Dir)
	if err != nil {
		return fmt.Errorf("init image directory: %w", err)
	}
	fetcher := download.NewFetcher(download.FetcherConfig{
		UserAgent: cfg.HTTP.UserAgent,
		Timeout:   cfg.DownloadTimeout(),
	})
	retrier := pipeline.NewRetrier(pipeline.RetrierConfig{
		Policy:   pipeline.NewRetryPolicy(cfg.HTTP.MaxAttempts, cfg.BackoffBase(), cfg.BackoffMax()),
		Limiter:  ratelimit.New(ratelimit.Config{RPS: cfg.Download.RateRPS}),
		Logger:   logger,
		Insecure: cfg.Download.Insecure,
	})
	processor := download.NewProcessor(retrier, fetcher, sink, logger)
	pool, err := pipeline.NewPool(pipeline.PoolConfig{
		Workers:   cfg.Download.Workers,
		Processor: processor,
		CacheSize: cfg.Download.CacheSize,
		Logger:    logger,
	})
	if err != nil {
		return err
	}

	logger.Info("download started",
		zap.String("input", cfg.Download.Input),
		zap.String("dir", sink.BaseDir()),
		zap.Int("rows", len(table.Rows)),
		zap.Int("tasks", len(tasks)),
		zap.Int("workers", cfg.Download.Workers),
	)

	start := time.Now()
	outcomes := pool.Run(ctx, tasks)

	stats, entries := report.Apply(table, outcomes, system.Clock{}, func(row []string, outcome pipeline.Outcome) {
		row[nameCol] = filepath.Base(outcome.Value)
		row[pathCol] = outcome.Value
	})
	stats.Elapsed = time.Since(start)
	stats.Interrupted = ctx.Err() != nil

	if err := csvio.Write(outPath, table); err != nil {
		return fmt.Errorf("write output: %w", err)
	}
	if cfg.Download.ErrorLog != "" {
		if err := report.AppendErrorLog(cfg.Download.ErrorLog, entries); err != nil {
			return fmt.Errorf("append error log: %w", err)
		}
	}

	report.RenderSummary(cmd.OutOrStdout(), stats)
	logger.Info("download finished",
		zap.String("output", outPath),
		zap.Int("success", stats.Success),
		zap.Int("failed", stats.Failed),
		zap.Duration("elapsed", stats.Elapsed),
	)
	return nil
}

func buildDownloadTasks(table *csvio.Table, urlCol, idCol int, hasID bool) []pipeline.Task {
	tasks := make([]pipeline.Task, 0, len(table.Rows))
	for i, row := range table.Rows {
		url := strings.TrimSpace(row[urlCol])
		if url == "" {
			continue
		}
		ref := ""
		if hasID {
			ref = strings.TrimSpace(row[idCol])
		}
		tasks = append(tasks, pipeline.Task{Index: i, URL: url, Ref: ref})
	}
	return tasks
}
