package cmd

import (
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/openpress/newsimg/internal/clock/system"
	"github.com/openpress/newsimg/internal/csvio"
	"github.com/openpress/newsimg/internal/extract"
	collyfetcher "github.com/openpress/newsimg/internal/fetcher/colly"
	"github.com/openpress/newsimg/internal/pipeline"
	"github.com/openpress/newsimg/internal/policy/ratelimit"
	"github.com/openpress/newsimg/internal/report"
)

// Column names of the fetch stage.
const (
	pageURLColumn  = "PageUrl"
	imageURLColumn = "ImageURL"
)

// newFetchCmd creates and configures the 'fetch' subcommand.
func newFetchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "fetch",
		Short: "Fetch article pages and record their lead image URLs",
		Long: `Reads a CSV with a PageUrl column, fetches every listed page through
a bounded worker pool, extracts the most plausible lead image from each,
and writes the input rows plus an ImageURL column to the output CSV.
Rows that fail keep any image URL recorded by an earlier run, and every
failure is appended to the error log.`,
		RunE: runFetchCommand,
	}

	flags := cmd.Flags()
	flags.StringP("input", "i", "", "input CSV with a PageUrl column")
	flags.StringP("output", "o", "", "output CSV path (default <input>_with_images.<ext>)")
	flags.IntP("limit", "n", 10, "maximum rows to process, 0 processes all")
	flags.Int("workers", 8, "concurrent page fetches")
	flags.String("error-log", "fetch_errors.log", "failure log path, appended across runs")
	flags.Bool("insecure", false, "skip TLS certificate verification for every request")
	flags.Float64("rate", 5, "per-host request rate in requests per second, 0 disables")
	flags.Int("timeout", 12, "per-request timeout in seconds")

	_ = viper.BindPFlag("fetch.input", flags.Lookup("input"))
	_ = viper.BindPFlag("fetch.output", flags.Lookup("output"))
	_ = viper.BindPFlag("fetch.limit", flags.Lookup("limit"))
	_ = viper.BindPFlag("fetch.workers", flags.Lookup("workers"))
	_ = viper.BindPFlag("fetch.error_log", flags.Lookup("error-log"))
	_ = viper.BindPFlag("fetch.insecure", flags.Lookup("insecure"))
	_ = viper.BindPFlag("fetch.rate_rps", flags.Lookup("rate"))
	_ = viper.BindPFlag("http.timeout_seconds", flags.Lookup("timeout"))

	return cmd
}

func runFetchCommand(cmd *cobra.Command, _ []string) error {
	appInstance, err := resolveApp(cmd.Context())
	if err != nil {
		return err
	}
	cfg := appInstance.Config
	logger := appInstance.Logger

	if cfg.Fetch.Input == "" {
		return errors.New("fetch.input is required (--input)")
	}
	outPath := cfg.Fetch.Output
	if outPath == "" {
		outPath = csvio.DeriveOutputPath(cfg.Fetch.Input, "_with_images")
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	table, err := csvio.Read(cfg.Fetch.Input)
	if err != nil {
		return fmt.Errorf("read input: %w", err)
	}
	urlCol, err := table.RequireColumn(pageURLColumn)
	if err != nil {
		return err
	}
	table.Truncate(cfg.Fetch.Limit)
	imgCol := table.EnsureColumn(imageURLColumn)
	tasks := buildFetchTasks(table, urlCol)

	pageFetcher := collyfetcher.New(collyfetcher.Config{
		UserAgent: cfg.HTTP.UserAgent,
		Timeout:   cfg.Timeout(),
	})
	retrier := pipeline.NewRetrier(pipeline.RetrierConfig{
		Policy:   pipeline.NewRetryPolicy(cfg.HTTP.MaxAttempts, cfg.BackoffBase(), cfg.BackoffMax()),
		Limiter:  ratelimit.New(ratelimit.Config{RPS: cfg.Fetch.RateRPS}),
		Logger:   logger,
		Insecure: cfg.Fetch.Insecure,
	})
	processor := pipeline.NewPageProcessor(retrier, pageFetcher, extract.New(), logger)
	pool, err := pipeline.NewPool(pipeline.PoolConfig{
		Workers:   cfg.Fetch.Workers,
		Processor: processor,
		CacheSize: cfg.Fetch.CacheSize,
		Logger:    logger,
	})
	if err != nil {
		return err
	}

	logger.Info("fetch started",
		zap.String("input", cfg.Fetch.Input),
		zap.String("output", outPath),
		zap.Int("rows", len(table.Rows)),
		zap.Int("tasks", len(tasks)),
		zap.Int("workers", cfg.Fetch.Workers),
		zap.Bool("insecure", cfg.Fetch.Insecure),
	)

	start := time.Now()
	outcomes := pool.Run(ctx, tasks)

	stats, entries := report.Apply(table, outcomes, system.Clock{}, func(row []string, outcome pipeline.Outcome) {
		row[imgCol] = outcome.Value
	})
	stats.Elapsed = time.Since(start)
	stats.Interrupted = ctx.Err() != nil

	if err := csvio.Write(outPath, table); err != nil {
		return fmt.Errorf("write output: %w", err)
	}
	if cfg.Fetch.ErrorLog != "" {
		if err := report.AppendErrorLog(cfg.Fetch.ErrorLog, entries); err != nil {
			return fmt.Errorf("append error log: %w", err)
		}
	}

	report.RenderSummary(cmd.OutOrStdout(), stats)
	logger.Info("fetch finished",
		zap.String("output", outPath),
		zap.Int("success", stats.Success),
		zap.Int("no_image", stats.NotFound),
		zap.Int("failed", stats.Failed),
		zap.Duration("elapsed", stats.Elapsed),
	)
	return nil
}

// buildFetchTasks maps table rows onto pipeline tasks, skipping rows
// without a URL. The task index is the row index, so outcomes land
// back on the rows that produced them.
func buildFetchTasks(table *csvio.Table, urlCol int) []pipeline.Task {
	tasks := make([]pipeline.Task, 0, len(table.Rows))
	for i, row := range table.Rows {
		url := strings.TrimSpace(row[urlCol])
		if url == "" {
			continue
		}
		tasks = append(tasks, pipeline.Task{Index: i, URL: url, Ref: url})
	}
	return tasks
}
