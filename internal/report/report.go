// Package report merges pipeline outcomes back into the CSV table,
// records failures in the append-only error log, and renders the
// end-of-run summary.
package report

import (
	"bufio"
	"fmt"
	"os"
	"time"

	"github.com/openpress/newsimg/internal/csvio"
	"github.com/openpress/newsimg/internal/pipeline"
)

// NoImageKind labels rows that fetched cleanly but held no image.
const NoImageKind = "no_image"

// ErrorEntry is one line appended to the error log.
type ErrorEntry struct {
	URL       string
	Kind      string
	Message   string
	Timestamp time.Time
}

// Line renders the entry in the log format:
//
//	2026-01-02T15:04:05Z kind=http_status url=https://... msg="http_status 503"
func (e ErrorEntry) Line() string {
	return fmt.Sprintf("%s kind=%s url=%s msg=%q",
		e.Timestamp.UTC().Format(time.RFC3339), e.Kind, e.URL, e.Message)
}

// Stats aggregates the end-of-run counters.
type Stats struct {
	// Processed counts rows that settled through the pipeline.
	Processed int
	Success   int
	NotFound  int
	Failed    int
	// Skipped counts rows with no fetchable URL.
	Skipped int
	Elapsed time.Duration
	// Interrupted is set when the run was cut short by a signal.
	Interrupted bool
}

// Assign writes a successful outcome into its row. The fetch stage
// stores the image URL; the download stage stores file name and path.
type Assign func(row []string, outcome pipeline.Outcome)

// Apply walks the table rows in order, applies successful outcomes via
// assign, and returns the counters plus one error entry per failed or
// image-less row. Rows without a successful outcome keep their prior
// cell values, so rerunning a failed batch never erases earlier
// results.
func Apply(table *csvio.Table, outcomes map[int]pipeline.Outcome, clock pipeline.Clock, assign Assign) (Stats, []ErrorEntry) {
	var stats Stats
	var entries []ErrorEntry

	for i, row := range table.Rows {
		outcome, ok := outcomes[i]
		if !ok {
			stats.Skipped++
			continue
		}
		stats.Processed++

		switch outcome.Kind {
		case pipeline.OutcomeSuccess:
			stats.Success++
			assign(row, outcome)
		case pipeline.OutcomeNotFound:
			stats.NotFound++
			entries = append(entries, ErrorEntry{
				URL:       outcome.URL,
				Kind:      NoImageKind,
				Message:   "no plausible image found",
				Timestamp: clock.Now(),
			})
		case pipeline.OutcomeFailed:
			stats.Failed++
			kind := string(pipeline.ErrorOther)
			message := "fetch failed"
			if outcome.Err != nil {
				kind = string(outcome.Err.Kind)
				message = outcome.Err.Error()
			}
			entries = append(entries, ErrorEntry{
				URL:       outcome.URL,
				Kind:      kind,
				Message:   message,
				Timestamp: clock.Now(),
			})
		}
	}
	return stats, entries
}

// AppendErrorLog appends entries to the log at path, creating the file
// when missing. Earlier runs' lines are preserved.
func AppendErrorLog(path string, entries []ErrorEntry) error {
	if len(entries) == 0 {
		return nil
	}
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open error log: %w", err)
	}

	w := bufio.NewWriter(f)
	for _, entry := range entries {
		if _, err := fmt.Fprintln(w, entry.Line()); err != nil {
			f.Close()
			return fmt.Errorf("write error log: %w", err)
		}
	}
	if err := w.Flush(); err != nil {
		f.Close()
		return fmt.Errorf("flush error log: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close error log: %w", err)
	}
	return nil
}
