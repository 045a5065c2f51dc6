package report

import (
	"io"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
)

// RenderSummary prints the end-of-run counters as a table.
func RenderSummary(w io.Writer, stats Stats) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetTitle("newsimg run summary")
	t.AppendHeader(table.Row{"Metric", "Count"})
	t.AppendRows([]table.Row{
		{"rows processed", stats.Processed},
		{"images found", stats.Success},
		{"no image", stats.NotFound},
		{"failed", stats.Failed},
	})
	if stats.Skipped > 0 {
		t.AppendRow(table.Row{"skipped (no url)", stats.Skipped})
	}
	t.AppendFooter(table.Row{"elapsed", stats.Elapsed.Round(time.Millisecond)})
	if stats.Interrupted {
		t.AppendFooter(table.Row{"interrupted", "yes"})
	}
	t.SetStyle(table.StyleRounded)
	t.Render()
}
