// Package output renders retrieval results and statistics for the CLI.
package output

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/logscout/logscout/internal/search"
)

// Writer renders CLI output. Write errors are intentionally ignored;
// console output is best effort.
type Writer struct {
	out io.Writer
}

// New creates a Writer targeting out.
func New(out io.Writer) *Writer {
	return &Writer{out: out}
}

// Line prints a plain line.
func (w *Writer) Line(msg string) {
	_, _ = fmt.Fprintln(w.out, msg)
}

// Linef prints a formatted line.
func (w *Writer) Linef(format string, args ...any) {
	_, _ = fmt.Fprintf(w.out, format+"\n", args...)
}

// Results renders a ranked result list with score and metadata tags.
func (w *Writer) Results(results []*search.RetrievalResult) {
	if len(results) == 0 {
		w.Line("No results.")
		return
	}
	for i, r := range results {
		w.Linef("%2d. [%.3f] %s", i+1, r.Score, r.Content)
		if tags := metadataTags(r); tags != "" {
			w.Linef("    %s", tags)
		}
	}
}

func metadataTags(r *search.RetrievalResult) string {
	var tags []string
	if r.Metadata.Level != "" {
		tags = append(tags, "level="+r.Metadata.Level)
	}
	if r.Metadata.Service != "" {
		tags = append(tags, "service="+r.Metadata.Service)
	}
	if r.Metadata.ErrorType != "" {
		tags = append(tags, "error="+r.Metadata.ErrorType)
	}
	tags = append(tags, "source="+string(r.Source))
	return strings.Join(tags, " ")
}

// Patterns renders error-category buckets with counts and shares.
func (w *Writer) Patterns(patterns []search.ErrorPattern) {
	if len(patterns) == 0 {
		w.Line("No recognizable error patterns.")
		return
	}
	for _, p := range patterns {
		w.Linef("%-12s %4d  (%.0f%%)", p.Category, p.Count, p.Share*100)
	}
}

// Distribution renders a titled key-count table in key order.
func (w *Writer) Distribution(title string, dist map[string]int) {
	if len(dist) == 0 {
		return
	}
	keys := make([]string, 0, len(dist))
	for k := range dist {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	w.Linef("%s:", title)
	for _, k := range keys {
		w.Linef("  %-20s %d", k, dist[k])
	}
}

// Progress prints an in-place progress bar. Call with current == total
// to finish the line.
func (w *Writer) Progress(current, total int, msg string) {
	if total <= 0 {
		return
	}

	pct := float64(current) / float64(total) * 100
	bar := renderProgressBar(current, total, 30)
	_, _ = fmt.Fprintf(w.out, "\r[%s] %.0f%% %s", bar, pct, msg)

	if current >= total {
		_, _ = fmt.Fprintln(w.out)
	}
}

func renderProgressBar(current, total, width int) string {
	if total <= 0 {
		return strings.Repeat("░", width)
	}

	pct := float64(current) / float64(total)
	filled := int(pct * float64(width))

	if filled > width {
		filled = width
	}
	if filled < 0 {
		filled = 0
	}

	return strings.Repeat("█", filled) + strings.Repeat("░", width-filled)
}
