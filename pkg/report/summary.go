package report

import (
	"context"
	"embed"
	"fmt"
	"io"
	"strings"
	"text/template"
	"time"

	"github.com/charmbracelet/glamour"
	"github.com/pigeonworks-llc/firefly-sync/pkg/reconcile"
	"github.com/shopspring/decimal"
)

//go:embed templates/*.md
var templates embed.FS

var summaryTemplate = template.Must(template.New("summary.md").Funcs(template.FuncMap{
	"fixed": func(d decimal.Decimal) string { return d.StringFixed(2) },
	"duration": func(r *reconcile.SyncResult) string {
		if r.FinishedAt.IsZero() {
			return "-"
		}
		return r.FinishedAt.Sub(r.StartedAt).Round(time.Millisecond).String()
	},
}).ParseFS(templates, "templates/summary.md"))

// Summary renders result as a markdown document.
func Summary(result *reconcile.SyncResult) string {
	var b strings.Builder
	if err := summaryTemplate.Execute(&b, result); err != nil {
		return fmt.Sprintf("error executing summary template: %v", err)
	}
	return b.String()
}

// Render formats markdown for a terminal of the given width.
func Render(markdown string, width int) (string, error) {
	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		return "", fmt.Errorf("failed to create renderer: %w", err)
	}
	out, err := r.Render(markdown)
	if err != nil {
		return "", fmt.Errorf("failed to render markdown: %w", err)
	}
	return out, nil
}

// SummaryReporter prints the summary of every run to a writer.
type SummaryReporter struct {
	w io.Writer
	// Width is the word wrap width of the rendered output. Zero prints raw
	// markdown.
	Width int
}

// NewSummaryReporter creates a SummaryReporter printing to w.
func NewSummaryReporter(w io.Writer, width int) *SummaryReporter {
	return &SummaryReporter{w: w, Width: width}
}

// Report implements reconcile.Reporter.
func (s *SummaryReporter) Report(_ context.Context, result *reconcile.SyncResult) error {
	out := Summary(result)
	if s.Width > 0 {
		rendered, err := Render(out, s.Width)
		if err != nil {
			return err
		}
		out = rendered
	}
	_, err := io.WriteString(s.w, out)
	return err
}
