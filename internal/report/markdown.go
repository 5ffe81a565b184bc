package report

import (
	"io"
	"strconv"
	"time"

	"github.com/nao1215/markdown"

	"github.com/gatecrawl/gatecrawl/internal/model"
)

// MarkdownWriter outputs reports in Markdown format.
// This format is designed for documentation and sharing.
//
// Design decision: We use the nao1215/markdown library for fluent markdown
// generation which provides:
// 1. Type-safe markdown generation
// 2. Support for tables, lists, and code blocks
// 3. GitHub-flavored markdown alerts
type MarkdownWriter struct {
	baseWriter
}

// NewMarkdownWriter creates a MarkdownWriter that outputs to the given writer.
func NewMarkdownWriter(output io.Writer) *MarkdownWriter {
	return &MarkdownWriter{
		baseWriter: newBaseWriter(output),
	}
}

// Write outputs the report in Markdown format.
func (w *MarkdownWriter) Write(report *model.CrawlReport) (int, error) {
	md := markdown.NewMarkdown(w.output)

	w.writeHeader(md, report)
	w.writeFlags(md, report)
	w.writePages(md, report)

	return len(md.String()), md.Build()
}

// writeHeader writes the run summary table.
func (w *MarkdownWriter) writeHeader(md *markdown.Markdown, report *model.CrawlReport) {
	md.H1("Gatecrawl Report")
	md.PlainText("")

	md.Table(markdown.TableSet{
		Header: []string{"Property", "Value"},
		Rows: [][]string{
			{"Target", "`" + report.Target + "`"},
			{"Scope Prefix", "`" + report.Prefix + "`"},
			{"Started", report.StartedAt.Format("2006-01-02 15:04:05 MST")},
			{"Elapsed", report.Elapsed.Round(time.Millisecond).String()},
			{"Pages Visited", strconv.Itoa(report.Visited)},
			{"Fetches", strconv.Itoa(report.Fetches)},
			{"Outcome", w.outcomeText(report.Outcome)},
		},
	})
	md.PlainText("")
}

// outcomeText renders the run outcome with a status marker.
func (w *MarkdownWriter) outcomeText(outcome model.Outcome) string {
	switch outcome {
	case model.OutcomeComplete:
		return "✅ Complete"
	case model.OutcomeExhausted:
		return "⚠️ Exhausted (frontier drained before the flag target)"
	case model.OutcomeInterrupted:
		return "⚠️ Interrupted (partial results)"
	case model.OutcomeAborted:
		return "❌ Aborted (fatal server status)"
	default:
		return string(outcome)
	}
}

// writeFlags writes the harvested flags in discovery order.
func (w *MarkdownWriter) writeFlags(md *markdown.Markdown, report *model.CrawlReport) {
	md.H2("Flags")
	md.PlainText("")

	if len(report.Flags) == 0 {
		md.PlainText("No flags found.")
		md.PlainText("")
		return
	}

	rows := make([][]string, 0, len(report.Flags))
	for i, flag := range report.Flags {
		rows = append(rows, []string{strconv.Itoa(i + 1), "`" + flag + "`"})
	}
	md.Table(markdown.TableSet{
		Header: []string{"#", "Flag"},
		Rows:   rows,
	})
	md.PlainText("")
}

// writePages writes one row per completed fetch.
func (w *MarkdownWriter) writePages(md *markdown.Markdown, report *model.CrawlReport) {
	if len(report.Pages) == 0 {
		return
	}

	md.H2("Pages")
	md.PlainText("")

	rows := make([][]string, 0, len(report.Pages))
	for _, page := range report.Pages {
		rows = append(rows, []string{
			strconv.Itoa(page.StatusCode),
			page.URL,
			page.BodyHash,
		})
	}
	md.Table(markdown.TableSet{
		Header: []string{"Status", "URL", "Body SHA3-256"},
		Rows:   rows,
	})
	md.PlainText("")
}
