package pipeline

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	jsoniter "github.com/json-iterator/go"
	"github.com/ppiankov/credence/internal/model"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Renderer writes reports as JSON, Markdown or a terminal summary
type Renderer struct {
	includeFooter bool
}

// NewRenderer creates a renderer
func NewRenderer(includeFooter bool) *Renderer {
	return &Renderer{includeFooter: includeFooter}
}

// WriteJSON renders a report as indented JSON
func (r *Renderer) WriteJSON(w io.Writer, report *model.Report) error {
	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal report: %w", err)
	}
	data = append(data, '\n')
	_, err = w.Write(data)
	return err
}

// RenderJSON writes the JSON report to path, creating parent directories
func (r *Renderer) RenderJSON(report *model.Report, path string) error {
	return writeFile(path, func(w io.Writer) error { return r.WriteJSON(w, report) })
}

// RenderMarkdown writes the Markdown report to path, creating parent directories
func (r *Renderer) RenderMarkdown(report *model.Report, path string) error {
	return writeFile(path, func(w io.Writer) error { return r.WriteMarkdown(w, report) })
}

// WriteMarkdown renders a human-readable report
func (r *Renderer) WriteMarkdown(w io.Writer, report *model.Report) error {
	var b strings.Builder

	fmt.Fprintf(&b, "# Credence report: %s\n\n", report.Subject)
	fmt.Fprintf(&b, "- **Verdict:** %s (%s)\n", report.Fusion.Verdict, confidenceText(report.Fusion))
	if report.SourceURL != "" {
		fmt.Fprintf(&b, "- **Source:** %s (%s, prior %.2f)\n", report.SourceURL, report.Domain, report.SourcePrior)
	} else {
		fmt.Fprintf(&b, "- **Source:** unknown (prior %.2f)\n", report.SourcePrior)
	}
	fmt.Fprintf(&b, "- **Extractor:** %s\n", report.Extractor)
	fmt.Fprintf(&b, "- **Analyzed:** %s\n", report.AnalyzedAt.Format("2006-01-02 15:04:05 UTC"))
	fmt.Fprintf(&b, "- **Run ID:** %s\n\n", report.ID)

	b.WriteString("## Signals\n\n")
	b.WriteString("| Signal | Value |\n|---|---|\n")
	fmt.Fprintf(&b, "| Source prior | %.2f |\n", report.SourcePrior)
	fmt.Fprintf(&b, "| Text consistency | %.2f |\n", report.TextConsistency)
	fmt.Fprintf(&b, "| Cross-reference | %.2f |\n\n", report.CrossReference)
	fmt.Fprintf(&b, "> %s\n\n", report.Fusion.Explanation)

	fmt.Fprintf(&b, "## Claims (%d)\n\n", len(report.Claims))
	if len(report.Claims) == 0 {
		b.WriteString("No checkable claims were found.\n\n")
	}
	for i, claim := range report.Claims {
		fmt.Fprintf(&b, "### %d. %s\n\n", i+1, oneLine(claim.Text))
		if meta := claimMeta(claim); meta != "" {
			fmt.Fprintf(&b, "_%s_\n\n", meta)
		}

		if len(claim.Evidence) == 0 {
			b.WriteString("No matching fact-checks.\n\n")
			continue
		}

		b.WriteString("| Publisher | Rating | Stance | Similarity | Link |\n|---|---|---|---|---|\n")
		for _, ev := range claim.Evidence {
			fmt.Fprintf(&b, "| %s | %s (%.2f) | %s | %.2f | %s |\n",
				cell(ev.SourceName), cell(ev.TruthMeter), ev.TruthMeterScore, ev.Stance, ev.Similarity, cell(ev.SourceURL))
		}
		b.WriteString("\n")
	}

	if len(report.Warnings) > 0 {
		b.WriteString("## Warnings\n\n")
		for _, warning := range report.Warnings {
			fmt.Fprintf(&b, "- %s\n", warning)
		}
		b.WriteString("\n")
	}

	if r.includeFooter {
		b.WriteString("---\n\n")
		b.WriteString("_Confidence pools the publisher prior, the text's internal consistency and published fact-checks. It is not a ruling on truth._\n")
	}

	_, err := io.WriteString(w, b.String())
	return err
}

// RenderSummary prints a short summary
func (r *Renderer) RenderSummary(w io.Writer, report *model.Report) {
	fmt.Fprintf(w, "\n%s\n", report.Subject)
	fmt.Fprintf(w, "  Verdict:          %s (%s)\n", report.Fusion.Verdict, confidenceText(report.Fusion))
	fmt.Fprintf(w, "  Source prior:     %.2f", report.SourcePrior)
	if report.Domain != "" {
		fmt.Fprintf(w, " (%s)", report.Domain)
	}
	fmt.Fprintln(w)
	fmt.Fprintf(w, "  Text consistency: %.2f\n", report.TextConsistency)
	fmt.Fprintf(w, "  Cross-reference:  %.2f\n", report.CrossReference)
	fmt.Fprintf(w, "  Claims:           %d (%d fact-checks matched)\n", len(report.Claims), report.EvidenceCount())
	for _, warning := range report.Warnings {
		fmt.Fprintf(w, "  Warning: %s\n", warning)
	}
}

func confidenceText(f model.FusionResult) string {
	if f.Insufficient() {
		return "confidence n/a"
	}
	return fmt.Sprintf("confidence %.2f", f.Confidence)
}

func claimMeta(c model.Claim) string {
	var parts []string
	if c.Located() {
		parts = append(parts, fmt.Sprintf("chars %d-%d", *c.StartChar, *c.EndChar))
	}
	if c.Topic != "" {
		parts = append(parts, "topic "+c.Topic)
	}
	if c.Heuristic != "" {
		parts = append(parts, "rule "+c.Heuristic)
	}
	return strings.Join(parts, " · ")
}

func oneLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func cell(s string) string {
	if s == "" {
		return "-"
	}
	return strings.ReplaceAll(oneLine(s), "|", "\\|")
}

func writeFile(path string, render func(io.Writer) error) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("create output dir: %w", err)
		}
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := render(f); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}
