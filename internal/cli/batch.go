package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/ppiankov/credence/internal/pipeline"
	"github.com/ppiankov/credence/internal/worker"
	"github.com/spf13/cobra"
)

var (
	concurrency  int
	outputDir    string
	batchTimeout time.Duration
)

// batchCmd represents the batch command
var batchCmd = &cobra.Command{
	Use:   "batch <file>",
	Short: "Analyze many texts from a file in parallel",
	Long: `Batch analyzes every input of a file concurrently and writes a JSON
and a Markdown report per input.

Each line of the file is either a JSON object
  {"id": "story-1", "url": "https://www.example.com/story", "text": "..."}
or plain text. Blank lines and lines starting with # are skipped,
duplicate inputs are analyzed once, and inputs without an id are
named after their line (line-7).

Example:
  credence batch inputs.jsonl
  credence batch inputs.jsonl --concurrency 8 --output-dir ./reports
  credence batch inputs.jsonl --sources google,politifact --timeout 30m`,
	Args: cobra.ExactArgs(1),
	RunE: runBatch,
}

func init() {
	rootCmd.AddCommand(batchCmd)

	// Concurrency flags
	batchCmd.Flags().IntVar(&concurrency, "concurrency", 0, "number of inputs analyzed in parallel (default from config)")
	batchCmd.Flags().StringVar(&outputDir, "output-dir", "./credence-reports", "output directory for reports")
	batchCmd.Flags().DurationVar(&batchTimeout, "timeout", 30*time.Minute, "total timeout for batch processing")

	addRunFlags(batchCmd)
}

func runBatch(cmd *cobra.Command, args []string) error {
	inputPath := args[0]
	stderr := cmd.ErrOrStderr()

	if err := applyRunFlags(cfg); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	workers := concurrency
	if workers <= 0 {
		workers = cfg.Concurrency.BatchWorkers
	}

	p, closer, err := pipeline.FromConfig(cfg, pipeline.BuildOptions{Logger: log})
	if err != nil {
		return fmt.Errorf("build pipeline: %w", err)
	}
	defer func() { _ = closer.Close() }()

	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), batchTimeout)
	defer cancel()

	fmt.Fprintf(stderr, "═══════════════════════════════════════════════════════════\n")
	fmt.Fprintf(stderr, "  Credence Batch Analysis\n")
	fmt.Fprintf(stderr, "═══════════════════════════════════════════════════════════\n")
	fmt.Fprintf(stderr, "Input file:    %s\n", inputPath)
	fmt.Fprintf(stderr, "Concurrency:   %d workers\n", workers)
	fmt.Fprintf(stderr, "Sources:       %s\n", strings.Join(cfg.FactCheck.Sources, ", "))
	fmt.Fprintf(stderr, "Output dir:    %s\n", outputDir)
	fmt.Fprintf(stderr, "Timeout:       %s\n", batchTimeout)
	fmt.Fprintf(stderr, "═══════════════════════════════════════════════════════════\n\n")

	startTime := time.Now()

	processor := worker.NewBatchProcessor(p, workers)
	results, err := processor.ProcessFile(ctx, inputPath)
	if err != nil {
		return fmt.Errorf("batch processing failed: %w", err)
	}

	renderer := pipeline.NewRenderer(cfg.Output.IncludeFooter)
	summary := writeBatchReports(stderr, renderer, results)

	duration := time.Since(startTime)

	fmt.Fprintf(stderr, "\n═══════════════════════════════════════════════════════════\n")
	fmt.Fprintf(stderr, "  Batch Summary\n")
	fmt.Fprintf(stderr, "═══════════════════════════════════════════════════════════\n")
	fmt.Fprintf(stderr, "Total inputs:       %d\n", len(results))
	fmt.Fprintf(stderr, "Analyzed:           %d\n", summary.analyzed)
	fmt.Fprintf(stderr, "Failed:             %d\n", summary.failed)
	fmt.Fprintf(stderr, "Insufficient data:  %d\n", summary.insufficient)
	fmt.Fprintf(stderr, "Duration:           %s\n", duration.Round(time.Millisecond))
	if len(results) > 0 {
		fmt.Fprintf(stderr, "Avg per input:      %s\n", (duration / time.Duration(len(results))).Round(time.Millisecond))
	}
	fmt.Fprintf(stderr, "Reports saved to:   %s\n", outputDir)
	fmt.Fprintf(stderr, "═══════════════════════════════════════════════════════════\n")

	if summary.analyzed == 0 && summary.failed > 0 {
		return fmt.Errorf("all %d inputs failed", summary.failed)
	}
	return nil
}

type batchSummary struct {
	analyzed     int
	failed       int
	insufficient int
}

func writeBatchReports(w io.Writer, renderer *pipeline.Renderer, results []*worker.BatchResult) batchSummary {
	var summary batchSummary

	for _, result := range results {
		name := sanitizeFilename(result.Input.ID)

		if result.Error != nil {
			summary.failed++
			fmt.Fprintf(w, "✗ %s: %v\n", name, result.Error)
			continue
		}

		report := result.Report
		base := filepath.Join(outputDir, name)
		if err := renderer.RenderJSON(report, base+".json"); err != nil {
			summary.failed++
			fmt.Fprintf(w, "✗ %s: write JSON: %v\n", name, err)
			continue
		}
		if err := renderer.RenderMarkdown(report, base+".md"); err != nil {
			summary.failed++
			fmt.Fprintf(w, "✗ %s: write Markdown: %v\n", name, err)
			continue
		}

		summary.analyzed++
		if report.Fusion.Insufficient() {
			summary.insufficient++
		}
		fmt.Fprintf(w, "✓ %s: %s (%s, %d claims)\n", name, report.Fusion.Verdict, confidenceLabel(report.Fusion.Confidence), len(report.Claims))
	}

	return summary
}

func confidenceLabel(confidence float64) string {
	if confidence < 0 {
		return "n/a"
	}
	return fmt.Sprintf("%.2f", confidence)
}

// sanitizeFilename turns an input ID into a safe file name
func sanitizeFilename(s string) string {
	replacer := strings.NewReplacer(
		"/", "_", "\\", "_", ":", "_", "*", "_", "?", "_",
		"\"", "_", "<", "_", ">", "_", "|", "_", " ", "_",
	)
	s = replacer.Replace(strings.TrimSpace(s))
	s = strings.Trim(s, "._")

	if r := []rune(s); len(r) > 100 {
		s = string(r[:100])
	}
	if s == "" {
		s = "report"
	}
	return s
}
