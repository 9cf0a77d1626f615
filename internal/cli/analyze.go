package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/ppiankov/credence/internal/model"
	"github.com/ppiankov/credence/internal/pipeline"
	"github.com/spf13/cobra"
)

var (
	inputText    string
	inputFile    string
	sourceURL    string
	jsonOut      string
	mdOut        string
	timeout      time.Duration
	topK         int
	noCache      bool
	noFooter     bool
	llmProvider  string
	llmModel     string
	userAgent    string
	httpProxy    string
	httpsProxy   string
	factSources  []string
	claimWorkers int
)

// analyzeCmd represents the analyze command
var analyzeCmd = &cobra.Command{
	Use:   "analyze [file]",
	Short: "Cross-reference the claims of one text",
	Long: `Analyze extracts the factual claims of a text, looks each one up in
published fact-checks and fuses the result into one confidence score.

The text is read from --text, from a file argument, or from stdin.
HTML input is reduced to its visible text first.

Example:
  credence analyze article.txt --url https://www.example.com/story
  credence analyze --text "Vaccine X reduces hospitalization by 90%, officials said."
  curl -s https://example.com/story | credence analyze --url https://example.com/story --md report.md`,
	Args: cobra.MaximumNArgs(1),
	RunE: runAnalyze,
}

func init() {
	rootCmd.AddCommand(analyzeCmd)

	// Input flags
	analyzeCmd.Flags().StringVar(&inputText, "text", "", "text to analyze")
	analyzeCmd.Flags().StringVar(&inputFile, "file", "", "read the text from a file (- for stdin)")
	analyzeCmd.Flags().StringVar(&sourceURL, "url", "", "URL the text was published at (used for the source prior)")

	// Output flags
	analyzeCmd.Flags().StringVar(&jsonOut, "json", "", "write the JSON report to a file (- for stdout)")
	analyzeCmd.Flags().StringVar(&mdOut, "md", "", "write the Markdown report to a file (- for stdout)")
	analyzeCmd.Flags().DurationVar(&timeout, "timeout", 2*time.Minute, "timeout for the whole analysis")

	addRunFlags(analyzeCmd)
}

// addRunFlags registers the pipeline overrides shared by analyze and batch
func addRunFlags(cmd *cobra.Command) {
	cmd.Flags().IntVar(&topK, "top-k", 0, "evidence items kept per claim (default from config)")
	cmd.Flags().BoolVar(&noCache, "no-cache", false, "disable the fact-check result cache")
	cmd.Flags().BoolVar(&noFooter, "no-footer", false, "disable footer in Markdown reports")
	cmd.Flags().StringSliceVar(&factSources, "sources", nil, "fact-check sources to query (google, politifact)")
	cmd.Flags().IntVar(&claimWorkers, "claim-workers", 0, "claims cross-referenced in parallel (default from config)")
	cmd.Flags().StringVar(&userAgent, "ua", "", "HTTP User-Agent")
	cmd.Flags().StringVar(&httpProxy, "http-proxy", "", "HTTP proxy URL (overrides HTTP_PROXY env var)")
	cmd.Flags().StringVar(&httpsProxy, "https-proxy", "", "HTTPS proxy URL (overrides HTTPS_PROXY env var)")

	// LLM flags
	cmd.Flags().StringVar(&llmProvider, "llm", "", "LLM provider for claim extraction: openai, anthropic, ollama")
	cmd.Flags().StringVar(&llmModel, "model", "", "LLM model name (provider default if empty)")
}

// applyRunFlags overlays the command line on the loaded configuration
func applyRunFlags(cfg *model.Config) error {
	if topK > 0 {
		cfg.FactCheck.TopK = topK
	}
	if noCache {
		cfg.Cache.Enabled = false
	}
	if noFooter {
		cfg.Output.IncludeFooter = false
	}
	if len(factSources) > 0 {
		cfg.FactCheck.Sources = factSources
	}
	if claimWorkers > 0 {
		cfg.Concurrency.ClaimWorkers = claimWorkers
	}
	if userAgent != "" {
		cfg.HTTP.UserAgent = userAgent
	}
	if httpProxy != "" {
		cfg.HTTP.HTTPProxy = httpProxy
	}
	if httpsProxy != "" {
		cfg.HTTP.HTTPSProxy = httpsProxy
	}
	if llmProvider != "" {
		cfg.LLM.Provider = llmProvider
	}
	if llmModel != "" {
		cfg.LLM.Model = llmModel
	}

	return cfg.Validate()
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	if err := applyRunFlags(cfg); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	text, err := readText(cmd.InOrStdin(), args)
	if err != nil {
		return err
	}

	p, closer, err := pipeline.FromConfig(cfg, pipeline.BuildOptions{Logger: log})
	if err != nil {
		return fmt.Errorf("build pipeline: %w", err)
	}
	defer func() { _ = closer.Close() }()

	ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
	defer cancel()

	report, err := p.Analyze(ctx, model.Input{URL: sourceURL, Text: text})
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return fmt.Errorf("analysis timed out after %s", timeout)
		}
		return fmt.Errorf("analysis failed: %w", err)
	}

	renderer := pipeline.NewRenderer(cfg.Output.IncludeFooter)
	stdout, stderr := cmd.OutOrStdout(), cmd.ErrOrStderr()

	// JSON on stdout unless told otherwise
	jsonDest := jsonOut
	if jsonDest == "" && mdOut == "" {
		jsonDest = "-"
	}
	if jsonDest != "" {
		if err := writeReport(stdout, stderr, jsonDest, report, renderer.WriteJSON, renderer.RenderJSON); err != nil {
			return fmt.Errorf("render JSON: %w", err)
		}
	}
	if mdOut != "" {
		if err := writeReport(stdout, stderr, mdOut, report, renderer.WriteMarkdown, renderer.RenderMarkdown); err != nil {
			return fmt.Errorf("render Markdown: %w", err)
		}
	}

	renderer.RenderSummary(stderr, report)
	return nil
}

func writeReport(
	stdout, stderr io.Writer,
	dest string,
	report *model.Report,
	write func(io.Writer, *model.Report) error,
	render func(*model.Report, string) error,
) error {
	if dest == "-" {
		return write(stdout, report)
	}
	if err := render(report, dest); err != nil {
		return err
	}
	fmt.Fprintf(stderr, "✓ Report written: %s\n", dest)
	return nil
}

// readText picks the input text: --text, then a file (argument or --file),
// then stdin
func readText(stdin io.Reader, args []string) (string, error) {
	if inputText != "" {
		return inputText, nil
	}

	path := inputFile
	if len(args) > 0 {
		path = args[0]
	}

	var data []byte
	var err error
	switch path {
	case "":
		if f, ok := stdin.(*os.File); ok && isTerminal(f) {
			return "", fmt.Errorf("no input: pass --text, a file, or pipe text on stdin")
		}
		data, err = io.ReadAll(stdin)
	case "-":
		data, err = io.ReadAll(stdin)
	default:
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return "", fmt.Errorf("read input: %w", err)
	}

	if strings.TrimSpace(string(data)) == "" {
		return "", pipeline.ErrEmptyText
	}
	return string(data), nil
}

func isTerminal(f *os.File) bool {
	info, err := f.Stat()
	if err != nil {
		return false
	}
	return info.Mode()&os.ModeCharDevice != 0
}
