package worker

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	jsoniter "github.com/json-iterator/go"
	"github.com/ppiankov/credence/internal/model"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Analyzer runs one complete analysis
type Analyzer interface {
	Analyze(ctx context.Context, in model.Input) (*model.Report, error)
}

// BatchResult is the outcome of one batch item
type BatchResult struct {
	Input  model.Input
	Report *model.Report
	Error  error
}

// BatchProcessor analyzes many inputs concurrently
type BatchProcessor struct {
	analyzer    Analyzer
	concurrency int
}

// NewBatchProcessor creates a new batch processor
func NewBatchProcessor(analyzer Analyzer, concurrency int) *BatchProcessor {
	return &BatchProcessor{
		analyzer:    analyzer,
		concurrency: concurrency,
	}
}

// Process analyzes every input; results keep input order
func (b *BatchProcessor) Process(ctx context.Context, inputs []model.Input) []*BatchResult {
	return Map(ctx, b.concurrency, len(inputs), func(ctx context.Context, i int) *BatchResult {
		report, err := b.analyzer.Analyze(ctx, inputs[i])
		return &BatchResult{Input: inputs[i], Report: report, Error: err}
	})
}

// ProcessFile reads inputs from a file and analyzes them
func (b *BatchProcessor) ProcessFile(ctx context.Context, filePath string) ([]*BatchResult, error) {
	inputs, err := ReadInputsFromFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("read inputs: %w", err)
	}

	return b.Process(ctx, inputs), nil
}

// ReadInputsFromFile reads batch inputs from a file
func ReadInputsFromFile(filePath string) ([]model.Input, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("open file: %w", err)
	}
	defer func() { _ = file.Close() }()

	return ReadInputs(file)
}

// ReadInputs parses one input per line. A line starting with "{" is a JSON
// object with id, url and text fields; any other line is the text itself.
// Blank lines and lines starting with "#" are skipped and duplicate inputs
// are dropped.
func ReadInputs(r io.Reader) ([]model.Input, error) {
	var inputs []model.Input
	seen := make(map[model.Input]bool)

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)

	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())

		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		var in model.Input
		if strings.HasPrefix(line, "{") {
			if err := json.Unmarshal([]byte(line), &in); err != nil {
				return nil, fmt.Errorf("line %d: %w", lineNo, err)
			}
		} else {
			in.Text = line
		}

		if in.ID == "" {
			in.ID = fmt.Sprintf("line-%d", lineNo)
		}

		key := model.Input{URL: in.URL, Text: in.Text}
		if !seen[key] {
			seen[key] = true
			inputs = append(inputs, in)
		}
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan file: %w", err)
	}

	return inputs, nil
}
