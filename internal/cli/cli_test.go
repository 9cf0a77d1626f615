package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ppiankov/credence/internal/model"
	"github.com/ppiankov/credence/internal/pipeline"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// resetFlags restores flag variables; cobra keeps values between Execute calls
func resetFlags() {
	inputText, inputFile, sourceURL, jsonOut, mdOut = "", "", "", "", ""
	topK, claimWorkers, concurrency = 0, 0, 0
	noCache, noFooter = false, false
	llmProvider, llmModel, userAgent, httpProxy, httpsProxy = "", "", "", "", ""
	factSources = nil
	cfgFile, verbose, logLevel, logFormat = "", false, "", ""
}

func executeCommand(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	resetFlags()
	t.Cleanup(resetFlags)

	// Keep the run away from the real home directory and credentials
	t.Setenv("HOME", t.TempDir())
	t.Setenv("GOOGLE_FACTCHECK_API_KEY", "")
	t.Setenv("CREDENCE_CACHE_ENABLED", "false")

	var stdout, stderr bytes.Buffer
	rootCmd.SetOut(&stdout)
	rootCmd.SetErr(&stderr)
	rootCmd.SetIn(strings.NewReader(""))
	rootCmd.SetArgs(args)
	t.Cleanup(func() {
		rootCmd.SetOut(nil)
		rootCmd.SetErr(nil)
		rootCmd.SetIn(nil)
	})

	err := rootCmd.Execute()
	return stdout.String(), stderr.String(), err
}

func TestVersionCommand(t *testing.T) {
	stdout, _, err := executeCommand(t, "version")
	require.NoError(t, err)
	assert.Equal(t, "credence v"+version+"\n", stdout)
}

func TestAnalyzeCommand_NoFactCheckSource(t *testing.T) {
	text := "Vaccine X reduces hospitalization by 90%, officials said. The weather was pleasant in the afternoon."
	stdout, stderr, err := executeCommand(t, "analyze", "--text", text, "--url", "https://www.example.com/story")
	require.NoError(t, err)

	assert.Contains(t, stdout, `"verdict": "Insufficient data"`)
	assert.Contains(t, stdout, `"confidence": -1`)
	assert.Contains(t, stdout, `"domain": "example.com"`)
	assert.Contains(t, stderr, "Verdict:          Insufficient data (confidence n/a)")
}

func TestAnalyzeCommand_WritesFiles(t *testing.T) {
	dir := t.TempDir()
	input := filepath.Join(dir, "article.txt")
	require.NoError(t, os.WriteFile(input, []byte("Officials said the program cost 3 billion dollars over five years."), 0644))

	jsonPath := filepath.Join(dir, "out", "report.json")
	mdPath := filepath.Join(dir, "out", "report.md")

	stdout, stderr, err := executeCommand(t, "analyze", input, "--json", jsonPath, "--md", mdPath, "--no-footer")
	require.NoError(t, err)
	assert.Empty(t, stdout)
	assert.Contains(t, stderr, "✓ Report written: "+jsonPath)

	md, err := os.ReadFile(mdPath)
	require.NoError(t, err)
	assert.Contains(t, string(md), "# Credence report")
	assert.NotContains(t, string(md), "It is not a ruling on truth.")

	_, err = os.Stat(jsonPath)
	assert.NoError(t, err)
}

func TestAnalyzeCommand_EmptyInput(t *testing.T) {
	_, _, err := executeCommand(t, "analyze", "--file", "-")
	assert.ErrorIs(t, err, pipeline.ErrEmptyText)
}

func TestAnalyzeCommand_InvalidOverride(t *testing.T) {
	_, _, err := executeCommand(t, "analyze", "--text", "anything at all", "--sources", "wikipedia")
	require.Error(t, err)
	assert.Contains(t, err.Error(), `unknown source "wikipedia"`)
}

func TestBatchCommand(t *testing.T) {
	dir := t.TempDir()
	input := filepath.Join(dir, "inputs.jsonl")
	lines := strings.Join([]string{
		"# fixtures",
		`{"id": "story/1", "url": "https://www.example.com/a", "text": "Officials said unemployment fell by 2 percent last year."}`,
		"Researchers reported that 40% of respondents changed their plans.",
		"",
	}, "\n")
	require.NoError(t, os.WriteFile(input, []byte(lines), 0644))

	out := filepath.Join(dir, "reports")
	_, stderr, err := executeCommand(t, "batch", input, "--output-dir", out, "--concurrency", "2")
	require.NoError(t, err)

	assert.Contains(t, stderr, "Total inputs:       2")
	assert.Contains(t, stderr, "✓ story_1:")
	assert.Contains(t, stderr, "✓ line-3:")

	for _, name := range []string{"story_1.json", "story_1.md", "line-3.json", "line-3.md"} {
		_, err := os.Stat(filepath.Join(out, name))
		assert.NoError(t, err, name)
	}
}

func TestConfigShow_RedactsSecrets(t *testing.T) {
	t.Setenv("CREDENCE_FACTCHECK_GOOGLE_API_KEY", "AIzaSyExampleSecretKey")
	stdout, _, err := executeCommand(t, "config", "show")
	require.NoError(t, err)

	assert.Contains(t, stdout, "AIza****")
	assert.NotContains(t, stdout, "ExampleSecretKey")
}

func TestConfigInit(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")
	require.NoError(t, writeDefaultConfig(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(data), "# Credence Configuration File\n"))
	assert.Contains(t, string(data), "top_k: 5")
	assert.Contains(t, string(data), "GOOGLE_FACTCHECK_API_KEY")

	err = writeDefaultConfig(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already exists")
}

func TestApplyRunFlags(t *testing.T) {
	resetFlags()
	t.Cleanup(resetFlags)

	topK, noCache, noFooter = 3, true, true
	factSources = []string{"politifact"}
	llmProvider, llmModel = "ollama", "llama3.1"
	httpsProxy = "http://proxy.internal:3128"

	c := model.DefaultConfig()
	require.NoError(t, applyRunFlags(c))

	assert.Equal(t, 3, c.FactCheck.TopK)
	assert.False(t, c.Cache.Enabled)
	assert.False(t, c.Output.IncludeFooter)
	assert.Equal(t, []string{"politifact"}, c.FactCheck.Sources)
	assert.Equal(t, "ollama", c.LLM.Provider)
	assert.Equal(t, "llama3.1", c.LLM.Model)
	assert.Equal(t, "http://proxy.internal:3128", c.HTTP.HTTPSProxy)

	llmProvider = "gemini"
	assert.Error(t, applyRunFlags(model.DefaultConfig()))
}

func TestSanitizeFilename(t *testing.T) {
	tests := map[string]string{
		"line-4":              "line-4",
		"story/1":             "story_1",
		`a:b*c?d"e<f>g|h\i j`: "a_b_c_d_e_f_g_h_i_j",
		"  ../etc/passwd  ":   "etc_passwd",
		"":                    "report",
		"...":                 "report",
	}
	for in, want := range tests {
		assert.Equal(t, want, sanitizeFilename(in), "input %q", in)
	}

	// Truncation counts runes
	assert.Equal(t, strings.Repeat("é", 100), sanitizeFilename(strings.Repeat("é", 150)))
}

func TestMask(t *testing.T) {
	assert.Equal(t, "", mask(""))
	assert.Equal(t, "****", mask("short"))
	assert.Equal(t, "sk-a****", mask("sk-abcdefghijkl"))

	c := model.DefaultConfig()
	c.LLM.APIKey = "sk-abcdefghijkl"
	shown := redacted(c)
	assert.Equal(t, "sk-a****", shown.LLM.APIKey)
	assert.Equal(t, "sk-abcdefghijkl", c.LLM.APIKey, "original must be untouched")
}

func TestReadText(t *testing.T) {
	resetFlags()
	t.Cleanup(resetFlags)

	inputText = "inline text"
	text, err := readText(strings.NewReader("stdin text"), nil)
	require.NoError(t, err)
	assert.Equal(t, "inline text", text)

	inputText = ""
	text, err = readText(strings.NewReader("stdin text"), nil)
	require.NoError(t, err)
	assert.Equal(t, "stdin text", text)

	_, err = readText(strings.NewReader(""), []string{filepath.Join(t.TempDir(), "missing.txt")})
	assert.Error(t, err)
}
