package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/ppiankov/credence/internal/factcheck"
	"github.com/ppiankov/credence/internal/llm"
	"github.com/ppiankov/credence/internal/model"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

const configHierarchy = `Configuration hierarchy (highest to lowest priority):
  1. CLI flags
  2. Environment variables (CREDENCE_*, GOOGLE_FACTCHECK_API_KEY, OPENAI_API_KEY, ANTHROPIC_API_KEY)
  3. Config file (~/.credence/config.yaml)
  4. Defaults`

// configCmd represents the config command
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage Credence configuration",
	Long: `Manage Credence configuration files and settings.

` + configHierarchy,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	Long:  `Display the effective configuration after merging defaults, config file, environment variables and flags. Secrets are redacted.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		stdout := cmd.OutOrStdout()

		if configFile := viper.ConfigFileUsed(); configFile != "" {
			fmt.Fprintf(cmd.ErrOrStderr(), "Configuration file: %s\n\n", configFile)
		} else {
			fmt.Fprintf(cmd.ErrOrStderr(), "No configuration file found (using defaults)\n\n")
		}

		yamlData, err := yaml.Marshal(redacted(cfg))
		if err != nil {
			return fmt.Errorf("error marshaling config: %w", err)
		}

		fmt.Fprintln(stdout, "═══════════════════════════════════════════════════════════")
		fmt.Fprintln(stdout, "  Current Configuration")
		fmt.Fprintln(stdout, "═══════════════════════════════════════════════════════════")
		fmt.Fprintln(stdout)
		fmt.Fprintln(stdout, string(yamlData))
		fmt.Fprintln(stdout, "═══════════════════════════════════════════════════════════")
		fmt.Fprintln(stdout)
		fmt.Fprintln(stdout, configHierarchy)
		fmt.Fprintln(stdout)

		return nil
	},
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize default configuration file",
	Long:  `Create a default configuration file at ~/.credence/config.yaml with all available options.`,
	// Must work even when the current configuration is broken
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error { return nil },
	RunE: func(cmd *cobra.Command, args []string) error {
		home, err := os.UserHomeDir()
		if err != nil {
			return fmt.Errorf("error finding home directory: %w", err)
		}

		configPath := filepath.Join(home, ".credence", "config.yaml")
		if err := writeDefaultConfig(configPath); err != nil {
			return err
		}

		stdout := cmd.OutOrStdout()
		fmt.Fprintf(stdout, "✓ Created default configuration: %s\n", configPath)
		fmt.Fprintf(stdout, "\nTo view the configuration:\n")
		fmt.Fprintf(stdout, "  credence config show\n")
		fmt.Fprintf(stdout, "\nTo customize, edit the file with your preferred editor:\n")
		fmt.Fprintf(stdout, "  $EDITOR %s\n\n", configPath)

		return nil
	},
}

var configCheckCmd = &cobra.Command{
	Use:   "check",
	Short: "Validate configuration and probe the configured services",
	Long: `Check validates the configuration, reports which fact-check sources are
usable and, when an LLM provider is configured, verifies that it answers.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		stdout := cmd.OutOrStdout()
		// PersistentPreRunE already rejected an invalid configuration
		fmt.Fprintln(stdout, "✓ Configuration is valid")

		ok := true
		if _, err := factcheck.Configured(cfg.FactCheck, cfg.HTTP, nil, log); err != nil {
			ok = false
			if errors.Is(err, factcheck.ErrNoCredentials) {
				fmt.Fprintln(stdout, "✗ No usable fact-check source (set GOOGLE_FACTCHECK_API_KEY or add politifact to factcheck.sources)")
			} else {
				fmt.Fprintf(stdout, "✗ Fact-check sources: %v\n", err)
			}
		} else {
			fmt.Fprintf(stdout, "✓ Fact-check sources: %s\n", strings.Join(cfg.FactCheck.Sources, ", "))
		}

		provider, err := llm.NewProvider(llm.ConfigFromModel(cfg.LLM, cfg.HTTP))
		switch {
		case err != nil:
			ok = false
			fmt.Fprintf(stdout, "✗ LLM provider: %v\n", err)
		case provider == nil:
			fmt.Fprintln(stdout, "- LLM provider: disabled (heuristic claim extraction)")
		default:
			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()
			if err := provider.Ping(ctx); err != nil {
				ok = false
				fmt.Fprintf(stdout, "✗ LLM provider %s: %v\n", provider.Name(), err)
			} else {
				fmt.Fprintf(stdout, "✓ LLM provider %s is reachable\n", provider.Name())
			}
		}

		if !ok {
			return fmt.Errorf("configuration check failed")
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configCheckCmd)
}

// writeDefaultConfig writes the defaults as a commented YAML file. An
// existing file is never overwritten.
func writeDefaultConfig(configPath string) (err error) {
	if _, err := os.Stat(configPath); err == nil {
		return fmt.Errorf("config file already exists: %s\nUse 'credence config show' to view it, or delete it first to recreate", configPath)
	}

	if err := os.MkdirAll(filepath.Dir(configPath), 0755); err != nil {
		return fmt.Errorf("error creating config directory: %w", err)
	}

	yamlData, err := yaml.Marshal(model.DefaultConfig())
	if err != nil {
		return fmt.Errorf("error marshaling config: %w", err)
	}

	f, err := os.Create(configPath)
	if err != nil {
		return fmt.Errorf("error creating config file: %w", err)
	}
	defer func() {
		if closeErr := f.Close(); closeErr != nil && err == nil {
			err = fmt.Errorf("close config file: %w", closeErr)
		}
	}()

	// Helper for writing with error checking
	printf := func(w io.Writer, format string, a ...interface{}) {
		if err != nil {
			return
		}
		_, err = fmt.Fprintf(w, format, a...)
	}

	printf(f, "# Credence Configuration File\n")
	printf(f, "# See https://github.com/ppiankov/credence for full documentation\n")
	printf(f, "#\n")
	for _, line := range strings.Split(configHierarchy, "\n") {
		printf(f, "# %s\n", line)
	}
	printf(f, "\n%s", yamlData)
	printf(f, "\n# API Keys (recommended to use environment variables instead):\n")
	printf(f, "#   export GOOGLE_FACTCHECK_API_KEY=...\n")
	printf(f, "#   export OPENAI_API_KEY=sk-...\n")
	printf(f, "#   export ANTHROPIC_API_KEY=sk-ant-...\n")
	printf(f, "#   export OLLAMA_BASE_URL=http://localhost:11434\n")

	return err
}

// redacted returns a copy of c safe to print
func redacted(c *model.Config) model.Config {
	out := *c
	out.FactCheck.GoogleAPIKey = mask(out.FactCheck.GoogleAPIKey)
	out.LLM.APIKey = mask(out.LLM.APIKey)
	return out
}

func mask(secret string) string {
	if secret == "" {
		return ""
	}
	if len(secret) <= 8 {
		return "****"
	}
	return secret[:4] + "****"
}
