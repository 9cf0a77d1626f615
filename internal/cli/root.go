package cli

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/ppiankov/credence/internal/logging"
	"github.com/ppiankov/credence/internal/model"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// version is set at build time with -ldflags "-X github.com/ppiankov/credence/internal/cli.version=..."
var version = "0.1.0"

var (
	cfgFile   string
	verbose   bool
	logLevel  string
	logFormat string

	// Loaded by PersistentPreRunE for every command that needs it
	cfg       *model.Config
	log       *logrus.Logger
	logCloser io.Closer
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "credence",
	Short: "Credence - claim cross-referencing and confidence fusion",
	Long: `Credence estimates how far an article's factual claims can be trusted.

It extracts checkable claims, looks each one up in published fact-checks,
and pools three signals into one confidence score:
  - the prior reliability of the publishing domain
  - the internal consistency of the text
  - how closely the claims match published fact-checks

Without matching fact-checks Credence reports "Insufficient data"
rather than guessing.`,
	SilenceErrors:     true,
	SilenceUsage:      true,
	PersistentPreRunE: loadRuntime,
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logCloser != nil {
			_ = logCloser.Close()
		}
	},
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

// versionCmd represents the version command
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Long:  `Display the version number of Credence.`,
	// No config needed to print a version
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error { return nil },
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "credence v%s\n", version)
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	// Global flags
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: $HOME/.credence/config.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output (debug logging)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level: debug, info, warn, error")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "", "log format: text, json")

	// Bind flags to viper
	_ = viper.BindPFlag("output.verbose", rootCmd.PersistentFlags().Lookup("verbose"))
	_ = viper.BindPFlag("logging.level", rootCmd.PersistentFlags().Lookup("log-level"))
	_ = viper.BindPFlag("logging.format", rootCmd.PersistentFlags().Lookup("log-format"))

	// Add subcommands
	rootCmd.AddCommand(versionCmd)
}

// initConfig reads in .env, the config file and environment variables
func initConfig() {
	// .env never overrides variables already set in the environment
	_ = godotenv.Load()

	if cfgFile != "" {
		// Use config file from the flag
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(filepath.Join(home, ".credence"))
		}
		viper.SetConfigType("yaml")
		viper.SetConfigName("config")
	}

	// CREDENCE_FACTCHECK_TOP_K overrides factcheck.top_k
	viper.SetEnvPrefix("CREDENCE")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	// Conventional variable names used by the upstream services
	_ = viper.BindEnv("factcheck.google_api_key", "CREDENCE_FACTCHECK_GOOGLE_API_KEY", "GOOGLE_FACTCHECK_API_KEY")

	if err := viper.ReadInConfig(); err == nil && verbose {
		fmt.Fprintf(os.Stderr, "Using config file: %s\n", viper.ConfigFileUsed())
	}
}

// loadRuntime builds the configuration and logger used by a command
func loadRuntime(cmd *cobra.Command, args []string) error {
	loaded, err := model.LoadConfig(viper.GetViper())
	if err != nil {
		return err
	}
	if verbose {
		loaded.Logging.Level = "debug"
	}
	if err := loaded.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	logger, closer, err := logging.New(loaded.Logging)
	if err != nil {
		return fmt.Errorf("setup logging: %w", err)
	}

	cfg, log, logCloser = loaded, logger, closer
	return nil
}
