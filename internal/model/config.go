package model

import (
	"fmt"
	"strings"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// Config is the complete credence configuration
type Config struct {
	HTTP        HTTPConfig        `yaml:"http" mapstructure:"http"`
	Cache       CacheConfig       `yaml:"cache" mapstructure:"cache"`
	FactCheck   FactCheckConfig   `yaml:"factcheck" mapstructure:"factcheck"`
	Stance      StanceConfig      `yaml:"stance" mapstructure:"stance"`
	Fusion      FusionConfig      `yaml:"fusion" mapstructure:"fusion"`
	Sources     SourcesConfig     `yaml:"sources" mapstructure:"sources"`
	Extraction  ExtractionConfig  `yaml:"extraction" mapstructure:"extraction"`
	LLM         LLMConfig         `yaml:"llm" mapstructure:"llm"`
	Concurrency ConcurrencyConfig `yaml:"concurrency" mapstructure:"concurrency"`
	Logging     LoggingConfig     `yaml:"logging" mapstructure:"logging"`
	Output      OutputConfig      `yaml:"output" mapstructure:"output"`
}

// HTTPConfig controls outbound HTTP behaviour
type HTTPConfig struct {
	UserAgent  string `yaml:"user_agent" mapstructure:"user_agent"`
	HTTPProxy  string `yaml:"http_proxy,omitempty" mapstructure:"http_proxy"`
	HTTPSProxy string `yaml:"https_proxy,omitempty" mapstructure:"https_proxy"`
	NoProxy    string `yaml:"no_proxy,omitempty" mapstructure:"no_proxy"`
}

// CacheConfig controls the fact-check result cache
type CacheConfig struct {
	Enabled bool          `yaml:"enabled" mapstructure:"enabled"`
	Backend string        `yaml:"backend" mapstructure:"backend"` // layered, memory, disk, buntdb
	Dir     string        `yaml:"dir" mapstructure:"dir"`
	TTL     time.Duration `yaml:"ttl" mapstructure:"ttl"`
}

// FactCheckConfig controls the external fact-check sources
type FactCheckConfig struct {
	Sources         []string      `yaml:"sources" mapstructure:"sources"` // google, politifact
	GoogleAPIKey    string        `yaml:"google_api_key,omitempty" mapstructure:"google_api_key"`
	GoogleBaseURL   string        `yaml:"google_base_url" mapstructure:"google_base_url"`
	GoogleDelay     time.Duration `yaml:"google_delay" mapstructure:"google_delay"`
	GoogleTimeout   time.Duration `yaml:"google_timeout" mapstructure:"google_timeout"`
	LanguageCode    string        `yaml:"language_code" mapstructure:"language_code"`
	PageSize        int           `yaml:"page_size" mapstructure:"page_size"`
	PublisherFilter string        `yaml:"publisher_filter,omitempty" mapstructure:"publisher_filter"`

	PolitiFactBaseURL string        `yaml:"politifact_base_url" mapstructure:"politifact_base_url"`
	PolitiFactDelay   time.Duration `yaml:"politifact_delay" mapstructure:"politifact_delay"`
	PolitiFactTimeout time.Duration `yaml:"politifact_timeout" mapstructure:"politifact_timeout"`

	TopK           int     `yaml:"top_k" mapstructure:"top_k"`
	RelevanceFloor float64 `yaml:"relevance_floor" mapstructure:"relevance_floor"`
}

// StanceConfig holds the truth-score thresholds for stance classification
type StanceConfig struct {
	SupportsAt float64 `yaml:"supports_at" mapstructure:"supports_at"`
	RefutesAt  float64 `yaml:"refutes_at" mapstructure:"refutes_at"`
}

// FusionConfig holds fusion weights and verdict thresholds
type FusionConfig struct {
	Weights      FusionWeights `yaml:"weights" mapstructure:"weights"`
	LikelyTrueAt float64       `yaml:"likely_true_at" mapstructure:"likely_true_at"`
	UncertainAt  float64       `yaml:"uncertain_at" mapstructure:"uncertain_at"`
}

// SourcesConfig holds publisher priors
type SourcesConfig struct {
	DefaultPrior float64       `yaml:"default_prior" mapstructure:"default_prior"` // No domain known
	UnknownPrior float64       `yaml:"unknown_prior" mapstructure:"unknown_prior"` // Domain not in Priors
	Priors       []DomainPrior `yaml:"priors" mapstructure:"priors"`
}

// DomainPrior is the prior truth probability of one publishing domain.
// Kept as a list because viper splits map keys on dots.
type DomainPrior struct {
	Domain string  `yaml:"domain" mapstructure:"domain"`
	Prior  float64 `yaml:"prior" mapstructure:"prior"`
}

// ExtractionConfig controls claim extraction
type ExtractionConfig struct {
	MaxClaims              int     `yaml:"max_claims" mapstructure:"max_claims"`
	DefaultTextConsistency float64 `yaml:"default_text_consistency" mapstructure:"default_text_consistency"`
}

// LLMConfig holds LLM provider settings used for claim extraction
type LLMConfig struct {
	Provider  string `yaml:"provider" mapstructure:"provider"` // openai, anthropic, ollama, "" (disabled)
	Model     string `yaml:"model" mapstructure:"model"`
	APIKey    string `yaml:"api_key,omitempty" mapstructure:"api_key"`
	BaseURL   string `yaml:"base_url,omitempty" mapstructure:"base_url"`
	Timeout   int    `yaml:"timeout" mapstructure:"timeout"` // seconds
	MaxTokens int    `yaml:"max_tokens" mapstructure:"max_tokens"`
}

// ConcurrencyConfig controls worker counts
type ConcurrencyConfig struct {
	ClaimWorkers int `yaml:"claim_workers" mapstructure:"claim_workers"`
	BatchWorkers int `yaml:"batch_workers" mapstructure:"batch_workers"`
}

// LoggingConfig controls structured logging
type LoggingConfig struct {
	Level      string `yaml:"level" mapstructure:"level"`   // debug, info, warn, error
	Format     string `yaml:"format" mapstructure:"format"` // text, json
	File       string `yaml:"file,omitempty" mapstructure:"file"`
	MaxSizeMB  int    `yaml:"max_size_mb" mapstructure:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups" mapstructure:"max_backups"`
	MaxAgeDays int    `yaml:"max_age_days" mapstructure:"max_age_days"`
}

// OutputConfig controls report rendering
type OutputConfig struct {
	Verbose       bool `yaml:"verbose" mapstructure:"verbose"`
	IncludeFooter bool `yaml:"include_footer" mapstructure:"include_footer"`
}

// DefaultConfig returns the built-in defaults
func DefaultConfig() *Config {
	return &Config{
		HTTP: HTTPConfig{
			UserAgent: "Credence/0.1 (+https://github.com/ppiankov/credence)",
		},
		Cache: CacheConfig{
			Enabled: true,
			Backend: "layered",
			Dir:     "./cache/fact_checks",
			TTL:     168 * time.Hour,
		},
		FactCheck: FactCheckConfig{
			Sources:           []string{"google"},
			GoogleBaseURL:     "https://factchecktools.googleapis.com/v1alpha1/claims:search",
			GoogleDelay:       time.Second,
			GoogleTimeout:     15 * time.Second,
			LanguageCode:      "en",
			PageSize:          20,
			PolitiFactBaseURL: "https://www.politifact.com/api/v/statements/",
			PolitiFactDelay:   500 * time.Millisecond,
			PolitiFactTimeout: 10 * time.Second,
			TopK:              5,
			RelevanceFloor:    0.15,
		},
		Stance: StanceConfig{
			SupportsAt: 0.7,
			RefutesAt:  0.3,
		},
		Fusion: FusionConfig{
			Weights:      FusionWeights{Source: 0.4, Text: 0.4, Cross: 0.6},
			LikelyTrueAt: 0.7,
			UncertainAt:  0.45,
		},
		Sources: SourcesConfig{
			DefaultPrior: 0.5,
			UnknownPrior: 0.6,
			Priors:       []DomainPrior{},
		},
		Extraction: ExtractionConfig{
			MaxClaims:              20,
			DefaultTextConsistency: 0.5,
		},
		LLM: LLMConfig{
			Timeout:   30,
			MaxTokens: 1000,
		},
		Concurrency: ConcurrencyConfig{
			ClaimWorkers: 1,
			BatchWorkers: 4,
		},
		Logging: LoggingConfig{
			Level:      "info",
			Format:     "text",
			MaxSizeMB:  10,
			MaxBackups: 3,
			MaxAgeDays: 28,
		},
		Output: OutputConfig{
			IncludeFooter: true,
		},
	}
}

// LoadConfig overlays the values known to v (config file, env, bound flags) on the defaults
func LoadConfig(v *viper.Viper) (*Config, error) {
	cfg := DefaultConfig()

	if err := RegisterDefaults(v); err != nil {
		return nil, err
	}

	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}

	return cfg, nil
}

// RegisterDefaults registers every default key with viper so that
// environment variables can override keys absent from the config file
func RegisterDefaults(v *viper.Viper) error {
	data, err := yaml.Marshal(DefaultConfig())
	if err != nil {
		return fmt.Errorf("marshal defaults: %w", err)
	}

	var tree map[string]interface{}
	if err := yaml.Unmarshal(data, &tree); err != nil {
		return fmt.Errorf("unmarshal defaults: %w", err)
	}

	setDefaults(v, "", tree)
	return nil
}

func setDefaults(v *viper.Viper, prefix string, tree map[string]interface{}) {
	for key, val := range tree {
		full := key
		if prefix != "" {
			full = prefix + "." + key
		}
		if sub, ok := val.(map[string]interface{}); ok && len(sub) > 0 {
			setDefaults(v, full, sub)
			continue
		}
		v.SetDefault(full, val)
	}
}

// Validate reports every invalid setting at once
func (c *Config) Validate() error {
	var result *multierror.Error

	inUnit := func(name string, val float64) {
		if val < 0 || val > 1 {
			result = multierror.Append(result, fmt.Errorf("%s must be within [0,1], got %v", name, val))
		}
	}

	switch strings.ToLower(c.Cache.Backend) {
	case "layered", "memory", "disk", "buntdb":
	default:
		result = multierror.Append(result, fmt.Errorf("cache.backend %q is not one of layered, memory, disk, buntdb", c.Cache.Backend))
	}
	if c.Cache.TTL <= 0 {
		result = multierror.Append(result, fmt.Errorf("cache.ttl must be positive, got %v", c.Cache.TTL))
	}

	for _, src := range c.FactCheck.Sources {
		switch strings.ToLower(src) {
		case "google", "politifact":
		default:
			result = multierror.Append(result, fmt.Errorf("factcheck.sources: unknown source %q", src))
		}
	}
	if c.FactCheck.TopK <= 0 {
		result = multierror.Append(result, fmt.Errorf("factcheck.top_k must be positive, got %d", c.FactCheck.TopK))
	}
	if c.FactCheck.PageSize <= 0 || c.FactCheck.PageSize > 100 {
		result = multierror.Append(result, fmt.Errorf("factcheck.page_size must be within 1..100, got %d", c.FactCheck.PageSize))
	}
	if c.FactCheck.GoogleDelay < 0 || c.FactCheck.PolitiFactDelay < 0 {
		result = multierror.Append(result, fmt.Errorf("factcheck delays must not be negative"))
	}
	inUnit("factcheck.relevance_floor", c.FactCheck.RelevanceFloor)

	inUnit("stance.supports_at", c.Stance.SupportsAt)
	inUnit("stance.refutes_at", c.Stance.RefutesAt)
	if c.Stance.RefutesAt >= c.Stance.SupportsAt {
		result = multierror.Append(result, fmt.Errorf("stance.refutes_at (%v) must be below stance.supports_at (%v)", c.Stance.RefutesAt, c.Stance.SupportsAt))
	}

	w := c.Fusion.Weights
	if w.Source < 0 || w.Text < 0 || w.Cross < 0 {
		result = multierror.Append(result, fmt.Errorf("fusion.weights must not be negative"))
	}
	if w.Source+w.Text+w.Cross <= 0 {
		result = multierror.Append(result, fmt.Errorf("fusion.weights must not all be zero"))
	}
	inUnit("fusion.likely_true_at", c.Fusion.LikelyTrueAt)
	inUnit("fusion.uncertain_at", c.Fusion.UncertainAt)
	if c.Fusion.UncertainAt > c.Fusion.LikelyTrueAt {
		result = multierror.Append(result, fmt.Errorf("fusion.uncertain_at (%v) must not exceed fusion.likely_true_at (%v)", c.Fusion.UncertainAt, c.Fusion.LikelyTrueAt))
	}

	inUnit("sources.default_prior", c.Sources.DefaultPrior)
	inUnit("sources.unknown_prior", c.Sources.UnknownPrior)
	for _, dp := range c.Sources.Priors {
		if strings.TrimSpace(dp.Domain) == "" {
			result = multierror.Append(result, fmt.Errorf("sources.priors: entry with empty domain"))
		}
		inUnit("sources.priors["+dp.Domain+"]", dp.Prior)
	}

	if tc := c.Extraction.DefaultTextConsistency; tc <= 0 || tc > 1 {
		result = multierror.Append(result, fmt.Errorf("extraction.default_text_consistency must be within (0,1], got %v", tc))
	}

	switch strings.ToLower(c.LLM.Provider) {
	case "", "openai", "anthropic", "claude", "ollama":
	default:
		result = multierror.Append(result, fmt.Errorf("llm.provider %q is not one of openai, anthropic, ollama", c.LLM.Provider))
	}

	switch strings.ToLower(c.Logging.Level) {
	case "debug", "info", "warn", "warning", "error":
	default:
		result = multierror.Append(result, fmt.Errorf("logging.level %q is not one of debug, info, warn, error", c.Logging.Level))
	}
	switch strings.ToLower(c.Logging.Format) {
	case "text", "json":
	default:
		result = multierror.Append(result, fmt.Errorf("logging.format %q is not one of text, json", c.Logging.Format))
	}

	return result.ErrorOrNil()
}
