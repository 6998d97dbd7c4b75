// Package config provides configuration management for the medical report
// pipeline service.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the report pipeline service.
type Config struct {
	// Server contains HTTP listener settings for health and metrics.
	Server ServerConfig `mapstructure:"server"`
	// Temporal contains Temporal workflow orchestration settings.
	Temporal TemporalConfig `mapstructure:"temporal"`
	// Logging contains structured logging settings.
	Logging LoggingConfig `mapstructure:"logging"`
	// Metrics contains Prometheus metrics exposure settings.
	Metrics MetricsConfig `mapstructure:"metrics"`
	// OCR contains page conversion and text extraction settings.
	OCR OCRConfig `mapstructure:"ocr"`
	// Retry contains the retry schedule applied to remote capability calls.
	Retry RetryConfig `mapstructure:"retry"`
	// TextCleaning contains OCR artifact cleaning settings.
	TextCleaning TextCleaningConfig `mapstructure:"text_cleaning"`
	// Extraction contains structured extraction settings.
	Extraction ExtractionConfig `mapstructure:"extraction"`
	// Literature contains literature search settings.
	Literature LiteratureConfig `mapstructure:"literature"`
	// Providers contains remote AI provider settings.
	Providers ProvidersConfig `mapstructure:"providers"`
}

// ServerConfig holds listener configuration.
type ServerConfig struct {
	// Host is the address to bind the listener to (default: 0.0.0.0).
	Host string `mapstructure:"host"`
	// MetricsPort is the metrics and health listener port (default: 9091).
	MetricsPort int `mapstructure:"metrics_port"`
	// ReadTimeout is the maximum duration for reading request body.
	ReadTimeout time.Duration `mapstructure:"read_timeout"`
	// WriteTimeout is the maximum duration for writing response.
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	// ShutdownTimeout is the maximum duration to wait for graceful shutdown.
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// TemporalConfig holds Temporal workflow configuration.
type TemporalConfig struct {
	// HostPort is the Temporal server address.
	HostPort string `mapstructure:"host_port"`
	// Namespace is the Temporal namespace.
	Namespace string `mapstructure:"namespace"`
	// TaskQueue is the task queue name for report workflows.
	TaskQueue string `mapstructure:"task_queue"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	// Level is the log level (trace, debug, info, warn, error, fatal, panic).
	Level string `mapstructure:"level"`
	// Format is the log format (json, console).
	Format string `mapstructure:"format"`
	// Output is the log output destination (stdout, stderr).
	Output string `mapstructure:"output"`
	// AddSource adds source file and line to log output.
	AddSource bool `mapstructure:"add_source"`
	// TimeFormat is the timestamp format.
	TimeFormat string `mapstructure:"time_format"`
}

// MetricsConfig holds metrics configuration.
type MetricsConfig struct {
	// Enabled enables metrics collection and exposure.
	Enabled bool `mapstructure:"enabled"`
	// Path is the HTTP path for metrics endpoint.
	Path string `mapstructure:"path"`
}

// OCRConfig holds page conversion and text extraction settings.
type OCRConfig struct {
	// ConcurrentCalls is the maximum number of in-flight OCR calls per job.
	ConcurrentCalls int `mapstructure:"concurrent_calls"`
	// ConversionDPI is the primary page rendering resolution.
	ConversionDPI int `mapstructure:"conversion_dpi"`
	// FallbackDPI is the reduced resolution used when rendering at the
	// primary resolution fails or exceeds the size budget.
	FallbackDPI int `mapstructure:"fallback_dpi"`
	// MaxImageBytes is the per-page image size budget sent to the provider.
	MaxImageBytes int `mapstructure:"max_image_bytes"`
	// Timeout is the timeout for a single OCR call attempt.
	Timeout time.Duration `mapstructure:"timeout"`
}

// RetryConfig holds the retry schedule for remote capability calls. The
// call sequence waits BackoffSchedule[i] before attempt i; the schedule's
// last entry is reused when MaxAttempts exceeds its length.
type RetryConfig struct {
	// MaxAttempts is the total number of attempts per call.
	MaxAttempts int `mapstructure:"max_attempts"`
	// BackoffSchedule lists the wait before each attempt.
	BackoffSchedule []time.Duration `mapstructure:"backoff_schedule"`
}

// TextCleaningConfig holds OCR artifact cleaning settings.
type TextCleaningConfig struct {
	// MaxConsecutiveChars is the longest run of one repeated character kept
	// inside a line before the run is collapsed.
	MaxConsecutiveChars int `mapstructure:"max_consecutive_chars"`
	// MaxLineRepetitions is the number of identical consecutive lines kept
	// before further repeats are dropped.
	MaxLineRepetitions int `mapstructure:"max_line_repetitions"`
}

// ExtractionConfig holds structured extraction settings.
type ExtractionConfig struct {
	// ComplexityThreshold is the corpus character count above which the
	// extraction capability is asked for its high-effort mode.
	ComplexityThreshold int `mapstructure:"complexity_threshold"`
	// Timeout is the timeout for a single extraction call attempt.
	Timeout time.Duration `mapstructure:"timeout"`
}

// LiteratureConfig holds literature search settings.
type LiteratureConfig struct {
	// RateLimitRPM is the maximum literature search requests per minute.
	RateLimitRPM int `mapstructure:"rate_limit_rpm"`
	// MinQuestions is the minimum number of clinical questions planned.
	MinQuestions int `mapstructure:"min_questions"`
	// MaxQuestions is the maximum number of clinical questions planned.
	MaxQuestions int `mapstructure:"max_questions"`
	// Timeout is the timeout for a single search call attempt.
	Timeout time.Duration `mapstructure:"timeout"`
}

// ProvidersConfig holds remote AI provider settings.
type ProvidersConfig struct {
	// Gemini contains the vision OCR provider settings.
	Gemini GeminiConfig `mapstructure:"gemini"`
	// OpenAI contains the classification, extraction, and synthesis
	// provider settings.
	OpenAI OpenAIConfig `mapstructure:"openai"`
	// Perplexity contains the literature search provider settings.
	Perplexity PerplexityConfig `mapstructure:"perplexity"`
}

// GeminiConfig holds Gemini-specific settings.
type GeminiConfig struct {
	// APIKey is the Gemini API key (loaded from MEDREPORT_PROVIDERS_GEMINI_API_KEY env var).
	APIKey string `mapstructure:"-"`
	// Model is the Gemini model name.
	Model string `mapstructure:"model"`
	// BaseURL is the Gemini API base URL (for custom endpoints).
	BaseURL string `mapstructure:"base_url"`
}

// OpenAIConfig holds OpenAI-specific settings.
type OpenAIConfig struct {
	// APIKey is the OpenAI API key (loaded from MEDREPORT_PROVIDERS_OPENAI_API_KEY env var).
	APIKey string `mapstructure:"-"`
	// Model is the OpenAI model to use.
	Model string `mapstructure:"model"`
	// BaseURL is the OpenAI API base URL (for custom endpoints).
	BaseURL string `mapstructure:"base_url"`
}

// PerplexityConfig holds Perplexity-specific settings.
type PerplexityConfig struct {
	// APIKey is the Perplexity API key (loaded from MEDREPORT_PROVIDERS_PERPLEXITY_API_KEY env var).
	APIKey string `mapstructure:"-"`
	// Model is the Perplexity model to use.
	Model string `mapstructure:"model"`
	// BaseURL is the Perplexity API base URL (for custom endpoints).
	BaseURL string `mapstructure:"base_url"`
}

// MetricsAddress returns the metrics listener address.
func (c *ServerConfig) MetricsAddress() string {
	return fmt.Sprintf("%s:%d", c.Host, c.MetricsPort)
}

// Load loads configuration from environment variables and config files.
func Load() (*Config, error) {
	v := viper.New()

	// Set defaults
	setDefaults(v)

	// Read from environment variables
	v.SetEnvPrefix("MEDREPORT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Read config file if present
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("/etc/medical-report-service")

	if err := v.ReadInConfig(); err != nil {
		var configNotFound viper.ConfigFileNotFoundError
		if !errors.As(err, &configNotFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		// Config file not found is OK, we'll use env vars and defaults
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	// Load secrets exclusively from environment variables.
	// These fields use mapstructure:"-" to prevent loading from config files.
	loadSecrets(&cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

// loadSecrets populates secret fields exclusively from environment variables.
// These fields are tagged with mapstructure:"-" to prevent loading from config files.
func loadSecrets(cfg *Config) {
	cfg.Providers.Gemini.APIKey = os.Getenv("MEDREPORT_PROVIDERS_GEMINI_API_KEY")
	cfg.Providers.OpenAI.APIKey = os.Getenv("MEDREPORT_PROVIDERS_OPENAI_API_KEY")
	cfg.Providers.Perplexity.APIKey = os.Getenv("MEDREPORT_PROVIDERS_PERPLEXITY_API_KEY")
}

// setDefaults sets default configuration values.
func setDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.metrics_port", 9091)
	v.SetDefault("server.read_timeout", "30s")
	v.SetDefault("server.write_timeout", "30s")
	v.SetDefault("server.shutdown_timeout", "30s")

	// Temporal defaults
	v.SetDefault("temporal.host_port", "localhost:7233")
	v.SetDefault("temporal.namespace", "medical-report")
	v.SetDefault("temporal.task_queue", "medical-report-tasks")

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
	v.SetDefault("logging.output", "stdout")
	v.SetDefault("logging.add_source", false)
	v.SetDefault("logging.time_format", time.RFC3339)

	// Metrics defaults
	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.path", "/metrics")

	// OCR defaults
	v.SetDefault("ocr.concurrent_calls", 8)
	v.SetDefault("ocr.conversion_dpi", 200)
	v.SetDefault("ocr.fallback_dpi", 100)
	v.SetDefault("ocr.max_image_bytes", 4*1024*1024)
	v.SetDefault("ocr.timeout", "120s")

	// Retry defaults. The schedule gives an immediate first attempt, then
	// waits long enough for provider rate windows to reset.
	v.SetDefault("retry.max_attempts", 3)
	v.SetDefault("retry.backoff_schedule", []string{"0s", "60s", "180s"})

	// Text cleaning defaults
	v.SetDefault("text_cleaning.max_consecutive_chars", 20)
	v.SetDefault("text_cleaning.max_line_repetitions", 20)

	// Extraction defaults
	v.SetDefault("extraction.complexity_threshold", 50000)
	v.SetDefault("extraction.timeout", "300s")

	// Literature defaults
	v.SetDefault("literature.rate_limit_rpm", 2)
	v.SetDefault("literature.min_questions", 10)
	v.SetDefault("literature.max_questions", 20)
	v.SetDefault("literature.timeout", "120s")

	// Provider defaults
	// API keys are loaded exclusively from environment variables (see loadSecrets).
	v.SetDefault("providers.gemini.model", "gemini-2.0-flash")
	v.SetDefault("providers.gemini.base_url", "https://generativelanguage.googleapis.com/v1beta")
	v.SetDefault("providers.openai.model", "gpt-5")
	v.SetDefault("providers.openai.base_url", "https://api.openai.com/v1")
	v.SetDefault("providers.perplexity.model", "sonar-pro")
	v.SetDefault("providers.perplexity.base_url", "https://api.perplexity.ai")
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	// Validate server ports
	if c.Server.MetricsPort <= 0 || c.Server.MetricsPort > 65535 {
		return fmt.Errorf("invalid metrics port: %d", c.Server.MetricsPort)
	}

	// Validate log level
	validLogLevels := map[string]bool{
		"trace": true, "debug": true, "info": true,
		"warn": true, "error": true, "fatal": true, "panic": true,
	}
	if !validLogLevels[strings.ToLower(c.Logging.Level)] {
		return fmt.Errorf("invalid log level: %s", c.Logging.Level)
	}

	// Validate Temporal config
	if c.Temporal.HostPort == "" {
		return fmt.Errorf("temporal host_port is required")
	}
	if c.Temporal.TaskQueue == "" {
		return fmt.Errorf("temporal task_queue is required")
	}

	// Validate OCR config
	if c.OCR.ConcurrentCalls <= 0 {
		return fmt.Errorf("ocr concurrent_calls must be positive")
	}
	if c.OCR.ConversionDPI <= 0 {
		return fmt.Errorf("ocr conversion_dpi must be positive")
	}
	if c.OCR.FallbackDPI <= 0 || c.OCR.FallbackDPI > c.OCR.ConversionDPI {
		return fmt.Errorf("ocr fallback_dpi must be positive and not exceed conversion_dpi")
	}

	// Validate retry config
	if c.Retry.MaxAttempts <= 0 {
		return fmt.Errorf("retry max_attempts must be positive")
	}
	if len(c.Retry.BackoffSchedule) == 0 {
		return fmt.Errorf("retry backoff_schedule must not be empty")
	}
	for i, d := range c.Retry.BackoffSchedule {
		if d < 0 {
			return fmt.Errorf("retry backoff_schedule[%d] must not be negative", i)
		}
	}

	// Validate text cleaning config
	if c.TextCleaning.MaxConsecutiveChars <= 0 {
		return fmt.Errorf("text_cleaning max_consecutive_chars must be positive")
	}
	if c.TextCleaning.MaxLineRepetitions <= 0 {
		return fmt.Errorf("text_cleaning max_line_repetitions must be positive")
	}

	// Validate literature config
	if c.Literature.RateLimitRPM <= 0 {
		return fmt.Errorf("literature rate_limit_rpm must be positive")
	}
	if c.Literature.MinQuestions <= 0 {
		return fmt.Errorf("literature min_questions must be positive")
	}
	if c.Literature.MaxQuestions < c.Literature.MinQuestions {
		return fmt.Errorf("literature max_questions (%d) must be >= min_questions (%d)",
			c.Literature.MaxQuestions, c.Literature.MinQuestions)
	}

	return nil
}

// ValidateProviders checks that each pipeline provider has its API key set.
// Only the worker needs provider credentials; client tooling loads the same
// config without them.
func (c *Config) ValidateProviders() error {
	if c.Providers.Gemini.APIKey == "" {
		return fmt.Errorf("MEDREPORT_PROVIDERS_GEMINI_API_KEY must be set")
	}
	if c.Providers.OpenAI.APIKey == "" {
		return fmt.Errorf("MEDREPORT_PROVIDERS_OPENAI_API_KEY must be set")
	}
	if c.Providers.Perplexity.APIKey == "" {
		return fmt.Errorf("MEDREPORT_PROVIDERS_PERPLEXITY_API_KEY must be set")
	}
	return nil
}
