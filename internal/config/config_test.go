// Package config provides configuration management for the medical report
// pipeline service.
package config

import (
	"os"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	// Clear any existing env vars that might interfere
	clearEnvVars(t)

	// Set the required provider API keys.
	t.Setenv("MEDREPORT_PROVIDERS_GEMINI_API_KEY", "gm-test-default")
	t.Setenv("MEDREPORT_PROVIDERS_OPENAI_API_KEY", "sk-test-default")
	t.Setenv("MEDREPORT_PROVIDERS_PERPLEXITY_API_KEY", "pplx-test-default")

	cfg, err := Load()
	require.NoError(t, err)
	require.NotNil(t, cfg)

	// Server defaults
	assert.Equal(t, "0.0.0.0", cfg.Server.Host)
	assert.Equal(t, 9091, cfg.Server.MetricsPort)

	// Temporal defaults
	assert.Equal(t, "localhost:7233", cfg.Temporal.HostPort)
	assert.Equal(t, "medical-report", cfg.Temporal.Namespace)
	assert.Equal(t, "medical-report-tasks", cfg.Temporal.TaskQueue)

	// Logging defaults
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, "json", cfg.Logging.Format)

	// Metrics defaults
	assert.True(t, cfg.Metrics.Enabled)
	assert.Equal(t, "/metrics", cfg.Metrics.Path)

	// OCR defaults
	assert.Equal(t, 8, cfg.OCR.ConcurrentCalls)
	assert.Equal(t, 200, cfg.OCR.ConversionDPI)
	assert.Equal(t, 100, cfg.OCR.FallbackDPI)

	// Retry defaults
	assert.Equal(t, 3, cfg.Retry.MaxAttempts)
	assert.Equal(t, []time.Duration{0, 60 * time.Second, 180 * time.Second}, cfg.Retry.BackoffSchedule)

	// Text cleaning defaults
	assert.Equal(t, 20, cfg.TextCleaning.MaxConsecutiveChars)
	assert.Equal(t, 20, cfg.TextCleaning.MaxLineRepetitions)

	// Literature defaults
	assert.Equal(t, 2, cfg.Literature.RateLimitRPM)
	assert.Equal(t, 10, cfg.Literature.MinQuestions)
	assert.Equal(t, 20, cfg.Literature.MaxQuestions)

	// Provider defaults
	assert.Equal(t, "gemini-2.0-flash", cfg.Providers.Gemini.Model)
	assert.Equal(t, "gpt-5", cfg.Providers.OpenAI.Model)
	assert.Equal(t, "sonar-pro", cfg.Providers.Perplexity.Model)
}

func TestLoad_EnvironmentOverride(t *testing.T) {
	clearEnvVars(t)

	t.Setenv("MEDREPORT_PROVIDERS_GEMINI_API_KEY", "gm-override")
	t.Setenv("MEDREPORT_PROVIDERS_OPENAI_API_KEY", "sk-override")
	t.Setenv("MEDREPORT_PROVIDERS_PERPLEXITY_API_KEY", "pplx-override")

	t.Setenv("MEDREPORT_SERVER_METRICS_PORT", "9191")
	t.Setenv("MEDREPORT_TEMPORAL_HOST_PORT", "temporal.example.com:7233")
	t.Setenv("MEDREPORT_LOGGING_LEVEL", "debug")
	t.Setenv("MEDREPORT_OCR_CONCURRENT_CALLS", "4")
	t.Setenv("MEDREPORT_LITERATURE_RATE_LIMIT_RPM", "6")
	t.Setenv("MEDREPORT_PROVIDERS_OPENAI_MODEL", "gpt-5-mini")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 9191, cfg.Server.MetricsPort)
	assert.Equal(t, "temporal.example.com:7233", cfg.Temporal.HostPort)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, 4, cfg.OCR.ConcurrentCalls)
	assert.Equal(t, 6, cfg.Literature.RateLimitRPM)
	assert.Equal(t, "gpt-5-mini", cfg.Providers.OpenAI.Model)
}

func TestLoad_APIKeysFromEnvOnly(t *testing.T) {
	clearEnvVars(t)

	t.Setenv("MEDREPORT_PROVIDERS_GEMINI_API_KEY", "gm-key-test")
	t.Setenv("MEDREPORT_PROVIDERS_OPENAI_API_KEY", "sk-key-test")
	t.Setenv("MEDREPORT_PROVIDERS_PERPLEXITY_API_KEY", "pplx-key-test")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "gm-key-test", cfg.Providers.Gemini.APIKey)
	assert.Equal(t, "sk-key-test", cfg.Providers.OpenAI.APIKey)
	assert.Equal(t, "pplx-key-test", cfg.Providers.Perplexity.APIKey)
}

func TestValidateProviders_MissingAPIKeyFails(t *testing.T) {
	clearEnvVars(t)

	t.Setenv("MEDREPORT_PROVIDERS_GEMINI_API_KEY", "gm-key-test")
	t.Setenv("MEDREPORT_PROVIDERS_OPENAI_API_KEY", "sk-key-test")
	// Perplexity key deliberately unset.

	cfg, err := Load()
	require.NoError(t, err)

	err = cfg.ValidateProviders()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "MEDREPORT_PROVIDERS_PERPLEXITY_API_KEY must be set")
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name        string
		modifyFunc  func(*Config)
		expectedErr string
	}{
		{
			name: "metrics port zero",
			modifyFunc: func(c *Config) {
				c.Server.MetricsPort = 0
			},
			expectedErr: "invalid metrics port: 0",
		},
		{
			name: "metrics port too high",
			modifyFunc: func(c *Config) {
				c.Server.MetricsPort = 70000
			},
			expectedErr: "invalid metrics port: 70000",
		},
		{
			name: "empty temporal host_port",
			modifyFunc: func(c *Config) {
				c.Temporal.HostPort = ""
			},
			expectedErr: "temporal host_port is required",
		},
		{
			name: "empty temporal task_queue",
			modifyFunc: func(c *Config) {
				c.Temporal.TaskQueue = ""
			},
			expectedErr: "temporal task_queue is required",
		},
		{
			name: "zero concurrent calls",
			modifyFunc: func(c *Config) {
				c.OCR.ConcurrentCalls = 0
			},
			expectedErr: "ocr concurrent_calls must be positive",
		},
		{
			name: "fallback dpi above conversion dpi",
			modifyFunc: func(c *Config) {
				c.OCR.FallbackDPI = 300
			},
			expectedErr: "ocr fallback_dpi must be positive and not exceed conversion_dpi",
		},
		{
			name: "zero retry attempts",
			modifyFunc: func(c *Config) {
				c.Retry.MaxAttempts = 0
			},
			expectedErr: "retry max_attempts must be positive",
		},
		{
			name: "empty backoff schedule",
			modifyFunc: func(c *Config) {
				c.Retry.BackoffSchedule = nil
			},
			expectedErr: "retry backoff_schedule must not be empty",
		},
		{
			name: "negative backoff entry",
			modifyFunc: func(c *Config) {
				c.Retry.BackoffSchedule = []time.Duration{0, -time.Second}
			},
			expectedErr: "retry backoff_schedule[1] must not be negative",
		},
		{
			name: "max questions below min questions",
			modifyFunc: func(c *Config) {
				c.Literature.MinQuestions = 10
				c.Literature.MaxQuestions = 5
			},
			expectedErr: "literature max_questions (5) must be >= min_questions (10)",
		},
		{
			name: "invalid log level",
			modifyFunc: func(c *Config) {
				c.Logging.Level = "loud"
			},
			expectedErr: "invalid log level: loud",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.modifyFunc(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.expectedErr)
		})
	}
}

func TestValidate_ValidConfig(t *testing.T) {
	assert.NoError(t, validConfig().Validate())
}

func TestMetricsAddress(t *testing.T) {
	cfg := ServerConfig{Host: "127.0.0.1", MetricsPort: 9191}
	assert.Equal(t, "127.0.0.1:9191", cfg.MetricsAddress())
}

func validConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:        "0.0.0.0",
			MetricsPort: 9091,
		},
		Temporal: TemporalConfig{
			HostPort:  "localhost:7233",
			Namespace: "medical-report",
			TaskQueue: "medical-report-tasks",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
		OCR: OCRConfig{
			ConcurrentCalls: 8,
			ConversionDPI:   200,
			FallbackDPI:     100,
		},
		Retry: RetryConfig{
			MaxAttempts:     3,
			BackoffSchedule: []time.Duration{0, 60 * time.Second, 180 * time.Second},
		},
		TextCleaning: TextCleaningConfig{
			MaxConsecutiveChars: 20,
			MaxLineRepetitions:  20,
		},
		Literature: LiteratureConfig{
			RateLimitRPM: 2,
			MinQuestions: 10,
			MaxQuestions: 20,
		},
		Providers: ProvidersConfig{
			Gemini:     GeminiConfig{APIKey: "gm-test"},
			OpenAI:     OpenAIConfig{APIKey: "sk-test"},
			Perplexity: PerplexityConfig{APIKey: "pplx-test"},
		},
	}
}

func clearEnvVars(t *testing.T) {
	t.Helper()
	for _, env := range os.Environ() {
		if !strings.HasPrefix(env, "MEDREPORT_") {
			continue
		}
		if key, _, ok := strings.Cut(env, "="); ok {
			os.Unsetenv(key)
		}
	}
}
