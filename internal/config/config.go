// Package config loads pipeline configuration from YAML with environment
// variable overrides.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	AppID    int    `yaml:"app_id"`
	Language string `yaml:"language"`

	DBPath         string `yaml:"db_path"`
	CheckpointPath string `yaml:"checkpoint_path"`
	OutputDir      string `yaml:"output_dir"`
	TaxonomyPath   string `yaml:"taxonomy_path"`

	SampleSize              int     `yaml:"sample_size"`
	WorkerCount             int     `yaml:"worker_count"`
	RequestDelaySeconds     float64 `yaml:"request_delay_seconds"`
	CheckpointEveryNResults int     `yaml:"checkpoint_every_n_results"`
	CheckpointEverySeconds  int     `yaml:"checkpoint_every_seconds"`
	MaxConsecutiveFailures  int     `yaml:"max_consecutive_failures"`
	MaxRetriesPerCall       int     `yaml:"max_retries_per_call"`
	RetryDelaySeconds       float64 `yaml:"retry_delay_seconds"`
	GraceWaitSeconds        int     `yaml:"grace_wait_seconds"`

	LLMProvider     string `yaml:"llm_provider"`
	LLMModel        string `yaml:"llm_model"`
	LLMBaseURL      string `yaml:"llm_base_url"`
	AnthropicAPIKey string `yaml:"anthropic_api_key"`
	OpenAIAPIKey    string `yaml:"openai_api_key"`

	FetchSchedule string `yaml:"fetch_schedule"`
	FetchMaxPages int    `yaml:"fetch_max_pages"`

	SlackBotToken  string `yaml:"slack_bot_token"`
	SlackChannelID string `yaml:"slack_channel_id"`

	MetricsAddr string `yaml:"metrics_addr"`
}

// Load reads the YAML file at path (a missing file means defaults only),
// applies env-var overrides, fills defaults and validates.
func Load(path string) (Config, error) {
	var cfg Config

	if data, err := os.ReadFile(path); err == nil {
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parsing %s: %w", path, err)
		}
	} else if !os.IsNotExist(err) {
		return cfg, fmt.Errorf("reading %s: %w", path, err)
	}

	// Env vars override YAML values.
	if err := applyEnv(&cfg); err != nil {
		return cfg, err
	}

	applyDefaults(&cfg)

	if err := validate(cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func applyEnv(cfg *Config) error {
	envOverride(&cfg.Language, "REVIEW_LANGUAGE")
	envOverride(&cfg.DBPath, "DB_PATH")
	envOverride(&cfg.CheckpointPath, "CHECKPOINT_PATH")
	envOverride(&cfg.OutputDir, "OUTPUT_DIR")
	envOverride(&cfg.TaxonomyPath, "TAXONOMY_PATH")
	envOverride(&cfg.LLMProvider, "LLM_PROVIDER")
	envOverride(&cfg.LLMModel, "LLM_MODEL")
	envOverride(&cfg.LLMBaseURL, "LLM_BASE_URL")
	envOverride(&cfg.AnthropicAPIKey, "ANTHROPIC_API_KEY")
	envOverride(&cfg.OpenAIAPIKey, "OPENAI_API_KEY")
	envOverride(&cfg.OpenAIAPIKey, "DEEPSEEK_API_KEY")
	envOverride(&cfg.FetchSchedule, "FETCH_SCHEDULE")
	envOverride(&cfg.SlackBotToken, "SLACK_BOT_TOKEN")
	envOverride(&cfg.SlackChannelID, "SLACK_CHANNEL_ID")
	envOverride(&cfg.MetricsAddr, "METRICS_ADDR")

	for _, e := range []struct {
		field *int
		key   string
	}{
		{&cfg.AppID, "APP_ID"},
		{&cfg.SampleSize, "SAMPLE_SIZE"},
		{&cfg.WorkerCount, "WORKER_COUNT"},
		{&cfg.MaxConsecutiveFailures, "MAX_CONSECUTIVE_FAILURES"},
		{&cfg.MaxRetriesPerCall, "MAX_RETRIES_PER_CALL"},
		{&cfg.CheckpointEveryNResults, "CHECKPOINT_EVERY_N_RESULTS"},
		{&cfg.CheckpointEverySeconds, "CHECKPOINT_EVERY_SECONDS"},
		{&cfg.FetchMaxPages, "FETCH_MAX_PAGES"},
	} {
		if err := envOverrideInt(e.field, e.key); err != nil {
			return err
		}
	}
	if err := envOverrideFloat(&cfg.RequestDelaySeconds, "REQUEST_DELAY_SECONDS"); err != nil {
		return err
	}
	return envOverrideFloat(&cfg.RetryDelaySeconds, "RETRY_DELAY_SECONDS")
}

func applyDefaults(cfg *Config) {
	if cfg.Language == "" {
		cfg.Language = "schinese"
	}
	if cfg.DBPath == "" {
		cfg.DBPath = "./reviews.db"
	}
	if cfg.OutputDir == "" {
		cfg.OutputDir = "./analysis"
	}
	if cfg.CheckpointPath == "" {
		cfg.CheckpointPath = cfg.OutputDir + "/classification_progress.json"
	}
	if cfg.WorkerCount == 0 {
		cfg.WorkerCount = 5
	}
	if cfg.RequestDelaySeconds == 0 {
		cfg.RequestDelaySeconds = 0.1
	}
	if cfg.CheckpointEveryNResults == 0 {
		cfg.CheckpointEveryNResults = 50
	}
	if cfg.CheckpointEverySeconds == 0 {
		cfg.CheckpointEverySeconds = 30
	}
	if cfg.MaxConsecutiveFailures == 0 {
		cfg.MaxConsecutiveFailures = 3
	}
	if cfg.MaxRetriesPerCall == 0 {
		cfg.MaxRetriesPerCall = 3
	}
	if cfg.RetryDelaySeconds == 0 {
		cfg.RetryDelaySeconds = 2
	}
	if cfg.GraceWaitSeconds == 0 {
		cfg.GraceWaitSeconds = 30
	}
	if cfg.LLMProvider == "" {
		cfg.LLMProvider = "anthropic"
	}
	if cfg.FetchMaxPages == 0 {
		cfg.FetchMaxPages = 200
	}
}

func validate(cfg Config) error {
	if cfg.WorkerCount < 1 {
		return fmt.Errorf("invalid worker_count %d: must be >= 1", cfg.WorkerCount)
	}
	if cfg.MaxConsecutiveFailures < 1 {
		return fmt.Errorf("invalid max_consecutive_failures %d: must be >= 1", cfg.MaxConsecutiveFailures)
	}
	if cfg.MaxRetriesPerCall < 1 {
		return fmt.Errorf("invalid max_retries_per_call %d: must be >= 1", cfg.MaxRetriesPerCall)
	}
	if cfg.RequestDelaySeconds < 0 {
		return fmt.Errorf("invalid request_delay_seconds %f: must be >= 0", cfg.RequestDelaySeconds)
	}
	if cfg.SampleSize < 0 {
		return fmt.Errorf("invalid sample_size %d: must be >= 0", cfg.SampleSize)
	}

	switch cfg.LLMProvider {
	case "anthropic":
		if cfg.AnthropicAPIKey == "" {
			return fmt.Errorf("anthropic_api_key is required when llm_provider=anthropic")
		}
	case "openai":
		if cfg.OpenAIAPIKey == "" {
			return fmt.Errorf("openai_api_key is required when llm_provider=openai")
		}
	default:
		return fmt.Errorf("llm_provider must be 'anthropic' or 'openai', got %q", cfg.LLMProvider)
	}
	return nil
}

// RequestDelay is the courtesy pause between calls per worker.
func (c Config) RequestDelay() time.Duration {
	return time.Duration(c.RequestDelaySeconds * float64(time.Second))
}

// RetryDelay is the fixed backoff between call attempts.
func (c Config) RetryDelay() time.Duration {
	return time.Duration(c.RetryDelaySeconds * float64(time.Second))
}

// CheckpointInterval is the wall-clock checkpoint cadence.
func (c Config) CheckpointInterval() time.Duration {
	return time.Duration(c.CheckpointEverySeconds) * time.Second
}

// GraceWait bounds the shutdown wait for workers to join.
func (c Config) GraceWait() time.Duration {
	return time.Duration(c.GraceWaitSeconds) * time.Second
}

func envOverride(field *string, envKey string) {
	if val := os.Getenv(envKey); val != "" {
		*field = val
	}
}

func envOverrideInt(field *int, envKey string) error {
	if val := os.Getenv(envKey); val != "" {
		parsed, err := strconv.Atoi(val)
		if err != nil {
			return fmt.Errorf("invalid %s %q: %w", envKey, val, err)
		}
		*field = parsed
	}
	return nil
}

func envOverrideFloat(field *float64, envKey string) error {
	if val := os.Getenv(envKey); val != "" {
		parsed, err := strconv.ParseFloat(val, 64)
		if err != nil {
			return fmt.Errorf("invalid %s %q: %w", envKey, val, err)
		}
		*field = parsed
	}
	return nil
}
