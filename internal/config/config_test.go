package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadAppliesDefaults(t *testing.T) {
	t.Setenv("ANTHROPIC_API_KEY", "test-key")

	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.WorkerCount != 5 {
		t.Errorf("worker_count default: got %d, want 5", cfg.WorkerCount)
	}
	if cfg.RequestDelaySeconds != 0.1 {
		t.Errorf("request_delay_seconds default: got %f, want 0.1", cfg.RequestDelaySeconds)
	}
	if cfg.CheckpointEveryNResults != 50 {
		t.Errorf("checkpoint_every_n_results default: got %d, want 50", cfg.CheckpointEveryNResults)
	}
	if cfg.CheckpointEverySeconds != 30 {
		t.Errorf("checkpoint_every_seconds default: got %d, want 30", cfg.CheckpointEverySeconds)
	}
	if cfg.MaxConsecutiveFailures != 3 {
		t.Errorf("max_consecutive_failures default: got %d, want 3", cfg.MaxConsecutiveFailures)
	}
	if cfg.MaxRetriesPerCall != 3 {
		t.Errorf("max_retries_per_call default: got %d, want 3", cfg.MaxRetriesPerCall)
	}
	if cfg.Language != "schinese" {
		t.Errorf("language default: got %q", cfg.Language)
	}
	if cfg.CheckpointPath != "./analysis/classification_progress.json" {
		t.Errorf("checkpoint_path default: got %q", cfg.CheckpointPath)
	}
	if cfg.LLMProvider != "anthropic" {
		t.Errorf("llm_provider default: got %q", cfg.LLMProvider)
	}
}

func TestLoadYAMLValues(t *testing.T) {
	t.Setenv("ANTHROPIC_API_KEY", "test-key")
	path := writeConfig(t, `
app_id: 3595520
worker_count: 8
sample_size: 100
request_delay_seconds: 0.5
llm_model: claude-sonnet-4-5-20250929
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.AppID != 3595520 || cfg.WorkerCount != 8 || cfg.SampleSize != 100 {
		t.Fatalf("yaml values not loaded: %+v", cfg)
	}
	if cfg.RequestDelay() != 500*time.Millisecond {
		t.Fatalf("request delay conversion: got %v", cfg.RequestDelay())
	}
}

func TestEnvOverridesYAML(t *testing.T) {
	t.Setenv("ANTHROPIC_API_KEY", "test-key")
	t.Setenv("WORKER_COUNT", "12")
	t.Setenv("REVIEW_LANGUAGE", "english")
	path := writeConfig(t, `
worker_count: 3
language: schinese
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.WorkerCount != 12 {
		t.Fatalf("env must override yaml worker_count: got %d", cfg.WorkerCount)
	}
	if cfg.Language != "english" {
		t.Fatalf("env must override yaml language: got %q", cfg.Language)
	}
}

func TestDeepSeekKeyAliasesOpenAI(t *testing.T) {
	t.Setenv("DEEPSEEK_API_KEY", "ds-key")
	t.Setenv("LLM_PROVIDER", "openai")

	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.OpenAIAPIKey != "ds-key" {
		t.Fatalf("DEEPSEEK_API_KEY not mapped: %q", cfg.OpenAIAPIKey)
	}
}

func TestValidation(t *testing.T) {
	cases := []struct {
		name string
		yaml string
		env  map[string]string
	}{
		{
			name: "missing anthropic key",
			yaml: "llm_provider: anthropic\n",
		},
		{
			name: "missing openai key",
			yaml: "llm_provider: openai\n",
		},
		{
			name: "unknown provider",
			yaml: "llm_provider: gemini\n",
			env:  map[string]string{"ANTHROPIC_API_KEY": "k"},
		},
		{
			name: "negative sample size",
			yaml: "sample_size: -1\n",
			env:  map[string]string{"ANTHROPIC_API_KEY": "k"},
		},
		{
			name: "negative request delay",
			yaml: "request_delay_seconds: -0.5\n",
			env:  map[string]string{"ANTHROPIC_API_KEY": "k"},
		},
		{
			name: "negative worker count",
			yaml: "worker_count: -2\n",
			env:  map[string]string{"ANTHROPIC_API_KEY": "k"},
		},
		{
			name: "bad env int",
			env:  map[string]string{"ANTHROPIC_API_KEY": "k", "WORKER_COUNT": "lots"},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			for k, v := range tc.env {
				t.Setenv(k, v)
			}
			path := writeConfig(t, tc.yaml)
			if _, err := Load(path); err == nil {
				t.Fatalf("expected validation error")
			}
		})
	}
}

func TestDurationHelpers(t *testing.T) {
	cfg := Config{
		RetryDelaySeconds:      1.5,
		CheckpointEverySeconds: 45,
		GraceWaitSeconds:       10,
	}
	if cfg.RetryDelay() != 1500*time.Millisecond {
		t.Errorf("retry delay: got %v", cfg.RetryDelay())
	}
	if cfg.CheckpointInterval() != 45*time.Second {
		t.Errorf("checkpoint interval: got %v", cfg.CheckpointInterval())
	}
	if cfg.GraceWait() != 10*time.Second {
		t.Errorf("grace wait: got %v", cfg.GraceWait())
	}
}
