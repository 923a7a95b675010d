package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/pelletier/go-toml/v2"

	"feedcurator/internal/config"
)

func TestLoadDefaultConfig(t *testing.T) {
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)
	t.Setenv("XDG_STATE_HOME", "")
	t.Setenv("GROQ_API_KEY", "")
	t.Setenv("FEEDCURATOR_API_TOKEN", "")
	t.Chdir(t.TempDir())

	cfg, path, exists, err := config.Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if exists {
		t.Fatalf("expected no config file to exist, got path %q", path)
	}

	wantState := filepath.Join(tempHome, ".local", "state", "feedcurator")
	if cfg.Paths.StateDir != wantState {
		t.Fatalf("unexpected state dir: got %q want %q", cfg.Paths.StateDir, wantState)
	}
	if got := cfg.Rerank.Endpoints; len(got) != 2 || got[0] != "http://127.0.0.1:11400/rerank" || got[1] != "http://localhost:11400/rerank" {
		t.Fatalf("unexpected default endpoints: %v", got)
	}
	if cfg.Rerank.Capacity != 10 {
		t.Fatalf("expected capacity 10, got %d", cfg.Rerank.Capacity)
	}
	if cfg.CacheTTL() != 5*time.Minute {
		t.Fatalf("expected ttl 5m, got %s", cfg.CacheTTL())
	}
	if cfg.Debounce() != 2*time.Second {
		t.Fatalf("expected debounce 2s, got %s", cfg.Debounce())
	}
	if cfg.Rerank.MaxItems != 30 {
		t.Fatalf("expected max items 30, got %d", cfg.Rerank.MaxItems)
	}
	if cfg.Server.Bind != "127.0.0.1:11400" {
		t.Fatalf("unexpected bind: %q", cfg.Server.Bind)
	}
	if cfg.MinRequestInterval() != 10*time.Second {
		t.Fatalf("expected min interval 10s, got %s", cfg.MinRequestInterval())
	}
	if cfg.Logging.Format != "auto" || cfg.Logging.Level != "info" {
		t.Fatalf("unexpected logging defaults: %+v", cfg.Logging)
	}
	if cfg.ResultStorePath() != filepath.Join(wantState, "results.db") {
		t.Fatalf("unexpected result store path: %q", cfg.ResultStorePath())
	}
}

func TestLoadCustomPath(t *testing.T) {
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)
	t.Setenv("GROQ_API_KEY", "")

	configPath := filepath.Join(t.TempDir(), "feedcurator.toml")
	payload := map[string]any{
		"paths": map[string]any{
			"state_dir": "~/state",
		},
		"rerank": map[string]any{
			"endpoints":   []string{" https://rerank.example/rerank ", "https://rerank.example/rerank", ""},
			"capacity":    3,
			"ttl_ms":      1500,
			"debounce_ms": 0,
		},
		"llm": map[string]any{
			"api_key": "file-key",
		},
		"logging": map[string]any{
			"format": "JSON",
			"level":  "Debug",
		},
	}
	data, err := toml.Marshal(payload)
	if err != nil {
		t.Fatalf("marshal config: %v", err)
	}
	if err := os.WriteFile(configPath, data, 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, path, exists, err := config.Load(configPath)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if !exists || path != configPath {
		t.Fatalf("expected config at %q to exist, got %q exists=%v", configPath, path, exists)
	}
	if cfg.Paths.StateDir != filepath.Join(tempHome, "state") {
		t.Fatalf("unexpected state dir: %q", cfg.Paths.StateDir)
	}
	if len(cfg.Rerank.Endpoints) != 1 || cfg.Rerank.Endpoints[0] != "https://rerank.example/rerank" {
		t.Fatalf("expected deduplicated endpoints, got %v", cfg.Rerank.Endpoints)
	}
	if cfg.Rerank.Capacity != 3 {
		t.Fatalf("expected capacity 3, got %d", cfg.Rerank.Capacity)
	}
	if cfg.CacheTTL() != 1500*time.Millisecond {
		t.Fatalf("expected ttl 1.5s, got %s", cfg.CacheTTL())
	}
	if cfg.Debounce() != 0 {
		t.Fatalf("expected zero debounce to be preserved, got %s", cfg.Debounce())
	}
	if cfg.LLM.APIKey != "file-key" {
		t.Fatalf("expected api key from file, got %q", cfg.LLM.APIKey)
	}
	if cfg.Logging.Format != "json" || cfg.Logging.Level != "debug" {
		t.Fatalf("expected lowercased logging settings, got %+v", cfg.Logging)
	}
}

func TestLoadEnvFillsMissingSecrets(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	t.Setenv("GROQ_API_KEY", "  env-key ")
	t.Setenv("FEEDCURATOR_API_TOKEN", "env-token")

	configPath := filepath.Join(t.TempDir(), "feedcurator.toml")
	if err := os.WriteFile(configPath, []byte("[llm]\nmodel = \"custom\"\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, _, _, err := config.Load(configPath)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.LLM.APIKey != "env-key" {
		t.Fatalf("expected env api key, got %q", cfg.LLM.APIKey)
	}
	if cfg.Server.APIToken != "env-token" {
		t.Fatalf("expected env api token, got %q", cfg.Server.APIToken)
	}
	if cfg.GetLLM().Model != "custom" {
		t.Fatalf("expected custom model, got %q", cfg.GetLLM().Model)
	}
}

func TestLoadRejectsUnknownKeys(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	configPath := filepath.Join(t.TempDir(), "feedcurator.toml")
	if err := os.WriteFile(configPath, []byte("[rerank]\nendpoint = \"http://typo\"\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	_, _, _, err := config.Load(configPath)
	if err == nil || !strings.Contains(err.Error(), "unknown keys") {
		t.Fatalf("expected unknown key error, got %v", err)
	}
}

func TestLoadMissingExplicitPathUsesDefaults(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	t.Setenv("GROQ_API_KEY", "")
	configPath := filepath.Join(t.TempDir(), "absent.toml")

	cfg, path, exists, err := config.Load(configPath)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if exists || path != configPath {
		t.Fatalf("expected missing %q, got %q exists=%v", configPath, path, exists)
	}
	if cfg.Server.Bind != config.Default().Server.Bind {
		t.Fatalf("expected default bind, got %q", cfg.Server.Bind)
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*config.Config)
		want   string
	}{
		{
			name:   "no endpoints",
			mutate: func(c *config.Config) { c.Rerank.Endpoints = nil },
			want:   "rerank.endpoints",
		},
		{
			name:   "non http endpoint",
			mutate: func(c *config.Config) { c.Rerank.Endpoints = []string{"ftp://host/rerank"} },
			want:   "http or https",
		},
		{
			name:   "bad bind",
			mutate: func(c *config.Config) { c.Server.Bind = "nope" },
			want:   "server.bind",
		},
		{
			name:   "bad format",
			mutate: func(c *config.Config) { c.Logging.Format = "xml" },
			want:   "logging.format",
		},
		{
			name:   "bad temperature",
			mutate: func(c *config.Config) { c.LLM.Temperature = 3 },
			want:   "llm.temperature",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := config.Default()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("expected error containing %q, got %v", tt.want, err)
			}
		})
	}
}

func TestCreateSampleLoads(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	path := filepath.Join(t.TempDir(), "nested", "config.toml")
	if err := config.CreateSample(path); err != nil {
		t.Fatalf("CreateSample returned error: %v", err)
	}
	cfg, _, exists, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load sample returned error: %v", err)
	}
	if !exists {
		t.Fatal("expected sample config to exist")
	}
	if cfg.Rerank.Capacity != 10 || cfg.Rerank.DebounceMs != 2000 {
		t.Fatalf("unexpected sample values: %+v", cfg.Rerank)
	}
}

func TestEncodeMasksSecrets(t *testing.T) {
	cfg := config.Default()
	cfg.LLM.APIKey = "secret-key"
	cfg.Server.APIToken = "secret-token"
	data, err := cfg.Encode()
	if err != nil {
		t.Fatalf("Encode returned error: %v", err)
	}
	text := string(data)
	if strings.Contains(text, "secret-key") || strings.Contains(text, "secret-token") {
		t.Fatalf("expected secrets to be masked, got:\n%s", text)
	}
	if cfg.LLM.APIKey != "secret-key" {
		t.Fatal("Encode must not mutate the receiver")
	}
}

func TestEnsureDirectories(t *testing.T) {
	base := t.TempDir()
	cfg := config.Default()
	cfg.Paths.LogDir = filepath.Join(base, "logs")
	cfg.Paths.StateDir = filepath.Join(base, "state")
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories returned error: %v", err)
	}
	for _, dir := range []string{cfg.Paths.LogDir, cfg.Paths.StateDir} {
		if info, err := os.Stat(dir); err != nil || !info.IsDir() {
			t.Fatalf("expected directory %q: %v", dir, err)
		}
	}
}
