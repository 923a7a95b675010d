package config

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory and state file configuration.
type Paths struct {
	LogDir   string `toml:"log_dir"`
	StateDir string `toml:"state_dir"`
}

// Rerank contains the coordinator settings used on the client side of the
// reranking service.
type Rerank struct {
	Endpoints             []string `toml:"endpoints"`
	Capacity              int      `toml:"capacity"`
	TTLMs                 int      `toml:"ttl_ms"`
	DebounceMs            int      `toml:"debounce_ms"`
	MaxItems              int      `toml:"max_items"`
	RequestTimeoutSeconds int      `toml:"request_timeout_seconds"`
}

// Server contains configuration for the reranking HTTP service.
type Server struct {
	Bind                      string `toml:"bind"`
	APIToken                  string `toml:"api_token"`
	MaxVideos                 int    `toml:"max_videos"`
	MinRequestIntervalSeconds int    `toml:"min_request_interval_seconds"`
	CacheCapacity             int    `toml:"cache_capacity"`
	StoreEnabled              bool   `toml:"store_enabled"`
	StoreRetentionHours       int    `toml:"store_retention_hours"`
}

// LLM contains the chat completion settings used by the reranking service.
type LLM struct {
	APIKey         string  `toml:"api_key"`
	BaseURL        string  `toml:"base_url"`
	Model          string  `toml:"model"`
	Referer        string  `toml:"referer"`
	Title          string  `toml:"title"`
	Temperature    float64 `toml:"temperature"`
	TimeoutSeconds int     `toml:"timeout_seconds"`
	RetryAttempts  int     `toml:"retry_attempts"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config encapsulates all configuration values for feedcurator.
//
// Configuration sections by subsystem:
//   - Paths: log and state directories (result store, lock file)
//   - Rerank: coordinator cache, debounce, and endpoint fallback list
//   - Server: reranking HTTP service
//   - LLM: chat completion backend used by the reranking service
//   - Logging: log format and level
type Config struct {
	Paths   Paths   `toml:"paths"`
	Rerank  Rerank  `toml:"rerank"`
	Server  Server  `toml:"server"`
	LLM     LLM     `toml:"llm"`
	Logging Logging `toml:"logging"`
}

// DefaultConfigPath returns the absolute path of ~/.config/feedcurator/config.toml.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/feedcurator/config.toml")
}

// Load reads the configuration at path, or the first of the default path and
// ./feedcurator.toml that exists when path is empty. A missing file yields
// defaults. It returns the config, the resolved path, and whether that file
// existed. Unknown keys are rejected.
func Load(path string) (*Config, string, bool, error) {
	resolved, exists, err := locate(path)
	if err != nil {
		return nil, "", false, err
	}

	cfg := Default()
	if exists {
		if err := decodeFile(resolved, &cfg); err != nil {
			return nil, "", false, err
		}
	}
	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}
	return &cfg, resolved, exists, nil
}

func decodeFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config: %w", err)
	}
	dec := toml.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(cfg); err != nil {
		var strict *toml.StrictMissingError
		if errors.As(err, &strict) {
			return fmt.Errorf("parse config %s: unknown keys:\n%s", path, strict.String())
		}
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	return nil
}

func locate(path string) (string, bool, error) {
	candidates := []string{path}
	if path == "" {
		home, err := DefaultConfigPath()
		if err != nil {
			return "", false, err
		}
		candidates = []string{home, "feedcurator.toml"}
	}

	var first string
	for i, candidate := range candidates {
		expanded, err := expandPath(candidate)
		if err != nil {
			return "", false, err
		}
		if i == 0 {
			first = expanded
		}
		info, err := os.Stat(expanded)
		switch {
		case err == nil && !info.IsDir():
			return expanded, true, nil
		case err != nil && !errors.Is(err, fs.ErrNotExist):
			return "", false, fmt.Errorf("stat config: %w", err)
		}
	}
	return first, false, nil
}

// EnsureDirectories creates the log and state directories.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.LogDir, c.Paths.StateDir} {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// ResultStorePath returns the SQLite database used to persist curated results.
func (c *Config) ResultStorePath() string {
	return filepath.Join(c.Paths.StateDir, "results.db")
}

// LockPath returns the lock file guarding a single reranking service per state dir.
func (c *Config) LockPath() string {
	return filepath.Join(c.Paths.StateDir, "rerankd.lock")
}

// CacheTTL returns the coordinator result cache TTL.
func (c *Config) CacheTTL() time.Duration {
	return time.Duration(c.Rerank.TTLMs) * time.Millisecond
}

// Debounce returns the coordinator trigger debounce delay.
func (c *Config) Debounce() time.Duration {
	return time.Duration(c.Rerank.DebounceMs) * time.Millisecond
}

// RequestTimeout returns the per-endpoint HTTP timeout used by the dispatcher.
func (c *Config) RequestTimeout() time.Duration {
	return time.Duration(c.Rerank.RequestTimeoutSeconds) * time.Second
}

// MinRequestInterval returns how long the service reuses a curated result for
// an identical video set.
func (c *Config) MinRequestInterval() time.Duration {
	return time.Duration(c.Server.MinRequestIntervalSeconds) * time.Second
}

// StoreRetention returns how long persisted curated results are kept.
func (c *Config) StoreRetention() time.Duration {
	return time.Duration(c.Server.StoreRetentionHours) * time.Hour
}

// ExpandPath resolves a leading "~" to the home directory and returns an
// absolute, cleaned path. The empty string is returned unchanged.
func ExpandPath(path string) (string, error) {
	return expandPath(path)
}

func expandPath(path string) (string, error) {
	if path == "" {
		return "", nil
	}
	if rest, ok := strings.CutPrefix(path, "~"); ok && (rest == "" || rest[0] == '/' || rest[0] == '\\') {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		path = home + rest
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("resolve %q: %w", path, err)
	}
	return abs, nil
}

func defaultStateDir() string {
	if base, ok := os.LookupEnv("XDG_STATE_HOME"); ok && strings.TrimSpace(base) != "" {
		return filepath.Join(base, "feedcurator")
	}
	return "~/.local/state/feedcurator"
}

// CreateSample writes the commented sample configuration to path,
// creating parent directories.
func CreateSample(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}
	return os.WriteFile(path, []byte(sampleConfig), 0o644)
}

// Encode renders the effective configuration as TOML with secrets masked.
func (c *Config) Encode() ([]byte, error) {
	masked := *c
	masked.Rerank.Endpoints = append([]string(nil), c.Rerank.Endpoints...)
	if masked.LLM.APIKey != "" {
		masked.LLM.APIKey = "********"
	}
	if masked.Server.APIToken != "" {
		masked.Server.APIToken = "********"
	}
	data, err := toml.Marshal(masked)
	if err != nil {
		return nil, fmt.Errorf("encode config: %w", err)
	}
	return data, nil
}

// GetLLM returns the [llm] section with string fields trimmed.
func (c *Config) GetLLM() LLM {
	llm := c.LLM
	for _, field := range []*string{&llm.APIKey, &llm.BaseURL, &llm.Model, &llm.Referer, &llm.Title} {
		*field = strings.TrimSpace(*field)
	}
	return llm
}
