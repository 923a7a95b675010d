package config

import (
	"fmt"
	"os"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeRerank()
	c.normalizeServer()
	c.normalizeLLM()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = defaultLogDir
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.StateDir) == "" {
		c.Paths.StateDir = defaultStateDir()
	}
	if c.Paths.StateDir, err = expandPath(c.Paths.StateDir); err != nil {
		return fmt.Errorf("paths.state_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeRerank() {
	endpoints := make([]string, 0, len(c.Rerank.Endpoints))
	seen := make(map[string]struct{}, len(c.Rerank.Endpoints))
	for _, endpoint := range c.Rerank.Endpoints {
		trimmed := strings.TrimSpace(endpoint)
		if trimmed == "" {
			continue
		}
		if _, exists := seen[trimmed]; exists {
			continue
		}
		seen[trimmed] = struct{}{}
		endpoints = append(endpoints, trimmed)
	}
	c.Rerank.Endpoints = endpoints
	if c.Rerank.Capacity <= 0 {
		c.Rerank.Capacity = defaultCacheCapacity
	}
	if c.Rerank.TTLMs <= 0 {
		c.Rerank.TTLMs = defaultCacheTTLMs
	}
	if c.Rerank.DebounceMs < 0 {
		c.Rerank.DebounceMs = defaultDebounceMs
	}
	if c.Rerank.MaxItems <= 0 {
		c.Rerank.MaxItems = defaultMaxItems
	}
	if c.Rerank.RequestTimeoutSeconds <= 0 {
		c.Rerank.RequestTimeoutSeconds = defaultRequestTimeoutSeconds
	}
}

func (c *Config) normalizeServer() {
	c.Server.Bind = strings.TrimSpace(c.Server.Bind)
	if c.Server.Bind == "" {
		c.Server.Bind = defaultServerBind
	}
	c.Server.APIToken = strings.TrimSpace(c.Server.APIToken)
	if c.Server.APIToken == "" {
		if value, ok := os.LookupEnv("FEEDCURATOR_API_TOKEN"); ok {
			c.Server.APIToken = strings.TrimSpace(value)
		}
	}
	if c.Server.MaxVideos <= 0 {
		c.Server.MaxVideos = defaultServerMaxVideos
	}
	if c.Server.MinRequestIntervalSeconds < 0 {
		c.Server.MinRequestIntervalSeconds = 0
	}
	if c.Server.CacheCapacity <= 0 {
		c.Server.CacheCapacity = defaultServerCacheCapacity
	}
	if c.Server.StoreRetentionHours <= 0 {
		c.Server.StoreRetentionHours = defaultStoreRetentionHours
	}
}

func (c *Config) normalizeLLM() {
	c.LLM.APIKey = strings.TrimSpace(c.LLM.APIKey)
	if c.LLM.APIKey == "" {
		if value, ok := os.LookupEnv("GROQ_API_KEY"); ok {
			c.LLM.APIKey = strings.TrimSpace(value)
		}
	}
	c.LLM.BaseURL = strings.TrimSpace(c.LLM.BaseURL)
	if c.LLM.BaseURL == "" {
		c.LLM.BaseURL = defaultLLMBaseURL
	}
	c.LLM.Model = strings.TrimSpace(c.LLM.Model)
	if c.LLM.Model == "" {
		if value, ok := os.LookupEnv("GROQ_MODEL"); ok && strings.TrimSpace(value) != "" {
			c.LLM.Model = strings.TrimSpace(value)
		} else {
			c.LLM.Model = defaultLLMModel
		}
	}
	if c.LLM.TimeoutSeconds <= 0 {
		c.LLM.TimeoutSeconds = defaultLLMTimeoutSeconds
	}
	if c.LLM.RetryAttempts <= 0 {
		c.LLM.RetryAttempts = 1
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}
