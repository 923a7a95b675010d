package config

const (
	defaultLogDir                    = "~/.local/share/feedcurator/logs"
	defaultLogFormat                 = "auto"
	defaultLogLevel                  = "info"
	defaultCacheCapacity             = 10
	defaultCacheTTLMs                = 300000
	defaultDebounceMs                = 2000
	defaultMaxItems                  = 30
	defaultRequestTimeoutSeconds     = 45
	defaultServerBind                = "127.0.0.1:11400"
	defaultServerMaxVideos           = 30
	defaultMinRequestIntervalSeconds = 10
	defaultServerCacheCapacity       = 100
	defaultStoreRetentionHours       = 24
	defaultLLMBaseURL                = "https://api.groq.com/openai/v1/chat/completions"
	defaultLLMModel                  = "moonshotai/kimi-k2-instruct-0905"
	defaultLLMReferer                = "https://github.com/feedcurator/feedcurator"
	defaultLLMTitle                  = "feedcurator"
	defaultLLMTemperature            = 0.2
	defaultLLMTimeoutSeconds         = 30
	defaultLLMRetryAttempts          = 2
)

// DefaultEndpoints is the ordered preference list of reranking endpoints.
func DefaultEndpoints() []string {
	return []string{
		"http://127.0.0.1:11400/rerank",
		"http://localhost:11400/rerank",
	}
}

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			LogDir:   defaultLogDir,
			StateDir: defaultStateDir(),
		},
		Rerank: Rerank{
			Endpoints:             DefaultEndpoints(),
			Capacity:              defaultCacheCapacity,
			TTLMs:                 defaultCacheTTLMs,
			DebounceMs:            defaultDebounceMs,
			MaxItems:              defaultMaxItems,
			RequestTimeoutSeconds: defaultRequestTimeoutSeconds,
		},
		Server: Server{
			Bind:                      defaultServerBind,
			MaxVideos:                 defaultServerMaxVideos,
			MinRequestIntervalSeconds: defaultMinRequestIntervalSeconds,
			CacheCapacity:             defaultServerCacheCapacity,
			StoreRetentionHours:       defaultStoreRetentionHours,
		},
		LLM: LLM{
			BaseURL:        defaultLLMBaseURL,
			Model:          defaultLLMModel,
			Referer:        defaultLLMReferer,
			Title:          defaultLLMTitle,
			Temperature:    defaultLLMTemperature,
			TimeoutSeconds: defaultLLMTimeoutSeconds,
			RetryAttempts:  defaultLLMRetryAttempts,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
