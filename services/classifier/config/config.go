package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds the classifier service's boot-time configuration. It is
// read once at startup; per-request tunables that need hot reload live
// in configmgr's ConfigVariant instead.
type Config struct {
	// Server
	Addr            string
	Env             string
	GracefulTimeout time.Duration

	// Backing stores
	RedisURL string

	// Embedding encoder
	EmbeddingEnabled       bool
	EmbeddingEndpoint      string
	EmbeddingAPIKey        string
	EmbeddingModel         string
	EmbeddingTimeout       time.Duration
	EmbeddingCacheCapacity int

	// Admin
	AdminToken string

	// LLM
	LLMEndpoint       string
	LLMAPIKey         string
	LLMModel          string
	LLMRequestTimeout time.Duration
	MaxRetries        int
	RetryDelay        time.Duration
	MaxCostPerRequest float64

	// Queue / worker pool
	MessageTTL    time.Duration
	WorkerCount   int
	VisibilityTTL time.Duration

	// Hybrid pipeline defaults (overridable per ConfigVariant)
	PriorityThreshold   float64
	ConfidenceThreshold float64
	GapThreshold        float64
	KeywordWeight       float64
	EmbeddingWeight     float64

	// Cache
	CacheSimilarityThreshold         float64
	CacheFallbackSimilarityThreshold float64
	CacheTTL                         time.Duration
	CacheMaxSize                     int
	CacheMinQueryTokens              int

	// Rate limiting / cost monitor
	RateLimitMaxCalls int
	RateLimitWindow   time.Duration

	// Alerting
	EscalationWebhookURL string

	// Config hot-reload
	RulesDir    string
	KeywordsDir string
	TaxonomyDir string

	// Body limits
	MaxBodyBytes int64

	LogLevel string
}

// Load reads configuration from environment variables and an optional
// .env file, the way the gateway this service is descended from does.
func Load() *Config {
	_ = godotenv.Load()

	gracefulSec := getEnvInt("CLASSIFIER_GRACEFUL_TIMEOUT_SEC", 15)

	cfg := &Config{
		Addr:            getEnv("CLASSIFIER_ADDR", ":8080"),
		Env:             getEnv("ENV", "development"),
		GracefulTimeout: time.Duration(gracefulSec) * time.Second,

		RedisURL: getEnv("REDIS_URL", "redis://redis:6379"),

		EmbeddingEnabled:       getEnvBool("EMBEDDING_ENABLED", true),
		EmbeddingEndpoint:      getEnv("EMBEDDING_ENDPOINT", "https://api.openai.com/v1"),
		EmbeddingAPIKey:        getEnv("EMBEDDING_API_KEY", ""),
		EmbeddingModel:         getEnv("EMBEDDING_MODEL", "text-embedding-3-small"),
		EmbeddingTimeout:       time.Duration(getEnvInt("EMBEDDING_TIMEOUT_SEC", 10)) * time.Second,
		EmbeddingCacheCapacity: getEnvInt("EMBEDDING_CACHE_CAPACITY", 2048),

		AdminToken: getEnv("ADMIN_TOKEN", ""),

		LLMEndpoint:       getEnv("LLM_ENDPOINT", ""),
		LLMAPIKey:         getEnv("LLM_API_KEY", ""),
		LLMModel:          getEnv("LLM_MODEL", "gpt-4o-mini"),
		LLMRequestTimeout: time.Duration(getEnvInt("LLM_REQUEST_TIMEOUT_SEC", 30)) * time.Second,
		MaxRetries:        getEnvInt("MAX_RETRIES", 3),
		RetryDelay:        time.Duration(getEnvFloatMillis("RETRY_DELAY_SEC", 0.5)) * time.Millisecond,
		MaxCostPerRequest: getEnvFloat("MAX_COST_PER_REQUEST", 0.01),

		MessageTTL:    time.Duration(getEnvInt("MESSAGE_TTL_SEC", 24*3600)) * time.Second,
		WorkerCount:   getEnvInt("WORKER_COUNT", 4),
		VisibilityTTL: time.Duration(getEnvInt("VISIBILITY_TTL_SEC", 30)) * time.Second,

		PriorityThreshold:   getEnvFloat("PRIORITY_THRESHOLD", 0.85),
		ConfidenceThreshold: getEnvFloat("CONFIDENCE_THRESHOLD", 0.70),
		GapThreshold:        getEnvFloat("GAP_THRESHOLD", 0.15),
		KeywordWeight:       getEnvFloat("KW_WEIGHT", 0.6),
		EmbeddingWeight:     getEnvFloat("EMB_WEIGHT", 0.4),

		CacheSimilarityThreshold:         getEnvFloat("LLM_CACHE_SIMILARITY_THRESHOLD", 0.95),
		CacheFallbackSimilarityThreshold: getEnvFloat("LLM_CACHE_FALLBACK_SIMILARITY_THRESHOLD", 0.90),
		CacheTTL:                         time.Duration(getEnvInt("LLM_CACHE_TTL_SEC", 24*3600)) * time.Second,
		CacheMaxSize:                     getEnvInt("CACHE_MAX_SIZE", 10000),
		CacheMinQueryTokens:              getEnvInt("CACHE_MIN_QUERY_TOKENS", 3),

		RateLimitMaxCalls: getEnvInt("RATE_LIMIT_MAX_CALLS", 60),
		RateLimitWindow:   time.Duration(getEnvInt("RATE_LIMIT_WINDOW_SEC", 60)) * time.Second,

		EscalationWebhookURL: getEnv("ESCALATION_WEBHOOK_URL", ""),

		RulesDir:    getEnv("RULES_DIR", "./configdata/rules"),
		KeywordsDir: getEnv("KEYWORDS_DIR", "./configdata/keywords"),
		TaxonomyDir: getEnv("TAXONOMY_DIR", "./configdata/taxonomy"),

		MaxBodyBytes: int64(getEnvInt("CLASSIFIER_MAX_BODY_BYTES", 64*1024)),
		LogLevel:     getEnv("LOG_LEVEL", "info"),
	}
	return cfg
}

// IsDevelopment returns true if running in development mode.
func (c *Config) IsDevelopment() bool {
	return c.Env == "development"
}

// IsProduction returns true if running in production mode.
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v, ok := os.LookupEnv(key); ok {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if v, ok := os.LookupEnv(key); ok {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func getEnvFloat(key string, fallback float64) float64 {
	if v, ok := os.LookupEnv(key); ok {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

// getEnvFloatMillis reads a fractional-seconds env var and returns the
// equivalent whole milliseconds, so callers can build a time.Duration
// with millisecond resolution (RETRY_DELAY_SEC=0.5 -> 500ms).
func getEnvFloatMillis(key string, fallbackSeconds float64) int {
	seconds := getEnvFloat(key, fallbackSeconds)
	return int(seconds * 1000)
}
