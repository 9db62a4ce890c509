package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Port        string
	GinMode     string
	CORSOrigins []string
	MaxBodySize int64

	// E-book assets. AssetBaseURL wins over AssetDir when both are set.
	AssetDir       string
	AssetBaseURL   string
	ParagraphsFile string
	ChunksFile     string
	TOCFile        string
	ChapterFile    string

	// Chat backend
	ChatBackendURL    string
	ChatTimeout       time.Duration
	ChatRPM           int
	ChatBreakerTrips  int
	ChatBreakerReset  time.Duration
	ChatFallbackReply string

	// Rate limiting on chat endpoints
	RateLimitReqs   int
	RateLimitWindow int

	// Redis Configuration (optional; in-memory stores are used when empty)
	RedisURL      string
	RedisPassword string
	RedisDB       int

	// MongoDB (optional; only the all-time visit counter lives there)
	MongoURI string
	DBName   string

	// Visitors and chat history
	SessionTTL      time.Duration
	SweepInterval   time.Duration
	HistoryTTL      time.Duration
	HistoryMaxItems int
	TotalVisitSeed  int64
	TotalVisitTTL   time.Duration

	// Telemetry
	OTLPEndpoint     string
	ServiceName      string
	TraceSampleRatio float64
}

func LoadConfig() (*Config, error) {
	// Load .env file if exists
	if _, err := os.Stat(".env"); err == nil {
		if err := godotenv.Load(); err != nil {
			return nil, fmt.Errorf("error loading .env file: %v", err)
		}
	}

	cfg := &Config{
		Port:        getEnv("PORT", "8080"),
		GinMode:     getEnv("GIN_MODE", "debug"),
		CORSOrigins: strings.Split(getEnv("CORS_ORIGINS", "*"), ","),
		MaxBodySize: getEnvInt64("MAX_BODY_SIZE", 1<<20),

		AssetDir:       getEnv("ASSET_DIR", "./public"),
		AssetBaseURL:   getEnv("ASSET_BASE_URL", ""),
		ParagraphsFile: getEnv("EBOOK_PARAGRAPHS_FILE", "data/ebook_paragraphs.txt"),
		ChunksFile:     getEnv("EBOOK_CHUNKS_FILE", "data/ebook_chunks.txt"),
		TOCFile:        getEnv("EBOOK_TOC_FILE", "ebook_toc.json"),
		ChapterFile:    getEnv("EBOOK_CHAPTER_FILE", "ebook_chapter_chap_4b6b984589dd283e.html"),

		ChatBackendURL:    strings.TrimRight(getEnv("CHAT_BACKEND_URL", "http://localhost:8000"), "/"),
		ChatTimeout:       getEnvDuration("CHAT_TIMEOUT", 30*time.Second),
		ChatRPM:           getEnvInt("CHAT_RPM", 60),
		ChatBreakerTrips:  getEnvInt("CHAT_BREAKER_TRIPS", 5),
		ChatBreakerReset:  getEnvDuration("CHAT_BREAKER_RESET", 30*time.Second),
		ChatFallbackReply: getEnv("CHAT_FALLBACK_REPLY", ""),

		RateLimitReqs:   getEnvInt("RATE_LIMIT_REQUESTS", 30),
		RateLimitWindow: getEnvInt("RATE_LIMIT_WINDOW", 60),

		// Redis Configuration
		RedisURL:      getEnv("REDIS_URL", ""),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getEnvInt("REDIS_DB", 0),

		MongoURI: getEnv("MONGO_URI", ""),
		DBName:   getEnv("DB_NAME", "ebook_assistant"),

		SessionTTL:      getEnvDuration("SESSION_TTL", 5*time.Minute),
		SweepInterval:   getEnvDuration("SESSION_SWEEP_INTERVAL", time.Minute),
		HistoryTTL:      getEnvDuration("HISTORY_TTL", 7*24*time.Hour),
		HistoryMaxItems: getEnvInt("HISTORY_MAX_MESSAGES", 200),
		TotalVisitSeed:  getEnvInt64("TOTAL_VISITS_SEED", 1000),
		TotalVisitTTL:   getEnvDuration("TOTAL_VISITS_WINDOW", 24*time.Hour),

		OTLPEndpoint:     getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", ""),
		ServiceName:      getEnv("OTEL_SERVICE_NAME", "ebook-assistant"),
		TraceSampleRatio: getEnvFloat("OTEL_TRACE_SAMPLE_RATIO", 1.0),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the values LoadConfig cannot default its way out of.
func (c *Config) Validate() error {
	if _, err := strconv.Atoi(c.Port); err != nil {
		return fmt.Errorf("PORT must be numeric, got %q", c.Port)
	}
	u, err := url.Parse(c.ChatBackendURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("CHAT_BACKEND_URL must be an absolute URL, got %q", c.ChatBackendURL)
	}
	if c.AssetBaseURL == "" && c.AssetDir == "" {
		return fmt.Errorf("one of ASSET_BASE_URL or ASSET_DIR is required")
	}
	if c.SessionTTL <= 0 {
		return fmt.Errorf("SESSION_TTL must be positive")
	}
	if c.RateLimitReqs <= 0 || c.RateLimitWindow <= 0 {
		return fmt.Errorf("RATE_LIMIT_REQUESTS and RATE_LIMIT_WINDOW must be positive")
	}
	return nil
}

// AllowAllOrigins reports whether CORS_ORIGINS is the wildcard.
func (c *Config) AllowAllOrigins() bool {
	return len(c.CORSOrigins) == 0 || (len(c.CORSOrigins) == 1 && strings.TrimSpace(c.CORSOrigins[0]) == "*")
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvInt64(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.ParseInt(value, 10, 64); err == nil {
			return intValue
		}
	}
	return defaultValue
}

// getEnvDuration accepts Go durations ("90s") or bare seconds ("90").
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
		if secs, err := strconv.Atoi(value); err == nil {
			return time.Duration(secs) * time.Second
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}
