// Package config provides configuration management for the knowledge worker.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
)

// Summarizer backends.
const (
	SummarizerHuggingFace = "huggingface"
	SummarizerOpenAI      = "openai"
)

// Quote providers.
const (
	QuoteAlphaVantage = "alphavantage"
	QuoteFinnhub      = "finnhub"
)

// Config holds all application configuration.
type Config struct {
	// Quote provider
	QuoteProvider      string
	AlphaVantageAPIKey string
	AlphaVantageURL    string
	FinnhubAPIKey      string
	FinnhubURL         string
	QuoteTimeout       time.Duration

	// Feed source
	FeedURL     string
	FeedTimeout time.Duration

	// Summarization
	Summarizer       string
	HuggingFaceToken string
	HuggingFaceModel string
	HuggingFaceURL   string
	OpenAIAPIKey     string
	OpenAIEndpoint   string
	OpenAIModel      string
	SummaryMaxInput  int
	SummaryMinLength int
	SummaryTimeout   time.Duration
	ChunkSize        int
	WordBudget       int
	RetryCount       int

	// Pipeline defaults
	NewsQuery    string
	NewsLanguage string
	NewsLimit    int
	QuoteSymbol  string

	// Schedule
	NewsInterval time.Duration
	QuoteHour    int
	QuoteMinute  int
	QuoteTZ      string // IANA zone for QuoteHour/QuoteMinute
	JobTimeout   time.Duration

	// MongoDB settings
	MongoURI string
	MongoDB  string

	// Server settings
	HTTPAddr    string
	CORSOrigins []string
	Debug       bool
}

// Load loads configuration from environment variables.
func Load() (*Config, error) {
	// Try to load .env file
	if err := godotenv.Load(); err != nil {
		log.Debug().Msg("No .env file found, using environment variables")
	}

	cfg := &Config{
		QuoteProvider:      strings.ToLower(getEnv("QUOTE_PROVIDER", QuoteAlphaVantage)),
		AlphaVantageAPIKey: getEnv("ALPHAVANTAGE_API_KEY", ""),
		AlphaVantageURL:    getEnv("ALPHAVANTAGE_URL", "https://www.alphavantage.co"),
		FinnhubAPIKey:      getEnv("FINNHUB_API_KEY", ""),
		FinnhubURL:         getEnv("FINNHUB_URL", "https://finnhub.io/api/v1"),
		QuoteTimeout:       getEnvDuration("QUOTE_TIMEOUT", 15*time.Second),

		FeedURL:     getEnv("FEED_URL", "https://news.google.com"),
		FeedTimeout: getEnvDuration("FEED_TIMEOUT", 30*time.Second),

		Summarizer:       strings.ToLower(getEnv("SUMMARIZER", SummarizerHuggingFace)),
		HuggingFaceToken: getEnv("HUGGINGFACE_API_TOKEN", ""),
		HuggingFaceModel: getEnv("HUGGINGFACE_MODEL", "facebook/bart-large-cnn"),
		HuggingFaceURL:   getEnv("HUGGINGFACE_URL", "https://api-inference.huggingface.co"),
		OpenAIAPIKey:     getEnv("OPENAI_API_KEY", ""),
		OpenAIEndpoint:   getEnv("OPENAI_ENDPOINT", "https://api.openai.com/v1"),
		OpenAIModel:      getEnv("OPENAI_MODEL", "gpt-4o-mini"),
		SummaryMaxInput:  getEnvInt("SUMMARY_MAX_INPUT", 1000),
		SummaryMinLength: getEnvInt("SUMMARY_MIN_LENGTH", 50),
		SummaryTimeout:   getEnvDuration("SUMMARY_TIMEOUT", 60*time.Second),
		ChunkSize:        getEnvInt("CHUNK_SIZE", 800),
		WordBudget:       getEnvInt("WORD_BUDGET", 1500),
		RetryCount:       getEnvInt("RETRY_COUNT", 2),

		NewsQuery:    getEnv("NEWS_QUERY", "AI"),
		NewsLanguage: getEnv("NEWS_LANGUAGE", "en"),
		NewsLimit:    getEnvInt("NEWS_LIMIT", 5),
		QuoteSymbol:  getEnv("QUOTE_SYMBOL", "AAPL"),

		NewsInterval: getEnvDuration("NEWS_INTERVAL", 6*time.Hour),
		QuoteHour:    getEnvInt("QUOTE_HOUR", 16),
		QuoteMinute:  getEnvInt("QUOTE_MINUTE", 0),
		QuoteTZ:      getEnv("QUOTE_TZ", "UTC"),
		JobTimeout:   getEnvDuration("JOB_TIMEOUT", 5*time.Minute),

		MongoURI: getEnv("MONGO_URI", "mongodb://localhost:27017"),
		MongoDB:  getEnv("MONGO_DB", "knowledgeworker"),

		HTTPAddr:    getEnv("HTTP_ADDR", ":8000"),
		CORSOrigins: getEnvList("CORS_ORIGINS", []string{"http://localhost:5173"}),
		Debug:       getEnvBool("DEBUG", false),
	}

	return cfg, nil
}

// Validate checks that the configuration is usable.
func (c *Config) Validate() error {
	switch c.Summarizer {
	case SummarizerHuggingFace:
		if c.HuggingFaceToken == "" {
			log.Warn().Msg("HUGGINGFACE_API_TOKEN not set, summaries will carry provider errors")
		}
	case SummarizerOpenAI:
		if c.OpenAIAPIKey == "" {
			log.Warn().Msg("OPENAI_API_KEY not set, summaries will carry provider errors")
		}
	default:
		return fmt.Errorf("unknown summarizer %q", c.Summarizer)
	}

	switch c.QuoteProvider {
	case QuoteAlphaVantage:
		if c.AlphaVantageAPIKey == "" {
			log.Warn().Msg("ALPHAVANTAGE_API_KEY not set, quotes will use demo data")
		}
	case QuoteFinnhub:
		if c.FinnhubAPIKey == "" {
			log.Warn().Msg("FINNHUB_API_KEY not set, quotes will use demo data")
		}
	default:
		return fmt.Errorf("unknown quote provider %q", c.QuoteProvider)
	}

	if c.ChunkSize <= 0 {
		return fmt.Errorf("CHUNK_SIZE must be positive, got %d", c.ChunkSize)
	}
	if c.WordBudget <= 0 {
		return fmt.Errorf("WORD_BUDGET must be positive, got %d", c.WordBudget)
	}
	if c.NewsInterval <= 0 {
		return fmt.Errorf("NEWS_INTERVAL must be positive, got %s", c.NewsInterval)
	}
	if c.QuoteHour < 0 || c.QuoteHour > 23 {
		return fmt.Errorf("QUOTE_HOUR out of range: %d", c.QuoteHour)
	}
	if c.QuoteMinute < 0 || c.QuoteMinute > 59 {
		return fmt.Errorf("QUOTE_MINUTE out of range: %d", c.QuoteMinute)
	}
	if _, err := c.QuoteLocation(); err != nil {
		return err
	}
	if c.RetryCount < 0 {
		return fmt.Errorf("RETRY_COUNT must not be negative, got %d", c.RetryCount)
	}
	return nil
}

// QuoteLocation resolves QuoteTZ. An empty zone means UTC.
func (c *Config) QuoteLocation() (*time.Location, error) {
	loc, err := time.LoadLocation(c.QuoteTZ)
	if err != nil {
		return nil, fmt.Errorf("QUOTE_TZ %q: %w", c.QuoteTZ, err)
	}
	return loc, nil
}

// Helper functions

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

func getEnvList(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return defaultValue
	}
	return out
}
