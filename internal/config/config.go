package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	// Database
	PostgresDSN   string
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	// Model provider
	ProviderName     string
	ProviderBaseURL  string
	ProviderAPIKey   string
	ProviderTimeout  time.Duration
	Models           []string // first is primary, rest are fallbacks
	Temperature      float64
	MaxOutputTokens  int
	MaxOutputRetries int

	// Batch scorer
	BatchSize        int
	DefaultThreshold float64

	// HTTP trigger
	HTTPAddr       string
	AllowedOrigins []string

	// Scheduler (empty disables the cron trigger)
	CronSpec string

	// Telegram delivery (optional)
	TelegramToken  string
	TelegramChatID int64

	// Logging
	LogLevel string
}

func Load() (*Config, error) {
	cfg := &Config{
		// Defaults
		ProviderName:     "openai",
		ProviderBaseURL:  "https://api.openai.com/v1",
		ProviderTimeout:  90 * time.Second,
		Models:           []string{"gpt-4o-mini", "gpt-4o"},
		Temperature:      0.2,
		MaxOutputTokens:  2000,
		MaxOutputRetries: 2,
		BatchSize:        10,
		DefaultThreshold: 0.6,
		HTTPAddr:         ":8080",
		AllowedOrigins:   []string{"*"},
		LogLevel:         "info",
		RedisDB:          0,
	}

	cfg.PostgresDSN = os.Getenv("POSTGRES_DSN")
	if cfg.PostgresDSN == "" {
		return nil, fmt.Errorf("POSTGRES_DSN is required")
	}

	cfg.ProviderAPIKey = os.Getenv("PROVIDER_API_KEY")
	if cfg.ProviderAPIKey == "" {
		return nil, fmt.Errorf("PROVIDER_API_KEY is required")
	}

	if addr := os.Getenv("REDIS_ADDR"); addr != "" {
		cfg.RedisAddr = addr
	} else {
		cfg.RedisAddr = "localhost:6379"
	}

	cfg.RedisPassword = os.Getenv("REDIS_PASSWORD")

	if redisDB := os.Getenv("REDIS_DB"); redisDB != "" {
		db, err := strconv.Atoi(redisDB)
		if err != nil {
			return nil, fmt.Errorf("invalid REDIS_DB: %w", err)
		}
		cfg.RedisDB = db
	}

	if name := os.Getenv("PROVIDER_NAME"); name != "" {
		cfg.ProviderName = name
	}

	if baseURL := os.Getenv("PROVIDER_BASE_URL"); baseURL != "" {
		cfg.ProviderBaseURL = strings.TrimRight(baseURL, "/")
	}

	if timeout := os.Getenv("PROVIDER_TIMEOUT"); timeout != "" {
		d, err := time.ParseDuration(timeout)
		if err != nil {
			return nil, fmt.Errorf("invalid PROVIDER_TIMEOUT: %w", err)
		}
		cfg.ProviderTimeout = d
	}

	if models := os.Getenv("PROVIDER_MODELS"); models != "" {
		cfg.Models = splitList(models)
	}

	if temp := os.Getenv("PROVIDER_TEMPERATURE"); temp != "" {
		t, err := strconv.ParseFloat(temp, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid PROVIDER_TEMPERATURE: %w", err)
		}
		cfg.Temperature = t
	}

	if maxTokens := os.Getenv("PROVIDER_MAX_TOKENS"); maxTokens != "" {
		n, err := strconv.Atoi(maxTokens)
		if err != nil {
			return nil, fmt.Errorf("invalid PROVIDER_MAX_TOKENS: %w", err)
		}
		cfg.MaxOutputTokens = n
	}

	if retries := os.Getenv("PROVIDER_MAX_RETRIES"); retries != "" {
		n, err := strconv.Atoi(retries)
		if err != nil {
			return nil, fmt.Errorf("invalid PROVIDER_MAX_RETRIES: %w", err)
		}
		cfg.MaxOutputRetries = n
	}

	if batchSize := os.Getenv("BATCH_SIZE"); batchSize != "" {
		n, err := strconv.Atoi(batchSize)
		if err != nil {
			return nil, fmt.Errorf("invalid BATCH_SIZE: %w", err)
		}
		cfg.BatchSize = n
	}

	if threshold := os.Getenv("DEFAULT_MATCH_THRESHOLD"); threshold != "" {
		t, err := strconv.ParseFloat(threshold, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid DEFAULT_MATCH_THRESHOLD: %w", err)
		}
		cfg.DefaultThreshold = t
	}

	if addr := os.Getenv("HTTP_ADDR"); addr != "" {
		cfg.HTTPAddr = addr
	}

	if origins := os.Getenv("ALLOWED_ORIGINS"); origins != "" {
		cfg.AllowedOrigins = splitList(origins)
	}

	cfg.CronSpec = os.Getenv("CRON_SPEC")

	cfg.TelegramToken = os.Getenv("TELEGRAM_TOKEN")

	if chatID := os.Getenv("TELEGRAM_CHAT_ID"); chatID != "" {
		id, err := strconv.ParseInt(chatID, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid TELEGRAM_CHAT_ID: %w", err)
		}
		cfg.TelegramChatID = id
	}

	if logLevel := os.Getenv("LOG_LEVEL"); logLevel != "" {
		cfg.LogLevel = logLevel
	}

	return cfg, nil
}

func (c *Config) Validate() error {
	if c.PostgresDSN == "" {
		return fmt.Errorf("postgres DSN is empty")
	}

	if c.ProviderAPIKey == "" {
		return fmt.Errorf("provider API key is empty")
	}

	if len(c.Models) == 0 {
		return fmt.Errorf("at least one provider model is required")
	}

	if c.MaxOutputRetries < 0 || c.MaxOutputRetries > 2 {
		return fmt.Errorf("provider max retries must be between 0 and 2")
	}

	if c.BatchSize < 1 || c.BatchSize > 100 {
		return fmt.Errorf("batch size must be between 1 and 100")
	}

	if c.DefaultThreshold < 0 || c.DefaultThreshold > 1 {
		return fmt.Errorf("default match threshold must be between 0 and 1")
	}

	if c.TelegramToken != "" && c.TelegramChatID == 0 {
		return fmt.Errorf("TELEGRAM_CHAT_ID is required when TELEGRAM_TOKEN is set")
	}

	validLogLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLogLevels[c.LogLevel] {
		return fmt.Errorf("invalid log level: %s", c.LogLevel)
	}

	return nil
}

func splitList(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
