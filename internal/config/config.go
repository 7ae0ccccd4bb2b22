package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// ConfigPath is the default config file location.
const ConfigPath = "config.yaml"

// FileConfig represents configuration loaded from YAML, with environment
// variable overrides for everything secret or deployment-specific.
type FileConfig struct {
	LogLevel      string `yaml:"logLevel"`
	TelegramToken string `yaml:"telegramToken"`
	DatabaseURL   string `yaml:"databaseURL"`

	GeminiAPIKey string `yaml:"geminiApiKey"`
	GeminiModel  string `yaml:"geminiModel"`

	OpenAIAPIKeys []string `yaml:"openaiApiKeys"`
	OpenAIBaseURL string   `yaml:"openaiBaseURL"`
	OpenAIModel   string   `yaml:"openaiModel"`

	PexelsAPIKeys []string `yaml:"pexelsApiKeys"`

	QuotaLimit  int    `yaml:"quotaLimit"`
	QuotaWindow string `yaml:"quotaWindow"`

	RedisAddr        string `yaml:"redisAddr"`
	RedisPassword    string `yaml:"redisPassword"`
	FloodLimitPerMin int    `yaml:"floodLimitPerMinute"`

	MinioEndpoint  string `yaml:"minioEndpoint"`
	MinioAccessKey string `yaml:"minioAccessKey"`
	MinioSecretKey string `yaml:"minioSecretKey"`
	MinioBucket    string `yaml:"minioBucket"`
	MinioUseSSL    bool   `yaml:"minioUseSSL"`

	AMQPURL      string `yaml:"amqpURL"`
	AMQPExchange string `yaml:"amqpExchange"`

	OutputDir string `yaml:"outputDir"`
}

// Load reads config from path (defaults to config.yaml).
func Load(path string) (FileConfig, error) {
	cfg := FileConfig{}
	if path == "" {
		path = ConfigPath
	}
	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return cfg, fmt.Errorf("read config: %w", err)
	}
	if err == nil {
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parse config: %w", err)
		}
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.LogLevel = strings.TrimSpace(v)
	}
	if v := os.Getenv("TELEGRAM_TOKEN"); v != "" {
		cfg.TelegramToken = strings.TrimSpace(v)
	}
	if v := os.Getenv("DATABASE_URL"); v != "" {
		cfg.DatabaseURL = strings.TrimSpace(v)
	}
	if v := os.Getenv("GEMINI_API_KEY"); v != "" {
		cfg.GeminiAPIKey = strings.TrimSpace(v)
	}
	if v := os.Getenv("GEMINI_MODEL"); v != "" {
		cfg.GeminiModel = strings.TrimSpace(v)
	}
	if v := os.Getenv("OPENAI_API_KEYS"); v != "" {
		cfg.OpenAIAPIKeys = splitCSV(v)
	}
	if v := os.Getenv("OPENAI_BASE_URL"); v != "" {
		cfg.OpenAIBaseURL = strings.TrimSpace(v)
	}
	if v := os.Getenv("OPENAI_MODEL"); v != "" {
		cfg.OpenAIModel = strings.TrimSpace(v)
	}
	if v := os.Getenv("PEXELS_API_KEYS"); v != "" {
		cfg.PexelsAPIKeys = splitCSV(v)
	}
	if v := os.Getenv("QUOTA_LIMIT"); v != "" {
		if n, err := strconv.Atoi(strings.TrimSpace(v)); err == nil {
			cfg.QuotaLimit = n
		}
	}
	if v := os.Getenv("QUOTA_WINDOW"); v != "" {
		cfg.QuotaWindow = strings.TrimSpace(v)
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		cfg.RedisAddr = strings.TrimSpace(v)
	}
	if v := os.Getenv("REDIS_PASSWORD"); v != "" {
		cfg.RedisPassword = v
	}
	if v := os.Getenv("FLOOD_LIMIT_PER_MINUTE"); v != "" {
		if n, err := strconv.Atoi(strings.TrimSpace(v)); err == nil {
			cfg.FloodLimitPerMin = n
		}
	}
	if v := os.Getenv("MINIO_ENDPOINT"); v != "" {
		cfg.MinioEndpoint = strings.TrimSpace(v)
	}
	if v := os.Getenv("MINIO_ACCESS_KEY"); v != "" {
		cfg.MinioAccessKey = v
	}
	if v := os.Getenv("MINIO_SECRET_KEY"); v != "" {
		cfg.MinioSecretKey = v
	}
	if v := os.Getenv("MINIO_BUCKET"); v != "" {
		cfg.MinioBucket = strings.TrimSpace(v)
	}
	if v := os.Getenv("MINIO_USE_SSL"); v != "" {
		if b, err := strconv.ParseBool(strings.TrimSpace(v)); err == nil {
			cfg.MinioUseSSL = b
		}
	}
	if v := os.Getenv("AMQP_URL"); v != "" {
		cfg.AMQPURL = strings.TrimSpace(v)
	}
	if v := os.Getenv("AMQP_EXCHANGE"); v != "" {
		cfg.AMQPExchange = strings.TrimSpace(v)
	}
	if v := os.Getenv("OUTPUT_DIR"); v != "" {
		cfg.OutputDir = strings.TrimSpace(v)
	}
	applyDefaults(&cfg)
	if err := validateConfig(cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func applyDefaults(cfg *FileConfig) {
	if cfg.GeminiModel == "" {
		cfg.GeminiModel = "gemini-2.0-flash"
	}
	if cfg.OpenAIModel == "" {
		cfg.OpenAIModel = "gpt-4o-mini"
	}
	if cfg.QuotaLimit == 0 {
		cfg.QuotaLimit = 3
	}
	if cfg.QuotaWindow == "" {
		cfg.QuotaWindow = "24h"
	}
	if cfg.FloodLimitPerMin == 0 {
		cfg.FloodLimitPerMin = 20
	}
	if cfg.AMQPExchange == "" {
		cfg.AMQPExchange = "deckforge.events"
	}
}

func validateConfig(cfg FileConfig) error {
	if cfg.TelegramToken == "" {
		return errors.New("config: telegramToken is required (set in config.yaml or TELEGRAM_TOKEN)")
	}
	if cfg.DatabaseURL == "" {
		return errors.New("config: databaseURL is required (set in config.yaml or DATABASE_URL)")
	}
	if cfg.GeminiAPIKey == "" && len(cfg.OpenAIAPIKeys) == 0 {
		return errors.New("config: at least one content provider key is required (geminiApiKey or openaiApiKeys)")
	}
	if cfg.QuotaLimit < 0 {
		return errors.New("config: quotaLimit must be >= 0")
	}
	if _, err := ParseQuotaWindow(cfg.QuotaWindow); err != nil {
		return err
	}
	return nil
}

// ParseQuotaWindow parses the rolling window duration string.
func ParseQuotaWindow(window string) (time.Duration, error) {
	if window == "" {
		return 24 * time.Hour, nil
	}
	dur, err := time.ParseDuration(window)
	if err != nil {
		return 0, fmt.Errorf("invalid quotaWindow duration: %w", err)
	}
	if dur <= 0 {
		return 0, errors.New("config: quotaWindow must be positive")
	}
	return dur, nil
}

func splitCSV(value string) []string {
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		out = append(out, part)
	}
	return out
}
