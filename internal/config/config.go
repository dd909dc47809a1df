package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// 数据来源
const (
	SourceFile     = "file"
	SourcePostgres = "postgres"
)

type Config struct {
	// Server
	ServerPort string
	Debug      bool

	// Dataset
	DatasetSource   string
	DatasetPath     string
	DatasetSheet    string
	DatasetEncoding string
	CategoryPolicy  string
	WatchDataset    bool
	WatchDebounce   time.Duration

	// Database
	DatabaseURL      string
	ImportToDatabase bool
	RefreshSchedule  string

	// Analysis
	MaxThreshold int64

	// Model serving
	ModelServingURL string
	PredictTimeout  time.Duration
}

func Load() (*Config, error) {
	// 尝试加载 .env 文件（可选）
	_ = godotenv.Load()

	cfg := &Config{
		ServerPort:       getEnv("PORT", "4000"),
		Debug:            getEnvBool("DEBUG", false),
		DatasetSource:    getEnv("DATASET_SOURCE", SourceFile),
		DatasetPath:      getEnv("DATASET_PATH", "get_around_delay_analysis.xlsx"),
		DatasetSheet:     getEnv("DATASET_SHEET", ""),
		DatasetEncoding:  getEnv("DATASET_ENCODING", "utf-8"),
		CategoryPolicy:   getEnv("CATEGORY_POLICY", "reject"),
		WatchDataset:     getEnvBool("WATCH_DATASET", true),
		WatchDebounce:    getEnvDuration("WATCH_DEBOUNCE", 500*time.Millisecond),
		DatabaseURL:      getEnv("DATABASE_URL", ""),
		ImportToDatabase: getEnvBool("IMPORT_TO_DATABASE", false),
		RefreshSchedule:  getEnv("REFRESH_SCHEDULE", "@every 10m"),
		MaxThreshold:     getEnvInt("MAX_THRESHOLD", 720),
		ModelServingURL:  getEnv("MODEL_SERVING_URL", "http://localhost:5001"),
		PredictTimeout:   getEnvDuration("PREDICT_TIMEOUT", 10*time.Second),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate 校验配置组合
func (c *Config) Validate() error {
	switch c.DatasetSource {
	case SourceFile:
		if c.DatasetPath == "" {
			return fmt.Errorf("DATASET_PATH is required when DATASET_SOURCE=%s", SourceFile)
		}
	case SourcePostgres:
		if c.DatabaseURL == "" {
			return fmt.Errorf("DATABASE_URL is required when DATASET_SOURCE=%s", SourcePostgres)
		}
	default:
		return fmt.Errorf("unknown DATASET_SOURCE %q", c.DatasetSource)
	}

	switch c.CategoryPolicy {
	case "reject", "fail":
	default:
		return fmt.Errorf("unknown CATEGORY_POLICY %q", c.CategoryPolicy)
	}

	if c.ImportToDatabase && c.DatabaseURL == "" {
		return fmt.Errorf("IMPORT_TO_DATABASE requires DATABASE_URL")
	}
	if c.MaxThreshold < 0 {
		return fmt.Errorf("MAX_THRESHOLD must be non-negative, got %d", c.MaxThreshold)
	}
	return nil
}

// PersistenceEnabled 是否配置了数据库
func (c *Config) PersistenceEnabled() bool {
	return c.DatabaseURL != ""
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		b, err := strconv.ParseBool(value)
		if err == nil {
			return b
		}
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		n, err := strconv.ParseInt(value, 10, 64)
		if err == nil {
			return n
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		d, err := time.ParseDuration(value)
		if err == nil {
			return d
		}
	}
	return defaultValue
}
