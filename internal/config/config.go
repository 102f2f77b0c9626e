package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/text/language"

	"github.com/rl1809/donation-checkout/internal/core/domain"
)

// Config represents application configuration loaded from environment variables.
type Config struct {
	AppEnv           string
	HTTPAddr         string
	GRPCAddr         string
	MySQLDSN         string
	MySQLMaxOpen     int
	MySQLMaxIdle     int
	RedisAddr        string
	RedisPoolSize    int
	StoreID          string
	DefaultCurrency  string
	Locale           language.Tag
	RefreshTTL       time.Duration
	ShutdownTimeout  time.Duration
	HTTPReadTimeout  time.Duration
	HTTPWriteTimeout time.Duration
}

// Load reads an optional .env file, then the environment, and applies defaults.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		AppEnv:           getEnv("APP_ENV", "production"),
		HTTPAddr:         getEnv("HTTP_ADDR", ":8080"),
		GRPCAddr:         getEnv("GRPC_ADDR", ":50051"),
		MySQLDSN:         getEnv("MYSQL_DSN", "root:root@tcp(localhost:3306)/donations?parseTime=true"),
		MySQLMaxOpen:     getEnvInt("MYSQL_MAX_OPEN_CONNS", 50),
		MySQLMaxIdle:     getEnvInt("MYSQL_MAX_IDLE_CONNS", 25),
		RedisAddr:        getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPoolSize:    getEnvInt("REDIS_POOL_SIZE", 100),
		StoreID:          getEnv("STORE_ID", "default"),
		DefaultCurrency:  getEnv("DEFAULT_CURRENCY", "EUR"),
		RefreshTTL:       time.Second * time.Duration(getEnvInt("REFRESH_TTL_SECONDS", 86400)),
		ShutdownTimeout:  time.Second * time.Duration(getEnvInt("SHUTDOWN_TIMEOUT_SECONDS", 5)),
		HTTPReadTimeout:  time.Second * time.Duration(getEnvInt("HTTP_READ_TIMEOUT_SECONDS", 15)),
		HTTPWriteTimeout: time.Second * time.Duration(getEnvInt("HTTP_WRITE_TIMEOUT_SECONDS", 30)),
	}

	if err := domain.ValidateCurrencyCode(cfg.DefaultCurrency); err != nil {
		return nil, fmt.Errorf("DEFAULT_CURRENCY: %w", err)
	}

	locale, err := language.Parse(getEnv("LOCALE", "en"))
	if err != nil {
		return nil, fmt.Errorf("LOCALE: %w", err)
	}
	cfg.Locale = locale

	if cfg.RefreshTTL <= 0 {
		return nil, fmt.Errorf("REFRESH_TTL_SECONDS must be positive")
	}

	return cfg, nil
}

func (c *Config) IsDevelopment() bool {
	return c.AppEnv == "development"
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}
