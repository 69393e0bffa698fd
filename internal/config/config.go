package config

import (
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	Port      string `envconfig:"PORT" default:"8080"`
	DBUrl     string `envconfig:"DB_URL"`
	JWTSecret string `envconfig:"JWT_SECRET" required:"true"`
	AppEnv    string `envconfig:"APP_ENV" default:"production"`
	LogLevel  string `envconfig:"LOG_LEVEL" default:"info"`
	LogFormat string `envconfig:"LOG_FORMAT" default:"json"`

	// RedisURL enables per-sender message rate limiting when set.
	RedisURL          string        `envconfig:"REDIS_URL"`
	MessageRateLimit  int           `envconfig:"MESSAGE_RATE_LIMIT" default:"30"`
	MessageRateWindow time.Duration `envconfig:"MESSAGE_RATE_WINDOW" default:"1m"`
}

func LoadConfig() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found")
	}

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if strings.TrimSpace(cfg.JWTSecret) == "" {
		return nil, fmt.Errorf("JWT_SECRET is required")
	}

	cfg.AppEnv = normalizeEnv(cfg.AppEnv)
	return &cfg, nil
}

func normalizeEnv(value string) string {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "dev", "develop", "development", "local":
		return "development"
	case "prod", "production":
		return "production"
	case "stage", "staging":
		return "staging"
	case "test", "testing":
		return "test"
	default:
		return strings.ToLower(strings.TrimSpace(value))
	}
}

func (c *Config) IsDevelopment() bool {
	return c != nil && c.AppEnv == "development"
}

func (c *Config) RateLimitEnabled() bool {
	return c != nil && c.RedisURL != "" && c.MessageRateLimit > 0 && c.MessageRateWindow > 0
}
