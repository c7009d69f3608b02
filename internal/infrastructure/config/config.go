package config

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/sethvargo/go-envconfig"
)

type Config struct {
	Port      string `env:"PORT,      default=8080"`
	Env       string `env:"ENV,       default=development"`
	LogLevel  string `env:"LOG_LEVEL, default=info"`
	LogPretty bool   `env:"LOG_PRETTY, default=false"`

	DatabaseURL string `env:"DATABASE_URL"`
	AuthSecret  string `env:"AUTH_SECRET"`
	AppURL      string `env:"APP_URL"`

	AdminEmail     string `env:"ADMIN_EMAIL,      default=admin@partpulse.local"`
	SystemLogStore string `env:"SYSTEM_LOG_STORE, default=postgres"`
	PDFTemplateDir string `env:"PDF_TEMPLATE_DIR"`

	Email     EmailConfig
	Storage   StorageConfig
	Redis     RedisConfig
	Mongo     MongoConfig
	RateLimit RateLimitConfig
}

type EmailConfig struct {
	Mode     string `env:"EMAIL_MODE,    default=smtp"`
	From     string `env:"EMAIL_FROM"`
	Host     string `env:"SMTP_HOST"`
	Port     int    `env:"SMTP_PORT,     default=587"`
	User     string `env:"SMTP_USER"`
	Password string `env:"SMTP_PASS"`
	StartTLS bool   `env:"SMTP_STARTTLS, default=true"`
}

type StorageConfig struct {
	Provider  string `env:"STORAGE_PROVIDER,   default=local"`
	LocalPath string `env:"STORAGE_LOCAL_PATH, default=./storage"`
	PublicURL string `env:"STORAGE_PUBLIC_URL, default=/storage"`

	S3Bucket          string `env:"S3_BUCKET"`
	S3Region          string `env:"S3_REGION, default=us-east-1"`
	S3Endpoint        string `env:"S3_ENDPOINT, default=s3.amazonaws.com"`
	S3AccessKeyID     string `env:"S3_ACCESS_KEY_ID"`
	S3SecretAccessKey string `env:"S3_SECRET_ACCESS_KEY"`
	S3UseSSL          bool   `env:"S3_USE_SSL, default=true"`
	S3PublicURL       string `env:"S3_PUBLIC_URL"`
}

type RedisConfig struct {
	Addr string `env:"REDIS_ADDR"`
	DB   int    `env:"REDIS_DB, default=0"`
}

type MongoConfig struct {
	URI      string `env:"MONGO_URI"`
	Database string `env:"MONGO_DB, default=partpulse"`
}

type RateLimitConfig struct {
	Auth string `env:"RATE_LIMIT_AUTH, default=5-15m"`
	API  string `env:"RATE_LIMIT_API,  default=100-1m"`
}

// Load reads configuration from environment variables using go-envconfig.
func Load(ctx context.Context) (*Config, error) {
	var cfg Config
	if err := envconfig.Process(ctx, &cfg); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	return &cfg, nil
}

// IsTest reports whether the process runs under the test environment.
func (c *Config) IsTest() bool {
	return c.Env == "test"
}

func (c *Config) IsDevelopment() bool {
	return c.Env == "development"
}

// MissingRequired lists the required variables that are unset.
func (c *Config) MissingRequired() []string {
	var missing []string
	if c.DatabaseURL == "" {
		missing = append(missing, "DATABASE_URL")
	}
	if c.AuthSecret == "" {
		missing = append(missing, "AUTH_SECRET")
	}
	if c.AppURL == "" {
		missing = append(missing, "APP_URL")
	}
	return missing
}

// ParseRate parses "<limit>-<duration>", e.g. "5-15m" or "100-1m".
func ParseRate(s string) (limit int64, period time.Duration, err error) {
	left, right, ok := strings.Cut(strings.TrimSpace(s), "-")
	if !ok {
		return 0, 0, fmt.Errorf("rate %q: expected <limit>-<duration>", s)
	}
	limit, err = strconv.ParseInt(left, 10, 64)
	if err != nil || limit <= 0 {
		return 0, 0, fmt.Errorf("rate %q: invalid limit", s)
	}
	period, err = time.ParseDuration(right)
	if err != nil || period <= 0 {
		return 0, 0, fmt.Errorf("rate %q: invalid period", s)
	}
	return limit, period, nil
}
