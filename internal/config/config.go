package config

import (
	"errors"
	"fmt"
	"log"
	"net/url"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	APIBaseURL     string        `mapstructure:"API_BASE_URL"`
	HTTPTimeout    time.Duration `mapstructure:"HTTP_TIMEOUT"`
	QueryStaleTime time.Duration `mapstructure:"QUERY_STALE_TIME"`
	ServiceName    string        `mapstructure:"SERVICE_NAME"`
	HistoryFile    string        `mapstructure:"HISTORY_FILE"`

	LogLevel      string `mapstructure:"LOG_LEVEL"`
	LogFormat     string `mapstructure:"LOG_FORMAT"`
	LogOutputFile string `mapstructure:"LOG_OUTPUT_FILE"`

	CacheBackend   string `mapstructure:"CACHE_BACKEND"`
	CacheKeyPrefix string `mapstructure:"CACHE_KEY_PREFIX"`
	RedisAddr      string `mapstructure:"REDIS_ADDR"`
	RedisPassword  string `mapstructure:"REDIS_PASSWORD"`
	RedisDB        int    `mapstructure:"REDIS_DB"`

	MetricsPort      string  `mapstructure:"METRICS_PORT"`
	OTLPEndpoint     string  `mapstructure:"OTEL_EXPORTER_OTLP_ENDPOINT"`
	TraceSampleRatio float64 `mapstructure:"TRACE_SAMPLE_RATIO"`

	DevServer DevServerConfig `mapstructure:",squash"`
}

// DevServerConfig configures cmd/devserver, the backend used for local runs.
type DevServerConfig struct {
	Port        int           `mapstructure:"DEV_SERVER_PORT"`
	JWTSecret   string        `mapstructure:"JWT_SECRET"`
	TokenTTL    time.Duration `mapstructure:"TOKEN_TTL"`
	NATSURL     string        `mapstructure:"NATS_URL"`
	MinIO       MinIOConfig   `mapstructure:",squash"`
	Mongo       MongoConfig   `mapstructure:",squash"`
	SMTP        SMTPConfig    `mapstructure:",squash"`
	MaxUploadMB int64         `mapstructure:"MAX_UPLOAD_MB"`
}

// MongoConfig selects the MongoDB repository. An empty URI keeps data in
// memory.
type MongoConfig struct {
	URI      string `mapstructure:"MONGO_URI"`
	Database string `mapstructure:"MONGO_DATABASE"`
}

// SMTPConfig enables notification emails when Host is set.
type SMTPConfig struct {
	Host     string `mapstructure:"SMTP_HOST"`
	Port     int    `mapstructure:"SMTP_PORT"`
	Username string `mapstructure:"SMTP_EMAIL"`
	Password string `mapstructure:"SMTP_PASSWORD"`
	From     string `mapstructure:"SMTP_FROM"`
}

type MinIOConfig struct {
	Endpoint  string `mapstructure:"MINIO_ENDPOINT"`
	AccessKey string `mapstructure:"MINIO_ACCESS_KEY"`
	SecretKey string `mapstructure:"MINIO_SECRET_KEY"`
	Bucket    string `mapstructure:"MINIO_BUCKET"`
	UseSSL    bool   `mapstructure:"MINIO_USE_SSL"`
}

const (
	CacheBackendMemory = "memory"
	CacheBackendRedis  = "redis"
)

func setDefaults(v *viper.Viper) {
	v.SetDefault("API_BASE_URL", "http://localhost:3000")
	v.SetDefault("HTTP_TIMEOUT", "0s")
	v.SetDefault("QUERY_STALE_TIME", "5m")
	v.SetDefault("SERVICE_NAME", "marketplace-client")
	v.SetDefault("HISTORY_FILE", ".marketplace_history")

	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")
	v.SetDefault("LOG_OUTPUT_FILE", "stderr")

	v.SetDefault("CACHE_BACKEND", CacheBackendMemory)
	v.SetDefault("CACHE_KEY_PREFIX", "mpc:query:")
	v.SetDefault("REDIS_ADDR", "localhost:6379")
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)

	v.SetDefault("METRICS_PORT", "")
	v.SetDefault("OTEL_EXPORTER_OTLP_ENDPOINT", "")
	v.SetDefault("TRACE_SAMPLE_RATIO", 1.0)

	v.SetDefault("DEV_SERVER_PORT", 3000)
	v.SetDefault("JWT_SECRET", "your-secret-key")
	v.SetDefault("TOKEN_TTL", "24h")
	v.SetDefault("NATS_URL", "")
	v.SetDefault("MINIO_ENDPOINT", "")
	v.SetDefault("MINIO_ACCESS_KEY", "minioadmin")
	v.SetDefault("MINIO_SECRET_KEY", "minioadmin")
	v.SetDefault("MINIO_BUCKET", "listings-photos")
	v.SetDefault("MINIO_USE_SSL", false)
	v.SetDefault("MONGO_URI", "")
	v.SetDefault("MONGO_DATABASE", "marketplace")
	v.SetDefault("SMTP_HOST", "")
	v.SetDefault("SMTP_PORT", 587)
	v.SetDefault("SMTP_EMAIL", "")
	v.SetDefault("SMTP_PASSWORD", "")
	v.SetDefault("SMTP_FROM", "")
	v.SetDefault("MAX_UPLOAD_MB", 10)
}

// LoadConfig reads an optional .env file, an optional config.env in path, and
// the process environment, in increasing order of precedence.
func LoadConfig(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, relying on environment variables")
	}

	v := viper.New()
	setDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("env")
	if path != "" {
		v.AddConfigPath(path)
	}
	v.AddConfigPath(".")
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the values the clients cannot run without.
func (c *Config) Validate() error {
	u, err := url.Parse(c.APIBaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("invalid API_BASE_URL %q", c.APIBaseURL)
	}
	c.APIBaseURL = strings.TrimRight(c.APIBaseURL, "/")

	switch c.CacheBackend {
	case CacheBackendMemory, CacheBackendRedis:
	default:
		return fmt.Errorf("unknown CACHE_BACKEND %q (want %q or %q)", c.CacheBackend, CacheBackendMemory, CacheBackendRedis)
	}
	if c.QueryStaleTime < 0 {
		return fmt.Errorf("QUERY_STALE_TIME must not be negative, got %s", c.QueryStaleTime)
	}
	return nil
}
