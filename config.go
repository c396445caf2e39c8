package main

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/Templasan/MarketPlacer/database"
	awspkg "github.com/Templasan/MarketPlacer/pkg/aws"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

const (
	StorageDriverPostgres = "postgres"
	StorageDriverMemory   = "memory"
)

// Config holds all environment variables for the marketplace.
type Config struct {
	Env  string
	Port string

	StorageDriver string
	Postgres      database.PostgresConfig

	JWTSecret string
	JWTTTL    time.Duration

	RedisURL string

	KafkaBrokers []string
	KafkaTopic   string

	SNSTopicArn       string
	S3Bucket          string
	S3PresignExpiry   time.Duration
	CloudWatchEnabled bool
	CloudWatchLogs    string
	MetricsNamespace  string

	AllowedOrigins []string
	RateLimitRPS   float64
	RateLimitBurst int
}

func getEnv(key, defaultVal string) string {
	if val := strings.TrimSpace(os.Getenv(key)); val != "" {
		return val
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	if v, err := strconv.Atoi(getEnv(key, "")); err == nil {
		return v
	}
	return defaultVal
}

func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	if d, err := time.ParseDuration(getEnv(key, "")); err == nil {
		return d
	}
	return defaultVal
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// LoadConfig loads environment variables into Config and validates them.
// If AWS_USE_SECRETS=true, database credentials and the JWT secret are read
// from Secrets Manager, falling back to env vars on failure.
func LoadConfig(ctx context.Context, logger *zap.Logger) (*Config, error) {
	if err := godotenv.Load(); err != nil {
		logger.Info("No .env file found, using system environment variables")
	}

	rps, err := strconv.ParseFloat(getEnv("RATE_LIMIT_RPS", "10"), 64)
	if err != nil {
		return nil, fmt.Errorf("invalid RATE_LIMIT_RPS: %w", err)
	}

	cfg := &Config{
		Env:           getEnv("APP_ENV", "development"),
		Port:          getEnv("PORT", "8080"),
		StorageDriver: strings.ToLower(getEnv("STORAGE_DRIVER", StorageDriverPostgres)),
		Postgres: database.PostgresConfig{
			Host:     getEnv("POSTGRES_HOST", "localhost"),
			Port:     getEnv("POSTGRES_PORT", "5432"),
			User:     getEnv("POSTGRES_USER", ""),
			Password: getEnv("POSTGRES_PASSWORD", ""),
			Name:     getEnv("POSTGRES_DB", "marketplace"),
			SSLMode:  getEnv("POSTGRES_SSLMODE", "disable"),
			TimeZone: getEnv("POSTGRES_TIMEZONE", "America/Sao_Paulo"),
		},
		JWTSecret:         getEnv("JWT_SECRET", ""),
		JWTTTL:            getEnvDuration("JWT_TTL", 8*time.Hour),
		RedisURL:          getEnv("REDIS_URL", ""),
		KafkaBrokers:      splitList(getEnv("KAFKA_BROKERS", "")),
		KafkaTopic:        getEnv("KAFKA_TOPIC", "order.events"),
		SNSTopicArn:       getEnv("SNS_ORDER_EVENTS_TOPIC_ARN", ""),
		S3Bucket:          getEnv("AWS_S3_BUCKET", ""),
		S3PresignExpiry:   getEnvDuration("AWS_S3_PRESIGN_EXPIRY", 15*time.Minute),
		CloudWatchEnabled: getEnv("CLOUDWATCH_ENABLED", "false") == "true",
		CloudWatchLogs:    getEnv("CLOUDWATCH_LOG_GROUP", ""),
		MetricsNamespace:  getEnv("CLOUDWATCH_NAMESPACE", "MarketPlacer"),
		AllowedOrigins:    splitList(getEnv("CORS_ALLOWED_ORIGINS", "http://localhost:3000")),
		RateLimitRPS:      rps,
		RateLimitBurst:    getEnvInt("RATE_LIMIT_BURST", 20),
	}

	if getEnv("AWS_USE_SECRETS", "false") == "true" {
		applySecrets(ctx, logger, cfg)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func applySecrets(ctx context.Context, logger *zap.Logger, cfg *Config) {
	awsCfg, err := awspkg.LoadAWSConfig(ctx)
	if err != nil {
		logger.Warn("AWS config unavailable, keeping env secrets", zap.Error(err))
		return
	}
	sm := awspkg.NewSecretsClient(awsCfg)

	if jwt, err := sm.GetSecret(ctx, "marketplace/JWT_SECRET"); err == nil && jwt != "" {
		cfg.JWTSecret = jwt
	} else if err != nil {
		logger.Warn("Failed to read JWT secret", zap.Error(err))
	}

	db, err := sm.GetSecretMap(ctx, "marketplace/postgres")
	if err != nil {
		logger.Warn("Failed to read database secret", zap.Error(err))
		return
	}
	if v := db["username"]; v != "" {
		cfg.Postgres.User = v
	}
	if v := db["password"]; v != "" {
		cfg.Postgres.Password = v
	}
	if v := db["host"]; v != "" {
		cfg.Postgres.Host = v
	}
}

func (c *Config) validate() error {
	if c.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET is required")
	}
	switch c.StorageDriver {
	case StorageDriverMemory:
	case StorageDriverPostgres:
		if c.Postgres.User == "" || c.Postgres.Password == "" {
			return fmt.Errorf("POSTGRES_USER and POSTGRES_PASSWORD are required")
		}
	default:
		return fmt.Errorf("unknown STORAGE_DRIVER %q", c.StorageDriver)
	}
	if c.RateLimitRPS <= 0 || c.RateLimitBurst <= 0 {
		return fmt.Errorf("rate limit settings must be positive")
	}
	return nil
}
