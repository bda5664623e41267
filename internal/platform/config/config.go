package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config captures everything main needs to wire the service. Values come from
// the environment so deployments stay twelve-factor; defaults suit local dev.
type Config struct {
	Addr        string
	DatabaseURL string

	Redis RedisConfig
	Kafka KafkaConfig

	// WhatsApp gateway (Fonnte-compatible HTTP API).
	GatewayURL   string
	GatewayToken string
	CountryCode  string

	// External card renderer.
	RendererURL string

	UploadDir string

	Delivery DeliveryConfig
}

// RedisConfig configures the optional enrollment in-flight guard.
type RedisConfig struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// KafkaConfig configures the optional audit event publisher.
type KafkaConfig struct {
	Brokers    []string
	AuditTopic string
}

// DeliveryConfig bounds the delivery session's retry and restart behavior.
type DeliveryConfig struct {
	MaxAttempts  int
	BackoffStep  time.Duration
	RestartDelay time.Duration
	PingInterval time.Duration
}

// FromEnv builds a Config from environment variables so main stays lean.
func FromEnv() Config {
	cfg := Config{
		Addr:         envOr("HIMPANA_ADDR", ":8080"),
		DatabaseURL:  envOr("DATABASE_URL", "postgres://localhost:5432/himpana?sslmode=disable"),
		GatewayURL:   envOr("WA_GATEWAY_URL", "https://api.fonnte.com"),
		GatewayToken: os.Getenv("WA_GATEWAY_TOKEN"),
		CountryCode:  envOr("WA_COUNTRY_CODE", "62"),
		RendererURL:  envOr("RENDERER_URL", ""),
		UploadDir:    envOr("UPLOAD_DIR", "uploads"),
		Redis: RedisConfig{
			URL:          os.Getenv("REDIS_URL"),
			PoolSize:     envOrInt("REDIS_POOL_SIZE", 10),
			MinIdleConns: envOrInt("REDIS_MIN_IDLE_CONNS", 2),
			DialTimeout:  envOrDuration("REDIS_DIAL_TIMEOUT", 5*time.Second),
			ReadTimeout:  envOrDuration("REDIS_READ_TIMEOUT", 3*time.Second),
			WriteTimeout: envOrDuration("REDIS_WRITE_TIMEOUT", 3*time.Second),
		},
		Kafka: KafkaConfig{
			AuditTopic: envOr("KAFKA_AUDIT_TOPIC", "himpana.audit"),
		},
		Delivery: DeliveryConfig{
			MaxAttempts:  envOrInt("WA_SEND_MAX_ATTEMPTS", 3),
			BackoffStep:  envOrDuration("WA_SEND_BACKOFF", 2*time.Second),
			RestartDelay: envOrDuration("WA_RESTART_DELAY", 5*time.Second),
			PingInterval: envOrDuration("WA_PING_INTERVAL", 30*time.Second),
		},
	}

	if brokers := os.Getenv("KAFKA_BROKERS"); brokers != "" {
		cfg.Kafka.Brokers = strings.Split(brokers, ",")
	}

	return cfg
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envOrInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envOrDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
