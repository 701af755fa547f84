// Package config loads server configuration from the environment so main
// stays lean. Core policy values (the permission matrix, abuse thresholds)
// are code-level constants and deliberately not configurable here.
package config

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// maxTokenTTL caps ephemeral token lifetime. Tokens are passive capabilities;
// an abandoned request just lets them expire.
const maxTokenTTL = time.Hour

// Config captures process-level configuration.
type Config struct {
	Addr       string        `envconfig:"WARDGATE_ADDR" default:":8080"`
	HashSecret string        `envconfig:"WARDGATE_HASH_SECRET" default:"dev-secret-change-in-production"`
	TokenTTL   time.Duration `envconfig:"WARDGATE_TOKEN_TTL" default:"15m"`

	// RedisURL selects the shared store for tokens and rate-limit windows.
	// Empty means in-process stores (single-instance deployments, tests).
	RedisURL          string        `envconfig:"WARDGATE_REDIS_URL"`
	RedisPoolSize     int           `envconfig:"WARDGATE_REDIS_POOL_SIZE" default:"10"`
	RedisMinIdleConns int           `envconfig:"WARDGATE_REDIS_MIN_IDLE_CONNS" default:"2"`
	RedisDialTimeout  time.Duration `envconfig:"WARDGATE_REDIS_DIAL_TIMEOUT" default:"5s"`
	RedisReadTimeout  time.Duration `envconfig:"WARDGATE_REDIS_READ_TIMEOUT" default:"50ms"`
	RedisWriteTimeout time.Duration `envconfig:"WARDGATE_REDIS_WRITE_TIMEOUT" default:"50ms"`

	// KafkaBrokers enables the Kafka audit sink when set; otherwise audit
	// entries go to the JSONL sink only.
	KafkaBrokers    string `envconfig:"WARDGATE_KAFKA_BROKERS"`
	KafkaAuditTopic string `envconfig:"WARDGATE_KAFKA_AUDIT_TOPIC" default:"wardgate.audit"`

	AuditLogPath string `envconfig:"WARDGATE_AUDIT_LOG_PATH" default:"audit.log"`

	CleanupInterval time.Duration `envconfig:"WARDGATE_CLEANUP_INTERVAL" default:"15m"`
	ShutdownTimeout time.Duration `envconfig:"WARDGATE_SHUTDOWN_TIMEOUT" default:"10s"`
}

// FromEnv builds a Config from environment variables.
func FromEnv() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if cfg.TokenTTL <= 0 || cfg.TokenTTL > maxTokenTTL {
		cfg.TokenTTL = maxTokenTTL
	}
	return &cfg, nil
}
