package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Server captures process level configuration.
type Server struct {
	Addr           string
	LogLevel       string
	JWTSigningKey  string
	JWTIssuer      string
	JWTAudience    string
	DatabaseURL    string
	DatabaseDriver string // "pgx" or "postgres" (lib/pq)
	Redis          RedisConfig
	Kafka          KafkaConfig
	Feed           FeedConfig
	Sync           SyncConfig
}

// RedisConfig configures the checkpoint store connection. Empty URL disables Redis.
type RedisConfig struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// KafkaConfig configures the audit event publisher. No brokers means audit
// events stay in process.
type KafkaConfig struct {
	Brokers    []string
	AuditTopic string
}

// FeedConfig configures the external registrant feed.
type FeedConfig struct {
	BaseURL  string
	Token    string
	PageSize int
	Timeout  time.Duration
}

// MaxFeedPageSize is the largest page the registrant API serves.
const MaxFeedPageSize = 50

// FromEnv builds a Server config from environment variables so main stays lean.
func FromEnv() Server {
	jwtSigningKey := os.Getenv("JWT_SIGNING_KEY")
	if jwtSigningKey == "" {
		// Use a default for development - should be overridden in production
		jwtSigningKey = "dev-secret-key-change-in-production"
	}

	return Server{
		Addr:           envOr("ROSTER_ADDR", ":8080"),
		LogLevel:       envOr("LOG_LEVEL", "info"),
		JWTSigningKey:  jwtSigningKey,
		JWTIssuer:      envOr("JWT_ISSUER", "course-portal"),
		JWTAudience:    envOr("JWT_AUDIENCE", "roster"),
		DatabaseURL:    os.Getenv("DATABASE_URL"),
		DatabaseDriver: envOr("DATABASE_DRIVER", "pgx"),
		Redis: RedisConfig{
			URL:          os.Getenv("REDIS_URL"),
			PoolSize:     envInt("REDIS_POOL_SIZE", 10),
			MinIdleConns: envInt("REDIS_MIN_IDLE_CONNS", 2),
			DialTimeout:  envDuration("REDIS_DIAL_TIMEOUT", 5*time.Second),
			ReadTimeout:  envDuration("REDIS_READ_TIMEOUT", 3*time.Second),
			WriteTimeout: envDuration("REDIS_WRITE_TIMEOUT", 3*time.Second),
		},
		Kafka: KafkaConfig{
			Brokers:    splitList(os.Getenv("KAFKA_BROKERS")),
			AuditTopic: envOr("KAFKA_AUDIT_TOPIC", "roster.audit"),
		},
		Feed: FeedConfig{
			BaseURL:  strings.TrimRight(os.Getenv("FEED_BASE_URL"), "/"),
			Token:    os.Getenv("FEED_TOKEN"),
			PageSize: ClampPageSize(envInt("FEED_PAGE_SIZE", MaxFeedPageSize)),
			Timeout:  envDuration("FEED_TIMEOUT", 15*time.Second),
		},
		Sync: SyncConfig{
			Workers:                   envInt("SYNC_WORKERS", DefaultWorkers),
			PageDelay:                 envDuration("SYNC_PAGE_DELAY", DefaultPageDelay),
			MaxPages:                  envInt("SYNC_MAX_PAGES", DefaultMaxPages),
			DefaultDocumentQuestionID: os.Getenv("SYNC_DOCUMENT_QUESTION_ID"),
			Sources:                   ParseSources(os.Getenv("SYNC_SOURCES")),
		},
	}
}

// ClampPageSize keeps a requested page size inside what the feed accepts.
func ClampPageSize(n int) int {
	if n < 1 || n > MaxFeedPageSize {
		return MaxFeedPageSize
	}
	return n
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	v, err := strconv.Atoi(os.Getenv(key))
	if err != nil {
		return fallback
	}
	return v
}

func envDuration(key string, fallback time.Duration) time.Duration {
	v, err := time.ParseDuration(os.Getenv(key))
	if err != nil {
		return fallback
	}
	return v
}

func splitList(raw string) []string {
	var out []string
	for part := range strings.SplitSeq(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
