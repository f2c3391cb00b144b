package config

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

var (
	ErrMissingDatabaseURL = errors.New("database connection string is not defined (DATABASE_URL)")
	ErrMissingJWTSecret   = errors.New("token signing secret is not defined (JWT_SECRET_KEY)")
)

type Config struct {
	Env  string
	Port int

	DBURL string
	DB    DBConfig

	JWTSecret string

	CORSOrigins    []string
	TrustedProxies []string

	RateLimit       int
	RateLimitWindow time.Duration
	MaxBodyBytes    int64
	MaxImageBytes   int64
	BlogCacheTTL    time.Duration

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	ObjectStore ObjectStoreConfig

	OTelEndpoint string
	ServiceName  string

	AdminEmail    string
	AdminPassword string
	AdminName     string
}

// DBConfig carries the connection parameters and the retry budget of the
// persistence gateway.
type DBConfig struct {
	MaxPoolSize         int32
	ServerSelectTimeout time.Duration
	SocketTimeout       time.Duration
	MaxRetries          int
	RetryInterval       time.Duration
	HealthCheckInterval time.Duration
}

type ObjectStoreConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
	PublicURL string
}

func (c ObjectStoreConfig) Enabled() bool {
	return c.Endpoint != ""
}

// Load reads the process configuration. A .env file in the working directory
// is applied first when present; real environment variables win.
func Load() (Config, error) {
	_ = godotenv.Load()

	cfg := Config{
		Env:   getEnv("APP_ENV", "dev"),
		Port:  getEnvInt("PORT", 3000),
		DBURL: firstEnv("DATABASE_URL", "MONGO_URI"),
		DB: DBConfig{
			MaxPoolSize:         int32(getEnvInt("DB_MAX_POOL_SIZE", 10)),
			ServerSelectTimeout: getEnvDuration("DB_SERVER_SELECTION_TIMEOUT", 5*time.Second),
			SocketTimeout:       getEnvDuration("DB_SOCKET_TIMEOUT", 45*time.Second),
			MaxRetries:          getEnvInt("DB_MAX_RETRIES", 3),
			RetryInterval:       getEnvDuration("DB_RETRY_INTERVAL", 5*time.Second),
			HealthCheckInterval: getEnvDuration("DB_HEALTH_CHECK_INTERVAL", 10*time.Second),
		},
		JWTSecret:       firstEnv("JWT_SECRET_KEY", "JWT_SECRET"),
		CORSOrigins:     splitList(getEnv("CORS_ORIGINS", "http://localhost:5173")),
		TrustedProxies:  splitList(getEnv("TRUSTED_PROXIES", "")),
		RateLimit:       getEnvInt("RATE_LIMIT", 100),
		RateLimitWindow: getEnvDuration("RATE_LIMIT_WINDOW", 15*time.Minute),
		MaxBodyBytes:    int64(getEnvInt("MAX_BODY_BYTES", 1<<20)),
		MaxImageBytes:   int64(getEnvInt("MAX_IMAGE_BYTES", 5<<20)),
		BlogCacheTTL:    getEnvDuration("BLOG_CACHE_TTL", 30*time.Second),
		RedisAddr:       getEnv("REDIS_ADDR", ""),
		RedisPassword:   getEnv("REDIS_PASSWORD", ""),
		RedisDB:         getEnvInt("REDIS_DB", 0),
		ObjectStore: ObjectStoreConfig{
			Endpoint:  getEnv("MINIO_ENDPOINT", ""),
			AccessKey: getEnv("MINIO_ACCESS_KEY", ""),
			SecretKey: getEnv("MINIO_SECRET_KEY", ""),
			Bucket:    getEnv("MINIO_BUCKET", "blog-images"),
			UseSSL:    getEnv("MINIO_USE_SSL", "false") == "true",
			PublicURL: getEnv("MINIO_PUBLIC_URL", ""),
		},
		OTelEndpoint:  getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", ""),
		ServiceName:   getEnv("OTEL_SERVICE_NAME", "agencysite-api"),
		AdminEmail:    getEnv("ADMIN_EMAIL", ""),
		AdminPassword: getEnv("ADMIN_PASSWORD", ""),
		AdminName:     getEnv("ADMIN_NAME", "Administrator"),
	}

	if err := cfg.Validate(); err != nil {
		return cfg, err
	}

	return cfg, nil
}

// Validate enforces the values the process cannot serve without.
func (c Config) Validate() error {
	if strings.TrimSpace(c.DBURL) == "" {
		return ErrMissingDatabaseURL
	}
	if strings.TrimSpace(c.JWTSecret) == "" {
		return ErrMissingJWTSecret
	}
	return nil
}

func (c Config) IsProd() bool {
	return c.Env == "prod"
}

// WithTimeout bounds a startup or shutdown step that has no parent context.
func WithTimeout(duration time.Duration) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), duration)
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}

	return fallback
}

func firstEnv(keys ...string) string {
	for _, k := range keys {
		if v := os.Getenv(k); v != "" {
			return v
		}
	}
	return ""
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		num, err := strconv.Atoi(v)

		if err != nil {
			fmt.Fprintf(os.Stderr, "config: %s=%q is not an integer, using %d\n", key, v, fallback)
			return fallback
		}

		return num
	}
	return fallback
}

// getEnvDuration accepts Go durations ("5s") or a bare number of milliseconds.
func getEnvDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}

	if d, err := time.ParseDuration(v); err == nil {
		return d
	}

	if ms, err := strconv.Atoi(v); err == nil {
		return time.Duration(ms) * time.Millisecond
	}

	fmt.Fprintf(os.Stderr, "config: %s=%q is not a duration, using %s\n", key, v, fallback)
	return fallback
}

func splitList(raw string) []string {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
