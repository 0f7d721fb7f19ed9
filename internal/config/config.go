package config

import (
	"log"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	App         AppConfig
	Database    DatabaseConfig
	Redis       RedisConfig
	JWT         JWTConfig
	CORS        CORSConfig
	RateLimit   RateLimitConfig
	Idempotency IdempotencyConfig
	Breaker     BreakerConfig
	Retry       RetryConfig
	FileGen     FileGenConfig
}

type AppConfig struct {
	Name  string
	Env   string
	Port  string
	Debug bool
}

type DatabaseConfig struct {
	Host     string
	Port     string
	Name     string
	User     string
	Password string
	SSLMode  string
	Timezone string
}

// RedisConfig points at the shared atomic store holding idempotency records
// and rate-limit counters. With Addr empty the service falls back to
// in-memory stores, which only bound a single process.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

type JWTConfig struct {
	Secret      string
	ExpiryHours time.Duration
}

type CORSConfig struct {
	AllowedOrigins []string
	AllowedMethods []string
	AllowedHeaders []string
}

// RateLimitConfig bounds request admission per principal. Algorithm is
// "fixed_window" or "sliding_window". When the shared store is unreachable
// the limiter fails open: admission is a protective bound, availability
// wins.
type RateLimitConfig struct {
	Algorithm     string
	Requests      int
	WindowSeconds int
}

func (c RateLimitConfig) Window() time.Duration {
	return time.Duration(c.WindowSeconds) * time.Second
}

// IdempotencyConfig governs record lifetimes. ProcessingTTL is the
// operator-defined staleness window after which a stuck processing
// reservation may be reclaimed; size it well above the slowest expected
// handler. Store outages fail closed here: skipping the reservation would
// void the at-most-once guarantee.
type IdempotencyConfig struct {
	RecordTTL     time.Duration
	ProcessingTTL time.Duration
}

type BreakerConfig struct {
	FailureThreshold int
	RecoveryTimeout  time.Duration
	HalfOpenMaxCalls int
}

type RetryConfig struct {
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
}

// FileGenConfig points at the placement file-generation service.
type FileGenConfig struct {
	BaseURL string
	Timeout time.Duration
}

func Load() *Config {
	viper.SetConfigFile(".env")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		log.Printf("Warning: .env file not found, using environment variables: %v", err)
	}

	// Set defaults
	viper.SetDefault("APP_NAME", "placement-api")
	viper.SetDefault("APP_ENV", "development")
	viper.SetDefault("APP_PORT", "8080")
	viper.SetDefault("APP_DEBUG", true)
	viper.SetDefault("DB_HOST", "localhost")
	viper.SetDefault("DB_PORT", "5432")
	viper.SetDefault("DB_NAME", "nedlia_placements")
	viper.SetDefault("DB_USER", "postgres")
	viper.SetDefault("DB_PASSWORD", "postgres")
	viper.SetDefault("DB_SSL_MODE", "disable")
	viper.SetDefault("DB_TIMEZONE", "UTC")
	viper.SetDefault("REDIS_ADDR", "localhost:6379")
	viper.SetDefault("REDIS_PASSWORD", "")
	viper.SetDefault("REDIS_DB", 0)
	viper.SetDefault("JWT_SECRET", "change-this-secret-in-production")
	viper.SetDefault("JWT_EXPIRY_HOURS", 24)
	viper.SetDefault("CORS_ALLOWED_ORIGINS", "http://localhost:3000")
	viper.SetDefault("CORS_ALLOWED_HEADERS", []string{})
	viper.SetDefault("RATE_LIMIT_ALGORITHM", "fixed_window")
	viper.SetDefault("RATE_LIMIT_REQUESTS", 100)
	viper.SetDefault("RATE_LIMIT_WINDOW_SECONDS", 60)
	viper.SetDefault("IDEMPOTENCY_RECORD_TTL_HOURS", 24)
	viper.SetDefault("IDEMPOTENCY_PROCESSING_TTL_SECONDS", 300)
	viper.SetDefault("BREAKER_FAILURE_THRESHOLD", 5)
	viper.SetDefault("BREAKER_RECOVERY_TIMEOUT_SECONDS", 30)
	viper.SetDefault("BREAKER_HALF_OPEN_MAX_CALLS", 3)
	viper.SetDefault("RETRY_MAX_ATTEMPTS", 3)
	viper.SetDefault("RETRY_BASE_DELAY_MS", 100)
	viper.SetDefault("RETRY_MAX_DELAY_MS", 5000)
	viper.SetDefault("FILEGEN_BASE_URL", "http://localhost:9090")
	viper.SetDefault("FILEGEN_TIMEOUT_SECONDS", 10)

	return &Config{
		App: AppConfig{
			Name:  viper.GetString("APP_NAME"),
			Env:   viper.GetString("APP_ENV"),
			Port:  viper.GetString("APP_PORT"),
			Debug: viper.GetBool("APP_DEBUG"),
		},
		Database: DatabaseConfig{
			Host:     viper.GetString("DB_HOST"),
			Port:     viper.GetString("DB_PORT"),
			Name:     viper.GetString("DB_NAME"),
			User:     viper.GetString("DB_USER"),
			Password: viper.GetString("DB_PASSWORD"),
			SSLMode:  viper.GetString("DB_SSL_MODE"),
			Timezone: viper.GetString("DB_TIMEZONE"),
		},
		Redis: RedisConfig{
			Addr:     viper.GetString("REDIS_ADDR"),
			Password: viper.GetString("REDIS_PASSWORD"),
			DB:       viper.GetInt("REDIS_DB"),
		},
		JWT: JWTConfig{
			Secret:      viper.GetString("JWT_SECRET"),
			ExpiryHours: time.Duration(viper.GetInt("JWT_EXPIRY_HOURS")) * time.Hour,
		},
		CORS: CORSConfig{
			AllowedOrigins: viper.GetStringSlice("CORS_ALLOWED_ORIGINS"),
			AllowedMethods: viper.GetStringSlice("CORS_ALLOWED_METHODS"),
			AllowedHeaders: viper.GetStringSlice("CORS_ALLOWED_HEADERS"),
		},
		RateLimit: RateLimitConfig{
			Algorithm:     strings.ToLower(viper.GetString("RATE_LIMIT_ALGORITHM")),
			Requests:      viper.GetInt("RATE_LIMIT_REQUESTS"),
			WindowSeconds: viper.GetInt("RATE_LIMIT_WINDOW_SECONDS"),
		},
		Idempotency: IdempotencyConfig{
			RecordTTL:     time.Duration(viper.GetInt("IDEMPOTENCY_RECORD_TTL_HOURS")) * time.Hour,
			ProcessingTTL: time.Duration(viper.GetInt("IDEMPOTENCY_PROCESSING_TTL_SECONDS")) * time.Second,
		},
		Breaker: BreakerConfig{
			FailureThreshold: viper.GetInt("BREAKER_FAILURE_THRESHOLD"),
			RecoveryTimeout:  time.Duration(viper.GetInt("BREAKER_RECOVERY_TIMEOUT_SECONDS")) * time.Second,
			HalfOpenMaxCalls: viper.GetInt("BREAKER_HALF_OPEN_MAX_CALLS"),
		},
		Retry: RetryConfig{
			MaxAttempts: viper.GetInt("RETRY_MAX_ATTEMPTS"),
			BaseDelay:   time.Duration(viper.GetInt("RETRY_BASE_DELAY_MS")) * time.Millisecond,
			MaxDelay:    time.Duration(viper.GetInt("RETRY_MAX_DELAY_MS")) * time.Millisecond,
		},
		FileGen: FileGenConfig{
			BaseURL: viper.GetString("FILEGEN_BASE_URL"),
			Timeout: time.Duration(viper.GetInt("FILEGEN_TIMEOUT_SECONDS")) * time.Second,
		},
	}
}

func (c *DatabaseConfig) DSN() string {
	return "host=" + c.Host +
		" user=" + c.User +
		" password=" + c.Password +
		" dbname=" + c.Name +
		" port=" + c.Port +
		" sslmode=" + c.SSLMode +
		" TimeZone=" + c.Timezone
}
