package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds process configuration shared by every binary.
type Config struct {
	HTTPPort string

	DBHost         string
	DBPort         string
	DBUser         string
	DBPassword     string
	DBName         string
	DBSSLMode      string
	DBMaxOpenConns int

	RedisAddr string
	JWTSecret string
	LogLevel  string
	Timezone  string

	ServiceName      string
	OTLPEndpoint     string
	TelemetryEnabled bool

	WorkerConcurrency int
	ReminderAfter     time.Duration
	ReminderCron      string
	MonthlyReportCron string
	AdminEmail        string
}

// Load reads .env when present and then the process environment.
func Load() Config {
	_ = godotenv.Load()

	return Config{
		HTTPPort:          getenv("HTTP_PORT", "8080"),
		DBHost:            getenv("DB_HOST", "localhost"),
		DBPort:            getenv("DB_PORT", "5432"),
		DBUser:            getenv("DB_USER", "postgres"),
		DBPassword:        getenv("DB_PASSWORD", ""),
		DBName:            getenv("DB_NAME", "scalable_parking"),
		DBSSLMode:         getenv("DB_SSLMODE", "disable"),
		DBMaxOpenConns:    getenvInt("DB_MAX_OPEN_CONNS", 25),
		RedisAddr:         getenv("REDIS_ADDR", "localhost:6379"),
		JWTSecret:         strings.TrimSpace(getenv("JWT_SECRET", "dev-secret")),
		LogLevel:          getenv("LOG_LEVEL", "info"),
		Timezone:          getenv("APP_TIMEZONE", "UTC"),
		ServiceName:       getenv("OTEL_SERVICE_NAME", "scalable-parking"),
		OTLPEndpoint:      getenv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4318"),
		TelemetryEnabled:  getenvBool("TELEMETRY_ENABLED", false),
		WorkerConcurrency: getenvInt("WORKER_CONCURRENCY", 10),
		ReminderAfter:     getenvDuration("REMINDER_AFTER", 24*time.Hour),
		ReminderCron:      getenv("REMINDER_CRON", "0 18 * * *"),
		MonthlyReportCron: getenv("MONTHLY_REPORT_CRON", "0 9 1 * *"),
		AdminEmail:        getenv("ADMIN_EMAIL", "admin@parking.local"),
	}
}

// DSN renders the lib/pq connection string.
func (c Config) DSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s",
		c.DBUser, c.DBPassword, c.DBHost, c.DBPort, c.DBName, c.DBSSLMode)
}

// Location resolves APP_TIMEZONE, falling back to UTC.
func (c Config) Location() (*time.Location, error) {
	if c.Timezone == "" {
		return time.UTC, nil
	}

	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid APP_TIMEZONE %q: %w", c.Timezone, err)
	}

	return loc, nil
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvInt(key string, def int) int {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return def
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return def
	}
	return n
}

func getenvDuration(key string, def time.Duration) time.Duration {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return def
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return def
	}
	return d
}

func getenvBool(key string, def bool) bool {
	value := strings.ToLower(strings.TrimSpace(os.Getenv(key)))
	if value == "" {
		return def
	}
	switch value {
	case "1", "true", "yes", "y", "on":
		return true
	case "0", "false", "no", "n", "off":
		return false
	default:
		return def
	}
}
