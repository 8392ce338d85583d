package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Addr       string // API bind address, e.g., ":8080"
	LogDir     string // logs directory
	SQLitePath string // embedded store path (default store)
	PostgresDSN string // when set, postgres is used instead of sqlite

	CheckInterval time.Duration // sweep cadence
	HTTPTimeout   time.Duration // per-attempt liveness timeout
	ProbeTimeout  time.Duration // whole-probe budget incl. enrichment
	RetryAttempts int
	RetryBackoff  time.Duration
	Concurrency   int // max concurrent per-target probes

	SMTPHost string
	SMTPPort string
	SMTPUser string
	SMTPPass string
	SMTPFrom string
	WebhookURL string

	PublicAPIKeys []string
	AdminAPIKeys  []string
	PublicRPM     int
	PublicBurst   int
}

// FromEnv loads configuration from the environment, honoring a local
// .env file when present.
func FromEnv() Config {
	_ = godotenv.Load()

	cfg := Config{
		Addr:          getenv("ADDR", ":8080"),
		LogDir:        getenv("LOG_DIR", "logs"),
		SQLitePath:    getenv("SQLITE_PATH", "sitewatch.db"),
		PostgresDSN:   os.Getenv("DATABASE_URL"),
		CheckInterval: durationMS("CHECK_INTERVAL_MS", time.Minute),
		HTTPTimeout:   durationMS("HTTP_TIMEOUT_MS", 5*time.Second),
		ProbeTimeout:  durationMS("PROBE_TIMEOUT_MS", 60*time.Second),
		RetryAttempts: intenv("RETRY_ATTEMPTS", 3),
		RetryBackoff:  durationMS("RETRY_BACKOFF_MS", time.Second),
		Concurrency:   intenv("MAX_CONCURRENT_CHECKS", 8),
		SMTPHost:      os.Getenv("SMTP_HOST"),
		SMTPPort:      getenv("SMTP_PORT", "587"),
		SMTPUser:      os.Getenv("SMTP_USER"),
		SMTPPass:      os.Getenv("SMTP_PASS"),
		SMTPFrom:      os.Getenv("SMTP_FROM"),
		WebhookURL:    os.Getenv("WEBHOOK_URL"),
		PublicAPIKeys: splitKeys(os.Getenv("PUBLIC_API_KEYS")),
		AdminAPIKeys:  splitKeys(os.Getenv("ADMIN_API_KEYS")),
		PublicRPM:     intenv("PUBLIC_RPM", 120),
		PublicBurst:   intenv("PUBLIC_BURST", 60),
	}
	return cfg
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func intenv(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			return n
		}
	}
	return def
}

func durationMS(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if ms, err := strconv.Atoi(v); err == nil && ms >= 0 {
			return time.Duration(ms) * time.Millisecond
		}
	}
	return def
}

func splitKeys(raw string) []string {
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
