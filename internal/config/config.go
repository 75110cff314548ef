package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds the environment-driven settings of the uploader.
type Config struct {
	// XNAT collaborator
	XNATBaseURL  string
	HTTPTimeout  time.Duration
	HTTPRetries  int
	ValidateScan bool

	// Local state
	SpoolPath string

	// Lifetimes
	SessionLifetime  time.Duration
	JournalRetention time.Duration
	SpoolRetention   time.Duration

	// Cookies
	CookieSecure bool
}

// Load reads the configuration from the environment.
func Load() *Config {
	return &Config{
		XNATBaseURL:  strings.TrimRight(getEnv("XNAT_BASE_URL", "https://xnat.bnc.brown.edu"), "/"),
		HTTPTimeout:  getSeconds("XNAT_HTTP_TIMEOUT", 300*time.Second),
		HTTPRetries:  getInt("XNAT_HTTP_RETRIES", 3),
		ValidateScan: getBool("XNAT_VALIDATE_SCAN", true),

		SpoolPath: getEnv("SPOOL_PATH", "spool"),

		SessionLifetime:  getSeconds("SESSION_LIFETIME", 5*time.Minute),
		JournalRetention: getSeconds("JOURNAL_RETENTION", 30*24*time.Hour),
		SpoolRetention:   getSeconds("SPOOL_RETENTION", 7*24*time.Hour),

		CookieSecure: getBool("COOKIE_SECURE", false),
	}
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

// getSeconds reads a duration expressed as a plain number of seconds.
func getSeconds(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return time.Duration(n) * time.Second
		}
	}
	return fallback
}

func getBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}
