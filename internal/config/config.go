// Package config resolves storefront settings from defaults, an optional YAML
// file and the environment, in that order of precedence (lowest first).
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	DefaultCatalogURL = "https://my-json-server.typicode.com/BhaT844/Rust-yew-study"
	DefaultTitle      = "Rust Web Site!"
	DefaultCurrency   = "KRW"
)

var ErrWeakSessionSecret = errors.New("session secret must be at least 32 bytes")

type Config struct {
	Addr     string `yaml:"addr"`
	LogLevel string `yaml:"log_level"`

	CatalogURL     string        `yaml:"catalog_url"`
	CatalogTimeout time.Duration `yaml:"catalog_timeout"`

	Title    string `yaml:"title"`
	Currency string `yaml:"currency"`

	SessionSecret string        `yaml:"session_secret"`
	SessionTTL    time.Duration `yaml:"session_ttl"`
	SecureCookies bool          `yaml:"secure_cookies"`
	MaxSessions   int           `yaml:"max_sessions"`

	// SessionRate is new sessions per client IP per minute.
	SessionRate int `yaml:"session_rate"`

	MetricsToken string `yaml:"metrics_token"`
	RateLimit    int    `yaml:"rate_limit"`
}

func Default() Config {
	return Config{
		Addr:           ":8080",
		LogLevel:       "info",
		CatalogURL:     DefaultCatalogURL,
		CatalogTimeout: 10 * time.Second,
		Title:          DefaultTitle,
		Currency:       DefaultCurrency,
		SessionTTL:     30 * time.Minute,
		MaxSessions:    10000,
		SessionRate:    30,
		RateLimit:      120,
	}
}

// Load layers the file at path (if non-empty) and then the environment over
// Default.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(raw, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	cfg.Addr = getenv("STOREFRONT_ADDR", cfg.Addr)
	cfg.LogLevel = getenv("LOG_LEVEL", cfg.LogLevel)
	cfg.CatalogURL = getenv("CATALOG_URL", cfg.CatalogURL)
	cfg.CatalogTimeout = getenvDuration("CATALOG_TIMEOUT", cfg.CatalogTimeout)
	cfg.Title = getenv("STORE_TITLE", cfg.Title)
	cfg.Currency = getenv("CURRENCY", cfg.Currency)
	cfg.SessionSecret = getenv("SESSION_SECRET", cfg.SessionSecret)
	cfg.SessionTTL = getenvDuration("SESSION_TTL", cfg.SessionTTL)
	cfg.SecureCookies = getenvBool("SECURE_COOKIES", cfg.SecureCookies)
	cfg.MaxSessions = getenvInt("MAX_SESSIONS", cfg.MaxSessions)
	cfg.SessionRate = getenvInt("SESSION_RATE_LIMIT", cfg.SessionRate)
	cfg.MetricsToken = getenv("METRICS_TOKEN", cfg.MetricsToken)
	cfg.RateLimit = getenvInt("RATE_LIMIT", cfg.RateLimit)

	cfg.CatalogURL = strings.TrimRight(cfg.CatalogURL, "/")
	return cfg, nil
}

// ValidateServe checks what only the web storefront needs; the terminal
// storefront has no sessions.
func (c Config) ValidateServe() error {
	if len(c.SessionSecret) < 32 {
		return ErrWeakSessionSecret
	}
	if c.SessionTTL <= 0 {
		return fmt.Errorf("session ttl must be positive, got %s", c.SessionTTL)
	}
	return nil
}

func getenv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func getenvInt(k string, def int) int {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

func getenvBool(k string, def bool) bool {
	b, err := strconv.ParseBool(os.Getenv(k))
	if err != nil {
		return def
	}
	return b
}

func getenvDuration(k string, def time.Duration) time.Duration {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return def
	}
	return d
}
