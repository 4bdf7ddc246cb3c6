// Package config loads call engine settings from the environment.
package config

import (
	"errors"
	"os"
	"strconv"
	"strings"
	"time"

	"dqx0.com/go/streamcall/internal/obs"
)

// Log backends accepted by Config.LogBackend.
const (
	BackendZap    = "zap"
	BackendLogrus = "logrus"
)

// Config holds the settings shared by the CLI and embedders.
type Config struct {
	// ConnectTimeout bounds the connect step only.
	ConnectTimeout time.Duration
	TCPNoDelay     bool
	// MaxHeaderBytes limits each response head line.
	MaxHeaderBytes int

	LogLevel   string
	LogBackend string

	// DialRate is the number of connects allowed per second; 0 disables pacing.
	DialRate  float64
	DialBurst int
}

// Default returns the configuration used when nothing is set.
func Default() *Config {
	return &Config{
		ConnectTimeout: 5 * time.Second,
		TCPNoDelay:     true,
		MaxHeaderBytes: 8 << 10,
		LogLevel:       "info",
		LogBackend:     BackendZap,
		DialBurst:      1,
	}
}

// LoadFromEnv overlays STREAMCALL_* environment variables on Default.
// Malformed values are reported rather than silently ignored.
func LoadFromEnv() (*Config, error) {
	cfg := Default()
	var err error
	if cfg.ConnectTimeout, err = envDuration("STREAMCALL_CONNECT_TIMEOUT", cfg.ConnectTimeout); err != nil {
		return nil, err
	}
	if cfg.TCPNoDelay, err = envBool("STREAMCALL_TCP_NODELAY", cfg.TCPNoDelay); err != nil {
		return nil, err
	}
	if cfg.MaxHeaderBytes, err = envInt("STREAMCALL_MAX_HEADER_BYTES", cfg.MaxHeaderBytes); err != nil {
		return nil, err
	}
	cfg.LogLevel = getEnvOrDefault("STREAMCALL_LOG_LEVEL", cfg.LogLevel)
	cfg.LogBackend = strings.ToLower(getEnvOrDefault("STREAMCALL_LOG_BACKEND", cfg.LogBackend))
	if v := os.Getenv("STREAMCALL_DIAL_RATE"); v != "" {
		if cfg.DialRate, err = strconv.ParseFloat(v, 64); err != nil {
			return nil, errors.New("config: STREAMCALL_DIAL_RATE must be a number")
		}
	}
	if cfg.DialBurst, err = envInt("STREAMCALL_DIAL_BURST", cfg.DialBurst); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.ConnectTimeout <= 0 {
		return errors.New("config: connect timeout must be positive")
	}
	if c.MaxHeaderBytes < 256 {
		return errors.New("config: max header bytes must be at least 256")
	}
	if _, err := obs.ParseLevel(c.LogLevel); err != nil {
		return err
	}
	if c.LogBackend != BackendZap && c.LogBackend != BackendLogrus {
		return errors.New("config: log backend must be 'zap' or 'logrus'")
	}
	if c.DialRate < 0 {
		return errors.New("config: dial rate cannot be negative")
	}
	if c.DialRate > 0 && c.DialBurst < 1 {
		return errors.New("config: dial burst must be at least 1 when pacing")
	}
	return nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func envInt(key string, def int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, errors.New("config: " + key + " must be an integer")
	}
	return n, nil
}

func envBool(key string, def bool) (bool, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, errors.New("config: " + key + " must be a boolean")
	}
	return b, nil
}

func envDuration(key string, def time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, errors.New("config: " + key + " must be a duration like 3s")
	}
	return d, nil
}
