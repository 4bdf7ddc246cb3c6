package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadFromEnv_Defaults(t *testing.T) {
	cfg, err := LoadFromEnv()
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
	assert.NoError(t, cfg.Validate())
}

func TestLoadFromEnv_Overrides(t *testing.T) {
	t.Setenv("STREAMCALL_CONNECT_TIMEOUT", "750ms")
	t.Setenv("STREAMCALL_TCP_NODELAY", "false")
	t.Setenv("STREAMCALL_MAX_HEADER_BYTES", "4096")
	t.Setenv("STREAMCALL_LOG_LEVEL", "debug")
	t.Setenv("STREAMCALL_LOG_BACKEND", "Logrus")
	t.Setenv("STREAMCALL_DIAL_RATE", "2.5")
	t.Setenv("STREAMCALL_DIAL_BURST", "3")

	cfg, err := LoadFromEnv()
	require.NoError(t, err)
	assert.Equal(t, 750*time.Millisecond, cfg.ConnectTimeout)
	assert.False(t, cfg.TCPNoDelay)
	assert.Equal(t, 4096, cfg.MaxHeaderBytes)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, BackendLogrus, cfg.LogBackend)
	assert.Equal(t, 2.5, cfg.DialRate)
	assert.Equal(t, 3, cfg.DialBurst)
	assert.NoError(t, cfg.Validate())
}

func TestLoadFromEnv_Malformed(t *testing.T) {
	for key, val := range map[string]string{
		"STREAMCALL_CONNECT_TIMEOUT":  "soon",
		"STREAMCALL_TCP_NODELAY":      "maybe",
		"STREAMCALL_MAX_HEADER_BYTES": "big",
		"STREAMCALL_DIAL_RATE":        "fast",
	} {
		t.Run(key, func(t *testing.T) {
			t.Setenv(key, val)
			_, err := LoadFromEnv()
			assert.Error(t, err)
		})
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero timeout", func(c *Config) { c.ConnectTimeout = 0 }},
		{"tiny header limit", func(c *Config) { c.MaxHeaderBytes = 10 }},
		{"bad level", func(c *Config) { c.LogLevel = "chatty" }},
		{"bad backend", func(c *Config) { c.LogBackend = "syslog" }},
		{"negative rate", func(c *Config) { c.DialRate = -1 }},
		{"zero burst", func(c *Config) { c.DialRate = 1; c.DialBurst = 0 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}
