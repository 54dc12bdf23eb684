package config

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("BOT_TOKEN", "123456:ABC-DEF1234ghIkl-zyx57W2v1u123ew11")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "development", cfg.AppEnv)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.True(t, cfg.BotEnabled)
	assert.True(t, cfg.ServerEnabled)
	assert.Equal(t, ":8080", cfg.HTTPAddr)
	assert.Equal(t, "catalog.json", cfg.CatalogFile)
	assert.Equal(t, "clients", cfg.ClientsDir)
	assert.Equal(t, "web", cfg.WebRoot)
	assert.Equal(t, 60, cfg.BotPollTimeout)
	assert.Equal(t, 10*time.Second, cfg.ShutdownTimeout)
	assert.Equal(t, int64(10<<20), cfg.MaxBodyBytes)
	assert.Equal(t, "https://your-unique-site.netlify.app", cfg.MiniAppURL)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("BOT_TOKEN", "token")
	t.Setenv("MINI_APP_URL", "https://shop.example.com/app?lang=fr")
	t.Setenv("CLIENT_SLUG", "demo")
	t.Setenv("HTTP_ADDR", "127.0.0.1:9000")
	t.Setenv("SERVER_ENABLED", "false")
	t.Setenv("BOT_SEND_RATE", "0.5")
	t.Setenv("SHUTDOWN_TIMEOUT", "3s")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "https://shop.example.com/app?lang=fr", cfg.MiniAppURL)
	assert.Equal(t, "demo", cfg.ClientSlug)
	assert.Equal(t, "127.0.0.1:9000", cfg.HTTPAddr)
	assert.False(t, cfg.ServerEnabled)
	assert.Equal(t, 0.5, cfg.BotSendRate)
	assert.Equal(t, 3*time.Second, cfg.ShutdownTimeout)
}

func TestLoadMissingTokenIsFatal(t *testing.T) {
	t.Setenv("BOT_ENABLED", "true")
	t.Setenv("BOT_TOKEN", "")

	_, err := Load()
	var cfgErr *Error
	require.True(t, errors.As(err, &cfgErr))
	assert.Equal(t, "BOT_TOKEN", cfgErr.Key)
}

func TestLoadServerOnlyNeedsNoToken(t *testing.T) {
	t.Setenv("BOT_ENABLED", "false")
	t.Setenv("BOT_TOKEN", "")

	cfg, err := Load()
	require.NoError(t, err)
	assert.False(t, cfg.BotEnabled)
}

func TestValidate(t *testing.T) {
	valid := func() Config {
		return Config{
			BotEnabled:    true,
			BotToken:      "t",
			MiniAppURL:    "https://example.com",
			BotSendRate:   1,
			BotSendBurst:  1,
			ServerEnabled: true,
			MaxBodyBytes:  1024,
			SaveRate:      1,
			SaveBurst:     1,
			CatalogFile:   "catalog.json",
			ConfigFile:    "config.json",
		}
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantKey string
	}{
		{"valid", func(*Config) {}, ""},
		{"relative url", func(c *Config) { c.MiniAppURL = "/app" }, "MINI_APP_URL"},
		{"bad slug", func(c *Config) { c.ClientSlug = "../x" }, "CLIENT_SLUG"},
		{"nothing enabled", func(c *Config) { c.BotEnabled, c.ServerEnabled = false, false }, "BOT_ENABLED"},
		{"zero body", func(c *Config) { c.MaxBodyBytes = 0 }, "MAX_BODY_BYTES"},
		{"nested catalog name", func(c *Config) { c.CatalogFile = "sub/catalog.json" }, "CATALOG_FILE"},
		{"zero send burst", func(c *Config) { c.BotSendBurst = 0 }, "BOT_SEND_RATE"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantKey == "" {
				assert.NoError(t, err)
				return
			}
			var cfgErr *Error
			require.True(t, errors.As(err, &cfgErr))
			assert.Equal(t, tt.wantKey, cfgErr.Key)
		})
	}
}

func TestLoadStorageSkipsBotValidation(t *testing.T) {
	t.Setenv("BOT_TOKEN", "")
	t.Setenv("WEB_ROOT", "/srv/miniapp")

	cfg, err := LoadStorage()
	require.NoError(t, err)
	assert.Equal(t, "/srv/miniapp", cfg.WebRoot)

	t.Setenv("CONFIG_FILE", "../config.json")
	_, err = LoadStorage()
	var cfgErr *Error
	require.True(t, errors.As(err, &cfgErr))
}
