package config

import (
	"fmt"
	"net/url"
	"path/filepath"
	"time"

	"github.com/caarlos0/env/v11"

	"tg_miniapp/internal/entities"
)

// Config holds application configuration
type Config struct {
	AppEnv    string `env:"APP_ENV" envDefault:"development"`
	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"text"`

	// Telegram bot
	BotEnabled     bool    `env:"BOT_ENABLED" envDefault:"true"`
	BotToken       string  `env:"BOT_TOKEN"`
	BotAPIEndpoint string  `env:"BOT_API_ENDPOINT" envDefault:"https://api.telegram.org/bot%s/%s"`
	BotPollTimeout int     `env:"BOT_POLL_TIMEOUT" envDefault:"60"`
	BotSendRate    float64 `env:"BOT_SEND_RATE" envDefault:"1"`
	BotSendBurst   int     `env:"BOT_SEND_BURST" envDefault:"3"`
	MiniAppURL     string  `env:"MINI_APP_URL" envDefault:"https://your-unique-site.netlify.app"`
	ClientSlug     string  `env:"CLIENT_SLUG"`

	// Admin / static server
	ServerEnabled   bool          `env:"SERVER_ENABLED" envDefault:"true"`
	HTTPAddr        string        `env:"HTTP_ADDR" envDefault:":8080"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"10s"`
	WebRoot         string        `env:"WEB_ROOT" envDefault:"web"`
	CatalogFile     string        `env:"CATALOG_FILE" envDefault:"catalog.json"`
	ConfigFile      string        `env:"CONFIG_FILE" envDefault:"config.json"`
	ClientsDir      string        `env:"CLIENTS_DIR" envDefault:"clients"`
	MaxBodyBytes    int64         `env:"MAX_BODY_BYTES" envDefault:"10485760"`
	SaveRate        float64       `env:"SAVE_RATE" envDefault:"2"`
	SaveBurst       int           `env:"SAVE_BURST" envDefault:"5"`

	// Optional Postgres mirror of saved documents
	DatabaseURL string `env:"DATABASE_URL"`

	MetricsNamespace string `env:"METRICS_NAMESPACE" envDefault:"miniapp"`
}

// Error reports a configuration problem that must stop the process.
type Error struct {
	Key    string
	Reason string
}

func (e *Error) Error() string {
	return fmt.Sprintf("config %s: %s", e.Key, e.Reason)
}

// Load reads configuration from environment variables and validates it.
func Load() (*Config, error) {
	cfg, err := env.ParseAs[Config]()
	if err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the settings a running component depends on.
func (c *Config) Validate() error {
	if !c.BotEnabled && !c.ServerEnabled {
		return &Error{Key: "BOT_ENABLED", Reason: "bot and server are both disabled"}
	}

	if c.BotEnabled {
		if c.BotToken == "" {
			return &Error{Key: "BOT_TOKEN", Reason: "not set; export it or put BOT_TOKEN=... in .env"}
		}
		u, err := url.Parse(c.MiniAppURL)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return &Error{Key: "MINI_APP_URL", Reason: fmt.Sprintf("%q is not an absolute URL", c.MiniAppURL)}
		}
		if c.ClientSlug != "" && !entities.ValidSlug(c.ClientSlug) {
			return &Error{Key: "CLIENT_SLUG", Reason: fmt.Sprintf("%q is not a valid client slug", c.ClientSlug)}
		}
		if c.BotSendRate <= 0 || c.BotSendBurst < 1 {
			return &Error{Key: "BOT_SEND_RATE", Reason: "rate must be positive and burst at least 1"}
		}
	}

	if c.ServerEnabled {
		if c.MaxBodyBytes <= 0 {
			return &Error{Key: "MAX_BODY_BYTES", Reason: "must be positive"}
		}
		if c.SaveRate <= 0 || c.SaveBurst < 1 {
			return &Error{Key: "SAVE_RATE", Reason: "rate must be positive and burst at least 1"}
		}
		if filepath.Base(c.CatalogFile) != c.CatalogFile || filepath.Base(c.ConfigFile) != c.ConfigFile {
			return &Error{Key: "CATALOG_FILE", Reason: "document names must be plain file names"}
		}
	}
	return nil
}

// LoadStorage reads the configuration for tools that only touch the document
// folders, such as the client scaffolder. Bot and server settings are not
// validated.
func LoadStorage() (*Config, error) {
	cfg, err := env.ParseAs[Config]()
	if err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	if filepath.Base(cfg.CatalogFile) != cfg.CatalogFile || filepath.Base(cfg.ConfigFile) != cfg.ConfigFile {
		return nil, &Error{Key: "CATALOG_FILE", Reason: "document names must be plain file names"}
	}
	return &cfg, nil
}
