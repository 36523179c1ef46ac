package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

type DatabaseConfig struct {
	Driver string `env:"DRIVER" envDefault:"sqlite"`
	URL    string `env:"URL" envDefault:"file:yokaidle.db"`
}

type PushConfig struct {
	VAPIDPublicKey  string `env:"VAPID_PUBLIC_KEY"`
	VAPIDPrivateKey string `env:"VAPID_PRIVATE_KEY"`
	Subject         string `env:"SUBJECT" envDefault:"mailto:admin@yokaidle.app"`
	Secret          string `env:"SECRET"`
	TTLSeconds      int    `env:"TTL_SECONDS" envDefault:"86400"`
	ReminderEnabled bool   `env:"REMINDER_ENABLED" envDefault:"false"`
	ReminderAt      string `env:"REMINDER_AT" envDefault:"09:00"`
	ReminderZone    string `env:"REMINDER_TIMEZONE" envDefault:"UTC"`
}

type AgentConfig struct {
	Port             string        `env:"PORT" envDefault:"8091"`
	UpstreamURL      string        `env:"UPSTREAM_URL" envDefault:"http://localhost:3000"`
	CloudURL         string        `env:"CLOUD_URL"`
	CloudToken       string        `env:"CLOUD_TOKEN"`
	UserID           string        `env:"USER_ID"`
	DataPath         string        `env:"DATA_PATH" envDefault:"yokaidle-agent.db"`
	CacheVersion     string        `env:"CACHE_VERSION" envDefault:"v1"`
	PrecacheManifest string        `env:"PRECACHE_MANIFEST"`
	SyncInterval     time.Duration `env:"SYNC_INTERVAL" envDefault:"5m"`
	DebounceDelay    time.Duration `env:"DEBOUNCE_DELAY" envDefault:"2s"`
	RequestTimeout   time.Duration `env:"REQUEST_TIMEOUT" envDefault:"30s"`
}

type Config struct {
	Port      string         `env:"PORT" envDefault:"8090"`
	LogLevel  string         `env:"LOG_LEVEL" envDefault:"info"`
	AuthToken string         `env:"AUTH_TOKEN"`
	Database  DatabaseConfig `envPrefix:"DATABASE_"`
	Push      PushConfig     `envPrefix:"PUSH_"`
	Agent     AgentConfig    `envPrefix:"AGENT_"`
}

const envPrefix = "YOKAIDLE_"

// Load reads an optional .env file, then the YOKAIDLE_* environment.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}
	return Parse()
}

// Parse reads the YOKAIDLE_* environment without touching .env files.
func Parse() (Config, error) {
	var cfg Config
	if err := env.ParseWithOptions(&cfg, env.Options{Prefix: envPrefix}); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	if p := strings.TrimSpace(os.Getenv("PORT")); p != "" {
		cfg.Port = p
	}
	cfg.normalize()
	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) normalize() {
	c.LogLevel = strings.ToLower(strings.TrimSpace(c.LogLevel))
	c.AuthToken = strings.TrimSpace(c.AuthToken)
	c.Database.Driver = strings.ToLower(strings.TrimSpace(c.Database.Driver))
	if c.Database.Driver == "postgresql" {
		c.Database.Driver = "postgres"
	}
	c.Push.Secret = strings.TrimSpace(c.Push.Secret)
	c.Agent.UpstreamURL = strings.TrimRight(strings.TrimSpace(c.Agent.UpstreamURL), "/")
	c.Agent.CloudURL = strings.TrimRight(strings.TrimSpace(c.Agent.CloudURL), "/")
	c.Agent.UserID = strings.TrimSpace(c.Agent.UserID)
	if c.Push.TTLSeconds <= 0 {
		c.Push.TTLSeconds = 86400
	}
}

func (c Config) validate() error {
	switch c.Database.Driver {
	case "sqlite", "postgres":
	default:
		return fmt.Errorf("unsupported database driver %q", c.Database.Driver)
	}
	if c.Agent.SyncInterval <= 0 {
		return fmt.Errorf("agent sync interval must be positive")
	}
	if c.Agent.DebounceDelay < 0 {
		return fmt.Errorf("agent debounce delay must not be negative")
	}
	return nil
}

// PushConfigured reports whether VAPID credentials are present.
func (c Config) PushConfigured() bool {
	return strings.TrimSpace(c.Push.VAPIDPublicKey) != "" && strings.TrimSpace(c.Push.VAPIDPrivateKey) != ""
}

// ReminderClock parses Push.ReminderAt ("HH:MM").
func (c Config) ReminderClock() (hour, minute int, err error) {
	parts := strings.SplitN(strings.TrimSpace(c.Push.ReminderAt), ":", 2)
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("invalid reminder time %q", c.Push.ReminderAt)
	}
	hour, err = strconv.Atoi(parts[0])
	if err != nil || hour < 0 || hour > 23 {
		return 0, 0, fmt.Errorf("invalid reminder hour %q", parts[0])
	}
	minute, err = strconv.Atoi(parts[1])
	if err != nil || minute < 0 || minute > 59 {
		return 0, 0, fmt.Errorf("invalid reminder minute %q", parts[1])
	}
	return hour, minute, nil
}
