package config

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Config holds all application configuration.
type Config struct {
	Server    ServerConfig
	Desktop   DesktopConfig
	Session   SessionConfig
	Logging   LogConfig
	RateLimit RateLimitConfig
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Port        string   `envconfig:"PORT" default:"3389"`
	Host        string   `envconfig:"HOST" default:"0.0.0.0"`
	CORSOrigins []string `envconfig:"CORS_ORIGINS" default:"*"`
	// PasswordHash is a bcrypt hash; when set viewers must present the password
	PasswordHash string `envconfig:"PASSWORD_HASH"`
}

// DesktopConfig holds the shared desktop configuration.
type DesktopConfig struct {
	Width     int    `envconfig:"DESKTOP_WIDTH" default:"1280"`
	Height    int    `envconfig:"DESKTOP_HEIGHT" default:"800"`
	FrameRate int    `envconfig:"FRAME_RATE" default:"24"`
	Theme     string `envconfig:"THEME" default:"dark"`
	// ThemeDir holds extra theme files that shadow the built-ins by name
	ThemeDir string `envconfig:"THEME_DIR"`
	// Demo opens a test-pattern window on startup
	Demo bool `envconfig:"DEMO" default:"true"`
}

// SessionConfig holds per-viewer negotiation toggles.
type SessionConfig struct {
	Clipboard            bool   `envconfig:"CLIPBOARD" default:"true"`
	Graphics             bool   `envconfig:"GRAPHICS" default:"true"`
	DynamicResize        bool   `envconfig:"DYNAMIC_RESIZE" default:"true"`
	DisplayMode          string `envconfig:"DISPLAY_MODE" default:"optimize"`
	MaxOutstandingFrames int    `envconfig:"MAX_OUTSTANDING_FRAMES" default:"3"`
	SendQueue            int    `envconfig:"SEND_QUEUE" default:"256"`
	// CodecFailures consecutive encode failures disable a codec for CodecCooldown
	CodecFailures int           `envconfig:"CODEC_FAILURES" default:"5"`
	CodecCooldown time.Duration `envconfig:"CODEC_COOLDOWN" default:"30s"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level       string `envconfig:"LOG_LEVEL" default:"info"`
	Development bool   `envconfig:"LOG_DEV" default:"false"`
}

// RateLimitConfig limits new viewer connections per client IP.
type RateLimitConfig struct {
	RequestsPerSecond int  `envconfig:"RATE_LIMIT_RPS" default:"5"`
	Burst             int  `envconfig:"RATE_LIMIT_BURST" default:"10"`
	Enabled           bool `envconfig:"RATE_LIMIT_ENABLED" default:"true"`
}

// Load loads configuration from environment variables.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("RDESK", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// LoadOrDefault loads configuration from environment or returns default.
func LoadOrDefault() *Config {
	cfg, err := Load()
	if err != nil {
		return Default()
	}
	return cfg
}

// Default returns default configuration.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port:        "3389",
			Host:        "0.0.0.0",
			CORSOrigins: []string{"*"},
		},
		Desktop: DesktopConfig{
			Width:     1280,
			Height:    800,
			FrameRate: 24,
			Theme:     "dark",
			Demo:      true,
		},
		Session: SessionConfig{
			Clipboard:            true,
			Graphics:             true,
			DynamicResize:        true,
			DisplayMode:          "optimize",
			MaxOutstandingFrames: 3,
			SendQueue:            256,
			CodecFailures:        5,
			CodecCooldown:        30 * time.Second,
		},
		Logging: LogConfig{
			Level:       "info",
			Development: false,
		},
		RateLimit: RateLimitConfig{
			RequestsPerSecond: 5,
			Burst:             10,
			Enabled:           true,
		},
	}
}

// Validate rejects values the server cannot start with.
func (c *Config) Validate() error {
	switch {
	case c.Desktop.Width <= 0 || c.Desktop.Height <= 0:
		return fmt.Errorf("invalid desktop size %dx%d", c.Desktop.Width, c.Desktop.Height)
	case c.Desktop.FrameRate <= 0 || c.Desktop.FrameRate > 240:
		return fmt.Errorf("invalid frame rate %d", c.Desktop.FrameRate)
	case c.Session.SendQueue <= 0:
		return fmt.Errorf("invalid send queue depth %d", c.Session.SendQueue)
	case c.Session.MaxOutstandingFrames < 0:
		return fmt.Errorf("invalid max outstanding frames %d", c.Session.MaxOutstandingFrames)
	}
	switch c.Session.DisplayMode {
	case "legacy", "autodetect", "optimize":
	default:
		return fmt.Errorf("invalid display mode %q", c.Session.DisplayMode)
	}
	return nil
}

// Address returns the listen address.
func (c *Config) Address() string {
	return c.Server.Host + ":" + c.Server.Port
}

// FrameInterval returns the frame tick period.
func (c *Config) FrameInterval() time.Duration {
	return time.Second / time.Duration(c.Desktop.FrameRate)
}
