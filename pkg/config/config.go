// Package config provides configuration management for the bot.
// It loads a .env file if present and parses the environment into Config.
package config

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Config holds all configuration values for the bot
type Config struct {
	// Discord
	BotToken   string `env:"DISCORD_TOKEN"`
	DevGuildID string `env:"DEV_GUILD_ID"`

	// Lavalink
	LavalinkHost         string `env:"LAVALINK_HOST" envDefault:"localhost"`
	LavalinkPort         int    `env:"LAVALINK_PORT" envDefault:"2333"`
	LavalinkPassword     string `env:"LAVALINK_PASSWORD" envDefault:"youshallnotpass"`
	LavalinkSecure       bool   `env:"LAVALINK_SECURE"`
	LavalinkSearchPrefix string `env:"LAVALINK_SEARCH_PREFIX" envDefault:"ytsearch"`

	// Spotify
	SpotifyClientID     string `env:"SPOTIFY_CLIENT_ID"`
	SpotifyClientSecret string `env:"SPOTIFY_CLIENT_SECRET"`

	// MongoDB
	MongoDBURL string `env:"MONGODB_URL"`
	DBName     string `env:"DB_NAME" envDefault:"JazzBot"`

	// MQTT
	MQTTHost     string `env:"MQTT_HOST"`
	MQTTPort     string `env:"MQTT_PORT" envDefault:"1883"`
	MQTTUser     string `env:"MQTT_USER"`
	MQTTPassword string `env:"MQTT_PASSWORD"`

	// Web Server
	Port string `env:"PORT" envDefault:"3000"`

	// Environment
	Environment string `env:"ENVIRONMENT" envDefault:"dev"`

	// Webhooks
	ErrorWebhook string `env:"ERROR_WEBHOOK"`
	LogsWebhook  string `env:"LOGS_WEBHOOK"`

	// Playback
	ResolveTimeout   time.Duration `env:"RESOLVE_TIMEOUT" envDefault:"15s"`
	BackendTimeout   time.Duration `env:"BACKEND_TIMEOUT" envDefault:"10s"`
	SessionInboxSize int           `env:"SESSION_INBOX_SIZE" envDefault:"32"`
	CommandRate      float64       `env:"COMMAND_RATE" envDefault:"1"`
	CommandBurst     int           `env:"COMMAND_BURST" envDefault:"3"`
}

var (
	Version   = "Dev-Local"
	BuildTime = "Hoy"
)

// cfg holds the global configuration instance
var (
	cfg     *Config
	cfgErr  error
	cfgOnce sync.Once
)

// resetForTesting resets the configuration for testing purposes.
// This function should only be called from test code.
func resetForTesting() {
	cfg = nil
	cfgErr = nil
	cfgOnce = sync.Once{}
}

// loadConfig performs the actual configuration loading
func loadConfig() {
	// Load .env file if it exists (ignoring error if it doesn't)
	_ = godotenv.Load()

	c, err := env.ParseAs[Config]()
	if err != nil {
		cfg, cfgErr = &Config{}, fmt.Errorf("parse environment: %w", err)
		return
	}
	cfg = &c
}

// Load initializes the configuration from environment variables
func Load() (*Config, error) {
	cfgOnce.Do(loadConfig)
	return cfg, cfgErr
}

// Get returns the current configuration
func Get() *Config {
	cfgOnce.Do(loadConfig)
	return cfg
}

// Validate checks the values the bot cannot start without
func (c *Config) Validate() error {
	var errs []error
	if c.BotToken == "" {
		errs = append(errs, errors.New("DISCORD_TOKEN is required"))
	}
	if c.LavalinkHost == "" {
		errs = append(errs, errors.New("LAVALINK_HOST is required"))
	}
	if c.LavalinkPort <= 0 || c.LavalinkPort > 65535 {
		errs = append(errs, fmt.Errorf("LAVALINK_PORT %d is out of range", c.LavalinkPort))
	}
	if c.ResolveTimeout <= 0 {
		errs = append(errs, errors.New("RESOLVE_TIMEOUT must be positive"))
	}
	if c.BackendTimeout <= 0 {
		errs = append(errs, errors.New("BACKEND_TIMEOUT must be positive"))
	}
	if c.SessionInboxSize <= 0 {
		errs = append(errs, errors.New("SESSION_INBOX_SIZE must be positive"))
	}
	if c.CommandRate <= 0 || c.CommandBurst <= 0 {
		errs = append(errs, errors.New("COMMAND_RATE and COMMAND_BURST must be positive"))
	}
	return errors.Join(errs...)
}

// IsProd returns true if the environment is production
func (c *Config) IsProd() bool {
	return c.Environment == "prod"
}

// HasSpotify reports whether Spotify client credentials are set
func (c *Config) HasSpotify() bool {
	return c.SpotifyClientID != "" && c.SpotifyClientSecret != ""
}

// HasDatabase reports whether a MongoDB URL is set
func (c *Config) HasDatabase() bool {
	return c.MongoDBURL != ""
}

// HasMQTT reports whether an MQTT broker is set
func (c *Config) HasMQTT() bool {
	return c.MQTTHost != ""
}

// LavalinkAddress returns host:port of the Lavalink node
func (c *Config) LavalinkAddress() string {
	return fmt.Sprintf("%s:%d", c.LavalinkHost, c.LavalinkPort)
}
