package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds the application's configuration.
type Config struct {
	Telegram      TelegramConfig      `yaml:"telegram"`
	Database      DatabaseConfig      `yaml:"database"`
	Gemini        GeminiConfig        `yaml:"gemini"`
	Geocoder      GeocoderConfig      `yaml:"geocoder"`
	Photos        PhotosConfig        `yaml:"photos"`
	Sessions      SessionsConfig      `yaml:"sessions"`
	Notifications NotificationsConfig `yaml:"notifications"`
	Server        struct {
		Port string `yaml:"port"`
	} `yaml:"server"`
	Log struct {
		Production bool `yaml:"production"`
	} `yaml:"log"`
}

type TelegramConfig struct {
	Token       string `yaml:"token"`
	PollTimeout int    `yaml:"poll_timeout_seconds"`
	Debug       bool   `yaml:"debug"`
}

type DatabaseConfig struct {
	Type string `yaml:"type"` // "postgres" or "sqlite"
	URL  string `yaml:"url"`  // postgres connection string
	Path string `yaml:"path"` // sqlite file
}

type GeminiConfig struct {
	APIKey            string        `yaml:"api_key"`
	ModelName         string        `yaml:"model_name"`
	RequestsPerMinute int           `yaml:"requests_per_minute"`
	Timeout           time.Duration `yaml:"timeout"`
}

type GeocoderConfig struct {
	BaseURL           string        `yaml:"base_url"`
	UserAgent         string        `yaml:"user_agent"`
	RequestsPerSecond float64       `yaml:"requests_per_second"`
	Timeout           time.Duration `yaml:"timeout"`
}

type PhotosConfig struct {
	Dir string `yaml:"dir"`
}

type SessionsConfig struct {
	TTL   time.Duration `yaml:"ttl"`
	Sweep string        `yaml:"sweep"` // cron spec
}

type NotificationsConfig struct {
	Timeout time.Duration `yaml:"timeout"`
}

const (
	DatabasePostgres = "postgres"
	DatabaseSQLite   = "sqlite"
)

// LoadConfig reads configuration from the specified YAML file.
func LoadConfig(configPath string) (*Config, error) {
	config := &Config{}

	file, err := os.Open(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}
	defer file.Close()

	decoder := yaml.NewDecoder(file)
	if err := decoder.Decode(config); err != nil {
		return nil, fmt.Errorf("failed to decode config file: %w", err)
	}

	// Secrets may be referenced as ${VAR}
	config.Telegram.Token = os.ExpandEnv(config.Telegram.Token)
	config.Database.URL = os.ExpandEnv(config.Database.URL)
	config.Gemini.APIKey = os.ExpandEnv(config.Gemini.APIKey)

	config.setDefaults()

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

func (c *Config) setDefaults() {
	if c.Telegram.PollTimeout == 0 {
		c.Telegram.PollTimeout = 60
	}
	if c.Database.Type == "" {
		c.Database.Type = DatabaseSQLite
	}
	if c.Database.Path == "" {
		c.Database.Path = "./data/water_leaks.db"
	}
	if c.Gemini.ModelName == "" {
		c.Gemini.ModelName = "gemini-1.5-flash"
	}
	if c.Gemini.RequestsPerMinute == 0 {
		c.Gemini.RequestsPerMinute = 15
	}
	if c.Gemini.Timeout == 0 {
		c.Gemini.Timeout = 30 * time.Second
	}
	if c.Geocoder.BaseURL == "" {
		c.Geocoder.BaseURL = "https://nominatim.openstreetmap.org"
	}
	if c.Geocoder.UserAgent == "" {
		c.Geocoder.UserAgent = "wateralert_app"
	}
	if c.Geocoder.RequestsPerSecond == 0 {
		c.Geocoder.RequestsPerSecond = 1 // Nominatim usage policy
	}
	if c.Geocoder.Timeout == 0 {
		c.Geocoder.Timeout = 10 * time.Second
	}
	if c.Photos.Dir == "" {
		c.Photos.Dir = "./uploads"
	}
	if c.Sessions.TTL == 0 {
		c.Sessions.TTL = 24 * time.Hour
	}
	if c.Sessions.Sweep == "" {
		c.Sessions.Sweep = "@every 10m"
	}
	if c.Notifications.Timeout == 0 {
		c.Notifications.Timeout = 20 * time.Second
	}
	if c.Server.Port == "" {
		c.Server.Port = "8000"
	}
}

// Validate checks the settings the application cannot start without.
func (c *Config) Validate() error {
	if c.Telegram.Token == "" || c.Telegram.Token == "YOUR_TOKEN_HERE" {
		return errors.New("telegram.token is not configured (set TELEGRAM_BOT_TOKEN)")
	}
	switch c.Database.Type {
	case DatabasePostgres:
		if c.Database.URL == "" {
			return errors.New("database.url is required for postgres")
		}
	case DatabaseSQLite:
	default:
		return fmt.Errorf("unknown database type %q", c.Database.Type)
	}
	return nil
}

// SimulatedClassifier reports whether no Gemini key is configured.
func (c *Config) SimulatedClassifier() bool {
	return c.Gemini.APIKey == "" || c.Gemini.APIKey == "YOUR_API_KEY_HERE"
}
