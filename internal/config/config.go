package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for Go-Live Buddy
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Admin     AdminConfig     `mapstructure:"admin"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Storage   StorageConfig   `mapstructure:"storage"`
	Backend   BackendConfig   `mapstructure:"backend"`
	Analytics AnalyticsConfig `mapstructure:"analytics"`
}

// ServerConfig holds server configuration
type ServerConfig struct {
	Host    string `mapstructure:"host"`
	Port    int    `mapstructure:"port"`
	BaseURL string `mapstructure:"base_url"`
}

// AdminConfig holds admin authentication configuration
type AdminConfig struct {
	APIKey string `mapstructure:"api_key"`
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Path string `mapstructure:"path"`
}

// StorageConfig holds session persistence configuration
type StorageConfig struct {
	SessionKey string `mapstructure:"session_key"`
	FramesDir  string `mapstructure:"frames_dir"`
}

// BackendConfig holds the retrieval/LLM backend configuration
type BackendConfig struct {
	BaseURL          string `mapstructure:"base_url"`
	ChatPath         string `mapstructure:"chat_path"`
	TicketPath       string `mapstructure:"ticket_path"`
	PulsePath        string `mapstructure:"pulse_path"`
	IngestPath       string `mapstructure:"ingest_path"`
	TimeoutSeconds   int    `mapstructure:"timeout_seconds"`
	DefaultNamespace string `mapstructure:"default_namespace"`
}

// AnalyticsConfig holds pulse analytics configuration
type AnalyticsConfig struct {
	Enabled    bool `mapstructure:"enabled"`
	QueryLimit int  `mapstructure:"query_limit"`
}

// Load loads configuration from file and environment
func Load(configPath string) (*Config, error) {
	v := viper.New()

	setDefaults(v)

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
	}

	v.SetEnvPrefix("GOLIVEBUDDY")
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
		// Config file not found, use defaults
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.base_url", "http://localhost:8080")

	v.SetDefault("admin.api_key", "")

	v.SetDefault("database.path", "./data/golivebuddy.db")
	v.SetDefault("storage.session_key", "golivebuddy.sessions")
	v.SetDefault("storage.frames_dir", "./data/frames")

	v.SetDefault("backend.base_url", "http://localhost:8000")
	v.SetDefault("backend.chat_path", "/api/chat")
	v.SetDefault("backend.ticket_path", "/api/submit-ticket")
	v.SetDefault("backend.pulse_path", "/api/generate-pulse")
	v.SetDefault("backend.ingest_path", "/api/ingest")
	v.SetDefault("backend.timeout_seconds", 120)
	v.SetDefault("backend.default_namespace", "sap-pack")

	v.SetDefault("analytics.enabled", true)
	v.SetDefault("analytics.query_limit", 200)
}

// Address returns the server address
func (c *Config) Address() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

// BackendTimeout returns the backend call timeout
func (c *Config) BackendTimeout() time.Duration {
	return time.Duration(c.Backend.TimeoutSeconds) * time.Second
}
