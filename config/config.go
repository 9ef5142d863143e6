package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/viper"
)

// Config is the top-level application configuration.
type Config struct {
	Server     ServerConfig     `mapstructure:"server"`
	Log        LogConfig        `mapstructure:"log"`
	DB         DBConfig         `mapstructure:"db"`
	Recognizer RecognizerConfig `mapstructure:"recognizer"`
	Session    SessionConfig    `mapstructure:"session"`
	MQTT       MQTTConfig       `mapstructure:"mqtt"`
	CORS       CORSConfig       `mapstructure:"cors"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host    string `mapstructure:"host"`
	Port    int    `mapstructure:"port"`
	DataDir string `mapstructure:"data_dir"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level string `mapstructure:"level"`
	File  string `mapstructure:"file"`
}

// DBConfig holds database settings (SQLite file path).
type DBConfig struct {
	File string `mapstructure:"file"`
}

// RecognizerConfig holds settings for the external face recognizer service.
type RecognizerConfig struct {
	Enabled   bool   `mapstructure:"enabled"`
	URL       string `mapstructure:"url"`
	TimeoutMs int    `mapstructure:"timeout_ms"`
}

// SessionConfig holds settings for the in-memory recognition sessions.
type SessionConfig struct {
	// IdleTTLMinutes controls when an untouched session's dedup state is
	// evicted by the cleanup service. 0 disables eviction.
	IdleTTLMinutes int `mapstructure:"idle_ttl_minutes"`
	// CookieSecret signs the browser session cookie used as the default
	// session token when the client does not supply one.
	CookieSecret string `mapstructure:"cookie_secret"`
}

// MQTTConfig holds the MQTT publisher connection settings.
type MQTTConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Broker   string `mapstructure:"broker"`
	Port     int    `mapstructure:"port"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
	ClientID string `mapstructure:"client_id"`
	Topic    string `mapstructure:"topic"`
}

// CORSConfig holds browser cross-origin settings for the dashboard.
type CORSConfig struct {
	AllowOrigins []string `mapstructure:"allow_origins"`
}

// Load reads configuration from file, environment variables and defaults.
func Load(configPath string) (*Config, error) {
	v := viper.New()

	setDefaults(v)

	if configPath != "" {
		if _, err := os.Stat(configPath); os.IsNotExist(err) {
			log.Warnf("Config file %s does not exist, using defaults", configPath)
		} else {
			v.SetConfigFile(configPath)
			if err := v.ReadInConfig(); err != nil {
				return nil, fmt.Errorf("failed to read config file: %w", err)
			}
			log.Infof("Config loaded from %s", configPath)
		}
	}

	// Environment variables overlay the file configuration.
	v.AutomaticEnv()
	v.SetEnvPrefix("FACETRACK")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := ensureDirectories(&cfg); err != nil {
		return nil, fmt.Errorf("failed to create required directories: %w", err)
	}

	return &cfg, nil
}

// setDefaults establishes the default configuration values.
func setDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 3000)
	v.SetDefault("server.data_dir", "/data")

	// Log defaults
	v.SetDefault("log.level", "info")
	v.SetDefault("log.file", "/data/logs/facetrack.log")

	// DB defaults
	v.SetDefault("db.file", "/data/facetrack.db")

	// Recognizer defaults
	v.SetDefault("recognizer.enabled", true)
	v.SetDefault("recognizer.url", "http://localhost:8000")
	v.SetDefault("recognizer.timeout_ms", 5000)

	// Session defaults
	v.SetDefault("session.idle_ttl_minutes", 720)
	v.SetDefault("session.cookie_secret", "facetrack-session-secret")

	// MQTT defaults
	v.SetDefault("mqtt.enabled", false)
	v.SetDefault("mqtt.port", 1883)
	v.SetDefault("mqtt.client_id", "facetrack-go")
	v.SetDefault("mqtt.topic", "facetrack/events")

	// CORS defaults
	v.SetDefault("cors.allow_origins", []string{"*"})
}

// ensureDirectories makes sure all required directories exist.
func ensureDirectories(cfg *Config) error {
	if cfg.Server.DataDir != "" {
		if err := os.MkdirAll(cfg.Server.DataDir, 0755); err != nil {
			return fmt.Errorf("failed to create data directory: %w", err)
		}
	}

	if cfg.Log.File != "" {
		logDir := filepath.Dir(cfg.Log.File)
		if err := os.MkdirAll(logDir, 0755); err != nil {
			return fmt.Errorf("failed to create log directory: %w", err)
		}
	}

	if cfg.DB.File != "" {
		dbDir := filepath.Dir(cfg.DB.File)
		if err := os.MkdirAll(dbDir, 0755); err != nil {
			return fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	return nil
}
