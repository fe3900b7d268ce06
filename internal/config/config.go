package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for AskChat
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Upstream UpstreamConfig `mapstructure:"upstream"`
	Stream   StreamConfig   `mapstructure:"stream"`
	Display  DisplayConfig  `mapstructure:"display"`
	Welcome  WelcomeConfig  `mapstructure:"welcome"`
	Database DatabaseConfig `mapstructure:"database"`
	Logging  LoggingConfig  `mapstructure:"logging"`
}

// ServerConfig holds the local gateway configuration
type ServerConfig struct {
	Host         string   `mapstructure:"host"`
	Port         int      `mapstructure:"port"`
	APIKey       string   `mapstructure:"api_key"`
	AllowOrigins []string `mapstructure:"allow_origins"`
}

// UpstreamConfig holds the chat backend configuration
type UpstreamConfig struct {
	BaseURL        string        `mapstructure:"base_url"`
	ChatPath       string        `mapstructure:"chat_path"`
	LoginPath      string        `mapstructure:"login_path"`
	UserInfoPath   string        `mapstructure:"userinfo_path"`
	ConnectTimeout time.Duration `mapstructure:"connect_timeout"`
}

// StreamConfig holds stream decoding configuration
type StreamConfig struct {
	// Mode is "snapshot" or "chunked" and applies to reasoning events
	Mode            string `mapstructure:"mode"`
	StrictUTF8      bool   `mapstructure:"strict_utf8"`
	CollapseRepeats bool   `mapstructure:"collapse_repeats"`
	ReadBuffer      int    `mapstructure:"read_buffer"`
}

// DisplayConfig controls what renderers show
type DisplayConfig struct {
	ShowProcess    bool `mapstructure:"show_process"`
	ShowReferences bool `mapstructure:"show_references"`
}

// WelcomeConfig holds the empty-conversation greeting
type WelcomeConfig struct {
	Title   string `mapstructure:"title"`
	Message string `mapstructure:"message"`
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Path string `mapstructure:"path"`
}

// LoggingConfig holds logger configuration
type LoggingConfig struct {
	Level       string `mapstructure:"level"`
	Development bool   `mapstructure:"development"`
}

// Load loads configuration from file and environment
func Load(configPath string) (*Config, error) {
	return LoadWith(viper.New(), configPath)
}

// LoadWith loads configuration into v, which may already carry bound flags
func LoadWith(v *viper.Viper, configPath string) (*Config, error) {
	// Set defaults
	setDefaults(v)

	// Read config file if specified
	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
	}

	// Environment variables
	v.SetEnvPrefix("ASKCHAT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Read config
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

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "127.0.0.1")
	v.SetDefault("server.port", 3000)
	v.SetDefault("server.api_key", "")
	v.SetDefault("server.allow_origins", []string{"*"})

	v.SetDefault("upstream.base_url", "http://127.0.0.1:8000")
	v.SetDefault("upstream.chat_path", "/api/chat/stream")
	v.SetDefault("upstream.login_path", "/api/user/login")
	v.SetDefault("upstream.userinfo_path", "/api/userinfo")
	v.SetDefault("upstream.connect_timeout", 30*time.Second)

	v.SetDefault("stream.mode", "snapshot")
	v.SetDefault("stream.strict_utf8", true)
	v.SetDefault("stream.collapse_repeats", false)
	v.SetDefault("stream.read_buffer", 4096)

	v.SetDefault("display.show_process", true)
	v.SetDefault("display.show_references", true)

	v.SetDefault("welcome.title", "Welcome to AskChat")
	v.SetDefault("welcome.message", "Start a new conversation by sending a message.")

	v.SetDefault("database.path", "./data/askchat.db")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.development", false)
}

// Validate rejects values the client cannot work with
func (c *Config) Validate() error {
	if c.Upstream.BaseURL == "" {
		return fmt.Errorf("upstream.base_url is required")
	}
	switch strings.ToLower(c.Stream.Mode) {
	case "", "snapshot", "chunked":
	default:
		return fmt.Errorf("stream.mode must be snapshot or chunked, got %q", c.Stream.Mode)
	}
	if c.Stream.ReadBuffer < 0 {
		return fmt.Errorf("stream.read_buffer must not be negative")
	}
	return nil
}

// Address returns the server address
func (c *Config) Address() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

// Endpoint joins path onto the upstream base URL
func (c *Config) Endpoint(path string) string {
	return strings.TrimRight(c.Upstream.BaseURL, "/") + "/" + strings.TrimLeft(path, "/")
}
