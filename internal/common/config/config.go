package config

import (
	"os"
	"regexp"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/harisabid200/ChatFlowUI/internal/common/cnst"
)

type (
	// Config is the full server configuration.
	Config struct {
		Server    ServerConfig    `yaml:"server"`
		Logger    LoggerConfig    `yaml:"logger"`
		Database  DatabaseConfig  `yaml:"database"`
		RateLimit RateLimitConfig `yaml:"rate_limit"`
		CORS      CORSConfig      `yaml:"cors"`
		WebSocket WebSocketConfig `yaml:"websocket"`
		Forwarder ForwarderConfig `yaml:"forwarder"`
		Metrics   MetricsConfig   `yaml:"metrics"`
	}

	ServerConfig struct {
		Host     string `yaml:"host"`
		Port     int    `yaml:"port"`
		BasePath string `yaml:"base_path"` // prefix for all HTTP routes, "" for root
		Env      string `yaml:"env"`       // development or production
	}

	// LoggerConfig represents the logger configuration
	LoggerConfig struct {
		Level      string `yaml:"level"`       // debug, info, warn, error
		Format     string `yaml:"format"`      // json, console
		Output     string `yaml:"output"`      // stdout, file
		FilePath   string `yaml:"file_path"`   // path to log file when output is file
		MaxSize    int    `yaml:"max_size"`    // max size of log file in MB
		MaxBackups int    `yaml:"max_backups"` // max number of backup files
		MaxAge     int    `yaml:"max_age"`     // max age of backup files in days
		Compress   bool   `yaml:"compress"`    // whether to compress backup files
		Color      bool   `yaml:"color"`       // whether to use color in console output
		Stacktrace bool   `yaml:"stacktrace"`  // whether to include stacktrace in error logs
	}

	DatabaseConfig struct {
		Type     string `yaml:"type"`     // mysql, postgres, sqlite
		Host     string `yaml:"host"`     // localhost
		Port     int    `yaml:"port"`     // 3306 (for mysql), 5432 (for postgres)
		User     string `yaml:"user"`     // root (for mysql), postgres (for postgres)
		Password string `yaml:"password"` // password
		DBName   string `yaml:"dbname"`   // database name, file path for sqlite
		SSLMode  string `yaml:"sslmode"`  // disable (for postgres)
	}

	// RateLimitConfig configures the fixed-window counter store and the
	// per-bucket limits applied by the HTTP middleware.
	RateLimitConfig struct {
		Type          string        `yaml:"type"` // memory or redis
		Redis         RedisConfig   `yaml:"redis"`
		Window        time.Duration `yaml:"window"`         // counter window, default 60s
		APIMax        int           `yaml:"api_max"`        // admin-facing API requests per window
		WidgetMax     int           `yaml:"widget_max"`     // widget messages per IP per window
		WebhookMax    int           `yaml:"webhook_max"`    // webhook callbacks per IP per window
		SweepInterval time.Duration `yaml:"sweep_interval"` // expired-counter eviction interval
	}

	RedisConfig struct {
		Addr     string `yaml:"addr"`
		Username string `yaml:"username"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
		Prefix   string `yaml:"prefix"`
	}

	// CORSConfig holds the operator-level origin policy. Per-chatbot origins
	// live in the database.
	CORSConfig struct {
		AdminOrigin    string   `yaml:"admin_origin"`    // origin of the admin dashboard
		AllowedOrigins []string `yaml:"allowed_origins"` // global allow-list, highest precedence
	}

	WebSocketConfig struct {
		Path string `yaml:"path"` // realtime endpoint path, default /socket.io
	}

	ForwarderConfig struct {
		Timeout time.Duration `yaml:"timeout"` // outbound webhook call timeout
	}

	MetricsConfig struct {
		Enabled   bool      `yaml:"enabled"`
		Namespace string    `yaml:"namespace"`
		Buckets   []float64 `yaml:"buckets"`
	}
)

// IsProduction reports whether the server runs with the production profile.
func (c *ServerConfig) IsProduction() bool {
	return c.Env == cnst.EnvProduction
}

// Load loads configuration from a YAML file with environment variable support.
func Load(path string) (*Config, error) {
	// Load .env file if exists
	_ = godotenv.Load()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	// Resolve environment variables
	data = resolveEnv(data)
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	cfg.setDefaults()
	return &cfg, nil
}

// Default returns a configuration with all defaults applied, used when no
// config file is present.
func Default() *Config {
	cfg := &Config{}
	cfg.setDefaults()
	return cfg
}

func (c *Config) setDefaults() {
	if c.Server.Host == "" {
		c.Server.Host = "0.0.0.0"
	}
	if c.Server.Port == 0 {
		c.Server.Port = 7861
	}
	if c.Server.Env == "" {
		c.Server.Env = cnst.EnvDevelopment
	}
	if c.Database.Type == "" {
		c.Database.Type = "sqlite"
	}
	if c.Database.DBName == "" {
		c.Database.DBName = "data/chatflowui.db"
	}
	if c.RateLimit.Type == "" {
		c.RateLimit.Type = "memory"
	}
	if c.RateLimit.Window <= 0 {
		c.RateLimit.Window = time.Minute
	}
	if c.RateLimit.APIMax <= 0 {
		c.RateLimit.APIMax = 100
	}
	if c.RateLimit.WidgetMax <= 0 {
		c.RateLimit.WidgetMax = 30
	}
	if c.RateLimit.WebhookMax <= 0 {
		c.RateLimit.WebhookMax = 60
	}
	if c.RateLimit.SweepInterval <= 0 {
		c.RateLimit.SweepInterval = 5 * time.Minute
	}
	if c.WebSocket.Path == "" {
		c.WebSocket.Path = "/socket.io"
	}
	if c.Forwarder.Timeout <= 0 {
		c.Forwarder.Timeout = 30 * time.Second
	}
	if c.Metrics.Namespace == "" {
		c.Metrics.Namespace = "chatflowui"
	}
}

// resolveEnv replaces environment variable placeholders in YAML content
func resolveEnv(content []byte) []byte {
	regex := regexp.MustCompile(`\$\{(\w+)(?::([^}]*))?\}`)

	return regex.ReplaceAllFunc(content, func(match []byte) []byte {
		matches := regex.FindSubmatch(match)
		envKey := string(matches[1])
		var defaultValue string

		if len(matches) > 2 {
			defaultValue = string(matches[2])
		}

		if value, exists := os.LookupEnv(envKey); exists {
			return []byte(value)
		}
		return []byte(defaultValue)
	})
}
