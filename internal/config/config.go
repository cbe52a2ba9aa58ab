// Package config loads the scan gateway configuration from a YAML file with
// .env and environment variable overrides.
package config

import (
	"time"
)

// Default configuration values.
const (
	defaultServiceName  = "scan-gateway"
	defaultServicePort  = 8097
	defaultVersion      = "0.1.0"
	defaultLoggingLevel = "info"
	defaultLoggingFmt   = "json"
	defaultRedisAddress = "localhost:6379"
	defaultDailyLimit   = 10

	defaultScannerBaseURL       = "https://safebrowsing.googleapis.com/v4/threatMatches:find"
	defaultScannerClientID      = "scan-gateway"
	defaultScannerTimeoutS      = 10
	defaultMaxRequestsPerMinute = 30
	defaultWindowSeconds        = 60
)

// Config holds the application configuration.
type Config struct {
	Service   ServiceConfig   `yaml:"service"`
	Auth      AuthConfig      `yaml:"auth"`
	Redis     RedisConfig     `yaml:"redis"`
	Quota     QuotaConfig     `yaml:"quota"`
	Scanner   ScannerConfig   `yaml:"scanner"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
	CORS      CORSConfig      `yaml:"cors"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// ServiceConfig holds service-level configuration.
type ServiceConfig struct {
	Name    string `yaml:"name"`
	Version string `yaml:"version"`
	Port    int    `env:"SCAN_GATEWAY_PORT" yaml:"port"`
	Debug   bool   `env:"APP_DEBUG"         yaml:"debug"`
}

// AuthConfig holds bearer-credential verification configuration.
type AuthConfig struct {
	JWTSecret string `env:"SCAN_GATEWAY_JWT_SECRET" yaml:"jwt_secret"`
}

// RedisConfig holds the quota store connection configuration.
type RedisConfig struct {
	Address  string `env:"REDIS_ADDRESS"  yaml:"address"`
	Password string `env:"REDIS_PASSWORD" yaml:"password"`
	DB       int    `env:"REDIS_DB"       yaml:"db"`
}

// QuotaConfig holds the per-user daily scan quota.
type QuotaConfig struct {
	DailyLimit int `env:"SCAN_QUOTA_PER_DAY" yaml:"daily_limit"`
}

// ScannerConfig holds the threat lookup client configuration.
type ScannerConfig struct {
	APIKey        string        `env:"SAFE_BROWSING_API_KEY" yaml:"api_key"`
	BaseURL       string        `env:"SAFE_BROWSING_URL"     yaml:"base_url"`
	ClientID      string        `yaml:"client_id"`
	ClientVersion string        `yaml:"client_version"`
	Timeout       time.Duration `yaml:"timeout"`
}

// RateLimitConfig holds the per-IP pre-filter configuration.
type RateLimitConfig struct {
	MaxRequestsPerMinute int `yaml:"max_requests_per_minute"`
	WindowSeconds        int `yaml:"window_seconds"`
}

// CORSConfig holds the allowed origins for the extension frontend.
type CORSConfig struct {
	AllowedOrigins []string `env:"ALLOWED_ORIGINS" yaml:"allowed_origins"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level  string `env:"LOG_LEVEL"  yaml:"level"`
	Format string `env:"LOG_FORMAT" yaml:"format"`
}

// setDefaults applies default values to the config.
func setDefaults(cfg *Config) {
	if cfg.Service.Name == "" {
		cfg.Service.Name = defaultServiceName
	}
	if cfg.Service.Version == "" {
		cfg.Service.Version = defaultVersion
	}
	if cfg.Service.Port == 0 {
		cfg.Service.Port = defaultServicePort
	}
	if cfg.Redis.Address == "" {
		cfg.Redis.Address = defaultRedisAddress
	}
	if cfg.Quota.DailyLimit == 0 {
		cfg.Quota.DailyLimit = defaultDailyLimit
	}
	if cfg.Scanner.BaseURL == "" {
		cfg.Scanner.BaseURL = defaultScannerBaseURL
	}
	if cfg.Scanner.ClientID == "" {
		cfg.Scanner.ClientID = defaultScannerClientID
	}
	if cfg.Scanner.ClientVersion == "" {
		cfg.Scanner.ClientVersion = cfg.Service.Version
	}
	if cfg.Scanner.Timeout == 0 {
		cfg.Scanner.Timeout = defaultScannerTimeoutS * time.Second
	}
	if cfg.RateLimit.MaxRequestsPerMinute == 0 {
		cfg.RateLimit.MaxRequestsPerMinute = defaultMaxRequestsPerMinute
	}
	if cfg.RateLimit.WindowSeconds == 0 {
		cfg.RateLimit.WindowSeconds = defaultWindowSeconds
	}
	if len(cfg.CORS.AllowedOrigins) == 0 {
		cfg.CORS.AllowedOrigins = []string{"*"}
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = defaultLoggingLevel
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = defaultLoggingFmt
	}
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if err := validatePort("service.port", c.Service.Port); err != nil {
		return err
	}
	if c.Auth.JWTSecret == "" {
		return &ValidationError{Field: "auth.jwt_secret", Message: "is required"}
	}
	if c.Scanner.APIKey == "" {
		return &ValidationError{Field: "scanner.api_key", Message: "is required"}
	}
	if c.Quota.DailyLimit < 1 {
		return &ValidationError{Field: "quota.daily_limit", Message: "must be positive"}
	}
	if c.Redis.Address == "" {
		return &ValidationError{Field: "redis.address", Message: "is required"}
	}
	if err := validateLogLevel(c.Logging.Level); err != nil {
		return err
	}
	return nil
}
