package config

import (
	"errors"
	"fmt"
	"time"
)

// Rate limiter backends.
const (
	RateLimitMemory = "memory"
	RateLimitRedis  = "redis"
)

// RateLimit configures the message submission limiter.
type RateLimit struct {
	Backend  string        `mapstructure:"backend" yaml:"backend"`
	Window   time.Duration `mapstructure:"window" yaml:"window"`
	Max      int           `mapstructure:"max" yaml:"max"`
	AuthMax  int           `mapstructure:"auth_max" yaml:"auth_max"`
	RedisURL string        `mapstructure:"redis_url" yaml:"redis_url"`
}

// AccessHours restricts API access to a daily [StartHour, EndHour) interval.
type AccessHours struct {
	Enabled   bool `mapstructure:"enabled" yaml:"enabled"`
	StartHour int  `mapstructure:"start_hour" yaml:"start_hour"`
	EndHour   int  `mapstructure:"end_hour" yaml:"end_hour"`
}

// Config holds server configuration values.
type Config struct {
	Addr              string        `mapstructure:"addr" yaml:"addr"`
	ReadHeaderTimeout time.Duration `mapstructure:"read_header_timeout" yaml:"read_header_timeout"`
	ShutdownTimeout   time.Duration `mapstructure:"shutdown_timeout" yaml:"shutdown_timeout"`
	LogLevel          string        `mapstructure:"log_level" yaml:"log_level"`
	DatabasePath      string        `mapstructure:"database_path" yaml:"database_path"`
	JWTSecret         string        `mapstructure:"jwt_secret" yaml:"jwt_secret"`
	JWTIssuer         string        `mapstructure:"jwt_issuer" yaml:"jwt_issuer"`
	JWTAudience       string        `mapstructure:"jwt_audience" yaml:"jwt_audience"`
	JWTTTL            time.Duration `mapstructure:"jwt_ttl" yaml:"jwt_ttl"`
	PageSize          int           `mapstructure:"page_size" yaml:"page_size"`
	RateLimit         RateLimit     `mapstructure:"rate_limit" yaml:"rate_limit"`
	AccessHours       AccessHours   `mapstructure:"access_hours" yaml:"access_hours"`
}

// Default returns configuration with reasonable starter defaults.
func Default() Config {
	return Config{
		Addr:              ":8080",
		ReadHeaderTimeout: 5 * time.Second,
		ShutdownTimeout:   5 * time.Second,
		LogLevel:          "info",
		DatabasePath:      "wiremsg.db",
		JWTSecret:         "change-me-in-production",
		JWTIssuer:         "wiremsg",
		JWTTTL:            24 * time.Hour,
		PageSize:          20,
		RateLimit: RateLimit{
			Backend: RateLimitMemory,
			Window:  time.Minute,
			Max:     5,
			AuthMax: 20,
		},
		AccessHours: AccessHours{
			StartHour: 9,
			EndHour:   17,
		},
	}
}

// UpdateFrom overwrites non-zero values from other config into receiver.
func (c *Config) UpdateFrom(other Config) {
	if other.Addr != "" {
		c.Addr = other.Addr
	}
	if other.ReadHeaderTimeout != 0 {
		c.ReadHeaderTimeout = other.ReadHeaderTimeout
	}
	if other.ShutdownTimeout != 0 {
		c.ShutdownTimeout = other.ShutdownTimeout
	}
	if other.LogLevel != "" {
		c.LogLevel = other.LogLevel
	}
	if other.DatabasePath != "" {
		c.DatabasePath = other.DatabasePath
	}
}

// Validate reports settings the server cannot start with.
func (c Config) Validate() error {
	var errs []error
	if c.JWTSecret == "" {
		errs = append(errs, errors.New("jwt_secret is required"))
	}
	if c.PageSize <= 0 {
		errs = append(errs, fmt.Errorf("page_size must be positive, got %d", c.PageSize))
	}
	switch c.RateLimit.Backend {
	case RateLimitMemory:
	case RateLimitRedis:
		if c.RateLimit.RedisURL == "" {
			errs = append(errs, errors.New("rate_limit.redis_url is required for the redis backend"))
		}
	default:
		errs = append(errs, fmt.Errorf("rate_limit.backend %q is not one of memory, redis", c.RateLimit.Backend))
	}
	if c.AccessHours.Enabled {
		h := c.AccessHours
		if h.StartHour < 0 || h.StartHour > 23 || h.EndHour < 1 || h.EndHour > 24 || h.StartHour >= h.EndHour {
			errs = append(errs, fmt.Errorf("access_hours %d-%d is not a valid interval", h.StartHour, h.EndHour))
		}
	}
	return errors.Join(errs...)
}
