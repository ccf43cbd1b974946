// Package config handles loading and validating the application configuration
// from YAML files with environment variable substitution.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the top-level application configuration.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Database  DatabaseConfig  `yaml:"database"`
	Tracker   TrackerConfig   `yaml:"tracker"`
	SMTP      SMTPConfig      `yaml:"smtp"`
	Auth      AuthConfig      `yaml:"auth"`
	RateLimit RateLimitConfig `yaml:"ratelimit"`
	Logging   LoggingConfig   `yaml:"logging"`

	// Hostname is the external base URL used when building activation links.
	Hostname string `yaml:"hostname"`
}

// ServerConfig defines the Echo HTTP server settings.
type ServerConfig struct {
	Host         string        `yaml:"host"`
	Port         int           `yaml:"port"`
	ReadTimeout  time.Duration `yaml:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
}

// DatabaseConfig defines PostgreSQL connection settings.
type DatabaseConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Name     string `yaml:"name"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	SSLMode  string `yaml:"sslmode"`
	PoolSize int    `yaml:"pool_size"`
}

// DSN returns a PostgreSQL connection string.
func (d *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d dbname=%s user=%s password=%s sslmode=%s",
		d.Host, d.Port, d.Name, d.User, d.Password, d.SSLMode,
	)
}

// TrackerConfig defines the price-tracking pipeline settings.
type TrackerConfig struct {
	FetchTimeout  time.Duration `yaml:"fetch_timeout"`
	CheckInterval time.Duration `yaml:"check_interval"`
	StaggerOffset time.Duration `yaml:"stagger_offset"`

	// NotifyQuota is the maximum notifications a subscriber receives before
	// a price rise above their threshold resets the counter.
	NotifyQuota int `yaml:"notify_quota"`

	// NotifyWindow is the minimum gap between notifications to the same
	// subscriber, measured against the snapshot timestamp.
	NotifyWindow time.Duration `yaml:"notify_window"`
}

// SMTPConfig defines outgoing email settings. When Enabled is false emails
// are logged instead of sent and new accounts are activated immediately.
type SMTPConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	From     string `yaml:"from"`
}

// Addr returns the host:port address of the SMTP server.
func (s *SMTPConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// AuthConfig defines token issuance settings.
type AuthConfig struct {
	TokenSecret string `yaml:"token_secret"`

	// TokenTTL is the lifetime of an access token.
	TokenTTL time.Duration `yaml:"token_ttl"`

	// LoginValidPeriod bounds how long after the last login an expired
	// token may still be refreshed.
	LoginValidPeriod time.Duration `yaml:"login_valid_period"`

	// ActivationTTL is the lifetime of an account activation token.
	ActivationTTL time.Duration `yaml:"activation_ttl"`
}

// RateLimitConfig defines registration rate limiting settings.
type RateLimitConfig struct {
	RegisterPerHour float64 `yaml:"register_per_hour"`
	Burst           int     `yaml:"burst"`
}

// LoggingConfig defines logging settings.
type LoggingConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // text, json
}

// Load reads and parses a YAML config file, performing environment variable
// substitution and validation.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path) //nolint:gosec // config path from trusted CLI flag
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	// Expand environment variables in the YAML content.
	expanded := os.ExpandEnv(string(data))

	cfg := &Config{}
	if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
		return nil, fmt.Errorf("parsing config YAML: %w", err)
	}

	applyDefaults(cfg)

	if err := validate(cfg); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

func applyDefaults(cfg *Config) {
	applyServerDefaults(&cfg.Server)
	applyDatabaseDefaults(&cfg.Database)
	applyTrackerDefaults(&cfg.Tracker)
	applySMTPDefaults(&cfg.SMTP)
	applyAuthDefaults(&cfg.Auth)
	applyRateLimitDefaults(&cfg.RateLimit)
	applyLoggingDefaults(&cfg.Logging)

	if cfg.Hostname == "" {
		cfg.Hostname = fmt.Sprintf("http://%s:%d", cfg.Server.Host, cfg.Server.Port)
	}
}

func applyServerDefaults(s *ServerConfig) {
	if s.Host == "" {
		s.Host = "0.0.0.0"
	}
	if s.Port == 0 {
		s.Port = 8080
	}
	if s.ReadTimeout == 0 {
		s.ReadTimeout = 30 * time.Second
	}
	if s.WriteTimeout == 0 {
		s.WriteTimeout = 30 * time.Second
	}
}

func applyDatabaseDefaults(d *DatabaseConfig) {
	if d.Port == 0 {
		d.Port = 5432
	}
	if d.SSLMode == "" {
		d.SSLMode = "disable"
	}
	if d.PoolSize == 0 {
		d.PoolSize = 10
	}
}

func applyTrackerDefaults(t *TrackerConfig) {
	if t.FetchTimeout == 0 {
		t.FetchTimeout = 15 * time.Second
	}
	if t.CheckInterval == 0 {
		t.CheckInterval = time.Hour
	}
	if t.StaggerOffset == 0 {
		t.StaggerOffset = 2 * time.Second
	}
	if t.NotifyQuota == 0 {
		t.NotifyQuota = 3
	}
	if t.NotifyWindow == 0 {
		t.NotifyWindow = 24 * time.Hour
	}
}

func applySMTPDefaults(s *SMTPConfig) {
	if s.Port == 0 {
		s.Port = 587
	}
}

func applyAuthDefaults(a *AuthConfig) {
	if a.TokenTTL == 0 {
		a.TokenTTL = time.Hour
	}
	if a.LoginValidPeriod == 0 {
		a.LoginValidPeriod = 30 * 24 * time.Hour
	}
	if a.ActivationTTL == 0 {
		a.ActivationTTL = 72 * time.Hour
	}
}

func applyRateLimitDefaults(r *RateLimitConfig) {
	if r.RegisterPerHour == 0 {
		r.RegisterPerHour = 50
	}
	if r.Burst == 0 {
		r.Burst = 5
	}
}

func applyLoggingDefaults(l *LoggingConfig) {
	if l.Level == "" {
		l.Level = "info"
	}
	if l.Format == "" {
		l.Format = "text"
	}
}

func validate(cfg *Config) error {
	var errs []error

	if cfg.Database.Host == "" {
		errs = append(errs, fmt.Errorf("database.host is required"))
	}
	if cfg.Database.Name == "" {
		errs = append(errs, fmt.Errorf("database.name is required"))
	}
	if cfg.Database.User == "" {
		errs = append(errs, fmt.Errorf("database.user is required"))
	}

	if cfg.Auth.TokenSecret == "" {
		errs = append(errs, fmt.Errorf("auth.token_secret is required"))
	}

	if cfg.SMTP.Enabled {
		if cfg.SMTP.Host == "" {
			errs = append(errs, fmt.Errorf("smtp.host is required when smtp is enabled"))
		}
		if cfg.SMTP.From == "" {
			errs = append(errs, fmt.Errorf("smtp.from is required when smtp is enabled"))
		}
	}

	return errors.Join(errs...)
}
