// Package config provides configuration management for the application.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net"
	"os"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/labstack/gommon/bytes"
	"github.com/spf13/viper"
)

// Config holds the application configuration
type Config struct {
	Server  ServerConfig
	Logging LogConfig
	Metrics MetricsConfig
	HTTP    HTTPConfig
	Service ServiceConfig
}

// ServerConfig holds HTTP listener configuration
type ServerConfig struct {
	Host string
	Port int
}

// Addr returns the host:port listen address.
func (s ServerConfig) Addr() string {
	return net.JoinHostPort(s.Host, strconv.Itoa(s.Port))
}

// LogConfig holds logger configuration
type LogConfig struct {
	Level  string // DEBUG, INFO, WARN or ERROR
	Format string // text or json
	File   string // optional file receiving a copy of every record
}

// MetricsConfig holds Prometheus exposition configuration
type MetricsConfig struct {
	Enabled  bool
	Endpoint string
}

// HTTPConfig holds request handling limits
type HTTPConfig struct {
	BodySizeLimit     int64
	RateLimitRPS      float64
	RateLimitBurst    int
	RequireChatAPIKey bool
}

// ServiceConfig holds the simulated AI service settings
type ServiceConfig struct {
	RetryMaxAttempts  int
	RetryDelay        time.Duration
	ModelInfoCacheTTL time.Duration
	SimulateLatency   bool
}

// Options controls where Load looks for configuration.
type Options struct {
	// EnvFile is loaded into the process environment when present.
	EnvFile string
	// ConfigDirs are searched for an optional config.yaml.
	ConfigDirs []string
}

// DefaultOptions reads .env and config.yaml from the working directory or ./config.
func DefaultOptions() Options {
	return Options{
		EnvFile:    ".env",
		ConfigDirs: []string{".", "./config"},
	}
}

var defaults = map[string]string{
	"API_HOST":             "localhost",
	"API_PORT":             "8000",
	"LOG_LEVEL":            "INFO",
	"LOG_FORMAT":           "text",
	"LOG_FILE":             "",
	"METRICS_ENABLED":      "true",
	"METRICS_ENDPOINT":     "/metrics",
	"BODY_SIZE_LIMIT":      "1MB",
	"RATE_LIMIT_RPS":       "0",
	"RATE_LIMIT_BURST":     "10",
	"CHAT_REQUIRE_API_KEY": "false",
	"RETRY_MAX_ATTEMPTS":   "3",
	"RETRY_DELAY":          "1s",
	"MODEL_INFO_CACHE_TTL": "60s",
	"SIMULATE_LATENCY":     "true",
}

// Load reads configuration from .env, config.yaml and environment
func Load() (*Config, error) {
	return LoadWithOptions(DefaultOptions())
}

// LoadWithOptions is Load with explicit file locations. Precedence, highest
// first: process environment, .env, config.yaml, defaults.
func LoadWithOptions(opts Options) (*Config, error) {
	if opts.EnvFile != "" {
		// godotenv never overrides variables already set in the environment
		if err := godotenv.Load(opts.EnvFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("failed to load %s: %w", opts.EnvFile, err)
		}
	}

	v := viper.New()
	for key, value := range defaults {
		v.SetDefault(key, value)
	}

	if len(opts.ConfigDirs) > 0 {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		for _, dir := range opts.ConfigDirs {
			v.AddConfigPath(dir)
		}
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("failed to read config file: %w", err)
			}
		}
	}

	v.AutomaticEnv()

	cfg, err := fromViper(v)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// fromViper parses every key strictly; viper's typed getters would turn
// malformed values into zero values.
func fromViper(v *viper.Viper) (*Config, error) {
	p := &parser{v: v}
	cfg := &Config{
		Server: ServerConfig{
			Host: p.str("API_HOST"),
			Port: p.integer("API_PORT"),
		},
		Logging: LogConfig{
			Level:  strings.ToUpper(p.str("LOG_LEVEL")),
			Format: strings.ToLower(p.str("LOG_FORMAT")),
			File:   p.str("LOG_FILE"),
		},
		Metrics: MetricsConfig{
			Enabled:  p.boolean("METRICS_ENABLED"),
			Endpoint: p.str("METRICS_ENDPOINT"),
		},
		HTTP: HTTPConfig{
			BodySizeLimit:     p.size("BODY_SIZE_LIMIT"),
			RateLimitRPS:      p.float("RATE_LIMIT_RPS"),
			RateLimitBurst:    p.integer("RATE_LIMIT_BURST"),
			RequireChatAPIKey: p.boolean("CHAT_REQUIRE_API_KEY"),
		},
		Service: ServiceConfig{
			RetryMaxAttempts:  p.integer("RETRY_MAX_ATTEMPTS"),
			RetryDelay:        p.duration("RETRY_DELAY"),
			ModelInfoCacheTTL: p.duration("MODEL_INFO_CACHE_TTL"),
			SimulateLatency:   p.boolean("SIMULATE_LATENCY"),
		},
	}
	if len(p.errs) > 0 {
		return nil, fmt.Errorf("invalid configuration: %w", errors.Join(p.errs...))
	}
	return cfg, nil
}

// Validate checks value ranges.
func (c *Config) Validate() error {
	var errs []error
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("API_PORT must be between 1 and 65535, got %d", c.Server.Port))
	}
	switch c.Logging.Level {
	case "DEBUG", "INFO", "WARN", "WARNING", "ERROR":
	default:
		errs = append(errs, fmt.Errorf("LOG_LEVEL must be one of DEBUG, INFO, WARN, ERROR, got %q", c.Logging.Level))
	}
	switch c.Logging.Format {
	case "text", "json":
	default:
		errs = append(errs, fmt.Errorf("LOG_FORMAT must be text or json, got %q", c.Logging.Format))
	}
	if c.Metrics.Enabled && !strings.HasPrefix(c.Metrics.Endpoint, "/") {
		errs = append(errs, fmt.Errorf("METRICS_ENDPOINT must start with '/', got %q", c.Metrics.Endpoint))
	}
	if c.HTTP.BodySizeLimit <= 0 {
		errs = append(errs, errors.New("BODY_SIZE_LIMIT must be positive"))
	}
	if c.HTTP.RateLimitRPS < 0 {
		errs = append(errs, errors.New("RATE_LIMIT_RPS must not be negative"))
	}
	if c.HTTP.RateLimitBurst < 0 {
		errs = append(errs, errors.New("RATE_LIMIT_BURST must not be negative"))
	}
	if c.Service.RetryMaxAttempts < 1 {
		errs = append(errs, fmt.Errorf("RETRY_MAX_ATTEMPTS must be at least 1, got %d", c.Service.RetryMaxAttempts))
	}
	if c.Service.RetryDelay < 0 {
		errs = append(errs, errors.New("RETRY_DELAY must not be negative"))
	}
	if c.Service.ModelInfoCacheTTL < 0 {
		errs = append(errs, errors.New("MODEL_INFO_CACHE_TTL must not be negative"))
	}
	if len(errs) > 0 {
		return fmt.Errorf("invalid configuration: %w", errors.Join(errs...))
	}
	return nil
}

type parser struct {
	v    *viper.Viper
	errs []error
}

func (p *parser) str(key string) string {
	return strings.TrimSpace(expandString(p.v.GetString(key)))
}

func (p *parser) integer(key string) int {
	raw := p.str(key)
	n, err := strconv.Atoi(raw)
	if err != nil {
		p.errs = append(p.errs, fmt.Errorf("%s: invalid integer %q", key, raw))
	}
	return n
}

func (p *parser) float(key string) float64 {
	raw := p.str(key)
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		p.errs = append(p.errs, fmt.Errorf("%s: invalid number %q", key, raw))
	}
	return f
}

func (p *parser) boolean(key string) bool {
	raw := p.str(key)
	b, err := strconv.ParseBool(raw)
	if err != nil {
		p.errs = append(p.errs, fmt.Errorf("%s: invalid boolean %q", key, raw))
	}
	return b
}

// duration accepts Go durations ("1.5s") or plain seconds ("60").
func (p *parser) duration(key string) time.Duration {
	raw := p.str(key)
	if secs, err := strconv.ParseFloat(raw, 64); err == nil {
		return time.Duration(secs * float64(time.Second))
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		p.errs = append(p.errs, fmt.Errorf("%s: invalid duration %q", key, raw))
	}
	return d
}

// size accepts byte counts with optional units ("1MB", "512K", "2048").
func (p *parser) size(key string) int64 {
	raw := p.str(key)
	n, err := bytes.Parse(raw)
	if err != nil {
		p.errs = append(p.errs, fmt.Errorf("%s: invalid size %q", key, raw))
	}
	return n
}

var placeholder = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)(:-([^}]*))?\}`)

// expandString resolves ${VAR} and ${VAR:-default} placeholders from the
// environment. Unset variables without a default are left untouched.
func expandString(s string) string {
	if !strings.Contains(s, "${") {
		return s
	}
	return placeholder.ReplaceAllStringFunc(s, func(match string) string {
		groups := placeholder.FindStringSubmatch(match)
		name, hasDefault, def := groups[1], groups[2] != "", groups[3]
		if value := os.Getenv(name); value != "" {
			return value
		}
		if hasDefault {
			return def
		}
		return match
	})
}
