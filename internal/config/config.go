// © Copyright 2025-2026, Query.Farm LLC - https://query.farm
// SPDX-License-Identifier: Apache-2.0

// Package config loads rnreport CLI configuration from a TOML file, .env
// files and RNREPORT_* environment variables, in increasing precedence.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"

	"github.com/Query-farm/rightnow-report/rnreport"
)

// DefaultEnvFiles are the .env files Load reads when they exist.
var DefaultEnvFiles = []string{".env", ".env.local"}

// Config is the connection and run configuration of the CLI.
type Config struct {
	// Endpoint is the SOAP service URL,
	// e.g. https://SITE.custhelp.com/cgi-bin/INTERFACE.cfg/services/soap.
	Endpoint string `toml:"Endpoint" env:"RNREPORT_ENDPOINT"`
	Username string `toml:"Username" env:"RNREPORT_USERNAME"`
	Password string `toml:"Password" env:"RNREPORT_PASSWORD"`
	AppID    string `toml:"AppID" env:"RNREPORT_APP_ID"`

	MaxPages         int           `toml:"MaxPages" env:"RNREPORT_MAX_PAGES"`
	LegacyPagination bool          `toml:"LegacyPagination" env:"RNREPORT_LEGACY_PAGINATION"`
	RateLimit        float64       `toml:"RateLimit" env:"RNREPORT_RATE_LIMIT"`
	RateBurst        int           `toml:"RateBurst" env:"RNREPORT_RATE_BURST"`
	Timeout          time.Duration `toml:"Timeout" env:"RNREPORT_TIMEOUT"`
	CompressRequests bool          `toml:"CompressRequests" env:"RNREPORT_COMPRESS_REQUESTS"`

	LogLevel  string `toml:"LogLevel" env:"RNREPORT_LOG_LEVEL"`
	LogFormat string `toml:"LogFormat" env:"RNREPORT_LOG_FORMAT"`
}

// Default returns the configuration used for anything not set elsewhere.
func Default() *Config {
	return &Config{
		AppID:     rnreport.DefaultAppID,
		MaxPages:  rnreport.DefaultMaxPages,
		RateBurst: 1,
		Timeout:   5 * time.Minute,
		LogLevel:  string(rnreport.LogInfo),
		LogFormat: "text",
	}
}

// Load builds the configuration: defaults, then the TOML file at path (if
// path is not empty), then envFiles, then the environment. The result is
// not validated.
func Load(path string, envFiles []string) (*Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path) //nolint:gosec // path is chosen by the operator
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
		if err := LoadBytes(data, cfg); err != nil {
			return nil, err
		}
	}
	if _, err := LoadEnv(envFiles); err != nil {
		return nil, fmt.Errorf("failed to load env files: %w", err)
	}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse environment: %w", err)
	}
	return cfg, nil
}

// LoadBytes overlays TOML data onto cfg. Keys missing from data keep their
// current values.
func LoadBytes(data []byte, cfg *Config) error {
	md, err := toml.Decode(string(data), cfg)
	if err != nil {
		return fmt.Errorf("failed to parse TOML config: %w", err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return fmt.Errorf("unknown config keys: %v", undecoded)
	}
	return nil
}

// LoadEnv loads the existing files among envFiles into the process
// environment without overriding variables already set. It returns the
// number of files loaded.
func LoadEnv(envFiles []string) (int, error) {
	existing := make([]string, 0, len(envFiles))
	for _, f := range envFiles {
		if _, err := os.Stat(f); err == nil {
			existing = append(existing, f)
		}
	}
	if len(existing) == 0 {
		return 0, nil
	}
	return len(existing), godotenv.Load(existing...)
}

// Validate checks that the configuration can be used to run reports.
func (c *Config) Validate() error {
	var errs []error
	if c.Endpoint == "" {
		errs = append(errs, errors.New("endpoint is required"))
	} else if u, err := url.Parse(c.Endpoint); err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		errs = append(errs, fmt.Errorf("endpoint must be an http(s) URL, got %q", c.Endpoint))
	}
	if c.Username == "" {
		errs = append(errs, errors.New("username is required"))
	}
	if c.Password == "" {
		errs = append(errs, errors.New("password is required"))
	}
	if c.MaxPages < 0 {
		errs = append(errs, fmt.Errorf("max pages must be non-negative, got %d", c.MaxPages))
	}
	if c.RateLimit < 0 {
		errs = append(errs, fmt.Errorf("rate limit must be non-negative, got %g", c.RateLimit))
	}
	if c.Timeout < 0 {
		errs = append(errs, fmt.Errorf("timeout must be non-negative, got %s", c.Timeout))
	}
	if _, err := rnreport.LogLevel(c.LogLevel).Level(); err != nil {
		errs = append(errs, err)
	}
	if c.LogFormat != "" && c.LogFormat != "text" && c.LogFormat != "json" {
		errs = append(errs, fmt.Errorf("log format must be text or json, got %q", c.LogFormat))
	}
	return errors.Join(errs...)
}

// Credentials returns the API credentials.
func (c *Config) Credentials() rnreport.Credentials {
	return rnreport.Credentials{Username: c.Username, Password: c.Password}
}

// NewClient builds a client over HTTP from the configuration.
func (c *Config) NewClient(logger *slog.Logger) *rnreport.Client {
	tr := rnreport.NewHTTPTransport(c.Endpoint)
	if c.Timeout > 0 {
		tr.SetTimeout(c.Timeout)
	}
	tr.SetRateLimit(c.RateLimit, c.RateBurst)
	tr.SetCompressRequests(c.CompressRequests)

	client := rnreport.NewClient(tr, c.Credentials())
	client.SetAppID(c.AppID)
	client.SetMaxPages(c.MaxPages)
	client.SetLegacyPagination(c.LegacyPagination)
	client.SetLogger(logger)
	return client
}

// LogValue implements slog.LogValuer without exposing credentials.
func (c *Config) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("endpoint", c.Endpoint),
		slog.Any("credentials", c.Credentials()),
		slog.String("app_id", c.AppID),
		slog.Int("max_pages", c.MaxPages),
		slog.Float64("rate_limit", c.RateLimit),
		slog.Duration("timeout", c.Timeout),
	)
}
