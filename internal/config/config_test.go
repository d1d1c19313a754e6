// © Copyright 2025-2026, Query.Farm LLC - https://query.farm
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"bytes"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Query-farm/rightnow-report/rnreport"
)

const sampleTOML = `
Endpoint = "https://acme.custhelp.com/cgi-bin/acme.cfg/services/soap"
Username = "file-user"
Password = "file-pass"
MaxPages = 50
RateLimit = 2.5
Timeout = "30s"
LogLevel = "debug"
`

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(p, []byte(content), 0o600))
	return p
}

func TestLoadFile(t *testing.T) {
	path := writeFile(t, t.TempDir(), "rnreport.toml", sampleTOML)
	cfg, err := Load(path, nil)
	require.NoError(t, err)

	assert.Equal(t, "file-user", cfg.Username)
	assert.Equal(t, 50, cfg.MaxPages)
	assert.Equal(t, 2.5, cfg.RateLimit)
	assert.Equal(t, 30*time.Second, cfg.Timeout)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, rnreport.DefaultAppID, cfg.AppID, "default kept")
	assert.Equal(t, 1, cfg.RateBurst, "default kept")
	require.NoError(t, cfg.Validate())
}

func TestEnvOverridesFile(t *testing.T) {
	path := writeFile(t, t.TempDir(), "rnreport.toml", sampleTOML)
	t.Setenv("RNREPORT_USERNAME", "env-user")
	t.Setenv("RNREPORT_MAX_PAGES", "7")
	t.Setenv("RNREPORT_TIMEOUT", "2m")
	t.Setenv("RNREPORT_COMPRESS_REQUESTS", "true")

	cfg, err := Load(path, nil)
	require.NoError(t, err)
	assert.Equal(t, "env-user", cfg.Username)
	assert.Equal(t, "file-pass", cfg.Password)
	assert.Equal(t, 7, cfg.MaxPages)
	assert.Equal(t, 2*time.Minute, cfg.Timeout)
	assert.True(t, cfg.CompressRequests)
}

func TestEnvFiles(t *testing.T) {
	dir := t.TempDir()
	envFile := writeFile(t, dir, ".env", "RNREPORT_APP_ID=from-dotenv\nRNREPORT_PASSWORD=dotenv-pass\n")
	t.Setenv("RNREPORT_PASSWORD", "process-pass")
	// godotenv sets variables outside t.Setenv; restore afterwards.
	t.Cleanup(func() { os.Unsetenv("RNREPORT_APP_ID") })

	cfg, err := Load("", []string{envFile, filepath.Join(dir, "missing.env")})
	require.NoError(t, err)
	assert.Equal(t, "from-dotenv", cfg.AppID)
	assert.Equal(t, "process-pass", cfg.Password, "process environment wins")
}

func TestLoadErrors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.toml"), nil)
	assert.ErrorContains(t, err, "failed to read config file")

	path := writeFile(t, t.TempDir(), "bad.toml", "Endpoint = ")
	_, err = Load(path, nil)
	assert.ErrorContains(t, err, "failed to parse TOML config")

	path = writeFile(t, t.TempDir(), "typo.toml", `Endpiont = "x"`)
	_, err = Load(path, nil)
	assert.ErrorContains(t, err, "unknown config keys")

	t.Setenv("RNREPORT_MAX_PAGES", "many")
	_, err = Load("", nil)
	assert.ErrorContains(t, err, "failed to parse environment")
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		c := Default()
		c.Endpoint = "https://acme.custhelp.com/services/soap"
		c.Username = "u"
		c.Password = "p"
		return c
	}
	require.NoError(t, valid().Validate())

	tests := []struct {
		name   string
		mutate func(*Config)
		errSub string
	}{
		{"missing endpoint", func(c *Config) { c.Endpoint = "" }, "endpoint is required"},
		{"relative endpoint", func(c *Config) { c.Endpoint = "/services/soap" }, "http(s) URL"},
		{"ftp endpoint", func(c *Config) { c.Endpoint = "ftp://host/x" }, "http(s) URL"},
		{"missing username", func(c *Config) { c.Username = "" }, "username is required"},
		{"missing password", func(c *Config) { c.Password = "" }, "password is required"},
		{"negative pages", func(c *Config) { c.MaxPages = -1 }, "max pages"},
		{"negative rate", func(c *Config) { c.RateLimit = -1 }, "rate limit"},
		{"negative timeout", func(c *Config) { c.Timeout = -time.Second }, "timeout"},
		{"bad log level", func(c *Config) { c.LogLevel = "chatty" }, "unknown log level"},
		{"bad log format", func(c *Config) { c.LogFormat = "xml" }, "log format"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := valid()
			tt.mutate(c)
			err := c.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errSub)
		})
	}
}

func TestNewClient(t *testing.T) {
	c := Default()
	c.Endpoint = "https://acme.custhelp.com/services/soap"
	c.Username, c.Password = "u", "p"
	c.Timeout = 10 * time.Second

	client := c.NewClient(nil)
	tr, ok := client.Transport().(*rnreport.HTTPTransport)
	require.True(t, ok)
	assert.Equal(t, c.Endpoint, tr.Endpoint())
	assert.Equal(t, 10*time.Second, tr.HTTPClient().Timeout)
}

func TestLogValueRedactsPassword(t *testing.T) {
	c := Default()
	c.Username, c.Password = "user", "top-secret"
	var buf bytes.Buffer
	slog.New(slog.NewTextHandler(&buf, nil)).Info("config", "config", c)
	assert.NotContains(t, buf.String(), "top-secret")
	assert.Contains(t, buf.String(), "password_set=true")
}
