// Copyright 2025 SirSeer, LLC
//
// Licensed under the Business Source License 1.1 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     https://mariadb.com/bsl11
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, "https://api.bugsnag.com", cfg.Bugsnag.APIEndpoint)
	assert.Equal(t, ".token", cfg.Bugsnag.TokenFile)
	assert.Equal(t, 30*time.Second, cfg.Bugsnag.RequestTimeout)

	assert.Equal(t, 500, cfg.Defaults.Count)
	assert.Equal(t, "app.releaseStage,metaData,received_at", cfg.Defaults.Keys)
	assert.Equal(t, "output.json", cfg.Defaults.Output)

	assert.Equal(t, 60*time.Second, cfg.RateLimit.Cooldown)
	assert.Equal(t, 30, cfg.RateLimit.ProgressSteps)
	assert.Zero(t, cfg.RateLimit.MaxRetries, "zero means unbounded")
	assert.True(t, cfg.RateLimit.ShowProgress)
}

func TestLoadConfigFile(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	configContent := `
bugsnag:
  api_endpoint: https://bugsnag.internal.example.com/api
  token_file: /secrets/bugsnag.token
  request_timeout: 45s
  per_page: 100

defaults:
  count: 50
  keys: context,received_at
  output: events.json

projects:
  "acme/webapp":
    keys: app.releaseStage,user.id

rate_limit:
  cooldown: 2m
  progress_steps: 20
  max_retries: 5
  show_progress: false
`
	require.NoError(t, os.WriteFile(configPath, []byte(configContent), 0o644))

	cfg, err := LoadConfig(configPath)
	require.NoError(t, err)

	assert.Equal(t, "https://bugsnag.internal.example.com/api", cfg.Bugsnag.APIEndpoint)
	assert.Equal(t, "/secrets/bugsnag.token", cfg.Bugsnag.TokenFile)
	assert.Equal(t, 45*time.Second, cfg.Bugsnag.RequestTimeout)
	assert.Equal(t, 100, cfg.Bugsnag.PerPage)

	assert.Equal(t, 50, cfg.Defaults.Count)
	assert.Equal(t, "context,received_at", cfg.Defaults.Keys)

	require.Contains(t, cfg.Projects, "acme/webapp")
	assert.Equal(t, "app.releaseStage,user.id", cfg.Projects["acme/webapp"].Keys)

	assert.Equal(t, 2*time.Minute, cfg.RateLimit.Cooldown)
	assert.Equal(t, 5, cfg.RateLimit.MaxRetries)
	assert.False(t, cfg.RateLimit.ShowProgress)

	assert.NoError(t, cfg.Validate())
}

func TestLoadConfig_MissingExplicitFile(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestLoadConfig_InvalidYAML(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(configPath, []byte("bugsnag: [unclosed"), 0o644))

	_, err := LoadConfig(configPath)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse config file")
}

func TestEnvironmentOverrides(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	t.Setenv("BUGSNAG_API_ENDPOINT", "https://custom.api.com")
	t.Setenv("BEETLEJUICE_TOKEN_FILE", "~/bugsnag.token")
	t.Setenv("BEETLEJUICE_REQUEST_TIMEOUT", "5s")
	t.Setenv("BEETLEJUICE_PER_PAGE", "25")
	t.Setenv("BEETLEJUICE_RATE_LIMIT_COOLDOWN", "90s")
	t.Setenv("BEETLEJUICE_RATE_LIMIT_MAX_RETRIES", "3")
	t.Setenv("BEETLEJUICE_REQUESTS_PER_MINUTE", "10")
	t.Setenv("BEETLEJUICE_RATE_LIMIT_SHOW_PROGRESS", "off")

	cfg, err := LoadConfig("")
	require.NoError(t, err)

	assert.Equal(t, "https://custom.api.com", cfg.Bugsnag.APIEndpoint)
	assert.Equal(t, filepath.Join(os.Getenv("HOME"), "bugsnag.token"), cfg.Bugsnag.TokenFile)
	assert.Equal(t, 5*time.Second, cfg.Bugsnag.RequestTimeout)
	assert.Equal(t, 25, cfg.Bugsnag.PerPage)
	assert.Equal(t, 90*time.Second, cfg.RateLimit.Cooldown)
	assert.Equal(t, 3, cfg.RateLimit.MaxRetries)
	assert.Equal(t, 10, cfg.RateLimit.RequestsPerMinute)
	assert.False(t, cfg.RateLimit.ShowProgress)
}

func TestEnvironmentOverrides_InvalidValuesIgnored(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	t.Setenv("BEETLEJUICE_REQUEST_TIMEOUT", "soon")
	t.Setenv("BEETLEJUICE_RATE_LIMIT_MAX_RETRIES", "-2")

	cfg, err := LoadConfig("")
	require.NoError(t, err)
	assert.Equal(t, 30*time.Second, cfg.Bugsnag.RequestTimeout)
	assert.Zero(t, cfg.RateLimit.MaxRetries)
}

func TestTokenFile(t *testing.T) {
	t.Setenv("BEETLEJUICE_TOKEN_FILE", "")

	writeConfig := func(t *testing.T, content string) string {
		t.Helper()
		path := filepath.Join(t.TempDir(), "config.yaml")
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
		return path
	}

	t.Run("from config file", func(t *testing.T) {
		t.Setenv("HOME", t.TempDir())
		path := writeConfig(t, "bugsnag:\n  token_file: /secrets/bugsnag.token\n")
		assert.Equal(t, "/secrets/bugsnag.token", TokenFile(path))
	})

	t.Run("config that fails validation", func(t *testing.T) {
		t.Setenv("HOME", t.TempDir())
		path := writeConfig(t, "bugsnag:\n  token_file: /secrets/bugsnag.token\n  per_page: 500\ndefaults:\n  count: -3\n")
		assert.Equal(t, "/secrets/bugsnag.token", TokenFile(path))
	})

	t.Run("unparseable config falls back to default", func(t *testing.T) {
		t.Setenv("HOME", t.TempDir())
		path := writeConfig(t, "bugsnag: [unclosed")
		assert.Equal(t, DefaultTokenFile, TokenFile(path))
	})

	t.Run("missing config falls back to default", func(t *testing.T) {
		t.Setenv("HOME", t.TempDir())
		assert.Equal(t, DefaultTokenFile, TokenFile(filepath.Join(t.TempDir(), "missing.yaml")))
	})

	t.Run("environment override survives broken config", func(t *testing.T) {
		home := t.TempDir()
		t.Setenv("HOME", home)
		t.Setenv("BEETLEJUICE_TOKEN_FILE", "~/bugsnag.token")
		path := writeConfig(t, "bugsnag: [unclosed")
		assert.Equal(t, filepath.Join(home, "bugsnag.token"), TokenFile(path))
	})
}

func TestDefaultsFor(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Projects = map[string]ProjectConfig{
		"acme/webapp": {Keys: "context"},
		"acme/api":    {Count: 20},
	}

	tests := []struct {
		project   string
		wantCount int
		wantKeys  string
	}{
		{"acme/webapp", 500, "context"},
		{"acme/api", 20, DefaultKeys},
		{"acme/other", 500, DefaultKeys},
	}

	for _, tt := range tests {
		t.Run(tt.project, func(t *testing.T) {
			got := cfg.DefaultsFor(tt.project)
			assert.Equal(t, tt.wantCount, got.Count)
			assert.Equal(t, tt.wantKeys, got.Keys)
			assert.Equal(t, DefaultOutput, got.Output)
		})
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			name:    "valid config",
			mutate:  func(*Config) {},
			wantErr: "",
		},
		{
			name:    "empty API endpoint",
			mutate:  func(c *Config) { c.Bugsnag.APIEndpoint = "" },
			wantErr: "api_endpoint",
		},
		{
			name:    "API endpoint is not a URL",
			mutate:  func(c *Config) { c.Bugsnag.APIEndpoint = "bugsnag" },
			wantErr: "api_endpoint",
		},
		{
			name:    "non-positive count",
			mutate:  func(c *Config) { c.Defaults.Count = 0 },
			wantErr: "count",
		},
		{
			name:    "per page above API limit",
			mutate:  func(c *Config) { c.Bugsnag.PerPage = 150 },
			wantErr: "per_page",
		},
		{
			name:    "negative project count",
			mutate:  func(c *Config) { c.Projects["a/b"] = ProjectConfig{Count: -1} },
			wantErr: "count",
		},
		{
			name:    "zero cooldown",
			mutate:  func(c *Config) { c.RateLimit.Cooldown = 0 },
			wantErr: "cooldown",
		},
		{
			name:    "cooldown shorter than progress steps",
			mutate:  func(c *Config) { c.RateLimit.Cooldown = time.Millisecond },
			wantErr: "too short",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestExpandPath(t *testing.T) {
	home := os.Getenv("HOME")
	if home == "" {
		home = os.Getenv("USERPROFILE")
	}

	tests := []struct {
		input string
		want  string
	}{
		{"~/test", filepath.Join(home, "test")},
		{"/absolute/path", "/absolute/path"},
		{".token", ".token"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, expandPath(tt.input), "expandPath(%s)", tt.input)
	}
}

func TestParseBool(t *testing.T) {
	tests := []struct {
		input string
		want  bool
	}{
		{"true", true},
		{"TRUE", true},
		{"yes", true},
		{"1", true},
		{"on", true},
		{"false", false},
		{"no", false},
		{"0", false},
		{"off", false},
		{"", false},
		{"random", false},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, parseBool(tt.input), "parseBool(%s)", tt.input)
	}
}

func TestParseNonNegativeInt(t *testing.T) {
	tests := []struct {
		input   string
		want    int
		wantErr bool
	}{
		{"50", 50, false},
		{"0", 0, false},
		{"-1", 0, true},
		{"abc", 0, true},
		{"", 0, true},
	}

	for _, tt := range tests {
		got, err := parseNonNegativeInt(tt.input)
		if tt.wantErr {
			assert.Error(t, err, "parseNonNegativeInt(%s)", tt.input)
			continue
		}
		require.NoError(t, err, "parseNonNegativeInt(%s)", tt.input)
		assert.Equal(t, tt.want, got)
	}
}
