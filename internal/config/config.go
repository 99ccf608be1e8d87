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

// Package config provides configuration management for beetlejuice with
// support for multiple configuration sources and a well-defined precedence
// order.
//
// Configuration sources (in precedence order, highest to lowest):
//  1. Command-line flags
//  2. Environment variables
//  3. Project-specific configuration
//  4. Configuration file
//  5. Built-in defaults
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// LoadConfig loads configuration from multiple sources and applies them in
// the correct precedence order. If configPath is provided, it loads from
// that specific file. Otherwise, it searches standard locations:
//   - .beetlejuice.yaml (current directory)
//   - .beetlejuice.yml (current directory)
//   - ~/.beetlejuice/config.yaml
//   - ~/.beetlejuice/config.yml
//
// Environment variables are applied after loading the config file, allowing
// runtime overrides. Path expansion (~ and environment variables) is performed
// on the token file path.
//
// Returns an error if the specified config file cannot be loaded, but will
// succeed with defaults if no config file is found in standard locations.
func LoadConfig(configPath string) (*Config, error) {
	cfg := DefaultConfig()

	if configPath != "" {
		if err := loadConfigFile(configPath, cfg); err != nil {
			return nil, fmt.Errorf("failed to load config file: %w", err)
		}
	} else {
		defaultPaths := []string{
			".beetlejuice.yaml",
			".beetlejuice.yml",
			filepath.Join(os.Getenv("HOME"), ".beetlejuice", "config.yaml"),
			filepath.Join(os.Getenv("HOME"), ".beetlejuice", "config.yml"),
		}

		for _, path := range defaultPaths {
			if _, err := os.Stat(path); err == nil {
				if err := loadConfigFile(path, cfg); err != nil {
					return nil, fmt.Errorf("failed to load config from %s: %w", path, err)
				}
				break
			}
		}
	}

	applyEnvOverrides(cfg)

	cfg.Bugsnag.TokenFile = expandPath(cfg.Bugsnag.TokenFile)

	return cfg, nil
}

// TokenFile resolves only where the token is kept. Unlike LoadConfig it never
// fails: when the configuration cannot be loaded the default location and the
// BEETLEJUICE_TOKEN_FILE override are used. The rest of the configuration is
// not validated.
func TokenFile(configPath string) string {
	if cfg, err := LoadConfig(configPath); err == nil && cfg.Bugsnag.TokenFile != "" {
		return cfg.Bugsnag.TokenFile
	}

	cfg := DefaultConfig()
	applyEnvOverrides(cfg)
	return expandPath(cfg.Bugsnag.TokenFile)
}

// loadConfigFile reads and parses a YAML config file
func loadConfigFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	return nil
}

// applyEnvOverrides applies environment variable overrides to config.
// Values that fail to parse are ignored and the previous value is kept.
func applyEnvOverrides(cfg *Config) {
	if endpoint := os.Getenv("BUGSNAG_API_ENDPOINT"); endpoint != "" {
		cfg.Bugsnag.APIEndpoint = endpoint
	}
	if tokenFile := os.Getenv("BEETLEJUICE_TOKEN_FILE"); tokenFile != "" {
		cfg.Bugsnag.TokenFile = tokenFile
	}
	if timeout := os.Getenv("BEETLEJUICE_REQUEST_TIMEOUT"); timeout != "" {
		if d, err := time.ParseDuration(timeout); err == nil {
			cfg.Bugsnag.RequestTimeout = d
		}
	}
	if perPage := os.Getenv("BEETLEJUICE_PER_PAGE"); perPage != "" {
		if n, err := parseNonNegativeInt(perPage); err == nil {
			cfg.Bugsnag.PerPage = n
		}
	}

	// Rate limit settings
	if cooldown := os.Getenv("BEETLEJUICE_RATE_LIMIT_COOLDOWN"); cooldown != "" {
		if d, err := time.ParseDuration(cooldown); err == nil {
			cfg.RateLimit.Cooldown = d
		}
	}
	if maxRetries := os.Getenv("BEETLEJUICE_RATE_LIMIT_MAX_RETRIES"); maxRetries != "" {
		if n, err := parseNonNegativeInt(maxRetries); err == nil {
			cfg.RateLimit.MaxRetries = n
		}
	}
	if rpm := os.Getenv("BEETLEJUICE_REQUESTS_PER_MINUTE"); rpm != "" {
		if n, err := parseNonNegativeInt(rpm); err == nil {
			cfg.RateLimit.RequestsPerMinute = n
		}
	}
	if show := os.Getenv("BEETLEJUICE_RATE_LIMIT_SHOW_PROGRESS"); show != "" {
		cfg.RateLimit.ShowProgress = parseBool(show)
	}
}

// expandPath expands ~ and environment variables in paths
func expandPath(path string) string {
	if strings.HasPrefix(path, "~/") {
		home := os.Getenv("HOME")
		if home == "" {
			home = os.Getenv("USERPROFILE") // Windows
		}
		path = filepath.Join(home, path[2:])
	}
	return os.ExpandEnv(path)
}

// parseNonNegativeInt parses a string to an integer >= 0
func parseNonNegativeInt(s string) (int, error) {
	var i int
	_, err := fmt.Sscanf(s, "%d", &i)
	if err != nil {
		return 0, fmt.Errorf("failed to parse integer from '%s': %w", s, err)
	}
	if i < 0 {
		return 0, fmt.Errorf("value must not be negative, got: %d", i)
	}
	return i, nil
}

// parseBool parses various boolean representations
func parseBool(s string) bool {
	s = strings.ToLower(strings.TrimSpace(s))
	return s == "true" || s == "yes" || s == "1" || s == "on"
}

// DefaultsFor returns the defaults for an "org/project" pair, taking
// project-specific overrides into account. Zero-valued override fields
// keep the global default.
func (c *Config) DefaultsFor(project string) DefaultsConfig {
	defaults := c.Defaults
	if projectConfig, ok := c.Projects[project]; ok {
		if projectConfig.Count > 0 {
			defaults.Count = projectConfig.Count
		}
		if projectConfig.Keys != "" {
			defaults.Keys = projectConfig.Keys
		}
	}
	return defaults
}

// Validate checks if the configuration contains valid values. Field names in
// the returned error use their YAML spelling so they can be found in the file.
func (c *Config) Validate() error {
	validate := validator.New()
	validate.RegisterTagNameFunc(func(field reflect.StructField) string {
		name := strings.SplitN(field.Tag.Get("yaml"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	if c.RateLimit.Cooldown < time.Duration(c.RateLimit.ProgressSteps)*time.Millisecond {
		return fmt.Errorf("invalid configuration: rate_limit.cooldown %s is too short for %d progress steps",
			c.RateLimit.Cooldown, c.RateLimit.ProgressSteps)
	}
	return nil
}
