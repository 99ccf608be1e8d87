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

// Package config types define the configuration structures used throughout
// beetlejuice. These types represent settings that can be loaded from
// YAML configuration files, environment variables, or command-line flags.
package config

import "time"

// Default values shared with the CLI help text.
const (
	DefaultAPIEndpoint = "https://api.bugsnag.com"
	DefaultTokenFile   = ".token"
	DefaultCount       = 500
	DefaultKeys        = "app.releaseStage,metaData,received_at"
	DefaultOutput      = "output.json"
)

// Config represents the complete configuration for beetlejuice.
// It consolidates settings from various sources and provides a unified
// interface for accessing configuration values throughout the application.
type Config struct {
	Bugsnag   BugsnagConfig            `yaml:"bugsnag"`
	Defaults  DefaultsConfig           `yaml:"defaults"`
	Projects  map[string]ProjectConfig `yaml:"projects" validate:"dive"`
	RateLimit RateLimitConfig          `yaml:"rate_limit"`
}

// BugsnagConfig contains API settings: where the Data Access API lives,
// where the personal auth token is cached and how long a single request
// may take.
type BugsnagConfig struct {
	APIEndpoint    string        `yaml:"api_endpoint" validate:"required,url"`
	TokenFile      string        `yaml:"token_file" validate:"required"`
	RequestTimeout time.Duration `yaml:"request_timeout" validate:"gt=0"`
	// PerPage is sent as per_page on list requests. Zero leaves the
	// server default in place.
	PerPage int `yaml:"per_page" validate:"gte=0,lte=100"`
}

// DefaultsConfig contains the values used when the matching flag is not
// given on the command line.
type DefaultsConfig struct {
	Count  int    `yaml:"count" validate:"gt=0"`
	Keys   string `yaml:"keys" validate:"required"`
	Output string `yaml:"output" validate:"required"`
}

// ProjectConfig contains overrides for a single "org/project" pair, useful
// when a project's events carry their interesting data under other keys.
type ProjectConfig struct {
	Count int    `yaml:"count" validate:"gte=0"`
	Keys  string `yaml:"keys"`
}

// RateLimitConfig controls what the fetch loop does when Bugsnag answers
// 429 Too Many Requests, and optional client-side pacing.
type RateLimitConfig struct {
	// Cooldown is how long to wait before retrying the same page.
	Cooldown time.Duration `yaml:"cooldown" validate:"gt=0"`
	// ProgressSteps is the width of the cool-down progress bar.
	ProgressSteps int `yaml:"progress_steps" validate:"gt=0"`
	// MaxRetries bounds consecutive cool-downs; zero retries forever.
	MaxRetries int `yaml:"max_retries" validate:"gte=0"`
	// RequestsPerMinute paces requests on the client side; zero disables pacing.
	RequestsPerMinute int  `yaml:"requests_per_minute" validate:"gte=0"`
	ShowProgress      bool `yaml:"show_progress"`
}

// DefaultConfig returns a Config matching the behavior of the tool without
// any configuration file.
func DefaultConfig() *Config {
	return &Config{
		Bugsnag: BugsnagConfig{
			APIEndpoint:    DefaultAPIEndpoint,
			TokenFile:      DefaultTokenFile,
			RequestTimeout: 30 * time.Second,
		},
		Defaults: DefaultsConfig{
			Count:  DefaultCount,
			Keys:   DefaultKeys,
			Output: DefaultOutput,
		},
		Projects: make(map[string]ProjectConfig),
		RateLimit: RateLimitConfig{
			Cooldown:      60 * time.Second,
			ProgressSteps: 30,
			ShowProgress:  true,
		},
	}
}
