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
package metadata

import (
	"time"
)

// RunMetadata is the record written for a single export run. It captures
// what was requested, how the API behaved and what ended up on disk.
type RunMetadata struct {
	Version    string     `json:"beetlejuice_version"`
	RunID      string     `json:"run_id"`
	Parameters RunParams  `json:"parameters"`
	Results    RunResults `json:"results"`
}

// RunParams captures the inputs of a run so it can be reproduced.
type RunParams struct {
	URL          string   `json:"url"`
	Organization string   `json:"organization"`
	Project      string   `json:"project"`
	ErrorID      string   `json:"error_id"`
	Count        int      `json:"count"`
	Keys         []string `json:"keys"`
	Output       string   `json:"output"`
}

// RunResults contains the statistics of a completed run.
type RunResults struct {
	EventsFetched  int        `json:"events_fetched"`
	EventsWritten  int        `json:"events_written"`
	Pages          int        `json:"pages"`
	APICallCount   int        `json:"api_calls_made"`
	RateLimitWaits int        `json:"rate_limit_waits"`
	CooldownTime   string     `json:"cooldown_time"`
	OldestEvent    *time.Time `json:"oldest_event,omitempty"`
	NewestEvent    *time.Time `json:"newest_event,omitempty"`
	Duration       string     `json:"run_duration"`
	StartedAt      time.Time  `json:"started_at"`
	CompletedAt    time.Time  `json:"completed_at"`
}
