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
// Package main implements the beetlejuice command-line interface.
// This tool exports the events of one Bugsnag error as a JSON array,
// keeping only the key-paths of interest from every event.
//
// The CLI supports:
//   - Fetching up to --count events, following pagination
//   - Waiting out Bugsnag rate limits and resuming where it stopped
//   - Filtering every event down to --keys, or keeping it whole with "all"
//   - Caching a personal auth token with --set-token
//   - Configuration via .beetlejuice.yaml and environment variables
//   - Graceful error handling with appropriate exit codes
//
// Usage:
//
//	beetlejuice [flags] url
//
// Example:
//
//	beetlejuice --set-token=your-token
//	beetlejuice -c 100 -k app.releaseStage,received_at \
//	    https://app.bugsnag.com/acme/webapp/errors/5f1a2b3c4d5e6f
//
// Exit codes:
//   - 0: Success
//   - 1: General error
//   - 2: Authentication, not found or invalid input
//   - 3: Network error
package main
