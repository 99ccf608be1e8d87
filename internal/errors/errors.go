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

// Package errors defines sentinel errors for consistent error handling across the application.
// These errors map to specific exit codes in the CLI for proper scripting support.
package errors

import "errors"

// Sentinel errors for consistent error handling and exit code mapping
var (
	// ErrUnauthorized indicates Bugsnag rejected the personal auth token,
	// or that no token was configured for a resource that requires one.
	// Maps to exit code 2.
	ErrUnauthorized = errors.New("bugsnag authorization failed")

	// ErrNotFound indicates the requested API resource does not exist or is not accessible.
	// Maps to exit code 2.
	ErrNotFound = errors.New("resource not found")

	// ErrOrganizationNotFound indicates no organization visible to the token has the requested slug.
	// Maps to exit code 2.
	ErrOrganizationNotFound = errors.New("organization not found")

	// ErrProjectNotFound indicates the organization has no project with the requested slug.
	// Maps to exit code 2.
	ErrProjectNotFound = errors.New("project not found")

	// ErrInvalidURL indicates the error URL does not match
	// https://app.bugsnag.com/{org}/{project}/errors/{error_id}.
	// Maps to exit code 2.
	ErrInvalidURL = errors.New("invalid bugsnag error url")

	// ErrInvalidOptions indicates the command-line options failed validation.
	// Maps to exit code 2.
	ErrInvalidOptions = errors.New("invalid options")

	// ErrNetworkFailure indicates a network connection problem.
	// Maps to exit code 3.
	ErrNetworkFailure = errors.New("network connection failed")

	// ErrRateLimit indicates the Bugsnag API rate limit has been exceeded.
	// The fetch loop recovers from it; elsewhere it maps to exit code 1.
	ErrRateLimit = errors.New("bugsnag rate limit exceeded")
)
