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

package apierror

import (
	"fmt"
	"net/http"
	"time"
)

// StatusError is a non-2xx response from the API.
type StatusError struct {
	Method     string
	URL        string
	StatusCode int
	// Message is the "errors" text from the response body, if any.
	Message string
	// RetryAfter is parsed from the Retry-After header of 429 responses.
	RetryAfter time.Duration
}

// Error implements error.
func (e *StatusError) Error() string {
	msg := fmt.Sprintf("%s %s: %d %s", e.Method, e.URL, e.StatusCode, http.StatusText(e.StatusCode))
	if e.Message != "" {
		msg += ": " + e.Message
	}
	return msg
}

// IsAuthError reports whether the response was 401 Unauthorized.
func (e *StatusError) IsAuthError() bool {
	return e.StatusCode == http.StatusUnauthorized
}

// IsNotFoundError reports whether the response was 404 Not Found.
func (e *StatusError) IsNotFoundError() bool {
	return e.StatusCode == http.StatusNotFound
}

// IsRateLimitError reports whether the response was 429 Too Many Requests.
func (e *StatusError) IsRateLimitError() bool {
	return e.StatusCode == http.StatusTooManyRequests
}

// retryError annotates an error with the attempt it failed on.
type retryError struct {
	err         error
	attempt     int
	maxAttempts int
}

// WithRetryInfo records that err happened on attempt out of maxAttempts.
func WithRetryInfo(err error, attempt, maxAttempts int) error {
	if err == nil {
		return nil
	}
	return &retryError{err: err, attempt: attempt, maxAttempts: maxAttempts}
}

func (e *retryError) Error() string {
	return fmt.Sprintf("%v (attempt %d/%d)", e.err, e.attempt, e.maxAttempts)
}

func (e *retryError) Unwrap() error { return e.err }

// userActionError carries a hint telling the operator what to do next.
type userActionError struct {
	err    error
	action string
}

// WithUserAction attaches an operator-facing hint to err.
func WithUserAction(err error, action string) error {
	if err == nil {
		return nil
	}
	return &userActionError{err: err, action: action}
}

func (e *userActionError) Error() string {
	return fmt.Sprintf("%s: %v", e.action, e.err)
}

func (e *userActionError) Unwrap() error { return e.err }
