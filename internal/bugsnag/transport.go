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

package bugsnag

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/sirseerhq/beetlejuice/internal/apierror"
	"github.com/sirseerhq/beetlejuice/pkg/version"
)

// maxResponseBytes caps a single response body. Full-report event pages
// are large but nowhere near this.
const maxResponseBytes = 64 * 1024 * 1024

// authTransport adds authentication and API version headers to HTTP requests
type authTransport struct {
	token string
	base  http.RoundTripper
}

// RoundTrip implements http.RoundTripper
func (t *authTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	// Clone the request to avoid modifying the original
	req = req.Clone(req.Context())

	// An empty token still sends the request; the API decides whether the
	// resource needs authentication.
	if t.token != "" {
		req.Header.Set("Authorization", "token "+t.token)
	}
	req.Header.Set("X-Version", "2")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", version.UserAgent())

	resp, err := t.base.RoundTrip(req)
	if err != nil {
		return nil, err
	}

	if resp.Body != nil {
		resp.Body = &limitedReader{
			ReadCloser: resp.Body,
			limit:      maxResponseBytes,
		}
	}

	return resp, nil
}

// limitedReader wraps a ReadCloser with a size limit to prevent excessive memory usage.
type limitedReader struct {
	io.ReadCloser
	limit int64
	read  int64
}

// Read implements io.Reader with size limit enforcement.
func (lr *limitedReader) Read(p []byte) (n int, err error) {
	if lr.read >= lr.limit {
		return 0, fmt.Errorf("response size exceeded limit of %d bytes", lr.limit)
	}

	remaining := lr.limit - lr.read
	if int64(len(p)) > remaining {
		p = p[:remaining]
	}

	n, err = lr.ReadCloser.Read(p)
	lr.read += int64(n)

	return n, err
}

// retryTransport adds exponential backoff retry logic for transient failures:
// gateway errors, connection problems and attempts that ran past
// attemptTimeout. Rate limiting is not handled here; 429 responses are passed
// through to the fetch loop.
type retryTransport struct {
	base           http.RoundTripper
	maxRetries     int
	initialBackoff time.Duration
	maxBackoff     time.Duration
	// attemptTimeout bounds one attempt, reading the body included. The
	// backoff between attempts is not counted. Zero means no bound.
	attemptTimeout time.Duration
	inspector      apierror.Inspector
	logger         *zap.Logger
}

// newRetryTransport creates a new transport with retry logic.
func newRetryTransport(base http.RoundTripper, attemptTimeout time.Duration, logger *zap.Logger) *retryTransport {
	return &retryTransport{
		base:           base,
		maxRetries:     5,
		initialBackoff: time.Second,
		maxBackoff:     30 * time.Second,
		attemptTimeout: attemptTimeout,
		inspector:      apierror.NewInspector(),
		logger:         logger,
	}
}

// RoundTrip implements http.RoundTripper with retry logic.
func (t *retryTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	var lastErr error
	backoff := t.initialBackoff

	for attempt := 0; attempt < t.maxRetries; attempt++ {
		ctx, cancel := t.attemptContext(req.Context())
		resp, err := t.base.RoundTrip(req.Clone(ctx))

		// Success - the attempt context lives until the body is closed
		if err == nil && !isRetryableStatusCode(resp.StatusCode) {
			if resp.Body == nil {
				cancel()
				return resp, nil
			}
			resp.Body = &cancelOnClose{ReadCloser: resp.Body, cancel: cancel}
			return resp, nil
		}

		if err != nil {
			cancel()
			if req.Context().Err() != nil {
				return nil, req.Context().Err()
			}
			if !errors.Is(err, context.DeadlineExceeded) && !t.inspector.IsNetworkError(err) {
				return nil, err
			}
			lastErr = apierror.WithRetryInfo(err, attempt+1, t.maxRetries)
		} else {
			lastErr = apierror.WithRetryInfo(
				&apierror.StatusError{Method: req.Method, URL: req.URL.String(), StatusCode: resp.StatusCode},
				attempt+1, t.maxRetries)
			resp.Body.Close()
			cancel()
		}

		t.logger.Debug("transient API failure",
			zap.String("url", req.URL.String()),
			zap.Int("attempt", attempt+1),
			zap.Duration("backoff", backoff),
			zap.Error(lastErr))

		// Don't retry on the last attempt
		if attempt < t.maxRetries-1 {
			select {
			case <-time.After(backoff):
				backoff *= 2
				if backoff > t.maxBackoff {
					backoff = t.maxBackoff
				}
			case <-req.Context().Done():
				return nil, req.Context().Err()
			}
		}
	}

	return nil, apierror.WithUserAction(lastErr,
		"Bugsnag API unreachable. Please check your internet connection and try again")
}

func (t *retryTransport) attemptContext(parent context.Context) (context.Context, context.CancelFunc) {
	if t.attemptTimeout > 0 {
		return context.WithTimeout(parent, t.attemptTimeout)
	}
	return context.WithCancel(parent)
}

// cancelOnClose releases the attempt context once the body is closed.
type cancelOnClose struct {
	io.ReadCloser
	cancel context.CancelFunc
}

func (c *cancelOnClose) Close() error {
	err := c.ReadCloser.Close()
	c.cancel()
	return err
}

// isRetryableStatusCode checks if an HTTP status code should trigger a retry.
func isRetryableStatusCode(code int) bool {
	switch code {
	case http.StatusBadGateway,
		http.StatusServiceUnavailable,
		http.StatusGatewayTimeout:
		return true
	default:
		return false
	}
}
