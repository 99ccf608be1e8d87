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
	"io"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(req *http.Request) (*http.Response, error) {
	return f(req)
}

func okResponse(body string) *http.Response {
	return &http.Response{
		StatusCode: http.StatusOK,
		Header:     make(http.Header),
		Body:       io.NopCloser(strings.NewReader(body)),
	}
}

func newTestRequest(t *testing.T, ctx context.Context) *http.Request {
	t.Helper()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, "https://api.bugsnag.com/user/organizations", nil)
	require.NoError(t, err)
	return req
}

func TestLimitedReader(t *testing.T) {
	lr := &limitedReader{
		ReadCloser: io.NopCloser(strings.NewReader("0123456789")),
		limit:      4,
	}

	data, err := io.ReadAll(lr)
	require.Error(t, err, "expected size limit error")
	assert.Equal(t, "0123", string(data))
}

func TestIsRetryableStatusCode(t *testing.T) {
	tests := []struct {
		code int
		want bool
	}{
		{http.StatusOK, false},
		{http.StatusUnauthorized, false},
		{http.StatusNotFound, false},
		{http.StatusTooManyRequests, false},
		{http.StatusInternalServerError, false},
		{http.StatusBadGateway, true},
		{http.StatusServiceUnavailable, true},
		{http.StatusGatewayTimeout, true},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, isRetryableStatusCode(tt.code), "isRetryableStatusCode(%d)", tt.code)
	}
}

func TestRetryTransport_DoesNotRetryPermanentErrors(t *testing.T) {
	calls := 0
	permanent := errors.New("malformed request")
	transport := newRetryTransport(roundTripFunc(func(*http.Request) (*http.Response, error) {
		calls++
		return nil, permanent
	}), 0, zap.NewNop())
	transport.initialBackoff = time.Millisecond

	_, err := transport.RoundTrip(newTestRequest(t, context.Background()))
	assert.ErrorIs(t, err, permanent)
	assert.Equal(t, 1, calls)
}

func TestRetryTransport_RetriesNetworkErrors(t *testing.T) {
	calls := 0
	transport := newRetryTransport(roundTripFunc(func(*http.Request) (*http.Response, error) {
		calls++
		return nil, errors.New("dial tcp: connection refused")
	}), 0, zap.NewNop())
	transport.initialBackoff = time.Millisecond
	transport.maxBackoff = time.Millisecond

	_, err := transport.RoundTrip(newTestRequest(t, context.Background()))
	require.Error(t, err, "expected error after exhausting retries")
	assert.Contains(t, err.Error(), "attempt 5/5")
	assert.Equal(t, transport.maxRetries, calls)
}

func TestRetryTransport_TimeoutAppliesPerAttempt(t *testing.T) {
	calls := 0
	transport := newRetryTransport(roundTripFunc(func(req *http.Request) (*http.Response, error) {
		calls++
		if calls < 3 {
			<-req.Context().Done()
			return nil, req.Context().Err()
		}
		return okResponse(`[]`), nil
	}), 20*time.Millisecond, zap.NewNop())
	transport.initialBackoff = time.Millisecond
	transport.maxBackoff = time.Millisecond

	resp, err := transport.RoundTrip(newTestRequest(t, context.Background()))
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, 3, calls, "two slow attempts then a fast one")
}

func TestRetryTransport_EveryAttemptTimesOut(t *testing.T) {
	calls := 0
	transport := newRetryTransport(roundTripFunc(func(req *http.Request) (*http.Response, error) {
		calls++
		<-req.Context().Done()
		return nil, req.Context().Err()
	}), 5*time.Millisecond, zap.NewNop())
	transport.initialBackoff = time.Millisecond
	transport.maxBackoff = time.Millisecond

	_, err := transport.RoundTrip(newTestRequest(t, context.Background()))
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Contains(t, err.Error(), "attempt 5/5")
	assert.Equal(t, transport.maxRetries, calls)
}

func TestRetryTransport_CallerCancellationStopsRetries(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	transport := newRetryTransport(roundTripFunc(func(req *http.Request) (*http.Response, error) {
		calls++
		cancel()
		<-req.Context().Done()
		return nil, req.Context().Err()
	}), time.Minute, zap.NewNop())
	transport.initialBackoff = time.Millisecond

	_, err := transport.RoundTrip(newTestRequest(t, ctx))
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, calls)
}

func TestRetryTransport_AttemptContextLivesUntilBodyClosed(t *testing.T) {
	var attemptCtx context.Context
	transport := newRetryTransport(roundTripFunc(func(req *http.Request) (*http.Response, error) {
		attemptCtx = req.Context()
		return okResponse(`[{"id":"evt-1"}]`), nil
	}), time.Minute, zap.NewNop())

	resp, err := transport.RoundTrip(newTestRequest(t, context.Background()))
	require.NoError(t, err)
	require.NotNil(t, attemptCtx)

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.JSONEq(t, `[{"id":"evt-1"}]`, string(body))
	assert.NoError(t, attemptCtx.Err(), "attempt context canceled before the body was closed")

	require.NoError(t, resp.Body.Close())
	assert.ErrorIs(t, attemptCtx.Err(), context.Canceled)
}

func TestRetryTransport_RetriesGatewayErrors(t *testing.T) {
	calls := 0
	transport := newRetryTransport(roundTripFunc(func(*http.Request) (*http.Response, error) {
		calls++
		if calls == 1 {
			return &http.Response{
				StatusCode: http.StatusBadGateway,
				Header:     make(http.Header),
				Body:       io.NopCloser(strings.NewReader("bad gateway")),
			}, nil
		}
		return okResponse(`[]`), nil
	}), 0, zap.NewNop())
	transport.initialBackoff = time.Millisecond

	resp, err := transport.RoundTrip(newTestRequest(t, context.Background()))
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, 2, calls)
}
