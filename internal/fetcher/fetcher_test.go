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
package fetcher

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sirseerhq/beetlejuice/internal/bugsnag"
	bjerrors "github.com/sirseerhq/beetlejuice/internal/errors"
	"github.com/sirseerhq/beetlejuice/internal/metadata"
)

// endlessPager serves pages of perPage events forever.
type endlessPager struct {
	perPage int
	calls   []string
}

func (p *endlessPager) NextPage(_ context.Context, next string) (*bugsnag.EventPage, error) {
	p.calls = append(p.calls, next)
	var n int
	fmt.Sscanf(next, "page:%d", &n)
	return &bugsnag.EventPage{
		Events: events(n*p.perPage, p.perPage),
		Next:   fmt.Sprintf("page:%d", n+1),
	}, nil
}

// events returns count events numbered from start.
func events(start, count int) []bugsnag.Event {
	out := make([]bugsnag.Event, count)
	for i := range out {
		out[i] = bugsnag.Event(fmt.Sprintf(`{"n":%d}`, start+i))
	}
	return out
}

type sleepRecorder struct {
	slept []time.Duration
}

func (s *sleepRecorder) sleep(_ context.Context, d time.Duration) error {
	s.slept = append(s.slept, d)
	return nil
}

func firstPage(mock *bugsnag.MockClient) *bugsnag.EventPage {
	page, _ := mock.ListErrorEvents(context.Background(), "p", "e", bugsnag.EventOptions{})
	return page
}

func TestFetch_StopsWhenCountReached(t *testing.T) {
	pager := &endlessPager{perPage: 3}
	first := &bugsnag.EventPage{Events: events(0, 3), Next: "page:1"}

	result, err := New(pager).Fetch(context.Background(), first, 10)
	require.NoError(t, err)

	// 3 + 3 + 3 + 3: the fourth page crosses 10 and nothing more is requested.
	assert.Len(t, result.Events, 12)
	assert.Equal(t, []string{"page:1", "page:2", "page:3"}, pager.calls)
	assert.Equal(t, 4, result.Pages)
}

func TestFetch_FirstPageAlreadyEnough(t *testing.T) {
	pager := &endlessPager{perPage: 5}
	first := &bugsnag.EventPage{Events: events(0, 5), Next: "page:1"}

	result, err := New(pager).Fetch(context.Background(), first, 5)
	require.NoError(t, err)
	assert.Len(t, result.Events, 5)
	assert.Empty(t, pager.calls)
}

func TestFetch_StopsWhenPagesExhausted(t *testing.T) {
	mock := bugsnag.NewMockClient(bugsnag.WithPages(events(0, 2), events(2, 2), events(4, 1)))

	result, err := New(mock).Fetch(context.Background(), firstPage(mock), 100)
	require.NoError(t, err)

	assert.Len(t, result.Events, 5)
	assert.Equal(t, 3, result.Pages)
	assert.Equal(t, 3, mock.EventCalls)
	for i, event := range result.Events {
		assert.JSONEq(t, fmt.Sprintf(`{"n":%d}`, i), string(event))
	}
}

func TestFetch_ResumesSamePageAfterRateLimit(t *testing.T) {
	pages := [][]bugsnag.Event{events(0, 2), events(2, 2), events(4, 2), events(6, 2)}

	clean := bugsnag.NewMockClient(bugsnag.WithPages(pages...))
	want, err := New(clean).Fetch(context.Background(), firstPage(clean), 100)
	require.NoError(t, err)

	limited := bugsnag.NewMockClient(bugsnag.WithPages(pages...), bugsnag.WithRateLimit(2, 2))
	recorder := &sleepRecorder{}
	var progress bytes.Buffer
	got, err := New(limited,
		WithSleeper(recorder.sleep),
		WithProgress(&progress),
	).Fetch(context.Background(), firstPage(limited), 100)
	require.NoError(t, err)

	assert.Equal(t, want.Events, got.Events)
	assert.Equal(t, 2, got.RateLimitWaits)
	assert.Equal(t, []string{"page:0", "page:1", "page:2", "page:2", "page:2", "page:3"}, limited.Cursors)

	// Two cool-downs of 30 two-second steps.
	require.Len(t, recorder.slept, 60)
	for _, d := range recorder.slept {
		assert.Equal(t, 2*time.Second, d)
	}

	out := progress.String()
	assert.Contains(t, out, "Bugsnag rate limit exceeded while getting events list")
	assert.Contains(t, out, "Waiting 60 seconds")
	assert.Contains(t, out, "["+strings.Repeat("=", 30)+"]\r")
	assert.Contains(t, out, "Fetched 8/100 events\r")
}

func TestFetch_MaxRateLimitRetries(t *testing.T) {
	mock := bugsnag.NewMockClient(
		bugsnag.WithPages(events(0, 1), events(1, 1)),
		bugsnag.WithRateLimit(1, 10),
	)
	recorder := &sleepRecorder{}

	_, err := New(mock,
		WithSleeper(recorder.sleep),
		WithPolicy(Policy{Cooldown: time.Second, Steps: 2, MaxRateLimitRetries: 3}),
	).Fetch(context.Background(), firstPage(mock), 10)

	require.Error(t, err)
	assert.True(t, errors.Is(err, bjerrors.ErrRateLimit))
	assert.Contains(t, err.Error(), "gave up after 3 rate-limit retries")
	assert.Len(t, recorder.slept, 6)
}

func TestFetch_PropagatesOtherErrors(t *testing.T) {
	mock := bugsnag.NewMockClient(bugsnag.WithPages(events(0, 1), events(1, 1)))
	first := firstPage(mock)
	mock.Error = fmt.Errorf("boom: %w", bjerrors.ErrNetworkFailure)

	_, err := New(mock).Fetch(context.Background(), first, 10)
	assert.True(t, errors.Is(err, bjerrors.ErrNetworkFailure))
}

func TestFetch_CancelledDuringCooldown(t *testing.T) {
	mock := bugsnag.NewMockClient(
		bugsnag.WithPages(events(0, 1), events(1, 1)),
		bugsnag.WithRateLimit(1, 1),
	)
	ctx, cancel := context.WithCancel(context.Background())

	_, err := New(mock, WithSleeper(func(ctx context.Context, _ time.Duration) error {
		cancel()
		return ctx.Err()
	})).Fetch(ctx, firstPage(mock), 10)

	assert.ErrorIs(t, err, context.Canceled)
}

func TestFetch_ProgressIsCappedAtTarget(t *testing.T) {
	pager := &endlessPager{perPage: 4}
	first := &bugsnag.EventPage{Events: events(0, 4), Next: "page:1"}
	var progress bytes.Buffer

	_, err := New(pager, WithProgress(&progress)).Fetch(context.Background(), first, 6)
	require.NoError(t, err)

	assert.Equal(t, "Fetched 6/6 events\r\n", progress.String())
}

func TestFetch_InvalidTarget(t *testing.T) {
	_, err := New(&endlessPager{}).Fetch(context.Background(), &bugsnag.EventPage{}, 0)
	assert.ErrorIs(t, err, bjerrors.ErrInvalidOptions)
}

func TestFetch_RecordsOnTracker(t *testing.T) {
	mock := bugsnag.NewMockClient(
		bugsnag.WithPages(events(0, 2), events(2, 2), events(4, 2)),
		bugsnag.WithRateLimit(2, 1),
	)
	tracker := metadata.New()
	recorder := &sleepRecorder{}

	result, err := New(mock, WithTracker(tracker), WithSleeper(recorder.sleep)).
		FetchFrom(context.Background(), func(ctx context.Context) (*bugsnag.EventPage, error) {
			return mock.ListErrorEvents(ctx, "p", "e", bugsnag.EventOptions{FullReports: true})
		}, 100)
	require.NoError(t, err)
	assert.Len(t, result.Events, 6)

	md := tracker.GenerateMetadata("dev", metadata.RunParams{}, len(result.Events))
	assert.Equal(t, 4, md.Results.APICallCount)
	assert.Equal(t, 3, md.Results.Pages)
	assert.Equal(t, 6, md.Results.EventsFetched)
	assert.Equal(t, 1, md.Results.RateLimitWaits)
}

func TestFetchFrom_RetriesRateLimitedFirstPage(t *testing.T) {
	mock := bugsnag.NewMockClient(
		bugsnag.WithPages(events(0, 2), events(2, 2)),
		bugsnag.WithRateLimit(0, 1),
	)
	recorder := &sleepRecorder{}

	result, err := New(mock, WithSleeper(recorder.sleep)).
		FetchFrom(context.Background(), func(ctx context.Context) (*bugsnag.EventPage, error) {
			return mock.ListErrorEvents(ctx, "p", "e", bugsnag.EventOptions{})
		}, 100)
	require.NoError(t, err)

	assert.Len(t, result.Events, 4)
	assert.Equal(t, 1, result.RateLimitWaits)
	assert.Equal(t, []string{"page:0", "page:0", "page:1"}, mock.Cursors)
}

func TestProgressBar(t *testing.T) {
	assert.Equal(t, "[=....]", progressBar(1, 5))
	assert.Equal(t, "[=====]", progressBar(5, 5))
}

func TestContextSleep(t *testing.T) {
	require.NoError(t, ContextSleep(context.Background(), time.Millisecond))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, ContextSleep(ctx, time.Hour), context.Canceled)
}

var _ Pager = (*bugsnag.MockClient)(nil)
