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
// Package fetcher accumulates error events from a paged API until a target
// count is reached or the pages run out. Rate-limit responses pause the run
// for a cool-down and then retry the same page.
package fetcher

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"go.uber.org/zap"

	"github.com/sirseerhq/beetlejuice/internal/bugsnag"
	bjerrors "github.com/sirseerhq/beetlejuice/internal/errors"
	"github.com/sirseerhq/beetlejuice/internal/metadata"
)

// Pager fetches the page behind a rel="next" link. bugsnag.Client satisfies it.
type Pager interface {
	NextPage(ctx context.Context, next string) (*bugsnag.EventPage, error)
}

// Policy controls how rate-limit responses are handled.
type Policy struct {
	// Cooldown is the total wait after a rate-limit response.
	Cooldown time.Duration
	// Steps is the number of progress bar segments the cool-down is split into.
	Steps int
	// MaxRateLimitRetries bounds consecutive rate-limit retries of one page.
	// Zero retries forever.
	MaxRateLimitRetries int
}

// DefaultPolicy waits 60 seconds in 30 steps and never gives up.
func DefaultPolicy() Policy {
	return Policy{
		Cooldown: 60 * time.Second,
		Steps:    30,
	}
}

// Result is the outcome of a fetch.
type Result struct {
	// Events in API order. May hold more than the target when the last page
	// overshoots it; callers truncate.
	Events []bugsnag.Event
	// Pages counts pages received, the first one included.
	Pages int
	// RateLimitWaits counts cool-downs observed.
	RateLimitWaits int
}

// Fetcher drives the pagination loop.
type Fetcher struct {
	pager    Pager
	policy   Policy
	sleep    Sleeper
	progress io.Writer
	tracker  *metadata.Tracker
	logger   *zap.Logger
}

// Option configures a Fetcher.
type Option func(*Fetcher)

// WithPolicy sets the rate-limit policy.
func WithPolicy(p Policy) Option {
	return func(f *Fetcher) {
		f.policy = p
	}
}

// WithSleeper replaces the sleep used during cool-downs.
func WithSleeper(s Sleeper) Option {
	return func(f *Fetcher) {
		f.sleep = s
	}
}

// WithProgress sets where progress lines are written. Nil silences them.
func WithProgress(w io.Writer) Option {
	return func(f *Fetcher) {
		if w == nil {
			w = io.Discard
		}
		f.progress = w
	}
}

// WithTracker records API calls and cool-downs on t.
func WithTracker(t *metadata.Tracker) Option {
	return func(f *Fetcher) {
		f.tracker = t
	}
}

// WithLogger sets the diagnostic logger.
func WithLogger(l *zap.Logger) Option {
	return func(f *Fetcher) {
		if l != nil {
			f.logger = l
		}
	}
}

// New creates a Fetcher reading pages from pager.
func New(pager Pager, opts ...Option) *Fetcher {
	f := &Fetcher{
		pager:    pager,
		policy:   DefaultPolicy(),
		sleep:    ContextSleep,
		progress: io.Discard,
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// FirstPageFunc requests the first page of events.
type FirstPageFunc func(ctx context.Context) (*bugsnag.EventPage, error)

// FetchFrom requests the first page through first, with the same rate-limit
// handling as later pages, and continues with Fetch.
func (f *Fetcher) FetchFrom(ctx context.Context, first FirstPageFunc, target int) (*Result, error) {
	if target < 1 {
		return nil, fmt.Errorf("%w: target count must be positive, got %d", bjerrors.ErrInvalidOptions, target)
	}

	waits := 0
	page, err := f.request(ctx, "first page", &waits, func() (*bugsnag.EventPage, error) {
		return first(ctx)
	})
	if err != nil {
		return nil, err
	}

	result, err := f.Fetch(ctx, page, target)
	if err != nil {
		return nil, err
	}
	result.RateLimitWaits += waits
	return result, nil
}

// Fetch accumulates events starting with first until at least target events
// are held or the last page is reached. A rate-limit error triggers a
// cool-down after which the same page is requested again; any other error
// ends the fetch.
func (f *Fetcher) Fetch(ctx context.Context, first *bugsnag.EventPage, target int) (*Result, error) {
	if target < 1 {
		return nil, fmt.Errorf("%w: target count must be positive, got %d", bjerrors.ErrInvalidOptions, target)
	}
	if first == nil {
		first = &bugsnag.EventPage{}
	}

	result := &Result{
		Events: append([]bugsnag.Event(nil), first.Events...),
		Pages:  1,
	}
	cursor := first

	for cursor.HasNext() && len(result.Events) < target {
		next := cursor.Next
		page, err := f.request(ctx, next, &result.RateLimitWaits, func() (*bugsnag.EventPage, error) {
			return f.pager.NextPage(ctx, next)
		})
		if err != nil {
			return nil, err
		}

		result.Events = append(result.Events, page.Events...)
		result.Pages++
		cursor = page

		fmt.Fprintf(f.progress, "Fetched %d/%d events\r", min(len(result.Events), target), target)
	}
	fmt.Fprintln(f.progress)

	return result, nil
}

// request performs call, cooling down and repeating it for as long as it
// fails with a rate-limit error and the policy allows. waits is incremented
// for every cool-down.
func (f *Fetcher) request(ctx context.Context, what string, waits *int, call func() (*bugsnag.EventPage, error)) (*bugsnag.EventPage, error) {
	for retries := 0; ; {
		page, err := call()
		if f.tracker != nil {
			f.tracker.IncrementAPICall()
		}

		if err == nil {
			if page == nil {
				page = &bugsnag.EventPage{}
			}
			if f.tracker != nil {
				f.tracker.RecordPage(len(page.Events))
			}
			return page, nil
		}

		if !errors.Is(err, bjerrors.ErrRateLimit) {
			return nil, err
		}

		retries++
		if f.policy.MaxRateLimitRetries > 0 && retries > f.policy.MaxRateLimitRetries {
			return nil, fmt.Errorf("gave up after %d rate-limit retries: %w",
				f.policy.MaxRateLimitRetries, err)
		}

		f.logger.Debug("rate limited, cooling down",
			zap.String("request", what),
			zap.Int("retry", retries),
			zap.Duration("cooldown", f.policy.Cooldown))

		if err := f.cooldown(ctx); err != nil {
			return nil, err
		}
		*waits++
		if f.tracker != nil {
			f.tracker.RecordRateLimitWait(f.policy.Cooldown)
		}
	}
}
