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
	"fmt"
	"sync"

	bjerrors "github.com/sirseerhq/beetlejuice/internal/errors"
)

// MockClient is a mock implementation of the Bugsnag Client interface for testing.
// Pages are served in order: ListErrorEvents returns Pages[0] and each page
// links to the next one with a "page:N" cursor.
type MockClient struct {
	Organizations []Organization
	Projects      map[string][]Project
	Pages         [][]Event

	// Error is returned from every call when set
	Error error

	// RateLimitOn maps a page index to how many times requesting that
	// page fails with ErrRateLimit before it is served.
	RateLimitOn map[int]int

	// Behavior flags
	ShouldFailAuth     bool
	ShouldFailNotFound bool

	mu sync.Mutex
	// Track calls for verification
	EventCalls   int
	LastProject  string
	LastError    string
	LastOpts     EventOptions
	Cursors      []string
	rateLimitHit map[int]int
}

// NewMockClient creates a new mock client with one organization, one project
// and the given options applied.
func NewMockClient(opts ...MockClientOption) *MockClient {
	m := &MockClient{
		Organizations: []Organization{{ID: "org-1", Slug: "acme", Name: "Acme"}},
		Projects: map[string][]Project{
			"org-1": {{ID: "proj-1", Slug: "web", Name: "Web"}},
		},
		rateLimitHit: make(map[int]int),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// ListOrganizations implements the Client interface
func (m *MockClient) ListOrganizations(ctx context.Context) ([]Organization, error) {
	if err := m.check(ctx); err != nil {
		return nil, err
	}
	return m.Organizations, nil
}

// ListProjects implements the Client interface
func (m *MockClient) ListProjects(ctx context.Context, orgID string) ([]Project, error) {
	if err := m.check(ctx); err != nil {
		return nil, err
	}
	return m.Projects[orgID], nil
}

// ListErrorEvents implements the Client interface
func (m *MockClient) ListErrorEvents(ctx context.Context, projectID, errorID string, opts EventOptions) (*EventPage, error) {
	m.mu.Lock()
	m.LastProject = projectID
	m.LastError = errorID
	m.LastOpts = opts
	m.mu.Unlock()

	if m.ShouldFailNotFound {
		return nil, fmt.Errorf("error %s not found: %w", errorID, bjerrors.ErrNotFound)
	}
	return m.page(ctx, 0)
}

// NextPage implements the Client interface
func (m *MockClient) NextPage(ctx context.Context, next string) (*EventPage, error) {
	var index int
	if _, err := fmt.Sscanf(next, "page:%d", &index); err != nil {
		return nil, fmt.Errorf("unexpected cursor %q", next)
	}
	return m.page(ctx, index)
}

func (m *MockClient) page(ctx context.Context, index int) (*EventPage, error) {
	m.mu.Lock()
	m.EventCalls++
	m.Cursors = append(m.Cursors, fmt.Sprintf("page:%d", index))
	limited := m.rateLimitHit[index] < m.RateLimitOn[index]
	if limited {
		m.rateLimitHit[index]++
	}
	m.mu.Unlock()

	if err := m.check(ctx); err != nil {
		return nil, err
	}
	if limited {
		return nil, fmt.Errorf("too many requests: %w", bjerrors.ErrRateLimit)
	}

	if index >= len(m.Pages) {
		return &EventPage{}, nil
	}
	page := &EventPage{Events: m.Pages[index]}
	if index+1 < len(m.Pages) {
		page.Next = fmt.Sprintf("page:%d", index+1)
	}
	return page, nil
}

func (m *MockClient) check(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	if m.ShouldFailAuth {
		return fmt.Errorf("authentication failed: %w", bjerrors.ErrUnauthorized)
	}
	return m.Error
}

// MockClientOption allows configuring the mock client
type MockClientOption func(*MockClient)

// WithPages sets the event pages to serve
func WithPages(pages ...[]Event) MockClientOption {
	return func(m *MockClient) {
		m.Pages = pages
	}
}

// WithOrganizations replaces the organizations and their projects
func WithOrganizations(orgs []Organization, projects map[string][]Project) MockClientOption {
	return func(m *MockClient) {
		m.Organizations = orgs
		m.Projects = projects
	}
}

// WithRateLimit makes requests for the page at index page fail with
// ErrRateLimit the given number of times before it is served.
func WithRateLimit(page, times int) MockClientOption {
	return func(m *MockClient) {
		if m.RateLimitOn == nil {
			m.RateLimitOn = make(map[int]int)
		}
		m.RateLimitOn[page] = times
	}
}

// WithError makes the client return a specific error
func WithError(err error) MockClientOption {
	return func(m *MockClient) {
		m.Error = err
	}
}

// WithAuthFailure makes the client simulate authentication failure
func WithAuthFailure() MockClientOption {
	return func(m *MockClient) {
		m.ShouldFailAuth = true
	}
}

// WithNotFound makes ListErrorEvents simulate a missing error
func WithNotFound() MockClientOption {
	return func(m *MockClient) {
		m.ShouldFailNotFound = true
	}
}
