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
// Package testutil provides common test helpers for beetlejuice
package testutil

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"
)

// Organization and Project are served by the mock API.
type Organization struct {
	ID   string `json:"id"`
	Slug string `json:"slug"`
	Name string `json:"name"`
}

// Project is a project of an Organization.
type Project struct {
	ID   string `json:"id"`
	Slug string `json:"slug"`
	Name string `json:"name"`
}

// MockServer is an httptest server speaking the subset of the Bugsnag Data
// Access API used by beetlejuice. Event pages are addressed with an offset
// query parameter and linked with rel="next" Link headers.
type MockServer struct {
	*httptest.Server

	// Token is the accepted auth token. Empty accepts any request,
	// authenticated or not.
	Token string
	// Organizations and Projects (keyed by organization ID) back the lookups.
	Organizations []Organization
	Projects      map[string][]Project
	// ErrorID is the only error with events.
	ErrorID string
	// Events are served for ErrorID, PageSize at a time.
	Events   []json.RawMessage
	PageSize int
	// RateLimitAt maps an event offset to how many times that page answers
	// 429 before it is served.
	RateLimitAt map[int]int
	// FailStatus, when non-zero, is returned for every request.
	FailStatus int

	mu         sync.Mutex
	requests   []*http.Request
	rateLimits map[int]int
}

// MockServerOption configures a MockServer.
type MockServerOption func(*MockServer)

// WithToken requires token on every request.
func WithToken(token string) MockServerOption {
	return func(s *MockServer) { s.Token = token }
}

// WithEvents serves events pageSize at a time.
func WithEvents(events []json.RawMessage, pageSize int) MockServerOption {
	return func(s *MockServer) {
		s.Events = events
		s.PageSize = pageSize
	}
}

// WithRateLimitAt makes the page starting at offset answer 429 times times.
func WithRateLimitAt(offset, times int) MockServerOption {
	return func(s *MockServer) { s.RateLimitAt[offset] = times }
}

// WithFailStatus answers every request with status.
func WithFailStatus(status int) MockServerOption {
	return func(s *MockServer) { s.FailStatus = status }
}

// NewMockServer starts a mock API with organization "acme" (org-1), project
// "webapp" (proj-1) and error "abc123". The server is closed when the test
// ends.
func NewMockServer(t *testing.T, opts ...MockServerOption) *MockServer {
	t.Helper()

	s := &MockServer{
		Organizations: []Organization{
			{ID: "org-0", Slug: "umbrella", Name: "Umbrella"},
			{ID: "org-1", Slug: "acme", Name: "Acme"},
		},
		Projects: map[string][]Project{
			"org-1": {
				{ID: "proj-0", Slug: "api", Name: "API"},
				{ID: "proj-1", Slug: "webapp", Name: "Web App"},
			},
		},
		ErrorID:     "abc123",
		PageSize:    30,
		RateLimitAt: make(map[int]int),
		rateLimits:  make(map[int]int),
	}
	for _, opt := range opts {
		opt(s)
	}

	s.Server = httptest.NewServer(http.HandlerFunc(s.handle))
	t.Cleanup(s.Close)
	return s
}

// ErrorURL returns the dashboard URL of the served error.
func (s *MockServer) ErrorURL() string {
	return "https://app.bugsnag.com/acme/webapp/errors/" + s.ErrorID
}

// RequestCount returns the number of requests received.
func (s *MockServer) RequestCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.requests)
}

// EventRequests returns the offsets of every event page request, in order.
func (s *MockServer) EventRequests() []int {
	s.mu.Lock()
	defer s.mu.Unlock()

	var offsets []int
	for _, r := range s.requests {
		if strings.HasSuffix(r.URL.Path, "/events") {
			offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))
			offsets = append(offsets, offset)
		}
	}
	return offsets
}

// LastRequest returns the most recent request, or nil.
func (s *MockServer) LastRequest() *http.Request {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.requests) == 0 {
		return nil
	}
	return s.requests[len(s.requests)-1]
}

func (s *MockServer) handle(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	s.requests = append(s.requests, r.Clone(r.Context()))
	s.mu.Unlock()

	if s.FailStatus != 0 {
		writeErrors(w, s.FailStatus, http.StatusText(s.FailStatus))
		return
	}
	if r.Header.Get("X-Version") != "2" {
		writeErrors(w, http.StatusBadRequest, "X-Version header must be 2")
		return
	}
	if s.Token != "" && r.Header.Get("Authorization") != "token "+s.Token {
		writeErrors(w, http.StatusUnauthorized, "Invalid authentication token")
		return
	}

	parts := strings.Split(strings.Trim(r.URL.Path, "/"), "/")
	switch {
	case len(parts) == 2 && parts[0] == "user" && parts[1] == "organizations":
		writeJSON(w, s.Organizations)
	case len(parts) == 3 && parts[0] == "organizations" && parts[2] == "projects":
		writeJSON(w, s.Projects[parts[1]])
	case len(parts) == 5 && parts[0] == "projects" && parts[2] == "errors" && parts[4] == "events":
		s.handleEvents(w, r, parts[1], parts[3])
	default:
		writeErrors(w, http.StatusNotFound, "Not found")
	}
}

func (s *MockServer) handleEvents(w http.ResponseWriter, r *http.Request, projectID, errorID string) {
	if !s.hasProject(projectID) || errorID != s.ErrorID {
		writeErrors(w, http.StatusNotFound, "Not found")
		return
	}

	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))

	s.mu.Lock()
	limited := s.rateLimits[offset] < s.RateLimitAt[offset]
	if limited {
		s.rateLimits[offset]++
	}
	s.mu.Unlock()
	if limited {
		w.Header().Set("Retry-After", "60")
		writeErrors(w, http.StatusTooManyRequests, "Rate limit exceeded")
		return
	}

	end := min(offset+s.PageSize, len(s.Events))
	page := []json.RawMessage{}
	if offset < end {
		page = s.Events[offset:end]
	}

	if end < len(s.Events) {
		next := *r.URL
		query := next.Query()
		query.Set("offset", strconv.Itoa(end))
		next.RawQuery = query.Encode()
		w.Header().Set("Link", fmt.Sprintf("<%s%s>; rel=\"next\"", s.URL, next.RequestURI()))
	}
	writeJSON(w, page)
}

func (s *MockServer) hasProject(projectID string) bool {
	for _, projects := range s.Projects {
		for _, p := range projects {
			if p.ID == projectID {
				return true
			}
		}
	}
	return false
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

func writeErrors(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string][]string{"errors": {message}})
}
