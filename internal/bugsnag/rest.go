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
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path"
	"strconv"
	"strings"
	"time"

	"github.com/tomnomnom/linkheader"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/sirseerhq/beetlejuice/internal/apierror"
	bjerrors "github.com/sirseerhq/beetlejuice/internal/errors"
)

// Options configures a RESTClient.
type Options struct {
	// Endpoint is the Data Access API base URL, e.g. https://api.bugsnag.com.
	Endpoint string
	// Token is the personal auth token. May be empty.
	Token string
	// Timeout bounds each attempt of a request, reading the body included.
	// Transient failures are retried up to five times with backoff in
	// between, so one request may take several times Timeout.
	Timeout time.Duration
	// PerPage is sent as per_page on organization and project listings.
	PerPage int
	// RequestsPerMinute paces requests on the client side. Zero disables pacing.
	RequestsPerMinute int
	// Logger receives request diagnostics. Nil means no logging.
	Logger *zap.Logger
	// Transport overrides the underlying transport; used by tests.
	Transport http.RoundTripper
}

// RESTClient implements Client against the Bugsnag Data Access API.
type RESTClient struct {
	httpClient *http.Client
	baseURL    *url.URL
	perPage    int
	limiter    *rate.Limiter
	inspector  apierror.Inspector
	logger     *zap.Logger
}

// NewRESTClient creates a Bugsnag client. The transport chain is
// auth -> retry -> base, so every retry carries the auth headers.
func NewRESTClient(opts Options) (*RESTClient, error) {
	baseURL, err := url.ParseRequestURI(opts.Endpoint)
	if err != nil {
		return nil, fmt.Errorf("invalid Bugsnag API endpoint %q: %w", opts.Endpoint, err)
	}

	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	base := opts.Transport
	if base == nil {
		base = &http.Transport{
			Proxy:               http.ProxyFromEnvironment,
			MaxIdleConns:        10,
			MaxIdleConnsPerHost: 10,
			IdleConnTimeout:     90 * time.Second,
			ForceAttemptHTTP2:   true,
		}
	}

	var limiter *rate.Limiter
	if opts.RequestsPerMinute > 0 {
		limiter = rate.NewLimiter(rate.Every(time.Minute/time.Duration(opts.RequestsPerMinute)), 1)
	}

	return &RESTClient{
		httpClient: &http.Client{
			Transport: &authTransport{
				token: opts.Token,
				base:  newRetryTransport(base, opts.Timeout, logger),
			},
		},
		baseURL:   baseURL,
		perPage:   opts.PerPage,
		limiter:   limiter,
		inspector: apierror.NewInspector(),
		logger:    logger,
	}, nil
}

// ListOrganizations implements Client.
func (c *RESTClient) ListOrganizations(ctx context.Context) ([]Organization, error) {
	var orgs []Organization
	next := c.endpoint("/user/organizations", c.listQuery())
	for next != "" {
		var page []Organization
		var err error
		next, err = c.getJSON(ctx, next, &page)
		if err != nil {
			return nil, fmt.Errorf("failed to list organizations: %w", err)
		}
		orgs = append(orgs, page...)
	}
	return orgs, nil
}

// ListProjects implements Client.
func (c *RESTClient) ListProjects(ctx context.Context, orgID string) ([]Project, error) {
	var projects []Project
	next := c.endpoint(path.Join("/organizations", orgID, "projects"), c.listQuery())
	for next != "" {
		var page []Project
		var err error
		next, err = c.getJSON(ctx, next, &page)
		if err != nil {
			return nil, fmt.Errorf("failed to list projects of organization %s: %w", orgID, err)
		}
		projects = append(projects, page...)
	}
	return projects, nil
}

// ListErrorEvents implements Client.
func (c *RESTClient) ListErrorEvents(ctx context.Context, projectID, errorID string, opts EventOptions) (*EventPage, error) {
	query := url.Values{}
	if opts.FullReports {
		query.Set("full_reports", "true")
	}
	if opts.PerPage > 0 {
		query.Set("per_page", strconv.Itoa(opts.PerPage))
	}

	target := c.endpoint(path.Join("/projects", projectID, "errors", errorID, "events"), query)
	page, err := c.eventPage(ctx, target)
	if err != nil {
		return nil, fmt.Errorf("failed to list events of error %s: %w", errorID, err)
	}
	return page, nil
}

// NextPage implements Client. The link must point at the configured API
// host so the auth token is never sent elsewhere.
func (c *RESTClient) NextPage(ctx context.Context, next string) (*EventPage, error) {
	u, err := url.Parse(next)
	if err != nil {
		return nil, fmt.Errorf("invalid next page link %q: %w", next, err)
	}
	u = c.baseURL.ResolveReference(u)
	if u.Host != c.baseURL.Host {
		return nil, fmt.Errorf("next page link %q leaves API host %s", next, c.baseURL.Host)
	}

	page, err := c.eventPage(ctx, u.String())
	if err != nil {
		return nil, fmt.Errorf("failed to fetch next page of events: %w", err)
	}
	return page, nil
}

func (c *RESTClient) eventPage(ctx context.Context, target string) (*EventPage, error) {
	var events []Event
	next, err := c.getJSON(ctx, target, &events)
	if err != nil {
		return nil, err
	}
	return &EventPage{Events: events, Next: next}, nil
}

// getJSON performs a GET, decodes the body into out and returns the
// rel="next" link, if any.
func (c *RESTClient) getJSON(ctx context.Context, target string, out interface{}) (string, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return "", err
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return "", err
	}

	c.logger.Debug("requesting", zap.String("url", target))

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", c.mapError(ctx, err)
	}
	//nolint:errcheck // closing body, error can be ignored here
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", c.mapError(ctx, newStatusError(req, resp))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		if ctx.Err() == nil && errors.Is(err, context.DeadlineExceeded) {
			return "", fmt.Errorf("%w: reading response from %s timed out: %w", bjerrors.ErrNetworkFailure, target, err)
		}
		return "", fmt.Errorf("failed to decode response from %s: %w", target, err)
	}

	return c.nextLink(resp.Header, req.URL), nil
}

// nextLink extracts the rel="next" target from the Link header, resolved
// against the request URL.
func (c *RESTClient) nextLink(header http.Header, requestURL *url.URL) string {
	for _, link := range linkheader.Parse(header.Get("Link")).FilterByRel("next") {
		u, err := url.Parse(link.URL)
		if err != nil {
			c.logger.Warn("ignoring malformed next link", zap.String("link", link.URL), zap.Error(err))
			continue
		}
		return requestURL.ResolveReference(u).String()
	}
	return ""
}

func (c *RESTClient) endpoint(p string, query url.Values) string {
	u := *c.baseURL
	u.Path = path.Join(u.Path, p)
	u.RawQuery = query.Encode()
	return u.String()
}

func (c *RESTClient) listQuery() url.Values {
	query := url.Values{}
	if c.perPage > 0 {
		query.Set("per_page", strconv.Itoa(c.perPage))
	}
	return query
}

// mapError maps transport and status errors to our domain errors while
// keeping the original error in the chain. Only a typed API response can be
// a rate limit, auth or not-found error; the message of a transport error
// carries the request URL, whose IDs may contain any status code digits.
func (c *RESTClient) mapError(ctx context.Context, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}

	var statusErr *apierror.StatusError
	if !errors.As(err, &statusErr) {
		if c.inspector.IsNetworkError(err) {
			return fmt.Errorf("%w: %w", bjerrors.ErrNetworkFailure, err)
		}
		return err
	}

	switch {
	case isRetryableStatusCode(statusErr.StatusCode):
		return fmt.Errorf("%w: %w", bjerrors.ErrNetworkFailure, err)
	case statusErr.IsRateLimitError():
		c.logger.Debug("rate limited", zap.Duration("retry_after", statusErr.RetryAfter))
		return fmt.Errorf("%w: %w", bjerrors.ErrRateLimit, err)
	case statusErr.IsAuthError():
		return fmt.Errorf("%w: %w", bjerrors.ErrUnauthorized, err)
	case statusErr.IsNotFoundError():
		return fmt.Errorf("%w: %w", bjerrors.ErrNotFound, err)
	}
	return err
}

// newStatusError builds a StatusError from a non-2xx response, reading the
// API's {"errors": [...]} body when present.
func newStatusError(req *http.Request, resp *http.Response) *apierror.StatusError {
	statusErr := &apierror.StatusError{
		Method:     req.Method,
		URL:        req.URL.String(),
		StatusCode: resp.StatusCode,
	}

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 64*1024))
	var payload struct {
		Errors []string `json:"errors"`
	}
	if json.Unmarshal(body, &payload) == nil && len(payload.Errors) > 0 {
		statusErr.Message = strings.Join(payload.Errors, "; ")
	} else {
		statusErr.Message = strings.TrimSpace(string(body))
	}

	if resp.StatusCode == http.StatusTooManyRequests {
		statusErr.RetryAfter = parseRetryAfter(resp.Header.Get("Retry-After"))
	}

	return statusErr
}

// parseRetryAfter accepts both delta-seconds and HTTP-date forms.
func parseRetryAfter(value string) time.Duration {
	if value == "" {
		return 0
	}
	if seconds, err := strconv.ParseInt(value, 10, 64); err == nil {
		return time.Duration(seconds) * time.Second
	}
	if when, err := http.ParseTime(value); err == nil {
		if d := time.Until(when); d > 0 {
			return d
		}
	}
	return 0
}
