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
// Package runner ties one export run together: it resolves the auth token,
// turns a dashboard URL into Bugsnag IDs, fetches the events, projects them
// onto the requested key-paths and writes the result to disk.
package runner

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/sirseerhq/beetlejuice/internal/bugsnag"
	"github.com/sirseerhq/beetlejuice/internal/credentials"
	bjerrors "github.com/sirseerhq/beetlejuice/internal/errors"
	"github.com/sirseerhq/beetlejuice/internal/fetcher"
	"github.com/sirseerhq/beetlejuice/internal/keypath"
	"github.com/sirseerhq/beetlejuice/internal/metadata"
	"github.com/sirseerhq/beetlejuice/internal/output"
	"github.com/sirseerhq/beetlejuice/internal/target"
	"github.com/sirseerhq/beetlejuice/pkg/version"
)

// unauthorizedHelp is printed when Bugsnag rejects the token.
const unauthorizedHelp = `Authorization token incorrect.
Go to Bugsnag > Click on your avatar > Settings > Personal auth tokens
Generate a token and run:
beetlejuice --set-token=your-token
`

// Options is the configuration of a single run.
type Options struct {
	// Count is the number of events to export.
	Count int `validate:"gt=0"`
	// Keys are the dotted key-paths to keep, or ["all"].
	Keys []string `validate:"min=1,dive,required"`
	// Output is the path of the JSON file to write.
	Output string `validate:"required"`
	// URL is the dashboard URL of the error.
	URL string `validate:"required"`
	// PerPage is sent as per_page on event requests. Zero keeps the
	// server default.
	PerPage int `validate:"gte=0,lte=100"`
	// MetadataFile, when set, receives a JSON record of the run.
	MetadataFile string
}

// ClientFactory creates a Bugsnag client authenticated with token.
type ClientFactory func(token string) (bugsnag.Client, error)

// Runner executes runs. The zero value is not usable; create one with New.
type Runner struct {
	newClient ClientFactory
	store     credentials.Store
	tokenFile string
	policy    fetcher.Policy
	sleep     fetcher.Sleeper
	stdout    io.Writer
	progress  io.Writer
	logger    *zap.Logger
	validate  *validator.Validate
}

// Option configures a Runner.
type Option func(*Runner)

// WithPolicy sets the rate-limit policy of the fetch loop.
func WithPolicy(p fetcher.Policy) Option {
	return func(r *Runner) {
		r.policy = p
	}
}

// WithSleeper replaces the sleep used during rate-limit cool-downs.
func WithSleeper(s fetcher.Sleeper) Option {
	return func(r *Runner) {
		r.sleep = s
	}
}

// WithOutput sets where status lines and fetch progress are printed.
// A nil progress writer hides fetch progress.
func WithOutput(stdout, progress io.Writer) Option {
	return func(r *Runner) {
		if stdout != nil {
			r.stdout = stdout
		}
		if progress == nil {
			progress = io.Discard
		}
		r.progress = progress
	}
}

// WithLogger sets the diagnostic logger.
func WithLogger(l *zap.Logger) Option {
	return func(r *Runner) {
		if l != nil {
			r.logger = l
		}
	}
}

// WithTokenFile sets the token file name shown after saving a token.
func WithTokenFile(name string) Option {
	return func(r *Runner) {
		r.tokenFile = name
	}
}

// New creates a Runner that builds clients with newClient and keeps the
// token in store.
func New(newClient ClientFactory, store credentials.Store, opts ...Option) *Runner {
	r := &Runner{
		newClient: newClient,
		store:     store,
		tokenFile: ".token",
		policy:    fetcher.DefaultPolicy(),
		sleep:     fetcher.ContextSleep,
		stdout:    io.Discard,
		progress:  io.Discard,
		logger:    zap.NewNop(),
		validate:  validator.New(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// SetToken saves token for later runs.
func (r *Runner) SetToken(token string) error {
	if strings.TrimSpace(token) == "" {
		return fmt.Errorf("%w: token must not be empty", bjerrors.ErrInvalidOptions)
	}
	if err := r.store.Save(token); err != nil {
		return fmt.Errorf("failed to save token: %w", err)
	}
	fmt.Fprintf(r.stdout, "Token saved in %s, all set!\n", r.tokenFile)
	return nil
}

// Run exports the events of the error named by opts.URL. When Bugsnag
// rejects the token, instructions for setting a new one are printed before
// the error is returned. Nothing is written unless the run succeeds.
func (r *Runner) Run(ctx context.Context, opts Options) error {
	if err := r.validate.Struct(opts); err != nil {
		return fmt.Errorf("%w: %w", bjerrors.ErrInvalidOptions, err)
	}

	err := r.run(ctx, opts)
	if errors.Is(err, bjerrors.ErrUnauthorized) {
		fmt.Fprint(r.stdout, unauthorizedHelp)
	}
	return err
}

func (r *Runner) run(ctx context.Context, opts Options) error {
	t, err := target.Parse(opts.URL)
	if err != nil {
		return err
	}

	token, err := r.store.Load()
	if err != nil {
		return fmt.Errorf("failed to load token: %w", err)
	}
	if token == "" {
		r.logger.Debug("no token saved, sending unauthenticated requests")
	}

	client, err := r.newClient(token)
	if err != nil {
		return err
	}

	tracker := metadata.New()
	r.logger.Debug("starting run", zap.String("run_id", tracker.RunID()))

	org, err := findOrganization(ctx, client, t.Organization)
	tracker.IncrementAPICall()
	if err != nil {
		return err
	}
	project, err := findProject(ctx, client, org, t.Project)
	tracker.IncrementAPICall()
	if err != nil {
		return err
	}
	r.logger.Debug("resolved error",
		zap.Stringer("target", t),
		zap.String("organization_id", org.ID),
		zap.String("project_id", project.ID),
		zap.String("error_id", t.ErrorID))

	f := fetcher.New(client,
		fetcher.WithPolicy(r.policy),
		fetcher.WithSleeper(r.sleep),
		fetcher.WithProgress(r.progress),
		fetcher.WithTracker(tracker),
		fetcher.WithLogger(r.logger),
	)
	result, err := f.FetchFrom(ctx, func(ctx context.Context) (*bugsnag.EventPage, error) {
		return client.ListErrorEvents(ctx, project.ID, t.ErrorID, bugsnag.EventOptions{
			FullReports: true,
			PerPage:     opts.PerPage,
		})
	}, opts.Count)
	if err != nil {
		return err
	}

	events := result.Events
	if len(events) > opts.Count {
		events = events[:opts.Count]
	}

	fmt.Fprintf(r.stdout, "Saving events to %s\n", opts.Output)
	fmt.Fprintf(r.stdout, "Filtered to only keep the keys: %s\n", strings.Join(opts.Keys, ","))

	w, err := output.NewFileWriter(opts.Output)
	if err != nil {
		return err
	}
	if err := writeEvents(w, events, opts.Keys); err != nil {
		_ = w.Abort()
		return err
	}
	if err := w.Close(); err != nil {
		return err
	}
	r.logger.Debug("export complete",
		zap.Int("events", w.Count()),
		zap.Int("pages", result.Pages),
		zap.Int("api_calls", tracker.APICalls()),
		zap.Int("rate_limit_waits", result.RateLimitWaits))

	if opts.MetadataFile != "" {
		recordEventTimes(tracker, events)
		md := tracker.GenerateMetadata(version.Version, metadata.RunParams{
			URL:          opts.URL,
			Organization: t.Organization,
			Project:      t.Project,
			ErrorID:      t.ErrorID,
			Count:        opts.Count,
			Keys:         opts.Keys,
			Output:       opts.Output,
		}, w.Count())
		if err := metadata.SaveMetadata(md, opts.MetadataFile); err != nil {
			// The export itself succeeded.
			r.logger.Warn("failed to save run metadata", zap.String("path", opts.MetadataFile), zap.Error(err))
		}
	}

	return nil
}

// findOrganization returns the first organization whose slug matches.
func findOrganization(ctx context.Context, client bugsnag.Client, slug string) (bugsnag.Organization, error) {
	orgs, err := client.ListOrganizations(ctx)
	if err != nil {
		return bugsnag.Organization{}, err
	}
	for _, org := range orgs {
		if org.Slug == slug {
			return org, nil
		}
	}
	return bugsnag.Organization{}, fmt.Errorf("%w: no organization with slug %q is visible to this token",
		bjerrors.ErrOrganizationNotFound, slug)
}

// findProject returns the first project of org whose slug matches.
func findProject(ctx context.Context, client bugsnag.Client, org bugsnag.Organization, slug string) (bugsnag.Project, error) {
	projects, err := client.ListProjects(ctx, org.ID)
	if err != nil {
		return bugsnag.Project{}, err
	}
	for _, project := range projects {
		if project.Slug == slug {
			return project, nil
		}
	}
	return bugsnag.Project{}, fmt.Errorf("%w: organization %q has no project with slug %q",
		bjerrors.ErrProjectNotFound, org.Slug, slug)
}

// writeEvents projects every event onto keys and writes it to w. The caller
// closes or aborts w.
func writeEvents(w output.OutputWriter, events []bugsnag.Event, keys []string) error {
	for i, event := range events {
		record, err := keypath.Extract(event, keys)
		if err != nil {
			return fmt.Errorf("event %d: %w", i, err)
		}
		if err := w.Write(record); err != nil {
			return err
		}
	}
	return nil
}

// recordEventTimes feeds received_at of every event to the tracker. Events
// without a parseable timestamp are skipped.
func recordEventTimes(tracker *metadata.Tracker, events []bugsnag.Event) {
	for _, event := range events {
		value, err := keypath.Decode(event)
		if err != nil {
			continue
		}
		s, ok := keypath.Lookup(value, "received_at").(string)
		if !ok {
			continue
		}
		if ts, err := time.Parse(time.RFC3339Nano, s); err == nil {
			tracker.UpdateEventStats(ts)
		}
	}
}
