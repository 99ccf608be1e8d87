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
package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sirseerhq/beetlejuice/internal/bugsnag"
	"github.com/sirseerhq/beetlejuice/internal/config"
	"github.com/sirseerhq/beetlejuice/internal/credentials"
	bjerrors "github.com/sirseerhq/beetlejuice/internal/errors"
	"github.com/sirseerhq/beetlejuice/internal/fetcher"
	"github.com/sirseerhq/beetlejuice/internal/keypath"
	"github.com/sirseerhq/beetlejuice/internal/logging"
	"github.com/sirseerhq/beetlejuice/internal/runner"
	"github.com/sirseerhq/beetlejuice/internal/target"
	"github.com/sirseerhq/beetlejuice/pkg/version"
)

// rootFlags holds the raw command-line values.
type rootFlags struct {
	count        int
	keys         string
	output       string
	setToken     string
	configFile   string
	metadataFile string
	verbose      bool
}

func newRootCommand(stdout, stderr io.Writer) *cobra.Command {
	var flags rootFlags

	cmd := &cobra.Command{
		Use:   "beetlejuice [flags] url",
		Short: "Extract the juicy bits out of Bugsnag",
		Long: `Beetlejuice: extracts the juicy bits out of Bugsnag

Fetches the events of one Bugsnag error and writes them to a JSON file,
keeping only the key-paths you ask for. The url is the error's dashboard URL:

  https://app.bugsnag.com/{organization}/{project}/errors/{error_id}

Authentication uses a personal auth token, saved once with --set-token.`,
		Example: `  beetlejuice --set-token=your-token
  beetlejuice https://app.bugsnag.com/acme/webapp/errors/5f1a2b3c4d5e6f
  beetlejuice -c 1 -k all -o shape.json https://app.bugsnag.com/acme/webapp/errors/5f1a2b3c4d5e6f`,
		Args:          cobra.MaximumNArgs(1),
		Version:       version.Version,
		SilenceUsage:  true, // Don't show usage on error
		SilenceErrors: true, // We'll handle error printing ourselves
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRoot(cmd, args, flags, stdout, stderr)
		},
	}
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)

	f := cmd.Flags()
	f.IntVarP(&flags.count, "count", "c", config.DefaultCount, "Amount of events to be fetched")
	f.StringVarP(&flags.keys, "keys", "k", config.DefaultKeys, `Paths to values of interest, comma separated
  e.g.: - app.releaseStage,context,breadcrumbs.metaData.name
        - all (for all keys, payload may be huge. Try it once with "-c 1" to see
          the payload's shape and which keys are available)`)
	f.StringVarP(&flags.output, "output", "o", config.DefaultOutput, "Name of output file")
	f.StringVarP(&flags.setToken, "set-token", "t", "", "Personal Bugsnag token (required once)")
	f.StringVar(&flags.configFile, "config", "", "Path to configuration file")
	f.StringVar(&flags.metadataFile, "metadata", "", "Write run metadata as JSON to this file")
	f.BoolVarP(&flags.verbose, "verbose", "v", false, "Log debug diagnostics to stderr")

	return cmd
}

func runRoot(cmd *cobra.Command, args []string, flags rootFlags, stdout, stderr io.Writer) error {
	// Saving a token resolves the token file only; the rest of the
	// configuration is neither required nor validated.
	if cmd.Flags().Changed("set-token") {
		tokenFile := config.TokenFile(flags.configFile)
		r := runner.New(nil, credentials.NewFileStore(tokenFile),
			runner.WithOutput(stdout, nil),
			runner.WithTokenFile(tokenFile),
		)
		return r.SetToken(flags.setToken)
	}

	cfg, err := config.LoadConfig(flags.configFile)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("%w: %w", bjerrors.ErrInvalidOptions, err)
	}

	logger := logging.New(stderr, logging.Options{Verbose: flags.verbose})
	defer func() { _ = logger.Sync() }()

	store := credentials.NewFileStore(cfg.Bugsnag.TokenFile)

	var progress io.Writer
	if cfg.RateLimit.ShowProgress {
		progress = stderr
	}

	r := runner.New(newClientFactory(cfg, logger), store,
		runner.WithPolicy(fetcher.Policy{
			Cooldown:            cfg.RateLimit.Cooldown,
			Steps:               cfg.RateLimit.ProgressSteps,
			MaxRateLimitRetries: cfg.RateLimit.MaxRetries,
		}),
		runner.WithOutput(stdout, progress),
		runner.WithLogger(logger),
	)

	if len(args) == 0 {
		return fmt.Errorf("%w: url is required, see --help", bjerrors.ErrInvalidOptions)
	}
	url := args[0]

	opts := runner.Options{
		Count:        flags.count,
		Keys:         keypath.ParseList(flags.keys),
		Output:       flags.output,
		URL:          url,
		PerPage:      cfg.Bugsnag.PerPage,
		MetadataFile: flags.metadataFile,
	}
	applyConfigDefaults(cmd, cfg, url, &opts)

	logger.Debug("starting export",
		zap.String("url", opts.URL),
		zap.Int("count", opts.Count),
		zap.Strings("keys", opts.Keys),
		zap.String("output", opts.Output))

	return r.Run(cmd.Context(), opts)
}

// applyConfigDefaults fills options whose flags were not given from the
// configuration, honoring per-project overrides.
func applyConfigDefaults(cmd *cobra.Command, cfg *config.Config, url string, opts *runner.Options) {
	project := ""
	if t, err := target.Parse(url); err == nil {
		project = t.Organization + "/" + t.Project
	}
	defaults := cfg.DefaultsFor(project)

	if !cmd.Flags().Changed("count") {
		opts.Count = defaults.Count
	}
	if !cmd.Flags().Changed("keys") {
		opts.Keys = keypath.ParseList(defaults.Keys)
	}
	if !cmd.Flags().Changed("output") {
		opts.Output = defaults.Output
	}
}

// newClientFactory builds REST clients from the configuration.
func newClientFactory(cfg *config.Config, logger *zap.Logger) runner.ClientFactory {
	return func(token string) (bugsnag.Client, error) {
		client, err := bugsnag.NewRESTClient(bugsnag.Options{
			Endpoint:          cfg.Bugsnag.APIEndpoint,
			Token:             token,
			Timeout:           cfg.Bugsnag.RequestTimeout,
			PerPage:           cfg.Bugsnag.PerPage,
			RequestsPerMinute: cfg.RateLimit.RequestsPerMinute,
			Logger:            logger,
		})
		if err != nil {
			return nil, err
		}
		return client, nil
	}
}
