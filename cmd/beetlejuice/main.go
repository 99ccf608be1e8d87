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
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	bjerrors "github.com/sirseerhq/beetlejuice/internal/errors"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := execute(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

// execute runs the root command and returns the process exit code.
func execute(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	rootCmd := newRootCommand(stdout, stderr)
	rootCmd.SetArgs(args)

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return mapErrorToExitCode(err)
	}
	return 0
}

// mapErrorToExitCode maps internal errors to appropriate exit codes
func mapErrorToExitCode(err error) int {
	if err == nil {
		return 0
	}

	if errors.Is(err, bjerrors.ErrUnauthorized) ||
		errors.Is(err, bjerrors.ErrNotFound) ||
		errors.Is(err, bjerrors.ErrOrganizationNotFound) ||
		errors.Is(err, bjerrors.ErrProjectNotFound) ||
		errors.Is(err, bjerrors.ErrInvalidURL) ||
		errors.Is(err, bjerrors.ErrInvalidOptions) {
		return 2 // Authentication, lookup and input errors
	}

	if errors.Is(err, bjerrors.ErrNetworkFailure) {
		return 3 // Network errors
	}

	return 1 // General error
}
