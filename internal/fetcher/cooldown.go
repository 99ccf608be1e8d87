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
	"context"
	"fmt"
	"strings"
	"time"
)

// Sleeper blocks for d or until ctx is done, returning ctx.Err() in the
// latter case.
type Sleeper func(ctx context.Context, d time.Duration) error

// ContextSleep is the real Sleeper.
func ContextSleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// cooldown waits out the policy's cool-down, redrawing a progress bar after
// every step.
func (f *Fetcher) cooldown(ctx context.Context) error {
	steps := f.policy.Steps
	if steps < 1 {
		steps = 1
	}
	step := f.policy.Cooldown / time.Duration(steps)

	fmt.Fprintln(f.progress)
	fmt.Fprintln(f.progress, "Bugsnag rate limit exceeded while getting events list")
	fmt.Fprintf(f.progress, "Waiting %d seconds\n", int(f.policy.Cooldown.Round(time.Second)/time.Second))

	for i := 1; i <= steps; i++ {
		if err := f.sleep(ctx, step); err != nil {
			fmt.Fprintln(f.progress)
			return err
		}
		fmt.Fprintf(f.progress, "%s\r", progressBar(i, steps))
	}
	fmt.Fprintln(f.progress)

	return nil
}

// progressBar renders done of total steps, e.g. [===.......].
func progressBar(done, total int) string {
	return "[" + strings.Repeat("=", done) + strings.Repeat(".", total-done) + "]"
}
