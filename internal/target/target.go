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
// Package target parses Bugsnag dashboard error URLs.
package target

import (
	"fmt"
	"regexp"

	bjerrors "github.com/sirseerhq/beetlejuice/internal/errors"
)

// errorURL matches https://app.bugsnag.com/{org}/{project}/errors/{error_id}
// with an optional trailing slash. A query string or fragment after the error
// ID is ignored; further path segments are not.
var errorURL = regexp.MustCompile(`^https://app\.bugsnag\.com/([^/?#]*)/([^/?#]*)/errors/([^/?#]*)/?(?:[?#].*)?$`)

// Target identifies one error group on the dashboard.
type Target struct {
	Organization string
	Project      string
	ErrorID      string
}

// Parse extracts the organization slug, project slug and error ID from a
// dashboard URL. It fails with ErrInvalidURL when the URL does not match or
// any part is empty.
func Parse(rawURL string) (Target, error) {
	m := errorURL.FindStringSubmatch(rawURL)
	if m == nil {
		return Target{}, fmt.Errorf("%w: %q does not look like https://app.bugsnag.com/{organization}/{project}/errors/{error_id}",
			bjerrors.ErrInvalidURL, rawURL)
	}

	t := Target{Organization: m[1], Project: m[2], ErrorID: m[3]}
	switch {
	case t.Organization == "":
		return Target{}, fmt.Errorf("%w: %q has no organization", bjerrors.ErrInvalidURL, rawURL)
	case t.Project == "":
		return Target{}, fmt.Errorf("%w: %q has no project", bjerrors.ErrInvalidURL, rawURL)
	case t.ErrorID == "":
		return Target{}, fmt.Errorf("%w: %q has no error ID", bjerrors.ErrInvalidURL, rawURL)
	case isDotSegment(t.Organization), isDotSegment(t.Project), isDotSegment(t.ErrorID):
		return Target{}, fmt.Errorf("%w: %q contains a relative path segment", bjerrors.ErrInvalidURL, rawURL)
	}
	return t, nil
}

// String returns the dashboard path of the target.
func (t Target) String() string {
	return t.Organization + "/" + t.Project + "/errors/" + t.ErrorID
}

func isDotSegment(s string) bool {
	return s == "." || s == ".."
}
