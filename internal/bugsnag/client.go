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

import "context"

// Client defines the interface for interacting with the Bugsnag Data Access API.
// This interface allows for easy mocking in tests.
type Client interface {
	// ListOrganizations returns every organization the token can see,
	// following pagination.
	ListOrganizations(ctx context.Context) ([]Organization, error)

	// ListProjects returns every project of the organization, following
	// pagination.
	ListProjects(ctx context.Context, orgID string) ([]Project, error)

	// ListErrorEvents returns the first page of events for an error.
	// Later pages are fetched with NextPage using EventPage.Next.
	ListErrorEvents(ctx context.Context, projectID, errorID string, opts EventOptions) (*EventPage, error)

	// NextPage follows a rel="next" link returned by a previous page.
	NextPage(ctx context.Context, next string) (*EventPage, error)
}
