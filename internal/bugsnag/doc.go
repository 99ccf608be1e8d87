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
// Package bugsnag provides a client for the Bugsnag Data Access API, limited
// to what is needed to export the events of a single error: resolving
// organization and project slugs to IDs and walking the event pages of an
// error through rel="next" Link headers.
//
// The package includes:
//   - A Client interface, so callers can be tested against MockClient
//   - A REST implementation with authentication, retry of gateway errors
//     and optional client-side request pacing
//   - Type definitions for organizations, projects and event pages
//
// Basic usage:
//
//	client, err := bugsnag.NewRESTClient(bugsnag.Options{
//	    Endpoint: "https://api.bugsnag.com",
//	    Token:    token,
//	    Timeout:  30 * time.Second,
//	})
//	if err != nil {
//	    // Handle error
//	}
//	page, err := client.ListErrorEvents(ctx, projectID, errorID, bugsnag.EventOptions{
//	    FullReports: true,
//	})
//	for page.HasNext() {
//	    page, err = client.NextPage(ctx, page.Next)
//	}
//
// Errors are wrapped with the sentinels of internal/errors: ErrUnauthorized,
// ErrNotFound, ErrRateLimit and ErrNetworkFailure.
package bugsnag
