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

import "encoding/json"

// Organization is the subset of a Bugsnag organization needed to resolve a
// slug from the dashboard URL to an ID.
type Organization struct {
	ID   string `json:"id"`
	Slug string `json:"slug"`
	Name string `json:"name"`
}

// Project is the subset of a Bugsnag project needed to resolve a slug from
// the dashboard URL to an ID.
type Project struct {
	ID   string `json:"id"`
	Slug string `json:"slug"`
	Name string `json:"name"`
}

// Event is a single error event exactly as the API returned it. The shape
// varies between notifiers and grows with full_reports, so it is kept raw
// and only decoded when key-paths are projected out of it.
type Event = json.RawMessage

// EventPage is one page of error events.
type EventPage struct {
	Events []Event

	// Next is the absolute URL of the following page, taken from the
	// rel="next" Link header. Empty when this is the last page.
	Next string
}

// HasNext reports whether another page can be requested.
func (p *EventPage) HasNext() bool {
	return p != nil && p.Next != ""
}

// EventOptions configures ListErrorEvents.
type EventOptions struct {
	// FullReports asks the API for complete event payloads rather than
	// the summary representation.
	FullReports bool

	// PerPage is sent as per_page. Zero keeps the server default.
	PerPage int
}
