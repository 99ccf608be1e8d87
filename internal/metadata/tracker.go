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
// Package metadata records statistics about an export run: API calls,
// pages, rate-limit cool-downs and the time range of the exported events.
// The result can be saved as a JSON document next to the output file.
package metadata

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
)

// Tracker collects statistics during a run. Create one at the start of a run
// and hand it to the components that make API calls.
type Tracker struct {
	runID          string
	startTime      time.Time
	apiCallCount   int
	pages          int
	eventsFetched  int
	rateLimitWaits int
	cooldown       time.Duration
	oldestEvent    time.Time
	newestEvent    time.Time

	now func() time.Time
}

// New creates a tracker with a fresh run ID, started now.
func New() *Tracker {
	return &Tracker{
		runID:     uuid.NewString(),
		startTime: time.Now(),
		now:       time.Now,
	}
}

// RunID returns the identifier of this run.
func (t *Tracker) RunID() string {
	return t.runID
}

// IncrementAPICall records that an API request was made, successful or not.
func (t *Tracker) IncrementAPICall() {
	t.apiCallCount++
}

// RecordPage records a page of events that was received.
func (t *Tracker) RecordPage(events int) {
	t.pages++
	t.eventsFetched += events
}

// RecordRateLimitWait records a rate-limit cool-down of the given length.
func (t *Tracker) RecordRateLimitWait(d time.Duration) {
	t.rateLimitWaits++
	t.cooldown += d
}

// UpdateEventStats widens the time range of exported events.
func (t *Tracker) UpdateEventStats(receivedAt time.Time) {
	if receivedAt.IsZero() {
		return
	}
	if t.oldestEvent.IsZero() || receivedAt.Before(t.oldestEvent) {
		t.oldestEvent = receivedAt
	}
	if receivedAt.After(t.newestEvent) {
		t.newestEvent = receivedAt
	}
}

// APICalls returns the number of API requests recorded so far.
func (t *Tracker) APICalls() int {
	return t.apiCallCount
}

// GenerateMetadata builds the record for a finished run.
func (t *Tracker) GenerateMetadata(version string, params RunParams, eventsWritten int) *RunMetadata {
	completedAt := t.now()

	results := RunResults{
		EventsFetched:  t.eventsFetched,
		EventsWritten:  eventsWritten,
		Pages:          t.pages,
		APICallCount:   t.apiCallCount,
		RateLimitWaits: t.rateLimitWaits,
		CooldownTime:   t.cooldown.String(),
		Duration:       completedAt.Sub(t.startTime).String(),
		StartedAt:      t.startTime,
		CompletedAt:    completedAt,
	}
	if !t.oldestEvent.IsZero() {
		oldest, newest := t.oldestEvent, t.newestEvent
		results.OldestEvent = &oldest
		results.NewestEvent = &newest
	}

	return &RunMetadata{
		Version:    version,
		RunID:      t.runID,
		Parameters: params,
		Results:    results,
	}
}

// SaveMetadata writes metadata to path as indented JSON. The file is written
// to a temporary file first and renamed into place.
func SaveMetadata(metadata *RunMetadata, path string) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create metadata directory: %w", err)
		}
	}

	tmpFile := path + ".tmp"
	file, err := os.Create(tmpFile)
	if err != nil {
		return fmt.Errorf("failed to create metadata file: %w", err)
	}

	if err := WriteMetadataToWriter(metadata, file); err != nil {
		_ = file.Close()
		_ = os.Remove(tmpFile)
		return fmt.Errorf("failed to write metadata: %w", err)
	}

	if err := file.Close(); err != nil {
		_ = os.Remove(tmpFile)
		return fmt.Errorf("failed to close metadata file: %w", err)
	}

	if err := os.Rename(tmpFile, path); err != nil {
		_ = os.Remove(tmpFile)
		return fmt.Errorf("failed to save metadata file: %w", err)
	}

	return nil
}

// WriteMetadataToWriter serializes metadata as indented JSON.
func WriteMetadataToWriter(metadata *RunMetadata, w io.Writer) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(metadata)
}
