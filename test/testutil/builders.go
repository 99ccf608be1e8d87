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
package testutil

import (
	"encoding/json"
	"fmt"
	"time"
)

// EventBuilder provides a fluent API for creating test events shaped like
// Bugsnag full reports.
type EventBuilder struct {
	id           string
	receivedAt   time.Time
	releaseStage string
	context      string
	exceptions   []map[string]interface{}
	breadcrumbs  []map[string]interface{}
	metaData     map[string]interface{}
}

// NewEventBuilder creates a new event builder with defaults
func NewEventBuilder(n int) *EventBuilder {
	return &EventBuilder{
		id:           fmt.Sprintf("event-%d", n),
		receivedAt:   time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC).Add(time.Duration(n) * time.Minute),
		releaseStage: "production",
		context:      "GET /checkout",
		exceptions: []map[string]interface{}{
			{"errorClass": "NoMethodError", "message": fmt.Sprintf("undefined method for event %d", n)},
		},
		metaData: map[string]interface{}{
			"user": map[string]interface{}{"id": fmt.Sprintf("user-%d", n)},
		},
	}
}

// WithReleaseStage sets app.releaseStage
func (b *EventBuilder) WithReleaseStage(stage string) *EventBuilder {
	b.releaseStage = stage
	return b
}

// WithReceivedAt sets received_at
func (b *EventBuilder) WithReceivedAt(t time.Time) *EventBuilder {
	b.receivedAt = t
	return b
}

// WithException appends an exception
func (b *EventBuilder) WithException(errorClass, message string) *EventBuilder {
	b.exceptions = append(b.exceptions, map[string]interface{}{
		"errorClass": errorClass,
		"message":    message,
	})
	return b
}

// WithBreadcrumb appends a breadcrumb carrying metaData.name
func (b *EventBuilder) WithBreadcrumb(name string) *EventBuilder {
	b.breadcrumbs = append(b.breadcrumbs, map[string]interface{}{
		"type":     "navigation",
		"metaData": map[string]interface{}{"name": name},
	})
	return b
}

// WithMetaData sets a metaData tab
func (b *EventBuilder) WithMetaData(tab string, values map[string]interface{}) *EventBuilder {
	b.metaData[tab] = values
	return b
}

// Build returns the event as raw JSON
func (b *EventBuilder) Build() json.RawMessage {
	event := map[string]interface{}{
		"id":          b.id,
		"received_at": b.receivedAt.Format("2006-01-02T15:04:05.000Z"),
		"context":     b.context,
		"app":         map[string]interface{}{"releaseStage": b.releaseStage},
		"exceptions":  b.exceptions,
		"metaData":    b.metaData,
	}
	if len(b.breadcrumbs) > 0 {
		event["breadcrumbs"] = b.breadcrumbs
	}

	data, err := json.Marshal(event)
	if err != nil {
		panic(fmt.Sprintf("failed to build event: %v", err))
	}
	return data
}

// GenerateEvents builds count default events numbered from 0.
func GenerateEvents(count int) []json.RawMessage {
	events := make([]json.RawMessage, count)
	for i := range events {
		events[i] = NewEventBuilder(i).Build()
	}
	return events
}
