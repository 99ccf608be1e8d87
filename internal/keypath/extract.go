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
// Package keypath projects semi-structured JSON records onto a list of dotted
// key-paths such as "app.releaseStage" or "exceptions.errorClass".
//
// Walking a path through a list does not index into it. Every segment after
// the list is looked up on each element, so "exceptions.errorClass" on an
// event with two exceptions yields a two-element list.
package keypath

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// All is the single key that selects the whole record.
const All = "all"

// IsAll reports whether paths is exactly the ["all"] sentinel.
func IsAll(paths []string) bool {
	return len(paths) == 1 && paths[0] == All
}

// ParseList splits a comma separated key list, dropping blanks.
func ParseList(csv string) []string {
	var paths []string
	for _, p := range strings.Split(csv, ",") {
		if p = strings.TrimSpace(p); p != "" {
			paths = append(paths, p)
		}
	}
	return paths
}

// Extract projects event onto paths. For the ["all"] sentinel the event is
// returned unchanged as a json.RawMessage; otherwise the result is a
// *Projection. Missing data never fails: absent keys project to null.
func Extract(event json.RawMessage, paths []string) (interface{}, error) {
	if IsAll(paths) {
		return event, nil
	}

	value, err := Decode(event)
	if err != nil {
		return nil, err
	}
	return Project(value, paths), nil
}

// Decode parses a raw record into the JSON value domain: nil, bool,
// json.Number, string, []interface{} and map[string]interface{}.
func Decode(raw json.RawMessage) (interface{}, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()

	var value interface{}
	if err := dec.Decode(&value); err != nil {
		return nil, fmt.Errorf("failed to decode event: %w", err)
	}
	return value, nil
}

// Project applies every path to an already decoded value.
func Project(value interface{}, paths []string) *Projection {
	p := &Projection{
		keys:   make([]string, 0, len(paths)),
		values: make(map[string]interface{}, len(paths)),
	}
	for _, path := range paths {
		p.Set(path, Lookup(value, path))
	}
	return p
}

// Lookup walks a single dotted path through value.
func Lookup(value interface{}, path string) interface{} {
	cursor := value
	for _, segment := range strings.Split(path, ".") {
		cursor = step(cursor, segment)
	}
	return cursor
}

// step resolves one segment. Lists fan out: the segment is resolved on every
// element, recursively for nested lists. Scalars and null have no keys.
func step(cursor interface{}, segment string) interface{} {
	switch v := cursor.(type) {
	case map[string]interface{}:
		return v[segment]
	case []interface{}:
		out := make([]interface{}, len(v))
		for i, elem := range v {
			out[i] = step(elem, segment)
		}
		return out
	default:
		return nil
	}
}
