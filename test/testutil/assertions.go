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
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// AssertJSONArrayOutput validates that a file holds one JSON array of
// expectedCount objects and returns them.
func AssertJSONArrayOutput(t *testing.T, filePath string, expectedCount int) []map[string]interface{} {
	t.Helper()

	data, err := os.ReadFile(filePath)
	require.NoError(t, err, "Failed to read output file")

	var records []map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &records), "Output is not a JSON array of objects:\n%s", data)

	assert.Len(t, records, expectedCount)
	return records
}

// AssertRecordKeys checks every record has exactly the given keys.
func AssertRecordKeys(t *testing.T, records []map[string]interface{}, keys ...string) {
	t.Helper()

	for i, record := range records {
		assert.Len(t, record, len(keys), "record %d: %v", i, record)
		for _, key := range keys {
			assert.Contains(t, record, key, "record %d", i)
		}
	}
}

// AssertMetadataFile validates metadata file contents
func AssertMetadataFile(t *testing.T, path string) map[string]interface{} {
	t.Helper()

	data, err := os.ReadFile(path)
	require.NoError(t, err, "Failed to read metadata file")

	var metadata map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &metadata), "Invalid metadata JSON")

	for _, field := range []string{"beetlejuice_version", "run_id", "parameters", "results"} {
		assert.Contains(t, metadata, field, "Missing required metadata field")
	}
	return metadata
}

// AssertContainsString checks if a string contains a substring
func AssertContainsString(t *testing.T, haystack, needle string) {
	t.Helper()
	assert.Contains(t, haystack, needle)
}

// AssertNotContainsString checks if a string does not contain a substring
func AssertNotContainsString(t *testing.T, haystack, needle string) {
	t.Helper()
	assert.NotContains(t, haystack, needle)
}
