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
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// CreateTempFile creates a temporary file with the given content
func CreateTempFile(t *testing.T, dir, pattern, content string) string {
	t.Helper()

	file, err := os.CreateTemp(dir, pattern)
	require.NoError(t, err, "Failed to create temp file")

	_, err = file.WriteString(content)
	closeErr := file.Close()
	require.NoError(t, err, "Failed to write to temp file")
	require.NoError(t, closeErr, "Failed to close temp file")

	t.Cleanup(func() {
		os.Remove(file.Name())
	})

	return file.Name()
}

// ReadJSON reads JSON from a file into a struct
func ReadJSON(t *testing.T, path string, v interface{}) {
	t.Helper()

	data, err := os.ReadFile(path)
	require.NoError(t, err, "Failed to read file")
	require.NoError(t, json.Unmarshal(data, v), "Failed to unmarshal JSON")
}

// AssertFileExists checks that a file exists
func AssertFileExists(t *testing.T, path string) {
	t.Helper()
	require.FileExists(t, path)
}

// AssertFileNotExists checks that a file does not exist
func AssertFileNotExists(t *testing.T, path string) {
	t.Helper()
	require.NoFileExists(t, path)
}

// AssertFileContains checks that a file contains the expected string
func AssertFileContains(t *testing.T, path, expected string) {
	t.Helper()

	content, err := os.ReadFile(path)
	require.NoError(t, err, "Failed to read file")
	assert.Contains(t, string(content), expected, "file %s", path)
}

// WriteConfig writes a .beetlejuice.yaml into dir and returns its path.
func WriteConfig(t *testing.T, dir, content string) string {
	t.Helper()

	path := filepath.Join(dir, ".beetlejuice.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644), "Failed to write config file")
	return path
}
