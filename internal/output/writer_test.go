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
package output

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testRecord struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

func TestArrayWriter_Write(t *testing.T) {
	tests := []struct {
		name    string
		records []interface{}
		want    string
	}{
		{
			name:    "empty",
			records: nil,
			want:    `[]`,
		},
		{
			name:    "single record",
			records: []interface{}{testRecord{ID: 1, Name: "one"}},
			want:    `[{"id":1,"name":"one"}]`,
		},
		{
			name: "multiple records",
			records: []interface{}{
				testRecord{ID: 1, Name: "one"},
				testRecord{ID: 2, Name: "two"},
			},
			want: `[{"id":1,"name":"one"},{"id":2,"name":"two"}]`,
		},
		{
			name: "raw events are compacted but not escaped",
			records: []interface{}{
				json.RawMessage(`{ "url" : "https://example.com/?a=1&b=<2>" }`),
			},
			want: `[{"url":"https://example.com/?a=1&b=<2>"}]`,
		},
		{
			name:    "null record",
			records: []interface{}{nil},
			want:    `[null]`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			writer := NewArrayWriter(&buf)

			for _, record := range tt.records {
				require.NoError(t, writer.Write(record))
			}
			require.NoError(t, writer.Close())

			assert.Equal(t, len(tt.records), writer.Count())
			assert.Equal(t, tt.want, buf.String())
			assert.True(t, json.Valid(buf.Bytes()), "output is not valid JSON")
		})
	}
}

func TestArrayWriter_WriteAfterClose(t *testing.T) {
	writer := NewArrayWriter(&bytes.Buffer{})
	require.NoError(t, writer.Close())

	assert.ErrorIs(t, writer.Write("late"), ErrClosed)
	assert.NoError(t, writer.Close(), "second Close")
}

func TestArrayWriter_UnencodableRecord(t *testing.T) {
	var buf bytes.Buffer
	writer := NewArrayWriter(&buf)

	require.Error(t, writer.Write(make(chan int)))
	assert.Equal(t, 0, writer.Count())
}

func TestNewFileWriter(t *testing.T) {
	dir := t.TempDir()
	filename := filepath.Join(dir, "output.json")

	writer, err := NewFileWriter(filename)
	require.NoError(t, err)

	require.NoError(t, writer.Write(testRecord{ID: 1, Name: "one"}))

	// Nothing is visible before Close.
	assert.NoFileExists(t, filename)

	require.NoError(t, writer.Close())

	content, err := os.ReadFile(filename)
	require.NoError(t, err)
	assert.Equal(t, `[{"id":1,"name":"one"}]`, string(content))

	assertNoTempFiles(t, dir)
}

func TestNewFileWriter_AbortKeepsExistingFile(t *testing.T) {
	dir := t.TempDir()
	filename := filepath.Join(dir, "output.json")
	require.NoError(t, os.WriteFile(filename, []byte(`["old"]`), 0o644))

	writer, err := NewFileWriter(filename)
	require.NoError(t, err)
	require.NoError(t, writer.Write("new"))
	require.NoError(t, writer.Abort())

	content, err := os.ReadFile(filename)
	require.NoError(t, err)
	assert.Equal(t, `["old"]`, string(content), "existing file was modified")
	assertNoTempFiles(t, dir)

	assert.NoError(t, writer.Abort(), "second Abort")
	assert.ErrorIs(t, writer.Write("late"), ErrClosed)
}

func TestNewFileWriter_InvalidPath(t *testing.T) {
	_, err := NewFileWriter("/nonexistent/directory/output.json")
	assert.Error(t, err)
}

func assertNoTempFiles(t *testing.T, dir string) {
	t.Helper()
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	for _, entry := range entries {
		assert.False(t, strings.HasSuffix(entry.Name(), ".tmp"), "temporary file left behind: %s", entry.Name())
	}
}
