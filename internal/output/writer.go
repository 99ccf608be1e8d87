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
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
)

// ErrClosed is returned when writing to a closed writer.
var ErrClosed = errors.New("output writer is closed")

// ArrayWriter writes records as the elements of one JSON array.
type ArrayWriter struct {
	mu      sync.Mutex
	output  io.Writer
	buf     bytes.Buffer
	encoder *json.Encoder
	count   int
	closed  bool

	commit func() error
	abort  func() error
}

// NewArrayWriter creates a writer that streams the array to w.
func NewArrayWriter(w io.Writer) *ArrayWriter {
	aw := &ArrayWriter{output: w}
	aw.encoder = json.NewEncoder(&aw.buf)
	aw.encoder.SetEscapeHTML(false)
	return aw
}

// NewFileWriter creates a writer for filename. Nothing is visible at
// filename until Close succeeds.
func NewFileWriter(filename string) (*ArrayWriter, error) {
	dir := filepath.Dir(filename)
	file, err := os.CreateTemp(dir, "."+filepath.Base(filename)+".*.tmp")
	if err != nil {
		return nil, fmt.Errorf("failed to create output file: %w", err)
	}
	tempName := file.Name()

	aw := NewArrayWriter(file)
	aw.commit = func() error {
		if err := file.Chmod(0o644); err != nil {
			_ = file.Close()
			_ = os.Remove(tempName)
			return fmt.Errorf("failed to set output file mode: %w", err)
		}
		if err := file.Close(); err != nil {
			_ = os.Remove(tempName)
			return fmt.Errorf("failed to close output file: %w", err)
		}
		if err := os.Rename(tempName, filename); err != nil {
			_ = os.Remove(tempName)
			return fmt.Errorf("failed to save output file: %w", err)
		}
		return nil
	}
	aw.abort = func() error {
		_ = file.Close()
		if err := os.Remove(tempName); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("failed to remove temporary output file: %w", err)
		}
		return nil
	}
	return aw, nil
}

// Write encodes record as the next array element.
func (w *ArrayWriter) Write(record interface{}) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return ErrClosed
	}

	w.buf.Reset()
	if w.count == 0 {
		w.buf.WriteByte('[')
	} else {
		w.buf.WriteByte(',')
	}
	if err := w.encoder.Encode(record); err != nil {
		return fmt.Errorf("failed to write record: %w", err)
	}
	// Drop the newline Encode appends.
	w.buf.Truncate(w.buf.Len() - 1)

	if _, err := w.output.Write(w.buf.Bytes()); err != nil {
		return fmt.Errorf("failed to write record: %w", err)
	}

	w.count++
	return nil
}

// Count returns the number of records written.
func (w *ArrayWriter) Count() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.count
}

// Close terminates the array. For file writers the temporary file is then
// renamed over the destination.
func (w *ArrayWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return nil
	}
	w.closed = true

	closing := "]"
	if w.count == 0 {
		closing = "[]"
	}
	if _, err := io.WriteString(w.output, closing); err != nil {
		if w.abort != nil {
			_ = w.abort()
		}
		return fmt.Errorf("failed to finish output: %w", err)
	}

	if w.commit != nil {
		return w.commit()
	}
	return nil
}

// Abort discards the output. For file writers the destination is left
// untouched. Aborting a closed writer does nothing.
func (w *ArrayWriter) Abort() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return nil
	}
	w.closed = true

	if w.abort != nil {
		return w.abort()
	}
	return nil
}
