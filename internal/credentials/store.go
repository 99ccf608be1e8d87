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
// Package credentials persists the Bugsnag personal auth token between runs.
//
// The token lives in a small file (.token in the working directory by
// default) holding exactly the raw token string. The file is written with
// owner-only permissions using a write-to-temp-and-rename pattern, so a
// crash never leaves a truncated token behind.
package credentials

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// Store loads and saves the auth token.
type Store interface {
	// Load returns the saved token, or "" when none has been saved.
	Load() (string, error)
	// Save replaces the saved token.
	Save(token string) error
}

// FileStore keeps the token in a file.
type FileStore struct {
	Path string
}

// NewFileStore returns a store backed by the file at path.
func NewFileStore(path string) *FileStore {
	return &FileStore{Path: path}
}

// Load implements Store. A missing file is not an error. Surrounding
// whitespace, such as a newline added by an editor, is dropped.
func (s *FileStore) Load() (string, error) {
	data, err := os.ReadFile(s.Path)
	if err != nil {
		if os.IsNotExist(err) {
			return "", nil
		}
		return "", fmt.Errorf("failed to read token file %s: %w", s.Path, err)
	}
	return strings.TrimSpace(string(data)), nil
}

// Save implements Store.
func (s *FileStore) Save(token string) error {
	if dir := filepath.Dir(s.Path); dir != "." {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return fmt.Errorf("failed to create token directory: %w", err)
		}
	}

	tempFile := s.Path + ".tmp"
	if err := os.WriteFile(tempFile, []byte(token), 0o600); err != nil {
		return fmt.Errorf("failed to write temporary token file: %w", err)
	}

	if err := os.Rename(tempFile, s.Path); err != nil {
		_ = os.Remove(tempFile)
		return fmt.Errorf("failed to rename temp file: %w", err)
	}

	return nil
}

// MemoryStore keeps the token in memory. It is used by tests and by callers
// that take the token from elsewhere.
type MemoryStore struct {
	mu    sync.Mutex
	token string
	err   error
}

// NewMemoryStore returns a store holding token.
func NewMemoryStore(token string) *MemoryStore {
	return &MemoryStore{token: token}
}

// Load implements Store.
func (s *MemoryStore) Load() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.token, s.err
}

// Save implements Store.
func (s *MemoryStore) Save(token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.token = token
	return nil
}

// FailWith makes every later call return err.
func (s *MemoryStore) FailWith(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.err = err
}
