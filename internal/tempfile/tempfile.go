// Package tempfile manages the temporary files owned by a single
// request. Every file created through a Scope is removed when the
// scope is cleaned up, on success and on failure alike.
package tempfile

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/wb-go/wbf/zlog"
)

// Scope owns the temporary files of one request. It is not safe for
// concurrent use; each request gets its own scope.
type Scope struct {
	dir   string
	files []string

	once    sync.Once
	created int
	removed int
}

// NewScope returns a scope rooted at dir. An empty dir falls back to
// the system temp directory.
func NewScope(dir string) *Scope {
	if dir == "" {
		dir = os.TempDir()
	}
	return &Scope{dir: dir}
}

// Create reserves a unique path inside the scope and registers it for
// cleanup. The pattern's "*" is replaced with a random suffix, so
// concurrent requests sharing one temp directory never collide.
func (s *Scope) Create(pattern string) string {
	suffix := uuid.NewString()
	name := strings.ReplaceAll(pattern, "*", suffix)
	if !strings.Contains(pattern, "*") {
		name = fmt.Sprintf("%s-%s", suffix, pattern)
	}

	path := filepath.Join(s.dir, name)
	s.files = append(s.files, path)
	s.created++

	return path
}

// CreateFile creates and opens a new registered file inside the scope.
func (s *Scope) CreateFile(pattern string) (*os.File, error) {
	path := s.Create(pattern)

	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_EXCL, 0o600)
	if err != nil {
		return nil, fmt.Errorf("create temp file: %w", err)
	}

	return f, nil
}

// Created reports how many paths the scope has handed out.
func (s *Scope) Created() int {
	return s.created
}

// Removed reports how many removals have been attempted.
func (s *Scope) Removed() int {
	return s.removed
}

// Cleanup attempts to remove every file created in the scope. It runs
// at most once; repeated calls are no-ops. Removal errors are logged,
// never surfaced: a file that was reserved but never written simply
// does not exist anymore.
func (s *Scope) Cleanup() {
	s.once.Do(func() {
		for _, path := range s.files {
			s.removed++
			if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
				zlog.Logger.Warn().Err(err).Str("path", path).Msg("failed to remove temp file")
			}
		}
	})
}
