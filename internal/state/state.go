// Package state persists the "current recording session" record. One JSON
// file per host, guarded by a sibling lock file and written atomically so a
// crash mid-write can never leave a partial record behind.
package state

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/google/renameio/v2"
)

// Session is the current-recording record.
type Session struct {
	Recording   bool   `json:"recording"`
	MeetingID   string `json:"meeting_id"`
	Title       string `json:"title"`
	Platform    string `json:"platform"`
	NotePath    string `json:"note_path"`
	StartedAt   string `json:"started_at"`
	SessionName string `json:"session_name"`
}

// StartedTime parses StartedAt; the zero time when absent or malformed.
func (s Session) StartedTime() time.Time {
	t, err := time.Parse(time.RFC3339, s.StartedAt)
	if err != nil {
		return time.Time{}
	}
	return t
}

// LockError reports that another process holds the state lock.
type LockError struct {
	LockPath string
}

func (e *LockError) Error() string {
	return "state: locked by another process (lock file " + e.LockPath + " exists)"
}

// Store owns one state file and its lock.
type Store struct {
	path string
}

// NewStore returns a Store for the state file at path. The lock file lives
// next to it with a .lock extension.
func NewStore(path string) *Store {
	return &Store{path: path}
}

func (s *Store) lockPath() string {
	return s.path[:len(s.path)-len(filepath.Ext(s.path))] + ".lock"
}

// Load reads the current session. A missing file yields (nil, nil).
func (s *Store) Load() (*Session, error) {
	raw, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("state: read %q: %w", s.path, err)
	}
	var session Session
	if err := json.Unmarshal(raw, &session); err != nil {
		return nil, fmt.Errorf("state: parse %q: %w", s.path, err)
	}
	return &session, nil
}

// Write replaces the state file atomically: the record is serialized to a
// temp file in the same directory, fsynced and renamed over the target.
func (s *Store) Write(session Session) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("state: create state dir: %w", err)
	}
	data, err := json.MarshalIndent(session, "", "  ")
	if err != nil {
		return fmt.Errorf("state: encode session: %w", err)
	}
	if err := renameio.WriteFile(s.path, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("state: write %q: %w", s.path, err)
	}
	return nil
}

// Clear removes the state file. Clearing a missing file is not an error.
func (s *Store) Clear() error {
	if err := os.Remove(s.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("state: clear %q: %w", s.path, err)
	}
	return nil
}

// Lock acquires the exclusive lock file and returns a release func. The
// lock file is created with O_EXCL; an existing file means another process
// holds the lock and a *[LockError] is returned. The release func removes
// the lock and must run on every exit path.
func (s *Store) Lock() (release func(), err error) {
	lock := s.lockPath()
	if err := os.MkdirAll(filepath.Dir(lock), 0o755); err != nil {
		return nil, fmt.Errorf("state: create state dir: %w", err)
	}
	f, err := os.OpenFile(lock, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		if errors.Is(err, fs.ErrExist) {
			return nil, &LockError{LockPath: lock}
		}
		return nil, fmt.Errorf("state: acquire lock %q: %w", lock, err)
	}
	fmt.Fprintf(f, "%d\n", os.Getpid())
	f.Close()
	return func() { os.Remove(lock) }, nil
}

// IsStale reports whether a recording session has been running longer than
// maxAge as of now. Sessions without a parseable start are never stale.
func IsStale(session *Session, now time.Time, maxAge time.Duration) bool {
	if session == nil || !session.Recording {
		return false
	}
	started := session.StartedTime()
	if started.IsZero() {
		return false
	}
	return now.Sub(started) > maxAge
}
