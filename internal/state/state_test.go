package state

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func testSession() Session {
	return Session{
		Recording:   true,
		MeetingID:   "m-0123456789",
		Title:       "Weekly Sync",
		Platform:    "teams",
		NotePath:    "/vault/meetings/note.md",
		StartedAt:   "2026-02-08T10:00:00+01:00",
		SessionName: "Teams+Mic",
	}
}

func TestStore_WriteReadRoundTrip(t *testing.T) {
	t.Parallel()

	store := NewStore(filepath.Join(t.TempDir(), "state", "current.json"))
	want := testSession()
	if err := store.Write(want); err != nil {
		t.Fatalf("Write() error: %v", err)
	}
	got, err := store.Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if got == nil || *got != want {
		t.Errorf("Load() = %+v, want %+v", got, want)
	}
}

func TestStore_LoadMissing(t *testing.T) {
	t.Parallel()

	store := NewStore(filepath.Join(t.TempDir(), "current.json"))
	got, err := store.Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if got != nil {
		t.Errorf("Load() = %+v, want nil for missing file", got)
	}
}

func TestStore_Clear(t *testing.T) {
	t.Parallel()

	store := NewStore(filepath.Join(t.TempDir(), "current.json"))
	if err := store.Write(testSession()); err != nil {
		t.Fatal(err)
	}
	if err := store.Clear(); err != nil {
		t.Fatalf("Clear() error: %v", err)
	}
	if got, _ := store.Load(); got != nil {
		t.Error("state survived Clear()")
	}

	// Clearing again is benign.
	if err := store.Clear(); err != nil {
		t.Errorf("second Clear() error: %v", err)
	}
}

func TestStore_LockExclusive(t *testing.T) {
	t.Parallel()

	store := NewStore(filepath.Join(t.TempDir(), "current.json"))
	release, err := store.Lock()
	if err != nil {
		t.Fatalf("Lock() error: %v", err)
	}

	_, err = store.Lock()
	var lockErr *LockError
	if !errors.As(err, &lockErr) {
		t.Fatalf("second Lock() error = %v, want *LockError", err)
	}

	release()
	release2, err := store.Lock()
	if err != nil {
		t.Fatalf("Lock() after release error: %v", err)
	}
	release2()
}

func TestStore_LockFileRemovedOnRelease(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "current.json")
	store := NewStore(path)
	release, err := store.Lock()
	if err != nil {
		t.Fatal(err)
	}
	lock := filepath.Join(filepath.Dir(path), "current.lock")
	if _, err := os.Stat(lock); err != nil {
		t.Fatalf("lock file missing while held: %v", err)
	}
	release()
	if _, err := os.Stat(lock); !os.IsNotExist(err) {
		t.Error("lock file survived release")
	}
}

func TestIsStale(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 2, 8, 12, 0, 0, 0, time.UTC)
	session := testSession()
	session.StartedAt = now.Add(-3 * time.Hour).Format(time.RFC3339)

	if !IsStale(&session, now, 2*time.Hour) {
		t.Error("IsStale() = false for 3h-old session with 2h budget")
	}
	if IsStale(&session, now, 4*time.Hour) {
		t.Error("IsStale() = true within budget")
	}

	idle := Session{Recording: false}
	if IsStale(&idle, now, time.Minute) {
		t.Error("IsStale() = true for non-recording session")
	}
	if IsStale(nil, now, time.Minute) {
		t.Error("IsStale() = true for nil session")
	}
}
