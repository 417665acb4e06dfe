package config

import (
	"errors"
	"strings"
	"testing"
	"time"
)

func mapEnv(values map[string]string) func(string) string {
	return func(key string) string { return values[key] }
}

func TestLoadFromEnv_RequiresRoots(t *testing.T) {
	t.Parallel()

	_, err := LoadFromEnv(mapEnv(map[string]string{}))
	if err == nil {
		t.Fatal("expected error for missing roots")
	}
	var cfgErr *ConfigError
	if !errors.As(err, &cfgErr) {
		t.Fatalf("error type = %T, want *ConfigError", err)
	}
	if !strings.Contains(cfgErr.Reason, "VAULT_PATH") || !strings.Contains(cfgErr.Reason, "RECORDINGS_PATH") {
		t.Errorf("Reason = %q, want both missing keys named", cfgErr.Reason)
	}
}

func TestLoadFromEnv_RejectsRelativePaths(t *testing.T) {
	t.Parallel()

	_, err := LoadFromEnv(mapEnv(map[string]string{
		"VAULT_PATH":      "notes/vault",
		"RECORDINGS_PATH": "/tmp/recordings",
	}))
	if err == nil {
		t.Fatal("expected error for relative VAULT_PATH")
	}
}

func TestLoadFromEnv_Defaults(t *testing.T) {
	t.Parallel()

	cfg, err := LoadFromEnv(mapEnv(map[string]string{
		"VAULT_PATH":      "/vault",
		"RECORDINGS_PATH": "/recordings",
	}))
	if err != nil {
		t.Fatalf("LoadFromEnv() error: %v", err)
	}
	if cfg.MeetingsFolder != "meetings" {
		t.Errorf("MeetingsFolder = %q, want %q", cfg.MeetingsFolder, "meetings")
	}
	if cfg.MeetingsDir() != "/vault/meetings" {
		t.Errorf("MeetingsDir() = %q, want %q", cfg.MeetingsDir(), "/vault/meetings")
	}
	if cfg.StartWindowMinutes != DefaultStartWindowMinutes {
		t.Errorf("StartWindowMinutes = %d, want %d", cfg.StartWindowMinutes, DefaultStartWindowMinutes)
	}
	if cfg.MatchWindowMinutes != DefaultMatchWindowMinutes {
		t.Errorf("MatchWindowMinutes = %d, want %d", cfg.MatchWindowMinutes, DefaultMatchWindowMinutes)
	}
	if !strings.HasSuffix(cfg.StateFile, "current.json") {
		t.Errorf("StateFile = %q, want default current.json location", cfg.StateFile)
	}
	if !strings.HasSuffix(cfg.QueueFile, "process_queue.jsonl") {
		t.Errorf("QueueFile = %q, want default queue location", cfg.QueueFile)
	}
}

func TestLoadFromEnv_Overrides(t *testing.T) {
	t.Parallel()

	cfg, err := LoadFromEnv(mapEnv(map[string]string{
		"VAULT_PATH":                      "/vault",
		"RECORDINGS_PATH":                 "/recordings",
		"DEFAULT_MEETINGS_FOLDER":         "calls",
		"MEETINGCTL_STATE_FILE":           "/state/current.json",
		"MEETINGCTL_PROCESS_QUEUE_FILE":   "/state/queue.jsonl",
		"MEETINGCTL_START_WINDOW_MINUTES": "10",
		"MEETINGCTL_MATCH_WINDOW_MINUTES": "45",
	}))
	if err != nil {
		t.Fatalf("LoadFromEnv() error: %v", err)
	}
	if cfg.MeetingsFolder != "calls" {
		t.Errorf("MeetingsFolder = %q, want %q", cfg.MeetingsFolder, "calls")
	}
	if cfg.StateFile != "/state/current.json" {
		t.Errorf("StateFile = %q", cfg.StateFile)
	}
	if cfg.StartWindowMinutes != 10 || cfg.MatchWindowMinutes != 45 {
		t.Errorf("windows = %d/%d, want 10/45", cfg.StartWindowMinutes, cfg.MatchWindowMinutes)
	}
}

func TestLoadFromEnv_BadWindow(t *testing.T) {
	t.Parallel()

	_, err := LoadFromEnv(mapEnv(map[string]string{
		"VAULT_PATH":                      "/vault",
		"RECORDINGS_PATH":                 "/recordings",
		"MEETINGCTL_START_WINDOW_MINUTES": "-3",
	}))
	if err == nil {
		t.Fatal("expected error for negative window")
	}
}

func TestNow_Override(t *testing.T) {
	t.Parallel()

	want := time.Date(2026, 2, 8, 10, 0, 0, 0, time.UTC)
	got, err := Now(mapEnv(map[string]string{"MEETINGCTL_NOW_ISO": "2026-02-08T10:00:00Z"}))
	if err != nil {
		t.Fatalf("Now() error: %v", err)
	}
	if !got.Equal(want) {
		t.Errorf("Now() = %v, want %v", got, want)
	}
}

func TestNow_WallClock(t *testing.T) {
	t.Parallel()

	before := time.Now()
	got, err := Now(mapEnv(nil))
	if err != nil {
		t.Fatalf("Now() error: %v", err)
	}
	if got.Before(before.Add(-time.Minute)) {
		t.Errorf("Now() = %v, implausibly old", got)
	}
}
