package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// requiredEnvKeys must be present and non-empty for Load to succeed.
var requiredEnvKeys = []string{"VAULT_PATH", "RECORDINGS_PATH"}

// Default file locations, relative to DefaultStateDir.
const (
	defaultStateFileName      = "current.json"
	defaultQueueFileName      = "process_queue.jsonl"
	defaultDeadLetterFileName = "process_queue.deadletter.jsonl"
	defaultProcessedFileName  = "processed_jobs.jsonl"
	defaultIngestedFileName   = "ingested_files.jsonl"
)

// ConfigError reports missing or malformed configuration values. The CLI
// maps it to a structured error payload and a non-zero exit code.
type ConfigError struct {
	Reason string
}

func (e *ConfigError) Error() string {
	return "config: " + e.Reason
}

// LoadDotenv loads a .env file into the process environment when one exists
// in the working directory. Existing environment variables win. A missing
// file is not an error.
func LoadDotenv() error {
	err := godotenv.Load()
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("config: load .env: %w", err)
	}
	return nil
}

// Load resolves a [Config] from the process environment. Both required roots
// must be set and absolute after $VAR and ~ expansion.
func Load() (*Config, error) {
	return LoadFromEnv(os.Getenv)
}

// LoadFromEnv resolves a [Config] using getenv for lookups. Tests supply a
// map-backed function instead of the process environment.
func LoadFromEnv(getenv func(string) string) (*Config, error) {
	var missing []string
	for _, key := range requiredEnvKeys {
		if strings.TrimSpace(getenv(key)) == "" {
			missing = append(missing, key)
		}
	}
	if len(missing) > 0 {
		return nil, &ConfigError{
			Reason: "missing required keys: " + strings.Join(missing, ", ") +
				". Set them in your environment or .env file",
		}
	}

	vault, err := normalizePath(getenv("VAULT_PATH"))
	if err != nil {
		return nil, &ConfigError{Reason: fmt.Sprintf("VAULT_PATH: %v", err)}
	}
	recordings, err := normalizePath(getenv("RECORDINGS_PATH"))
	if err != nil {
		return nil, &ConfigError{Reason: fmt.Sprintf("RECORDINGS_PATH: %v", err)}
	}

	cfg := &Config{
		VaultPath:                 vault,
		RecordingsPath:            recordings,
		MeetingsFolder:            valueOr(getenv("DEFAULT_MEETINGS_FOLDER"), "meetings"),
		StartWindowMinutes:        DefaultStartWindowMinutes,
		MatchWindowMinutes:        DefaultMatchWindowMinutes,
		RecordingFilenameLocation: time.Local,
		VoiceMemoFilenameLocation: time.Local,
	}

	cfg.StateFile, err = statePath(getenv("MEETINGCTL_STATE_FILE"), defaultStateFileName)
	if err != nil {
		return nil, &ConfigError{Reason: fmt.Sprintf("MEETINGCTL_STATE_FILE: %v", err)}
	}
	cfg.QueueFile, err = statePath(getenv("MEETINGCTL_PROCESS_QUEUE_FILE"), defaultQueueFileName)
	if err != nil {
		return nil, &ConfigError{Reason: fmt.Sprintf("MEETINGCTL_PROCESS_QUEUE_FILE: %v", err)}
	}
	cfg.DeadLetterFile, err = statePath(getenv("MEETINGCTL_PROCESS_QUEUE_DEAD_LETTER_FILE"), defaultDeadLetterFileName)
	if err != nil {
		return nil, &ConfigError{Reason: fmt.Sprintf("MEETINGCTL_PROCESS_QUEUE_DEAD_LETTER_FILE: %v", err)}
	}
	cfg.ProcessedJobsFile, err = statePath(getenv("MEETINGCTL_PROCESSED_JOBS_FILE"), defaultProcessedFileName)
	if err != nil {
		return nil, &ConfigError{Reason: fmt.Sprintf("MEETINGCTL_PROCESSED_JOBS_FILE: %v", err)}
	}
	cfg.IngestedFilesFile, err = statePath(getenv("MEETINGCTL_INGESTED_FILES_FILE"), defaultIngestedFileName)
	if err != nil {
		return nil, &ConfigError{Reason: fmt.Sprintf("MEETINGCTL_INGESTED_FILES_FILE: %v", err)}
	}

	if raw := strings.TrimSpace(getenv("MEETINGCTL_START_WINDOW_MINUTES")); raw != "" {
		cfg.StartWindowMinutes, err = parseWindow(raw)
		if err != nil {
			return nil, &ConfigError{Reason: fmt.Sprintf("MEETINGCTL_START_WINDOW_MINUTES: %v", err)}
		}
	}
	if raw := strings.TrimSpace(getenv("MEETINGCTL_MATCH_WINDOW_MINUTES")); raw != "" {
		cfg.MatchWindowMinutes, err = parseWindow(raw)
		if err != nil {
			return nil, &ConfigError{Reason: fmt.Sprintf("MEETINGCTL_MATCH_WINDOW_MINUTES: %v", err)}
		}
	}

	if name := strings.TrimSpace(getenv("MEETINGCTL_RECORDING_FILENAME_TIMEZONE")); name != "" {
		cfg.RecordingFilenameLocation, err = time.LoadLocation(name)
		if err != nil {
			return nil, &ConfigError{Reason: fmt.Sprintf("MEETINGCTL_RECORDING_FILENAME_TIMEZONE: unknown timezone %q", name)}
		}
	}
	if name := strings.TrimSpace(getenv("MEETINGCTL_VOICEMEMO_FILENAME_TIMEZONE")); name != "" {
		cfg.VoiceMemoFilenameLocation, err = time.LoadLocation(name)
		if err != nil {
			return nil, &ConfigError{Reason: fmt.Sprintf("MEETINGCTL_VOICEMEMO_FILENAME_TIMEZONE: unknown timezone %q", name)}
		}
	}

	return cfg, nil
}

// Now returns the reference instant for selector and status computations.
// MEETINGCTL_NOW_ISO overrides the wall clock for testing.
func Now(getenv func(string) string) (time.Time, error) {
	raw := strings.TrimSpace(getenv("MEETINGCTL_NOW_ISO"))
	if raw == "" {
		return time.Now(), nil
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return time.Time{}, &ConfigError{Reason: fmt.Sprintf("MEETINGCTL_NOW_ISO: %v", err)}
	}
	return t, nil
}

// normalizePath expands $VARs and a leading ~, cleans the result, and
// requires it to be absolute.
func normalizePath(raw string) (string, error) {
	expanded := os.ExpandEnv(strings.TrimSpace(raw))
	if expanded == "~" || strings.HasPrefix(expanded, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("expand ~: %w", err)
		}
		expanded = filepath.Join(home, expanded[1:])
	}
	if !filepath.IsAbs(expanded) {
		return "", fmt.Errorf("path %q is not absolute after expansion", expanded)
	}
	return filepath.Clean(expanded), nil
}

// statePath resolves an override path, or falls back to the named file under
// the default state directory.
func statePath(override, defaultName string) (string, error) {
	if strings.TrimSpace(override) != "" {
		return normalizePath(override)
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home directory: %w", err)
	}
	return filepath.Join(home, filepath.FromSlash(DefaultStateDir), defaultName), nil
}

func parseWindow(raw string) (int, error) {
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("not an integer: %q", raw)
	}
	if n < 0 {
		return 0, fmt.Errorf("must be non-negative, got %d", n)
	}
	return n, nil
}

func valueOr(raw, fallback string) string {
	if strings.TrimSpace(raw) == "" {
		return fallback
	}
	return strings.TrimSpace(raw)
}
