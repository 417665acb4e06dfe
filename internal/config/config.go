// Package config provides the environment-driven configuration schema and
// loader for meetingctl. Two roots are mandatory — the note vault and the
// recordings directory — and everything else (state file, queue files,
// append-only logs, selector windows, filename timezones) defaults to paths
// under the per-user state directory.
package config

import (
	"path/filepath"
	"time"
)

// DefaultStateDir is the per-user state directory, relative to $HOME.
const DefaultStateDir = ".local/state/meetingctl"

// Default selector windows, overridable via the MEETINGCTL_*_WINDOW_MINUTES
// environment variables.
const (
	DefaultStartWindowMinutes = 5
	DefaultMatchWindowMinutes = 30
)

// Config is the resolved meetingctl configuration. All paths are absolute.
// It is typically produced by [Load]; tests construct it directly.
type Config struct {
	// VaultPath is the root of the Markdown note vault.
	VaultPath string

	// RecordingsPath is the root directory holding recording artifacts
	// (WAV/M4A inputs, transcripts, MP3 outputs).
	RecordingsPath string

	// MeetingsFolder is the sub-directory of VaultPath where meeting notes
	// are created. Default "meetings".
	MeetingsFolder string

	// StateFile is the runtime "current session" JSON file. Its sibling
	// <name>.lock file is the advisory lock.
	StateFile string

	// QueueFile is the append-only JSONL job queue.
	QueueFile string

	// DeadLetterFile receives failed-job records in dead-letter mode.
	DeadLetterFile string

	// ProcessedJobsFile is the append-only log of successfully processed jobs.
	ProcessedJobsFile string

	// IngestedFilesFile is the append-only log of recordings already promoted
	// into the pipeline by ingest-watch.
	IngestedFilesFile string

	// StartWindowMinutes bounds the now-or-next selector's upcoming window.
	StartWindowMinutes int

	// MatchWindowMinutes bounds the nearest-to selector used by backfill.
	MatchWindowMinutes int

	// RecordingFilenameLocation is the timezone assumed for YYYYMMDD[_-]HHMM
	// timestamps embedded in recording filenames. Defaults to the local zone.
	RecordingFilenameLocation *time.Location

	// VoiceMemoFilenameLocation is the timezone assumed for the voice-memo
	// "YYYYMMDD HHMMSS" filename form. Defaults to the local zone.
	VoiceMemoFilenameLocation *time.Location
}

// MeetingsDir returns the absolute directory where meeting notes live.
func (c *Config) MeetingsDir() string {
	return filepath.Join(c.VaultPath, c.MeetingsFolder)
}
