// Package doctor probes the environment meetingctl depends on and reports
// a pass/fail verdict per precondition. Checks only inspect the system,
// they never change it.
package doctor

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/MrWong99/meetingctl/internal/config"
)

// Check is one probed precondition.
type Check struct {
	Name    string `json:"name"`
	OK      bool   `json:"ok"`
	Message string `json:"message"`
	Hint    string `json:"hint,omitempty"`

	// mandatory checks contribute to the aggregate verdict; advisory ones
	// are reported but never fail the run.
	mandatory bool
}

// Mandatory reports whether the check contributes to the aggregate verdict.
func (c Check) Mandatory() bool { return c.mandatory }

// Report is the full self-check outcome. OK is the conjunction of all
// mandatory checks.
type Report struct {
	OK     bool    `json:"ok"`
	Checks []Check `json:"checks"`
}

// Availability matches the Available method shared by the transcriber and
// converter providers.
type Availability interface {
	Available() (bool, string)
}

// Runner holds everything the checks probe. The lookup fields default to
// the real filesystem and PATH; tests override them.
type Runner struct {
	cfg *config.Config

	transcriber Availability
	converter   Availability

	stat     func(string) (os.FileInfo, error)
	lookPath func(string) (string, error)
	getenv   func(string) string
}

// Option is a functional option for configuring a [Runner].
type Option func(*Runner)

// WithTranscriber adds the transcriber availability probe.
func WithTranscriber(a Availability) Option {
	return func(r *Runner) { r.transcriber = a }
}

// WithConverter adds the converter availability probe.
func WithConverter(a Availability) Option {
	return func(r *Runner) { r.converter = a }
}

// WithStat overrides the filesystem probe, used by tests.
func WithStat(stat func(string) (os.FileInfo, error)) Option {
	return func(r *Runner) { r.stat = stat }
}

// WithLookPath overrides the PATH probe, used by tests.
func WithLookPath(lookPath func(string) (string, error)) Option {
	return func(r *Runner) { r.lookPath = lookPath }
}

// WithGetenv overrides environment lookup, used by tests.
func WithGetenv(getenv func(string) string) Option {
	return func(r *Runner) { r.getenv = getenv }
}

// NewRunner wires a Runner for the given configuration.
func NewRunner(cfg *config.Config, opts ...Option) *Runner {
	r := &Runner{
		cfg:      cfg,
		stat:     os.Stat,
		lookPath: exec.LookPath,
		getenv:   os.Getenv,
	}
	for _, o := range opts {
		o(r)
	}
	return r
}

// Run executes every check in a fixed order.
func (r *Runner) Run() Report {
	checks := []Check{
		r.checkVaultPath(),
		r.checkVaultPathAbsolute(),
		r.checkRecordingsPath(),
		r.checkCalendarBackend(),
		r.checkEventKitHelper(),
		r.checkAudioHijack(),
		r.checkTranscriber(),
		r.checkConverter(),
	}
	ok := true
	for _, c := range checks {
		if c.mandatory && !c.OK {
			ok = false
		}
	}
	return Report{OK: ok, Checks: checks}
}

func (r *Runner) checkVaultPath() Check {
	return r.dirCheck("vault_path", r.cfg.VaultPath,
		"Set VAULT_PATH to your note vault root.")
}

func (r *Runner) checkRecordingsPath() Check {
	return r.dirCheck("recordings_path", r.cfg.RecordingsPath,
		"Set RECORDINGS_PATH to the directory your recorder writes into.")
}

func (r *Runner) dirCheck(name, path, hint string) Check {
	c := Check{Name: name, mandatory: true}
	fi, err := r.stat(path)
	switch {
	case err != nil:
		c.Message = fmt.Sprintf("%s does not exist", path)
		c.Hint = hint
	case !fi.IsDir():
		c.Message = fmt.Sprintf("%s is not a directory", path)
		c.Hint = hint
	default:
		c.OK = true
		c.Message = path
	}
	return c
}

func (r *Runner) checkVaultPathAbsolute() Check {
	c := Check{Name: "vault_path_absolute", mandatory: true}
	if filepath.IsAbs(r.cfg.VaultPath) {
		c.OK = true
		c.Message = "vault path is absolute"
	} else {
		c.Message = fmt.Sprintf("%s is relative", r.cfg.VaultPath)
		c.Hint = "Use an absolute VAULT_PATH so notes resolve from any working directory."
	}
	return c
}

// checkCalendarBackend passes when any backend of the cascade could run at
// all: the EventKit helper, osascript for JXA, or an icalBuddy binary.
func (r *Runner) checkCalendarBackend() Check {
	c := Check{Name: "calendar_backend", mandatory: true}
	var found []string
	if r.eventKitHelperPath() != "" {
		found = append(found, "eventkit")
	}
	if _, err := r.lookPath("osascript"); err == nil {
		found = append(found, "jxa")
	}
	if r.icalBuddyPath() != "" {
		found = append(found, "icalbuddy")
	}
	if len(found) == 0 {
		c.Message = "no calendar backend available"
		c.Hint = "Install icalBuddy or run on macOS where osascript is present."
		return c
	}
	c.OK = true
	c.Message = fmt.Sprintf("available: %v", found)
	return c
}

func (r *Runner) checkEventKitHelper() Check {
	c := Check{Name: "eventkit_helper"}
	if path := r.eventKitHelperPath(); path != "" {
		c.OK = true
		c.Message = path
	} else {
		c.Message = "helper binary not found"
		c.Hint = "Install meetingctl-eventkit next to meetingctl or set MEETINGCTL_EVENTKIT_HELPER; the JXA and icalBuddy backends still work without it."
	}
	return c
}

func (r *Runner) checkAudioHijack() Check {
	c := Check{Name: "audio_hijack", mandatory: true}
	if r.getenv("MEETINGCTL_RECORDING_DRY_RUN") == "1" {
		c.OK = true
		c.Message = "recording dry-run enabled, recorder not required"
		return c
	}
	if _, err := r.stat("/Applications/Audio Hijack.app"); err == nil {
		c.OK = true
		c.Message = "/Applications/Audio Hijack.app"
		return c
	}
	c.Message = "Audio Hijack not installed"
	c.Hint = "Install Audio Hijack or set MEETINGCTL_RECORDING_DRY_RUN=1."
	return c
}

func (r *Runner) checkTranscriber() Check {
	return availabilityCheck("whisper", r.transcriber)
}

func (r *Runner) checkConverter() Check {
	return availabilityCheck("ffmpeg", r.converter)
}

func availabilityCheck(name string, a Availability) Check {
	c := Check{Name: name}
	if a == nil {
		c.Message = "not configured"
		return c
	}
	ok, reason := a.Available()
	c.OK = ok
	if ok {
		c.Message = "available"
	} else {
		c.Message = "unavailable"
		c.Hint = reason
	}
	return c
}

func (r *Runner) eventKitHelperPath() string {
	if configured := r.getenv("MEETINGCTL_EVENTKIT_HELPER"); configured != "" {
		if _, err := r.stat(configured); err == nil {
			return configured
		}
		return ""
	}
	exe, err := os.Executable()
	if err != nil {
		return ""
	}
	candidate := filepath.Join(filepath.Dir(exe), "meetingctl-eventkit")
	if _, err := r.stat(candidate); err == nil {
		return candidate
	}
	return ""
}

func (r *Runner) icalBuddyPath() string {
	if configured := r.getenv("MEETINGCTL_ICALBUDDY_BIN"); configured != "" {
		if _, err := r.stat(configured); err == nil {
			return configured
		}
	}
	home, err := os.UserHomeDir()
	if err == nil {
		candidate := filepath.Join(home, "icalBuddy", "icalBuddy")
		if _, err := r.stat(candidate); err == nil {
			return candidate
		}
	}
	if _, err := r.stat("/usr/local/bin/icalBuddy"); err == nil {
		return "/usr/local/bin/icalBuddy"
	}
	if path, err := r.lookPath("icalBuddy"); err == nil {
		return path
	}
	return ""
}
