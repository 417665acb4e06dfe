// Package whispercli runs an external whisper-style CLI for transcription.
package whispercli

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/MrWong99/meetingctl/pkg/provider/transcriber"
)

const (
	defaultBinary = "whisper"
	defaultModel  = "base"
)

// Transcriber shells out to a whisper CLI. The binary is expected to write
// the transcript to the path given with --output.
// MEETINGCTL_PROCESSING_TRANSCRIBE_DRY_RUN=1 writes a placeholder
// transcript instead of invoking the binary.
type Transcriber struct {
	binary string
	model  string
	run    func(ctx context.Context, name string, args ...string) error
}

var _ transcriber.Provider = (*Transcriber)(nil)

// Option is a functional option for configuring a [Transcriber].
type Option func(*Transcriber)

// WithBinary overrides the whisper executable name or path.
func WithBinary(binary string) Option {
	return func(t *Transcriber) { t.binary = binary }
}

// WithModel selects the whisper model.
func WithModel(model string) Option {
	return func(t *Transcriber) { t.model = model }
}

// WithRunner replaces the command runner, for tests.
func WithRunner(run func(ctx context.Context, name string, args ...string) error) Option {
	return func(t *Transcriber) { t.run = run }
}

// New returns a Transcriber with the default binary and model.
func New(opts ...Option) *Transcriber {
	t := &Transcriber{binary: defaultBinary, model: defaultModel}
	t.run = t.execRun
	for _, o := range opts {
		o(t)
	}
	return t
}

func (t *Transcriber) execRun(ctx context.Context, name string, args ...string) error {
	cmd := exec.CommandContext(ctx, name, args...)
	out, err := cmd.CombinedOutput()
	if err != nil {
		detail := strings.TrimSpace(string(out))
		if detail == "" {
			detail = err.Error()
		}
		return &transcriber.TranscriptionError{Reason: fmt.Sprintf("%s failed: %s", name, detail)}
	}
	return nil
}

func (t *Transcriber) Transcribe(ctx context.Context, audioPath, transcriptPath string) error {
	if _, err := os.Stat(audioPath); err != nil {
		return &transcriber.TranscriptionError{
			Reason: "missing audio input: " + audioPath + ". Stop recording before transcription",
		}
	}
	if err := os.MkdirAll(filepath.Dir(transcriptPath), 0o755); err != nil {
		return fmt.Errorf("whispercli: create transcript dir: %w", err)
	}
	if os.Getenv("MEETINGCTL_PROCESSING_TRANSCRIBE_DRY_RUN") == "1" {
		placeholder := "[dry-run transcript for " + filepath.Base(audioPath) + "]\n"
		if err := os.WriteFile(transcriptPath, []byte(placeholder), 0o644); err != nil {
			return fmt.Errorf("whispercli: write placeholder transcript: %w", err)
		}
		return nil
	}
	return t.run(ctx, t.binary, audioPath, "--model", t.model, "--output", transcriptPath)
}

// Available checks that the whisper binary is on PATH.
func (t *Transcriber) Available() (bool, string) {
	if filepath.IsAbs(t.binary) {
		if _, err := os.Stat(t.binary); err != nil {
			return false, "transcriber binary not found: " + t.binary
		}
		return true, ""
	}
	if _, err := exec.LookPath(t.binary); err != nil {
		return false, "transcriber binary not on PATH: " + t.binary
	}
	return true, ""
}
