// Package audiohijack drives Audio Hijack sessions through osascript JXA.
package audiohijack

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"

	"github.com/MrWong99/meetingctl/pkg/provider/recorder"
)

// runner abstracts command execution for tests.
type runner func(ctx context.Context, name string, args ...string) error

func execRunner(ctx context.Context, name string, args ...string) error {
	cmd := exec.CommandContext(ctx, name, args...)
	out, err := cmd.CombinedOutput()
	if err != nil {
		detail := strings.TrimSpace(string(out))
		if detail == "" {
			return fmt.Errorf("audiohijack: %s failed: %w", name, err)
		}
		return fmt.Errorf("audiohijack: %s failed: %s", name, detail)
	}
	return nil
}

// Recorder controls Audio Hijack. With
// MEETINGCTL_AUDIO_HIJACK_START_SCRIPT / _STOP_SCRIPT set, the configured
// script is opened in Audio Hijack instead of the inline JXA snippet.
// MEETINGCTL_RECORDING_DRY_RUN=1 turns both operations into no-ops.
type Recorder struct {
	run runner
}

var _ recorder.Provider = (*Recorder)(nil)

// Option is a functional option for configuring a [Recorder].
type Option func(*Recorder)

// WithRunner replaces the command runner, for tests.
func WithRunner(run func(ctx context.Context, name string, args ...string) error) Option {
	return func(r *Recorder) { r.run = run }
}

// New returns a Recorder using osascript.
func New(opts ...Option) *Recorder {
	r := &Recorder{run: execRunner}
	for _, o := range opts {
		o(r)
	}
	return r
}

func (r *Recorder) Start(ctx context.Context, sessionName string) error {
	return r.control(ctx, "startRecording", "MEETINGCTL_AUDIO_HIJACK_START_SCRIPT", sessionName)
}

func (r *Recorder) Stop(ctx context.Context, sessionName string) error {
	return r.control(ctx, "stopRecording", "MEETINGCTL_AUDIO_HIJACK_STOP_SCRIPT", sessionName)
}

func (r *Recorder) control(ctx context.Context, action, scriptEnv, sessionName string) error {
	if os.Getenv("MEETINGCTL_RECORDING_DRY_RUN") == "1" {
		return nil
	}
	if script := strings.TrimSpace(os.Getenv(scriptEnv)); script != "" {
		if _, err := os.Stat(script); err != nil {
			return fmt.Errorf("audiohijack: configured script not found: %s", script)
		}
		return r.run(ctx, "open", "-a", "Audio Hijack", script)
	}
	return r.run(ctx, "osascript", "-l", "JavaScript", "-e", sessionScript(action, sessionName))
}

// sessionScript renders the JXA snippet locating the named session and
// invoking action on it.
func sessionScript(action, sessionName string) string {
	escaped := strings.NewReplacer(`\`, `\\`, `"`, `\"`).Replace(sessionName)
	return fmt.Sprintf(`const app = Application("Audio Hijack");
const session = app.sessionWithName("%s");
if (!session.exists()) {
  throw new Error("Session not found: %s");
}
session.%s();`, escaped, escaped, action)
}
