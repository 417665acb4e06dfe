// Package ffmpeg re-encodes recordings to MP3 with the ffmpeg CLI.
package ffmpeg

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/MrWong99/meetingctl/pkg/provider/converter"
)

// Converter shells out to ffmpeg. The source file is deleted only after a
// successful encode. MEETINGCTL_PROCESSING_CONVERT_DRY_RUN=1 skips the
// encode and keeps the source.
type Converter struct {
	binary string
	run    func(ctx context.Context, name string, args ...string) error
}

var _ converter.Provider = (*Converter)(nil)

// Option is a functional option for configuring a [Converter].
type Option func(*Converter)

// WithBinary overrides the ffmpeg executable name or path.
func WithBinary(binary string) Option {
	return func(c *Converter) { c.binary = binary }
}

// WithRunner replaces the command runner, for tests.
func WithRunner(run func(ctx context.Context, name string, args ...string) error) Option {
	return func(c *Converter) { c.run = run }
}

// New returns a Converter using the ffmpeg on PATH.
func New(opts ...Option) *Converter {
	c := &Converter{binary: "ffmpeg"}
	c.run = c.execRun
	for _, o := range opts {
		o(c)
	}
	return c
}

func (c *Converter) execRun(ctx context.Context, name string, args ...string) error {
	cmd := exec.CommandContext(ctx, name, args...)
	out, err := cmd.CombinedOutput()
	if err != nil {
		detail := strings.TrimSpace(string(out))
		if detail == "" {
			detail = err.Error()
		}
		return fmt.Errorf("ffmpeg: %s failed: %s", name, detail)
	}
	return nil
}

func (c *Converter) Convert(ctx context.Context, srcPath, dstPath string) error {
	if _, err := os.Stat(srcPath); err != nil {
		return fmt.Errorf("ffmpeg: source not found: %s", srcPath)
	}
	if os.Getenv("MEETINGCTL_PROCESSING_CONVERT_DRY_RUN") == "1" {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(dstPath), 0o755); err != nil {
		return fmt.Errorf("ffmpeg: create output dir: %w", err)
	}
	if err := c.run(ctx, c.binary, "-y", "-i", srcPath, dstPath); err != nil {
		return err
	}
	if err := os.Remove(srcPath); err != nil {
		return fmt.Errorf("ffmpeg: remove source %q: %w", srcPath, err)
	}
	return nil
}

// Available checks that the ffmpeg binary is reachable.
func (c *Converter) Available() (bool, string) {
	if filepath.IsAbs(c.binary) {
		if _, err := os.Stat(c.binary); err != nil {
			return false, "ffmpeg binary not found: " + c.binary
		}
		return true, ""
	}
	if _, err := exec.LookPath(c.binary); err != nil {
		return false, "ffmpeg not on PATH. Install ffmpeg"
	}
	return true, ""
}
