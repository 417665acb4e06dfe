package ffmpeg

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestConvert_EncodesAndRemovesSource(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "m-1.wav")
	dst := filepath.Join(dir, "m-1.mp3")
	if err := os.WriteFile(src, []byte("riff"), 0o644); err != nil {
		t.Fatal(err)
	}

	var gotArgs []string
	conv := New(WithRunner(func(_ context.Context, name string, args ...string) error {
		gotArgs = append([]string{name}, args...)
		return os.WriteFile(dst, []byte("mp3"), 0o644)
	}))

	if err := conv.Convert(context.Background(), src, dst); err != nil {
		t.Fatalf("Convert() error: %v", err)
	}
	want := "ffmpeg -y -i " + src + " " + dst
	if strings.Join(gotArgs, " ") != want {
		t.Errorf("args = %v", gotArgs)
	}
	if _, err := os.Stat(src); !os.IsNotExist(err) {
		t.Error("source not removed after successful encode")
	}
}

func TestConvert_KeepsSourceOnFailure(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "m-1.wav")
	if err := os.WriteFile(src, []byte("riff"), 0o644); err != nil {
		t.Fatal(err)
	}

	conv := New(WithRunner(func(context.Context, string, ...string) error {
		return errors.New("encode failed")
	}))
	if err := conv.Convert(context.Background(), src, filepath.Join(dir, "m-1.mp3")); err == nil {
		t.Fatal("expected error")
	}
	if _, err := os.Stat(src); err != nil {
		t.Error("source removed despite failed encode")
	}
}

func TestConvert_MissingSource(t *testing.T) {
	conv := New(WithRunner(func(context.Context, string, ...string) error {
		t.Error("runner invoked for missing source")
		return nil
	}))
	err := conv.Convert(context.Background(),
		filepath.Join(t.TempDir(), "absent.wav"),
		filepath.Join(t.TempDir(), "out.mp3"))
	if err == nil {
		t.Error("expected error for missing source")
	}
}

func TestConvert_DryRun(t *testing.T) {
	t.Setenv("MEETINGCTL_PROCESSING_CONVERT_DRY_RUN", "1")

	dir := t.TempDir()
	src := filepath.Join(dir, "m-1.wav")
	if err := os.WriteFile(src, []byte("riff"), 0o644); err != nil {
		t.Fatal(err)
	}

	conv := New(WithRunner(func(context.Context, string, ...string) error {
		t.Error("runner invoked under dry run")
		return nil
	}))
	if err := conv.Convert(context.Background(), src, filepath.Join(dir, "m-1.mp3")); err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(src); err != nil {
		t.Error("dry run removed the source")
	}
}
