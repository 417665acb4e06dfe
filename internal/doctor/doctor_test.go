package doctor

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/MrWong99/meetingctl/internal/config"
	convertermock "github.com/MrWong99/meetingctl/pkg/provider/converter/mock"
	transcribermock "github.com/MrWong99/meetingctl/pkg/provider/transcriber/mock"
)

func healthyConfig(t *testing.T) *config.Config {
	t.Helper()
	root := t.TempDir()
	vault := filepath.Join(root, "vault")
	recordings := filepath.Join(root, "recordings")
	for _, dir := range []string{vault, recordings} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			t.Fatal(err)
		}
	}
	return &config.Config{VaultPath: vault, RecordingsPath: recordings}
}

func allFoundProbes() []Option {
	return []Option{
		WithLookPath(func(string) (string, error) { return "/usr/bin/osascript", nil }),
		WithGetenv(func(key string) string {
			if key == "MEETINGCTL_RECORDING_DRY_RUN" {
				return "1"
			}
			return ""
		}),
	}
}

func checkByName(t *testing.T, report Report, name string) Check {
	t.Helper()
	for _, c := range report.Checks {
		if c.Name == name {
			return c
		}
	}
	t.Fatalf("no check named %q in %+v", name, report.Checks)
	return Check{}
}

func TestRun_AllMandatoryPass(t *testing.T) {
	t.Parallel()
	opts := append(allFoundProbes(),
		WithTranscriber(&transcribermock.Provider{}),
		WithConverter(&convertermock.Provider{}),
	)
	report := NewRunner(healthyConfig(t), opts...).Run()

	if !report.OK {
		t.Errorf("Report.OK = false: %+v", report.Checks)
	}
	for _, name := range []string{"vault_path", "vault_path_absolute", "recordings_path", "calendar_backend", "audio_hijack", "whisper", "ffmpeg"} {
		if c := checkByName(t, report, name); !c.OK {
			t.Errorf("check %s failed: %s (%s)", name, c.Message, c.Hint)
		}
	}
}

func TestRun_MissingVaultFailsAggregate(t *testing.T) {
	t.Parallel()
	cfg := healthyConfig(t)
	cfg.VaultPath = filepath.Join(cfg.VaultPath, "does-not-exist")
	report := NewRunner(cfg, allFoundProbes()...).Run()

	if report.OK {
		t.Error("Report.OK = true despite missing vault")
	}
	c := checkByName(t, report, "vault_path")
	if c.OK || c.Hint == "" {
		t.Errorf("vault_path check = %+v", c)
	}
}

func TestRun_RelativeVaultPath(t *testing.T) {
	t.Parallel()
	cfg := healthyConfig(t)
	cfg.VaultPath = "vault"
	report := NewRunner(cfg, allFoundProbes()...).Run()

	if report.OK {
		t.Error("Report.OK = true despite relative vault path")
	}
	if c := checkByName(t, report, "vault_path_absolute"); c.OK {
		t.Errorf("vault_path_absolute passed for %q", cfg.VaultPath)
	}
}

func TestRun_NoCalendarBackend(t *testing.T) {
	t.Parallel()
	opts := []Option{
		WithLookPath(func(string) (string, error) { return "", errors.New("not found") }),
		WithStat(statOnly(t)),
		WithGetenv(func(key string) string {
			if key == "MEETINGCTL_RECORDING_DRY_RUN" {
				return "1"
			}
			return ""
		}),
	}
	report := NewRunner(healthyConfig(t), opts...).Run()

	if report.OK {
		t.Error("Report.OK = true with no calendar backend")
	}
	c := checkByName(t, report, "calendar_backend")
	if c.OK || c.Hint == "" {
		t.Errorf("calendar_backend check = %+v", c)
	}
}

// statOnly hides everything outside the test's temp tree so absolute-path
// probes like /Applications and /usr/local/bin never hit the host system.
func statOnly(t *testing.T) func(string) (os.FileInfo, error) {
	t.Helper()
	tmp := os.TempDir()
	return func(path string) (os.FileInfo, error) {
		if !strings.HasPrefix(path, tmp) {
			return nil, os.ErrNotExist
		}
		return os.Stat(path)
	}
}

func TestRun_AdvisoryFailuresDoNotFailAggregate(t *testing.T) {
	t.Parallel()
	tm := &transcribermock.Provider{}
	tm.SetAvailable(false, "Install whisper")
	cm := &convertermock.Provider{}
	cm.SetAvailable(false, "Install ffmpeg")

	opts := append(allFoundProbes(), WithTranscriber(tm), WithConverter(cm))
	report := NewRunner(healthyConfig(t), opts...).Run()

	if !report.OK {
		t.Errorf("Report.OK = false, advisory checks should not gate: %+v", report.Checks)
	}
	for _, name := range []string{"whisper", "ffmpeg"} {
		c := checkByName(t, report, name)
		if c.OK || c.Mandatory() {
			t.Errorf("check %s = %+v, want advisory failure", name, c)
		}
	}
}

func TestRun_AudioHijackDryRunBypass(t *testing.T) {
	t.Parallel()
	report := NewRunner(healthyConfig(t), allFoundProbes()...).Run()
	c := checkByName(t, report, "audio_hijack")
	if !c.OK {
		t.Errorf("audio_hijack = %+v, want dry-run pass", c)
	}
}
