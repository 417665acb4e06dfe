package calendar

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"
)

const eventKitHelperTimeout = 15 * time.Second

// EventKitBackend shells out to a helper binary that queries the macOS
// EventKit store and prints a JSON event array. The helper keeps the
// calendar-permission TCC prompt attached to one signed executable instead
// of whichever shell invoked meetingctl.
type EventKitBackend struct{}

var _ Backend = (*EventKitBackend)(nil)

func (b *EventKitBackend) Name() string { return "eventkit" }

func (b *EventKitBackend) FetchEvents(ctx context.Context, start, end time.Time) ([]Event, error) {
	if events, handled, err := envOverride(b.Name()); handled {
		return events, err
	}

	helper, err := eventKitHelperPath()
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, backendTimeout(b.Name(), eventKitHelperTimeout))
	defer cancel()

	args := []string{}
	start, end = defaultWindow(time.Now(), start, end)
	args = append(args, "--start", start.Format(time.RFC3339), "--end", end.Format(time.RFC3339))

	cmd := exec.CommandContext(ctx, helper, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, fmt.Errorf("calendar: eventkit helper timed out")
		}
		reason := strings.TrimSpace(stderr.String())
		if reason == "" {
			reason = err.Error()
		}
		return nil, &UnavailableError{Backend: b.Name(), Reason: "helper failed: " + reason}
	}

	out := bytes.TrimSpace(stdout.Bytes())
	if len(out) == 0 {
		out = []byte("[]")
	}
	return DecodeEvents(out)
}

// eventKitHelperPath resolves the helper executable. An explicit
// MEETINGCTL_EVENTKIT_HELPER must be absolute; otherwise the helper is
// expected next to the meetingctl binary.
func eventKitHelperPath() (string, error) {
	if explicit := os.Getenv("MEETINGCTL_EVENTKIT_HELPER"); explicit != "" {
		if !filepath.IsAbs(explicit) {
			return "", &UnavailableError{Backend: "eventkit", Reason: "helper path must be absolute"}
		}
		if _, err := os.Stat(explicit); err != nil {
			return "", &UnavailableError{Backend: "eventkit", Reason: "helper not found: " + explicit}
		}
		return explicit, nil
	}

	self, err := os.Executable()
	if err != nil {
		return "", &UnavailableError{Backend: "eventkit", Reason: "cannot locate meetingctl binary"}
	}
	candidate := filepath.Join(filepath.Dir(self), "meetingctl-eventkit")
	if _, err := os.Stat(candidate); err != nil {
		return "", &UnavailableError{Backend: "eventkit", Reason: "helper not found: " + candidate}
	}
	return candidate, nil
}
