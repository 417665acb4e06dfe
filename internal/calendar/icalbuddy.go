package calendar

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"
)

const icalBuddyTimeout = 30 * time.Second

// ICalBuddyBackend parses the plain-text output of the icalBuddy CLI. Last
// resort of the cascade: no join URLs or notes, but it works without any
// framework bindings.
type ICalBuddyBackend struct{}

var _ Backend = (*ICalBuddyBackend)(nil)

func (b *ICalBuddyBackend) Name() string { return "icalbuddy" }

func (b *ICalBuddyBackend) FetchEvents(ctx context.Context, start, end time.Time) ([]Event, error) {
	if events, handled, err := envOverride(b.Name()); handled {
		return events, err
	}

	binary, err := findICalBuddy()
	if err != nil {
		return nil, err
	}

	args := []string{
		"-npn", "-nc",
		"-ps", "/ - /",
		"-iep", "datetime,title",
		"-po", "datetime, title",
		"-b", "###### ",
		"-tf", "%H%M",
	}
	calendarName := strings.TrimSpace(os.Getenv("MEETINGCTL_ICALBUDDY_CALENDAR"))
	if calendarName != "" {
		args = append(args, "-ic", calendarName)
	}

	var eventDate time.Time
	if !start.IsZero() && !end.IsZero() {
		args = append(args,
			"eventsFrom:"+start.In(time.Local).Format("2006-01-02"),
			"to:"+end.In(time.Local).Format("2006-01-02"))
		eventDate = start.In(time.Local)
	} else {
		args = append(args, "eventsToday")
		eventDate = time.Now().In(time.Local)
	}

	ctx, cancel := context.WithTimeout(ctx, backendTimeout(b.Name(), icalBuddyTimeout))
	defer cancel()

	cmd := exec.CommandContext(ctx, binary, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, fmt.Errorf("calendar: icalBuddy timed out")
		}
		reason := strings.TrimSpace(stderr.String())
		if reason == "" {
			reason = err.Error()
		}
		return nil, fmt.Errorf("calendar: icalBuddy failed: %s", reason)
	}
	return parseICalBuddyOutput(stdout.String(), eventDate, calendarName), nil
}

func findICalBuddy() (string, error) {
	if explicit := strings.TrimSpace(os.Getenv("MEETINGCTL_ICALBUDDY_BIN")); explicit != "" {
		if _, err := os.Stat(explicit); err != nil {
			return "", &UnavailableError{Backend: "icalbuddy", Reason: "binary not found: " + explicit}
		}
		return explicit, nil
	}
	home, _ := os.UserHomeDir()
	for _, candidate := range []string{
		filepath.Join(home, "icalBuddy", "icalBuddy"),
		"/usr/local/bin/icalBuddy",
	} {
		if _, err := os.Stat(candidate); err == nil {
			return candidate, nil
		}
	}
	if path, err := exec.LookPath("icalBuddy"); err == nil {
		return path, nil
	}
	return "", &UnavailableError{
		Backend: "icalbuddy",
		Reason:  "binary not found. Set MEETINGCTL_ICALBUDDY_BIN or install icalBuddy",
	}
}

var icalBuddyLine = regexp.MustCompile(`^#+\s*(\d{4})\s*-\s*(\d{4})\s*-\s*(.+)$`)

// parseICalBuddyOutput turns "###### HHMM - HHMM - Title" lines into events
// on eventDate. An end at or before the start rolls over to the next day.
func parseICalBuddyOutput(raw string, eventDate time.Time, calendarName string) []Event {
	var events []Event
	for _, line := range strings.Split(raw, "\n") {
		m := icalBuddyLine.FindStringSubmatch(strings.TrimSpace(line))
		if m == nil {
			continue
		}
		startAt, ok1 := timeOfDay(eventDate, m[1])
		endAt, ok2 := timeOfDay(eventDate, m[2])
		if !ok1 || !ok2 {
			continue
		}
		if !endAt.After(startAt) {
			endAt = endAt.AddDate(0, 0, 1)
		}
		events = append(events, Event{
			Title:        strings.TrimSpace(m[3]),
			Start:        startAt,
			End:          endAt,
			CalendarName: calendarName,
		})
	}
	return events
}

func timeOfDay(date time.Time, hhmm string) (time.Time, bool) {
	hour, err1 := strconv.Atoi(hhmm[:2])
	minute, err2 := strconv.Atoi(hhmm[2:])
	if err1 != nil || err2 != nil || hour > 23 || minute > 59 {
		return time.Time{}, false
	}
	return time.Date(date.Year(), date.Month(), date.Day(), hour, minute, 0, 0, time.Local), true
}
