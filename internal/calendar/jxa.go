package calendar

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"
)

const jxaTimeout = 30 * time.Second

// JXABackend queries Calendar.app through osascript running a JavaScript
// for Automation snippet. Slower than EventKit but needs no helper binary.
type JXABackend struct{}

var _ Backend = (*JXABackend)(nil)

func (b *JXABackend) Name() string { return "jxa" }

// jxaEvent is the script's output shape before normalization.
type jxaEvent struct {
	Title         string `json:"title"`
	StartDate     string `json:"startDate"`
	EndDate       string `json:"endDate"`
	CalendarTitle string `json:"calendarTitle"`
	Location      string `json:"location"`
	Notes         string `json:"notes"`
}

func (b *JXABackend) FetchEvents(ctx context.Context, start, end time.Time) ([]Event, error) {
	if events, handled, err := envOverride(b.Name()); handled {
		return events, err
	}
	if _, err := exec.LookPath("osascript"); err != nil {
		return nil, &UnavailableError{Backend: b.Name(), Reason: "osascript not found"}
	}

	ctx, cancel := context.WithTimeout(ctx, backendTimeout(b.Name(), jxaTimeout))
	defer cancel()

	var cmd *exec.Cmd
	if script := os.Getenv("MEETINGCTL_JXA_SCRIPT"); script != "" {
		cmd = exec.CommandContext(ctx, "osascript", "-l", "JavaScript", script)
	} else {
		start, end = defaultWindow(time.Now(), start, end)
		cmd = exec.CommandContext(ctx, "osascript", "-l", "JavaScript", "-e",
			fmt.Sprintf(jxaFetchScript, start.UnixMilli(), end.UnixMilli()))
	}

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, fmt.Errorf("calendar: jxa script timed out")
		}
		reason := strings.TrimSpace(stderr.String())
		if reason == "" {
			reason = err.Error()
		}
		return nil, fmt.Errorf("calendar: jxa script failed: %s", reason)
	}

	raw := bytes.TrimSpace(stdout.Bytes())
	if len(raw) == 0 {
		return nil, nil
	}
	var scripted []jxaEvent
	if err := json.Unmarshal(raw, &scripted); err != nil {
		return nil, fmt.Errorf("calendar: parse jxa output: %w", err)
	}

	events := make([]Event, 0, len(scripted))
	for _, se := range scripted {
		startAt, err := parseEventTime(se.StartDate)
		if err != nil {
			continue
		}
		endAt, err := parseEventTime(se.EndDate)
		if err != nil {
			continue
		}
		events = append(events, Event{
			Title:        se.Title,
			Start:        startAt,
			End:          endAt,
			CalendarName: se.CalendarTitle,
			Location:     se.Location,
			Notes:        se.Notes,
		})
	}
	return events, nil
}

const jxaFetchScript = `
var app = Application('Calendar');
var cals = app.calendars();
var windowStart = new Date(%d);
var windowEnd = new Date(%d);
var events = [];
for (var i = 0; i < cals.length; i++) {
    var calEvents = cals[i].events.whose({
        _and: [
            {startDate: {_greaterThanEquals: windowStart}},
            {startDate: {_lessThanEquals: windowEnd}}
        ]
    })();
    for (var j = 0; j < calEvents.length; j++) {
        var evt = calEvents[j];
        events.push({
            title: evt.summary(),
            startDate: evt.startDate().toISOString(),
            endDate: evt.endDate().toISOString(),
            calendarTitle: cals[i].name(),
            location: evt.location() || "",
            notes: evt.description() || ""
        });
    }
}
JSON.stringify(events);
`
