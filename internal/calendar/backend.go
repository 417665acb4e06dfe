package calendar

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Backend fetches raw calendar events for a time window. A nil start/end
// pair means the backend's default window (roughly one hour back to seven
// days ahead). Implementations return *[UnavailableError] for precondition
// failures and plain errors for operational ones.
type Backend interface {
	Name() string
	FetchEvents(ctx context.Context, start, end time.Time) ([]Event, error)
}

// envOverride checks the per-backend test hooks shared by every backend:
// MEETINGCTL_<NAME>_UNAVAILABLE=1 forces an unavailable result and
// MEETINGCTL_<NAME>_EVENTS_JSON supplies a literal event list.
func envOverride(name string) ([]Event, bool, error) {
	upper := strings.ToUpper(name)
	if os.Getenv("MEETINGCTL_"+upper+"_UNAVAILABLE") == "1" {
		return nil, true, &UnavailableError{Backend: name, Reason: "forced unavailable via environment"}
	}
	raw, present := os.LookupEnv("MEETINGCTL_" + upper + "_EVENTS_JSON")
	if !present {
		return nil, false, nil
	}
	events, err := DecodeEvents([]byte(raw))
	if err != nil {
		return nil, true, fmt.Errorf("calendar: %s events override: %w", name, err)
	}
	return events, true, nil
}

// backendTimeout reads MEETINGCTL_<NAME>_TIMEOUT_SECONDS, falling back to
// fallback when unset or unparseable.
func backendTimeout(name string, fallback time.Duration) time.Duration {
	raw := os.Getenv("MEETINGCTL_" + strings.ToUpper(name) + "_TIMEOUT_SECONDS")
	if raw == "" {
		return fallback
	}
	secs, err := strconv.ParseFloat(raw, 64)
	if err != nil || secs <= 0 {
		return fallback
	}
	return time.Duration(secs * float64(time.Second))
}

// defaultWindow widens a zero start/end pair to the standard fetch window.
func defaultWindow(now time.Time, start, end time.Time) (time.Time, time.Time) {
	if start.IsZero() || end.IsZero() {
		return now.Add(-time.Hour), now.Add(7 * 24 * time.Hour)
	}
	return start, end
}
