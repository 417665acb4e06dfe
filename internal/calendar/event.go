// Package calendar resolves the calendar event a recording session belongs
// to. It normalizes events from several macOS backends, runs time-window
// selection over them, and infers the join URL and meeting platform.
package calendar

import (
	"encoding/json"
	"fmt"
	"net/url"
	"regexp"
	"strings"
	"time"
)

// Platform identifies the meeting product behind a join URL.
type Platform string

const (
	PlatformTeams   Platform = "teams"
	PlatformZoom    Platform = "zoom"
	PlatformMeet    Platform = "meet"
	PlatformWebex   Platform = "webex"
	PlatformSystem  Platform = "system"
	PlatformUnknown Platform = "unknown"
)

// Event is a normalized calendar item. Backends produce it; everything
// downstream consumes it read-only.
type Event struct {
	Title        string    `json:"title"`
	Start        time.Time `json:"start"`
	End          time.Time `json:"end"`
	CalendarName string    `json:"calendar_name"`
	Location     string    `json:"location"`
	Notes        string    `json:"notes"`
	URL          string    `json:"url"`

	// JoinURL and Platform are filled in by [Enrich] after selection.
	JoinURL  string   `json:"join_url,omitempty"`
	Platform Platform `json:"platform,omitempty"`
}

// rawEvent is the backend wire form: timestamps as ISO-8601 strings.
type rawEvent struct {
	Title        string `json:"title"`
	Start        string `json:"start"`
	End          string `json:"end"`
	CalendarName string `json:"calendar_name"`
	Location     string `json:"location"`
	Notes        string `json:"notes"`
	URL          string `json:"url"`
}

var eventTimeLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05 -0700",
	"2006-01-02 15:04:05Z07:00",
}

func parseEventTime(raw string) (time.Time, error) {
	value := strings.TrimSpace(raw)
	if value == "" {
		return time.Time{}, fmt.Errorf("calendar: empty timestamp")
	}
	for _, layout := range eventTimeLayouts {
		if t, err := time.ParseInLocation(layout, value, time.Local); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("calendar: unparseable timestamp %q", raw)
}

// DecodeEvents parses a backend's JSON array into normalized events.
// Entries with unparseable timestamps are dropped rather than failing the
// whole fetch.
func DecodeEvents(data []byte) ([]Event, error) {
	var raws []rawEvent
	if err := json.Unmarshal(data, &raws); err != nil {
		return nil, fmt.Errorf("calendar: decode events: %w", err)
	}
	events := make([]Event, 0, len(raws))
	for _, r := range raws {
		start, err := parseEventTime(r.Start)
		if err != nil {
			continue
		}
		end, err := parseEventTime(r.End)
		if err != nil {
			continue
		}
		events = append(events, Event{
			Title:        r.Title,
			Start:        start,
			End:          end,
			CalendarName: r.CalendarName,
			Location:     r.Location,
			Notes:        r.Notes,
			URL:          r.URL,
		})
	}
	return events, nil
}

var urlPattern = regexp.MustCompile(`https?://\S+`)

// preferredHosts orders the meeting products a join URL is matched against.
var preferredHosts = []struct {
	host     string
	platform Platform
}{
	{"teams.microsoft.com", PlatformTeams},
	{"zoom.us", PlatformZoom},
	{"meet.google.com", PlatformMeet},
	{"webex.com", PlatformWebex},
}

// InferJoinURL scans the event's url, location and notes fields in order for
// http(s) URLs. Among all matches the known meeting hosts win in preference
// order; with no known host the first URL found is returned.
func InferJoinURL(ev Event) string {
	var found []string
	for _, field := range []string{ev.URL, ev.Location, ev.Notes} {
		found = append(found, urlPattern.FindAllString(field, -1)...)
	}
	if len(found) == 0 {
		return ""
	}
	for _, pref := range preferredHosts {
		for _, u := range found {
			if hostPlatform(u) == pref.platform {
				return u
			}
		}
	}
	return found[0]
}

// hostPlatform matches the URL's hostname, or any subdomain of a known
// meeting host, against the preferred hosts. Matching is on the parsed
// host only, so a known host appearing in the path or query does not count.
func hostPlatform(rawURL string) Platform {
	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" {
		return PlatformUnknown
	}
	host := strings.ToLower(u.Hostname())
	for _, pref := range preferredHosts {
		if host == pref.host || strings.HasSuffix(host, "."+pref.host) {
			return pref.platform
		}
	}
	return PlatformUnknown
}

// InferPlatform maps a join URL's host to a [Platform].
func InferPlatform(joinURL string) Platform {
	if joinURL == "" {
		return PlatformUnknown
	}
	return hostPlatform(joinURL)
}

// Enrich fills in JoinURL and Platform on ev from its text fields.
func Enrich(ev Event) Event {
	ev.JoinURL = InferJoinURL(ev)
	ev.Platform = InferPlatform(ev.JoinURL)
	return ev
}
