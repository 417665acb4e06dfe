package calendar

import (
	"testing"
	"time"
)

func TestInferJoinURL_PrefersKnownHosts(t *testing.T) {
	t.Parallel()

	ev := Event{
		Notes: "Join via https://aka.ms/JoinTeamsMeeting?x=1 or " +
			"https://teams.microsoft.com/l/meetup-join/abc",
	}
	got := InferJoinURL(ev)
	if got != "https://teams.microsoft.com/l/meetup-join/abc" {
		t.Errorf("InferJoinURL() = %q, want the teams.microsoft.com URL", got)
	}
	if p := InferPlatform(got); p != PlatformTeams {
		t.Errorf("InferPlatform() = %q, want teams", p)
	}
}

func TestInferJoinURL_FieldOrder(t *testing.T) {
	t.Parallel()

	// No preferred host anywhere: the first URL scanned (url before
	// location before notes) wins.
	ev := Event{
		URL:      "https://example.com/first",
		Location: "https://example.com/second",
	}
	if got := InferJoinURL(ev); got != "https://example.com/first" {
		t.Errorf("InferJoinURL() = %q, want the url field's link", got)
	}
}

func TestInferJoinURL_Empty(t *testing.T) {
	t.Parallel()

	if got := InferJoinURL(Event{Notes: "room 4, no link"}); got != "" {
		t.Errorf("InferJoinURL() = %q, want empty", got)
	}
}

func TestInferPlatform(t *testing.T) {
	t.Parallel()

	cases := []struct {
		url  string
		want Platform
	}{
		{"https://teams.microsoft.com/l/meetup-join/abc", PlatformTeams},
		{"https://us02web.zoom.us/j/123", PlatformZoom},
		{"https://meet.google.com/abc-defg-hij", PlatformMeet},
		{"https://company.webex.com/meet/room", PlatformWebex},
		{"https://example.com/call", PlatformUnknown},
		// Known hosts in the path or query must not match.
		{"https://example.com/redirect?to=zoom.us", PlatformUnknown},
		{"https://example.com/teams.microsoft.com/abc", PlatformUnknown},
		{"https://notzoom.us/j/123", PlatformUnknown},
		{"", PlatformUnknown},
	}
	for _, tc := range cases {
		if got := InferPlatform(tc.url); got != tc.want {
			t.Errorf("InferPlatform(%q) = %q, want %q", tc.url, got, tc.want)
		}
	}
}

func TestDecodeEvents(t *testing.T) {
	t.Parallel()

	payload := `[
		{"title": "Weekly Sync", "start": "2026-02-08T10:00:00+01:00",
		 "end": "2026-02-08T10:30:00+01:00", "calendar_name": "Work",
		 "location": "", "notes": "", "url": ""},
		{"title": "Broken", "start": "not a time", "end": "also not"}
	]`
	events, err := DecodeEvents([]byte(payload))
	if err != nil {
		t.Fatalf("DecodeEvents() error: %v", err)
	}
	if len(events) != 1 {
		t.Fatalf("len = %d, want the broken entry dropped", len(events))
	}
	ev := events[0]
	if ev.Title != "Weekly Sync" || ev.CalendarName != "Work" {
		t.Errorf("event = %+v", ev)
	}
	want := time.Date(2026, 2, 8, 10, 0, 0, 0, time.FixedZone("", 3600))
	if !ev.Start.Equal(want) {
		t.Errorf("Start = %v, want %v", ev.Start, want)
	}
}

func TestDecodeEvents_Invalid(t *testing.T) {
	t.Parallel()

	if _, err := DecodeEvents([]byte(`{"not": "a list"}`)); err == nil {
		t.Error("expected error for non-array payload")
	}
}
