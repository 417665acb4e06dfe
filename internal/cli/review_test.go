package cli

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/MrWong99/meetingctl/internal/calendar"
	"github.com/MrWong99/meetingctl/internal/ingest"
)

func reviewCandidates() []calendar.Candidate {
	base := time.Date(2026, 2, 8, 9, 0, 0, 0, time.Local)
	return []calendar.Candidate{
		{Event: calendar.Event{Title: "Weekly Sync", Start: base, End: base.Add(30 * time.Minute)}},
		{Event: calendar.Event{Title: "Budget Review", Start: base.Add(time.Hour), End: base.Add(90 * time.Minute)}, Distance: time.Hour},
	}
}

func TestTerminalReviewer_Decide(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name    string
		input   string
		want    ingest.Decision
		wantErr bool
	}{
		{"pick", "2\n", ingest.Decision{Action: ingest.DecisionPick, Candidate: 1}, false},
		{"adhoc", "a War Room\n", ingest.Decision{Action: ingest.DecisionAdhoc, Title: "War Room"}, false},
		{"skip on enter", "\n", ingest.Decision{Action: ingest.DecisionSkip}, false},
		{"skip on s", "s\n", ingest.Decision{Action: ingest.DecisionSkip}, false},
		{"skip on eof", "", ingest.Decision{Action: ingest.DecisionSkip}, false},
		{"out of range", "9\n", ingest.Decision{}, true},
		{"not a number", "first\n", ingest.Decision{}, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			var out bytes.Buffer
			r := newTerminalReviewer(strings.NewReader(tc.input), &out)
			got, err := r.Decide("/recordings/weekly sync.wav", nil, reviewCandidates())
			if (err != nil) != tc.wantErr {
				t.Fatalf("Decide() error = %v, wantErr %v", err, tc.wantErr)
			}
			if !tc.wantErr && got != tc.want {
				t.Errorf("Decide() = %+v, want %+v", got, tc.want)
			}
		})
	}
}

func TestTerminalReviewer_ListsCandidates(t *testing.T) {
	t.Parallel()

	var out bytes.Buffer
	r := newTerminalReviewer(strings.NewReader("1\n"), &out)
	auto := reviewCandidates()[0].Event
	if _, err := r.Decide("/recordings/weekly sync.wav", &auto, reviewCandidates()); err != nil {
		t.Fatalf("Decide() error: %v", err)
	}
	listing := out.String()
	for _, want := range []string{
		`[1] "Weekly Sync"`,
		`[2] "Budget Review"`,
		"auto match",
	} {
		if !strings.Contains(listing, want) {
			t.Errorf("listing missing %q:\n%s", want, listing)
		}
	}
	// The filename "weekly sync" is closest to the first candidate's title.
	if !strings.Contains(listing, `[1] "Weekly Sync" at 2026-02-08 09:00 (0s off)  <- title match`) {
		t.Errorf("title match not flagged on the first candidate:\n%s", listing)
	}
}
