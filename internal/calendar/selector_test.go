package calendar

import (
	"testing"
	"time"
)

func mkEvent(title string, start, end time.Time) Event {
	return Event{Title: title, Start: start, End: end, CalendarName: "Work"}
}

func TestSelectNowOrNext_PrefersOngoing(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 2, 8, 10, 15, 0, 0, time.UTC)
	events := []Event{
		mkEvent("Later", now.Add(10*time.Minute), now.Add(40*time.Minute)),
		mkEvent("Ongoing", now.Add(-15*time.Minute), now.Add(15*time.Minute)),
	}
	got := SelectNowOrNext(events, now, 30*time.Minute)
	if got == nil || got.Title != "Ongoing" {
		t.Fatalf("got %+v, want the ongoing event", got)
	}
}

func TestSelectNowOrNext_UpcomingWithinWindow(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 2, 8, 10, 0, 0, 0, time.UTC)
	events := []Event{
		mkEvent("Too Far", now.Add(45*time.Minute), now.Add(75*time.Minute)),
		mkEvent("Soon", now.Add(20*time.Minute), now.Add(50*time.Minute)),
	}
	got := SelectNowOrNext(events, now, 30*time.Minute)
	if got == nil || got.Title != "Soon" {
		t.Fatalf("got %+v, want the event inside the window", got)
	}

	if got := SelectNowOrNext(events[:1], now, 30*time.Minute); got != nil {
		t.Errorf("got %+v, want nil for events beyond the window", got)
	}
}

func TestSelectNowOrNext_TieBreaksByStartThenTitle(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 2, 8, 10, 0, 0, 0, time.UTC)
	start := now.Add(-5 * time.Minute)
	end := now.Add(25 * time.Minute)
	events := []Event{
		mkEvent("Zebra Sync", start, end),
		mkEvent("Alpha Sync", start, end),
	}
	got := SelectNowOrNext(events, now, 30*time.Minute)
	if got == nil || got.Title != "Alpha Sync" {
		t.Fatalf("got %+v, want title tie-break", got)
	}
}

func TestSelectNowOrNext_ExcludesCanceled(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 2, 8, 10, 0, 0, 0, time.UTC)
	events := []Event{
		mkEvent("Canceled: Weekly Sync", now.Add(-5*time.Minute), now.Add(25*time.Minute)),
	}
	if got := SelectNowOrNext(events, now, 30*time.Minute); got != nil {
		t.Errorf("got %+v, want canceled event excluded", got)
	}
}

// At the instant one meeting ends and the next begins, the starting one is
// ongoing with distance zero and must win.
func TestSelectNearestTo_BoundaryFavorsStartingEvent(t *testing.T) {
	t.Parallel()

	day := time.Date(2026, 2, 8, 0, 0, 0, 0, time.UTC)
	at := day.Add(11 * time.Hour)
	events := []Event{
		mkEvent("A", day.Add(10*time.Hour), day.Add(11*time.Hour)),
		mkEvent("B", day.Add(11*time.Hour), day.Add(11*time.Hour+30*time.Minute)),
	}
	got := SelectNearestTo(events, at, 90*time.Minute)
	if got == nil || got.Title != "B" {
		t.Fatalf("got %+v, want B", got)
	}
}

func TestSelectNearestTo_AmbiguousReturnsNil(t *testing.T) {
	t.Parallel()

	day := time.Date(2026, 2, 8, 0, 0, 0, 0, time.UTC)
	at := day.Add(10 * time.Hour)
	start := day.Add(10*time.Hour + 5*time.Minute)
	end := day.Add(10*time.Hour + 25*time.Minute)
	events := []Event{
		mkEvent("First", start, end),
		mkEvent("Second", start, end),
	}
	if got := SelectNearestTo(events, at, 30*time.Minute); got != nil {
		t.Errorf("got %+v, want nil for ambiguous distances", got)
	}
}

func TestSelectNearestTo_OutsideWindow(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 2, 8, 10, 0, 0, 0, time.UTC)
	events := []Event{
		mkEvent("Far", now.Add(2*time.Hour), now.Add(3*time.Hour)),
	}
	if got := SelectNearestTo(events, now, 30*time.Minute); got != nil {
		t.Errorf("got %+v, want nil outside window", got)
	}
}

func TestRankNearest_Ordering(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 2, 8, 10, 0, 0, 0, time.UTC)
	events := []Event{
		mkEvent("Twenty", now.Add(20*time.Minute), now.Add(50*time.Minute)),
		mkEvent("Ongoing", now.Add(-10*time.Minute), now.Add(10*time.Minute)),
		mkEvent("Five", now.Add(5*time.Minute), now.Add(35*time.Minute)),
	}
	ranked := RankNearest(events, now, time.Hour)
	if len(ranked) != 3 {
		t.Fatalf("len = %d, want 3", len(ranked))
	}
	wantOrder := []string{"Ongoing", "Five", "Twenty"}
	for i, want := range wantOrder {
		if ranked[i].Event.Title != want {
			t.Errorf("ranked[%d] = %q, want %q", i, ranked[i].Event.Title, want)
		}
	}
	if ranked[0].Distance != 0 {
		t.Errorf("ongoing distance = %v, want 0", ranked[0].Distance)
	}
}

func TestRankByTitle(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 2, 8, 10, 0, 0, 0, time.UTC)
	candidates := []Candidate{
		{Event: mkEvent("Budget Review", now, now.Add(30*time.Minute))},
		{Event: mkEvent("Weekly Team Standup", now, now.Add(30*time.Minute))},
	}
	ranked := RankByTitle(candidates, "weekly team standup recording", 5)
	if len(ranked) != 2 {
		t.Fatalf("len = %d, want 2", len(ranked))
	}
	if ranked[0].Event.Title != "Weekly Team Standup" {
		t.Errorf("top match = %q, want the similar title first", ranked[0].Event.Title)
	}
}
