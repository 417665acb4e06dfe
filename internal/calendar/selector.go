package calendar

import (
	"sort"
	"strings"
	"time"

	"github.com/antzucaro/matchr"
)

// canceledPrefix marks events excluded from every selection mode.
const canceledPrefix = "Canceled:"

func selectable(events []Event) []Event {
	kept := make([]Event, 0, len(events))
	for _, ev := range events {
		if strings.HasPrefix(ev.Title, canceledPrefix) {
			continue
		}
		kept = append(kept, ev)
	}
	return kept
}

func byStartThenTitle(events []Event) {
	sort.Slice(events, func(i, j int) bool {
		if !events[i].Start.Equal(events[j].Start) {
			return events[i].Start.Before(events[j].Start)
		}
		return events[i].Title < events[j].Title
	})
}

// SelectNowOrNext returns the ongoing event with the smallest (start, title),
// or failing that the event starting within window after now, or nil.
func SelectNowOrNext(events []Event, now time.Time, window time.Duration) *Event {
	var ongoing, upcoming []Event
	windowEnd := now.Add(window)
	for _, ev := range selectable(events) {
		switch {
		case !ev.Start.After(now) && now.Before(ev.End):
			ongoing = append(ongoing, ev)
		case ev.Start.After(now) && !ev.Start.After(windowEnd):
			upcoming = append(upcoming, ev)
		}
	}
	if len(ongoing) > 0 {
		byStartThenTitle(ongoing)
		return &ongoing[0]
	}
	if len(upcoming) > 0 {
		byStartThenTitle(upcoming)
		return &upcoming[0]
	}
	return nil
}

// distanceTo is zero while the event is ongoing (end exclusive) and the
// absolute gap to its start otherwise.
func distanceTo(ev Event, t time.Time) time.Duration {
	if !ev.Start.After(t) && t.Before(ev.End) {
		return 0
	}
	d := ev.Start.Sub(t)
	if d < 0 {
		d = -d
	}
	return d
}

// SelectNearestTo returns the event closest to t within window. When two or
// more events tie on the minimum distance the match is ambiguous and nil is
// returned. An event's end is exclusive, so at the instant one meeting ends
// and another begins the starting one wins with distance zero.
func SelectNearestTo(events []Event, t time.Time, window time.Duration) *Event {
	ranked := RankNearest(events, t, window)
	if len(ranked) == 0 {
		return nil
	}
	if len(ranked) > 1 && ranked[0].Distance == ranked[1].Distance {
		return nil
	}
	return &ranked[0].Event
}

// Candidate pairs an event with its distance to the reference instant.
type Candidate struct {
	Event    Event
	Distance time.Duration
}

// RankNearest returns every event within window of t, ordered by
// (distance, start, title).
func RankNearest(events []Event, t time.Time, window time.Duration) []Candidate {
	var candidates []Candidate
	for _, ev := range selectable(events) {
		d := distanceTo(ev, t)
		if d <= window {
			candidates = append(candidates, Candidate{Event: ev, Distance: d})
		}
	}
	sort.Slice(candidates, func(i, j int) bool {
		a, b := candidates[i], candidates[j]
		if a.Distance != b.Distance {
			return a.Distance < b.Distance
		}
		if !a.Event.Start.Equal(b.Event.Start) {
			return a.Event.Start.Before(b.Event.Start)
		}
		return a.Event.Title < b.Event.Title
	})
	return candidates
}

// RankByTitle orders candidates by Jaro-Winkler similarity of their titles
// to query, highest first, keeping at most limit entries. Used by the
// interactive backfill review to surface likely matches for a filename.
func RankByTitle(candidates []Candidate, query string, limit int) []Candidate {
	type scored struct {
		c     Candidate
		score float64
	}
	lower := strings.ToLower(query)
	ranked := make([]scored, 0, len(candidates))
	for _, c := range candidates {
		ranked = append(ranked, scored{
			c:     c,
			score: matchr.JaroWinkler(lower, strings.ToLower(c.Event.Title), true),
		})
	}
	sort.SliceStable(ranked, func(i, j int) bool { return ranked[i].score > ranked[j].score })
	if limit > 0 && len(ranked) > limit {
		ranked = ranked[:limit]
	}
	out := make([]Candidate, len(ranked))
	for i, r := range ranked {
		out[i] = r.c
	}
	return out
}
