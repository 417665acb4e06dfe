package cli

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/MrWong99/meetingctl/internal/calendar"
	"github.com/MrWong99/meetingctl/internal/ingest"
	"github.com/MrWong99/meetingctl/internal/note"
)

// terminalReviewer prompts for each recording during backfill
// --review-calendar: the nearby candidates are listed with their time
// distance, the one whose title best matches the filename is flagged, and
// the user picks a candidate, types an ad-hoc title or skips the file.
type terminalReviewer struct {
	in  *bufio.Reader
	out io.Writer
}

var _ ingest.Reviewer = (*terminalReviewer)(nil)

func newTerminalReviewer(in io.Reader, out io.Writer) *terminalReviewer {
	return &terminalReviewer{in: bufio.NewReader(in), out: out}
}

func (r *terminalReviewer) Decide(file string, autoMatch *calendar.Event, candidates []calendar.Candidate) (ingest.Decision, error) {
	fmt.Fprintf(r.out, "\n%s\n", file)
	if autoMatch != nil {
		fmt.Fprintf(r.out, "  auto match: %q at %s\n",
			autoMatch.Title, autoMatch.Start.Local().Format("2006-01-02 15:04"))
	}
	titleMatch := bestTitleMatch(file, candidates)
	for i, c := range candidates {
		marker := ""
		if i == titleMatch {
			marker = "  <- title match"
		}
		fmt.Fprintf(r.out, "  [%d] %q at %s (%s off)%s\n", i+1, c.Event.Title,
			c.Event.Start.Local().Format("2006-01-02 15:04"),
			c.Distance.Round(time.Minute), marker)
	}
	fmt.Fprint(r.out, `Pick a number, "a <title>" for an ad-hoc note, or enter to skip: `)

	line, err := r.in.ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return ingest.Decision{}, fmt.Errorf("cli: read review input: %w", err)
	}
	line = strings.TrimSpace(line)
	switch {
	case line == "" || line == "s":
		return ingest.Decision{Action: ingest.DecisionSkip}, nil
	case strings.HasPrefix(line, "a "):
		title := strings.TrimSpace(strings.TrimPrefix(line, "a "))
		if title == "" {
			return ingest.Decision{Action: ingest.DecisionSkip}, nil
		}
		return ingest.Decision{Action: ingest.DecisionAdhoc, Title: title}, nil
	}
	n, err := strconv.Atoi(line)
	if err != nil || n < 1 || n > len(candidates) {
		return ingest.Decision{}, fmt.Errorf("cli: review choice %q is not a candidate number", line)
	}
	return ingest.Decision{Action: ingest.DecisionPick, Candidate: n - 1}, nil
}

// bestTitleMatch returns the index of the candidate whose title is most
// similar to the recording's filename-derived title, or -1 when there are
// no candidates.
func bestTitleMatch(file string, candidates []calendar.Candidate) int {
	ranked := calendar.RankByTitle(candidates, note.TitleFromRecording(file), 1)
	if len(ranked) == 0 {
		return -1
	}
	best := ranked[0].Event
	for i, c := range candidates {
		if c.Event.Title == best.Title && c.Event.Start.Equal(best.Start) {
			return i
		}
	}
	return -1
}
