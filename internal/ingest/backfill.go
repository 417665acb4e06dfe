// Package ingest promotes stray recordings into the processing pipeline,
// either as a one-shot backfill over existing files or as a long-running
// watcher on the recordings directory.
package ingest

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/MrWong99/meetingctl/internal/calendar"
	"github.com/MrWong99/meetingctl/internal/config"
	"github.com/MrWong99/meetingctl/internal/note"
	"github.com/MrWong99/meetingctl/internal/pipeline"
	"github.com/MrWong99/meetingctl/internal/queue"
	"github.com/MrWong99/meetingctl/pkg/provider/transcriber"
)

// DefaultExtensions are the recording extensions considered when none are
// configured.
var DefaultExtensions = []string{"wav"}

// DecisionAction is a per-file review outcome.
type DecisionAction string

const (
	// DecisionPick accepts one of the presented calendar candidates.
	DecisionPick DecisionAction = "pick"
	// DecisionAdhoc records the file under a typed ad-hoc title.
	DecisionAdhoc DecisionAction = "adhoc"
	// DecisionSkip leaves the file alone.
	DecisionSkip DecisionAction = "skip"
)

// Decision is the reviewer's verdict for one file.
type Decision struct {
	Action    DecisionAction
	Candidate int    // index into the presented candidates, for DecisionPick
	Title     string // ad-hoc title, for DecisionAdhoc
}

// Reviewer presents the auto-match and nearby candidates for one recording
// and returns the user's decision. The CLI implements this interactively.
type Reviewer interface {
	Decide(file string, autoMatch *calendar.Event, candidates []calendar.Candidate) (Decision, error)
}

// BackfillOptions control one backfill run.
type BackfillOptions struct {
	// Extensions filters discovery; defaults to [DefaultExtensions].
	Extensions []string

	// Files restricts the run to an explicit list instead of scanning the
	// recordings root.
	Files []string

	// MatchCalendar runs the nearest-to selector per file.
	MatchCalendar bool

	// ReviewCalendar presents candidates to the Reviewer per file.
	// Implies calendar matching.
	ReviewCalendar bool

	// CandidateLimit caps the candidates shown during review. Default 5.
	CandidateLimit int

	// Rename moves a matched recording and its .txt/.mp3 siblings to
	// <meeting_id>.<ext>.
	Rename bool

	// ProcessNow runs the pipeline inline instead of enqueueing.
	ProcessNow bool

	// DryRun previews notes and plans without touching anything.
	DryRun bool

	// UnmatchedManifest, when set, receives one JSON line per file that
	// found no calendar match.
	UnmatchedManifest string
}

// Item is the per-file outcome of a backfill run.
type Item struct {
	File       string `json:"file"`
	MeetingID  string `json:"meeting_id,omitempty"`
	NotePath   string `json:"note_path,omitempty"`
	TimeSource string `json:"time_source,omitempty"`
	Matched    bool   `json:"matched"`
	EventTitle string `json:"event_title,omitempty"`
	RenamedTo  string `json:"renamed_to,omitempty"`
	Action     string `json:"action"` // queued, processed, planned, skipped
	Error      string `json:"error,omitempty"`
}

// BackfillReport aggregates a run.
type BackfillReport struct {
	Items     []Item `json:"items"`
	Queued    int    `json:"queued"`
	Processed int    `json:"processed"`
	Skipped   int    `json:"skipped"`
	Unmatched int    `json:"unmatched"`
}

// Backfiller wires the capabilities a backfill run needs.
type Backfiller struct {
	cfg      *config.Config
	notes    *note.Service
	calendar *calendar.Service
	runner   *pipeline.Runner
	transcr  transcriber.Provider
	reviewer Reviewer
	logger   *slog.Logger
}

// BackfillerOption is a functional option for configuring a [Backfiller].
type BackfillerOption func(*Backfiller)

// WithCalendar enables calendar matching.
func WithCalendar(svc *calendar.Service) BackfillerOption {
	return func(b *Backfiller) { b.calendar = svc }
}

// WithPipeline enables --process-now.
func WithPipeline(runner *pipeline.Runner, t transcriber.Provider) BackfillerOption {
	return func(b *Backfiller) { b.runner = runner; b.transcr = t }
}

// WithReviewer sets the interactive reviewer.
func WithReviewer(r Reviewer) BackfillerOption {
	return func(b *Backfiller) { b.reviewer = r }
}

// WithBackfillLogger sets the logger.
func WithBackfillLogger(logger *slog.Logger) BackfillerOption {
	return func(b *Backfiller) { b.logger = logger }
}

// NewBackfiller wires a Backfiller.
func NewBackfiller(cfg *config.Config, notes *note.Service, opts ...BackfillerOption) *Backfiller {
	b := &Backfiller{
		cfg:    cfg,
		notes:  notes,
		logger: slog.Default(),
	}
	for _, o := range opts {
		o(b)
	}
	return b
}

// Run executes a backfill over the recordings root.
func (b *Backfiller) Run(ctx context.Context, opts BackfillOptions) (BackfillReport, error) {
	if opts.ProcessNow && !opts.DryRun {
		if b.transcr == nil || b.runner == nil {
			return BackfillReport{}, fmt.Errorf("ingest: --process-now requires a configured pipeline")
		}
		if ok, reason := b.transcr.Available(); !ok {
			return BackfillReport{}, fmt.Errorf("ingest: transcriber unavailable: %s", reason)
		}
	}
	if (opts.MatchCalendar || opts.ReviewCalendar) && b.calendar == nil {
		return BackfillReport{}, fmt.Errorf("ingest: calendar matching requested without a calendar service")
	}
	if opts.ReviewCalendar && b.reviewer == nil {
		return BackfillReport{}, fmt.Errorf("ingest: --review-calendar requires a reviewer")
	}
	if opts.CandidateLimit <= 0 {
		opts.CandidateLimit = 5
	}

	files, err := b.discover(opts)
	if err != nil {
		return BackfillReport{}, err
	}

	report := BackfillReport{}
	for _, file := range files {
		item := b.processFile(ctx, file, opts)
		report.Items = append(report.Items, item)
		switch item.Action {
		case "queued":
			report.Queued++
		case "processed":
			report.Processed++
		case "skipped":
			report.Skipped++
		}
		if !item.Matched {
			report.Unmatched++
		}
	}

	if opts.UnmatchedManifest != "" && !opts.DryRun {
		if err := writeUnmatchedManifest(opts.UnmatchedManifest, report.Items); err != nil {
			return report, err
		}
	}
	return report, nil
}

// discover enumerates eligible recordings, either the explicit file list or
// a walk of the recordings root filtered by extension.
func (b *Backfiller) discover(opts BackfillOptions) ([]string, error) {
	extensions := opts.Extensions
	if len(extensions) == 0 {
		extensions = DefaultExtensions
	}
	wanted := make(map[string]bool, len(extensions))
	for _, ext := range extensions {
		wanted["."+strings.ToLower(strings.TrimPrefix(ext, "."))] = true
	}

	if len(opts.Files) > 0 {
		files := make([]string, 0, len(opts.Files))
		for _, f := range opts.Files {
			abs, err := filepath.Abs(f)
			if err != nil {
				return nil, fmt.Errorf("ingest: resolve %q: %w", f, err)
			}
			if _, err := os.Stat(abs); err != nil {
				return nil, fmt.Errorf("ingest: %q: %w", f, err)
			}
			files = append(files, abs)
		}
		return files, nil
	}

	var files []string
	err := filepath.WalkDir(b.cfg.RecordingsPath, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		if wanted[strings.ToLower(filepath.Ext(path))] {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("ingest: scan %q: %w", b.cfg.RecordingsPath, err)
	}
	slices.Sort(files)
	return files, nil
}

func (b *Backfiller) processFile(ctx context.Context, file string, opts BackfillOptions) Item {
	item := Item{File: file}

	start, source, err := note.InferRecordingStart(file,
		b.cfg.RecordingFilenameLocation, b.cfg.VoiceMemoFilenameLocation)
	if err != nil {
		item.Action = "skipped"
		item.Error = err.Error()
		return item
	}
	item.TimeSource = string(source)

	matched, ev, decision := b.chooseEvent(ctx, file, start, opts, &item)
	if decision.Action == DecisionSkip {
		item.Action = "skipped"
		return item
	}

	info, err := b.createNote(matched, ev, decision, file, start, opts.DryRun)
	if err != nil {
		item.Action = "skipped"
		item.Error = err.Error()
		return item
	}
	item.MeetingID = info.MeetingID
	item.NotePath = info.NotePath

	audioPath := file
	if opts.Rename && matched && !opts.DryRun {
		renamed, err := renameWithSiblings(file, info.MeetingID)
		if err != nil {
			item.Action = "skipped"
			item.Error = err.Error()
			return item
		}
		audioPath = renamed
		item.RenamedTo = renamed
	}

	if opts.DryRun {
		item.Action = "planned"
		return item
	}

	job := queue.Job{MeetingID: info.MeetingID, NotePath: info.NotePath, WAVPath: audioPath}
	if opts.ProcessNow {
		if _, err := b.runner.Run(ctx, job); err != nil {
			item.Action = "skipped"
			item.Error = err.Error()
			return item
		}
		item.Action = "processed"
		return item
	}
	if err := queue.Enqueue(b.cfg.QueueFile, job); err != nil {
		item.Action = "skipped"
		item.Error = err.Error()
		return item
	}
	item.Action = "queued"
	return item
}

// chooseEvent runs calendar matching and, when requested, the interactive
// review. It reports whether a calendar event was chosen.
func (b *Backfiller) chooseEvent(ctx context.Context, file string, start time.Time, opts BackfillOptions, item *Item) (bool, calendar.Event, Decision) {
	if !opts.MatchCalendar && !opts.ReviewCalendar {
		return false, calendar.Event{}, Decision{Action: DecisionAdhoc}
	}

	window := time.Duration(b.cfg.MatchWindowMinutes) * time.Minute
	var autoMatch *calendar.Event
	if resolution, err := b.calendar.ResolveNearest(ctx, start, window); err == nil {
		ev := resolution.Event
		autoMatch = &ev
	} else {
		b.logger.Debug("no calendar match", "file", file, "error", err)
	}

	if opts.ReviewCalendar {
		candidates, err := b.calendar.CandidatesNear(ctx, start, window, opts.CandidateLimit)
		if err != nil {
			candidates = nil
		}
		decision, err := b.reviewer.Decide(file, autoMatch, candidates)
		if err != nil {
			return false, calendar.Event{}, Decision{Action: DecisionSkip}
		}
		switch decision.Action {
		case DecisionPick:
			if decision.Candidate >= 0 && decision.Candidate < len(candidates) {
				ev := candidates[decision.Candidate].Event
				item.Matched = true
				item.EventTitle = ev.Title
				return true, ev, decision
			}
			return false, calendar.Event{}, Decision{Action: DecisionSkip}
		case DecisionAdhoc, DecisionSkip:
			return false, calendar.Event{}, decision
		}
	}

	if autoMatch != nil {
		item.Matched = true
		item.EventTitle = autoMatch.Title
		return true, *autoMatch, Decision{Action: DecisionPick}
	}
	return false, calendar.Event{}, Decision{Action: DecisionAdhoc}
}

func (b *Backfiller) createNote(matched bool, ev calendar.Event, decision Decision, file string, start time.Time, dryRun bool) (note.Info, error) {
	switch {
	case matched && dryRun:
		return b.notes.Preview(ev)
	case matched:
		return b.notes.CreateFromEvent(ev)
	case decision.Title != "":
		if dryRun {
			return b.notes.Preview(calendar.Event{
				Title:    decision.Title,
				Start:    start,
				End:      start.Add(30 * time.Minute),
				Platform: calendar.PlatformSystem,
			})
		}
		return b.notes.CreateAdhoc(decision.Title, calendar.PlatformSystem, start)
	case dryRun:
		return b.notes.Preview(calendar.Event{
			Title:    note.TitleFromRecording(file),
			Start:    start,
			End:      start.Add(30 * time.Minute),
			Platform: calendar.PlatformSystem,
		})
	default:
		return b.notes.CreateForRecording(file, start)
	}
}

// renameWithSiblings moves the recording to <meeting_id>.<ext> in place and
// drags any .txt/.mp3 siblings along, refusing to overwrite.
func renameWithSiblings(file, meetingID string) (string, error) {
	dir := filepath.Dir(file)
	stem := strings.TrimSuffix(file, filepath.Ext(file))

	type move struct{ from, to string }
	moves := []move{{file, filepath.Join(dir, meetingID+filepath.Ext(file))}}
	for _, ext := range []string{".txt", ".mp3"} {
		sibling := stem + ext
		if _, err := os.Stat(sibling); err == nil {
			moves = append(moves, move{sibling, filepath.Join(dir, meetingID+ext)})
		}
	}

	for _, m := range moves {
		if m.from == m.to {
			continue
		}
		if _, err := os.Stat(m.to); err == nil {
			return "", fmt.Errorf("ingest: refusing to overwrite %q", m.to)
		}
	}
	for _, m := range moves {
		if m.from == m.to {
			continue
		}
		if err := os.Rename(m.from, m.to); err != nil {
			return "", fmt.Errorf("ingest: rename %q: %w", m.from, err)
		}
	}
	return moves[0].to, nil
}

func writeUnmatchedManifest(path string, items []Item) error {
	var lines []byte
	for _, item := range items {
		if item.Matched {
			continue
		}
		line, err := json.Marshal(item)
		if err != nil {
			return fmt.Errorf("ingest: encode manifest entry: %w", err)
		}
		lines = append(lines, append(line, '\n')...)
	}
	if len(lines) == 0 {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("ingest: create manifest dir: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("ingest: open manifest %q: %w", path, err)
	}
	defer f.Close()
	if _, err := f.Write(lines); err != nil {
		return fmt.Errorf("ingest: write manifest: %w", err)
	}
	return nil
}
