// Package session orchestrates the recording lifecycle: start a recorder
// session for a calendar event, stop it and hand the result to processing,
// and report the current status. All state transitions happen under the
// runtime-state lock so concurrent invocations cannot race.
package session

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/MrWong99/meetingctl/internal/calendar"
	"github.com/MrWong99/meetingctl/internal/state"
	"github.com/MrWong99/meetingctl/pkg/provider/recorder"
)

// AlreadyRecordingError reports a start attempt while a session is active.
type AlreadyRecordingError struct {
	MeetingID string
	Title     string
}

func (e *AlreadyRecordingError) Error() string {
	return fmt.Sprintf("session: already recording %q (%s), stop it first", e.Title, e.MeetingID)
}

// sessionNames maps a meeting platform to the recorder session capturing
// it. Platforms without an entry fall back to the system session.
var sessionNames = map[calendar.Platform]string{
	calendar.PlatformTeams: "Teams+Mic",
	calendar.PlatformZoom:  "Zoom+Mic",
	calendar.PlatformMeet:  "Browser+Mic",
	calendar.PlatformWebex: "Browser+Mic",
}

const fallbackSessionName = "System+Mic"

// SessionNameFor resolves the recorder session for a platform and reports
// whether the system fallback was used.
func SessionNameFor(platform calendar.Platform) (name string, fallbackUsed bool) {
	if name, ok := sessionNames[platform]; ok {
		return name, false
	}
	return fallbackSessionName, true
}

// StartInput identifies the meeting a new recording belongs to.
type StartInput struct {
	MeetingID string
	Title     string
	Platform  calendar.Platform
	NotePath  string
}

// StartResult is the outcome of a successful start.
type StartResult struct {
	Recording    bool   `json:"recording"`
	MeetingID    string `json:"meeting_id"`
	Title        string `json:"title"`
	Platform     string `json:"platform"`
	NotePath     string `json:"note_path"`
	SessionName  string `json:"session_name"`
	StartedAt    string `json:"started_at"`
	FallbackUsed bool   `json:"fallback_used,omitempty"`
}

// StopResult is the outcome of a stop. An idle stop succeeds with
// Recording=false and a warning instead of an error.
type StopResult struct {
	Recording           bool   `json:"recording"`
	MeetingID           string `json:"meeting_id,omitempty"`
	Title               string `json:"title,omitempty"`
	NotePath            string `json:"note_path,omitempty"`
	ProcessingTriggered bool   `json:"processing_triggered"`
	Warning             string `json:"warning,omitempty"`
}

// Status mirrors the persisted session plus the derived human duration.
// When Recording is false every other field is empty.
type Status struct {
	Recording     bool   `json:"recording"`
	MeetingID     string `json:"meeting_id,omitempty"`
	Title         string `json:"title,omitempty"`
	Platform      string `json:"platform,omitempty"`
	NotePath      string `json:"note_path,omitempty"`
	SessionName   string `json:"session_name,omitempty"`
	StartedAt     string `json:"started_at,omitempty"`
	DurationHuman string `json:"duration_human,omitempty"`
}

// ProcessTrigger receives the stopped session so the caller can enqueue
// post-processing. A trigger failure never reverses the stop.
type ProcessTrigger func(session state.Session) error

// Orchestrator drives the recording lifecycle against the runtime-state
// store and the recorder capability.
type Orchestrator struct {
	store    *state.Store
	recorder recorder.Provider
	now      func() time.Time
	logger   *slog.Logger
}

// Option is a functional option for configuring an [Orchestrator].
type Option func(*Orchestrator)

// WithClock overrides the time source, used by tests.
func WithClock(now func() time.Time) Option {
	return func(o *Orchestrator) { o.now = now }
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(o *Orchestrator) { o.logger = logger }
}

// NewOrchestrator wires an Orchestrator.
func NewOrchestrator(store *state.Store, rec recorder.Provider, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		store:    store,
		recorder: rec,
		now:      time.Now,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Start begins a recording for the given meeting. It fails with
// [AlreadyRecordingError] when a session is active, and leaves no state
// behind when the recorder refuses to start.
func (o *Orchestrator) Start(ctx context.Context, in StartInput) (StartResult, error) {
	current, err := o.store.Load()
	if err != nil {
		return StartResult{}, err
	}
	if current != nil && current.Recording {
		return StartResult{}, &AlreadyRecordingError{MeetingID: current.MeetingID, Title: current.Title}
	}

	sessionName, fallbackUsed := SessionNameFor(in.Platform)
	if fallbackUsed {
		o.logger.Warn("no recorder session for platform, using system capture",
			"platform", in.Platform, "session_name", sessionName)
	}

	release, err := o.store.Lock()
	if err != nil {
		return StartResult{}, err
	}
	defer release()

	if err := o.recorder.Start(ctx, sessionName); err != nil {
		return StartResult{}, fmt.Errorf("session: start recorder: %w", err)
	}

	startedAt := o.now().Format(time.RFC3339)
	session := state.Session{
		Recording:   true,
		MeetingID:   in.MeetingID,
		Title:       in.Title,
		Platform:    string(in.Platform),
		NotePath:    in.NotePath,
		StartedAt:   startedAt,
		SessionName: sessionName,
	}
	if err := o.store.Write(session); err != nil {
		return StartResult{}, err
	}

	o.logger.Info("recording started",
		"meeting_id", in.MeetingID, "session_name", sessionName)
	return StartResult{
		Recording:    true,
		MeetingID:    in.MeetingID,
		Title:        in.Title,
		Platform:     string(in.Platform),
		NotePath:     in.NotePath,
		SessionName:  sessionName,
		StartedAt:    startedAt,
		FallbackUsed: fallbackUsed,
	}, nil
}

// EventResolver finds the meeting to record, typically
// calendar.Service.ResolveNowOrNext bound to a window.
type EventResolver func(ctx context.Context) (calendar.Resolution, error)

// NoteCreator materialises the meeting note for the resolved event and
// returns its identity, typically note.Service.CreateFromEvent.
type NoteCreator func(ev calendar.Event) (meetingID, notePath string, err error)

// StartFromEvent resolves the current meeting, creates its note and starts
// recording it. Callers wanting the calendar backend details should resolve
// first and call [Orchestrator.Start] themselves.
func (o *Orchestrator) StartFromEvent(ctx context.Context, resolve EventResolver, createNote NoteCreator) (StartResult, error) {
	resolution, err := resolve(ctx)
	if err != nil {
		return StartResult{}, err
	}
	meetingID, notePath, err := createNote(resolution.Event)
	if err != nil {
		return StartResult{}, err
	}
	return o.Start(ctx, StartInput{
		MeetingID: meetingID,
		Title:     resolution.Event.Title,
		Platform:  resolution.Event.Platform,
		NotePath:  notePath,
	})
}

// Stop ends the active recording, clears state and invokes trigger with the
// stopped session. Stopping while idle is not an error; the recorder is not
// consulted in that case.
func (o *Orchestrator) Stop(ctx context.Context, trigger ProcessTrigger) (StopResult, error) {
	current, err := o.store.Load()
	if err != nil {
		return StopResult{}, err
	}
	if current == nil || !current.Recording {
		return StopResult{Recording: false, Warning: "No active recording"}, nil
	}

	release, err := o.store.Lock()
	if err != nil {
		return StopResult{}, err
	}
	defer release()

	if err := o.recorder.Stop(ctx, current.SessionName); err != nil {
		return StopResult{}, fmt.Errorf("session: stop recorder: %w", err)
	}
	if err := o.store.Clear(); err != nil {
		return StopResult{}, err
	}

	result := StopResult{
		Recording: false,
		MeetingID: current.MeetingID,
		Title:     current.Title,
		NotePath:  current.NotePath,
	}
	if trigger != nil {
		if err := trigger(*current); err != nil {
			o.logger.Warn("processing trigger failed, recording stopped anyway",
				"meeting_id", current.MeetingID, "error", err)
			result.Warning = fmt.Sprintf("processing not triggered: %v", err)
		} else {
			result.ProcessingTriggered = true
		}
	}

	o.logger.Info("recording stopped", "meeting_id", current.MeetingID)
	return result, nil
}

// Status reports the current session. The duration is rendered as "Xm"
// below an hour and "Hh Mm" from there on, and is never negative.
func (o *Orchestrator) Status() (Status, error) {
	current, err := o.store.Load()
	if err != nil {
		return Status{}, err
	}
	if current == nil || !current.Recording {
		return Status{Recording: false}, nil
	}
	return Status{
		Recording:     true,
		MeetingID:     current.MeetingID,
		Title:         current.Title,
		Platform:      current.Platform,
		NotePath:      current.NotePath,
		SessionName:   current.SessionName,
		StartedAt:     current.StartedAt,
		DurationHuman: humanDuration(o.now().Sub(current.StartedTime())),
	}, nil
}

func humanDuration(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	minutes := int(d.Minutes())
	if minutes < 60 {
		return fmt.Sprintf("%dm", minutes)
	}
	return fmt.Sprintf("%dh %dm", minutes/60, minutes%60)
}
