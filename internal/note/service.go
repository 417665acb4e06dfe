package note

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/google/renameio/v2"

	"github.com/MrWong99/meetingctl/internal/calendar"
)

// Info identifies a created (or previewed) note.
type Info struct {
	MeetingID string `json:"meeting_id"`
	NotePath  string `json:"note_path"`
}

// Service creates meeting notes inside the vault's meetings directory.
type Service struct {
	meetingsDir  string
	templatePath string
	now          func() time.Time
}

// ServiceOption is a functional option for configuring a [Service].
type ServiceOption func(*Service)

// WithTemplatePath points the service at a vault-specific template file
// instead of the embedded default.
func WithTemplatePath(path string) ServiceOption {
	return func(s *Service) { s.templatePath = path }
}

// WithClock overrides the wall clock used for ad-hoc note start times.
func WithClock(now func() time.Time) ServiceOption {
	return func(s *Service) { s.now = now }
}

// NewService returns a note Service writing under meetingsDir.
func NewService(meetingsDir string, opts ...ServiceOption) *Service {
	s := &Service{
		meetingsDir: meetingsDir,
		now:         time.Now,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Preview computes the meeting id and collision-safe note path for ev
// without writing anything.
func (s *Service) Preview(ev calendar.Event) (Info, error) {
	meetingID := MeetingID(ev.Title, ev.Start.Format(time.RFC3339))
	path, err := s.notePath(ev.Start, ev.Title, meetingID)
	if err != nil {
		return Info{}, err
	}
	return Info{MeetingID: meetingID, NotePath: path}, nil
}

// CreateFromEvent renders and writes a meeting note for ev, returning its
// identity. The filename uses the event start in the local timezone; the
// path gains a " (n)" suffix when a file already occupies it.
func (s *Service) CreateFromEvent(ev calendar.Event) (Info, error) {
	info, err := s.Preview(ev)
	if err != nil {
		return Info{}, err
	}
	return s.write(info, ev)
}

// CreateAdhoc writes a note for a meeting that has no calendar event. The
// event window is start..start+30m and the calendar name is "Ad Hoc".
func (s *Service) CreateAdhoc(title string, platform calendar.Platform, start time.Time) (Info, error) {
	if start.IsZero() {
		start = s.now()
	}
	ev := calendar.Event{
		Title:        title,
		Start:        start,
		End:          start.Add(30 * time.Minute),
		CalendarName: "Ad Hoc",
		Platform:     platform,
	}
	return s.CreateFromEvent(ev)
}

// CreateForRecording writes a backfill note for a stray recording, deriving
// a readable title from the file stem and using the inferred start time.
func (s *Service) CreateForRecording(recordingPath string, start time.Time) (Info, error) {
	return s.CreateAdhoc(TitleFromRecording(recordingPath), calendar.PlatformSystem, start)
}

// TitleFromRecording derives a human-readable ad-hoc title from a recording
// filename by replacing separators with spaces.
func TitleFromRecording(recordingPath string) string {
	stem := strings.TrimSuffix(filepath.Base(recordingPath), filepath.Ext(recordingPath))
	stem = strings.NewReplacer("_", " ", "-", " ").Replace(stem)
	stem = strings.TrimSpace(stem)
	if stem == "" {
		return "Backfill Meeting"
	}
	return stem
}

func (s *Service) notePath(start time.Time, title, meetingID string) (string, error) {
	if err := os.MkdirAll(s.meetingsDir, 0o755); err != nil {
		return "", fmt.Errorf("note: create meetings dir: %w", err)
	}
	filename := BuildNoteFilename(start.In(time.Local), title, meetingID)
	return EnsureCollisionSafePath(filepath.Join(s.meetingsDir, filename)), nil
}

func (s *Service) write(info Info, ev calendar.Event) (Info, error) {
	values := map[string]string{
		"meeting_id":        info.MeetingID,
		"title":             ev.Title,
		"start_iso":         ev.Start.Format(time.RFC3339),
		"end_iso":           ev.End.Format(time.RFC3339),
		"calendar_name":     ev.CalendarName,
		"platform":          string(ev.Platform),
		"join_url":          ev.JoinURL,
		"recording_wav_rel": "",
		"start_human":       ev.Start.In(time.Local).Format("2006-01-02 15:04"),
		"end_human":         ev.End.In(time.Local).Format("2006-01-02 15:04"),
	}

	var rendered string
	if s.templatePath != "" {
		var err error
		rendered, err = RenderTemplateFile(s.templatePath, values)
		if err != nil {
			return Info{}, err
		}
	} else {
		rendered = RenderTemplate(values)
	}

	if err := renameio.WriteFile(info.NotePath, []byte(rendered), 0o644); err != nil {
		return Info{}, fmt.Errorf("note: write %q: %w", info.NotePath, err)
	}
	return info, nil
}

// timestampPatterns recognise start times embedded in recording filenames.
// The voice-memo form carries seconds; the compact form does not.
var (
	voiceMemoStampPattern = regexp.MustCompile(`(\d{8})[ _-](\d{6})`)
	compactStampPattern   = regexp.MustCompile(`(\d{8})[_-](\d{4})`)
)

// TimeSource names where an inferred recording start time came from.
type TimeSource string

const (
	TimeSourceVoiceMemo TimeSource = "voicememo_filename"
	TimeSourceFilename  TimeSource = "filename"
	TimeSourceBirthtime TimeSource = "birthtime"
	TimeSourceMtime     TimeSource = "mtime"
)

// InferRecordingStart determines when the recording at path started.
// Resolution order: voice-memo stamp in the stem (voiceMemoLoc), compact
// stamp (filenameLoc), file birthtime, file mtime.
func InferRecordingStart(path string, filenameLoc, voiceMemoLoc *time.Location) (time.Time, TimeSource, error) {
	stem := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))

	if m := voiceMemoStampPattern.FindStringSubmatch(stem); m != nil {
		if t, err := time.ParseInLocation("20060102150405", m[1]+m[2], voiceMemoLoc); err == nil {
			return t, TimeSourceVoiceMemo, nil
		}
	}
	if m := compactStampPattern.FindStringSubmatch(stem); m != nil {
		if t, err := time.ParseInLocation("200601021504", m[1]+m[2], filenameLoc); err == nil {
			return t, TimeSourceFilename, nil
		}
	}

	fi, err := os.Stat(path)
	if err != nil {
		return time.Time{}, "", fmt.Errorf("note: stat %q: %w", path, err)
	}
	if birth, ok := birthtime(fi); ok {
		return birth, TimeSourceBirthtime, nil
	}
	return fi.ModTime(), TimeSourceMtime, nil
}
