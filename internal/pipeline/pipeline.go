// Package pipeline runs the per-job post-processing: transcribe the
// recording, summarize the transcript, patch the meeting note and re-encode
// the audio. Every step is idempotent so a crashed or re-queued job can be
// replayed safely.
package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/MrWong99/meetingctl/internal/note"
	"github.com/MrWong99/meetingctl/internal/observe"
	"github.com/MrWong99/meetingctl/internal/queue"
	"github.com/MrWong99/meetingctl/pkg/provider/converter"
	"github.com/MrWong99/meetingctl/pkg/provider/summarizer"
	"github.com/MrWong99/meetingctl/pkg/provider/transcriber"
)

// InvalidPathError reports a job path outside its configured root.
type InvalidPathError struct {
	Path string
	Root string
}

func (e *InvalidPathError) Error() string {
	return fmt.Sprintf("pipeline: path %q escapes root %q", e.Path, e.Root)
}

// MissingInputError reports that no audio input exists for a job.
type MissingInputError struct {
	MeetingID string
	Tried     []string
}

func (e *MissingInputError) Error() string {
	return fmt.Sprintf("pipeline: no audio input for %s (tried %s)",
		e.MeetingID, strings.Join(e.Tried, ", "))
}

// Result is the processed-jobs log record for one job.
type Result struct {
	MeetingID        string `json:"meeting_id"`
	NotePath         string `json:"note_path"`
	TranscriptPath   string `json:"transcript_path"`
	AudioPath        string `json:"audio_path"`
	ReusedTranscript bool   `json:"reused_transcript"`
	ReusedSummary    bool   `json:"reused_summary"`
}

// Runner executes jobs against the injected capabilities.
type Runner struct {
	vaultRoot         string
	recordingsRoot    string
	processedJobsFile string

	transcriber transcriber.Provider
	summarizer  summarizer.Provider
	converter   converter.Provider

	metrics *observe.Metrics
	logger  *slog.Logger
}

// RunnerOption is a functional option for configuring a [Runner].
type RunnerOption func(*Runner)

// WithMetrics overrides the metrics instance.
func WithMetrics(m *observe.Metrics) RunnerOption {
	return func(r *Runner) { r.metrics = m }
}

// WithLogger sets the logger for per-stage diagnostics.
func WithLogger(logger *slog.Logger) RunnerOption {
	return func(r *Runner) { r.logger = logger }
}

// NewRunner wires a Runner. vaultRoot and recordingsRoot bound the paths a
// job may reference; processedJobsFile receives one JSON line per success.
func NewRunner(
	vaultRoot, recordingsRoot, processedJobsFile string,
	t transcriber.Provider,
	s summarizer.Provider,
	c converter.Provider,
	opts ...RunnerOption,
) *Runner {
	r := &Runner{
		vaultRoot:         vaultRoot,
		recordingsRoot:    recordingsRoot,
		processedJobsFile: processedJobsFile,
		transcriber:       t,
		summarizer:        s,
		converter:         c,
		metrics:           observe.DefaultMetrics(),
		logger:            slog.Default(),
	}
	for _, o := range opts {
		o(r)
	}
	return r
}

// keepAsIsExtensions name audio formats that already are the canonical
// archived artifact and skip the MP3 re-encode.
var keepAsIsExtensions = map[string]bool{
	".m4a": true,
	".mp3": true,
}

// Run processes one job end to end and appends the result record to the
// processed-jobs log.
func (r *Runner) Run(ctx context.Context, job queue.Job) (Result, error) {
	if err := withinRoot(job.NotePath, r.vaultRoot); err != nil {
		return Result{}, err
	}
	if job.WAVPath != "" {
		if err := withinRoot(job.WAVPath, r.recordingsRoot); err != nil {
			return Result{}, err
		}
	}

	audioPath, err := r.resolveAudio(job)
	if err != nil {
		return Result{}, err
	}

	transcriptPath := strings.TrimSuffix(audioPath, filepath.Ext(audioPath)) + ".txt"
	reusedTranscript, err := r.ensureTranscript(ctx, audioPath, transcriptPath)
	if err != nil {
		return Result{}, err
	}

	summary, err := r.summarizeTranscript(ctx, transcriptPath)
	if err != nil {
		return Result{}, err
	}

	if _, err := note.PatchFile(job.NotePath, summaryRegions(summary), false); err != nil {
		return Result{}, err
	}

	finalAudio, err := r.archiveAudio(ctx, audioPath)
	if err != nil {
		return Result{}, err
	}

	if err := r.patchArtifacts(job.NotePath, transcriptPath, finalAudio); err != nil {
		return Result{}, err
	}

	result := Result{
		MeetingID:        job.MeetingID,
		NotePath:         job.NotePath,
		TranscriptPath:   transcriptPath,
		AudioPath:        finalAudio,
		ReusedTranscript: reusedTranscript,
		ReusedSummary:    summary.Reused,
	}
	if err := r.appendResult(result); err != nil {
		return Result{}, err
	}
	r.metrics.JobsProcessed.Add(ctx, 1)
	r.logger.Info("job processed",
		"meeting_id", job.MeetingID,
		"reused_transcript", reusedTranscript,
		"reused_summary", summary.Reused)
	return result, nil
}

// resolveAudio finds the job's audio input: an explicit wav_path must
// exist; otherwise <recordings>/<meeting_id> with a known extension.
func (r *Runner) resolveAudio(job queue.Job) (string, error) {
	if job.WAVPath != "" {
		if _, err := os.Stat(job.WAVPath); err != nil {
			return "", &MissingInputError{MeetingID: job.MeetingID, Tried: []string{job.WAVPath}}
		}
		return job.WAVPath, nil
	}
	var tried []string
	for _, ext := range []string{".wav", ".m4a"} {
		candidate := filepath.Join(r.recordingsRoot, job.MeetingID+ext)
		if _, err := os.Stat(candidate); err == nil {
			return candidate, nil
		}
		tried = append(tried, candidate)
	}
	return "", &MissingInputError{MeetingID: job.MeetingID, Tried: tried}
}

// ensureTranscript reuses an existing non-empty transcript or runs the
// transcriber.
func (r *Runner) ensureTranscript(ctx context.Context, audioPath, transcriptPath string) (reused bool, err error) {
	if fi, statErr := os.Stat(transcriptPath); statErr == nil && fi.Size() > 0 {
		r.logger.Debug("reusing transcript", "transcript", transcriptPath)
		return true, nil
	}
	started := time.Now()
	if err := r.transcriber.Transcribe(ctx, audioPath, transcriptPath); err != nil {
		return false, err
	}
	r.metrics.TranscribeDuration.Record(ctx, time.Since(started).Seconds())
	return false, nil
}

func (r *Runner) summarizeTranscript(ctx context.Context, transcriptPath string) (summarizer.Summary, error) {
	raw, err := os.ReadFile(transcriptPath)
	if err != nil {
		return summarizer.Summary{}, fmt.Errorf("pipeline: read transcript %q: %w", transcriptPath, err)
	}
	started := time.Now()
	summary, err := r.summarizer.Summarize(ctx, string(raw))
	if err != nil {
		return summarizer.Summary{}, err
	}
	r.metrics.SummarizeDuration.Record(ctx, time.Since(started).Seconds())
	return summary, nil
}

// archiveAudio re-encodes to MP3 unless the input extension already is a
// canonical artifact. Returns the surviving audio path.
func (r *Runner) archiveAudio(ctx context.Context, audioPath string) (string, error) {
	ext := strings.ToLower(filepath.Ext(audioPath))
	if keepAsIsExtensions[ext] {
		return audioPath, nil
	}
	mp3Path := strings.TrimSuffix(audioPath, filepath.Ext(audioPath)) + ".mp3"
	if _, err := os.Stat(mp3Path); err == nil {
		if _, statErr := os.Stat(audioPath); statErr != nil {
			// Source already gone, conversion finished in a prior run.
			return mp3Path, nil
		}
	}
	started := time.Now()
	if err := r.converter.Convert(ctx, audioPath, mp3Path); err != nil {
		return "", err
	}
	r.metrics.ConvertDuration.Record(ctx, time.Since(started).Seconds())
	return mp3Path, nil
}

// summaryRegions renders the three summary regions. Lists become "- "
// bullets, action items checkboxes, empty lists the pending marker.
func summaryRegions(summary summarizer.Summary) map[note.Region]string {
	return map[note.Region]string{
		note.RegionMinutes:     summary.Minutes,
		note.RegionDecisions:   renderList(summary.Decisions, "- "),
		note.RegionActionItems: renderList(summary.ActionItems, "- [ ] "),
	}
}

const pendingMarker = "> _Pending_"

func renderList(items []string, prefix string) string {
	if len(items) == 0 {
		return pendingMarker
	}
	lines := make([]string, len(items))
	for i, item := range items {
		lines[i] = prefix + item
	}
	return strings.Join(lines, "\n")
}

// patchArtifacts writes the transcript region (fenced) and, when the note
// carries one, the references region listing artifact paths plus a status
// line.
func (r *Runner) patchArtifacts(notePath, transcriptPath, audioPath string) error {
	raw, err := os.ReadFile(notePath)
	if err != nil {
		return fmt.Errorf("pipeline: read note %q: %w", notePath, err)
	}

	transcriptText, err := os.ReadFile(transcriptPath)
	if err != nil {
		return fmt.Errorf("pipeline: read transcript %q: %w", transcriptPath, err)
	}

	updates := map[note.Region]string{
		note.RegionTranscript: "```\n" + strings.TrimRight(string(transcriptText), "\n") + "\n```",
	}
	if note.HasRegion(string(raw), note.RegionReferences) {
		updates[note.RegionReferences] = referencesBlock(transcriptPath, audioPath)
	}
	_, err = note.PatchFile(notePath, updates, false)
	return err
}

// referencesBlock lists the artifact paths and closes with the status
// line. The status is partial when the audio survived un-re-encoded as
// something other than MP3.
func referencesBlock(transcriptPath, audioPath string) string {
	status := "complete"
	if strings.ToLower(filepath.Ext(audioPath)) != ".mp3" {
		status = "partial"
	}
	return strings.Join([]string{
		"- transcript_path: " + transcriptPath,
		"- audio_path: " + audioPath,
		"- status: " + status,
	}, "\n")
}

// appendResult writes one JSONL record to the processed-jobs log.
func (r *Runner) appendResult(result Result) error {
	if err := os.MkdirAll(filepath.Dir(r.processedJobsFile), 0o755); err != nil {
		return fmt.Errorf("pipeline: create log dir: %w", err)
	}
	line, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("pipeline: encode result: %w", err)
	}
	f, err := os.OpenFile(r.processedJobsFile, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("pipeline: open %q: %w", r.processedJobsFile, err)
	}
	defer f.Close()
	if _, err := f.Write(append(line, '\n')); err != nil {
		return fmt.Errorf("pipeline: append result: %w", err)
	}
	return nil
}

// withinRoot rejects paths escaping root after lexical cleaning.
func withinRoot(path, root string) error {
	if !filepath.IsAbs(path) || !filepath.IsAbs(root) {
		return &InvalidPathError{Path: path, Root: root}
	}
	rel, err := filepath.Rel(root, filepath.Clean(path))
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return &InvalidPathError{Path: path, Root: root}
	}
	return nil
}
