package ingest

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"golang.org/x/sync/errgroup"

	"github.com/MrWong99/meetingctl/internal/config"
	"github.com/MrWong99/meetingctl/internal/note"
	"github.com/MrWong99/meetingctl/internal/observe"
	"github.com/MrWong99/meetingctl/internal/queue"
)

// PollStats describes one scan of the recordings root.
type PollStats struct {
	DiscoveredAudio        int `json:"discovered_audio"`
	DiscoveredWAV          int `json:"discovered_wav"`
	QueuedJobs             int `json:"queued_jobs"`
	SkippedAlreadyIngested int `json:"skipped_already_ingested"`
	SkippedTooNew          int `json:"skipped_too_new"`
}

// WatchReport is the aggregate over a watcher run.
type WatchReport struct {
	Polls      int       `json:"polls"`
	QueuedJobs int       `json:"queued_jobs"`
	FailedJobs int       `json:"failed_jobs"`
	LastPoll   PollStats `json:"last_poll"`
}

// WatchOptions control one watcher run.
type WatchOptions struct {
	// Interval between scans. Default 30s.
	Interval time.Duration

	// MinAge skips files modified more recently than this, so half-written
	// recordings are not ingested. Default 60s.
	MinAge time.Duration

	// Extensions filters discovery; defaults to [DefaultExtensions].
	Extensions []string

	// Once performs a single scan and returns.
	Once bool

	// MaxPolls stops after that many scans. Zero means unbounded.
	MaxPolls int

	// MetricsAddr, when set, serves the Prometheus scrape endpoint on
	// <addr>/metrics for the lifetime of the run.
	MetricsAddr string
}

// ingestedRecord is one line of the ingested-files log.
type ingestedRecord struct {
	Path       string `json:"path"`
	IngestedAt string `json:"ingested_at"`
}

// Watcher scans the recordings root and promotes settled recordings into
// the job queue. Deduplication is by absolute path, persisted in the
// ingested-files log so restarts do not re-queue old recordings.
type Watcher struct {
	cfg     *config.Config
	notes   *note.Service
	metrics *observe.Metrics
	logger  *slog.Logger
	now     func() time.Time
}

// WatcherOption is a functional option for configuring a [Watcher].
type WatcherOption func(*Watcher)

// WithWatcherMetrics overrides the metrics instance.
func WithWatcherMetrics(m *observe.Metrics) WatcherOption {
	return func(w *Watcher) { w.metrics = m }
}

// WithWatcherLogger sets the logger.
func WithWatcherLogger(logger *slog.Logger) WatcherOption {
	return func(w *Watcher) { w.logger = logger }
}

// WithWatcherClock overrides the time source, used by tests.
func WithWatcherClock(now func() time.Time) WatcherOption {
	return func(w *Watcher) { w.now = now }
}

// NewWatcher wires a Watcher.
func NewWatcher(cfg *config.Config, notes *note.Service, opts ...WatcherOption) *Watcher {
	w := &Watcher{
		cfg:     cfg,
		notes:   notes,
		metrics: observe.DefaultMetrics(),
		logger:  slog.Default(),
		now:     time.Now,
	}
	for _, o := range opts {
		o(w)
	}
	return w
}

// Run polls until the context is cancelled or the poll budget is spent. A
// filesystem event on the recordings root wakes the next scan early.
func (w *Watcher) Run(ctx context.Context, opts WatchOptions) (WatchReport, error) {
	if opts.Interval <= 0 {
		opts.Interval = 30 * time.Second
	}
	if opts.MinAge <= 0 {
		opts.MinAge = 60 * time.Second
	}
	if opts.Once {
		opts.MaxPolls = 1
	}

	ingested, err := w.loadIngested()
	if err != nil {
		return WatchReport{}, err
	}

	group, ctx := errgroup.WithContext(ctx)
	if opts.MetricsAddr != "" {
		if err := w.serveMetrics(ctx, group, opts.MetricsAddr); err != nil {
			return WatchReport{}, err
		}
	}

	wake := make(chan struct{}, 1)
	fsWatcher, err := fsnotify.NewWatcher()
	if err == nil {
		defer fsWatcher.Close()
		if err := fsWatcher.Add(w.cfg.RecordingsPath); err != nil {
			w.logger.Warn("recordings root not watchable, polling only", "error", err)
		} else {
			group.Go(func() error {
				for {
					select {
					case <-ctx.Done():
						return nil
					case _, ok := <-fsWatcher.Events:
						if !ok {
							return nil
						}
						select {
						case wake <- struct{}{}:
						default:
						}
					case _, ok := <-fsWatcher.Errors:
						if !ok {
							return nil
						}
					}
				}
			})
		}
	} else {
		w.logger.Warn("fsnotify unavailable, polling only", "error", err)
	}

	report := WatchReport{}
	var runErr error
	group.Go(func() error {
		for {
			stats, failed := w.poll(ctx, opts, ingested)
			report.Polls++
			report.QueuedJobs += stats.QueuedJobs
			report.FailedJobs += failed
			report.LastPoll = stats

			if opts.MaxPolls > 0 && report.Polls >= opts.MaxPolls {
				return errPollBudgetSpent
			}
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(opts.Interval):
			case <-wake:
			}
		}
	})

	if err := group.Wait(); err != nil && !errors.Is(err, errPollBudgetSpent) {
		runErr = err
	}
	return report, runErr
}

// errPollBudgetSpent unwinds the errgroup once MaxPolls is reached; it is
// never surfaced to callers.
var errPollBudgetSpent = errors.New("ingest: poll budget spent")

func (w *Watcher) serveMetrics(ctx context.Context, group *errgroup.Group, addr string) error {
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("ingest: listen on %q: %w", addr, err)
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", observe.MetricsHandler())
	server := &http.Server{Handler: mux}

	group.Go(func() error {
		if err := server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	group.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})
	return nil
}

// poll scans once and queues every settled, unseen recording.
func (w *Watcher) poll(ctx context.Context, opts WatchOptions, ingested map[string]bool) (PollStats, int) {
	stats := PollStats{}
	failed := 0
	extensions := opts.Extensions
	if len(extensions) == 0 {
		extensions = DefaultExtensions
	}
	wanted := make(map[string]bool, len(extensions))
	for _, ext := range extensions {
		wanted["."+strings.ToLower(strings.TrimPrefix(ext, "."))] = true
	}

	now := w.now()
	err := filepath.WalkDir(w.cfg.RecordingsPath, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if d.IsDir() {
			return nil
		}
		ext := strings.ToLower(filepath.Ext(path))
		if !wanted[ext] {
			return nil
		}
		stats.DiscoveredAudio++
		if ext == ".wav" {
			stats.DiscoveredWAV++
		}

		abs, err := filepath.Abs(path)
		if err != nil {
			return nil
		}
		if ingested[abs] {
			stats.SkippedAlreadyIngested++
			return nil
		}
		fi, err := d.Info()
		if err != nil {
			return nil
		}
		if now.Sub(fi.ModTime()) < opts.MinAge {
			stats.SkippedTooNew++
			return nil
		}

		if err := w.ingestFile(abs); err != nil {
			w.logger.Warn("ingest failed", "file", abs, "error", err)
			failed++
			return nil
		}
		ingested[abs] = true
		stats.QueuedJobs++
		w.metrics.FilesIngested.Add(ctx, 1)
		return nil
	})
	if err != nil && !errors.Is(err, context.Canceled) {
		w.logger.Warn("scan failed", "error", err)
	}
	return stats, failed
}

// ingestFile creates the backfill note, enqueues the job and records the
// file in the ingested-files log.
func (w *Watcher) ingestFile(path string) error {
	start, _, err := note.InferRecordingStart(path,
		w.cfg.RecordingFilenameLocation, w.cfg.VoiceMemoFilenameLocation)
	if err != nil {
		return err
	}
	info, err := w.notes.CreateForRecording(path, start)
	if err != nil {
		return err
	}
	job := queue.Job{MeetingID: info.MeetingID, NotePath: info.NotePath, WAVPath: path}
	if err := queue.Enqueue(w.cfg.QueueFile, job); err != nil {
		return err
	}
	if err := w.appendIngested(path); err != nil {
		return err
	}
	w.logger.Info("recording ingested", "file", path, "meeting_id", info.MeetingID)
	return nil
}

// loadIngested reads the dedup set from the ingested-files log.
func (w *Watcher) loadIngested() (map[string]bool, error) {
	ingested := map[string]bool{}
	f, err := os.Open(w.cfg.IngestedFilesFile)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return ingested, nil
		}
		return nil, fmt.Errorf("ingest: open log %q: %w", w.cfg.IngestedFilesFile, err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		var record ingestedRecord
		if err := json.Unmarshal([]byte(line), &record); err != nil {
			continue
		}
		ingested[record.Path] = true
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("ingest: read log %q: %w", w.cfg.IngestedFilesFile, err)
	}
	return ingested, nil
}

func (w *Watcher) appendIngested(path string) error {
	record := ingestedRecord{Path: path, IngestedAt: w.now().Format(time.RFC3339)}
	line, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("ingest: encode log record: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(w.cfg.IngestedFilesFile), 0o755); err != nil {
		return fmt.Errorf("ingest: create log dir: %w", err)
	}
	f, err := os.OpenFile(w.cfg.IngestedFilesFile, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("ingest: open log %q: %w", w.cfg.IngestedFilesFile, err)
	}
	defer f.Close()
	if _, err := f.Write(append(line, '\n')); err != nil {
		return fmt.Errorf("ingest: append log: %w", err)
	}
	return nil
}
