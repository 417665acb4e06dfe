package cli

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/MrWong99/meetingctl/internal/calendar"
	"github.com/MrWong99/meetingctl/internal/config"
	"github.com/MrWong99/meetingctl/internal/doctor"
	"github.com/MrWong99/meetingctl/internal/ingest"
	"github.com/MrWong99/meetingctl/internal/note"
	"github.com/MrWong99/meetingctl/internal/observe"
	"github.com/MrWong99/meetingctl/internal/queue"
)

func newEventCommand(app *App) *cobra.Command {
	var windowMinutes int
	cmd := &cobra.Command{
		Use:   "event",
		Short: "Show the current or next calendar event",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := app.Config()
			if err != nil {
				return err
			}
			now, err := config.Now(app.getenv)
			if err != nil {
				return err
			}
			if windowMinutes <= 0 {
				windowMinutes = cfg.StartWindowMinutes
			}

			svc := calendar.NewService(calendar.WithLogger(app.logger))
			resolution, err := svc.ResolveNowOrNext(cmd.Context(), now, time.Duration(windowMinutes)*time.Minute)
			if err != nil {
				return err
			}
			return app.emit(resolution, func(w io.Writer) {
				ev := resolution.Event
				fmt.Fprintf(w, "%s  %s - %s  [%s]\n", ev.Title,
					ev.Start.Local().Format("15:04"), ev.End.Local().Format("15:04"), ev.CalendarName)
				if ev.JoinURL != "" {
					fmt.Fprintf(w, "Join (%s): %s\n", ev.Platform, ev.JoinURL)
				}
				fmt.Fprintf(w, "Backend: %s", resolution.Backend)
				if resolution.FallbackUsed {
					fmt.Fprint(w, " (fallback)")
				}
				fmt.Fprintln(w)
			})
		},
	}
	cmd.Flags().IntVar(&windowMinutes, "window", 0, "upcoming-event window in minutes")
	return cmd
}

func newDoctorCommand(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Check that recording, calendar and processing preconditions hold",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			cfg, err := app.Config()
			if err != nil {
				return err
			}
			runner := doctor.NewRunner(cfg,
				doctor.WithGetenv(app.getenv),
				doctor.WithTranscriber(app.newTranscriber()),
				doctor.WithConverter(app.newConverter()),
			)
			report := runner.Run()
			return app.emit(report, func(w io.Writer) {
				for _, c := range report.Checks {
					mark := "[PASS]"
					if !c.OK {
						mark = "[FAIL]"
					}
					fmt.Fprintf(w, "%s %s: %s\n", mark, c.Name, c.Message)
					if !c.OK && c.Hint != "" {
						fmt.Fprintf(w, "       hint: %s\n", c.Hint)
					}
				}
				if report.OK {
					fmt.Fprintln(w, "All mandatory checks passed.")
				} else {
					fmt.Fprintln(w, "Some mandatory checks failed.")
				}
			})
		},
	}
}

func newPatchNoteCommand(app *App) *cobra.Command {
	var (
		regions []string
		dryRun  bool
	)
	cmd := &cobra.Command{
		Use:   "patch-note NOTE",
		Short: "Patch managed regions of a meeting note",
		Long: `Replace the content between sentinel markers of a meeting note. Each
--region takes "name=content"; known names are minutes, decisions,
action_items, transcript and references. Content may be read from a file
with "name=@path".`,
		Args: cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			updates := map[note.Region]string{}
			for _, spec := range regions {
				name, content, ok := strings.Cut(spec, "=")
				if !ok {
					return fmt.Errorf("cli: --region %q is not name=content", spec)
				}
				if after, isFile := strings.CutPrefix(content, "@"); isFile {
					raw, err := os.ReadFile(after)
					if err != nil {
						return fmt.Errorf("cli: read region content: %w", err)
					}
					content = string(raw)
				}
				updates[note.Region(name)] = content
			}
			if len(updates) == 0 {
				return fmt.Errorf("cli: at least one --region is required")
			}

			result, err := note.PatchFile(args[0], updates, dryRun)
			if err != nil {
				return err
			}
			return app.emit(result, func(w io.Writer) {
				if !result.Changed {
					fmt.Fprintln(w, "Nothing to change.")
					return
				}
				fmt.Fprintf(w, "Changed regions: %v\n", result.ChangedRegions)
				if !result.WritePerformed {
					fmt.Fprintln(w, "Dry run, file untouched.")
				}
			})
		},
	}
	cmd.Flags().StringArrayVar(&regions, "region", nil, `region update as "name=content" or "name=@file"`)
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "compute changes without writing")
	return cmd
}

func newAuditNotesCommand(app *App) *cobra.Command {
	var normalize bool
	cmd := &cobra.Command{
		Use:   "audit-notes",
		Short: "Find duplicate meeting ids and optionally normalize frontmatter",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			cfg, err := app.Config()
			if err != nil {
				return err
			}
			report, err := note.Audit(cfg.MeetingsDir(), normalize)
			if err != nil {
				return err
			}
			return app.emit(report, func(w io.Writer) {
				fmt.Fprintf(w, "%d notes, %d unique meeting ids, %d duplicated\n",
					report.DiscoveredNotes, report.UniqueMeetingIDs, report.DuplicateMeetingIDs)
				for _, dup := range report.Duplicates {
					fmt.Fprintf(w, "  %s:\n", dup.MeetingID)
					for _, p := range dup.NotePaths {
						fmt.Fprintf(w, "    %s\n", p)
					}
				}
				if normalize {
					fmt.Fprintf(w, "%d notes normalized\n", len(report.NormalizedNotes))
				}
			})
		},
	}
	cmd.Flags().BoolVar(&normalize, "normalize", false, "rewrite frontmatter to the canonical shape")
	return cmd
}

func newProcessQueueCommand(app *App) *cobra.Command {
	var (
		maxJobs     int
		failureMode string
	)
	cmd := &cobra.Command{
		Use:   "process-queue",
		Short: "Transcribe, summarize and patch notes for queued recordings",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := app.Config()
			if err != nil {
				return err
			}
			mode := queue.FailureMode(failureMode)
			if mode != queue.FailStop && mode != queue.FailDeadLetter {
				return fmt.Errorf("cli: --failure-mode must be %q or %q", queue.FailStop, queue.FailDeadLetter)
			}
			runner, _, err := app.newPipeline(cfg)
			if err != nil {
				return err
			}

			metrics := observe.DefaultMetrics()
			result, err := queue.ProcessJobs(cfg.QueueFile, func(job queue.Job) error {
				_, runErr := runner.Run(cmd.Context(), job)
				if runErr != nil {
					metrics.RecordJobFailure(cmd.Context(), string(mode))
				}
				return runErr
			}, maxJobs, mode, cfg.DeadLetterFile)
			if err != nil {
				return err
			}
			return app.emit(result, func(w io.Writer) {
				fmt.Fprintf(w, "%d processed, %d failed, %d remaining\n",
					result.ProcessedJobs, result.FailedJobs, result.RemainingJobs)
				if result.FailureReason != "" {
					fmt.Fprintf(w, "failure: %s\n", result.FailureReason)
				}
			})
		},
	}
	cmd.Flags().IntVar(&maxJobs, "max-jobs", 0, "process at most this many jobs (0 = all)")
	cmd.Flags().StringVar(&failureMode, "failure-mode", string(queue.FailStop),
		`what to do when a job fails: "stop" or "dead_letter"`)
	return cmd
}

func newBackfillCommand(app *App) *cobra.Command {
	var (
		extensions     []string
		files          []string
		matchCalendar  bool
		reviewCalendar bool
		rename         bool
		processNow     bool
		dryRun         bool
		manifest       string
	)
	cmd := &cobra.Command{
		Use:   "backfill",
		Short: "Create notes and queue processing for existing recordings",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := app.Config()
			if err != nil {
				return err
			}
			notes := note.NewService(cfg.MeetingsDir())

			opts := []ingest.BackfillerOption{ingest.WithBackfillLogger(app.logger)}
			if matchCalendar || reviewCalendar {
				opts = append(opts, ingest.WithCalendar(calendar.NewService(calendar.WithLogger(app.logger))))
			}
			// Prompts go to stderr so --json still emits exactly one
			// object on stdout.
			if reviewCalendar {
				opts = append(opts, ingest.WithReviewer(newTerminalReviewer(app.stdin, cmd.ErrOrStderr())))
			}
			if processNow {
				runner, transcr, pipeErr := app.newPipeline(cfg)
				if pipeErr != nil {
					return pipeErr
				}
				opts = append(opts, ingest.WithPipeline(runner, transcr))
			}

			b := ingest.NewBackfiller(cfg, notes, opts...)
			report, err := b.Run(cmd.Context(), ingest.BackfillOptions{
				Extensions:        extensions,
				Files:             files,
				MatchCalendar:     matchCalendar,
				ReviewCalendar:    reviewCalendar,
				Rename:            rename,
				ProcessNow:        processNow,
				DryRun:            dryRun,
				UnmatchedManifest: manifest,
			})
			if err != nil {
				return err
			}
			return app.emit(report, func(w io.Writer) {
				for _, item := range report.Items {
					fmt.Fprintf(w, "%-9s %s", item.Action, item.File)
					if item.EventTitle != "" {
						fmt.Fprintf(w, "  -> %q", item.EventTitle)
					}
					if item.Error != "" {
						fmt.Fprintf(w, "  (%s)", item.Error)
					}
					fmt.Fprintln(w)
				}
				fmt.Fprintf(w, "%d queued, %d processed, %d skipped, %d unmatched\n",
					report.Queued, report.Processed, report.Skipped, report.Unmatched)
			})
		},
	}
	cmd.Flags().StringSliceVar(&extensions, "extensions", nil, "recording extensions to consider (default wav)")
	cmd.Flags().StringArrayVar(&files, "file", nil, "restrict to explicit recording files")
	cmd.Flags().BoolVar(&matchCalendar, "match-calendar", false, "match recordings to nearby calendar events")
	cmd.Flags().BoolVar(&reviewCalendar, "review-calendar", false, "review calendar candidates interactively per recording")
	cmd.Flags().BoolVar(&rename, "rename", false, "rename matched recordings to <meeting_id>.<ext>")
	cmd.Flags().BoolVar(&processNow, "process-now", false, "run the pipeline inline instead of queueing")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "plan without creating notes or jobs")
	cmd.Flags().StringVar(&manifest, "unmatched-manifest", "", "append unmatched files to this JSONL manifest")
	return cmd
}

func newIngestWatchCommand(app *App) *cobra.Command {
	var (
		interval    time.Duration
		minAge      time.Duration
		once        bool
		maxPolls    int
		metricsAddr string
	)
	cmd := &cobra.Command{
		Use:   "ingest-watch",
		Short: "Watch the recordings directory and queue new recordings",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := app.Config()
			if err != nil {
				return err
			}
			w := ingest.NewWatcher(cfg, note.NewService(cfg.MeetingsDir()),
				ingest.WithWatcherLogger(app.logger))
			report, err := w.Run(cmd.Context(), ingest.WatchOptions{
				Interval:    interval,
				MinAge:      minAge,
				Once:        once,
				MaxPolls:    maxPolls,
				MetricsAddr: metricsAddr,
			})
			if err != nil {
				return err
			}
			return app.emit(report, func(out io.Writer) {
				fmt.Fprintf(out, "%d polls, %d queued, %d failed\n",
					report.Polls, report.QueuedJobs, report.FailedJobs)
			})
		},
	}
	cmd.Flags().DurationVar(&interval, "interval", 30*time.Second, "time between scans")
	cmd.Flags().DurationVar(&minAge, "min-age", time.Minute, "skip files modified more recently than this")
	cmd.Flags().BoolVar(&once, "once", false, "scan once and exit")
	cmd.Flags().IntVar(&maxPolls, "max-polls", 0, "stop after this many scans (0 = unbounded)")
	cmd.Flags().StringVar(&metricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address while watching")
	return cmd
}
