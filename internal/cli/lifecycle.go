package cli

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/MrWong99/meetingctl/internal/calendar"
	"github.com/MrWong99/meetingctl/internal/config"
	"github.com/MrWong99/meetingctl/internal/note"
	"github.com/MrWong99/meetingctl/internal/queue"
	"github.com/MrWong99/meetingctl/internal/session"
	"github.com/MrWong99/meetingctl/internal/state"
)

func (a *App) newOrchestrator(cfg *config.Config) (*session.Orchestrator, error) {
	now, err := config.Now(a.getenv)
	if err != nil {
		return nil, err
	}
	store := state.NewStore(cfg.StateFile)
	return session.NewOrchestrator(store, a.newRecorder(),
		session.WithClock(func() time.Time { return now }),
		session.WithLogger(a.logger),
	), nil
}

func newStartCommand(app *App) *cobra.Command {
	var (
		title    string
		notePath string
	)
	cmd := &cobra.Command{
		Use:   "start",
		Short: "Start recording the current or next meeting",
		Long: `Resolve the ongoing or imminent calendar event, create its meeting note
and start the recorder session for its platform. With --title an ad-hoc
meeting is recorded without consulting the calendar; --note-path skips
note creation and records against an existing note.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := app.Config()
			if err != nil {
				return err
			}
			orchestrator, err := app.newOrchestrator(cfg)
			if err != nil {
				return err
			}
			now, err := config.Now(app.getenv)
			if err != nil {
				return err
			}
			notes := note.NewService(cfg.MeetingsDir())

			var result session.StartResult
			switch {
			case notePath != "":
				meetingID := note.MeetingIDFromPath(notePath)
				if meetingID == "" {
					return fmt.Errorf("cli: no m-<hex> meeting id in %q", notePath)
				}
				result, err = orchestrator.Start(cmd.Context(), session.StartInput{
					MeetingID: meetingID,
					Title:     title,
					Platform:  calendar.PlatformSystem,
					NotePath:  notePath,
				})
			case title != "":
				info, createErr := notes.CreateAdhoc(title, calendar.PlatformSystem, now)
				if createErr != nil {
					return createErr
				}
				result, err = orchestrator.Start(cmd.Context(), session.StartInput{
					MeetingID: info.MeetingID,
					Title:     title,
					Platform:  calendar.PlatformSystem,
					NotePath:  info.NotePath,
				})
			default:
				window := time.Duration(cfg.StartWindowMinutes) * time.Minute
				svc := calendar.NewService(calendar.WithLogger(app.logger))
				result, err = orchestrator.StartFromEvent(cmd.Context(),
					func(ctx context.Context) (calendar.Resolution, error) {
						return svc.ResolveNowOrNext(ctx, now, window)
					},
					func(ev calendar.Event) (string, string, error) {
						info, createErr := notes.CreateFromEvent(ev)
						return info.MeetingID, info.NotePath, createErr
					})
			}
			if err != nil {
				return err
			}
			return app.emit(result, func(w io.Writer) {
				fmt.Fprintf(w, "Recording %q via %s\n", result.Title, result.SessionName)
				fmt.Fprintf(w, "Note: %s\n", result.NotePath)
				if result.FallbackUsed {
					fmt.Fprintln(w, "No dedicated session for this platform, capturing system audio.")
				}
			})
		},
	}
	cmd.Flags().StringVar(&title, "title", "", "record an ad-hoc meeting under this title")
	cmd.Flags().StringVar(&notePath, "note-path", "", "record against an existing note instead of creating one")
	return cmd
}

func newStopCommand(app *App) *cobra.Command {
	var noProcess bool
	cmd := &cobra.Command{
		Use:   "stop",
		Short: "Stop the active recording and queue it for processing",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := app.Config()
			if err != nil {
				return err
			}
			orchestrator, err := app.newOrchestrator(cfg)
			if err != nil {
				return err
			}

			var trigger session.ProcessTrigger
			if !noProcess {
				trigger = func(s state.Session) error {
					return queue.Enqueue(cfg.QueueFile, queue.Job{
						MeetingID: s.MeetingID,
						NotePath:  s.NotePath,
					})
				}
			}
			result, err := orchestrator.Stop(cmd.Context(), trigger)
			if err != nil {
				return err
			}
			return app.emit(result, func(w io.Writer) {
				if result.Warning != "" {
					fmt.Fprintln(w, result.Warning)
				}
				if result.MeetingID != "" {
					fmt.Fprintf(w, "Stopped recording %q\n", result.Title)
				}
				if result.ProcessingTriggered {
					fmt.Fprintln(w, "Queued for processing; run `meetingctl process-queue` to transcribe.")
				}
			})
		},
	}
	cmd.Flags().BoolVar(&noProcess, "no-process", false, "stop without queueing the recording for processing")
	return cmd
}

func newStatusCommand(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show whether a recording is active",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			cfg, err := app.Config()
			if err != nil {
				return err
			}
			orchestrator, err := app.newOrchestrator(cfg)
			if err != nil {
				return err
			}
			status, err := orchestrator.Status()
			if err != nil {
				return err
			}
			return app.emit(status, func(w io.Writer) {
				if !status.Recording {
					fmt.Fprintln(w, "Not recording.")
					return
				}
				fmt.Fprintf(w, "Recording %q for %s (session %s)\n",
					status.Title, status.DurationHuman, status.SessionName)
				fmt.Fprintf(w, "Note: %s\n", status.NotePath)
			})
		},
	}
}
