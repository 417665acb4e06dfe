// Package cli implements the meetingctl command surface. Every subcommand
// supports --json, emitting exactly one JSON object on stdout; human output
// goes to stdout too, diagnostics to stderr via slog.
//
// Exit codes: 0 for success (including a benign idle stop), 1 when a start
// precondition fails, 2 for structured errors such as calendar resolution,
// queue-lock contention, or config problems.
package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/MrWong99/meetingctl/internal/calendar"
	"github.com/MrWong99/meetingctl/internal/config"
	"github.com/MrWong99/meetingctl/internal/observe"
	"github.com/MrWong99/meetingctl/internal/queue"
	"github.com/MrWong99/meetingctl/internal/session"
	"github.com/MrWong99/meetingctl/internal/state"
)

// Exit codes for the CLI contract.
const (
	ExitOK                 = 0
	ExitPreconditionFailed = 1
	ExitStructuredError    = 2
)

// App carries everything a subcommand needs. The configuration loads
// lazily on first use so `meetingctl --help` works without VAULT_PATH set.
type App struct {
	stdin  io.Reader
	stdout io.Writer
	getenv func(string) string
	logger *slog.Logger

	jsonOutput bool

	cfg *config.Config
}

// AppOption is a functional option for configuring an [App].
type AppOption func(*App)

// WithStdin redirects interactive input, used by tests.
func WithStdin(r io.Reader) AppOption {
	return func(a *App) { a.stdin = r }
}

// WithStdout redirects command output, used by tests.
func WithStdout(w io.Writer) AppOption {
	return func(a *App) { a.stdout = w }
}

// WithGetenv overrides environment lookup, used by tests.
func WithGetenv(getenv func(string) string) AppOption {
	return func(a *App) { a.getenv = getenv }
}

// WithConfig preloads the configuration, bypassing the environment.
func WithConfig(cfg *config.Config) AppOption {
	return func(a *App) { a.cfg = cfg }
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) AppOption {
	return func(a *App) { a.logger = logger }
}

// NewApp builds an App bound to the process environment by default.
func NewApp(opts ...AppOption) *App {
	a := &App{
		stdin:  os.Stdin,
		stdout: os.Stdout,
		getenv: os.Getenv,
		logger: slog.Default(),
	}
	for _, o := range opts {
		o(a)
	}
	return a
}

// Config loads and caches the configuration.
func (a *App) Config() (*config.Config, error) {
	if a.cfg != nil {
		return a.cfg, nil
	}
	cfg, err := config.LoadFromEnv(a.getenv)
	if err != nil {
		return nil, err
	}
	a.cfg = cfg
	return cfg, nil
}

// NewRootCommand assembles the full meetingctl command tree.
func NewRootCommand(app *App, version string) *cobra.Command {
	root := &cobra.Command{
		Use:           "meetingctl",
		Short:         "Record, transcribe and summarize meetings into your note vault",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().BoolVar(&app.jsonOutput, "json", false, "emit a single JSON object on stdout")

	root.AddCommand(
		newStartCommand(app),
		newStopCommand(app),
		newStatusCommand(app),
		newEventCommand(app),
		newDoctorCommand(app),
		newPatchNoteCommand(app),
		newProcessQueueCommand(app),
		newBackfillCommand(app),
		newIngestWatchCommand(app),
		newAuditNotesCommand(app),
	)
	return root
}

// Main is the real entry point: it loads .env, runs the command tree and
// maps errors to the exit-code contract.
func Main(version string) int {
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: logLevelFromEnv(os.Getenv),
	}))
	slog.SetDefault(logger)

	if err := config.LoadDotenv(); err != nil {
		logger.Error("dotenv load failed", "error", err)
		return ExitStructuredError
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdown, err := observe.InitProvider(ctx, observe.ProviderConfig{ServiceVersion: version})
	if err != nil {
		logger.Error("metrics init failed", "error", err)
		return ExitStructuredError
	}
	defer func() {
		if err := shutdown(context.Background()); err != nil {
			logger.Warn("metrics shutdown failed", "error", err)
		}
	}()

	app := NewApp(WithLogger(logger))
	root := NewRootCommand(app, version)
	if err := root.ExecuteContext(ctx); err != nil {
		return app.reportError(err)
	}
	return ExitOK
}

func logLevelFromEnv(getenv func(string) string) slog.Level {
	switch getenv("MEETINGCTL_LOG_LEVEL") {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// reportError prints the structured error payload and picks the exit code.
func (a *App) reportError(err error) int {
	code, payload := classifyError(err)
	if a.jsonOutput {
		if encodeErr := json.NewEncoder(a.stdout).Encode(payload); encodeErr != nil {
			fmt.Fprintln(os.Stderr, "meetingctl:", err)
		}
	} else {
		fmt.Fprintln(os.Stderr, "meetingctl:", err)
		if hint, ok := payload["hint"].(string); ok && hint != "" {
			fmt.Fprintln(os.Stderr, "hint:", hint)
		}
	}
	return code
}

func classifyError(err error) (int, map[string]any) {
	var already *session.AlreadyRecordingError
	if errors.As(err, &already) {
		return ExitPreconditionFailed, map[string]any{"error": already.Error()}
	}

	var resolution *calendar.ResolutionError
	if errors.As(err, &resolution) {
		payload := make(map[string]any, 3)
		for k, v := range resolution.Payload() {
			payload[k] = v
		}
		return ExitStructuredError, payload
	}

	payload := map[string]any{"error": err.Error()}
	var (
		stateLock *state.LockError
		queueLock *queue.LockError
	)
	switch {
	case errors.As(err, &stateLock):
		payload["hint"] = "Another meetingctl invocation holds the state lock; retry, or delete " + stateLock.LockPath + " if it is stale."
	case errors.As(err, &queueLock):
		payload["hint"] = "Another meetingctl invocation is processing the queue; retry later."
	}
	return ExitStructuredError, payload
}

// emit writes the command result: the JSON object with --json, otherwise
// the human rendering.
func (a *App) emit(result any, human func(w io.Writer)) error {
	if a.jsonOutput {
		enc := json.NewEncoder(a.stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(result)
	}
	human(a.stdout)
	return nil
}
