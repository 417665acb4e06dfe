// Package queue implements the on-disk JSONL job queue: append-only
// enqueue, an exclusive cross-process lock, atomic rewrites and a
// dead-letter file for jobs that keep failing.
package queue

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/renameio/v2"
)

// Job is one unit of post-recording work.
type Job struct {
	MeetingID string `json:"meeting_id"`
	NotePath  string `json:"note_path"`
	WAVPath   string `json:"wav_path,omitempty"`
}

// Validate checks the required fields.
func (j Job) Validate() error {
	if j.MeetingID == "" || j.NotePath == "" {
		return fmt.Errorf("queue: job requires meeting_id and note_path")
	}
	return nil
}

// LockError reports queue lock contention.
type LockError struct {
	LockPath string
}

func (e *LockError) Error() string {
	return "queue: lock already held: " + e.LockPath
}

// FailureMode selects what happens when a handler fails.
type FailureMode string

const (
	// FailStop halts the run; the failed job stays at the queue head.
	FailStop FailureMode = "stop"
	// FailDeadLetter moves the failed job to the dead-letter file and
	// continues with the rest of the queue.
	FailDeadLetter FailureMode = "dead_letter"
)

// Result summarises one ProcessJobs invocation.
type Result struct {
	ProcessedJobs int    `json:"processed_jobs"`
	FailedJobs    int    `json:"failed_jobs"`
	RemainingJobs int    `json:"remaining_jobs"`
	FailureReason string `json:"failure_reason,omitempty"`
}

// deadLetter is one line of the dead-letter file.
type deadLetter struct {
	FailedAt string          `json:"failed_at"`
	Error    string          `json:"error"`
	Payload  json.RawMessage `json:"payload"`
}

// Enqueue appends one job line to the queue file, creating it (and its
// directory) on first use. Line writes are atomic at JSONL granularity.
func Enqueue(queueFile string, job Job) error {
	if err := job.Validate(); err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(queueFile), 0o755); err != nil {
		return fmt.Errorf("queue: create queue dir: %w", err)
	}
	line, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("queue: encode job: %w", err)
	}
	f, err := os.OpenFile(queueFile, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("queue: open %q: %w", queueFile, err)
	}
	defer f.Close()
	if _, err := f.Write(append(line, '\n')); err != nil {
		return fmt.Errorf("queue: append to %q: %w", queueFile, err)
	}
	return nil
}

func lockQueue(queueFile string) (release func(), err error) {
	lock := strings.TrimSuffix(queueFile, filepath.Ext(queueFile)) + ".lock"
	if err := os.MkdirAll(filepath.Dir(lock), 0o755); err != nil {
		return nil, fmt.Errorf("queue: create queue dir: %w", err)
	}
	f, err := os.OpenFile(lock, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		if errors.Is(err, fs.ErrExist) {
			return nil, &LockError{LockPath: lock}
		}
		return nil, fmt.Errorf("queue: acquire lock %q: %w", lock, err)
	}
	f.Close()
	return func() { os.Remove(lock) }, nil
}

// ProcessJobs drains up to maxJobs lines from queueFile through handler
// under the queue lock. Consumed lines are removed by atomically rewriting
// the queue; an empty queue file is deleted. In [FailStop] mode a failure
// halts the run with the failed line back at the head; in [FailDeadLetter]
// mode the failed line moves to deadLetterFile and processing continues.
func ProcessJobs(queueFile string, handler func(Job) error, maxJobs int, mode FailureMode, deadLetterFile string) (Result, error) {
	release, err := lockQueue(queueFile)
	if err != nil {
		return Result{}, err
	}
	defer release()

	raw, err := os.ReadFile(queueFile)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return Result{}, nil
		}
		return Result{}, fmt.Errorf("queue: read %q: %w", queueFile, err)
	}

	var lines []string
	for _, line := range strings.Split(string(raw), "\n") {
		if trimmed := strings.TrimSpace(line); trimmed != "" {
			lines = append(lines, trimmed)
		}
	}
	if len(lines) == 0 {
		os.Remove(queueFile)
		return Result{}, nil
	}

	budget := maxJobs
	if budget <= 0 || budget > len(lines) {
		budget = len(lines)
	}

	var result Result
	var dead []deadLetter
	consumed := 0
	for consumed < budget {
		line := lines[consumed]
		err := handleLine(line, handler)
		if err == nil {
			result.ProcessedJobs++
			consumed++
			continue
		}
		result.FailedJobs++
		result.FailureReason = err.Error()
		if mode == FailDeadLetter {
			dead = append(dead, deadLetter{
				FailedAt: time.Now().UTC().Format(time.RFC3339),
				Error:    err.Error(),
				Payload:  deadLetterPayload(line),
			})
			consumed++
			continue
		}
		break
	}

	remaining := lines[consumed:]
	if mode == FailStop && result.FailedJobs > 0 {
		// The failed line goes back at the head of the file; it is counted
		// under FailedJobs, not RemainingJobs.
		remaining = lines[result.ProcessedJobs:]
	}
	result.RemainingJobs = len(lines) - result.ProcessedJobs - result.FailedJobs

	if len(remaining) > 0 {
		if err := rewriteQueue(queueFile, remaining); err != nil {
			return Result{}, err
		}
	} else {
		os.Remove(queueFile)
	}

	if len(dead) > 0 && deadLetterFile != "" {
		if err := appendDeadLetters(deadLetterFile, dead); err != nil {
			return Result{}, err
		}
	}
	return result, nil
}

func handleLine(line string, handler func(Job) error) error {
	var job Job
	if err := json.Unmarshal([]byte(line), &job); err != nil {
		return fmt.Errorf("queue: parse job line: %w", err)
	}
	if err := job.Validate(); err != nil {
		return err
	}
	return handler(job)
}

// deadLetterPayload preserves the original line when it parses as an
// object, or wraps it otherwise.
func deadLetterPayload(line string) json.RawMessage {
	if json.Valid([]byte(line)) && strings.HasPrefix(strings.TrimSpace(line), "{") {
		return json.RawMessage(line)
	}
	wrapped, _ := json.Marshal(map[string]string{"raw_line": line})
	return wrapped
}

func rewriteQueue(queueFile string, lines []string) error {
	content := strings.Join(lines, "\n") + "\n"
	if err := renameio.WriteFile(queueFile, []byte(content), 0o644); err != nil {
		return fmt.Errorf("queue: rewrite %q: %w", queueFile, err)
	}
	return nil
}

// appendDeadLetters writes the failed records with owner-only permissions
// on both the directory and the file.
func appendDeadLetters(path string, records []deadLetter) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("queue: create dead-letter dir: %w", err)
	}
	os.Chmod(filepath.Dir(path), 0o700)
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o600)
	if err != nil {
		return fmt.Errorf("queue: open dead-letter %q: %w", path, err)
	}
	defer f.Close()
	for _, record := range records {
		line, err := json.Marshal(record)
		if err != nil {
			return fmt.Errorf("queue: encode dead-letter record: %w", err)
		}
		if _, err := f.Write(append(line, '\n')); err != nil {
			return fmt.Errorf("queue: append dead-letter: %w", err)
		}
	}
	return os.Chmod(path, 0o600)
}

// Depth reports the number of pending job lines without taking the lock.
func Depth(queueFile string) (int, error) {
	raw, err := os.ReadFile(queueFile)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return 0, nil
		}
		return 0, fmt.Errorf("queue: read %q: %w", queueFile, err)
	}
	count := 0
	for _, line := range strings.Split(string(raw), "\n") {
		if strings.TrimSpace(line) != "" {
			count++
		}
	}
	return count, nil
}
