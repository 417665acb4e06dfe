package queue

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func enqueueAll(t *testing.T, queueFile string, ids ...string) {
	t.Helper()
	for _, id := range ids {
		job := Job{MeetingID: id, NotePath: "/vault/meetings/" + id + ".md"}
		if err := Enqueue(queueFile, job); err != nil {
			t.Fatalf("Enqueue(%s) error: %v", id, err)
		}
	}
}

func TestProcessJobs_DrainsInOrder(t *testing.T) {
	t.Parallel()

	queueFile := filepath.Join(t.TempDir(), "queue.jsonl")
	enqueueAll(t, queueFile, "m-1", "m-2", "m-3")

	var seen []string
	res, err := ProcessJobs(queueFile, func(j Job) error {
		seen = append(seen, j.MeetingID)
		return nil
	}, 0, FailStop, "")
	if err != nil {
		t.Fatalf("ProcessJobs() error: %v", err)
	}
	if res.ProcessedJobs != 3 || res.FailedJobs != 0 || res.RemainingJobs != 0 {
		t.Errorf("result = %+v", res)
	}
	if strings.Join(seen, ",") != "m-1,m-2,m-3" {
		t.Errorf("order = %v", seen)
	}
	if _, err := os.Stat(queueFile); !os.IsNotExist(err) {
		t.Error("empty queue file not deleted")
	}
}

func TestProcessJobs_MaxJobs(t *testing.T) {
	t.Parallel()

	queueFile := filepath.Join(t.TempDir(), "queue.jsonl")
	enqueueAll(t, queueFile, "m-1", "m-2", "m-3")

	res, err := ProcessJobs(queueFile, func(Job) error { return nil }, 2, FailStop, "")
	if err != nil {
		t.Fatal(err)
	}
	if res.ProcessedJobs != 2 || res.RemainingJobs != 1 {
		t.Errorf("result = %+v, want 2 processed and 1 remaining", res)
	}
	depth, err := Depth(queueFile)
	if err != nil {
		t.Fatal(err)
	}
	if depth != 1 {
		t.Errorf("Depth() = %d, want 1", depth)
	}
}

func TestProcessJobs_StopModeKeepsFailedAtHead(t *testing.T) {
	t.Parallel()

	queueFile := filepath.Join(t.TempDir(), "queue.jsonl")
	enqueueAll(t, queueFile, "m-1", "m-2", "m-3")

	res, err := ProcessJobs(queueFile, func(j Job) error {
		if j.MeetingID == "m-2" {
			return errors.New("transcriber exploded")
		}
		return nil
	}, 0, FailStop, "")
	if err != nil {
		t.Fatal(err)
	}
	// m-2 failed and stays at the head of the file, but it is reported
	// under FailedJobs only; m-3 is the single remaining job.
	if res.ProcessedJobs != 1 || res.FailedJobs != 1 || res.RemainingJobs != 1 {
		t.Errorf("result = %+v", res)
	}
	if !strings.Contains(res.FailureReason, "transcriber exploded") {
		t.Errorf("FailureReason = %q", res.FailureReason)
	}

	raw, err := os.ReadFile(queueFile)
	if err != nil {
		t.Fatal(err)
	}
	lines := strings.Split(strings.TrimSpace(string(raw)), "\n")
	if len(lines) != 2 || !strings.Contains(lines[0], "m-2") {
		t.Errorf("queue after stop = %v, want m-2 at head", lines)
	}
}

func TestProcessJobs_DeadLetterMode(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	queueFile := filepath.Join(dir, "queue.jsonl")
	deadLetterFile := filepath.Join(dir, "secrets", "queue.deadletter.jsonl")
	enqueueAll(t, queueFile, "m-1", "m-2", "m-3")

	res, err := ProcessJobs(queueFile, func(j Job) error {
		if j.MeetingID == "m-2" {
			return errors.New("boom")
		}
		return nil
	}, 0, FailDeadLetter, deadLetterFile)
	if err != nil {
		t.Fatal(err)
	}
	if res.ProcessedJobs != 2 || res.FailedJobs != 1 || res.RemainingJobs != 0 {
		t.Errorf("result = %+v, want processed=2 failed=1 remaining=0", res)
	}
	if _, err := os.Stat(queueFile); !os.IsNotExist(err) {
		t.Error("drained queue file not deleted")
	}

	raw, err := os.ReadFile(deadLetterFile)
	if err != nil {
		t.Fatalf("dead-letter file missing: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(string(raw)), "\n")
	if len(lines) != 1 {
		t.Fatalf("dead-letter lines = %d, want 1", len(lines))
	}
	var record struct {
		FailedAt string `json:"failed_at"`
		Error    string `json:"error"`
		Payload  Job    `json:"payload"`
	}
	if err := json.Unmarshal([]byte(lines[0]), &record); err != nil {
		t.Fatal(err)
	}
	if record.Payload.MeetingID != "m-2" || record.Error == "" || record.FailedAt == "" {
		t.Errorf("record = %+v", record)
	}

	if fi, err := os.Stat(deadLetterFile); err == nil && fi.Mode().Perm() != 0o600 {
		t.Errorf("dead-letter perms = %o, want 0600", fi.Mode().Perm())
	}
	if fi, err := os.Stat(filepath.Dir(deadLetterFile)); err == nil && fi.Mode().Perm() != 0o700 {
		t.Errorf("dead-letter dir perms = %o, want 0700", fi.Mode().Perm())
	}
}

// processed + failed + remaining must equal the starting depth.
func TestProcessJobs_CountInvariant(t *testing.T) {
	t.Parallel()

	for _, mode := range []FailureMode{FailStop, FailDeadLetter} {
		queueFile := filepath.Join(t.TempDir(), "queue.jsonl")
		enqueueAll(t, queueFile, "m-1", "m-2", "m-3", "m-4")

		res, err := ProcessJobs(queueFile, func(j Job) error {
			if j.MeetingID == "m-3" {
				return errors.New("fail")
			}
			return nil
		}, 0, mode, filepath.Join(t.TempDir(), "dead.jsonl"))
		if err != nil {
			t.Fatal(err)
		}
		if total := res.ProcessedJobs + res.FailedJobs + res.RemainingJobs; total != 4 {
			t.Errorf("mode %s: processed+failed+remaining = %d, want 4", mode, total)
		}
	}
}

func TestProcessJobs_MalformedLine(t *testing.T) {
	t.Parallel()

	queueFile := filepath.Join(t.TempDir(), "queue.jsonl")
	if err := os.WriteFile(queueFile, []byte("not json\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	res, err := ProcessJobs(queueFile, func(Job) error { return nil }, 0, FailDeadLetter,
		filepath.Join(filepath.Dir(queueFile), "dead.jsonl"))
	if err != nil {
		t.Fatal(err)
	}
	if res.FailedJobs != 1 || res.ProcessedJobs != 0 {
		t.Errorf("result = %+v, want the malformed line failed", res)
	}
}

func TestProcessJobs_MissingQueue(t *testing.T) {
	t.Parallel()

	res, err := ProcessJobs(filepath.Join(t.TempDir(), "queue.jsonl"),
		func(Job) error { return nil }, 0, FailStop, "")
	if err != nil {
		t.Fatal(err)
	}
	if res != (Result{}) {
		t.Errorf("result = %+v, want zero result", res)
	}
}

func TestProcessJobs_LockContention(t *testing.T) {
	t.Parallel()

	queueFile := filepath.Join(t.TempDir(), "queue.jsonl")
	enqueueAll(t, queueFile, "m-1")

	release, err := lockQueue(queueFile)
	if err != nil {
		t.Fatal(err)
	}
	defer release()

	_, err = ProcessJobs(queueFile, func(Job) error { return nil }, 0, FailStop, "")
	var lockErr *LockError
	if !errors.As(err, &lockErr) {
		t.Fatalf("error = %v, want *LockError", err)
	}
}

func TestEnqueue_RequiresFields(t *testing.T) {
	t.Parallel()

	err := Enqueue(filepath.Join(t.TempDir(), "queue.jsonl"), Job{MeetingID: "m-1"})
	if err == nil {
		t.Error("expected error for missing note_path")
	}
}
