package summarizer

import (
	"context"
	"errors"
	"strings"
	"testing"
)

// fakeCompleter serves scripted replies in order.
type fakeCompleter struct {
	replies []string
	err     error
	prompts []string
}

func (f *fakeCompleter) Complete(_ context.Context, prompt string) (string, error) {
	f.prompts = append(f.prompts, prompt)
	if f.err != nil {
		return "", f.err
	}
	reply := f.replies[0]
	if len(f.replies) > 1 {
		f.replies = f.replies[1:]
	}
	return reply, nil
}

const validSummary = `{"minutes": "We planned the launch.", "decisions": ["Ship Friday"], "action_items": ["Update docs"]}`

func TestClient_ValidFirstReply(t *testing.T) {
	fake := &fakeCompleter{replies: []string{validSummary}}
	summary, err := NewClient(fake).Summarize(context.Background(), "transcript text")
	if err != nil {
		t.Fatalf("Summarize() error: %v", err)
	}
	if summary.Minutes != "We planned the launch." {
		t.Errorf("Minutes = %q", summary.Minutes)
	}
	if len(summary.Decisions) != 1 || len(summary.ActionItems) != 1 {
		t.Errorf("summary = %+v", summary)
	}
	if len(fake.prompts) != 1 {
		t.Errorf("prompts = %d, want exactly one", len(fake.prompts))
	}
}

func TestClient_RepairRetry(t *testing.T) {
	fake := &fakeCompleter{replies: []string{"Sure! Here is the summary: launch planning.", validSummary}}
	summary, err := NewClient(fake).Summarize(context.Background(), "transcript")
	if err != nil {
		t.Fatalf("Summarize() error: %v", err)
	}
	if summary.Minutes != "We planned the launch." {
		t.Errorf("Minutes = %q, want the repaired reply used", summary.Minutes)
	}
	if len(fake.prompts) != 2 {
		t.Fatalf("prompts = %d, want repair round trip", len(fake.prompts))
	}
}

func TestClient_CoercesAfterFailedRepair(t *testing.T) {
	fake := &fakeCompleter{replies: []string{"not json", "still not json"}}
	summary, err := NewClient(fake).Summarize(context.Background(), "transcript")
	if err != nil {
		t.Fatalf("Summarize() error: %v", err)
	}
	if summary.Minutes != "still not json" {
		t.Errorf("Minutes = %q, want coerced text", summary.Minutes)
	}
	if len(summary.Decisions) != 0 || len(summary.ActionItems) != 0 {
		t.Errorf("coerced lists not empty: %+v", summary)
	}
	if len(fake.prompts) != 2 {
		t.Errorf("prompts = %d, want exactly one repair attempt", len(fake.prompts))
	}
}

func TestClient_CompletionError(t *testing.T) {
	fake := &fakeCompleter{err: errors.New("rate limited")}
	if _, err := NewClient(fake).Summarize(context.Background(), "t"); err == nil {
		t.Error("expected error when the first completion fails")
	}
}

func TestClient_Fixture(t *testing.T) {
	t.Setenv("MEETINGCTL_PROCESSING_SUMMARY_JSON", validSummary)

	fake := &fakeCompleter{err: errors.New("must not be called")}
	summary, err := NewClient(fake).Summarize(context.Background(), "transcript")
	if err != nil {
		t.Fatalf("Summarize() error: %v", err)
	}
	if !summary.Reused {
		t.Error("fixture summary not marked reused")
	}
	if len(fake.prompts) != 0 {
		t.Error("completer called despite fixture")
	}
}

func TestClient_NilCompleterWithoutFixture(t *testing.T) {
	t.Setenv("MEETINGCTL_PROCESSING_SUMMARY_JSON", "")

	_, err := NewClient(nil).Summarize(context.Background(), "transcript")
	if err == nil {
		t.Fatal("expected error when no completer is configured")
	}
	if !strings.Contains(err.Error(), "MEETINGCTL_PROCESSING_SUMMARY_JSON") {
		t.Errorf("error = %v, want the fixture variable named", err)
	}
}

func TestClient_NilCompleterWithFixture(t *testing.T) {
	t.Setenv("MEETINGCTL_PROCESSING_SUMMARY_JSON", validSummary)

	summary, err := NewClient(nil).Summarize(context.Background(), "transcript")
	if err != nil {
		t.Fatalf("Summarize() error: %v", err)
	}
	if !summary.Reused {
		t.Error("fixture summary not marked reused")
	}
}

func TestParseSummary(t *testing.T) {
	cases := []struct {
		name    string
		raw     string
		wantErr bool
	}{
		{"valid", validSummary, false},
		{"fenced", "```json\n" + validSummary + "\n```", false},
		{"not json", "hello", true},
		{"minutes wrong type", `{"minutes": 3, "decisions": [], "action_items": []}`, true},
		{"decisions wrong type", `{"minutes": "x", "decisions": "nope", "action_items": []}`, true},
		{"non-string item", `{"minutes": "x", "decisions": [1], "action_items": []}`, true},
		{"missing action items", `{"minutes": "x", "decisions": []}`, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := ParseSummary(tc.raw)
			if (err != nil) != tc.wantErr {
				t.Errorf("ParseSummary() error = %v, wantErr %v", err, tc.wantErr)
			}
			if tc.wantErr {
				var parseErr *ParseError
				if !errors.As(err, &parseErr) {
					t.Errorf("error type = %T, want *ParseError", err)
				}
			}
		})
	}
}
