package summarizer

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
)

const summaryPrompt = `You are a meeting assistant. Given the following meeting transcript, generate a structured summary.

Transcript:
%s

Respond with ONLY a JSON object in this exact format:
{
  "minutes": "A brief summary of the meeting (2-3 sentences)",
  "decisions": ["Decision 1", "Decision 2"],
  "action_items": ["Action item 1", "Action item 2"]
}

If there are no decisions or action items, use empty arrays.`

const repairPrompt = `Your previous reply was not valid JSON matching the required schema. Reformat the following content as ONLY a JSON object with the keys "minutes" (string), "decisions" (array of strings) and "action_items" (array of strings). No prose, no code fences.

Content:
%s`

// Client implements [Provider] on top of any [Completer]. Output that
// fails schema validation triggers exactly one repair round trip; if that
// also fails the reply is coerced rather than failing the job.
// MEETINGCTL_PROCESSING_SUMMARY_JSON, when set, short-circuits the model
// entirely with a fixture summary.
type Client struct {
	completer Completer
}

var _ Provider = (*Client)(nil)

// NewClient wraps completer into a schema-enforcing summarizer.
func NewClient(completer Completer) *Client {
	return &Client{completer: completer}
}

func (c *Client) Summarize(ctx context.Context, transcript string) (Summary, error) {
	if fixture := os.Getenv("MEETINGCTL_PROCESSING_SUMMARY_JSON"); fixture != "" {
		summary, err := ParseSummary(fixture)
		if err != nil {
			return Summary{}, fmt.Errorf("summarizer: fixture: %w", err)
		}
		summary.Reused = true
		return summary, nil
	}

	if c.completer == nil {
		return Summary{}, fmt.Errorf("summarizer: no completer configured and MEETINGCTL_PROCESSING_SUMMARY_JSON is unset")
	}

	reply, err := c.completer.Complete(ctx, fmt.Sprintf(summaryPrompt, transcript))
	if err != nil {
		return Summary{}, fmt.Errorf("summarizer: completion: %w", err)
	}
	summary, parseErr := ParseSummary(reply)
	if parseErr == nil {
		return summary, nil
	}

	repaired, err := c.completer.Complete(ctx, fmt.Sprintf(repairPrompt, reply))
	if err != nil {
		return CoerceSummary(reply), nil
	}
	summary, parseErr = ParseSummary(repaired)
	if parseErr != nil {
		return CoerceSummary(repaired), nil
	}
	return summary, nil
}

// ParseSummary validates raw against the summary schema. Code fences
// around the JSON are tolerated.
func ParseSummary(raw string) (Summary, error) {
	cleaned := stripCodeFence(raw)

	var payload struct {
		Minutes     any `json:"minutes"`
		Decisions   any `json:"decisions"`
		ActionItems any `json:"action_items"`
	}
	if err := json.Unmarshal([]byte(cleaned), &payload); err != nil {
		return Summary{}, &ParseError{Reason: "malformed summary JSON"}
	}
	minutes, ok := payload.Minutes.(string)
	if !ok {
		return Summary{}, &ParseError{Reason: "minutes must be a string"}
	}
	decisions, err := stringList(payload.Decisions)
	if err != nil {
		return Summary{}, &ParseError{Reason: "decisions must be a list of strings"}
	}
	actionItems, err := stringList(payload.ActionItems)
	if err != nil {
		return Summary{}, &ParseError{Reason: "action_items must be a list of strings"}
	}
	return Summary{Minutes: minutes, Decisions: decisions, ActionItems: actionItems}, nil
}

// CoerceSummary salvages what it can from a reply that failed validation
// twice: the whole text becomes the minutes and both lists stay empty.
func CoerceSummary(raw string) Summary {
	return Summary{
		Minutes:     strings.TrimSpace(stripCodeFence(raw)),
		Decisions:   []string{},
		ActionItems: []string{},
	}
}

func stringList(value any) ([]string, error) {
	if value == nil {
		return nil, fmt.Errorf("missing")
	}
	items, ok := value.([]any)
	if !ok {
		return nil, fmt.Errorf("not a list")
	}
	out := make([]string, 0, len(items))
	for _, item := range items {
		s, ok := item.(string)
		if !ok {
			return nil, fmt.Errorf("non-string entry")
		}
		out = append(out, s)
	}
	return out, nil
}

func stripCodeFence(raw string) string {
	trimmed := strings.TrimSpace(raw)
	if !strings.HasPrefix(trimmed, "```") {
		return trimmed
	}
	trimmed = strings.TrimPrefix(trimmed, "```json")
	trimmed = strings.TrimPrefix(trimmed, "```")
	trimmed = strings.TrimSuffix(strings.TrimSpace(trimmed), "```")
	return strings.TrimSpace(trimmed)
}
