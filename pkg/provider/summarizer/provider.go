// Package summarizer defines the Provider interface for turning a meeting
// transcript into a structured summary.
//
// The summary schema is fixed: a minutes paragraph plus two string lists.
// Providers are expected to drive an LLM; the [Client] in this package
// handles the schema validation, the single repair retry and the
// best-effort coercion, so concrete backends only have to produce text.
package summarizer

import "context"

// Summary is the structured output every summarizer must produce.
type Summary struct {
	Minutes     string   `json:"minutes"`
	Decisions   []string `json:"decisions"`
	ActionItems []string `json:"action_items"`

	// Reused signals that the backend served a cached summary. Advisory
	// metadata only; it is passed through to the processed-jobs log.
	Reused bool `json:"reused,omitempty"`
}

// ParseError reports summarizer output that does not match the schema.
type ParseError struct {
	Reason string
}

func (e *ParseError) Error() string {
	return "summarizer: " + e.Reason
}

// Provider is the abstraction over a meeting summarizer.
type Provider interface {
	// Summarize produces a Summary for the transcript text.
	Summarize(ctx context.Context, transcript string) (Summary, error)
}

// Completer is the text-generation capability concrete LLM backends
// implement. The [Client] layers prompting and schema handling on top.
type Completer interface {
	// Complete sends one prompt and returns the model's text reply.
	Complete(ctx context.Context, prompt string) (string, error)
}
