// Package mock provides test doubles for the summarizer package: a canned
// Provider and a scripted Completer.
package mock

import (
	"context"
	"sync"

	"github.com/MrWong99/meetingctl/pkg/provider/summarizer"
)

// Provider is a mock implementation of summarizer.Provider.
type Provider struct {
	mu sync.Mutex

	// SummaryResult is returned by Summarize.
	SummaryResult summarizer.Summary

	// SummarizeErr, if non-nil, is returned as the error from Summarize.
	SummarizeErr error

	// Transcripts records every transcript passed to Summarize.
	Transcripts []string
}

func (p *Provider) Summarize(_ context.Context, transcript string) (summarizer.Summary, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Transcripts = append(p.Transcripts, transcript)
	return p.SummaryResult, p.SummarizeErr
}

// Reset clears all recorded calls.
func (p *Provider) Reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Transcripts = nil
}

var _ summarizer.Provider = (*Provider)(nil)

// Completer is a mock implementation of summarizer.Completer replaying the
// configured replies in order. The last reply repeats once exhausted.
type Completer struct {
	mu sync.Mutex

	// Replies are returned by successive Complete calls.
	Replies []string

	// CompleteErr, if non-nil, is returned from Complete.
	CompleteErr error

	// Prompts records every prompt in order.
	Prompts []string

	next int
}

func (c *Completer) Complete(_ context.Context, prompt string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Prompts = append(c.Prompts, prompt)
	if c.CompleteErr != nil {
		return "", c.CompleteErr
	}
	if len(c.Replies) == 0 {
		return "", nil
	}
	reply := c.Replies[c.next]
	if c.next < len(c.Replies)-1 {
		c.next++
	}
	return reply, nil
}

var _ summarizer.Completer = (*Completer)(nil)
