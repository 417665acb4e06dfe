// Package mock provides a test double for the transcriber.Provider
// interface.
package mock

import (
	"context"
	"os"
	"path/filepath"
	"sync"

	"github.com/MrWong99/meetingctl/pkg/provider/transcriber"
)

// Call records a single Transcribe invocation.
type Call struct {
	AudioPath      string
	TranscriptPath string
}

// Provider is a mock implementation of transcriber.Provider. Unless
// TranscribeErr is set, Transcribe writes TranscriptText to the requested
// path so downstream code sees a real file.
type Provider struct {
	mu sync.Mutex

	// TranscriptText is written to the transcript path on success.
	// Empty means a one-line default.
	TranscriptText string

	// TranscribeErr, if non-nil, is returned from Transcribe.
	TranscribeErr error

	// AvailableValue and AvailableReason are returned from Available.
	// The zero value reports available.
	AvailableValue  bool
	AvailableReason string
	availableSet    bool

	// Calls records every Transcribe invocation in order.
	Calls []Call
}

// SetAvailable configures the Available result.
func (p *Provider) SetAvailable(ok bool, reason string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.AvailableValue = ok
	p.AvailableReason = reason
	p.availableSet = true
}

func (p *Provider) Transcribe(_ context.Context, audioPath, transcriptPath string) error {
	p.mu.Lock()
	p.Calls = append(p.Calls, Call{AudioPath: audioPath, TranscriptPath: transcriptPath})
	err := p.TranscribeErr
	text := p.TranscriptText
	p.mu.Unlock()

	if err != nil {
		return err
	}
	if text == "" {
		text = "mock transcript\n"
	}
	if err := os.MkdirAll(filepath.Dir(transcriptPath), 0o755); err != nil {
		return err
	}
	return os.WriteFile(transcriptPath, []byte(text), 0o644)
}

func (p *Provider) Available() (bool, string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.availableSet {
		return true, ""
	}
	return p.AvailableValue, p.AvailableReason
}

// Reset clears all recorded calls.
func (p *Provider) Reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Calls = nil
}

var _ transcriber.Provider = (*Provider)(nil)
