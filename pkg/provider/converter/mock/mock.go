// Package mock provides a test double for the converter.Provider interface.
package mock

import (
	"context"
	"os"
	"path/filepath"
	"sync"

	"github.com/MrWong99/meetingctl/pkg/provider/converter"
)

// Call records a single Convert invocation.
type Call struct {
	SrcPath string
	DstPath string
}

// Provider is a mock implementation of converter.Provider. On success it
// writes a stub MP3 and removes the source, mirroring the real contract.
type Provider struct {
	mu sync.Mutex

	// ConvertErr, if non-nil, is returned from Convert; the source file
	// is then left in place.
	ConvertErr error

	// KeepSource skips the source removal on success.
	KeepSource bool

	// AvailableValue and AvailableReason are returned from Available.
	// The zero value reports available.
	AvailableValue  bool
	AvailableReason string
	availableSet    bool

	// Calls records every Convert invocation in order.
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

func (p *Provider) Convert(_ context.Context, srcPath, dstPath string) error {
	p.mu.Lock()
	p.Calls = append(p.Calls, Call{SrcPath: srcPath, DstPath: dstPath})
	err := p.ConvertErr
	keep := p.KeepSource
	p.mu.Unlock()

	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(dstPath), 0o755); err != nil {
		return err
	}
	if err := os.WriteFile(dstPath, []byte("mock mp3"), 0o644); err != nil {
		return err
	}
	if !keep {
		os.Remove(srcPath)
	}
	return nil
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

var _ converter.Provider = (*Provider)(nil)
