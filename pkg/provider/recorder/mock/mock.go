// Package mock provides a test double for the recorder.Provider interface.
package mock

import (
	"context"
	"sync"

	"github.com/MrWong99/meetingctl/pkg/provider/recorder"
)

// Call records a single Start or Stop invocation.
type Call struct {
	// Action is "start" or "stop".
	Action string
	// SessionName is the session the call targeted.
	SessionName string
}

// Provider is a mock implementation of recorder.Provider.
type Provider struct {
	mu sync.Mutex

	// StartErr, if non-nil, is returned from Start.
	StartErr error
	// StopErr, if non-nil, is returned from Stop.
	StopErr error

	// Calls records every invocation in order.
	Calls []Call
}

func (p *Provider) Start(_ context.Context, sessionName string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Calls = append(p.Calls, Call{Action: "start", SessionName: sessionName})
	return p.StartErr
}

func (p *Provider) Stop(_ context.Context, sessionName string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Calls = append(p.Calls, Call{Action: "stop", SessionName: sessionName})
	return p.StopErr
}

// Reset clears all recorded calls.
func (p *Provider) Reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Calls = nil
}

var _ recorder.Provider = (*Provider)(nil)
