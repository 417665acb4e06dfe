// Package recorder defines the Provider interface for audio capture
// backends.
//
// A recorder provider controls an external recording application that knows
// how to capture a named session (for example an Audio Hijack session
// wiring a meeting client plus the microphone). The orchestrator only ever
// starts and stops sessions by name; everything about devices, formats and
// file placement lives in the recording application's own configuration.
package recorder

import "context"

// Provider is the abstraction over an external audio recorder.
//
// Implementations must propagate context cancellation promptly and return
// an error when the named session cannot be found or controlled.
type Provider interface {
	// Start begins capturing the named session.
	Start(ctx context.Context, sessionName string) error

	// Stop ends the named session's capture. Stopping a session that is
	// not running is an error the caller may choose to tolerate.
	Stop(ctx context.Context, sessionName string) error
}
