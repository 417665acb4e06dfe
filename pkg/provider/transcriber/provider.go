// Package transcriber defines the Provider interface for speech-to-text
// backends.
//
// A transcriber provider turns one recorded audio file into a plain-text
// transcript on disk. Implementations typically shell out to an external
// ASR binary; sibling artifacts such as .srt or .json timing files may be
// written next to the transcript but are not part of the contract.
package transcriber

import "context"

// TranscriptionError reports a failed transcription run with enough detail
// to act on (missing input, binary not found, non-zero exit).
type TranscriptionError struct {
	Reason string
}

func (e *TranscriptionError) Error() string {
	return "transcriber: " + e.Reason
}

// Provider is the abstraction over a speech-to-text tool.
type Provider interface {
	// Transcribe converts the audio file at audioPath into a UTF-8 text
	// file at transcriptPath, creating parent directories as needed.
	Transcribe(ctx context.Context, audioPath, transcriptPath string) error

	// Available reports whether the backing tool can run on this host,
	// with a reason when it cannot. Used by the doctor and by backfill's
	// --process-now fail-fast check.
	Available() (bool, string)
}
