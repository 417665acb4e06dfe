// Package converter defines the Provider interface for audio re-encoding.
//
// The pipeline archives recordings as MP3 once processing succeeds; the
// converter owns that re-encode and the removal of the bulky source file.
package converter

import "context"

// Provider is the abstraction over an audio re-encoder.
type Provider interface {
	// Convert re-encodes the audio at srcPath into an MP3 at dstPath and
	// removes srcPath on success. The source must survive any failure.
	Convert(ctx context.Context, srcPath, dstPath string) error

	// Available reports whether the backing tool can run on this host,
	// with a reason when it cannot.
	Available() (bool, string)
}
