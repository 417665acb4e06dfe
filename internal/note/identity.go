// Package note owns the meeting note lifecycle: deterministic meeting
// identities and filenames, the {{ key }} template renderer, the
// sentinel-region patcher, note creation from calendar events, and the
// vault audit.
package note

import (
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"
)

// UntitledMeeting is the fallback title when sanitization leaves nothing.
const UntitledMeeting = "Untitled Meeting"

var nonAlphanumericRuns = regexp.MustCompile(`[^A-Za-z0-9]+`)

// SanitizeTitle collapses every run of non-alphanumeric characters to a
// single space and trims the result. An empty result falls back to
// "Untitled Meeting".
func SanitizeTitle(title string) string {
	cleaned := strings.TrimSpace(nonAlphanumericRuns.ReplaceAllString(title, " "))
	if cleaned == "" {
		return UntitledMeeting
	}
	return cleaned
}

// MeetingID derives the deterministic meeting identity
// "m-" + first 10 hex chars of sha1(startISO + "|" + lowercase sanitized title).
// Identical (title, start) pairs always produce the same id.
func MeetingID(title, startISO string) string {
	token := startISO + "|" + strings.ToLower(SanitizeTitle(title))
	digest := sha1.Sum([]byte(token))
	return "m-" + hex.EncodeToString(digest[:])[:10]
}

// BuildNoteFilename renders the canonical note filename
// "YYYY-MM-DD HHMM - <sanitized title> - <meeting_id>.md" from the meeting
// start in the local timezone.
func BuildNoteFilename(startLocal time.Time, title, meetingID string) string {
	return fmt.Sprintf("%s - %s - %s.md",
		startLocal.Format("2006-01-02 1504"),
		SanitizeTitle(title),
		meetingID,
	)
}

// EnsureCollisionSafePath returns path unchanged when it does not exist, or
// the first " (2)", " (3)", … suffixed variant that does not exist.
func EnsureCollisionSafePath(path string) string {
	if !fileExists(path) {
		return path
	}
	ext := filepath.Ext(path)
	stem := strings.TrimSuffix(path, ext)
	for counter := 2; ; counter++ {
		candidate := fmt.Sprintf("%s (%d)%s", stem, counter, ext)
		if !fileExists(candidate) {
			return candidate
		}
	}
}

func fileExists(path string) bool {
	_, err := os.Lstat(path)
	return err == nil
}
