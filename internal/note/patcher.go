package note

import (
	"fmt"
	"os"
	"strings"

	"github.com/google/renameio/v2"
)

// Region names the managed spans a meeting note may carry. Only these
// regions are ever rewritten; text outside them belongs to the user.
type Region string

const (
	RegionMinutes     Region = "minutes"
	RegionDecisions   Region = "decisions"
	RegionActionItems Region = "action_items"
	RegionTranscript  Region = "transcript"
	RegionReferences  Region = "references"
)

// regionMarkers maps each known region to its HTML-comment sentinel pair.
var regionMarkers = map[Region][2]string{
	RegionMinutes:     {"<!-- MINUTES_START -->", "<!-- MINUTES_END -->"},
	RegionDecisions:   {"<!-- DECISIONS_START -->", "<!-- DECISIONS_END -->"},
	RegionActionItems: {"<!-- ACTION_ITEMS_START -->", "<!-- ACTION_ITEMS_END -->"},
	RegionTranscript:  {"<!-- TRANSCRIPT_START -->", "<!-- TRANSCRIPT_END -->"},
	RegionReferences:  {"<!-- REFERENCES_START -->", "<!-- REFERENCES_END -->"},
}

// MissingSentinelError reports a region whose start or end sentinel could
// not be located in the note.
type MissingSentinelError struct {
	Marker string
}

func (e *MissingSentinelError) Error() string {
	return "note: missing sentinel " + e.Marker
}

// PatchResult describes the outcome of a [PatchFile] call.
type PatchResult struct {
	NotePath       string   `json:"note_path"`
	Changed        bool     `json:"changed"`
	DryRun         bool     `json:"dry_run"`
	WritePerformed bool     `json:"write_performed"`
	ChangedRegions []Region `json:"changed_regions"`
}

// HasRegion reports whether text contains both sentinels of region, with the
// end sentinel strictly after the start.
func HasRegion(text string, region Region) bool {
	markers, ok := regionMarkers[region]
	if !ok {
		return false
	}
	start := strings.Index(text, markers[0])
	if start < 0 {
		return false
	}
	return strings.Index(text[start+len(markers[0]):], markers[1]) >= 0
}

// ApplyPatch replaces the managed regions named in updates and returns the
// patched text plus the regions whose content actually changed. Regions not
// in the schema are ignored. The bytes outside every sentinel pair are
// preserved exactly; applying the same updates twice is a no-op the second
// time.
func ApplyPatch(text string, updates map[Region]string) (string, []Region, error) {
	patched := text
	var changed []Region
	for _, region := range orderedRegions() {
		content, ok := updates[region]
		if !ok {
			continue
		}
		updated, err := replaceRegion(patched, region, content)
		if err != nil {
			return "", nil, err
		}
		if updated != patched {
			changed = append(changed, region)
			patched = updated
		}
	}
	return patched, changed, nil
}

// replaceRegion swaps the span strictly between the region's sentinels for
// content. Content is trimmed of trailing newlines and re-terminated with
// exactly one; the newline preceding the end sentinel is kept, so the
// canonical layout carries a blank line between the content and the end
// sentinel.
func replaceRegion(text string, region Region, content string) (string, error) {
	markers := regionMarkers[region]
	startIdx := strings.Index(text, markers[0])
	if startIdx < 0 {
		return "", &MissingSentinelError{Marker: markers[0]}
	}
	innerStart := startIdx + len(markers[0])
	endOffset := strings.Index(text[innerStart:], markers[1])
	if endOffset < 0 {
		return "", &MissingSentinelError{Marker: markers[1]}
	}
	innerEnd := innerStart + endOffset

	if innerStart < len(text) && text[innerStart] == '\n' {
		innerStart++
	}
	if innerEnd > innerStart && text[innerEnd-1] == '\n' {
		innerEnd--
	}

	replacement := strings.TrimRight(content, "\n")
	return text[:innerStart] + replacement + "\n" + text[innerEnd:], nil
}

// PatchFile applies updates to the note at path. The write goes through a
// same-directory temp file and rename so readers never observe a partial
// note. With dryRun set the change set is computed but nothing is written.
func PatchFile(path string, updates map[Region]string, dryRun bool) (PatchResult, error) {
	original, err := os.ReadFile(path)
	if err != nil {
		return PatchResult{}, fmt.Errorf("note: read %q: %w", path, err)
	}
	patched, changedRegions, err := ApplyPatch(string(original), updates)
	if err != nil {
		return PatchResult{}, err
	}

	result := PatchResult{
		NotePath:       path,
		Changed:        patched != string(original),
		DryRun:         dryRun,
		ChangedRegions: changedRegions,
	}
	if result.Changed && !dryRun {
		if err := renameio.WriteFile(path, []byte(patched), 0o644); err != nil {
			return PatchResult{}, fmt.Errorf("note: write %q: %w", path, err)
		}
		result.WritePerformed = true
	}
	return result, nil
}

// orderedRegions fixes the iteration order so results are deterministic
// regardless of the updates map's order. Regions never overlap, so the
// patched output is order-independent; only ChangedRegions ordering depends
// on this.
func orderedRegions() []Region {
	return []Region{RegionMinutes, RegionDecisions, RegionActionItems, RegionTranscript, RegionReferences}
}
