package note

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"github.com/google/renameio/v2"
	"gopkg.in/yaml.v3"
)

var meetingIDInFilename = regexp.MustCompile(`\b(m-[0-9a-f]{10})\b`)

// MeetingIDFromPath extracts the m-<hex> meeting id embedded in a note or
// recording filename; empty when the filename carries none.
func MeetingIDFromPath(path string) string {
	return meetingIDInFilename.FindString(filepath.Base(path))
}

// Duplicate lists every note path carrying the same meeting id.
type Duplicate struct {
	MeetingID string   `json:"meeting_id"`
	NotePaths []string `json:"note_paths"`
}

// AuditReport summarises a scan of the meetings directory.
type AuditReport struct {
	DiscoveredNotes     int         `json:"discovered_notes"`
	UniqueMeetingIDs    int         `json:"unique_meeting_ids"`
	DuplicateMeetingIDs int         `json:"duplicate_meeting_ids"`
	Duplicates          []Duplicate `json:"duplicates"`
	NormalizedNotes     []string    `json:"normalized_notes,omitempty"`
}

// Audit scans meetingsDir for Markdown notes, groups them by the meeting id
// embedded in their filenames, and reports ids that occur more than once.
// With normalize set, each note's frontmatter is also brought up to the
// canonical shape and rewritten in place when it changed.
func Audit(meetingsDir string, normalize bool) (AuditReport, error) {
	entries, err := os.ReadDir(meetingsDir)
	if err != nil {
		if os.IsNotExist(err) {
			return AuditReport{Duplicates: []Duplicate{}}, nil
		}
		return AuditReport{}, fmt.Errorf("note: read meetings dir %q: %w", meetingsDir, err)
	}

	byID := make(map[string][]string)
	report := AuditReport{Duplicates: []Duplicate{}}
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".md") {
			continue
		}
		report.DiscoveredNotes++
		path := filepath.Join(meetingsDir, entry.Name())
		if m := meetingIDInFilename.FindString(entry.Name()); m != "" {
			byID[m] = append(byID[m], path)
		}
		if normalize {
			changed, err := NormalizeFrontmatter(path)
			if err != nil {
				return AuditReport{}, err
			}
			if changed {
				report.NormalizedNotes = append(report.NormalizedNotes, path)
			}
		}
	}

	report.UniqueMeetingIDs = len(byID)
	ids := make([]string, 0, len(byID))
	for id := range byID {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		paths := byID[id]
		if len(paths) < 2 {
			continue
		}
		sort.Strings(paths)
		report.Duplicates = append(report.Duplicates, Duplicate{MeetingID: id, NotePaths: paths})
	}
	report.DuplicateMeetingIDs = len(report.Duplicates)
	return report, nil
}

// defaultFrontmatterKeys are guaranteed to exist after normalization.
var defaultFrontmatterKeys = []string{
	"type", "meeting_id", "title", "start", "end", "calendar", "platform",
	"join_url", "recording_wav", "recording_mp3", "transcript_status",
	"summary_status",
}

// NormalizeFrontmatter ensures the note at path carries the canonical
// frontmatter keys, forces type to "meeting", and syncs the title field from
// the filename. It reports whether the file was rewritten.
func NormalizeFrontmatter(path string) (bool, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return false, fmt.Errorf("note: read %q: %w", path, err)
	}
	front, body, ok := splitFrontmatter(string(raw))
	if !ok {
		return false, nil
	}

	fields := map[string]any{}
	if err := yaml.Unmarshal([]byte(front), &fields); err != nil {
		return false, fmt.Errorf("note: parse frontmatter of %q: %w", path, err)
	}

	changed := false
	for _, key := range defaultFrontmatterKeys {
		if _, present := fields[key]; !present {
			fields[key] = ""
			changed = true
		}
	}
	if fields["type"] != "meeting" {
		fields["type"] = "meeting"
		changed = true
	}
	if title := titleFromFilename(filepath.Base(path)); title != "" && fields["title"] != title {
		fields["title"] = title
		changed = true
	}
	if !changed {
		return false, nil
	}

	rendered, err := yaml.Marshal(orderedFrontmatter(fields))
	if err != nil {
		return false, fmt.Errorf("note: render frontmatter of %q: %w", path, err)
	}
	rebuilt := "---\n" + string(rendered) + "---\n" + body
	if err := renameio.WriteFile(path, []byte(rebuilt), 0o644); err != nil {
		return false, fmt.Errorf("note: write %q: %w", path, err)
	}
	return true, nil
}

// splitFrontmatter separates a leading "---" delimited YAML block from the
// note body. The body keeps its exact bytes.
func splitFrontmatter(text string) (front, body string, ok bool) {
	if !strings.HasPrefix(text, "---\n") {
		return "", "", false
	}
	rest := text[len("---\n"):]
	end := strings.Index(rest, "\n---\n")
	if end < 0 {
		return "", "", false
	}
	return rest[:end+1], rest[end+len("\n---\n"):], true
}

// titleFromFilename recovers the sanitized title segment of the canonical
// "YYYY-MM-DD HHMM - <title> - <meeting_id>.md" layout.
func titleFromFilename(name string) string {
	stem := strings.TrimSuffix(name, ".md")
	parts := strings.Split(stem, " - ")
	if len(parts) < 3 {
		return ""
	}
	return strings.Join(parts[1:len(parts)-1], " - ")
}

// orderedFrontmatter renders known keys in canonical order, then any extra
// keys alphabetically, so normalization is stable across runs.
func orderedFrontmatter(fields map[string]any) *yaml.Node {
	doc := &yaml.Node{Kind: yaml.MappingNode}
	appendPair := func(key string, value any) {
		keyNode := &yaml.Node{Kind: yaml.ScalarNode, Value: key}
		valNode := &yaml.Node{}
		_ = valNode.Encode(value)
		doc.Content = append(doc.Content, keyNode, valNode)
	}
	seen := make(map[string]bool, len(defaultFrontmatterKeys))
	for _, key := range defaultFrontmatterKeys {
		if value, present := fields[key]; present {
			appendPair(key, value)
			seen[key] = true
		}
	}
	extras := make([]string, 0)
	for key := range fields {
		if !seen[key] {
			extras = append(extras, key)
		}
	}
	sort.Strings(extras)
	for _, key := range extras {
		appendPair(key, fields[key])
	}
	return doc
}
