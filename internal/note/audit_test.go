package note

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeNote(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestAudit_DetectsDuplicates(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeNote(t, dir, "2026-02-08 1000 - Weekly Sync - m-0123456789.md", "# a\n")
	writeNote(t, dir, "2026-02-08 1000 - Weekly Sync - m-0123456789 (2).md", "# b\n")
	writeNote(t, dir, "2026-02-09 0900 - Standup - m-abcdef0123.md", "# c\n")
	writeNote(t, dir, "scratch.md", "no id here\n")

	report, err := Audit(dir, false)
	if err != nil {
		t.Fatalf("Audit() error: %v", err)
	}
	if report.DiscoveredNotes != 4 {
		t.Errorf("DiscoveredNotes = %d, want 4", report.DiscoveredNotes)
	}
	if report.UniqueMeetingIDs != 2 {
		t.Errorf("UniqueMeetingIDs = %d, want 2", report.UniqueMeetingIDs)
	}
	if report.DuplicateMeetingIDs != 1 || len(report.Duplicates) != 1 {
		t.Fatalf("duplicates = %+v, want exactly one", report.Duplicates)
	}
	dup := report.Duplicates[0]
	if dup.MeetingID != "m-0123456789" || len(dup.NotePaths) != 2 {
		t.Errorf("duplicate = %+v", dup)
	}
}

func TestAudit_MissingDirIsEmpty(t *testing.T) {
	t.Parallel()

	report, err := Audit(filepath.Join(t.TempDir(), "nope"), false)
	if err != nil {
		t.Fatalf("Audit() error: %v", err)
	}
	if report.DiscoveredNotes != 0 || len(report.Duplicates) != 0 {
		t.Errorf("report = %+v, want empty", report)
	}
}

func TestNormalizeFrontmatter(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := writeNote(t, dir, "2026-02-08 1000 - Weekly Sync - m-0123456789.md", `---
type: note
meeting_id: "m-0123456789"
title: "stale title"
---

# Weekly Sync

Body stays intact.
`)

	changed, err := NormalizeFrontmatter(path)
	if err != nil {
		t.Fatalf("NormalizeFrontmatter() error: %v", err)
	}
	if !changed {
		t.Fatal("expected a rewrite")
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	text := string(raw)
	if !strings.Contains(text, "type: meeting") {
		t.Error("type not forced to meeting")
	}
	if !strings.Contains(text, "title: Weekly Sync") {
		t.Error("title not synced from filename")
	}
	for _, key := range []string{"recording_wav:", "transcript_status:", "summary_status:"} {
		if !strings.Contains(text, key) {
			t.Errorf("missing default key %q", key)
		}
	}
	if !strings.Contains(text, "Body stays intact.") {
		t.Error("body bytes were modified")
	}

	// Second pass is a no-op.
	changed, err = NormalizeFrontmatter(path)
	if err != nil {
		t.Fatal(err)
	}
	if changed {
		t.Error("normalization not stable across runs")
	}
}

func TestNormalizeFrontmatter_NoFrontmatter(t *testing.T) {
	t.Parallel()

	path := writeNote(t, t.TempDir(), "plain.md", "# No frontmatter\n")
	changed, err := NormalizeFrontmatter(path)
	if err != nil {
		t.Fatalf("NormalizeFrontmatter() error: %v", err)
	}
	if changed {
		t.Error("file without frontmatter should be left alone")
	}
}
