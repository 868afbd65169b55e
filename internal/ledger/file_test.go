package ledger

import (
	"context"
	"os"
	"path/filepath"
	"testing"
)

func TestFile_LoadMissingFileIsFirstRun(t *testing.T) {
	t.Parallel()
	l := NewFile(filepath.Join(t.TempDir(), "seen_matches.txt"))

	if err := l.Load(context.Background()); err != nil {
		t.Fatalf("Load on missing file should not error: %v", err)
	}
	if !l.IsEmpty() {
		t.Error("fresh ledger should be empty")
	}
}

func TestFile_RoundTrip(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "seen_matches.txt")

	l := NewFile(path)
	if err := l.Load(ctx); err != nil {
		t.Fatalf("Load: %v", err)
	}
	ids := []string{"match-c", "match-a", "match-b"}
	for _, id := range ids {
		if err := l.MarkSeenAndSave(ctx, id); err != nil {
			t.Fatalf("MarkSeenAndSave(%s): %v", id, err)
		}
	}

	// A fresh instance must reproduce the identical set.
	fresh := NewFile(path)
	if err := fresh.Load(ctx); err != nil {
		t.Fatalf("fresh Load: %v", err)
	}
	if fresh.Size() != len(ids) {
		t.Fatalf("fresh size = %d, want %d", fresh.Size(), len(ids))
	}
	for _, id := range ids {
		if !fresh.HasSeen(id) {
			t.Errorf("fresh ledger missing %s", id)
		}
	}
	if fresh.HasSeen("match-z") {
		t.Error("fresh ledger reports unseen id as seen")
	}
}

func TestFile_SaveIsSortedAndNewlineDelimited(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "seen_matches.txt")

	l := NewFile(path)
	l.MarkSeen("bbb")
	l.MarkSeen("aaa")
	l.MarkSeen("ccc")
	if err := l.Save(ctx); err != nil {
		t.Fatalf("Save: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read saved file: %v", err)
	}
	if string(data) != "aaa\nbbb\nccc\n" {
		t.Errorf("saved file = %q, want sorted newline-delimited ids", data)
	}
}

func TestFile_MarkSeenDoesNotPersist(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "seen_matches.txt")

	l := NewFile(path)
	l.MarkSeen("match-1")

	fresh := NewFile(path)
	if err := fresh.Load(ctx); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if fresh.HasSeen("match-1") {
		t.Error("MarkSeen alone must not persist")
	}
}

func TestFile_DuplicateMarkKeepsSetSemantics(t *testing.T) {
	t.Parallel()
	l := NewFile(filepath.Join(t.TempDir(), "seen_matches.txt"))
	l.MarkSeen("match-1")
	l.MarkSeen("match-1")
	if l.Size() != 1 {
		t.Errorf("size = %d, want 1 after duplicate mark", l.Size())
	}
}

func TestFile_LoadSkipsBlankLines(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "seen_matches.txt")
	if err := os.WriteFile(path, []byte("match-1\n\nmatch-2\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	l := NewFile(path)
	if err := l.Load(context.Background()); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if l.Size() != 2 {
		t.Errorf("size = %d, want 2 (blank lines skipped)", l.Size())
	}
}
