package ledger

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// File is a Ledger persisted as a flat text file, one match id per line, no
// header, no escaping. Saves go through a temp file + rename so a crash leaves
// either the old or the new complete set on disk, never a partial line.
type File struct {
	path string
	seen map[string]struct{}
}

// Compile-time interface check.
var _ Ledger = (*File)(nil)

// NewFile creates a File ledger backed by the given path. Call Load before use.
func NewFile(path string) *File {
	return &File{
		path: path,
		seen: make(map[string]struct{}),
	}
}

// Load implements Ledger. A missing file yields an empty set and no error.
func (f *File) Load(_ context.Context) error {
	f.seen = make(map[string]struct{})

	data, err := os.ReadFile(f.path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("ledger: read %s: %w", f.path, err)
	}

	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line != "" {
			f.seen[line] = struct{}{}
		}
	}
	return nil
}

// HasSeen implements Ledger.
func (f *File) HasSeen(matchID string) bool {
	_, ok := f.seen[matchID]
	return ok
}

// MarkSeen implements Ledger.
func (f *File) MarkSeen(matchID string) {
	f.seen[matchID] = struct{}{}
}

// MarkSeenAndSave implements Ledger.
func (f *File) MarkSeenAndSave(ctx context.Context, matchID string) error {
	f.MarkSeen(matchID)
	return f.Save(ctx)
}

// Save implements Ledger. Identifiers are written sorted so saves are
// deterministic and golden-file comparisons stay stable.
func (f *File) Save(_ context.Context) error {
	ids := make([]string, 0, len(f.seen))
	for id := range f.seen {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	var sb strings.Builder
	for _, id := range ids {
		sb.WriteString(id)
		sb.WriteByte('\n')
	}

	tmp, err := os.CreateTemp(filepath.Dir(f.path), filepath.Base(f.path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("ledger: create temp file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.WriteString(sb.String()); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("ledger: write %s: %w", tmpName, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("ledger: close %s: %w", tmpName, err)
	}
	if err := os.Rename(tmpName, f.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("ledger: rename %s: %w", f.path, err)
	}
	return nil
}

// IsEmpty implements Ledger.
func (f *File) IsEmpty() bool {
	return len(f.seen) == 0
}

// Size implements Ledger.
func (f *File) Size() int {
	return len(f.seen)
}
