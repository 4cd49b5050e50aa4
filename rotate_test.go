// Journal rotation tests.
package cwd

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

// With a 1-byte threshold every append rotates, so after the last Set the
// archive holds the newest record and the live journal is empty.
func TestRotation(t *testing.T) {
	saveWd(t)
	base := tempDir(t)
	sub := filepath.Join(base, "sub")
	if err := os.Mkdir(sub, 0755); err != nil {
		t.Fatal(err)
	}

	s, path := journalState(t, Config{MaxJournalSize: 1})
	h, _ := s.acquire()
	if err := h.Set(base); err != nil {
		t.Fatal(err)
	}
	if err := h.Set(sub); err != nil {
		t.Fatal(err)
	}
	if err := h.JournalErr(); err != nil {
		t.Fatalf("JournalErr: %v", err)
	}
	h.Release()

	fi, err := os.Stat(path)
	if err != nil {
		t.Fatalf("live journal: %v", err)
	}
	if fi.Size() != 0 {
		t.Errorf("live journal size = %d after rotation, want 0", fi.Size())
	}

	events, err := ReadArchive(path + archiveSuffix)
	if err != nil {
		t.Fatalf("ReadArchive: %v", err)
	}
	if len(events) != 1 {
		t.Fatalf("archive holds %d events, want 1", len(events))
	}
	if events[0].To != sub {
		t.Errorf("archived event target = %q, want %q", events[0].To, sub)
	}
}

func TestReadArchiveRejectsGarbage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bogus.1.zst")
	if err := os.WriteFile(path, []byte("not a zstd frame"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := ReadArchive(path); !errors.Is(err, ErrDecompress) {
		t.Errorf("ReadArchive on garbage = %v, want ErrDecompress", err)
	}
}
