// Journal rotation.
//
// An append-only journal grows without bound, so when it passes
// Config.MaxJournalSize its content is zstd-compressed into a single
// archive segment (<name>.1.zst) and the live file is truncated. The
// archive is written to a temp file and atomically renamed into place:
// a crash mid-rotation at worst orphans the .tmp, never loses the live
// journal. One archive generation is kept — rotation overwrites the
// previous segment, bounding total disk use at roughly one compressed
// plus one live journal.
package cwd

import (
	"fmt"
	"io"
	"os"

	"github.com/klauspost/compress/zstd"
)

// Shared encoder/decoder — both are documented as safe for concurrent use.
// Allocated once because zstd encoder/decoder construction is expensive
// (internal state tables). SpeedFastest: rotation runs inline under the
// package lock, stalling whoever triggered it, while decompression only
// runs in offline ReadArchive calls.
var (
	zstdEncoder, _ = zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedFastest))
	zstdDecoder, _ = zstd.NewReader(nil)
)

// archiveSuffix names the rotated segment: <JournalName>.1.zst.
const archiveSuffix = ".1.zst"

// rotate compresses the live journal into the archive segment and
// truncates it. Called from append with the OS file lock held.
func (j *journal) rotate() error {
	rf, err := j.root.Open(j.name)
	if err != nil {
		return fmt.Errorf("cwd: rotate: open journal: %w", err)
	}
	data, err := io.ReadAll(rf)
	rf.Close()
	if err != nil {
		return fmt.Errorf("cwd: rotate: read journal: %w", err)
	}

	compressed := zstdEncoder.EncodeAll(data, nil)

	tmp, err := j.root.Create(j.name + ".tmp")
	if err != nil {
		return fmt.Errorf("cwd: rotate: create temp: %w", err)
	}
	if _, err := tmp.Write(compressed); err != nil {
		tmp.Close()
		return fmt.Errorf("cwd: rotate: write temp: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("cwd: rotate: sync temp: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("cwd: rotate: close temp: %w", err)
	}
	if err := j.root.Rename(j.name+".tmp", j.name+archiveSuffix); err != nil {
		return fmt.Errorf("cwd: rotate: rename: %w", err)
	}
	if err := j.f.Truncate(0); err != nil {
		return fmt.Errorf("cwd: rotate: truncate: %w", err)
	}
	return nil
}

// ReadArchive decompresses a rotated journal segment and parses it with
// the same checksum verification as ReadJournal.
func ReadArchive(path string) ([]Event, error) {
	compressed, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	data, err := zstdDecoder.DecodeAll(compressed, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: zstd: %w", ErrDecompress, err)
	}
	return parseEvents(data)
}
