// Transition journal: an append-only record of working directory changes.
//
// Parallel test runners that share a directory tree want to know, after a
// failure, who moved the working directory where and when — and after a
// crash, where the process last was. Each transition is one single-line
// JSON record with the idx field first for efficient type detection, a
// checksum of the payload, and the writing pid. Appends happen while the
// package lock is held, so within one process they are already ordered; an
// exclusive OS file lock (see lock.go) makes appends from multiple
// processes sharing a journal atomic as well.
//
// Journaling is advisory. Append failures never fail Set or Restore and
// never poison the lock; they surface once via Handle.JournalErr.
package cwd

import (
	"bytes"
	"fmt"
	"os"
	"time"

	json "github.com/goccy/go-json"
)

// Event type markers.
const (
	EventSet     = 1 // explicit Set through a handle or guard
	EventRestore = 2 // guard restore or recovery Stack.Pop
	EventPoison  = 3 // failed restore, lock poisoned
	EventClear   = 4 // poison cleared after repair
)

// Event is one journal record. From and To are expected paths before and
// after the transition; for a poison event To is the restore point that
// could not be reached.
type Event struct {
	Type      int    `json:"idx"`  // EventSet .. EventClear
	Timestamp int64  `json:"_ts"`  // Unix milliseconds
	PID       int    `json:"_pid"` // Writing process
	Alg       int    `json:"_a"`   // Checksum algorithm
	From      string `json:"_f"`   // Previous expected path
	To        string `json:"_t"`   // New expected path
	Sum       string `json:"_x"`   // 16 hex chars over payload
}

// payload is the checksummed portion of the record.
func (e *Event) payload() string {
	return fmt.Sprintf("%d|%d|%d|%d|%s|%s", e.Type, e.Timestamp, e.PID, e.Alg, e.From, e.To)
}

// journal owns the append handle and the OS file lock. All methods are
// called with the package lock held, so no internal mutex is needed beyond
// the one inside fileLock guarding the fd's lifetime.
type journal struct {
	root    *os.Root // Sandboxed access to the journal directory
	name    string
	f       *os.File // O_APPEND writer
	lock    *fileLock
	alg     int
	maxSize int64
	sync    bool
}

// openJournal opens or creates the journal file under cfg.JournalDir.
func openJournal(cfg Config) (*journal, error) {
	root, err := os.OpenRoot(cfg.JournalDir)
	if err != nil {
		return nil, fmt.Errorf("cwd: open journal dir: %w", err)
	}
	f, err := root.OpenFile(cfg.JournalName, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		root.Close()
		return nil, fmt.Errorf("cwd: open journal: %w", err)
	}
	return &journal{
		root:    root,
		name:    cfg.JournalName,
		f:       f,
		lock:    &fileLock{f: f},
		alg:     cfg.HashAlgorithm,
		maxSize: cfg.MaxJournalSize,
		sync:    cfg.SyncWrites,
	}, nil
}

// append writes one record and rotates if the file has outgrown its limit.
// The OS file lock is held across the write so concurrent processes cannot
// interleave partial lines.
func (j *journal) append(typ int, from, to string) error {
	e := Event{
		Type:      typ,
		Timestamp: time.Now().UnixMilli(),
		PID:       os.Getpid(),
		Alg:       j.alg,
		From:      from,
		To:        to,
	}
	e.Sum = checksum(e.payload(), j.alg)
	line, err := json.Marshal(&e)
	if err != nil {
		return fmt.Errorf("cwd: encode journal record: %w", err)
	}
	line = append(line, '\n')

	j.lock.Lock()
	defer j.lock.Unlock()

	if _, err := j.f.Write(line); err != nil {
		return fmt.Errorf("cwd: append journal: %w", err)
	}
	if j.sync {
		if err := j.f.Sync(); err != nil {
			return fmt.Errorf("cwd: sync journal: %w", err)
		}
	}
	if fi, err := j.f.Stat(); err == nil && fi.Size() > j.maxSize {
		return j.rotate()
	}
	return nil
}

// close releases the journal's file handles. Drains any in-flight OS lock
// first (see lock.go).
func (j *journal) close() error {
	j.lock.setFile(nil)
	err := j.f.Close()
	if cerr := j.root.Close(); err == nil {
		err = cerr
	}
	return err
}

// ReadJournal parses a journal file and verifies record checksums. A torn
// final line — the signature of a crash mid-append — is tolerated and
// simply ends the result; corruption anywhere else fails with
// ErrCorruptRecord.
func ReadJournal(path string) ([]Event, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return parseEvents(data)
}

// LastKnown returns the destination path of the most recent journal event:
// the best available answer to "where was the working directory" after a
// crash. ErrNotFound if the journal holds no events.
func LastKnown(path string) (string, error) {
	events, err := ReadJournal(path)
	if err != nil {
		return "", err
	}
	if len(events) == 0 {
		return "", ErrNotFound
	}
	return events[len(events)-1].To, nil
}

func parseEvents(data []byte) ([]Event, error) {
	lines := bytes.Split(data, []byte{'\n'})
	var events []Event
	for i, line := range lines {
		if len(bytes.TrimSpace(line)) == 0 {
			continue
		}
		var e Event
		if err := json.Unmarshal(line, &e); err != nil {
			if i == len(lines)-1 {
				// No trailing newline: torn final append.
				break
			}
			return nil, fmt.Errorf("%w: line %d: %v", ErrCorruptRecord, i+1, err)
		}
		if e.Sum != checksum(e.payload(), e.Alg) {
			return nil, fmt.Errorf("%w: line %d: checksum mismatch", ErrCorruptRecord, i+1)
		}
		events = append(events, e)
	}
	return events, nil
}
