// Process-wide configuration.
//
// The original decision behind Verify is performance versus safety: the
// default trusts the cached path unconditionally (no syscall on reads),
// verify mode pays a Getwd per read to detect out-of-band os.Chdir calls.
// The mode is fixed once at startup rather than switchable mid-process —
// flipping it while guards are live would change what Get means under them.
package cwd

// Config holds process-wide options. All fields have usable zero values.
type Config struct {
	Verify         bool   // verify cached path against the OS on every read
	JournalDir     string // directory for the transition journal ("" disables)
	JournalName    string // journal filename (default "cwd.journal")
	HashAlgorithm  int    // journal record checksums: 1=xxHash3, 2=FNV1a, 3=Blake2b
	MaxJournalSize int64  // rotation threshold in bytes (default 1MB)
	SyncWrites     bool   // fsync the journal after every append
}

// withDefaults fills unset fields.
func (c Config) withDefaults() Config {
	if c.JournalName == "" {
		c.JournalName = "cwd.journal"
	}
	if c.HashAlgorithm == 0 {
		c.HashAlgorithm = AlgXXHash3
	}
	if c.MaxJournalSize == 0 {
		c.MaxJournalSize = 1024 * 1024
	}
	return c
}
