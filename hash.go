// Checksum algorithms for journal records.
//
// Every journal record carries a 16 hex character checksum of its payload
// so read-back can distinguish a record that was written wrong from one
// that was torn by a crash. Three algorithms are supported, selectable via
// Config.HashAlgorithm.
package cwd

import (
	"fmt"
	"hash/fnv"

	"github.com/zeebo/xxh3"
	"golang.org/x/crypto/blake2b"
)

// Checksum algorithm constants.
const (
	AlgXXHash3 = 1 // Default, fastest
	AlgFNV1a   = 2 // No external dependencies
	AlgBlake2b = 3 // Best distribution
)

// checksum produces 16 hex characters over a record payload using the
// specified algorithm.
func checksum(payload string, alg int) string {
	switch alg {
	case AlgXXHash3:
		h := xxh3.HashString(payload)
		return fmt.Sprintf("%016x", h)
	case AlgFNV1a:
		h := fnv.New64a()
		h.Write([]byte(payload))
		return fmt.Sprintf("%016x", h.Sum64())
	case AlgBlake2b:
		h, _ := blake2b.New(8, nil) // 8 bytes = 64 bits
		h.Write([]byte(payload))
		return fmt.Sprintf("%016x", h.Sum(nil))
	default:
		return ""
	}
}
