package util

import (
	"bytes"
	"strconv"

	"github.com/cespare/xxhash/v2"
)

// ContentHash returns the content identity of b: a fixed width hex xxhash64.
// Equal bytes always give equal hashes across runs and machines.
func ContentHash(b []byte) string {
	s := strconv.FormatUint(xxhash.Sum64(b), 16)
	for len(s) < 16 {
		s = "0" + s
	}
	return s
}

// CountLines returns the number of line breaks in b plus one.
func CountLines(b []byte) int {
	return bytes.Count(b, []byte{'\n'}) + 1
}

// IsBinary reports whether the first 8000 bytes of b contain a NUL byte.
func IsBinary(b []byte) bool {
	if len(b) > 8000 {
		b = b[:8000]
	}
	return bytes.IndexByte(b, 0) >= 0
}
