package badger

import (
	"encoding/binary"

	"github.com/poiesic/vecsync/core"
)

// Key prefixes for different data types
const (
	recordPrefix = "fprec:"
)

// makeRecordKey generates a key for a record from its path-derived ID.
// Format: prefix + 8 byte big endian ID
func makeRecordKey(filePath string) []byte {
	prefixBytes := []byte(recordPrefix)
	buf := make([]byte, len(prefixBytes)+8)
	offset := copy(buf, prefixBytes)
	binary.BigEndian.PutUint64(buf[offset:], uint64(core.IDFromPath(filePath)))
	return buf
}
