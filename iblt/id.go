package iblt

import (
	"bytes"
	"encoding/hex"
	"fmt"

	"go.uber.org/zap/zapcore"
)

// IDSize is the size of an identifier in bytes.
const IDSize = 32

// ID is a fixed-size identifier stored in a Table, typically a content hash.
type ID [IDSize]byte

// IDFromBytes converts a byte slice to an ID.
func IDFromBytes(b []byte) (ID, error) {
	var id ID
	if len(b) != IDSize {
		return id, fmt.Errorf("bad id length %d, expected %d", len(b), IDSize)
	}
	copy(id[:], b)
	return id, nil
}

// Bytes returns the identifier as a byte slice.
func (id ID) Bytes() []byte {
	return id[:]
}

// String implements fmt.Stringer.
func (id ID) String() string {
	return hex.EncodeToString(id[:])
}

// ShortString returns the first 5 bytes of the ID in hex, for logging.
func (id ID) ShortString() string {
	return hex.EncodeToString(id[:5])
}

// Compare compares two identifiers lexicographically.
func (id ID) Compare(other ID) int {
	return bytes.Compare(id[:], other[:])
}

// IsZero returns true if all bytes of the ID are zero.
func (id ID) IsZero() bool {
	return id == ID{}
}

func (id *ID) xor(other *ID) {
	for i := range id {
		id[i] ^= other[i]
	}
}

// IDs is a list of identifiers that can be logged compactly.
type IDs []ID

var _ zapcore.ArrayMarshaler = IDs(nil)

// MarshalLogArray implements zapcore.ArrayMarshaler.
func (ids IDs) MarshalLogArray(enc zapcore.ArrayEncoder) error {
	for n, id := range ids {
		if n == 3 {
			enc.AppendString("...")
			break
		}
		enc.AppendString(id.ShortString())
	}
	return nil
}
