package format

import "encoding/binary"

// Binary encoding utilities for big-endian integers.
//
// All integers persisted by stablekit - the root header fields, the shard
// write response, and the shard region header - are 8-byte big-endian
// values.

// PutU64 writes a uint64 value to the buffer at the specified offset in big-endian format.
func PutU64(b []byte, off int, v uint64) {
	binary.BigEndian.PutUint64(b[off:off+8], v)
}

// ReadU64 reads a uint64 value from the buffer at the specified offset in big-endian format.
func ReadU64(b []byte, off int) uint64 {
	return binary.BigEndian.Uint64(b[off : off+8])
}

// AppendU64 appends a big-endian uint64 to b and returns the extended slice.
func AppendU64(b []byte, v uint64) []byte {
	return binary.BigEndian.AppendUint64(b, v)
}
