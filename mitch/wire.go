package mitch

import "math"

// Byte-order helpers. Implemented with explicit shifts so encode and
// decode are identical on every architecture; none of them bounds-check,
// callers guarantee the slice is large enough.

func putU16(b []byte, v uint16) {
	b[0] = byte(v >> 8)
	b[1] = byte(v)
}

func getU16(b []byte) uint16 {
	return uint16(b[0])<<8 | uint16(b[1])
}

func putU32(b []byte, v uint32) {
	b[0] = byte(v >> 24)
	b[1] = byte(v >> 16)
	b[2] = byte(v >> 8)
	b[3] = byte(v)
}

func getU32(b []byte) uint32 {
	return uint32(b[0])<<24 | uint32(b[1])<<16 | uint32(b[2])<<8 | uint32(b[3])
}

func putU64(b []byte, v uint64) {
	b[0] = byte(v >> 56)
	b[1] = byte(v >> 48)
	b[2] = byte(v >> 40)
	b[3] = byte(v >> 32)
	b[4] = byte(v >> 24)
	b[5] = byte(v >> 16)
	b[6] = byte(v >> 8)
	b[7] = byte(v)
}

func getU64(b []byte) uint64 {
	return uint64(b[0])<<56 | uint64(b[1])<<48 | uint64(b[2])<<40 | uint64(b[3])<<32 |
		uint64(b[4])<<24 | uint64(b[5])<<16 | uint64(b[6])<<8 | uint64(b[7])
}

// putF64 writes the IEEE-754 bit pattern of v big-endian. The pattern is
// transferred exactly, NaN and Inf included.
func putF64(b []byte, v float64) {
	putU64(b, math.Float64bits(v))
}

func getF64(b []byte) float64 {
	return math.Float64frombits(getU64(b))
}

// Timestamp48 is a 48-bit unsigned nanosecond count held in wire order
// (big-endian). Header timestamps and order expiries use it; the codec
// carries the six bytes verbatim and never reinterprets them.
type Timestamp48 [6]byte

// NewTimestamp48 truncates ns to 48 bits and stores it in wire order.
func NewTimestamp48(ns uint64) Timestamp48 {
	var t Timestamp48
	t[0] = byte(ns >> 40)
	t[1] = byte(ns >> 32)
	t[2] = byte(ns >> 24)
	t[3] = byte(ns >> 16)
	t[4] = byte(ns >> 8)
	t[5] = byte(ns)
	return t
}

// Nanos returns the timestamp as a 64-bit nanosecond count.
func (t Timestamp48) Nanos() uint64 {
	return uint64(t[0])<<40 | uint64(t[1])<<32 | uint64(t[2])<<24 |
		uint64(t[3])<<16 | uint64(t[4])<<8 | uint64(t[5])
}
