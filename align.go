package vmarena

import (
	"bytes"
	"unsafe"

	"go.uber.org/zap"
)

// IsPowerOfTwo reports whether n is a non-zero power of two.
func IsPowerOfTwo(n uint64) bool {
	return n != 0 && n&(n-1) == 0
}

// AlignForward rounds n up to the next multiple of alignment, which must be
// a power of two.
func AlignForward(n, alignment uint64) uint64 {
	Check(IsPowerOfTwo(alignment), "alignment is not a power of two", zap.Uint64("alignment", alignment))
	mask := alignment - 1
	return (n + mask) &^ mask
}

// MemoryCompare reports whether a and b hold the same bytes. Comparing a
// range against itself is a caller bug.
func MemoryCompare(a, b []byte) bool {
	if len(a) != len(b) {
		return false
	}
	if len(a) == 0 {
		return true
	}
	Check(unsafe.SliceData(a) != unsafe.SliceData(b), "memory range compared with itself")
	return bytes.Equal(a, b)
}
