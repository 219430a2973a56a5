package vmarena

import (
	"math"
	"unsafe"

	"go.uber.org/zap"
)

// The typed helpers place values in memory the Go collector does not scan.
// T must not contain Go pointers (pointers, slices, strings, maps, chans,
// funcs or interfaces).

// Alloc returns a pointer to a zeroed T stored inside the arena.
func Alloc[T any](a *Arena) *T {
	p := AllocUninitialized[T](a)
	var zero T
	*p = zero
	return p
}

// AllocUninitialized returns a *T located in the arena without zeroing it.
// After ResetToStart the memory may still hold earlier contents.
func AllocUninitialized[T any](a *Arena) *T {
	var zero T
	b := a.Allocate(uint64(unsafe.Sizeof(zero)), uint64(unsafe.Alignof(zero)))
	return (*T)(unsafe.Pointer(unsafe.SliceData(b)))
}

// AllocSlice allocates n elements of type T. The elements are not
// initialized. Returns nil if n <= 0.
func AllocSlice[T any](a *Arena, n int) []T {
	if n <= 0 {
		return nil
	}
	var zero T
	elemSize := uint64(unsafe.Sizeof(zero))
	Check(elemSize == 0 || uint64(n) <= math.MaxUint64/elemSize, "slice allocation overflows",
		zap.Int("n", n), zap.Uint64("elem", elemSize))
	b := a.Allocate(elemSize*uint64(n), uint64(unsafe.Alignof(zero)))
	return unsafe.Slice((*T)(unsafe.Pointer(unsafe.SliceData(b))), n)
}

// AllocSliceZeroed allocates n zeroed elements of type T.
func AllocSliceZeroed[T any](a *Arena, n int) []T {
	s := AllocSlice[T](a, n)
	clear(s)
	return s
}

// DuplicateString copies s into the arena, optionally followed by a NUL
// byte. The returned slice excludes the terminator.
func DuplicateString(a *Arena, s string, zeroTerminate bool) []byte {
	b := a.Allocate(uint64(len(s))+terminator(zeroTerminate), 1)
	n := copy(b, s)
	if zeroTerminate {
		b[n] = 0
	}
	return b[:n:n]
}

// JoinStrings concatenates parts into one arena allocation, optionally
// followed by a NUL byte. The returned slice excludes the terminator.
func JoinStrings(a *Arena, parts []string, zeroTerminate bool) []byte {
	var length uint64
	for _, p := range parts {
		length += uint64(len(p))
	}

	b := a.Allocate(length+terminator(zeroTerminate), 1)
	i := 0
	for _, p := range parts {
		i += copy(b[i:], p)
	}
	Check(uint64(i) == length, "joined length mismatch")
	if zeroTerminate {
		b[i] = 0
	}
	return b[:i:i]
}

func terminator(zeroTerminate bool) uint64 {
	if zeroTerminate {
		return 1
	}
	return 0
}
