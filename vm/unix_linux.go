//go:build linux

package vm

import (
	"golang.org/x/sys/unix"
)

// Unix reserves address space with PROT_NONE and commits it with mprotect,
// so touching memory past the committed watermark faults.
type Unix struct{}

func Default() Provider { return Unix{} }

func (Unix) PageSize() int { return unix.Getpagesize() }

func (Unix) Reserve(size uintptr, prot Protection, flags MapFlags) ([]byte, error) {
	if size == 0 {
		return nil, newError(ErrReserve, size, unix.EINVAL)
	}
	b, err := unix.Mmap(-1, 0, int(size), posixProtection(prot), posixMapFlags(flags))
	if err != nil {
		return nil, newError(ErrReserve, size, err)
	}
	return b, nil
}

func (Unix) Commit(region []byte, prot Protection, lock bool) error {
	if len(region) == 0 {
		return nil
	}
	if err := unix.Mprotect(region, posixProtection(prot)); err != nil {
		return newError(ErrCommit, uintptr(len(region)), err)
	}
	if lock {
		// Best effort prefault; RLIMIT_MEMLOCK commonly refuses large ranges.
		if unix.Mlock(region) == nil {
			_ = unix.Munlock(region)
		}
	}
	return nil
}

func (Unix) Unreserve(region []byte) error {
	if err := unix.Munmap(region); err != nil {
		return newError(ErrUnreserve, uintptr(len(region)), err)
	}
	return nil
}

func posixProtection(p Protection) int {
	prot := unix.PROT_NONE
	if p.Read {
		prot |= unix.PROT_READ
	}
	if p.Write {
		prot |= unix.PROT_WRITE
	}
	if p.Execute {
		prot |= unix.PROT_EXEC
	}
	return prot
}

func posixMapFlags(f MapFlags) int {
	flags := 0
	if f.Private {
		flags |= unix.MAP_PRIVATE
	} else {
		flags |= unix.MAP_SHARED
	}
	if f.Anonymous {
		flags |= unix.MAP_ANONYMOUS
	}
	if f.NoReserve {
		flags |= unix.MAP_NORESERVE
	}
	if f.Populate {
		flags |= unix.MAP_POPULATE
	}
	return flags
}
