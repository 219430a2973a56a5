// Package vm is the virtual memory provider arenas are built on: reserve an
// address range without backing it, commit pages inside it on demand, and
// release the whole range at once.
package vm

import (
	"errors"
	"fmt"
	"os"

	"github.com/dustin/go-humanize"
)

// Protection is the access capability set of a mapping.
type Protection struct {
	Read    bool
	Write   bool
	Execute bool
}

// ReadWrite is the protection committed arena pages receive.
var ReadWrite = Protection{Read: true, Write: true}

// NoAccess reserves address space that faults on any access until committed.
var NoAccess = Protection{}

// MapFlags selects the kind of mapping Reserve creates.
type MapFlags struct {
	Private   bool
	Anonymous bool
	NoReserve bool
	Populate  bool
}

// ArenaMapping is the mapping used for arena reservations: private,
// anonymous, without swap reservation and not prefaulted.
var ArenaMapping = MapFlags{Private: true, Anonymous: true, NoReserve: true}

// Provider reserves, commits and releases virtual memory.
//
// Commit and Unreserve receive subslices of the slice Reserve returned;
// Unreserve must be given that exact slice.
type Provider interface {
	Reserve(size uintptr, prot Protection, flags MapFlags) ([]byte, error)
	Commit(region []byte, prot Protection, lock bool) error
	Unreserve(region []byte) error
	PageSize() int
}

var (
	ErrReserve    = errors.New("reserve failed")
	ErrCommit     = errors.New("commit failed")
	ErrUnreserve  = errors.New("unreserve failed")
	ErrPermission = errors.New("permission denied")
)

// Error reports a failed provider call. It matches its Kind, the
// underlying OS error and, for EPERM/EACCES, ErrPermission under errors.Is.
type Error struct {
	Kind error
	Size uintptr
	Err  error
}

func newError(kind error, size uintptr, err error) *Error {
	return &Error{Kind: kind, Size: size, Err: err}
}

func (e *Error) Error() string {
	return fmt.Sprintf("vm: %v (%s): %v", e.Kind, humanize.IBytes(uint64(e.Size)), e.Err)
}

func (e *Error) Unwrap() []error {
	errs := []error{e.Kind}
	if e.Err != nil {
		errs = append(errs, e.Err)
		if errors.Is(e.Err, os.ErrPermission) {
			errs = append(errs, ErrPermission)
		}
	}
	return errs
}
