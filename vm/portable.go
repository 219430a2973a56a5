package vm

import (
	"errors"
	"os"

	"github.com/edsrzf/mmap-go"
)

var errEmptyRegion = errors.New("empty region")

// Portable maps the whole range readable and writable up front through
// mmap-go. Commit only prefaults when locking is requested, so the reserved
// ceiling is not enforced by the hardware on this provider.
type Portable struct{}

func (Portable) PageSize() int { return os.Getpagesize() }

func (Portable) Reserve(size uintptr, prot Protection, _ MapFlags) ([]byte, error) {
	if size == 0 {
		return nil, newError(ErrReserve, size, errEmptyRegion)
	}
	mode := mmap.RDWR
	if prot.Execute {
		mode |= mmap.EXEC
	}
	m, err := mmap.MapRegion(nil, int(size), mode, mmap.ANON, 0)
	if err != nil {
		return nil, newError(ErrReserve, size, err)
	}
	return m, nil
}

func (Portable) Commit(region []byte, _ Protection, lock bool) error {
	if len(region) == 0 || !lock {
		return nil
	}
	m := mmap.MMap(region)
	if m.Lock() == nil {
		_ = m.Unlock()
	}
	return nil
}

func (Portable) Unreserve(region []byte) error {
	if len(region) == 0 {
		return newError(ErrUnreserve, 0, errEmptyRegion)
	}
	m := mmap.MMap(region)
	if err := m.Unmap(); err != nil {
		return newError(ErrUnreserve, uintptr(len(region)), err)
	}
	return nil
}
