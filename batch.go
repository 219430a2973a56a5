package vmarena

import (
	"math"
	"unsafe"

	"github.com/dustin/go-humanize"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/pavanmanishd/vmarena/vm"
)

const (
	// DefaultReservedSize is the address space reserved per arena (4 GiB).
	DefaultReservedSize uint64 = 4 << 30
	// DefaultGranularity is the commit step (2 MiB).
	DefaultGranularity uint64 = 2 << 20

	initialSizeGranularityFactor = 4
)

// ErrInvalidCreation is returned by Create for parameters that cannot
// describe a valid batch.
var ErrInvalidCreation = errors.New("invalid arena creation")

// Creation describes a batch of arenas. Zero fields take defaults:
// ReservedSize 4 GiB, Granularity 2 MiB, InitialSize four granularity steps
// (capped at ReservedSize), Count 1, Provider vm.Default().
type Creation struct {
	ReservedSize uint64
	Granularity  uint64
	InitialSize  uint64
	Count        int

	// LockPages prefaults committed ranges by locking and unlocking them.
	LockPages bool
	Provider  vm.Provider
	// OnCommit is called with the number of bytes every growth commit adds.
	OnCommit func(bytes uint64)
}

func (c Creation) withDefaults() Creation {
	if c.ReservedSize == 0 {
		c.ReservedSize = DefaultReservedSize
	}
	if c.Granularity == 0 {
		c.Granularity = DefaultGranularity
	}
	if c.InitialSize == 0 {
		c.InitialSize = min(c.Granularity*initialSizeGranularityFactor, c.ReservedSize)
	}
	if c.Count == 0 {
		c.Count = 1
	}
	if c.Provider == nil {
		c.Provider = vm.Default()
	}
	return c
}

func (c Creation) validate() error {
	page := uint64(c.Provider.PageSize())
	switch {
	case c.Count < 0:
		return errors.Wrapf(ErrInvalidCreation, "negative count %d", c.Count)
	case !IsPowerOfTwo(c.Granularity) || c.Granularity%page != 0:
		return errors.Wrapf(ErrInvalidCreation, "granularity %d is not a power-of-two multiple of the %d byte page", c.Granularity, page)
	case c.ReservedSize%page != 0:
		return errors.Wrapf(ErrInvalidCreation, "reserved size %d is not a page multiple", c.ReservedSize)
	case c.InitialSize%page != 0 || c.InitialSize < MinimumPosition:
		return errors.Wrapf(ErrInvalidCreation, "initial size %d is not a page multiple", c.InitialSize)
	case c.InitialSize > c.ReservedSize:
		return errors.Wrapf(ErrInvalidCreation, "initial size %s exceeds reserved size %s",
			humanize.IBytes(c.InitialSize), humanize.IBytes(c.ReservedSize))
	case c.ReservedSize > math.MaxInt/uint64(c.Count):
		return errors.Wrapf(ErrInvalidCreation, "%d arenas of %s overflow the address space",
			c.Count, humanize.IBytes(c.ReservedSize))
	}
	return nil
}

// Batch is one reservation split into equally sized arena slots. Slot i
// starts at Base() + i*ReservedSize.
type Batch struct {
	region       []byte
	arenas       []*Arena
	reservedSize uint64
	provider     vm.Provider
	lockPages    bool
	onCommit     func(uint64)
}

// Create reserves Count*ReservedSize bytes in a single call and commits
// InitialSize bytes at the start of every slot.
func Create(c Creation) (*Batch, error) {
	c = c.withDefaults()
	if err := c.validate(); err != nil {
		return nil, err
	}

	total := c.ReservedSize * uint64(c.Count)
	region, err := c.Provider.Reserve(uintptr(total), vm.NoAccess, vm.ArenaMapping)
	if err != nil {
		return nil, errors.Wrapf(err, "reserve %d arena(s) of %s", c.Count, humanize.IBytes(c.ReservedSize))
	}

	b := &Batch{
		region:       region,
		arenas:       make([]*Arena, c.Count),
		reservedSize: c.ReservedSize,
		provider:     c.Provider,
		lockPages:    c.LockPages,
		onCommit:     c.OnCommit,
	}

	for i := range c.Count {
		start := uint64(i) * c.ReservedSize
		end := start + c.ReservedSize
		slot := region[start:end:end]

		if err := c.Provider.Commit(slot[:c.InitialSize], vm.ReadWrite, c.LockPages); err != nil {
			if uerr := c.Provider.Unreserve(region); uerr != nil {
				logger.Warn("failed to release partially created arena batch", zap.Error(uerr))
			}
			return nil, errors.Wrapf(err, "commit initial %s of arena %d", humanize.IBytes(c.InitialSize), i)
		}

		cb := (*controlBlock)(unsafe.Pointer(unsafe.SliceData(slot)))
		*cb = controlBlock{
			reservedSize: c.ReservedSize,
			position:     MinimumPosition,
			osPosition:   c.InitialSize,
			granularity:  c.Granularity,
		}
		b.arenas[i] = &Arena{region: slot, cb: cb, batch: b, index: i}
	}

	return b, nil
}

// New creates a standalone arena: a batch of one.
func New(c Creation) (*Arena, error) {
	c.Count = 1
	b, err := Create(c)
	if err != nil {
		return nil, err
	}
	return b.Arena(0), nil
}

// Arena returns slot i.
func (b *Batch) Arena(i int) *Arena {
	Check(i >= 0 && i < len(b.arenas), "arena slot out of range", zap.Int("slot", i), zap.Int("count", len(b.arenas)))
	return b.arenas[i]
}

// Arenas returns every slot in order.
func (b *Batch) Arenas() []*Arena {
	return append([]*Arena(nil), b.arenas...)
}

// Len returns the number of slots.
func (b *Batch) Len() int {
	return len(b.arenas)
}

// SlotSize returns the reserved size of each slot.
func (b *Batch) SlotSize() uint64 {
	return b.reservedSize
}

// Base returns the start address of the reservation, or 0 once destroyed.
func (b *Batch) Base() uintptr {
	if b.region == nil {
		return 0
	}
	return uintptr(unsafe.Pointer(unsafe.SliceData(b.region)))
}

// Destroy unreserves the whole batch in one call. Every slot becomes
// unusable; touching one afterwards is fatal.
func (b *Batch) Destroy() error {
	Check(b.region != nil, "arena batch destroyed twice")
	if err := b.provider.Unreserve(b.region); err != nil {
		return errors.Wrap(err, "unreserve arena batch")
	}
	for _, a := range b.arenas {
		a.region = nil
		a.cb = nil
	}
	b.region = nil
	return nil
}
