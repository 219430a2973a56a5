package vmarena

import (
	"unsafe"

	"github.com/dustin/go-humanize"
	"go.uber.org/atomic"
	"go.uber.org/zap"

	"github.com/pavanmanishd/vmarena/vm"
)

// MinimumPosition is the offset of the first byte user allocations may
// occupy. The bytes before it hold the arena's control block.
const MinimumPosition = uint64(unsafe.Sizeof(controlBlock{}))

// controlBlock lives at the start of every arena slot.
type controlBlock struct {
	reservedSize uint64
	position     uint64
	osPosition   uint64
	granularity  uint64
}

// Arena is a bump allocator over one slot of a reserved address range.
// Memory is committed in granularity steps as the cursor moves past the
// committed watermark. Not goroutine-safe: an arena has exactly one owner.
type Arena struct {
	region  []byte
	cb      *controlBlock
	batch   *Batch
	index   int
	commits uint64
	owned   atomic.Bool
}

// Allocate returns size bytes aligned to alignment, committing more of the
// reservation if needed. The returned slice has len == cap == size.
// Running past the reserved size or failing to commit is fatal.
func (a *Arena) Allocate(size, alignment uint64) []byte {
	cb := a.control()
	aligned := a.alignedOffset(cb.position, alignment)
	end := aligned + size
	if end < aligned || end > cb.reservedSize {
		fatal("arena reservation exhausted",
			zap.Int("slot", a.index),
			zap.Uint64("size", size),
			zap.Uint64("position", cb.position),
			zap.String("reserved", humanize.IBytes(cb.reservedSize)))
	}

	if end > cb.osPosition {
		a.commit(end)
	}

	cb.position = end
	Check(cb.position <= cb.osPosition, "arena position past committed memory")
	return a.region[aligned:end:end]
}

// AllocBytes returns n pointer-aligned bytes. Returns nil if n <= 0.
func (a *Arena) AllocBytes(n int) []byte {
	if n <= 0 {
		return nil
	}
	return a.Allocate(uint64(n), uint64(unsafe.Sizeof(uintptr(0))))
}

// commit grows the committed watermark to cover end, rounded up to the
// granularity and clamped to the reservation.
func (a *Arena) commit(end uint64) {
	cb := a.cb
	target := AlignForward(end, cb.granularity)
	if target > cb.reservedSize {
		target = cb.reservedSize
	}

	b := a.batch
	if err := b.provider.Commit(a.region[cb.osPosition:target], vm.ReadWrite, b.lockPages); err != nil {
		fatal("arena commit failed",
			zap.Int("slot", a.index),
			zap.Uint64("committed", cb.osPosition),
			zap.Uint64("target", target),
			zap.Error(err))
	}

	grown := target - cb.osPosition
	cb.osPosition = target
	a.commits++
	if b.onCommit != nil {
		b.onCommit(grown)
	}
}

// ResetToStart rewinds the cursor to MinimumPosition. Committed memory is
// kept and not zeroed.
func (a *Arena) ResetToStart() {
	a.control().position = MinimumPosition
}

// SetPosition moves the cursor to pos, which must lie within committed
// memory.
func (a *Arena) SetPosition(pos uint64) {
	cb := a.control()
	Check(pos >= MinimumPosition && pos <= cb.osPosition, "arena position out of range",
		zap.Uint64("position", pos), zap.Uint64("committed", cb.osPosition))
	cb.position = pos
}

// CurrentOffset reports the offset the next allocation with the given
// alignment would start at, without advancing the cursor.
func (a *Arena) CurrentOffset(alignment uint64) uint64 {
	return a.alignedOffset(a.control().position, alignment)
}

// alignedOffset rounds pos up so that the address it maps to, not the
// offset, is a multiple of alignment. Slots are only page aligned.
func (a *Arena) alignedOffset(pos, alignment uint64) uint64 {
	base := uint64(a.Base())
	return AlignForward(base+pos, alignment) - base
}

// CurrentPointer is CurrentOffset as an address.
func (a *Arena) CurrentPointer(alignment uint64) uintptr {
	return a.Base() + uintptr(a.CurrentOffset(alignment))
}

// Since returns the bytes allocated between offset and the cursor.
func (a *Arena) Since(offset uint64) []byte {
	cb := a.control()
	Check(offset >= MinimumPosition && offset <= cb.position, "offset outside allocated range",
		zap.Uint64("offset", offset), zap.Uint64("position", cb.position))
	return a.region[offset:cb.position:cb.position]
}

// Buffer returns every byte allocated since the last reset.
func (a *Arena) Buffer() []byte {
	return a.Since(MinimumPosition)
}

// IsEmpty reports whether nothing has been allocated since the last reset.
func (a *Arena) IsEmpty() bool {
	return a.control().position == MinimumPosition
}

// Base returns the address of the arena slot, or 0 once destroyed.
func (a *Arena) Base() uintptr {
	if a.region == nil {
		return 0
	}
	return uintptr(unsafe.Pointer(unsafe.SliceData(a.region)))
}

// Slot returns the arena's index inside its batch.
func (a *Arena) Slot() int {
	return a.index
}

// Destroy releases the batch this arena heads. Only the first slot may be
// destroyed and count must cover the whole batch (0 means 1): a slot cannot
// be released while its siblings are alive.
func (a *Arena) Destroy(count int) error {
	if count == 0 {
		count = 1
	}
	a.control()
	Check(a.index == 0 && count == a.batch.Len(), "destroying part of a live arena batch",
		zap.Int("slot", a.index), zap.Int("count", count), zap.Int("batch", a.batch.Len()))
	return a.batch.Destroy()
}

func (a *Arena) control() *controlBlock {
	if a.cb == nil {
		fatal("arena used after Destroy", zap.Int("slot", a.index))
	}
	return a.cb
}
