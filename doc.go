// Package vmarena implements region-based memory arenas over reserved
// virtual memory.
//
// # Overview
//
// An arena reserves a large virtual address range up front (4 GiB by
// default) and commits physical pages lazily, in granularity steps, as its
// bump cursor moves forward. There is no per-allocation free: callers
// rewind with ResetToStart or release the whole reservation at once.
//
// Arenas are always created in batches. A batch is a single reservation of
// Count*ReservedSize bytes split into equally sized slots, so slot i is
// found by arithmetic alone:
//
//	batch, err := vmarena.Create(vmarena.Creation{Count: 4})
//	if err != nil {
//		return err
//	}
//	defer batch.Destroy()
//
//	a := batch.Arena(2)
//	buf := a.Allocate(1024, 16)
//	p := vmarena.Alloc[Header](a)
//
// # Memory Layout
//
// Each slot starts with its control block (reserved size, cursor, committed
// watermark, granularity). User allocations start at MinimumPosition. The
// invariant MinimumPosition <= Position <= Committed <= ReservedSize holds
// at all times.
//
// # Ownership
//
// Arenas are not goroutine-safe and have no internal locks. Exactly one
// worker may allocate from an arena at a time; Claim and Unclaim record
// that ownership and turn a double hand-off into a fatal diagnostic.
//
// # Errors
//
// Environmental failures (the operating system refusing to reserve or
// commit while a batch is being created) are returned as errors wrapping
// the vm package sentinels. Invariant violations (running past the
// reservation, destroying one slot of a live batch, a commit failing
// inside Allocate) are programming errors: they log a diagnostic with the
// caller's location and terminate the process.
//
// # Important Notes
//
//   - Allocated memory is only valid until the batch is destroyed
//   - ResetToStart neither decommits nor zeroes memory
//   - Values placed in an arena must not contain Go pointers
package vmarena
