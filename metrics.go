package vmarena

// SizeInUse returns the number of bytes allocated since the last reset,
// including alignment padding.
func (a *Arena) SizeInUse() uint64 {
	if a.cb == nil {
		return 0
	}
	return a.cb.position - MinimumPosition
}

// Position returns the cursor offset from the start of the slot.
func (a *Arena) Position() uint64 {
	if a.cb == nil {
		return 0
	}
	return a.cb.position
}

// Committed returns the number of bytes of the slot backed by memory.
func (a *Arena) Committed() uint64 {
	if a.cb == nil {
		return 0
	}
	return a.cb.osPosition
}

// ReservedSize returns the address space reserved for the slot.
func (a *Arena) ReservedSize() uint64 {
	if a.cb == nil {
		return 0
	}
	return a.cb.reservedSize
}

// Granularity returns the step committed memory grows by.
func (a *Arena) Granularity() uint64 {
	if a.cb == nil {
		return 0
	}
	return a.cb.granularity
}

// Commits returns how many growth commits the arena has issued since
// creation. The initial commit is not counted.
func (a *Arena) Commits() uint64 {
	return a.commits
}

// Utilization returns the ratio of bytes in use to committed bytes
// (0.0 to 1.0). Returns 0.0 if nothing is committed.
func (a *Arena) Utilization() float64 {
	committed := a.Committed()
	if committed == 0 {
		return 0
	}
	return float64(a.SizeInUse()) / float64(committed)
}

// Metrics returns a snapshot of arena statistics.
func (a *Arena) Metrics() ArenaMetrics {
	return ArenaMetrics{
		SizeInUse:   a.SizeInUse(),
		Committed:   a.Committed(),
		Reserved:    a.ReservedSize(),
		Granularity: a.Granularity(),
		Commits:     a.Commits(),
		Utilization: a.Utilization(),
	}
}

// ArenaMetrics contains statistical information about an arena.
type ArenaMetrics struct {
	SizeInUse   uint64  // Bytes allocated since the last reset
	Committed   uint64  // Bytes backed by memory
	Reserved    uint64  // Address space reserved
	Granularity uint64  // Commit step
	Commits     uint64  // Growth commits issued
	Utilization float64 // SizeInUse / Committed (0.0-1.0)
}
