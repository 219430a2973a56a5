package vmarena

import (
	"fmt"
	"testing"
	"unsafe"
)

func TestAllocateAlignment(t *testing.T) {
	a := mustCreate(t, smallCreation(1)).Arena(0)
	end := a.Base() + uintptr(a.ReservedSize())

	sizes := []uint64{1, 3, 7, 16, 100, 513, 4095}
	alignments := []uint64{1, 2, 4, 8, 16, 64, 256, 4096}

	for _, align := range alignments {
		for _, size := range sizes {
			b := a.Allocate(size, align)
			p := uintptr(unsafe.Pointer(unsafe.SliceData(b)))
			if p%uintptr(align) != 0 {
				t.Errorf("Allocate(%d, %d) = %#x, not aligned", size, align, p)
			}
			if p+uintptr(size) > end {
				t.Errorf("Allocate(%d, %d) ends past the reservation", size, align)
			}
			if uint64(len(b)) != size || uint64(cap(b)) != size {
				t.Errorf("Allocate(%d, %d) len/cap = %d/%d, want %d", size, align, len(b), cap(b), size)
			}
		}
	}
}

func TestAllocateAlignmentAbovePageSize(t *testing.T) {
	c := smallCreation(2)
	c.ReservedSize = 8<<20 + pageSize
	b := mustCreate(t, c)

	for slot := range b.Len() {
		a := b.Arena(slot)
		for _, align := range []uint64{2 * pageSize, 64 << 10, 1 << 20} {
			for _, size := range []uint64{1, 100} {
				off := a.CurrentOffset(align)
				buf := a.Allocate(size, align)
				p := uintptr(unsafe.Pointer(unsafe.SliceData(buf)))
				if p%uintptr(align) != 0 {
					t.Errorf("slot %d: Allocate(%d, %d) = %#x, not aligned", slot, size, align, p)
				}
				if p != a.Base()+uintptr(off) {
					t.Errorf("slot %d: Allocate(%d, %d) = %#x, CurrentOffset predicted %#x", slot, size, align, p, a.Base()+uintptr(off))
				}
			}
		}
	}
}

func TestAllocateMonotonic(t *testing.T) {
	a := mustCreate(t, smallCreation(1)).Arena(0)

	prevPos, prevCommitted := a.Position(), a.Committed()
	for i := range 200 {
		a.Allocate(uint64(i*37%500+1), 1<<(i%5))

		pos, committed := a.Position(), a.Committed()
		if pos < prevPos {
			t.Fatalf("position went backwards: %d -> %d", prevPos, pos)
		}
		if committed < prevCommitted {
			t.Fatalf("committed went backwards: %d -> %d", prevCommitted, committed)
		}
		if committed < pos {
			t.Fatalf("committed %d below position %d", committed, pos)
		}
		prevPos, prevCommitted = pos, committed
	}
}

func TestAllocationsDoNotOverlap(t *testing.T) {
	a := mustCreate(t, smallCreation(1)).Arena(0)

	var blocks [][]byte
	for i := range 64 {
		b := a.Allocate(uint64(i+1)*13, 8)
		for j := range b {
			b[j] = byte(i)
		}
		blocks = append(blocks, b)
	}
	for i, b := range blocks {
		for _, v := range b {
			if v != byte(i) {
				t.Fatalf("block %d was overwritten", i)
			}
		}
	}
}

func TestInitialSizeAvoidsCommits(t *testing.T) {
	p := newRecordingProvider()
	c := smallCreation(1)
	c.InitialSize = 4 * pageSize
	c.Provider = p
	a := mustCreate(t, c).Arena(0)
	p.commits = nil

	budget := c.InitialSize - MinimumPosition
	for used := uint64(0); used+64 <= budget; used += 64 {
		a.Allocate(64, 1)
	}
	if len(p.commits) != 0 {
		t.Fatalf("commits within initial size = %d, want 0", len(p.commits))
	}
	if a.Committed() != c.InitialSize {
		t.Fatalf("Committed() = %d, want %d", a.Committed(), c.InitialSize)
	}

	need := 2*pageSize + 1
	end := a.CurrentOffset(1) + need
	a.Allocate(need, 1)

	if len(p.commits) != 1 {
		t.Fatalf("commits after overflow = %d, want 1", len(p.commits))
	}
	want := AlignForward(end, pageSize)
	if a.Committed() != want {
		t.Errorf("Committed() = %d, want %d", a.Committed(), want)
	}
	if uint64(p.commits[0]) != want-c.InitialSize {
		t.Errorf("commit size = %d, want %d", p.commits[0], want-c.InitialSize)
	}
	if a.Commits() != 1 {
		t.Errorf("Commits() = %d, want 1", a.Commits())
	}
}

func TestGrowthScenario(t *testing.T) {
	if pageSize != 4096 {
		t.Skipf("scenario assumes 4 KiB pages, have %d", pageSize)
	}
	b := mustCreate(t, Creation{Granularity: 4096, InitialSize: 4096, Count: 1})
	a := b.Arena(0)

	first := a.Allocate(1, 1)
	if got := uintptr(unsafe.Pointer(unsafe.SliceData(first))) - a.Base(); got != uintptr(MinimumPosition) {
		t.Errorf("first allocation offset = %d, want %d", got, MinimumPosition)
	}
	if a.Committed() != 4096 {
		t.Errorf("Committed() after 1 byte = %d, want 4096", a.Committed())
	}

	a.Allocate(8192, 1)
	if want := AlignForward(MinimumPosition+1+8192, 4096); a.Committed() < want {
		t.Errorf("Committed() after 8 KiB = %d, want >= %d", a.Committed(), want)
	}
}

func TestResetToStartReplaysOffsets(t *testing.T) {
	a := mustCreate(t, smallCreation(1)).Arena(0)

	type req struct{ size, align uint64 }
	seq := []req{{1, 1}, {24, 8}, {3, 2}, {4096, 64}, {9, 16}, {1000, 4}}

	run := func() []uint64 {
		var offs []uint64
		for _, r := range seq {
			b := a.Allocate(r.size, r.align)
			offs = append(offs, uint64(uintptr(unsafe.Pointer(unsafe.SliceData(b)))-a.Base()))
		}
		return offs
	}

	first := run()
	committed := a.Committed()
	a.ResetToStart()
	if !a.IsEmpty() || a.SizeInUse() != 0 {
		t.Fatalf("arena not empty after ResetToStart: in use %d", a.SizeInUse())
	}
	if a.Committed() != committed {
		t.Errorf("ResetToStart changed committed memory: %d -> %d", committed, a.Committed())
	}

	second := run()
	for i := range first {
		if first[i] != second[i] {
			t.Errorf("offset %d after reset = %d, want %d", i, second[i], first[i])
		}
	}
}

func TestResetDoesNotZero(t *testing.T) {
	a := mustCreate(t, smallCreation(1)).Arena(0)

	b := a.Allocate(16, 1)
	copy(b, "leftover content")
	a.ResetToStart()

	again := a.Allocate(16, 1)
	if string(again) != "leftover content" {
		t.Errorf("memory after reset = %q, want previous contents", again)
	}
}

func TestCurrentOffset(t *testing.T) {
	a := mustCreate(t, smallCreation(1)).Arena(0)

	a.Allocate(3, 1)
	pos := a.Position()
	off := a.CurrentOffset(16)
	if off%16 != 0 || off < pos {
		t.Errorf("CurrentOffset(16) = %d with position %d", off, pos)
	}
	if a.Position() != pos {
		t.Errorf("CurrentOffset advanced position to %d", a.Position())
	}
	if got := a.CurrentPointer(16); got != a.Base()+uintptr(off) {
		t.Errorf("CurrentPointer(16) = %#x, want %#x", got, a.Base()+uintptr(off))
	}

	b := a.Allocate(8, 16)
	if uintptr(unsafe.Pointer(unsafe.SliceData(b))) != a.Base()+uintptr(off) {
		t.Error("allocation did not land on the reported current pointer")
	}
}

func TestSinceAndBuffer(t *testing.T) {
	a := mustCreate(t, smallCreation(1)).Arena(0)

	start := a.Position()
	copy(a.Allocate(5, 1), "hello")
	copy(a.Allocate(6, 1), " world")

	if got := string(a.Since(start)); got != "hello world" {
		t.Errorf("Since(start) = %q, want %q", got, "hello world")
	}
	if got := string(a.Buffer()); got != "hello world" {
		t.Errorf("Buffer() = %q, want %q", got, "hello world")
	}
}

func TestSetPosition(t *testing.T) {
	a := mustCreate(t, smallCreation(1)).Arena(0)

	mark := a.Position()
	a.Allocate(100, 1)
	a.SetPosition(mark)
	if a.Position() != mark {
		t.Errorf("Position() = %d, want %d", a.Position(), mark)
	}

	expectFatal(t, func() { a.SetPosition(MinimumPosition - 1) })
	expectFatal(t, func() { a.SetPosition(a.Committed() + 1) })
}

func TestAllocBytes(t *testing.T) {
	a := mustCreate(t, smallCreation(1)).Arena(0)

	tests := []struct {
		n    int
		want int
	}{
		{100, 100},
		{0, 0},
		{-1, 0},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprintf("n=%d", tt.n), func(t *testing.T) {
			b := a.AllocBytes(tt.n)
			if len(b) != tt.want {
				t.Errorf("AllocBytes(%d) length = %d, want %d", tt.n, len(b), tt.want)
			}
			if tt.want == 0 && b != nil {
				t.Errorf("AllocBytes(%d) = %v, want nil", tt.n, b)
			}
			if b != nil && uintptr(unsafe.Pointer(&b[0]))%unsafe.Sizeof(uintptr(0)) != 0 {
				t.Errorf("AllocBytes(%d) not pointer aligned", tt.n)
			}
		})
	}
}

func TestAllocateToCeiling(t *testing.T) {
	c := smallCreation(1)
	a := mustCreate(t, c).Arena(0)

	b := a.Allocate(c.ReservedSize-MinimumPosition, 1)
	b[len(b)-1] = 1
	if a.Committed() != c.ReservedSize {
		t.Errorf("Committed() = %d, want %d", a.Committed(), c.ReservedSize)
	}
}

func TestExhaustionIsFatal(t *testing.T) {
	c := smallCreation(1)
	a := mustCreate(t, c).Arena(0)

	expectFatal(t, func() { a.Allocate(c.ReservedSize, 1) })
	expectFatal(t, func() { a.Allocate(^uint64(0)-8, 1) })
}

func TestCommitFailureIsFatal(t *testing.T) {
	p := newRecordingProvider()
	c := smallCreation(1)
	c.Provider = p
	a := mustCreate(t, c).Arena(0)

	p.failCommit = true
	expectFatal(t, func() { a.Allocate(2*pageSize, 1) })
	if a.Committed() != c.InitialSize {
		t.Errorf("Committed() after failed commit = %d, want %d", a.Committed(), c.InitialSize)
	}
}

func TestBadAlignmentIsFatal(t *testing.T) {
	a := mustCreate(t, smallCreation(1)).Arena(0)
	expectFatal(t, func() { a.Allocate(8, 3) })
	expectFatal(t, func() { a.Allocate(8, 0) })
}

func TestUseAfterDestroy(t *testing.T) {
	b, err := Create(smallCreation(1))
	if err != nil {
		t.Fatal(err)
	}
	a := b.Arena(0)
	if err := a.Destroy(0); err != nil {
		t.Fatalf("Destroy(0) error = %v", err)
	}

	if a.Base() != 0 || a.Committed() != 0 {
		t.Error("destroyed arena still reports memory")
	}
	expectFatal(t, func() { a.Allocate(1, 1) })
	expectFatal(t, func() { a.ResetToStart() })
}
