package vmarena

import "testing"

func TestFlagSetGet(t *testing.T) {
	const count = 130
	flags := make([]uint64, 3)

	for _, i := range []int{0, 7, 63, 64, 129} {
		FlagSet(flags, count, i, true)
		if !FlagGet(flags, count, i) {
			t.Errorf("FlagGet(%d) = false after set", i)
		}
	}
	if FlagGet(flags, count, 1) {
		t.Error("FlagGet(1) = true, never set")
	}
	if flags[1] != 1 {
		t.Errorf("word 1 = %#x, want bit 64 only", flags[1])
	}

	FlagSet(flags, count, 63, false)
	if FlagGet(flags, count, 63) {
		t.Error("FlagGet(63) = true after clear")
	}
	if !FlagGet(flags, count, 7) {
		t.Error("clearing bit 63 cleared bit 7")
	}
}

func TestFlagOutOfRangeIsFatal(t *testing.T) {
	flags := make([]uint64, 1)

	expectFatal(t, func() { FlagGet(flags, 3, 3) })
	expectFatal(t, func() { FlagSet(flags, 3, -1, true) })
	expectFatal(t, func() { FlagSet(flags, 100, 70, true) })
}
