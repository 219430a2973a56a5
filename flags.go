package vmarena

import "go.uber.org/zap"

const flagWordBits = 64

// FlagSet sets bit index of a count-bit flag set stored in flags.
func FlagSet(flags []uint64, count, index int, value bool) {
	word, bit := flagPosition(flags, count, index)
	mask := uint64(1) << bit
	if value {
		flags[word] |= mask
	} else {
		flags[word] &^= mask
	}
}

// FlagGet reports bit index of a count-bit flag set stored in flags.
func FlagGet(flags []uint64, count, index int) bool {
	word, bit := flagPosition(flags, count, index)
	return flags[word]&(uint64(1)<<bit) != 0
}

func flagPosition(flags []uint64, count, index int) (int, uint) {
	Check(index >= 0 && index < count, "flag index out of range", zap.Int("index", index), zap.Int("count", count))
	word := index / flagWordBits
	Check(word < len(flags), "flag storage too small", zap.Int("index", index), zap.Int("words", len(flags)))
	return word, uint(index % flagWordBits)
}
