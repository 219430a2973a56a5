package vmarena

import "go.uber.org/zap"

// Arenas carry no locks. Claim and Unclaim record which worker currently
// owns an arena so that handing one arena to two workers at once is caught
// instead of corrupting the cursor.

// Claim marks the arena as owned by the caller. Claiming an arena that is
// already owned is fatal.
func (a *Arena) Claim() {
	if !a.owned.CompareAndSwap(false, true) {
		fatal("arena already owned by another worker", zap.Int("slot", a.index))
	}
}

// Unclaim releases ownership taken with Claim.
func (a *Arena) Unclaim() {
	if !a.owned.CompareAndSwap(true, false) {
		fatal("arena released without being owned", zap.Int("slot", a.index))
	}
}

// Owned reports whether the arena is currently claimed.
func (a *Arena) Owned() bool {
	return a.owned.Load()
}

// With runs fn while holding the arena's claim.
func (a *Arena) With(fn func(*Arena)) {
	a.Claim()
	defer a.Unclaim()
	fn(a)
}
