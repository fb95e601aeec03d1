package domain

import "lupine/internal/xdecimal"

// UserBalance is the per-user, per-instrument accounting record of spec §3.
// Invariant B1: all four quantities are non-negative at every observable
// point. Invariant B2: conservation of (free+locked) per asset across trade
// settlement, modulo the §4.3 settlement rule.
type UserBalance struct {
	UserID       UserID
	FreeBase     xdecimal.Decimal
	FreeQuote    xdecimal.Decimal
	LockedBase   xdecimal.Decimal
	LockedQuote  xdecimal.Decimal
}

// Nonnegative reports whether B1 holds for this snapshot.
func (b *UserBalance) Nonnegative() bool {
	return xdecimal.IsPositiveOrZero(b.FreeBase) &&
		xdecimal.IsPositiveOrZero(b.FreeQuote) &&
		xdecimal.IsPositiveOrZero(b.LockedBase) &&
		xdecimal.IsPositiveOrZero(b.LockedQuote)
}
