// Package ledger implements the BalanceLedger of spec §4.2: per-user
// free/locked accounting in both assets, with lock/unlock/settle operations
// that preserve Invariant B1 (all four quantities non-negative) or fail
// atomically with domain.ErrInsufficientFunds.
//
// Ledger exposes no cross-user atomic primitive — the caller (matching.Core)
// drives both sides of a trade by calling SettleTrade once per participant
// under the engine's single-threaded discipline, exactly as spec §4.2
// specifies. Grounded on original_source/service/engine/balance.rs, adapted
// from "unwrap-and-panic" Rust to checked Go errors.
package ledger

import (
	"fmt"

	"lupine/internal/domain"
	"lupine/internal/xdecimal"
)

type Ledger struct {
	balances map[domain.UserID]*domain.UserBalance
}

func New() *Ledger {
	return &Ledger{balances: make(map[domain.UserID]*domain.UserBalance)}
}

// Load seeds the ledger from a durable-store snapshot (spec §4.8 boot load).
// Balances are loaded as-is; no reconciliation against open-order locks is
// performed, per spec — that is caller responsibility.
func (l *Ledger) Load(balances []domain.UserBalance) {
	for i := range balances {
		b := balances[i]
		l.balances[b.UserID] = &b
	}
}

// Register creates an empty balance row for a newly signed-up user. Signup
// itself is an external collaborator (spec §1); the engine only needs a
// balance row to exist before it will accept orders from that user.
func (l *Ledger) Register(userID domain.UserID) {
	if _, ok := l.balances[userID]; ok {
		return
	}
	l.balances[userID] = &domain.UserBalance{UserID: userID}
}

// Snapshot returns a copy of a user's balance, or ok=false if unknown.
func (l *Ledger) Snapshot(userID domain.UserID) (domain.UserBalance, bool) {
	b, ok := l.balances[userID]
	if !ok {
		return domain.UserBalance{}, false
	}
	return *b, true
}

// All returns a copy of every tracked balance, in no particular order.
func (l *Ledger) All() []domain.UserBalance {
	out := make([]domain.UserBalance, 0, len(l.balances))
	for _, b := range l.balances {
		out = append(out, *b)
	}
	return out
}

// LockFunds reserves the funds a new order requires before it is persisted
// or matched (spec §4.2, §4.4 step 2, §4.5). For a Bid, the required
// quote is args.QuoteQty; for an Ask, the required base is args.BaseQty.
//
// Open Question 1 (SPEC_FULL.md §9): the source lets lock_funds succeed with
// a positive "deposit" (i.e. over-locking unfunded balance) by crediting
// locked funds beyond what was free. This port instead rejects with
// ErrInsufficientFunds whenever the requested amount exceeds what is free —
// the spec-recommended correct behavior.
func (l *Ledger) LockFunds(userID domain.UserID, side domain.Side, baseQty, quoteQty xdecimal.Decimal) error {
	b, ok := l.balances[userID]
	if !ok {
		return domain.ErrUnknownUser
	}

	switch side {
	case domain.Bid:
		if quoteQty.GreaterThan(b.FreeQuote) {
			return domain.ErrInsufficientFunds
		}
		b.FreeQuote = b.FreeQuote.Sub(quoteQty)
		b.LockedQuote = b.LockedQuote.Add(quoteQty)
	case domain.Ask:
		if baseQty.GreaterThan(b.FreeBase) {
			return domain.ErrInsufficientFunds
		}
		b.FreeBase = b.FreeBase.Sub(baseQty)
		b.LockedBase = b.LockedBase.Add(baseQty)
	default:
		return fmt.Errorf("lock funds: unknown side %v", side)
	}
	return nil
}

// SettleTrade applies one participant's side of a fill (spec §4.2):
//
//	Bid: free_base += qty, locked_quote -= qty*price
//	Ask: free_quote += qty*price, locked_base -= qty
//
// An operation that would violate B1 (drive a quantity negative) fails with
// ErrInsufficientFunds instead of mutating state — this should never trigger
// in practice since trade_qty is always bounded by the maker/taker's
// remaining locked funds by construction, but the check stands as the
// invariant guard spec §4.2 requires.
func (l *Ledger) SettleTrade(userID domain.UserID, side domain.Side, price, qty xdecimal.Decimal) error {
	b, ok := l.balances[userID]
	if !ok {
		return domain.ErrUnknownUser
	}

	switch side {
	case domain.Bid:
		quoteSpent := qty.Mul(price)
		if quoteSpent.GreaterThan(b.LockedQuote) {
			return domain.ErrInsufficientFunds
		}
		b.FreeBase = b.FreeBase.Add(qty)
		b.LockedQuote = b.LockedQuote.Sub(quoteSpent)
	case domain.Ask:
		if qty.GreaterThan(b.LockedBase) {
			return domain.ErrInsufficientFunds
		}
		b.FreeQuote = b.FreeQuote.Add(qty.Mul(price))
		b.LockedBase = b.LockedBase.Sub(qty)
	default:
		return fmt.Errorf("settle trade: unknown side %v", side)
	}
	return nil
}

// RefundRemaining releases locked funds back to free funds proportional to
// an order's unfilled remainder — used by cancel (spec §4.6) and by the
// market-order residual refund (spec §4.5, Open Question 2).
//
//	Bid: free_quote += remaining*price, locked_quote -= same
//	Ask: free_base += remaining, locked_base -= same
func (l *Ledger) RefundRemaining(userID domain.UserID, side domain.Side, price, remaining xdecimal.Decimal) error {
	b, ok := l.balances[userID]
	if !ok {
		return domain.ErrUnknownUser
	}

	switch side {
	case domain.Bid:
		refund := remaining.Mul(price)
		if refund.GreaterThan(b.LockedQuote) {
			refund = b.LockedQuote
		}
		b.FreeQuote = b.FreeQuote.Add(refund)
		b.LockedQuote = b.LockedQuote.Sub(refund)
	case domain.Ask:
		refund := remaining
		if refund.GreaterThan(b.LockedBase) {
			refund = b.LockedBase
		}
		b.FreeBase = b.FreeBase.Add(refund)
		b.LockedBase = b.LockedBase.Sub(refund)
	default:
		return fmt.Errorf("refund remaining: unknown side %v", side)
	}
	return nil
}

// RefundLockedQuote releases an exact amount of locked quote back to free —
// used by the market-Bid residual refund where the remaining locked amount
// is known directly rather than derived from remaining*price.
func (l *Ledger) RefundLockedQuote(userID domain.UserID, amount xdecimal.Decimal) error {
	b, ok := l.balances[userID]
	if !ok {
		return domain.ErrUnknownUser
	}
	if amount.GreaterThan(b.LockedQuote) {
		amount = b.LockedQuote
	}
	b.FreeQuote = b.FreeQuote.Add(amount)
	b.LockedQuote = b.LockedQuote.Sub(amount)
	return nil
}

// RefundLockedBase is the Ask-side analogue of RefundLockedQuote.
func (l *Ledger) RefundLockedBase(userID domain.UserID, amount xdecimal.Decimal) error {
	b, ok := l.balances[userID]
	if !ok {
		return domain.ErrUnknownUser
	}
	if amount.GreaterThan(b.LockedBase) {
		amount = b.LockedBase
	}
	b.FreeBase = b.FreeBase.Add(amount)
	b.LockedBase = b.LockedBase.Sub(amount)
	return nil
}

// Exists reports whether a balance row is present for userID (spec §4.4
// step 1's "Existence" check).
func (l *Ledger) Exists(userID domain.UserID) bool {
	_, ok := l.balances[userID]
	return ok
}

// CheckInvariant asserts B1 for a single user; used after every mutating
// call by matching.Core when strict mode is enabled (SPEC_FULL.md §9,
// Open Question 6).
func (l *Ledger) CheckInvariant(userID domain.UserID) error {
	b, ok := l.balances[userID]
	if !ok {
		return nil
	}
	if !b.Nonnegative() {
		return fmt.Errorf("%w: user %s has a negative balance field: %+v", domain.ErrInvariantViolation, userID, *b)
	}
	return nil
}
