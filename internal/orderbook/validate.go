package orderbook

import (
	"fmt"

	"github.com/tidwall/btree"

	"lupine/internal/domain"
)

// Validate asserts invariants O1-O3 of spec §4.3/§3 over the whole book. It
// is run by matching.Core after every mutating operation when strict mode is
// enabled (SPEC_FULL.md §9, Open Question 6); a violation is a bug, not a
// rejected command, so callers treat a non-nil return as fatal.
func (b *Book) Validate() error {
	if err := validateSide(b.bids, domain.Bid); err != nil {
		return err
	}
	if err := validateSide(b.asks, domain.Ask); err != nil {
		return err
	}
	return nil
}

func validateSide(levels *btree.BTreeG[*PriceLevel], side domain.Side) error {
	var err error
	levels.Scan(func(level *PriceLevel) bool {
		if len(level.Orders) == 0 {
			err = invariantf("price level %s on side %s is empty (violates O3)", level.Price, side)
			return false
		}
		lastSeq := int64(-1)
		for _, o := range level.Orders {
			if o.Status != domain.Open {
				err = invariantf("resting order %s at %s/%s has status %s, want Open (violates O1)", o.ID, side, level.Price, o.Status)
				return false
			}
			if o.FilledQuantity.GreaterThanOrEqual(o.Quantity) {
				err = invariantf("resting order %s has filled_quantity >= quantity (violates O1)", o.ID)
				return false
			}
			if o.Sequence <= lastSeq {
				err = invariantf("resting order %s out of arrival order within level %s (violates O2)", o.ID, level.Price)
				return false
			}
			lastSeq = o.Sequence
		}
		return true
	})
	return err
}

func invariantf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", domain.ErrInvariantViolation, fmt.Sprintf(format, args...))
}
