package domain

import (
	"time"

	"lupine/internal/xdecimal"
)

// Order is the resting/taker order record of spec §3. Sequence is an ambient
// addition (SPEC_FULL.md §9, Open Question 4): a monotonically increasing
// counter assigned at command-ingestion time, used to break ties when two
// orders share a CreatedAt millisecond. CreatedAt remains the spec-visible
// timestamp; Sequence never leaves the process boundary except as an
// ordering column in the durable store.
type Order struct {
	ID              OrderID
	Owner           UserID
	OrderType       OrderType
	Side            Side
	Status          Status
	Price           xdecimal.Decimal // ignored by matching for Market orders; stored for audit
	Quantity        xdecimal.Decimal // > 0, immutable after creation
	FilledQuantity  xdecimal.Decimal // 0 <= filled <= quantity, monotonically non-decreasing
	CreatedAt       time.Time
	Sequence        int64
}

// Remaining returns the quantity still eligible to trade.
func (o *Order) Remaining() xdecimal.Decimal {
	return o.Quantity.Sub(o.FilledQuantity)
}

// IsFullyFilled reports whether the order has no remaining quantity.
func (o *Order) IsFullyFilled() bool {
	return o.FilledQuantity.Cmp(o.Quantity) >= 0
}
