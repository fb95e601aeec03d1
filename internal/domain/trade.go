package domain

import (
	"time"

	"lupine/internal/xdecimal"
)

// Trade is the emitted record of spec §3. TradeID is assigned by the
// persistence layer (SQLStore.InsertTrade mints it when it writes the row;
// it is not returned to the caller); in-memory the engine only ever
// constructs InsertTradeArgs.
type Trade struct {
	ID           TradeID
	BuyOrderID   OrderID
	SellOrderID  OrderID
	Price        xdecimal.Decimal
	Quantity     xdecimal.Decimal
	CreatedAt    time.Time
}

// InsertTradeArgs is the payload a TradeEvent carries; it mirrors Trade minus
// the store-assigned ID, matching spec §6's TradeEvent::InsertTrade shape.
type InsertTradeArgs struct {
	BuyOrderID  OrderID
	SellOrderID OrderID
	Price       xdecimal.Decimal
	Quantity    xdecimal.Decimal
	CreatedAt   time.Time
}
