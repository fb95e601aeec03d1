package domain

// EventKind tags the outbound events a matching.Core operation produces
// (spec §6). matching.Core returns these as a plain slice so it stays
// channel-free and directly unit-testable; engineloop.Engine is the only
// thing that knows about BalanceEvent/OrderEvent/TradeEvent channels and
// fans a slice like this out onto them in order.
type EventKind int8

const (
	EventUpdateBalance EventKind = iota
	EventUpdateOrder
	EventInsertTrade
)

type Event struct {
	Kind    EventKind
	Balance UserBalance      // valid for EventUpdateBalance
	Order   Order            // valid for EventUpdateOrder
	Trade   InsertTradeArgs  // valid for EventInsertTrade
}

func BalanceUpdated(b UserBalance) Event { return Event{Kind: EventUpdateBalance, Balance: b} }
func OrderUpdated(o Order) Event         { return Event{Kind: EventUpdateOrder, Order: o} }
func TradeInserted(t InsertTradeArgs) Event {
	return Event{Kind: EventInsertTrade, Trade: t}
}
