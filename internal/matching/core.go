// Package matching implements MatchingCore (spec §4.4-§4.6): the limit,
// market and cancel state transitions that mutate an orderbook.Book and a
// ledger.Ledger and generate the ordered stream of domain.Event values the
// engine loop fans out to persistence workers.
//
// Core is deliberately channel-free (SPEC_FULL.md §4.4 "structural
// deviation"): each operation returns the events it produced rather than
// sending them itself, so it can be unit-tested without goroutines or
// channels, unlike original_source/service/engine/engine.rs which wires
// mpsc::Sender directly into the match loop.
package matching

import (
	"fmt"
	"time"

	"lupine/internal/domain"
	"lupine/internal/ledger"
	"lupine/internal/orderbook"
	"lupine/internal/xdecimal"
)

// Core owns one instrument's book and ledger. It is not safe for concurrent
// use — spec §5 mandates a single writer; engineloop.Engine is that writer.
type Core struct {
	Book   *orderbook.Book
	Ledger *ledger.Ledger

	// strict gates the O(n) invariant scan after every mutating operation
	// (SPEC_FULL.md §9, Open Question 6). Default true.
	strict bool

	seq int64
	now func() time.Time
}

// Option configures a Core at construction time.
type Option func(*Core)

// WithClock overrides the time source, for deterministic tests.
func WithClock(now func() time.Time) Option {
	return func(c *Core) { c.now = now }
}

// WithStrictInvariants toggles the post-operation invariant scan.
func WithStrictInvariants(strict bool) Option {
	return func(c *Core) { c.strict = strict }
}

func New(book *orderbook.Book, ldgr *ledger.Ledger, opts ...Option) *Core {
	c := &Core{
		Book:   book,
		Ledger: ldgr,
		strict: true,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// SeedSequence sets the next sequence number to hand out, used by the boot
// loader to resume numbering above whatever was persisted (SPEC_FULL.md §9,
// Open Question 4).
func (c *Core) SeedSequence(last int64) {
	if last > c.seq {
		c.seq = last
	}
}

func (c *Core) nextSequence() int64 {
	c.seq++
	return c.seq
}

// determineTradeOrderIDs decides buy/sell order attribution for a trade
// event (spec §4.4 step 4, §4.5): if the taker is a Bid, taker is the buyer;
// otherwise the resting maker is the buyer.
func determineTradeOrderIDs(takerSide domain.Side, takerID, makerID domain.OrderID) (buy, sell domain.OrderID) {
	if takerSide == domain.Bid {
		return takerID, makerID
	}
	return makerID, takerID
}

func (c *Core) checkInvariants(userIDs ...domain.UserID) error {
	if !c.strict {
		return nil
	}
	if err := c.Book.Validate(); err != nil {
		return err
	}
	for _, uid := range userIDs {
		if err := c.Ledger.CheckInvariant(uid); err != nil {
			return err
		}
	}
	return nil
}

// CreateLimitOrder implements spec §4.4.
func (c *Core) CreateLimitOrder(args domain.CreateOrderArgs) (domain.OrderID, []domain.Event, error) {
	if !c.Ledger.Exists(args.UserID) {
		return domain.OrderID{}, nil, domain.ErrUnknownUser
	}

	if err := c.Ledger.LockFunds(args.UserID, args.Side, args.BaseQty, args.QuoteQty); err != nil {
		return domain.OrderID{}, nil, err
	}

	taker := &domain.Order{
		ID:             domain.NewOrderID(),
		Owner:          args.UserID,
		OrderType:      domain.Limit,
		Side:           args.Side,
		Status:         domain.Open,
		Price:          args.LimitPrice,
		Quantity:       args.BaseQty,
		FilledQuantity: xdecimal.Zero(),
		CreatedAt:      c.now(),
		Sequence:       c.nextSequence(),
	}

	var events []domain.Event
	var matchErr error

	crossTest := func(levelPrice xdecimal.Decimal) bool {
		if args.Side == domain.Bid {
			return levelPrice.LessThanOrEqual(args.LimitPrice)
		}
		return levelPrice.GreaterThanOrEqual(args.LimitPrice)
	}

	cb := func(resting *domain.Order, tradeQty xdecimal.Decimal) (xdecimal.Decimal, bool) {
		if matchErr != nil {
			return xdecimal.Zero(), true
		}
		if err := c.applyFill(taker, resting, args.Side, resting.Price, tradeQty, &events); err != nil {
			matchErr = err
			return xdecimal.Zero(), true
		}
		return tradeQty, false
	}

	c.Book.MatchAgainst(args.Side, crossTest, taker.Quantity, cb)
	if matchErr != nil {
		return domain.OrderID{}, nil, matchErr
	}

	if xdecimal.IsPositive(taker.Remaining()) {
		taker.Status = domain.Open
		c.Book.Insert(taker)
	} else {
		taker.Status = domain.Closed
	}

	events = append(events, c.finalTakerEvents(taker)...)

	if err := c.checkInvariants(args.UserID); err != nil {
		return domain.OrderID{}, nil, err
	}
	return taker.ID, events, nil
}

// CreateMarketOrder implements spec §4.5.
func (c *Core) CreateMarketOrder(args domain.CreateOrderArgs) (domain.OrderID, []domain.Event, error) {
	if !c.Ledger.Exists(args.UserID) {
		return domain.OrderID{}, nil, domain.ErrUnknownUser
	}

	if err := c.Ledger.LockFunds(args.UserID, args.Side, args.BaseQty, args.QuoteQty); err != nil {
		return domain.OrderID{}, nil, err
	}

	// unboundedSizing drives MatchAgainst's "remaining base qty" loop bound
	// for a market Bid, whose real size in base units isn't known ahead of
	// matching (only the quote budget is). The scan's actual stopping
	// condition is the per-resting-order locked_quote clamp in the callback
	// below (spec §4.5), never this bound — it exists purely so
	// MatchAgainst's remaining-quantity-driven loop has something to
	// decrement.
	const unboundedSizing = "100000000000000000000"
	sizingQty := args.BaseQty
	if args.Side == domain.Bid {
		sizingQty = xdecimal.MustParse(unboundedSizing)
	}

	taker := &domain.Order{
		ID:             domain.NewOrderID(),
		Owner:          args.UserID,
		OrderType:      domain.Market,
		Side:           args.Side,
		Status:         domain.Open,
		Price:          xdecimal.Zero(), // ignored by matching for Market orders; stored for audit
		Quantity:       args.BaseQty,
		FilledQuantity: xdecimal.Zero(),
		CreatedAt:      c.now(),
		Sequence:       c.nextSequence(),
	}
	// taker.Quantity for a market Bid is the caller-supplied base_qty
	// estimate, carried for audit only (spec §3 "price... stored for audit"
	// applies symmetrically to a market Bid's base size: the real stopping
	// condition is the locked-quote clamp below, not this field).

	var events []domain.Event
	var matchErr error

	alwaysCross := func(xdecimal.Decimal) bool { return true }

	cb := func(resting *domain.Order, tradeQty xdecimal.Decimal) (xdecimal.Decimal, bool) {
		if matchErr != nil {
			return xdecimal.Zero(), true
		}
		actual := tradeQty
		if args.Side == domain.Bid {
			balance, _ := c.Ledger.Snapshot(args.UserID)
			if balance.LockedQuote.LessThan(resting.Price) {
				return xdecimal.Zero(), true
			}
			affordable := xdecimal.TruncatingQuotient(balance.LockedQuote, resting.Price, xdecimal.DefaultScale)
			if affordable.LessThan(actual) {
				actual = affordable
			}
			if !xdecimal.IsPositive(actual) {
				return xdecimal.Zero(), true
			}
		}
		if err := c.applyFill(taker, resting, args.Side, resting.Price, actual, &events); err != nil {
			matchErr = err
			return xdecimal.Zero(), true
		}
		return actual, false
	}

	c.Book.MatchAgainst(args.Side, alwaysCross, sizingQty, cb)
	if matchErr != nil {
		return domain.OrderID{}, nil, matchErr
	}

	// Market orders never rest (spec §4.5): close unconditionally and refund
	// any residual locked funds (Open Question 2).
	taker.Status = domain.Closed
	balance, _ := c.Ledger.Snapshot(args.UserID)
	if args.Side == domain.Bid {
		if xdecimal.IsPositive(balance.LockedQuote) {
			_ = c.Ledger.RefundLockedQuote(args.UserID, balance.LockedQuote)
		}
	} else {
		if xdecimal.IsPositive(balance.LockedBase) {
			_ = c.Ledger.RefundLockedBase(args.UserID, balance.LockedBase)
		}
	}

	events = append(events, c.finalTakerEvents(taker)...)

	if err := c.checkInvariants(args.UserID); err != nil {
		return domain.OrderID{}, nil, err
	}
	return taker.ID, events, nil
}

// CancelOrder implements spec §4.6.
func (c *Core) CancelOrder(orderID domain.OrderID) ([]domain.Event, error) {
	order, err := c.Book.Remove(orderID)
	if err != nil {
		return nil, domain.ErrOrderNotFound
	}

	remaining := order.Remaining()
	order.Status = domain.Cancelled

	if err := c.Ledger.RefundRemaining(order.Owner, order.Side, order.Price, remaining); err != nil {
		return nil, err
	}

	balance, _ := c.Ledger.Snapshot(order.Owner)
	events := []domain.Event{
		domain.OrderUpdated(*order),
		domain.BalanceUpdated(balance),
	}

	if err := c.checkInvariants(order.Owner); err != nil {
		return nil, err
	}
	return events, nil
}

// applyFill settles both sides of one match and appends the trade/order
// events it produces (spec §4.4 step 4 / §4.5). takerSide identifies which
// side of determineTradeOrderIDs the taker occupies.
func (c *Core) applyFill(taker, resting *domain.Order, takerSide domain.Side, tradePrice, tradeQty xdecimal.Decimal, events *[]domain.Event) error {
	resting.FilledQuantity = resting.FilledQuantity.Add(tradeQty)
	taker.FilledQuantity = taker.FilledQuantity.Add(tradeQty)

	if err := c.Ledger.SettleTrade(resting.Owner, resting.Side, tradePrice, tradeQty); err != nil {
		return fmt.Errorf("settle maker %s: %w", resting.Owner, err)
	}
	makerBalance, _ := c.Ledger.Snapshot(resting.Owner)
	*events = append(*events, domain.BalanceUpdated(makerBalance))

	if err := c.Ledger.SettleTrade(taker.Owner, takerSide, tradePrice, tradeQty); err != nil {
		return fmt.Errorf("settle taker %s: %w", taker.Owner, err)
	}

	buyID, sellID := determineTradeOrderIDs(takerSide, taker.ID, resting.ID)
	*events = append(*events, domain.TradeInserted(domain.InsertTradeArgs{
		BuyOrderID:  buyID,
		SellOrderID: sellID,
		Price:       tradePrice,
		Quantity:    tradeQty,
		CreatedAt:   c.now(),
	}))

	if resting.IsFullyFilled() {
		resting.Status = domain.Closed
		*events = append(*events, domain.OrderUpdated(*resting))
	}
	return nil
}

// finalTakerEvents emits the closing BalanceEvent/OrderEvent pair every
// operation ends with (spec §4.4 step 6).
func (c *Core) finalTakerEvents(taker *domain.Order) []domain.Event {
	balance, _ := c.Ledger.Snapshot(taker.Owner)
	return []domain.Event{
		domain.BalanceUpdated(balance),
		domain.OrderUpdated(*taker),
	}
}
