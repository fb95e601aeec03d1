package domain

import (
	"database/sql/driver"
	"fmt"

	"github.com/google/uuid"
)

// UserID, OrderID and TradeID are opaque 128-bit identifiers (spec §3).
// They are named types over uuid.UUID rather than bare uuid.UUID so that
// function signatures in ledger/orderbook/matching read as domain code, the
// way the teacher names Side/OrderType/Status instead of reusing int.

type UserID uuid.UUID
type OrderID uuid.UUID
type TradeID uuid.UUID

func NewUserID() UserID   { return UserID(uuid.New()) }
func NewOrderID() OrderID { return OrderID(uuid.New()) }
func NewTradeID() TradeID { return TradeID(uuid.New()) }

func (id UserID) String() string  { return uuid.UUID(id).String() }
func (id OrderID) String() string { return uuid.UUID(id).String() }
func (id TradeID) String() string { return uuid.UUID(id).String() }

func ParseUserID(s string) (UserID, error) {
	u, err := uuid.Parse(s)
	return UserID(u), err
}

func ParseOrderID(s string) (OrderID, error) {
	u, err := uuid.Parse(s)
	return OrderID(u), err
}

func ParseTradeID(s string) (TradeID, error) {
	u, err := uuid.Parse(s)
	return TradeID(u), err
}

func (id UserID) Value() (driver.Value, error)  { return uuid.UUID(id).String(), nil }
func (id OrderID) Value() (driver.Value, error) { return uuid.UUID(id).String(), nil }
func (id TradeID) Value() (driver.Value, error) { return uuid.UUID(id).String(), nil }

func (id *UserID) Scan(src any) error {
	u, err := scanUUID(src)
	if err != nil {
		return fmt.Errorf("scan UserID: %w", err)
	}
	*id = UserID(u)
	return nil
}

func (id *OrderID) Scan(src any) error {
	u, err := scanUUID(src)
	if err != nil {
		return fmt.Errorf("scan OrderID: %w", err)
	}
	*id = OrderID(u)
	return nil
}

func (id *TradeID) Scan(src any) error {
	u, err := scanUUID(src)
	if err != nil {
		return fmt.Errorf("scan TradeID: %w", err)
	}
	*id = TradeID(u)
	return nil
}

func scanUUID(src any) (uuid.UUID, error) {
	switch v := src.(type) {
	case string:
		return uuid.Parse(v)
	case []byte:
		return uuid.Parse(string(v))
	default:
		return uuid.UUID{}, fmt.Errorf("unsupported uuid source type %T", src)
	}
}
