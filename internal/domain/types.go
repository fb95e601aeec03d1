package domain

import (
	"database/sql/driver"
	"fmt"
)

// Side, OrderType and Status are the small closed enums of spec §3. They
// round-trip through Postgres as varchar, the same mapping
// original_source/db/schema.rs uses ("side AS \"side: Side\"").

type Side int8

const (
	Bid Side = iota
	Ask
)

func (s Side) String() string {
	switch s {
	case Bid:
		return "Bid"
	case Ask:
		return "Ask"
	default:
		return fmt.Sprintf("Side(%d)", int8(s))
	}
}

func (s Side) Value() (driver.Value, error) { return s.String(), nil }

func (s *Side) Scan(src any) error {
	str, err := scanString(src)
	if err != nil {
		return err
	}
	switch str {
	case "Bid":
		*s = Bid
	case "Ask":
		*s = Ask
	default:
		return fmt.Errorf("invalid Side %q", str)
	}
	return nil
}

// Opposite returns the other side of the book.
func (s Side) Opposite() Side {
	if s == Bid {
		return Ask
	}
	return Bid
}

type OrderType int8

const (
	Limit OrderType = iota
	Market
)

func (t OrderType) String() string {
	switch t {
	case Limit:
		return "Limit"
	case Market:
		return "Market"
	default:
		return fmt.Sprintf("OrderType(%d)", int8(t))
	}
}

func (t OrderType) Value() (driver.Value, error) { return t.String(), nil }

func (t *OrderType) Scan(src any) error {
	str, err := scanString(src)
	if err != nil {
		return err
	}
	switch str {
	case "Limit":
		*t = Limit
	case "Market":
		*t = Market
	default:
		return fmt.Errorf("invalid OrderType %q", str)
	}
	return nil
}

type Status int8

const (
	Open Status = iota
	Closed
	Cancelled
)

func (s Status) String() string {
	switch s {
	case Open:
		return "Open"
	case Closed:
		return "Closed"
	case Cancelled:
		return "Cancelled"
	default:
		return fmt.Sprintf("Status(%d)", int8(s))
	}
}

func (s Status) Value() (driver.Value, error) { return s.String(), nil }

func (s *Status) Scan(src any) error {
	str, err := scanString(src)
	if err != nil {
		return err
	}
	switch str {
	case "Open":
		*s = Open
	case "Closed":
		*s = Closed
	case "Cancelled":
		*s = Cancelled
	default:
		return fmt.Errorf("invalid Status %q", str)
	}
	return nil
}

func scanString(src any) (string, error) {
	switch v := src.(type) {
	case string:
		return v, nil
	case []byte:
		return string(v), nil
	default:
		return "", fmt.Errorf("unsupported enum source type %T", src)
	}
}
