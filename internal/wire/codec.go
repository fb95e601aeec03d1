// Package wire is the binary TCP protocol front door (SPEC_FULL.md §1
// "Front door", §6): type-prefixed binary frames in, EngineCommand values out;
// Report acknowledgement frames the other way. Generalized from the
// teacher's internal/net/messages.go, whose NewOrderMessage/Report carry
// float64 price/quantity fields — those cannot round-trip exact decimal
// values (spec §4.1), so every numeric field here is a length-prefixed
// decimal string instead of a fixed-width float.
package wire

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"lupine/internal/domain"
	"lupine/internal/xdecimal"
)

var (
	ErrInvalidMessageType = errors.New("invalid message type")
	ErrMessageTooShort    = errors.New("message too short")
)

type MessageType uint16

const (
	Heartbeat MessageType = iota
	NewOrder
	CancelOrder
)

// BaseHeaderLen is the 2-byte message-type prefix every frame starts with,
// matching the teacher's BaseMessageHeaderLen.
const BaseHeaderLen = 2

// NewOrderMessage is the wire shape of domain.CreateOrderArgs plus the
// order-type/side discriminators the teacher's NewOrderMessage carries.
//
// Layout after the 2-byte type prefix:
//
//	order_type   uint16
//	side         uint8
//	user_id      [16]byte (uuid)
//	limit_price  uint16 len + n bytes decimal string
//	base_qty     uint16 len + n bytes decimal string
//	quote_qty    uint16 len + n bytes decimal string
type NewOrderMessage struct {
	OrderType domain.OrderType
	Side      domain.Side
	UserID    domain.UserID
	LimitQty  struct {
		LimitPrice xdecimal.Decimal
		BaseQty    xdecimal.Decimal
		QuoteQty   xdecimal.Decimal
	}
}

// Args converts the wire message to matching.Core's input shape.
func (m NewOrderMessage) Args() domain.CreateOrderArgs {
	return domain.CreateOrderArgs{
		OrderType:  m.OrderType,
		Side:       m.Side,
		UserID:     m.UserID,
		LimitPrice: m.LimitQty.LimitPrice,
		BaseQty:    m.LimitQty.BaseQty,
		QuoteQty:   m.LimitQty.QuoteQty,
	}
}

func EncodeNewOrder(args domain.CreateOrderArgs) []byte {
	buf := []byte{0, 0}
	binary.BigEndian.PutUint16(buf, uint16(NewOrder))

	var body []byte
	body = binary.BigEndian.AppendUint16(body, uint16(args.OrderType))
	body = append(body, byte(args.Side))
	uid := args.UserID
	body = append(body, uid[:]...)
	body = appendLenPrefixedString(body, args.LimitPrice.String())
	body = appendLenPrefixedString(body, args.BaseQty.String())
	body = appendLenPrefixedString(body, args.QuoteQty.String())

	return append(buf, body...)
}

func decodeNewOrder(body []byte) (NewOrderMessage, error) {
	if len(body) < 2+1+16 {
		return NewOrderMessage{}, ErrMessageTooShort
	}
	m := NewOrderMessage{}
	m.OrderType = domain.OrderType(binary.BigEndian.Uint16(body[0:2]))
	m.Side = domain.Side(body[2])

	rawID, err := uuid.FromBytes(body[3:19])
	if err != nil {
		return NewOrderMessage{}, fmt.Errorf("decode user_id: %w", err)
	}
	m.UserID = domain.UserID(rawID)

	rest := body[19:]
	limitPriceStr, rest, err := readLenPrefixedString(rest)
	if err != nil {
		return NewOrderMessage{}, fmt.Errorf("decode limit_price: %w", err)
	}
	baseQtyStr, rest, err := readLenPrefixedString(rest)
	if err != nil {
		return NewOrderMessage{}, fmt.Errorf("decode base_qty: %w", err)
	}
	quoteQtyStr, _, err := readLenPrefixedString(rest)
	if err != nil {
		return NewOrderMessage{}, fmt.Errorf("decode quote_qty: %w", err)
	}

	if m.LimitQty.LimitPrice, err = xdecimal.Parse(limitPriceStr); err != nil {
		return NewOrderMessage{}, fmt.Errorf("parse limit_price: %w", err)
	}
	if m.LimitQty.BaseQty, err = xdecimal.Parse(baseQtyStr); err != nil {
		return NewOrderMessage{}, fmt.Errorf("parse base_qty: %w", err)
	}
	if m.LimitQty.QuoteQty, err = xdecimal.Parse(quoteQtyStr); err != nil {
		return NewOrderMessage{}, fmt.Errorf("parse quote_qty: %w", err)
	}
	return m, nil
}

// CancelOrderMessage carries the order to cancel, a 16-byte uuid, matching
// the teacher's CancelOrderMessage shape one-for-one.
type CancelOrderMessage struct {
	OrderID domain.OrderID
}

func EncodeCancelOrder(orderID domain.OrderID) []byte {
	buf := []byte{0, 0}
	binary.BigEndian.PutUint16(buf, uint16(CancelOrder))
	return append(buf, orderID[:]...)
}

func decodeCancelOrder(body []byte) (CancelOrderMessage, error) {
	if len(body) < 16 {
		return CancelOrderMessage{}, ErrMessageTooShort
	}
	rawID, err := uuid.FromBytes(body[:16])
	if err != nil {
		return CancelOrderMessage{}, fmt.Errorf("decode order_id: %w", err)
	}
	return CancelOrderMessage{OrderID: domain.OrderID(rawID)}, nil
}

// Decoded is the sum of message kinds Decode can return.
type Decoded struct {
	Type        MessageType
	NewOrder    NewOrderMessage
	CancelOrder CancelOrderMessage
}

// Decode parses one complete frame (the caller is responsible for framing —
// Server.handleConn treats the bytes of one conn.Read as one frame).
func Decode(frame []byte) (Decoded, error) {
	if len(frame) < BaseHeaderLen {
		return Decoded{}, ErrMessageTooShort
	}
	typeOf := MessageType(binary.BigEndian.Uint16(frame[0:2]))
	body := frame[2:]

	switch typeOf {
	case Heartbeat:
		return Decoded{Type: Heartbeat}, nil
	case NewOrder:
		m, err := decodeNewOrder(body)
		if err != nil {
			return Decoded{}, err
		}
		return Decoded{Type: NewOrder, NewOrder: m}, nil
	case CancelOrder:
		m, err := decodeCancelOrder(body)
		if err != nil {
			return Decoded{}, err
		}
		return Decoded{Type: CancelOrder, CancelOrder: m}, nil
	default:
		return Decoded{}, ErrInvalidMessageType
	}
}

func appendLenPrefixedString(buf []byte, s string) []byte {
	buf = binary.BigEndian.AppendUint16(buf, uint16(len(s)))
	return append(buf, s...)
}

func readLenPrefixedString(buf []byte) (string, []byte, error) {
	if len(buf) < 2 {
		return "", nil, ErrMessageTooShort
	}
	n := int(binary.BigEndian.Uint16(buf[0:2]))
	buf = buf[2:]
	if len(buf) < n {
		return "", nil, ErrMessageTooShort
	}
	return string(buf[:n]), buf[n:], nil
}
