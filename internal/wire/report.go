package wire

import (
	"encoding/binary"

	"lupine/internal/domain"
)

// ReportKind mirrors the teacher's ReportMessageType.
type ReportKind uint8

const (
	AckReport ReportKind = iota
	ErrorReport
)

// Report is the acknowledgement frame sent back to a client after a command
// is processed. It carries the report kind, the order ID and, for an error
// report, the error message; it has no price or quantity fields.
type Report struct {
	Kind    ReportKind
	OrderID domain.OrderID
	ErrMsg  string
}

// Serialize converts the report to be sent on the wire:
//
//	kind     uint8
//	order_id [16]byte
//	err_len  uint16
//	err      n bytes
func (r Report) Serialize() []byte {
	buf := make([]byte, 1+16+2, 1+16+2+len(r.ErrMsg))
	buf[0] = byte(r.Kind)
	copy(buf[1:17], r.OrderID[:])
	binary.BigEndian.PutUint16(buf[17:19], uint16(len(r.ErrMsg)))
	return append(buf, r.ErrMsg...)
}

func DecodeReport(buf []byte) (Report, error) {
	if len(buf) < 19 {
		return Report{}, ErrMessageTooShort
	}
	r := Report{Kind: ReportKind(buf[0])}
	copy(r.OrderID[:], buf[1:17])
	n := int(binary.BigEndian.Uint16(buf[17:19]))
	if len(buf) < 19+n {
		return Report{}, ErrMessageTooShort
	}
	r.ErrMsg = string(buf[19 : 19+n])
	return r, nil
}

func OKReport(orderID domain.OrderID) Report {
	return Report{Kind: AckReport, OrderID: orderID}
}

func ErrReport(orderID domain.OrderID, err error) Report {
	return Report{Kind: ErrorReport, OrderID: orderID, ErrMsg: err.Error()}
}
