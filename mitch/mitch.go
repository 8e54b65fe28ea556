// Package mitch implements the MITCH binary market-data protocol: the
// 8-byte message header, the fixed 32-byte Trade/Order/Ticker bodies and
// the variable-length OrderBook body. All multi-byte fields travel in
// big-endian byte order regardless of host architecture.
package mitch

import "errors"

// Message type tags (ASCII).
const (
	MsgTypeTrade     byte = 't'
	MsgTypeOrder     byte = 'o'
	MsgTypeTicker    byte = 's'
	MsgTypeOrderBook byte = 'q'
)

// Side constants, shared by trades, orders and order-book snapshots.
const (
	SideBuy  uint8 = 0
	SideSell uint8 = 1
)

// Order type constants carried in bits 1-7 of the type_and_side field.
const (
	OrderTypeMarket uint8 = 0
	OrderTypeLimit  uint8 = 1
	OrderTypeStop   uint8 = 2
	OrderTypeCancel uint8 = 3
)

// Wire sizes in bytes.
const (
	HeaderSize          = 8
	FixedBodySize       = 32
	TradeSize           = 32
	OrderSize           = 32
	TickerSize          = 32
	OrderBookPrefixSize = 32
	VolumeEntrySize     = 4

	// MaxBodyCount is the largest entry count the header can carry.
	MaxBodyCount = 255

	// MaxMessageSize is the largest possible encoded message: an
	// order-book snapshot with 65535 volume entries.
	MaxMessageSize = HeaderSize + OrderBookPrefixSize + 65535*VolumeEntrySize
)

var (
	// ErrBufferTooSmall reports a caller buffer that cannot hold the
	// encoded or decoded form of a record or message.
	ErrBufferTooSmall = errors.New("mitch: buffer too small")

	// ErrProtocolViolation reports a structural rule break, such as an
	// order-book message whose header count is not 1.
	ErrProtocolViolation = errors.New("mitch: protocol violation")

	// ErrUnknownMessageType reports a header tag outside the four
	// defined message types.
	ErrUnknownMessageType = errors.New("mitch: unknown message type")

	// ErrCountMismatch reports a body slice whose length disagrees with
	// the count implied by the record being encoded.
	ErrCountMismatch = errors.New("mitch: body count mismatch")
)

// ValidMsgType reports whether tag is one of the four defined type tags.
func ValidMsgType(tag byte) bool {
	switch tag {
	case MsgTypeTrade, MsgTypeOrder, MsgTypeTicker, MsgTypeOrderBook:
		return true
	}
	return false
}

// ExtractSide extracts the side from a type_and_side field (bit 0).
func ExtractSide(typeAndSide uint8) uint8 {
	return typeAndSide & 0x01
}

// ExtractOrderType extracts the order type from a type_and_side field
// (bits 1-7).
func ExtractOrderType(typeAndSide uint8) uint8 {
	return (typeAndSide >> 1) & 0x7F
}

// CombineTypeAndSide combines an order type and side into a single byte.
func CombineTypeAndSide(orderType, side uint8) uint8 {
	return (orderType << 1) | (side & 0x01)
}
