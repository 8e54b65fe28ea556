package models

import (
	"time"

	"mitchwire/mitch"
)

// Decoded-event envelopes produced by the feed server. Each wraps the
// decoded bodies of one inbound message together with where and when it
// arrived, so downstream consumers never re-touch wire bytes.

// TradeEvent carries the trades of one 't' message.
type TradeEvent struct {
	ConnID    string
	Provider  uint16
	Timestamp uint64 // header timestamp, nanoseconds
	Trades    []mitch.TradeBody
	Received  time.Time
}

// OrderEvent carries the orders of one 'o' message.
type OrderEvent struct {
	ConnID    string
	Provider  uint16
	Timestamp uint64
	Orders    []mitch.OrderBody
	Received  time.Time
}

// TickerEvent carries the quotes of one 's' message.
type TickerEvent struct {
	ConnID    string
	Provider  uint16
	Timestamp uint64
	Tickers   []mitch.TickerBody
	Received  time.Time
}

// BookEvent carries the single snapshot of one 'q' message.
type BookEvent struct {
	ConnID    string
	Provider  uint16
	Timestamp uint64
	Book      mitch.OrderBookBody
	Volumes   []uint32
	Received  time.Time
}
