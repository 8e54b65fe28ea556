package mitch

import "fmt"

// Message is one complete MITCH message: a header plus the body slice
// matching the header's type tag. Exactly one of the body fields is
// populated. Order-book messages carry a single snapshot in Book with its
// volume entries in Volumes.
type Message struct {
	Header  Header
	Trades  []TradeBody
	Orders  []OrderBody
	Tickers []TickerBody
	Book    *OrderBookBody
	Volumes []uint32
}

// NewTradeMessage builds a trade message stamped with ts.
func NewTradeMessage(ts Timestamp48, trades []TradeBody) (*Message, error) {
	if len(trades) == 0 || len(trades) > MaxBodyCount {
		return nil, fmt.Errorf("%w: %d trades", ErrCountMismatch, len(trades))
	}
	return &Message{
		Header: Header{Type: MsgTypeTrade, Timestamp: ts, Count: uint8(len(trades))},
		Trades: trades,
	}, nil
}

// NewOrderMessage builds an order message stamped with ts.
func NewOrderMessage(ts Timestamp48, orders []OrderBody) (*Message, error) {
	if len(orders) == 0 || len(orders) > MaxBodyCount {
		return nil, fmt.Errorf("%w: %d orders", ErrCountMismatch, len(orders))
	}
	return &Message{
		Header: Header{Type: MsgTypeOrder, Timestamp: ts, Count: uint8(len(orders))},
		Orders: orders,
	}, nil
}

// NewTickerMessage builds a quote message stamped with ts.
func NewTickerMessage(ts Timestamp48, tickers []TickerBody) (*Message, error) {
	if len(tickers) == 0 || len(tickers) > MaxBodyCount {
		return nil, fmt.Errorf("%w: %d tickers", ErrCountMismatch, len(tickers))
	}
	return &Message{
		Header: Header{Type: MsgTypeTicker, Timestamp: ts, Count: uint8(len(tickers))},
		Tickers: tickers,
	}, nil
}

// NewOrderBookMessage builds an order-book message. The header count is
// always 1: a book message carries exactly one snapshot.
func NewOrderBookMessage(ts Timestamp48, book OrderBookBody, volumes []uint32) (*Message, error) {
	if len(volumes) != int(book.NumTicks) {
		return nil, fmt.Errorf("%w: num_ticks %d, volumes %d", ErrCountMismatch, book.NumTicks, len(volumes))
	}
	return &Message{
		Header:  Header{Type: MsgTypeOrderBook, Timestamp: ts, Count: 1},
		Book:    &book,
		Volumes: volumes,
	}, nil
}

// EncodedSize returns the total wire size of the message.
func (m *Message) EncodedSize() int {
	switch m.Header.Type {
	case MsgTypeTrade:
		return HeaderSize + TradeSize*len(m.Trades)
	case MsgTypeOrder:
		return HeaderSize + OrderSize*len(m.Orders)
	case MsgTypeTicker:
		return HeaderSize + TickerSize*len(m.Tickers)
	case MsgTypeOrderBook:
		if m.Book == nil {
			return HeaderSize
		}
		return HeaderSize + m.Book.EncodedSize()
	}
	return HeaderSize
}

// Encode writes the header and every body entry into buf and returns
// the total byte count.
func (m *Message) Encode(buf []byte) (int, error) {
	if len(buf) < m.EncodedSize() {
		return 0, ErrBufferTooSmall
	}
	off, err := m.Header.Encode(buf)
	if err != nil {
		return 0, err
	}
	switch m.Header.Type {
	case MsgTypeTrade:
		if int(m.Header.Count) != len(m.Trades) {
			return 0, fmt.Errorf("%w: header count %d, trades %d", ErrCountMismatch, m.Header.Count, len(m.Trades))
		}
		for i := range m.Trades {
			n, err := m.Trades[i].Encode(buf[off:])
			if err != nil {
				return 0, err
			}
			off += n
		}
	case MsgTypeOrder:
		if int(m.Header.Count) != len(m.Orders) {
			return 0, fmt.Errorf("%w: header count %d, orders %d", ErrCountMismatch, m.Header.Count, len(m.Orders))
		}
		for i := range m.Orders {
			n, err := m.Orders[i].Encode(buf[off:])
			if err != nil {
				return 0, err
			}
			off += n
		}
	case MsgTypeTicker:
		if int(m.Header.Count) != len(m.Tickers) {
			return 0, fmt.Errorf("%w: header count %d, tickers %d", ErrCountMismatch, m.Header.Count, len(m.Tickers))
		}
		for i := range m.Tickers {
			n, err := m.Tickers[i].Encode(buf[off:])
			if err != nil {
				return 0, err
			}
			off += n
		}
	case MsgTypeOrderBook:
		if m.Header.Count != 1 || m.Book == nil {
			return 0, fmt.Errorf("%w: order book message must carry exactly one snapshot", ErrProtocolViolation)
		}
		n, err := m.Book.Encode(buf[off:], m.Volumes)
		if err != nil {
			return 0, err
		}
		off += n
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnknownMessageType, m.Header.Type)
	}
	return off, nil
}

// Decode parses one complete message from buf, dispatching on the
// header tag, and returns the total byte count consumed.
func (m *Message) Decode(buf []byte) (int, error) {
	off, err := m.Header.Decode(buf)
	if err != nil {
		return 0, err
	}
	m.Trades, m.Orders, m.Tickers, m.Book, m.Volumes = nil, nil, nil, nil, nil

	switch m.Header.Type {
	case MsgTypeTrade:
		m.Trades = make([]TradeBody, m.Header.Count)
		for i := range m.Trades {
			n, err := m.Trades[i].Decode(buf[off:])
			if err != nil {
				return 0, fmt.Errorf("trade %d: %w", i, err)
			}
			off += n
		}
	case MsgTypeOrder:
		m.Orders = make([]OrderBody, m.Header.Count)
		for i := range m.Orders {
			n, err := m.Orders[i].Decode(buf[off:])
			if err != nil {
				return 0, fmt.Errorf("order %d: %w", i, err)
			}
			off += n
		}
	case MsgTypeTicker:
		m.Tickers = make([]TickerBody, m.Header.Count)
		for i := range m.Tickers {
			n, err := m.Tickers[i].Decode(buf[off:])
			if err != nil {
				return 0, fmt.Errorf("ticker %d: %w", i, err)
			}
			off += n
		}
	case MsgTypeOrderBook:
		if m.Header.Count != 1 {
			return 0, fmt.Errorf("%w: order book count %d, want 1", ErrProtocolViolation, m.Header.Count)
		}
		var book OrderBookBody
		volumes, n, err := book.Decode(buf[off:])
		if err != nil {
			return 0, err
		}
		m.Book = &book
		m.Volumes = volumes
		off += n
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnknownMessageType, m.Header.Type)
	}
	return off, nil
}
