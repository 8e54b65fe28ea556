package feed

import (
	"fmt"
	"io"
	"net"
	"sync"

	"mitchwire/frame"
	"mitchwire/logger"
	"mitchwire/mitch"
)

// Publisher serializes messages onto one outbound stream. Writes are
// mutex-serialized so multiple producers can share a connection without
// interleaving frames.
type Publisher struct {
	provider uint16
	stream   io.Writer
	closer   io.Closer
	mu       sync.Mutex
	buf      []byte
	log      *logger.Log
}

// NewPublisher wraps an already-open stream.
func NewPublisher(stream io.Writer, provider uint16) *Publisher {
	p := &Publisher{
		provider: provider,
		stream:   stream,
		buf:      make([]byte, 4096),
		log:      logger.GetLogger(),
	}
	if c, ok := stream.(io.Closer); ok {
		p.closer = c
	}
	return p
}

// Dial connects to a feed server over TCP and returns a publisher bound
// to the connection.
func Dial(addr string, provider uint16) (*Publisher, error) {
	conn, err := net.Dial("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", addr, err)
	}

	logger.GetLogger().WithComponent("publisher").WithFields(logger.Fields{
		"addr":        addr,
		"provider_id": provider,
	}).Info("publisher connected")

	return NewPublisher(conn, provider), nil
}

// Publish encodes msg and writes it as one frame.
func (p *Publisher) Publish(msg *mitch.Message) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	need := msg.EncodedSize()
	if need > len(p.buf) {
		p.buf = make([]byte, need)
	}
	n, err := msg.Encode(p.buf)
	if err != nil {
		return fmt.Errorf("encode %s message: %w",
			mitch.NewChannelID(p.provider, msg.Header.Type), err)
	}
	if err := frame.WriteMessage(p.stream, p.buf[:n]); err != nil {
		return fmt.Errorf("write %s message: %w",
			mitch.NewChannelID(p.provider, msg.Header.Type), err)
	}
	return nil
}

// PublishTrades stamps the current time and publishes up to 255 trades.
func (p *Publisher) PublishTrades(trades []mitch.TradeBody) error {
	msg, err := mitch.NewTradeMessage(Now48(), trades)
	if err != nil {
		return err
	}
	return p.Publish(msg)
}

// PublishOrders stamps the current time and publishes up to 255 orders.
func (p *Publisher) PublishOrders(orders []mitch.OrderBody) error {
	msg, err := mitch.NewOrderMessage(Now48(), orders)
	if err != nil {
		return err
	}
	return p.Publish(msg)
}

// PublishTickers stamps the current time and publishes up to 255 quotes.
func (p *Publisher) PublishTickers(tickers []mitch.TickerBody) error {
	msg, err := mitch.NewTickerMessage(Now48(), tickers)
	if err != nil {
		return err
	}
	return p.Publish(msg)
}

// PublishBook stamps the current time and publishes one book snapshot.
func (p *Publisher) PublishBook(book mitch.OrderBookBody, volumes []uint32) error {
	msg, err := mitch.NewOrderBookMessage(Now48(), book, volumes)
	if err != nil {
		return err
	}
	return p.Publish(msg)
}

// Close closes the underlying stream when it supports closing.
func (p *Publisher) Close() error {
	if p.closer != nil {
		return p.closer.Close()
	}
	return nil
}
