package channel

import (
	"context"
	"sync"
	"time"

	"mitchwire/logger"
	"mitchwire/models"
)

type ChannelStats struct {
	TradesSent     int64
	OrdersSent     int64
	TickersSent    int64
	BooksSent      int64
	TradesDropped  int64
	OrdersDropped  int64
	TickersDropped int64
	BooksDropped   int64
}

// Channels fans decoded messages out to consumers, one buffered channel
// per message type. Sends are non-blocking; a full channel drops the
// event and counts the drop.
type Channels struct {
	Trades  chan models.TradeEvent
	Orders  chan models.OrderEvent
	Tickers chan models.TickerEvent
	Books   chan models.BookEvent

	stats      ChannelStats
	statsMutex sync.RWMutex
	log        *logger.Log
}

func NewChannels(bufferSize int) *Channels {
	log := logger.GetLogger()
	c := &Channels{
		Trades:  make(chan models.TradeEvent, bufferSize),
		Orders:  make(chan models.OrderEvent, bufferSize),
		Tickers: make(chan models.TickerEvent, bufferSize),
		Books:   make(chan models.BookEvent, bufferSize),
		log:     log,
	}

	log.WithComponent("channels").WithFields(logger.Fields{
		"buffer_size": bufferSize,
	}).Info("message channels initialized")

	return c
}

func (c *Channels) Close() {
	close(c.Trades)
	close(c.Orders)
	close(c.Tickers)
	close(c.Books)
	c.log.WithComponent("channels").Info("message channels closed")
}

func (c *Channels) SendTrade(ctx context.Context, ev models.TradeEvent) bool {
	select {
	case c.Trades <- ev:
		c.increment(func(s *ChannelStats) { s.TradesSent++ })
		return true
	case <-ctx.Done():
		return false
	default:
		c.increment(func(s *ChannelStats) { s.TradesDropped++ })
		return false
	}
}

func (c *Channels) SendOrder(ctx context.Context, ev models.OrderEvent) bool {
	select {
	case c.Orders <- ev:
		c.increment(func(s *ChannelStats) { s.OrdersSent++ })
		return true
	case <-ctx.Done():
		return false
	default:
		c.increment(func(s *ChannelStats) { s.OrdersDropped++ })
		return false
	}
}

func (c *Channels) SendTicker(ctx context.Context, ev models.TickerEvent) bool {
	select {
	case c.Tickers <- ev:
		c.increment(func(s *ChannelStats) { s.TickersSent++ })
		return true
	case <-ctx.Done():
		return false
	default:
		c.increment(func(s *ChannelStats) { s.TickersDropped++ })
		return false
	}
}

func (c *Channels) SendBook(ctx context.Context, ev models.BookEvent) bool {
	select {
	case c.Books <- ev:
		c.increment(func(s *ChannelStats) { s.BooksSent++ })
		return true
	case <-ctx.Done():
		return false
	default:
		c.increment(func(s *ChannelStats) { s.BooksDropped++ })
		return false
	}
}

func (c *Channels) increment(f func(*ChannelStats)) {
	c.statsMutex.Lock()
	f(&c.stats)
	c.statsMutex.Unlock()
}

func (c *Channels) GetStats() ChannelStats {
	c.statsMutex.RLock()
	defer c.statsMutex.RUnlock()
	return c.stats
}

// StartMetricsReporting logs channel depths and drop counters until the
// context is cancelled.
func (c *Channels) StartMetricsReporting(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	log := c.log.WithComponent("channels")
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			stats := c.GetStats()
			log.WithFields(logger.Fields{
				"trades_queued":   len(c.Trades),
				"orders_queued":   len(c.Orders),
				"tickers_queued":  len(c.Tickers),
				"books_queued":    len(c.Books),
				"trades_dropped":  stats.TradesDropped,
				"orders_dropped":  stats.OrdersDropped,
				"tickers_dropped": stats.TickersDropped,
				"books_dropped":   stats.BooksDropped,
			}).Info("channel metrics")
		}
	}
}
