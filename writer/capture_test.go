package writer

import (
	"context"
	"sync"
	"testing"
	"time"

	appconfig "mitchwire/config"
	"mitchwire/internal/channel"
	"mitchwire/logger"
	"mitchwire/mitch"
	"mitchwire/models"
)

func TestAddTrades(t *testing.T) {
	w := &CaptureWriter{log: logger.GetLogger(), config: &appconfig.Config{}}
	ev := models.TradeEvent{
		Provider:  5,
		Timestamp: 12345,
		Trades: []mitch.TradeBody{
			{TickerID: 1, Price: 99.5, Quantity: 10, TradeID: 7, Side: mitch.SideBuy},
			{TickerID: 1, Price: 99.25, Quantity: 4, TradeID: 8, Side: mitch.SideSell},
		},
		Received: time.Now(),
	}
	w.addTrades(ev)
	if len(w.trades) != 2 {
		t.Fatalf("trades buffered = %d, want 2", len(w.trades))
	}
	if w.trades[0].Provider != 5 || w.trades[0].Price != 99.5 {
		t.Fatalf("first record = %+v", w.trades[0])
	}
	if w.trades[1].Side != int32(mitch.SideSell) {
		t.Fatalf("second record side = %d", w.trades[1].Side)
	}
}

func TestAddOrders(t *testing.T) {
	w := &CaptureWriter{log: logger.GetLogger(), config: &appconfig.Config{}}
	ev := models.OrderEvent{
		Provider:  5,
		Timestamp: 999,
		Orders: []mitch.OrderBody{
			{
				TickerID:    2,
				OrderID:     41,
				Price:       10.5,
				Quantity:    3,
				TypeAndSide: mitch.CombineTypeAndSide(mitch.OrderTypeLimit, mitch.SideSell),
				Expiry:      mitch.NewTimestamp48(86_400),
			},
		},
		Received: time.Now(),
	}
	w.addOrders(ev)
	if len(w.orders) != 1 {
		t.Fatalf("orders buffered = %d, want 1", len(w.orders))
	}
	r := w.orders[0]
	if r.OrderID != 41 || r.Price != 10.5 {
		t.Fatalf("record = %+v", r)
	}
	if r.OrderType != int32(mitch.OrderTypeLimit) || r.Side != int32(mitch.SideSell) {
		t.Fatalf("type/side = %d/%d", r.OrderType, r.Side)
	}
	if r.Expiry != 86_400 {
		t.Fatalf("expiry = %d", r.Expiry)
	}
}

func TestDrainWorkerConsumesEveryChannel(t *testing.T) {
	channels := channel.NewChannels(8)
	w := &CaptureWriter{
		log:      logger.GetLogger(),
		config:   &appconfig.Config{},
		channels: channels,
		wg:       &sync.WaitGroup{},
		ctx:      context.Background(),
	}

	ctx := context.Background()
	channels.SendTrade(ctx, models.TradeEvent{Trades: []mitch.TradeBody{{TradeID: 1}}})
	channels.SendOrder(ctx, models.OrderEvent{Orders: []mitch.OrderBody{{OrderID: 2}}})
	channels.SendTicker(ctx, models.TickerEvent{Tickers: []mitch.TickerBody{{TickerID: 3}}})
	channels.SendBook(ctx, models.BookEvent{
		Book:    mitch.OrderBookBody{NumTicks: 1},
		Volumes: []uint32{9},
	})

	// With the channels closed the worker must drain every buffered
	// event before returning, regardless of which case closes first.
	channels.Close()
	w.wg.Add(1)
	w.drainWorker()

	if len(w.trades) != 1 || w.trades[0].TradeID != 1 {
		t.Fatalf("trades = %+v", w.trades)
	}
	if len(w.orders) != 1 || w.orders[0].OrderID != 2 {
		t.Fatalf("orders = %+v", w.orders)
	}
	if len(w.quotes) != 1 || w.quotes[0].TickerID != 3 {
		t.Fatalf("quotes = %+v", w.quotes)
	}
	if len(w.levels) != 1 || w.levels[0].Volume != 9 {
		t.Fatalf("levels = %+v", w.levels)
	}
}

func TestAddLevelsExpandsBook(t *testing.T) {
	w := &CaptureWriter{log: logger.GetLogger(), config: &appconfig.Config{}}
	ev := models.BookEvent{
		Provider:  5,
		Timestamp: 777,
		Book: mitch.OrderBookBody{
			TickerID:  9,
			FirstTick: 50.0,
			TickSize:  0.5,
			NumTicks:  3,
			Side:      mitch.SideSell,
		},
		Volumes:  []uint32{1, 2, 3},
		Received: time.Now(),
	}
	w.addLevels(ev)
	if len(w.levels) != 3 {
		t.Fatalf("levels buffered = %d, want 3", len(w.levels))
	}
	// Ask side ascends from the first tick.
	if w.levels[2].Price != 51.0 {
		t.Fatalf("level 2 price = %v, want 51.0", w.levels[2].Price)
	}
	if w.levels[1].Level != 1 || w.levels[1].Volume != 2 {
		t.Fatalf("level 1 record = %+v", w.levels[1])
	}
}

func TestGenerateS3Key(t *testing.T) {
	cfg := &appconfig.Config{}
	cfg.Storage.S3.Prefix = "mitch"
	w := &CaptureWriter{log: logger.GetLogger(), config: cfg}

	at := time.Date(2025, 6, 1, 13, 0, 0, 0, time.UTC)
	key := w.generateS3Key("trades", "trades_20250601130000_abcd1234.parquet", at)
	want := "mitch/dataset=trades/date=2025-06-01/hour=13/trades_20250601130000_abcd1234.parquet"
	if key != want {
		t.Fatalf("key = %q, want %q", key, want)
	}
}

func TestFlushAllEmptyIsNoop(t *testing.T) {
	cfg := &appconfig.Config{}
	cfg.Capture.Directory = t.TempDir()
	w := &CaptureWriter{log: logger.GetLogger(), config: cfg}
	// Must not panic or write files with empty buffers.
	w.flushAll("interval")
}
