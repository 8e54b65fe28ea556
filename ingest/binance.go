package ingest

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"sync"

	binance "github.com/adshao/go-binance/v2"

	"mitchwire/config"
	"mitchwire/feed"
	"mitchwire/logger"
	"mitchwire/mitch"
)

// quantityScale converts fractional exchange quantities into the
// integer volume units carried on the wire (1e-8 of the base asset).
const quantityScale = 1e8

// BinanceReader subscribes to Binance spot streams and republishes
// each event as a wire message through a feed publisher. One worker
// pair runs per symbol, one for aggregated trades and one for best
// bid/ask quotes.
type BinanceReader struct {
	config    *config.Config
	publisher *feed.Publisher
	tickerIDs map[string]mitch.TickerID
	ctx       context.Context
	wg        *sync.WaitGroup
	mu        sync.RWMutex
	running   bool
	log       *logger.Log
}

func NewBinanceReader(cfg *config.Config, pub *feed.Publisher) *BinanceReader {
	log := logger.GetLogger()

	// Symbols get stable per-process ticker IDs in configuration
	// order: crypto spot pairs with sequential base asset IDs.
	ids := make(map[string]mitch.TickerID, len(cfg.Ingest.Binance.Symbols))
	for i, symbol := range cfg.Ingest.Binance.Symbols {
		id, err := mitch.PackTickerID(mitch.InstrumentSpot, mitch.AssetCrypto, uint16(i+1), mitch.AssetCrypto, 0, 0)
		if err != nil {
			continue
		}
		ids[symbol] = id
	}

	log.WithComponent("binance_ingest").WithFields(logger.Fields{
		"symbols":     cfg.Ingest.Binance.Symbols,
		"provider_id": cfg.Ingest.Binance.ProviderID,
		"target":      cfg.Ingest.Binance.Target,
	}).Info("binance ingest initialized")

	return &BinanceReader{
		config:    cfg,
		publisher: pub,
		tickerIDs: ids,
		wg:        &sync.WaitGroup{},
		log:       log,
	}
}

// Start subscribes to the configured symbol streams.
func (r *BinanceReader) Start(ctx context.Context) error {
	r.mu.Lock()
	if r.running {
		r.mu.Unlock()
		return fmt.Errorf("binance ingest already running")
	}
	r.running = true
	r.ctx = ctx
	r.mu.Unlock()

	log := r.log.WithComponent("binance_ingest").WithFields(logger.Fields{"operation": "start"})
	log.WithFields(logger.Fields{"symbols": r.config.Ingest.Binance.Symbols}).Info("starting binance ingest")

	for _, symbol := range r.config.Ingest.Binance.Symbols {
		r.wg.Add(2)
		go r.streamTrades(symbol)
		go r.streamQuotes(symbol)
	}

	log.Info("binance ingest started successfully")
	return nil
}

// Stop terminates every stream subscription and waits for the workers.
func (r *BinanceReader) Stop() {
	r.mu.Lock()
	r.running = false
	r.mu.Unlock()

	r.log.WithComponent("binance_ingest").Info("stopping binance ingest")
	r.wg.Wait()
	r.log.WithComponent("binance_ingest").Info("binance ingest stopped")
}

func (r *BinanceReader) streamTrades(symbol string) {
	defer r.wg.Done()

	log := r.log.WithComponent("binance_ingest").WithFields(logger.Fields{
		"symbol": symbol,
		"worker": "agg_trades",
	})

	tickerID, ok := r.tickerIDs[symbol]
	if !ok {
		log.Error("no ticker id for symbol")
		return
	}

	handler := func(event *binance.WsAggTradeEvent) {
		price, err := strconv.ParseFloat(event.Price, 64)
		if err != nil {
			log.WithError(err).Warn("unparseable trade price")
			return
		}
		qty, err := strconv.ParseFloat(event.Quantity, 64)
		if err != nil {
			log.WithError(err).Warn("unparseable trade quantity")
			return
		}

		side := mitch.SideBuy
		if event.IsBuyerMaker {
			side = mitch.SideSell
		}

		trade := mitch.TradeBody{
			TickerID: uint64(tickerID),
			Price:    price,
			Quantity: scaleQuantity(qty),
			TradeID:  uint32(event.AggTradeID),
			Side:     side,
		}
		if err := r.publisher.PublishTrades([]mitch.TradeBody{trade}); err != nil {
			log.WithError(err).Warn("failed to publish trade")
		}
	}

	errHandler := func(err error) {
		if err != nil {
			log.WithError(err).Warn("websocket error")
		}
	}

	doneC, stopC, err := binance.WsAggTradeServe(symbol, handler, errHandler)
	if err != nil {
		log.WithError(err).Error("failed to subscribe to agg trade stream")
		return
	}

	select {
	case <-r.ctx.Done():
		close(stopC)
		<-doneC
	case <-doneC:
		// stream ended
	}
}

func (r *BinanceReader) streamQuotes(symbol string) {
	defer r.wg.Done()

	log := r.log.WithComponent("binance_ingest").WithFields(logger.Fields{
		"symbol": symbol,
		"worker": "book_ticker",
	})

	tickerID, ok := r.tickerIDs[symbol]
	if !ok {
		log.Error("no ticker id for symbol")
		return
	}

	handler := func(event *binance.WsBookTickerEvent) {
		bidPrice, err1 := strconv.ParseFloat(event.BestBidPrice, 64)
		askPrice, err2 := strconv.ParseFloat(event.BestAskPrice, 64)
		bidQty, err3 := strconv.ParseFloat(event.BestBidQty, 64)
		askQty, err4 := strconv.ParseFloat(event.BestAskQty, 64)
		if err1 != nil || err2 != nil || err3 != nil || err4 != nil {
			log.Warn("unparseable book ticker fields")
			return
		}

		quote := mitch.TickerBody{
			TickerID:  uint64(tickerID),
			BidPrice:  bidPrice,
			AskPrice:  askPrice,
			BidVolume: scaleQuantity(bidQty),
			AskVolume: scaleQuantity(askQty),
		}
		if err := r.publisher.PublishTickers([]mitch.TickerBody{quote}); err != nil {
			log.WithError(err).Warn("failed to publish quote")
		}
	}

	errHandler := func(err error) {
		if err != nil {
			log.WithError(err).Warn("websocket error")
		}
	}

	doneC, stopC, err := binance.WsBookTickerServe(symbol, handler, errHandler)
	if err != nil {
		log.WithError(err).Error("failed to subscribe to book ticker stream")
		return
	}

	select {
	case <-r.ctx.Done():
		close(stopC)
		<-doneC
	case <-doneC:
		// stream ended
	}
}

// scaleQuantity converts a fractional quantity to wire volume units,
// saturating at the 32-bit ceiling.
func scaleQuantity(q float64) uint32 {
	scaled := q * quantityScale
	if scaled >= math.MaxUint32 {
		return math.MaxUint32
	}
	if scaled <= 0 {
		return 0
	}
	return uint32(scaled)
}
