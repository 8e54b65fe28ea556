package writer

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"
	"github.com/xitongsys/parquet-go/parquet"
	"github.com/xitongsys/parquet-go/source"
	parquetwriter "github.com/xitongsys/parquet-go/writer"

	appconfig "mitchwire/config"
	"mitchwire/internal/channel"
	"mitchwire/logger"
	"mitchwire/models"
)

// TradeRecord is one captured trade row.
type TradeRecord struct {
	Provider  int32   `parquet:"name=provider, type=INT32"`
	TickerID  int64   `parquet:"name=ticker_id, type=INT64"`
	Timestamp int64   `parquet:"name=timestamp, type=INT64"`
	Price     float64 `parquet:"name=price, type=DOUBLE"`
	Quantity  int64   `parquet:"name=quantity, type=INT64"`
	TradeID   int64   `parquet:"name=trade_id, type=INT64"`
	Side      int32   `parquet:"name=side, type=INT32"`
	Received  int64   `parquet:"name=received, type=INT64"`
}

// OrderRecord is one captured order row.
type OrderRecord struct {
	Provider  int32   `parquet:"name=provider, type=INT32"`
	TickerID  int64   `parquet:"name=ticker_id, type=INT64"`
	Timestamp int64   `parquet:"name=timestamp, type=INT64"`
	OrderID   int64   `parquet:"name=order_id, type=INT64"`
	Price     float64 `parquet:"name=price, type=DOUBLE"`
	Quantity  int64   `parquet:"name=quantity, type=INT64"`
	OrderType int32   `parquet:"name=order_type, type=INT32"`
	Side      int32   `parquet:"name=side, type=INT32"`
	Expiry    int64   `parquet:"name=expiry, type=INT64"`
	Received  int64   `parquet:"name=received, type=INT64"`
}

// QuoteRecord is one captured best bid/ask row.
type QuoteRecord struct {
	Provider  int32   `parquet:"name=provider, type=INT32"`
	TickerID  int64   `parquet:"name=ticker_id, type=INT64"`
	Timestamp int64   `parquet:"name=timestamp, type=INT64"`
	BidPrice  float64 `parquet:"name=bid_price, type=DOUBLE"`
	AskPrice  float64 `parquet:"name=ask_price, type=DOUBLE"`
	BidVolume int64   `parquet:"name=bid_volume, type=INT64"`
	AskVolume int64   `parquet:"name=ask_volume, type=INT64"`
	Received  int64   `parquet:"name=received, type=INT64"`
}

// LevelRecord is one price level of a captured book snapshot.
type LevelRecord struct {
	Provider  int32   `parquet:"name=provider, type=INT32"`
	TickerID  int64   `parquet:"name=ticker_id, type=INT64"`
	Timestamp int64   `parquet:"name=timestamp, type=INT64"`
	Side      int32   `parquet:"name=side, type=INT32"`
	Level     int32   `parquet:"name=level, type=INT32"`
	Price     float64 `parquet:"name=price, type=DOUBLE"`
	Volume    int64   `parquet:"name=volume, type=INT64"`
	Received  int64   `parquet:"name=received, type=INT64"`
}

// memoryFileWriter implements the ParquetFile interface over a byte
// buffer so files can be built without touching disk.
type memoryFileWriter struct {
	buffer *bytes.Buffer
}

func newMemoryFileWriter() *memoryFileWriter {
	return &memoryFileWriter{buffer: &bytes.Buffer{}}
}

func (mfw *memoryFileWriter) Create(name string) (source.ParquetFile, error) { return mfw, nil }

func (mfw *memoryFileWriter) Open(name string) (source.ParquetFile, error) { return mfw, nil }

func (mfw *memoryFileWriter) Seek(offset int64, whence int) (int64, error) {
	return int64(mfw.buffer.Len()), nil
}
func (mfw *memoryFileWriter) Read(b []byte) (int, error) { return mfw.buffer.Read(b) }

func (mfw *memoryFileWriter) Write(b []byte) (int, error) { return mfw.buffer.Write(b) }

func (mfw *memoryFileWriter) Close() error { return nil }

func (mfw *memoryFileWriter) Bytes() []byte { return mfw.buffer.Bytes() }

// CaptureWriter drains the message channels into in-memory row buffers
// and flushes each dataset as a parquet file on an interval: always to
// the local capture directory, and to S3 when storage is enabled.
type CaptureWriter struct {
	config      *appconfig.Config
	channels    *channel.Channels
	s3Client    *s3.Client
	ctx         context.Context
	wg          *sync.WaitGroup
	mu          sync.RWMutex
	running     bool
	log         *logger.Log
	trades      []TradeRecord
	orders      []OrderRecord
	quotes      []QuoteRecord
	levels      []LevelRecord
	flushTicker *time.Ticker
}

func NewCaptureWriter(cfg *appconfig.Config, ch *channel.Channels) (*CaptureWriter, error) {
	log := logger.GetLogger()

	w := &CaptureWriter{
		config:   cfg,
		channels: ch,
		wg:       &sync.WaitGroup{},
		log:      log,
	}

	if cfg.Storage.S3.Enabled {
		client, err := newS3Client(cfg)
		if err != nil {
			return nil, err
		}
		w.s3Client = client
	}

	log.WithComponent("capture_writer").WithFields(logger.Fields{
		"directory":      cfg.Capture.Directory,
		"flush_interval": cfg.Capture.FlushInterval,
		"compression":    cfg.Capture.Compression,
		"s3_enabled":     cfg.Storage.S3.Enabled,
	}).Info("capture writer initialized")

	return w, nil
}

func newS3Client(cfg *appconfig.Config) (*s3.Client, error) {
	ctx := context.Background()

	loadOpts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(cfg.Storage.S3.Region),
	}
	if cfg.Storage.S3.AccessKeyID != "" && cfg.Storage.S3.SecretAccessKey != "" {
		loadOpts = append(loadOpts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(
				cfg.Storage.S3.AccessKeyID,
				cfg.Storage.S3.SecretAccessKey,
				"",
			),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS configuration: %w", err)
	}

	creds, err := awsCfg.Credentials.Retrieve(ctx)
	if err != nil || !creds.HasKeys() {
		return nil, fmt.Errorf("aws credentials not found")
	}

	return s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Storage.S3.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Storage.S3.Endpoint)
		}
		o.UsePathStyle = cfg.Storage.S3.PathStyle
	}), nil
}

// Start launches the drain worker and the flush worker.
func (w *CaptureWriter) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return fmt.Errorf("capture writer already running")
	}
	w.running = true
	w.ctx = ctx
	w.mu.Unlock()

	log := w.log.WithComponent("capture_writer").WithFields(logger.Fields{"operation": "start"})
	log.Info("starting capture writer")

	if err := os.MkdirAll(w.config.Capture.Directory, 0o755); err != nil {
		return fmt.Errorf("create capture directory: %w", err)
	}

	w.flushTicker = time.NewTicker(w.config.Capture.FlushInterval)

	w.wg.Add(2)
	go w.drainWorker()
	go w.flushWorker()

	log.Info("capture writer started successfully")
	return nil
}

// Stop waits for the workers; the final flush runs on context
// cancellation inside the flush worker.
func (w *CaptureWriter) Stop() {
	w.mu.Lock()
	w.running = false
	w.mu.Unlock()

	if w.flushTicker != nil {
		w.flushTicker.Stop()
	}

	w.log.WithComponent("capture_writer").Info("stopping capture writer")
	w.wg.Wait()
	w.log.WithComponent("capture_writer").Info("capture writer stopped")
}

func (w *CaptureWriter) drainWorker() {
	defer w.wg.Done()

	log := w.log.WithComponent("capture_writer").WithFields(logger.Fields{"worker": "drain"})
	log.Info("starting drain worker")

	// A closed channel disables its case; the worker keeps draining the
	// others until all four are closed or the context ends.
	trades, orders, tickers, books := w.channels.Trades, w.channels.Orders, w.channels.Tickers, w.channels.Books
	for trades != nil || orders != nil || tickers != nil || books != nil {
		select {
		case <-w.ctx.Done():
			log.Info("drain worker stopped due to context cancellation")
			return
		case ev, ok := <-trades:
			if !ok {
				trades = nil
				continue
			}
			w.addTrades(ev)
		case ev, ok := <-orders:
			if !ok {
				orders = nil
				continue
			}
			w.addOrders(ev)
		case ev, ok := <-tickers:
			if !ok {
				tickers = nil
				continue
			}
			w.addQuotes(ev)
		case ev, ok := <-books:
			if !ok {
				books = nil
				continue
			}
			w.addLevels(ev)
		}
	}
	log.Info("all channels closed, drain worker stopping")
}

func (w *CaptureWriter) addTrades(ev models.TradeEvent) {
	received := ev.Received.UnixNano()
	w.mu.Lock()
	for i := range ev.Trades {
		t := &ev.Trades[i]
		w.trades = append(w.trades, TradeRecord{
			Provider:  int32(ev.Provider),
			TickerID:  int64(t.TickerID),
			Timestamp: int64(ev.Timestamp),
			Price:     t.Price,
			Quantity:  int64(t.Quantity),
			TradeID:   int64(t.TradeID),
			Side:      int32(t.Side),
			Received:  received,
		})
	}
	w.mu.Unlock()
}

func (w *CaptureWriter) addOrders(ev models.OrderEvent) {
	received := ev.Received.UnixNano()
	w.mu.Lock()
	for i := range ev.Orders {
		o := &ev.Orders[i]
		w.orders = append(w.orders, OrderRecord{
			Provider:  int32(ev.Provider),
			TickerID:  int64(o.TickerID),
			Timestamp: int64(ev.Timestamp),
			OrderID:   int64(o.OrderID),
			Price:     o.Price,
			Quantity:  int64(o.Quantity),
			OrderType: int32(o.OrderType()),
			Side:      int32(o.OrderSide()),
			Expiry:    int64(o.Expiry.Nanos()),
			Received:  received,
		})
	}
	w.mu.Unlock()
}

func (w *CaptureWriter) addQuotes(ev models.TickerEvent) {
	received := ev.Received.UnixNano()
	w.mu.Lock()
	for i := range ev.Tickers {
		q := &ev.Tickers[i]
		w.quotes = append(w.quotes, QuoteRecord{
			Provider:  int32(ev.Provider),
			TickerID:  int64(q.TickerID),
			Timestamp: int64(ev.Timestamp),
			BidPrice:  q.BidPrice,
			AskPrice:  q.AskPrice,
			BidVolume: int64(q.BidVolume),
			AskVolume: int64(q.AskVolume),
			Received:  received,
		})
	}
	w.mu.Unlock()
}

func (w *CaptureWriter) addLevels(ev models.BookEvent) {
	received := ev.Received.UnixNano()
	w.mu.Lock()
	for i, volume := range ev.Volumes {
		w.levels = append(w.levels, LevelRecord{
			Provider:  int32(ev.Provider),
			TickerID:  int64(ev.Book.TickerID),
			Timestamp: int64(ev.Timestamp),
			Side:      int32(ev.Book.Side),
			Level:     int32(i),
			Price:     ev.Book.PriceAt(i),
			Volume:    int64(volume),
			Received:  received,
		})
	}
	w.mu.Unlock()
}

func (w *CaptureWriter) flushWorker() {
	defer w.wg.Done()

	log := w.log.WithComponent("capture_writer").WithFields(logger.Fields{"worker": "flush"})
	log.Info("starting flush worker")

	for {
		select {
		case <-w.ctx.Done():
			w.flushAll("shutdown")
			log.Info("flush worker stopped due to context cancellation")
			return
		case <-w.flushTicker.C:
			w.flushAll("interval")
		}
	}
}

func (w *CaptureWriter) flushAll(reason string) {
	w.mu.Lock()
	trades, orders, quotes, levels := w.trades, w.orders, w.quotes, w.levels
	w.trades, w.orders, w.quotes, w.levels = nil, nil, nil, nil
	w.mu.Unlock()

	if len(trades) == 0 && len(orders) == 0 && len(quotes) == 0 && len(levels) == 0 {
		return
	}

	w.log.WithComponent("capture_writer").WithFields(logger.Fields{
		"trades": len(trades),
		"orders": len(orders),
		"quotes": len(quotes),
		"levels": len(levels),
		"reason": reason,
	}).Info("flushing capture buffers")

	if len(trades) > 0 {
		w.flushDataset("trades", len(trades), func(pw *parquetwriter.ParquetWriter) error {
			for _, r := range trades {
				if err := pw.Write(r); err != nil {
					return err
				}
			}
			return nil
		}, new(TradeRecord))
	}
	if len(orders) > 0 {
		w.flushDataset("orders", len(orders), func(pw *parquetwriter.ParquetWriter) error {
			for _, r := range orders {
				if err := pw.Write(r); err != nil {
					return err
				}
			}
			return nil
		}, new(OrderRecord))
	}
	if len(quotes) > 0 {
		w.flushDataset("quotes", len(quotes), func(pw *parquetwriter.ParquetWriter) error {
			for _, r := range quotes {
				if err := pw.Write(r); err != nil {
					return err
				}
			}
			return nil
		}, new(QuoteRecord))
	}
	if len(levels) > 0 {
		w.flushDataset("books", len(levels), func(pw *parquetwriter.ParquetWriter) error {
			for _, r := range levels {
				if err := pw.Write(r); err != nil {
					return err
				}
			}
			return nil
		}, new(LevelRecord))
	}
}

func (w *CaptureWriter) flushDataset(dataset string, rows int, writeRows func(*parquetwriter.ParquetWriter) error, schema interface{}) {
	log := w.log.WithComponent("capture_writer").WithFields(logger.Fields{
		"dataset":   dataset,
		"rows":      rows,
		"operation": "flush_dataset",
	})

	data, err := w.createParquetFile(schema, writeRows)
	if err != nil {
		log.WithError(err).Error("failed to create parquet file")
		return
	}

	now := time.Now().UTC()
	filename := fmt.Sprintf("%s_%s_%s.parquet", dataset, now.Format("20060102150405"), uuid.New().String()[:8])

	localPath := filepath.Join(w.config.Capture.Directory, filename)
	if err := os.WriteFile(localPath, data, 0o644); err != nil {
		log.WithError(err).Error("failed to write capture file")
		return
	}
	log.WithFields(logger.Fields{"path": localPath, "file_size": len(data)}).Info("capture file written")

	if w.s3Client != nil {
		key := w.generateS3Key(dataset, filename, now)
		if err := w.uploadToS3(key, data); err != nil {
			log.WithError(err).
				WithEnv("S3_BUCKET").
				WithFields(logger.Fields{"bucket": w.config.Storage.S3.Bucket, "s3_key": key}).
				Error("failed to upload to S3")
			return
		}
		log.WithFields(logger.Fields{"s3_key": key}).Info("capture file uploaded")
	}
}

func (w *CaptureWriter) createParquetFile(schema interface{}, writeRows func(*parquetwriter.ParquetWriter) error) ([]byte, error) {
	fw := newMemoryFileWriter()

	pw, err := parquetwriter.NewParquetWriter(fw, schema, 4)
	if err != nil {
		return nil, fmt.Errorf("failed to create parquet writer: %w", err)
	}

	switch w.config.Capture.Compression {
	case "snappy":
		pw.CompressionType = parquet.CompressionCodec_SNAPPY
	case "gzip":
		pw.CompressionType = parquet.CompressionCodec_GZIP
	default:
		pw.CompressionType = parquet.CompressionCodec_UNCOMPRESSED
	}

	if err := writeRows(pw); err != nil {
		pw.WriteStop()
		return nil, fmt.Errorf("failed to write parquet record: %w", err)
	}

	if err := pw.WriteStop(); err != nil {
		return nil, fmt.Errorf("failed to finalize parquet writing: %w", err)
	}

	return fw.Bytes(), nil
}

func (w *CaptureWriter) generateS3Key(dataset, filename string, ts time.Time) string {
	key := filepath.Join(
		w.config.Storage.S3.Prefix,
		fmt.Sprintf("dataset=%s", dataset),
		fmt.Sprintf("date=%s", ts.Format("2006-01-02")),
		fmt.Sprintf("hour=%02d", ts.Hour()),
		filename,
	)
	return filepath.ToSlash(key)
}

func (w *CaptureWriter) uploadToS3(key string, data []byte) error {
	input := &s3.PutObjectInput{
		Bucket:      aws.String(w.config.Storage.S3.Bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String("application/octet-stream"),
		Metadata: map[string]string{
			"content-type":      "parquet",
			"compression":       w.config.Capture.Compression,
			"mitchwire-version": w.config.Mitchwire.Version,
		},
	}

	ctx := context.WithoutCancel(w.ctx)
	_, err := w.s3Client.PutObject(ctx, input)
	if err != nil {
		return fmt.Errorf("failed to upload to S3 bucket %s: %w", w.config.Storage.S3.Bucket, err)
	}
	return nil
}
