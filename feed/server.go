package feed

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"golang.org/x/time/rate"

	"mitchwire/config"
	"mitchwire/frame"
	"mitchwire/internal/channel"
	"mitchwire/logger"
	"mitchwire/mitch"
	"mitchwire/models"
)

// Server accepts feed connections, frames complete messages off each
// stream and fans the decoded bodies out through the channel set. One
// goroutine runs per connection; the framer itself stays synchronous.
type Server struct {
	config   *config.Config
	channels *channel.Channels
	listener net.Listener
	httpSrv  *http.Server
	conns    map[io.Closer]struct{}
	connsMu  sync.Mutex
	ctx      context.Context
	wg       *sync.WaitGroup
	mu       sync.RWMutex
	running  bool
	log      *logger.Log
}

func NewServer(cfg *config.Config, ch *channel.Channels) *Server {
	log := logger.GetLogger()

	log.WithComponent("feed_server").WithFields(logger.Fields{
		"listen":            cfg.Server.Listen,
		"provider_id":       cfg.Server.ProviderID,
		"max_message_bytes": cfg.Server.MaxMessageBytes,
	}).Info("feed server initialized")

	return &Server{
		config:   cfg,
		channels: ch,
		conns:    make(map[io.Closer]struct{}),
		wg:       &sync.WaitGroup{},
		log:      log,
	}
}

// Start begins accepting connections on the configured TCP listener
// and, when enabled, the WebSocket endpoint.
func (s *Server) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return fmt.Errorf("feed server already running")
	}
	s.running = true
	s.ctx = ctx
	s.mu.Unlock()

	log := s.log.WithComponent("feed_server").WithFields(logger.Fields{"operation": "start"})

	listener, err := net.Listen("tcp", s.config.Server.Listen)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", s.config.Server.Listen, err)
	}
	s.listener = listener

	pid := s.config.Server.ProviderID
	log.WithFields(logger.Fields{
		"addr":          listener.Addr().String(),
		"trades_topic":  mitch.NewChannelID(pid, mitch.MsgTypeTrade).String(),
		"orders_topic":  mitch.NewChannelID(pid, mitch.MsgTypeOrder).String(),
		"tickers_topic": mitch.NewChannelID(pid, mitch.MsgTypeTicker).String(),
		"books_topic":   mitch.NewChannelID(pid, mitch.MsgTypeOrderBook).String(),
	}).Info("starting feed server")

	s.wg.Add(1)
	go s.acceptLoop()

	if s.config.Server.WebSocket.Enabled {
		if err := s.startWebSocket(); err != nil {
			listener.Close()
			return err
		}
	}

	log.Info("feed server started successfully")
	return nil
}

// Stop closes the listeners and waits for every connection handler to
// finish.
func (s *Server) Stop() {
	s.mu.Lock()
	s.running = false
	s.mu.Unlock()

	if s.listener != nil {
		s.listener.Close()
	}
	if s.httpSrv != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		s.httpSrv.Shutdown(shutdownCtx)
		cancel()
	}

	// Close accepted connections so handlers blocked in a read return.
	s.connsMu.Lock()
	for conn := range s.conns {
		conn.Close()
	}
	s.connsMu.Unlock()

	s.log.WithComponent("feed_server").Info("stopping feed server")
	s.wg.Wait()
	s.log.WithComponent("feed_server").Info("feed server stopped")
}

// Addr returns the bound TCP listener address.
func (s *Server) Addr() net.Addr {
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

func (s *Server) track(conn io.Closer) {
	s.connsMu.Lock()
	s.conns[conn] = struct{}{}
	s.connsMu.Unlock()
}

func (s *Server) untrack(conn io.Closer) {
	s.connsMu.Lock()
	delete(s.conns, conn)
	s.connsMu.Unlock()
	conn.Close()
}

func (s *Server) acceptLoop() {
	defer s.wg.Done()

	log := s.log.WithComponent("feed_server").WithFields(logger.Fields{"worker": "accept"})
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			select {
			case <-s.ctx.Done():
			default:
				s.mu.RLock()
				running := s.running
				s.mu.RUnlock()
				if running {
					log.WithError(err).Warn("accept failed")
				}
			}
			return
		}
		s.track(conn)
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			defer s.untrack(conn)
			s.handleStream(conn, conn.RemoteAddr().String(), "tcp")
		}()
	}
}

func (s *Server) startWebSocket() error {
	upgrader := websocket.Upgrader{
		ReadBufferSize:  4096,
		WriteBufferSize: 4096,
		CheckOrigin:     func(r *http.Request) bool { return true },
	}

	mux := http.NewServeMux()
	mux.HandleFunc(s.config.Server.WebSocket.Path, func(w http.ResponseWriter, r *http.Request) {
		wsConn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			s.log.WithComponent("feed_server").WithError(err).Warn("websocket upgrade failed")
			return
		}
		s.track(wsConn)
		defer s.untrack(wsConn)
		s.handleStream(NewWSStream(wsConn), r.RemoteAddr, "websocket")
	})

	s.httpSrv = &http.Server{Addr: s.config.Server.WebSocket.Listen, Handler: mux}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		err := s.httpSrv.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.log.WithComponent("feed_server").WithError(err).Error("websocket listener failed")
		}
	}()

	s.log.WithComponent("feed_server").WithFields(logger.Fields{
		"listen": s.config.Server.WebSocket.Listen,
		"path":   s.config.Server.WebSocket.Path,
	}).Info("websocket endpoint started")
	return nil
}

// handleStream frames and dispatches messages from one connection until
// the peer disconnects or a framing error makes the stream unusable.
func (s *Server) handleStream(stream io.Reader, remote, transport string) {
	connID := uuid.New().String()
	log := s.log.WithComponent("feed_server").WithFields(logger.Fields{
		"conn_id":   connID,
		"remote":    remote,
		"transport": transport,
	})
	log.Info("connection established")

	var limiter *rate.Limiter
	if rr := s.config.Server.ReadRate; rr.MessagesPerSecond > 0 {
		burst := rr.Burst
		if burst <= 0 {
			burst = rr.MessagesPerSecond
		}
		limiter = rate.NewLimiter(rate.Limit(rr.MessagesPerSecond), burst)
	}

	buf := make([]byte, s.config.Server.MaxMessageBytes)
	var messages int64
	for {
		select {
		case <-s.ctx.Done():
			log.WithFields(logger.Fields{"messages": messages}).Info("connection handler shutting down")
			return
		default:
		}

		n, err := frame.ReadMessage(stream, buf)
		if err != nil {
			if errors.Is(err, io.EOF) {
				log.WithFields(logger.Fields{"messages": messages}).Info("peer disconnected")
			} else {
				log.WithError(err).WithFields(logger.Fields{"messages": messages}).Warn("framing failed, closing connection")
			}
			return
		}

		if limiter != nil {
			if err := limiter.Wait(s.ctx); err != nil {
				return
			}
		}

		if err := s.dispatch(connID, buf[:n]); err != nil {
			log.WithError(err).Warn("message dispatch failed")
			continue
		}
		messages++
	}
}

// dispatch decodes one framed message and hands its bodies to the
// matching channel.
func (s *Server) dispatch(connID string, wire []byte) error {
	var msg mitch.Message
	if _, err := msg.Decode(wire); err != nil {
		return err
	}

	now := time.Now()
	ts := msg.Header.Timestamp.Nanos()
	provider := s.config.Server.ProviderID

	switch msg.Header.Type {
	case mitch.MsgTypeTrade:
		s.channels.SendTrade(s.ctx, models.TradeEvent{
			ConnID: connID, Provider: provider, Timestamp: ts, Trades: msg.Trades, Received: now,
		})
	case mitch.MsgTypeOrder:
		s.channels.SendOrder(s.ctx, models.OrderEvent{
			ConnID: connID, Provider: provider, Timestamp: ts, Orders: msg.Orders, Received: now,
		})
	case mitch.MsgTypeTicker:
		s.channels.SendTicker(s.ctx, models.TickerEvent{
			ConnID: connID, Provider: provider, Timestamp: ts, Tickers: msg.Tickers, Received: now,
		})
	case mitch.MsgTypeOrderBook:
		s.channels.SendBook(s.ctx, models.BookEvent{
			ConnID: connID, Provider: provider, Timestamp: ts, Book: *msg.Book, Volumes: msg.Volumes, Received: now,
		})
	}
	return nil
}
