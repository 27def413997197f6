package marketdata

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"golang-signal-engine/pkg/logger"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// Tick is one live trade observation.
type Tick struct {
	Ticker    string
	Price     float64
	Volume    float64
	Timestamp time.Time
}

// StreamConfig holds the live stream settings.
type StreamConfig struct {
	URL            string        `mapstructure:"url"`
	APIKey         string        `mapstructure:"api_key"`
	ReconnectDelay time.Duration `mapstructure:"reconnect_delay"`
	PingInterval   time.Duration `mapstructure:"ping_interval"`
}

// Stream is a live trade feed over WebSocket. It is connected while a market
// is open and closed again when the market closes; reconnects inside a
// session are automatic.
type Stream struct {
	cfg StreamConfig
	log *logger.Logger

	mu        sync.Mutex
	conn      *websocket.Conn
	connected bool
}

func NewStream(cfg StreamConfig, log *logger.Logger) *Stream {
	if cfg.ReconnectDelay <= 0 {
		cfg.ReconnectDelay = 5 * time.Second
	}
	if cfg.PingInterval <= 0 {
		cfg.PingInterval = 30 * time.Second
	}
	return &Stream{cfg: cfg, log: log}
}

// Connect dials the provider and subscribes the given tickers.
func (s *Stream) Connect(ctx context.Context, tickers []string) error {
	endpoint := fmt.Sprintf("%s?token=%s", s.cfg.URL, s.cfg.APIKey)
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, endpoint, nil)
	if err != nil {
		return fmt.Errorf("stream connect: %w", err)
	}

	s.mu.Lock()
	s.conn = conn
	s.connected = true
	s.mu.Unlock()

	for _, ticker := range tickers {
		msg := map[string]string{"type": "subscribe", "symbol": ticker}
		if err := conn.WriteJSON(msg); err != nil {
			return fmt.Errorf("subscribe %s: %w", ticker, err)
		}
	}
	s.log.Info("Live stream connected", logger.IntField("tickers", len(tickers)))
	return nil
}

type streamTrade struct {
	Symbol string  `json:"s"`
	Price  float64 `json:"p"`
	Volume float64 `json:"v"`
	TimeMS int64   `json:"t"`
}

type streamMessage struct {
	Type string        `json:"type"`
	Data []streamTrade `json:"data"`
}

// Read delivers ticks until the context is cancelled or the connection
// drops. The error channel receives at most one error.
func (s *Stream) Read(ctx context.Context) (<-chan Tick, <-chan error) {
	ticks := make(chan Tick, 1024)
	errs := make(chan error, 1)

	go func() {
		ticker := time.NewTicker(s.cfg.PingInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.mu.Lock()
				conn := s.conn
				s.mu.Unlock()
				if conn == nil {
					return
				}
				if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(5*time.Second)); err != nil {
					s.log.Warn("Live stream ping failed", zap.Error(err))
					return
				}
			}
		}
	}()

	go func() {
		defer close(ticks)
		for {
			if ctx.Err() != nil {
				return
			}
			s.mu.Lock()
			conn := s.conn
			s.mu.Unlock()
			if conn == nil {
				errs <- fmt.Errorf("stream not connected")
				return
			}

			_, payload, err := conn.ReadMessage()
			if err != nil {
				errs <- fmt.Errorf("stream read: %w", err)
				return
			}

			var msg streamMessage
			if err := json.Unmarshal(payload, &msg); err != nil {
				s.log.Warn("Live stream message dropped", zap.Error(err))
				continue
			}
			if msg.Type != "trade" {
				continue
			}
			for _, trade := range msg.Data {
				select {
				case ticks <- Tick{
					Ticker:    trade.Symbol,
					Price:     trade.Price,
					Volume:    trade.Volume,
					Timestamp: time.UnixMilli(trade.TimeMS).UTC(),
				}:
				default:
					// Slow consumers drop ticks rather than stall the read loop.
				}
			}
		}
	}()

	return ticks, errs
}

// ReconnectDelay is the wait before a session-internal reconnect attempt.
func (s *Stream) ReconnectDelay() time.Duration { return s.cfg.ReconnectDelay }

// Close tears the connection down.
func (s *Stream) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.conn == nil {
		return nil
	}
	err := s.conn.Close()
	s.conn = nil
	s.connected = false
	return err
}
