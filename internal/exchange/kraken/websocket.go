package kraken

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"marketpipeline/internal/model"
)

// WebSocketURL is Kraken's v2 public WebSocket endpoint (spec.md §6).
const WebSocketURL = "wss://ws.kraken.com/v2"

// wsSubscribeMessage is the subscribe payload spec.md §6 requires:
// channel "trade", no snapshot.
type wsSubscribeMessage struct {
	Method string       `json:"method"`
	Params wsSubscribeParams `json:"params"`
}

type wsSubscribeParams struct {
	Channel  string   `json:"channel"`
	Symbol   []string `json:"symbol"`
	Snapshot bool     `json:"snapshot"`
}

type wsTradeFrame struct {
	Channel string       `json:"channel"`
	Type    string       `json:"type"`
	Data    []wsTradeMsg `json:"data"`
}

type wsTradeMsg struct {
	Symbol    string  `json:"symbol"`
	Price     float64 `json:"price"`
	Qty       float64 `json:"qty"`
	Timestamp string  `json:"timestamp"`
}

// WebSocketSource subscribes to Kraken's trade channel for a set of
// pairs, adapted from the teacher's BinanceConnector lifecycle (dial,
// read-loop goroutine feeding a channel) but wired to Kraken v2's
// subscribe/ack/snapshot-skip/heartbeat-drop protocol instead of Binance's
// combined-stream framing. It does not reconnect: a read error ends the
// read loop and is returned from the next GetTrades call.
type WebSocketSource struct {
	productIDs []string
	logger     *zap.Logger

	mu       sync.Mutex
	conn     *websocket.Conn
	closed   bool

	tradeCh chan []model.Trade
	errCh   chan error
}

// NewWebSocketSource dials Kraken's WS endpoint, subscribes to the
// trade channel for productIDs, and skips the ack+snapshot frame pair
// per symbol that the subscribe handshake returns (spec.md §4.1/§6).
func NewWebSocketSource(productIDs []string, logger *zap.Logger) (*WebSocketSource, error) {
	dialer := websocket.Dialer{
		HandshakeTimeout: 45 * time.Second,
	}
	headers := http.Header{}
	headers.Set("User-Agent", "marketpipeline-trades/1.0")

	conn, _, err := dialer.Dial(WebSocketURL, headers)
	if err != nil {
		return nil, fmt.Errorf("dialing kraken websocket: %w", err)
	}

	s := &WebSocketSource{
		productIDs: productIDs,
		logger:     logger,
		conn:       conn,
		tradeCh:    make(chan []model.Trade, 1024),
		errCh:      make(chan error, 1),
	}

	if err := s.subscribe(); err != nil {
		conn.Close()
		return nil, err
	}

	go s.readLoop()
	return s, nil
}

// subscribe sends the subscribe frame and discards the ack + snapshot
// message pair per symbol, matching the original's `_subscribe` (two
// `recv()` calls per product_id after the subscribe send).
func (s *WebSocketSource) subscribe() error {
	msg := wsSubscribeMessage{
		Method: "subscribe",
		Params: wsSubscribeParams{
			Channel:  "trade",
			Symbol:   s.productIDs,
			Snapshot: false,
		},
	}
	if err := s.conn.WriteJSON(msg); err != nil {
		return fmt.Errorf("sending kraken subscribe: %w", err)
	}
	for range s.productIDs {
		if _, _, err := s.conn.ReadMessage(); err != nil {
			return fmt.Errorf("reading subscribe ack: %w", err)
		}
		if _, _, err := s.conn.ReadMessage(); err != nil {
			return fmt.Errorf("reading subscribe snapshot: %w", err)
		}
	}
	return nil
}

// readLoop is the background reader: one goroutine owns the connection,
// parses each frame, and forwards decoded trade batches on tradeCh.
// Heartbeats are dropped; JSON errors and missing "data" keys are logged
// and skipped, never fatal (spec.md §4.1/§7).
func (s *WebSocketSource) readLoop() {
	for {
		_, raw, err := s.conn.ReadMessage()
		if err != nil {
			s.errCh <- fmt.Errorf("kraken websocket read: %w", err)
			return
		}

		if strings.Contains(string(raw), "heartbeat") {
			continue
		}

		var frame wsTradeFrame
		if err := json.Unmarshal(raw, &frame); err != nil {
			s.logger.Warn("failed to decode kraken trade frame, skipping", zap.Error(err))
			continue
		}
		if frame.Channel != "trade" || len(frame.Data) == 0 {
			continue
		}

		trades := make([]model.Trade, 0, len(frame.Data))
		for _, t := range frame.Data {
			ts, err := parseISOTimestampMs(t.Timestamp)
			if err != nil {
				s.logger.Warn("failed to parse kraken trade timestamp, skipping trade",
					zap.String("pair", t.Symbol), zap.Error(err))
				continue
			}
			trades = append(trades, model.Trade{
				Pair:        t.Symbol,
				Price:       decimal.NewFromFloat(t.Price),
				Quantity:    decimal.NewFromFloat(t.Qty),
				TimestampMs: ts,
			})
		}
		if len(trades) > 0 {
			select {
			case s.tradeCh <- trades:
			default:
				s.logger.Warn("trade channel full, dropping batch")
			}
		}
	}
}

func parseISOTimestampMs(ts string) (int64, error) {
	t, err := time.Parse(time.RFC3339Nano, ts)
	if err != nil {
		return 0, err
	}
	return t.UnixMilli(), nil
}

// GetTrades returns the next available trade batch, blocking until one
// arrives, the context is cancelled, or the connection fails (a
// control-plane failure, since subscription setup already succeeded and
// a lost connection here is not a message-level condition spec.md §7
// treats as droppable).
func (s *WebSocketSource) GetTrades(ctx context.Context) ([]model.Trade, error) {
	select {
	case trades := <-s.tradeCh:
		return trades, nil
	case err := <-s.errCh:
		return nil, err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// IsDone is always false: a live subscription never finishes on its own
// (spec.md §4.1).
func (s *WebSocketSource) IsDone() bool { return false }

// Close closes the underlying WebSocket connection.
func (s *WebSocketSource) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	s.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	return s.conn.Close()
}
