package feed

import (
	"encoding/json"
	"errors"
	"math"
	"strconv"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/vitos/momentum_pulse/internal/domain"
	"go.uber.org/zap"
)

var ErrClosed = errors.New("feed closed")

// TickFeed streams last traded prices over a WebSocket. The server is
// expected to accept {"op":"subscribe","args":[...]} and push
// {"symbol":..,"ltp":..,"ts":..} frames.
type TickFeed struct {
	url    string
	dialer *websocket.Dialer
	logger *zap.Logger

	mu         sync.Mutex
	conn       *websocket.Conn
	closed     bool
	subscribed map[string]bool
	callbacks  []func(symbol string, price float64)
	done       chan struct{}
}

func NewTickFeed(url string, logger *zap.Logger) *TickFeed {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TickFeed{
		url:        url,
		dialer:     &websocket.Dialer{HandshakeTimeout: 10 * time.Second},
		logger:     logger,
		subscribed: make(map[string]bool),
	}
}

func (f *TickFeed) OnPriceUpdate(callback func(symbol string, price float64)) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.callbacks = append(f.callbacks, callback)
}

// Subscribe adds symbols to the stream, dialing first if needed. After a
// dropped connection the next Subscribe redials and resubscribes everything.
func (f *TickFeed) Subscribe(symbols []string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.closed {
		return ErrClosed
	}

	if f.conn == nil {
		if err := f.connect(); err != nil {
			return err
		}
		for s := range f.subscribed {
			symbols = append(symbols, s)
		}
	}

	var toSend []string
	seen := make(map[string]bool, len(symbols))
	for _, s := range symbols {
		if s == "" || seen[s] {
			continue
		}
		seen[s] = true
		toSend = append(toSend, s)
	}
	if len(toSend) == 0 {
		return nil
	}

	subMsg := map[string]interface{}{
		"op":   "subscribe",
		"args": toSend,
	}
	if err := f.conn.WriteJSON(subMsg); err != nil {
		return err
	}
	for _, s := range toSend {
		f.subscribed[s] = true
	}
	return nil
}

// connect must be called with f.mu held.
func (f *TickFeed) connect() error {
	c, _, err := f.dialer.Dial(f.url, nil)
	if err != nil {
		return err
	}
	f.conn = c
	f.done = make(chan struct{})

	go f.readLoop(c, f.done)
	f.logger.Info("Tick feed connected", zap.String("url", f.url))
	return nil
}

func (f *TickFeed) readLoop(conn *websocket.Conn, done chan struct{}) {
	defer func() {
		conn.Close()
		f.mu.Lock()
		if f.conn == conn {
			f.conn = nil
		}
		f.mu.Unlock()
		close(done)
	}()

	for {
		_, message, err := conn.ReadMessage()
		if err != nil {
			f.mu.Lock()
			closed := f.closed
			f.mu.Unlock()
			if !closed {
				f.logger.Warn("Tick feed read error", zap.Error(err))
			}
			return
		}

		tick, ok := parseTick(message)
		if !ok {
			continue
		}

		f.mu.Lock()
		callbacks := make([]func(string, float64), len(f.callbacks))
		copy(callbacks, f.callbacks)
		f.mu.Unlock()

		for _, cb := range callbacks {
			cb(tick.Symbol, tick.LastPrice)
		}
	}
}

// Close stops the stream and waits for the reader to exit.
func (f *TickFeed) Close() error {
	f.mu.Lock()
	f.closed = true
	conn := f.conn
	done := f.done
	f.mu.Unlock()

	if conn == nil {
		return nil
	}
	err := conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(time.Second))
	conn.Close()
	<-done
	if errors.Is(err, websocket.ErrCloseSent) {
		err = nil
	}
	return err
}

type tickMessage struct {
	Symbol    string          `json:"symbol"`
	LastPrice json.RawMessage `json:"ltp"`
	Time      int64           `json:"ts"`
}

// parseTick accepts ltp as a JSON number or numeric string. Frames without
// a symbol or a positive finite price are ignored.
func parseTick(message []byte) (domain.Ticker, bool) {
	var m tickMessage
	if err := json.Unmarshal(message, &m); err != nil || m.Symbol == "" || len(m.LastPrice) == 0 {
		return domain.Ticker{}, false
	}

	raw := string(m.LastPrice)
	if raw[0] == '"' {
		if err := json.Unmarshal(m.LastPrice, &raw); err != nil {
			return domain.Ticker{}, false
		}
	}
	price, err := strconv.ParseFloat(raw, 64)
	if err != nil || price <= 0 || math.IsInf(price, 0) || math.IsNaN(price) {
		return domain.Ticker{}, false
	}
	return domain.Ticker{Symbol: m.Symbol, LastPrice: price, Time: m.Time}, true
}
