package usecase

import (
	"math"
	"sync"
	"time"

	"github.com/vitos/momentum_pulse/internal/domain"
	"go.uber.org/zap"
)

// TrailingStopEngine owns the per-symbol trailing stop state. It only trails
// long positions: the stop sits below price and ratchets up on new highs.
type TrailingStopEngine struct {
	trades  map[string]*domain.TrackedTrade
	mu      sync.Mutex
	logger  *zap.Logger
	timeNow func() time.Time
}

func NewTrailingStopEngine(logger *zap.Logger) *TrailingStopEngine {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TrailingStopEngine{
		trades:  make(map[string]*domain.TrackedTrade),
		logger:  logger,
		timeNow: time.Now,
	}
}

// Register starts tracking symbol, replacing any previous record for it.
func (e *TrailingStopEngine) Register(symbol string, entryPrice, stopPercent float64) domain.TrackedTrade {
	trade := &domain.TrackedTrade{
		Symbol:       symbol,
		EntryPrice:   entryPrice,
		StopPercent:  stopPercent,
		HighestPrice: entryPrice,
		CurrentStop:  math.Min(ComputeStop(entryPrice, stopPercent), entryPrice),
		EntryTime:    e.timeNow(),
		Status:       domain.TradeActive,
	}

	e.mu.Lock()
	e.trades[symbol] = trade
	snapshot := *trade
	e.mu.Unlock()

	e.logger.Info("Trade registered",
		zap.String("symbol", symbol),
		zap.Float64("entry", entryPrice),
		zap.Float64("sl", snapshot.CurrentStop))
	return snapshot
}

// Evaluate feeds a price into the trade for symbol. The bool is false when
// the symbol is not tracked. NaN and infinite prices are reported as hold
// and leave the trade unchanged.
func (e *TrailingStopEngine) Evaluate(symbol string, price float64) (domain.Decision, bool) {
	d, ok, ratcheted, hit := e.evaluate(symbol, price)
	if !ok {
		e.logger.Debug("Trade not found", zap.String("symbol", symbol))
		return d, false
	}

	if ratcheted {
		e.logger.Info("Trailing SL updated", zap.String("symbol", symbol), zap.Float64("sl", d.CurrentStop))
	}
	if hit {
		e.logger.Warn("Stop loss hit",
			zap.String("symbol", symbol),
			zap.Float64("price", price),
			zap.Float64("sl", d.CurrentStop))
	}
	return d, true
}

func (e *TrailingStopEngine) evaluate(symbol string, price float64) (d domain.Decision, ok, ratcheted, hit bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	trade, ok := e.trades[symbol]
	if !ok {
		return domain.Decision{}, false, false, false
	}

	d = domain.Decision{Symbol: symbol, Price: price, CurrentStop: trade.CurrentStop}

	// A triggered trade keeps its final stop; repeated evaluations report the
	// same close until the caller deregisters it.
	if trade.Status == domain.TradeStopTriggered {
		d.Action = domain.ActionClose
		d.Reason = domain.ReasonStopLoss
		return d, true, false, false
	}

	if !isFinite(price) {
		d.Action = domain.ActionHold
		return d, true, false, false
	}

	if price > trade.HighestPrice {
		trade.HighestPrice = price
		candidate := math.Min(ComputeStop(price, trade.StopPercent), trade.HighestPrice)
		if candidate > trade.CurrentStop {
			trade.CurrentStop = candidate
			ratcheted = true
		}
	}

	d.CurrentStop = trade.CurrentStop
	if price <= trade.CurrentStop {
		trade.Status = domain.TradeStopTriggered
		d.Action = domain.ActionClose
		d.Reason = domain.ReasonStopLoss
		hit = true
	} else {
		d.Action = domain.ActionHold
	}
	return d, true, ratcheted, hit
}

// Deregister stops tracking symbol. Unknown symbols are ignored.
func (e *TrailingStopEngine) Deregister(symbol string) {
	e.mu.Lock()
	_, ok := e.trades[symbol]
	delete(e.trades, symbol)
	e.mu.Unlock()

	if ok {
		e.logger.Info("Trade removed", zap.String("symbol", symbol))
	}
}

func (e *TrailingStopEngine) Get(symbol string) (domain.TrackedTrade, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if t, ok := e.trades[symbol]; ok {
		return *t, true
	}
	return domain.TrackedTrade{}, false
}

// ListAll returns copies of every tracked trade.
func (e *TrailingStopEngine) ListAll() map[string]domain.TrackedTrade {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make(map[string]domain.TrackedTrade, len(e.trades))
	for symbol, t := range e.trades {
		out[symbol] = *t
	}
	return out
}

func (e *TrailingStopEngine) Len() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.trades)
}
