package usecase

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/vitos/momentum_pulse/internal/domain"
	"github.com/vitos/momentum_pulse/internal/id"
	"go.uber.org/zap"
)

const ReasonOutsideWindow = "outside trading window"

type SignalStatus string

const (
	SignalSuccess   SignalStatus = "success"
	SignalSimulated SignalStatus = "simulated"
	SignalRejected  SignalStatus = "rejected"
)

type SignalResult struct {
	Status SignalStatus              `json:"status"`
	Reason string                    `json:"reason,omitempty"`
	Order  *domain.ActiveOrderRecord `json:"order,omitempty"`
	Trade  *domain.TrackedTrade      `json:"trade,omitempty"`
}

type ExitStatus string

const (
	ExitClosed        ExitStatus = "success"
	ExitNoActiveTrade ExitStatus = "no_active_trade"
)

type ExitResult struct {
	Status       ExitStatus                `json:"status"`
	Symbol       string                    `json:"symbol"`
	Reason       string                    `json:"reason,omitempty"`
	Confirmation *domain.OrderConfirmation `json:"confirmation,omitempty"`
}

// Metrics receives lifecycle counters. See infrastructure/metrics.
type Metrics interface {
	ObserveSignal(status string)
	ObserveOrder(result string)
	ObserveExit(reason, result string)
	SetTrackedTrades(n int)
}

type nopMetrics struct{}

func (nopMetrics) ObserveSignal(string)       {}
func (nopMetrics) ObserveOrder(string)        {}
func (nopMetrics) ObserveExit(string, string) {}
func (nopMetrics) SetTrackedTrades(int)       {}

// TradeCoordinator drives signals into orders and tracked trades, and runs
// exits when a stop triggers or the operator asks for one.
//
// Broker calls are made without holding mu. A symbol with an order or exit
// in flight is marked pending so a second operation on it fails fast.
type TradeCoordinator struct {
	broker   domain.Broker
	engine   *TrailingStopEngine
	calendar domain.TradingCalendar
	journal  domain.TradeRepository
	metrics  Metrics
	logger   *zap.Logger
	dryRun   bool

	timeNow func() time.Time
	newID   func() string

	mu      sync.Mutex
	active  map[string]*domain.ActiveOrderRecord
	pending map[string]struct{}
}

// NewTradeCoordinator wires a coordinator. journal and metrics may be nil.
func NewTradeCoordinator(
	broker domain.Broker,
	engine *TrailingStopEngine,
	calendar domain.TradingCalendar,
	journal domain.TradeRepository,
	metrics Metrics,
	logger *zap.Logger,
	dryRun bool,
) *TradeCoordinator {
	if calendar == nil {
		calendar = AlwaysOpen{}
	}
	if metrics == nil {
		metrics = nopMetrics{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TradeCoordinator{
		broker:   broker,
		engine:   engine,
		calendar: calendar,
		journal:  journal,
		metrics:  metrics,
		logger:   logger,
		dryRun:   dryRun,
		timeNow:  time.Now,
		newID:    id.New,
		active:   make(map[string]*domain.ActiveOrderRecord),
		pending:  make(map[string]struct{}),
	}
}

func (c *TradeCoordinator) DryRun() bool { return c.dryRun }

// OnSignal validates a signal, applies the trading window and opens the
// position. Validation problems return *domain.ValidationError; a signal
// outside the window is a SignalRejected result, not an error.
func (c *TradeCoordinator) OnSignal(ctx context.Context, sig domain.Signal) (*SignalResult, error) {
	if err := sig.Validate(); err != nil {
		c.metrics.ObserveSignal("invalid")
		return nil, err
	}

	at := sig.Timestamp
	if at.IsZero() {
		at = c.timeNow()
	}
	if !c.calendar.IsOpen(at) {
		c.logger.Warn("Outside trading hours", zap.String("symbol", sig.Symbol), zap.Time("at", at))
		c.metrics.ObserveSignal(string(SignalRejected))
		return &SignalResult{Status: SignalRejected, Reason: ReasonOutsideWindow}, nil
	}

	optionType, _ := domain.ParseOptionType(string(sig.OptionType))
	side, _ := domain.ParseSide(string(sig.Side))
	strike := sig.Strike.InexactFloat64()
	spec := domain.OrderSpec{
		Symbol:        sig.Symbol,
		TradingSymbol: fmt.Sprintf("%s_%s_%s", sig.Symbol, optionType, sig.Strike.String()),
		OptionType:    optionType,
		Strike:        sig.Strike.String(),
		Side:          side,
		OrderType:     domain.OrderTypeMarket,
		Quantity:      sig.Quantity,
		StopLevel:     ComputeStop(strike, sig.StopPercent),
	}

	if err := c.reserve(sig.Symbol); err != nil {
		c.metrics.ObserveSignal("busy")
		return nil, err
	}
	defer c.release(sig.Symbol)

	var conf *domain.OrderConfirmation
	if c.dryRun {
		c.logger.Info("DRY RUN order", zap.Any("order", spec))
	} else {
		var err error
		conf, err = c.placeOrder(ctx, &spec)
		if err != nil {
			c.metrics.ObserveSignal("failed")
			c.metrics.ObserveOrder("failure")
			return nil, err
		}
	}

	record := &domain.ActiveOrderRecord{
		ID:           c.newID(),
		Order:        spec,
		Confirmation: conf,
		DryRun:       c.dryRun,
		CreatedAt:    c.timeNow(),
	}
	if c.dryRun {
		record.Confirmation = &domain.OrderConfirmation{OrderID: "dry-" + record.ID, Status: "simulated"}
	} else if record.Confirmation == nil {
		record.Confirmation = &domain.OrderConfirmation{}
	}

	c.mu.Lock()
	c.active[sig.Symbol] = record
	trade := c.engine.Register(sig.Symbol, strike, sig.StopPercent)
	tracked := c.engine.Len()
	c.mu.Unlock()

	status := SignalSuccess
	if c.dryRun {
		status = SignalSimulated
	}
	c.metrics.ObserveSignal(string(status))
	c.metrics.ObserveOrder(string(status))
	c.metrics.SetTrackedTrades(tracked)

	c.record(ctx, &domain.TradeRecord{
		Symbol:        spec.Symbol,
		TradingSymbol: spec.TradingSymbol,
		Event:         domain.TradeEventOpen,
		Side:          spec.Side,
		Quantity:      spec.Quantity,
		Price:         strike,
		StopLevel:     spec.StopLevel,
		OrderID:       record.Confirmation.OrderID,
		DryRun:        record.DryRun,
	})

	c.logger.Info("Order executed",
		zap.String("symbol", spec.Symbol),
		zap.String("trading_symbol", spec.TradingSymbol),
		zap.String("order_id", record.Confirmation.OrderID),
		zap.Float64("sl", spec.StopLevel),
		zap.Bool("dry_run", record.DryRun))

	out := *record
	return &SignalResult{Status: status, Order: &out, Trade: &trade}, nil
}

func (c *TradeCoordinator) placeOrder(ctx context.Context, spec *domain.OrderSpec) (*domain.OrderConfirmation, error) {
	inst, err := c.broker.LookupInstrument(ctx, spec.Symbol)
	if err != nil {
		c.logger.Error("Symbol token fetch failed",
			zap.String("symbol", spec.Symbol),
			zap.String("operation", "lookup_instrument"),
			zap.Error(err))
		return nil, fmt.Errorf("lookup instrument %s: %w", spec.Symbol, err)
	}
	spec.Token = inst.Token

	conf, err := c.broker.PlaceOrder(ctx, *spec)
	if err != nil {
		c.logger.Error("Order placement failed",
			zap.String("symbol", spec.Symbol),
			zap.String("operation", "place_order"),
			zap.Error(err))
		return nil, fmt.Errorf("place order %s: %w", spec.Symbol, err)
	}
	return conf, nil
}

// OnPriceUpdate evaluates price against the tracked trade and closes the
// position when the stop is hit. The bool is false if symbol is untracked.
func (c *TradeCoordinator) OnPriceUpdate(ctx context.Context, symbol string, price float64) (domain.Decision, bool, error) {
	d, ok := c.engine.Evaluate(symbol, price)
	if !ok || d.Action != domain.ActionClose {
		return d, ok, nil
	}

	_, err := c.exit(ctx, symbol, domain.ReasonStopLoss, price)
	if errors.Is(err, domain.ErrSymbolBusy) {
		// Another exit for this symbol is already running.
		return d, true, nil
	}
	return d, true, err
}

// ManualExit closes the position for symbol on operator request.
func (c *TradeCoordinator) ManualExit(ctx context.Context, symbol string) (*ExitResult, error) {
	return c.exit(ctx, symbol, domain.ReasonManual, 0)
}

func (c *TradeCoordinator) exit(ctx context.Context, symbol, reason string, price float64) (*ExitResult, error) {
	c.mu.Lock()
	record, ok := c.active[symbol]
	if ok && reason == domain.ReasonStopLoss {
		// The triggered trade may have been replaced by a newer signal
		// between evaluation and now.
		if t, tracked := c.engine.Get(symbol); !tracked || t.Status != domain.TradeStopTriggered {
			ok = false
		}
	}
	if !ok {
		c.mu.Unlock()
		return &ExitResult{Status: ExitNoActiveTrade, Symbol: symbol}, nil
	}
	if _, busy := c.pending[symbol]; busy {
		c.mu.Unlock()
		return nil, domain.ErrSymbolBusy
	}
	c.pending[symbol] = struct{}{}
	rec := *record
	c.mu.Unlock()
	defer c.release(symbol)

	var conf *domain.OrderConfirmation
	if !rec.DryRun {
		var err error
		conf, err = c.broker.ClosePosition(ctx, domain.CloseSpec{
			Symbol:        rec.Order.Symbol,
			Token:         rec.Order.Token,
			TradingSymbol: rec.Order.TradingSymbol,
			Side:          rec.Order.Side.Opposite(),
			Quantity:      rec.Order.Quantity,
		})
		if err != nil {
			c.logger.Error("Close position failed",
				zap.String("symbol", symbol),
				zap.String("operation", "close_position"),
				zap.String("reason", reason),
				zap.Error(err))
			c.metrics.ObserveExit(reason, "failure")
			return nil, fmt.Errorf("close position %s: %w", symbol, err)
		}
	}

	c.mu.Lock()
	c.engine.Deregister(symbol)
	delete(c.active, symbol)
	tracked := c.engine.Len()
	c.mu.Unlock()

	c.metrics.ObserveExit(reason, "success")
	c.metrics.SetTrackedTrades(tracked)

	journalEntry := &domain.TradeRecord{
		Symbol:        rec.Order.Symbol,
		TradingSymbol: rec.Order.TradingSymbol,
		Event:         domain.TradeEventClose,
		Side:          rec.Order.Side.Opposite(),
		Quantity:      rec.Order.Quantity,
		Price:         price,
		StopLevel:     rec.Order.StopLevel,
		Reason:        reason,
		DryRun:        rec.DryRun,
	}
	if conf != nil {
		journalEntry.OrderID = conf.OrderID
	}
	c.record(ctx, journalEntry)

	c.logger.Info("Position closed", zap.String("symbol", symbol), zap.String("reason", reason))
	return &ExitResult{Status: ExitClosed, Symbol: symbol, Reason: reason, Confirmation: conf}, nil
}

// ListActive returns a snapshot of the live order records keyed by symbol.
func (c *TradeCoordinator) ListActive() map[string]domain.ActiveOrderRecord {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make(map[string]domain.ActiveOrderRecord, len(c.active))
	for symbol, r := range c.active {
		out[symbol] = *r
	}
	return out
}

func (c *TradeCoordinator) ListTracked() map[string]domain.TrackedTrade {
	return c.engine.ListAll()
}

func (c *TradeCoordinator) ListTrades(ctx context.Context, limit int) ([]*domain.TradeRecord, error) {
	if c.journal == nil {
		return []*domain.TradeRecord{}, nil
	}
	return c.journal.ListTrades(ctx, limit)
}

func (c *TradeCoordinator) reserve(symbol string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, busy := c.pending[symbol]; busy {
		return domain.ErrSymbolBusy
	}
	c.pending[symbol] = struct{}{}
	return nil
}

func (c *TradeCoordinator) release(symbol string) {
	c.mu.Lock()
	delete(c.pending, symbol)
	c.mu.Unlock()
}

func (c *TradeCoordinator) record(ctx context.Context, r *domain.TradeRecord) {
	if c.journal == nil {
		return
	}
	r.ID = c.newID()
	r.CreatedAt = c.timeNow()
	if err := c.journal.SaveTrade(ctx, r); err != nil {
		c.logger.Error("Failed to save trade", zap.String("symbol", r.Symbol), zap.Error(err))
	}
}
