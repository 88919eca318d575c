package usecase

import (
	"context"
	"sync"
	"time"

	"github.com/vitos/momentum_pulse/internal/domain"
	"go.uber.org/zap"
)

const defaultPollInterval = 5 * time.Second

// PositionPoller periodically reads broker positions and feeds their last
// traded price into the coordinator.
type PositionPoller struct {
	broker   domain.Broker
	coord    *TradeCoordinator
	interval time.Duration
	logger   *zap.Logger

	mu        sync.Mutex
	isRunning bool
	stopCh    chan struct{}
	wg        sync.WaitGroup
}

func NewPositionPoller(broker domain.Broker, coord *TradeCoordinator, interval time.Duration, logger *zap.Logger) *PositionPoller {
	if interval <= 0 {
		interval = defaultPollInterval
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PositionPoller{
		broker:   broker,
		coord:    coord,
		interval: interval,
		logger:   logger,
	}
}

func (p *PositionPoller) Start(ctx context.Context) {
	p.mu.Lock()
	if p.isRunning {
		p.mu.Unlock()
		p.logger.Warn("Position poller already running")
		return
	}
	p.stopCh = make(chan struct{})
	p.isRunning = true
	stopCh := p.stopCh
	p.mu.Unlock()

	p.wg.Add(1)
	go func() {
		defer p.wg.Done()

		ticker := time.NewTicker(p.interval)
		defer ticker.Stop()

		p.logger.Info("Position poller started", zap.Duration("interval", p.interval))
		for {
			select {
			case <-ticker.C:
				if err := p.Poll(ctx); err != nil {
					p.logger.Error("Fetch positions failed", zap.Error(err))
				}
			case <-stopCh:
				return
			case <-ctx.Done():
				return
			}
		}
	}()
}

func (p *PositionPoller) Stop() {
	p.mu.Lock()
	if !p.isRunning {
		p.mu.Unlock()
		return
	}
	p.isRunning = false
	close(p.stopCh)
	p.mu.Unlock()

	p.wg.Wait()
	p.logger.Info("Position poller stopped")
}

// Poll runs one polling round. Positions are matched to active orders by
// trading symbol, then token, then plain symbol.
func (p *PositionPoller) Poll(ctx context.Context) error {
	active := p.coord.ListActive()
	if len(active) == 0 {
		return nil
	}

	positions, err := p.broker.GetPositions(ctx)
	if err != nil {
		return err
	}

	byKey := make(map[string]string, len(active)*3)
	for symbol, rec := range active {
		byKey[symbol] = symbol
		if rec.Order.Token != "" {
			byKey[rec.Order.Token] = symbol
		}
		if rec.Order.TradingSymbol != "" {
			byKey[rec.Order.TradingSymbol] = symbol
		}
	}

	seen := make(map[string]bool)
	for _, pos := range positions {
		if pos == nil || pos.LastPrice <= 0 || !isFinite(pos.LastPrice) {
			continue
		}
		symbol, ok := byKey[pos.TradingSymbol]
		if !ok {
			symbol, ok = byKey[pos.Token]
		}
		if !ok {
			symbol, ok = byKey[pos.Symbol]
		}
		if !ok || seen[symbol] {
			continue
		}
		seen[symbol] = true

		d, _, err := p.coord.OnPriceUpdate(ctx, symbol, pos.LastPrice)
		if err != nil {
			p.logger.Error("Error processing position price", zap.String("symbol", symbol), zap.Error(err))
			continue
		}
		p.logger.Debug("Position evaluated",
			zap.String("symbol", symbol),
			zap.Float64("ltp", pos.LastPrice),
			zap.String("action", string(d.Action)))
	}
	return nil
}
