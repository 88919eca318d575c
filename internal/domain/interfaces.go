package domain

import (
	"context"
	"time"
)

// Broker defines the calls the trade lifecycle needs from a brokerage.
type Broker interface {
	LookupInstrument(ctx context.Context, symbol string) (*Instrument, error)
	PlaceOrder(ctx context.Context, spec OrderSpec) (*OrderConfirmation, error)
	ClosePosition(ctx context.Context, spec CloseSpec) (*OrderConfirmation, error)
	GetPositions(ctx context.Context) ([]*Position, error)
}

// TradeRepository is an append-only journal of order and close events.
type TradeRepository interface {
	SaveTrade(ctx context.Context, record *TradeRecord) error
	ListTrades(ctx context.Context, limit int) ([]*TradeRecord, error)
}

// TradingCalendar decides whether signals at a given instant may be executed.
type TradingCalendar interface {
	IsOpen(t time.Time) bool
}
