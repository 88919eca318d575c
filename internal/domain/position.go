package domain

import "time"

type Side string

const (
	SideBuy  Side = "BUY"
	SideSell Side = "SELL"
)

// Opposite returns the side that flattens a position opened with s.
func (s Side) Opposite() Side {
	if s == SideSell {
		return SideBuy
	}
	return SideSell
}

type OrderType string

const OrderTypeMarket OrderType = "MARKET"

// OrderSpec is what the coordinator submits to the broker for a new position.
// StopLevel is advisory; stop enforcement happens in the trailing stop engine.
type OrderSpec struct {
	Symbol        string     `json:"symbol"`
	Token         string     `json:"token"`
	TradingSymbol string     `json:"trading_symbol"`
	OptionType    OptionType `json:"option_type"`
	Strike        string     `json:"strike"`
	Side          Side       `json:"side"`
	OrderType     OrderType  `json:"order_type"`
	Quantity      int        `json:"qty"`
	StopLevel     float64    `json:"sl_level"`
}

// CloseSpec flattens a position previously opened through PlaceOrder.
type CloseSpec struct {
	Symbol        string `json:"symbol"`
	Token         string `json:"token,omitempty"`
	TradingSymbol string `json:"trading_symbol,omitempty"`
	Side          Side   `json:"side"`
	Quantity      int    `json:"qty"`
}

type OrderConfirmation struct {
	OrderID string `json:"order_id"`
	Status  string `json:"status,omitempty"`
	Message string `json:"message,omitempty"`
}

// Position represents an open position on the broker account.
type Position struct {
	Symbol        string  `json:"symbol"`
	TradingSymbol string  `json:"trading_symbol"`
	Token         string  `json:"token"`
	Quantity      int     `json:"qty"`
	AveragePrice  float64 `json:"avg_price"`
	LastPrice     float64 `json:"ltp"`
	UnrealizedPnL float64 `json:"unrealized_pnl"`
}

// ActiveOrderRecord is the coordinator's bookkeeping entry for a live order.
type ActiveOrderRecord struct {
	ID           string             `json:"id"`
	Order        OrderSpec          `json:"order"`
	Confirmation *OrderConfirmation `json:"confirmation,omitempty"`
	DryRun       bool               `json:"dry_run"`
	CreatedAt    time.Time          `json:"timestamp"`
}

type TradeEvent string

const (
	TradeEventOpen  TradeEvent = "open"
	TradeEventClose TradeEvent = "close"
)

// TradeRecord is one journal line: an accepted order or a completed close.
type TradeRecord struct {
	ID            string     `json:"id"`
	Symbol        string     `json:"symbol"`
	TradingSymbol string     `json:"trading_symbol"`
	Event         TradeEvent `json:"event"`
	Side          Side       `json:"side"`
	Quantity      int        `json:"qty"`
	Price         float64    `json:"price"`
	StopLevel     float64    `json:"sl_level"`
	Reason        string     `json:"reason,omitempty"`
	OrderID       string     `json:"order_id,omitempty"`
	DryRun        bool       `json:"dry_run"`
	CreatedAt     time.Time  `json:"created_at"`
}
