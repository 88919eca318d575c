package domain

import "time"

type TradeStatus string

const (
	TradeActive        TradeStatus = "active"
	TradeStopTriggered TradeStatus = "stop_triggered"
)

// TrackedTrade is the trailing-stop state of one open symbol.
type TrackedTrade struct {
	Symbol       string      `json:"symbol"`
	EntryPrice   float64     `json:"entry_price"`
	StopPercent  float64     `json:"sl_percent"`
	HighestPrice float64     `json:"highest_price"`
	CurrentStop  float64     `json:"current_sl"`
	EntryTime    time.Time   `json:"entry_time"`
	Status       TradeStatus `json:"status"`
}

type Action string

const (
	ActionHold  Action = "hold"
	ActionClose Action = "close"
)

const (
	ReasonStopLoss = "stop_loss"
	ReasonManual   = "manual"
)

// Decision is the outcome of evaluating a price against a tracked trade.
type Decision struct {
	Symbol      string  `json:"symbol"`
	Action      Action  `json:"action"`
	Reason      string  `json:"reason,omitempty"`
	Price       float64 `json:"price"`
	CurrentStop float64 `json:"current_sl"`
}
