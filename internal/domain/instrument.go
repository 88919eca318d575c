package domain

// Instrument is the broker-side identity of a tradable symbol.
type Instrument struct {
	Symbol        string `json:"symbol"`
	Token         string `json:"token"`
	TradingSymbol string `json:"trading_symbol,omitempty"`
	Exchange      string `json:"exchange,omitempty"`
}

// Ticker is a single last-traded-price update from a price feed.
type Ticker struct {
	Symbol    string  `json:"symbol"`
	LastPrice float64 `json:"last_price"`
	Time      int64   `json:"time"`
}
