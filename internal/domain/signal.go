package domain

import (
	"encoding/json"
	"math"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

type OptionType string

const (
	OptionCall OptionType = "CE"
	OptionPut  OptionType = "PE"
)

// ParseOptionType accepts the exchange codes CE/PE as well as call/put.
func ParseOptionType(s string) (OptionType, bool) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "CE", "CALL":
		return OptionCall, true
	case "PE", "PUT":
		return OptionPut, true
	}
	return "", false
}

// ParseSide accepts BUY/SELL in any case. An empty string means BUY.
func ParseSide(s string) (Side, bool) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "", "BUY":
		return SideBuy, true
	case "SELL":
		return SideSell, true
	}
	return "", false
}

// Signal is an inbound instruction describing a desired option trade.
type Signal struct {
	Symbol      string          `json:"symbol"`
	OptionType  OptionType      `json:"option_type"`
	Strike      decimal.Decimal `json:"strike"`
	Quantity    int             `json:"qty"`
	StopPercent float64         `json:"sl_percent"`
	Side        Side            `json:"side"`
	// Timestamp is when the alert fired. Zero means "now".
	Timestamp time.Time `json:"timestamp,omitempty"`
}

// RequiredSignalFields lists the webhook keys that must be present.
var RequiredSignalFields = []string{"symbol", "option_type", "strike", "qty", "sl_percent"}

// Validate checks that the signal is well formed. It does not apply
// business rules such as the trading window.
func (s Signal) Validate() error {
	if strings.TrimSpace(s.Symbol) == "" {
		return &ValidationError{Field: "symbol", Reason: "must not be empty"}
	}
	if _, ok := ParseOptionType(string(s.OptionType)); !ok {
		return &ValidationError{Field: "option_type", Reason: "must be CE or PE"}
	}
	if !s.Strike.IsPositive() {
		return &ValidationError{Field: "strike", Reason: "must be a positive number"}
	}
	if !isFinite(s.Strike.InexactFloat64()) {
		return &ValidationError{Field: "strike", Reason: "must be a finite number"}
	}
	if s.Quantity <= 0 {
		return &ValidationError{Field: "qty", Reason: "must be a positive integer"}
	}
	if _, ok := ParseSide(string(s.Side)); !ok {
		return &ValidationError{Field: "side", Reason: "must be BUY or SELL"}
	}
	if !isFinite(s.StopPercent) {
		return &ValidationError{Field: "sl_percent", Reason: "must be a finite number"}
	}
	return nil
}

func isFinite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}

// DecodeSignal parses a webhook body. Missing or mistyped fields are
// reported as *ValidationError naming the field.
func DecodeSignal(data []byte) (Signal, error) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return Signal{}, &ValidationError{Field: "body", Reason: "must be a JSON object"}
	}

	for _, field := range RequiredSignalFields {
		v, ok := raw[field]
		if !ok || string(v) == "null" {
			return Signal{}, &ValidationError{Field: field, Reason: "is required"}
		}
	}

	var (
		sig        Signal
		optionType string
	)
	if err := json.Unmarshal(raw["symbol"], &sig.Symbol); err != nil {
		return Signal{}, &ValidationError{Field: "symbol", Reason: "must be a string"}
	}
	if err := json.Unmarshal(raw["option_type"], &optionType); err != nil {
		return Signal{}, &ValidationError{Field: "option_type", Reason: "must be a string"}
	}
	ot, ok := ParseOptionType(optionType)
	if !ok {
		return Signal{}, &ValidationError{Field: "option_type", Reason: "must be CE or PE"}
	}
	sig.OptionType = ot

	if err := sig.Strike.UnmarshalJSON(raw["strike"]); err != nil {
		return Signal{}, &ValidationError{Field: "strike", Reason: "must be a decimal string or number"}
	}
	if err := json.Unmarshal(raw["qty"], &sig.Quantity); err != nil {
		return Signal{}, &ValidationError{Field: "qty", Reason: "must be an integer"}
	}
	if err := json.Unmarshal(raw["sl_percent"], &sig.StopPercent); err != nil {
		return Signal{}, &ValidationError{Field: "sl_percent", Reason: "must be a number"}
	}

	sig.Side = SideBuy
	if v, ok := raw["side"]; ok && string(v) != "null" {
		var side string
		if err := json.Unmarshal(v, &side); err != nil {
			return Signal{}, &ValidationError{Field: "side", Reason: "must be a string"}
		}
		parsed, ok := ParseSide(side)
		if !ok {
			return Signal{}, &ValidationError{Field: "side", Reason: "must be BUY or SELL"}
		}
		sig.Side = parsed
	}

	if v, ok := raw["timestamp"]; ok && string(v) != "null" {
		if err := json.Unmarshal(v, &sig.Timestamp); err != nil {
			return Signal{}, &ValidationError{Field: "timestamp", Reason: "must be an RFC3339 time"}
		}
	}

	return sig, sig.Validate()
}
