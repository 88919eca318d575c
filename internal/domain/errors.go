package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrInstrumentNotFound is returned when the broker cannot resolve a symbol token.
	ErrInstrumentNotFound = errors.New("instrument not found")
	// ErrSymbolBusy is returned when another order or exit for the symbol is in flight.
	ErrSymbolBusy = errors.New("operation already in flight for symbol")
)

// ValidationError reports a missing or malformed signal field.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid signal field %q: %s", e.Field, e.Reason)
}
