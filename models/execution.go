package models

import (
	"fmt"
	"strings"
	"time"
)

// Side is the direction of an execution.
type Side string

const (
	SideBuy  Side = "buy"
	SideSell Side = "sell"
)

// ParseSide normalises the side encodings seen in upstream feeds: the words
// buy/sell, single letters, and the numeric codes 1 (buy) and 2 (sell).
func ParseSide(s string) (Side, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "buy", "b", "1":
		return SideBuy, nil
	case "sell", "s", "2":
		return SideSell, nil
	}
	return "", fmt.Errorf("%w: unknown side %q", ErrValidation, s)
}

// Execution is a single trade fill consumed exactly once by the calculator.
type Execution struct {
	ID           string    `json:"id"`
	InstrumentID string    `json:"instrument_id"`
	Side         Side      `json:"side"`
	Quantity     float64   `json:"quantity"`
	Price        float64   `json:"price"`
	Timestamp    time.Time `json:"timestamp"`
	Venue        string    `json:"venue,omitempty"`
	Phase        string    `json:"phase,omitempty"`
}

// Validate checks the per-row invariants. Failures here skip the execution
// but never abort the batch.
func (e Execution) Validate() error {
	if e.ID == "" {
		return fmt.Errorf("%w: execution with empty id", ErrValidation)
	}
	if e.Side != SideBuy && e.Side != SideSell {
		return fmt.Errorf("%w: execution %s has invalid side %q", ErrValidation, e.ID, e.Side)
	}
	if e.Quantity <= 0 {
		return fmt.Errorf("%w: execution %s has non-positive quantity %v", ErrValidation, e.ID, e.Quantity)
	}
	if e.Price <= 0 {
		return fmt.Errorf("%w: execution %s has non-positive price %v", ErrValidation, e.ID, e.Price)
	}
	if e.Timestamp.IsZero() {
		return fmt.Errorf("%w: execution %s has no timestamp", ErrValidation, e.ID)
	}
	return nil
}
