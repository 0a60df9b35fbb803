package models

import "fmt"

// Instrument holds the static reference attributes of a tradeable instrument.
// Instances are built once from the reference dataset and never mutated.
type Instrument struct {
	ID         string  `json:"id"`
	Ticker     string  `json:"ticker"`
	MIC        string  `json:"mic"`
	Currency   string  `json:"currency"`
	Multiplier float64 `json:"multiplier"`
	TickSize   float64 `json:"tick_size"`
}

// Validate checks the reference-data invariants. A broken instrument row is a
// data integrity problem, not a per-execution one.
func (i Instrument) Validate() error {
	if i.ID == "" {
		return fmt.Errorf("%w: instrument with empty id", ErrDataIntegrity)
	}
	if i.Multiplier <= 0 {
		return fmt.Errorf("%w: instrument %s has non-positive multiplier %v", ErrDataIntegrity, i.ID, i.Multiplier)
	}
	if i.TickSize <= 0 {
		return fmt.Errorf("%w: instrument %s has non-positive tick size %v", ErrDataIntegrity, i.ID, i.TickSize)
	}
	return nil
}
