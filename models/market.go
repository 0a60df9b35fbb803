package models

import (
	"fmt"
	"time"
)

// MarketObservation is one timestamped quote/trade snapshot for an
// instrument. Any of the price fields may be absent in the input, so they are
// pointers; an observation with no price at all is kept but never usable as a
// benchmark.
type MarketObservation struct {
	InstrumentID string    `json:"instrument_id"`
	Timestamp    time.Time `json:"timestamp"`
	Bid          *float64  `json:"bid,omitempty"`
	Ask          *float64  `json:"ask,omitempty"`
	Last         *float64  `json:"last,omitempty"`
	Volume       float64   `json:"volume"`
	State        string    `json:"state,omitempty"`
}

// UsablePrice resolves the single price an observation contributes to a
// benchmark: last trade if present, else the bid/ask midpoint, else the sole
// quoted side. The second return is false when no price field is set.
func (o MarketObservation) UsablePrice() (float64, bool) {
	switch {
	case o.Last != nil:
		return *o.Last, true
	case o.Bid != nil && o.Ask != nil:
		return (*o.Bid + *o.Ask) / 2, true
	case o.Bid != nil:
		return *o.Bid, true
	case o.Ask != nil:
		return *o.Ask, true
	}
	return 0, false
}

// Validate checks the market-data invariants: a crossed quote or negative
// volume makes the whole dataset untrustworthy.
func (o MarketObservation) Validate() error {
	if o.InstrumentID == "" {
		return fmt.Errorf("%w: market observation with empty instrument id", ErrDataIntegrity)
	}
	if o.Timestamp.IsZero() {
		return fmt.Errorf("%w: market observation for %s has no timestamp", ErrDataIntegrity, o.InstrumentID)
	}
	if o.Bid != nil && o.Ask != nil && *o.Bid > *o.Ask {
		return fmt.Errorf("%w: crossed quote for %s at %s (bid %v > ask %v)",
			ErrDataIntegrity, o.InstrumentID, o.Timestamp.Format(time.RFC3339Nano), *o.Bid, *o.Ask)
	}
	if o.Volume < 0 {
		return fmt.Errorf("%w: negative volume for %s at %s", ErrDataIntegrity, o.InstrumentID, o.Timestamp.Format(time.RFC3339Nano))
	}
	return nil
}

// SamePrices reports whether two observations carry identical price fields.
// Used to deduplicate repeated observations at the same timestamp.
func (o MarketObservation) SamePrices(other MarketObservation) bool {
	return equalPtr(o.Bid, other.Bid) && equalPtr(o.Ask, other.Ask) && equalPtr(o.Last, other.Last)
}

func equalPtr(a, b *float64) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}
