package models

// MetricRecord is the per-execution result of the calculator. Slippage is
// sign-adjusted so that positive always means favorable to the trader,
// regardless of side.
type MetricRecord struct {
	ExecutionID  string  `json:"execution_id"`
	InstrumentID string  `json:"instrument_id"`
	Side         Side    `json:"side"`
	Quantity     float64 `json:"quantity"`
	Price        float64 `json:"price"`
	Benchmark    float64 `json:"benchmark"`
	Slippage     float64 `json:"slippage"`
	SlippageBps  float64 `json:"slippage_bps"`
	Notional     float64 `json:"notional"`
	Currency     string  `json:"currency"`
	Ticker       string  `json:"ticker,omitempty"`
}

// Grouping dimensions for aggregate rows.
const (
	DimensionInstrument = "instrument"
	DimensionSide       = "side"
	DimensionOverall    = "overall"
)

// OverallKey is the sentinel grouping key for the whole-batch row.
const OverallKey = "overall"

// AggregateRow is one grouped summary row of the final report. The weighted
// slippage columns are quantity-weighted means.
type AggregateRow struct {
	Dimension           string  `json:"dimension"`
	Key                 string  `json:"key"`
	Count               int64   `json:"count"`
	TotalQuantity       float64 `json:"total_quantity"`
	TotalNotional       float64 `json:"total_notional"`
	WeightedSlippage    float64 `json:"weighted_slippage"`
	WeightedSlippageBps float64 `json:"weighted_slippage_bps"`
}

// SkippedExecution records an execution that produced no metric, with the
// reason, so failures stay user-visible.
type SkippedExecution struct {
	ExecutionID  string `json:"execution_id"`
	InstrumentID string `json:"instrument_id"`
	Reason       string `json:"reason"`
}
