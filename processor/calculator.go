package processor

import (
	"fmt"
	"math"

	"tcaflow/models"
)

// bpsFactor converts a price-relative ratio to basis points.
const bpsFactor = 10000

// Calculator derives the per-execution metrics from an execution, its
// instrument and a resolved benchmark price.
type Calculator struct {
	invertSign bool
}

// NewCalculator constructs a calculator. invertSign flips the slippage sign
// convention for shops that prefer positive-means-cost.
func NewCalculator(invertSign bool) *Calculator {
	return &Calculator{invertSign: invertSign}
}

// sideSign returns the slippage sign multiplier: +1 for sell (favorable when
// the execution price exceeds the benchmark), -1 for buy.
func (c *Calculator) sideSign(side models.Side) float64 {
	sign := -1.0
	if side == models.SideSell {
		sign = 1.0
	}
	if c.invertSign {
		sign = -sign
	}
	return sign
}

// Compute produces the metric record for one execution. Validation failures
// and a zero benchmark skip the execution without aborting the batch.
func (c *Calculator) Compute(exec models.Execution, inst models.Instrument, benchmark float64) (models.MetricRecord, error) {
	if err := exec.Validate(); err != nil {
		return models.MetricRecord{}, err
	}
	if benchmark == 0 {
		return models.MetricRecord{}, fmt.Errorf("%w: zero benchmark price for execution %s", models.ErrUnresolved, exec.ID)
	}

	notional := exec.Quantity * exec.Price * inst.Multiplier
	slippage := (exec.Price - benchmark) * c.sideSign(exec.Side)
	slippageBps := slippage / benchmark * bpsFactor

	for _, v := range []float64{notional, slippage, slippageBps} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return models.MetricRecord{}, fmt.Errorf("%w: non-finite metric for execution %s", models.ErrValidation, exec.ID)
		}
	}

	return models.MetricRecord{
		ExecutionID:  exec.ID,
		InstrumentID: exec.InstrumentID,
		Side:         exec.Side,
		Quantity:     exec.Quantity,
		Price:        exec.Price,
		Benchmark:    benchmark,
		Slippage:     slippage,
		SlippageBps:  slippageBps,
		Notional:     notional,
		Currency:     inst.Currency,
		Ticker:       inst.Ticker,
	}, nil
}
