package processor

import (
	"errors"
	"math"
	"testing"

	"tcaflow/models"
)

func testInstrument() models.Instrument {
	return models.Instrument{ID: "XYZ", Currency: "USD", Multiplier: 1, TickSize: 0.01}
}

func TestComputeBuyBelowBenchmarkIsFavorable(t *testing.T) {
	calc := NewCalculator(false)
	exec := models.Execution{ID: "e1", InstrumentID: "XYZ", Side: models.SideBuy, Quantity: 50, Price: 103, Timestamp: at(15)}

	rec, err := calc.Compute(exec, testInstrument(), 105)
	if err != nil {
		t.Fatalf("compute failed: %v", err)
	}
	if rec.Slippage != 2 {
		t.Errorf("expected slippage +2 for buy below benchmark, got %v", rec.Slippage)
	}
	if rec.Notional != 5150 {
		t.Errorf("expected notional 5150, got %v", rec.Notional)
	}
	if math.Abs(rec.SlippageBps-190.476190) > 1e-4 {
		t.Errorf("expected ~190.48 bps, got %v", rec.SlippageBps)
	}
}

func TestComputeSellAboveBenchmarkIsFavorable(t *testing.T) {
	calc := NewCalculator(false)
	exec := models.Execution{ID: "e2", InstrumentID: "XYZ", Side: models.SideSell, Quantity: 10, Price: 107, Timestamp: at(15)}

	rec, err := calc.Compute(exec, testInstrument(), 105)
	if err != nil {
		t.Fatalf("compute failed: %v", err)
	}
	if rec.Slippage != 2 {
		t.Errorf("expected slippage +2 for sell above benchmark, got %v", rec.Slippage)
	}
}

func TestComputeInvertedSignConvention(t *testing.T) {
	calc := NewCalculator(true)
	exec := models.Execution{ID: "e3", InstrumentID: "XYZ", Side: models.SideBuy, Quantity: 50, Price: 103, Timestamp: at(15)}

	rec, err := calc.Compute(exec, testInstrument(), 105)
	if err != nil {
		t.Fatalf("compute failed: %v", err)
	}
	if rec.Slippage != -2 {
		t.Errorf("expected slippage -2 with inverted convention, got %v", rec.Slippage)
	}
}

func TestComputeMultiplierScalesNotional(t *testing.T) {
	calc := NewCalculator(false)
	inst := testInstrument()
	inst.Multiplier = 100
	exec := models.Execution{ID: "e4", InstrumentID: "XYZ", Side: models.SideBuy, Quantity: 2, Price: 50, Timestamp: at(15)}

	rec, err := calc.Compute(exec, inst, 50)
	if err != nil {
		t.Fatalf("compute failed: %v", err)
	}
	if rec.Notional != 10000 {
		t.Errorf("expected notional 10000 with multiplier 100, got %v", rec.Notional)
	}
}

func TestComputeRejectsInvalidExecution(t *testing.T) {
	calc := NewCalculator(false)
	exec := models.Execution{ID: "e5", InstrumentID: "XYZ", Side: models.SideBuy, Quantity: -1, Price: 103, Timestamp: at(15)}

	if _, err := calc.Compute(exec, testInstrument(), 105); !errors.Is(err, models.ErrValidation) {
		t.Fatalf("expected validation error for negative quantity, got %v", err)
	}
}

func TestComputeRejectsZeroBenchmark(t *testing.T) {
	calc := NewCalculator(false)
	exec := models.Execution{ID: "e6", InstrumentID: "XYZ", Side: models.SideBuy, Quantity: 1, Price: 103, Timestamp: at(15)}

	if _, err := calc.Compute(exec, testInstrument(), 0); !errors.Is(err, models.ErrUnresolved) {
		t.Fatalf("expected unresolved error for zero benchmark, got %v", err)
	}
}
