package processor

import (
	"context"
	"math"
	"strings"
	"testing"
	"time"

	appconfig "tcaflow/config"
	"tcaflow/models"
)

func engineConfig(workers int) *appconfig.Config {
	return &appconfig.Config{
		Tcaflow: appconfig.TcaflowConfig{Name: "test", Version: "0"},
		Engine: appconfig.EngineConfig{
			Tolerance:  appconfig.Duration(30 * time.Second),
			MaxWorkers: workers,
		},
	}
}

func buildEngine(t *testing.T, cfg *appconfig.Config, instruments []models.Instrument, observations []models.MarketObservation) *Engine {
	t.Helper()
	catalog, err := NewCatalog(instruments)
	if err != nil {
		t.Fatalf("NewCatalog failed: %v", err)
	}
	series, err := NewSeriesIndex(observations, cfg.Engine.Tolerance.Std())
	if err != nil {
		t.Fatalf("NewSeriesIndex failed: %v", err)
	}
	return NewEngine(cfg, catalog, series)
}

// The worked example: instrument XYZ with observations last=100 at t=10 and
// last=110 at t=20; a buy of 50 at 103 at t=15 interpolates the benchmark to
// 105, giving +2 favorable slippage and ~190.48 bps.
func TestEngineRunWorkedExample(t *testing.T) {
	cfg := engineConfig(1)
	engine := buildEngine(t, cfg,
		[]models.Instrument{{ID: "XYZ", Currency: "USD", Multiplier: 1, TickSize: 0.01}},
		[]models.MarketObservation{obs("XYZ", 10, 100), obs("XYZ", 20, 110)},
	)

	res, err := engine.Run(context.Background(), []models.Execution{
		{ID: "e1", InstrumentID: "XYZ", Side: models.SideBuy, Quantity: 50, Price: 103, Timestamp: at(15)},
	})
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}

	if len(res.Records) != 1 || len(res.Skipped) != 0 {
		t.Fatalf("unexpected result shape: %d records, %d skipped", len(res.Records), len(res.Skipped))
	}
	r := res.Records[0]
	if r.Benchmark != 105 {
		t.Errorf("benchmark = %v, want 105", r.Benchmark)
	}
	if r.Slippage != 2 {
		t.Errorf("slippage = %v, want +2", r.Slippage)
	}
	if r.Notional != 5150 {
		t.Errorf("notional = %v, want 5150", r.Notional)
	}
	if math.Abs(r.SlippageBps-190.476190) > 1e-4 {
		t.Errorf("slippage bps = %v, want ~190.48", r.SlippageBps)
	}

	overall := findRow(t, res.Rows, models.DimensionOverall, models.OverallKey)
	if overall.Count != int64(len(res.Records)) {
		t.Errorf("overall count %d != record count %d", overall.Count, len(res.Records))
	}
}

func TestEngineSkipsAndContinues(t *testing.T) {
	cfg := engineConfig(1)
	engine := buildEngine(t, cfg,
		[]models.Instrument{{ID: "XYZ", Currency: "USD", Multiplier: 1, TickSize: 0.01}},
		[]models.MarketObservation{obs("XYZ", 10, 100), obs("XYZ", 20, 110)},
	)

	res, err := engine.Run(context.Background(), []models.Execution{
		{ID: "e1", InstrumentID: "UNKNOWN", Side: models.SideBuy, Quantity: 1, Price: 1, Timestamp: at(15)},
		{ID: "e2", InstrumentID: "XYZ", Side: models.SideBuy, Quantity: -5, Price: 103, Timestamp: at(15)},
		{ID: "e3", InstrumentID: "XYZ", Side: models.SideBuy, Quantity: 50, Price: 103, Timestamp: at(15)},
		{ID: "e4", InstrumentID: "XYZ", Side: models.SideSell, Quantity: 1, Price: 100, Timestamp: at(600)},
	})
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}

	if len(res.Records) != 1 || res.Records[0].ExecutionID != "e3" {
		t.Fatalf("expected only e3 to produce a record, got %+v", res.Records)
	}
	if len(res.Skipped) != 3 {
		t.Fatalf("expected 3 skipped executions, got %d", len(res.Skipped))
	}

	reasons := map[string]string{}
	for _, s := range res.Skipped {
		reasons[s.ExecutionID] = s.Reason
	}
	if !strings.Contains(reasons["e1"], "unknown instrument") {
		t.Errorf("e1 reason = %q", reasons["e1"])
	}
	if !strings.Contains(reasons["e2"], "non-positive quantity") {
		t.Errorf("e2 reason = %q", reasons["e2"])
	}
	if !strings.Contains(reasons["e4"], "no observation within tolerance") {
		t.Errorf("e4 reason = %q", reasons["e4"])
	}

	overall := findRow(t, res.Rows, models.DimensionOverall, models.OverallKey)
	if overall.Count != 1 {
		t.Errorf("skipped executions must not reach any aggregate row, count = %d", overall.Count)
	}
}

func TestEnginePhaseFilter(t *testing.T) {
	cfg := engineConfig(1)
	cfg.Engine.PhaseFilter = "CONTINUOUS_TRADING"
	engine := buildEngine(t, cfg,
		[]models.Instrument{{ID: "XYZ", Currency: "USD", Multiplier: 1, TickSize: 0.01}},
		[]models.MarketObservation{obs("XYZ", 10, 100), obs("XYZ", 20, 110)},
	)

	res, err := engine.Run(context.Background(), []models.Execution{
		{ID: "e1", InstrumentID: "XYZ", Side: models.SideBuy, Quantity: 1, Price: 103, Timestamp: at(15), Phase: "AUCTION"},
		{ID: "e2", InstrumentID: "XYZ", Side: models.SideBuy, Quantity: 1, Price: 103, Timestamp: at(15), Phase: "CONTINUOUS_TRADING"},
	})
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}
	if len(res.Records) != 1 || res.Records[0].ExecutionID != "e2" {
		t.Fatalf("phase filter not applied: %+v", res.Records)
	}
	if len(res.Skipped) != 1 || !strings.Contains(res.Skipped[0].Reason, "trading phase") {
		t.Fatalf("filtered execution missing from skipped table: %+v", res.Skipped)
	}
}

// Parallel workers must produce the same aggregates as a sequential run.
func TestEngineParallelMatchesSequential(t *testing.T) {
	instruments := []models.Instrument{
		{ID: "XYZ", Currency: "USD", Multiplier: 1, TickSize: 0.01},
		{ID: "ABC", Currency: "EUR", Multiplier: 10, TickSize: 0.5},
	}
	observations := []models.MarketObservation{
		obs("XYZ", 0, 100), obs("XYZ", 30, 106),
		obs("ABC", 0, 50), obs("ABC", 30, 48),
	}

	executions := make([]models.Execution, 0, 200)
	for i := 0; i < 200; i++ {
		inst := "XYZ"
		side := models.SideBuy
		if i%2 == 0 {
			inst = "ABC"
		}
		if i%3 == 0 {
			side = models.SideSell
		}
		executions = append(executions, models.Execution{
			ID:           "e" + string(rune('A'+i%26)) + string(rune('0'+i%10)),
			InstrumentID: inst,
			Side:         side,
			Quantity:     float64(1 + i%7),
			Price:        100 + float64(i%11),
			Timestamp:    at(i % 30),
		})
	}

	seq := buildEngine(t, engineConfig(1), instruments, observations)
	par := buildEngine(t, engineConfig(8), instruments, observations)

	seqRes, err := seq.Run(context.Background(), executions)
	if err != nil {
		t.Fatalf("sequential run failed: %v", err)
	}
	parRes, err := par.Run(context.Background(), executions)
	if err != nil {
		t.Fatalf("parallel run failed: %v", err)
	}

	if len(seqRes.Records) != len(parRes.Records) {
		t.Fatalf("record counts differ: %d vs %d", len(seqRes.Records), len(parRes.Records))
	}
	a := findRow(t, seqRes.Rows, models.DimensionOverall, models.OverallKey)
	b := findRow(t, parRes.Rows, models.DimensionOverall, models.OverallKey)
	if math.Abs(a.WeightedSlippage-b.WeightedSlippage) > 1e-9 {
		t.Errorf("weighted slippage differs across worker counts: %v vs %v", a.WeightedSlippage, b.WeightedSlippage)
	}
	if math.Abs(a.TotalNotional-b.TotalNotional) > 1e-6 {
		t.Errorf("total notional differs across worker counts: %v vs %v", a.TotalNotional, b.TotalNotional)
	}
}

func TestEngineCancelledContext(t *testing.T) {
	cfg := engineConfig(2)
	engine := buildEngine(t, cfg,
		[]models.Instrument{{ID: "XYZ", Currency: "USD", Multiplier: 1, TickSize: 0.01}},
		[]models.MarketObservation{obs("XYZ", 10, 100)},
	)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	executions := make([]models.Execution, 1000)
	for i := range executions {
		executions[i] = models.Execution{ID: "e", InstrumentID: "XYZ", Side: models.SideBuy, Quantity: 1, Price: 100, Timestamp: at(10)}
	}
	if _, err := engine.Run(ctx, executions); err == nil {
		t.Fatal("expected error from cancelled context")
	}
}
