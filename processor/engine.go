package processor

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	appconfig "tcaflow/config"
	"tcaflow/logger"
	"tcaflow/models"
)

// Result is the outcome of one batch run: per-execution records, the grouped
// report rows, and every skipped execution with its reason.
type Result struct {
	Records []models.MetricRecord
	Rows    []models.AggregateRow
	Skipped []models.SkippedExecution
}

// Engine drives the batch: it resolves each execution against the catalog
// and the series index, runs the calculator, and folds the results into the
// aggregator. Per-execution resolution is a pure function, so the engine may
// fan it out across workers; results merge through the order-independent
// aggregator.
type Engine struct {
	config  *appconfig.Config
	catalog *Catalog
	series  *SeriesIndex
	calc    *Calculator
	log     *logger.Log
}

func NewEngine(cfg *appconfig.Config, catalog *Catalog, series *SeriesIndex) *Engine {
	return &Engine{
		config:  cfg,
		catalog: catalog,
		series:  series,
		calc:    NewCalculator(cfg.Engine.InvertSideSign),
		log:     logger.GetLogger(),
	}
}

type outcome struct {
	record  models.MetricRecord
	skipped models.SkippedExecution
	ok      bool
}

// Run computes metrics for every execution. Only context cancellation is an
// error at this level; all per-execution failures end up in Result.Skipped.
func (e *Engine) Run(ctx context.Context, executions []models.Execution) (*Result, error) {
	log := e.log.WithComponent("engine").WithFields(logger.Fields{"operation": "run"})
	start := time.Now()

	e.analyze(executions)

	workers := e.config.Engine.MaxWorkers
	if workers < 1 {
		workers = 1
	}
	log.WithFields(logger.Fields{
		"executions": len(executions),
		"workers":    workers,
	}).Info("starting metric computation")

	jobs := make(chan models.Execution)
	outcomes := make(chan outcome)

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for exec := range jobs {
				outcomes <- e.process(exec)
			}
		}()
	}
	go func() {
		wg.Wait()
		close(outcomes)
	}()

	go func() {
		defer close(jobs)
		for _, exec := range executions {
			select {
			case jobs <- exec:
			case <-ctx.Done():
				return
			}
		}
	}()

	agg := NewAggregator()
	result := &Result{}
	for out := range outcomes {
		if out.ok {
			agg.Add(out.record)
			result.Records = append(result.Records, out.record)
		} else {
			result.Skipped = append(result.Skipped, out.skipped)
		}
	}
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("metric computation aborted: %w", err)
	}

	// Deterministic output ordering regardless of worker interleaving.
	sort.Slice(result.Records, func(i, j int) bool {
		return result.Records[i].ExecutionID < result.Records[j].ExecutionID
	})
	sort.Slice(result.Skipped, func(i, j int) bool {
		return result.Skipped[i].ExecutionID < result.Skipped[j].ExecutionID
	})
	result.Rows = agg.Rows()

	logger.IncrementProcessed(len(result.Records))
	logger.IncrementSkipped(len(result.Skipped))

	logger.LogPerformanceEntry(log, "engine", "run", time.Since(start), logger.Fields{
		"records": len(result.Records),
		"skipped": len(result.Skipped),
		"groups":  len(result.Rows),
	})
	for _, s := range result.Skipped {
		log.WithFields(logger.Fields{
			"execution_id":  s.ExecutionID,
			"instrument_id": s.InstrumentID,
			"reason":        s.Reason,
		}).Warn("execution skipped")
	}

	return result, nil
}

// process resolves and computes one execution. Pure with respect to the
// catalog and series index, which are read-only after construction.
func (e *Engine) process(exec models.Execution) outcome {
	skip := func(reason string) outcome {
		return outcome{skipped: models.SkippedExecution{
			ExecutionID:  exec.ID,
			InstrumentID: exec.InstrumentID,
			Reason:       reason,
		}}
	}

	if filter := e.config.Engine.PhaseFilter; filter != "" && exec.Phase != filter {
		return skip(fmt.Sprintf("excluded trading phase %q", exec.Phase))
	}

	inst, ok := e.catalog.Lookup(exec.InstrumentID)
	if !ok {
		return skip(models.ErrUnknownInstrument.Error())
	}

	benchmark, err := e.series.ResolveBenchmark(exec.InstrumentID, exec.Timestamp)
	if err != nil {
		return skip(err.Error())
	}

	record, err := e.calc.Compute(exec, inst, benchmark)
	if err != nil {
		return skip(err.Error())
	}
	return outcome{record: record, ok: true}
}

// analyze logs dataset shape before computation: totals, venues, phases and
// the execution time range.
func (e *Engine) analyze(executions []models.Execution) {
	if len(executions) == 0 {
		e.log.WithComponent("engine").Warn("no executions loaded")
		return
	}

	venues := make(map[string]struct{})
	dates := make(map[string]struct{})
	minTs, maxTs := executions[0].Timestamp, executions[0].Timestamp
	for _, exec := range executions {
		if exec.Venue != "" {
			venues[exec.Venue] = struct{}{}
		}
		dates[exec.Timestamp.Format("2006-01-02")] = struct{}{}
		if exec.Timestamp.Before(minTs) {
			minTs = exec.Timestamp
		}
		if exec.Timestamp.After(maxTs) {
			maxTs = exec.Timestamp
		}
	}

	e.log.WithComponent("engine").WithFields(logger.Fields{
		"executions":    len(executions),
		"unique_venues": len(venues),
		"unique_dates":  len(dates),
		"first_trade":   minTs.Format(time.RFC3339Nano),
		"last_trade":    maxTs.Format(time.RFC3339Nano),
		"instruments":   e.catalog.Len(),
		"market_series": e.series.Instruments(),
	}).Info("dataset analysis")
}
