package logger

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	cwtypes "github.com/aws/aws-sdk-go-v2/service/cloudwatch/types"
)

// Run counters accumulated across the batch. The engine and the writers bump
// these; RunReport logs them once at the end of the run and pushes them to
// CloudWatch when the client is configured.
var (
	executionsProcessed int64
	executionsSkipped   int64
	reportFilesWritten  int64
	warnCounts          sync.Map // map[string]*int64, keyed by component
	errorCounts         sync.Map // map[string]*int64, keyed by component
)

func recordWarn(component string) {
	v, _ := warnCounts.LoadOrStore(component, new(int64))
	atomic.AddInt64(v.(*int64), 1)
}

func recordError(component string) {
	v, _ := errorCounts.LoadOrStore(component, new(int64))
	atomic.AddInt64(v.(*int64), 1)
}

// IncrementProcessed records executions that produced a metric record.
func IncrementProcessed(n int) {
	atomic.AddInt64(&executionsProcessed, int64(n))
}

// IncrementSkipped records executions skipped with a reason.
func IncrementSkipped(n int) {
	atomic.AddInt64(&executionsSkipped, int64(n))
}

// IncrementReportFiles records report files written to durable storage.
func IncrementReportFiles(n int) {
	atomic.AddInt64(&reportFilesWritten, int64(n))
}

func counts(m *sync.Map) (map[string]int64, int64) {
	out := map[string]int64{}
	var total int64
	m.Range(func(k, v any) bool {
		n := atomic.LoadInt64(v.(*int64))
		out[k.(string)] = n
		total += n
		return true
	})
	return out, total
}

// RunReport logs the accumulated run counters and publishes them as
// CloudWatch metrics. Call once when the batch finishes.
func RunReport(ctx context.Context, log *Log, duration time.Duration) {
	warns, warnTotal := counts(&warnCounts)
	errs, errTotal := counts(&errorCounts)

	processed := atomic.LoadInt64(&executionsProcessed)
	skipped := atomic.LoadInt64(&executionsSkipped)
	files := atomic.LoadInt64(&reportFilesWritten)

	log.WithComponent("report").WithFields(Fields{
		"executions_processed": processed,
		"executions_skipped":   skipped,
		"report_files_written": files,
		"warns":                warns,
		"errors":               errs,
		"duration_ms":          float64(duration.Nanoseconds()) / 1e6,
	}).Info("run report")

	data := []cwtypes.MetricDatum{
		{MetricName: aws.String("ExecutionsProcessed"), Unit: cwtypes.StandardUnitCount, Value: aws.Float64(float64(processed))},
		{MetricName: aws.String("ExecutionsSkipped"), Unit: cwtypes.StandardUnitCount, Value: aws.Float64(float64(skipped))},
		{MetricName: aws.String("ReportFilesWritten"), Unit: cwtypes.StandardUnitCount, Value: aws.Float64(float64(files))},
		{MetricName: aws.String("Warns"), Unit: cwtypes.StandardUnitCount, Value: aws.Float64(float64(warnTotal))},
		{MetricName: aws.String("Errors"), Unit: cwtypes.StandardUnitCount, Value: aws.Float64(float64(errTotal))},
		{MetricName: aws.String("RunDurationMs"), Unit: cwtypes.StandardUnitMilliseconds, Value: aws.Float64(float64(duration.Nanoseconds()) / 1e6)},
	}
	publishMetrics(ctx, data)
}
