package writer

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	appconfig "tcaflow/config"
	"tcaflow/logger"
	"tcaflow/models"
)

// ReportWriter writes the three report tables (aggregate, detail, skipped)
// to local files and, when configured, uploads them to S3.
type ReportWriter struct {
	config   *appconfig.Config
	log      *logger.Log
	uploader *s3Uploader
}

// NewReportWriter constructs a report writer. The S3 uploader is only
// initialized when storage.s3.enabled is set.
func NewReportWriter(cfg *appconfig.Config) (*ReportWriter, error) {
	log := logger.GetLogger()

	w := &ReportWriter{
		config: cfg,
		log:    log,
	}

	if cfg.Storage.S3.Enabled {
		uploader, err := newS3Uploader(cfg)
		if err != nil {
			return nil, fmt.Errorf("initializing s3 uploader: %w", err)
		}
		w.uploader = uploader
	}

	return w, nil
}

// Write emits the aggregate report at report.output, plus the detail and
// skipped tables next to it when enabled. All files of one run share a run id.
func (w *ReportWriter) Write(ctx context.Context, records []models.MetricRecord, rows []models.AggregateRow, skipped []models.SkippedExecution) error {
	runID := uuid.New().String()
	log := w.log.WithComponent("report_writer").WithFields(logger.Fields{
		"run_id":  runID,
		"records": len(records),
		"rows":    len(rows),
		"skipped": len(skipped),
	})
	start := time.Now()

	if dir := filepath.Dir(w.config.Report.Output); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("creating output directory %s: %w", dir, err)
		}
	}

	aggregate, err := w.marshalAggregate(rows)
	if err != nil {
		return fmt.Errorf("encoding aggregate report: %w", err)
	}
	if err := w.emit(ctx, log, w.config.Report.Output, aggregate); err != nil {
		return err
	}

	if w.config.Report.Detail {
		detail, err := w.marshalDetail(records)
		if err != nil {
			return fmt.Errorf("encoding detail report: %w", err)
		}
		if err := w.emit(ctx, log, suffixedPath(w.config.Report.Output, "_detail"), detail); err != nil {
			return err
		}
	}

	if w.config.Report.Skipped {
		table, err := w.marshalSkipped(skipped)
		if err != nil {
			return fmt.Errorf("encoding skipped report: %w", err)
		}
		if err := w.emit(ctx, log, suffixedPath(w.config.Report.Output, "_skipped"), table); err != nil {
			return err
		}
	}

	logger.LogPerformanceEntry(log, "report_writer", "write", time.Since(start), logger.Fields{})
	log.Info("report written")
	return nil
}

// emit writes one encoded table to its local path and uploads it when an
// uploader is configured.
func (w *ReportWriter) emit(ctx context.Context, log *logger.Entry, path string, data []byte) error {
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	logger.IncrementReportFiles(1)
	log.WithFields(logger.Fields{
		"path":      path,
		"file_size": len(data),
	}).Info("report file written")

	if w.uploader == nil {
		return nil
	}
	key := w.uploader.keyFor(filepath.Base(path))
	if err := w.uploader.upload(ctx, key, data); err != nil {
		return fmt.Errorf("uploading %s: %w", path, err)
	}
	log.WithFields(logger.Fields{
		"bucket": w.config.Storage.S3.Bucket,
		"s3_key": key,
	}).Info("report file uploaded")
	return nil
}

func (w *ReportWriter) marshalAggregate(rows []models.AggregateRow) ([]byte, error) {
	if w.config.Report.Format == "csv" {
		return marshalAggregateCSV(rows)
	}
	return marshalAggregateParquet(rows, w.config.Report.Compression)
}

func (w *ReportWriter) marshalDetail(records []models.MetricRecord) ([]byte, error) {
	if w.config.Report.Format == "csv" {
		return marshalDetailCSV(records)
	}
	return marshalDetailParquet(records, w.config.Report.Compression)
}

func (w *ReportWriter) marshalSkipped(skipped []models.SkippedExecution) ([]byte, error) {
	if w.config.Report.Format == "csv" {
		return marshalSkippedCSV(skipped)
	}
	return marshalSkippedParquet(skipped, w.config.Report.Compression)
}

// suffixedPath inserts suffix before the file extension, so
// output/metrics.parquet becomes output/metrics_detail.parquet.
func suffixedPath(path, suffix string) string {
	ext := filepath.Ext(path)
	return strings.TrimSuffix(path, ext) + suffix + ext
}
