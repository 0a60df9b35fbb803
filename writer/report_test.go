package writer

import (
	"context"
	"encoding/csv"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/xitongsys/parquet-go-source/local"
	"github.com/xitongsys/parquet-go/reader"

	appconfig "tcaflow/config"
	"tcaflow/models"
)

func reportConfig(t *testing.T, format string) *appconfig.Config {
	t.Helper()
	return &appconfig.Config{
		Tcaflow: appconfig.TcaflowConfig{Name: "test", Version: "0"},
		Report: appconfig.ReportConfig{
			Output:      filepath.Join(t.TempDir(), "metrics."+format),
			Format:      format,
			Detail:      true,
			Skipped:     true,
			Compression: "snappy",
		},
	}
}

func sampleTables() ([]models.MetricRecord, []models.AggregateRow, []models.SkippedExecution) {
	records := []models.MetricRecord{
		{ExecutionID: "e1", InstrumentID: "XYZ", Side: models.SideBuy, Quantity: 50, Price: 103, Benchmark: 105, Slippage: 2, SlippageBps: 190.48, Notional: 5150, Currency: "USD"},
	}
	rows := []models.AggregateRow{
		{Dimension: models.DimensionInstrument, Key: "XYZ", Count: 1, TotalQuantity: 50, TotalNotional: 5150, WeightedSlippage: 2, WeightedSlippageBps: 190.48},
		{Dimension: models.DimensionOverall, Key: models.OverallKey, Count: 1, TotalQuantity: 50, TotalNotional: 5150, WeightedSlippage: 2, WeightedSlippageBps: 190.48},
	}
	skipped := []models.SkippedExecution{
		{ExecutionID: "e2", InstrumentID: "UNK", Reason: "unknown instrument"},
	}
	return records, rows, skipped
}

func TestWriteCSVReport(t *testing.T) {
	cfg := reportConfig(t, "csv")
	w, err := NewReportWriter(cfg)
	if err != nil {
		t.Fatalf("NewReportWriter failed: %v", err)
	}

	records, rows, skipped := sampleTables()
	if err := w.Write(context.Background(), records, rows, skipped); err != nil {
		t.Fatalf("write failed: %v", err)
	}

	f, err := os.Open(cfg.Report.Output)
	if err != nil {
		t.Fatalf("aggregate report not written: %v", err)
	}
	defer f.Close()

	lines, err := csv.NewReader(f).ReadAll()
	if err != nil {
		t.Fatalf("parsing aggregate csv: %v", err)
	}
	if len(lines) != 3 {
		t.Fatalf("expected header + 2 rows, got %d lines", len(lines))
	}
	if lines[0][0] != "dimension" || lines[0][6] != "weighted_slippage_bps" {
		t.Errorf("unexpected header: %v", lines[0])
	}
	if lines[1][1] != "XYZ" || lines[1][2] != "1" {
		t.Errorf("unexpected instrument row: %v", lines[1])
	}

	for _, suffix := range []string{"_detail", "_skipped"} {
		path := suffixedPath(cfg.Report.Output, suffix)
		if _, err := os.Stat(path); err != nil {
			t.Errorf("expected %s file at %s: %v", suffix, path, err)
		}
	}
}

func TestWriteParquetReportRoundTrip(t *testing.T) {
	cfg := reportConfig(t, "parquet")
	w, err := NewReportWriter(cfg)
	if err != nil {
		t.Fatalf("NewReportWriter failed: %v", err)
	}

	records, rows, skipped := sampleTables()
	if err := w.Write(context.Background(), records, rows, skipped); err != nil {
		t.Fatalf("write failed: %v", err)
	}

	fr, err := local.NewLocalFileReader(cfg.Report.Output)
	if err != nil {
		t.Fatalf("opening written parquet: %v", err)
	}
	defer fr.Close()

	pr, err := reader.NewParquetReader(fr, new(aggregateParquetRow), 4)
	if err != nil {
		t.Fatalf("reading written parquet: %v", err)
	}
	defer pr.ReadStop()

	got := make([]aggregateParquetRow, pr.GetNumRows())
	if err := pr.Read(&got); err != nil {
		t.Fatalf("reading rows: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 aggregate rows, got %d", len(got))
	}
	if got[0].Key != "XYZ" || got[0].TotalNotional != 5150 {
		t.Errorf("unexpected first row: %+v", got[0])
	}
	if got[1].Dimension != models.DimensionOverall {
		t.Errorf("unexpected second row: %+v", got[1])
	}
}

func TestWriteRespectsDisabledTables(t *testing.T) {
	cfg := reportConfig(t, "csv")
	cfg.Report.Detail = false
	cfg.Report.Skipped = false

	w, err := NewReportWriter(cfg)
	if err != nil {
		t.Fatalf("NewReportWriter failed: %v", err)
	}
	records, rows, skipped := sampleTables()
	if err := w.Write(context.Background(), records, rows, skipped); err != nil {
		t.Fatalf("write failed: %v", err)
	}

	for _, suffix := range []string{"_detail", "_skipped"} {
		path := suffixedPath(cfg.Report.Output, suffix)
		if _, err := os.Stat(path); err == nil {
			t.Errorf("%s file must not be written when disabled", suffix)
		}
	}
}

func TestSuffixedPath(t *testing.T) {
	got := suffixedPath("output/trading_metrics.parquet", "_detail")
	if got != "output/trading_metrics_detail.parquet" {
		t.Errorf("suffixedPath = %q", got)
	}
	got = suffixedPath("metrics.csv", "_skipped")
	if got != "metrics_skipped.csv" {
		t.Errorf("suffixedPath = %q", got)
	}
}

func TestMarshalDetailCSVColumns(t *testing.T) {
	records, _, _ := sampleTables()
	data, err := marshalDetailCSV(records)
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected header + 1 row, got %d lines", len(lines))
	}
	if !strings.HasPrefix(lines[1], "e1,XYZ,") {
		t.Errorf("unexpected detail row: %q", lines[1])
	}
	if !strings.Contains(lines[0], "slippage_bps") {
		t.Errorf("missing column in header: %q", lines[0])
	}
}
