package reader

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	appconfig "tcaflow/config"
	"tcaflow/logger"
	"tcaflow/models"
)

// Datasets holds the three fully loaded inputs of a batch run.
type Datasets struct {
	Executions   []models.Execution
	Instruments  []models.Instrument
	Observations []models.MarketObservation
}

// Load reads the three datasets configured in cfg.Data. The whole input is
// loaded into memory before any computation starts.
func Load(cfg *appconfig.Config) (*Datasets, error) {
	log := logger.GetLogger().WithComponent("reader")
	start := time.Now()

	executions, err := LoadExecutions(cfg.Data.Executions)
	if err != nil {
		return nil, fmt.Errorf("loading executions from %s: %w", cfg.Data.Executions, err)
	}
	instruments, err := LoadInstruments(cfg.Data.Refdata)
	if err != nil {
		return nil, fmt.Errorf("loading refdata from %s: %w", cfg.Data.Refdata, err)
	}
	observations, err := LoadObservations(cfg.Data.Marketdata)
	if err != nil {
		return nil, fmt.Errorf("loading marketdata from %s: %w", cfg.Data.Marketdata, err)
	}

	logger.LogDataFlowEntry(log, cfg.Data.Executions, "memory", len(executions), "executions")
	logger.LogDataFlowEntry(log, cfg.Data.Refdata, "memory", len(instruments), "instruments")
	logger.LogDataFlowEntry(log, cfg.Data.Marketdata, "memory", len(observations), "observations")

	log.WithFields(logger.Fields{
		"executions":  len(executions),
		"instruments": len(instruments),
		"marketdata":  len(observations),
		"duration_ms": float64(time.Since(start).Nanoseconds()) / 1e6,
	}).Info("datasets loaded")

	return &Datasets{
		Executions:   executions,
		Instruments:  instruments,
		Observations: observations,
	}, nil
}

// LoadExecutions reads the executions dataset; format by extension.
func LoadExecutions(path string) ([]models.Execution, error) {
	switch format(path) {
	case "parquet":
		return readExecutionsParquet(path)
	case "csv":
		return readExecutionsCSV(path)
	}
	return nil, fmt.Errorf("unsupported executions file %q", path)
}

// LoadInstruments reads the reference dataset; format by extension.
func LoadInstruments(path string) ([]models.Instrument, error) {
	switch format(path) {
	case "parquet":
		return readInstrumentsParquet(path)
	case "csv":
		return readInstrumentsCSV(path)
	}
	return nil, fmt.Errorf("unsupported refdata file %q", path)
}

// LoadObservations reads the market dataset; format by extension.
func LoadObservations(path string) ([]models.MarketObservation, error) {
	switch format(path) {
	case "parquet":
		return readObservationsParquet(path)
	case "csv":
		return readObservationsCSV(path)
	}
	return nil, fmt.Errorf("unsupported marketdata file %q", path)
}

func format(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".parquet":
		return "parquet"
	case ".csv":
		return "csv"
	}
	return ""
}

// timestampLayouts are tried in order when parsing textual timestamps; the
// upstream feeds use RFC3339 or space-separated variants with optional
// fractional seconds.
var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

func parseTimestamp(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range timestampLayouts {
		if ts, err := time.Parse(layout, s); err == nil {
			return ts.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unparseable timestamp %q", s)
}
