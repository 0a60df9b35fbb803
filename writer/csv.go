package writer

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"strconv"

	"tcaflow/models"
)

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func marshalCSV(header []string, rows [][]string) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(header); err != nil {
		return nil, fmt.Errorf("writing csv header: %w", err)
	}
	if err := w.WriteAll(rows); err != nil {
		return nil, fmt.Errorf("writing csv rows: %w", err)
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, fmt.Errorf("flushing csv: %w", err)
	}
	return buf.Bytes(), nil
}

func marshalAggregateCSV(rows []models.AggregateRow) ([]byte, error) {
	header := []string{"dimension", "key", "count", "total_quantity", "total_notional", "weighted_slippage", "weighted_slippage_bps"}
	out := make([][]string, 0, len(rows))
	for _, r := range rows {
		out = append(out, []string{
			r.Dimension,
			r.Key,
			strconv.FormatInt(r.Count, 10),
			formatFloat(r.TotalQuantity),
			formatFloat(r.TotalNotional),
			formatFloat(r.WeightedSlippage),
			formatFloat(r.WeightedSlippageBps),
		})
	}
	return marshalCSV(header, out)
}

func marshalDetailCSV(records []models.MetricRecord) ([]byte, error) {
	header := []string{"execution_id", "instrument_id", "ticker", "side", "quantity", "price", "benchmark", "slippage", "slippage_bps", "notional", "currency"}
	out := make([][]string, 0, len(records))
	for _, r := range records {
		out = append(out, []string{
			r.ExecutionID,
			r.InstrumentID,
			r.Ticker,
			string(r.Side),
			formatFloat(r.Quantity),
			formatFloat(r.Price),
			formatFloat(r.Benchmark),
			formatFloat(r.Slippage),
			formatFloat(r.SlippageBps),
			formatFloat(r.Notional),
			r.Currency,
		})
	}
	return marshalCSV(header, out)
}

func marshalSkippedCSV(skipped []models.SkippedExecution) ([]byte, error) {
	header := []string{"execution_id", "instrument_id", "reason"}
	out := make([][]string, 0, len(skipped))
	for _, s := range skipped {
		out = append(out, []string{s.ExecutionID, s.InstrumentID, s.Reason})
	}
	return marshalCSV(header, out)
}
