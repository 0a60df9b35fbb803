package reader

import (
	"encoding/csv"
	"fmt"
	"math"
	"os"
	"strconv"
	"strings"

	"tcaflow/models"
)

// header maps normalised column names to their index. Column matching is
// case-insensitive and accepts the aliases used by the upstream exports
// (TradeTime, event_timestamp, market_state and friends).
type header map[string]int

func readCSVFile(path string) (header, [][]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, err
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.TrimLeadingSpace = true
	records, err := r.ReadAll()
	if err != nil {
		return nil, nil, fmt.Errorf("reading csv: %w", err)
	}
	if len(records) == 0 {
		return nil, nil, fmt.Errorf("csv file %s is empty", path)
	}

	h := header{}
	for i, name := range records[0] {
		h[strings.ToLower(strings.TrimSpace(name))] = i
	}
	return h, records[1:], nil
}

func (h header) cell(row []string, names ...string) string {
	for _, name := range names {
		if idx, ok := h[name]; ok && idx < len(row) {
			return strings.TrimSpace(row[idx])
		}
	}
	return ""
}

func requireFloat(s, column string) (float64, error) {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("column %s: invalid number %q", column, s)
	}
	return v, nil
}

func optionalFloat(s, column string) (*float64, error) {
	if s == "" {
		return nil, nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil, fmt.Errorf("column %s: invalid number %q", column, s)
	}
	return &v, nil
}

func readExecutionsCSV(path string) ([]models.Execution, error) {
	h, rows, err := readCSVFile(path)
	if err != nil {
		return nil, err
	}

	executions := make([]models.Execution, 0, len(rows))
	for n, row := range rows {
		qty, err := requireFloat(h.cell(row, "quantity"), "quantity")
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", n+2, err)
		}
		price, err := requireFloat(h.cell(row, "price"), "price")
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", n+2, err)
		}
		ts, err := parseTimestamp(h.cell(row, "timestamp", "tradetime", "trade_time"))
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", n+2, err)
		}

		// Side may be explicit, or encoded as the quantity sign the way
		// the legacy export did it (negative = sell).
		var side models.Side
		if raw := h.cell(row, "side"); raw != "" {
			side, err = models.ParseSide(raw)
			if err != nil {
				return nil, fmt.Errorf("row %d: %w", n+2, err)
			}
		} else if qty < 0 {
			side = models.SideSell
		} else {
			side = models.SideBuy
		}

		id := h.cell(row, "execution_id", "id")
		if id == "" {
			id = fmt.Sprintf("exec-%d", n+1)
		}

		executions = append(executions, models.Execution{
			ID:           id,
			InstrumentID: h.cell(row, "instrument_id", "isin"),
			Side:         side,
			Quantity:     math.Abs(qty),
			Price:        price,
			Timestamp:    ts,
			Venue:        h.cell(row, "venue"),
			Phase:        h.cell(row, "phase"),
		})
	}
	return executions, nil
}

func readInstrumentsCSV(path string) ([]models.Instrument, error) {
	h, rows, err := readCSVFile(path)
	if err != nil {
		return nil, err
	}

	instruments := make([]models.Instrument, 0, len(rows))
	for n, row := range rows {
		multiplier, err := requireFloat(h.cell(row, "multiplier"), "multiplier")
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", n+2, err)
		}
		tickSize, err := requireFloat(h.cell(row, "tick_size", "ticksize"), "tick_size")
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", n+2, err)
		}

		instruments = append(instruments, models.Instrument{
			ID:         h.cell(row, "instrument_id", "id", "isin"),
			Ticker:     h.cell(row, "ticker", "primary_ticker"),
			MIC:        h.cell(row, "mic", "primary_mic"),
			Currency:   h.cell(row, "currency"),
			Multiplier: multiplier,
			TickSize:   tickSize,
		})
	}
	return instruments, nil
}

func readObservationsCSV(path string) ([]models.MarketObservation, error) {
	h, rows, err := readCSVFile(path)
	if err != nil {
		return nil, err
	}

	observations := make([]models.MarketObservation, 0, len(rows))
	for n, row := range rows {
		ts, err := parseTimestamp(h.cell(row, "timestamp", "event_timestamp"))
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", n+2, err)
		}
		bid, err := optionalFloat(h.cell(row, "bid", "best_bid_price"), "bid")
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", n+2, err)
		}
		ask, err := optionalFloat(h.cell(row, "ask", "best_ask_price"), "ask")
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", n+2, err)
		}
		last, err := optionalFloat(h.cell(row, "last", "last_price"), "last")
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", n+2, err)
		}

		volume := 0.0
		if raw := h.cell(row, "volume"); raw != "" {
			volume, err = requireFloat(raw, "volume")
			if err != nil {
				return nil, fmt.Errorf("row %d: %w", n+2, err)
			}
		}

		observations = append(observations, models.MarketObservation{
			InstrumentID: h.cell(row, "instrument_id", "isin"),
			Timestamp:    ts,
			Bid:          bid,
			Ask:          ask,
			Last:         last,
			Volume:       volume,
			State:        h.cell(row, "state", "market_state"),
		})
	}
	return observations, nil
}
