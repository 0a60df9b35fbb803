package reader

import (
	"fmt"
	"math"
	"time"

	"github.com/xitongsys/parquet-go-source/local"
	"github.com/xitongsys/parquet-go/reader"

	"tcaflow/models"
)

const parquetReadParallel = 4

// executionRow mirrors the executions parquet schema. Timestamps are epoch
// milliseconds; side may be absent in which case the quantity sign carries it.
type executionRow struct {
	ExecutionID  string  `parquet:"name=execution_id, type=BYTE_ARRAY, convertedtype=UTF8"`
	InstrumentID string  `parquet:"name=instrument_id, type=BYTE_ARRAY, convertedtype=UTF8"`
	Side         *string `parquet:"name=side, type=BYTE_ARRAY, convertedtype=UTF8, repetitiontype=OPTIONAL"`
	Quantity     float64 `parquet:"name=quantity, type=DOUBLE"`
	Price        float64 `parquet:"name=price, type=DOUBLE"`
	Timestamp    int64   `parquet:"name=timestamp, type=INT64, convertedtype=TIMESTAMP_MILLIS"`
	Venue        *string `parquet:"name=venue, type=BYTE_ARRAY, convertedtype=UTF8, repetitiontype=OPTIONAL"`
	Phase        *string `parquet:"name=phase, type=BYTE_ARRAY, convertedtype=UTF8, repetitiontype=OPTIONAL"`
}

type instrumentRow struct {
	InstrumentID string  `parquet:"name=instrument_id, type=BYTE_ARRAY, convertedtype=UTF8"`
	Ticker       *string `parquet:"name=ticker, type=BYTE_ARRAY, convertedtype=UTF8, repetitiontype=OPTIONAL"`
	MIC          *string `parquet:"name=mic, type=BYTE_ARRAY, convertedtype=UTF8, repetitiontype=OPTIONAL"`
	Currency     string  `parquet:"name=currency, type=BYTE_ARRAY, convertedtype=UTF8"`
	Multiplier   float64 `parquet:"name=multiplier, type=DOUBLE"`
	TickSize     float64 `parquet:"name=tick_size, type=DOUBLE"`
}

type observationRow struct {
	InstrumentID string   `parquet:"name=instrument_id, type=BYTE_ARRAY, convertedtype=UTF8"`
	Timestamp    int64    `parquet:"name=timestamp, type=INT64, convertedtype=TIMESTAMP_MILLIS"`
	Bid          *float64 `parquet:"name=bid, type=DOUBLE, repetitiontype=OPTIONAL"`
	Ask          *float64 `parquet:"name=ask, type=DOUBLE, repetitiontype=OPTIONAL"`
	Last         *float64 `parquet:"name=last, type=DOUBLE, repetitiontype=OPTIONAL"`
	Volume       *float64 `parquet:"name=volume, type=DOUBLE, repetitiontype=OPTIONAL"`
	State        *string  `parquet:"name=state, type=BYTE_ARRAY, convertedtype=UTF8, repetitiontype=OPTIONAL"`
}

// readParquet opens path and reads every row group into rows, which must be a
// pointer to a slice of the schema struct.
func readParquet(path string, schema interface{}, read func(pr *reader.ParquetReader, num int) error) error {
	fr, err := local.NewLocalFileReader(path)
	if err != nil {
		return fmt.Errorf("opening parquet file: %w", err)
	}
	defer fr.Close()

	pr, err := reader.NewParquetReader(fr, schema, parquetReadParallel)
	if err != nil {
		return fmt.Errorf("reading parquet schema: %w", err)
	}
	defer pr.ReadStop()

	return read(pr, int(pr.GetNumRows()))
}

func epochMillis(ms int64) time.Time {
	return time.UnixMilli(ms).UTC()
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func readExecutionsParquet(path string) ([]models.Execution, error) {
	var executions []models.Execution
	err := readParquet(path, new(executionRow), func(pr *reader.ParquetReader, num int) error {
		rows := make([]executionRow, num)
		if err := pr.Read(&rows); err != nil {
			return fmt.Errorf("reading execution rows: %w", err)
		}
		executions = make([]models.Execution, 0, len(rows))
		for n, row := range rows {
			var side models.Side
			if raw := deref(row.Side); raw != "" {
				var err error
				side, err = models.ParseSide(raw)
				if err != nil {
					return fmt.Errorf("row %d: %w", n, err)
				}
			} else if row.Quantity < 0 {
				side = models.SideSell
			} else {
				side = models.SideBuy
			}

			id := row.ExecutionID
			if id == "" {
				id = fmt.Sprintf("exec-%d", n+1)
			}

			executions = append(executions, models.Execution{
				ID:           id,
				InstrumentID: row.InstrumentID,
				Side:         side,
				Quantity:     math.Abs(row.Quantity),
				Price:        row.Price,
				Timestamp:    epochMillis(row.Timestamp),
				Venue:        deref(row.Venue),
				Phase:        deref(row.Phase),
			})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return executions, nil
}

func readInstrumentsParquet(path string) ([]models.Instrument, error) {
	var instruments []models.Instrument
	err := readParquet(path, new(instrumentRow), func(pr *reader.ParquetReader, num int) error {
		rows := make([]instrumentRow, num)
		if err := pr.Read(&rows); err != nil {
			return fmt.Errorf("reading instrument rows: %w", err)
		}
		instruments = make([]models.Instrument, 0, len(rows))
		for _, row := range rows {
			instruments = append(instruments, models.Instrument{
				ID:         row.InstrumentID,
				Ticker:     deref(row.Ticker),
				MIC:        deref(row.MIC),
				Currency:   row.Currency,
				Multiplier: row.Multiplier,
				TickSize:   row.TickSize,
			})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return instruments, nil
}

func readObservationsParquet(path string) ([]models.MarketObservation, error) {
	var observations []models.MarketObservation
	err := readParquet(path, new(observationRow), func(pr *reader.ParquetReader, num int) error {
		rows := make([]observationRow, num)
		if err := pr.Read(&rows); err != nil {
			return fmt.Errorf("reading observation rows: %w", err)
		}
		observations = make([]models.MarketObservation, 0, len(rows))
		for _, row := range rows {
			volume := 0.0
			if row.Volume != nil {
				volume = *row.Volume
			}
			observations = append(observations, models.MarketObservation{
				InstrumentID: row.InstrumentID,
				Timestamp:    epochMillis(row.Timestamp),
				Bid:          row.Bid,
				Ask:          row.Ask,
				Last:         row.Last,
				Volume:       volume,
				State:        deref(row.State),
			})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return observations, nil
}
