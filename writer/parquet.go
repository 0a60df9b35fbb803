package writer

import (
	"bytes"
	"fmt"

	"github.com/xitongsys/parquet-go/parquet"
	"github.com/xitongsys/parquet-go/source"
	"github.com/xitongsys/parquet-go/writer"

	"tcaflow/models"
)

// aggregateParquetRow is the schema of the aggregate report table.
type aggregateParquetRow struct {
	Dimension           string  `parquet:"name=dimension, type=BYTE_ARRAY, convertedtype=UTF8"`
	Key                 string  `parquet:"name=key, type=BYTE_ARRAY, convertedtype=UTF8"`
	Count               int64   `parquet:"name=count, type=INT64"`
	TotalQuantity       float64 `parquet:"name=total_quantity, type=DOUBLE"`
	TotalNotional       float64 `parquet:"name=total_notional, type=DOUBLE"`
	WeightedSlippage    float64 `parquet:"name=weighted_slippage, type=DOUBLE"`
	WeightedSlippageBps float64 `parquet:"name=weighted_slippage_bps, type=DOUBLE"`
}

// detailParquetRow is the schema of the per-execution detail table.
type detailParquetRow struct {
	ExecutionID  string  `parquet:"name=execution_id, type=BYTE_ARRAY, convertedtype=UTF8"`
	InstrumentID string  `parquet:"name=instrument_id, type=BYTE_ARRAY, convertedtype=UTF8"`
	Ticker       string  `parquet:"name=ticker, type=BYTE_ARRAY, convertedtype=UTF8"`
	Side         string  `parquet:"name=side, type=BYTE_ARRAY, convertedtype=UTF8"`
	Quantity     float64 `parquet:"name=quantity, type=DOUBLE"`
	Price        float64 `parquet:"name=price, type=DOUBLE"`
	Benchmark    float64 `parquet:"name=benchmark, type=DOUBLE"`
	Slippage     float64 `parquet:"name=slippage, type=DOUBLE"`
	SlippageBps  float64 `parquet:"name=slippage_bps, type=DOUBLE"`
	Notional     float64 `parquet:"name=notional, type=DOUBLE"`
	Currency     string  `parquet:"name=currency, type=BYTE_ARRAY, convertedtype=UTF8"`
}

type skippedParquetRow struct {
	ExecutionID  string `parquet:"name=execution_id, type=BYTE_ARRAY, convertedtype=UTF8"`
	InstrumentID string `parquet:"name=instrument_id, type=BYTE_ARRAY, convertedtype=UTF8"`
	Reason       string `parquet:"name=reason, type=BYTE_ARRAY, convertedtype=UTF8"`
}

// memoryFileWriter implements ParquetFile for in-memory writing, so the same
// bytes can go to disk and to S3 without re-encoding.
type memoryFileWriter struct {
	buffer *bytes.Buffer
}

func newMemoryFileWriter() *memoryFileWriter {
	return &memoryFileWriter{buffer: &bytes.Buffer{}}
}

func (mfw *memoryFileWriter) Create(name string) (source.ParquetFile, error) { return mfw, nil }
func (mfw *memoryFileWriter) Open(name string) (source.ParquetFile, error)   { return mfw, nil }

func (mfw *memoryFileWriter) Seek(offset int64, whence int) (int64, error) {
	return int64(mfw.buffer.Len()), nil
}

func (mfw *memoryFileWriter) Read(b []byte) (int, error)  { return mfw.buffer.Read(b) }
func (mfw *memoryFileWriter) Write(b []byte) (int, error) { return mfw.buffer.Write(b) }
func (mfw *memoryFileWriter) Close() error                { return nil }
func (mfw *memoryFileWriter) Bytes() []byte               { return mfw.buffer.Bytes() }

func compressionCodec(compression string) parquet.CompressionCodec {
	switch compression {
	case "snappy":
		return parquet.CompressionCodec_SNAPPY
	case "gzip":
		return parquet.CompressionCodec_GZIP
	default:
		return parquet.CompressionCodec_UNCOMPRESSED
	}
}

// marshalParquet encodes a table into an in-memory parquet file. schema must
// be a pointer to the row struct; write pushes the rows through pw.
func marshalParquet(schema interface{}, compression string, write func(pw *writer.ParquetWriter) error) ([]byte, error) {
	fw := newMemoryFileWriter()

	pw, err := writer.NewParquetWriter(fw, schema, 4)
	if err != nil {
		return nil, fmt.Errorf("failed to create parquet writer: %w", err)
	}
	pw.CompressionType = compressionCodec(compression)

	if err := write(pw); err != nil {
		pw.WriteStop()
		return nil, err
	}
	if err := pw.WriteStop(); err != nil {
		return nil, fmt.Errorf("failed to finalize parquet writing: %w", err)
	}
	return fw.Bytes(), nil
}

func marshalAggregateParquet(rows []models.AggregateRow, compression string) ([]byte, error) {
	return marshalParquet(new(aggregateParquetRow), compression, func(pw *writer.ParquetWriter) error {
		for _, r := range rows {
			record := aggregateParquetRow{
				Dimension:           r.Dimension,
				Key:                 r.Key,
				Count:               r.Count,
				TotalQuantity:       r.TotalQuantity,
				TotalNotional:       r.TotalNotional,
				WeightedSlippage:    r.WeightedSlippage,
				WeightedSlippageBps: r.WeightedSlippageBps,
			}
			if err := pw.Write(record); err != nil {
				return fmt.Errorf("failed to write aggregate row: %w", err)
			}
		}
		return nil
	})
}

func marshalDetailParquet(records []models.MetricRecord, compression string) ([]byte, error) {
	return marshalParquet(new(detailParquetRow), compression, func(pw *writer.ParquetWriter) error {
		for _, r := range records {
			record := detailParquetRow{
				ExecutionID:  r.ExecutionID,
				InstrumentID: r.InstrumentID,
				Ticker:       r.Ticker,
				Side:         string(r.Side),
				Quantity:     r.Quantity,
				Price:        r.Price,
				Benchmark:    r.Benchmark,
				Slippage:     r.Slippage,
				SlippageBps:  r.SlippageBps,
				Notional:     r.Notional,
				Currency:     r.Currency,
			}
			if err := pw.Write(record); err != nil {
				return fmt.Errorf("failed to write detail row: %w", err)
			}
		}
		return nil
	})
}

func marshalSkippedParquet(skipped []models.SkippedExecution, compression string) ([]byte, error) {
	return marshalParquet(new(skippedParquetRow), compression, func(pw *writer.ParquetWriter) error {
		for _, s := range skipped {
			record := skippedParquetRow{
				ExecutionID:  s.ExecutionID,
				InstrumentID: s.InstrumentID,
				Reason:       s.Reason,
			}
			if err := pw.Write(record); err != nil {
				return fmt.Errorf("failed to write skipped row: %w", err)
			}
		}
		return nil
	})
}
