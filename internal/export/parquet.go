package export

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/xitongsys/parquet-go/parquet"
	"github.com/xitongsys/parquet-go/writer"

	"github.com/tigerroll/nisthourly/internal/support/logger"
)

var _ Exporter = (*ParquetExporter)(nil)

// ParquetExporter uploads the hourly table as SNAPPY compressed parquet in long format.
type ParquetExporter struct {
	conn   Uploader
	object string
}

// NewParquetExporter creates a ParquetExporter writing object through conn.
func NewParquetExporter(conn Uploader, object string) *ParquetExporter {
	return &ParquetExporter{conn: conn, object: object}
}

// Name returns "parquet".
func (e *ParquetExporter) Name() string { return "parquet" }

// Export encodes and uploads the observations of in.Hourly.
func (e *ParquetExporter) Export(ctx context.Context, in Input) (int, error) {
	rows := ToObservations(in.RunID, in.Hourly)
	data, err := EncodeParquet(rows)
	if err != nil {
		return 0, err
	}
	if err := e.conn.Upload(ctx, "", e.object, bytes.NewReader(data), "application/x-parquet"); err != nil {
		return 0, fmt.Errorf("failed to upload parquet file '%s': %w", e.object, err)
	}
	logger.Infof("Uploaded %d observations to '%s' (%d bytes).", len(rows), e.object, len(data))
	return len(rows), nil
}

// EncodeParquet returns rows as a parquet file.
func EncodeParquet(rows []HourlyObservation) ([]byte, error) {
	buf := new(bytes.Buffer)
	pw, err := writer.NewParquetWriterFromWriter(buf, new(HourlyObservation), 1)
	if err != nil {
		return nil, fmt.Errorf("failed to create parquet writer: %w", err)
	}
	pw.CompressionType = parquet.CompressionCodec_SNAPPY

	for _, row := range rows {
		if err := pw.Write(row); err != nil {
			return nil, fmt.Errorf("failed to write parquet record: %w", err)
		}
	}
	if err := stopParquetWriter(pw); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// stopParquetWriter flushes pw. WriteStop can panic on internal errors, so
// panics are turned into errors.
func stopParquetWriter(pw *writer.ParquetWriter) (err error) {
	defer func() {
		if r := recover(); r != nil {
			if e, ok := r.(error); ok {
				err = e
			} else {
				err = fmt.Errorf("panic value: %v", r)
			}
			if strings.Contains(err.Error(), "nil pointer dereference") {
				err = fmt.Errorf("internal parquet writer error: %w", err)
			}
			logger.Errorf("Caught panic during parquet WriteStop: %v", err)
		}
	}()
	if stopErr := pw.WriteStop(); stopErr != nil {
		return fmt.Errorf("failed to stop parquet writer: %w", stopErr)
	}
	return nil
}
