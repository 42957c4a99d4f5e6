// Package export writes the hourly table to the optional sinks that run after
// the delimited files: parquet, xlsx, a PDF run report and a relational table.
package export

import (
	"context"
	"io"

	"github.com/tigerroll/nisthourly/internal/pipeline"
)

// HourlyObservation is one hourly mean of one variable, the long format shared
// by the parquet file and the hourly_observation table.
type HourlyObservation struct {
	RunID     string  `gorm:"column:run_id;primaryKey" parquet:"name=run_id,type=BYTE_ARRAY,convertedtype=UTF8"`
	HourStart int64   `gorm:"column:hour_start;primaryKey" parquet:"name=hour_start,type=INT64,convertedtype=TIMESTAMP_MILLIS"`
	Variable  string  `gorm:"column:variable;primaryKey" parquet:"name=variable,type=BYTE_ARRAY,convertedtype=UTF8"`
	Value     float64 `gorm:"column:value" parquet:"name=value,type=DOUBLE"`
}

// TableName returns the table name used by gorm.
func (HourlyObservation) TableName() string {
	return "hourly_observation"
}

// ToObservations flattens t row by row, one observation per column.
// HourStart is in Unix milliseconds.
func ToObservations(runID string, t *pipeline.Table) []HourlyObservation {
	out := make([]HourlyObservation, 0, t.Len()*len(t.Columns))
	for i, ts := range t.Index {
		ms := ts.UnixMilli()
		for c, name := range t.Columns {
			out = append(out, HourlyObservation{
				RunID:     runID,
				HourStart: ms,
				Variable:  name,
				Value:     t.Value(i, c),
			})
		}
	}
	return out
}

// Input is what every exporter receives.
type Input struct {
	RunID   string
	Hourly  *pipeline.Table
	Summary Summary
}

// Uploader stores an object. storage.Executor satisfies it.
type Uploader interface {
	Upload(ctx context.Context, bucket, objectName string, data io.Reader, contentType string) error
}

// Exporter writes Input to one sink and returns the number of records written.
type Exporter interface {
	Name() string
	Export(ctx context.Context, in Input) (int, error)
}
