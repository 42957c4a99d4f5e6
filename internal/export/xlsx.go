package export

import (
	"bytes"
	"context"
	"fmt"

	"github.com/xuri/excelize/v2"

	"github.com/tigerroll/nisthourly/internal/pipeline"
	"github.com/tigerroll/nisthourly/internal/support/logger"
)

const (
	hourlySheet  = "Hourly"
	summarySheet = "Summary"
)

var _ Exporter = (*XLSXExporter)(nil)

// XLSXExporter uploads the hourly table as a workbook with an hourly and a summary sheet.
type XLSXExporter struct {
	conn       Uploader
	object     string
	timeLayout string
}

// NewXLSXExporter creates an XLSXExporter. Index cells are rendered with timeLayout.
func NewXLSXExporter(conn Uploader, object, timeLayout string) *XLSXExporter {
	return &XLSXExporter{conn: conn, object: object, timeLayout: timeLayout}
}

// Name returns "xlsx".
func (e *XLSXExporter) Name() string { return "xlsx" }

// Export encodes and uploads the workbook. The count is the number of hourly rows.
func (e *XLSXExporter) Export(ctx context.Context, in Input) (int, error) {
	data, err := EncodeXLSX(in.Hourly, in.Summary, e.timeLayout)
	if err != nil {
		return 0, err
	}
	if err := e.conn.Upload(ctx, "", e.object, bytes.NewReader(data),
		"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"); err != nil {
		return 0, fmt.Errorf("failed to upload workbook '%s': %w", e.object, err)
	}
	logger.Infof("Uploaded workbook '%s' with %d hourly rows.", e.object, in.Hourly.Len())
	return in.Hourly.Len(), nil
}

// EncodeXLSX renders t and summary as a workbook.
func EncodeXLSX(t *pipeline.Table, summary Summary, timeLayout string) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", hourlySheet); err != nil {
		return nil, err
	}
	if _, err := f.NewSheet(summarySheet); err != nil {
		return nil, err
	}

	header := make([]interface{}, 0, len(t.Columns)+1)
	header = append(header, "TIMESTAMP")
	for _, c := range t.Columns {
		header = append(header, c)
	}
	if err := f.SetSheetRow(hourlySheet, "A1", &header); err != nil {
		return nil, err
	}
	for i, ts := range t.Index {
		row := make([]interface{}, 0, len(t.Columns)+1)
		row = append(row, ts.Format(timeLayout))
		for c := range t.Columns {
			row = append(row, t.Value(i, c))
		}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return nil, err
		}
		if err := f.SetSheetRow(hourlySheet, cell, &row); err != nil {
			return nil, err
		}
	}

	_ = f.SetCellValue(summarySheet, "A1", "Job")
	_ = f.SetCellValue(summarySheet, "B1", summary.JobName)
	_ = f.SetCellValue(summarySheet, "A2", "Run")
	_ = f.SetCellValue(summarySheet, "B2", summary.RunID)
	for i, c := range summary.AllCounts() {
		_ = f.SetCellValue(summarySheet, fmt.Sprintf("A%d", i+4), c.Label)
		_ = f.SetCellValue(summarySheet, fmt.Sprintf("B%d", i+4), c.Value)
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
