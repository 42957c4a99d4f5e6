package export

import (
	"bytes"
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/jung-kurt/gofpdf"

	"github.com/tigerroll/nisthourly/internal/pipeline"
	"github.com/tigerroll/nisthourly/internal/support/logger"
)

// Count is a labelled figure of the run report.
type Count struct {
	Label string
	Value int
}

// Summary describes a run for the workbook summary sheet and the PDF report.
type Summary struct {
	JobName     string
	RunID       string
	GeneratedAt time.Time
	// Counts are the row counts of the pipeline stages, in stage order.
	Counts []Count
	// CriterionCounts is the number of rows flagged per filter criterion.
	CriterionCounts map[string]int
}

// AllCounts returns Counts followed by one "filtered: <criterion>" entry per criterion, sorted.
func (s Summary) AllCounts() []Count {
	out := make([]Count, 0, len(s.Counts)+len(s.CriterionCounts))
	out = append(out, s.Counts...)
	names := make([]string, 0, len(s.CriterionCounts))
	for name := range s.CriterionCounts {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		out = append(out, Count{Label: "filtered: " + name, Value: s.CriterionCounts[name]})
	}
	return out
}

var _ Exporter = (*PDFReporter)(nil)

// PDFReporter uploads a one-page run report with the stage counts and monthly means.
type PDFReporter struct {
	conn   Uploader
	object string
}

// NewPDFReporter creates a PDFReporter writing object through conn.
func NewPDFReporter(conn Uploader, object string) *PDFReporter {
	return &PDFReporter{conn: conn, object: object}
}

// Name returns "report".
func (r *PDFReporter) Name() string { return "report" }

// Export renders and uploads the report. The count is the number of monthly rows.
func (r *PDFReporter) Export(ctx context.Context, in Input) (int, error) {
	monthly := pipeline.Resample(in.Hourly, pipeline.MonthStart, pipeline.PolicySkipMissing)
	data, err := EncodeReport(in.Summary, monthly)
	if err != nil {
		return 0, err
	}
	if err := r.conn.Upload(ctx, "", r.object, bytes.NewReader(data), "application/pdf"); err != nil {
		return 0, fmt.Errorf("failed to upload report '%s': %w", r.object, err)
	}
	logger.Infof("Uploaded run report '%s'.", r.object)
	return monthly.Len(), nil
}

// EncodeReport renders summary and the monthly means table as PDF.
// Monthly rows are printed as table rows, one column per variable.
func EncodeReport(summary Summary, monthly *pipeline.Table) ([]byte, error) {
	pdf := gofpdf.New("L", "mm", "A4", "")
	pdf.SetFont("Arial", "B", 14)
	pdf.AddPage()

	pdf.Cell(0, 8, "NIST hourly run report")
	pdf.Ln(10)
	pdf.SetFont("Arial", "", 10)
	pdf.Cell(0, 6, fmt.Sprintf("Job: %s", summary.JobName))
	pdf.Ln(5)
	pdf.Cell(0, 6, fmt.Sprintf("Run: %s", summary.RunID))
	pdf.Ln(5)
	pdf.Cell(0, 6, fmt.Sprintf("Generated: %s", summary.GeneratedAt.Format(time.RFC3339)))
	pdf.Ln(8)

	pdf.SetFont("Arial", "B", 10)
	pdf.CellFormat(70, 6, "Stage", "1", 0, "L", false, 0, "")
	pdf.CellFormat(40, 6, "Rows", "1", 0, "R", false, 0, "")
	pdf.Ln(-1)
	pdf.SetFont("Arial", "", 10)
	for _, c := range summary.AllCounts() {
		pdf.CellFormat(70, 6, c.Label, "1", 0, "L", false, 0, "")
		pdf.CellFormat(40, 6, fmt.Sprintf("%d", c.Value), "1", 0, "R", false, 0, "")
		pdf.Ln(-1)
	}
	pdf.Ln(6)

	if monthly != nil && monthly.Len() > 0 {
		width := 260.0 / float64(len(monthly.Columns)+1)
		pdf.SetFont("Arial", "B", 8)
		pdf.CellFormat(width, 6, "Month", "1", 0, "C", false, 0, "")
		for _, c := range monthly.Columns {
			pdf.CellFormat(width, 6, c, "1", 0, "C", false, 0, "")
		}
		pdf.Ln(-1)
		pdf.SetFont("Arial", "", 8)
		for i, ts := range monthly.Index {
			pdf.CellFormat(width, 6, ts.Format("2006-01"), "1", 0, "C", false, 0, "")
			for c := range monthly.Columns {
				pdf.CellFormat(width, 6, fmt.Sprintf("%.2f", monthly.Value(i, c)), "1", 0, "R", false, 0, "")
			}
			pdf.Ln(-1)
		}
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
