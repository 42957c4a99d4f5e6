package pipeline

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"unicode/utf8"
)

// OutputFormat describes a delimited output file.
type OutputFormat struct {
	Delimiter  rune
	IndexName  string
	TimeLayout string
	Columns    []string
}

// NewOutputFormat builds an OutputFormat from a one-character delimiter string.
func NewOutputFormat(delimiter, indexName, timeLayout string, columns []string) (OutputFormat, error) {
	r, size := utf8.DecodeRuneInString(delimiter)
	if r == utf8.RuneError || size != len(delimiter) {
		return OutputFormat{}, fmt.Errorf("delimiter must be a single character, got %q", delimiter)
	}
	return OutputFormat{Delimiter: r, IndexName: indexName, TimeLayout: timeLayout, Columns: columns}, nil
}

// WriteDelimited writes a header row and one line per row of t, limited to
// format.Columns. Lines end with "\n".
func WriteDelimited(w io.Writer, t *Table, format OutputFormat) error {
	selected, err := t.Select(format.Columns...)
	if err != nil {
		return err
	}

	cw := csv.NewWriter(w)
	cw.Comma = format.Delimiter
	cw.UseCRLF = false

	record := make([]string, len(format.Columns)+1)
	record[0] = format.IndexName
	copy(record[1:], format.Columns)
	if err := cw.Write(record); err != nil {
		return err
	}
	for i, ts := range selected.Index {
		record[0] = ts.Format(format.TimeLayout)
		for c := range selected.Columns {
			record[c+1] = FormatFloat(selected.data[c][i])
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// EncodeDelimited returns the bytes WriteDelimited would write.
func EncodeDelimited(t *Table, format OutputFormat) ([]byte, error) {
	var buf bytes.Buffer
	if err := WriteDelimited(&buf, t, format); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
