package pipeline

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"path"
	"strconv"
	"strings"
	"time"

	"github.com/tigerroll/nisthourly/internal/support/logger"
)

// TimestampLayouts are tried in order for every index cell.
var TimestampLayouts = []string{
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02T15:04:05",
	"1/2/2006 15:04",
}

// missingTokens are the cells read as NaN, the same set pandas treats as missing by default.
var missingTokens = map[string]struct{}{
	"":         {},
	"#N/A":     {},
	"#N/A N/A": {},
	"#NA":      {},
	"-1.#IND":  {},
	"-1.#QNAN": {},
	"-NaN":     {},
	"-nan":     {},
	"1.#IND":   {},
	"1.#QNAN":  {},
	"<NA>":     {},
	"N/A":      {},
	"NA":       {},
	"NULL":     {},
	"NaN":      {},
	"None":     {},
	"n/a":      {},
	"nan":      {},
	"null":     {},
}

// ObjectOpener opens a stored object for reading. storage.Executor satisfies it.
type ObjectOpener interface {
	Download(ctx context.Context, bucket, objectName string) (io.ReadCloser, error)
}

// MonthlyObjects returns the object names <directory>/<prefix>-<year>-<MM>.csv in month order.
func MonthlyObjects(directory, prefix string, year int, months []int) []string {
	names := make([]string, 0, len(months))
	for _, m := range months {
		names = append(names, path.Join(directory, fmt.Sprintf("%s-%d-%02d.csv", prefix, year, m)))
	}
	return names
}

// ObjectLister enumerates stored objects by name prefix. storage.Executor satisfies it.
type ObjectLister interface {
	ListObjects(ctx context.Context, bucket, prefix string, fn func(objectName string) error) error
}

// MissingObjects returns the names of objectNames that are not stored below
// directory, in their original order. One listing covers the whole directory.
func MissingObjects(ctx context.Context, lister ObjectLister, directory string, objectNames []string) ([]string, error) {
	prefix := path.Clean(directory)
	if prefix == "." {
		prefix = ""
	} else {
		prefix += "/"
	}

	present := make(map[string]struct{})
	if err := lister.ListObjects(ctx, "", prefix, func(name string) error {
		present[name] = struct{}{}
		return nil
	}); err != nil {
		return nil, err
	}

	var missing []string
	for _, name := range objectNames {
		if _, ok := present[name]; !ok {
			missing = append(missing, name)
		}
	}
	return missing, nil
}

// Loader reads monthly delimited files into one table.
type Loader struct {
	opener          ObjectOpener
	timestampColumn string
}

// NewLoader creates a Loader reading through opener. Index cells are read from timestampColumn.
func NewLoader(opener ObjectOpener, timestampColumn string) *Loader {
	return &Loader{opener: opener, timestampColumn: timestampColumn}
}

// Load reads objectNames in order and concatenates them. Only columns are kept.
// The first missing or malformed file aborts the load.
func (l *Loader) Load(ctx context.Context, objectNames []string, columns []string) (*Table, error) {
	result := NewTable(columns...)
	for _, name := range objectNames {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}
		t, err := l.LoadFile(ctx, name, columns)
		if err != nil {
			return nil, err
		}
		if err := result.Concat(t); err != nil {
			return nil, fmt.Errorf("%s: %w", name, err)
		}
		logger.Debugf("Loaded %d rows from %s.", t.Len(), name)
	}
	return result, nil
}

// LoadFile reads a single object.
func (l *Loader) LoadFile(ctx context.Context, objectName string, columns []string) (*Table, error) {
	rc, err := l.opener.Download(ctx, "", objectName)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", objectName, err)
	}
	defer rc.Close()
	return ReadTable(rc, objectName, l.timestampColumn, columns)
}

// ReadTable parses delimited text with a header row. name only labels errors.
// Timestamps are naive wall-clock values returned in UTC.
func ReadTable(r io.Reader, name, timestampColumn string, columns []string) (*Table, error) {
	cr := csv.NewReader(r)
	cr.ReuseRecord = true
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("%w: %s: reading header: %v", ErrParse, name, err)
	}
	positions := make(map[string]int, len(header))
	for i, h := range header {
		positions[strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))] = i
	}
	tsPos, ok := positions[timestampColumn]
	if !ok {
		return nil, fmt.Errorf("%w: %q in %s", ErrColumnNotFound, timestampColumn, name)
	}
	colPos := make([]int, len(columns))
	for i, c := range columns {
		p, ok := positions[c]
		if !ok {
			return nil, fmt.Errorf("%w: %q in %s", ErrColumnNotFound, c, name)
		}
		colPos[i] = p
	}

	t := NewTable(columns...)
	values := make([]float64, len(columns))
	lineNum := 1
	for {
		lineNum++
		record, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %s line %d: %v", ErrParse, name, lineNum, err)
		}
		ts, err := ParseTimestamp(record[tsPos])
		if err != nil {
			return nil, fmt.Errorf("%s line %d: %w", name, lineNum, err)
		}
		for i, p := range colPos {
			v, err := parseCell(record[p])
			if err != nil {
				return nil, fmt.Errorf("%w: %s line %d column %q: %v", ErrParse, name, lineNum, columns[i], err)
			}
			values[i] = v
		}
		if err := t.AppendRow(ts, values...); err != nil {
			return nil, err
		}
	}
	return t, nil
}

// ParseTimestamp parses s with the first matching layout of TimestampLayouts.
func ParseTimestamp(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range TimestampLayouts {
		if ts, err := time.Parse(layout, s); err == nil {
			return ts, nil
		}
	}
	return time.Time{}, fmt.Errorf("%w: unrecognised timestamp %q", ErrParse, s)
}

func parseCell(s string) (float64, error) {
	s = strings.TrimSpace(s)
	if _, ok := missingTokens[s]; ok {
		return math.NaN(), nil
	}
	return strconv.ParseFloat(s, 64)
}
