package pipeline

import (
	"context"
	"errors"
	"io"
	"math"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mapOpener map[string]string

func (m mapOpener) Download(_ context.Context, _ string, objectName string) (io.ReadCloser, error) {
	body, ok := m[objectName]
	if !ok {
		return nil, os.ErrNotExist
	}
	return io.NopCloser(strings.NewReader(body)), nil
}

func (m mapOpener) ListObjects(_ context.Context, _ string, prefix string, fn func(string) error) error {
	for name := range m {
		if strings.HasPrefix(name, prefix) {
			if err := fn(name); err != nil {
				return err
			}
		}
	}
	return nil
}

// TestMonthlyObjects checks the <directory>/<prefix>-<year>-<MM>.csv naming.
func TestMonthlyObjects(t *testing.T) {
	names := MonthlyObjects("onemin-WS_1-2017", "onemin-WS_1", 2017, []int{1, 2, 12})
	assert.Equal(t, []string{
		"onemin-WS_1-2017/onemin-WS_1-2017-01.csv",
		"onemin-WS_1-2017/onemin-WS_1-2017-02.csv",
		"onemin-WS_1-2017/onemin-WS_1-2017-12.csv",
	}, names)
}

// TestReadTable_KeepsRequestedColumns checks column selection, NA tokens and naive timestamps.
func TestReadTable_KeepsRequestedColumns(t *testing.T) {
	body := "TIMESTAMP,A,B,Unused\n" +
		"2017-01-01 00:00:00,1.5,NaN,x\n" +
		"2017-01-01 00:01:00,,2,y\n" +
		"2017-01-01 00:02,#N/A,null,z\n"

	tbl, err := ReadTable(strings.NewReader(body), "f.csv", "TIMESTAMP", []string{"B", "A"})
	require.NoError(t, err)

	assert.Equal(t, []string{"B", "A"}, tbl.Columns)
	require.Equal(t, 3, tbl.Len())
	assert.Equal(t, time.Date(2017, 1, 1, 0, 2, 0, 0, time.UTC), tbl.Index[2])

	b, _ := tbl.Column("B")
	a, _ := tbl.Column("A")
	assert.True(t, math.IsNaN(b[0]))
	assert.Equal(t, 2.0, b[1])
	assert.True(t, math.IsNaN(b[2]))
	assert.Equal(t, 1.5, a[0])
	assert.True(t, math.IsNaN(a[1]))
	assert.True(t, math.IsNaN(a[2]))
}

// TestReadTable_MissingTokens reads every default missing-value token as NaN.
func TestReadTable_MissingTokens(t *testing.T) {
	tokens := []string{
		"#N/A N/A", "#NA", "-1.#IND", "-1.#QNAN", "-NaN", "-nan", "1.#IND", "1.#QNAN",
		"<NA>", "N/A", "NULL", "None", "n/a", " NA ",
	}
	for _, tok := range tokens {
		tbl, err := ReadTable(strings.NewReader("TIMESTAMP,a\n2017-01-01 00:00:00,"+tok+"\n"), "x", "TIMESTAMP", []string{"a"})
		require.NoError(t, err, tok)
		a, _ := tbl.Column("a")
		assert.True(t, math.IsNaN(a[0]), tok)
	}

	_, err := ReadTable(strings.NewReader("TIMESTAMP,a\n2017-01-01 00:00:00,none\n"), "x", "TIMESTAMP", []string{"a"})
	assert.True(t, errors.Is(err, ErrParse))
}

// TestMissingObjects lists the directory once and reports absent names in order.
func TestMissingObjects(t *testing.T) {
	store := mapOpener{
		"d/p-2017-01.csv":     "",
		"d/p-2017-03.csv":     "",
		"other/p-2017-02.csv": "",
	}
	objects := MonthlyObjects("d", "p", 2017, []int{1, 2, 3, 4})
	missing, err := MissingObjects(context.Background(), store, "d", objects)
	require.NoError(t, err)
	assert.Equal(t, []string{"d/p-2017-02.csv", "d/p-2017-04.csv"}, missing)

	missing, err = MissingObjects(context.Background(), store, "./d/", objects[:1])
	require.NoError(t, err)
	assert.Empty(t, missing)

	missing, err = MissingObjects(context.Background(), mapOpener{"p-2017-01.csv": ""}, "", MonthlyObjects("", "p", 2017, []int{1}))
	require.NoError(t, err)
	assert.Empty(t, missing)
}

// TestReadTable_MissingColumn checks that the error names the column and matches ErrColumnNotFound.
func TestReadTable_MissingColumn(t *testing.T) {
	_, err := ReadTable(strings.NewReader("TIMESTAMP,A\n"), "f.csv", "TIMESTAMP", []string{"A", "B"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrColumnNotFound))
	assert.Contains(t, err.Error(), `"B"`)
	assert.Contains(t, err.Error(), "f.csv")

	_, err = ReadTable(strings.NewReader("Time,A\n"), "f.csv", "TIMESTAMP", []string{"A"})
	assert.True(t, errors.Is(err, ErrColumnNotFound))
}

// TestReadTable_ParseErrors checks malformed cells and timestamps.
func TestReadTable_ParseErrors(t *testing.T) {
	_, err := ReadTable(strings.NewReader("TIMESTAMP,A\n2017-01-01 00:00:00,abc\n"), "f.csv", "TIMESTAMP", []string{"A"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrParse))
	assert.Contains(t, err.Error(), "line 2")

	_, err = ReadTable(strings.NewReader("TIMESTAMP,A\nyesterday,1\n"), "f.csv", "TIMESTAMP", []string{"A"})
	assert.True(t, errors.Is(err, ErrParse))

	_, err = ReadTable(strings.NewReader(""), "f.csv", "TIMESTAMP", []string{"A"})
	assert.True(t, errors.Is(err, ErrParse))
}

// TestParseTimestamp_Layouts checks every accepted layout.
func TestParseTimestamp_Layouts(t *testing.T) {
	want := time.Date(2017, 3, 4, 5, 6, 0, 0, time.UTC)
	for _, s := range []string{"2017-03-04 05:06:00", "2017-03-04 05:06", "2017-03-04T05:06:00", "3/4/2017 05:06"} {
		got, err := ParseTimestamp(s)
		require.NoError(t, err, s)
		assert.True(t, want.Equal(got), s)
	}
}

// TestLoader_ConcatenatesInFileOrder checks that rows follow file order, not time order.
func TestLoader_ConcatenatesInFileOrder(t *testing.T) {
	opener := mapOpener{
		"d/p-2017-01.csv": "TIMESTAMP,A\n2017-01-31 23:59:00,1\n",
		"d/p-2017-02.csv": "TIMESTAMP,A\n2017-01-01 00:00:00,2\n2017-02-01 00:00:00,3\n",
	}
	loader := NewLoader(opener, "TIMESTAMP")

	tbl, err := loader.Load(context.Background(), MonthlyObjects("d", "p", 2017, []int{1, 2}), []string{"A"})
	require.NoError(t, err)

	a, _ := tbl.Column("A")
	assert.Equal(t, []float64{1, 2, 3}, a)
	assert.Equal(t, 1, tbl.Index[1].Day())
}

// TestLoader_MissingFileFails checks that the load stops at the first missing file.
func TestLoader_MissingFileFails(t *testing.T) {
	opener := mapOpener{"d/p-2017-01.csv": "TIMESTAMP,A\n2017-01-01 00:00:00,1\n"}
	loader := NewLoader(opener, "TIMESTAMP")

	_, err := loader.Load(context.Background(), MonthlyObjects("d", "p", 2017, []int{1, 2}), []string{"A"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, os.ErrNotExist))
	assert.Contains(t, err.Error(), "d/p-2017-02.csv")
}

// TestLoader_Cancelled checks that a cancelled context stops the load.
func TestLoader_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewLoader(mapOpener{}, "TIMESTAMP").Load(ctx, []string{"x.csv"}, []string{"A"})
	assert.ErrorIs(t, err, context.Canceled)
}

// TestConvertTimezone checks that naive UTC wall clock is shifted to UTC-5.
func TestConvertTimezone(t *testing.T) {
	utc := time.UTC
	gmt5, err := time.LoadLocation("Etc/GMT+5")
	require.NoError(t, err)

	tbl := NewTable("A")
	require.NoError(t, tbl.AppendRow(time.Date(2017, 1, 1, 3, 30, 0, 0, time.UTC), 1))

	converted := ConvertTimezone(tbl, utc, gmt5)
	got := converted.Index[0]
	assert.Equal(t, 22, got.Hour())
	assert.Equal(t, 31, got.Day())
	assert.Equal(t, "2016-12-31 22:30:00-05:00", got.Format("2006-01-02 15:04:05-07:00"))
	assert.Equal(t, time.Date(2017, 1, 1, 3, 30, 0, 0, time.UTC), tbl.Index[0], "input table is not modified")
}
