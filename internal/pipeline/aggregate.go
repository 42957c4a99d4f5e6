package pipeline

import (
	"fmt"
	"math"
	"sort"
	"time"
)

// MissingPolicy decides how NaN samples affect a bucket mean.
type MissingPolicy string

const (
	// PolicyDropHour makes a bucket NaN when any of its samples is NaN.
	PolicyDropHour MissingPolicy = "drop_hour"
	// PolicySkipMissing averages the samples that are present.
	PolicySkipMissing MissingPolicy = "skip_missing"
)

// ParseMissingPolicy validates s.
func ParseMissingPolicy(s string) (MissingPolicy, error) {
	switch p := MissingPolicy(s); p {
	case PolicyDropHour, PolicySkipMissing:
		return p, nil
	default:
		return "", fmt.Errorf("unknown missing policy %q", s)
	}
}

// Merge outer-joins left and right on the instant of their index. A key found
// on one side only gets NaN for the other side's columns. Repeated keys pair
// by occurrence. The result is sorted by instant; ties keep left-then-right order.
func Merge(left, right *Table) (*Table, error) {
	columns := make([]string, 0, len(left.Columns)+len(right.Columns))
	columns = append(columns, left.Columns...)
	for _, c := range right.Columns {
		if left.ColumnIndex(c) >= 0 {
			return nil, fmt.Errorf("cannot merge: column %q exists on both sides", c)
		}
		columns = append(columns, c)
	}

	rightRows := make(map[int64][]int, right.Len())
	for i, ts := range right.Index {
		k := instantKey(ts)
		rightRows[k] = append(rightRows[k], i)
	}
	paired := make([]bool, right.Len())
	seen := make(map[int64]int, left.Len())

	type mergedRow struct {
		ts    time.Time
		left  int
		right int
	}
	rows := make([]mergedRow, 0, left.Len()+right.Len())
	for i, ts := range left.Index {
		k := instantKey(ts)
		n := seen[k]
		seen[k] = n + 1
		r := -1
		if candidates := rightRows[k]; n < len(candidates) {
			r = candidates[n]
			paired[r] = true
		}
		rows = append(rows, mergedRow{ts: ts, left: i, right: r})
	}
	for i, ts := range right.Index {
		if !paired[i] {
			rows = append(rows, mergedRow{ts: ts, left: -1, right: i})
		}
	}
	sort.SliceStable(rows, func(a, b int) bool {
		return rows[a].ts.Before(rows[b].ts)
	})

	out := NewTable(columns...)
	values := make([]float64, len(columns))
	nl := len(left.Columns)
	for _, row := range rows {
		for c := range left.Columns {
			values[c] = math.NaN()
			if row.left >= 0 {
				values[c] = left.data[c][row.left]
			}
		}
		for c := range right.Columns {
			values[nl+c] = math.NaN()
			if row.right >= 0 {
				values[nl+c] = right.data[c][row.right]
			}
		}
		if err := out.AppendRow(row.ts, values...); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// HourStart returns the local calendar hour containing ts.
func HourStart(ts time.Time) time.Time {
	return time.Date(ts.Year(), ts.Month(), ts.Day(), ts.Hour(), 0, 0, 0, ts.Location())
}

// MonthStart returns the local calendar month containing ts.
func MonthStart(ts time.Time) time.Time {
	return time.Date(ts.Year(), ts.Month(), 1, 0, 0, 0, 0, ts.Location())
}

// ResampleHourly averages every column over local calendar hours.
// Hours without samples are not emitted. Rows are ordered by hour.
func ResampleHourly(t *Table, policy MissingPolicy) *Table {
	return Resample(t, HourStart, policy)
}

type bucket struct {
	start   time.Time
	sums    []float64
	counts  []int
	missing []bool
}

// Resample averages every column over the buckets returned by bucketOf.
func Resample(t *Table, bucketOf func(time.Time) time.Time, policy MissingPolicy) *Table {
	buckets := make(map[int64]*bucket)
	for i, ts := range t.Index {
		start := bucketOf(ts)
		k := instantKey(start)
		b, ok := buckets[k]
		if !ok {
			b = &bucket{
				start:   start,
				sums:    make([]float64, len(t.Columns)),
				counts:  make([]int, len(t.Columns)),
				missing: make([]bool, len(t.Columns)),
			}
			buckets[k] = b
		}
		for c := range t.Columns {
			v := t.data[c][i]
			if math.IsNaN(v) {
				b.missing[c] = true
				continue
			}
			b.sums[c] += v
			b.counts[c]++
		}
	}

	keys := make([]int64, 0, len(buckets))
	for k := range buckets {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(a, b int) bool { return keys[a] < keys[b] })

	out := NewTable(t.Columns...)
	values := make([]float64, len(t.Columns))
	for _, k := range keys {
		b := buckets[k]
		for c := range t.Columns {
			switch {
			case b.counts[c] == 0:
				values[c] = math.NaN()
			case b.missing[c] && policy != PolicySkipMissing:
				values[c] = math.NaN()
			default:
				values[c] = b.sums[c] / float64(b.counts[c])
			}
		}
		// AppendRow cannot fail: values has one entry per column.
		_ = out.AppendRow(b.start, values...)
	}
	return out
}

// DropIncomplete returns t without the rows holding a NaN, and how many were dropped.
func DropIncomplete(t *Table) (*Table, int) {
	flags := make([]bool, t.Len())
	dropped := 0
	for i := range flags {
		flags[i] = !t.HasMissing(i)
		if !flags[i] {
			dropped++
		}
	}
	return t.keep(flags), dropped
}
