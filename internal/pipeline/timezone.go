package pipeline

import "time"

// ConvertTimezone reads every index value as wall-clock time in source and
// converts it to target. Column data is shared with t.
func ConvertTimezone(t *Table, source, target *time.Location) *Table {
	index := make([]time.Time, len(t.Index))
	for i, ts := range t.Index {
		wall := time.Date(ts.Year(), ts.Month(), ts.Day(), ts.Hour(), ts.Minute(), ts.Second(), ts.Nanosecond(), source)
		index[i] = wall.In(target)
	}
	return t.withIndex(index)
}
