package pipeline

import "fmt"

// AlignmentReport compares the timestamp keys of the weather and ground tables.
type AlignmentReport struct {
	WeatherRows int
	GroundRows  int
	// WeatherOnly counts distinct timestamps found in weather but not in ground.
	WeatherOnly int
	// GroundOnly counts distinct timestamps found in ground but not in weather.
	GroundOnly int
	// WeatherDuplicates counts weather rows repeating an earlier timestamp.
	WeatherDuplicates int
	// GroundDuplicates counts ground rows repeating an earlier timestamp.
	GroundDuplicates int
}

// Aligned reports whether both tables carry the same unique timestamps.
func (r AlignmentReport) Aligned() bool {
	return r.WeatherOnly == 0 && r.GroundOnly == 0 && r.WeatherDuplicates == 0 && r.GroundDuplicates == 0
}

func (r AlignmentReport) String() string {
	return fmt.Sprintf("weather rows=%d, ground rows=%d, weather only=%d, ground only=%d, weather duplicates=%d, ground duplicates=%d",
		r.WeatherRows, r.GroundRows, r.WeatherOnly, r.GroundOnly, r.WeatherDuplicates, r.GroundDuplicates)
}

// Err returns ErrMisaligned wrapped with the report, or nil when aligned.
func (r AlignmentReport) Err() error {
	if r.Aligned() {
		return nil
	}
	return fmt.Errorf("%w: %s", ErrMisaligned, r)
}

// CheckAlignment compares the timestamp sets of weather and ground.
func CheckAlignment(weather, ground *Table) AlignmentReport {
	wKeys, wDup := keyCounts(weather)
	gKeys, gDup := keyCounts(ground)
	report := AlignmentReport{
		WeatherRows:       weather.Len(),
		GroundRows:        ground.Len(),
		WeatherDuplicates: wDup,
		GroundDuplicates:  gDup,
	}
	for k := range wKeys {
		if _, ok := gKeys[k]; !ok {
			report.WeatherOnly++
		}
	}
	for k := range gKeys {
		if _, ok := wKeys[k]; !ok {
			report.GroundOnly++
		}
	}
	return report
}

func keyCounts(t *Table) (map[int64]int, int) {
	counts := make(map[int64]int, t.Len())
	dup := 0
	for _, ts := range t.Index {
		k := instantKey(ts)
		if counts[k] > 0 {
			dup++
		}
		counts[k]++
	}
	return counts, dup
}
