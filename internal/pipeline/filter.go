package pipeline

import (
	"fmt"
	"sort"
)

// Source names the table a rule is evaluated against.
type Source string

const (
	SourceWeather Source = "weather"
	SourceGround  Source = "ground"
)

// Op is the comparison of a Rule.
type Op string

const (
	OpGreater Op = "gt"
	OpLess    Op = "lt"
)

// Rule flags the rows of one table whose column value compares true against Threshold.
// Rules sharing a Criterion are reported together.
type Rule struct {
	Criterion string
	Source    Source
	Column    string
	Op        Op
	Threshold float64
}

// Matches applies the rule to v. Comparisons with NaN are false.
func (r Rule) Matches(v float64) bool {
	switch r.Op {
	case OpGreater:
		return v > r.Threshold
	case OpLess:
		return v < r.Threshold
	default:
		return false
	}
}

func (r Rule) String() string {
	sym := "?"
	switch r.Op {
	case OpGreater:
		sym = ">"
	case OpLess:
		sym = "<"
	}
	return fmt.Sprintf("%s: %s.%s %s %g", r.Criterion, r.Source, r.Column, sym, r.Threshold)
}

// FilterResult holds the filtered tables and what was removed.
type FilterResult struct {
	Weather *Table
	Ground  *Table
	// CriterionCounts is the number of rows flagged by each criterion, summed over both tables.
	CriterionCounts map[string]int
	// ExcludedTimestamps is the number of distinct timestamps removed.
	ExcludedTimestamps int
	WeatherRemoved     int
	GroundRemoved      int
}

// Criteria returns the criterion names of CriterionCounts, sorted.
func (r *FilterResult) Criteria() []string {
	names := make([]string, 0, len(r.CriterionCounts))
	for name := range r.CriterionCounts {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Filter evaluates rules against their source tables. Every timestamp flagged
// in either table is removed from both.
func Filter(weather, ground *Table, rules []Rule) (*FilterResult, error) {
	excluded := make(map[int64]struct{})
	counts := make(map[string]int)

	for _, src := range []struct {
		source Source
		table  *Table
	}{{SourceWeather, weather}, {SourceGround, ground}} {
		flagged := make(map[string][]bool)
		for _, rule := range rules {
			if rule.Source != src.source {
				continue
			}
			col, err := src.table.Column(rule.Column)
			if err != nil {
				return nil, fmt.Errorf("filter %s: %w", rule, err)
			}
			rows, ok := flagged[rule.Criterion]
			if !ok {
				rows = make([]bool, src.table.Len())
				flagged[rule.Criterion] = rows
			}
			for i, v := range col {
				if rule.Matches(v) {
					rows[i] = true
					excluded[instantKey(src.table.Index[i])] = struct{}{}
				}
			}
		}
		for criterion, rows := range flagged {
			n := 0
			for _, f := range rows {
				if f {
					n++
				}
			}
			counts[criterion] += n
		}
	}

	for _, rule := range rules {
		if _, ok := counts[rule.Criterion]; !ok {
			counts[rule.Criterion] = 0
		}
	}

	w := removeKeys(weather, excluded)
	g := removeKeys(ground, excluded)
	return &FilterResult{
		Weather:            w,
		Ground:             g,
		CriterionCounts:    counts,
		ExcludedTimestamps: len(excluded),
		WeatherRemoved:     weather.Len() - w.Len(),
		GroundRemoved:      ground.Len() - g.Len(),
	}, nil
}

func removeKeys(t *Table, excluded map[int64]struct{}) *Table {
	flags := make([]bool, t.Len())
	for i, ts := range t.Index {
		_, drop := excluded[instantKey(ts)]
		flags[i] = !drop
	}
	return t.keep(flags)
}
