package pipeline

import "fmt"

// ColumnMapping renames Source to Target.
type ColumnMapping struct {
	Source string
	Target string
}

// Project selects the mapped columns of t in mapping order and renames them.
// Values and index are shared with t.
func Project(t *Table, mappings []ColumnMapping) (*Table, error) {
	out := &Table{
		Index:   t.Index,
		Columns: make([]string, 0, len(mappings)),
		data:    make([][]float64, 0, len(mappings)),
	}
	seen := make(map[string]struct{}, len(mappings))
	for _, m := range mappings {
		col, err := t.Column(m.Source)
		if err != nil {
			return nil, err
		}
		if _, dup := seen[m.Target]; dup {
			return nil, fmt.Errorf("projection maps more than one column to %q", m.Target)
		}
		seen[m.Target] = struct{}{}
		out.Columns = append(out.Columns, m.Target)
		out.data = append(out.data, col)
	}
	return out, nil
}
