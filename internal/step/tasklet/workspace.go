// Package tasklet holds the tasklets of nistHourlyJob. Each tasklet reads the
// tables left by the previous step from a Workspace, applies one stage of the
// pipeline and records its counts on the step execution.
package tasklet

import (
	"sync"

	"github.com/tigerroll/nisthourly/internal/export"
	"github.com/tigerroll/nisthourly/internal/pipeline"
)

// Workspace carries the tables of one job execution between steps.
type Workspace struct {
	mu sync.Mutex

	weather  *pipeline.Table
	ground   *pipeline.Table
	hourly   *pipeline.Table
	counts   []export.Count
	criteria map[string]int
}

// NewWorkspace returns an empty Workspace.
func NewWorkspace() *Workspace {
	return &Workspace{criteria: make(map[string]int)}
}

// SetSources stores the loaded (or filtered) weather and ground tables.
func (w *Workspace) SetSources(weather, ground *pipeline.Table) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.weather, w.ground = weather, ground
}

// Sources returns the weather and ground tables.
func (w *Workspace) Sources() (*pipeline.Table, *pipeline.Table) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.weather, w.ground
}

// SetHourly stores the complete hourly table.
func (w *Workspace) SetHourly(t *pipeline.Table) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.hourly = t
}

// Hourly returns the complete hourly table.
func (w *Workspace) Hourly() *pipeline.Table {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.hourly
}

// AddCount appends a stage count for the run summary.
func (w *Workspace) AddCount(label string, value int) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.counts = append(w.counts, export.Count{Label: label, Value: value})
}

// SetCriterionCounts stores the per-criterion filter counts.
func (w *Workspace) SetCriterionCounts(counts map[string]int) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.criteria = make(map[string]int, len(counts))
	for k, v := range counts {
		w.criteria[k] = v
	}
}

// Summary returns the counts recorded so far.
func (w *Workspace) Summary() export.Summary {
	w.mu.Lock()
	defer w.mu.Unlock()
	counts := make([]export.Count, len(w.counts))
	copy(counts, w.counts)
	criteria := make(map[string]int, len(w.criteria))
	for k, v := range w.criteria {
		criteria[k] = v
	}
	return export.Summary{Counts: counts, CriterionCounts: criteria}
}
