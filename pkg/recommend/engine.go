// Package recommend derives opportunity- and cost-oriented guidance from a
// collector's event buffer: batching, attribute projection, fetch-then-filter
// inefficiency, slow operations, high capacity consumption, and a capacity
// provisioning-mode suggestion based on traffic variability.
//
// Like the detectors, every check is a pure function of the buffer and
// degrades to empty results rather than erroring.
package recommend

import (
	"time"

	"github.com/kvlens/kvlens/pkg/collector"
	"github.com/kvlens/kvlens/pkg/detect"
	"github.com/kvlens/kvlens/pkg/event"
	"github.com/kvlens/kvlens/pkg/metrics"
)

// Finding categories emitted by the engine.
const (
	CategoryBatchRead      = "batch_read"
	CategoryBatchWrite     = "batch_write"
	CategoryProjection     = "projection"
	CategoryFetchFilter    = "fetch_filter"
	CategorySlowOperations = "slow_operations"
	CategoryHighReadUnits  = "high_read_units"
	CategoryHighWriteUnits = "high_write_units"
)

// Tuning holds the engine thresholds. Start from DefaultTuning and override.
type Tuning struct {
	BatchWindow        time.Duration `yaml:"batch_window"`         // cluster width measured from the first event
	BatchMinReads      int           `yaml:"batch_min_reads"`      // reads in a cluster before recommending
	BatchMinWrites     int           `yaml:"batch_min_writes"`     // writes (put+delete) before recommending
	ReadBatchPage      int           `yaml:"read_batch_page"`      // bulk-read page size limit
	WriteBatchPage     int           `yaml:"write_batch_page"`     // bulk-write page size limit
	ProjectionMinRate  float64       `yaml:"projection_min_rate"`  // flag kinds projecting less often than this
	ProjectionMinPoint int           `yaml:"projection_min_point"` // unprojected point/batch reads before flagging
	ProjectionMinScan  int           `yaml:"projection_min_scan"`  // unprojected queries/scans before flagging
	FilterEfficiency   float64       `yaml:"filter_efficiency"`    // flag patterns below this mean efficiency
	FilterWarnAt       float64       `yaml:"filter_warn_at"`       // escalate to warning below this
	FilterMinEvents    int           `yaml:"filter_min_events"`    // pattern size before the check applies
	CVHigh             float64       `yaml:"cv_high"`              // above: traffic is highly variable
	CVLow              float64       `yaml:"cv_low"`               // below (with enough volume): steady
	IdleFraction       float64       `yaml:"idle_fraction"`        // min hour below this share of mean means idle periods
	SteadyMinMean      float64       `yaml:"steady_min_mean"`      // mean hourly volume needed to call it steady
}

// DefaultTuning returns the stock thresholds.
func DefaultTuning() Tuning {
	return Tuning{
		BatchWindow:        time.Second,
		BatchMinReads:      5,
		BatchMinWrites:     3,
		ReadBatchPage:      100,
		WriteBatchPage:     25,
		ProjectionMinRate:  0.5,
		ProjectionMinPoint: 10,
		ProjectionMinScan:  15,
		FilterEfficiency:   0.5,
		FilterWarnAt:       0.2,
		FilterMinEvents:    3,
		CVHigh:             0.5,
		CVLow:              0.3,
		IdleFraction:       0.2,
		SteadyMinMean:      10,
	}
}

// Engine runs the opportunity checks against a Source using the collector's
// analysis thresholds.
type Engine struct {
	src        detect.Source
	thresholds collector.Thresholds
	tuning     Tuning
}

// New creates an engine with default tuning.
func New(src detect.Source, thresholds collector.Thresholds) *Engine {
	return NewWithTuning(src, thresholds, DefaultTuning())
}

// NewWithTuning creates an engine with custom thresholds.
func NewWithTuning(src detect.Source, thresholds collector.Thresholds, tuning Tuning) *Engine {
	return &Engine{src: src, thresholds: thresholds, tuning: tuning}
}

// Recommend runs every engine check over one export of the buffer and
// returns the combined findings in a fixed order: batch reads, batch writes,
// projection, fetch-to-filter, slow operations, high read units, high write
// units.
func (e *Engine) Recommend() []detect.Recommendation {
	start := time.Now()
	events := e.src.Events()

	var out []detect.Recommendation
	out = append(out, e.batchReads(events)...)
	out = append(out, e.batchWrites(events)...)
	out = append(out, e.projections(events)...)
	out = append(out, e.fetchToFilter(events)...)
	out = append(out, e.slowOperations(events)...)
	out = append(out, e.highCapacity(events)...)

	metrics.AnalysisDuration.WithLabelValues("recommend").Observe(time.Since(start).Seconds())
	return out
}

// eventsOfKinds returns the subset of events matching any of the kinds,
// sorted by timestamp.
func eventsOfKinds(events []event.Event, kinds ...event.Kind) []event.Event {
	want := make(map[event.Kind]bool, len(kinds))
	for _, k := range kinds {
		want[k] = true
	}
	var out []event.Event
	for i := range events {
		if want[events[i].Kind] {
			out = append(out, events[i])
		}
	}
	sortByTimestamp(out)
	return out
}
